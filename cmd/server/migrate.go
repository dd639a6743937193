package main

import (
	"github.com/spf13/cobra"

	"github.com/iliyamo/community-commons/internal/config"
	"github.com/iliyamo/community-commons/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := database.Migrate(config.Load().DatabaseURL); err != nil {
			return err
		}
		cmd.Println("migrations applied")
		return nil
	},
}

var migrateDownSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := database.MigrateDown(config.Load().DatabaseURL, migrateDownSteps); err != nil {
			return err
		}
		cmd.Printf("rolled back %d migration(s)\n", migrateDownSteps)
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
