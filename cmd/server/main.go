package main // Entry point package

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Community resource sharing web application",
	Long: `Runs the community resource sharing site and its support tasks.

Examples:
  server serve
  server migrate up
  server migrate down --steps 1
  server audit-consumer`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, auditConsumerCmd)
}

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from LOG_LEVEL and LOG_DEV.
func newLogger() (*zap.Logger, error) {
	log, err := logger.New(logger.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}
