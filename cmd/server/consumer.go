package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/community-commons/internal/config"
	"github.com/iliyamo/community-commons/internal/database"
	"github.com/iliyamo/community-commons/internal/queue"
	"github.com/iliyamo/community-commons/internal/repository"
)

var auditConsumerCmd = &cobra.Command{
	Use:   "audit-consumer",
	Short: "Persist audit events from the message broker",
	Long: `Consumes the audit.events queue and writes each event to audit_log.
Requires AMQP_URL (or RABBITMQ_URL).`,
	Args: cobra.NoArgs,
	RunE: runAuditConsumer,
}

func runAuditConsumer(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	if cfg.AMQPURL == "" {
		return errors.New("audit-consumer needs AMQP_URL or RABBITMQ_URL")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = queue.StartAuditConsumer(ctx, cfg.AMQPURL, repository.NewAuditRepo(db), log)
	if errors.Is(err, context.Canceled) {
		log.Info("audit consumer stopped")
		return nil
	}
	return err
}
