package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/config"
	"github.com/iliyamo/community-commons/internal/database"
	"github.com/iliyamo/community-commons/internal/handler"
	"github.com/iliyamo/community-commons/internal/i18n"
	"github.com/iliyamo/community-commons/internal/repository"
	"github.com/iliyamo/community-commons/internal/router"
	"github.com/iliyamo/community-commons/internal/service"
	"github.com/iliyamo/community-commons/internal/session"
	"github.com/iliyamo/community-commons/internal/view"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()

	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable; using cookie sessions without rate limiting or page cache")
	} else {
		defer rdb.Close()
	}

	bundle, err := i18n.Load()
	if err != nil {
		return err
	}
	renderer, err := view.NewRenderer()
	if err != nil {
		return err
	}

	store := session.NewStore(rdb, cfg.SecretKey, sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   cfg.SessionSecure,
		SameSite: http.SameSiteLaxMode,
	})

	pub := service.NewPublisher(cfg.AMQPURL, log)
	defer pub.Close()

	users := repository.NewUserRepo(db)
	resources := repository.NewResourceRepo(db)
	categories := repository.NewCategoryRepo(db)
	requests := repository.NewRequestRepo(db)
	messages := repository.NewMessageRepo(db)
	events := repository.NewEventRepo(db)
	audit := service.NewAuditRecorder(pub, repository.NewAuditRepo(db), log)

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Validator = handler.NewFormValidator()
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(log)

	deps := router.Deps{
		Log:       log,
		Store:     store,
		Users:     users,
		Bundle:    bundle,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),

		Auth: handler.NewAuthHandler(cfg, users, audit, pub, log),
		Resources: &handler.ResourceHandler{
			Resources: resources, Categories: categories, Requests: requests,
			Audit: audit, Events: pub, Log: log,
		},
		Profile: &handler.ProfileHandler{
			Users: users, Resources: resources, Requests: requests, Audit: audit, Log: log,
		},
		Requests: &handler.RequestHandler{Requests: requests, Audit: audit, Log: log},
		Messages: &handler.MessageHandler{Users: users, Messages: messages, Audit: audit, Log: log},
		Events:   &handler.EventHandler{Events: events, Audit: audit, Log: log},
		Pages:    &handler.PageHandler{Log: log},
	}
	router.RegisterMiddleware(e, deps)
	router.RegisterRoutes(e)
	router.RegisterApp(e, deps)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
