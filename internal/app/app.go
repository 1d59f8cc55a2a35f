package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/quillshelf/backend/internal/adapter/postgres"
	auditrepo "github.com/quillshelf/backend/internal/adapter/postgres/audit"
	bookrepo "github.com/quillshelf/backend/internal/adapter/postgres/book"
	draftrepo "github.com/quillshelf/backend/internal/adapter/postgres/draft"
	userrepo "github.com/quillshelf/backend/internal/adapter/postgres/user"
	"github.com/quillshelf/backend/internal/adapter/redisx"
	"github.com/quillshelf/backend/internal/auth"
	"github.com/quillshelf/backend/internal/config"
	"github.com/quillshelf/backend/internal/service/cleanup"
	"github.com/quillshelf/backend/internal/service/notifier"
	"github.com/quillshelf/backend/internal/transport/middleware"
	"github.com/quillshelf/backend/internal/transport/rest"
)

// Run is the application entry point. It loads configuration, connects to
// the database (and Redis, when configured), wires the services, and serves
// HTTP until the process receives SIGINT or SIGTERM.
func Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	// Redis is optional. Without it the rate limiter runs on the in-process
	// counter and notifications go to the log instead of the channel.
	var (
		counters middleware.CounterStore = middleware.NewMemoryCounterStore()
		sender   notifier.Sender         = notifier.NewLogSender(logger)
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redisx.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close() //nolint:errcheck
		counters = redisx.NewCounterStore(redisClient, "ratelimit")
		sender = redisx.NewPublisher(redisClient, cfg.Redis.NotificationChannel)
	}

	drafts := draftrepo.New(pool)
	audits := auditrepo.New(pool)
	users := userrepo.New(pool)
	books := bookrepo.New(pool)
	txManager := postgres.NewTxManager(pool)

	cleanupSvc := cleanup.NewService(logger, drafts, audits, txManager, cfg.Drafts, cfg.Cleanup)
	notifierSvc := notifier.NewService(logger, drafts, users, books, audits, sender)
	authenticator := auth.NewCronAuthenticator(cfg.Cleanup.TriggerSecret, cfg.Cleanup.TokenIssuer)

	router := rest.NewRouter(rest.RouterDeps{
		Health:               rest.NewHealthHandler(pool, BuildVersion()),
		Cron:                 rest.NewCronHandler(cleanupSvc, notifierSvc, authenticator, logger),
		RateLimiter:          middleware.NewRateLimiter(counters, logger),
		TriggerRatePerMinute: cfg.Cleanup.TriggerRatePerMinute,
	}, middleware.Chain(
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
	))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
