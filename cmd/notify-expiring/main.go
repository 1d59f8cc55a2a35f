// Command notify-expiring runs one expiration-notification pass over the
// active drafts, sending escalating warnings as drafts approach their
// expires_at. Invoked by an external cron job.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/quillshelf/backend/internal/adapter/postgres"
	auditrepo "github.com/quillshelf/backend/internal/adapter/postgres/audit"
	bookrepo "github.com/quillshelf/backend/internal/adapter/postgres/book"
	draftrepo "github.com/quillshelf/backend/internal/adapter/postgres/draft"
	userrepo "github.com/quillshelf/backend/internal/adapter/postgres/user"
	"github.com/quillshelf/backend/internal/adapter/redisx"
	"github.com/quillshelf/backend/internal/app"
	"github.com/quillshelf/backend/internal/config"
	"github.com/quillshelf/backend/internal/service/notifier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	var sender notifier.Sender = notifier.NewLogSender(logger)
	if cfg.Redis.Enabled() {
		redisClient, err := redisx.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Error("connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close() //nolint:errcheck
		sender = redisx.NewPublisher(redisClient, cfg.Redis.NotificationChannel)
	}

	svc := notifier.NewService(
		logger,
		draftrepo.New(pool),
		userrepo.New(pool),
		bookrepo.New(pool),
		auditrepo.New(pool),
		sender,
	)

	result, err := svc.Scan(ctx)
	if err != nil {
		logger.Error("notification scan failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("notification scan completed",
		slog.Int("scanned", result.Scanned),
		slog.Int("due", result.Due),
		slog.Int("sent", result.Sent),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("duration", result.Duration),
	)
	for _, e := range result.Errors {
		logger.Warn("notification skipped", slog.String("error", e))
	}
}
