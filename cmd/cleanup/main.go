// Command cleanup runs one draft reclamation pass: marks past-due drafts
// EXPIRED, deletes abandoned and expired drafts past the retention threshold,
// evicts over-quota drafts, and removes orphans. It is intended to be invoked
// by an external cron job, not as an in-process goroutine.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/quillshelf/backend/internal/adapter/postgres"
	auditrepo "github.com/quillshelf/backend/internal/adapter/postgres/audit"
	draftrepo "github.com/quillshelf/backend/internal/adapter/postgres/draft"
	"github.com/quillshelf/backend/internal/app"
	"github.com/quillshelf/backend/internal/config"
	"github.com/quillshelf/backend/internal/domain"
	"github.com/quillshelf/backend/internal/service/cleanup"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "count candidates without deleting anything")
	batchSize := flag.Int("batch-size", 0, "max records touched per phase (0 = configured default)")
	olderThan := flag.String("older-than", "", "abandonment threshold, RFC 3339 (empty = configured default)")
	statuses := flag.String("statuses", "", "comma-separated target statuses (empty = EXPIRED,ABANDONED)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	criteria := domain.CleanupCriteria{
		DryRun:    *dryRun,
		BatchSize: *batchSize,
	}
	if *olderThan != "" {
		t, err := time.Parse(time.RFC3339, *olderThan)
		if err != nil {
			logger.Error("parse -older-than", slog.String("error", err.Error()))
			os.Exit(1)
		}
		criteria.OlderThan = t
	}
	if *statuses != "" {
		for _, s := range strings.Split(*statuses, ",") {
			criteria.Statuses = append(criteria.Statuses, domain.DraftStatus(strings.TrimSpace(s)))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	svc := cleanup.NewService(
		logger,
		draftrepo.New(pool),
		auditrepo.New(pool),
		postgres.NewTxManager(pool),
		cfg.Drafts,
		cfg.Cleanup,
	)

	result, err := svc.Run(ctx, criteria)
	if err != nil {
		logger.Error("cleanup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("cleanup completed",
		slog.Bool("dry_run", result.DryRun),
		slog.Int("expired_marked", result.ExpiredMarked),
		slog.Int("expired_deleted", result.ExpiredDeleted),
		slog.Int("excess_deleted", result.ExcessDeleted),
		slog.Int("orphaned_deleted", result.OrphanedDeleted),
		slog.Int("total_processed", result.TotalProcessed),
		slog.Int("audit_entries", result.AuditEntriesCreated),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("duration", result.Duration),
	)
	for _, e := range result.Errors {
		logger.Warn("cleanup item skipped", slog.String("error", e))
	}
}
