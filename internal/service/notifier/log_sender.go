package notifier

import (
	"context"
	"log/slog"

	"github.com/quillshelf/backend/internal/domain"
)

// LogSender is the fallback Sender used when no Redis deployment is
// configured: notifications are written to the structured log instead of
// published.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender creates a log-backed Sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{log: logger.With("sender", "log")}
}

// Send logs the notification.
func (s *LogSender) Send(_ context.Context, n domain.ExpirationNotification) error {
	s.log.Info("expiration notification",
		"draft_id", n.DraftID,
		"user_id", n.UserID,
		"email", n.Email,
		"book_title", n.BookTitle,
		"tier", n.Tier,
		"expires_at", n.ExpiresAt,
		"days_until_expiry", n.DaysUntilExpiry,
	)
	return nil
}
