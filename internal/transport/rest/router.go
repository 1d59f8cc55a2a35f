package rest

import (
	"net/http"

	"github.com/quillshelf/backend/internal/transport/middleware"
)

// RouterDeps carries everything the HTTP router needs.
type RouterDeps struct {
	Health *HealthHandler
	Cron   *CronHandler

	RateLimiter          *middleware.RateLimiter
	TriggerRatePerMinute int
}

// NewRouter assembles the HTTP routes. The cleanup trigger is rate limited;
// the status and notify endpoints are not, status is read-only and the notify
// scan is idempotent per tier.
func NewRouter(deps RouterDeps, base middleware.Middleware) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", deps.Health.Health)
	mux.HandleFunc("GET /health/live", deps.Health.Live)
	mux.HandleFunc("GET /health/ready", deps.Health.Ready)

	limited := deps.RateLimiter.Limit("cron-cleanup-trigger", deps.TriggerRatePerMinute)
	mux.Handle("POST /internal/cron/cleanup",
		limited(http.HandlerFunc(deps.Cron.TriggerCleanup)))
	mux.HandleFunc("GET /internal/cron/cleanup/status", deps.Cron.CleanupStatus)
	mux.HandleFunc("POST /internal/cron/notify", deps.Cron.TriggerNotify)

	return base(mux)
}
