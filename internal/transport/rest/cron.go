package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/quillshelf/backend/internal/domain"
	"github.com/quillshelf/backend/internal/service/notifier"
)

// maxTriggerBodyBytes bounds the cleanup trigger request body.
const maxTriggerBodyBytes = 4 << 10

type cleanupService interface {
	Run(ctx context.Context, criteria domain.CleanupCriteria) (*domain.CleanupResult, error)
	Status(ctx context.Context) (*domain.CleanupStatusReport, error)
}

type notifierService interface {
	Scan(ctx context.Context) (*notifier.ScanResult, error)
}

type cronAuthenticator interface {
	Authenticate(credential string) error
}

// CronHandler serves the internal cron trigger endpoints. All endpoints
// require a bearer credential accepted by the authenticator.
type CronHandler struct {
	cleanup  cleanupService
	notifier notifierService
	auth     cronAuthenticator
	log      *slog.Logger
}

// NewCronHandler creates a CronHandler.
func NewCronHandler(cleanup cleanupService, notifier notifierService, auth cronAuthenticator, logger *slog.Logger) *CronHandler {
	return &CronHandler{
		cleanup:  cleanup,
		notifier: notifier,
		auth:     auth,
		log:      logger.With("handler", "cron"),
	}
}

// triggerRequest carries optional overrides for one cleanup pass. Absent
// fields fall back to the configured defaults.
type triggerRequest struct {
	DryRun    bool       `json:"dry_run"`
	OlderThan *time.Time `json:"older_than,omitempty"`
	Statuses  []string   `json:"statuses,omitempty"`
	BatchSize int        `json:"batch_size,omitempty"`
}

// TriggerCleanup runs one cleanup pass.
// POST /internal/cron/cleanup
func (h *CronHandler) TriggerCleanup(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	criteria, ok := h.parseCriteria(w, r)
	if !ok {
		return
	}

	result, err := h.cleanup.Run(r.Context(), criteria)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CleanupStatus reports the current backlog and urgency.
// GET /internal/cron/cleanup/status
func (h *CronHandler) CleanupStatus(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	report, err := h.cleanup.Status(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// TriggerNotify runs one expiration-notification scan.
// POST /internal/cron/notify
func (h *CronHandler) TriggerNotify(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	result, err := h.notifier.Scan(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// authorize validates the bearer credential, writing 401 on failure.
func (h *CronHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	credential := extractBearer(r)
	if credential == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer credential")
		return false
	}
	if err := h.auth.Authenticate(credential); err != nil {
		h.log.WarnContext(r.Context(), "cron trigger rejected",
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
		)
		writeError(w, http.StatusUnauthorized, "invalid credential")
		return false
	}
	return true
}

// parseCriteria decodes the optional JSON overrides. An empty body means
// defaults.
func (h *CronHandler) parseCriteria(w http.ResponseWriter, r *http.Request) (domain.CleanupCriteria, bool) {
	var criteria domain.CleanupCriteria

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return criteria, false
	}
	if len(body) == 0 {
		return criteria, true
	}

	var req triggerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return criteria, false
	}

	criteria.DryRun = req.DryRun
	criteria.BatchSize = req.BatchSize
	if req.OlderThan != nil {
		criteria.OlderThan = *req.OlderThan
	}
	for _, s := range req.Statuses {
		criteria.Statuses = append(criteria.Statuses, domain.DraftStatus(s))
	}
	return criteria, true
}

func (h *CronHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.ErrorContext(r.Context(), "cron operation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
