package domain

import (
	"fmt"
	"time"
)

// DefaultCleanupBatchSize caps the records touched per cleanup phase.
const DefaultCleanupBatchSize = 100

// CleanupCriteria parameterizes one reclamation pass.
//
// OlderThan is the abandonment threshold: drafts in a target status whose
// last update precedes it are eligible for deletion. Statuses is the target
// set for the deletion phase. BatchSize caps records touched per phase.
// DryRun performs the same counting logic without issuing writes.
type CleanupCriteria struct {
	OlderThan time.Time
	Statuses  []DraftStatus
	BatchSize int
	DryRun    bool
}

// DefaultCleanupCriteria builds the criteria used when the trigger supplies
// no overrides: olderThan = now − expiryDays, statuses = [EXPIRED, ABANDONED].
func DefaultCleanupCriteria(now time.Time, expiryDays int) CleanupCriteria {
	return CleanupCriteria{
		OlderThan: now.Add(-time.Duration(expiryDays) * 24 * time.Hour),
		Statuses:  []DraftStatus{DraftStatusExpired, DraftStatusAbandoned},
		BatchSize: DefaultCleanupBatchSize,
	}
}

// Validate checks the criteria for malformed values. A zero OlderThan or an
// empty status set is allowed only because DefaultCleanupCriteria fills them;
// callers must normalize first (see Normalize).
func (c CleanupCriteria) Validate() error {
	if c.OlderThan.IsZero() {
		return NewValidationError("older_than", "required")
	}
	if c.BatchSize <= 0 {
		return NewValidationError("batch_size", "must be > 0")
	}
	if len(c.Statuses) == 0 {
		return NewValidationError("statuses", "required (at least 1)")
	}
	for _, s := range c.Statuses {
		if !s.IsValid() {
			return NewValidationError("statuses", fmt.Sprintf("unknown status %q", s))
		}
		if s == DraftStatusDraft {
			return NewValidationError("statuses", "DRAFT drafts are never deletion targets")
		}
	}
	return nil
}

// Normalize fills unset fields from the defaults for the given instant and
// configuration, leaving explicitly provided overrides untouched.
func (c CleanupCriteria) Normalize(now time.Time, expiryDays int) CleanupCriteria {
	def := DefaultCleanupCriteria(now, expiryDays)
	if c.OlderThan.IsZero() {
		c.OlderThan = def.OlderThan
	}
	if len(c.Statuses) == 0 {
		c.Statuses = def.Statuses
	}
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	return c
}

// HasStatus reports whether s is in the criteria's target set.
func (c CleanupCriteria) HasStatus(s DraftStatus) bool {
	for _, t := range c.Statuses {
		if t == s {
			return true
		}
	}
	return false
}

// CleanupResult is the structured summary of one reclamation pass.
// A non-empty Errors list does not make the pass a failure: per-item errors
// are collected and skipped, and the aggregate counts cover what succeeded.
type CleanupResult struct {
	DryRun bool `json:"dry_run"`

	ExpiredMarked   int `json:"expired_marked"`
	ExpiredDeleted  int `json:"expired_deleted"`
	ExcessDeleted   int `json:"excess_deleted"`
	OrphanedDeleted int `json:"orphaned_deleted"`

	TotalProcessed      int `json:"total_processed"`
	AuditEntriesCreated int `json:"audit_entries_created"`

	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}

// DeletedTotal returns the combined deletion count across phases.
func (r CleanupResult) DeletedTotal() int {
	return r.ExpiredDeleted + r.ExcessDeleted + r.OrphanedDeleted
}

// Cleanup urgency tiers reported by the status endpoint.
const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

// CleanupStatusReport is the read-only introspection snapshot consumed by
// operational dashboards.
type CleanupStatusReport struct {
	ExpiredCount        int    `json:"expired_count"`
	AbandonedCount      int    `json:"abandoned_count"`
	ExcessCount         int    `json:"excess_count"`
	OrphanedCount       int    `json:"orphaned_count"`
	RecentCleanupAudits int    `json:"recent_cleanup_audits"`
	Urgency             string `json:"urgency"`
}

// UrgencyFor maps an expired-draft backlog to an urgency tier.
func UrgencyFor(expiredCount int) string {
	switch {
	case expiredCount > 100:
		return UrgencyHigh
	case expiredCount > 50:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}
