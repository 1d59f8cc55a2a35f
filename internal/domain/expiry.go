package domain

import (
	"math"
	"time"
)

// Default lifecycle constants. ExpiryDays and quota are configurable
// (config.DraftsConfig); the notification windows are fixed policy.
const (
	DefaultExpiryDays       = 7
	DefaultMaxDraftsPerUser = 5

	// FinalWarningWindow and WarningWindow measure time remaining before
	// expires_at. Each window is inclusive of its lower bound and exclusive
	// of its upper bound, so an instant never matches two tiers.
	FinalWarningWindow = 24 * time.Hour
	WarningWindow      = 48 * time.Hour
)

// ExpiryDate computes the absolute expiry deadline for a draft created or
// extended at the given instant.
func ExpiryDate(now time.Time, expiryDays int) time.Time {
	return now.Add(time.Duration(expiryDays) * 24 * time.Hour)
}

// tierRule is one row of the classification table, evaluated top-down with
// first-match-wins semantics over the time remaining until expiry.
type tierRule struct {
	// matches reports whether the rule applies for the given remaining time
	// (negative once the deadline has passed).
	matches func(remaining time.Duration) bool
	tier    NotificationTier
}

// tierRules is ordered from most to least urgent:
//
//	remaining <  0                      -> EXPIRED
//	0 <= remaining < FinalWarningWindow -> FINAL_WARNING
//	FinalWarningWindow <= remaining < WarningWindow -> WARNING
func tierRules() []tierRule {
	return []tierRule{
		{func(r time.Duration) bool { return r < 0 }, TierExpired},
		{func(r time.Duration) bool { return r < FinalWarningWindow }, TierFinalWarning},
		{func(r time.Duration) bool { return r < WarningWindow }, TierWarning},
	}
}

// TierFor classifies a draft against the notification tier table at the given
// instant. The second return value is false when no notification is due.
func TierFor(d *Draft, now time.Time) (NotificationTier, bool) {
	remaining := d.ExpiresAt.Sub(now)
	for _, rule := range tierRules() {
		if rule.matches(remaining) {
			return rule.tier, true
		}
	}
	return "", false
}

// DaysUntilExpiry returns the signed whole-day count until the draft's
// deadline, floored so any instant past the deadline reads as negative.
func DaysUntilExpiry(d *Draft, now time.Time) int {
	return int(math.Floor(d.ExpiresAt.Sub(now).Hours() / 24))
}
