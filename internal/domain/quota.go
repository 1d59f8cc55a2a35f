package domain

import "sort"

// SelectQuotaEvictions returns the drafts to evict for a user holding more
// than maxPerUser active drafts: the least recently accessed excess, keeping
// the most recently touched ones. Ordering is a stable sort by last_accessed
// ascending, tie-broken by updated_at ascending, so repeated runs against an
// unchanged dataset select the same victims.
//
// The input must contain only drafts in status DRAFT belonging to one user;
// drafts in other states never count against the quota.
func SelectQuotaEvictions(drafts []Draft, maxPerUser int) []Draft {
	if maxPerUser < 0 {
		maxPerUser = 0
	}
	excess := len(drafts) - maxPerUser
	if excess <= 0 {
		return nil
	}

	sorted := make([]Draft, len(drafts))
	copy(sorted, drafts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].LastAccessed.Equal(sorted[j].LastAccessed) {
			return sorted[i].LastAccessed.Before(sorted[j].LastAccessed)
		}
		return sorted[i].UpdatedAt.Before(sorted[j].UpdatedAt)
	})

	return sorted[:excess]
}
