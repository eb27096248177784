// Package cache holds the small amount of per-user transient state the
// services keep between calls: the day-key to journal-entry mapping used by
// the session manager, and a recent slice of assessment days that lets streak
// reads degrade gracefully when the database is unreachable.
//
// Two implementations exist. The in-memory one is process-local and is the
// default; the Redis one is shared across replicas and expires keys by TTL.
package cache

import (
	"context"
	"sort"
)

// EntryCache maps (userID, dayKey) to the ID of that day's journal entry.
type EntryCache interface {
	// Get returns the cached entry ID and whether it was present.
	Get(ctx context.Context, userID, dayKey string) (string, bool, error)
	// Set records the entry ID for (userID, dayKey).
	Set(ctx context.Context, userID, dayKey, entryID string) error
	// Prune drops every mapping whose day key differs from current.
	Prune(ctx context.Context, current string) error
}

// HistoryCache keeps a bounded set of YYYY-MM-DD assessment days per user.
type HistoryCache interface {
	// Days returns the cached days, newest first, and whether anything is
	// cached for userID at all.
	Days(ctx context.Context, userID string) ([]string, bool, error)
	// Put replaces the cached days for userID.
	Put(ctx context.Context, userID string, days []string) error
	// Add records a single day for userID.
	Add(ctx context.Context, userID, day string) error
}

// newestFirst sorts YYYY-MM-DD keys descending, drops duplicates, and caps
// the result at limit when limit > 0.
func newestFirst(days []string, limit int) []string {
	seen := make(map[string]struct{}, len(days))
	out := make([]string, 0, len(days))
	for _, d := range days {
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
