package history

import (
	"slices"
	"sort"
	"time"

	"github.com/jmylchreest/jacknotify/internal/notify"
)

// FilterOptions specifies criteria for selecting records.
type FilterOptions struct {
	Since  time.Duration // Only records newer than now-Since (0 = all)
	Kinds  []notify.Kind // Only these kinds (empty = all)
	Client string        // Exact client name match (empty = any)
	Limit  int           // Keep the newest Limit records (0 = unlimited)
	Now    time.Time     // Reference time; zero means time.Now()
}

// Filter returns the matching records, oldest first.
func Filter(records []Record, opts FilterOptions) []Record {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	var cutoff int64
	if opts.Since > 0 {
		cutoff = now.Add(-opts.Since).UnixMilli()
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if cutoff > 0 && r.Timestamp < cutoff {
			continue
		}
		if len(opts.Kinds) > 0 && !slices.Contains(opts.Kinds, r.Kind) {
			continue
		}
		if opts.Client != "" && r.Client != opts.Client {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[len(out)-opts.Limit:]
	}
	return out
}

// Prune drops records older than maxAge from the log and returns how many
// were removed. A zero maxAge keeps everything.
func Prune(l Log, maxAge time.Duration, now time.Time) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	records, err := l.Load()
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-maxAge).UnixMilli()
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Timestamp >= cutoff {
			kept = append(kept, r)
		}
	}

	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := l.Rewrite(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// CountByKind tallies records per kind.
func CountByKind(records []Record) map[notify.Kind]int {
	counts := make(map[notify.Kind]int)
	for _, r := range records {
		counts[r.Kind]++
	}
	return counts
}
