// Package streak computes daily check-in streaks from a user's assessment
// history. Everything here is pure: callers pass the history and "today",
// nothing is read from a clock or from storage.
//
// A streak is a run of consecutive calendar days with at least one check-in.
// The current streak stays alive through a one-day grace period, so a user
// who checked in yesterday but not yet today keeps their run. Several
// check-ins on the same day count once.
package streak

import (
	"sort"
	"time"
)

// Snapshot is the derived streak view returned to clients.
type Snapshot struct {
	CurrentStreak int `json:"currentStreak"`
	LongestStreak int `json:"longestStreak"`
}

// Calculator evaluates streaks against a Calendar.
type Calculator struct {
	Calendar Calendar
}

// NewCalculator returns a Calculator bound to the reference zone loc.
func NewCalculator(loc *time.Location) Calculator {
	return Calculator{Calendar: NewCalendar(loc)}
}

// Current returns the number of consecutive days ending today, or ending
// yesterday when today has no check-in yet. Days after today are ignored.
func (c Calculator) Current(days []time.Time, today time.Time) int {
	t := c.Calendar.ordinal(today)
	ords := c.ordinals(days)
	sort.Slice(ords, func(i, j int) bool { return ords[i] > ords[j] })

	// drop future-dated entries
	i := 0
	for i < len(ords) && ords[i] > t {
		i++
	}
	ords = ords[i:]
	if len(ords) == 0 {
		return 0
	}

	newest := ords[0]
	if t-newest > 1 {
		return 0
	}

	n := 0
	expected := newest
	for _, d := range ords {
		switch {
		case d == expected:
			n++
			expected--
		case d < expected:
			return n
		}
		// d > expected: same-day repeat of a day already counted
	}
	return n
}

// Longest returns the longest run of consecutive days anywhere in history.
func (c Calculator) Longest(days []time.Time) int {
	ords := c.ordinals(days)
	if len(ords) == 0 {
		return 0
	}
	sort.Slice(ords, func(i, j int) bool { return ords[i] < ords[j] })

	best, run := 1, 1
	for i := 1; i < len(ords); i++ {
		switch gap := ords[i] - ords[i-1]; {
		case gap == 0:
		case gap == 1:
			run++
		default:
			if run > best {
				best = run
			}
			run = 1
		}
	}
	if run > best {
		best = run
	}
	return best
}

// Snapshot computes both values. LongestStreak is never reported below
// CurrentStreak.
func (c Calculator) Snapshot(days []time.Time, today time.Time) Snapshot {
	cur := c.Current(days, today)
	longest := c.Longest(days)
	if cur > longest {
		longest = cur
	}
	return Snapshot{CurrentStreak: cur, LongestStreak: longest}
}

// CanCheckIn reports whether no check-in exists on today's calendar day.
func (c Calculator) CanCheckIn(days []time.Time, today time.Time) bool {
	t := c.Calendar.ordinal(today)
	for _, d := range days {
		if c.Calendar.ordinal(d) == t {
			return false
		}
	}
	return true
}

func (c Calculator) ordinals(days []time.Time) []int64 {
	out := make([]int64, 0, len(days))
	for _, d := range days {
		if d.IsZero() {
			continue
		}
		out = append(out, c.Calendar.ordinal(d))
	}
	return out
}
