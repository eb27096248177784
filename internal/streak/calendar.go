package streak

import (
	"fmt"
	"time"
)

// DayLayout is the canonical textual form of a calendar day.
const DayLayout = "2006-01-02"

// Calendar maps instants onto calendar days in one reference time zone.
// The zero value uses UTC.
type Calendar struct {
	Location *time.Location
}

// NewCalendar returns a Calendar for loc (UTC when nil).
func NewCalendar(loc *time.Location) Calendar {
	return Calendar{Location: loc}
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Day truncates t to the start of its calendar day in the reference zone.
func (c Calendar) Day(t time.Time) time.Time {
	y, m, d := t.In(c.loc()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc())
}

// Key renders the calendar day of t as YYYY-MM-DD.
func (c Calendar) Key(t time.Time) string {
	return t.In(c.loc()).Format(DayLayout)
}

// ParseKey is the inverse of Key.
func (c Calendar) ParseKey(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, c.loc())
	if err != nil {
		return time.Time{}, fmt.Errorf("streak: invalid day key %q: %w", s, err)
	}
	return t, nil
}

// AddDays moves a day forward (n > 0) or backward (n < 0) by whole
// calendar days, independent of DST transitions.
func (c Calendar) AddDays(day time.Time, n int) time.Time {
	y, m, d := day.In(c.loc()).Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, c.loc())
}

// DaysBetween counts calendar days from a to b (negative when b is earlier).
func (c Calendar) DaysBetween(a, b time.Time) int {
	return int(c.ordinal(b) - c.ordinal(a))
}

// ordinal numbers calendar days so that consecutive days differ by one.
func (c Calendar) ordinal(t time.Time) int64 {
	y, m, d := t.In(c.loc()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
