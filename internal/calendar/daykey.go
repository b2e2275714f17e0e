package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical DayKey format
const Layout = "2006-01-02"

// MaxRangeDays caps how many days a single date range may expand to
const MaxRangeDays = 3660

// DayKey identifies one calendar day as YYYY-MM-DD
type DayKey string

// Date returns the day as midnight UTC, which is only meant for calendar arithmetic
func (k DayKey) Date() (time.Time, error) {
	return time.Parse(Layout, string(k))
}

func (k DayKey) String() string {
	return string(k)
}

// zone-less layouts are read as local wall-clock values: their calendar fields are taken as written
var wallClockLayouts = []string{
	Layout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Calendar converts dates to DayKeys in a fixed location
type Calendar struct {
	loc *time.Location
}

// New creates a calendar for loc. A nil location means time.Local.
func New(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{loc: loc}
}

// Location returns the calendar's location
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// KeyOf returns the DayKey of t's calendar day in the calendar's location.
// The time of day never affects the result.
func (c *Calendar) KeyOf(t time.Time) DayKey {
	return keyFromFields(t.In(c.loc))
}

// Parse normalizes a date string to a DayKey. Malformed input yields ("", false).
func (c *Calendar) Parse(s string) (DayKey, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	for _, layout := range wallClockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return keyFromFields(t), true
		}
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return c.KeyOf(t), true
	}

	return "", false
}

// EachDayInclusive lists every DayKey from start to end, both included.
// Malformed bounds or end before start yield nil.
func (c *Calendar) EachDayInclusive(start, end string) []DayKey {
	startKey, ok := c.Parse(start)
	if !ok {
		return nil
	}
	endKey, ok := c.Parse(end)
	if !ok {
		return nil
	}

	from, _ := startKey.Date()
	to, _ := endKey.Date()
	if to.Before(from) {
		return nil
	}

	var days []DayKey
	for d := from; !d.After(to) && len(days) < MaxRangeDays; d = d.AddDate(0, 0, 1) {
		days = append(days, keyFromFields(d))
	}
	return days
}

// DayKeyFromTime returns the DayKey of t in the local time zone
func DayKeyFromTime(t time.Time) DayKey {
	return New(time.Local).KeyOf(t)
}

// EachDayKeyInclusive expands a date range using the local time zone
func EachDayKeyInclusive(start, end string) []DayKey {
	return New(time.Local).EachDayInclusive(start, end)
}

func keyFromFields(t time.Time) DayKey {
	return DayKey(fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day()))
}
