// Package dateutil provides calendar-day helpers shared by the period and
// session generators.
//
// A date is a time.Time at midnight UTC carrying the civil year, month and
// day. Keeping every date in UTC makes day arithmetic exact regardless of
// daylight saving changes in the school's timezone; Location only decides
// what "today" is.
package dateutil

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// DateLayout is the wire format for dates.
const DateLayout = "2006-01-02"

// DefaultTimezone is used when no timezone is configured.
const DefaultTimezone = "Europe/Paris"

var location atomic.Pointer[time.Location]

func init() {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		slog.Warn("Failed to load default timezone, using fixed UTC+1",
			"timezone", DefaultTimezone,
			"error", err)
		loc = time.FixedZone("CET", 1*60*60)
	}
	location.Store(loc)
}

// Location returns the school timezone.
func Location() *time.Location {
	return location.Load()
}

// SetLocation loads name and makes it the school timezone.
func SetLocation(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", name, err)
	}
	location.Store(loc)
	return nil
}

// Truncate returns the civil date of t (in t's own location) as a date.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current date in the school timezone.
func Today() time.Time {
	return DateOf(time.Now())
}

// DateOf returns the civil date of instant t as seen in the school timezone.
func DateOf(t time.Time) time.Time {
	return Truncate(t.In(Location()))
}

// AddDays moves a date by n calendar days.
func AddDays(date time.Time, n int) time.Time {
	d := Truncate(date)
	return time.Date(d.Year(), d.Month(), d.Day()+n, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from a to b.
// The result is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}

// WeekStart returns the Monday on or before date.
func WeekStart(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7
	return AddDays(date, -offset)
}

// IsDateInWeek reports whether date falls in [weekStart, weekStart+6].
func IsDateInWeek(date, weekStart time.Time) bool {
	d := Truncate(date)
	start := Truncate(weekStart)
	end := AddDays(start, 6)
	return !d.Before(start) && !d.After(end)
}

// SessionDate returns the date of dayOfWeek (1 = Monday ... 7 = Sunday) in the
// week beginning at weekStart.
func SessionDate(weekStart time.Time, dayOfWeek int) time.Time {
	return AddDays(weekStart, dayOfWeek-1)
}

// IsoWeekday returns 1 for Monday through 7 for Sunday.
func IsoWeekday(date time.Time) int {
	return (int(date.Weekday())+6)%7 + 1
}

// ExceptionKey identifies one occurrence of a template on a date.
func ExceptionKey(templateID string, date time.Time) string {
	return templateID + "_" + FormatDate(date)
}

// FormatDate renders date as YYYY-MM-DD.
func FormatDate(date time.Time) string {
	return Truncate(date).Format(DateLayout)
}

// ParseDate parses YYYY-MM-DD into a date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// MustParseDate is ParseDate for literals; it panics on malformed input.
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Between reports whether date lies in the inclusive range [start, end].
func Between(date, start, end time.Time) bool {
	d := Truncate(date)
	return !d.Before(Truncate(start)) && !d.After(Truncate(end))
}
