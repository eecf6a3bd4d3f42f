// Package timeutil implements the interval math the validators and the
// report aggregator share: times-of-day in minutes since midnight,
// overnight shift normalization and overlap checks.
package timeutil

import (
	"fmt"
	"regexp"
	"time"
)

const minutesPerDay = 24 * 60

// timeOfDayRE accepts "HH:MM" with an optional seconds suffix.
var timeOfDayRE = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)(:[0-5]\d)?$`)

// ToMinutes parses an "HH:MM" time-of-day into minutes since midnight.
func ToMinutes(timeOfDay string) (int, error) {
	m := timeOfDayRE.FindStringSubmatch(timeOfDay)
	if m == nil {
		return 0, fmt.Errorf("invalid time of day %q", timeOfDay)
	}
	var h, min int
	fmt.Sscanf(m[1], "%d", &h)
	fmt.Sscanf(m[2], "%d", &min)
	return h*60 + min, nil
}

// ShiftDurationMinutes returns the duration of a shift window. An end at
// or before the start means the shift crosses midnight, so a full day is
// added before subtracting. A zero-length result is rejected.
func ShiftDurationMinutes(start, end string) (int, error) {
	startMin, err := ToMinutes(start)
	if err != nil {
		return 0, err
	}
	endMin, err := ToMinutes(end)
	if err != nil {
		return 0, err
	}
	if endMin <= startMin {
		endMin += minutesPerDay
	}
	d := endMin - startMin
	if d == 0 {
		return 0, fmt.Errorf("shift %s-%s has zero duration", start, end)
	}
	return d, nil
}

// Overlaps reports whether two half-open instant intervals intersect.
// Touching endpoints do not overlap.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && startB.Before(endA)
}

// DateRangesOverlap reports whether two closed day ranges intersect.
// A shared boundary day counts as overlap.
func DateRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// Day truncates a timestamp to its calendar day at midnight UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "YYYY-MM-DD" calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Combine anchors a minutes-since-midnight offset on a calendar day.
// Offsets past 24h roll into the following day.
func Combine(day time.Time, minutes int) time.Time {
	return Day(day).Add(time.Duration(minutes) * time.Minute)
}

// ShiftInterval maps a shift window on a given day onto a pair of
// half-open instants, rolling the end into the next day for shifts that
// cross midnight.
func ShiftInterval(day time.Time, start, end string) (time.Time, time.Time, error) {
	startMin, err := ToMinutes(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	dur, err := ShiftDurationMinutes(start, end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from := Combine(day, startMin)
	return from, from.Add(time.Duration(dur) * time.Minute), nil
}

// MonthDays returns every calendar day of the month in ascending order,
// first through last inclusive, with no gaps.
func MonthDays(year int, month time.Month) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)
	days := make([]time.Time, 0, 31)
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
