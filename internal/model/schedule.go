package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseNotificationTime validates an "HH:MM" notification time. Minutes
// must fall on a 30-minute slot.
func ParseNotificationTime(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	if hour < 0 || hour > 23 || (minute != 0 && minute != 30) {
		return 0, 0, fmt.Errorf("time %q must use 30-minute slots between 00:00 and 23:30", s)
	}
	return hour, minute, nil
}

// NextDigestTime returns the next occurrence of the "HH:MM" notification
// time in the given timezone, strictly after now.
func NextDigestTime(now time.Time, hhmm, tzName string) (time.Time, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", tzName, err)
	}
	hour, minute, err := ParseNotificationTime(hhmm)
	if err != nil {
		return time.Time{}, err
	}

	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// AdvanceDigestDay moves a digest time forward by exactly one day while
// preserving its local time-of-day in the given timezone.
func AdvanceDigestDay(t time.Time, tzName string) time.Time {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1,
		local.Hour(), local.Minute(), local.Second(), 0, loc)
}
