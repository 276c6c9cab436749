package model

import (
	"regexp"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for keys and records.
const DateLayout = "2006-01-02"

// KeySeparator joins the track and date of a record key.
const KeySeparator = "__"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsDate reports whether s is a real YYYY-MM-DD calendar date.
func IsDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// FormatDate formats t as a calendar date in t's location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a calendar date as local midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	if !datePattern.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StartOfDay returns local midnight of t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, t.Location())
}

// ShiftDate moves a YYYY-MM-DD string by n days. Invalid input is returned unchanged.
func ShiftDate(date string, n int) string {
	t, ok := ParseDate(date, time.UTC)
	if !ok {
		return date
	}
	return FormatDate(AddDays(t, n))
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// RecordKey builds the composite storage key of a daily record.
func RecordKey(track TrackID, date string) string {
	return string(track) + KeySeparator + date
}

// ParseRecordKey splits a record key into its track and date parts.
// Legacy keys carry only a date and yield an empty track.
func ParseRecordKey(key string) (TrackID, string) {
	if idx := strings.Index(key, KeySeparator); idx >= 0 {
		return TrackID(key[:idx]), key[idx+len(KeySeparator):]
	}
	return "", key
}
