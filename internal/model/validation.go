package model

import (
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the calendar-date form used for due dates, event dates and
// completion days.
const DateLayout = "2006-01-02"

var (
	pinRegexp        = regexp.MustCompile(`^\d{4}$`)
	timeFormatRegexp = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	hexColorRegexp   = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// ValidationError reports a malformed or missing field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ValidPIN reports whether pin is exactly four digits.
func ValidPIN(pin string) bool {
	return pinRegexp.MatchString(pin)
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidTime reports whether s is an HH:MM wall-clock time.
func ValidTime(s string) bool {
	return timeFormatRegexp.MatchString(s)
}

// ValidColor reports whether s is empty or a #RRGGBB hex color.
func ValidColor(s string) bool {
	return s == "" || hexColorRegexp.MatchString(s)
}

// Today returns the calendar date of t in its own location.
func Today(t time.Time) string {
	return t.Format(DateLayout)
}
