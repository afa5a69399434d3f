package model

import (
	"strings"
	"time"

	"github.com/dukerupert/familyhub/internal/recurrence"
)

// Owner describes whose calendar an event belongs to.
type Owner int

const (
	OwnerNone Owner = iota
	OwnerFamily
	OwnerProfile
)

type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Date        string     `json:"date"`
	StartTime   string     `json:"startTime,omitempty"`
	EndTime     string     `json:"endTime,omitempty"`
	AllDay      bool       `json:"allDay"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	Color       string     `json:"color"`
	UserID      *string    `json:"userId,omitempty"`
	IsFamily    bool       `json:"isFamily"`
	// Recurrence is an RRULE such as "FREQ=WEEKLY;BYDAY=TU". Date is the
	// first occurrence.
	Recurrence  string     `json:"recurrence,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Owner reports the event's ownership. An event is never both a family event
// and a profile's own; Validate rejects that combination.
func (e Event) Owner() Owner {
	switch {
	case e.IsFamily:
		return OwnerFamily
	case e.UserID != nil && *e.UserID != "":
		return OwnerProfile
	default:
		return OwnerNone
	}
}

// OwnedBy reports whether profileID owns the event.
func (e Event) OwnedBy(profileID string) bool {
	return e.Owner() == OwnerProfile && *e.UserID == profileID
}

// OccursOn reports whether the event falls on date, counting every
// occurrence of a recurring event.
func (e Event) OccursOn(date string) bool {
	if e.Recurrence == "" {
		return e.Date == date
	}
	rule, err := recurrence.Parse(e.Recurrence)
	if err != nil {
		return false
	}
	first, err1 := time.Parse(DateLayout, e.Date)
	day, err2 := time.Parse(DateLayout, date)
	if err1 != nil || err2 != nil {
		return false
	}
	return len(rule.Dates(first, day, day)) == 1
}

func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return invalid("title", "is required")
	}
	if !ValidDate(e.Date) {
		return invalid("date", "must be YYYY-MM-DD")
	}
	if e.AllDay {
		e.StartTime, e.EndTime = "", ""
	}
	if e.StartTime != "" && !ValidTime(e.StartTime) {
		return invalid("startTime", "must be HH:MM")
	}
	if e.EndTime != "" && !ValidTime(e.EndTime) {
		return invalid("endTime", "must be HH:MM")
	}
	if e.StartTime != "" && e.EndTime != "" && e.EndTime < e.StartTime {
		return invalid("endTime", "must not be before startTime")
	}
	if e.IsFamily && e.UserID != nil && *e.UserID != "" {
		return invalid("userId", "must be empty for a family event")
	}
	if !ValidColor(e.Color) {
		return invalid("color", "must be a hex color like #4A90D9")
	}
	if e.Recurrence != "" {
		rule, err := recurrence.Parse(e.Recurrence)
		if err != nil {
			return invalid("recurrence", err.Error())
		}
		e.Recurrence = rule.String()
	}
	return nil
}
