package state

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dukerupert/familyhub/internal/auth"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/recurrence"
)

var eventFields = []string{
	"title", "date", "startTime", "endTime", "allDay",
	"location", "description", "color", "userId", "isFamily", "recurrence",
}

// Events returns the events visible to ac in calendar order.
func (a *App) Events(ac auth.AuthContext) []model.Event {
	events := auth.VisibleEvents(ac, a.events.Items())
	slices.SortStableFunc(events, compareEvents)
	return events
}

// EventsForDate returns the visible events on date.
func (a *App) EventsForDate(ac auth.AuthContext, date string) []model.Event {
	return a.EventsForRange(ac, date, date)
}

// EventsForRange returns the visible events dated from start to end
// inclusive. A recurring event appears once per occurrence in the range,
// each copy carrying the occurrence's date.
func (a *App) EventsForRange(ac auth.AuthContext, start, end string) []model.Event {
	var out []model.Event
	for _, e := range a.Events(ac) {
		if e.Recurrence == "" {
			if e.Date >= start && e.Date <= end {
				out = append(out, e)
			}
			continue
		}
		out = append(out, occurrences(e, start, end)...)
	}
	slices.SortStableFunc(out, compareEvents)
	return out
}

// occurrences lists a recurring event once per date it falls on between
// start and end.
func occurrences(e model.Event, start, end string) []model.Event {
	rule, err := recurrence.Parse(e.Recurrence)
	if err != nil {
		return nil
	}
	first, err1 := time.Parse(time.DateOnly, e.Date)
	from, err2 := time.Parse(time.DateOnly, start)
	to, err3 := time.Parse(time.DateOnly, end)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	var out []model.Event
	for _, d := range rule.Dates(first, from, to) {
		occ := e
		occ.Date = d.Format(time.DateOnly)
		out = append(out, occ)
	}
	return out
}

// All-day events sort before timed ones on the same date.
func compareEvents(x, y model.Event) int {
	if c := strings.Compare(x.Date, y.Date); c != 0 {
		return c
	}
	return strings.Compare(x.StartTime, y.StartTime)
}

func (a *App) AddEvent(ctx context.Context, ac auth.AuthContext, e model.Event) (model.Event, error) {
	if err := requireManager(ac, "add events"); err != nil {
		return model.Event{}, err
	}
	if e.UserID != nil && *e.UserID != "" {
		if _, ok := a.Profile(*e.UserID); !ok {
			return model.Event{}, &model.ValidationError{Field: "userId", Message: "no such profile"}
		}
	}
	e.ID = ""
	e.Title = strings.TrimSpace(e.Title)
	e.CreatedBy = ac.ProfileID
	e.CreatedAt, e.UpdatedAt = a.now().UTC(), nil

	id, e, err := addDoc(ctx, a, docstore.Events, e)
	if err != nil {
		return model.Event{}, err
	}
	e.ID = id
	return e, nil
}

func (a *App) UpdateEvent(ctx context.Context, ac auth.AuthContext, id string, patch Patch) (model.Event, error) {
	if err := requireManager(ac, "edit events"); err != nil {
		return model.Event{}, err
	}
	if v, ok := patch["userId"]; ok && v != nil {
		if s, _ := v.(string); s != "" {
			if _, ok := a.Profile(s); !ok {
				return model.Event{}, &model.ValidationError{Field: "userId", Message: "no such profile"}
			}
		}
	}
	return updateDoc[model.Event](ctx, a, docstore.Events, id, patch, eventFields, nil)
}

func (a *App) DeleteEvent(ctx context.Context, ac auth.AuthContext, id string) error {
	if err := requireManager(ac, "remove events"); err != nil {
		return err
	}
	return deleteDoc[model.Event](ctx, a, docstore.Events, id, nil)
}
