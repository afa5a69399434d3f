package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/mirror"
	"github.com/dukerupert/familyhub/internal/model"
)

// DefaultLead is how long before an event its reminder goes out.
const DefaultLead = 15 * time.Minute

// Scheduler checks once a minute for events about to start and reminds
// subscribed devices. Each event is reminded at most once per day; the
// notification log in the store enforces that across restarts.
type Scheduler struct {
	sender   Sender
	store    docstore.Store
	subs     *Subscriptions
	lead     time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SchedulerOption func(*Scheduler)

func WithLead(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.lead = d }
}

func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

func NewScheduler(sender Sender, store docstore.Store, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		sender:   sender,
		store:    store,
		subs:     NewSubscriptions(store),
		lead:     DefaultLead,
		interval: time.Minute,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := s.CheckReminders(ctx); err != nil {
					s.logger.Error("calendar reminders", "error", err)
				} else if n > 0 {
					s.logger.Info("sent calendar reminders", "events", n)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// CheckReminders reminds devices about timed events starting within the
// lead time and reports how many events it reminded.
func (s *Scheduler) CheckReminders(ctx context.Context) (int, error) {
	now := s.now()
	today := model.Today(now)

	docs, err := s.store.List(ctx, docstore.Events)
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}

	reminded := 0
	for _, doc := range docs {
		e, err := mirror.Decode[model.Event](doc)
		if err != nil || e.AllDay || e.StartTime == "" || !e.OccursOn(today) {
			continue
		}
		start, err := time.ParseInLocation(model.DateLayout+" 15:04", today+" "+e.StartTime, now.Location())
		if err != nil {
			continue
		}
		until := start.Sub(now)
		if until <= 0 || until > s.lead {
			continue
		}

		first, err := s.logOnce(ctx, model.NotifTypeCalendarReminder, e.ID, today, now)
		if err != nil {
			return reminded, err
		}
		if !first {
			continue
		}

		var recipients []string
		if e.Owner() == model.OwnerProfile {
			recipients = []string{*e.UserID}
		}
		minutes := int(until.Round(time.Minute) / time.Minute)
		deliver(ctx, s.sender, s.subs, s.logger, recipients, Payload{
			Title: "Calendar Reminder",
			Body:  fmt.Sprintf("%s starts in %d minutes", e.Title, minutes),
			URL:   "/calendar",
			Tag:   "calendar-" + e.ID,
		})
		reminded++
	}
	return reminded, nil
}

// logOnce records that a notification went out. It reports false if one
// was already recorded for the same reference and day.
func (s *Scheduler) logOnce(ctx context.Context, kind, refID, day string, at time.Time) (bool, error) {
	id := kind + "_" + refID + "_" + day
	err := s.store.Create(ctx, docstore.NotificationLog, id, map[string]any{
		"type":   kind,
		"refId":  refID,
		"date":   day,
		"sentAt": at.UTC(),
	})
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("record notification: %w", err)
	}
	return true, nil
}

// deliver sends p to the devices of profileIDs, or to every device when
// profileIDs is nil, and reports how many accepted it. Expired
// subscriptions are removed.
func deliver(ctx context.Context, sender Sender, subs *Subscriptions, logger *slog.Logger, profileIDs []string, p Payload) int {
	list, err := subs.List(ctx, profileIDs)
	if err != nil {
		logger.Error("list subscriptions", "error", err)
		return 0
	}
	sent := 0
	for _, sub := range list {
		err := sender.Send(ctx, sub, p)
		switch {
		case errors.Is(err, ErrExpired):
			logger.Info("removing expired subscription", "subscription_id", sub.ID, "profile_id", sub.ProfileID)
			if err := subs.remove(ctx, sub.ID); err != nil {
				logger.Error("remove subscription", "error", err)
			}
		case err != nil:
			logger.Warn("push send failed", "subscription_id", sub.ID, "error", err)
		default:
			sent++
		}
	}
	return sent
}
