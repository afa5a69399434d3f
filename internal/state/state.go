// Package state is the hub's application state: live mirrors of every
// collection, the session, and the mutations that write through to the
// document store. Views read from the mirrors; writes go to the store and
// come back through the subscriptions.
package state

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/mirror"
	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/seed"
	"github.com/dukerupert/familyhub/internal/session"
	"github.com/dukerupert/familyhub/internal/websocket"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInsufficientPoints = errors.New("not enough points")
	ErrLastAdmin          = errors.New("the last admin profile cannot be removed or demoted")
)

// Notifier is told about events worth a push notification.
type Notifier interface {
	RewardRedeemed(ctx context.Context, by model.Profile, r model.Redemption)
}

// App owns the mirrors, the seeder and the session for one hub.
type App struct {
	store    docstore.Store
	logger   *slog.Logger
	hub      *websocket.Hub
	notifier Notifier
	now      func() time.Time

	seeder  *seed.Seeder
	Session *session.Manager

	profiles    *mirror.Mirror[model.Profile]
	settings    *mirror.Mirror[model.Settings]
	chores      *mirror.Mirror[model.Chore]
	rewards     *mirror.Mirror[model.Reward]
	completions *mirror.Mirror[model.ChoreCompletion]
	redemptions *mirror.Mirror[model.Redemption]
	tasks       *mirror.Mirror[model.Task]
	events      *mirror.Mirror[model.Event]
	lists       *mirror.Mirror[model.List]
	photos      *mirror.Mirror[model.Photo]

	sessionOpts []session.Option
	statuses    []func() mirror.Status
	stops       []func()
}

type Option func(*App)

// WithHub broadcasts snapshot and session changes to dashboard clients.
func WithHub(hub *websocket.Hub) Option {
	return func(a *App) { a.hub = hub }
}

func WithNotifier(n Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// WithClock replaces time.Now for dates, timestamps and auto-lock.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithSessionOptions passes options through to the session manager.
func WithSessionOptions(opts ...session.Option) Option {
	return func(a *App) { a.sessionOpts = append(a.sessionOpts, opts...) }
}

// New builds the state for store. Call Start to open the subscriptions.
func New(store docstore.Store, logger *slog.Logger, opts ...Option) *App {
	a := &App{
		store:  store,
		logger: logger.With("component", "state", "hub_id", store.HubID()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.seeder = seed.New(store, a.logger)

	sessionOpts := append([]session.Option{
		session.WithClock(a.now),
		session.OnChange(a.sessionChanged),
	}, a.sessionOpts...)
	a.Session = session.NewManager(func() int { return a.Settings().AutoLockMinutes }, a.logger, sessionOpts...)

	a.profiles = mirror.New(docstore.Users, mirror.Decode[model.Profile], a.logger)
	a.settings = mirror.New(docstore.Config, decodeSettings, a.logger)
	a.chores = mirror.New(docstore.Chores, mirror.Decode[model.Chore], a.logger)
	a.rewards = mirror.New(docstore.Rewards, mirror.Decode[model.Reward], a.logger)
	a.completions = mirror.New(docstore.ChoreCompletions, mirror.Decode[model.ChoreCompletion], a.logger)
	a.redemptions = mirror.New(docstore.Redemptions, mirror.Decode[model.Redemption], a.logger)
	a.tasks = mirror.New(docstore.Tasks, mirror.Decode[model.Task], a.logger)
	a.events = mirror.New(docstore.Events, mirror.Decode[model.Event], a.logger)
	a.lists = mirror.New(docstore.Lists, mirror.Decode[model.List], a.logger)
	a.photos = mirror.New(docstore.Photos, mirror.Decode[model.Photo], a.logger)
	return a
}

func decodeSettings(doc docstore.Document) (model.Settings, error) {
	s := model.DefaultSettings()
	if doc.ID != docstore.SettingsID {
		return s, errors.New("unexpected config document " + doc.ID)
	}
	if err := docstore.Decode(doc, &s); err != nil {
		return s, err
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Start subscribes every mirror, seeds empty starter collections on their
// first snapshot, and starts the auto-lock loop.
func (a *App) Start(ctx context.Context) {
	seedOnFirst := func(collection string) func(int) {
		return func(n int) {
			if err := a.seeder.Observe(ctx, collection, n); err != nil {
				a.logger.Error("seed failed", "collection", collection, "error", err)
			}
		}
	}

	a.profiles.OnChange(a.profilesChanged)
	watch(a, ctx, a.profiles, nil)
	watch(a, ctx, a.settings, seedOnFirst(docstore.Config))
	watch(a, ctx, a.chores, seedOnFirst(docstore.Chores))
	watch(a, ctx, a.rewards, seedOnFirst(docstore.Rewards))
	watch(a, ctx, a.completions, nil)
	watch(a, ctx, a.redemptions, nil)
	watch(a, ctx, a.tasks, nil)
	watch(a, ctx, a.events, nil)
	watch(a, ctx, a.lists, nil)
	watch(a, ctx, a.photos, nil)

	a.Session.Start(ctx)
	a.logger.Info("state started", "collections", len(a.statuses))
}

// watch starts m, broadcasting each snapshot and reporting its size to
// onSize.
func watch[T any](a *App, ctx context.Context, m *mirror.Mirror[T], onSize func(int)) {
	m.OnChange(func(items []T) {
		if onSize != nil {
			onSize(len(items))
		}
		a.broadcast(m.Collection(), "snapshot", "", map[string]any{"count": len(items)})
	})
	m.Start(ctx, a.store)
	a.statuses = append(a.statuses, m.Status)
	a.stops = append(a.stops, m.Stop)
}

// Stop cancels the subscriptions and the auto-lock loop.
func (a *App) Stop() {
	a.Session.Stop()
	for _, stop := range a.stops {
		stop()
	}
}

// WaitReady blocks until every mirror has received its first snapshot.
func (a *App) WaitReady(ctx context.Context) error {
	for _, ch := range []<-chan struct{}{
		a.profiles.Ready(), a.settings.Ready(), a.chores.Ready(), a.rewards.Ready(),
		a.completions.Ready(), a.redemptions.Ready(), a.tasks.Ready(), a.events.Ready(),
		a.lists.Ready(), a.photos.Ready(),
	} {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Status reports per-collection mirror health.
type Status struct {
	HubID       string          `json:"hubId"`
	Ready       bool            `json:"ready"`
	Collections []mirror.Status `json:"collections"`
}

func (a *App) Status() Status {
	st := Status{HubID: a.store.HubID(), Ready: true}
	for _, fn := range a.statuses {
		ms := fn()
		if !ms.Loaded || ms.Error != "" {
			st.Ready = false
		}
		st.Collections = append(st.Collections, ms)
	}
	if len(a.statuses) == 0 {
		st.Ready = false
	}
	return st
}

func (a *App) today() string {
	return model.Today(a.now())
}

func (a *App) broadcast(entity, action, id string, extra map[string]any) {
	if a.hub != nil {
		a.hub.Broadcast(websocket.NewMessage(entity, action, id, extra))
	}
}

func (a *App) sessionChanged(t session.Transition, snap session.Snapshot) {
	a.broadcast("session", string(t), snap.ProfileID, map[string]any{"privacy": snap.Privacy})
}

// profilesChanged logs out a session whose profile has been deleted.
func (a *App) profilesChanged(profiles []model.Profile) {
	id, ok := a.Session.Current()
	if !ok {
		return
	}
	for _, p := range profiles {
		if p.ID == id {
			return
		}
	}
	a.logger.Info("logged-in profile removed, logging out", "profile_id", id)
	a.Session.Logout()
}
