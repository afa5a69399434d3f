// Package seed writes the starter settings, chores and rewards a new hub
// begins with.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/model"
)

// DefaultChores is the starter chore set.
func DefaultChores() []model.Chore {
	return []model.Chore{
		{ID: "default-make-bed", Name: "Make Bed", Icon: "🛏️", Points: 5},
		{ID: "default-brush-teeth", Name: "Brush Teeth", Icon: "🪥", Points: 3},
		{ID: "default-tidy-room", Name: "Tidy Room", Icon: "🧹", Points: 10},
		{ID: "default-set-table", Name: "Set Table", Icon: "🍽️", Points: 5},
		{ID: "default-feed-pet", Name: "Feed Pet", Icon: "🐕", Points: 5},
		{ID: "default-homework", Name: "Do Homework", Icon: "📚", Points: 15},
		{ID: "default-read", Name: "Read 20 mins", Icon: "📖", Points: 10},
		{ID: "default-help-cook", Name: "Help Cook", Icon: "👨‍🍳", Points: 20},
	}
}

// DefaultRewards is the starter reward set.
func DefaultRewards() []model.Reward {
	return []model.Reward{
		{ID: "default-screen-time", Name: "Extra Screen Time", Icon: "📱", Cost: 30},
		{ID: "default-choose-dinner", Name: "Choose Dinner", Icon: "🍕", Cost: 50},
		{ID: "default-stay-up-late", Name: "Stay Up Late", Icon: "🌙", Cost: 40},
		{ID: "default-movie-pick", Name: "Movie Night Pick", Icon: "🎬", Cost: 25},
		{ID: "default-ice-cream", Name: "Ice Cream", Icon: "🍦", Cost: 20},
		{ID: "default-new-game", Name: "New Game", Icon: "🎮", Cost: 100},
	}
}

// Seeder fills empty starter collections. Each collection is considered at
// most once per Seeder, on the first snapshot observed.
type Seeder struct {
	store  docstore.Store
	logger *slog.Logger

	mu       sync.Mutex
	observed map[string]bool
}

func New(store docstore.Store, logger *slog.Logger) *Seeder {
	return &Seeder{
		store:    store,
		logger:   logger,
		observed: make(map[string]bool),
	}
}

// Observe is called with the size of a collection's snapshot. On the first
// call for chores, rewards or config it seeds that collection if empty.
func (s *Seeder) Observe(ctx context.Context, collection string, count int) error {
	s.mu.Lock()
	if s.observed[collection] {
		s.mu.Unlock()
		return nil
	}
	s.observed[collection] = true
	s.mu.Unlock()

	if count > 0 {
		return nil
	}
	switch collection {
	case docstore.Chores:
		return s.SeedChores(ctx)
	case docstore.Rewards:
		return s.SeedRewards(ctx)
	case docstore.Config:
		return s.EnsureSettings(ctx)
	}
	return nil
}

// EnsureSettings creates the settings document with defaults if absent.
func (s *Seeder) EnsureSettings(ctx context.Context) error {
	data, err := docstore.Encode(model.DefaultSettings())
	if err != nil {
		return err
	}
	err = s.store.Create(ctx, docstore.Config, docstore.SettingsID, data)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	s.logger.Info("created default settings")
	return nil
}

// SeedChores writes each default chore individually. Ids are fixed, so two
// hubs racing to seed converge on one set.
func (s *Seeder) SeedChores(ctx context.Context) error {
	n := 0
	for _, c := range DefaultChores() {
		created, err := s.create(ctx, docstore.Chores, c.ID, c)
		if err != nil {
			return fmt.Errorf("seed chore %s: %w", c.Name, err)
		}
		if created {
			n++
		}
	}
	s.logger.Info("seeded default chores", "count", n)
	return nil
}

// SeedRewards writes each default reward individually.
func (s *Seeder) SeedRewards(ctx context.Context) error {
	n := 0
	for _, r := range DefaultRewards() {
		created, err := s.create(ctx, docstore.Rewards, r.ID, r)
		if err != nil {
			return fmt.Errorf("seed reward %s: %w", r.Name, err)
		}
		if created {
			n++
		}
	}
	s.logger.Info("seeded default rewards", "count", n)
	return nil
}

func (s *Seeder) create(ctx context.Context, collection, id string, v any) (bool, error) {
	data, err := docstore.Encode(v)
	if err != nil {
		return false, err
	}
	err = s.store.Create(ctx, collection, id, data)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
