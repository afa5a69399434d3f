// Package session tracks which profile is using the hub display, when it
// was last touched, and whether the privacy screen is up.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/familyhub/internal/model"
)

// DefaultCheckInterval is how often the auto-lock loop compares the idle
// time with the configured threshold.
const DefaultCheckInterval = 10 * time.Second

var (
	ErrIncorrectPIN    = errors.New("incorrect PIN")
	ErrProfileNotFound = errors.New("profile not found")
)

// Transition names a session state change.
type Transition string

const (
	TransitionLogin   Transition = "login"
	TransitionLogout  Transition = "logout"
	TransitionLocked  Transition = "locked"
	TransitionPrivacy Transition = "privacy"
)

// Snapshot is a consistent view of the session.
type Snapshot struct {
	LoggedIn     bool      `json:"loggedIn"`
	ProfileID    string    `json:"profileId,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
	Privacy      bool      `json:"privacy"`
}

// Manager is the session state machine: LoggedOut or LoggedIn(profile).
type Manager struct {
	mu           sync.Mutex
	profileID    string
	lastActivity time.Time
	privacy      bool

	now         func() time.Time
	lockMinutes func() int
	onChange    func(Transition, Snapshot)
	interval    time.Duration
	logger      *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCheckInterval sets the auto-lock polling interval.
func WithCheckInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

// OnChange registers a callback run after every transition, outside the lock.
func OnChange(fn func(Transition, Snapshot)) Option {
	return func(m *Manager) { m.onChange = fn }
}

// NewManager creates a logged-out session. lockMinutes reports the current
// auto-lock threshold; zero disables auto-lock.
func NewManager(lockMinutes func() int, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		now:         time.Now,
		lockMinutes: lockMinutes,
		interval:    DefaultCheckInterval,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastActivity = m.now()
	return m
}

// Login switches the session to profile. When requirePIN is set and the
// profile has a PIN, pin must match it; on mismatch the session is left as
// it was and ErrIncorrectPIN is returned.
func (m *Manager) Login(profile model.Profile, pin string, requirePIN bool) error {
	if requirePIN && !CheckPIN(profile, pin) {
		m.logger.Warn("pin mismatch", "profile_id", profile.ID)
		return ErrIncorrectPIN
	}

	m.mu.Lock()
	m.profileID = profile.ID
	m.lastActivity = m.now()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("profile logged in", "profile_id", profile.ID)
	m.notify(TransitionLogin, snap)
	return nil
}

// Logout clears the session. It reports whether anyone was logged in.
func (m *Manager) Logout() bool {
	return m.clear(TransitionLogout)
}

// Touch records user activity.
func (m *Manager) Touch() {
	m.mu.Lock()
	m.lastActivity = m.now()
	m.mu.Unlock()
}

// SetPrivacy raises or lowers the privacy screen.
func (m *Manager) SetPrivacy(on bool) {
	m.mu.Lock()
	m.privacy = on
	m.lastActivity = m.now()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(TransitionPrivacy, snap)
}

// Current returns the logged-in profile id, if any.
func (m *Manager) Current() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profileID, m.profileID != ""
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// CheckAutoLock logs the session out if it has been idle for at least the
// configured number of minutes. It reports whether it did.
func (m *Manager) CheckAutoLock() bool {
	minutes := m.lockMinutes()
	if minutes <= 0 {
		return false
	}

	m.mu.Lock()
	if m.profileID == "" {
		m.mu.Unlock()
		return false
	}
	idle := m.now().Sub(m.lastActivity)
	m.mu.Unlock()

	if idle < time.Duration(minutes)*time.Minute {
		return false
	}
	locked := m.clear(TransitionLocked)
	if locked {
		m.logger.Info("session auto-locked", "idle", idle.Round(time.Second), "threshold_minutes", minutes)
	}
	return locked
}

// Start runs the auto-lock check loop until Stop is called or ctx ends.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.CheckAutoLock()
			case <-ctx.Done():
				return
			}
		}
	}()
	m.logger.Info("auto-lock started", "interval", m.interval)
}

// Stop stops the auto-lock loop and waits for it to finish.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

func (m *Manager) clear(t Transition) bool {
	m.mu.Lock()
	if m.profileID == "" {
		m.mu.Unlock()
		return false
	}
	m.profileID = ""
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(t, snap)
	return true
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		LoggedIn:     m.profileID != "",
		ProfileID:    m.profileID,
		LastActivity: m.lastActivity,
		Privacy:      m.privacy,
	}
}

func (m *Manager) notify(t Transition, snap Snapshot) {
	if m.onChange != nil {
		m.onChange(t, snap)
	}
}
