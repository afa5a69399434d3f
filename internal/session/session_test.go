package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/familyhub/internal/logging"
	"github.com/dukerupert/familyhub/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type transitions struct {
	mu  sync.Mutex
	got []Transition
}

func (tr *transitions) record(t Transition, _ Snapshot) {
	tr.mu.Lock()
	tr.got = append(tr.got, t)
	tr.mu.Unlock()
}

func (tr *transitions) list() []Transition {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]Transition(nil), tr.got...)
}

func newTestManager(t *testing.T, minutes int) (*Manager, *fakeClock, *transitions) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	tr := &transitions{}
	m := NewManager(func() int { return minutes }, logging.Discard(),
		WithClock(clock.Now),
		OnChange(tr.record),
	)
	return m, clock, tr
}

func profileWithPIN(t *testing.T, pin string) model.Profile {
	t.Helper()
	hash, err := HashPIN(pin)
	if err != nil {
		t.Fatalf("HashPIN: %v", err)
	}
	return model.Profile{ID: "p1", Name: "Alex", Role: model.RoleParent, PINHash: hash}
}

func TestLoginWithoutPIN(t *testing.T) {
	m, _, tr := newTestManager(t, 5)
	if err := m.Login(model.Profile{ID: "k1"}, "", true); err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, ok := m.Current()
	if !ok || id != "k1" {
		t.Errorf("Current = %q, %v", id, ok)
	}
	if got := tr.list(); len(got) != 1 || got[0] != TransitionLogin {
		t.Errorf("transitions = %v", got)
	}
}

func TestLoginPINGate(t *testing.T) {
	m, _, _ := newTestManager(t, 5)
	p := profileWithPIN(t, "1234")

	if err := m.Login(p, "0000", true); !errors.Is(err, ErrIncorrectPIN) {
		t.Fatalf("err = %v, want ErrIncorrectPIN", err)
	}
	if _, ok := m.Current(); ok {
		t.Fatal("mismatched PIN must leave the session logged out")
	}

	if err := m.Login(p, "1234", true); err != nil {
		t.Fatalf("Login with correct PIN: %v", err)
	}
}

func TestLoginPINNotRequired(t *testing.T) {
	m, _, _ := newTestManager(t, 5)
	p := profileWithPIN(t, "1234")
	if err := m.Login(p, "", false); err != nil {
		t.Fatalf("Login with requirePin off: %v", err)
	}
}

func TestLogout(t *testing.T) {
	m, _, tr := newTestManager(t, 5)
	if m.Logout() {
		t.Error("Logout when logged out should report false")
	}
	m.Login(model.Profile{ID: "k1"}, "", false)
	if !m.Logout() {
		t.Error("Logout should report true")
	}
	if _, ok := m.Current(); ok {
		t.Error("expected logged out")
	}
	got := tr.list()
	if len(got) != 2 || got[1] != TransitionLogout {
		t.Errorf("transitions = %v", got)
	}
}

func TestAutoLockAfterThreshold(t *testing.T) {
	m, clock, tr := newTestManager(t, 5)
	m.Login(model.Profile{ID: "k1"}, "", false)

	clock.Advance(4*time.Minute + 59*time.Second)
	if m.CheckAutoLock() {
		t.Fatal("locked before threshold")
	}

	clock.Advance(time.Second)
	if !m.CheckAutoLock() {
		t.Fatal("expected lock at threshold")
	}
	if _, ok := m.Current(); ok {
		t.Error("expected logged out after auto-lock")
	}
	got := tr.list()
	if got[len(got)-1] != TransitionLocked {
		t.Errorf("last transition = %v, want locked", got[len(got)-1])
	}
}

func TestTouchDefersAutoLock(t *testing.T) {
	m, clock, _ := newTestManager(t, 5)
	m.Login(model.Profile{ID: "k1"}, "", false)

	clock.Advance(4 * time.Minute)
	m.Touch()
	clock.Advance(4 * time.Minute)
	if m.CheckAutoLock() {
		t.Fatal("activity should reset the idle timer")
	}
}

func TestAutoLockDisabled(t *testing.T) {
	m, clock, _ := newTestManager(t, 0)
	m.Login(model.Profile{ID: "k1"}, "", false)

	clock.Advance(1000 * time.Hour)
	if m.CheckAutoLock() {
		t.Fatal("autoLockMinutes=0 must never lock")
	}
	if _, ok := m.Current(); !ok {
		t.Error("expected still logged in")
	}
}

func TestPrivacy(t *testing.T) {
	m, _, tr := newTestManager(t, 5)
	m.SetPrivacy(true)
	if !m.Snapshot().Privacy {
		t.Error("expected privacy on")
	}
	m.SetPrivacy(false)
	if m.Snapshot().Privacy {
		t.Error("expected privacy off")
	}
	if got := tr.list(); len(got) != 2 || got[0] != TransitionPrivacy {
		t.Errorf("transitions = %v", got)
	}
}

func TestStartStopLoop(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	locked := make(chan struct{}, 1)
	m := NewManager(func() int { return 1 }, logging.Discard(),
		WithClock(clock.Now),
		WithCheckInterval(5*time.Millisecond),
		OnChange(func(tr Transition, _ Snapshot) {
			if tr == TransitionLocked {
				locked <- struct{}{}
			}
		}),
	)
	m.Login(model.Profile{ID: "k1"}, "", false)
	clock.Advance(2 * time.Minute)

	m.Start(context.Background())
	defer m.Stop()

	select {
	case <-locked:
	case <-time.After(2 * time.Second):
		t.Fatal("auto-lock loop did not lock the idle session")
	}
}

func TestHashPINValidates(t *testing.T) {
	var ve *model.ValidationError
	if _, err := HashPIN("12"); !errors.As(err, &ve) {
		t.Errorf("err = %v, want ValidationError", err)
	}
	p := profileWithPIN(t, "4321")
	if !CheckPIN(p, "4321") || CheckPIN(p, "1234") {
		t.Error("CheckPIN mismatch")
	}
	if !CheckPIN(model.Profile{}, "anything") {
		t.Error("profile without PIN should accept any input")
	}
}
