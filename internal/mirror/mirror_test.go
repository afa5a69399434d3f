package mirror

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/familyhub/internal/database"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/docstore/sqlitestore"
	"github.com/dukerupert/familyhub/internal/logging"
	"github.com/dukerupert/familyhub/internal/model"
)

func setupStore(t *testing.T) docstore.Store {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	s := sqlitestore.New(db, "hub_test", logging.Discard())
	t.Cleanup(func() {
		s.Close()
		db.Close()
	})
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestMirrorFollowsCollection(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m := New(docstore.Chores, Decode[model.Chore], logging.Discard())
	m.Start(ctx, store)
	defer m.Stop()

	select {
	case <-m.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("mirror never became ready")
	}
	if got := len(m.Items()); got != 0 {
		t.Fatalf("initial items = %d, want 0", got)
	}

	id, err := store.Add(ctx, docstore.Chores, map[string]any{"name": "Make Bed", "icon": "🛏️", "points": int64(5)})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	waitFor(t, func() bool { return len(m.Items()) == 1 })

	c, ok := m.Find(func(c model.Chore) bool { return c.ID == id })
	if !ok || c.Name != "Make Bed" || c.Points != 5 {
		t.Errorf("Find = %+v, %v", c, ok)
	}

	if err := store.Delete(ctx, docstore.Chores, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	waitFor(t, func() bool { return len(m.Items()) == 0 })
}

func TestMirrorRejectsMalformedDocuments(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	store.Add(ctx, docstore.Users, map[string]any{"name": "Sam", "role": "admin"})
	store.Add(ctx, docstore.Users, map[string]any{"name": "Ghost", "role": "wizard"})
	store.Add(ctx, docstore.Users, map[string]any{"role": "child"})

	m := New(docstore.Users, Decode[model.Profile], logging.Discard())
	m.Start(ctx, store)
	defer m.Stop()
	<-m.Ready()

	st := m.Status()
	if st.Count != 1 || st.Rejected != 2 {
		t.Errorf("Status = %+v, want 1 kept and 2 rejected", st)
	}
}

func TestMirrorOnChange(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	var mu sync.Mutex
	var counts []int
	m := New(docstore.Rewards, Decode[model.Reward], logging.Discard())
	m.OnChange(func(items []model.Reward) {
		mu.Lock()
		counts = append(counts, len(items))
		mu.Unlock()
	})
	m.Start(ctx, store)
	defer m.Stop()

	store.Add(ctx, docstore.Rewards, map[string]any{"name": "Ice Cream", "cost": int64(20)})
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(counts) > 0 && counts[len(counts)-1] == 1
	})
}

type failingStore struct {
	docstore.Store
}

func (failingStore) Subscribe(ctx context.Context, collection string, fn docstore.SnapshotFunc) (func(), error) {
	return nil, errors.New("permission denied")
}

func TestMirrorRecordsSubscribeFailure(t *testing.T) {
	m := New(docstore.Tasks, Decode[model.Task], logging.Discard())
	m.Start(context.Background(), failingStore{})

	select {
	case <-m.Ready():
	default:
		t.Fatal("a failed subscription should still mark the mirror ready")
	}
	st := m.Status()
	if st.Error == "" {
		t.Error("expected subscription error in status")
	}
	if len(m.Items()) != 0 {
		t.Error("expected empty mirror")
	}
}
