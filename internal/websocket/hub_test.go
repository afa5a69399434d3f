package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, collections ...string) *Client {
	return NewClient(hub, nil, collections...)
}

func drain(c *Client) []Message {
	var out []Message
	for len(c.send) > 0 {
		var m Message
		if err := json.Unmarshal(<-c.send, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}
	hub.Unregister(c2)
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	hub.Broadcast(NewMessage("lists", "snapshot", "", map[string]any{"count": 3}))

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "lists_snapshot" {
				t.Errorf("Type = %s, want lists_snapshot", got.Type)
			}
			if got.Extra["count"] != float64(3) {
				t.Errorf("Extra = %v", got.Extra)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("session", "login", "p1", nil))
	}
	// Dropped rather than blocking.
	hub.Broadcast(NewMessage("session", "logout", "", nil))

	count := 0
	for len(c.send) > 0 {
		<-c.send
		count++
	}
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("session", "locked", "p1", nil)
	if msg.Type != "session_locked" || msg.Entity != "session" || msg.Action != "locked" || msg.ID != "p1" {
		t.Errorf("got %+v", msg)
	}

	data, _ := json.Marshal(NewMessage("tasks", "snapshot", "", nil))
	var raw map[string]any
	json.Unmarshal(data, &raw)
	if _, ok := raw["id"]; ok {
		t.Error("empty id should be omitted")
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub)
			hub.Register(c)
			hub.Broadcast(NewMessage("test", "concurrent", "", nil))
			for len(c.send) > 0 {
				<-c.send
			}
			hub.Unregister(c)
		}()
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestBroadcastFiltersByCollection(t *testing.T) {
	hub := NewHub(slog.Default())
	all := mockClient(hub)
	calendar := mockClient(hub, ParseCollections(" events, ,tasks")...)
	hub.Register(all)
	hub.Register(calendar)

	hub.Broadcast(NewMessage("lists", "snapshot", "", nil))
	hub.Broadcast(NewMessage("events", "snapshot", "", nil))
	hub.Broadcast(NewMessage("session", "locked", "p1", nil))

	if got := drain(all); len(got) != 3 {
		t.Errorf("unfiltered client got %d messages, want 3", len(got))
	}
	got := drain(calendar)
	if len(got) != 2 || got[0].Entity != "events" || got[1].Entity != "session" {
		t.Errorf("calendar client got %+v", got)
	}
}

func TestWatchFrame(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, "events")

	c.handleFrame([]byte(`{"type":"watch","collections":["lists"]}`))
	if c.Wants("events") || !c.Wants("lists") {
		t.Error("watch frame should replace the watched collections")
	}

	c.handleFrame([]byte(`not json`))
	c.handleFrame([]byte(`{"type":"hello"}`))
	if !c.Wants("lists") || c.Wants("tasks") {
		t.Error("other frames should leave the watch set alone")
	}

	c.handleFrame([]byte(`{"type":"watch","collections":[]}`))
	if !c.Wants("tasks") || !c.Wants("photos") {
		t.Error("an empty watch list should follow everything")
	}
	if !c.Wants("backup") {
		t.Error("backup messages are always delivered")
	}
}
