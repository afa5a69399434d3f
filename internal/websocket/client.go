package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Session and backup messages reach every display: the lock screen and the
// admin banner react to them whatever a view has subscribed to.
var alwaysDelivered = map[string]bool{"session": true, "backup": true}

// Client is one connected display. It receives change messages for the
// collections it watches, or for all of them when it watches none.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte

	mu      sync.RWMutex
	watched map[string]bool
}

// NewClient creates a Client watching the given collections. No collections
// means every change is delivered.
func NewClient(hub *Hub, conn *ws.Conn, collections ...string) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	c.Watch(collections)
	return c
}

// ParseCollections splits a comma-separated ?collections= value.
func ParseCollections(raw string) []string {
	var out []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Watch replaces the set of collections the client follows.
func (c *Client) Watch(collections []string) {
	var set map[string]bool
	if len(collections) > 0 {
		set = make(map[string]bool, len(collections))
		for _, name := range collections {
			set[name] = true
		}
	}
	c.mu.Lock()
	c.watched = set
	c.mu.Unlock()
}

// Wants reports whether a message about entity should be sent.
func (c *Client) Wants(entity string) bool {
	if alwaysDelivered[entity] {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.watched == nil || c.watched[entity]
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// watchRequest is the one frame a display sends: a view switch changing
// which collections it follows.
type watchRequest struct {
	Type        string   `json:"type"`
	Collections []string `json:"collections"`
}

// readPump applies watch requests until the connection closes. Anything
// else is ignored.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	var req watchRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Type != "watch" {
		c.hub.logger.Debug("ignored client frame", "bytes", len(data))
		return
	}
	c.Watch(req.Collections)
	c.hub.logger.Debug("client watching", "collections", req.Collections)
}

// writePump forwards queued changes and pings so a display that went dark
// is dropped.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
