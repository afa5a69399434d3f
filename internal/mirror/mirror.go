// Package mirror keeps an in-memory copy of a document collection current
// through a live subscription.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukerupert/familyhub/internal/docstore"
)

// Validator is implemented by entity pointers that check themselves at the
// read boundary.
type Validator[T any] interface {
	*T
	Validate() error
}

// Decode converts a document into a validated T.
func Decode[T any, PT Validator[T]](doc docstore.Document) (T, error) {
	var v T
	if err := docstore.Decode(doc, &v); err != nil {
		return v, err
	}
	if err := PT(&v).Validate(); err != nil {
		return v, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	return v, nil
}

// Status describes a mirror for health reporting.
type Status struct {
	Collection string `json:"collection"`
	Loaded     bool   `json:"loaded"`
	Count      int    `json:"count"`
	Rejected   int    `json:"rejected"`
	Error      string `json:"error,omitempty"`
}

// Mirror holds the latest decoded snapshot of one collection. Each snapshot
// replaces the previous contents entirely. Documents that fail to decode
// are dropped and counted.
type Mirror[T any] struct {
	collection string
	decode     func(docstore.Document) (T, error)
	logger     *slog.Logger

	mu       sync.RWMutex
	items    []T
	loaded   bool
	rejected int
	err      error
	cancel   func()
	ready    chan struct{}
	onChange []func([]T)
}

func New[T any](collection string, decode func(docstore.Document) (T, error), logger *slog.Logger) *Mirror[T] {
	return &Mirror[T]{
		collection: collection,
		decode:     decode,
		logger:     logger.With("collection", collection),
		ready:      make(chan struct{}),
	}
}

// OnChange registers fn to run after each snapshot is applied. Register
// before Start.
func (m *Mirror[T]) OnChange(fn func([]T)) {
	m.onChange = append(m.onChange, fn)
}

func (m *Mirror[T]) Collection() string { return m.collection }

// Start subscribes to the collection. A subscription failure is recorded
// and reported by Status rather than returned, leaving the mirror empty.
func (m *Mirror[T]) Start(ctx context.Context, store docstore.Store) {
	cancel, err := store.Subscribe(ctx, m.collection, m.apply)
	if err != nil {
		m.fail(err)
		return
	}
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
}

func (m *Mirror[T]) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Items returns a copy of the current contents.
func (m *Mirror[T]) Items() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.items)
}

// Find returns the first item matching pred.
func (m *Mirror[T]) Find(pred func(T) bool) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, it := range m.items {
		if pred(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Ready is closed once the first snapshot or error has arrived.
func (m *Mirror[T]) Ready() <-chan struct{} {
	return m.ready
}

func (m *Mirror[T]) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Status{
		Collection: m.collection,
		Loaded:     m.loaded,
		Count:      len(m.items),
		Rejected:   m.rejected,
	}
	if m.err != nil {
		st.Error = m.err.Error()
	}
	return st
}

func (m *Mirror[T]) apply(docs []docstore.Document, err error) {
	if err != nil {
		m.fail(err)
		return
	}

	items := make([]T, 0, len(docs))
	rejected := 0
	for _, doc := range docs {
		v, err := m.decode(doc)
		if err != nil {
			rejected++
			m.logger.Warn("rejected malformed document", "id", doc.ID, "error", err)
			continue
		}
		items = append(items, v)
	}

	m.mu.Lock()
	m.items = items
	m.rejected = rejected
	m.err = nil
	first := !m.loaded
	m.loaded = true
	m.mu.Unlock()

	if first {
		close(m.ready)
	}
	m.logger.Debug("snapshot applied", "count", len(items), "rejected", rejected)

	for _, fn := range m.onChange {
		fn(slices.Clone(items))
	}
}

func (m *Mirror[T]) fail(err error) {
	m.logger.Error("subscription failed", "error", err)
	m.mu.Lock()
	m.err = err
	first := !m.loaded
	m.loaded = true
	m.mu.Unlock()
	if first {
		close(m.ready)
	}
}
