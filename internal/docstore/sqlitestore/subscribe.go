package sqlitestore

import (
	"context"
	"sync"

	"github.com/dukerupert/familyhub/internal/docstore"
)

// subscription delivers snapshots of one collection from its own goroutine.
// notify has capacity one so a burst of writes collapses into one snapshot.
type subscription struct {
	store      *Store
	collection string
	fn         docstore.SnapshotFunc
	notify     chan struct{}
	stop       chan struct{}
	once       sync.Once
}

func (s *Store) Subscribe(ctx context.Context, collection string, fn docstore.SnapshotFunc) (func(), error) {
	sub := &subscription{
		store:      s,
		collection: collection,
		fn:         fn,
		notify:     make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}

	s.mu.Lock()
	set, ok := s.subs[collection]
	if !ok {
		set = make(map[*subscription]struct{})
		s.subs[collection] = set
	}
	set[sub] = struct{}{}
	s.mu.Unlock()

	sub.notify <- struct{}{}
	go sub.run(ctx)

	return sub.cancel, nil
}

func (s *Store) publish(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs[collection] {
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}
}

func (sub *subscription) cancel() {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		delete(sub.store.subs[sub.collection], sub)
		sub.store.mu.Unlock()
		close(sub.stop)
	})
}

func (sub *subscription) run(ctx context.Context) {
	defer sub.cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.stop:
			return
		case <-sub.notify:
		}

		docs, err := sub.store.List(ctx, sub.collection)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			sub.store.logger.Error("snapshot query failed", "collection", sub.collection, "error", err)
			sub.fn(nil, err)
			return
		}

		select {
		case <-sub.stop:
			return
		default:
		}
		sub.fn(docs, nil)
	}
}
