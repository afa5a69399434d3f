// Package firestorestore is the hosted document store backend. A hub lives
// at hubs/{hubID} and each collection is a subcollection of it.
package firestorestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dukerupert/familyhub/internal/docstore"
)

// Options are the connection parameters for a Firestore project.
type Options struct {
	ProjectID string
	APIKey    string
	// DatabaseID selects a named database; empty means the default one.
	DatabaseID string
}

// Store implements docstore.Store on Cloud Firestore.
type Store struct {
	client *firestore.Client
	hub    *firestore.DocumentRef
	hubID  string
	logger *slog.Logger
}

var _ docstore.Store = (*Store)(nil)

// Open connects to Firestore. FIRESTORE_EMULATOR_HOST is honored by the
// client library.
func Open(ctx context.Context, opts Options, hubID string, logger *slog.Logger) (*Store, error) {
	var clientOpts []option.ClientOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	var (
		client *firestore.Client
		err    error
	)
	if opts.DatabaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, opts.ProjectID, opts.DatabaseID, clientOpts...)
	} else {
		client, err = firestore.NewClient(ctx, opts.ProjectID, clientOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return New(client, hubID, logger), nil
}

// New wraps an existing client.
func New(client *firestore.Client, hubID string, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		hub:    client.Collection("hubs").Doc(hubID),
		hubID:  hubID,
		logger: logger,
	}
}

func (s *Store) HubID() string { return s.hubID }

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) coll(collection string) *firestore.CollectionRef {
	return s.hub.Collection(collection)
}

func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := s.coll(collection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("add %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (s *Store) Create(ctx context.Context, collection, id string, data map[string]any) error {
	if _, err := s.coll(collection).Doc(id).Create(ctx, data); err != nil {
		return wrap("create", collection, id, err)
	}
	return nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if _, err := s.coll(collection).Doc(id).Set(ctx, data); err != nil {
		return wrap("set", collection, id, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if _, err := s.coll(collection).Doc(id).Update(ctx, updates(fields)); err != nil {
		return wrap("update", collection, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.coll(collection).Doc(id).Delete(ctx); err != nil {
		return wrap("delete", collection, id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	snap, err := s.coll(collection).Doc(id).Get(ctx)
	if err != nil {
		return docstore.Document{}, wrap("get", collection, id, err)
	}
	return docstore.Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	snaps, err := s.coll(collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return documents(snaps), nil
}

// Subscribe follows the collection's snapshot stream until cancelled or the
// stream fails. A failure is delivered once to fn and ends the subscription.
func (s *Store) Subscribe(ctx context.Context, collection string, fn docstore.SnapshotFunc) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.coll(collection).Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					return
				}
				s.logger.Error("snapshot stream failed", "collection", collection, "error", err)
				fn(nil, fmt.Errorf("subscribe %s: %w", collection, err))
				return
			}
			snaps, err := snap.Documents.GetAll()
			if err != nil {
				fn(nil, fmt.Errorf("read snapshot %s: %w", collection, err))
				return
			}
			fn(documents(snaps), nil)
		}
	}()

	return cancel, nil
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(ctx, &tx{store: s, tx: ftx})
	})
}

type tx struct {
	store *Store
	tx    *firestore.Transaction
}

func (t *tx) Get(collection, id string) (docstore.Document, error) {
	snap, err := t.tx.Get(t.store.coll(collection).Doc(id))
	if err != nil {
		return docstore.Document{}, wrap("get", collection, id, err)
	}
	return docstore.Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (t *tx) Where(collection, field string, value any) ([]docstore.Document, error) {
	snaps, err := t.tx.Documents(t.store.coll(collection).Where(field, "==", value)).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s.%s: %w", collection, field, err)
	}
	return documents(snaps), nil
}

func (t *tx) Create(collection, id string, data map[string]any) error {
	return t.tx.Create(t.store.coll(collection).Doc(id), data)
}

func (t *tx) Set(collection, id string, data map[string]any) error {
	return t.tx.Set(t.store.coll(collection).Doc(id), data)
}

func (t *tx) Update(collection, id string, fields map[string]any) error {
	return t.tx.Update(t.store.coll(collection).Doc(id), updates(fields))
}

func (t *tx) Delete(collection, id string) error {
	return t.tx.Delete(t.store.coll(collection).Doc(id))
}

func updates(fields map[string]any) []firestore.Update {
	out := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		out = append(out, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	return out
}

func documents(snaps []*firestore.DocumentSnapshot) []docstore.Document {
	docs := make([]docstore.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, docstore.Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs
}

// wrap maps Firestore status codes onto the docstore sentinels.
func wrap(op, collection, id string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s %s/%s: %w", op, collection, id, docstore.ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s %s/%s: %w", op, collection, id, docstore.ErrAlreadyExists)
	default:
		return fmt.Errorf("%s %s/%s: %w", op, collection, id, err)
	}
}
