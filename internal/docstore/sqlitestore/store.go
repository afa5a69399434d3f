// Package sqlitestore is the local document store backend, keeping every
// hub's collections in a single SQLite table.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/familyhub/internal/docstore"
)

// Store implements docstore.Store on a SQLite database.
type Store struct {
	db     *sql.DB
	hubID  string
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

var _ docstore.Store = (*Store)(nil)

// New returns a Store scoped to hubID. The database must already be migrated.
func New(db *sql.DB, hubID string, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		hubID:  hubID,
		logger: logger,
		subs:   make(map[string]map[*subscription]struct{}),
	}
}

func (s *Store) HubID() string { return s.hubID }

// Close stops all subscriptions. The database handle belongs to the caller.
func (s *Store) Close() error {
	s.mu.Lock()
	var all []*subscription
	for _, set := range s.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	s.mu.Unlock()
	for _, sub := range all {
		sub.cancel()
	}
	return nil
}

func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Create(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Create(ctx context.Context, collection, id string, data map[string]any) error {
	if err := create(ctx, s.db, s.hubID, collection, id, data); err != nil {
		return err
	}
	s.publish(collection)
	return nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := set(ctx, s.db, s.hubID, collection, id, data); err != nil {
		return err
	}
	s.publish(collection)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Update(collection, id, fields)
	})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := remove(ctx, s.db, s.hubID, collection, id); err != nil {
		return err
	}
	s.publish(collection)
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	return get(ctx, s.db, s.hubID, collection, id)
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE hub_id = ? AND collection = ? ORDER BY created_at, id`,
		s.hubID, collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		data, err := docstore.DecodeJSON([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", collection, id, err)
		}
		docs = append(docs, docstore.Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

// RunTransaction runs fn inside a SQLite transaction. Subscribers of every
// collection written by fn are notified after commit.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	t := &tx{ctx: ctx, tx: sqlTx, hubID: s.hubID, touched: make(map[string]struct{})}

	if err := fn(ctx, t); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	for collection := range t.touched {
		s.publish(collection)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func marshal(collection, id string, data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	return string(raw), nil
}

func create(ctx context.Context, q querier, hubID, collection, id string, data map[string]any) error {
	raw, err := marshal(collection, id, data)
	if err != nil {
		return err
	}
	ts := now()
	_, err = q.ExecContext(ctx,
		`INSERT INTO documents (hub_id, collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		hubID, collection, id, raw, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create %s/%s: %w", collection, id, docstore.ErrAlreadyExists)
		}
		return fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	return nil
}

func set(ctx context.Context, q querier, hubID, collection, id string, data map[string]any) error {
	raw, err := marshal(collection, id, data)
	if err != nil {
		return err
	}
	ts := now()
	_, err = q.ExecContext(ctx,
		`INSERT INTO documents (hub_id, collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (hub_id, collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		hubID, collection, id, raw, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func remove(ctx context.Context, q querier, hubID, collection, id string) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM documents WHERE hub_id = ? AND collection = ? AND id = ?`,
		hubID, collection, id,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func get(ctx context.Context, q querier, hubID, collection, id string) (docstore.Document, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE hub_id = ? AND collection = ? AND id = ?`,
		hubID, collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	data, err := docstore.DecodeJSON([]byte(raw))
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return docstore.Document{ID: id, Data: data}, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type tx struct {
	ctx     context.Context
	tx      *sql.Tx
	hubID   string
	touched map[string]struct{}
}

func (t *tx) Get(collection, id string) (docstore.Document, error) {
	return get(t.ctx, t.tx, t.hubID, collection, id)
}

func (t *tx) Where(collection, field string, value any) ([]docstore.Document, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT id, data FROM documents
		 WHERE hub_id = ? AND collection = ? AND json_extract(data, ?) = ?
		 ORDER BY created_at, id`,
		t.hubID, collection, "$."+field, value,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s.%s: %w", collection, field, err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		data, err := docstore.DecodeJSON([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("query %s/%s: %w", collection, id, err)
		}
		docs = append(docs, docstore.Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s.%s: %w", collection, field, err)
	}
	return docs, nil
}

func (t *tx) Create(collection, id string, data map[string]any) error {
	if err := create(t.ctx, t.tx, t.hubID, collection, id, data); err != nil {
		return err
	}
	t.touched[collection] = struct{}{}
	return nil
}

func (t *tx) Set(collection, id string, data map[string]any) error {
	if err := set(t.ctx, t.tx, t.hubID, collection, id, data); err != nil {
		return err
	}
	t.touched[collection] = struct{}{}
	return nil
}

func (t *tx) Update(collection, id string, fields map[string]any) error {
	doc, err := get(t.ctx, t.tx, t.hubID, collection, id)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	maps.Copy(doc.Data, fields)
	raw, err := marshal(collection, id, doc.Data)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(t.ctx,
		`UPDATE documents SET data = ?, updated_at = ? WHERE hub_id = ? AND collection = ? AND id = ?`,
		raw, now(), t.hubID, collection, id,
	)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	t.touched[collection] = struct{}{}
	return nil
}

func (t *tx) Delete(collection, id string) error {
	if err := remove(t.ctx, t.tx, t.hubID, collection, id); err != nil {
		return err
	}
	t.touched[collection] = struct{}{}
	return nil
}
