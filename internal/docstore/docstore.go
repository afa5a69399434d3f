// Package docstore is the hub-scoped document store the dashboard state is
// persisted to. Collections hold schemaless documents keyed by id; every
// collection can be watched through a live subscription that delivers the
// full snapshot on each change.
package docstore

import (
	"context"
	"errors"
)

// Collection names within a hub.
const (
	Users             = "users"
	Config            = "config"
	Chores            = "chores"
	Rewards           = "rewards"
	ChoreCompletions  = "choreCompletions"
	Redemptions       = "redemptions"
	Tasks             = "tasks"
	Events            = "events"
	Lists             = "lists"
	Photos            = "photos"
	PushSubscriptions = "pushSubscriptions"
	NotificationLog   = "notificationLog"
	Backups           = "backups"
)

// SettingsID is the id of the singleton settings document in Config.
const SettingsID = "settings"

// HubCollections are the collections that make up a hub's family data.
var HubCollections = []string{
	Users, Config, Chores, Rewards, ChoreCompletions, Redemptions,
	Tasks, Events, Lists, Photos,
}

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
)

// Document is a stored document and its id.
type Document struct {
	ID   string
	Data map[string]any
}

// SnapshotFunc receives the full contents of a collection after each change,
// or the error that ended the subscription.
type SnapshotFunc func(docs []Document, err error)

// Store is a document store scoped to a single hub.
type Store interface {
	HubID() string

	// Add writes data under a generated id and returns it.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	// Create writes data under id, failing with ErrAlreadyExists if taken.
	Create(ctx context.Context, collection, id string, data map[string]any) error
	// Set replaces the whole document.
	Set(ctx context.Context, collection, id string, data map[string]any) error
	// Update merges top-level fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string) ([]Document, error)

	// Subscribe calls fn with the current snapshot of the collection and
	// again after every committed change. The returned func cancels it.
	Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (func(), error)

	// RunTransaction runs fn atomically. Reads must precede writes.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Close() error
}

// Tx is the view of the store inside a transaction.
type Tx interface {
	Get(collection, id string) (Document, error)
	// Where returns the documents whose top-level field equals value.
	Where(collection, field string, value any) ([]Document, error)
	Create(collection, id string, data map[string]any) error
	Set(collection, id string, data map[string]any) error
	Update(collection, id string, fields map[string]any) error
	Delete(collection, id string) error
}
