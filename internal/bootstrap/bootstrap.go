// Package bootstrap opens the hub's document store from configuration. It
// is shared by the server and the maintenance CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/familyhub/internal/config"
	"github.com/dukerupert/familyhub/internal/database"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/docstore/firestorestore"
	"github.com/dukerupert/familyhub/internal/docstore/sqlitestore"
	"github.com/dukerupert/familyhub/internal/hubid"
)

// HubID returns the configured override or the device-local identifier.
func HubID(cfg *config.Config) (string, error) {
	if cfg.HubID != "" {
		if !hubid.Valid(cfg.HubID) {
			return "", fmt.Errorf("FAMILYHUB_HUB_ID %q is not a valid hub id", cfg.HubID)
		}
		return cfg.HubID, nil
	}
	return hubid.Load(cfg.HubIDPath)
}

// OpenStore connects to the configured backend for hubID. The returned
// close func releases the store and any database underneath it.
func OpenStore(ctx context.Context, cfg *config.Config, hubID string, logger *slog.Logger) (docstore.Store, func(), error) {
	if err := cfg.Check(); err != nil {
		return nil, nil, err
	}

	switch cfg.Backend {
	case config.BackendFirestore:
		store, err := firestorestore.Open(ctx, firestorestore.Options{
			ProjectID:  cfg.Firebase.ProjectID,
			APIKey:     cfg.Firebase.APIKey,
			DatabaseID: cfg.Firebase.DatabaseID,
		}, hubID, logger.With("component", "firestore"))
		if err != nil {
			return nil, nil, err
		}
		logger.Info("document store opened", "backend", cfg.Backend, "project", cfg.Firebase.ProjectID, "hub_id", hubID)
		return store, func() { store.Close() }, nil

	default:
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		store := sqlitestore.New(db, hubID, logger.With("component", "sqlitestore"))
		logger.Info("document store opened", "backend", cfg.Backend, "path", cfg.DBPath, "hub_id", hubID)
		return store, func() {
			store.Close()
			db.Close()
		}, nil
	}
}
