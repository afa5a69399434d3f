package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/familyhub/internal/bootstrap"
	"github.com/dukerupert/familyhub/internal/config"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/logging"
	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/seed"
)

func openTestStore(t *testing.T) docstore.Store {
	t.Helper()
	cfg := config.ForTesting()
	store, closeFn, err := bootstrap.OpenStore(context.Background(), cfg, cfg.HubID, logging.Discard())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(closeFn)
	return store
}

func addProfile(t *testing.T, store docstore.Store, p model.Profile) {
	t.Helper()
	data, err := docstore.Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Create(context.Background(), docstore.Users, p.ID, data); err != nil {
		t.Fatalf("create profile: %v", err)
	}
}

func TestListProfiles(t *testing.T) {
	store := openTestStore(t)
	addProfile(t, store, model.Profile{ID: "p2", Name: "Zoe", Role: model.RoleChild, Color: "#FF0000", Points: 12})
	addProfile(t, store, model.Profile{ID: "p1", Name: "Alex", Role: model.RoleAdmin, Color: "#00FF00", PINHash: "hash"})

	var buf bytes.Buffer
	if err := listProfiles(context.Background(), store, &buf); err != nil {
		t.Fatalf("listProfiles: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "p1") || !strings.HasSuffix(lines[1], "yes") {
		t.Errorf("first row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "12") || !strings.HasSuffix(lines[2], "no") {
		t.Errorf("second row = %q", lines[2])
	}
}

func TestResetPIN(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	addProfile(t, store, model.Profile{ID: "p1", Name: "Alex", Role: model.RoleAdmin, Color: "#00FF00", PINHash: "hash"})

	if err := resetPIN(ctx, store, "p1"); err != nil {
		t.Fatalf("resetPIN: %v", err)
	}
	doc, err := store.Get(ctx, docstore.Users, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.Data["pinHash"]; ok {
		t.Errorf("pinHash still set: %v", doc.Data)
	}

	if err := resetPIN(ctx, store, "missing"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for range 2 {
		if err := runSeed(ctx, store, logging.Discard()); err != nil {
			t.Fatalf("runSeed: %v", err)
		}
	}
	chores, err := store.List(ctx, docstore.Chores)
	if err != nil {
		t.Fatal(err)
	}
	if len(chores) != len(seed.DefaultChores()) {
		t.Errorf("chores = %d, want %d", len(chores), len(seed.DefaultChores()))
	}
	if _, err := store.Get(ctx, docstore.Config, docstore.SettingsID); err != nil {
		t.Errorf("settings missing: %v", err)
	}
}

func TestExportImport(t *testing.T) {
	src := openTestStore(t)
	ctx := context.Background()
	if err := runSeed(ctx, src, logging.Discard()); err != nil {
		t.Fatal(err)
	}
	addProfile(t, src, model.Profile{ID: "p1", Name: "Alex", Role: model.RoleAdmin, Color: "#00FF00"})

	var buf bytes.Buffer
	if err := exportArchive(ctx, src, &buf, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := openTestStore(t)
	n, err := importArchive(ctx, dst, &buf)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	want := 1 + 1 + len(seed.DefaultChores()) + len(seed.DefaultRewards())
	if n != want {
		t.Errorf("imported %d documents, want %d", n, want)
	}
	if _, err := dst.Get(ctx, docstore.Users, "p1"); err != nil {
		t.Errorf("profile not imported: %v", err)
	}

	if _, err := importArchive(ctx, dst, strings.NewReader("{not json")); err == nil {
		t.Error("expected error for malformed archive")
	}
}
