package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Backend != BackendSQLite {
		t.Errorf("Backend = %q, want sqlite", cfg.Backend)
	}
	if cfg.AutoLockCheckInterval != 10*time.Second {
		t.Errorf("AutoLockCheckInterval = %v, want 10s", cfg.AutoLockCheckInterval)
	}
	if err := cfg.Check(); err != nil {
		t.Errorf("sqlite backend should need no store parameters: %v", err)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("FAMILYHUB_PORT", "9000")
	t.Setenv("FAMILYHUB_BACKEND", "Firestore")
	t.Setenv("FAMILYHUB_FIREBASE_PROJECT_ID", "family-hub")
	t.Setenv("FAMILYHUB_S3_BUCKET", "backups")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.Backend != BackendFirestore {
		t.Errorf("Backend = %q, want firestore", cfg.Backend)
	}
	if cfg.Firebase.ProjectID != "family-hub" {
		t.Errorf("ProjectID = %q", cfg.Firebase.ProjectID)
	}
	if cfg.S3.Bucket != "backups" {
		t.Errorf("S3.Bucket = %q", cfg.S3.Bucket)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FAMILYHUB_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FAMILYHUB_LOG_LEVEL", "")
	os.Unsetenv("FAMILYHUB_LOG_LEVEL")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug from .env", cfg.LogLevel)
	}
}

func TestUnsupportedBackend(t *testing.T) {
	t.Setenv("FAMILYHUB_BACKEND", "mongo")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}

func TestMissingFirestoreParams(t *testing.T) {
	cfg := ForTesting()
	cfg.Backend = BackendFirestore
	cfg.Firebase.APIKey = "key"
	cfg.Firebase.ProjectID = "proj"

	missing := cfg.Missing()
	if len(missing) != 4 {
		t.Fatalf("Missing = %v, want 4 entries", missing)
	}
	if !slices.Contains(missing, "FAMILYHUB_FIREBASE_APP_ID") {
		t.Errorf("Missing = %v, want APP_ID listed", missing)
	}

	err := cfg.Check()
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Check = %v, want ErrNotConfigured", err)
	}
}

func TestFeatureToggles(t *testing.T) {
	if (S3{Bucket: "b"}).Enabled() {
		t.Error("S3 without credentials should be disabled")
	}
	if !(S3{Bucket: "b", AccessKey: "a", SecretKey: "s"}).Enabled() {
		t.Error("S3 with bucket and credentials should be enabled")
	}
	if (VAPID{PublicKey: "p"}).Enabled() {
		t.Error("VAPID without private key should be disabled")
	}
}
