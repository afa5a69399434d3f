// Package config reads the hub server configuration from FAMILYHUB_*
// environment variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "FAMILYHUB"

const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// ErrNotConfigured means required store connection parameters are missing.
var ErrNotConfigured = errors.New("document store is not configured")

// Firebase holds the six connection parameters of the hosted store.
type Firebase struct {
	APIKey            string `envconfig:"API_KEY"`
	AuthDomain        string `envconfig:"AUTH_DOMAIN"`
	ProjectID         string `envconfig:"PROJECT_ID"`
	StorageBucket     string `envconfig:"STORAGE_BUCKET"`
	MessagingSenderID string `envconfig:"MESSAGING_SENDER_ID"`
	AppID             string `envconfig:"APP_ID"`
	DatabaseID        string `envconfig:"DATABASE_ID"`
}

type S3 struct {
	Endpoint  string `envconfig:"ENDPOINT"`
	Bucket    string `envconfig:"BUCKET"`
	Region    string `envconfig:"REGION" default:"us-east-1"`
	AccessKey string `envconfig:"ACCESS_KEY"`
	SecretKey string `envconfig:"SECRET_KEY"`
}

// Enabled reports whether backups can be uploaded.
func (s S3) Enabled() bool {
	return s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

type VAPID struct {
	PublicKey  string `envconfig:"PUBLIC_KEY"`
	PrivateKey string `envconfig:"PRIVATE_KEY"`
	Subscriber string `envconfig:"SUBSCRIBER" default:"mailto:admin@familyhub.local"`
}

// Enabled reports whether web push can be sent.
func (v VAPID) Enabled() bool {
	return v.PublicKey != "" && v.PrivateKey != ""
}

type Config struct {
	Port      int    `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	Backend   string `envconfig:"BACKEND" default:"sqlite"`
	DBPath    string `envconfig:"DB_PATH" default:"familyhub.db"`
	HubIDPath string `envconfig:"HUB_ID_PATH" default:".familyhub/hub_id"`
	// HubID overrides the identifier stored at HubIDPath.
	HubID string `envconfig:"HUB_ID"`

	AutoLockCheckInterval time.Duration `envconfig:"AUTOLOCK_CHECK_INTERVAL" default:"10s"`
	ReminderLead          time.Duration `envconfig:"REMINDER_LEAD" default:"15m"`

	// BackupPassphrase enables the daily scheduled backup.
	BackupPassphrase    string `envconfig:"BACKUP_PASSPHRASE"`
	BackupHour          int    `envconfig:"BACKUP_HOUR" default:"3"`
	BackupRetentionDays int    `envconfig:"BACKUP_RETENTION_DAYS" default:"30"`

	Firebase Firebase `envconfig:"FIREBASE"`
	S3       S3       `envconfig:"S3"`
	VAPID    VAPID    `envconfig:"VAPID"`
}

// Load reads envFile if it exists, then the environment. Variables already
// set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveDefaults normalizes and validates the backend selector.
func (c *Config) ResolveDefaults() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "":
		c.Backend = BackendSQLite
	case BackendSQLite, BackendFirestore:
	default:
		return fmt.Errorf("unsupported %s_BACKEND: %s", envPrefix, c.Backend)
	}
	if c.BackupHour < 0 || c.BackupHour > 23 {
		return fmt.Errorf("%s_BACKUP_HOUR must be between 0 and 23", envPrefix)
	}
	if c.AutoLockCheckInterval <= 0 {
		return fmt.Errorf("%s_AUTOLOCK_CHECK_INTERVAL must be positive", envPrefix)
	}
	return nil
}

// Missing lists the environment variables that the selected backend needs
// but are unset.
func (c *Config) Missing() []string {
	if c.Backend != BackendFirestore {
		return nil
	}
	params := []struct {
		name  string
		value string
	}{
		{"API_KEY", c.Firebase.APIKey},
		{"AUTH_DOMAIN", c.Firebase.AuthDomain},
		{"PROJECT_ID", c.Firebase.ProjectID},
		{"STORAGE_BUCKET", c.Firebase.StorageBucket},
		{"MESSAGING_SENDER_ID", c.Firebase.MessagingSenderID},
		{"APP_ID", c.Firebase.AppID},
	}
	var missing []string
	for _, p := range params {
		if strings.TrimSpace(p.value) == "" {
			missing = append(missing, envPrefix+"_FIREBASE_"+p.name)
		}
	}
	return missing
}

// Check returns ErrNotConfigured, naming the missing variables, when the
// store cannot be reached with this configuration.
func (c *Config) Check() error {
	if missing := c.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ForTesting returns a configuration with defaults suitable for tests.
func ForTesting() *Config {
	return &Config{
		Port:                  0,
		LogLevel:              "debug",
		Backend:               BackendSQLite,
		DBPath:                ":memory:",
		HubID:                 "hub_test00000",
		AutoLockCheckInterval: 10 * time.Second,
		ReminderLead:          15 * time.Minute,
		BackupHour:            3,
		BackupRetentionDays:   30,
	}
}
