package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/model"
)

// ArchiveVersion is the format version written into every archive.
const ArchiveVersion = 1

var (
	ErrDisabled       = errors.New("backup not configured: S3 credentials missing")
	ErrNoPassphrase   = errors.New("backup passphrase is required")
	ErrInvalidArchive = errors.New("invalid backup archive")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"lastBackup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"inProgress"`
	Scheduled  bool       `json:"scheduled"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Archive is the decrypted contents of a backup: every document of every
// hub collection, keyed by collection then id.
type Archive struct {
	Version     int                                   `json:"version"`
	HubID       string                                `json:"hubId"`
	CreatedAt   time.Time                             `json:"createdAt"`
	Collections map[string]map[string]json.RawMessage `json:"collections"`
}

// Count returns the number of documents in the archive.
func (a *Archive) Count() int {
	n := 0
	for _, docs := range a.Collections {
		n += len(docs)
	}
	return n
}

// Validate checks the version and that every collection is a known hub
// collection holding JSON objects.
func (a *Archive) Validate() error {
	if a.Version != ArchiveVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidArchive, a.Version)
	}
	if a.Collections == nil {
		return fmt.Errorf("%w: no collections", ErrInvalidArchive)
	}
	for name, docs := range a.Collections {
		if !slices.Contains(docstore.HubCollections, name) {
			return fmt.Errorf("%w: unknown collection %q", ErrInvalidArchive, name)
		}
		for id, raw := range docs {
			if id == "" {
				return fmt.Errorf("%w: empty id in %s", ErrInvalidArchive, name)
			}
			if _, err := docstore.DecodeJSON(raw); err != nil {
				return fmt.Errorf("%w: %s/%s: %v", ErrInvalidArchive, name, id, err)
			}
		}
	}
	return nil
}

// Export reads every hub collection from store into an archive.
func Export(ctx context.Context, store docstore.Store, now time.Time) (*Archive, error) {
	a := &Archive{
		Version:     ArchiveVersion,
		HubID:       store.HubID(),
		CreatedAt:   now.UTC(),
		Collections: make(map[string]map[string]json.RawMessage, len(docstore.HubCollections)),
	}
	for _, name := range docstore.HubCollections {
		docs, err := store.List(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", name, err)
		}
		out := make(map[string]json.RawMessage, len(docs))
		for _, d := range docs {
			raw, err := json.Marshal(d.Data)
			if err != nil {
				return nil, fmt.Errorf("marshal %s/%s: %w", name, d.ID, err)
			}
			out[d.ID] = raw
		}
		a.Collections[name] = out
	}
	return a, nil
}

// Import rewrites store so every archived collection matches the archive.
// Documents absent from the archive are deleted. Collections the archive
// does not mention are left alone.
func Import(ctx context.Context, store docstore.Store, a *Archive) (int, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	written := 0
	for _, name := range docstore.HubCollections {
		docs, ok := a.Collections[name]
		if !ok {
			continue
		}
		existing, err := store.List(ctx, name)
		if err != nil {
			return written, fmt.Errorf("list %s: %w", name, err)
		}
		for _, d := range existing {
			if _, keep := docs[d.ID]; keep {
				continue
			}
			if err := store.Delete(ctx, name, d.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
				return written, fmt.Errorf("delete %s/%s: %w", name, d.ID, err)
			}
		}
		for id, raw := range docs {
			data, err := docstore.DecodeJSON(raw)
			if err != nil {
				return written, fmt.Errorf("decode %s/%s: %w", name, id, err)
			}
			if err := store.Set(ctx, name, id, data); err != nil {
				return written, fmt.Errorf("write %s/%s: %w", name, id, err)
			}
			written++
		}
	}
	return written, nil
}

// Schedule configures the daily unattended backup. It is inactive without a
// passphrase.
type Schedule struct {
	Passphrase    string
	Hour          int
	RetentionDays int
}

// Option configures a Manager.
type Option func(*Manager)

// WithSchedule enables the daily backup at s.Hour (UTC).
func WithSchedule(s Schedule) Option {
	return func(m *Manager) { m.schedule = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager manages encrypted backups to S3-compatible storage.
type Manager struct {
	mu       sync.RWMutex
	cfg      S3Config
	status   Status
	callback StatusCallback
	running  bool

	store    docstore.Store
	client   s3Client
	logger   *slog.Logger
	now      func() time.Time
	schedule Schedule
	lastRun  string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager for the hub behind store. It is
// disabled until cfg carries a bucket and credentials.
func NewManager(cfg S3Config, store docstore.Store, callback StatusCallback, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		store:    store,
		callback: callback,
		logger:   logger.With("component", "backup"),
		now:      time.Now,
		status:   Status{State: StateDisabled},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.schedule.RetentionDays <= 0 {
		m.schedule.RetentionDays = 30
	}
	m.status.Scheduled = m.schedule.Passphrase != ""

	if cfg.enabled() {
		m.client = newS3Client(cfg)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether S3 storage is configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// UpdateS3Config hot-reloads the S3 configuration.
func (m *Manager) UpdateS3Config(cfg S3Config) {
	m.mu.Lock()
	m.cfg = cfg
	if cfg.enabled() {
		m.client = newS3Client(cfg)
		m.status.State = StateIdle
	} else {
		m.client = nil
		m.status.State = StateDisabled
	}
	status := m.status
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(status)
	}
}

// Start begins the scheduled backup loop. It does nothing when backups are
// disabled or no schedule passphrase is set.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled || m.schedule.Passphrase == "" {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	m.logger.Info("scheduled backups enabled", "hour", m.schedule.Hour, "retention_days", m.schedule.RetentionDays)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop gracefully stops the backup manager.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	s.Scheduled = m.schedule.Passphrase != ""
	if s.LastBackup == nil {
		s.LastBackup = m.status.LastBackup
	}
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

func (m *Manager) checkSchedule(ctx context.Context) {
	now := m.now().UTC()
	day := now.Format(time.DateOnly)

	m.mu.Lock()
	due := now.Hour() == m.schedule.Hour && m.lastRun != day
	if due {
		m.lastRun = day
	}
	sched := m.schedule
	m.mu.Unlock()
	if !due {
		return
	}

	if _, err := m.RunNow(ctx, sched.Passphrase); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
	if n, err := m.Cleanup(ctx, sched.RetentionDays); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	} else if n > 0 {
		m.logger.Info("expired backups removed", "count", n)
	}
}

func (m *Manager) clientAndBucket() (s3Client, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, "", ErrDisabled
	}
	return m.client, m.cfg.Bucket, nil
}

// RunNow exports the hub, encrypts it with passphrase under a fresh salt and
// uploads it. Progress is recorded in the backups collection.
func (m *Manager) RunNow(ctx context.Context, passphrase string) (model.Backup, error) {
	if passphrase == "" {
		return model.Backup{}, ErrNoPassphrase
	}
	client, bucket, err := m.clientAndBucket()
	if err != nil {
		return model.Backup{}, err
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return model.Backup{}, errors.New("a backup is already running")
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	m.setStatus(Status{State: StateRunning, InProgress: true})

	started := m.now().UTC()
	filename := fmt.Sprintf("backup-%s.json.enc", started.Format("2006-01-02T150405Z"))
	record := model.Backup{
		Filename:  filename,
		S3Key:     m.store.HubID() + "/" + filename,
		Status:    model.BackupStatusPending,
		StartedAt: &started,
		CreatedAt: started,
	}
	data, err := docstore.Encode(record)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return record, err
	}
	record.ID, err = m.store.Add(ctx, docstore.Backups, data)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return record, fmt.Errorf("create backup record: %w", err)
	}

	fail := func(step string, err error) (model.Backup, error) {
		record.Status = model.BackupStatusFailed
		record.ErrorMessage = err.Error()
		m.updateRecord(ctx, record)
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return record, fmt.Errorf("%s: %w", step, err)
	}

	archive, err := Export(ctx, m.store, started)
	if err != nil {
		return fail("export hub", err)
	}
	plain, err := json.Marshal(archive)
	if err != nil {
		return fail("marshal archive", err)
	}
	salt, err := GenerateSalt()
	if err != nil {
		return fail("encrypt", err)
	}
	sealed, err := Encrypt(plain, passphrase, salt)
	if err != nil {
		return fail("encrypt", err)
	}

	record.Status = model.BackupStatusUploading
	m.updateRecord(ctx, record)

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(record.S3Key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return fail("upload to s3", err)
	}

	completed := m.now().UTC()
	record.Status = model.BackupStatusCompleted
	record.SizeBytes = int64(len(sealed))
	record.Documents = archive.Count()
	record.CompletedAt = &completed
	m.updateRecord(ctx, record)

	m.setStatus(Status{State: StateIdle, LastBackup: &completed})
	m.logger.Info("backup uploaded", "key", record.S3Key, "documents", record.Documents, "bytes", record.SizeBytes)
	return record, nil
}

func (m *Manager) updateRecord(ctx context.Context, record model.Backup) {
	data, err := docstore.Encode(record)
	if err == nil {
		err = m.store.Set(ctx, docstore.Backups, record.ID, data)
	}
	if err != nil {
		m.logger.Warn("update backup record failed", "id", record.ID, "error", err)
	}
}

// Backups lists backup records, newest first.
func (m *Manager) Backups(ctx context.Context) ([]model.Backup, error) {
	docs, err := m.store.List(ctx, docstore.Backups)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	out := make([]model.Backup, 0, len(docs))
	for _, d := range docs {
		var b model.Backup
		if err := docstore.Decode(d, &b); err != nil {
			m.logger.Warn("skipping unreadable backup record", "id", d.ID, "error", err)
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Restore downloads the archive stored under key, decrypts it and rewrites
// the hub's collections from it. It returns the number of documents written.
func (m *Manager) Restore(ctx context.Context, key, passphrase string) (int, error) {
	if passphrase == "" {
		return 0, ErrNoPassphrase
	}
	body, _, err := m.Download(ctx, key)
	if err != nil {
		return 0, err
	}
	sealed, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return 0, fmt.Errorf("read backup: %w", err)
	}

	plain, err := Decrypt(sealed, passphrase)
	if err != nil {
		return 0, fmt.Errorf("decrypt backup: %w", err)
	}
	var archive Archive
	if err := json.Unmarshal(plain, &archive); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	if archive.HubID != m.store.HubID() {
		m.logger.Warn("restoring archive from another hub", "archive_hub", archive.HubID, "hub", m.store.HubID())
	}

	n, err := Import(ctx, m.store, &archive)
	if err != nil {
		return n, fmt.Errorf("restore backup: %w", err)
	}
	m.logger.Info("backup restored", "key", key, "documents", n)
	return n, nil
}

// Download streams an encrypted backup from S3.
func (m *Manager) Download(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	client, bucket, err := m.clientAndBucket()
	if err != nil {
		return nil, 0, err
	}
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("download from s3: %w", err)
	}
	return result.Body, aws.ToInt64(result.ContentLength), nil
}

// Cleanup deletes backups older than the retention period and returns how
// many records were removed.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) (int, error) {
	client, bucket, err := m.clientAndBucket()
	if err != nil {
		return 0, nil
	}
	records, err := m.Backups(ctx)
	if err != nil {
		return 0, err
	}

	before := m.now().UTC().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, b := range records {
		if !b.CreatedAt.Before(before) {
			continue
		}
		if b.Status == model.BackupStatusCompleted {
			if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(b.S3Key),
			}); err != nil {
				m.logger.Warn("delete s3 object failed", "key", b.S3Key, "error", err)
				continue
			}
		}
		if err := m.store.Delete(ctx, docstore.Backups, b.ID); err != nil {
			return removed, fmt.Errorf("delete backup record: %w", err)
		}
		removed++
	}
	return removed, nil
}
