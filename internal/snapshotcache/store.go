package snapshotcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"transcribe/internal/config"
	"transcribe/internal/jobs"
	"transcribe/internal/logging"
	"transcribe/internal/services"
)

const fetchedAtKey = "fetched_at"

// ErrDisabled is returned by OpenFromConfig when the cache is turned off.
var ErrDisabled = errors.New("snapshot cache disabled")

// Store is the SQLite-backed snapshot cache.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the cache database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	store := &Store{db: db, path: path}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenFromConfig opens the configured cache, or returns ErrDisabled.
func OpenFromConfig(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg == nil || !cfg.Cache.Enabled || cfg.Cache.Path == "" {
		return nil, ErrDisabled
	}
	return Open(ctx, cfg.Cache.Path)
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces the cached snapshot with list.
func (s *Store) Save(ctx context.Context, list jobs.Collection, fetchedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM jobs"); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO jobs (id, position, status, title, created_at, payload_json) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, job := range list {
		if job == nil {
			continue
		}
		payload, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("encode job %s: %w", job.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, job.ID, i, string(job.Status), nullable(job.Title), nullable(job.CreatedAt), string(payload)); err != nil {
			return fmt.Errorf("insert job %s: %w", job.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fetchedAtKey, fetchedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("record fetched_at: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load returns the cached snapshot in server order and when it was fetched.
// An empty cache yields an empty collection and the zero time.
func (s *Store) Load(ctx context.Context) (jobs.Collection, time.Time, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT payload_json FROM jobs ORDER BY position")
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	out := jobs.Collection{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, time.Time{}, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("iterate snapshot: %w", err)
	}

	fetchedAt, err := s.fetchedAt(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	return out, fetchedAt, nil
}

// Get returns one cached job.
func (s *Store) Get(ctx context.Context, id string) (*jobs.Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT payload_json FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Markf(services.ErrNotFound, "video %s not in snapshot cache", id)
	}
	return job, err
}

// Clear drops the cached snapshot.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM jobs"); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshot_meta"); err != nil {
		return fmt.Errorf("clear snapshot meta: %w", err)
	}
	return nil
}

func (s *Store) fetchedAt(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM snapshot_meta WHERE key = ?", fetchedAtKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read fetched_at: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse fetched_at: %w", err)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*jobs.Job, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	var job jobs.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// Attach persists every snapshot the store publishes. The returned function
// detaches it. Save failures are logged, not propagated.
func (s *Store) Attach(store *jobs.Store, logger *slog.Logger) func() {
	logger = logging.NewComponentLogger(logger, "snapshotcache")
	return store.Subscribe(func(list jobs.Collection) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Save(ctx, list, time.Now()); err != nil {
			logging.WarnWithContext(logger, "snapshot cache write failed", "snapshot_save_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "offline listing may be stale"),
			)
		}
	})
}
