package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"ytdigest/internal/pipeline"
)

// Store records pipeline runs and their per-video outcomes in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Entry is one recorded outcome.
type Entry struct {
	RunID       string
	Ref         string
	Title       string
	Status      string
	Stage       string
	Reason      string
	CaptionPath string
	SummaryPath string
	Attempt     int
	Elapsed     time.Duration
	CreatedAt   time.Time
}

// Open initializes or connects to the history database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// BeginRun opens a new batch run and returns a recorder bound to it.
func (s *Store) BeginRun(ctx context.Context) (*RunRecorder, error) {
	id := uuid.NewString()
	if err := s.exec(ctx, `INSERT INTO runs (id, started_at) VALUES (?, ?)`, id, s.timestamp()); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &RunRecorder{store: s, id: id}, nil
}

// RunRecorder writes outcomes for one run. It satisfies pipeline.Recorder.
type RunRecorder struct {
	store *Store
	id    string
}

// ID returns the run identifier.
func (r *RunRecorder) ID() string {
	return r.id
}

// RecordOutcome stores one terminal outcome.
func (r *RunRecorder) RecordOutcome(ctx context.Context, o pipeline.Outcome) error {
	var stage, reason, captionPath, summaryPath string
	var attempt int
	if o.Failure != nil {
		stage = o.Failure.Stage.Stage()
		reason = o.Failure.Reason
	}
	if o.Success != nil {
		captionPath = o.Success.CaptionPath
		summaryPath = o.Success.SummaryPath
		attempt = o.Success.Attempt
	}
	err := r.store.exec(ctx,
		`INSERT INTO outcomes (
            run_id, ref, title, status, stage, reason,
            caption_path, summary_path, attempt, elapsed_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.id,
		o.Ref,
		nullableString(o.Title),
		o.Status(),
		nullableString(stage),
		nullableString(reason),
		nullableString(captionPath),
		nullableString(summaryPath),
		attempt,
		o.Elapsed.Milliseconds(),
		r.store.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// Finish stamps the run with its final counts.
func (r *RunRecorder) Finish(ctx context.Context, stats pipeline.Stats) error {
	err := r.store.exec(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, succeeded = ?, failed = ?, skipped = ? WHERE id = ?`,
		r.store.timestamp(), stats.Total, stats.Succeeded, stats.Failed, stats.Skipped, r.id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Recent returns up to limit outcomes, newest first. A non-empty ref
// restricts the result to that reference.
func (s *Store) Recent(ctx context.Context, ref string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT run_id, ref, title, status, stage, reason, caption_path, summary_path, attempt, elapsed_ms, created_at
        FROM outcomes`
	args := []any{}
	if ref = strings.TrimSpace(ref); ref != "" {
		query += ` WHERE ref = ?`
		args = append(args, ref)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var title, stage, reason, captionPath, summaryPath sql.NullString
		var elapsedMS int64
		var createdAt string
		if err := rows.Scan(&e.RunID, &e.Ref, &title, &e.Status, &stage, &reason, &captionPath, &summaryPath, &e.Attempt, &elapsedMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		e.Title = title.String
		e.Stage = stage.String
		e.Reason = reason.String
		e.CaptionPath = captionPath.String
		e.SummaryPath = summaryPath.String
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes runs (and their outcomes) that started before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		stamp := cutoff.UTC().Format(time.RFC3339Nano)
		// foreign_keys is per connection, so outcomes are removed explicitly.
		if _, err := s.db.ExecContext(ctx, `DELETE FROM outcomes WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, stamp); err != nil {
			return err
		}
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, stamp)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
