package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/printpal-io/printpal-go/internal/config"
)

// Store manages the generation ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open connects to the ledger under the configured state directory.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("jobs: config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.JobsDBPath())
}

// OpenPath initializes or connects to the ledger at path.
func OpenPath(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("jobs: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
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
	if err := store.initSchema(context.Background()); err != nil {
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

// Record inserts a job or refreshes an existing row with the same UID.
// CreatedAt of an existing row is preserved.
func (s *Store) Record(ctx context.Context, job Job) error {
	if strings.TrimSpace(job.UID) == "" {
		return errors.New("jobs: generation uid is required")
	}
	now := s.now().UTC()
	created := job.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO jobs (
            generation_uid, input_kind, source, quality, format, credits_used, status,
            run_id, output_path, error_message, created_at, updated_at, downloaded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(generation_uid) DO UPDATE SET
            input_kind = excluded.input_kind,
            source = excluded.source,
            quality = excluded.quality,
            format = excluded.format,
            credits_used = excluded.credits_used,
            status = excluded.status,
            run_id = COALESCE(excluded.run_id, jobs.run_id),
            output_path = COALESCE(excluded.output_path, jobs.output_path),
            error_message = excluded.error_message,
            updated_at = excluded.updated_at,
            downloaded_at = COALESCE(excluded.downloaded_at, jobs.downloaded_at)`,
		job.UID,
		string(job.InputKind),
		job.Source,
		job.Quality,
		job.Format,
		job.CreditsUsed,
		job.Status,
		nullableString(job.RunID),
		nullableString(job.OutputPath),
		nullableString(job.ErrorMessage),
		created.UTC().Format(timestampLayout),
		now.Format(timestampLayout),
		nullableTime(job.DownloadedAt),
	)
	if err != nil {
		return fmt.Errorf("record job %s: %w", job.UID, err)
	}
	return nil
}

// Get fetches a job by UID. It returns nil without error when the UID is unknown.
func (s *Store) Get(ctx context.Context, uid string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE generation_uid = ?", uid)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", uid, err)
	}
	return job, nil
}

// UpdateStatus stores the latest status reported by the service.
// It reports whether a row was changed.
func (s *Store) UpdateStatus(ctx context.Context, uid, status, errorMessage string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE generation_uid = ?",
		status,
		nullableString(errorMessage),
		s.now().UTC().Format(timestampLayout),
		uid,
	)
	if err != nil {
		return false, fmt.Errorf("update job %s: %w", uid, err)
	}
	return affected(res)
}

// MarkDownloaded records where the model was saved.
func (s *Store) MarkDownloaded(ctx context.Context, uid, outputPath string) (bool, error) {
	now := s.now().UTC().Format(timestampLayout)
	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, output_path = ?, downloaded_at = ?, error_message = NULL, updated_at = ? WHERE generation_uid = ?",
		"completed",
		outputPath,
		now,
		now,
		uid,
	)
	if err != nil {
		return false, fmt.Errorf("mark job %s downloaded: %w", uid, err)
	}
	return affected(res)
}

// List returns jobs newest first, filtered by opts.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs"
	var (
		clauses []string
		args    []any
	)
	if len(opts.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(opts.Statuses))+")")
		for _, status := range opts.Statuses {
			args = append(args, status)
		}
	}
	if opts.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, opts.RunID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, generation_uid"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

// Pending returns jobs the service has not finished yet.
func (s *Store) Pending(ctx context.Context) ([]*Job, error) {
	return s.List(ctx, ListOptions{Statuses: []string{"pending", "processing"}})
}

// Remove deletes a job from the ledger. It reports whether a row existed.
func (s *Store) Remove(ctx context.Context, uid string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE generation_uid = ?", uid)
	if err != nil {
		return false, fmt.Errorf("remove job %s: %w", uid, err)
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
