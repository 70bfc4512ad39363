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

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"clip-worker/internal/logging"
	"clip-worker/internal/metrics"
	"clip-worker/internal/pipeline"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// DefaultListLimit is used by Recent when limit is not positive.
const DefaultListLimit = 50

// MaxListLimit caps the number of records Recent returns.
const MaxListLimit = 500

// ErrNotFound is returned by Get for unknown job ids.
var ErrNotFound = errors.New("job not found")

// Store is the SQLite-backed job history.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Filter narrows a Recent query. Zero values match everything.
type Filter struct {
	Operation string
	Status    pipeline.Status
	Limit     int
}

// New opens (or creates) the history database at dbPath. The parent
// directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Job history database: %s", dbPath)

	if err := checkDirWritable(filepath.Dir(dbPath)); err != nil {
		return nil, err
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return s, nil
}

func (s *Store) initialize(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		input_url TEXT NOT NULL,
		storage_key TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		failed_stage TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		public_url TEXT NOT NULL DEFAULT '',
		output_bytes INTEGER NOT NULL DEFAULT 0,
		warning TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_started_at ON jobs(started_at);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	`

	_, err = s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Begin records a run that has just started.
func (s *Store) Begin(ctx context.Context, rec pipeline.Record) error {
	return s.save(ctx, "begin_job", rec)
}

// Finish records the outcome of a run. A run never passed to Begin is
// inserted.
func (s *Store) Finish(ctx context.Context, rec pipeline.Record) error {
	return s.save(ctx, "finish_job", rec)
}

func (s *Store) save(ctx context.Context, operation string, rec pipeline.Record) (err error) {
	start := time.Now()
	defer func() { recordQuery(operation, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var finished sql.NullInt64
	if rec.FinishedAt != nil {
		finished = sql.NullInt64{Int64: rec.FinishedAt.UnixMilli(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, operation, input_url, storage_key, status, failed_stage,
			error, public_url, output_bytes, warning, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			failed_stage = excluded.failed_stage,
			error = excluded.error,
			public_url = excluded.public_url,
			output_bytes = excluded.output_bytes,
			warning = excluded.warning,
			finished_at = excluded.finished_at
	`,
		rec.ID, rec.Operation, rec.InputURL, rec.Key, string(rec.Status), string(rec.FailedStage),
		rec.Error, rec.PublicURL, rec.OutputBytes, rec.Warning, rec.StartedAt.UnixMilli(), finished,
	)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", rec.ID, err)
	}
	return nil
}

const selectColumns = `SELECT id, operation, input_url, storage_key, status, failed_stage,
	error, public_url, output_bytes, warning, started_at, finished_at FROM jobs`

// Get returns the job with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (rec *pipeline.Record, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrNotFound) {
			recordQuery("get_job", start, nil)
			return
		}
		recordQuery("get_job", start, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	return &r, nil
}

// Recent returns the newest jobs first.
func (s *Store) Recent(ctx context.Context, f Filter) (recs []pipeline.Record, err error) {
	start := time.Now()
	defer func() { recordQuery("list_jobs", start, err) }()

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	var (
		where []string
		args  []interface{}
	)
	if f.Operation != "" {
		where = append(where, "operation = ?")
		args = append(args, f.Operation)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, id LIMIT ?"
	args = append(args, limit)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close job rows: %v", closeErr)
		}
	}()

	recs = make([]pipeline.Record, 0, limit)
	for rows.Next() {
		r, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan job: %w", scanErr)
		}
		recs = append(recs, r)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// FileSizes reports the size of the main, WAL and SHM files. Missing files
// are reported as zero.
func (s *Store) FileSizes() map[string]int64 {
	sizes := map[string]int64{"main": 0, "wal": 0, "shm": 0}
	for file, path := range map[string]string{
		"main": s.dbPath,
		"wal":  s.dbPath + "-wal",
		"shm":  s.dbPath + "-shm",
	} {
		if info, err := os.Stat(path); err == nil {
			sizes[file] = info.Size()
		}
	}
	return sizes
}

// OpenConnections returns the number of open database connections.
func (s *Store) OpenConnections() int {
	return s.db.Stats().OpenConnections
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(sc scanner) (pipeline.Record, error) {
	var (
		r         pipeline.Record
		status    string
		stage     string
		startedAt int64
		finished  sql.NullInt64
	)
	err := sc.Scan(&r.ID, &r.Operation, &r.InputURL, &r.Key, &status, &stage,
		&r.Error, &r.PublicURL, &r.OutputBytes, &r.Warning, &startedAt, &finished)
	if err != nil {
		return pipeline.Record{}, err
	}

	r.Status = pipeline.Status(status)
	r.FailedStage = pipeline.Stage(stage)
	r.StartedAt = time.UnixMilli(startedAt).UTC()
	if finished.Valid {
		t := time.UnixMilli(finished.Int64).UTC()
		r.FinishedAt = &t
	}
	return r, nil
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// checkDirWritable verifies the database directory exists and accepts writes.
func checkDirWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("database path %s is not a directory", dir)
	}

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	logging.Debug("Database directory %s is writable", dir)
	return nil
}
