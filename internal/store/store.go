package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"stream-compositor/internal/complexity"
	"stream-compositor/internal/logging"
	"stream-compositor/internal/metrics"
	"stream-compositor/internal/validator"
)

// Default timeout for store operations
const defaultTimeout = 5 * time.Second

// Store persists session diagnostics: validation outcomes and complexity
// samples. It is optional plumbing; the pipeline runs fine without it.
type Store struct {
	db     *sql.DB
	dbPath string
}

// ValidationRecord is one persisted validation attempt.
type ValidationRecord struct {
	ID         int64
	SessionID  string
	Attempt    int
	Stable     bool
	FrameCount int
	Elapsed    time.Duration
	Error      string
	CreatedAt  time.Time
}

// ComplexityRecord is one persisted complexity sample.
type ComplexityRecord struct {
	ID        int64
	SessionID string
	Spatial   float64
	Temporal  float64
	Variance  float64
	Overall   float64
	IsLow     bool
	Smoothed  float64
	CreatedAt time.Time
}

// New opens (or creates) the diagnostics database at dbPath. The parent
// directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Diagnostics store path: %s", dbPath)

	// WAL mode keeps readers (the stats endpoint) from blocking the
	// per-frame writers; busy_timeout prevents "database is locked".
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open diagnostics store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close store after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to diagnostics store: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close store after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	logging.Info("Diagnostics store initialized at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS validations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		attempt INTEGER NOT NULL,
		stable INTEGER NOT NULL,
		frame_count INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		error TEXT,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_validations_session ON validations(session_id);
	CREATE INDEX IF NOT EXISTS idx_validations_created ON validations(created_at);

	CREATE TABLE IF NOT EXISTS complexity_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		spatial REAL NOT NULL,
		temporal REAL NOT NULL,
		variance REAL NOT NULL,
		overall REAL NOT NULL,
		is_low INTEGER NOT NULL,
		smoothed REAL NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_complexity_session ON complexity_samples(session_id);
	CREATE INDEX IF NOT EXISTS idx_complexity_created ON complexity_samples(created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordValidation persists one validation attempt. Implements the
// session recorder contract; failures are logged, never propagated into
// the delivery path.
func (s *Store) RecordValidation(sessionID string, attempt int, r validator.Result) {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_validation", start, err) }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	errText := ""
	if r.Err != nil {
		errText = r.Err.Error()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO validations (session_id, attempt, stable, frame_count, elapsed_ms, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, attempt, boolInt(r.Stable), r.FrameCount, r.Elapsed.Milliseconds(), errText,
	)
	if err != nil {
		logging.Warn("store: failed to record validation for session %s: %v", sessionID, err)
	}
}

// RecordComplexitySample persists one complexity measurement.
func (s *Store) RecordComplexitySample(sessionID string, m complexity.Metrics, smoothed float64) {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_complexity", start, err) }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO complexity_samples (session_id, spatial, temporal, variance, overall, is_low, smoothed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, m.Spatial, m.Temporal, m.FrameVariance, m.Overall, boolInt(m.IsLow), smoothed,
	)
	if err != nil {
		logging.Warn("store: failed to record complexity sample for session %s: %v", sessionID, err)
	}
}

// RecentValidations returns up to limit validation records, newest first.
func (s *Store) RecentValidations(ctx context.Context, limit int) ([]ValidationRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("recent_validations", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, attempt, stable, frame_count, elapsed_ms, error, created_at
		FROM validations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Error("store: failed to close validation rows: %v", closeErr)
		}
	}()

	var out []ValidationRecord
	for rows.Next() {
		var rec ValidationRecord
		var stable int
		var elapsedMS, createdAt int64
		if err = rows.Scan(&rec.ID, &rec.SessionID, &rec.Attempt, &stable,
			&rec.FrameCount, &elapsedMS, &rec.Error, &createdAt); err != nil {
			return nil, err
		}
		rec.Stable = stable != 0
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, rec)
	}
	err = rows.Err()
	return out, err
}

// RecentComplexitySamples returns up to limit samples, newest first.
func (s *Store) RecentComplexitySamples(ctx context.Context, limit int) ([]ComplexityRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("recent_complexity", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, spatial, temporal, variance, overall, is_low, smoothed, created_at
		FROM complexity_samples ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Error("store: failed to close complexity rows: %v", closeErr)
		}
	}()

	var out []ComplexityRecord
	for rows.Next() {
		var rec ComplexityRecord
		var isLow int
		var createdAt int64
		if err = rows.Scan(&rec.ID, &rec.SessionID, &rec.Spatial, &rec.Temporal,
			&rec.Variance, &rec.Overall, &isLow, &rec.Smoothed, &createdAt); err != nil {
			return nil, err
		}
		rec.IsLow = isLow != 0
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, rec)
	}
	err = rows.Err()
	return out, err
}

// ValidationStats summarizes validation outcomes for the stats endpoint.
type ValidationStats struct {
	Total    int `json:"total"`
	Stable   int `json:"stable"`
	Unstable int `json:"unstable"`
	Retries  int `json:"retries"`
}

// Stats aggregates validation counts.
func (s *Store) Stats(ctx context.Context) (ValidationStats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var vs ValidationStats
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(stable), 0),
		       COALESCE(SUM(1 - stable), 0),
		       COALESCE(SUM(CASE WHEN attempt > 1 THEN 1 ELSE 0 END), 0)
		FROM validations`).Scan(&vs.Total, &vs.Stable, &vs.Unstable, &vs.Retries)
	return vs, err
}

// Prune removes records older than the retention window.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("prune", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cutoff := time.Now().Add(-retention).Unix()
	var total int64
	for _, table := range []string{"validations", "complexity_samples"} {
		res, execErr := s.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE created_at < ?", table), cutoff)
		if execErr != nil {
			err = execErr
			return total, err
		}
		if n, raErr := res.RowsAffected(); raErr == nil {
			total += n
		}
	}
	return total, nil
}

// recordQuery records store query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoreQueriesTotal.WithLabelValues(operation, status).Inc()
	metrics.StoreQueryDuration.WithLabelValues(operation).Observe(duration)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
