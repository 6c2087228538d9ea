// Package resultstore persists completed run results in a local SQLite
// database. Run metadata lives in indexed columns; the converted result
// layers are stored as one snappy-compressed JSON blob per run, since
// consumers always read a run's series wholesale.
package resultstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	_ "modernc.org/sqlite"

	"github.com/dd0wney/cluso-hydronet/pkg/metrics"
	"github.com/dd0wney/cluso-hydronet/pkg/results"
)

// ErrNotFound is returned when a run ID has no stored results
var ErrNotFound = errors.New("run not found")

// RunInfo is one stored run's metadata
type RunInfo struct {
	ID        string
	Mode      string
	FlowUnit  string
	Steps     int
	CreatedAt time.Time
}

// Store is a SQLite-backed result archive
type Store struct {
	db  *sql.DB
	reg *metrics.Registry
}

// Option customizes a Store
type Option func(*Store)

// WithMetrics records store operations in the given registry
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Store) { s.reg = reg }
}

// Open creates or opens a result store at the given path
func Open(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if s.reg != nil {
		if n, err := s.Count(context.Background()); err == nil {
			s.reg.StoreRunsTotal.Set(float64(n))
		}
	}

	return s, nil
}

// record reports one store operation's outcome to the registry
func (s *Store) record(operation, status string, started time.Time) {
	if s.reg != nil {
		s.reg.RecordStoreOperation(operation, status, time.Since(started))
	}
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		flow_unit TEXT NOT NULL,
		steps INTEGER NOT NULL,
		layers BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun persists one run's converted result layers
func (s *Store) SaveRun(ctx context.Context, id, mode string, layers *results.Layers) error {
	started := time.Now()
	data, err := json.Marshal(layers)
	if err != nil {
		s.record("save", "error", started)
		return fmt.Errorf("failed to marshal layers: %w", err)
	}
	compressed := snappy.Encode(nil, data)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, flow_unit, steps, layers)
		VALUES (?, ?, ?, ?, ?)
	`, id, mode, layers.Units.Flow, len(layers.Steps), compressed)
	if err != nil {
		s.record("save", "error", started)
		return fmt.Errorf("failed to insert run %s: %w", id, err)
	}
	s.record("save", "ok", started)
	if s.reg != nil {
		s.reg.StoreRunsTotal.Inc()
	}
	return nil
}

// LoadRun reads one run's result layers back
func (s *Store) LoadRun(ctx context.Context, id string) (*results.Layers, error) {
	started := time.Now()
	var compressed []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT layers FROM runs WHERE id = ?
	`, id).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		s.record("load", "not_found", started)
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		s.record("load", "error", started)
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		s.record("load", "error", started)
		return nil, fmt.Errorf("failed to decompress run %s: %w", id, err)
	}

	var layers results.Layers
	if err := json.Unmarshal(data, &layers); err != nil {
		s.record("load", "error", started)
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", id, err)
	}
	s.record("load", "ok", started)
	return &layers, nil
}

// ListRuns returns stored run metadata, most recent first
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, flow_unit, steps, created_at
		FROM runs ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var infos []RunInfo
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.ID, &info.Mode, &info.FlowUnit, &info.Steps, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteRun removes one stored run
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	started := time.Now()
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		s.record("delete", "error", started)
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		s.record("delete", "error", started)
		return err
	}
	if n == 0 {
		s.record("delete", "not_found", started)
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	s.record("delete", "ok", started)
	if s.reg != nil {
		s.reg.StoreRunsTotal.Dec()
	}
	return nil
}

// Count returns the number of stored runs
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}
