package tracking

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"credit-scoring/internal/common/config"
	"credit-scoring/internal/common/database"
	apperrors "credit-scoring/internal/common/errors"
)

//go:embed schema/*.sql
var schemaFS embed.FS

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// SQLStore implements Store on database/sql. Queries are written with '?'
// placeholders and rebound for postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// Open connects to the configured backend and applies the schema.
func Open(ctx context.Context, cfg *config.Config) (*SQLStore, error) {
	var (
		db      *sql.DB
		err     error
		dialect = Dialect(cfg.Tracking.Driver)
	)
	switch dialect {
	case SQLite:
		db, err = database.NewSQLite(cfg.Tracking.SQLitePath)
	case Postgres:
		db, err = database.NewPostgres(cfg.Database.Postgres)
	default:
		return nil, fmt.Errorf("unknown tracking driver %q", cfg.Tracking.Driver)
	}
	if err != nil {
		return nil, apperrors.NewTrackingStoreFailedError("open", err)
	}
	if err := database.Ping(ctx, db); err != nil {
		db.Close()
		return nil, apperrors.NewTrackingStoreFailedError("ping", err)
	}

	s := NewSQLStore(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	raw, err := schemaFS.ReadFile("schema/" + string(s.dialect) + ".sql")
	if err != nil {
		return apperrors.NewTrackingStoreFailedError("migrate", err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewTrackingStoreFailedError("migrate", err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, q string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(q), args...)
}

func (s *SQLStore) experimentID(ctx context.Context, name string) (string, error) {
	_, err := s.exec(ctx,
		`INSERT INTO experiments (id, name, created_at) VALUES (?, ?, ?) ON CONFLICT (name) DO NOTHING`,
		uuid.NewString(), name, s.now().UnixNano())
	if err != nil {
		return "", err
	}
	var id string
	err = s.db.QueryRowContext(ctx, s.rebind(`SELECT id FROM experiments WHERE name = ?`), name).Scan(&id)
	return id, err
}

func (s *SQLStore) CreateRun(ctx context.Context, experiment, name string) (*Run, error) {
	expID, err := s.experimentID(ctx, experiment)
	if err != nil {
		return nil, apperrors.NewTrackingStoreFailedError("create_experiment", err)
	}

	run := &Run{
		ID:         strings.ReplaceAll(uuid.NewString(), "-", ""),
		Experiment: experiment,
		Name:       name,
		Status:     StatusRunning,
		StartTime:  s.now().UTC(),
	}
	_, err = s.exec(ctx,
		`INSERT INTO runs (id, experiment_id, name, status, start_time) VALUES (?, ?, ?, ?, ?)`,
		run.ID, expID, run.Name, run.Status, run.StartTime.UnixNano())
	if err != nil {
		return nil, apperrors.NewTrackingStoreFailedError("create_run", err)
	}
	return run, nil
}

func (s *SQLStore) LogParams(ctx context.Context, runID string, params map[string]string) error {
	return s.inTx(ctx, "log_params", func(tx *sql.Tx) error {
		q := s.rebind(`INSERT INTO params (run_id, key, value) VALUES (?, ?, ?)
			ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value`)
		for _, k := range sortedKeys(params) {
			if _, err := tx.ExecContext(ctx, q, runID, k, params[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error {
	return s.inTx(ctx, "log_metrics", func(tx *sql.Tx) error {
		q := s.rebind(`INSERT INTO metrics (run_id, key, value) VALUES (?, ?, ?)
			ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value`)
		for _, k := range sortedKeys(metrics) {
			if _, err := tx.ExecContext(ctx, q, runID, k, metrics[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) LogArtifact(ctx context.Context, runID, name string, content []byte) error {
	_, err := s.exec(ctx,
		`INSERT INTO artifacts (run_id, name, content) VALUES (?, ?, ?)
			ON CONFLICT (run_id, name) DO UPDATE SET content = excluded.content`,
		runID, name, content)
	if err != nil {
		return apperrors.NewTrackingStoreFailedError("log_artifact", err)
	}
	return nil
}

func (s *SQLStore) EndRun(ctx context.Context, runID, status string) error {
	res, err := s.exec(ctx, `UPDATE runs SET status = ?, end_time = ? WHERE id = ?`,
		status, s.now().UTC().UnixNano(), runID)
	if err != nil {
		return apperrors.NewTrackingStoreFailedError("end_run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewTrackingStoreFailedError("end_run", fmt.Errorf("run %s does not exist", runID))
	}
	return nil
}

func (s *SQLStore) LatestRun(ctx context.Context, experiment string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT r.id, r.name, r.status, r.start_time, r.end_time
		FROM runs r JOIN experiments e ON e.id = r.experiment_id
		WHERE e.name = ? AND r.status = ?
		ORDER BY r.start_time DESC
		LIMIT 1`), experiment, StatusFinished)

	var (
		run     = &Run{Experiment: experiment}
		startNs int64
		endNs   sql.NullInt64
	)
	if err := row.Scan(&run.ID, &run.Name, &run.Status, &startNs, &endNs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, apperrors.NewTrackingStoreFailedError("latest_run", err)
	}
	run.StartTime = time.Unix(0, startNs).UTC()
	if endNs.Valid {
		t := time.Unix(0, endNs.Int64).UTC()
		run.EndTime = &t
	}

	var err error
	if run.Params, err = s.params(ctx, run.ID); err != nil {
		return nil, apperrors.NewTrackingStoreFailedError("latest_run", err)
	}
	if run.Metrics, err = s.metrics(ctx, run.ID); err != nil {
		return nil, apperrors.NewTrackingStoreFailedError("latest_run", err)
	}
	return run, nil
}

func (s *SQLStore) params(ctx context.Context, runID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT key, value FROM params WHERE run_id = ?`), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *SQLStore) metrics(ctx context.Context, runID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT key, value FROM metrics WHERE run_id = ?`), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *SQLStore) GetArtifact(ctx context.Context, runID, name string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT content FROM artifacts WHERE run_id = ? AND name = ?`), runID, name).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrArtifactNotFound, runID, name)
	}
	if err != nil {
		return nil, apperrors.NewTrackingStoreFailedError("get_artifact", err)
	}
	return content, nil
}

func (s *SQLStore) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewTrackingStoreFailedError(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return apperrors.NewTrackingStoreFailedError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewTrackingStoreFailedError(op, err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
