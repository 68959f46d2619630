package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/pkg/metrics"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	run_date     TEXT NOT NULL,
	meta         TEXT NOT NULL,
	published_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	run_id     TEXT NOT NULL REFERENCES runs(run_id),
	player_key TEXT NOT NULL,
	player_id  TEXT NOT NULL,
	domain     TEXT NOT NULL,
	score      REAL NOT NULL,
	record     TEXT NOT NULL,
	PRIMARY KEY (run_id, player_key)
);

CREATE TABLE IF NOT EXISTS trajectories (
	run_id     TEXT NOT NULL REFERENCES runs(run_id),
	player_key TEXT NOT NULL,
	trajectory TEXT NOT NULL,
	PRIMARY KEY (run_id, player_key)
);

CREATE INDEX IF NOT EXISTS idx_records_rank ON records(run_id, score DESC, player_key);
`

// SQLiteStore implements Store on modernc.org/sqlite. Records are stored as JSON next to the
// columns needed for ranking.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dsn and applies the schema.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Publish implements Store.Publish in a single transaction.
func (s *SQLiteStore) Publish(ctx context.Context, run Run) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryPublishLatency(float64(time.Since(start).Milliseconds()))
	}()

	if run.Meta.RunID == "" {
		metrics.RecordErrorByComponent("repository", "invalid_run")
		return fmt.Errorf("%w: empty run id", ErrInvalidRun)
	}
	meta, err := json.Marshal(run.Meta)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run meta")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin publish")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, run.Meta.RunID).Scan(&exists); err != nil {
		return eris.Wrap(err, "sqlite: check run")
	}
	if exists > 0 {
		metrics.RecordErrorByComponent("repository", "run_exists")
		err = fmt.Errorf("%w: %s", ErrRunExists, run.Meta.RunID)
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, run_date, meta, published_at) VALUES (?, ?, ?, ?)`,
		run.Meta.RunID, run.Meta.RunDate, string(meta), time.Now().UTC(),
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.Meta.RunID)
	}

	if err = insertRecords(ctx, tx, run); err != nil {
		return err
	}
	if err = insertTrajectories(ctx, tx, run); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit publish")
	}
	metrics.UpdateRepositoryRecords(len(run.Records))
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, run Run) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, player_key, player_id, domain, score, record) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare records")
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range run.Records {
		body, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal record")
		}
		key := rec.Key()
		if _, err := stmt.ExecContext(ctx,
			run.Meta.RunID, key.String(), rec.PlayerID, string(rec.Domain), rankScore(rec), string(body),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert record %s", key)
		}
	}
	return nil
}

func insertTrajectories(ctx context.Context, tx *sql.Tx, run Run) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trajectories (run_id, player_key, trajectory) VALUES (?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare trajectories")
	}
	defer func() { _ = stmt.Close() }()

	for _, tr := range run.Trajectories {
		body, err := json.Marshal(tr)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal trajectory")
		}
		key := model.PlayerKey{PlayerID: tr.PlayerID, Domain: tr.Domain}
		if _, err := stmt.ExecContext(ctx, run.Meta.RunID, key.String(), string(body)); err != nil {
			return eris.Wrapf(err, "sqlite: insert trajectory %s", key)
		}
	}
	return nil
}

// rankScore matches the in-memory store's fixed-point precision so both rank ties alike.
func rankScore(rec model.ProjectionRecord) float64 {
	return toFloat(toFixedPoint(rec.Score()))
}

// Latest implements Store.Latest.
func (s *SQLiteStore) Latest(ctx context.Context) (model.RunMeta, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT meta FROM runs ORDER BY rowid DESC LIMIT 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunMeta{}, fmt.Errorf("%w: no published run", ErrNotFound)
	}
	if err != nil {
		return model.RunMeta{}, eris.Wrap(err, "sqlite: latest run")
	}
	var meta model.RunMeta
	if err := json.Unmarshal([]byte(body), &meta); err != nil {
		return model.RunMeta{}, eris.Wrap(err, "sqlite: decode run meta")
	}
	return meta, nil
}

// Record implements Store.Record.
func (s *SQLiteStore) Record(ctx context.Context, runID string, key model.PlayerKey) (model.ProjectionRecord, error) {
	var rec model.ProjectionRecord
	err := s.queryJSON(ctx, &rec,
		`SELECT record FROM records WHERE run_id = ? AND player_key = ?`, runID, key.String())
	if errors.Is(err, ErrNotFound) {
		return model.ProjectionRecord{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return model.ProjectionRecord{}, eris.Wrapf(err, "sqlite: record %s", key)
	}
	return rec, nil
}

// Trajectory implements Store.Trajectory.
func (s *SQLiteStore) Trajectory(ctx context.Context, runID string, key model.PlayerKey) (model.TrajectoryRecord, error) {
	var tr model.TrajectoryRecord
	err := s.queryJSON(ctx, &tr,
		`SELECT trajectory FROM trajectories WHERE run_id = ? AND player_key = ?`, runID, key.String())
	if errors.Is(err, ErrNotFound) {
		return model.TrajectoryRecord{}, fmt.Errorf("%w: trajectory %s", ErrNotFound, key)
	}
	if err != nil {
		return model.TrajectoryRecord{}, eris.Wrapf(err, "sqlite: trajectory %s", key)
	}
	return tr, nil
}

func (s *SQLiteStore) queryJSON(ctx context.Context, dst any, query string, args ...any) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	var body string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(body), dst)
}

// Rank implements Store.Rank.
func (s *SQLiteStore) Rank(ctx context.Context, runID string, key model.PlayerKey) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	var score float64
	err := s.db.QueryRowContext(ctx,
		`SELECT score FROM records WHERE run_id = ? AND player_key = ?`, runID, key.String(),
	).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Entry{}, eris.Wrapf(err, "sqlite: score %s", key)
	}

	var above int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE run_id = ? AND score > ?`, runID, score,
	).Scan(&above); err != nil {
		return Entry{}, eris.Wrapf(err, "sqlite: rank %s", key)
	}
	return Entry{Rank: above + 1, Key: key, Score: score}, nil
}

// TopN implements Store.TopN.
func (s *SQLiteStore) TopN(ctx context.Context, runID string, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	if _, err := s.Count(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, domain, score FROM records WHERE run_id = ?
		 ORDER BY score DESC, player_key ASC LIMIT ?`, runID, n)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: top n")
	}
	defer func() { _ = rows.Close() }()

	out := make([]Entry, 0, n)
	for rows.Next() {
		var (
			e      Entry
			domain string
		)
		if err := rows.Scan(&e.Key.PlayerID, &domain, &e.Score); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan top n")
		}
		e.Key.Domain = model.Domain(domain)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate top n")
	}
	rankEntries(out, 1)
	return out, nil
}

// Count implements Store.Count. An unknown run is ErrNotFound, not zero.
func (s *SQLiteStore) Count(ctx context.Context, runID string) (int, error) {
	var runs, n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&runs); err != nil {
		return 0, eris.Wrap(err, "sqlite: count runs")
	}
	if runs == 0 {
		metrics.RecordErrorByComponent("repository", "not_found")
		return 0, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count records")
	}
	return n, nil
}
