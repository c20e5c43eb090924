// Package store handles SQLite persistence of dataset builds.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/ecgprep/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrBuildNotFound is returned when no build matches an id prefix.
var ErrBuildNotFound = errors.New("build not found")

// Store wraps SQLite access for the build manifest.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS builds (
			id TEXT PRIMARY KEY,
			source_dir TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			window_seconds REAL NOT NULL,
			window_samples INTEGER NOT NULL,
			expand INTEGER NOT NULL,
			cache_hit INTEGER NOT NULL,
			windows INTEGER NOT NULL,
			positives INTEGER NOT NULL,
			records_used INTEGER NOT NULL,
			records_excluded INTEGER NOT NULL,
			records_failed INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS build_records (
			build_id TEXT NOT NULL,
			record TEXT NOT NULL,
			status TEXT NOT NULL,
			channels INTEGER NOT NULL,
			windows INTEGER NOT NULL,
			detail TEXT NOT NULL,
			PRIMARY KEY (build_id, record)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertBuild stores a build summary and its record outcomes.
func (s *Store) InsertBuild(ctx context.Context, b model.BuildSummary) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO builds (id, source_dir, started_at, ended_at, window_seconds, window_samples, expand, cache_hit, windows, positives, records_used, records_excluded, records_failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.SourceDir,
		b.StartedAt.Format(time.RFC3339Nano),
		b.EndedAt.Format(time.RFC3339Nano),
		b.WindowSeconds,
		b.WindowSamples,
		b.Expand,
		b.CacheHit,
		b.Windows,
		b.Positives,
		b.RecordsUsed,
		b.RecordsExcluded,
		b.RecordsFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert build: %w", err)
	}

	if len(b.Outcomes) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO build_records (build_id, record, status, channels, windows, detail)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, o := range b.Outcomes {
			if _, err = stmt.ExecContext(ctx, b.ID, o.Record, o.Status, o.Channels, o.Windows, o.Detail); err != nil {
				return fmt.Errorf("failed to insert outcome of %s: %w", o.Record, err)
			}
		}
	}

	return tx.Commit()
}

// ListBuilds returns the most recent builds, newest first. A non-positive
// limit returns every build.
func (s *Store) ListBuilds(ctx context.Context, limit int) ([]model.BuildSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_dir, started_at, ended_at, window_seconds, window_samples, expand, cache_hit,
			windows, positives, records_used, records_excluded, records_failed
		FROM builds
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var builds []model.BuildSummary
	for rows.Next() {
		var b model.BuildSummary
		var startedAt, endedAt string
		if err := rows.Scan(&b.ID, &b.SourceDir, &startedAt, &endedAt, &b.WindowSeconds, &b.WindowSamples,
			&b.Expand, &b.CacheHit, &b.Windows, &b.Positives, &b.RecordsUsed, &b.RecordsExcluded, &b.RecordsFailed); err != nil {
			return nil, err
		}
		if b.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if b.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return builds, nil
}

// ResolveBuildID returns the full id of the single build starting with prefix.
func (s *Store) ResolveBuildID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", ErrBuildNotFound
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM builds WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrBuildNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("build id prefix %q is ambiguous", prefix)
	}
}

// ListRecordOutcomes returns the per-record outcomes of a build, ordered by
// record name.
func (s *Store) ListRecordOutcomes(ctx context.Context, buildID string) ([]model.RecordOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record, status, channels, windows, detail
		FROM build_records
		WHERE build_id = ?
		ORDER BY record ASC`, buildID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var outcomes []model.RecordOutcome
	for rows.Next() {
		var o model.RecordOutcome
		if err := rows.Scan(&o.Record, &o.Status, &o.Channels, &o.Windows, &o.Detail); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
