// Package store handles SQLite persistence of awarded tasks and pass history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/xpradar/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// maxQueryArgs keeps IN lists below SQLite's bound parameter limit.
const maxQueryArgs = 500

// Store wraps SQLite access for the award ledger and pass history.
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
		`CREATE TABLE IF NOT EXISTS passes (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			forced INTEGER NOT NULL,
			documents INTEGER NOT NULL,
			mentions INTEGER NOT NULL,
			new_xp INTEGER NOT NULL,
			written INTEGER NOT NULL,
			read_failures INTEGER NOT NULL,
			write_failures INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS pass_stats (
			pass_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			stat_id TEXT NOT NULL,
			total_xp INTEGER NOT NULL,
			level INTEGER NOT NULL,
			PRIMARY KEY (pass_id, kind, stat_id)
		);`,
		`CREATE TABLE IF NOT EXISTS awarded_tasks (
			fingerprint TEXT PRIMARY KEY,
			pass_id INTEGER NOT NULL,
			doc_path TEXT NOT NULL,
			sub_stat TEXT NOT NULL,
			xp INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_passes_ended_at ON passes(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_pass_stats_stat ON pass_stats(kind, stat_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Awarded returns the subset of fingerprints already credited by a pass.
func (s *Store) Awarded(ctx context.Context, fingerprints []string) (map[string]bool, error) {
	result := map[string]bool{}
	for start := 0; start < len(fingerprints); start += maxQueryArgs {
		end := start + maxQueryArgs
		if end > len(fingerprints) {
			end = len(fingerprints)
		}
		chunk := fingerprints[start:end]
		placeholders := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for i, fp := range chunk {
			placeholders[i] = "?"
			args[i] = fp
		}
		query := fmt.Sprintf(`SELECT fingerprint FROM awarded_tasks WHERE fingerprint IN (%s)`, strings.Join(placeholders, ","))
		if err := s.collectFingerprints(ctx, query, args, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) collectFingerprints(ctx context.Context, query string, args []any, into map[string]bool) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return err
		}
		into[fp] = true
	}
	return rows.Err()
}

// RecordPass stores a pass summary, the state of every entity it produced
// and the tasks it credited, in one transaction.
func (s *Store) RecordPass(ctx context.Context, rec model.PassRecord, points []model.StatPoint, awarded []model.Mention) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO passes (run_id, started_at, ended_at, forced, documents, mentions, new_xp, written, read_failures, write_failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.StartedAt.Format(time.RFC3339Nano),
		rec.EndedAt.Format(time.RFC3339Nano),
		boolToInt(rec.Forced),
		rec.Documents,
		rec.Mentions,
		rec.NewXP,
		rec.Written,
		rec.ReadFailures,
		rec.WriteFailures,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(points) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO pass_stats (pass_id, kind, stat_id, total_xp, level)
			 VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, id, p.Kind, p.StatID, p.TotalXP, p.Level); err != nil {
				return 0, err
			}
		}
	}

	if len(awarded) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO awarded_tasks (fingerprint, pass_id, doc_path, sub_stat, xp)
			 VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, m := range awarded {
			if _, err := stmt.ExecContext(ctx, m.Fingerprint, id, m.DocPath, m.SubStatID, m.XP); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListPasses returns recorded passes oldest first, limited to the last n when n > 0.
func (s *Store) ListPasses(ctx context.Context, last int) ([]model.PassRecord, error) {
	query := `SELECT id, run_id, started_at, ended_at, forced, documents, mentions, new_xp, written, read_failures, write_failures
		FROM passes
		ORDER BY id DESC`
	args := []any{}
	if last > 0 {
		query += " LIMIT ?"
		args = append(args, last)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var passes []model.PassRecord
	for rows.Next() {
		var rec model.PassRecord
		var startedAt, endedAt string
		var forced int
		if err := rows.Scan(&rec.ID, &rec.RunID, &startedAt, &endedAt, &forced, &rec.Documents, &rec.Mentions, &rec.NewXP, &rec.Written, &rec.ReadFailures, &rec.WriteFailures); err != nil {
			return nil, err
		}
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if rec.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		rec.Forced = forced != 0
		passes = append(passes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(passes)-1; i < j; i, j = i+1, j-1 {
		passes[i], passes[j] = passes[j], passes[i]
	}
	return passes, nil
}

// StatHistory returns the recorded states of the given entities, oldest first.
func (s *Store) StatHistory(ctx context.Context, kind string, statIDs []string) (map[string][]model.StatPoint, error) {
	result := map[string][]model.StatPoint{}
	if len(statIDs) == 0 {
		return result, nil
	}
	if len(statIDs) > maxQueryArgs {
		statIDs = statIDs[:maxQueryArgs]
	}
	placeholders := make([]string, len(statIDs))
	args := make([]any, 0, len(statIDs)+1)
	args = append(args, kind)
	for i, id := range statIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT ps.pass_id, p.ended_at, ps.kind, ps.stat_id, ps.total_xp, ps.level
		FROM pass_stats ps
		JOIN passes p ON p.id = ps.pass_id
		WHERE ps.kind = ? AND ps.stat_id IN (%s)
		ORDER BY ps.pass_id ASC`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	for rows.Next() {
		var p model.StatPoint
		var endedAt string
		if err := rows.Scan(&p.PassID, &endedAt, &p.Kind, &p.StatID, &p.TotalXP, &p.Level); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		p.EndedAt = parsed
		result[p.StatID] = append(result[p.StatID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// AwardedCount returns how many tasks have been credited so far.
func (s *Store) AwardedCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM awarded_tasks`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
