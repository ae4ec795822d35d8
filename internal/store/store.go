// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/kanadrill/internal/model"
	"github.com/verte-zerg/kanadrill/internal/practice"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Backend persists the practice history and the session log.
type Backend interface {
	LoadHistory(ctx context.Context) (*practice.History, error)
	SaveHistory(ctx context.Context, h *practice.History) error
	InsertSession(ctx context.Context, rec model.SessionRecord) error
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionRecord, error)
	Close() error
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	metaLastSession   = "last_session"
	metaTotalPractice = "total_practice_time"
)

// Store wraps SQLite access for the practice history.
type Store struct {
	db *sql.DB
}

var _ Backend = (*Store)(nil)

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
		`CREATE TABLE IF NOT EXISTS item_stats (
			item TEXT PRIMARY KEY,
			appearances INTEGER NOT NULL,
			successes INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			total_response_ms REAL NOT NULL,
			last_appearance TEXT NOT NULL,
			exp_avg_response REAL NOT NULL,
			exp_avg_accuracy REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			item TEXT NOT NULL,
			seq INTEGER NOT NULL,
			input TEXT NOT NULL,
			start_time TEXT NOT NULL,
			duration_ms REAL NOT NULL,
			success INTEGER NOT NULL,
			PRIMARY KEY (item, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS mistakes (
			item TEXT NOT NULL,
			seq INTEGER NOT NULL,
			input TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			PRIMARY KEY (item, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			script TEXT NOT NULL,
			subset TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			successes INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_start_time ON attempts(start_time);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadHistory reads the full history. An empty database yields an empty
// history stamped with the current time.
func (s *Store) LoadHistory(ctx context.Context) (*practice.History, error) {
	h := practice.NewHistory(time.Now())

	meta, err := s.loadMeta(ctx)
	if err != nil {
		return nil, err
	}
	if v, ok := meta[metaLastSession]; ok {
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", metaLastSession, err)
		}
		h.LastSession = parsed
	}
	if v, ok := meta[metaTotalPractice]; ok {
		total, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", metaTotalPractice, err)
		}
		h.TotalPracticeMs = total
	}

	if err := s.loadItems(ctx, h); err != nil {
		return nil, err
	}
	if err := s.loadAttempts(ctx, h); err != nil {
		return nil, err
	}
	if err := s.loadMistakes(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Store) loadMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	meta := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		meta[key] = value
	}
	return meta, rows.Err()
}

func (s *Store) loadItems(ctx context.Context, h *practice.History) error {
	rows, err := s.db.QueryContext(ctx, `SELECT item, appearances, successes, failures, total_response_ms,
		last_appearance, exp_avg_response, exp_avg_accuracy
		FROM item_stats`)
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
		var id, last string
		st := &practice.ItemStats{}
		if err := rows.Scan(&id, &st.Appearances, &st.Successes, &st.Failures, &st.TotalResponseMs,
			&last, &st.ExpAvgResponse, &st.ExpAvgAccuracy); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, last)
		if err != nil {
			return fmt.Errorf("item %s: %w", id, err)
		}
		st.LastAppearance = parsed
		h.Items[id] = st
	}
	return rows.Err()
}

func (s *Store) loadAttempts(ctx context.Context, h *practice.History) error {
	rows, err := s.db.QueryContext(ctx, `SELECT item, input, start_time, duration_ms, success
		FROM attempts ORDER BY item, seq`)
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
		var id, start string
		var a practice.Attempt
		if err := rows.Scan(&id, &a.Input, &start, &a.DurationMs, &a.Success); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, start)
		if err != nil {
			return fmt.Errorf("attempt for %s: %w", id, err)
		}
		a.StartTime = parsed
		st, ok := h.Items[id]
		if !ok {
			return fmt.Errorf("attempt for unknown item %s", id)
		}
		st.TestHistory = append(st.TestHistory, a)
	}
	return rows.Err()
}

func (s *Store) loadMistakes(ctx context.Context, h *practice.History) error {
	rows, err := s.db.QueryContext(ctx, `SELECT item, input, timestamp FROM mistakes ORDER BY item, seq`)
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
		var id, ts string
		var m practice.Mistake
		if err := rows.Scan(&id, &m.Input, &ts); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return fmt.Errorf("mistake for %s: %w", id, err)
		}
		m.Timestamp = parsed
		st, ok := h.Items[id]
		if !ok {
			return fmt.Errorf("mistake for unknown item %s", id)
		}
		st.Mistakes = append(st.Mistakes, m)
	}
	return rows.Err()
}

// SaveHistory writes h in a single transaction. Attempt and mistake rows are
// append-only and keyed by position, so only new entries are inserted. Items
// missing from h are removed.
func (s *Store) SaveHistory(ctx context.Context, h *practice.History) (err error) {
	if h == nil {
		return errors.New("nil history")
	}
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

	if err = pruneItems(ctx, tx, h); err != nil {
		return err
	}

	itemStmt, err := tx.PrepareContext(ctx, `INSERT INTO item_stats (item, appearances, successes, failures,
		total_response_ms, last_appearance, exp_avg_response, exp_avg_accuracy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item) DO UPDATE SET
			appearances = excluded.appearances,
			successes = excluded.successes,
			failures = excluded.failures,
			total_response_ms = excluded.total_response_ms,
			last_appearance = excluded.last_appearance,
			exp_avg_response = excluded.exp_avg_response,
			exp_avg_accuracy = excluded.exp_avg_accuracy`)
	if err != nil {
		return err
	}
	defer closeStmt(itemStmt)

	attemptStmt, err := tx.PrepareContext(ctx, `INSERT INTO attempts (item, seq, input, start_time, duration_ms, success)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(item, seq) DO UPDATE SET
			input = excluded.input,
			start_time = excluded.start_time,
			duration_ms = excluded.duration_ms,
			success = excluded.success`)
	if err != nil {
		return err
	}
	defer closeStmt(attemptStmt)

	mistakeStmt, err := tx.PrepareContext(ctx, `INSERT INTO mistakes (item, seq, input, timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(item, seq) DO UPDATE SET
			input = excluded.input,
			timestamp = excluded.timestamp`)
	if err != nil {
		return err
	}
	defer closeStmt(mistakeStmt)

	for _, id := range h.IDs() {
		st := h.Items[id]
		if _, err = itemStmt.ExecContext(ctx, id, st.Appearances, st.Successes, st.Failures, st.TotalResponseMs,
			formatTime(st.LastAppearance), st.ExpAvgResponse, st.ExpAvgAccuracy); err != nil {
			return fmt.Errorf("save item %s: %w", id, err)
		}
		// Rows beyond the in-memory length belong to a replaced history.
		if _, err = tx.ExecContext(ctx, `DELETE FROM attempts WHERE item = ? AND seq >= ?`, id, len(st.TestHistory)); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM mistakes WHERE item = ? AND seq >= ?`, id, len(st.Mistakes)); err != nil {
			return err
		}
		for seq, a := range st.TestHistory {
			if _, err = attemptStmt.ExecContext(ctx, id, seq, a.Input, formatTime(a.StartTime), a.DurationMs, a.Success); err != nil {
				return fmt.Errorf("save attempt %s/%d: %w", id, seq, err)
			}
		}
		for seq, m := range st.Mistakes {
			if _, err = mistakeStmt.ExecContext(ctx, id, seq, m.Input, formatTime(m.Timestamp)); err != nil {
				return fmt.Errorf("save mistake %s/%d: %w", id, seq, err)
			}
		}
	}

	meta := map[string]string{
		metaLastSession:   formatTime(h.LastSession),
		metaTotalPractice: strconv.FormatFloat(h.TotalPracticeMs, 'g', -1, 64),
	}
	for key, value := range meta {
		if _, err = tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func pruneItems(ctx context.Context, tx *sql.Tx, h *practice.History) error {
	rows, err := tx.QueryContext(ctx, `SELECT item FROM item_stats`)
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		if _, ok := h.Items[id]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, id := range stale {
		for _, table := range []string{"item_stats", "attempts", "mistakes"} {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE item = ?`, table), id); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func closeStmt(stmt *sql.Stmt) {
	if cerr := stmt.Close(); cerr != nil {
		// Best-effort statement close.
		_ = cerr
	}
}

// InsertSession stores a completed session.
func (s *Store) InsertSession(ctx context.Context, rec model.SessionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, ended_at, script, subset, attempts, successes, failures, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		formatTime(rec.StartedAt),
		formatTime(rec.EndedAt),
		rec.Script,
		rec.Subset,
		rec.Attempts,
		rec.Successes,
		rec.Failures,
		rec.DurationMs,
	)
	return err
}

// ListSessions returns sessions filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Script != "" {
		clauses = append(clauses, "script = ?")
		args = append(args, cfg.Script)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	limit := -1
	if cfg.Last > 0 {
		limit = cfg.Last
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, script, subset, attempts, successes, failures, duration_ms
		FROM (
			SELECT * FROM sessions
			WHERE %s
			ORDER BY ended_at DESC
			LIMIT ?
		)
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
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

	var sessions []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		var startedAt, endedAt string
		if err := rows.Scan(&rec.ID, &startedAt, &endedAt, &rec.Script, &rec.Subset,
			&rec.Attempts, &rec.Successes, &rec.Failures, &rec.DurationMs); err != nil {
			return nil, err
		}
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if rec.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
