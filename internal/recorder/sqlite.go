package recorder

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists cycle history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *slog.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the status API read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scheduler_cycles (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        INTEGER NOT NULL,
			outcome          TEXT NOT NULL,
			interval_minutes INTEGER,
			requested        INTEGER,
			posted           INTEGER,
			duration_ms      INTEGER,
			error_text       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON scheduler_cycles(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCycle(evt *CycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO scheduler_cycles
		(timestamp, outcome, interval_minutes, requested, posted, duration_ms, error_text)
		VALUES (?,?,?,?,?,?,?)`,
		at.Unix(), evt.Outcome, evt.IntervalMinutes,
		evt.Requested, evt.Posted, evt.Duration.Milliseconds(), evt.Error,
	)
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecentCycles(limit int) ([]CycleEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT timestamp, outcome, interval_minutes, requested, posted, duration_ms, error_text
		FROM scheduler_cycles ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var events []CycleEvent
	for rows.Next() {
		var (
			evt     CycleEvent
			ts, ms  int64
			errText sql.NullString
		)
		if err := rows.Scan(&ts, &evt.Outcome, &evt.IntervalMinutes, &evt.Requested, &evt.Posted, &ms, &errText); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		evt.At = time.Unix(ts, 0)
		evt.Duration = time.Duration(ms) * time.Millisecond
		evt.Error = errText.String
		events = append(events, evt)
	}
	return events, rows.Err()
}

func (r *SQLiteRecorder) Prune(before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(`DELETE FROM scheduler_cycles WHERE timestamp < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune cycles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune cycles: %w", err)
	}
	return n, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
