package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// MemoryDSN keeps the journal in process memory only.
const MemoryDSN = ":memory:"

// SQLiteRecorder keeps the query journal in a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
	now func() time.Time
}

// NewSQLiteRecorder opens the database and runs migrations. With MemoryDSN
// the pool is pinned to one connection, since every new connection would
// see an empty database.
func NewSQLiteRecorder(dsn string, log *zap.Logger) (*SQLiteRecorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	r := &SQLiteRecorder{db: db, log: log, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Debug("query journal opened", zap.String("dsn", dsn))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS query_events (
			id          TEXT PRIMARY KEY,
			at          INTEGER NOT NULL,
			query       TEXT NOT NULL,
			symbol      TEXT,
			source      TEXT,
			strategy    TEXT,
			outcome     TEXT NOT NULL,
			error       TEXT,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_query_events_at ON query_events(at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordQuery stores evt, filling in ID and At when they are unset.
func (r *SQLiteRecorder) RecordQuery(evt *QueryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.At.IsZero() {
		evt.At = r.now()
	}
	_, err := r.db.Exec(`INSERT INTO query_events
		(id, at, query, symbol, source, strategy, outcome, error, duration_ms)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		evt.ID, evt.At.UnixNano(), evt.Query, evt.Symbol, evt.Source,
		evt.Strategy, evt.Outcome, evt.Error, evt.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert query event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (r *SQLiteRecorder) Recent(limit int) ([]QueryEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(`SELECT id, at, query, symbol, source, strategy, outcome, error, duration_ms
		FROM query_events ORDER BY at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []QueryEvent
	for rows.Next() {
		var (
			evt        QueryEvent
			at, millis int64
		)
		if err := rows.Scan(&evt.ID, &at, &evt.Query, &evt.Symbol, &evt.Source,
			&evt.Strategy, &evt.Outcome, &evt.Error, &millis); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.At = time.Unix(0, at)
		evt.Duration = time.Duration(millis) * time.Millisecond
		events = append(events, evt)
	}
	return events, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Debug("closing query journal")
	return r.db.Close()
}
