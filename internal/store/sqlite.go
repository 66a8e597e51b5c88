package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ncclspy/ncclspy/internal/trace"
)

// SQLiteStore persists events in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// WAL and a busy timeout keep concurrent imports from tripping over
// SQLITE_BUSY; a single writer connection serializes inserts.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time DATETIME NOT NULL,
		op TEXT NOT NULL,
		count INTEGER NOT NULL,
		datatype INTEGER NOT NULL,
		root INTEGER NOT NULL,
		rank INTEGER NOT NULL,
		duration_us INTEGER NOT NULL,
		status INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_op ON events(op);
	CREATE INDEX IF NOT EXISTS idx_events_rank ON events(rank);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertEvents writes events in one transaction.
func (s *SQLiteStore) InsertEvents(events []trace.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (time, op, count, datatype, root, rank, duration_us, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(ev.Time.UTC(), ev.Op, int64(ev.Count), ev.Datatype, ev.Root, ev.Rank, ev.DurationUS, ev.Status); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}
	return tx.Commit()
}

// Events returns events matching the filter, insertion-ordered.
func (s *SQLiteStore) Events(f Filter) ([]trace.Event, error) {
	query := `SELECT time, op, count, datatype, root, rank, duration_us, status FROM events`
	var conds []string
	var args []interface{}

	if f.Op != "" {
		conds = append(conds, "op = ?")
		args = append(args, f.Op)
	}
	if f.Rank != nil {
		conds = append(conds, "rank = ?")
		args = append(args, *f.Rank)
	}
	if f.MinCount > 0 {
		conds = append(conds, "count >= ?")
		args = append(args, int64(f.MinCount))
	}
	if f.FailedOnly {
		conds = append(conds, "status != 0")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []trace.Event
	for rows.Next() {
		var ev trace.Event
		var count int64
		if err := rows.Scan(&ev.Time, &ev.Op, &count, &ev.Datatype, &ev.Root, &ev.Rank, &ev.DurationUS, &ev.Status); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Count = uint64(count)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
