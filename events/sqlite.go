package events

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteWriter stores events in a sqlite database. The record payload is the
// same JSON document the framed log carries, so both backends round-trip the
// identical event.
type sqliteWriter struct {
	db     *sql.DB
	insert *sql.Stmt
}

func newSqliteWriter(path string) (*sqliteWriter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event database: %v", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %v", err)
	}

	if err := initEventSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	insert, err := db.Prepare("INSERT INTO events (reporter_id, timestamp, value) VALUES (?, ?, ?)")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert: %v", err)
	}

	return &sqliteWriter{db: db, insert: insert}, nil
}

func initEventSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		event_id    INTEGER PRIMARY KEY AUTOINCREMENT,
		reporter_id INTEGER NOT NULL,
		timestamp   TEXT NOT NULL,
		value       TEXT NOT NULL
	);`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create events table: %v", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_events_reporter ON events(reporter_id);",
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %v", err)
		}
	}

	return nil
}

func (w *sqliteWriter) Write(event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %v", err)
	}

	_, err = w.insert.Exec(event.Rid, event.Timestamp.Format(time.RFC3339Nano), string(value))
	if err != nil {
		return fmt.Errorf("failed to insert event: %v", err)
	}
	return nil
}

func (w *sqliteWriter) Close() error {
	w.insert.Close()
	return w.db.Close()
}

// sqliteReader streams events back in insertion order.
type sqliteReader struct {
	db   *sql.DB
	rows *sql.Rows
}

func newSqliteReader(path string) (*sqliteReader, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event database: %v", err)
	}

	rows, err := db.Query("SELECT value FROM events ORDER BY event_id")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to query events: %v", err)
	}

	return &sqliteReader{db: db, rows: rows}, nil
}

func (r *sqliteReader) Read() (*Event, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read events: %v", err)
		}
		return nil, io.EOF
	}

	var value string
	if err := r.rows.Scan(&value); err != nil {
		return nil, fmt.Errorf("failed to scan event: %v", err)
	}

	var event Event
	if err := json.Unmarshal([]byte(value), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %v", err)
	}
	return &event, nil
}

func (r *sqliteReader) Close() error {
	r.rows.Close()
	return r.db.Close()
}
