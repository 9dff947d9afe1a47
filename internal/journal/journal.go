// Package journal keeps a local SQLite log of the backend calls made by
// the client. It is diagnostic only; backend entities are never stored.
package journal

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/studiowebux/sheetdesk/internal/executor"
	"github.com/studiowebux/sheetdesk/internal/migrations"
)

const timestampLayout = "2006-01-02 15:04:05.000"

// Entry is one recorded call.
type Entry struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Profile      string        `json:"profile"`
	Method       string        `json:"method"`
	URL          string        `json:"url"`
	Status       int           `json:"status"`
	Duration     time.Duration `json:"duration"`
	RequestSize  int           `json:"requestSize"`
	ResponseSize int           `json:"responseSize"`
	Error        string        `json:"error,omitempty"`
}

// Failed reports whether the call errored or returned a non-2xx status.
func (e Entry) Failed() bool {
	return e.Error != "" || !executor.IsSuccessStatus(e.Status)
}

type Manager struct {
	db      *sql.DB
	profile string
	logger  *slog.Logger
}

// Open opens (creating if needed) the journal at dbPath. ":memory:" is accepted.
func Open(dbPath, profile string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	// Records arrive from concurrent fetches; one connection keeps :memory: coherent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal database: %w", err)
	}
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Manager{db: db, profile: profile, logger: logger}, nil
}

// Record implements executor.Recorder. Failures are logged, never returned:
// the journal must not break a request.
func (m *Manager) Record(call executor.Call) {
	var errText sql.NullString
	if call.Err != nil {
		errText = sql.NullString{String: call.Err.Error(), Valid: true}
	}

	_, err := m.db.Exec(`
		INSERT INTO journal (
			id, timestamp, profile_name, method, url, status,
			duration_ms, request_size, response_size, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		call.StartedAt.Local().Format(timestampLayout),
		m.profile,
		call.Method,
		call.URL,
		call.Status,
		call.Duration.Milliseconds(),
		call.RequestSize,
		call.ResponseSize,
		errText,
	)
	if err != nil {
		m.logger.Warn("journal write failed", "method", call.Method, "url", call.URL, "error", err)
	}
}

// Query selects journal entries.
type Query struct {
	Limit      int
	FailedOnly bool
	AllProfile bool
}

// Recent returns entries newest first.
func (m *Manager) Recent(q Query) ([]Entry, error) {
	stmt := `
		SELECT id, timestamp, profile_name, method, url, status,
		       duration_ms, request_size, response_size, COALESCE(error, '')
		FROM journal
		WHERE (? OR profile_name = ?)
		  AND (NOT ? OR error IS NOT NULL OR status < 200 OR status >= 300)
		ORDER BY timestamp DESC, rowid DESC
	`
	args := []any{q.AllProfile, m.profile, q.FailedOnly}
	if q.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := m.db.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			ts         string
			durationMs int64
		)
		if err := rows.Scan(&e.ID, &ts, &e.Profile, &e.Method, &e.URL, &e.Status,
			&durationMs, &e.RequestSize, &e.ResponseSize, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Timestamp, _ = time.ParseInLocation(timestampLayout, ts, time.Local)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear removes the entries of the manager's profile.
func (m *Manager) Clear() (int64, error) {
	res, err := m.db.Exec("DELETE FROM journal WHERE profile_name = ?", m.profile)
	if err != nil {
		return 0, fmt.Errorf("failed to clear journal: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of entries of the manager's profile.
func (m *Manager) Count() (int, error) {
	var count int
	err := m.db.QueryRow("SELECT COUNT(*) FROM journal WHERE profile_name = ?", m.profile).Scan(&count)
	return count, err
}

func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
