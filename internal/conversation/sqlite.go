package conversation

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/docsight/backend/internal/chat"
	"github.com/docsight/backend/pkg/logger"
)

// SQLiteStore persists the conversation log in a local SQLite database.
// Row ids give a stable total order even when two sessions write within the
// same second.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, &PersistenceError{Err: fmt.Errorf("failed to create database directory: %w", err)}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, &PersistenceError{Err: fmt.Errorf("failed to open database: %w", err)}
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, &PersistenceError{Err: fmt.Errorf("failed to enable WAL mode: %w", err)}
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	logger.Info("Conversation log opened", zap.String("path", dbPath), zap.String("backend", "sqlite"))

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversation_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_log_timestamp ON conversation_log(timestamp);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return &PersistenceError{Err: fmt.Errorf("failed to initialize schema: %w", err)}
	}

	return nil
}

func (s *SQLiteStore) Append(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &PersistenceError{Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO conversation_log (timestamp, role, content) VALUES (?, ?, ?)")
	if err != nil {
		return &PersistenceError{Err: err}
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Timestamp.Format(TimeLayout), string(e.Role), e.Content); err != nil {
			return &PersistenceError{Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Err: err}
	}

	return nil
}

func (s *SQLiteStore) LoadRecent(n int) ([]Entry, error) {
	if n <= 0 {
		n = 50
	}

	rows, err := s.db.Query(
		"SELECT timestamp, role, content FROM conversation_log ORDER BY id DESC LIMIT ?", n)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var ts, role, content string
		if err := rows.Scan(&ts, &role, &content); err != nil {
			return nil, &PersistenceError{Err: err}
		}

		parsed, err := time.Parse(TimeLayout, ts)
		if err != nil {
			return nil, &PersistenceError{Err: err}
		}

		entries = append(entries, Entry{
			Timestamp: parsed,
			Role:      chat.Role(role),
			Content:   content,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Err: err}
	}

	// Newest-first from the query; callers expect chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
