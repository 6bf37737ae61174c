package conversation

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docsight/backend/internal/chat"
	"github.com/docsight/backend/pkg/logger"
)

// CSVStore appends turns to a flat CSV file, one row per turn:
// timestamp, role, content. The file is opened per write so an external
// rotation or truncation between turns is picked up automatically.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

func NewCSVStore(path string) (*CSVStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &PersistenceError{Err: fmt.Errorf("failed to create log directory %s: %w", dir, err)}
	}

	logger.Info("Conversation log opened", zap.String("path", path), zap.String("backend", "csv"))

	return &CSVStore{path: path}, nil
}

func (s *CSVStore) Append(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &PersistenceError{Err: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, e := range entries {
		row := []string{e.Timestamp.Format(TimeLayout), string(e.Role), e.Content}
		if err := w.Write(row); err != nil {
			return &PersistenceError{Err: err}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return &PersistenceError{Err: err}
	}

	return nil
}

func (s *CSVStore) LoadRecent(n int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &PersistenceError{Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3

	rows, err := r.ReadAll()
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	if n > 0 && len(rows) > n {
		rows = rows[len(rows)-n:]
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(TimeLayout, row[0])
		if err != nil {
			return nil, &PersistenceError{Err: fmt.Errorf("malformed timestamp %q: %w", row[0], err)}
		}
		entries = append(entries, Entry{
			Timestamp: ts,
			Role:      chat.Role(row[1]),
			Content:   row[2],
		})
	}

	return entries, nil
}

func (s *CSVStore) Close() error { return nil }
