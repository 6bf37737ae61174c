package conversation

import (
	"fmt"
	"time"

	"github.com/docsight/backend/internal/chat"
)

// TimeLayout is the timestamp format used in the persisted log.
const TimeLayout = "2006-01-02 15:04:05"

// Entry is one persisted log row. The log is append-only and shared across
// sessions; ordering within a session is preserved, interleaving across
// sessions is not.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Role      chat.Role `json:"role"`
	Content   string    `json:"content"`
}

// PersistenceError reports a failed log write. The in-memory conversation is
// the source of truth for the active session, so callers log this and keep
// going rather than failing the turn.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("conversation log write failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is an append-only conversation log.
type Store interface {
	Append(entries []Entry) error
	LoadRecent(n int) ([]Entry, error)
	Close() error
}

// FromTurns converts chat turns into log entries.
func FromTurns(turns []chat.Turn) []Entry {
	entries := make([]Entry, len(turns))
	for i, t := range turns {
		entries[i] = Entry{
			Timestamp: t.Timestamp,
			Role:      t.Role,
			Content:   t.Content,
		}
	}
	return entries
}
