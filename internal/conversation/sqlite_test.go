package conversation

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsight/backend/internal/chat"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "conversations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreAppendAndLoad(t *testing.T) {
	store := newTestSQLiteStore(t)

	entries := []Entry{
		{Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), Role: chat.RoleUser, Content: "question"},
		{Timestamp: time.Date(2024, 3, 1, 10, 0, 3, 0, time.UTC), Role: chat.RoleAssistant, Content: "answer"},
	}
	require.NoError(t, store.Append(entries))

	loaded, err := store.LoadRecent(10)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, chat.RoleUser, loaded[0].Role)
	assert.Equal(t, "question", loaded[0].Content)
	assert.Equal(t, "answer", loaded[1].Content)
}

func TestSQLiteStoreLoadRecentOrdering(t *testing.T) {
	store := newTestSQLiteStore(t)

	// Same second for every row; insertion order must still win.
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, store.Append([]Entry{{Timestamp: ts, Role: chat.RoleUser, Content: content}}))
	}

	loaded, err := store.LoadRecent(2)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "second", loaded[0].Content)
	assert.Equal(t, "third", loaded[1].Content)
}

func TestSQLiteStoreAppendEmpty(t *testing.T) {
	store := newTestSQLiteStore(t)
	require.NoError(t, store.Append(nil))

	loaded, err := store.LoadRecent(10)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteStoreSystemEntries(t *testing.T) {
	store := newTestSQLiteStore(t)

	require.NoError(t, store.Append([]Entry{{
		Timestamp: time.Now(),
		Role:      chat.RoleSystem,
		Content:   "evaluation grounded=true score=0.91: answer cites context",
	}}))

	loaded, err := store.LoadRecent(1)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, chat.RoleSystem, loaded[0].Role)
}
