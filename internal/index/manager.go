package index

import (
	"context"
	"sync"
)

// BuildFunc constructs the process-wide index.
type BuildFunc func(ctx context.Context) (*Index, error)

// Manager guards the one-build-per-process invariant. Concurrent first-time
// access from multiple sessions shares a single Build; the result (or the
// failure) is cached for the remaining process lifetime.
type Manager struct {
	once  sync.Once
	build BuildFunc

	idx *Index
	err error
}

func NewManager(build BuildFunc) *Manager {
	return &Manager{build: build}
}

// Get returns the shared index, building it on first call. A build failure is
// sticky: every later Get reports the same error, since a degraded ungrounded
// index must never be substituted.
func (m *Manager) Get(ctx context.Context) (*Index, error) {
	m.once.Do(func() {
		m.idx, m.err = m.build(ctx)
	})
	return m.idx, m.err
}
