package stats

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string]storedRun
	closed bool
}

type storedRun struct {
	snap    Snapshot
	savedAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]storedRun)}
}

// Save implements Store.
func (m *MemoryStore) Save(runID string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	// Copy to avoid retaining the caller's map.
	snap.Counters = maps.Clone(snap.Counters)
	if snap.Crash != nil {
		c := *snap.Crash
		snap.Crash = &c
	}
	m.runs[runID] = storedRun{snap: snap, savedAt: time.Now().UTC()}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(runID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Snapshot{}, ErrStoreClosed
	}

	run, ok := m.runs[runID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	snap := run.snap
	snap.Counters = maps.Clone(snap.Counters)
	return snap, nil
}

// Runs implements Store.
func (m *MemoryStore) Runs() ([]RunInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]RunInfo, 0, len(m.runs))
	for id, run := range m.runs {
		infos = append(infos, RunInfo{
			RunID:         id,
			SavedAt:       run.savedAt,
			SystemRuntime: run.snap.SystemRuntime,
			Crashed:       run.snap.Crash != nil,
		})
	}
	slices.SortFunc(infos, func(a, b RunInfo) int { return strings.Compare(a.RunID, b.RunID) })
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.runs, runID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.runs = nil
	return nil
}
