package stats

import (
	"maps"
	"sync"
)

// Crash describes the service failure that ended a run.
type Crash struct {
	Service string `json:"faultyService"`
	Error   string `json:"error"`
}

// Snapshot is a point-in-time copy of a Folder.
type Snapshot struct {
	SystemRuntime int              `json:"systemRuntime"`
	Counters      map[string]int64 `json:"counters"`
	Crash         *Crash           `json:"crash,omitempty"`
}

// Counter returns the named counter, or 0 if it was never incremented.
func (s Snapshot) Counter(name string) int64 {
	return s.Counters[name]
}

// Folder accumulates statistics for one run. It is safe for concurrent use.
type Folder struct {
	mu       sync.Mutex
	runtime  int
	counters map[string]int64
	crash    *Crash
}

// NewFolder creates an empty folder.
func NewFolder() *Folder {
	return &Folder{counters: make(map[string]int64)}
}

// IncrementRuntime advances the system runtime by one tick.
func (f *Folder) IncrementRuntime() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runtime++
}

// Add adds delta to the named counter.
func (f *Folder) Add(name string, delta int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[name] += delta
}

// RecordCrash stores c unless a crash was already recorded.
func (f *Folder) RecordCrash(c Crash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.crash == nil {
		f.crash = &c
	}
}

// Snapshot copies the current state.
func (f *Folder) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := Snapshot{
		SystemRuntime: f.runtime,
		Counters:      maps.Clone(f.counters),
	}
	if f.crash != nil {
		c := *f.crash
		snap.Crash = &c
	}
	return snap
}
