package stats

import (
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// Store persists run snapshots.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores the snapshot of a run, replacing any earlier one.
	Save(runID string, snap Snapshot) error

	// Load retrieves the snapshot of a run.
	// Returns ErrNotFound if the run was never saved.
	Load(runID string) (Snapshot, error)

	// Runs lists saved runs, oldest run ID first.
	// Returns an empty slice (not error) if nothing was saved.
	Runs() ([]RunInfo, error)

	// Delete removes a run. Returns nil if the run doesn't exist.
	Delete(runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// RunInfo describes a saved run without loading its counters.
type RunInfo struct {
	RunID         string
	SavedAt       time.Time
	SystemRuntime int
	Crashed       bool
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a run was never saved.
	ErrNotFound = errors.New("run not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("stats store closed")
)

// NewRunID returns a new run identifier. IDs sort in creation order.
func NewRunID() string {
	return ulid.Make().String()
}
