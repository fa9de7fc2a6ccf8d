package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Report is the output document of a run.
type Report struct {
	RunID      string   `json:"runId"`
	Statistics Snapshot `json:"statistics"`
	// Error and FaultyService repeat the crash, if any, at the top level.
	Error         string `json:"error,omitempty"`
	FaultyService string `json:"faultyService,omitempty"`
}

// NewReport builds the report for a run from its final snapshot.
func NewReport(runID string, snap Snapshot) Report {
	r := Report{RunID: runID, Statistics: snap}
	if snap.Crash != nil {
		r.Error = snap.Crash.Error
		r.FaultyService = snap.Crash.Service
	}
	return r
}

// WriteReport writes r to w as indented JSON.
func WriteReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteReportFile writes r to path, creating parent directories.
func WriteReportFile(path string, r Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := WriteReport(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
