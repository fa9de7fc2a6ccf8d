package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSettings indicates settings that cannot drive a run.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings configures a microbus application run.
type Settings struct {
	// TickInterval is the time between clock ticks.
	TickInterval time.Duration
	// Duration is the number of ticks before the clock ends the run.
	Duration int
	// Workers is the number of services sharing the work event type.
	Workers int
	// StatsDB is the SQLite file statistics are saved to. Empty disables
	// persistence.
	StatsDB string
	// ReportPath is where the JSON run report is written. Empty disables
	// the report.
	ReportPath string
	// LogLevel is the minimum level logged.
	LogLevel slog.Level
	// Metrics enables OpenTelemetry metrics.
	Metrics bool
	// Tracing enables a span per handled message.
	Tracing bool
}

// Defaults returns the settings used for every key a file leaves out.
func Defaults() Settings {
	return Settings{
		TickInterval: 100 * time.Millisecond,
		Duration:     10,
		Workers:      3,
		ReportPath:   "report.json",
		LogLevel:     slog.LevelInfo,
	}
}

// decoders maps a file extension to the format that reads it.
var decoders = map[string]func([]byte, any) error{
	".yaml": yaml.Unmarshal,
	".yml":  yaml.Unmarshal,
	".json": json.Unmarshal,
}

// FromFile loads and validates settings, picking the format by extension.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Settings, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return Settings{}, fmt.Errorf("load %s: unsupported extension %q", path, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("load %s: %w", path, err)
	}
	s, err := parse(data, decode, strings.TrimPrefix(ext, "."))
	if err != nil {
		return Settings{}, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

// FromYAML parses and validates YAML settings. Missing keys keep their
// Defaults.
func FromYAML(data []byte) (Settings, error) {
	return parse(data, yaml.Unmarshal, "yaml")
}

// FromJSON parses and validates JSON settings. Missing keys keep their
// Defaults.
func FromJSON(data []byte) (Settings, error) {
	return parse(data, json.Unmarshal, "json")
}

func parse(data []byte, decode func([]byte, any) error, format string) (Settings, error) {
	var m map[string]any
	if err := decode(data, &m); err != nil {
		return Settings{}, fmt.Errorf("parse %s: %w", format, err)
	}
	s := fromValues(m)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func fromValues(m map[string]any) Settings {
	v := values(m)
	d := Defaults()
	return Settings{
		TickInterval: v.durationValue("tick_interval", d.TickInterval),
		Duration:     v.intValue("duration", d.Duration),
		Workers:      v.intValue("workers", d.Workers),
		StatsDB:      v.stringValue("stats_db", d.StatsDB),
		ReportPath:   v.stringValue("report_path", d.ReportPath),
		LogLevel:     v.levelValue("log_level", d.LogLevel),
		Metrics:      v.boolValue("metrics", d.Metrics),
		Tracing:      v.boolValue("tracing", d.Tracing),
	}
}

// Validate checks that the settings can drive a run.
func (s Settings) Validate() error {
	var errs []error
	if s.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %s", s.TickInterval))
	}
	if s.Duration < 1 {
		errs = append(errs, fmt.Errorf("duration must be at least 1 tick, got %d", s.Duration))
	}
	if s.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", s.Workers))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}
