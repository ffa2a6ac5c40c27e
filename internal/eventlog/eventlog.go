// Package eventlog records the lifecycle of each probe invocation as
// newline-delimited JSON, one file per day. The event log is observability
// only; the ledger remains the source of truth.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event types emitted during a probe invocation.
const (
	EventProbeStarted   = "probe_started"
	EventResponse       = "response_received"
	EventRawFiled       = "raw_filed"
	EventLedgerAppended = "ledger_appended"
	EventCursorAdvanced = "cursor_advanced"
	EventExhausted      = "schedule_exhausted"
	EventFailure        = "failure"
)

// Event is one NDJSON line.
type Event struct {
	Time     time.Time `json:"ts"`
	Type     string    `json:"type"`
	UID      string    `json:"uid,omitempty"`
	Group    string    `json:"group,omitempty"`
	Rotation int       `json:"rotation"`
	Cursor   int       `json:"cursor"`
	Detail   string    `json:"detail,omitempty"`
}

// Logger is the event sink interface.
type Logger interface {
	Log(event Event) error
	Close() error
}

// JSONLogger appends NDJSON events to a file.
type JSONLogger struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	path string
}

// NewJSONLogger opens (or creates) an NDJSON event log at path. Parent
// directories are created automatically.
func NewJSONLogger(path string) (*JSONLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("eventlog: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	return &JSONLogger{file: f, enc: json.NewEncoder(f), path: path}, nil
}

// Log writes one event as a single JSON line.
func (l *JSONLogger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	return l.enc.Encode(event)
}

// Close flushes and closes the underlying file.
func (l *JSONLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Path returns the log file path.
func (l *JSONLogger) Path() string { return l.path }

// DefaultPath returns the per-day event log path inside dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, time.Now().UTC().Format("20060102")+"-events.jsonl")
}

// NopLogger discards all events.
type NopLogger struct{}

// Log is a no-op.
func (NopLogger) Log(Event) error { return nil }

// Close is a no-op.
func (NopLogger) Close() error { return nil }
