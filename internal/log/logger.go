// Package log provides structured event logging.
// Events are appended as JSON lines to .programapi/log.jsonl and tagged
// with the run they belong to.
package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event type constants.
const (
	EventRunStarted       = "run_started"
	EventDownloadComplete = "download_complete"
	EventWarning          = "warning"
	EventRunFailed        = "run_failed"
	EventRunComplete      = "run_complete"
)

// LogEvent represents a single structured event written to the log.
type LogEvent struct {
	Time       time.Time              `json:"time"`
	Event      string                 `json:"event"`
	RunID      string                 `json:"run,omitempty"`
	EventName  string                 `json:"conference,omitempty"`
	Resource   string                 `json:"resource,omitempty"`
	Records    int                    `json:"records,omitempty"`
	Kind       string                 `json:"kind,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Codes      []string               `json:"codes,omitempty"`
	Error      string                 `json:"error,omitempty"`
	ErrorKind  string                 `json:"error_kind,omitempty"`
	Sessions   int                    `json:"sessions,omitempty"`
	Speakers   int                    `json:"speakers,omitempty"`
	Days       int                    `json:"days,omitempty"`
	Warnings   int                    `json:"warnings,omitempty"`
	DryRun     bool                   `json:"dry_run,omitempty"`
	Output     string                 `json:"output,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// FileName is the log file name inside the state directory.
const FileName = "log.jsonl"

// Logger writes append-only JSONL events to a log file.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a Logger that writes to .programapi/log.jsonl inside dir.
// Creates the .programapi/ directory if it does not already exist.
// Does not truncate an existing log file.
func NewLogger(dir string) (*Logger, error) {
	stateDir := filepath.Join(dir, ".programapi")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("create .programapi directory: %w", err)
	}
	return &Logger{path: filepath.Join(stateDir, FileName)}, nil
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.path
}

// Append writes event as one line. A zero Time is set to the current UTC
// time. Safe for concurrent use.
func (l *Logger) Append(event LogEvent) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("write log event: %w", err)
	}
	return f.Close()
}

// ReadAll parses every event in the log. A missing file yields no events.
// An unterminated last line, left by an interrupted write, is skipped.
func (l *Logger) ReadAll() ([]LogEvent, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return []LogEvent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	events := []LogEvent{}
	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var event LogEvent
		if err := json.Unmarshal(line, &event); err != nil {
			if i == len(lines)-1 {
				break
			}
			return nil, fmt.Errorf("parse log line %d: %w", i+1, err)
		}
		events = append(events, event)
	}
	return events, nil
}

// ReadRun returns the events of one run, in log order.
func (l *Logger) ReadRun(runID string) ([]LogEvent, error) {
	events, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	return ForRun(events, runID), nil
}

// ForRun returns the events of a single run, in log order.
func ForRun(events []LogEvent, runID string) []LogEvent {
	var out []LogEvent
	for _, e := range events {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out
}
