// Package log provides structured event logging.
// This file appends JSON events to log.jsonl.
package log

import (
	"bufio"
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
	EventSessionStarted   = "session_started"
	EventSessionResumed   = "session_resumed"
	EventAnswerRecorded   = "answer_recorded"
	EventAnswerRetracted  = "answer_retracted"
	EventPhaseChanged     = "phase_changed"
	EventBatchReceived    = "batch_received"
	EventStageInterrupted = "stage_interrupted"
	EventStaleReply       = "stale_reply"
	EventRequestFailed    = "request_failed"
	EventCheckpointFailed = "checkpoint_failed"
	EventSessionComplete  = "session_complete"
	EventSessionAbandoned = "session_abandoned"
	EventReportSaved      = "report_saved"
)

// LogEvent represents a single structured event written to the log.
type LogEvent struct {
	Time       time.Time              `json:"time"`
	Event      string                 `json:"event"`
	SessionID  string                 `json:"session,omitempty"`
	Tier       string                 `json:"tier,omitempty"`
	Mode       string                 `json:"mode,omitempty"`
	Phase      string                 `json:"phase,omitempty"`
	QuestionID string                 `json:"question,omitempty"`
	Score      *int                   `json:"score,omitempty"`
	Responses  int                    `json:"responses,omitempty"`
	Questions  int                    `json:"questions,omitempty"`
	Total      int                    `json:"total,omitempty"`
	Stage      string                 `json:"stage,omitempty"`
	Op         string                 `json:"op,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Path       string                 `json:"path,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Logger writes append-only JSONL events to a log file.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a Logger that writes to log.jsonl inside stateDir.
// Creates stateDir if it does not already exist.
// Does not truncate an existing log file.
func NewLogger(stateDir string) (*Logger, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	return &Logger{
		path: filepath.Join(stateDir, "log.jsonl"),
	}, nil
}

// Append writes a single LogEvent as one JSON line to the log file.
// If event.Time is the zero value, it is automatically set to time.Now().UTC().
// The file is opened in append mode, written to, and then closed.
// Thread-safe via mutex.
func (l *Logger) Append(event LogEvent) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write log event: %w", err)
	}

	return nil
}

// ReadAll reads and parses all events from the log file.
// Returns an empty slice (not an error) if the file does not exist.
func (l *Logger) ReadAll() ([]LogEvent, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []LogEvent{}, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var events []LogEvent
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event LogEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	return events, nil
}

// SessionEvents returns the events logged for one session, in order.
func (l *Logger) SessionEvents(sessionID string) ([]LogEvent, error) {
	all, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []LogEvent
	for _, e := range all {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Discard is an event sink that drops everything.
type Discard struct{}

// Append implements the event sink interface and does nothing.
func (Discard) Append(LogEvent) error { return nil }
