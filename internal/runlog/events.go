package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Event types written to the detail log.
const (
	EventRunStart = "run_start"
	EventCase     = "case"
	EventRunEnd   = "run_end"
)

// Event is one line of the detail log.
type Event struct {
	TS      string `json:"ts"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// EventLogger appends JSON lines to the detail log. The file is opened in
// append mode and never read back during a run.
type EventLogger struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
	now func() time.Time
}

// OpenEventLog opens (creating if needed) the detail log at path.
func OpenEventLog(path string) (*EventLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open detail log: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return &EventLogger{f: f, enc: enc, now: time.Now}, nil
}

// Log writes one event with the current UTC timestamp.
func (l *EventLogger) Log(eventType string, payload any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	ev := Event{
		TS:      l.now().UTC().Format(time.RFC3339Nano),
		Type:    eventType,
		Payload: payload,
	}
	if err := l.enc.Encode(ev); err != nil {
		return fmt.Errorf("failed to write %s event: %w", eventType, err)
	}
	return nil
}

// Close closes the underlying file.
func (l *EventLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
