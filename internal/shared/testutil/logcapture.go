package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogRecord represents a captured log record for testing
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type sink struct {
	mu      sync.Mutex
	records []LogRecord
}

// Recorder is a slog.Handler that keeps every record in memory. Handlers
// derived through WithAttrs share the parent's records.
type Recorder struct {
	sink   *sink
	attrs  []slog.Attr
	prefix string
	t      *testing.T
}

// NewRecorder creates a recorder. When t is non-nil every record is also
// echoed with t.Logf.
func NewRecorder(t *testing.T) *Recorder {
	return &Recorder{sink: &sink{}, t: t}
}

// NewTestLogger creates a logger backed by a fresh Recorder
func NewTestLogger(t *testing.T) (*slog.Logger, *Recorder) {
	rec := NewRecorder(t)
	return slog.New(rec), rec
}

// Enabled implements slog.Handler
func (h *Recorder) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler
func (h *Recorder) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.prefix+a.Key] = a.Value.Any()
		return true
	})

	h.sink.mu.Lock()
	h.sink.records = append(h.sink.records, LogRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	h.sink.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler. Keys are qualified with the groups
// open at the time of the call.
func (h *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Any(h.prefix+a.Key, a.Value.Any()))
	}
	return &next
}

// WithGroup implements slog.Handler. Group names become dotted key prefixes.
func (h *Recorder) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// Records returns a copy of all captured records
func (h *Recorder) Records() []LogRecord {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return append([]LogRecord(nil), h.sink.records...)
}

// ByLevel returns the captured records at level
func (h *Recorder) ByLevel(level slog.Level) []LogRecord {
	var filtered []LogRecord
	for _, r := range h.Records() {
		if r.Level == level {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Find returns the records whose message contains substr
func (h *Recorder) Find(substr string) []LogRecord {
	var found []LogRecord
	for _, r := range h.Records() {
		if strings.Contains(r.Message, substr) {
			found = append(found, r)
		}
	}
	return found
}

// Reset drops all captured records
func (h *Recorder) Reset() {
	h.sink.mu.Lock()
	h.sink.records = nil
	h.sink.mu.Unlock()
}

// AssertLogged fails t unless a record at level contains message
func AssertLogged(t *testing.T, h *Recorder, level slog.Level, message string) {
	t.Helper()

	records := h.ByLevel(level)
	for _, r := range records {
		if strings.Contains(r.Message, message) {
			return
		}
	}

	t.Errorf("expected %s log containing %q", level, message)
	for _, r := range records {
		t.Logf("  - %s", r.Message)
	}
}

// AssertNoErrors fails t if any error-level record was captured
func AssertNoErrors(t *testing.T, h *Recorder) {
	t.Helper()

	for _, r := range h.ByLevel(slog.LevelError) {
		t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
	}
}
