// Package log provides testing utilities for structured logging.
//
// TestLogger captures log records in memory so tests can assert on what a
// component logged without redirecting process output.

package log

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// TestLogger is a Logger implementation that records messages in memory.
type TestLogger struct {
	mu      sync.Mutex
	level   Level
	fields  []any
	records *[]TestRecord
}

// TestRecord is a single captured log entry.
type TestRecord struct {
	Level   Level
	Message string
	Fields  []any
}

// NewTestLogger creates a TestLogger capturing records at or above level.
func NewTestLogger(level Level) *TestLogger {
	records := make([]TestRecord, 0)
	return &TestLogger{level: level, records: &records}
}

// Records returns a copy of the captured records.
func (t *TestLogger) Records() []TestRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TestRecord, len(*t.records))
	copy(out, *t.records)
	return out
}

// Contains reports whether any captured message contains substr.
func (t *TestLogger) Contains(substr string) bool {
	for _, r := range t.Records() {
		if strings.Contains(r.Message, substr) {
			return true
		}
	}
	return false
}

func (t *TestLogger) capture(level Level, msg string, fields []any) {
	if level < t.level {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	all := make([]any, 0, len(t.fields)+len(fields))
	all = append(all, t.fields...)
	all = append(all, fields...)
	*t.records = append(*t.records, TestRecord{Level: level, Message: msg, Fields: all})
}

// Debug implements Logger.Debug.
func (t *TestLogger) Debug(msg string, fields ...any) { t.capture(LevelDebug, msg, fields) }

// Info implements Logger.Info.
func (t *TestLogger) Info(msg string, fields ...any) { t.capture(LevelInfo, msg, fields) }

// Warn implements Logger.Warn.
func (t *TestLogger) Warn(msg string, fields ...any) { t.capture(LevelWarn, msg, fields) }

// Error implements Logger.Error.
func (t *TestLogger) Error(msg string, fields ...any) { t.capture(LevelError, msg, fields) }

// With implements Logger.With. The derived logger shares the record store.
func (t *TestLogger) With(fields ...any) Logger {
	t.mu.Lock()
	defer t.mu.Unlock()
	combined := make([]any, 0, len(t.fields)+len(fields))
	combined = append(combined, t.fields...)
	combined = append(combined, fields...)
	return &TestLogger{level: t.level, fields: combined, records: t.records}
}

// Enabled implements Logger.Enabled.
func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return level >= t.level
}

// String renders captured records, one per line, for test failure output.
func (t *TestLogger) String() string {
	var sb strings.Builder
	for _, r := range t.Records() {
		fmt.Fprintf(&sb, "%s %s %v\n", r.Level, r.Message, r.Fields)
	}
	return sb.String()
}
