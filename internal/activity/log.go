// Package activity maintains the append-only, human-readable history of a
// cluster's lifecycle transitions.
package activity

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/vietdv277/cirrus/pkg/types"
)

// FileName is the name of the activity log inside a cluster directory
const FileName = "activity.log"

// Log is the activity log of a single cluster. A Log holds no state
// besides its path: every line goes out in a single O_APPEND write, so any
// number of Log values may append to the same file.
type Log struct {
	path string
	now  func() time.Time
}

// Option configures a Log
type Option func(*Log)

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// New returns the log stored at path
func New(path string, opts ...Option) *Log {
	l := &Log{path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the file backing the log
func (l *Log) Path() string {
	return l.path
}

// Append writes one "<RFC3339 UTC> <message>" line
func (l *Log) Append(message string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open activity log: %w", err)
	}

	line := l.now().UTC().Format(time.RFC3339) + " " + flatten(message) + "\n"
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	return f.Close()
}

// Appendf formats and appends a message
func (l *Log) Appendf(format string, args ...interface{}) error {
	return l.Append(fmt.Sprintf(format, args...))
}

// Lines returns the raw log lines in file order. A missing log is empty.
func (l *Log) Lines() ([]string, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open activity log: %w", err)
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity log: %w", err)
	}
	return lines, nil
}

// Read returns the parsed records in file order
func (l *Log) Read() ([]types.ActivityRecord, error) {
	lines, err := l.Lines()
	if err != nil {
		return nil, err
	}

	records := make([]types.ActivityRecord, 0, len(lines))
	for _, line := range lines {
		records = append(records, ParseLine(line))
	}
	return records, nil
}

// ParseLine splits a log line into its timestamp and message. Lines without
// a valid timestamp keep their full text as the message.
func ParseLine(line string) types.ActivityRecord {
	ts, msg, found := strings.Cut(line, " ")
	if found {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return types.ActivityRecord{Time: t, Message: msg}
		}
	}
	return types.ActivityRecord{Message: line}
}

func flatten(message string) string {
	return strings.Join(strings.FieldsFunc(message, func(r rune) bool {
		return r == '\n' || r == '\r'
	}), " ")
}
