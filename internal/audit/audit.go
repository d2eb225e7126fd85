// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package audit collects the human-readable feedback log of a pipeline run.
// Stages write progress lines to an io.Writer; Log records each line as one
// entry so the complete decision trail can be returned with the result.
package audit

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
)

// Log is an io.Writer that records each written line. It is safe for
// concurrent writers; a line is committed when its newline arrives.
type Log struct {
	mu      sync.Mutex
	entries []string
	partial bytes.Buffer
	logger  *slog.Logger
}

// New returns an empty Log. When logger is non-nil every committed entry is
// mirrored to it at debug level.
func New(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Write implements io.Writer.
func (l *Log) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.partial.Write(p)
	for {
		line, err := l.partial.ReadString('\n')
		if err != nil {
			// No newline yet: keep the fragment for the next write.
			l.partial.Reset()
			l.partial.WriteString(line)
			break
		}
		l.commit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush commits any buffered fragment that has no trailing newline.
func (l *Log) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.partial.Len() > 0 {
		l.commit(l.partial.String())
		l.partial.Reset()
	}
}

func (l *Log) commit(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	l.entries = append(l.entries, line)
	if l.logger != nil {
		l.logger.Debug(line)
	}
}

// Entries returns a copy of the committed entries in write order.
func (l *Log) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// String returns the entries joined by newlines, including any pending fragment.
func (l *Log) String() string {
	l.Flush()
	return strings.Join(l.Entries(), "\n")
}
