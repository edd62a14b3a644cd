// Package audit persists delivery outcomes as an append-only record.
//
// The store is deliberately dumb: one JSON object per line, appended
// under a mutex, read back in full. Filtering, sorting and limiting are
// the reader's job.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const logFileName = "deliveries.jsonl"

// Entry is the persisted form of one delivery outcome.
type Entry struct {
	ID         string    `json:"id"`
	Recipient  string    `json:"recipient"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RelayID    string    `json:"relayId"`
	TemplateID string    `json:"templateId,omitempty"`
}

// Log is an append-only delivery log backed by a JSONL file. Appends
// are serialized by a mutex so concurrent dispatch operations never
// interleave records.
type Log struct {
	mu   sync.Mutex
	path string
}

// Open prepares the log directory and returns a Log writing to it.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	return &Log{path: filepath.Join(dir, logFileName)}, nil
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Append writes one entry to the end of the log.
func (l *Log) Append(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ReadAll returns every entry in write order. A log that does not exist
// yet reads as empty. Malformed lines are skipped with a warning.
func (l *Log) ReadAll() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	entries := []Entry{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			slog.Warn("skipping malformed audit log line", "line", line, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return entries, nil
}
