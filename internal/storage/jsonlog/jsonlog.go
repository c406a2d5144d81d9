package jsonlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// DefaultLimit caps each log at its most recent entries, oldest evicted first.
const DefaultLimit = 100

// Log is an append-only, size-bounded JSON array on disk. A missing, empty or
// malformed file is treated as an empty collection rather than an error, so a
// crash mid-write costs at most the bounded history, never the process.
// Writes go through a temp file and rename, so readers never observe a
// partially written file.
type Log struct {
	mu    sync.Mutex
	path  string
	limit int
}

func New(path string) *Log {
	return &Log{path: path, limit: DefaultLimit}
}

// Append adds record to the log and evicts the oldest entries beyond the
// bound. The returned error is for reporting only; callers keep cycling.
func (l *Log) Append(record any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.readLocked()

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "encode log record")
	}
	entries = append(entries, payload)

	if len(entries) > l.limit {
		entries = entries[len(entries)-l.limit:]
	}

	return l.writeLocked(entries)
}

// Entries returns the current log content, newest last. Unreadable content
// yields an empty slice, matching Append's recovery behavior.
func (l *Log) Entries() []json.RawMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readLocked()
}

func (l *Log) readLocked() []json.RawMessage {
	payload, err := os.ReadFile(l.path)
	if err != nil || len(payload) == 0 {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(payload, &entries); err != nil {
		// Corrupt history resets to empty; the log is an audit aid, not a ledger.
		return nil
	}
	return entries
}

func (l *Log) writeLocked(entries []json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.Wrap(err, "create log dir")
	}

	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode log")
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write log temp file")
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return errors.Wrap(err, "persist log")
	}
	return nil
}

// Set bundles the three independent sinks the bot writes and the dashboard
// reads. Each log carries its own lock, so writers for different sinks never
// serialize against each other.
type Set struct {
	Prices        *Log
	Opportunities *Log
	Trades        *Log
}

func NewSet(dir string) *Set {
	return &Set{
		Prices:        New(filepath.Join(dir, "prices.json")),
		Opportunities: New(filepath.Join(dir, "opportunities.json")),
		Trades:        New(filepath.Join(dir, "trades.json")),
	}
}
