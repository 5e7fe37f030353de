package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"vpnarch/internal/fileutil"
)

// DefaultMaxEntries bounds the history file.
const DefaultMaxEntries = 200

const historyFile = "history.json"

// Logger stores generation history in a JSON file.
type Logger struct {
	path       string
	maxEntries int

	mu      sync.RWMutex
	entries []*Entry
}

// Stats summarizes the history.
type Stats struct {
	Total      int
	Completed  int
	Failed     int
	ByProtocol map[string]int
}

// NewLogger opens the history stored in dir, creating it on first write.
// A corrupt file is replaced.
func NewLogger(dir string, maxEntries int) (*Logger, error) {
	if dir == "" {
		return nil, errors.New("history: empty directory")
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	l := &Logger{
		path:       filepath.Join(dir, historyFile),
		maxEntries: maxEntries,
	}
	if err := l.load(); err != nil && !os.IsNotExist(err) {
		l.entries = nil
	}
	return l, nil
}

// Path returns the history file path.
func (l *Logger) Path() string {
	return l.path
}

// Log appends an entry and saves the history.
func (l *Logger) Log(entry *Entry) error {
	if entry == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[len(l.entries)-l.maxEntries:]
	}
	return l.saveLocked()
}

// Recent returns up to n entries, newest first.
func (l *Logger) Recent(n int) []*Entry {
	if n <= 0 {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	n = min(n, len(l.entries))
	result := make([]*Entry, 0, n)
	for i := len(l.entries) - 1; i >= len(l.entries)-n; i-- {
		result = append(result, l.entries[i])
	}
	return result
}

// Len returns the number of stored entries.
func (l *Logger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Stats returns history statistics.
func (l *Logger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Stats{ByProtocol: make(map[string]int)}
	for _, e := range l.entries {
		stats.Total++
		if e.Succeeded() {
			stats.Completed++
		} else {
			stats.Failed++
		}
		stats.ByProtocol[e.Protocol]++
	}
	return stats
}

// Clear removes all entries and the history file.
func (l *Logger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (l *Logger) load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return err
	}
	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	l.entries = entries
	return nil
}

func (l *Logger) saveLocked() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.AtomicWrite(l.path, data, 0o600)
}
