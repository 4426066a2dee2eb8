// Package history keeps an append-only JSONL record of queries, expansions
// and chats so past explorations can be listed and searched.
package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry is one recorded action.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Text      string    `json:"text,omitempty"`
	Node      string    `json:"node,omitempty"`
	Nodes     int       `json:"nodes,omitempty"`
	Edges     int       `json:"edges,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Log is a history file.
type Log struct {
	path string
}

// Open returns the log at path. The file is created on first append.
func Open(path string) *Log {
	return &Log{path: path}
}

// Path returns the file location.
func (l *Log) Path() string { return l.path }

// Append writes e, stamping it with the current time when unset.
func (l *Log) Append(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(f, "%s\n", data)
	return err
}

// Read returns up to count entries, newest first. count <= 0 returns all.
// Malformed lines are skipped.
func (l *Log) Read(count int) ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if json.Unmarshal(line, &e) == nil {
			entries = append(entries, e)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if count > 0 && len(entries) > count {
		entries = entries[:count]
	}
	return entries, nil
}

// Search returns up to count entries whose action, text or node contains
// query, case-insensitively.
func (l *Log) Search(query string, count int) ([]Entry, error) {
	all, err := l.Read(0)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var results []Entry
	for _, e := range all {
		if contains(e.Action, q) || contains(e.Text, q) || contains(e.Node, q) {
			results = append(results, e)
			if count > 0 && len(results) >= count {
				break
			}
		}
	}
	return results, nil
}

// Clear removes all entries.
func (l *Log) Clear() error {
	err := os.Remove(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func contains(s, lowerSub string) bool {
	return strings.Contains(strings.ToLower(s), lowerSub)
}
