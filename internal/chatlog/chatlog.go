// Package chatlog persists chat interactions as JSON lines for later
// review. Each record captures who asked, what was asked, and how the
// assistant replied.
package chatlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/querydesk/querydesk/pkg/ticket"
)

// Record is one logged chat interaction
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Role      string    `json:"role"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Turns     int       `json:"turns"`
	Tokens    int       `json:"tokens"`
}

// Log appends chat records to a JSONL file
type Log struct {
	mu   sync.Mutex
	path string
}

// Open creates the log directory if needed and returns a Log
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create chat log directory: %w", err)
	}
	return &Log{path: path}, nil
}

// Append writes one interaction. The record ID and timestamp are
// assigned here.
func (l *Log) Append(id ticket.Identity, question, answer string, turns, tokens int) (Record, error) {
	rec := Record{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		User:      id.Name,
		Role:      string(id.Role),
		Question:  question,
		Answer:    answer,
		Turns:     turns,
		Tokens:    tokens,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode chat record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return Record{}, fmt.Errorf("failed to open chat log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return Record{}, fmt.Errorf("failed to write chat record: %w", err)
	}
	return rec, nil
}

// Recent returns up to n most recent records, newest last.
func (l *Log) Recent(n int) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chat log: %w", err)
	}

	var records []Record
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			break
		}
		records = append(records, rec)
	}

	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}
