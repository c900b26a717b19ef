package storage

import (
	"context"
	"errors"
	"sync"
)

// Keys of the documents polyglot persists
const (
	KeyConfig        = "extra-config"
	KeyLastTranslate = "last-translate-data"
	KeyHistory       = "history-record"
)

// ErrClosed is returned by a backend after Close
var ErrClosed = errors.New("storage closed")

// Backend stores raw JSON documents by key
type Backend interface {
	// Get returns the document stored under key and whether it exists
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous document
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the document stored under key
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources
	Close() error
}

// Memory is an in-process Backend, used for ephemeral sessions and tests
type Memory struct {
	mu     sync.RWMutex
	docs   map[string][]byte
	closed bool
}

// NewMemory creates an empty in-memory backend
func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

// Get returns a copy of the document stored under key
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	data, ok := m.docs[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

// Set stores a copy of value under key
func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	data := make([]byte, len(value))
	copy(data, value)
	m.docs[key] = data
	return nil
}

// Delete removes key
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.docs, key)
	return nil
}

// Close marks the backend closed
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
