package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"codeberg.org/snonux/polyglot/internal/storage"
	"codeberg.org/snonux/polyglot/internal/translation"
)

// ErrMockBackend is returned by a FailingBackend once writes are failing
var ErrMockBackend = errors.New("mock backend write failure")

// MockCompleter mocks the translation endpoint
type MockCompleter struct {
	Translations map[string]string
	Errors       map[string]error

	mu    sync.Mutex
	calls []translation.Request
}

// NewMockCompleter creates a completer answering from translations
func NewMockCompleter(translations map[string]string) *MockCompleter {
	return &MockCompleter{
		Translations: translations,
		Errors:       make(map[string]error),
	}
}

// Complete mocks a translation request
func (m *MockCompleter) Complete(ctx context.Context, req translation.Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if err, ok := m.Errors[req.Text]; ok {
		return "", err
	}

	if text, ok := m.Translations[req.Text]; ok {
		return text, nil
	}

	// Default mock translation
	return fmt.Sprintf("mock translation of %s", req.Text), nil
}

// Calls returns the requests seen so far
func (m *MockCompleter) Calls() []translation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]translation.Request(nil), m.calls...)
}

// GatedCompleter blocks every request until the test settles it, so tests
// can decide the order in which concurrent requests finish
type GatedCompleter struct {
	started chan *GatedCall
}

// GatedCall is one blocked request
type GatedCall struct {
	Request translation.Request
	settle  chan gatedResult
}

type gatedResult struct {
	text string
	err  error
}

// NewGatedCompleter creates a new gated completer
func NewGatedCompleter() *GatedCompleter {
	return &GatedCompleter{started: make(chan *GatedCall, 64)}
}

// Complete blocks until the call is settled or ctx is done
func (g *GatedCompleter) Complete(ctx context.Context, req translation.Request) (string, error) {
	call := &GatedCall{Request: req, settle: make(chan gatedResult, 1)}
	g.started <- call

	select {
	case r := <-call.settle:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Next waits for the next request to arrive
func (g *GatedCompleter) Next(t *testing.T) *GatedCall {
	t.Helper()

	select {
	case call := <-g.started:
		return call
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for a completion request")
		return nil
	}
}

// Succeed settles the call with text
func (c *GatedCall) Succeed(text string) {
	c.settle <- gatedResult{text: text}
}

// Fail settles the call with err
func (c *GatedCall) Fail(err error) {
	c.settle <- gatedResult{err: err}
}

// FailingBackend wraps a storage backend and fails writes on demand
type FailingBackend struct {
	storage.Backend

	mu        sync.Mutex
	failWrite bool
}

// NewFailingBackend wraps an in-memory backend
func NewFailingBackend() *FailingBackend {
	return &FailingBackend{Backend: storage.NewMemory()}
}

// FailWrites toggles write failures
func (f *FailingBackend) FailWrites(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrite = fail
}

// Set fails with ErrMockBackend while writes are failing
func (f *FailingBackend) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failWrite
	f.mu.Unlock()

	if fail {
		return ErrMockBackend
	}
	return f.Backend.Set(ctx, key, value)
}
