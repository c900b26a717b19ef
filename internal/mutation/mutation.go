package mutation

import (
	"context"
	"sort"
	"sync"

	"codeberg.org/snonux/polyglot/internal/translation"
)

// Status of the tracked call
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the observable view of the latest call
type State struct {
	Loading   bool   `json:"loading"`
	Error     bool   `json:"error"`
	Result    string `json:"result,omitempty"`
	HasResult bool   `json:"hasResult"`
	Seq       uint64 `json:"seq"`

	// Request that produced this state
	Request translation.Request `json:"-"`
	// Err is the failure reported by the completer
	Err error `json:"-"`
}

// Status derives the status from the flags
func (s State) Status() Status {
	switch {
	case s.Loading:
		return StatusLoading
	case s.Error:
		return StatusFailed
	case s.HasResult:
		return StatusSucceeded
	default:
		return StatusIdle
	}
}

// Call is the handle of one issued request
type Call struct {
	Seq uint64

	done   chan struct{}
	result string
	err    error
}

// Done is closed once the call has settled and the state transition, if
// any, has been published
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call settles or ctx is done. The outcome is
// returned even when a newer call superseded this one.
func (c *Call) Wait(ctx context.Context) (string, error) {
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Mutator issues translation requests and tracks the latest one
type Mutator struct {
	completer translation.Completer

	// notifyMu keeps transitions and their notifications in issue order.
	// Subscribers must not call Translate synchronously.
	notifyMu sync.Mutex

	mu      sync.Mutex
	seq     uint64
	state   State
	subs    map[int]func(State)
	nextSub int
}

// New creates a mutator sending requests through completer
func New(completer translation.Completer) *Mutator {
	return &Mutator{
		completer: completer,
		subs:      make(map[int]func(State)),
	}
}

// State returns the current observable state
func (m *Mutator) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Translate issues req asynchronously and makes it the tracked call. The
// request runs with ctx; superseding it does not cancel it.
func (m *Mutator) Translate(ctx context.Context, req translation.Request) *Call {
	m.notifyMu.Lock()
	m.mu.Lock()
	m.seq++
	call := &Call{Seq: m.seq, done: make(chan struct{})}
	m.state = State{Loading: true, Seq: call.Seq, Request: req}
	st, subs := m.state, m.subscribersLocked()
	m.mu.Unlock()

	notify(subs, st)
	m.notifyMu.Unlock()

	go m.run(ctx, call, req)
	return call
}

// Subscribe registers fn for every state transition. The returned
// function removes the subscription.
func (m *Mutator) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Mutator) run(ctx context.Context, call *Call, req translation.Request) {
	call.result, call.err = m.completer.Complete(ctx, req)
	m.settle(call, req)
	close(call.done)
}

func (m *Mutator) settle(call *Call, req translation.Request) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if call.Seq != m.seq {
		m.mu.Unlock()
		return
	}
	if call.err != nil {
		m.state = State{Error: true, Seq: call.Seq, Request: req, Err: call.err}
	} else {
		m.state = State{Result: call.result, HasResult: true, Seq: call.Seq, Request: req}
	}
	st, subs := m.state, m.subscribersLocked()
	m.mu.Unlock()

	notify(subs, st)
}

func (m *Mutator) subscribersLocked() []func(State) {
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]func(State), 0, len(ids))
	for _, id := range ids {
		out = append(out, m.subs[id])
	}
	return out
}

func notify(subs []func(State), st State) {
	for _, fn := range subs {
		fn(st)
	}
}
