package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
)

// Value is a typed document kept in memory and mirrored to a Backend on
// every change. Subscribers are notified synchronously after each
// successful write, outside the value's lock.
type Value[T any] struct {
	backend Backend
	key     string

	// writeMu serialises read-modify-write cycles across Set and Update
	writeMu sync.Mutex

	mu      sync.RWMutex
	current T
	subs    map[int]func(T)
	nextSub int
}

// Load reads key from backend, falling back to fallback when the document
// is absent or cannot be decoded.
func Load[T any](ctx context.Context, backend Backend, key string, fallback T) (*Value[T], error) {
	v := &Value[T]{
		backend: backend,
		key:     key,
		current: fallback,
		subs:    make(map[int]func(T)),
	}

	data, ok, err := backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || len(data) == 0 {
		return v, nil
	}

	var decoded T
	if err := json.Unmarshal(data, &decoded); err != nil {
		log.Printf("storage: ignoring unreadable %s document: %v", key, err)
		return v, nil
	}
	v.current = decoded
	return v, nil
}

// Key returns the storage key backing the value
func (v *Value[T]) Key() string {
	return v.key
}

// Get returns the current value
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Set persists next and makes it the current value. The in-memory value is
// left untouched when persisting fails.
func (v *Value[T]) Set(ctx context.Context, next T) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	return v.commit(ctx, next)
}

// Update applies fn to the current value and persists the result. Nothing
// is written when fn returns an error.
func (v *Value[T]) Update(ctx context.Context, fn func(prev T) (T, error)) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	next, err := fn(v.Get())
	if err != nil {
		return err
	}
	return v.commit(ctx, next)
}

// Subscribe registers fn to be called with every new value. The returned
// function removes the subscription.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.mu.Lock()
	id := v.nextSub
	v.nextSub++
	v.subs[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}

func (v *Value[T]) commit(ctx context.Context, next T) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode %s: %w", v.key, err)
	}
	if err := v.backend.Set(ctx, v.key, data); err != nil {
		return fmt.Errorf("write %s: %w", v.key, err)
	}

	v.mu.Lock()
	v.current = next
	subs := v.subscribersLocked()
	v.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return nil
}

// subscribersLocked returns subscribers in registration order
func (v *Value[T]) subscribersLocked() []func(T) {
	ids := make([]int, 0, len(v.subs))
	for id := range v.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]func(T), 0, len(ids))
	for _, id := range ids {
		out = append(out, v.subs[id])
	}
	return out
}
