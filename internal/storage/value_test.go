package storage

import (
	"context"
	"errors"
	"testing"
)

type pair struct {
	From string `json:"fromLang"`
	To   string `json:"toLang"`
}

type failingBackend struct {
	*Memory
	err error
}

func (f *failingBackend) Set(ctx context.Context, key string, value []byte) error {
	return f.err
}

func TestLoad_Fallback(t *testing.T) {
	v, err := Load(context.Background(), NewMemory(), KeyLastTranslate, pair{"auto", "auto"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := v.Get(); got != (pair{"auto", "auto"}) {
		t.Errorf("Get() = %+v, want fallback", got)
	}
	if v.Key() != KeyLastTranslate {
		t.Errorf("Key() = %s, want %s", v.Key(), KeyLastTranslate)
	}
}

func TestLoad_Existing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Set(ctx, KeyLastTranslate, []byte(`{"fromLang":"en","toLang":"fr"}`))

	v, err := Load(ctx, m, KeyLastTranslate, pair{"auto", "auto"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := v.Get(); got != (pair{"en", "fr"}) {
		t.Errorf("Get() = %+v, want {en fr}", got)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Set(ctx, KeyLastTranslate, []byte(`{not json`))

	v, err := Load(ctx, m, KeyLastTranslate, pair{"auto", "auto"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := v.Get(); got != (pair{"auto", "auto"}) {
		t.Errorf("Get() = %+v, want fallback for corrupt document", got)
	}
}

func TestValue_SetPersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	v, _ := Load(ctx, m, KeyLastTranslate, pair{"auto", "auto"})

	var seen []pair
	cancel := v.Subscribe(func(p pair) { seen = append(seen, p) })

	if err := v.Set(ctx, pair{"de", "en"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := v.Update(ctx, func(prev pair) (pair, error) {
		prev.To = "ja"
		return prev, nil
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if len(seen) != 2 || seen[1] != (pair{"de", "ja"}) {
		t.Errorf("notifications = %+v", seen)
	}

	data, _, _ := m.Get(ctx, KeyLastTranslate)
	if string(data) != `{"fromLang":"de","toLang":"ja"}` {
		t.Errorf("persisted = %s", data)
	}

	cancel()
	v.Set(ctx, pair{"x", "y"})
	if len(seen) != 2 {
		t.Errorf("Expected no notification after cancel, got %d", len(seen))
	}
}

func TestValue_SetFailureKeepsValue(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("disk full")
	backend := &failingBackend{Memory: NewMemory(), err: wantErr}
	v, _ := Load[pair](ctx, backend, KeyLastTranslate, pair{"auto", "auto"})

	notified := false
	v.Subscribe(func(pair) { notified = true })

	err := v.Set(ctx, pair{"en", "fr"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Set error = %v, want %v", err, wantErr)
	}
	if got := v.Get(); got != (pair{"auto", "auto"}) {
		t.Errorf("Get() = %+v, want unchanged value", got)
	}
	if notified {
		t.Error("Subscribers must not be notified on failed write")
	}
}

func TestValue_UpdateErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	v, _ := Load(ctx, m, KeyLastTranslate, pair{"auto", "auto"})

	wantErr := errors.New("rejected")
	err := v.Update(ctx, func(prev pair) (pair, error) {
		return pair{"en", "fr"}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Update error = %v, want %v", err, wantErr)
	}
	if _, ok, _ := m.Get(ctx, KeyLastTranslate); ok {
		t.Error("Expected nothing persisted")
	}
	if got := v.Get(); got != (pair{"auto", "auto"}) {
		t.Errorf("Get() = %+v, want unchanged", got)
	}
}
