package session

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sort"
	"sync"
	"time"

	"codeberg.org/snonux/polyglot/internal/config"
	"codeberg.org/snonux/polyglot/internal/history"
	"codeberg.org/snonux/polyglot/internal/mutation"
	"codeberg.org/snonux/polyglot/internal/storage"
	"codeberg.org/snonux/polyglot/internal/translation"
)

// LastTranslate is the language pair of the most recent translation
type LastTranslate struct {
	FromLanguage string `json:"fromLang"`
	ToLanguage   string `json:"toLang"`
}

// DefaultLastTranslate lets the model pick both languages
func DefaultLastTranslate() LastTranslate {
	return LastTranslate{
		FromLanguage: translation.AutoLanguage,
		ToLanguage:   translation.AutoLanguage,
	}
}

// Snapshot is an immutable view of the whole session. The History slice
// is shared between callers and must not be modified.
type Snapshot struct {
	Config        config.Values    `json:"config"`
	LastTranslate LastTranslate    `json:"lastTranslate"`
	TranslateText string           `json:"translateText"`
	Translator    mutation.State   `json:"translator"`
	History       []history.Record `json:"history"`
}

// Option configures a Session
type Option func(*Session)

// WithCapturePolicy selects how history records are captured
func WithCapturePolicy(p CapturePolicy) Option {
	return func(s *Session) { s.policy = p }
}

// WithLogger sets the logger used for background failures
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock overrides the time source for record timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is the global context of the translator
type Session struct {
	config  *config.Store
	last    *storage.Value[LastTranslate]
	history *history.Store
	mutator *mutation.Mutator

	policy CapturePolicy
	logger *log.Logger
	now    func() time.Time

	// effectMu serialises the history side effect
	effectMu sync.Mutex
	recorded uint64

	// publishMu orders rebuild and delivery so the last snapshot a
	// subscriber sees is never older than the session
	publishMu sync.Mutex
	delivered *Snapshot

	mu       sync.Mutex
	text     string
	snapshot *Snapshot
	subs     map[int]func(*Snapshot)
	nextSub  int

	cancels []func()
}

// New loads the persisted state from backend and wires the history side
// effect to a mutator sending requests through completer
func New(ctx context.Context, backend storage.Backend, completer translation.Completer, opts ...Option) (*Session, error) {
	cfg, err := config.NewStore(ctx, backend)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	last, err := storage.Load(ctx, backend, storage.KeyLastTranslate, DefaultLastTranslate())
	if err != nil {
		return nil, fmt.Errorf("failed to load last language pair: %w", err)
	}
	hist, err := history.NewStore(ctx, backend)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	s := &Session{
		config:  cfg,
		last:    last,
		history: hist,
		mutator: mutation.New(completer),
		policy:  CaptureAtSettlement,
		logger:  log.Default(),
		now:     time.Now,
		subs:    make(map[int]func(*Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}

	// The side effect runs before the snapshot is republished so that
	// observers see the new record together with the result
	s.cancels = append(s.cancels,
		s.mutator.Subscribe(s.recordSuccess),
		s.mutator.Subscribe(func(mutation.State) { s.publish() }),
		s.config.Subscribe(func(config.Values) { s.publish() }),
		s.last.Subscribe(func(LastTranslate) { s.publish() }),
		s.history.Subscribe(func([]history.Record) { s.publish() }),
	)

	return s, nil
}

// Close detaches the session from its stores
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

// CapturePolicy returns the active capture policy
func (s *Session) CapturePolicy() CapturePolicy {
	return s.policy
}

// Snapshot returns the current view. The same pointer is returned until a
// constituent changes.
func (s *Session) Snapshot() *Snapshot {
	snap, _ := s.refresh()
	return snap
}

// Config returns the current configuration
func (s *Session) Config() config.Values {
	return s.config.Read()
}

// LastTranslate returns the current language pair
func (s *Session) LastTranslate() LastTranslate {
	return s.last.Get()
}

// TranslateText returns the text currently being translated
func (s *Session) TranslateText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// History returns the records, newest first
func (s *Session) History() []history.Record {
	return s.history.Records()
}

// Translator returns the mutator state
func (s *Session) Translator() mutation.State {
	return s.mutator.State()
}

// SetConfig merges p into the configuration
func (s *Session) SetConfig(ctx context.Context, p config.Patch) (config.Values, error) {
	return s.config.Write(ctx, p)
}

// ReplaceConfig stores v as the whole configuration
func (s *Session) ReplaceConfig(ctx context.Context, v config.Values) error {
	return s.config.Replace(ctx, v)
}

// ResetConfig restores the default configuration
func (s *Session) ResetConfig(ctx context.Context) error {
	return s.config.Reset(ctx)
}

// SetLastTranslate stores the language pair. Storing the current pair
// again is a no-op.
func (s *Session) SetLastTranslate(ctx context.Context, lt LastTranslate) error {
	if s.last.Get() == lt {
		return nil
	}
	return s.last.Set(ctx, lt)
}

// SetTranslateText replaces the in-memory text
func (s *Session) SetTranslateText(text string) {
	s.mu.Lock()
	changed := s.text != text
	s.text = text
	s.mu.Unlock()

	if changed {
		s.publish()
	}
}

// Mutate issues req through the mutator
func (s *Session) Mutate(ctx context.Context, req translation.Request) *mutation.Call {
	return s.mutator.Translate(ctx, req)
}

// Translate records text and the language pair, then issues a request
// with the current configuration
func (s *Session) Translate(ctx context.Context, text, from, to string) (*mutation.Call, error) {
	return s.TranslateStream(ctx, text, from, to, nil)
}

// TranslateStream is Translate with onDelta receiving streamed chunks
func (s *Session) TranslateStream(ctx context.Context, text, from, to string, onDelta func(string)) (*mutation.Call, error) {
	s.SetTranslateText(text)
	if err := s.SetLastTranslate(ctx, LastTranslate{FromLanguage: from, ToLanguage: to}); err != nil {
		return nil, err
	}

	return s.Mutate(ctx, translation.Request{
		Text:     text,
		FromLang: from,
		ToLang:   to,
		Config:   s.config.Read(),
		OnDelta:  onDelta,
	}), nil
}

// ReplaceHistory overwrites the history; an empty list clears it
func (s *Session) ReplaceHistory(ctx context.Context, records []history.Record) error {
	return s.history.Replace(ctx, records)
}

// DeleteHistory removes the record with id
func (s *Session) DeleteHistory(ctx context.Context, id string) error {
	return s.history.Delete(ctx, id)
}

// Subscribe registers fn for every new snapshot. The returned function
// removes the subscription. fn runs synchronously in the goroutine that
// caused the change and must not modify the session itself.
func (s *Session) Subscribe(fn func(*Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// recordSuccess prepends one history record per successful settlement
func (s *Session) recordSuccess(st mutation.State) {
	if st.Status() != mutation.StatusSucceeded {
		return
	}

	s.effectMu.Lock()
	defer s.effectMu.Unlock()

	if st.Seq <= s.recorded {
		return
	}
	s.recorded = st.Seq

	text, from, to := st.Request.Text, st.Request.FromLang, st.Request.ToLang
	if s.policy == CaptureAtSettlement {
		lt := s.last.Get()
		text, from, to = s.TranslateText(), lt.FromLanguage, lt.ToLanguage
	}

	record := history.NewRecord(from, to, text, st.Result, s.now())
	if err := s.history.Append(context.Background(), record); err != nil {
		s.logger.Printf("session: failed to record translation %d: %v", st.Seq, err)
	}
}

// refresh rebuilds the snapshot if any constituent changed
func (s *Session) refresh() (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Read under mu so a later rebuild never sees older values
	cfg := s.config.Read()
	last := s.last.Get()
	state := s.mutator.State()
	records := s.history.Records()

	prev := s.snapshot
	if prev != nil &&
		prev.Config == cfg &&
		prev.LastTranslate == last &&
		prev.TranslateText == s.text &&
		sameState(prev.Translator, state) &&
		slices.Equal(prev.History, records) {
		return prev, false
	}

	s.snapshot = &Snapshot{
		Config:        cfg,
		LastTranslate: last,
		TranslateText: s.text,
		Translator:    state,
		History:       records,
	}
	return s.snapshot, true
}

// publish notifies subscribers when the snapshot differs from the one
// they last received
func (s *Session) publish() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	snap, _ := s.refresh()
	if snap == s.delivered {
		return
	}
	s.delivered = snap

	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(*Snapshot), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func sameState(a, b mutation.State) bool {
	return a.Seq == b.Seq &&
		a.Loading == b.Loading &&
		a.Error == b.Error &&
		a.HasResult == b.HasResult &&
		a.Result == b.Result
}
