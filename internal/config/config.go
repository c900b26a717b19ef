package config

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/snonux/polyglot/internal/storage"
)

// Defaults applied to any field missing from storage
const (
	DefaultAPIBaseURL    = "https://api.lxd.tw"
	DefaultAPIKey        = ""
	DefaultStreamEnabled = true
	DefaultModel         = ModelGPT4oMini
	DefaultTemperature   = 0.7
)

// Values is the fully populated translation configuration
type Values struct {
	APIBaseURL       string  `json:"openaiApiUrl"`
	APIKey           string  `json:"openaiApiKey"`
	StreamEnabled    bool    `json:"streamEnabled"`
	CurrentModel     Model   `json:"currentModel"`
	TemperatureParam float64 `json:"temperatureParam"`
}

// Defaults returns the configuration used when nothing is stored
func Defaults() Values {
	return Values{
		APIBaseURL:       DefaultAPIBaseURL,
		APIKey:           DefaultAPIKey,
		StreamEnabled:    DefaultStreamEnabled,
		CurrentModel:     DefaultModel,
		TemperatureParam: DefaultTemperature,
	}
}

// Patch is a partial configuration; nil fields are left unchanged. It is
// also the persisted form, so documents written by older front-ends with
// missing fields decode cleanly.
type Patch struct {
	APIBaseURL       *string  `json:"openaiApiUrl,omitempty"`
	APIKey           *string  `json:"openaiApiKey,omitempty"`
	StreamEnabled    *bool    `json:"streamEnabled,omitempty"`
	CurrentModel     *Model   `json:"currentModel,omitempty"`
	TemperatureParam *float64 `json:"temperatureParam,omitempty"`
}

// Apply returns v with every non-nil field of p applied
func (v Values) Apply(p Patch) Values {
	if p.APIBaseURL != nil {
		v.APIBaseURL = *p.APIBaseURL
	}
	if p.APIKey != nil {
		v.APIKey = *p.APIKey
	}
	if p.StreamEnabled != nil {
		v.StreamEnabled = *p.StreamEnabled
	}
	if p.CurrentModel != nil {
		v.CurrentModel = *p.CurrentModel
	}
	if p.TemperatureParam != nil {
		v.TemperatureParam = *p.TemperatureParam
	}
	return v
}

// Patch returns a patch setting every field of v
func (v Values) Patch() Patch {
	return Patch{
		APIBaseURL:       &v.APIBaseURL,
		APIKey:           &v.APIKey,
		StreamEnabled:    &v.StreamEnabled,
		CurrentModel:     &v.CurrentModel,
		TemperatureParam: &v.TemperatureParam,
	}
}

// IsEmpty reports whether p changes nothing
func (p Patch) IsEmpty() bool {
	return p.APIBaseURL == nil && p.APIKey == nil && p.StreamEnabled == nil &&
		p.CurrentModel == nil && p.TemperatureParam == nil
}

// Setting keys accepted by ParsePatch
const (
	KeyAPIURL      = "api-url"
	KeyAPIKey      = "api-key"
	KeyStream      = "stream"
	KeyModel       = "model"
	KeyTemperature = "temperature"
)

// Keys returns the setting keys accepted by ParsePatch, sorted
func Keys() []string {
	keys := []string{KeyAPIURL, KeyAPIKey, KeyStream, KeyModel, KeyTemperature}
	sort.Strings(keys)
	return keys
}

// ParsePatch builds a single-field patch from a textual key and value.
// Only the syntax is checked; ranges and URLs are left to the endpoint.
func ParsePatch(key, value string) (Patch, error) {
	var p Patch
	switch strings.ToLower(strings.TrimSpace(key)) {
	case KeyAPIURL:
		p.APIBaseURL = &value
	case KeyAPIKey:
		p.APIKey = &value
	case KeyStream:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return Patch{}, fmt.Errorf("invalid %s value %q: %w", KeyStream, value, err)
		}
		p.StreamEnabled = &b
	case KeyModel:
		m := Model(value)
		p.CurrentModel = &m
	case KeyTemperature:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Patch{}, fmt.Errorf("invalid %s value %q: %w", KeyTemperature, value, err)
		}
		p.TemperatureParam = &f
	default:
		return Patch{}, fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return p, nil
}

// Store keeps the configuration in durable storage and notifies
// subscribers of every change
type Store struct {
	value *storage.Value[Patch]
}

// NewStore loads the configuration document from backend
func NewStore(ctx context.Context, backend storage.Backend) (*Store, error) {
	value, err := storage.Load(ctx, backend, storage.KeyConfig, Patch{})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &Store{value: value}, nil
}

// Read returns the stored configuration merged with defaults
func (s *Store) Read() Values {
	return Defaults().Apply(s.value.Get())
}

// Write merges p into the current configuration and stores the result
func (s *Store) Write(ctx context.Context, p Patch) (Values, error) {
	var next Values
	err := s.value.Update(ctx, func(prev Patch) (Patch, error) {
		next = Defaults().Apply(prev).Apply(p)
		return next.Patch(), nil
	})
	if err != nil {
		return Values{}, fmt.Errorf("write config: %w", err)
	}
	return next, nil
}

// Replace stores v as the whole configuration
func (s *Store) Replace(ctx context.Context, v Values) error {
	if err := s.value.Set(ctx, v.Patch()); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Reset restores the defaults
func (s *Store) Reset(ctx context.Context) error {
	return s.Replace(ctx, Defaults())
}

// Subscribe registers fn to receive the merged configuration after every change
func (s *Store) Subscribe(fn func(Values)) func() {
	return s.value.Subscribe(func(p Patch) {
		fn(Defaults().Apply(p))
	})
}
