package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/polyglot/internal/config"
)

// AutoLanguage lets the model detect the source language
const AutoLanguage = "auto"

// Endpoint paths of the completion API, relative to the configured base URL
const (
	ChatCompletionsPath = "/v1/chat/completions"
	CompletionsPath     = "/v1/completions"
)

// Failure classes. The mutator reports all of them the same way; they are
// kept apart for logging and tests.
var (
	ErrTransport = errors.New("completion request failed")
	ErrStatus    = errors.New("completion endpoint returned an error status")
	ErrMalformed = errors.New("malformed completion response")
	ErrNoAPIKey  = errors.New("API key not configured")
)

// Request is one translation call
type Request struct {
	Text     string
	FromLang string
	ToLang   string
	Config   config.Values

	// OnDelta receives streamed chunks as they arrive; may be nil
	OnDelta func(delta string)
}

// Completer performs a translation against a remote model
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to the Completer interface
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// APIBaseURL returns the go-openai base URL for a configured endpoint,
// appending /v1 unless the endpoint already ends with it
func APIBaseURL(base string) string {
	b := strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(b, "/v1") {
		return b
	}
	return b + "/v1"
}

// SystemPrompt builds the instruction sent ahead of the user's text
func SystemPrompt(from, to string) string {
	target := to
	if target == "" || strings.EqualFold(target, AutoLanguage) {
		target = "English"
	}

	var source string
	if from == "" || strings.EqualFold(from, AutoLanguage) {
		source = "Detect the language of the user's text and translate it"
	} else {
		source = fmt.Sprintf("Translate the user's text from %s", from)
	}

	return fmt.Sprintf("You are a translation engine. %s into %s. "+
		"Respond with only the translation, without explanations, quotes or notes.", source, target)
}

// completionPrompt is the single prompt used by the legacy completions endpoint
func completionPrompt(req Request) string {
	return fmt.Sprintf("%s\n\nText:\n%s\n\nTranslation:\n", SystemPrompt(req.FromLang, req.ToLang), req.Text)
}

// classify maps an error from go-openai onto the failure classes
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w (%d): %w", ErrStatus, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w (%d): %w", ErrStatus, reqErr.HTTPStatusCode, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// finish trims the model output and rejects an empty answer
func finish(text string) (string, error) {
	translation := strings.TrimSpace(text)
	if translation == "" {
		return "", fmt.Errorf("%w: no translation returned", ErrMalformed)
	}
	return translation, nil
}
