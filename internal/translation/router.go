package translation

import (
	"context"
	"fmt"

	"codeberg.org/snonux/polyglot/internal/config"
)

// Router picks a Completer by the family of the configured model
type Router struct {
	OpenAI Completer
	Gemini Completer
}

// NewRouter creates a router over the default clients
func NewRouter(geminiBaseURL string) *Router {
	return &Router{
		OpenAI: NewOpenAIClient(),
		Gemini: NewGeminiClient(geminiBaseURL),
	}
}

// Complete forwards req to the completer serving its model
func (r *Router) Complete(ctx context.Context, req Request) (string, error) {
	next := r.OpenAI
	if req.Config.CurrentModel.Family() == config.FamilyGemini {
		next = r.Gemini
	}
	if next == nil {
		return "", fmt.Errorf("%w: no client for model %q", ErrTransport, req.Config.CurrentModel)
	}
	return next.Complete(ctx, req)
}
