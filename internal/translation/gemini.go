package translation

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient translates with Google's Gemini models. The API key comes
// from the same configuration entry used for OpenAI-compatible endpoints.
type GeminiClient struct {
	baseURL string
}

// NewGeminiClient creates a client; an empty baseURL uses the SDK default
func NewGeminiClient(baseURL string) *GeminiClient {
	return &GeminiClient{baseURL: baseURL}
}

// Complete translates req.Text with the configured Gemini model
func (g *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if req.Config.APIKey == "" {
		return "", fmt.Errorf("gemini: %w", ErrNoAPIKey)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      req.Config.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: g.baseURL},
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to create Gemini client: %w", ErrTransport, err)
	}

	model := string(req.Config.CurrentModel)
	contents := genai.Text(req.Text)
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(req.Config.TemperatureParam)),
		SystemInstruction: genai.NewContentFromText(SystemPrompt(req.FromLang, req.ToLang), genai.RoleUser),
	}

	if !req.Config.StreamEnabled {
		resp, err := client.Models.GenerateContent(ctx, model, contents, cfg)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrTransport, err)
		}
		return finish(resp.Text())
	}

	var b strings.Builder
	for resp, err := range client.Models.GenerateContentStream(ctx, model, contents, cfg) {
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrTransport, err)
		}
		delta := resp.Text()
		if delta == "" {
			continue
		}
		b.WriteString(delta)
		if req.OnDelta != nil {
			req.OnDelta(delta)
		}
	}
	return finish(b.String())
}
