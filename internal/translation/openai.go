package translation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/polyglot/internal/config"
)

// completionMaxTokens caps answers from the legacy completions endpoint
const completionMaxTokens = 1024

// OpenAIClient talks to an OpenAI-compatible endpoint. A go-openai client
// is built per request because the base URL and key live in the
// user-editable configuration.
type OpenAIClient struct {
	httpClient openai.HTTPDoer
}

// NewOpenAIClient creates a new client using the default HTTP transport
func NewOpenAIClient() *OpenAIClient {
	return &OpenAIClient{}
}

// WithHTTPClient overrides the HTTP transport
func (c *OpenAIClient) WithHTTPClient(h openai.HTTPDoer) *OpenAIClient {
	c.httpClient = h
	return c
}

// Complete translates req.Text with the configured model
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	client := c.client(req.Config)

	if req.Config.CurrentModel.Family() == config.FamilyCompletion {
		return c.complete(ctx, client, req)
	}
	if req.Config.StreamEnabled {
		return c.chatStream(ctx, client, req)
	}
	return c.chat(ctx, client, req)
}

func (c *OpenAIClient) client(cfg config.Values) *openai.Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = APIBaseURL(cfg.APIBaseURL)
	if c.httpClient != nil {
		oc.HTTPClient = c.httpClient
	}
	return openai.NewClientWithConfig(oc)
}

func chatRequest(req Request) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: string(req.Config.CurrentModel),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: SystemPrompt(req.FromLang, req.ToLang),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Text,
			},
		},
		Temperature: float32(req.Config.TemperatureParam),
	}
}

func (c *OpenAIClient) chat(ctx context.Context, client *openai.Client, req Request) (string, error) {
	resp, err := client.CreateChatCompletion(ctx, chatRequest(req))
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformed)
	}
	return finish(resp.Choices[0].Message.Content)
}

func (c *OpenAIClient) chatStream(ctx context.Context, client *openai.Client, req Request) (string, error) {
	stream, err := client.CreateChatCompletionStream(ctx, chatRequest(req))
	if err != nil {
		return "", classify(err)
	}
	defer stream.Close()

	var b strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", classify(err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
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

func (c *OpenAIClient) complete(ctx context.Context, client *openai.Client, req Request) (string, error) {
	resp, err := client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       string(req.Config.CurrentModel),
		Prompt:      completionPrompt(req),
		MaxTokens:   completionMaxTokens,
		Temperature: float32(req.Config.TemperatureParam),
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformed)
	}
	text, err := finish(resp.Choices[0].Text)
	if err != nil {
		return "", err
	}
	if req.OnDelta != nil {
		req.OnDelta(text)
	}
	return text, nil
}
