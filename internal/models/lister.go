package models

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/polyglot/internal/config"
	"codeberg.org/snonux/polyglot/internal/translation"
)

// Info describes a supported model
type Info struct {
	ID      string `json:"id"`
	Family  string `json:"family"`
	Default bool   `json:"default"`
}

// Supported returns the models polyglot knows how to route
func Supported() []Info {
	infos := make([]Info, 0, len(config.SupportedModels))
	for _, m := range config.SupportedModels {
		infos = append(infos, Info{
			ID:      string(m),
			Family:  m.Family().String(),
			Default: m == config.DefaultModel,
		})
	}
	return infos
}

// Lister handles listing models offered by the configured endpoint
type Lister struct {
	apiKey string
	client *openai.Client
}

// NewLister creates a new model lister for the configured endpoint
func NewLister(cfg config.Values) *Lister {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = translation.APIBaseURL(cfg.APIBaseURL)
	return &Lister{
		apiKey: cfg.APIKey,
		client: openai.NewClientWithConfig(oc),
	}
}

// RemoteModels returns the sorted IDs of chat and completion models
// offered by the endpoint
func (l *Lister) RemoteModels(ctx context.Context) ([]string, error) {
	if l.apiKey == "" {
		return nil, fmt.Errorf("API key not configured. Run 'polyglot config set api-key <key>'")
	}

	list, err := l.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var ids []string
	for _, model := range list.Models {
		if isTextModel(model.ID) {
			ids = append(ids, model.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListAvailableModels prints the supported models and, if remote is set,
// the models offered by the endpoint
func (l *Lister) ListAvailableModels(ctx context.Context, w io.Writer, remote bool) error {
	fmt.Fprintln(w, "Supported models:")
	for _, info := range Supported() {
		marker := " "
		if info.Default {
			marker = "*"
		}
		fmt.Fprintf(w, " %s %-24s %s\n", marker, info.ID, info.Family)
	}

	if !remote {
		return nil
	}

	ids, err := l.RemoteModels(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "\nModels offered by the endpoint:")
	if len(ids) == 0 {
		fmt.Fprintln(w, "  No chat models found")
	}
	for _, id := range ids {
		fmt.Fprintf(w, "  %s\n", id)
	}
	return nil
}

// isTextModel filters out speech, image and embedding models
func isTextModel(id string) bool {
	for _, skip := range []string{"tts", "audio", "dall-e", "embedding", "whisper", "moderation", "image"} {
		if strings.Contains(id, skip) {
			return false
		}
	}
	return strings.Contains(id, "gpt") || strings.Contains(id, "chat") ||
		strings.Contains(id, "instruct") || strings.HasPrefix(id, "gemini") ||
		strings.HasPrefix(id, "o1") || strings.HasPrefix(id, "o3")
}
