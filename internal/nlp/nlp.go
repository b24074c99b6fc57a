// Package nlp provides the text-generation and embedding capabilities behind
// the agents. Providers are plain HTTP clients selected once at startup.
package nlp

import (
	"context"
	"fmt"
	"time"

	"syara/config"
)

// Size selects the model tier for one chat call.
type Size string

const (
	SizeSmall Size = "small"
	SizeLarge Size = "large"
)

// Per-task tiers. Every current task runs on the small tier; the large tier
// exists so a call site can be promoted without touching providers.
const (
	TierDescribe     = SizeSmall
	TierQueryRewrite = SizeSmall
	TierRespond      = SizeSmall
)

const defaultTimeout = 60 * time.Second

type Message struct {
	Role    string
	Content string
}

// UserMessage builds a single-element user message list, the common case for
// every agent call site.
func UserMessage(content string) []Message {
	return []Message{{Role: "user", Content: content}}
}

// Engine is the capability contract: synchronous-looking chat and batch
// embedding, both suspension points.
type Engine interface {
	Chat(ctx context.Context, size Size, system string, messages []Message) (string, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// NewEngine selects the provider from configuration.
func NewEngine(cfg config.NLPConfig) (Engine, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiEngine(cfg.GeminiAPIKey), nil
	case "openai":
		return NewOpenAIEngine(cfg.OpenAIAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown nlp provider: %s", cfg.Provider)
	}
}
