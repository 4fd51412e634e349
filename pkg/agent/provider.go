package agent

import (
	"context"
	"fmt"
)

// Provider is the model API boundary: one synchronous "generate next
// turn" operation. Tests substitute a scripted implementation to drive
// the orchestration loops without a real model.
type Provider interface {
	// Generate requests the next assistant turn.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider name.
	Name() string
}

// Request carries everything one model call needs.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []ToolSpec
	Temperature float64
	MaxTokens   int
}

// Response is the model's next turn.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	Usage     TokenUsage
}

// ToolSpec is the wire-format declaration of one callable tool.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ProviderConfig selects and authenticates a concrete provider.
type ProviderConfig struct {
	Provider string // "openai" or "anthropic"
	APIKey   string
	BaseURL  string // optional override for gateway/azure-style endpoints
}

// NewProvider constructs the provider named in the config.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
