// Package provider implements the Provider Cascade (spec §4.4, C4): an
// ordered multi-provider LLM caller with circuit breaking and per-call
// timeouts.
package provider

import (
	"context"
	"time"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
)

// Message is one turn of a prompt handed to a provider.
type Message struct {
	Role    string // "user" | "assistant" | "system"
	Content string
}

// CompletionRequest is what the cascade sends to a single provider.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResult is a successful provider response.
type CompletionResult struct {
	Text     string
	Provider string
	Model    string
	Tokens   int
}

// Provider is one LLM backend (spec §3: ProviderDescriptor's runtime side).
type Provider interface {
	// Name returns the provider's configured id.
	Name() string
	// Complete issues a single non-streaming completion request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)
}

// Factory constructs a Provider from its descriptor, keyed by
// ProviderConfig.Type ("cloud" variants keyed further by an explicit
// driver name, "local" for the Ollama-style HTTP backend).
type Factory func(cfg *config.ProviderConfig) (Provider, error)

func deadline(cfg *config.ProviderConfig) time.Duration {
	if cfg.TimeoutMs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(cfg.TimeoutMs) * time.Millisecond
}
