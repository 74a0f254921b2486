package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/parley/config"
)

// Task names a family of LLM work so the provider can route it to the
// model configured for that family.
type Task string

const (
	// TaskGeneration covers question text and interviewer remarks.
	TaskGeneration Task = "generation"
	// TaskAnalysis covers topic extraction, contradiction detection and scoring.
	TaskAnalysis Task = "analysis"
)

// CompletionRequest is a single chat completion. Temperature 0 and
// MaxTokens 0 fall back to the routed model's configured values.
type CompletionRequest struct {
	Task        Task
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// SpeechRequest is a single text-to-speech synthesis.
type SpeechRequest struct {
	Text  string
	Voice string
	Speed float64
}

// Provider is the interface all LLM implementations must satisfy.
type Provider interface {
	// Complete returns the completion text for the request.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// CompleteWithTokens returns the completion text plus input/output token usage.
	CompleteWithTokens(ctx context.Context, req CompletionRequest) (string, int64, int64, error)
	// Embed returns one embedding vector per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Synthesize returns encoded audio for the request text.
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
	// CalculateCost converts token usage for a task's routed model into dollars.
	CalculateCost(task Task, inputTokens, outputTokens int64) float64
}

// New creates a provider from configuration. The first configured
// provider entry wins; only openai is implemented today.
func New(cfg config.LLMConfig) (Provider, error) {
	if len(cfg.Providers) == 0 {
		return nil, errors.New("no LLM providers configured")
	}
	for _, p := range cfg.Providers {
		switch p.Type {
		case "openai":
			return NewOpenAIClient(p, cfg.Routing), nil
		case "anthropic":
			return nil, errors.New("anthropic client not implemented yet")
		default:
			return nil, fmt.Errorf("unsupported LLM provider type: %s", p.Type)
		}
	}
	return nil, errors.New("no valid LLM providers found")
}
