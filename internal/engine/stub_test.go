package engine

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/parley/config"
	"github.com/mohammad-safakhou/parley/internal/telemetry"
	"github.com/mohammad-safakhou/parley/provider"
)

// stubProvider lets tests script model behavior per call.
type stubProvider struct {
	completeFn   func(req provider.CompletionRequest) (string, error)
	embedFn      func(texts []string) ([][]float32, error)
	synthesizeFn func(req provider.SpeechRequest) ([]byte, error)
	calls        int
}

func (s *stubProvider) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	text, _, _, err := s.CompleteWithTokens(ctx, req)
	return text, err
}

func (s *stubProvider) CompleteWithTokens(ctx context.Context, req provider.CompletionRequest) (string, int64, int64, error) {
	s.calls++
	if s.completeFn == nil {
		return "", 0, 0, errors.New("no completion scripted")
	}
	text, err := s.completeFn(req)
	return text, 10, 5, err
}

func (s *stubProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.embedFn == nil {
		return nil, errors.New("no embedding scripted")
	}
	return s.embedFn(texts)
}

func (s *stubProvider) Synthesize(ctx context.Context, req provider.SpeechRequest) ([]byte, error) {
	if s.synthesizeFn == nil {
		return nil, errors.New("no synthesis scripted")
	}
	return s.synthesizeFn(req)
}

func (s *stubProvider) CalculateCost(task provider.Task, inputTokens, outputTokens int64) float64 {
	return 0
}

func testTelemetry() *telemetry.Telemetry {
	return telemetry.NewTelemetry(config.TelemetryConfig{})
}
