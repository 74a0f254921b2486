package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/parley/config"
	"github.com/mohammad-safakhou/parley/provider"
)

type stubProvider struct {
	synthesizeFn func(req provider.SpeechRequest) ([]byte, error)
	calls        int
}

func (s *stubProvider) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	return "", errors.New("not scripted")
}

func (s *stubProvider) CompleteWithTokens(ctx context.Context, req provider.CompletionRequest) (string, int64, int64, error) {
	return "", 0, 0, errors.New("not scripted")
}

func (s *stubProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not scripted")
}

func (s *stubProvider) Synthesize(ctx context.Context, req provider.SpeechRequest) ([]byte, error) {
	s.calls++
	if s.synthesizeFn == nil {
		return nil, errors.New("not scripted")
	}
	return s.synthesizeFn(req)
}

func (s *stubProvider) CalculateCost(task provider.Task, inputTokens, outputTokens int64) float64 {
	return 0
}

func newTestSynthesizer(t *testing.T, p provider.Provider, cfg config.SpeechConfig) *Synthesizer {
	t.Helper()
	cfg.CacheDir = t.TempDir()
	s, err := New(cfg, p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSynthesizeToURLCachesByContent(t *testing.T) {
	stub := &stubProvider{synthesizeFn: func(req provider.SpeechRequest) ([]byte, error) {
		return []byte("mp3-bytes"), nil
	}}
	s := newTestSynthesizer(t, stub, config.SpeechConfig{})

	url1, err := s.SynthesizeToURL(context.Background(), "Tell me about a project.")
	if err != nil {
		t.Fatalf("SynthesizeToURL: %v", err)
	}
	if !strings.HasPrefix(url1, "/audio/") || !strings.HasSuffix(url1, ".mp3") {
		t.Fatalf("unexpected url %q", url1)
	}

	url2, err := s.SynthesizeToURL(context.Background(), "Tell me about a project.")
	if err != nil {
		t.Fatalf("second SynthesizeToURL: %v", err)
	}
	if url1 != url2 {
		t.Fatalf("same text produced different urls: %q vs %q", url1, url2)
	}
	if stub.calls != 1 {
		t.Fatalf("expected 1 backend call, got %d", stub.calls)
	}

	name := strings.TrimPrefix(url1, "/audio/")
	data, err := os.ReadFile(filepath.Join(s.CacheDir(), name))
	if err != nil {
		t.Fatalf("cached file missing: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Fatalf("cached file content = %q", data)
	}
}

func TestSynthesizeToURLErrors(t *testing.T) {
	stub := &stubProvider{synthesizeFn: func(req provider.SpeechRequest) ([]byte, error) {
		return nil, errors.New("backend down")
	}}
	s := newTestSynthesizer(t, stub, config.SpeechConfig{})

	if _, err := s.SynthesizeToURL(context.Background(), "anything"); err == nil {
		t.Fatal("expected error when the backend fails")
	}
	if _, err := s.SynthesizeToURL(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestPruneRemovesExpiredOldestFirst(t *testing.T) {
	stub := &stubProvider{synthesizeFn: func(req provider.SpeechRequest) ([]byte, error) {
		return []byte("x"), nil
	}}
	s := newTestSynthesizer(t, stub, config.SpeechConfig{CacheMaxAge: time.Hour})

	old := filepath.Join(s.CacheDir(), "old.mp3")
	fresh := filepath.Join(s.CacheDir(), "fresh.mp3")
	if err := os.WriteFile(old, []byte("aaaa"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fresh, []byte("bbbb"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Prune()
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expired file survived prune")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh file removed: %v", err)
	}
}

func TestPruneEnforcesByteBudget(t *testing.T) {
	stub := &stubProvider{}
	s := newTestSynthesizer(t, stub, config.SpeechConfig{
		CacheMaxAge:   24 * time.Hour,
		CacheMaxBytes: 10,
	})

	// Three 8-byte files, oldest first: budget fits only one.
	for i, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		path := filepath.Join(s.CacheDir(), name)
		if err := os.WriteFile(path, []byte("12345678"), 0o644); err != nil {
			t.Fatal(err)
		}
		mt := time.Now().Add(time.Duration(i-3) * time.Minute)
		if err := os.Chtimes(path, mt, mt); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.Prune()
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if _, err := os.Stat(filepath.Join(s.CacheDir(), "c.mp3")); err != nil {
		t.Fatalf("newest file should survive: %v", err)
	}
}
