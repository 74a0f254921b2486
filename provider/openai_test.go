package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohammad-safakhou/parley/config"
)

func testLLMConfig(baseURL string) (config.LLMProvider, config.LLMRoutingConfig) {
	p := config.LLMProvider{
		Type:    "openai",
		APIKey:  "test-key",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
		Models: map[string]config.LLMModel{
			"fast": {Name: "fast", APIName: "gpt-4o-mini", MaxTokens: 256, Temperature: 0.4, CostPer1K: 0.15, CostPer1KOutput: 0.6},
			"emb":  {Name: "emb", APIName: "text-embedding-3-small"},
		},
	}
	r := config.LLMRoutingConfig{Generation: "fast", Analysis: "fast", Embedding: "emb", Fallback: "fast"}
	return p, r
}

func TestCompleteWithTokens(t *testing.T) {
	var gotReq map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`))
	}))
	defer srv.Close()

	p, r := testLLMConfig(srv.URL)
	c := NewOpenAIClient(p, r)

	text, in, out, err := c.CompleteWithTokens(context.Background(), CompletionRequest{
		Task: TaskGeneration,
		User: "say hello",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello" {
		t.Fatalf("unexpected text %q", text)
	}
	if in != 12 || out != 3 {
		t.Fatalf("unexpected usage in=%d out=%d", in, out)
	}
	if gotReq["model"] != "gpt-4o-mini" {
		t.Fatalf("expected routed api model, got %v", gotReq["model"])
	}
	if _, ok := gotReq["response_format"]; ok {
		t.Fatalf("response_format should be absent without JSON mode")
	}
}

func TestCompleteJSONMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		rf, ok := req["response_format"].(map[string]interface{})
		if !ok || rf["type"] != "json_object" {
			t.Errorf("expected json_object response_format, got %v", req["response_format"])
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}],"usage":{}}`))
	}))
	defer srv.Close()

	p, r := testLLMConfig(srv.URL)
	c := NewOpenAIClient(p, r)
	if _, err := c.Complete(context.Background(), CompletionRequest{Task: TaskAnalysis, User: "x", JSONMode: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2],"index":0},{"embedding":[0.3,0.4],"index":1}]}`))
	}))
	defer srv.Close()

	p, r := testLLMConfig(srv.URL)
	c := NewOpenAIClient(p, r)
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 || len(vecs[0]) != 2 {
		t.Fatalf("unexpected vectors %#v", vecs)
	}
	if vecs[1][0] != 0.3 {
		t.Fatalf("unexpected vector payload %#v", vecs[1])
	}

	empty, err := c.Embed(context.Background(), nil)
	if err != nil || empty != nil {
		t.Fatalf("expected nil result for empty input, got %v %v", empty, err)
	}
}

func TestPostRetriesTransientStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}],"usage":{}}`))
	}))
	defer srv.Close()

	p, r := testLLMConfig(srv.URL)
	p.MaxRetries = 2
	c := NewOpenAIClient(p, r)
	text, err := c.Complete(context.Background(), CompletionRequest{Task: TaskGeneration, User: "x"})
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if text != "ok" || calls != 2 {
		t.Fatalf("expected success on second call, got text=%q calls=%d", text, calls)
	}
}

func TestCalculateCost(t *testing.T) {
	p, r := testLLMConfig("")
	c := NewOpenAIClient(p, r)
	got := c.CalculateCost(TaskGeneration, 1000, 1000)
	want := 0.15 + 0.6
	if got != want {
		t.Fatalf("cost mismatch got %v want %v", got, want)
	}
	if c.CalculateCost(Task("unknown-task-key"), 10, 10) != c.CalculateCost(TaskGeneration, 10, 10) {
		t.Fatalf("unknown task should fall back to fallback model pricing")
	}
}
