package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mohammad-safakhou/parley/config"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient implements Provider against the OpenAI HTTP API.
type OpenAIClient struct {
	cfg     config.LLMProvider
	routing config.LLMRoutingConfig
	client  *http.Client
}

// NewOpenAIClient creates a new OpenAI-backed provider.
func NewOpenAIClient(cfg config.LLMProvider, routing config.LLMRoutingConfig) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		cfg:     cfg,
		routing: routing,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatReq struct {
	Model          string          `json:"model"`
	Messages       []chatMsg       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat json.RawMessage `json:"response_format,omitempty"`
}

// Complete generates text for the request.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, _, _, err := c.CompleteWithTokens(ctx, req)
	return resp, err
}

// CompleteWithTokens generates text and returns token usage.
func (c *OpenAIClient) CompleteWithTokens(ctx context.Context, req CompletionRequest) (string, int64, int64, error) {
	apiKey := c.apiKey()
	if apiKey == "" {
		return "", 0, 0, fmt.Errorf("OpenAI API key not configured")
	}

	model, err := c.modelFor(req.Task)
	if err != nil {
		return "", 0, 0, err
	}
	apiModel := model.APIName
	if apiModel == "" {
		apiModel = model.Name
	}

	temperature := model.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	maxTokens := model.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	messages := make([]chatMsg, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMsg{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMsg{Role: "user", Content: req.User})

	payload := chatReq{
		Model:       apiModel,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if req.JSONMode {
		payload.ResponseFormat = json.RawMessage(`{"type":"json_object"}`)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", 0, 0, fmt.Errorf("marshal: %w", err)
	}

	raw, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return "", 0, 0, err
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", 0, 0, fmt.Errorf("decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("no choices in response")
	}
	return out.Choices[0].Message.Content, int64(out.Usage.PromptTokens), int64(out.Usage.CompletionTokens), nil
}

// Embed generates embeddings for the given texts.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	apiKey := c.apiKey()
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	model := c.embeddingModel()
	body, err := json.Marshal(map[string]interface{}{
		"model": model,
		"input": texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	raw, err := c.post(ctx, "/embeddings", body)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	vecs := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

// Synthesize converts text to spoken audio (mp3 bytes).
func (c *OpenAIClient) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	apiKey := c.apiKey()
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	voice := req.Voice
	if voice == "" {
		voice = "alloy"
	}
	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}
	body, err := json.Marshal(map[string]interface{}{
		"model":           c.speechModel(),
		"input":           req.Text,
		"voice":           voice,
		"speed":           speed,
		"response_format": "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return c.post(ctx, "/audio/speech", body)
}

// CalculateCost calculates the dollar cost for token usage on a task's routed model.
func (c *OpenAIClient) CalculateCost(task Task, inputTokens, outputTokens int64) float64 {
	model, err := c.modelFor(task)
	if err != nil {
		return 0.0
	}
	inputCost := float64(inputTokens) / 1000.0 * model.CostPer1K
	outputCost := float64(outputTokens) / 1000.0 * model.CostPer1KOutput
	return inputCost + outputCost
}

func (c *OpenAIClient) apiKey() string {
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

func (c *OpenAIClient) baseURL() string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	return defaultOpenAIBaseURL
}

func (c *OpenAIClient) modelFor(task Task) (config.LLMModel, error) {
	key := ""
	switch task {
	case TaskGeneration:
		key = c.routing.Generation
	case TaskAnalysis:
		key = c.routing.Analysis
	}
	if key == "" {
		key = c.routing.Fallback
	}
	m, ok := c.cfg.Models[key]
	if !ok {
		return config.LLMModel{}, fmt.Errorf("no model configured for task %q (routing key %q)", task, key)
	}
	return m, nil
}

func (c *OpenAIClient) embeddingModel() string {
	if m, ok := c.cfg.Models[c.routing.Embedding]; ok {
		if m.APIName != "" {
			return m.APIName
		}
		return m.Name
	}
	return "text-embedding-3-small"
}

func (c *OpenAIClient) speechModel() string {
	if m, ok := c.cfg.Models[c.routing.Speech]; ok {
		if m.APIName != "" {
			return m.APIName
		}
		return m.Name
	}
	return "tts-1"
}

// post sends a JSON body and returns the raw response, retrying
// transient statuses up to the configured retry count.
func (c *OpenAIClient) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	retries := c.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL()+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey())

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("do: %w", err)
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read body: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return raw, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("OpenAI status %d: %s", resp.StatusCode, truncate(string(raw), 200))
			continue
		default:
			return nil, fmt.Errorf("OpenAI status %d: %s", resp.StatusCode, truncate(string(raw), 200))
		}
	}
	return nil, lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
