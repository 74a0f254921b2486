package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/parley/config"
	"github.com/mohammad-safakhou/parley/internal/telemetry"
	"github.com/mohammad-safakhou/parley/provider"
)

// maxDocumentChars caps extracted text so one oversized resume cannot
// blow the scoring prompt.
const maxDocumentChars = 20000

// Service handles resume and job-posting intake: text extraction, an
// optional headless fetch for posting URLs, and a single scoring call.
// Stateless; every method is safe for concurrent use.
type Service struct {
	cfg       config.IntakeConfig
	provider  provider.Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// New builds the intake service.
func New(cfg config.IntakeConfig, p provider.Provider, tele *telemetry.Telemetry) *Service {
	return &Service{
		cfg:       cfg.Normalize(),
		provider:  p,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[INTAKE] ", log.LstdFlags),
	}
}

// ResumeScore is the outcome of scoring one resume against a role.
type ResumeScore struct {
	Score      int      `json:"score"`
	Strengths  []string `json:"strengths"`
	Gaps       []string `json:"gaps"`
	Summary    string   `json:"summary"`
	IsFallback bool     `json:"is_fallback,omitempty"`
}

// ExtractText returns the plain text of a submitted document. HTML is
// run through readability; anything else passes through trimmed.
func (s *Service) ExtractText(content, contentType string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errors.New("empty document")
	}

	if isHTML(content, contentType) {
		article, err := readability.FromReader(strings.NewReader(content), &url.URL{})
		if err != nil {
			return "", fmt.Errorf("readability: %w", err)
		}
		content = strings.TrimSpace(article.TextContent)
		if content == "" {
			return "", errors.New("no readable text in document")
		}
	}
	return clip(content, maxDocumentChars), nil
}

// isHTML sniffs the document kind from the declared type, then the
// content itself.
func isHTML(content, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := strings.ToLower(content)
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

// FetchPosting renders a job-posting URL headlessly and extracts its
// text. The configured fetch policy decides which hosts are allowed.
func (s *Service) FetchPosting(ctx context.Context, rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", errors.New("empty url")
	}
	if !s.cfg.FetchPolicy.Permits(rawURL) {
		return "", fmt.Errorf("fetch policy disallows %s", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	html, err := s.fetchHTML(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		parsed = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", rawURL, err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no readable text at %s", rawURL)
	}
	return clip(text, maxDocumentChars), nil
}

func (s *Service) fetchHTML(ctx context.Context, rawURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(s.cfg.UserAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

// ScoreResume asks the analysis model to score a resume against a role
// and difficulty. One call, structured JSON back; any failure returns
// the neutral fallback score so intake never blocks session creation.
func (s *Service) ScoreResume(ctx context.Context, resumeText, role, difficulty string) ResumeScore {
	resumeText = clip(strings.TrimSpace(resumeText), maxDocumentChars)
	if resumeText == "" {
		return fallbackScore()
	}

	system := "You are a technical recruiter assessing how well a resume fits a role. Be factual and terse; judge only what the resume states."
	user := fmt.Sprintf(`Assess this resume for the role below.

ROLE: %s
LEVEL: %s

RESUME:
%s

RULES:
1. score is an integer 0-100 for fit against the role and level.
2. strengths and gaps each hold at most 5 short phrases grounded in the resume text.
3. summary is at most 2 sentences.

OUTPUT FORMAT (JSON):
{
  "score": 0,
  "strengths": ["..."],
  "gaps": ["..."],
  "summary": "..."
}

Return ONLY the JSON object.`, role, difficulty, resumeText)

	start := time.Now()
	raw, inTok, outTok, err := s.provider.CompleteWithTokens(ctx, provider.CompletionRequest{
		Task:     provider.TaskAnalysis,
		System:   system,
		User:     user,
		JSONMode: true,
	})
	if s.telemetry != nil {
		s.telemetry.RecordLLM(ctx, telemetry.LLMEvent{
			Task:         string(provider.TaskAnalysis),
			Success:      err == nil,
			Duration:     time.Since(start),
			InputTokens:  inTok,
			OutputTokens: outTok,
			Cost:         s.provider.CalculateCost(provider.TaskAnalysis, inTok, outTok),
		})
	}
	if err != nil {
		s.logger.Printf("resume scoring failed: %v (returning neutral score)", err)
		return fallbackScore()
	}

	score, err := parseResumeScore(raw)
	if err != nil {
		s.logger.Printf("resume score parse failed: %v (returning neutral score)", err)
		return fallbackScore()
	}
	return score
}

// parseResumeScore validates the model's JSON reply.
func parseResumeScore(raw string) (ResumeScore, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return ResumeScore{}, errors.New("no JSON object found in response")
	}

	var score ResumeScore
	if err := json.Unmarshal([]byte(raw[start:end+1]), &score); err != nil {
		return ResumeScore{}, fmt.Errorf("unmarshal score: %w", err)
	}
	if score.Score < 0 {
		score.Score = 0
	}
	if score.Score > 100 {
		score.Score = 100
	}
	if len(score.Strengths) > 5 {
		score.Strengths = score.Strengths[:5]
	}
	if len(score.Gaps) > 5 {
		score.Gaps = score.Gaps[:5]
	}
	return score, nil
}

func fallbackScore() ResumeScore {
	return ResumeScore{
		Score:      50,
		Summary:    "Automated scoring was unavailable; the resume was accepted without assessment.",
		IsFallback: true,
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
