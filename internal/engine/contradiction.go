package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/parley/internal/telemetry"
	"github.com/mohammad-safakhou/parley/provider"
)

// ContradictionDetector asks the model to compare the current answer
// against everything said before. Detection is advisory: any failure
// (call, parse, validation) produces an empty list, never an error the
// conversation would see.
type ContradictionDetector struct {
	provider      provider.Provider
	telemetry     *telemetry.Telemetry
	logger        *log.Logger
	minConfidence float64
}

// NewContradictionDetector creates a detector that drops candidates
// below minConfidence.
func NewContradictionDetector(p provider.Provider, tel *telemetry.Telemetry, minConfidence float64) *ContradictionDetector {
	return &ContradictionDetector{
		provider:      p,
		telemetry:     tel,
		logger:        log.New(log.Writer(), "[CONTRA] ", log.LstdFlags),
		minConfidence: minConfidence,
	}
}

// Detect returns high-confidence contradiction candidates between past
// answers and the current one. With no past answers there is nothing to
// contradict.
func (d *ContradictionDetector) Detect(ctx context.Context, past []Answer, current Answer) []Contradiction {
	if len(past) == 0 || strings.TrimSpace(current.Text) == "" {
		return nil
	}

	var history strings.Builder
	for _, a := range past {
		fmt.Fprintf(&history, "Q%d: %s\nA%d: %s\n\n", a.QuestionID, a.QuestionText, a.QuestionID, a.Text)
	}

	prompt := fmt.Sprintf(`You review interview transcripts for statements that conflict with each other.

CONTRADICTION TYPES:
- direct: factual statements that cannot both be true
- behavioral: described behavior conflicts with earlier described behavior
- preference: stated preference conflicts with an earlier stated preference
- experience: claimed experience conflicts with an earlier claim
- opinion: expressed opinion conflicts with an earlier opinion

RULES:
1. Compare ONLY the current answer against the previous answers
2. Be conservative: natural elaboration, added nuance, or different examples are NOT contradictions
3. confidence is a number between 0 and 1; use values above 0.7 only when the conflict is unmistakable
4. past_question_id must be the number of the earlier question the conflict refers to
5. If there are no contradictions return an empty list

PREVIOUS ANSWERS:
%s
CURRENT ANSWER (question %d):
%s

OUTPUT FORMAT (JSON):
{
  "contradictions": [
    {
      "past_question_id": 2,
      "past_statement": "quote or close paraphrase of the earlier statement",
      "current_statement": "quote or close paraphrase of the current statement",
      "type": "direct|behavioral|preference|experience|opinion",
      "confidence": 0.8,
      "explanation": "one sentence on why these conflict"
    }
  ]
}
Return ONLY the JSON object. Do not include any other text.`, history.String(), current.QuestionID, current.Text)

	start := time.Now()
	raw, inTok, outTok, err := d.provider.CompleteWithTokens(ctx, provider.CompletionRequest{
		Task:        provider.TaskAnalysis,
		User:        prompt,
		Temperature: 0.1,
		JSONMode:    true,
	})
	d.telemetry.RecordLLM(ctx, telemetry.LLMEvent{
		Task:         string(provider.TaskAnalysis),
		Success:      err == nil,
		Duration:     time.Since(start),
		InputTokens:  inTok,
		OutputTokens: outTok,
		Cost:         d.provider.CalculateCost(provider.TaskAnalysis, inTok, outTok),
	})
	if err != nil {
		d.logger.Printf("detection call failed: %v (treating as no contradictions)", err)
		return nil
	}

	candidates, err := parseContradictions(raw, current.QuestionID)
	if err != nil {
		d.logger.Printf("detection parse failed: %v (treating as no contradictions)", err)
		return nil
	}

	var out []Contradiction
	for _, c := range candidates {
		if c.Confidence >= d.minConfidence {
			out = append(out, c)
		}
	}
	return out
}

// parseContradictions extracts the JSON object from a model reply and
// validates each candidate, silently dropping malformed entries.
func parseContradictions(raw string, currentQuestionID int) ([]Contradiction, error) {
	jsonStr := extractJSONObject(raw)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var payload struct {
		Contradictions []struct {
			PastQuestionID   int     `json:"past_question_id"`
			PastStatement    string  `json:"past_statement"`
			CurrentStatement string  `json:"current_statement"`
			Type             string  `json:"type"`
			Confidence       float64 `json:"confidence"`
			Explanation      string  `json:"explanation"`
		} `json:"contradictions"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal contradictions: %w", err)
	}

	var out []Contradiction
	for _, c := range payload.Contradictions {
		ctype := ContradictionType(strings.ToLower(strings.TrimSpace(c.Type)))
		if !ctype.Valid() {
			continue
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			continue
		}
		if strings.TrimSpace(c.PastStatement) == "" || strings.TrimSpace(c.CurrentStatement) == "" {
			continue
		}
		if c.PastQuestionID <= 0 || c.PastQuestionID >= currentQuestionID {
			continue
		}
		out = append(out, Contradiction{
			PastQuestionID:   c.PastQuestionID,
			PastStatement:    strings.TrimSpace(c.PastStatement),
			CurrentStatement: strings.TrimSpace(c.CurrentStatement),
			Type:             ctype,
			Confidence:       c.Confidence,
			Explanation:      strings.TrimSpace(c.Explanation),
		})
	}
	return out, nil
}

// extractJSONObject finds the first balanced top-level JSON object in
// text. Models occasionally wrap JSON in prose or code fences even when
// told not to.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
