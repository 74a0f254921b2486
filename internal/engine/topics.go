package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/mohammad-safakhou/parley/internal/telemetry"
	"github.com/mohammad-safakhou/parley/provider"
)

// TopicExtractor pulls short topic labels out of answers so the
// decision engine can spot what a candidate keeps coming back to.
type TopicExtractor struct {
	provider  provider.Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewTopicExtractor creates a topic extractor.
func NewTopicExtractor(p provider.Provider, tel *telemetry.Telemetry) *TopicExtractor {
	return &TopicExtractor{
		provider:  p,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[TOPICS] ", log.LstdFlags),
	}
}

const maxTopicsPerAnswer = 5

// ExtractTopics asks the model for up to five topic labels in one answer.
func (e *TopicExtractor) ExtractTopics(ctx context.Context, answer Answer) ([]string, error) {
	prompt := fmt.Sprintf(`You label interview answers with the topics they mention.

RULES:
1. Return at most %d topics
2. Each topic is 1-3 lowercase words (e.g. "microservices", "team conflict", "postgres")
3. Only topics actually discussed in the answer, no speculation
4. Respond with a single comma-separated line, nothing else

ANSWER:
%s`, maxTopicsPerAnswer, answer.Text)

	start := time.Now()
	raw, inTok, outTok, err := e.provider.CompleteWithTokens(ctx, provider.CompletionRequest{
		Task:        provider.TaskAnalysis,
		User:        prompt,
		Temperature: 0.2,
		MaxTokens:   100,
	})
	e.telemetry.RecordLLM(ctx, telemetry.LLMEvent{
		Task:         string(provider.TaskAnalysis),
		Success:      err == nil,
		Duration:     time.Since(start),
		InputTokens:  inTok,
		OutputTokens: outTok,
		Cost:         e.provider.CalculateCost(provider.TaskAnalysis, inTok, outTok),
	})
	if err != nil {
		return nil, fmt.Errorf("topic extraction: %w", err)
	}
	return parseTopicLabels(raw), nil
}

// AggregateTopics extracts topics from every answer and counts label
// mentions across the conversation. A single failing answer contributes
// nothing; aggregation never fails as a whole.
func (e *TopicExtractor) AggregateTopics(ctx context.Context, answers []Answer) []TopicMention {
	counts := make(map[string]int)
	for _, a := range answers {
		labels, err := e.ExtractTopics(ctx, a)
		if err != nil {
			e.logger.Printf("answer %d: %v (skipping)", a.QuestionID, err)
			continue
		}
		for _, label := range labels {
			counts[label]++
		}
	}

	mentions := make([]TopicMention, 0, len(counts))
	for label, count := range counts {
		mentions = append(mentions, TopicMention{Label: label, Count: count})
	}
	sort.Slice(mentions, func(i, j int) bool {
		if mentions[i].Count != mentions[j].Count {
			return mentions[i].Count > mentions[j].Count
		}
		return mentions[i].Label < mentions[j].Label
	})
	return mentions
}

// RepeatedTopics filters mentions down to labels seen at least twice.
func RepeatedTopics(mentions []TopicMention) []TopicMention {
	var repeated []TopicMention
	for _, m := range mentions {
		if m.Count >= 2 {
			repeated = append(repeated, m)
		}
	}
	return repeated
}

// parseTopicLabels normalises a comma or newline separated model reply
// into clean lowercase labels, deduplicated, at most five.
func parseTopicLabels(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})
	seen := make(map[string]struct{}, len(fields))
	var labels []string
	for _, f := range fields {
		label := strings.ToLower(strings.TrimSpace(f))
		label = strings.TrimLeft(label, "-*0123456789. ")
		label = strings.Trim(label, `"'`)
		if label == "" {
			continue
		}
		if words := strings.Fields(label); len(words) > 3 {
			label = strings.Join(words[:3], " ")
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
		if len(labels) == maxTopicsPerAnswer {
			break
		}
	}
	return labels
}
