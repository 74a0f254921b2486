package engine

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/parley/provider"
)

func TestParseTopicLabels(t *testing.T) {
	raw := "- Kubernetes,  TEAM CONFLICT\npostgres; Postgres, \"ci pipelines\""
	got := parseTopicLabels(raw)
	want := []string{"kubernetes", "team conflict", "postgres", "ci pipelines"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseTopicLabelsTruncatesAndCaps(t *testing.T) {
	long := "one two three four five six"
	got := parseTopicLabels(long)
	if len(got) != 1 || got[0] != "one two three" {
		t.Fatalf("expected 3-word truncation, got %v", got)
	}

	many := "a, b, c, d, e, f, g"
	if got := parseTopicLabels(many); len(got) != maxTopicsPerAnswer {
		t.Fatalf("expected cap at %d, got %v", maxTopicsPerAnswer, got)
	}
}

func TestAggregateTopicsCountsAcrossAnswers(t *testing.T) {
	stub := &stubProvider{completeFn: func(req provider.CompletionRequest) (string, error) {
		switch {
		case strings.Contains(req.User, "first answer"):
			return "microservices, kafka", nil
		case strings.Contains(req.User, "second answer"):
			return "kafka, on-call", nil
		default:
			return "kafka", nil
		}
	}}
	e := NewTopicExtractor(stub, testTelemetry())

	answers := []Answer{
		{QuestionID: 1, Text: "first answer"},
		{QuestionID: 2, Text: "second answer"},
		{QuestionID: 3, Text: "third answer"},
	}
	mentions := e.AggregateTopics(context.Background(), answers)
	if len(mentions) != 3 {
		t.Fatalf("expected 3 labels, got %v", mentions)
	}
	if mentions[0].Label != "kafka" || mentions[0].Count != 3 {
		t.Fatalf("expected kafka x3 first, got %+v", mentions[0])
	}

	repeated := RepeatedTopics(mentions)
	if len(repeated) != 1 || repeated[0].Label != "kafka" {
		t.Fatalf("expected only kafka repeated, got %v", repeated)
	}
}

func TestAggregateTopicsSkipsFailingAnswer(t *testing.T) {
	stub := &stubProvider{completeFn: func(req provider.CompletionRequest) (string, error) {
		if strings.Contains(req.User, "broken") {
			return "", errors.New("model unavailable")
		}
		return "testing", nil
	}}
	e := NewTopicExtractor(stub, testTelemetry())

	answers := []Answer{
		{QuestionID: 1, Text: "broken one"},
		{QuestionID: 2, Text: "fine"},
	}
	mentions := e.AggregateTopics(context.Background(), answers)
	if len(mentions) != 1 || mentions[0].Label != "testing" || mentions[0].Count != 1 {
		t.Fatalf("expected surviving answer only, got %v", mentions)
	}
}

func TestAggregateTopicsSortStable(t *testing.T) {
	stub := &stubProvider{completeFn: func(req provider.CompletionRequest) (string, error) {
		return "beta, alpha", nil
	}}
	e := NewTopicExtractor(stub, testTelemetry())
	mentions := e.AggregateTopics(context.Background(), []Answer{{QuestionID: 1, Text: "x"}})
	if len(mentions) != 2 || mentions[0].Label != "alpha" {
		t.Fatalf("equal counts should sort by label, got %v", mentions)
	}
}
