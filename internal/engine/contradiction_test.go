package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/mohammad-safakhou/parley/provider"
)

func TestDetectNoPastAnswers(t *testing.T) {
	stub := &stubProvider{}
	d := NewContradictionDetector(stub, testTelemetry(), 0.7)

	got := d.Detect(context.Background(), nil, Answer{QuestionID: 1, Text: "anything"})
	if got != nil {
		t.Fatalf("expected nil without history, got %v", got)
	}
	if stub.calls != 0 {
		t.Fatalf("no model call expected without history, got %d", stub.calls)
	}
}

func TestDetectFiltersLowConfidence(t *testing.T) {
	reply := `{"contradictions":[
		{"past_question_id":1,"past_statement":"I prefer working alone","current_statement":"I thrive in pair programming","type":"preference","confidence":0.9,"explanation":"opposite preferences"},
		{"past_question_id":1,"past_statement":"a","current_statement":"b","type":"opinion","confidence":0.5,"explanation":"weak"}
	]}`
	stub := &stubProvider{completeFn: func(req provider.CompletionRequest) (string, error) {
		if !req.JSONMode {
			t.Errorf("detection should request JSON mode")
		}
		return reply, nil
	}}
	d := NewContradictionDetector(stub, testTelemetry(), 0.7)

	past := []Answer{{QuestionID: 1, QuestionText: "How do you like to work?", Text: "I prefer working alone."}}
	got := d.Detect(context.Background(), past, Answer{QuestionID: 3, Text: "I thrive in pair programming."})
	if len(got) != 1 {
		t.Fatalf("expected 1 surviving candidate, got %v", got)
	}
	if got[0].Type != ContradictionPreference || got[0].Confidence != 0.9 {
		t.Fatalf("unexpected candidate %+v", got[0])
	}
}

func TestDetectToleratesWrappedJSON(t *testing.T) {
	reply := "Here is what I found:\n```json\n" +
		`{"contradictions":[{"past_question_id":2,"past_statement":"five years of Go","current_statement":"new to Go","type":"experience","confidence":0.85,"explanation":"conflicting experience claims"}]}` +
		"\n```"
	stub := &stubProvider{completeFn: func(req provider.CompletionRequest) (string, error) { return reply, nil }}
	d := NewContradictionDetector(stub, testTelemetry(), 0.7)

	past := []Answer{{QuestionID: 2, Text: "I have five years of Go."}}
	got := d.Detect(context.Background(), past, Answer{QuestionID: 4, Text: "I am new to Go."})
	if len(got) != 1 || got[0].Type != ContradictionExperience {
		t.Fatalf("expected wrapped JSON to parse, got %v", got)
	}
}

func TestDetectDropsMalformedEntries(t *testing.T) {
	reply := `{"contradictions":[
		{"past_question_id":1,"past_statement":"x","current_statement":"y","type":"made_up_type","confidence":0.9,"explanation":"bad type"},
		{"past_question_id":1,"past_statement":"x","current_statement":"y","type":"direct","confidence":1.4,"explanation":"bad confidence"},
		{"past_question_id":1,"past_statement":"","current_statement":"y","type":"direct","confidence":0.9,"explanation":"empty statement"},
		{"past_question_id":9,"past_statement":"x","current_statement":"y","type":"direct","confidence":0.9,"explanation":"future question"},
		{"past_question_id":1,"past_statement":"x","current_statement":"y","type":"DIRECT","confidence":0.75,"explanation":"case folded, valid"}
	]}`
	stub := &stubProvider{completeFn: func(req provider.CompletionRequest) (string, error) { return reply, nil }}
	d := NewContradictionDetector(stub, testTelemetry(), 0.7)

	past := []Answer{{QuestionID: 1, Text: "x"}}
	got := d.Detect(context.Background(), past, Answer{QuestionID: 3, Text: "y"})
	if len(got) != 1 {
		t.Fatalf("expected only the valid entry, got %v", got)
	}
	if got[0].Type != ContradictionDirect || got[0].Confidence != 0.75 {
		t.Fatalf("unexpected survivor %+v", got[0])
	}
}

func TestDetectFailuresReturnEmpty(t *testing.T) {
	failing := &stubProvider{completeFn: func(req provider.CompletionRequest) (string, error) {
		return "", errors.New("timeout")
	}}
	d := NewContradictionDetector(failing, testTelemetry(), 0.7)
	past := []Answer{{QuestionID: 1, Text: "x"}}
	if got := d.Detect(context.Background(), past, Answer{QuestionID: 2, Text: "y"}); len(got) != 0 {
		t.Fatalf("call failure should yield empty, got %v", got)
	}

	garbled := &stubProvider{completeFn: func(req provider.CompletionRequest) (string, error) {
		return "I could not find anything structured to say", nil
	}}
	d2 := NewContradictionDetector(garbled, testTelemetry(), 0.7)
	if got := d2.Detect(context.Background(), past, Answer{QuestionID: 2, Text: "y"}); len(got) != 0 {
		t.Fatalf("parse failure should yield empty, got %v", got)
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"noise {\"a\":{\"b\":2}} trailing", `{"a":{"b":2}}`},
		{`{"s":"brace } in string"}`, `{"s":"brace } in string"}`},
		{`{"s":"escaped \" quote }"}`, `{"s":"escaped \" quote }"}`},
		{"no json here", ""},
		{"{unterminated", ""},
	}
	for _, c := range cases {
		if got := extractJSONObject(c.in); got != c.want {
			t.Fatalf("extractJSONObject(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
