package engine

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("identical vectors should score 1, got %v", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors should score 0, got %v", got)
	}
	if got := Cosine([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Fatalf("zero magnitude should score 0, got %v", got)
	}
	if got := Cosine(nil, []float32{1}); got != 0 {
		t.Fatalf("empty vector should score 0, got %v", got)
	}

	a, b := []float32{0.3, 0.7, 0.1}, []float32{0.5, 0.2, 0.9}
	if Cosine(a, b) != Cosine(b, a) {
		t.Fatalf("cosine must be symmetric")
	}

	// mismatched lengths compare over the shared prefix
	if got := Cosine([]float32{1, 0, 5}, []float32{1, 0}); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("prefix comparison expected 1, got %v", got)
	}
}

func TestFindSimilar(t *testing.T) {
	answers := []Answer{
		{QuestionID: 1, Embedding: []float32{1, 0}},
		{QuestionID: 2, Embedding: nil}, // no embedding, skipped
		{QuestionID: 3, Embedding: []float32{0.9, 0.1}},
		{QuestionID: 4, Embedding: []float32{0, 1}},
	}
	query := []float32{1, 0}

	got := FindSimilar(answers, query, 2)
	if len(got) != 2 {
		t.Fatalf("expected top 2, got %d", len(got))
	}
	if got[0].Answer.QuestionID != 1 || got[1].Answer.QuestionID != 3 {
		t.Fatalf("unexpected ranking: %v, %v", got[0].Answer.QuestionID, got[1].Answer.QuestionID)
	}
	if got[0].Similarity < got[1].Similarity {
		t.Fatalf("results must be descending")
	}

	if FindSimilar(answers, nil, 3) != nil {
		t.Fatalf("empty query should return nil")
	}
	if FindSimilar(answers, query, 0) != nil {
		t.Fatalf("k=0 should return nil")
	}
}
