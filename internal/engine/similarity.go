package engine

import (
	"math"
	"sort"
)

// Cosine computes cosine similarity between two vectors. Either vector
// having zero magnitude yields 0, and length mismatches are compared
// over the shared prefix.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// FindSimilar ranks answers that carry embeddings by similarity to the
// query vector, descending, and returns at most k results. Answers
// without embeddings are skipped. A linear scan is plenty here;
// sessions hold tens of answers, not millions.
func FindSimilar(answers []Answer, query []float32, k int) []SimilarAnswer {
	if len(query) == 0 || k <= 0 {
		return nil
	}
	var out []SimilarAnswer
	for _, a := range answers {
		if len(a.Embedding) == 0 {
			continue
		}
		out = append(out, SimilarAnswer{Answer: a, Similarity: Cosine(a.Embedding, query)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > k {
		out = out[:k]
	}
	return out
}
