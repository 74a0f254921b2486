package engine

import (
	"math/rand"
	"testing"

	"github.com/mohammad-safakhou/parley/internal/engine/state"
)

func testTracker(seed int64) *VarietyTracker {
	return &VarietyTracker{rng: rand.New(rand.NewSource(seed))}
}

func TestPickAvoidsRecentPhrases(t *testing.T) {
	v := testTracker(1)
	st := state.New("s")
	pool := []string{"a", "b", "c", "d", "e", "f"}

	seen := make(map[string]int)
	for i := 0; i < 6; i++ {
		p := v.Pick(st, categoryTransition, pool, nil)
		seen[p]++
	}
	// Window of 5 over a pool of 6 forces all six to appear once.
	if len(seen) != 6 {
		t.Fatalf("expected all 6 phrases before any repeat, saw %v", seen)
	}
	for p, n := range seen {
		if n != 1 {
			t.Fatalf("phrase %q repeated inside the window", p)
		}
	}
}

func TestPickResetsExhaustedPoolAvoidingMostRecent(t *testing.T) {
	v := testTracker(7)
	st := state.New("s")
	pool := []string{"x", "y", "z"}

	var picks []string
	for i := 0; i < 20; i++ {
		picks = append(picks, v.Pick(st, categoryProbing, pool, nil))
	}
	for i := 1; i < len(picks); i++ {
		if picks[i] == picks[i-1] {
			t.Fatalf("back-to-back repeat of %q at position %d", picks[i], i)
		}
	}
}

func TestPickSingletonPool(t *testing.T) {
	v := testTracker(3)
	st := state.New("s")

	for i := 0; i < 3; i++ {
		if p := v.Pick(st, categoryInterest, []string{"only"}, nil); p != "only" {
			t.Fatalf("singleton pool must always yield its phrase, got %q", p)
		}
	}
	if p := v.Pick(st, categoryInterest, nil, nil); p != "" {
		t.Fatalf("empty pool should yield empty string, got %q", p)
	}
}

func TestPickIsolatesCategories(t *testing.T) {
	v := testTracker(5)
	st := state.New("s")

	v.Pick(st, categoryTransition, []string{"shared"}, nil)
	if p := v.Pick(st, categoryProbing, []string{"shared"}, nil); p != "shared" {
		t.Fatalf("windows must be per category, got %q", p)
	}
}

func TestFillTemplate(t *testing.T) {
	cases := []struct {
		tmpl string
		vars map[string]string
		want string
	}{
		{"Interesting that {topic} keeps coming up.", map[string]string{"topic": "caching"}, "Interesting that caching keeps coming up."},
		{"From {previous_topic} to {topic}.", map[string]string{"previous_topic": "redis", "topic": "postgres"}, "From redis to postgres."},
		{"Interesting that {topic} keeps coming up.", nil, "Interesting that {topic} keeps coming up."},
		{"From {previous_topic} to {topic}.", map[string]string{"topic": "postgres"}, "From {previous_topic} to {topic}."},
		{"No placeholders here.", nil, "No placeholders here."},
	}
	for _, tc := range cases {
		if got := fillTemplate(tc.tmpl, tc.vars); got != tc.want {
			t.Fatalf("fillTemplate(%q) = %q, want %q", tc.tmpl, got, tc.want)
		}
	}
}

func TestPickFillsPlaceholders(t *testing.T) {
	v := testTracker(11)
	st := state.New("s")

	p := v.Pick(st, categoryInterest, interestPool(), map[string]string{"topic": "kubernetes"})
	if p == "" {
		t.Fatalf("empty pick")
	}
	for _, raw := range interestPool() {
		if p == raw {
			t.Fatalf("placeholder was not filled: %q", p)
		}
	}

	// The remembered window stores raw templates so later exclusion
	// works regardless of the filled topic.
	recent := st.RecentInCategory(categoryInterest)
	if len(recent) != 1 {
		t.Fatalf("expected one remembered template, got %v", recent)
	}
	found := false
	for _, raw := range interestPool() {
		if recent[0] == raw {
			found = true
		}
	}
	if !found {
		t.Fatalf("window should hold the raw template, got %q", recent[0])
	}
}

func TestAcknowledgmentPoolsPerTier(t *testing.T) {
	tiers := []string{QualityExcellent, QualityGood, QualityAdequate, QualityWeak, QualityVague}
	seen := make(map[string]bool)
	for _, tier := range tiers {
		pool := acknowledgmentPool(tier)
		if len(pool) == 0 {
			t.Fatalf("tier %s has an empty pool", tier)
		}
		for _, p := range pool {
			if seen[p] {
				t.Fatalf("phrase %q appears in more than one tier", p)
			}
			seen[p] = true
		}
	}
}
