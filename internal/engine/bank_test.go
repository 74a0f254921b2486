package engine

import (
	"strings"
	"testing"
)

func TestBankFindMatchesRoleAndDifficulty(t *testing.T) {
	b, err := NewQuestionBank()
	if err != nil {
		t.Fatalf("new bank: %v", err)
	}

	text, ok := b.Find("Senior Backend Engineer", "senior", IntentTechnicalSkills, nil)
	if !ok {
		t.Fatalf("expected a senior backend technical question")
	}
	found := false
	for _, q := range bankQuestions {
		if q.Text == text {
			if q.Role != roleBackend || q.Difficulty != difficultySenior {
				t.Fatalf("expected exact family+band match first, got %s/%s", q.Role, q.Difficulty)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("returned text not in the bank: %q", text)
	}
}

func TestBankFindFallsBackToGeneral(t *testing.T) {
	b, err := NewQuestionBank()
	if err != nil {
		t.Fatalf("new bank: %v", err)
	}

	// No security family exists; the general pool must cover it.
	text, ok := b.Find("Security Engineer", "mid", IntentBehavioral, nil)
	if !ok {
		t.Fatalf("expected a general-pool fallback question")
	}
	if text == "" {
		t.Fatalf("empty question text")
	}
}

func TestBankFindExcludesUsedCaseInsensitively(t *testing.T) {
	b, err := NewQuestionBank()
	if err != nil {
		t.Fatalf("new bank: %v", err)
	}

	first, ok := b.Find("backend", "junior", IntentTechnicalSkills, nil)
	if !ok {
		t.Fatalf("expected a first question")
	}

	used := map[string]bool{strings.ToLower(first): true}
	isUsed := func(text string) bool { return used[strings.ToLower(text)] }

	second, ok := b.Find("backend", "junior", IntentTechnicalSkills, isUsed)
	if !ok {
		t.Fatalf("expected a second unused question")
	}
	if strings.EqualFold(first, second) {
		t.Fatalf("used question served twice: %q", first)
	}
}

func TestBankFindExhausted(t *testing.T) {
	b, err := NewQuestionBank()
	if err != nil {
		t.Fatalf("new bank: %v", err)
	}

	everything := func(string) bool { return true }
	if _, ok := b.Find("backend", "mid", IntentTechnicalSkills, everything); ok {
		t.Fatalf("exhausted bank should report a miss, not raise")
	}
}

func TestBankFindByTopic(t *testing.T) {
	b, err := NewQuestionBank()
	if err != nil {
		t.Fatalf("new bank: %v", err)
	}

	text, ok := b.FindByTopic("databases", nil)
	if !ok {
		t.Fatalf("expected a database question from the index")
	}
	tagged := false
	for _, q := range bankQuestions {
		if q.Text != text {
			continue
		}
		for _, topic := range q.Topics {
			if topic == "databases" {
				tagged = true
			}
		}
	}
	if !tagged {
		t.Fatalf("hit is not tagged with the searched topic: %q", text)
	}

	if _, ok := b.FindByTopic("", nil); ok {
		t.Fatalf("blank topic should miss")
	}
	if _, ok := b.FindByTopic("databases", func(string) bool { return true }); ok {
		t.Fatalf("all-used topic search should miss")
	}
}

func TestNormalizeRoleFamilies(t *testing.T) {
	cases := []struct {
		role string
		want string
	}{
		{"Senior Backend Engineer", roleBackend},
		{"Back-End Developer", roleBackend},
		{"Frontend Engineer", roleFrontend},
		{"React Developer", roleFrontend},
		{"Data Engineer", roleData},
		{"Machine Learning Engineer", roleData},
		{"Site Reliability Engineer", roleDevOps},
		{"Platform Engineer", roleDevOps},
		{"Product Manager", roleGeneral},
		{"Software Engineer", roleGeneral},
	}
	for _, tc := range cases {
		if got := normalizeRole(tc.role); got != tc.want {
			t.Fatalf("normalizeRole(%q) = %s, want %s", tc.role, got, tc.want)
		}
	}
}

func TestNormalizeDifficultyBands(t *testing.T) {
	cases := []struct {
		difficulty string
		want       string
	}{
		{"junior", difficultyJunior},
		{"Entry Level", difficultyJunior},
		{"easy", difficultyJunior},
		{"medium", difficultyMid},
		{"", difficultyMid},
		{"Senior", difficultySenior},
		{"Staff", difficultySenior},
		{"hard", difficultySenior},
	}
	for _, tc := range cases {
		if got := normalizeDifficulty(tc.difficulty); got != tc.want {
			t.Fatalf("normalizeDifficulty(%q) = %s, want %s", tc.difficulty, got, tc.want)
		}
	}
}
