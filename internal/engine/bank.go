package engine

import (
	"fmt"
	"log"
	"strings"

	"github.com/blevesearch/bleve"
)

// QuestionBank is the curated corpus, preferred over generative calls
// whenever an unused entry matches. Entries are also indexed in an
// in-memory bleve index so deep dives can pull a curated question for a
// topic before falling back to generation.
type QuestionBank struct {
	entries []BankQuestion
	byID    map[string]BankQuestion
	index   bleve.Index
	logger  *log.Logger
}

type bankDoc struct {
	Text   string `json:"text"`
	Topics string `json:"topics"`
	Role   string `json:"role"`
	Intent string `json:"intent"`
}

// NewQuestionBank builds the bank and its topic index from the curated
// data set.
func NewQuestionBank() (*QuestionBank, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("question bank index: %w", err)
	}
	b := &QuestionBank{
		entries: bankQuestions,
		byID:    make(map[string]BankQuestion, len(bankQuestions)),
		index:   index,
		logger:  log.New(log.Writer(), "[BANK] ", log.LstdFlags),
	}
	for i, q := range bankQuestions {
		id := fmt.Sprintf("q-%03d", i)
		b.byID[id] = q
		doc := bankDoc{
			Text:   q.Text,
			Topics: strings.Join(q.Topics, " "),
			Role:   q.Role,
			Intent: string(q.Intent),
		}
		if err := index.Index(id, doc); err != nil {
			return nil, fmt.Errorf("index bank question %s: %w", id, err)
		}
	}
	return b, nil
}

// Find returns the first unused bank question for a role, difficulty
// and intent. Lookups walk from most to least specific: exact family
// and band, then the family at any band, then the general pool. The
// used predicate is matched against question text case-insensitively.
func (b *QuestionBank) Find(role, difficulty string, intent Intent, used func(string) bool) (string, bool) {
	family := normalizeRole(role)
	band := normalizeDifficulty(difficulty)

	passes := []func(q BankQuestion) bool{
		func(q BankQuestion) bool { return q.Role == family && q.Difficulty == band },
		func(q BankQuestion) bool { return q.Role == family },
		func(q BankQuestion) bool { return q.Role == roleGeneral && q.Difficulty == band },
		func(q BankQuestion) bool { return q.Role == roleGeneral },
	}
	for _, match := range passes {
		for _, q := range b.entries {
			if q.Intent != intent || !match(q) {
				continue
			}
			if used != nil && used(q.Text) {
				continue
			}
			return q.Text, true
		}
	}
	return "", false
}

// FindByTopic searches the index for an unused question touching a
// topic. Search failures are logged and reported as a miss.
func (b *QuestionBank) FindByTopic(topic string, used func(string) bool) (string, bool) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", false
	}
	query := bleve.NewQueryStringQuery(topic)
	req := bleve.NewSearchRequestOptions(query, 10, 0, false)
	res, err := b.index.Search(req)
	if err != nil {
		b.logger.Printf("topic search %q failed: %v", topic, err)
		return "", false
	}
	for _, hit := range res.Hits {
		q, ok := b.byID[hit.ID]
		if !ok {
			continue
		}
		if used != nil && used(q.Text) {
			continue
		}
		return q.Text, true
	}
	return "", false
}

// normalizeRole maps a free-form role title onto a bank family.
func normalizeRole(role string) string {
	r := strings.ToLower(role)
	switch {
	case strings.Contains(r, "backend"), strings.Contains(r, "back-end"),
		strings.Contains(r, "back end"), strings.Contains(r, "server"):
		return roleBackend
	case strings.Contains(r, "frontend"), strings.Contains(r, "front-end"),
		strings.Contains(r, "front end"), strings.Contains(r, "react"),
		strings.Contains(r, "javascript"):
		return roleFrontend
	case strings.Contains(r, "data"), strings.Contains(r, "machine learning"),
		strings.Contains(r, "analytics"):
		return roleData
	case strings.Contains(r, "devops"), strings.Contains(r, "sre"),
		strings.Contains(r, "reliability"), strings.Contains(r, "infrastructure"),
		strings.Contains(r, "platform"):
		return roleDevOps
	default:
		return roleGeneral
	}
}

// normalizeDifficulty maps a free-form difficulty or seniority label
// onto a bank band.
func normalizeDifficulty(difficulty string) string {
	d := strings.ToLower(difficulty)
	switch {
	case strings.Contains(d, "junior"), strings.Contains(d, "entry"),
		strings.Contains(d, "intern"), strings.Contains(d, "graduate"),
		strings.Contains(d, "easy"):
		return difficultyJunior
	case strings.Contains(d, "senior"), strings.Contains(d, "staff"),
		strings.Contains(d, "principal"), strings.Contains(d, "lead"),
		strings.Contains(d, "hard"):
		return difficultySenior
	default:
		return difficultyMid
	}
}
