package state

import (
	"context"
	"strings"
	"time"
)

// SessionState is the engine-local memory of one interview: cooldown
// ledger, phrasing windows, probe counters and served question texts.
// It is ephemeral by contract; losing it degrades variety, never
// correctness, because it can always be rebuilt empty.
type SessionState struct {
	SessionID     string              `json:"session_id"`
	Cooldowns     map[string]int      `json:"cooldowns"`      // action -> question number it last fired on
	RecentPhrases map[string][]string `json:"recent_phrases"` // category -> most recent phrases, oldest first
	ProbeCounts   map[int]int         `json:"probe_counts"`   // question number -> probes used
	UsedQuestions []string            `json:"used_questions"` // normalized question texts already asked
	UpdatedAt     time.Time           `json:"updated_at"`
}

// New returns an empty state for a session.
func New(sessionID string) *SessionState {
	return &SessionState{
		SessionID:     sessionID,
		Cooldowns:     make(map[string]int),
		RecentPhrases: make(map[string][]string),
		ProbeCounts:   make(map[int]int),
	}
}

// normalize repairs nil maps after JSON round trips.
func (s *SessionState) normalize() *SessionState {
	if s.Cooldowns == nil {
		s.Cooldowns = make(map[string]int)
	}
	if s.RecentPhrases == nil {
		s.RecentPhrases = make(map[string][]string)
	}
	if s.ProbeCounts == nil {
		s.ProbeCounts = make(map[int]int)
	}
	return s
}

// Clone returns a deep copy.
func (s *SessionState) Clone() *SessionState {
	c := New(s.SessionID)
	c.UpdatedAt = s.UpdatedAt
	for k, v := range s.Cooldowns {
		c.Cooldowns[k] = v
	}
	for k, v := range s.RecentPhrases {
		c.RecentPhrases[k] = append([]string(nil), v...)
	}
	for k, v := range s.ProbeCounts {
		c.ProbeCounts[k] = v
	}
	c.UsedQuestions = append([]string(nil), s.UsedQuestions...)
	return c
}

// CooldownOver reports whether an action may fire at the current
// question number given its cooldown window. An action that never fired
// is always allowed.
func (s *SessionState) CooldownOver(action string, current, window int) bool {
	last, ok := s.Cooldowns[action]
	if !ok {
		return true
	}
	return current-last >= window
}

// MarkFired records that an action fired on a question number.
func (s *SessionState) MarkFired(action string, questionNumber int) {
	s.Cooldowns[action] = questionNumber
}

// RecentInCategory returns the remembered phrases for a category,
// oldest first.
func (s *SessionState) RecentInCategory(category string) []string {
	return s.RecentPhrases[category]
}

// RememberPhrase appends a phrase to a category's window, trimming it
// to the window size.
func (s *SessionState) RememberPhrase(category, phrase string, window int) {
	list := append(s.RecentPhrases[category], phrase)
	if window > 0 && len(list) > window {
		list = list[len(list)-window:]
	}
	s.RecentPhrases[category] = list
}

// MarkQuestionUsed records a served question text for repeat exclusion.
func (s *SessionState) MarkQuestionUsed(text string) {
	norm := normalizeQuestion(text)
	if norm == "" || s.QuestionUsed(text) {
		return
	}
	s.UsedQuestions = append(s.UsedQuestions, norm)
}

// QuestionUsed reports whether a question text was already served,
// case-insensitively.
func (s *SessionState) QuestionUsed(text string) bool {
	norm := normalizeQuestion(text)
	for _, u := range s.UsedQuestions {
		if u == norm {
			return true
		}
	}
	return false
}

// Probes returns how many probes were spent on a question.
func (s *SessionState) Probes(questionNumber int) int {
	return s.ProbeCounts[questionNumber]
}

// AddProbe spends one probe on a question.
func (s *SessionState) AddProbe(questionNumber int) {
	s.ProbeCounts[questionNumber]++
}

func normalizeQuestion(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Store loads and saves per-session engine state. Get never fails on a
// missing session; it returns a fresh empty state instead.
type Store interface {
	Get(ctx context.Context, sessionID string) (*SessionState, error)
	Save(ctx context.Context, st *SessionState) error
	Reset(ctx context.Context, sessionID string) error
}
