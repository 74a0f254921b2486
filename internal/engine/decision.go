package engine

import (
	"fmt"
	"log"

	"github.com/mohammad-safakhou/parley/config"
	"github.com/mohammad-safakhou/parley/internal/engine/state"
)

// Decision priorities, lower is stronger. They mirror the evaluation
// order of the waterfall.
const (
	priorityChallenge = 1
	priorityDeepDive  = 2
	priorityFollowUp  = 3
	priorityReference = 4
	priorityStandard  = 5
)

// DecisionInput is everything one waterfall pass looks at. All signal
// gathering (topics, contradictions, similarity search) happens before
// the decision so the waterfall itself stays a pure function.
type DecisionInput struct {
	QuestionNumber int
	TotalQuestions int
	LastAnswer     *Answer
	Quality        *QualityMetrics
	Contradictions []Contradiction
	RepeatedTopics []TopicMention
	Similar        *SimilarAnswer
}

// DecisionEngine selects the next conversational move. Rules are
// evaluated in strict priority order; the first match wins. Each
// non-standard action carries a cooldown so the interview does not kick
// into the same gear over and over.
type DecisionEngine struct {
	cfg    config.DecisionConfig
	logger *log.Logger
}

func NewDecisionEngine(cfg config.DecisionConfig) *DecisionEngine {
	return &DecisionEngine{
		cfg:    cfg,
		logger: log.New(log.Writer(), "[DECIDE] ", log.LstdFlags),
	}
}

// Decide runs the waterfall: challenge, deep dive, follow-up,
// reference, standard. It never mutates st; marking the cooldown ledger
// is the caller's job once the chosen action actually produced a
// question.
func (e *DecisionEngine) Decide(in DecisionInput, st *state.SessionState) Decision {
	if d, ok := e.tryChallenge(in, st); ok {
		e.logger.Printf("session action=%s reason=%q", d.Action, d.Reason)
		return d
	}
	if d, ok := e.tryDeepDive(in, st); ok {
		e.logger.Printf("session action=%s reason=%q", d.Action, d.Reason)
		return d
	}
	if d, ok := e.tryFollowUp(in, st); ok {
		e.logger.Printf("session action=%s reason=%q", d.Action, d.Reason)
		return d
	}
	if d, ok := e.tryReference(in, st); ok {
		e.logger.Printf("session action=%s reason=%q", d.Action, d.Reason)
		return d
	}
	return Decision{
		Action:   ActionStandard,
		Priority: priorityStandard,
		Reason:   "standard rotation",
	}
}

func (e *DecisionEngine) tryChallenge(in DecisionInput, st *state.SessionState) (Decision, bool) {
	if in.QuestionNumber < e.cfg.ChallengeMinQuestion {
		return Decision{}, false
	}
	if !st.CooldownOver(string(ActionChallenge), in.QuestionNumber, e.cfg.ChallengeCooldown) {
		return Decision{}, false
	}
	var best *Contradiction
	for i := range in.Contradictions {
		c := &in.Contradictions[i]
		if c.Confidence < e.cfg.ContradictionConfidence {
			continue
		}
		if best == nil || c.Confidence > best.Confidence {
			best = c
		}
	}
	if best == nil {
		return Decision{}, false
	}
	picked := *best
	return Decision{
		Action:        ActionChallenge,
		Priority:      priorityChallenge,
		Reason:        fmt.Sprintf("%s contradiction at confidence %.2f", picked.Type, picked.Confidence),
		Contradiction: &picked,
	}, true
}

func (e *DecisionEngine) tryDeepDive(in DecisionInput, st *state.SessionState) (Decision, bool) {
	if in.QuestionNumber < e.cfg.DeepDiveMinQuestion {
		return Decision{}, false
	}
	if in.QuestionNumber > in.TotalQuestions-e.cfg.DeepDiveEndBuffer {
		return Decision{}, false
	}
	if !st.CooldownOver(string(ActionDeepDive), in.QuestionNumber, e.cfg.DeepDiveCooldown) {
		return Decision{}, false
	}
	var top *TopicMention
	for i := range in.RepeatedTopics {
		t := &in.RepeatedTopics[i]
		if t.Count < e.cfg.DeepDiveTopicMentions {
			continue
		}
		if top == nil || t.Count > top.Count {
			top = t
		}
	}
	if top == nil {
		return Decision{}, false
	}
	picked := *top
	return Decision{
		Action:   ActionDeepDive,
		Priority: priorityDeepDive,
		Reason:   fmt.Sprintf("topic %q mentioned %d times", picked.Label, picked.Count),
		Topic:    &picked,
	}, true
}

func (e *DecisionEngine) tryFollowUp(in DecisionInput, st *state.SessionState) (Decision, bool) {
	if in.LastAnswer == nil {
		return Decision{}, false
	}
	words := in.LastAnswer.WordCount()
	if words >= e.cfg.FollowupWordThreshold {
		return Decision{}, false
	}
	if !st.CooldownOver(string(ActionFollowUp), in.QuestionNumber, e.cfg.FollowupCooldown) {
		return Decision{}, false
	}
	missing := "specifics"
	if in.Quality != nil && len(in.Quality.MissingElements) > 0 {
		missing = in.Quality.MissingElements[0]
	}
	return Decision{
		Action:         ActionFollowUp,
		Priority:       priorityFollowUp,
		Reason:         fmt.Sprintf("last answer was %d words", words),
		MissingElement: missing,
	}, true
}

func (e *DecisionEngine) tryReference(in DecisionInput, st *state.SessionState) (Decision, bool) {
	if in.Similar == nil {
		return Decision{}, false
	}
	if in.Similar.Similarity < e.cfg.ReferenceSimilarity {
		return Decision{}, false
	}
	age := in.QuestionNumber - in.Similar.Answer.QuestionID
	if age < e.cfg.ReferenceMinAge {
		return Decision{}, false
	}
	if !st.CooldownOver(string(ActionReference), in.QuestionNumber, e.cfg.ReferenceCooldown) {
		return Decision{}, false
	}
	picked := *in.Similar
	return Decision{
		Action:   ActionReference,
		Priority: priorityReference,
		Reason:   fmt.Sprintf("question %d is %.2f similar", picked.Answer.QuestionID, picked.Similarity),
		Similar:  &picked,
	}, true
}
