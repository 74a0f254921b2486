package engine

import (
	"context"
	"time"
)

// ActionType is the closed set of moves the decision engine can make.
type ActionType string

const (
	ActionStandard  ActionType = "standard"
	ActionFollowUp  ActionType = "follow_up"
	ActionDeepDive  ActionType = "deep_dive"
	ActionChallenge ActionType = "challenge"
	ActionReference ActionType = "reference"
)

// Valid reports whether a is a known action.
func (a ActionType) Valid() bool {
	switch a {
	case ActionStandard, ActionFollowUp, ActionDeepDive, ActionChallenge, ActionReference:
		return true
	}
	return false
}

// Intent classifies what a question is probing for.
type Intent string

const (
	IntentTechnicalSkills Intent = "technical_skills"
	IntentProblemSolving  Intent = "problem_solving"
	IntentBehavioral      Intent = "behavioral"
	IntentSituational     Intent = "situational"
	IntentLeadership      Intent = "leadership"
	IntentGeneral         Intent = "general"
)

// IntentCycle is the rotation standard questions walk through, indexed
// by (question number - 1) mod len.
var IntentCycle = []Intent{
	IntentTechnicalSkills,
	IntentProblemSolving,
	IntentBehavioral,
	IntentSituational,
	IntentLeadership,
}

// Session is the durable identity of one interview conversation.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Role           string    `json:"role"`
	Difficulty     string    `json:"difficulty"`
	TotalQuestions int       `json:"total_questions"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Session status values.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

// Answer is one immutable question/answer exchange. QuestionID is the
// 1-based position of the question within its session.
type Answer struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	QuestionID     int       `json:"question_id"`
	QuestionText   string    `json:"question_text"`
	QuestionIntent Intent    `json:"question_intent"`
	Text           string    `json:"answer_text"`
	Embedding      []float32 `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// WordCount returns the number of whitespace-separated tokens in the answer.
func (a Answer) WordCount() int {
	return countWords(a.Text)
}

// AnswerStore persists answers and session rows. The engine only reads
// and appends; it never mutates stored answers.
type AnswerStore interface {
	SaveAnswer(ctx context.Context, a Answer) (string, error)
	Answers(ctx context.Context, sessionID string) ([]Answer, error)
}

// TopicMention is a derived topic label with its mention count.
type TopicMention struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ContradictionType classifies how two statements conflict.
type ContradictionType string

const (
	ContradictionDirect     ContradictionType = "direct"
	ContradictionBehavioral ContradictionType = "behavioral"
	ContradictionPreference ContradictionType = "preference"
	ContradictionExperience ContradictionType = "experience"
	ContradictionOpinion    ContradictionType = "opinion"
)

// Valid reports whether t is a known contradiction type.
func (t ContradictionType) Valid() bool {
	switch t {
	case ContradictionDirect, ContradictionBehavioral, ContradictionPreference,
		ContradictionExperience, ContradictionOpinion:
		return true
	}
	return false
}

// Contradiction is an ephemeral candidate conflict between a past answer
// and the current one. PastQuestionID is the question number of the
// earlier answer.
type Contradiction struct {
	PastQuestionID   int               `json:"past_question_id"`
	PastStatement    string            `json:"past_statement"`
	CurrentStatement string            `json:"current_statement"`
	Type             ContradictionType `json:"type"`
	Confidence       float64           `json:"confidence"`
	Explanation      string            `json:"explanation"`
}

// StarElements records which parts of a STAR story an answer contains.
type StarElements struct {
	Situation bool `json:"situation"`
	Task      bool `json:"task"`
	Action    bool `json:"action"`
	Result    bool `json:"result"`
}

// Fraction returns how many of the four elements are present, in [0,1].
func (s StarElements) Fraction() float64 {
	n := 0
	if s.Situation {
		n++
	}
	if s.Task {
		n++
	}
	if s.Action {
		n++
	}
	if s.Result {
		n++
	}
	return float64(n) / 4.0
}

// Quality tiers, best to worst.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityAdequate  = "adequate"
	QualityWeak      = "weak"
	QualityVague     = "vague"
)

// QualityMetrics is the heuristic assessment of one answer.
type QualityMetrics struct {
	Completeness    float64      `json:"completeness"`
	Specificity     float64      `json:"specificity"`
	Star            StarElements `json:"star_elements"`
	WordCount       int          `json:"word_count"`
	HasMetrics      bool         `json:"has_metrics"`
	IsVague         bool         `json:"is_vague"`
	MissingElements []string     `json:"missing_elements"`
	OverallQuality  string       `json:"overall_quality"`
}

// SimilarAnswer pairs a past answer with its similarity to a query.
type SimilarAnswer struct {
	Answer     Answer  `json:"answer"`
	Similarity float64 `json:"similarity"`
}

// Decision is the outcome of one pass through the priority rules. The
// pointer fields carry the evidence for the matched rule; exactly the
// ones relevant to Action are set.
type Decision struct {
	Action         ActionType     `json:"action"`
	Priority       int            `json:"priority"`
	Reason         string         `json:"reason"`
	Contradiction  *Contradiction `json:"contradiction,omitempty"`
	Topic          *TopicMention  `json:"topic,omitempty"`
	Similar        *SimilarAnswer `json:"similar,omitempty"`
	MissingElement string         `json:"missing_element,omitempty"`
}

// QuestionSource says where a question's text came from.
type QuestionSource string

const (
	SourceBank      QuestionSource = "question_bank"
	SourceGenerated QuestionSource = "generated"
	SourceFallback  QuestionSource = "fallback"
)

// Question is a generated interview question ready to ask.
type Question struct {
	Text               string         `json:"text"`
	Intent             Intent         `json:"intent"`
	Action             ActionType     `json:"type"`
	ReferencesPrevious bool           `json:"references_previous"`
	ReferencedQuestion int            `json:"referenced_question_id,omitempty"`
	Source             QuestionSource `json:"source"`
}

// TurnMetadata travels with every orchestrator response.
type TurnMetadata struct {
	ActionTaken    string `json:"action_taken"`
	QuestionNumber int    `json:"question_number"`
	Intent         Intent `json:"intent,omitempty"`
	Source         string `json:"source,omitempty"`
	IsFallback     bool   `json:"is_fallback"`
}

// NextQuestionResponse is the payload for one asked question.
type NextQuestionResponse struct {
	Question           string       `json:"question"`
	InterviewerComment string       `json:"interviewer_comment,omitempty"`
	References         []int        `json:"references,omitempty"`
	Metadata           TurnMetadata `json:"metadata"`
	AudioURL           string       `json:"audio_url,omitempty"`
}

// FlowControl signals whether the conversation should move to the next
// question or wait for a probed elaboration of the current one.
type FlowControl struct {
	ShouldAdvance bool `json:"should_advance"`
	ProbeCount    int  `json:"probe_count"`
}

// ProcessAnswerResponse acknowledges a stored answer.
type ProcessAnswerResponse struct {
	AnswerStored bool           `json:"answer_stored"`
	AIResponse   string         `json:"ai_response"`
	Quality      QualityMetrics `json:"quality_metrics"`
	FlowControl  FlowControl    `json:"flow_control"`
	AudioURL     string         `json:"audio_url,omitempty"`
}

// AnswerQuality pairs a question number with its quality assessment.
type AnswerQuality struct {
	QuestionID int            `json:"question_id"`
	Metrics    QualityMetrics `json:"metrics"`
}

// AnalysisResponse is the diagnostic view of a whole conversation.
type AnalysisResponse struct {
	Topics          []TopicMention  `json:"topics"`
	RepeatedTopics  []TopicMention  `json:"repeated_topics"`
	Contradictions  []Contradiction `json:"contradictions"`
	QualityMetrics  []AnswerQuality `json:"quality_metrics"`
	Recommendations []string        `json:"recommendations"`
}
