package server

import "github.com/mohammad-safakhou/parley/internal/engine"

// HTTPError is the JSON error envelope every failed request returns.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest creates a user account.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest exchanges credentials for a token.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries the signed JWT for Bearer flows.
type TokenResponse struct {
	Token string `json:"token"`
}

// CreateSessionRequest starts a new interview session.
type CreateSessionRequest struct {
	Role           string `json:"role"`
	Difficulty     string `json:"difficulty"`
	TotalQuestions int    `json:"total_questions"`
}

// AnswerRequest submits the candidate's answer to one question.
type AnswerRequest struct {
	QuestionID     int    `json:"question_id"`
	QuestionText   string `json:"question_text"`
	QuestionIntent string `json:"question_intent"`
	AnswerText     string `json:"answer_text"`
	WithAudio      bool   `json:"with_audio"`
}

// AnswerResponse acknowledges a stored answer and, when the flow
// advances, carries the next question in the same round trip.
type AnswerResponse struct {
	AnswerStored bool                         `json:"answer_stored"`
	AIResponse   string                       `json:"ai_response"`
	Quality      engine.QualityMetrics        `json:"quality_metrics"`
	FlowControl  engine.FlowControl           `json:"flow_control"`
	NextQuestion *engine.NextQuestionResponse `json:"next_question,omitempty"`
	AudioURL     string                       `json:"audio_url,omitempty"`
}

// IntakeScoreRequest scores a resume or job posting against a role.
// Exactly one of content or url should be set.
type IntakeScoreRequest struct {
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
	Role        string `json:"role"`
	Difficulty  string `json:"difficulty"`
}
