package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mohammad-safakhou/parley/config"
	"github.com/mohammad-safakhou/parley/internal/engine/state"
	"github.com/mohammad-safakhou/parley/internal/telemetry"
	"github.com/mohammad-safakhou/parley/provider"
)

// AudioSynthesizer turns text into a cached audio asset and returns its
// URL. The orchestrator treats it as optional; text-only operation must
// never depend on it.
type AudioSynthesizer interface {
	SynthesizeToURL(ctx context.Context, text string) (string, error)
}

// audioConcurrency bounds simultaneous synthesis calls in a batch.
const audioConcurrency = 3

// NextQuestionRequest asks for the question at a 1-based position.
type NextQuestionRequest struct {
	SessionID      string
	QuestionNumber int
	Role           string
	Difficulty     string
	TotalQuestions int
	WithAudio      bool
}

// ProcessAnswerRequest submits the candidate's answer to one question.
type ProcessAnswerRequest struct {
	SessionID      string
	QuestionID     int
	QuestionText   string
	QuestionIntent Intent
	AnswerText     string
	TotalQuestions int
	WithAudio      bool
}

// Orchestrator runs one interview turn end to end: gather signals,
// decide, generate, phrase, respond. Every public method returns a
// well-formed response no matter what fails underneath.
type Orchestrator struct {
	cfg       config.InterviewConfig
	provider  provider.Provider
	store     AnswerStore
	states    state.Store
	decision  *DecisionEngine
	generator *QuestionGenerator
	quality   *QualityAnalyzer
	topics    *TopicExtractor
	contra    *ContradictionDetector
	variety   *VarietyTracker
	speech    AudioSynthesizer
	telemetry *telemetry.Telemetry
	logger    *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// OrchestratorDeps carries the collaborators an orchestrator is built
// from. Speech may be nil.
type OrchestratorDeps struct {
	Provider  provider.Provider
	Store     AnswerStore
	States    state.Store
	Speech    AudioSynthesizer
	Telemetry *telemetry.Telemetry
}

// NewOrchestrator wires the engine components around one provider and
// one answer store.
func NewOrchestrator(cfg config.InterviewConfig, heuristics config.HeuristicsConfig, deps OrchestratorDeps) (*Orchestrator, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("orchestrator requires a provider")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("orchestrator requires an answer store")
	}
	if deps.States == nil {
		return nil, fmt.Errorf("orchestrator requires a state store")
	}
	if deps.Telemetry == nil {
		return nil, fmt.Errorf("orchestrator requires telemetry")
	}
	cfg = cfg.Normalize()
	bank, err := NewQuestionBank()
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:       cfg,
		provider:  deps.Provider,
		store:     deps.Store,
		states:    deps.States,
		decision:  NewDecisionEngine(cfg.Decision),
		generator: NewQuestionGenerator(deps.Provider, bank, deps.Telemetry),
		quality:   NewQualityAnalyzer(heuristics),
		topics:    NewTopicExtractor(deps.Provider, deps.Telemetry),
		contra:    NewContradictionDetector(deps.Provider, deps.Telemetry, cfg.Decision.ContradictionConfidence),
		variety:   NewVarietyTracker(),
		speech:    deps.Speech,
		telemetry: deps.Telemetry,
		logger:    log.New(log.Writer(), "[ORCH] ", log.LstdFlags),
	}, nil
}

// sessionLock returns the mutex serializing one session's turns.
func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.locks == nil {
		o.locks = make(map[string]*sync.Mutex)
	}
	l, ok := o.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[sessionID] = l
	}
	return l
}

// ResetSession drops the engine-local state for a session. Stored
// answers are untouched.
func (o *Orchestrator) ResetSession(ctx context.Context, sessionID string) error {
	l := o.sessionLock(sessionID)
	l.Lock()
	defer l.Unlock()
	return o.states.Reset(ctx, sessionID)
}

// NextQuestion produces the question for one position in the interview.
// It always returns a usable response; unexpected failures collapse to
// a generic question marked as a fallback.
func (o *Orchestrator) NextQuestion(ctx context.Context, req NextQuestionRequest) (resp NextQuestionResponse) {
	start := time.Now()
	success := true
	var failure string

	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("session %s: next question panicked: %v", req.SessionID, r)
			success = false
			failure = fmt.Sprintf("panic: %v", r)
			resp = o.fallbackQuestion(req)
		}
		o.telemetry.RecordTurn(ctx, telemetry.TurnEvent{
			SessionID:      req.SessionID,
			QuestionNumber: req.QuestionNumber,
			Action:         resp.Metadata.ActionTaken,
			Fallback:       resp.Metadata.IsFallback,
			Duration:       time.Since(start),
			Success:        success,
			Error:          failure,
		})
	}()

	if req.TotalQuestions <= 0 {
		req.TotalQuestions = o.cfg.TotalQuestions
	}
	if req.QuestionNumber < 1 {
		req.QuestionNumber = 1
	}

	l := o.sessionLock(req.SessionID)
	l.Lock()
	defer l.Unlock()

	st, err := o.states.Get(ctx, req.SessionID)
	if err != nil {
		o.logger.Printf("session %s: state load failed: %v", req.SessionID, err)
		st = state.New(req.SessionID)
	}

	answers, err := o.store.Answers(ctx, req.SessionID)
	if err != nil {
		o.logger.Printf("session %s: answer load failed: %v", req.SessionID, err)
		answers = nil
	}

	in := o.gatherSignals(ctx, req, answers)
	decision := o.decision.Decide(in, st)

	q := o.generator.Generate(ctx, GenerateRequest{
		Decision:       decision,
		Role:           req.Role,
		Difficulty:     req.Difficulty,
		QuestionNumber: req.QuestionNumber,
		TotalQuestions: req.TotalQuestions,
		LastAnswer:     in.LastAnswer,
		UsedQuestion:   st.QuestionUsed,
	})

	comment := o.buildComment(st, decision, in)

	st.MarkQuestionUsed(q.Text)
	if decision.Action != ActionStandard {
		st.MarkFired(string(decision.Action), req.QuestionNumber)
	}
	if err := o.states.Save(ctx, st); err != nil {
		o.logger.Printf("session %s: state save failed: %v", req.SessionID, err)
	}

	resp = NextQuestionResponse{
		Question:           q.Text,
		InterviewerComment: comment,
		Metadata: TurnMetadata{
			ActionTaken:    string(decision.Action),
			QuestionNumber: req.QuestionNumber,
			Intent:         q.Intent,
			Source:         string(q.Source),
			IsFallback:     q.Source == SourceFallback,
		},
	}
	if q.ReferencesPrevious && q.ReferencedQuestion > 0 {
		resp.References = []int{q.ReferencedQuestion}
	}
	if req.WithAudio {
		spoken := strings.TrimSpace(strings.TrimSpace(comment) + " " + q.Text)
		resp.AudioURL = o.synthesize(ctx, spoken)
	}
	return resp
}

// gatherSignals runs the detection passes that feed the decision
// waterfall. Every failure inside degrades to an absent signal.
func (o *Orchestrator) gatherSignals(ctx context.Context, req NextQuestionRequest, answers []Answer) DecisionInput {
	in := DecisionInput{
		QuestionNumber: req.QuestionNumber,
		TotalQuestions: req.TotalQuestions,
	}
	if len(answers) == 0 {
		return in
	}

	last := answers[len(answers)-1]
	in.LastAnswer = &last

	qm := o.quality.Analyze(last.Text, last.QuestionIntent)
	in.Quality = &qm

	mentions := o.topics.AggregateTopics(ctx, answers)
	in.RepeatedTopics = RepeatedTopics(mentions)

	past := answers[:len(answers)-1]
	if len(past) > 0 {
		in.Contradictions = o.contra.Detect(ctx, past, last)
		if query := o.queryVector(ctx, last); query != nil {
			if hits := FindSimilar(past, query, 1); len(hits) > 0 {
				in.Similar = &hits[0]
			}
		}
	}
	return in
}

// queryVector returns the last answer's embedding, computing it on the
// fly when the stored row has none. A failed embed means no reference
// signal this turn.
func (o *Orchestrator) queryVector(ctx context.Context, last Answer) []float32 {
	if len(last.Embedding) > 0 {
		return last.Embedding
	}
	vecs, err := o.provider.Embed(ctx, []string{last.Text})
	if err != nil || len(vecs) == 0 {
		if err != nil {
			o.logger.Printf("query embedding failed: %v", err)
		}
		return nil
	}
	return vecs[0]
}

// buildComment assembles the interviewer's pre-question remark:
// acknowledgment of the previous answer plus a connector matched to the
// chosen action.
func (o *Orchestrator) buildComment(st *state.SessionState, decision Decision, in DecisionInput) string {
	if in.LastAnswer == nil {
		return ""
	}

	var parts []string
	if in.Quality != nil {
		ack := o.variety.Pick(st, categoryAcknowledgment+"."+in.Quality.OverallQuality,
			acknowledgmentPool(in.Quality.OverallQuality), nil)
		if ack != "" {
			parts = append(parts, ack)
		}
	}

	switch decision.Action {
	case ActionChallenge:
		if p := o.variety.Pick(st, categoryClarification, clarificationPool(), nil); p != "" {
			parts = append(parts, p)
		}
	case ActionDeepDive:
		vars := map[string]string{}
		if decision.Topic != nil {
			vars["topic"] = decision.Topic.Label
		}
		if p := o.variety.Pick(st, categoryInterest, interestPool(), vars); p != "" {
			parts = append(parts, p)
		}
	case ActionFollowUp:
		if p := o.variety.Pick(st, categoryProbing, probingPool(), nil); p != "" {
			parts = append(parts, p)
		}
	case ActionReference, ActionStandard:
		if p := o.variety.Pick(st, categoryTransition, transitionPool(), nil); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// fallbackQuestion is the outermost safety net for NextQuestion.
func (o *Orchestrator) fallbackQuestion(req NextQuestionRequest) NextQuestionResponse {
	n := req.QuestionNumber
	if n < 1 {
		n = 1
	}
	intent := IntentFor(n)
	return NextQuestionResponse{
		Question: standardFallback(intent),
		Metadata: TurnMetadata{
			ActionTaken:    "fallback",
			QuestionNumber: n,
			Intent:         intent,
			Source:         string(SourceFallback),
			IsFallback:     true,
		},
	}
}

// ProcessAnswer stores the submitted answer and decides whether the
// conversation advances or probes once for a better answer. After one
// probe on a question the next submission always advances.
func (o *Orchestrator) ProcessAnswer(ctx context.Context, req ProcessAnswerRequest) (resp ProcessAnswerResponse) {
	start := time.Now()
	success := true
	var failure string
	stored := false

	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("session %s: process answer panicked: %v", req.SessionID, r)
			success = false
			failure = fmt.Sprintf("panic: %v", r)
			resp = ProcessAnswerResponse{
				AnswerStored: stored,
				AIResponse:   "Thank you.",
				FlowControl:  FlowControl{ShouldAdvance: true},
			}
		}
		o.telemetry.RecordTurn(ctx, telemetry.TurnEvent{
			SessionID:      req.SessionID,
			QuestionNumber: req.QuestionID,
			Action:         "process_answer",
			Fallback:       !success,
			Duration:       time.Since(start),
			Success:        success,
			Error:          failure,
		})
	}()

	if req.TotalQuestions <= 0 {
		req.TotalQuestions = o.cfg.TotalQuestions
	}

	l := o.sessionLock(req.SessionID)
	l.Lock()
	defer l.Unlock()

	st, err := o.states.Get(ctx, req.SessionID)
	if err != nil {
		o.logger.Printf("session %s: state load failed: %v", req.SessionID, err)
		st = state.New(req.SessionID)
	}

	answer := Answer{
		SessionID:      req.SessionID,
		QuestionID:     req.QuestionID,
		QuestionText:   req.QuestionText,
		QuestionIntent: req.QuestionIntent,
		Text:           req.AnswerText,
		CreatedAt:      time.Now().UTC(),
	}
	if vecs, err := o.provider.Embed(ctx, []string{req.AnswerText}); err == nil && len(vecs) > 0 {
		answer.Embedding = vecs[0]
	} else if err != nil {
		o.logger.Printf("session %s: answer embedding failed: %v", req.SessionID, err)
	}

	if id, err := o.store.SaveAnswer(ctx, answer); err != nil {
		o.logger.Printf("session %s: answer save failed: %v", req.SessionID, err)
	} else {
		answer.ID = id
		stored = true
	}

	qm := o.quality.Analyze(req.AnswerText, req.QuestionIntent)

	probes := st.Probes(req.QuestionID)
	probe := o.needsProbe(qm) && probes < o.cfg.Decision.ProbeBudget

	parts := []string{o.variety.Pick(st, categoryAcknowledgment+"."+qm.OverallQuality,
		acknowledgmentPool(qm.OverallQuality), nil)}

	if probe {
		st.AddProbe(req.QuestionID)
		missing := "specifics"
		if len(qm.MissingElements) > 0 {
			missing = qm.MissingElements[0]
		}
		probeQ := o.generator.Generate(ctx, GenerateRequest{
			Decision:       Decision{Action: ActionFollowUp, MissingElement: missing},
			QuestionNumber: req.QuestionID,
			TotalQuestions: req.TotalQuestions,
			LastAnswer:     &answer,
		})
		parts = append(parts, probeQ.Text)
	} else if enc := o.encouragement(ctx, st, req, qm); enc != "" {
		parts = append(parts, enc)
	}

	if err := o.states.Save(ctx, st); err != nil {
		o.logger.Printf("session %s: state save failed: %v", req.SessionID, err)
	}

	aiResponse := strings.TrimSpace(strings.Join(parts, " "))
	if aiResponse == "" {
		aiResponse = "Thank you."
	}

	resp = ProcessAnswerResponse{
		AnswerStored: stored,
		AIResponse:   aiResponse,
		Quality:      qm,
		FlowControl: FlowControl{
			ShouldAdvance: !probe,
			ProbeCount:    st.Probes(req.QuestionID),
		},
	}
	if req.WithAudio {
		resp.AudioURL = o.synthesize(ctx, aiResponse)
	}
	return resp
}

// needsProbe reports whether an answer is too thin to move on from.
func (o *Orchestrator) needsProbe(qm QualityMetrics) bool {
	return qm.IsVague || qm.OverallQuality == QualityWeak
}

// encouragement compares the answer against the previous one and picks
// a phrase when the trend is worth remarking on.
func (o *Orchestrator) encouragement(ctx context.Context, st *state.SessionState, req ProcessAnswerRequest, current QualityMetrics) string {
	answers, err := o.store.Answers(ctx, req.SessionID)
	if err != nil || len(answers) < 2 {
		return ""
	}
	// The last stored answer is the one just submitted; compare with
	// the one before it.
	prev := answers[len(answers)-2]
	prevQM := o.quality.Analyze(prev.Text, prev.QuestionIntent)

	cur := tierRank(current.OverallQuality)
	before := tierRank(prevQM.OverallQuality)
	switch {
	case cur > before:
		return o.variety.Pick(st, categoryEncouragement, encouragementPool("improving"), nil)
	case cur <= 1 && before <= 1:
		return o.variety.Pick(st, categoryEncouragement, encouragementPool("struggling"), nil)
	default:
		return ""
	}
}

func tierRank(tier string) int {
	switch tier {
	case QualityExcellent:
		return 4
	case QualityGood:
		return 3
	case QualityAdequate:
		return 2
	case QualityWeak:
		return 1
	default:
		return 0
	}
}

// AnalyzeConversation builds the diagnostic view of a session. Partial
// failures shrink the report instead of failing it.
func (o *Orchestrator) AnalyzeConversation(ctx context.Context, sessionID string) AnalysisResponse {
	var resp AnalysisResponse

	answers, err := o.store.Answers(ctx, sessionID)
	if err != nil {
		o.logger.Printf("session %s: answer load failed: %v", sessionID, err)
		return resp
	}
	if len(answers) == 0 {
		return resp
	}

	resp.Topics = o.topics.AggregateTopics(ctx, answers)
	resp.RepeatedTopics = RepeatedTopics(resp.Topics)

	if len(answers) >= 2 {
		last := answers[len(answers)-1]
		resp.Contradictions = o.contra.Detect(ctx, answers[:len(answers)-1], last)
	}

	for _, a := range answers {
		resp.QualityMetrics = append(resp.QualityMetrics, AnswerQuality{
			QuestionID: a.QuestionID,
			Metrics:    o.quality.Analyze(a.Text, a.QuestionIntent),
		})
	}

	resp.Recommendations = buildRecommendations(resp.QualityMetrics, resp.RepeatedTopics, resp.Contradictions)
	return resp
}

// buildRecommendations derives coaching notes from the analysis.
func buildRecommendations(qualities []AnswerQuality, repeated []TopicMention, contradictions []Contradiction) []string {
	var recs []string
	if len(qualities) == 0 {
		return recs
	}

	vague := 0
	missingResult := 0
	var specificity float64
	for _, q := range qualities {
		if q.Metrics.IsVague {
			vague++
		}
		if !q.Metrics.Star.Result {
			missingResult++
		}
		specificity += q.Metrics.Specificity
	}
	specificity /= float64(len(qualities))

	if vague*2 >= len(qualities) {
		recs = append(recs, "Answers are often vague. Push for concrete stories with a clear personal contribution.")
	}
	if specificity < 0.5 {
		recs = append(recs, "Encourage more specifics: numbers, tools and named outcomes.")
	}
	if missingResult*2 > len(qualities) {
		recs = append(recs, "Most stories stop before the outcome. Ask what changed and how it was measured.")
	}
	if len(contradictions) > 0 {
		recs = append(recs, fmt.Sprintf("%d statement(s) conflict with earlier answers. Worth clarifying before wrap-up.", len(contradictions)))
	}
	if len(repeated) > 0 {
		labels := make([]string, 0, len(repeated))
		for _, t := range repeated {
			labels = append(labels, t.Label)
		}
		sort.Strings(labels)
		recs = append(recs, fmt.Sprintf("Recurring themes: %s. Good candidates for a deeper conversation.", strings.Join(labels, ", ")))
	}
	return recs
}

// synthesize produces audio for one utterance. Failure or an absent
// synthesizer just means no audio URL.
func (o *Orchestrator) synthesize(ctx context.Context, text string) string {
	if o.speech == nil || strings.TrimSpace(text) == "" {
		return ""
	}
	url, err := o.speech.SynthesizeToURL(ctx, text)
	if err != nil {
		o.logger.Printf("audio synthesis failed: %v", err)
		return ""
	}
	return url
}

// SynthesizeBatch renders several utterances concurrently, at most
// audioConcurrency in flight. Results are keyed by the caller's ids;
// failed items are simply absent.
func (o *Orchestrator) SynthesizeBatch(ctx context.Context, items map[string]string) map[string]string {
	out := make(map[string]string, len(items))
	if o.speech == nil || len(items) == 0 {
		return out
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, audioConcurrency)
	)
	for id, text := range items {
		if strings.TrimSpace(text) == "" {
			continue
		}
		wg.Add(1)
		go func(id, text string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			url, err := o.speech.SynthesizeToURL(ctx, text)
			if err != nil {
				o.logger.Printf("audio synthesis %s failed: %v", id, err)
				return
			}
			mu.Lock()
			out[id] = url
			mu.Unlock()
		}(id, text)
	}
	wg.Wait()
	return out
}
