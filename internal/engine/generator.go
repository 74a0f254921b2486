package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/parley/internal/telemetry"
	"github.com/mohammad-safakhou/parley/provider"
)

const interviewerSystem = "You are an experienced, friendly technical interviewer. You ask one clear question at a time and never lecture."

// IntentFor returns the rotation intent for a 1-based question number.
func IntentFor(questionNumber int) Intent {
	if questionNumber < 1 {
		questionNumber = 1
	}
	return IntentCycle[(questionNumber-1)%len(IntentCycle)]
}

// GenerateRequest carries everything the generator needs for one
// question. UsedQuestion reports whether a bank text was already served
// in this session.
type GenerateRequest struct {
	Decision       Decision
	Role           string
	Difficulty     string
	QuestionNumber int
	TotalQuestions int
	LastAnswer     *Answer
	UsedQuestion   func(string) bool
}

// QuestionGenerator turns a decision into question text. Bank first
// where a curated entry fits, then a generative call, then a
// deterministic fallback. Generate never returns an error; the
// conversation must always get some question.
type QuestionGenerator struct {
	provider  provider.Provider
	bank      *QuestionBank
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewQuestionGenerator(p provider.Provider, bank *QuestionBank, tel *telemetry.Telemetry) *QuestionGenerator {
	return &QuestionGenerator{
		provider:  p,
		bank:      bank,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[GENERATE] ", log.LstdFlags),
	}
}

// Generate dispatches on the decided action. A decision arriving
// without its evidence degrades to the standard path.
func (g *QuestionGenerator) Generate(ctx context.Context, req GenerateRequest) Question {
	switch req.Decision.Action {
	case ActionFollowUp:
		if req.LastAnswer != nil {
			return g.followUp(ctx, req)
		}
	case ActionChallenge:
		if req.Decision.Contradiction != nil {
			return g.challenge(ctx, req)
		}
	case ActionDeepDive:
		if req.Decision.Topic != nil {
			return g.deepDive(ctx, req)
		}
	case ActionReference:
		if req.Decision.Similar != nil {
			return g.reference(ctx, req)
		}
	case ActionStandard:
	}
	return g.standard(ctx, req)
}

func (g *QuestionGenerator) standard(ctx context.Context, req GenerateRequest) Question {
	intent := IntentFor(req.QuestionNumber)

	if text, ok := g.bank.Find(req.Role, req.Difficulty, intent, req.UsedQuestion); ok {
		g.telemetry.RecordQuestion(string(SourceBank))
		return Question{Text: text, Intent: intent, Action: ActionStandard, Source: SourceBank}
	}

	prompt := fmt.Sprintf(`Write the next interview question.

ROLE: %s
DIFFICULTY: %s
QUESTION %d OF %d
FOCUS: %s

RULES:
1. Ask exactly one question
2. Match the depth to the role and difficulty
3. For behavioral or situational focus, invite a story the candidate can tell as situation, task, action and result
4. No multi-part questions

Return ONLY the question text.`,
		req.Role, req.Difficulty, req.QuestionNumber, req.TotalQuestions, intent)

	if text, ok := g.complete(ctx, prompt); ok {
		g.telemetry.RecordQuestion(string(SourceGenerated))
		return Question{Text: text, Intent: intent, Action: ActionStandard, Source: SourceGenerated}
	}

	g.telemetry.RecordQuestion(string(SourceFallback))
	return Question{Text: standardFallback(intent), Intent: intent, Action: ActionStandard, Source: SourceFallback}
}

func (g *QuestionGenerator) followUp(ctx context.Context, req GenerateRequest) Question {
	last := req.LastAnswer
	missing := req.Decision.MissingElement
	if missing == "" {
		missing = "specifics"
	}
	intent := last.QuestionIntent
	if intent == "" {
		intent = IntentGeneral
	}

	prompt := fmt.Sprintf(`The candidate's last answer was thin. Write one follow-up question that draws out what is missing.

LAST QUESTION:
%s

LAST ANSWER:
%s

MISSING: %s

RULES:
1. Ask exactly one question
2. Be warm and non-confrontational, you are helping them tell their story
3. Aim directly at the missing piece
4. Do not restate the original question

Return ONLY the question text.`,
		last.QuestionText, last.Text, missingDescription(missing))

	if text, ok := g.complete(ctx, prompt); ok {
		g.telemetry.RecordQuestion(string(SourceGenerated))
		return Question{Text: text, Intent: intent, Action: ActionFollowUp, Source: SourceGenerated}
	}

	g.telemetry.RecordQuestion(string(SourceFallback))
	return Question{Text: followUpFallback(missing), Intent: intent, Action: ActionFollowUp, Source: SourceFallback}
}

func (g *QuestionGenerator) challenge(ctx context.Context, req GenerateRequest) Question {
	c := req.Decision.Contradiction

	prompt := fmt.Sprintf(`Two statements from the candidate appear to conflict. Write one question that surfaces the tension without accusing them.

EARLIER (question %d):
%s

JUST NOW:
%s

APPARENT CONFLICT (%s): %s

RULES:
1. Ask exactly one question
2. Never accuse and never use the word "contradiction", frame it as "help me understand"
3. Quote or closely paraphrase both statements so the candidate knows what you mean
4. Leave room for a legitimate explanation

Return ONLY the question text.`,
		c.PastQuestionID, c.PastStatement, c.CurrentStatement, c.Type, c.Explanation)

	q := Question{Intent: IntentGeneral, Action: ActionChallenge, ReferencesPrevious: true, ReferencedQuestion: c.PastQuestionID}
	if text, ok := g.complete(ctx, prompt); ok {
		g.telemetry.RecordQuestion(string(SourceGenerated))
		q.Text = text
		q.Source = SourceGenerated
		return q
	}

	g.telemetry.RecordQuestion(string(SourceFallback))
	q.Text = fmt.Sprintf("Help me understand how %q fits with what you said earlier, %q.",
		excerpt(c.CurrentStatement, 15), excerpt(c.PastStatement, 15))
	q.Source = SourceFallback
	return q
}

func (g *QuestionGenerator) deepDive(ctx context.Context, req GenerateRequest) Question {
	topic := req.Decision.Topic

	if text, ok := g.bank.FindByTopic(topic.Label, req.UsedQuestion); ok {
		g.telemetry.RecordQuestion(string(SourceBank))
		return Question{Text: text, Intent: IntentGeneral, Action: ActionDeepDive, Source: SourceBank}
	}

	prompt := fmt.Sprintf(`The candidate keeps returning to one topic. Write one question that lets them show real depth on it.

TOPIC: %s (mentioned %d times so far)
ROLE: %s

RULES:
1. Ask exactly one question
2. Acknowledge that they have come back to this topic
3. Ask for the kind of detail only hands-on experience produces
4. Keep it open-ended

Return ONLY the question text.`,
		topic.Label, topic.Count, req.Role)

	if text, ok := g.complete(ctx, prompt); ok {
		g.telemetry.RecordQuestion(string(SourceGenerated))
		return Question{Text: text, Intent: IntentGeneral, Action: ActionDeepDive, Source: SourceGenerated}
	}

	g.telemetry.RecordQuestion(string(SourceFallback))
	text := fmt.Sprintf("You have mentioned %s a few times now. What about it do you find most interesting?", topic.Label)
	return Question{Text: text, Intent: IntentGeneral, Action: ActionDeepDive, Source: SourceFallback}
}

func (g *QuestionGenerator) reference(ctx context.Context, req GenerateRequest) Question {
	sim := req.Decision.Similar
	intent := sim.Answer.QuestionIntent
	if intent == "" {
		intent = IntentGeneral
	}

	prompt := fmt.Sprintf(`Connect the conversation back to something the candidate said earlier.

EARLIER ANSWER (question %d, %s):
%s

RULES:
1. Ask exactly one question
2. Quote a short phrase from the earlier answer so the reference is explicit
3. Ask how it relates to what they are discussing now
4. Keep a natural conversational tone

Return ONLY the question text.`,
		sim.Answer.QuestionID, intent, excerpt(sim.Answer.Text, 40))

	q := Question{Intent: intent, Action: ActionReference, ReferencesPrevious: true, ReferencedQuestion: sim.Answer.QuestionID}
	if text, ok := g.complete(ctx, prompt); ok {
		g.telemetry.RecordQuestion(string(SourceGenerated))
		q.Text = text
		q.Source = SourceGenerated
		return q
	}

	g.telemetry.RecordQuestion(string(SourceFallback))
	q.Text = fmt.Sprintf("Earlier you said %q. How does that connect to what we are discussing now?",
		excerpt(sim.Answer.Text, 15))
	q.Source = SourceFallback
	return q
}

// complete runs one generative call and sanitizes the reply. A failure
// or unusable reply reports a miss so the caller can fall back.
func (g *QuestionGenerator) complete(ctx context.Context, user string) (string, bool) {
	start := time.Now()
	raw, inTok, outTok, err := g.provider.CompleteWithTokens(ctx, provider.CompletionRequest{
		Task:        provider.TaskGeneration,
		System:      interviewerSystem,
		User:        user,
		Temperature: 0.7,
		MaxTokens:   150,
	})
	g.telemetry.RecordLLM(ctx, telemetry.LLMEvent{
		Task:         string(provider.TaskGeneration),
		Success:      err == nil,
		Duration:     time.Since(start),
		InputTokens:  inTok,
		OutputTokens: outTok,
		Cost:         g.provider.CalculateCost(provider.TaskGeneration, inTok, outTok),
	})
	if err != nil {
		g.logger.Printf("generation failed: %v", err)
		return "", false
	}
	text := sanitizeQuestion(raw)
	if text == "" {
		g.logger.Printf("generation returned unusable text")
		return "", false
	}
	return text, true
}

// sanitizeQuestion flattens a model reply into one usable question
// line. Empty or runaway replies are rejected.
func sanitizeQuestion(raw string) string {
	text := strings.Join(strings.Fields(raw), " ")
	text = strings.Trim(text, "\"'`")
	for _, label := range []string{"Question:", "question:", "Q:"} {
		text = strings.TrimSpace(strings.TrimPrefix(text, label))
	}
	if len(text) > 500 {
		return ""
	}
	return text
}

func missingDescription(missing string) string {
	switch missing {
	case "action":
		return "the specific actions they personally took"
	case "result":
		return "the outcome and how it was measured"
	case "situation":
		return "the context they were operating in"
	case "task":
		return "what they were responsible for"
	default:
		return "concrete details, numbers or examples"
	}
}

func followUpFallback(missing string) string {
	switch missing {
	case "action":
		return "What specifically did you do in that situation?"
	case "result":
		return "What was the outcome, and how did you measure it?"
	case "situation":
		return "What was the context you were working in at the time?"
	case "task":
		return "What exactly were you responsible for there?"
	default:
		return "Could you walk me through that again with a concrete example?"
	}
}

func standardFallback(intent Intent) string {
	switch intent {
	case IntentTechnicalSkills:
		return "What technical skills from your background are most relevant to this role?"
	case IntentProblemSolving:
		return "Describe a challenging problem you solved recently. How did you approach it?"
	case IntentBehavioral:
		return "Tell me about a time you had to work through a difficult situation at work."
	case IntentSituational:
		return "How would you handle competing deadlines from two different stakeholders?"
	case IntentLeadership:
		return "Tell me about a time you helped a teammate succeed or led an effort."
	default:
		return "Tell me more about your recent work and what you enjoyed most about it."
	}
}
