package engine

import (
	"fmt"
	"strings"
)

// BuildTranscript renders answers chronologically for prompt context.
// Question numbers and intents are kept so the model can cite them.
func BuildTranscript(answers []Answer) string {
	if len(answers) == 0 {
		return "(no answers yet)"
	}
	var b strings.Builder
	for i, a := range answers {
		if i > 0 {
			b.WriteString("\n\n")
		}
		intent := a.QuestionIntent
		if intent == "" {
			intent = IntentGeneral
		}
		fmt.Fprintf(&b, "Q%d (%s): %s\nA: %s", a.QuestionID, intent, a.QuestionText, a.Text)
	}
	return b.String()
}

// RecentWindow returns the last k answers, oldest first. k <= 0 or
// beyond the transcript length returns everything.
func RecentWindow(answers []Answer, k int) []Answer {
	if k <= 0 || k >= len(answers) {
		return answers
	}
	return answers[len(answers)-k:]
}

// LastAnswer returns the most recent answer, or false when the
// transcript is empty.
func LastAnswer(answers []Answer) (Answer, bool) {
	if len(answers) == 0 {
		return Answer{}, false
	}
	return answers[len(answers)-1], true
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

// excerpt shortens text to at most n words for quoting inside prompts
// and interviewer remarks.
func excerpt(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
