package engine

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mohammad-safakhou/parley/internal/engine/state"
)

// Phrase categories tracked for repetition. Tiered categories append
// the tier after a dot, e.g. "acknowledgment.good".
const (
	categoryAcknowledgment = "acknowledgment"
	categoryEncouragement  = "encouragement"
	categoryTransition     = "transition"
	categoryProbing        = "probing"
	categoryClarification  = "clarification"
	categoryInterest       = "interest"
)

// phraseWindow is how many recent picks per category are off limits.
const phraseWindow = 5

// VarietyTracker picks interviewer phrasings while avoiding the ones
// used most recently in the same session. The recent window lives in
// the per-session state, so the tracker itself stays stateless across
// sessions.
type VarietyTracker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewVarietyTracker() *VarietyTracker {
	return &VarietyTracker{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Pick chooses a phrase from pool, avoiding templates recorded in the
// session's recent window for the category. An exhausted pool resets to
// the full pool minus the single most recent pick. The chosen raw
// template is remembered in st; placeholders are filled afterwards.
func (v *VarietyTracker) Pick(st *state.SessionState, category string, pool []string, vars map[string]string) string {
	if len(pool) == 0 {
		return ""
	}

	recent := st.RecentInCategory(category)
	candidates := excludePhrases(pool, recent)
	if len(candidates) == 0 {
		candidates = pool
		if len(pool) > 1 && len(recent) > 0 {
			candidates = excludePhrases(pool, recent[len(recent)-1:])
		}
	}

	v.mu.Lock()
	chosen := candidates[v.rng.Intn(len(candidates))]
	v.mu.Unlock()

	st.RememberPhrase(category, chosen, phraseWindow)
	return fillTemplate(chosen, vars)
}

func excludePhrases(pool, exclude []string) []string {
	if len(exclude) == 0 {
		return pool
	}
	out := make([]string, 0, len(pool))
	for _, p := range pool {
		skip := false
		for _, e := range exclude {
			if p == e {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, p)
		}
	}
	return out
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// fillTemplate substitutes {name} placeholders from vars. A template
// with any unresolved placeholder is returned unformatted rather than
// half-filled.
func fillTemplate(tmpl string, vars map[string]string) string {
	missing := false
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := strings.Trim(m, "{}")
		if val, ok := vars[key]; ok {
			return val
		}
		missing = true
		return m
	})
	if missing {
		return tmpl
	}
	return out
}

// acknowledgmentPool returns the phrases for a quality tier.
func acknowledgmentPool(tier string) []string {
	switch tier {
	case QualityExcellent:
		return []string{
			"That's a great example, thanks for walking me through it.",
			"Excellent answer. The detail really helps.",
			"That's exactly the kind of specificity I was hoping for.",
			"Great, that gives me a very clear picture.",
			"That was a thorough walkthrough, I appreciate it.",
		}
	case QualityGood:
		return []string{
			"Thanks, that makes sense.",
			"Good, I can see how you approached it.",
			"That's helpful context.",
			"Nice, that answers it well.",
			"Got it, thanks for laying that out.",
		}
	case QualityAdequate:
		return []string{
			"Okay, thanks for sharing that.",
			"I see, thanks.",
			"Alright, that gives me a rough picture.",
			"Understood.",
			"Okay, I think I follow.",
		}
	case QualityWeak:
		return []string{
			"Thanks. I'd love a bit more detail as we go.",
			"Okay. Let's try to go a level deeper.",
			"Thanks for that. I'm still missing part of the picture.",
			"Alright, though I'd welcome more specifics.",
		}
	default:
		return []string{
			"Thanks. Let me dig into that a little.",
			"Okay, I want to make sure I understand what you did specifically.",
			"Thanks, let's unpack that a bit.",
		}
	}
}

// encouragementPool returns phrases for a quality trend across recent
// answers.
func encouragementPool(trend string) []string {
	switch trend {
	case "improving":
		return []string{
			"Your answers are getting sharper as we go.",
			"You're hitting your stride.",
			"Nice, each answer has been stronger than the last.",
		}
	case "struggling":
		return []string{
			"No pressure, take your time with this one.",
			"Take a breath, there's no rush.",
			"Don't worry about polish, just tell me what happened.",
		}
	default:
		return []string{
			"You're doing fine, keep it up.",
			"Good pace so far.",
			"We're making good progress.",
		}
	}
}

func transitionPool() []string {
	return []string{
		"Let's move on.",
		"Okay, shifting gears a little.",
		"Let's look at something different.",
		"Moving to the next area.",
		"On a related note.",
		"Let's change direction slightly.",
	}
}

func probingPool() []string {
	return []string{
		"Let me probe one part of that.",
		"I want to zoom in on something you said.",
		"Let's stay on this for one more beat.",
		"One more question on the same thread.",
	}
}

func clarificationPool() []string {
	return []string{
		"Just to make sure I follow.",
		"Let me check my understanding.",
		"I want to be sure I heard you right.",
		"Help me connect the dots here.",
	}
}

func interestPool() []string {
	return []string{
		"Interesting that {topic} keeps coming up.",
		"You clearly care about {topic}.",
		"I've noticed {topic} running through several of your answers.",
		"It sounds like {topic} is close to your day-to-day work.",
	}
}
