package engine

import (
	"strings"
	"unicode"

	"github.com/mohammad-safakhou/parley/config"
)

// QualityAnalyzer scores answers with keyword heuristics. It is pure:
// no model calls, no stored state, same input same output.
type QualityAnalyzer struct {
	cfg config.HeuristicsConfig
}

// NewQualityAnalyzer creates an analyzer over the given keyword tables.
func NewQualityAnalyzer(cfg config.HeuristicsConfig) *QualityAnalyzer {
	return &QualityAnalyzer{cfg: cfg.Normalize()}
}

// Specificity weighting. Signals push the 0.5 base up, vague fillers
// pull it down.
const (
	specificWeight = 2.0
	vagueWeight    = 1.5
)

// Tier cut points over the blended score.
const (
	tierExcellent = 0.80
	tierGood      = 0.60
	tierAdequate  = 0.40
)

// Analyze assesses a single answer in the context of its question intent.
func (qa *QualityAnalyzer) Analyze(answerText string, intent Intent) QualityMetrics {
	lower := strings.ToLower(answerText)
	tokens := tokenize(answerText)
	wordCount := len(tokens)

	star := StarElements{
		Situation: containsAny(lower, qa.cfg.StarSituation),
		Task:      containsAny(lower, qa.cfg.StarTask),
		Action:    containsAny(lower, qa.cfg.StarAction),
		Result:    containsAny(lower, qa.cfg.StarResult),
	}

	firstPerson := 0
	weCount := 0
	numberCount := 0
	actionVerbs := 0
	for _, tok := range tokens {
		switch tok {
		case "i", "my", "me", "i'm", "i've", "i'd", "myself":
			firstPerson++
		case "we", "our", "us", "we're", "we've":
			weCount++
		}
		if tokenHasDigit(tok) || tok == "percent" || tok == "percentage" {
			numberCount++
		}
		if containsToken(qa.cfg.ActionVerbs, tok) {
			actionVerbs++
		}
	}
	properNouns := countMidSentenceCapitals(answerText)
	vagueCount := countOccurrences(lower, qa.cfg.VaguePhrases)

	specificity := 0.5
	if wordCount > 0 {
		specificSignals := float64(firstPerson + 2*numberCount + actionVerbs + properNouns)
		specificity += specificWeight * (specificSignals / float64(wordCount))
		specificity -= vagueWeight * (float64(vagueCount) / float64(wordCount))
	}
	specificity = clamp01(specificity)

	behavioral := intent == IntentBehavioral || intent == IntentSituational

	completeness := wordCountCredit(wordCount)
	if behavioral {
		completeness += 0.4 * star.Fraction()
	} else {
		completeness += 0.2
	}
	if star.Result {
		completeness += 0.2
	}
	completeness = clamp01(completeness)

	vagueRatio := 0.0
	if wordCount > 0 {
		vagueRatio = float64(vagueCount) / float64(wordCount)
	}
	hidesBehindTeam := weCount >= qa.cfg.WeMinCount &&
		float64(weCount) >= qa.cfg.WeToIRatio*float64(firstPerson) &&
		!containsAny(lower, qa.cfg.ContributionPhrases)
	isVague := wordCount < qa.cfg.ShortAnswerWords ||
		hidesBehindTeam ||
		vagueRatio > qa.cfg.VagueDensity

	missing := missingElements(star, specificity)

	var score float64
	if behavioral {
		score = 0.4*completeness + 0.4*specificity + 0.2*star.Fraction()
	} else {
		score = 0.5*completeness + 0.5*specificity
	}

	overall := QualityWeak
	switch {
	case isVague:
		overall = QualityVague
	case score >= tierExcellent:
		overall = QualityExcellent
	case score >= tierGood:
		overall = QualityGood
	case score >= tierAdequate:
		overall = QualityAdequate
	}

	return QualityMetrics{
		Completeness:    completeness,
		Specificity:     specificity,
		Star:            star,
		WordCount:       wordCount,
		HasMetrics:      numberCount > 0,
		IsVague:         isVague,
		MissingElements: missing,
		OverallQuality:  overall,
	}
}

// missingElements lists what the answer lacks, most coachable first,
// capped at two so a follow-up stays focused.
func missingElements(star StarElements, specificity float64) []string {
	var missing []string
	if !star.Action {
		missing = append(missing, "action")
	}
	if !star.Result {
		missing = append(missing, "result")
	}
	if specificity < tierAdequate {
		missing = append(missing, "specifics")
	}
	if !star.Situation {
		missing = append(missing, "situation")
	}
	if !star.Task {
		missing = append(missing, "task")
	}
	if len(missing) > 2 {
		missing = missing[:2]
	}
	return missing
}

func wordCountCredit(n int) float64 {
	switch {
	case n >= 150:
		return 0.4
	case n >= 80:
		return 0.3
	case n >= 40:
		return 0.2
	case n >= 20:
		return 0.1
	default:
		return 0.0
	}
}

// tokenize lowercases and strips surrounding punctuation, keeping
// inner apostrophes so contractions survive.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '%' && r != '$'
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func tokenHasDigit(tok string) bool {
	for _, r := range tok {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func countOccurrences(lower string, phrases []string) int {
	count := 0
	for _, p := range phrases {
		if p == "" {
			continue
		}
		count += strings.Count(lower, p)
	}
	return count
}

func containsToken(list []string, tok string) bool {
	for _, v := range list {
		if v == tok {
			return true
		}
	}
	return false
}

// countMidSentenceCapitals counts capitalised tokens that do not open a
// sentence and are not the pronoun I. These usually name technologies,
// companies or people, all good specificity signals.
func countMidSentenceCapitals(text string) int {
	count := 0
	sentenceStart := true
	for _, tok := range strings.Fields(text) {
		trimmed := strings.TrimLeftFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if trimmed != "" {
			first := []rune(trimmed)[0]
			if unicode.IsUpper(first) && !sentenceStart {
				low := strings.ToLower(trimmed)
				if low != "i" && !strings.HasPrefix(low, "i'") {
					count++
				}
			}
		}
		sentenceStart = strings.HasSuffix(tok, ".") || strings.HasSuffix(tok, "!") || strings.HasSuffix(tok, "?")
	}
	return count
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
