package config

// HeuristicsConfig carries the keyword tables behind answer-quality scoring.
// Every list can be replaced wholesale from the config file; Normalize fills
// anything left empty with the defaults below.
type HeuristicsConfig struct {
	StarSituation       []string `mapstructure:"star_situation"`
	StarTask            []string `mapstructure:"star_task"`
	StarAction          []string `mapstructure:"star_action"`
	StarResult          []string `mapstructure:"star_result"`
	VaguePhrases        []string `mapstructure:"vague_phrases"`
	ActionVerbs         []string `mapstructure:"action_verbs"`
	ContributionPhrases []string `mapstructure:"contribution_phrases"`
	ShortAnswerWords    int      `mapstructure:"short_answer_words"`
	VagueDensity        float64  `mapstructure:"vague_density"`
	WeToIRatio          float64  `mapstructure:"we_to_i_ratio"`
	WeMinCount          int      `mapstructure:"we_min_count"`
}

// Normalize fills unset heuristic tables and thresholds with defaults.
func (h HeuristicsConfig) Normalize() HeuristicsConfig {
	if len(h.StarSituation) == 0 {
		h.StarSituation = DefaultStarSituation
	}
	if len(h.StarTask) == 0 {
		h.StarTask = DefaultStarTask
	}
	if len(h.StarAction) == 0 {
		h.StarAction = DefaultStarAction
	}
	if len(h.StarResult) == 0 {
		h.StarResult = DefaultStarResult
	}
	if len(h.VaguePhrases) == 0 {
		h.VaguePhrases = DefaultVaguePhrases
	}
	if len(h.ActionVerbs) == 0 {
		h.ActionVerbs = DefaultActionVerbs
	}
	if len(h.ContributionPhrases) == 0 {
		h.ContributionPhrases = DefaultContributionPhrases
	}
	if h.ShortAnswerWords <= 0 {
		h.ShortAnswerWords = 20
	}
	if h.VagueDensity <= 0 {
		h.VagueDensity = 0.15
	}
	if h.WeToIRatio <= 0 {
		h.WeToIRatio = 2.0
	}
	if h.WeMinCount <= 0 {
		h.WeMinCount = 3
	}
	return h
}

// DefaultStarSituation marks language that sets the scene of a story.
var DefaultStarSituation = []string{
	"situation", "context", "at the time", "back then", "we were", "the project",
	"when i was", "when i worked", "while working", "during my", "my team was",
	"the company", "the client", "faced with", "we had a", "there was a",
}

// DefaultStarTask marks language that states the goal or responsibility.
var DefaultStarTask = []string{
	"task", "goal", "objective", "responsible for", "my job", "my role",
	"needed to", "had to", "was asked to", "was assigned", "required to",
	"expected to", "in charge of", "the challenge was", "the aim was",
}

// DefaultStarAction marks first-person descriptions of what the speaker did.
var DefaultStarAction = []string{
	"i did", "i made", "i built", "i created", "i implemented", "i designed",
	"i led", "i decided", "i organized", "i developed", "i wrote", "i set up",
	"i coordinated", "i proposed", "i refactored", "i analyzed", "i reached out",
	"i started", "i introduced", "my approach", "took the initiative",
}

// DefaultStarResult marks outcome language.
var DefaultStarResult = []string{
	"result", "outcome", "in the end", "eventually", "achieved", "delivered",
	"improved", "increased", "decreased", "reduced", "saved", "completed",
	"succeeded", "shipped", "the impact", "led to", "ended up", "as a result",
	"we learned", "i learned",
}

// DefaultVaguePhrases are filler terms that lower specificity.
var DefaultVaguePhrases = []string{
	"stuff", "things", "kind of", "sort of", "a lot", "lots of", "some",
	"several", "various", "generally", "usually", "basically", "probably",
	"maybe", "i guess", "i think", "somehow", "whatever", "etc", "and so on",
	"you know", "pretty much", "more or less",
}

// DefaultActionVerbs are concrete verbs that raise specificity.
var DefaultActionVerbs = []string{
	"built", "created", "designed", "implemented", "developed", "led", "managed",
	"launched", "wrote", "deployed", "migrated", "optimized", "automated",
	"debugged", "refactored", "architected", "negotiated", "coordinated",
	"mentored", "shipped", "measured", "profiled", "scaled", "presented",
}

// DefaultContributionPhrases signal a personal contribution inside team stories.
var DefaultContributionPhrases = []string{
	"i led", "i built", "i designed", "i decided", "i proposed", "i owned",
	"my role", "my part", "my contribution", "my responsibility",
	"i was responsible", "i personally", "i took", "my idea", "i drove",
}
