package summarize

import "strings"

// Level is a named budget profile governing intake size and output length.
type Level string

const (
	LevelExecutive  Level = "executive"
	LevelDetailed   Level = "detailed"
	LevelExhaustive Level = "exhaustive"
)

// LevelPolicy holds the budgets for one level. Token budgets are per call.
type LevelPolicy struct {
	Level        Level
	MaxPages     int
	MaxSentences int
	TargetWords  int
	// Description is the prose form of the target length used in prompts.
	Description    string
	MapTokens      int
	ReduceTokens   int
	MultiDocTokens int
}

var levelPolicies = map[Level]LevelPolicy{
	LevelExecutive: {
		Level:          LevelExecutive,
		MaxPages:       20,
		MaxSentences:   10,
		TargetWords:    500,
		Description:    "a one-page executive summary",
		MapTokens:      1000,
		ReduceTokens:   2000,
		MultiDocTokens: 4000,
	},
	LevelDetailed: {
		Level:          LevelDetailed,
		MaxPages:       50,
		MaxSentences:   30,
		TargetWords:    1800,
		Description:    "a detailed summary of 3-4 pages",
		MapTokens:      2000,
		ReduceTokens:   6000,
		MultiDocTokens: 8000,
	},
	LevelExhaustive: {
		Level:          LevelExhaustive,
		MaxPages:       100,
		MaxSentences:   60,
		TargetWords:    4000,
		Description:    "an exhaustive summary of 8-10 pages",
		MapTokens:      4000,
		ReduceTokens:   16000,
		MultiDocTokens: 16000,
	},
}

// Levels lists the known levels from shortest to longest.
func Levels() []Level {
	return []Level{LevelExecutive, LevelDetailed, LevelExhaustive}
}

// LookupLevel returns the policy for level, falling back to detailed.
func LookupLevel(level Level) LevelPolicy {
	if p, ok := levelPolicies[level]; ok {
		return p
	}
	return levelPolicies[LevelDetailed]
}

// ParseLevel normalizes user input to a known level, falling back to detailed.
func ParseLevel(s string) Level {
	level := Level(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levelPolicies[level]; ok {
		return level
	}
	return LevelDetailed
}
