package summarize

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Epistemic-Technology/article-summarizer/models"
)

// Mode selects the multi-document analysis template.
type Mode string

const (
	ModeSynthesis  Mode = "synthesis"
	ModeComparison Mode = "comparison"
	ModeGaps       Mode = "gaps"
)

var modeWordTargets = map[Mode]map[Level]int{
	ModeSynthesis:  {LevelExecutive: 1000, LevelDetailed: 2500, LevelExhaustive: 5000},
	ModeComparison: {LevelExecutive: 1000, LevelDetailed: 2500, LevelExhaustive: 5000},
	ModeGaps:       {LevelExecutive: 800, LevelDetailed: 2000, LevelExhaustive: 4000},
}

// ParseMode validates a user-supplied mode. Empty input means synthesis.
func ParseMode(s string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(s)))
	if mode == "" {
		return ModeSynthesis, nil
	}
	if _, ok := modeWordTargets[mode]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return mode, nil
}

// DocumentSummary pairs an article's metadata with its individual summary.
type DocumentSummary struct {
	Metadata models.ItemMetadata
	Summary  string
}

const (
	unknownPlaceholder      = "Unknown"
	notAvailablePlaceholder = "N/A"
	contextRule             = "==================================================="
	maxListedAuthors        = 3
)

// BuildContext composes the ordinal-labeled context block for docs. Every
// field is always present so the block layout never shifts.
func BuildContext(docs []DocumentSummary) string {
	sections := make([]string, 0, len(docs))
	for i, doc := range docs {
		var b strings.Builder
		fmt.Fprintf(&b, "%s\nARTICLE %d\n%s\n\n", contextRule, i+1, contextRule)
		fmt.Fprintf(&b, "TITLE: %s\n", orPlaceholder(doc.Metadata.Title, unknownPlaceholder))
		fmt.Fprintf(&b, "AUTHORS: %s\n", formatAuthors(doc.Metadata.Authors))
		fmt.Fprintf(&b, "YEAR: %s\n", formatYear(doc.Metadata.PublicationYear))
		fmt.Fprintf(&b, "JOURNAL: %s\n\n", orPlaceholder(doc.Metadata.Journal, notAvailablePlaceholder))
		fmt.Fprintf(&b, "SUMMARY:\n%s", strings.TrimSpace(doc.Summary))
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n\n")
}

func formatAuthors(authors []string) string {
	var names []string
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			names = append(names, a)
		}
	}
	if len(names) == 0 {
		return unknownPlaceholder
	}
	if len(names) > maxListedAuthors {
		return strings.Join(names[:maxListedAuthors], ", ") + " et al."
	}
	return strings.Join(names, ", ")
}

func formatYear(year int) string {
	if year <= 0 {
		return notAvailablePlaceholder
	}
	return strconv.Itoa(year)
}

func orPlaceholder(s, placeholder string) string {
	if s = strings.TrimSpace(s); s == "" {
		return placeholder
	}
	return s
}

// SummarizeMultiple runs one completion call over already-summarized documents.
// The two-document minimum is enforced by callers; exactly two is supported.
func (s *Summarizer) SummarizeMultiple(ctx context.Context, docs []DocumentSummary, mode Mode, level Level) (*SummaryResult, error) {
	if _, ok := modeWordTargets[mode]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if len(docs) == 0 {
		return nil, ErrEmptyInput
	}
	if s.completer == nil {
		return nil, ErrNoCompletionService
	}

	policy := LookupLevel(level)
	log := s.log.WithPrefix("multi-doc")

	prompt, err := MultiDocPrompt(mode, BuildContext(docs), len(docs), policy.Level)
	if err != nil {
		return nil, err
	}

	log.Info("Generating %s over %d documents (level: %s)", mode, len(docs), policy.Level)
	text, err := s.complete(ctx, prompt, policy.MultiDocTokens, s.completion.SynthesisTimeout)
	if err != nil {
		log.Error("Error generating %s: %v", mode, err)
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}

	return &SummaryResult{
		Text:   text,
		Method: MethodGenerativeMulti,
		Level:  policy.Level,
	}, nil
}
