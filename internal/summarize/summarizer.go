// Package summarize implements the article summarization pipeline: chunking,
// level budgets, extractive fallback, map-reduce generation and
// multi-document synthesis.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Epistemic-Technology/article-summarizer/internal/config"
	"github.com/Epistemic-Technology/article-summarizer/internal/llm"
	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
	"github.com/Epistemic-Technology/article-summarizer/models"
)

// Method is either a requested summarization method or the tag of the one used.
type Method string

const (
	MethodAuto       Method = "auto"
	MethodExtractive Method = "extractive"
	MethodGenerative Method = "generative"

	MethodGenerativeDirect    Method = "generative_direct"
	MethodGenerativeMapReduce Method = "generative_map_reduce"
	MethodGenerativeMulti     Method = "generative_multi"
)

// ParseMethod validates a requested method. Empty input means auto.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodAuto, nil
	case MethodAuto, MethodExtractive, MethodGenerative:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Document is the input to single-document summarization.
type Document struct {
	Text     string
	Metadata models.ItemMetadata
}

// SummaryResult is the outcome of a summarization call.
type SummaryResult struct {
	Text   string
	Method Method
	Level  Level
	// ChunkCount is the number of map-phase chunks, zero when no chunking happened.
	ChunkCount int
	// FailedChunks lists the indexes of chunks dropped in the map phase.
	FailedChunks []int
}

// Summarizer runs the pipeline against an optional completion service.
// It holds no mutable state and is safe for concurrent use.
type Summarizer struct {
	settings   config.SummarizationConfig
	completion config.CompletionConfig
	completer  llm.Completer
	log        logger.Logger
}

// New creates a Summarizer. A nil completer restricts it to extractive summaries.
func New(cfg config.Config, completer llm.Completer, log logger.Logger) (*Summarizer, error) {
	s := cfg.Summarization
	if s.Overlap <= 0 || s.Overlap >= s.ChunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in (0, %d)", ErrInvalidChunking, s.Overlap, s.ChunkSize)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if s.MapConcurrency < 1 {
		s.MapConcurrency = 1
	}
	return &Summarizer{
		settings:   s,
		completion: cfg.Completion,
		completer:  completer,
		log:        log,
	}, nil
}

// GenerativeAvailable reports whether a completion service is configured.
func (s *Summarizer) GenerativeAvailable() bool {
	return s.completer != nil
}

// ChunkSize returns the configured chunk size in characters.
func (s *Summarizer) ChunkSize() int { return s.settings.ChunkSize }

// Overlap returns the configured chunk overlap in characters.
func (s *Summarizer) Overlap() int { return s.settings.Overlap }

// InputCharLimit returns the input ceiling applied before any processing.
func (s *Summarizer) InputCharLimit() int { return s.settings.InputCharLimit }

var whitespaceRun = regexp.MustCompile(`\s+`)

// PrepareText collapses whitespace and truncates to limit characters.
func PrepareText(text string, limit int) string {
	cleaned := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if limit > 0 && utf8.RuneCountInString(cleaned) > limit {
		cleaned = strings.TrimSpace(string([]rune(cleaned)[:limit]))
	}
	return cleaned
}

// ResolveMethod turns auto into a concrete method.
func (s *Summarizer) ResolveMethod(method Method) (Method, error) {
	switch method {
	case "", MethodAuto:
		if s.GenerativeAvailable() {
			return MethodGenerative, nil
		}
		return MethodExtractive, nil
	case MethodExtractive:
		return MethodExtractive, nil
	case MethodGenerative:
		if !s.GenerativeAvailable() {
			return "", ErrNoCompletionService
		}
		return MethodGenerative, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// Summarize produces a summary of doc at level. A failing completion service
// is reported as an error and never downgraded to an extractive summary.
func (s *Summarizer) Summarize(ctx context.Context, doc Document, method Method, level Level) (*SummaryResult, error) {
	resolved, err := s.ResolveMethod(method)
	if err != nil {
		return nil, err
	}

	text := PrepareText(doc.Text, s.settings.InputCharLimit)
	if text == "" {
		return nil, ErrEmptyInput
	}
	policy := LookupLevel(level)

	if resolved == MethodExtractive {
		summary, err := Extractive(text, policy.MaxSentences)
		if err != nil {
			return nil, err
		}
		return &SummaryResult{Text: summary, Method: MethodExtractive, Level: policy.Level}, nil
	}

	if utf8.RuneCountInString(text) >= s.settings.ChunkSize {
		return s.summarizeLong(ctx, text, policy)
	}

	s.log.Info("Document is short (%d chars), summarizing directly", utf8.RuneCountInString(text))
	prompt, err := DirectPrompt(text, policy)
	if err != nil {
		return nil, err
	}
	summary, err := s.complete(ctx, prompt, policy.ReduceTokens, s.completion.ReduceTimeout)
	if err != nil {
		s.log.Error("Direct summarization failed: %v", err)
		return nil, fmt.Errorf("failed to summarize document: %w", err)
	}
	return &SummaryResult{Text: summary, Method: MethodGenerativeDirect, Level: policy.Level}, nil
}

// complete issues one completion call bounded by timeout.
func (s *Summarizer) complete(ctx context.Context, prompt Prompt, maxTokens int, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	text, err := s.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt:    prompt.System,
		UserPrompt:      prompt.User,
		MaxOutputTokens: maxTokens,
		Temperature:     s.completion.Temperature,
		Timeout:         timeout,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, llm.ErrTimeout) {
			return "", fmt.Errorf("%w: %w", llm.ErrTimeout, err)
		}
		return "", err
	}
	return text, nil
}
