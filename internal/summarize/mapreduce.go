package summarize

import (
	"context"
	"fmt"

	"github.com/Epistemic-Technology/article-summarizer/internal/llm"
)

// PartialSummary is the map-phase output for one chunk.
type PartialSummary struct {
	ChunkIndex int
	Text       string
}

// MapResult holds the map-phase outcome, both slices ordered by chunk index.
type MapResult struct {
	Partials []PartialSummary
	Failures []ChunkFailure
}

// SummarizeLong summarizes text with the map-reduce protocol regardless of its length.
func (s *Summarizer) SummarizeLong(ctx context.Context, text string, level Level) (*SummaryResult, error) {
	if s.completer == nil {
		return nil, ErrNoCompletionService
	}
	text = PrepareText(text, s.settings.InputCharLimit)
	if text == "" {
		return nil, ErrEmptyInput
	}
	return s.summarizeLong(ctx, text, LookupLevel(level))
}

func (s *Summarizer) summarizeLong(ctx context.Context, text string, policy LevelPolicy) (*SummaryResult, error) {
	log := s.log.WithPrefix("map-reduce")

	chunks, err := Split(text, s.settings.ChunkSize, s.settings.Overlap)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyInput
	}
	log.Info("Document is long (%d chars), created %d chunks (level: %s)", len(text), len(chunks), policy.Level)

	mapped := s.MapPhase(ctx, chunks, policy)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(mapped.Partials) == 0 {
		return nil, &AllChunksFailedError{Failures: mapped.Failures}
	}

	partials := make([]string, len(mapped.Partials))
	for i, p := range mapped.Partials {
		partials[i] = p.Text
	}
	failed := make([]int, 0, len(mapped.Failures))
	for _, f := range mapped.Failures {
		failed = append(failed, f.Index)
	}

	log.Info("Reducing %d partial summaries into final summary", len(partials))
	prompt, err := ReducePrompt(partials, policy)
	if err != nil {
		return nil, err
	}
	summary, err := s.complete(ctx, prompt, policy.ReduceTokens, s.completion.ReduceTimeout)
	if err != nil {
		log.Error("Reduce phase failed: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrReduceFailed, err)
	}

	return &SummaryResult{
		Text:         summary,
		Method:       MethodGenerativeMapReduce,
		Level:        policy.Level,
		ChunkCount:   len(chunks),
		FailedChunks: failed,
	}, nil
}

// MapPhase summarizes every chunk on a pool of MapConcurrency workers. A chunk
// whose call fails is logged and recorded in Failures; it is not retried.
func (s *Summarizer) MapPhase(ctx context.Context, chunks []Chunk, policy LevelPolicy) MapResult {
	log := s.log.WithPrefix("map-reduce")

	texts, errs := llm.ParallelCollect(ctx, chunks, s.settings.MapConcurrency, func(ctx context.Context, _ int, chunk Chunk) (string, error) {
		prompt, err := MapPrompt(chunk)
		if err != nil {
			return "", err
		}
		return s.complete(ctx, prompt, policy.MapTokens, s.completion.MapTimeout)
	})

	var result MapResult
	for i, chunk := range chunks {
		if errs[i] != nil {
			log.Error("Error summarizing chunk %d/%d: %v", chunk.Index+1, chunk.Total, errs[i])
			result.Failures = append(result.Failures, ChunkFailure{Index: chunk.Index, Err: errs[i]})
			continue
		}
		log.Debug("Summarized chunk %d/%d", chunk.Index+1, chunk.Total)
		result.Partials = append(result.Partials, PartialSummary{ChunkIndex: chunk.Index, Text: texts[i]})
	}
	return result
}
