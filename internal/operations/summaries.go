package operations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Epistemic-Technology/article-summarizer/internal/documents"
	"github.com/Epistemic-Technology/article-summarizer/internal/storage"
	"github.com/Epistemic-Technology/article-summarizer/internal/summarize"
	"github.com/Epistemic-Technology/article-summarizer/models"
)

// SummarizeRequest selects an article by stored DocumentID or by Source.
type SummarizeRequest struct {
	DocumentID string
	Source     IngestSource
	Level      string
	Method     string
	Refresh    bool // ignore cached summaries
}

// ArticleSummary is the result of summarizing one article.
type ArticleSummary struct {
	DocumentID   string
	Metadata     models.ItemMetadata
	Level        summarize.Level
	Method       summarize.Method
	Summary      string
	ChunkCount   int
	FailedChunks []int
	Cached       bool
}

func (s *Service) loadArticle(ctx context.Context, docID string, src IngestSource) (*models.Article, error) {
	if docID != "" {
		return s.store.GetArticle(ctx, docID)
	}
	return s.GetOrIngestArticle(ctx, src)
}

// SummarizeArticle summarizes an article at the requested level, reusing a
// stored summary of the same level and method family unless Refresh is set.
func (s *Service) SummarizeArticle(ctx context.Context, req SummarizeRequest) (*ArticleSummary, error) {
	method, err := summarize.ParseMethod(req.Method)
	if err != nil {
		return nil, err
	}
	resolved, err := s.summarizer.ResolveMethod(method)
	if err != nil {
		return nil, err
	}
	policy := summarize.LookupLevel(summarize.ParseLevel(req.Level))

	article, err := s.loadArticle(ctx, req.DocumentID, req.Source)
	if err != nil {
		return nil, err
	}

	if !req.Refresh {
		if cached := s.cachedSummary(ctx, article.ID, policy.Level, resolved); cached != nil {
			s.log.Info("Using cached %s summary for %s (%s)", cached.Level, article.ID, cached.Method)
			return &ArticleSummary{
				DocumentID: article.ID,
				Metadata:   article.Metadata,
				Level:      policy.Level,
				Method:     summarize.Method(cached.Method),
				Summary:    cached.Text,
				ChunkCount: cached.ChunkCount,
				Cached:     true,
			}, nil
		}
	}

	text := documents.ArticleText(article, policy.MaxPages)
	result, err := s.summarizer.Summarize(ctx, summarize.Document{Text: text, Metadata: article.Metadata}, resolved, policy.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize %s: %w", article.ID, err)
	}

	stored := &models.StoredSummary{
		DocumentID: article.ID,
		Level:      string(result.Level),
		Method:     string(result.Method),
		Text:       result.Text,
		ChunkCount: result.ChunkCount,
	}
	// Summaries with dropped chunks are returned but not cached
	if len(result.FailedChunks) == 0 {
		if err := s.store.SaveSummary(ctx, stored); err != nil {
			s.log.Warn("Failed to cache summary for %s: %v", article.ID, err)
		}
	}

	return &ArticleSummary{
		DocumentID:   article.ID,
		Metadata:     article.Metadata,
		Level:        result.Level,
		Method:       result.Method,
		Summary:      result.Text,
		ChunkCount:   result.ChunkCount,
		FailedChunks: result.FailedChunks,
	}, nil
}

// cachedSummary returns the newest stored summary matching the resolved method family.
func (s *Service) cachedSummary(ctx context.Context, docID string, level summarize.Level, resolved summarize.Method) *models.StoredSummary {
	summaries, err := s.store.ListSummaries(ctx, docID)
	if err != nil {
		s.log.Warn("Failed to read cached summaries for %s: %v", docID, err)
		return nil
	}
	var best *models.StoredSummary
	for i := range summaries {
		sum := &summaries[i]
		if sum.Level != string(level) || !sameFamily(summarize.Method(sum.Method), resolved) {
			continue
		}
		if best == nil || sum.CreatedAt.After(best.CreatedAt) {
			best = sum
		}
	}
	return best
}

func sameFamily(stored, resolved summarize.Method) bool {
	if resolved == summarize.MethodExtractive {
		return stored == summarize.MethodExtractive
	}
	return stored == summarize.MethodGenerativeDirect || stored == summarize.MethodGenerativeMapReduce
}

// SynthesisRequest asks for a multi-document summary over stored articles.
type SynthesisRequest struct {
	DocumentIDs []string
	Mode        string
	Level       string
	Refresh     bool
}

// SynthesisResult is a multi-document summary and the per-article summaries it was built from.
type SynthesisResult struct {
	Mode      summarize.Mode
	Level     summarize.Level
	Method    summarize.Method
	Text      string
	Documents []ArticleSummary
}

// SynthesizeArticles summarizes each article (reusing cached summaries) and
// then runs one multi-document call over the results.
func (s *Service) SynthesizeArticles(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	mode, err := summarize.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	if len(req.DocumentIDs) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewDocuments, len(req.DocumentIDs))
	}
	if !s.summarizer.GenerativeAvailable() {
		return nil, summarize.ErrNoCompletionService
	}
	level := summarize.ParseLevel(req.Level)

	summaries := make([]ArticleSummary, 0, len(req.DocumentIDs))
	for _, docID := range req.DocumentIDs {
		sum, err := s.SummarizeArticle(ctx, SummarizeRequest{
			DocumentID: docID,
			Level:      string(level),
			Method:     string(summarize.MethodGenerative),
			Refresh:    req.Refresh,
		})
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *sum)
	}

	return s.synthesize(ctx, summaries, mode, level)
}

func (s *Service) synthesize(ctx context.Context, summaries []ArticleSummary, mode summarize.Mode, level summarize.Level) (*SynthesisResult, error) {
	docs := make([]summarize.DocumentSummary, len(summaries))
	for i, sum := range summaries {
		docs[i] = summarize.DocumentSummary{Metadata: sum.Metadata, Summary: sum.Summary}
	}
	result, err := s.summarizer.SummarizeMultiple(ctx, docs, mode, level)
	if err != nil {
		return nil, err
	}
	return &SynthesisResult{
		Mode:      mode,
		Level:     result.Level,
		Method:    result.Method,
		Text:      result.Text,
		Documents: summaries,
	}, nil
}

// BatchRequest lists the articles to summarize. Sources, DocumentIDs and the
// summarizable items of Collection are combined in that order.
type BatchRequest struct {
	Sources     []IngestSource
	DocumentIDs []string
	Collection  string
	Level       string
	Method      string
	Mode        string // synthesis mode; empty skips synthesis
	Refresh     bool
}

// BatchItem is the outcome for one article of a batch.
type BatchItem struct {
	Label   string // document ID, Zotero key, or URL identifying the request
	Summary *ArticleSummary
	Err     error
}

// BatchResult holds per-article outcomes and the optional synthesis.
type BatchResult struct {
	Items          []BatchItem
	Succeeded      int
	Synthesis      *SynthesisResult
	SynthesisError error
}

// SummarizeBatch summarizes each article independently; a failed article
// does not abort the batch. With a Mode and at least two successes, the
// successful summaries are synthesized.
func (s *Service) SummarizeBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	var mode summarize.Mode
	if req.Mode != "" {
		var err error
		if mode, err = summarize.ParseMode(req.Mode); err != nil {
			return nil, err
		}
	}

	type target struct {
		label string
		req   SummarizeRequest
	}
	var targets []target
	for _, src := range req.Sources {
		targets = append(targets, target{label: sourceLabel(src), req: SummarizeRequest{Source: src}})
	}
	for _, docID := range req.DocumentIDs {
		targets = append(targets, target{label: docID, req: SummarizeRequest{DocumentID: docID}})
	}
	if req.Collection != "" {
		items, err := SearchLibrary(ctx, s.cfg.Zotero, LibrarySearchParams{Collection: req.Collection}, s.log)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			key, ok := item.SummarizableAttachment()
			if !ok {
				s.log.Debug("Skipping %s: no summarizable attachment", item.Key)
				continue
			}
			targets = append(targets, target{label: key, req: SummarizeRequest{Source: IngestSource{ZoteroID: key}}})
		}
	}
	if len(targets) == 0 {
		return nil, ErrNoDocumentsRequested
	}

	result := &BatchResult{Items: make([]BatchItem, 0, len(targets))}
	var succeeded []ArticleSummary
	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t.req.Level = req.Level
		t.req.Method = req.Method
		t.req.Refresh = req.Refresh

		s.log.Info("Batch %d/%d: summarizing %s", i+1, len(targets), t.label)
		sum, err := s.SummarizeArticle(ctx, t.req)
		if err != nil {
			s.log.Error("Batch item %s failed: %v", t.label, err)
			result.Items = append(result.Items, BatchItem{Label: t.label, Err: err})
			continue
		}
		result.Items = append(result.Items, BatchItem{Label: t.label, Summary: sum})
		succeeded = append(succeeded, *sum)
	}
	result.Succeeded = len(succeeded)

	if mode == "" {
		return result, nil
	}
	if len(succeeded) < 2 {
		result.SynthesisError = fmt.Errorf("%w: %d of %d articles summarized", ErrTooFewDocuments, len(succeeded), len(targets))
		return result, nil
	}
	synthesis, err := s.synthesize(ctx, succeeded, mode, summarize.ParseLevel(req.Level))
	if err != nil {
		result.SynthesisError = err
		return result, nil
	}
	result.Synthesis = synthesis
	return result, nil
}

func sourceLabel(src IngestSource) string {
	switch {
	case src.ZoteroID != "":
		return src.ZoteroID
	case src.URL != "":
		return src.URL
	default:
		return fmt.Sprintf("upload (%d bytes)", len(src.RawData))
	}
}

// PlanRequest describes a summary to plan: a stored document or literal text.
type PlanRequest struct {
	DocumentID string
	Text       string
	Level      string
	Method     string
}

// Plan describes how a summary would be produced.
type Plan struct {
	DocumentID     string
	Level          summarize.Level
	Method         summarize.Method // resolved method; generative_* names the path taken
	InputChars     int              // characters after page selection, before the intake ceiling
	TextChars      int              // characters actually summarized
	Truncated      bool
	ChunkCount     int
	MapCalls       int
	MapTokens      int
	ReduceTokens   int
	MaxPages       int
	MaxSentences   int
	TargetWords    int
	ChunkSize      int
	Overlap        int
	InputCharLimit int
}

// PlanSummary reports text length, chunking and budgets without calling the completion service.
func (s *Service) PlanSummary(ctx context.Context, req PlanRequest) (*Plan, error) {
	method, err := summarize.ParseMethod(req.Method)
	if err != nil {
		return nil, err
	}
	resolved, err := s.summarizer.ResolveMethod(method)
	if err != nil {
		return nil, err
	}
	policy := summarize.LookupLevel(summarize.ParseLevel(req.Level))

	text := req.Text
	if req.DocumentID != "" {
		article, err := s.store.GetArticle(ctx, req.DocumentID)
		if err != nil {
			return nil, err
		}
		text = documents.ArticleText(article, policy.MaxPages)
	}
	if strings.TrimSpace(text) == "" {
		return nil, summarize.ErrEmptyInput
	}

	limit := s.summarizer.InputCharLimit()
	collapsed := summarize.PrepareText(text, 0)
	prepared := summarize.PrepareText(text, limit)
	textChars := utf8.RuneCountInString(prepared)

	plan := &Plan{
		DocumentID:     req.DocumentID,
		Level:          policy.Level,
		Method:         resolved,
		InputChars:     utf8.RuneCountInString(collapsed),
		TextChars:      textChars,
		Truncated:      textChars < utf8.RuneCountInString(collapsed),
		MapTokens:      policy.MapTokens,
		ReduceTokens:   policy.ReduceTokens,
		MaxPages:       policy.MaxPages,
		MaxSentences:   policy.MaxSentences,
		TargetWords:    policy.TargetWords,
		ChunkSize:      s.summarizer.ChunkSize(),
		Overlap:        s.summarizer.Overlap(),
		InputCharLimit: limit,
	}

	if resolved == summarize.MethodGenerative {
		if textChars < s.summarizer.ChunkSize() {
			plan.Method = summarize.MethodGenerativeDirect
		} else {
			chunks, err := summarize.Split(prepared, s.summarizer.ChunkSize(), s.summarizer.Overlap())
			if err != nil {
				return nil, err
			}
			plan.Method = summarize.MethodGenerativeMapReduce
			plan.ChunkCount = len(chunks)
			plan.MapCalls = len(chunks)
		}
	}

	return plan, nil
}

// IsNotFound reports whether err means a requested document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
