package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/article-summarizer/internal/config"
	"github.com/Epistemic-Technology/article-summarizer/internal/documents"
	"github.com/Epistemic-Technology/article-summarizer/internal/llm"
	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
	"github.com/Epistemic-Technology/article-summarizer/internal/operations"
	"github.com/Epistemic-Technology/article-summarizer/internal/storage"
	"github.com/Epistemic-Technology/article-summarizer/internal/summarize"
)

func newTestService(t *testing.T, completer llm.Completer) *operations.Service {
	t.Helper()
	cfg := config.Default()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := logger.NewNoOpLogger()
	summarizer, err := summarize.New(cfg, completer, log)
	if err != nil {
		t.Fatalf("summarize.New() error = %v", err)
	}
	return operations.NewService(cfg, store, documents.NewFetcher(cfg.Zotero, nil), summarizer, log)
}

func sampleText(n int) []byte {
	sentences := make([]string, n)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("Finding %d shows that the intervention improved recall in cohort %d.", i+1, i%3)
	}
	return []byte(strings.Join(sentences, " "))
}

func TestToolDefinitions(t *testing.T) {
	tools := []*mcp.Tool{
		ArticleIngestTool(),
		ArticleSummarizeTool(),
		ArticlesSynthesizeTool(),
		ArticlesBatchSummarizeTool(),
		SummaryPlanTool(),
		LibrarySearchTool(),
		LibraryCollectionsTool(),
	}
	seen := map[string]bool{}
	for _, tool := range tools {
		if tool.Name == "" || tool.Description == "" {
			t.Errorf("tool %+v is missing a name or description", tool)
		}
		if tool.InputSchema == nil {
			t.Errorf("tool %s has no input schema", tool.Name)
		}
		if seen[tool.Name] {
			t.Errorf("duplicate tool name %s", tool.Name)
		}
		seen[tool.Name] = true
	}
}

func TestArticleIngestAndSummarize(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	log := logger.NewNoOpLogger()

	_, ingested, err := ArticleIngestToolHandler(ctx, nil, ArticleIngestQuery{RawData: sampleText(30)}, svc, log)
	if err != nil {
		t.Fatalf("ArticleIngestToolHandler() error = %v", err)
	}
	if ingested.DocumentID == "" || ingested.PageCount != 1 {
		t.Errorf("ingest response = %+v", ingested)
	}
	if len(ingested.ResourcePaths) == 0 || ingested.ResourcePaths[0] != "article://"+ingested.DocumentID {
		t.Errorf("ResourcePaths = %q", ingested.ResourcePaths)
	}

	_, summary, err := ArticleSummarizeToolHandler(ctx, nil, ArticleSummarizeQuery{DocumentID: ingested.DocumentID, Level: "executive"}, svc, log)
	if err != nil {
		t.Fatalf("ArticleSummarizeToolHandler() error = %v", err)
	}
	if summary.Method != "extractive" || summary.Level != "executive" || summary.Summary == "" {
		t.Errorf("summary response = %+v", summary)
	}
	want := "article://" + ingested.DocumentID + "/summaries/executive"
	found := false
	for _, p := range summary.ResourcePaths {
		if p == want {
			found = true
		}
	}
	if !found {
		t.Errorf("ResourcePaths %q missing %s", summary.ResourcePaths, want)
	}
}

func TestArticlesBatchSummarize(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, llm.CompleterFunc(func(ctx context.Context, req llm.CompletionRequest) (string, error) {
		if strings.Contains(req.UserPrompt, "ARTICLE 1") {
			return "combined review", nil
		}
		return "article summary", nil
	}))
	log := logger.NewNoOpLogger()

	var ids []string
	for _, n := range []int{8, 9} {
		_, ingested, err := ArticleIngestToolHandler(ctx, nil, ArticleIngestQuery{RawData: sampleText(n)}, svc, log)
		if err != nil {
			t.Fatalf("ArticleIngestToolHandler() error = %v", err)
		}
		ids = append(ids, ingested.DocumentID)
	}

	_, resp, err := ArticlesBatchSummarizeToolHandler(ctx, nil, ArticlesBatchSummarizeQuery{
		DocumentIDs: append(ids, "missing"),
		Mode:        "synthesis",
	}, svc, log)
	if err != nil {
		t.Fatalf("ArticlesBatchSummarizeToolHandler() error = %v", err)
	}
	if resp.Succeeded != 2 || resp.Failed != 1 {
		t.Errorf("succeeded = %d, failed = %d", resp.Succeeded, resp.Failed)
	}
	if resp.Results[2].Error == "" || resp.Results[2].Source != "missing" {
		t.Errorf("missing result = %+v", resp.Results[2])
	}
	if resp.Synthesis == nil || resp.Synthesis.Text != "combined review" || len(resp.Synthesis.Documents) != 2 {
		t.Errorf("synthesis = %+v (error %q)", resp.Synthesis, resp.SynthesisError)
	}

	_, synth, err := ArticlesSynthesizeToolHandler(ctx, nil, ArticlesSynthesizeQuery{DocumentIDs: ids, Mode: "gaps"}, svc, log)
	if err != nil {
		t.Fatalf("ArticlesSynthesizeToolHandler() error = %v", err)
	}
	if synth.Mode != "gaps" || synth.Method != "generative_multi" {
		t.Errorf("synthesize response = %+v", synth)
	}
	if synth.Documents[0].Article != 1 || synth.Documents[1].Article != 2 {
		t.Errorf("article ordinals = %d, %d", synth.Documents[0].Article, synth.Documents[1].Article)
	}
	if synth.Documents[0].Citekey == synth.Documents[1].Citekey {
		t.Errorf("citekeys should be unique, got %q twice", synth.Documents[0].Citekey)
	}
	for _, d := range synth.Documents {
		if !d.Cached {
			t.Errorf("document %s should reuse the batch summary", d.DocumentID)
		}
	}
}

func TestSummaryPlan(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNoOpLogger()
	svc := newTestService(t, llm.CompleterFunc(func(ctx context.Context, req llm.CompletionRequest) (string, error) {
		t.Error("summary-plan must not call the completion service")
		return "", nil
	}))

	_, short, err := SummaryPlanToolHandler(ctx, nil, SummaryPlanQuery{Text: "A brief note."}, svc, log)
	if err != nil {
		t.Fatalf("SummaryPlanToolHandler() error = %v", err)
	}
	if short.Method != "generative_direct" || short.CompletionCalls != 1 {
		t.Errorf("short plan = %+v", short)
	}

	_, long, err := SummaryPlanToolHandler(ctx, nil, SummaryPlanQuery{Text: strings.Repeat("memory ", 4000)}, svc, log)
	if err != nil {
		t.Fatalf("SummaryPlanToolHandler() error = %v", err)
	}
	if long.Method != "generative_map_reduce" || long.CompletionCalls != long.ChunkCount+1 || long.ChunkCount < 2 {
		t.Errorf("long plan = %+v", long)
	}

	offline := newTestService(t, nil)
	_, extractive, err := SummaryPlanToolHandler(ctx, nil, SummaryPlanQuery{Text: "A brief note."}, offline, log)
	if err != nil {
		t.Fatalf("SummaryPlanToolHandler() error = %v", err)
	}
	if extractive.Method != "extractive" || extractive.CompletionCalls != 0 {
		t.Errorf("extractive plan = %+v", extractive)
	}
}
