package server

import (
	"context"
	"fmt"

	"github.com/Epistemic-Technology/article-summarizer/internal/config"
	"github.com/Epistemic-Technology/article-summarizer/internal/documents"
	"github.com/Epistemic-Technology/article-summarizer/internal/llm"
	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
	"github.com/Epistemic-Technology/article-summarizer/internal/operations"
	"github.com/Epistemic-Technology/article-summarizer/internal/storage"
	"github.com/Epistemic-Technology/article-summarizer/internal/summarize"
	"github.com/Epistemic-Technology/article-summarizer/resources"
	"github.com/Epistemic-Technology/article-summarizer/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "article-summarizer"
	serverVersion = "v0.1.0"
)

func CreateServer(svc *operations.Service, log logger.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	articleResourceHandler := resources.NewArticleResourceHandler(svc.Store())

	// Register tools with the shared service and logger
	mcp.AddTool(server, tools.ArticleIngestTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ArticleIngestQuery) (*mcp.CallToolResult, *tools.ArticleIngestResponse, error) {
		return tools.ArticleIngestToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.ArticleSummarizeTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ArticleSummarizeQuery) (*mcp.CallToolResult, *tools.ArticleSummarizeResponse, error) {
		return tools.ArticleSummarizeToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.ArticlesSynthesizeTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ArticlesSynthesizeQuery) (*mcp.CallToolResult, *tools.ArticlesSynthesizeResponse, error) {
		return tools.ArticlesSynthesizeToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.ArticlesBatchSummarizeTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ArticlesBatchSummarizeQuery) (*mcp.CallToolResult, *tools.ArticlesBatchSummarizeResponse, error) {
		return tools.ArticlesBatchSummarizeToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.SummaryPlanTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.SummaryPlanQuery) (*mcp.CallToolResult, *tools.SummaryPlanResponse, error) {
		return tools.SummaryPlanToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.LibrarySearchTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.LibrarySearchQuery) (*mcp.CallToolResult, *tools.LibrarySearchResponse, error) {
		return tools.LibrarySearchToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.LibraryCollectionsTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.LibraryCollectionsQuery) (*mcp.CallToolResult, *tools.LibraryCollectionsResponse, error) {
		return tools.LibraryCollectionsToolHandler(ctx, req, query, svc, log)
	})

	readArticle := func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return articleResourceHandler.ReadResource(ctx, req.Params.URI)
	}

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "article://{documentId}",
		Name:        "article",
		Description: "Stored article overview with metadata, page count and available summaries",
		MIMEType:    "application/json",
	}, readArticle)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "article://{documentId}/metadata",
		Name:        "article-metadata",
		Description: "Article metadata including title, authors, year, journal, DOI and abstract",
		MIMEType:    "application/json",
	}, readArticle)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "article://{documentId}/text",
		Name:        "article-text",
		Description: "Full extracted text of the article",
		MIMEType:    "text/plain",
	}, readArticle)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "article://{documentId}/summaries/{level}",
		Name:        "article-summary",
		Description: "Most recent stored summary at the given level (executive, detailed or exhaustive)",
		MIMEType:    "application/json",
	}, readArticle)

	return server
}

// NewService wires storage, fetching and the summarizer from configuration.
// The returned store must be closed by the caller.
func NewService(cfg config.Config, log logger.Logger) (*operations.Service, storage.Store, error) {
	log.Info("Initializing SQLite database at: %s", cfg.Storage.DBPath)
	store, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create SQLite store: %w", err)
	}

	summarizer, err := summarize.New(cfg, newCompleter(cfg.Completion, log), log.WithPrefix("summarize"))
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create summarizer: %w", err)
	}

	fetcher := documents.NewFetcher(cfg.Zotero, nil)
	svc := operations.NewService(cfg, store, fetcher, summarizer, log.WithPrefix("operations"))
	return svc, store, nil
}

// newCompleter returns nil when no completion service is configured, which
// leaves the summarizer in extractive mode.
func newCompleter(cfg config.CompletionConfig, log logger.Logger) llm.Completer {
	if !cfg.Configured() {
		log.Warn("No completion API key configured, summaries will be extractive")
		return nil
	}
	log.Info("Using completion model %s at %s", cfg.Model, cfg.BaseURL)

	var completer llm.Completer = llm.NewChatCompleter(cfg.APIKey, cfg.BaseURL, cfg.Model, log.WithPrefix("completion"))
	if cfg.TokensPerSecond > 0 {
		completer = llm.NewRateLimitedCompleter(completer, cfg.TokensPerSecond, cfg.BurstTokens, llm.RetryPolicy{MaxRetries: cfg.MaxRetries}, log.WithPrefix("ratelimit"))
	}
	return completer
}
