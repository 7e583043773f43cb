package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
	"github.com/Epistemic-Technology/article-summarizer/internal/operations"
	"github.com/Epistemic-Technology/article-summarizer/internal/storage"
)

type ArticleSummarizeQuery struct {
	DocumentID string `json:"document_id,omitempty"` // Stored document; takes precedence over the source fields
	ZoteroID   string `json:"zotero_id,omitempty"`
	URL        string `json:"url,omitempty"`
	RawData    []byte `json:"raw_data,omitempty"`
	DocType    string `json:"doc_type,omitempty"`
	Level      string `json:"level,omitempty"`   // executive, detailed (default) or exhaustive
	Method     string `json:"method,omitempty"`  // auto (default), extractive or generative
	Refresh    bool   `json:"refresh,omitempty"` // Regenerate even if a cached summary exists
}

type ArticleSummarizeResponse struct {
	DocumentID    string   `json:"document_id"`
	Title         string   `json:"title,omitempty"`
	Level         string   `json:"level"`
	Method        string   `json:"method"`
	Summary       string   `json:"summary"`
	ChunkCount    int      `json:"chunk_count,omitempty"`
	FailedChunks  []int    `json:"failed_chunks,omitempty"`
	Cached        bool     `json:"cached,omitempty"`
	ResourcePaths []string `json:"resource_paths,omitempty"`
}

func ArticleSummarizeTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ArticleSummarizeQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "article-summarize",
		Description: "Summarize an academic article at one of three levels: executive (about one page), detailed (3-4 pages) or exhaustive (8-10 pages). Long articles are summarized fragment by fragment and then consolidated. Without a configured completion service an extractive summary of the most representative sentences is returned. Accepts a stored document_id or any ingest source.",
		InputSchema: inputschema,
	}
}

func ArticleSummarizeToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ArticleSummarizeQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *ArticleSummarizeResponse, error) {
	log.Info("article-summarize tool called (level: %s, method: %s)", query.Level, query.Method)
	sum, err := svc.SummarizeArticle(ctx, operations.SummarizeRequest{
		DocumentID: query.DocumentID,
		Source: operations.IngestSource{
			ZoteroID: query.ZoteroID,
			URL:      query.URL,
			RawData:  query.RawData,
			DocType:  query.DocType,
		},
		Level:   query.Level,
		Method:  query.Method,
		Refresh: query.Refresh,
	})
	if err != nil {
		log.Error("article-summarize tool failed: %v", err)
		return nil, nil, err
	}
	return nil, summaryResponse(ctx, svc, sum), nil
}

func summaryResponse(ctx context.Context, svc *operations.Service, sum *operations.ArticleSummary) *ArticleSummarizeResponse {
	summaries, _ := svc.Store().ListSummaries(ctx, sum.DocumentID)
	return &ArticleSummarizeResponse{
		DocumentID:    sum.DocumentID,
		Title:         sum.Metadata.Title,
		Level:         string(sum.Level),
		Method:        string(sum.Method),
		Summary:       sum.Summary,
		ChunkCount:    sum.ChunkCount,
		FailedChunks:  sum.FailedChunks,
		Cached:        sum.Cached,
		ResourcePaths: storage.CalculateResourcePaths(sum.DocumentID, summaries),
	}
}
