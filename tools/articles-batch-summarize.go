package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
	"github.com/Epistemic-Technology/article-summarizer/internal/operations"
)

type ArticlesBatchSummarizeQuery struct {
	DocumentIDs []string `json:"document_ids,omitempty"`
	ZoteroIDs   []string `json:"zotero_ids,omitempty"`
	URLs        []string `json:"urls,omitempty"`
	Collection  string   `json:"collection,omitempty"` // Zotero collection key; every item with a PDF or text attachment
	Level       string   `json:"level,omitempty"`
	Method      string   `json:"method,omitempty"`
	Mode        string   `json:"mode,omitempty"` // When set, synthesize the successful summaries
	Refresh     bool     `json:"refresh,omitempty"`
}

type ArticlesBatchSummarizeResponse struct {
	Results        []BatchResult               `json:"results"`
	Succeeded      int                         `json:"succeeded"`
	Failed         int                         `json:"failed"`
	Synthesis      *ArticlesSynthesizeResponse `json:"synthesis,omitempty"`
	SynthesisError string                      `json:"synthesis_error,omitempty"`
}

type BatchResult struct {
	Source     string `json:"source"`
	DocumentID string `json:"document_id,omitempty"`
	Title      string `json:"title,omitempty"`
	Method     string `json:"method,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Cached     bool   `json:"cached,omitempty"`
	Error      string `json:"error,omitempty"`
}

func ArticlesBatchSummarizeTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ArticlesBatchSummarizeQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "articles-batch-summarize",
		Description: "Summarize several articles at the same level: stored document IDs, Zotero attachment keys, URLs, or every summarizable item of a Zotero collection. A failing article is reported without stopping the batch. When a mode is given and at least two articles succeed, the summaries are combined into a multi-document review.",
		InputSchema: inputschema,
	}
}

func ArticlesBatchSummarizeToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ArticlesBatchSummarizeQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *ArticlesBatchSummarizeResponse, error) {
	log.Info("articles-batch-summarize tool called")

	var sources []operations.IngestSource
	for _, id := range query.ZoteroIDs {
		sources = append(sources, operations.IngestSource{ZoteroID: id})
	}
	for _, url := range query.URLs {
		sources = append(sources, operations.IngestSource{URL: url})
	}

	result, err := svc.SummarizeBatch(ctx, operations.BatchRequest{
		Sources:     sources,
		DocumentIDs: query.DocumentIDs,
		Collection:  query.Collection,
		Level:       query.Level,
		Method:      query.Method,
		Mode:        query.Mode,
		Refresh:     query.Refresh,
	})
	if err != nil {
		log.Error("articles-batch-summarize tool failed: %v", err)
		return nil, nil, err
	}

	response := &ArticlesBatchSummarizeResponse{
		Results:   make([]BatchResult, len(result.Items)),
		Succeeded: result.Succeeded,
		Failed:    len(result.Items) - result.Succeeded,
	}
	for i, item := range result.Items {
		r := BatchResult{Source: item.Label}
		if item.Err != nil {
			r.Error = item.Err.Error()
		} else {
			r.DocumentID = item.Summary.DocumentID
			r.Title = item.Summary.Metadata.Title
			r.Method = string(item.Summary.Method)
			r.Summary = item.Summary.Summary
			r.Cached = item.Summary.Cached
		}
		response.Results[i] = r
	}
	if result.Synthesis != nil {
		response.Synthesis = synthesisResponse(result.Synthesis)
	}
	if result.SynthesisError != nil {
		response.SynthesisError = result.SynthesisError.Error()
	}
	return nil, response, nil
}
