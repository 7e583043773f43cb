package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
	"github.com/Epistemic-Technology/article-summarizer/internal/operations"
	"github.com/Epistemic-Technology/article-summarizer/internal/storage"
	"github.com/Epistemic-Technology/article-summarizer/models"
)

type ArticleIngestQuery struct {
	ZoteroID string `json:"zotero_id,omitempty"` // Zotero attachment key
	URL      string `json:"url,omitempty"`
	RawData  []byte `json:"raw_data,omitempty"`
	DocType  string `json:"doc_type,omitempty"` // pdf, txt or md; detected when empty
}

type ArticleIngestResponse struct {
	DocumentID    string              `json:"document_id"`
	ResourcePaths []string            `json:"resource_paths"`
	Metadata      models.ItemMetadata `json:"metadata"`
	PageCount     int                 `json:"page_count"`
}

func ArticleIngestTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ArticleIngestQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "article-ingest",
		Description: "Fetch an academic article (PDF, plain text, or Markdown) from Zotero, a URL, or raw bytes, extract its pages and bibliographic metadata, and store it for summarization. Returns the document ID used by the summarization tools. Articles already stored are returned without re-parsing.",
		InputSchema: inputschema,
	}
}

func ArticleIngestToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ArticleIngestQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *ArticleIngestResponse, error) {
	log.Info("article-ingest tool called")
	article, err := svc.GetOrIngestArticle(ctx, operations.IngestSource{
		ZoteroID: query.ZoteroID,
		URL:      query.URL,
		RawData:  query.RawData,
		DocType:  query.DocType,
	})
	if err != nil {
		log.Error("article-ingest tool failed: %v", err)
		return nil, nil, err
	}

	return nil, &ArticleIngestResponse{
		DocumentID:    article.ID,
		ResourcePaths: storage.CalculateResourcePaths(article.ID, nil),
		Metadata:      article.Metadata,
		PageCount:     len(article.Pages),
	}, nil
}
