package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/article-summarizer/internal/citations"
	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
	"github.com/Epistemic-Technology/article-summarizer/internal/operations"
)

type ArticlesSynthesizeQuery struct {
	DocumentIDs []string `json:"document_ids"`      // At least two stored documents
	Mode        string   `json:"mode,omitempty"`    // synthesis (default), comparison or gaps
	Level       string   `json:"level,omitempty"`   // executive, detailed (default) or exhaustive
	Refresh     bool     `json:"refresh,omitempty"` // Regenerate the per-article summaries
}

type ArticlesSynthesizeResponse struct {
	Mode      string             `json:"mode"`
	Level     string             `json:"level"`
	Method    string             `json:"method"`
	Text      string             `json:"text"`
	Documents []DocumentOverview `json:"documents"`
}

// DocumentOverview identifies an article that contributed to a multi-document summary.
// Article is the ordinal used in the synthesis context ("ARTICLE n").
type DocumentOverview struct {
	Article         int      `json:"article"`
	Citekey         string   `json:"citekey"`
	DocumentID      string   `json:"document_id"`
	Title           string   `json:"title,omitempty"`
	Authors         []string `json:"authors,omitempty"`
	PublicationYear int      `json:"publication_year,omitempty"`
	Method          string   `json:"method"`
	Cached          bool     `json:"cached,omitempty"`
}

func ArticlesSynthesizeTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ArticlesSynthesizeQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "articles-synthesize",
		Description: "Produce one multi-document review over two or more stored articles. Modes: synthesis (themes, convergences and divergences, state of the art), comparison (side-by-side methods and findings), or gaps (research gaps and future directions). Each article is summarized first, reusing cached summaries.",
		InputSchema: inputschema,
	}
}

func ArticlesSynthesizeToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ArticlesSynthesizeQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *ArticlesSynthesizeResponse, error) {
	log.Info("articles-synthesize tool called (%d documents, mode: %s)", len(query.DocumentIDs), query.Mode)
	result, err := svc.SynthesizeArticles(ctx, operations.SynthesisRequest{
		DocumentIDs: query.DocumentIDs,
		Mode:        query.Mode,
		Level:       query.Level,
		Refresh:     query.Refresh,
	})
	if err != nil {
		log.Error("articles-synthesize tool failed: %v", err)
		return nil, nil, err
	}
	return nil, synthesisResponse(result), nil
}

func synthesisResponse(result *operations.SynthesisResult) *ArticlesSynthesizeResponse {
	keys := citations.KeySet{}
	docs := make([]DocumentOverview, len(result.Documents))
	for i, d := range result.Documents {
		docs[i] = DocumentOverview{
			Article:         i + 1,
			Citekey:         keys.Assign(d.Metadata),
			DocumentID:      d.DocumentID,
			Title:           d.Metadata.Title,
			Authors:         d.Metadata.Authors,
			PublicationYear: d.Metadata.PublicationYear,
			Method:          string(d.Method),
			Cached:          d.Cached,
		}
	}
	return &ArticlesSynthesizeResponse{
		Mode:      string(result.Mode),
		Level:     string(result.Level),
		Method:    string(result.Method),
		Text:      result.Text,
		Documents: docs,
	}
}
