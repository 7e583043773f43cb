package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/article-summarizer/internal/storage"
	"github.com/Epistemic-Technology/article-summarizer/internal/summarize"
)

const (
	mimeJSON = "application/json"
	mimeText = "text/plain"
)

// ArticleResourceHandler handles resource requests for stored articles and their summaries
type ArticleResourceHandler struct {
	store storage.Store
}

// NewArticleResourceHandler creates a new article resource handler
func NewArticleResourceHandler(store storage.Store) *ArticleResourceHandler {
	return &ArticleResourceHandler{store: store}
}

// ListResources returns the top-level resources of every stored article
func (h *ArticleResourceHandler) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	docs, err := h.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var resources []mcp.Resource
	for _, doc := range docs {
		title := doc.Title
		if title == "" {
			title = doc.DocumentID
		}
		resources = append(resources,
			mcp.Resource{
				URI:         fmt.Sprintf("article://%s", doc.DocumentID),
				Name:        fmt.Sprintf("%s (Article)", title),
				Description: fmt.Sprintf("Stored article: %s", title),
				MIMEType:    mimeJSON,
			},
			mcp.Resource{
				URI:         fmt.Sprintf("article://%s/metadata", doc.DocumentID),
				Name:        fmt.Sprintf("%s (Metadata)", title),
				Description: "Bibliographic metadata including title, authors, year, journal and abstract",
				MIMEType:    mimeJSON,
			},
			mcp.Resource{
				URI:         fmt.Sprintf("article://%s/text", doc.DocumentID),
				Name:        fmt.Sprintf("%s (Text)", title),
				Description: "Extracted article text, pages separated by form feeds",
				MIMEType:    mimeText,
			},
		)
	}

	return resources, nil
}

// ReadResource reads a specific resource by URI
func (h *ArticleResourceHandler) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	// article://doc_id[/metadata|/text|/summaries[/level]]
	if !strings.HasPrefix(uri, "article://") {
		return nil, fmt.Errorf("invalid URI scheme, expected article://")
	}

	path := strings.TrimPrefix(uri, "article://")
	parts := strings.Split(path, "/")
	if parts[0] == "" {
		return nil, fmt.Errorf("invalid URI, missing document ID")
	}

	docID := parts[0]
	resourceType := ""
	if len(parts) > 1 {
		resourceType = parts[1]
	}

	var content, mimeType string
	var err error

	switch resourceType {
	case "":
		content, err = h.getOverview(ctx, docID)
		mimeType = mimeJSON
	case "metadata":
		content, err = h.getMetadata(ctx, docID)
		mimeType = mimeJSON
	case "text":
		content, err = h.getText(ctx, docID)
		mimeType = mimeText
	case "summaries":
		if len(parts) > 2 && parts[2] != "" {
			content, err = h.getSummary(ctx, docID, parts[2])
		} else {
			content, err = h.getAllSummaries(ctx, docID)
		}
		mimeType = mimeJSON
	default:
		return nil, fmt.Errorf("unknown resource type: %s", resourceType)
	}

	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: mimeType,
				Text:     content,
			},
		},
	}, nil
}

func (h *ArticleResourceHandler) getOverview(ctx context.Context, docID string) (string, error) {
	article, err := h.store.GetArticle(ctx, docID)
	if err != nil {
		return "", err
	}
	summaries, err := h.store.ListSummaries(ctx, docID)
	if err != nil {
		return "", err
	}

	levels := []string{}
	for _, s := range summaries {
		levels = append(levels, s.Level+"/"+s.Method)
	}

	overview := map[string]any{
		"document_id":         docID,
		"metadata":            article.Metadata,
		"source_info":         article.SourceInfo,
		"page_count":          len(article.Pages),
		"stored_summaries":    levels,
		"available_resources": storage.CalculateResourcePaths(docID, summaries),
	}
	return marshalJSON(overview)
}

func (h *ArticleResourceHandler) getMetadata(ctx context.Context, docID string) (string, error) {
	metadata, err := h.store.GetMetadata(ctx, docID)
	if err != nil {
		return "", err
	}
	return marshalJSON(metadata)
}

func (h *ArticleResourceHandler) getText(ctx context.Context, docID string) (string, error) {
	exists, err := h.store.DocumentExists(ctx, docID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("document %s: %w", docID, storage.ErrNotFound)
	}
	pages, err := h.store.GetPages(ctx, docID)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n\f\n"), nil
}

func (h *ArticleResourceHandler) getSummary(ctx context.Context, docID, level string) (string, error) {
	canonical := summarize.ParseLevel(level)
	if string(canonical) != strings.ToLower(level) {
		return "", fmt.Errorf("unknown summary level: %s", level)
	}
	summary, err := h.store.GetSummary(ctx, docID, string(canonical), "")
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("no %s summary stored for %s, call article-summarize first: %w", canonical, docID, err)
	}
	if err != nil {
		return "", err
	}
	return marshalJSON(summary)
}

func (h *ArticleResourceHandler) getAllSummaries(ctx context.Context, docID string) (string, error) {
	summaries, err := h.store.ListSummaries(ctx, docID)
	if err != nil {
		return "", err
	}
	return marshalJSON(summaries)
}

func marshalJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal resource: %w", err)
	}
	return string(data), nil
}
