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

type LibrarySearchQuery struct {
	Query      string   `json:"query,omitempty"`      // Quick search text (searches title, creator, year)
	Tags       []string `json:"tags,omitempty"`       // Filter by tags
	ItemTypes  []string `json:"item_types,omitempty"` // Filter by type (e.g., "journalArticle", "-attachment")
	Collection string   `json:"collection,omitempty"` // Filter by collection key (optional)
	Limit      int      `json:"limit,omitempty"`      // Max results (default 25)
	Sort       string   `json:"sort,omitempty"`       // Sort field (default "dateModified")
}

type LibrarySearchResponse struct {
	Items []LibraryItemResult `json:"items"`
	Count int                 `json:"count"`
}

type LibraryItemResult struct {
	Key             string           `json:"key"`
	Title           string           `json:"title"`
	Creators        []string         `json:"creators,omitempty"`
	ItemType        string           `json:"item_type"`
	PublicationYear int              `json:"publication_year,omitempty"`
	Attachments     []AttachmentInfo `json:"attachments,omitempty"`
}

type AttachmentInfo struct {
	Key         string `json:"key"` // Use this as zotero_id in article-ingest or article-summarize
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	LinkMode    string `json:"link_mode"`
	DocumentID  string `json:"document_id,omitempty"` // Set when the attachment is already stored
}

func LibrarySearchTool() *mcp.Tool {
	inputschema, err := jsonschema.For[LibrarySearchQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "library-search",
		Description: "Search the Zotero library for articles and list their file attachments. Use an attachment key as zotero_id with article-ingest or article-summarize. Attachments that were already ingested carry their document_id.",
		InputSchema: inputschema,
	}
}

func LibrarySearchToolHandler(ctx context.Context, req *mcp.CallToolRequest, query LibrarySearchQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *LibrarySearchResponse, error) {
	log.Info("library-search tool called")

	items, err := operations.SearchLibrary(ctx, svc.ZoteroConfig(), operations.LibrarySearchParams{
		Query:      query.Query,
		Tags:       query.Tags,
		ItemTypes:  query.ItemTypes,
		Collection: query.Collection,
		Limit:      query.Limit,
		Sort:       query.Sort,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	results := make([]LibraryItemResult, len(items))
	for i, item := range items {
		results[i] = LibraryItemResult{
			Key:             item.Key,
			Title:           item.Title,
			Creators:        item.Creators,
			ItemType:        item.ItemType,
			PublicationYear: item.PublicationYear,
		}
		for _, att := range item.Attachments {
			info := AttachmentInfo{
				Key:         att.Key,
				Filename:    att.Filename,
				ContentType: att.ContentType,
				LinkMode:    att.LinkMode,
			}
			docID := storage.GenerateDocumentID(&models.Article{SourceInfo: models.SourceInfo{ZoteroID: att.Key}})
			if exists, err := svc.Store().DocumentExists(ctx, docID); err != nil {
				log.Warn("Failed to check stored document %s: %v", docID, err)
			} else if exists {
				info.DocumentID = docID
			}
			results[i].Attachments = append(results[i].Attachments, info)
		}
	}

	return nil, &LibrarySearchResponse{Items: results, Count: len(results)}, nil
}
