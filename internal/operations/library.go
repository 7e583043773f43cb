package operations

import (
	"context"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/Epistemic-Technology/article-summarizer/internal/config"
	"github.com/Epistemic-Technology/article-summarizer/internal/documents"
	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
)

// LibrarySearchParams contains parameters for searching the Zotero library.
type LibrarySearchParams struct {
	Query      string   // Quick search text (searches title, creator, year)
	Tags       []string // Filter by tags
	ItemTypes  []string // Filter by type (e.g., "journalArticle", "-attachment")
	Collection string   // Filter by collection key (optional)
	Limit      int      // Max results (default 25, 100 within a collection)
	Sort       string   // Sort field (default "dateModified")
}

// LibraryItem is a library entry with the attachments that can be summarized.
type LibraryItem struct {
	Key             string
	Title           string
	Creators        []string
	ItemType        string
	PublicationYear int
	Attachments     []AttachmentInfo
}

// AttachmentInfo contains information about a file attached to a library item.
type AttachmentInfo struct {
	Key         string // Use this as zotero_id when ingesting
	Filename    string
	ContentType string // MIME type (e.g., "application/pdf")
	LinkMode    string // imported_file, imported_url, linked_file, linked_url
}

// SummarizableAttachment returns the key of the first attachment the ingest
// pipeline can read: a PDF, then any plain-text file.
func (item LibraryItem) SummarizableAttachment() (string, bool) {
	for _, att := range item.Attachments {
		if att.ContentType == "application/pdf" {
			return att.Key, true
		}
	}
	for _, att := range item.Attachments {
		if strings.HasPrefix(att.ContentType, "text/plain") || strings.HasPrefix(att.ContentType, "text/markdown") {
			return att.Key, true
		}
	}
	return "", false
}

func checkZoteroConfig(cfg config.ZoteroConfig) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("Zotero API key is required")
	}
	if cfg.LibraryID == "" {
		return fmt.Errorf("Zotero library ID is required")
	}
	return nil
}

// SearchLibrary searches the Zotero library and returns parent items with their attachments.
func SearchLibrary(ctx context.Context, cfg config.ZoteroConfig, params LibrarySearchParams, log logger.Logger) ([]LibraryItem, error) {
	if err := checkZoteroConfig(cfg); err != nil {
		return nil, err
	}

	client := zotero.NewClient(cfg.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(cfg.APIKey))

	queryParams := &zotero.QueryParams{
		Q:        params.Query,
		QMode:    "titleCreatorYear",
		Tag:      params.Tags,
		ItemType: params.ItemTypes,
		Limit:    params.Limit,
		Sort:     params.Sort,
	}
	if queryParams.Limit == 0 {
		queryParams.Limit = 25
		if params.Collection != "" {
			queryParams.Limit = 100
		}
	}
	if queryParams.Sort == "" {
		queryParams.Sort = "dateModified"
	}
	if len(queryParams.ItemType) == 0 {
		queryParams.ItemType = []string{"-attachment"}
	}

	var items []zotero.Item
	var err error
	if params.Collection != "" {
		items, err = client.CollectionItems(ctx, params.Collection, queryParams)
		if err != nil {
			log.Error("Failed to search collection %s: %v", params.Collection, err)
			return nil, fmt.Errorf("failed to search collection %s: %w", params.Collection, err)
		}
	} else {
		items, err = client.Items(ctx, queryParams)
		if err != nil {
			log.Error("Failed to search Zotero library: %v", err)
			return nil, fmt.Errorf("failed to search Zotero library: %w", err)
		}
	}

	log.Info("Found %d items in Zotero library", len(items))

	results := make([]LibraryItem, 0, len(items))
	for _, item := range items {
		if item.Data.ItemType == "attachment" {
			continue
		}

		result := LibraryItem{
			Key:      item.Key,
			Title:    item.Data.Title,
			ItemType: item.Data.ItemType,
		}
		if date, ok := item.Data.Extra["date"].(string); ok {
			result.PublicationYear = documents.ParseYear(date)
		}

		for _, creator := range item.Data.Creators {
			name := creator.Name
			if name == "" {
				name = strings.TrimSpace(creator.FirstName + " " + creator.LastName)
			}
			if name != "" {
				result.Creators = append(result.Creators, name)
			}
		}

		children, err := client.Children(ctx, item.Key, nil)
		if err != nil {
			log.Error("Failed to retrieve children for item %s: %v", item.Key, err)
			continue
		}
		for _, child := range children {
			if child.Data.ItemType == "attachment" {
				result.Attachments = append(result.Attachments, AttachmentInfo{
					Key:         child.Key,
					Filename:    child.Data.Filename,
					ContentType: child.Data.ContentType,
					LinkMode:    child.Data.LinkMode,
				})
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// ListCollectionsParams contains parameters for listing Zotero collections.
type ListCollectionsParams struct {
	TopLevelOnly     bool   // List only top-level collections (no parent)
	ParentCollection string // Filter by parent collection key (for subcollections)
	Limit            int    // Max results (default 100)
	Sort             string // Sort field (default "title")
}

// CollectionResult represents a Zotero collection.
type CollectionResult struct {
	Key              string
	Name             string
	ParentCollection string // empty if top-level
}

// ListCollections retrieves collections so callers can pick one to batch-summarize.
func ListCollections(ctx context.Context, cfg config.ZoteroConfig, params ListCollectionsParams, log logger.Logger) ([]CollectionResult, error) {
	if err := checkZoteroConfig(cfg); err != nil {
		return nil, err
	}

	client := zotero.NewClient(cfg.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(cfg.APIKey))

	queryParams := &zotero.QueryParams{
		Limit: params.Limit,
		Sort:  params.Sort,
	}
	if queryParams.Limit == 0 {
		queryParams.Limit = 100
	}
	if queryParams.Sort == "" {
		queryParams.Sort = "title"
	}

	var collections []zotero.Collection
	var err error
	switch {
	case params.ParentCollection != "":
		collections, err = client.CollectionsSub(ctx, params.ParentCollection, queryParams)
	case params.TopLevelOnly:
		collections, err = client.CollectionsTop(ctx, queryParams)
	default:
		collections, err = client.Collections(ctx, queryParams)
	}
	if err != nil {
		log.Error("Failed to retrieve Zotero collections: %v", err)
		return nil, fmt.Errorf("failed to retrieve Zotero collections: %w", err)
	}

	log.Info("Found %d collections in Zotero library", len(collections))

	results := make([]CollectionResult, 0, len(collections))
	for _, collection := range collections {
		results = append(results, CollectionResult{
			Key:              collection.Data.Key,
			Name:             collection.Data.Name,
			ParentCollection: collection.Data.ParentCollection.String(),
		})
	}
	return results, nil
}
