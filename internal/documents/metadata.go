package documents

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/Epistemic-Technology/article-summarizer/models"
)

var yearPattern = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)

// FetchZoteroMetadata retrieves metadata for a Zotero item. If zoteroID is an
// attachment, the parent item's metadata is used. Returns nil for orphaned attachments.
func (f *Fetcher) FetchZoteroMetadata(ctx context.Context, zoteroID string) (*models.ItemMetadata, error) {
	if zoteroID == "" {
		return nil, fmt.Errorf("zoteroID is required")
	}
	if !f.ZoteroConfigured() {
		return nil, ErrZoteroNotConfigured
	}

	client := zotero.NewClient(f.zotero.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(f.zotero.APIKey))

	item, err := client.Item(ctx, zoteroID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Zotero item %s: %w", zoteroID, err)
	}

	if item.Data.ItemType == "attachment" && item.Data.ParentItem != "" {
		parentItem, err := client.Item(ctx, item.Data.ParentItem, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch parent item %s: %w", item.Data.ParentItem, err)
		}
		item = parentItem
	}

	if item.Data.ItemType == "attachment" {
		return nil, nil
	}

	metadata := zoteroItemToMetadata(item)
	metadata.MetadataSource = "zotero"
	return metadata, nil
}

// zoteroItemToMetadata converts a Zotero Item to ItemMetadata
func zoteroItemToMetadata(item *zotero.Item) *models.ItemMetadata {
	metadata := &models.ItemMetadata{
		Title:    item.Data.Title,
		Abstract: item.Data.AbstractNote,
	}

	for _, creator := range item.Data.Creators {
		name := creator.Name
		if name == "" {
			name = strings.TrimSpace(creator.FirstName + " " + creator.LastName)
		}
		if name != "" {
			metadata.Authors = append(metadata.Authors, name)
		}
	}

	// Type-specific fields live in Extra
	if item.Data.Extra != nil {
		if val, ok := item.Data.Extra["date"].(string); ok {
			metadata.PublicationYear = ParseYear(val)
		}
		if val, ok := item.Data.Extra["publicationTitle"].(string); ok {
			metadata.Journal = val
		}
		if val, ok := item.Data.Extra["DOI"].(string); ok {
			metadata.DOI = val
		}
	}

	return metadata
}

// ParseYear extracts a four-digit year from a free-form date, or 0.
func ParseYear(date string) int {
	m := yearPattern.FindString(date)
	if m == "" {
		return 0
	}
	year, _ := strconv.Atoi(m)
	return year
}

// MergeMetadata merges external metadata with extracted metadata.
// External metadata takes priority; extracted values fill its gaps.
func MergeMetadata(external *models.ItemMetadata, extracted *models.ItemMetadata) *models.ItemMetadata {
	if external == nil && extracted == nil {
		return &models.ItemMetadata{MetadataSource: "none"}
	}
	if external == nil {
		result := *extracted
		result.MetadataSource = "extracted"
		return &result
	}
	if extracted == nil {
		result := *external
		if result.MetadataSource == "" {
			result.MetadataSource = "external"
		}
		return &result
	}

	merged := &models.ItemMetadata{
		Title:           firstNonEmpty(external.Title, extracted.Title),
		Journal:         firstNonEmpty(external.Journal, extracted.Journal),
		DOI:             firstNonEmpty(external.DOI, extracted.DOI),
		Abstract:        firstNonEmpty(external.Abstract, extracted.Abstract),
		PublicationYear: external.PublicationYear,
		Authors:         external.Authors,
		Keywords:        external.Keywords,
		MetadataSource:  "merged",
	}
	if merged.PublicationYear == 0 {
		merged.PublicationYear = extracted.PublicationYear
	}
	// LLM author extraction is less reliable than library records
	if len(merged.Authors) == 0 {
		merged.Authors = extracted.Authors
	}
	if len(merged.Keywords) == 0 {
		merged.Keywords = extracted.Keywords
	}
	return merged
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
