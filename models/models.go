package models

import "time"

// Article is a stored library item: its metadata plus the extracted text of each page.
type Article struct {
	ID         string       `json:"id"`
	Metadata   ItemMetadata `json:"metadata,omitempty"`
	Pages      []string     `json:"pages,omitempty"`
	SourceInfo SourceInfo   `json:"source_info,omitempty"`
}

type ItemMetadata struct {
	Title           string   `json:"title,omitempty"`
	Authors         []string `json:"authors,omitempty"`
	PublicationYear int      `json:"publication_year,omitempty"`
	Journal         string   `json:"journal,omitempty"`
	DOI             string   `json:"doi,omitempty"`
	Abstract        string   `json:"abstract,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	MetadataSource  string   `json:"metadata_source,omitempty"` // "zotero", "extracted", "merged", "none"
}

// ParsedPage is the structured result of parsing a single PDF page.
type ParsedPage struct {
	Metadata ItemMetadata `json:"metadata,omitempty"`
	Content  string       `json:"content,omitempty"`
}

type DocumentData struct {
	Data []byte
	Type string // "pdf", "txt", "md", "html", "docx", "zip", "unknown"
}

type DocumentPageData []byte
type DocumentPages []DocumentPageData

// SourceInfo contains information about where the document came from
type SourceInfo struct {
	ZoteroID string `json:"zotero_id,omitempty"`
	URL      string `json:"url,omitempty"`
}

// DocumentInfo contains basic information about a stored article
type DocumentInfo struct {
	DocumentID      string     `json:"document_id"`
	Title           string     `json:"title,omitempty"`
	Authors         []string   `json:"authors,omitempty"`
	PublicationYear int        `json:"publication_year,omitempty"`
	PageCount       int        `json:"page_count"`
	SourceInfo      SourceInfo `json:"source_info,omitempty"`
}

// StoredSummary is a generated summary cached for a document at a given level.
type StoredSummary struct {
	DocumentID string    `json:"document_id"`
	Level      string    `json:"level"`
	Method     string    `json:"method"`
	Text       string    `json:"text"`
	ChunkCount int       `json:"chunk_count,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
