package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/Epistemic-Technology/article-summarizer/internal/config"
	"github.com/Epistemic-Technology/article-summarizer/models"
)

// Document types recognized by DetectDocumentType.
const (
	TypePDF     = "pdf"
	TypeText    = "txt"
	TypeMD      = "md"
	TypeHTML    = "html"
	TypeDOCX    = "docx"
	TypeZIP     = "zip"
	TypeUnknown = "unknown"
)

var (
	ErrNoSource            = errors.New("no document source provided")
	ErrZoteroNotConfigured = errors.New("Zotero API key and library ID are required")
)

// DetectDocumentType determines the type of document from the raw data
// by checking magic bytes and headers.
func DetectDocumentType(data []byte) string {
	if len(data) == 0 {
		return TypeUnknown
	}
	if len(data) < 4 {
		if isLikelyText(data) {
			return TypeText
		}
		return TypeUnknown
	}

	if bytes.HasPrefix(data, []byte("%PDF")) {
		return TypePDF
	}

	trimmed := bytes.TrimSpace(data)
	for _, marker := range []string{"<!DOCTYPE html", "<!doctype html", "<html", "<HTML"} {
		if bytes.HasPrefix(trimmed, []byte(marker)) {
			return TypeHTML
		}
	}

	head := data[:min(len(data), 1024)]

	// ZIP local file header; DOCX is a ZIP with a word/ directory
	if data[0] == 0x50 && data[1] == 0x4B && (data[2] == 0x03 || data[2] == 0x05 || data[2] == 0x07) {
		if bytes.Contains(head, []byte("word/")) {
			return TypeDOCX
		}
		return TypeZIP
	}

	if isLikelyText(data) {
		if bytes.Contains(head, []byte("# ")) || bytes.Contains(head, []byte("```")) {
			return TypeMD
		}
		return TypeText
	}
	return TypeUnknown
}

// IsTextType reports whether docType is ingested without page parsing.
func IsTextType(docType string) bool {
	return docType == TypeText || docType == TypeMD
}

// isLikelyText checks if the data is likely plain text (no binary content)
func isLikelyText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data[:min(len(data), 512)]
	if bytes.IndexByte(sample, 0) >= 0 {
		return false
	}

	printable := 0
	for _, b := range sample {
		if (b >= 32 && b <= 126) || b == '\n' || b == '\r' || b == '\t' || b == '\f' || b >= 0x80 {
			printable++
		}
	}
	return float64(printable)/float64(len(sample)) > 0.9
}

// Fetcher retrieves raw documents from Zotero or a URL.
type Fetcher struct {
	zotero     config.ZoteroConfig
	httpClient *http.Client
}

// NewFetcher creates a Fetcher. A nil httpClient uses http.DefaultClient.
func NewFetcher(zoteroCfg config.ZoteroConfig, httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Fetcher{zotero: zoteroCfg, httpClient: httpClient}
}

// ZoteroConfigured reports whether Zotero credentials are present.
func (f *Fetcher) ZoteroConfigured() bool {
	return f.zotero.APIKey != "" && f.zotero.LibraryID != ""
}

// Fetch retrieves document data from a source and detects its type.
func (f *Fetcher) Fetch(ctx context.Context, sourceInfo models.SourceInfo) (models.DocumentData, error) {
	var data []byte
	var err error

	switch {
	case sourceInfo.ZoteroID != "":
		data, err = f.FetchZotero(ctx, sourceInfo.ZoteroID)
	case sourceInfo.URL != "":
		data, err = f.FetchURL(ctx, sourceInfo.URL)
	default:
		return models.DocumentData{}, ErrNoSource
	}
	if err != nil {
		return models.DocumentData{}, err
	}
	if len(data) == 0 {
		return models.DocumentData{}, errors.New("no data retrieved")
	}

	return models.DocumentData{Data: data, Type: DetectDocumentType(data)}, nil
}

// FetchURL downloads a document over HTTP.
func (f *Fetcher) FetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// FetchZotero downloads the file attached to a Zotero item.
func (f *Fetcher) FetchZotero(ctx context.Context, zoteroID string) ([]byte, error) {
	if !f.ZoteroConfigured() {
		return nil, ErrZoteroNotConfigured
	}
	client := zotero.NewClient(f.zotero.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(f.zotero.APIKey))
	data, err := client.File(ctx, zoteroID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Zotero file %s: %w", zoteroID, err)
	}
	return data, nil
}
