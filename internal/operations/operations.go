// Package operations composes fetching, storage and summarization into the
// operations exposed by the MCP tools.
package operations

import (
	"context"
	"errors"
	"fmt"

	"github.com/Epistemic-Technology/article-summarizer/internal/config"
	"github.com/Epistemic-Technology/article-summarizer/internal/documents"
	"github.com/Epistemic-Technology/article-summarizer/internal/llm"
	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
	"github.com/Epistemic-Technology/article-summarizer/internal/storage"
	"github.com/Epistemic-Technology/article-summarizer/internal/summarize"
	"github.com/Epistemic-Technology/article-summarizer/models"
)

var (
	ErrTooFewDocuments      = errors.New("at least two documents are required for synthesis")
	ErrUnsupportedType      = errors.New("unsupported document type")
	ErrParserNotConfigured  = errors.New("OPENAI_API_KEY is required to parse PDF documents")
	ErrNoContent            = errors.New("document has no text content")
	ErrNoDocumentsRequested = errors.New("no documents requested")
)

// PDFParser turns PDF bytes into merged metadata and per-page text.
type PDFParser func(ctx context.Context, data models.DocumentData, maxPages int) (*models.ItemMetadata, []string, error)

// Service holds the dependencies shared by all operations.
type Service struct {
	cfg        config.Config
	store      storage.Store
	fetcher    *documents.Fetcher
	summarizer *summarize.Summarizer
	parsePDF   PDFParser
	log        logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPDFParser replaces the default LLM-backed PDF parser.
func WithPDFParser(p PDFParser) Option {
	return func(s *Service) { s.parsePDF = p }
}

// NewService creates a Service.
func NewService(cfg config.Config, store storage.Store, fetcher *documents.Fetcher, summarizer *summarize.Summarizer, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:        cfg,
		store:      store,
		fetcher:    fetcher,
		summarizer: summarizer,
		log:        log,
	}
	s.parsePDF = s.parseWithLLM
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Store() storage.Store { return s.store }

func (s *Service) Summarizer() *summarize.Summarizer { return s.summarizer }

func (s *Service) ZoteroConfig() config.ZoteroConfig { return s.cfg.Zotero }

func (s *Service) parseWithLLM(ctx context.Context, data models.DocumentData, maxPages int) (*models.ItemMetadata, []string, error) {
	apiKey := s.cfg.Parsing.OpenAIAPIKey
	if apiKey == "" {
		return nil, nil, ErrParserNotConfigured
	}
	parsed, pages, err := llm.ParsePDF(ctx, apiKey, data, maxPages, s.log.WithPrefix("pdf"))
	if err != nil {
		return nil, nil, err
	}
	return &parsed.Metadata, pages, nil
}

// IngestSource identifies a document by exactly one of Zotero ID, URL, or raw bytes.
type IngestSource struct {
	ZoteroID string
	URL      string
	RawData  []byte
	DocType  string // overrides type detection when set
}

func (src IngestSource) sourceInfo() models.SourceInfo {
	return models.SourceInfo{ZoteroID: src.ZoteroID, URL: src.URL}
}

// GetOrIngestArticle retrieves an article from storage if it exists, or
// fetches, parses and stores it if it doesn't.
func (s *Service) GetOrIngestArticle(ctx context.Context, src IngestSource) (*models.Article, error) {
	sourceInfo := src.sourceInfo()

	// Zotero and URL sources have stable IDs before fetching
	if src.RawData == nil && (sourceInfo.ZoteroID != "" || sourceInfo.URL != "") {
		docID := storage.GenerateDocumentID(&models.Article{SourceInfo: sourceInfo})
		exists, err := s.store.DocumentExists(ctx, docID)
		if err != nil {
			return nil, fmt.Errorf("failed to check document existence: %w", err)
		}
		if exists {
			s.log.Debug("Document %s already stored", docID)
			return s.store.GetArticle(ctx, docID)
		}
	}

	var data models.DocumentData
	if src.RawData != nil {
		data = models.DocumentData{Data: src.RawData, Type: documents.DetectDocumentType(src.RawData)}
	} else {
		var err error
		data, err = s.fetcher.Fetch(ctx, sourceInfo)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch document data: %w", err)
		}
	}
	if src.DocType != "" {
		data.Type = src.DocType
	}

	var extracted *models.ItemMetadata
	var pages []string
	switch {
	case data.Type == documents.TypePDF:
		var err error
		extracted, pages, err = s.parsePDF(ctx, data, s.cfg.Summarization.MaxIngestPages)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PDF: %w", err)
		}
	case documents.IsTextType(data.Type):
		pages = documents.SplitTextPages(data.Data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, data.Type)
	}

	var external *models.ItemMetadata
	if sourceInfo.ZoteroID != "" && s.fetcher.ZoteroConfigured() {
		md, err := s.fetcher.FetchZoteroMetadata(ctx, sourceInfo.ZoteroID)
		if err != nil {
			s.log.Warn("Failed to fetch Zotero metadata for %s: %v", sourceInfo.ZoteroID, err)
		} else {
			external = md
		}
	}

	article := &models.Article{
		Metadata:   *documents.MergeMetadata(external, extracted),
		Pages:      pages,
		SourceInfo: sourceInfo,
	}
	if len(article.Pages) == 0 && article.Metadata.Abstract == "" {
		return nil, ErrNoContent
	}

	// Raw uploads are identified by content, so a repeat upload reuses the stored copy
	if src.RawData != nil {
		docID := storage.GenerateDocumentID(article)
		exists, err := s.store.DocumentExists(ctx, docID)
		if err != nil {
			return nil, fmt.Errorf("failed to check document existence: %w", err)
		}
		if exists {
			return s.store.GetArticle(ctx, docID)
		}
	}

	docID, err := s.store.StoreArticle(ctx, article)
	if err != nil {
		return nil, fmt.Errorf("failed to store article: %w", err)
	}
	article.ID = docID
	s.log.Info("Stored article %s (%d pages, metadata: %s)", docID, len(pages), article.Metadata.MetadataSource)

	return article, nil
}
