package storage

import (
	"context"
	"errors"

	"github.com/Epistemic-Technology/article-summarizer/models"
)

// ErrNotFound is returned when a document or summary does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for storing articles and their generated summaries
type Store interface {
	// StoreArticle stores an article and returns its document ID.
	// An empty article.ID is replaced by GenerateDocumentID.
	StoreArticle(ctx context.Context, article *models.Article) (string, error)

	// GetArticle retrieves an article with metadata and pages
	GetArticle(ctx context.Context, docID string) (*models.Article, error)

	// GetMetadata retrieves metadata for a document by ID
	GetMetadata(ctx context.Context, docID string) (*models.ItemMetadata, error)

	// GetPages retrieves all pages for a document in order
	GetPages(ctx context.Context, docID string) ([]string, error)

	// DocumentExists checks whether a document ID is stored
	DocumentExists(ctx context.Context, docID string) (bool, error)

	// ListDocuments returns basic information about every stored document
	ListDocuments(ctx context.Context) ([]models.DocumentInfo, error)

	// DeleteDocument removes a document with its pages and summaries
	DeleteDocument(ctx context.Context, docID string) error

	// SaveSummary stores a summary, replacing any previous one for the same document, level and method
	SaveSummary(ctx context.Context, summary *models.StoredSummary) error

	// GetSummary retrieves the most recent summary for a document at a level.
	// An empty method matches any method.
	GetSummary(ctx context.Context, docID, level, method string) (*models.StoredSummary, error)

	// ListSummaries returns all summaries stored for a document
	ListSummaries(ctx context.Context, docID string) ([]models.StoredSummary, error)

	// Close closes the database connection
	Close() error
}
