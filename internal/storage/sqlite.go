package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Epistemic-Technology/article-summarizer/models"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store, creating the parent directory if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database tables if they don't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT,
		authors TEXT,
		publication_year INTEGER,
		journal TEXT,
		doi TEXT,
		abstract TEXT,
		keywords TEXT,
		metadata_source TEXT,
		zotero_id TEXT,
		url TEXT,
		created_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS pages (
		document_id TEXT NOT NULL,
		page_number INTEGER NOT NULL,
		content TEXT,
		PRIMARY KEY (document_id, page_number),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS summaries (
		document_id TEXT NOT NULL,
		level TEXT NOT NULL,
		method TEXT NOT NULL,
		text TEXT,
		chunk_count INTEGER,
		created_at DATETIME,
		PRIMARY KEY (document_id, level, method),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_documents_doi ON documents(doi);
	CREATE INDEX IF NOT EXISTS idx_documents_zotero_id ON documents(zotero_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// StoreArticle stores an article and its pages, replacing any previous pages
func (s *SQLiteStore) StoreArticle(ctx context.Context, article *models.Article) (string, error) {
	docID := article.ID
	if docID == "" {
		docID = GenerateDocumentID(article)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	authorsJSON, err := json.Marshal(article.Metadata.Authors)
	if err != nil {
		return "", fmt.Errorf("failed to marshal authors: %w", err)
	}
	keywordsJSON, err := json.Marshal(article.Metadata.Keywords)
	if err != nil {
		return "", fmt.Errorf("failed to marshal keywords: %w", err)
	}

	md := article.Metadata
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, authors, publication_year, journal, doi, abstract, keywords,
			metadata_source, zotero_id, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			authors = excluded.authors,
			publication_year = excluded.publication_year,
			journal = excluded.journal,
			doi = excluded.doi,
			abstract = excluded.abstract,
			keywords = excluded.keywords,
			metadata_source = excluded.metadata_source,
			zotero_id = excluded.zotero_id,
			url = excluded.url
	`, docID, md.Title, string(authorsJSON), md.PublicationYear, md.Journal, md.DOI, md.Abstract,
		string(keywordsJSON), md.MetadataSource, article.SourceInfo.ZoteroID, article.SourceInfo.URL,
		time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE document_id = ?`, docID); err != nil {
		return "", fmt.Errorf("failed to clear pages: %w", err)
	}
	for i, pageContent := range article.Pages {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pages (document_id, page_number, content)
			VALUES (?, ?, ?)
		`, docID, i+1, pageContent)
		if err != nil {
			return "", fmt.Errorf("failed to insert page %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return docID, nil
}

// GetArticle retrieves an article with its metadata, pages, and source
func (s *SQLiteStore) GetArticle(ctx context.Context, docID string) (*models.Article, error) {
	article := &models.Article{ID: docID}
	var authorsJSON, keywordsJSON string

	err := s.db.QueryRowContext(ctx, `
		SELECT title, authors, publication_year, journal, doi, abstract, keywords, metadata_source, zotero_id, url
		FROM documents
		WHERE id = ?
	`, docID).Scan(&article.Metadata.Title, &authorsJSON, &article.Metadata.PublicationYear,
		&article.Metadata.Journal, &article.Metadata.DOI, &article.Metadata.Abstract, &keywordsJSON,
		&article.Metadata.MetadataSource, &article.SourceInfo.ZoteroID, &article.SourceInfo.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	if err := unmarshalList(authorsJSON, &article.Metadata.Authors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
	}
	if err := unmarshalList(keywordsJSON, &article.Metadata.Keywords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
	}

	pages, err := s.GetPages(ctx, docID)
	if err != nil {
		return nil, err
	}
	article.Pages = pages

	return article, nil
}

// GetMetadata retrieves metadata for a document by ID
func (s *SQLiteStore) GetMetadata(ctx context.Context, docID string) (*models.ItemMetadata, error) {
	var metadata models.ItemMetadata
	var authorsJSON, keywordsJSON string

	err := s.db.QueryRowContext(ctx, `
		SELECT title, authors, publication_year, journal, doi, abstract, keywords, metadata_source
		FROM documents
		WHERE id = ?
	`, docID).Scan(&metadata.Title, &authorsJSON, &metadata.PublicationYear, &metadata.Journal,
		&metadata.DOI, &metadata.Abstract, &keywordsJSON, &metadata.MetadataSource)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}

	if err := unmarshalList(authorsJSON, &metadata.Authors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
	}
	if err := unmarshalList(keywordsJSON, &metadata.Keywords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
	}

	return &metadata, nil
}

// GetPages retrieves all pages for a document
func (s *SQLiteStore) GetPages(ctx context.Context, docID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content FROM pages
		WHERE document_id = ?
		ORDER BY page_number
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, content)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pages: %w", err)
	}

	return pages, nil
}

func (s *SQLiteStore) DocumentExists(ctx context.Context, docID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM documents WHERE id = ?)`, docID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check document: %w", err)
	}
	return exists, nil
}

// ListDocuments returns a list of all stored documents, newest first
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]models.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.authors, d.publication_year, d.zotero_id, d.url,
			(SELECT COUNT(*) FROM pages p WHERE p.document_id = d.id)
		FROM documents d
		ORDER BY d.created_at DESC, d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var documents []models.DocumentInfo
	for rows.Next() {
		var doc models.DocumentInfo
		var authorsJSON string
		if err := rows.Scan(&doc.DocumentID, &doc.Title, &authorsJSON, &doc.PublicationYear,
			&doc.SourceInfo.ZoteroID, &doc.SourceInfo.URL, &doc.PageCount); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		if err := unmarshalList(authorsJSON, &doc.Authors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
		}

		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return documents, nil
}

// DeleteDocument removes a document and all associated data
func (s *SQLiteStore) DeleteDocument(ctx context.Context, docID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Foreign keys are off by default in SQLite, so children are removed explicitly
	for _, table := range []string{"pages", "summaries"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE document_id = ?`, docID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}

	return tx.Commit()
}

// SaveSummary stores a generated summary for a document
func (s *SQLiteStore) SaveSummary(ctx context.Context, summary *models.StoredSummary) error {
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO summaries (document_id, level, method, text, chunk_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, summary.DocumentID, summary.Level, summary.Method, summary.Text, summary.ChunkCount, summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// GetSummary retrieves the newest summary for a document at a level
func (s *SQLiteStore) GetSummary(ctx context.Context, docID, level, method string) (*models.StoredSummary, error) {
	summary := models.StoredSummary{DocumentID: docID, Level: level}
	err := s.db.QueryRowContext(ctx, `
		SELECT method, text, chunk_count, created_at FROM summaries
		WHERE document_id = ? AND level = ? AND (? = '' OR method = ?)
		ORDER BY created_at DESC
		LIMIT 1
	`, docID, level, method, method).Scan(&summary.Method, &summary.Text, &summary.ChunkCount, &summary.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("summary %s/%s: %w", docID, level, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	return &summary, nil
}

// ListSummaries returns all summaries for a document ordered by level and method
func (s *SQLiteStore) ListSummaries(ctx context.Context, docID string) ([]models.StoredSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT level, method, text, chunk_count, created_at FROM summaries
		WHERE document_id = ?
		ORDER BY level, method
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.StoredSummary
	for rows.Next() {
		summary := models.StoredSummary{DocumentID: docID}
		if err := rows.Scan(&summary.Level, &summary.Method, &summary.Text, &summary.ChunkCount, &summary.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}

	return summaries, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GenerateDocumentID creates a stable document ID from the best identifier available:
// Zotero key, then DOI, then URL, then title, then page content.
func GenerateDocumentID(article *models.Article) string {
	if article.SourceInfo.ZoteroID != "" {
		return "zotero_" + article.SourceInfo.ZoteroID
	}
	if article.Metadata.DOI != "" {
		return "doi_" + article.Metadata.DOI
	}
	if article.SourceInfo.URL != "" {
		return "url_" + hashString(article.SourceInfo.URL)
	}
	if article.Metadata.Title != "" {
		return "title_" + hashString(article.Metadata.Title)
	}
	return "text_" + hashString(strings.Join(article.Pages, "\f"))
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum[:8])
}

func unmarshalList(data string, dst *[]string) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), dst)
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
