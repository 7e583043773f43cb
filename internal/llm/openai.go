package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/Epistemic-Technology/article-summarizer/internal/documents"
	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
	"github.com/Epistemic-Technology/article-summarizer/models"
)

var (
	// parsedPageSchema is the JSON schema for parsing a single PDF page.
	// Metadata fields are empty (or 0) when not present on the page.
	parsedPageSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"metadata": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{"type": "string"},
					"authors": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
					"publication_year": map[string]any{"type": "integer"},
					"journal":          map[string]any{"type": "string"},
					"doi":              map[string]any{"type": "string"},
					"abstract":         map[string]any{"type": "string"},
					"keywords": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				"required":             []string{"title", "authors", "publication_year", "journal", "doi", "abstract", "keywords"},
				"additionalProperties": false,
			},
			"content": map[string]any{
				"type": "string",
			},
		},
		"additionalProperties": false,
		"required":             []string{"metadata", "content"},
	}
)

// ChatCompleter implements Completer against an OpenAI-compatible chat completions API
// (Groq by default).
type ChatCompleter struct {
	client openai.Client
	model  string
	log    logger.Logger
}

// NewChatCompleter creates a ChatCompleter. SDK-level retries are disabled;
// retry policy belongs to RateLimitedCompleter.
func NewChatCompleter(apiKey, baseURL, model string, log logger.Logger) *ChatCompleter {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &ChatCompleter{
		client: openai.NewClient(opts...),
		model:  model,
		log:    log,
	}
}

func (c *ChatCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxOutputTokens))
	}

	c.log.Debug("Calling completion API (model: %s, prompt: %d chars, max tokens: %d)",
		c.model, len(req.SystemPrompt)+len(req.UserPrompt), req.MaxOutputTokens)

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyError(err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", ErrMalformedResponse)
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty completion content", ErrMalformedResponse)
	}
	return content, nil
}

var _ Completer = (*ChatCompleter)(nil)

// ParsePDFPage extracts the text and any bibliographic metadata from a single PDF page.
func ParsePDFPage(ctx context.Context, apiKey string, page *models.DocumentPageData) (*models.ParsedPage, error) {
	if page == nil || len(*page) == 0 {
		return nil, errors.New("empty page data")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	encodedPageData := base64.StdEncoding.EncodeToString([]byte(*page))
	response, err := client.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ChatModelGPT5Mini,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						responses.ResponseInputContentUnionParam{
							OfInputFile: &responses.ResponseInputFileParam{
								FileData: openai.String("data:application/pdf;base64," + encodedPageData),
								Filename: openai.String("page.pdf"),
							},
						},
						responses.ResponseInputContentParamOfInputText(`Parse this page from an academic article and extract it into the specified JSON structure.

1. If there is article metadata on the page (title, authors, publication year, journal, doi, abstract, keywords), extract it into the "metadata" object. Use empty strings, empty arrays, or 0 for anything not present on this page.

2. Extract the main textual content of the page as plain text.
	- Exclude running headers, footers, page numbers, and image captions.
	- Concatenate any columns in normal reading order.
	- Keep section headings on their own lines.`),
					},
					"user",
				),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema("parsed_page", parsedPageSchema),
		},
	})
	if err != nil {
		return nil, classifyError(err)
	}
	var parsedPage models.ParsedPage
	if err := json.Unmarshal([]byte(response.OutputText()), &parsedPage); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return &parsedPage, nil
}

// ParsePDF splits a PDF, parses at most maxPages pages concurrently, and stitches the
// results into page texts plus the first non-empty value of each metadata field.
func ParsePDF(ctx context.Context, apiKey string, pdfData models.DocumentData, maxPages int, log logger.Logger) (*models.ParsedPage, []string, error) {
	pages, err := documents.SplitPdfPages(pdfData, maxPages)
	if err != nil {
		log.Error("Failed to split PDF into pages: %v", err)
		return nil, nil, fmt.Errorf("failed to split PDF: %w", err)
	}
	if len(pages) == 0 {
		return nil, nil, errors.New("PDF has no pages")
	}

	log.Info("Processing PDF with %d pages (parallel)", len(pages))
	parsedPages, err := ParallelProcess(ctx, pages, defaultMaxWorkers, log, func(ctx context.Context, idx int, page models.DocumentPageData) (*models.ParsedPage, error) {
		log.Debug("Calling OpenAI API for page %d", idx+1)
		parsed, err := ParsePDFPage(ctx, apiKey, &page)
		if err != nil {
			log.Error("Failed to parse page %d: %v", idx+1, err)
		}
		return parsed, err
	})
	if err != nil {
		return nil, nil, err
	}

	stitched := &models.ParsedPage{}
	texts := make([]string, 0, len(parsedPages))
	for _, page := range parsedPages {
		if page == nil {
			continue
		}
		mergeFirst(&stitched.Metadata, page.Metadata)
		texts = append(texts, page.Content)
	}
	stitched.Content = strings.Join(texts, "\n")

	log.Info("Successfully parsed all %d pages", len(texts))
	return stitched, texts, nil
}

// mergeFirst fills empty fields of dst from src.
func mergeFirst(dst *models.ItemMetadata, src models.ItemMetadata) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.PublicationYear == 0 {
		dst.PublicationYear = src.PublicationYear
	}
	if dst.Journal == "" {
		dst.Journal = src.Journal
	}
	if dst.DOI == "" {
		dst.DOI = src.DOI
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if len(dst.Keywords) == 0 {
		dst.Keywords = src.Keywords
	}
}
