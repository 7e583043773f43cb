package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
	"github.com/Epistemic-Technology/article-summarizer/internal/operations"
)

type LibraryCollectionsQuery struct {
	TopLevelOnly     bool   `json:"top_level_only,omitempty"`    // List only top-level collections (no parent)
	ParentCollection string `json:"parent_collection,omitempty"` // Filter by parent collection key (for subcollections)
	Limit            int    `json:"limit,omitempty"`             // Max results (default 100)
	Sort             string `json:"sort,omitempty"`              // Sort field (default "title")
}

type LibraryCollectionsResponse struct {
	Collections []CollectionResult `json:"collections"`
	Count       int                `json:"count"`
}

type CollectionResult struct {
	Key              string `json:"key"`
	Name             string `json:"name"`
	ParentCollection string `json:"parent_collection,omitempty"`
}

func LibraryCollectionsTool() *mcp.Tool {
	inputschema, err := jsonschema.For[LibraryCollectionsQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "library-collections",
		Description: "List collections in the Zotero library with their keys and hierarchy. Pass a collection key to articles-batch-summarize to summarize or synthesize a whole reading list.",
		InputSchema: inputschema,
	}
}

func LibraryCollectionsToolHandler(ctx context.Context, req *mcp.CallToolRequest, query LibraryCollectionsQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *LibraryCollectionsResponse, error) {
	log.Info("library-collections tool called")

	collections, err := operations.ListCollections(ctx, svc.ZoteroConfig(), operations.ListCollectionsParams{
		TopLevelOnly:     query.TopLevelOnly,
		ParentCollection: query.ParentCollection,
		Limit:            query.Limit,
		Sort:             query.Sort,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	results := make([]CollectionResult, len(collections))
	for i, collection := range collections {
		results[i] = CollectionResult{
			Key:              collection.Key,
			Name:             collection.Name,
			ParentCollection: collection.ParentCollection,
		}
	}

	return nil, &LibraryCollectionsResponse{Collections: results, Count: len(results)}, nil
}
