package storage

import (
	"fmt"

	"github.com/Epistemic-Technology/article-summarizer/models"
)

// CalculateResourcePaths generates the resource URIs available for a stored article.
// Summary URIs are listed for each level that already has a stored summary.
func CalculateResourcePaths(docID string, summaries []models.StoredSummary) []string {
	resourcePaths := []string{
		fmt.Sprintf("article://%s", docID),
		fmt.Sprintf("article://%s/metadata", docID),
		fmt.Sprintf("article://%s/text", docID),
	}

	seen := make(map[string]bool)
	for _, s := range summaries {
		if seen[s.Level] {
			continue
		}
		seen[s.Level] = true
		resourcePaths = append(resourcePaths, fmt.Sprintf("article://%s/summaries/%s", docID, s.Level))
	}

	// Template for levels not yet generated
	resourcePaths = append(resourcePaths, fmt.Sprintf("article://%s/summaries/{level}", docID))

	return resourcePaths
}
