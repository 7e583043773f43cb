package documents

import (
	"strings"
	"unicode/utf8"

	"github.com/Epistemic-Technology/article-summarizer/models"
)

const maxKeywords = 10

// SplitTextPages splits plain text into pages on form feeds. Blank pages are dropped.
func SplitTextPages(data []byte) []string {
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var pages []string
	for _, page := range strings.Split(text, "\f") {
		if page = strings.TrimSpace(page); page != "" {
			pages = append(pages, page)
		}
	}
	return pages
}

// ArticleText assembles the text summarized for an article: the abstract, a
// keyword line with at most ten keywords, then the first maxPages pages.
// maxPages <= 0 includes every page.
func ArticleText(article *models.Article, maxPages int) string {
	var parts []string

	if abstract := strings.TrimSpace(article.Metadata.Abstract); abstract != "" {
		parts = append(parts, abstract)
	}

	if len(article.Metadata.Keywords) > 0 {
		keywords := article.Metadata.Keywords
		if len(keywords) > maxKeywords {
			keywords = keywords[:maxKeywords]
		}
		parts = append(parts, "Keywords: "+strings.Join(keywords, ", "))
	}

	pages := article.Pages
	if maxPages > 0 && len(pages) > maxPages {
		pages = pages[:maxPages]
	}
	for _, page := range pages {
		if page != "" {
			parts = append(parts, page)
		}
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}
