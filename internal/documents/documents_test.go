package documents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/Epistemic-Technology/article-summarizer/internal/config"
	"github.com/Epistemic-Technology/article-summarizer/models"
)

func TestDetectDocumentType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{
			name:     "PDF document",
			data:     []byte("%PDF-1.4\nsome pdf content"),
			expected: "pdf",
		},
		{
			name:     "HTML with DOCTYPE",
			data:     []byte("<!DOCTYPE html><html><body>test</body></html>"),
			expected: "html",
		},
		{
			name:     "HTML with lowercase DOCTYPE",
			data:     []byte("<!doctype html><html><body>test</body></html>"),
			expected: "html",
		},
		{
			name:     "HTML without DOCTYPE",
			data:     []byte("<html><body>test</body></html>"),
			expected: "html",
		},
		{
			name:     "HTML with whitespace",
			data:     []byte("  \n  <!DOCTYPE html><html><body>test</body></html>"),
			expected: "html",
		},
		{
			name:     "DOCX (ZIP with word/ directory)",
			data:     append([]byte{0x50, 0x4B, 0x03, 0x04}, []byte("word/document.xml")...),
			expected: "docx",
		},
		{
			name:     "ZIP file (not DOCX)",
			data:     []byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00, 0x00, 0x00},
			expected: "zip",
		},
		{
			name:     "Markdown with heading",
			data:     []byte("# Title\n\nSome markdown content"),
			expected: "md",
		},
		{
			name:     "Markdown with code block",
			data:     []byte("```go\nfunc main() {}\n```"),
			expected: "md",
		},
		{
			name:     "Plain text",
			data:     []byte("This is just plain text content"),
			expected: "txt",
		},
		{
			name:     "Binary data",
			data:     []byte{0x00, 0x01, 0x02, 0xFF, 0xFE},
			expected: "unknown",
		},
		{
			name:     "Empty data",
			data:     []byte{},
			expected: "unknown",
		},
		{
			name:     "Plain text with form feeds",
			data:     []byte("Page one text.\fPage two text."),
			expected: "txt",
		},
		{
			name:     "Very short data",
			data:     []byte("ab"),
			expected: "txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectDocumentType(tt.data)
			if result != tt.expected {
				t.Errorf("DetectDocumentType() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestIsLikelyText(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected bool
	}{
		{
			name:     "Plain text",
			data:     []byte("This is plain text with spaces and punctuation!"),
			expected: true,
		},
		{
			name:     "Text with newlines",
			data:     []byte("Line 1\nLine 2\nLine 3"),
			expected: true,
		},
		{
			name:     "Text with tabs",
			data:     []byte("Column1\tColumn2\tColumn3"),
			expected: true,
		},
		{
			name:     "Binary with null byte",
			data:     []byte{0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x00, 0x57, 0x6F, 0x72, 0x6C, 0x64},
			expected: false,
		},
		{
			name:     "Mostly binary data",
			data:     []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE, 0xFD},
			expected: false,
		},
		{
			name:     "Mixed text and non-printable (but mostly text)",
			data:     append([]byte("This is mostly text "), []byte{0x7F, 0x1B}...),
			expected: true,
		},
		{
			name:     "Empty data",
			data:     []byte{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isLikelyText(tt.data)
			if result != tt.expected {
				t.Errorf("isLikelyText() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestIsTextType(t *testing.T) {
	for _, docType := range []string{TypeText, TypeMD} {
		if !IsTextType(docType) {
			t.Errorf("IsTextType(%q) = false, want true", docType)
		}
	}
	for _, docType := range []string{TypePDF, TypeHTML, TypeDOCX, TypeZIP, TypeUnknown} {
		if IsTextType(docType) {
			t.Errorf("IsTextType(%q) = true, want false", docType)
		}
	}
}

func TestSplitTextPages(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected []string
	}{
		{
			name:     "single page",
			data:     "  Just one page.\n",
			expected: []string{"Just one page."},
		},
		{
			name:     "form feed separated",
			data:     "First page.\fSecond page.\fThird page.",
			expected: []string{"First page.", "Second page.", "Third page."},
		},
		{
			name:     "blank pages dropped",
			data:     "First.\f \n \fLast.",
			expected: []string{"First.", "Last."},
		},
		{
			name:     "CRLF normalized",
			data:     "Line one\r\nLine two",
			expected: []string{"Line one\nLine two"},
		},
		{
			name:     "empty",
			data:     "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitTextPages([]byte(tt.data))
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("SplitTextPages() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestArticleText(t *testing.T) {
	keywords := make([]string, 12)
	for i := range keywords {
		keywords[i] = fmt.Sprintf("k%d", i+1)
	}
	article := &models.Article{
		Metadata: models.ItemMetadata{
			Abstract: " An abstract. ",
			Keywords: keywords,
		},
		Pages: []string{"Page 1.", "", "Page 3.", "Page 4."},
	}

	got := ArticleText(article, 3)
	want := "An abstract.\nKeywords: k1, k2, k3, k4, k5, k6, k7, k8, k9, k10\nPage 1.\nPage 3."
	if got != want {
		t.Errorf("ArticleText() = %q, want %q", got, want)
	}

	all := ArticleText(article, 0)
	if !strings.HasSuffix(all, "Page 4.") {
		t.Errorf("ArticleText(maxPages=0) should include every page, got %q", all)
	}

	bare := ArticleText(&models.Article{Pages: []string{"Only body."}}, 10)
	if bare != "Only body." {
		t.Errorf("ArticleText() without metadata = %q", bare)
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2019", 2019},
		{"2019-03-14", 2019},
		{"March 2021", 2021},
		{"Spring 1987, vol. 12", 1987},
		{"n.d.", 0},
		{"", 0},
		{"12345", 0},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			if got := ParseYear(tt.date); got != tt.want {
				t.Errorf("ParseYear(%q) = %d, want %d", tt.date, got, tt.want)
			}
		})
	}
}

func TestMergeMetadata(t *testing.T) {
	t.Run("both nil", func(t *testing.T) {
		got := MergeMetadata(nil, nil)
		if got.MetadataSource != "none" {
			t.Errorf("MetadataSource = %q, want none", got.MetadataSource)
		}
	})

	t.Run("extracted only", func(t *testing.T) {
		got := MergeMetadata(nil, &models.ItemMetadata{Title: "Parsed"})
		if got.Title != "Parsed" || got.MetadataSource != "extracted" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("external only keeps its source", func(t *testing.T) {
		got := MergeMetadata(&models.ItemMetadata{Title: "Library", MetadataSource: "zotero"}, nil)
		if got.Title != "Library" || got.MetadataSource != "zotero" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("external wins and extracted fills gaps", func(t *testing.T) {
		external := &models.ItemMetadata{
			Title:   "Library Title",
			Authors: []string{"Ada Lovelace"},
			Journal: "Journal of Tests",
		}
		extracted := &models.ItemMetadata{
			Title:           "Parsed Title",
			Authors:         []string{"A. Lovelace", "C. Babbage"},
			PublicationYear: 1843,
			DOI:             "10.1000/test",
			Abstract:        "Parsed abstract.",
			Keywords:        []string{"engines"},
		}
		got := MergeMetadata(external, extracted)
		want := &models.ItemMetadata{
			Title:           "Library Title",
			Authors:         []string{"Ada Lovelace"},
			PublicationYear: 1843,
			Journal:         "Journal of Tests",
			DOI:             "10.1000/test",
			Abstract:        "Parsed abstract.",
			Keywords:        []string{"engines"},
			MetadataSource:  "merged",
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("MergeMetadata() = %+v, want %+v", got, want)
		}
	})
}

func TestFetcher_FetchURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/paper.pdf":
			w.Write([]byte("%PDF-1.7\nbody"))
		case "/paper.txt":
			w.Write([]byte("A plain text article."))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	f := NewFetcher(config.ZoteroConfig{}, server.Client())

	doc, err := f.Fetch(context.Background(), models.SourceInfo{URL: server.URL + "/paper.pdf"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if doc.Type != TypePDF {
		t.Errorf("Type = %q, want %q", doc.Type, TypePDF)
	}

	doc, err = f.Fetch(context.Background(), models.SourceInfo{URL: server.URL + "/paper.txt"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if doc.Type != TypeText || string(doc.Data) != "A plain text article." {
		t.Errorf("Fetch() = %q (%s)", doc.Data, doc.Type)
	}

	if _, err := f.Fetch(context.Background(), models.SourceInfo{URL: server.URL + "/missing"}); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestFetcher_NoSource(t *testing.T) {
	f := NewFetcher(config.ZoteroConfig{}, nil)
	if _, err := f.Fetch(context.Background(), models.SourceInfo{}); !errors.Is(err, ErrNoSource) {
		t.Errorf("Fetch() error = %v, want ErrNoSource", err)
	}
}

func TestFetcher_ZoteroNotConfigured(t *testing.T) {
	f := NewFetcher(config.ZoteroConfig{APIKey: "key"}, nil)
	if f.ZoteroConfigured() {
		t.Fatal("ZoteroConfigured() = true without library ID")
	}
	if _, err := f.Fetch(context.Background(), models.SourceInfo{ZoteroID: "ABCD1234"}); !errors.Is(err, ErrZoteroNotConfigured) {
		t.Errorf("Fetch() error = %v, want ErrZoteroNotConfigured", err)
	}
	if _, err := f.FetchZoteroMetadata(context.Background(), "ABCD1234"); !errors.Is(err, ErrZoteroNotConfigured) {
		t.Errorf("FetchZoteroMetadata() error = %v, want ErrZoteroNotConfigured", err)
	}
}
