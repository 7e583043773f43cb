package documents

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Epistemic-Technology/article-summarizer/models"
)

// SplitPdf splits a PDF into single-page PDFs.
func SplitPdf(pdf models.DocumentData) (models.DocumentPages, error) {
	return SplitPdfPages(pdf, 0)
}

// SplitPdfPages splits at most maxPages leading pages of a PDF into single-page
// PDFs. maxPages <= 0 means all pages.
func SplitPdfPages(pdf models.DocumentData, maxPages int) (models.DocumentPages, error) {
	conf := model.NewDefaultConfiguration()
	pdfContext, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf.Data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	pageCount := pdfContext.PageCount
	if maxPages > 0 && pageCount > maxPages {
		pageCount = maxPages
	}

	pages := make(models.DocumentPages, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pageReader, err := api.ExtractPage(pdfContext, pageNum)
		if err != nil {
			return pages, fmt.Errorf("failed to extract page %d: %w", pageNum, err)
		}
		pageData, err := io.ReadAll(pageReader)
		if err != nil {
			return pages, fmt.Errorf("failed to read page %d: %w", pageNum, err)
		}
		pages = append(pages, models.DocumentPageData(pageData))
	}
	return pages, nil
}
