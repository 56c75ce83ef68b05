// Package pdf reads page counts and text from galley PDFs.
package pdf

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Info describes an inspected PDF.
type Info struct {
	Pages int
}

// Inspect reports the page count of the PDF in r.
func Inspect(r io.ReaderAt, size int64) (Info, error) {
	pdfReader, err := pdf.NewReader(r, size)
	if err != nil {
		return Info{}, fmt.Errorf("reading pdf: %w", err)
	}
	return Info{Pages: pdfReader.NumPage()}, nil
}

// ExtractText extracts text from the first maxPages pages of the PDF in r.
// All pages are read when maxPages <= 0. Pages that fail to decode are skipped.
func ExtractText(r io.ReaderAt, size int64, maxPages int) (string, error) {
	pdfReader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}

	if maxPages <= 0 || maxPages > pdfReader.NumPage() {
		maxPages = pdfReader.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}
