package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/siherrmann/panoptes/cache"
	"github.com/siherrmann/panoptes/model"
)

// DefaultParser creates a document parser that extracts plain text from PDF
// files and reads all other files verbatim. Results are memoized in store
// under a content-aware key, so a parsed document is only re-extracted when
// the file's bytes change.
func DefaultParser(store *cache.Store) ParseFunc {
	return func(path string) (*model.Document, error) {
		key := cache.NewKey("parser.parse").FileArg(path).String()
		return cache.Memoize(store, key, func() (*model.Document, error) {
			return parseFile(path)
		})
	}
}

func parseFile(path string) (*model.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = extractPDF(content)
		if err != nil {
			return nil, err
		}
	default:
		text = string(content)
	}

	return model.NewDocument(path, text), nil
}

// extractPDF extracts the plain text of every page in order
func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 0; i < numPages; i++ {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract page %d: %w", i+1, err)
		}
		buf.WriteString(text)
		if i < numPages-1 {
			buf.WriteByte('\n')
		}
	}

	return buf.String(), nil
}
