// Package document extracts plain text from uploaded documents so their
// content can be placed into conversation messages.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFText reads the PDF at path and returns its plain text content.
// Returns an error for encrypted or malformed files, and for files whose
// pages carry no extractable text.
func ExtractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("document: open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("document: extract pdf text: %w", err)
	}
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("document: read pdf text: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", fmt.Errorf("document: no extractable text in %s", path)
	}
	return text, nil
}
