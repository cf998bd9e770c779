package document

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractPDFText(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		if _, err := ExtractPDFText(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("not a pdf", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "notes.pdf")
		if err := os.WriteFile(path, []byte("plain text, not a pdf"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := ExtractPDFText(path); err == nil {
			t.Fatal("expected error for non-pdf content")
		}
	})
}
