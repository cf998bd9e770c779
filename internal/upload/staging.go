// Package upload stages files attached to a knowledge-base chat turn. Each
// file is converted to message content: PDFs become extracted text, images
// become inline data references, and everything else is read as plain text.
package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nohairblingbling/interview-assistant/pkg/document"
)

// MaxFiles is the attachment cap per chat turn.
const MaxFiles = 3

// ErrTooManyFiles is returned when an attach would exceed MaxFiles. The check
// runs before any file is read, so staged files are never disturbed.
var ErrTooManyFiles = fmt.Errorf("upload: at most %d files may be attached", MaxFiles)

var imageMIMEs = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// File is one staged attachment. Err is set when processing failed; such
// files are kept visible for the operator but excluded from message assembly.
type File struct {
	Name    string
	Content string
	Err     error
}

// Staging is the per-turn attachment list. Safe for concurrent use.
type Staging struct {
	mu    sync.Mutex
	files []File
}

// NewStaging creates an empty staging area.
func NewStaging() *Staging {
	return &Staging{}
}

// AttachAll stages the files at paths, processing them in parallel while
// preserving path order. The cap is enforced up front: if the batch would
// exceed MaxFiles nothing is read and already staged files are untouched.
// Per-file processing failures are recorded on the File, not returned.
func (s *Staging) AttachAll(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	s.mu.Lock()
	if len(s.files)+len(paths) > MaxFiles {
		s.mu.Unlock()
		return ErrTooManyFiles
	}
	s.mu.Unlock()

	processed := make([]File, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			content, err := processFile(ctx, path)
			processed[i] = File{Name: filepath.Base(path), Content: content, Err: err}
			return nil
		})
	}
	// Workers record failures per file and always return nil.
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.files)+len(processed) > MaxFiles {
		return ErrTooManyFiles
	}
	s.files = append(s.files, processed...)
	return nil
}

// Attach stages a single file.
func (s *Staging) Attach(ctx context.Context, path string) error {
	return s.AttachAll(ctx, []string{path})
}

// Files returns a copy of all staged files in attach order, including failed
// ones.
func (s *Staging) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]File, len(s.files))
	copy(out, s.files)
	return out
}

// Contents returns the message content of successfully processed files, in
// attach order.
func (s *Staging) Contents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, f := range s.files {
		if f.Err == nil {
			out = append(out, f.Content)
		}
	}
	return out
}

// Names returns the names of successfully processed files, in attach order.
func (s *Staging) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, f := range s.files {
		if f.Err == nil {
			out = append(out, f.Name)
		}
	}
	return out
}

// Remove drops the staged file at index i.
func (s *Staging) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.files) {
		return errors.New("upload: no staged file at that index")
	}
	s.files = append(s.files[:i], s.files[i+1:]...)
	return nil
}

// Clear drops all staged files.
func (s *Staging) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
}

// processFile converts one file into message content.
func processFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return document.ExtractPDFText(path)
	case imageMIMEs[ext] != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("upload: read image: %w", err)
		}
		return "data:" + imageMIMEs[ext] + ";base64," + base64.StdEncoding.EncodeToString(data), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("upload: read file: %w", err)
		}
		return string(data), nil
	}
}
