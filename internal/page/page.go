// Package page loads an HTML page from disk and writes it back after the
// widget has rendered into it.
package page

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/net/html"
)

// ErrNoPath is returned by Load when no page path is given.
var ErrNoPath = errors.New("page path is required")

// File is a parsed HTML document bound to an output path.
type File struct {
	mu     sync.Mutex
	doc    *html.Node
	source string
	output string
}

// Load parses the page at path. Save writes to output, or back to path
// when output is empty.
func Load(path, output string) (*File, error) {
	if path == "" {
		return nil, ErrNoPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}

	if output == "" {
		output = path
	}

	f, err := Parse(data, output)
	if err != nil {
		return nil, err
	}
	f.source = path
	return f, nil
}

// Parse builds a File from in-memory markup.
func Parse(data []byte, output string) (*File, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &File{doc: doc, output: output}, nil
}

// Document returns the parsed document. Callers must not modify it
// concurrently with Save.
func (f *File) Document() *html.Node {
	return f.doc
}

// Source returns the path the page was loaded from.
func (f *File) Source() string {
	return f.source
}

// Output returns the path Save writes to.
func (f *File) Output() string {
	return f.output
}

// Bytes renders the current document.
func (f *File) Bytes() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var buf bytes.Buffer
	if err := html.Render(&buf, f.doc); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the document to the output path. With no output path the
// call is a no-op.
func (f *File) Save() error {
	if f.output == "" {
		return nil
	}

	data, err := f.Bytes()
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.output)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// Write atomically via temp file + rename so readers never see a
	// partial page.
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.output)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write page: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod page: %w", err)
	}

	if err := os.Rename(tmpPath, f.output); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace page: %w", err)
	}
	return nil
}
