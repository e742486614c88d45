// Package book translates whole game script books: ordered lines with an
// optional speaker column and an optional existing translation.
package book

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Line is one row of a book.
type Line struct {
	Original    string `json:"original"`
	Name        string `json:"name,omitempty"`
	Translation string `json:"translation,omitempty"`
}

// Translated reports whether the line already carries a translation. A blank
// translation counts as missing.
func (l Line) Translated() bool {
	return strings.TrimSpace(l.Translation) != ""
}

// Book is a named sequence of lines, usually one source file.
type Book struct {
	Name  string `json:"name"`
	Lines []Line `json:"lines"`
}

// Clone returns a deep copy of b.
func (b Book) Clone() Book {
	b.Lines = append([]Line(nil), b.Lines...)
	return b
}

// Pending returns the number of lines without a translation.
func (b Book) Pending() int {
	n := 0
	for _, l := range b.Lines {
		if !l.Translated() {
			n++
		}
	}
	return n
}

// Read decodes a JSON book. An empty name is replaced by fallbackName.
func Read(r io.Reader, fallbackName string) (Book, error) {
	var b Book
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return Book{}, fmt.Errorf("book: decode %s: %w", fallbackName, err)
	}
	if b.Name == "" {
		b.Name = fallbackName
	}
	return b, nil
}

// ReadFile reads a JSON book from path.
func ReadFile(path string) (Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return Book{}, fmt.Errorf("book: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, path)
}

// Write encodes b as indented JSON.
func Write(w io.Writer, b Book) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// WriteFile writes b to path as indented JSON.
func WriteFile(path string, b Book) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("book: create %s: %w", path, err)
	}
	if err := Write(f, b); err != nil {
		f.Close()
		return fmt.Errorf("book: write %s: %w", path, err)
	}
	return f.Close()
}
