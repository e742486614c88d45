// Package lore supplies global background documents (setting, glossary, style
// notes) that are added to every translation request.
package lore

import (
	"fmt"
	"os"
	"strings"
)

// Context is a piece of global background text.
type Context interface {
	Text() string
}

// Static is a fixed context string.
type Static string

func (s Static) Text() string { return string(s) }

// File is a context document read once from disk.
type File struct {
	path string
	text string
}

// LoadFile reads the document at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lore: read %s: %w", path, err)
	}
	return &File{path: path, text: string(data)}, nil
}

func (f *File) Path() string { return f.path }
func (f *File) Text() string { return f.text }

// Collection joins several contexts with a blank line between them.
type Collection []Context

// LoadFiles reads every path into a collection, in order.
func LoadFiles(paths ...string) (Collection, error) {
	c := make(Collection, 0, len(paths))
	for _, p := range paths {
		f, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		c = append(c, f)
	}
	return c, nil
}

func (c Collection) Text() string {
	parts := make([]string, 0, len(c))
	for _, ctx := range c {
		parts = append(parts, ctx.Text())
	}
	return strings.Join(parts, "\n\n")
}
