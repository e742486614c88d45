package main

import (
	"fmt"

	"github.com/ownlingo/gamelingo/config"
	"github.com/ownlingo/gamelingo/translator/book"
	"github.com/ownlingo/gamelingo/translator/names"
)

// workspace is what every command loads before doing anything.
type workspace struct {
	cfg   *config.File
	dict  *names.Dictionary
	books []book.Book
	paths []string
}

func loadWorkspace(paths []string) (*workspace, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	dict := names.New(nil)
	if cfg.Names != "" {
		if dict, err = names.Load(cfg.Names); err != nil {
			return nil, err
		}
	}

	books := make([]book.Book, len(paths))
	for i, p := range paths {
		if books[i], err = book.ReadFile(p); err != nil {
			return nil, fmt.Errorf("reading book %s: %w", p, err)
		}
	}

	return &workspace{cfg: cfg, dict: dict, books: books, paths: paths}, nil
}
