package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ownlingo/gamelingo/config"
	"github.com/ownlingo/gamelingo/translator"
	"github.com/ownlingo/gamelingo/translator/book"
	"github.com/ownlingo/gamelingo/translator/cache"
	"github.com/ownlingo/gamelingo/translator/dialog"
	"github.com/ownlingo/gamelingo/translator/engine"
	"github.com/ownlingo/gamelingo/translator/lore"
	"github.com/ownlingo/gamelingo/translator/summary"
	"github.com/spf13/cobra"
)

func newTranslateCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "translate BOOK...",
		Short: "Translate every untranslated line",
		Long: `Translate every untranslated line of the given books.

Names are checked first; when any is missing nothing is sent. Books are
written back even when some lines fail or the run is interrupted, so a
later run resumes where this one stopped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, outDir)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "write books here instead of in place")
	return cmd
}

func runTranslate(cmd *cobra.Command, args []string, outDir string) error {
	ctx := cmd.Context()
	ws, err := loadWorkspace(args)
	if err != nil {
		return err
	}
	t := ws.cfg.Translation

	oracle, counter := newOracle(t)
	gw, closeGateway, err := newGateway(ctx, ws.cfg, counter)
	if err != nil {
		return err
	}
	defer closeGateway()

	lines, err := openCache(ctx, ws.cfg.Cache)
	if err != nil {
		return err
	}
	defer lines.close(context.WithoutCancel(ctx))

	engineOpts, err := engineOptions(t, ws.cfg.Lore)
	if err != nil {
		return err
	}

	opts := []book.Option{
		book.WithCache(lines.cache),
		book.WithChunkLines(t.ChunkLines),
		book.WithConcurrency(t.Concurrency),
		book.WithEngineOptions(engineOpts...),
	}
	if ws.cfg.Summary.Enabled {
		opts = append(opts, book.WithSummarizer(summarizerFactory(gw, ws.cfg.Summary)))
	}
	s := book.NewService(gw, oracle, ws.dict, opts...)

	res, runErr := s.Translate(ctx, ws.books)
	var missing *dialog.MissingNamesError
	if errors.As(runErr, &missing) {
		printMissing(cmd, missing)
		return runErr
	}
	if res == nil {
		return runErr
	}

	for i, b := range res.Books {
		path := ws.paths[i]
		if outDir != "" {
			path = filepath.Join(outDir, filepath.Base(path))
		}
		if err := book.WriteFile(path, b); err != nil {
			return errors.Join(runErr, err)
		}
	}

	out := cmd.OutOrStdout()
	for _, f := range res.Failed {
		fmt.Fprintf(out, "%s|%d\t%v\n", f.Book, f.Line, f.Err)
	}
	fmt.Fprintf(out, "%d books written, %d lines failed\n", len(res.Books), len(res.Failed))

	if runErr != nil {
		return runErr
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d lines failed", len(res.Failed))
	}
	return nil
}

func engineOptions(t config.Translation, lorePaths []string) ([]engine.Option, error) {
	opts := []engine.Option{
		engine.WithLimit(t.Limit),
		engine.WithAttempts(t.Attempts),
		engine.WithTargetLanguage(t.Language),
		engine.WithCallTimeout(t.CallTimeout),
	}
	if t.ParagraphSeparator != "" {
		opts = append(opts, engine.WithParagraphSeparator(t.ParagraphSeparator))
	}
	if t.SentenceBoundary != "" {
		opts = append(opts, engine.WithSentenceBoundary(t.SentenceBoundary))
	}
	if len(lorePaths) > 0 {
		docs, err := lore.LoadFiles(lorePaths...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithLore(docs))
	}
	return opts, nil
}

func summarizerFactory(gw translator.Gateway, cfg config.Summary) func() summary.Summarizer {
	return func() summary.Summarizer {
		var opts []summary.Option
		if cfg.MaxLength > 0 {
			opts = append(opts, summary.WithMaxLength(cfg.MaxLength))
		}
		return summary.NewModel(gw, opts...)
	}
}

// lineCache is the service cache, persisted to sqlite when a path is set.
type lineCache struct {
	cache *cache.Cache
	store *cache.SQLiteStore
}

func openCache(ctx context.Context, path string) (*lineCache, error) {
	lc := &lineCache{cache: cache.New()}
	if path == "" {
		return lc, nil
	}

	store, err := cache.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := lc.cache.LoadFrom(ctx, store); err != nil {
		_ = store.Close()
		return nil, err
	}
	slog.Info("cache loaded", "path", path, "entries", lc.cache.Len())
	lc.store = store
	return lc, nil
}

func (lc *lineCache) close(ctx context.Context) {
	if lc.store == nil {
		return
	}
	if err := lc.cache.SaveTo(ctx, lc.store); err != nil {
		slog.Error("saving cache", "err", err)
	}
	if err := lc.store.Close(); err != nil {
		slog.Error("closing cache", "err", err)
	}
}
