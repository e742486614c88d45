package book

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ownlingo/gamelingo/translator"
	"github.com/ownlingo/gamelingo/translator/batch"
	"github.com/ownlingo/gamelingo/translator/cache"
	"github.com/ownlingo/gamelingo/translator/dialog"
	"github.com/ownlingo/gamelingo/translator/engine"
	"github.com/ownlingo/gamelingo/translator/names"
	"github.com/ownlingo/gamelingo/translator/summary"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultChunkLines is how many untranslated lines go into one engine run.
	DefaultChunkLines = 50
	// DefaultConcurrency is how many books are translated at once.
	DefaultConcurrency = 1
)

// LineFailure is a line left untranslated because its batch failed.
type LineFailure struct {
	Book string
	Line int // 1-based
	Err  error
}

// Result holds translated copies of the input books and the lines that failed.
type Result struct {
	Books  []Book
	Failed []LineFailure
}

// Service translates books: it validates names up front, reuses the shared
// cache, strips dialog decorations, and restores them onto the results.
type Service struct {
	gateway     translator.Gateway
	oracle      batch.Oracle
	dict        *names.Dictionary
	chain       *dialog.Chain
	cache       *cache.Cache
	chunkLines  int
	concurrency int
	summarizer  func() summary.Summarizer
	engineOpts  []engine.Option
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache shares c with the service instead of a private cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithChain replaces the default recognizer chain.
func WithChain(c *dialog.Chain) Option {
	return func(s *Service) { s.chain = c }
}

// WithChunkLines sets how many untranslated lines form one engine run.
func WithChunkLines(n int) Option {
	return func(s *Service) { s.chunkLines = n }
}

// WithConcurrency sets how many books are translated in parallel.
func WithConcurrency(n int) Option {
	return func(s *Service) { s.concurrency = n }
}

// WithSummarizer gives every book its own summarizer from factory.
func WithSummarizer(factory func() summary.Summarizer) Option {
	return func(s *Service) { s.summarizer = factory }
}

// WithEngineOptions passes options to every engine the service creates.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *Service) { s.engineOpts = append(s.engineOpts, opts...) }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a book service.
func NewService(gateway translator.Gateway, oracle batch.Oracle, dict *names.Dictionary, opts ...Option) *Service {
	s := &Service{
		gateway:     gateway,
		oracle:      oracle,
		dict:        dict,
		chain:       dialog.DefaultChain(dict),
		cache:       cache.New(),
		chunkLines:  DefaultChunkLines,
		concurrency: DefaultConcurrency,
		summarizer:  func() summary.Summarizer { return summary.NoOp{} },
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.chunkLines < 1 {
		s.chunkLines = DefaultChunkLines
	}
	if s.concurrency < 1 {
		s.concurrency = DefaultConcurrency
	}
	return s
}

// Cache returns the cache the service reads and fills.
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// Seed adds every already translated line of books to the cache.
func (s *Service) Seed(books []Book) {
	entries := make(map[string]string)
	for _, b := range books {
		for _, l := range b.Lines {
			if l.Translated() {
				entries[l.Original] = l.Translation
			}
		}
	}
	s.cache.Seed(entries)
}

// Check runs the recognizer chain over every untranslated line of every book
// and returns a *dialog.MissingNamesError listing all unresolved names.
func (s *Service) Check(ctx context.Context, books []Book) error {
	perBook := make([][]dialog.Missing, len(books))
	g, ctx := errgroup.WithContext(ctx)
	for i, b := range books {
		g.Go(func() error {
			for n, l := range b.Lines {
				if err := ctx.Err(); err != nil {
					return err
				}
				if l.Translated() {
					continue
				}
				m, err := s.chain.CheckLine(b.Name, n+1, l.Original)
				if err != nil {
					return err
				}
				if m != nil {
					perBook[i] = append(perBook[i], *m)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var missing []dialog.Missing
	for _, m := range perBook {
		missing = append(missing, m...)
	}
	if len(missing) > 0 {
		return &dialog.MissingNamesError{Missing: missing}
	}
	return nil
}

// NameUsage returns every dictionary entry referenced anywhere in books.
func (s *Service) NameUsage(books []Book) map[string]string {
	used := make(map[string]string)
	if s.dict == nil {
		return used
	}
	for _, b := range books {
		for _, l := range b.Lines {
			for k, v := range s.dict.ContainsAny(l.Original) {
				used[k] = v
			}
		}
	}
	return used
}

// Translate seeds the cache from books, validates names, and translates every
// book. When names are missing no request is made and the error is a
// *dialog.MissingNamesError. Lines whose batch failed are listed in
// Result.Failed. On cancellation or a fatal error the books translated so far
// are returned together with the error.
func (s *Service) Translate(ctx context.Context, books []Book) (*Result, error) {
	s.Seed(books)
	if err := s.Check(ctx, books); err != nil {
		return nil, err
	}

	result := &Result{Books: make([]Book, len(books))}
	for i, b := range books {
		result.Books[i] = b.Clone()
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range result.Books {
		g.Go(func() error {
			failed, err := s.translateBook(gctx, &result.Books[i])
			mu.Lock()
			result.Failed = append(result.Failed, failed...)
			mu.Unlock()
			if err != nil {
				return fmt.Errorf("book %s: %w", result.Books[i].Name, err)
			}
			return nil
		})
	}
	err := g.Wait()
	return result, err
}

func (s *Service) translateBook(ctx context.Context, b *Book) ([]LineFailure, error) {
	log := s.logger.With("book", b.Name)
	opts := append([]engine.Option{
		engine.WithLogger(log),
		engine.WithSummarizer(s.summarizer()),
	}, s.engineOpts...)
	eng, err := engine.New(s.gateway, s.oracle, opts...)
	if err != nil {
		return nil, err
	}

	log.Info("translating book", "lines", len(b.Lines), "pending", b.Pending())
	var failed []LineFailure
	for start := 0; start < len(b.Lines); {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		end := s.window(b.Lines, start)
		f, err := s.translateWindow(ctx, eng, b, start, end)
		failed = append(failed, f...)
		if err != nil {
			return failed, err
		}
		start = end
	}
	return failed, nil
}

// window returns the end of the sub-book starting at start: it holds at most
// chunkLines untranslated lines.
func (s *Service) window(lines []Line, start int) int {
	end, pending := start, 0
	for end < len(lines) && pending < s.chunkLines {
		if !lines[end].Translated() {
			pending++
		}
		end++
	}
	return end
}

func (s *Service) translateWindow(ctx context.Context, eng *engine.Translator, b *Book, start, end int) ([]LineFailure, error) {
	var (
		units       []translator.Unit
		lineIndex   []int
		decorations [][]dialog.Decoration
	)
	for i := start; i < end; i++ {
		l := &b.Lines[i]
		if l.Translated() || strings.TrimSpace(l.Original) == "" {
			continue
		}
		if cached, ok := s.cache.Get(l.Original); ok {
			l.Translation = cached
			continue
		}

		ext, err := s.chain.Extract(l.Original)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		// Nothing left to translate once decorations such as icons are off.
		if strings.TrimSpace(ext.Text) == "" {
			l.Translation = s.chain.Restore(ext.Text, ext.Decorations)
			continue
		}
		units = append(units, unitFor(*l, ext))
		lineIndex = append(lineIndex, i)
		decorations = append(decorations, ext.Decorations)
	}
	if len(units) == 0 {
		return nil, nil
	}

	report, err := eng.Translate(ctx, units)
	if report == nil {
		return nil, err
	}
	for j, u := range report.Units {
		translated, ok := u.Translation()
		if !ok {
			continue
		}
		l := &b.Lines[lineIndex[j]]
		l.Translation = s.chain.Restore(unwrapQuotes(translated), decorations[j])
		s.cache.Put(l.Original, l.Translation)
	}

	var failed []LineFailure
	for _, f := range report.Failed {
		failed = append(failed, LineFailure{Book: b.Name, Line: lineIndex[f.Index] + 1, Err: f.Err})
	}
	return failed, err
}

// unitFor sends the line with its explicit speaker, or with the speaker
// recovered from its decorations.
func unitFor(l Line, ext dialog.Extraction) translator.Unit {
	if l.Name != "" {
		return translator.NewNamedUnit(l.Name, ext.Text)
	}
	if speaker, ok := ext.Speaker(); ok {
		return translator.NewNamedUnit(speaker, ext.Text)
	}
	return translator.NewPlainUnit(ext.Text)
}

func unwrapQuotes(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
