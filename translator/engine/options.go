package engine

import (
	"log/slog"
	"time"

	"github.com/ownlingo/gamelingo/translator/batch"
	"github.com/ownlingo/gamelingo/translator/cache"
	"github.com/ownlingo/gamelingo/translator/lore"
	"github.com/ownlingo/gamelingo/translator/retry"
	"github.com/ownlingo/gamelingo/translator/summary"
)

// DefaultAttempts is how many times a batch is sent before it is reported as failed.
const DefaultAttempts = 3

// SummaryHeader introduces the rolling summary inside the system instruction.
const SummaryHeader = "Context from previous translations (please use it to translate):"

type options struct {
	limit            float64
	attempts         int
	backoff          retry.Config
	language         string
	prompts          map[batch.Format]string
	summarizer       summary.Summarizer
	lore             lore.Context
	callTimeout      time.Duration
	logger           *slog.Logger
	cache            *cache.Cache
	paragraphSep     string
	sentenceBoundary string
}

func defaultOptions() options {
	return options{
		limit:            batch.DefaultLimit,
		attempts:         DefaultAttempts,
		backoff:          *retry.DefaultConfig(),
		prompts:          map[batch.Format]string{},
		summarizer:       summary.NoOp{},
		logger:           slog.Default(),
		paragraphSep:     batch.DefaultParagraphSeparator,
		sentenceBoundary: batch.DefaultSentenceBoundary,
	}
}

// Option configures a Translator.
type Option func(*options)

// WithLimit sets the budget fraction one request may use (default 0.8).
func WithLimit(limit float64) Option {
	return func(o *options) { o.limit = limit }
}

// WithAttempts sets how many times a batch is sent before giving up.
func WithAttempts(n int) Option {
	return func(o *options) { o.attempts = n }
}

// WithBackoff sets the delays between attempts. MaxRetries is ignored in
// favour of WithAttempts.
func WithBackoff(cfg retry.Config) Option {
	return func(o *options) { o.backoff = cfg }
}

// WithTargetLanguage selects the language named in the default prompts.
func WithTargetLanguage(lang string) Option {
	return func(o *options) { o.language = lang }
}

// WithPrompt replaces the base system instruction used for batches of format.
func WithPrompt(format batch.Format, prompt string) Option {
	return func(o *options) { o.prompts[format] = prompt }
}

// WithSummarizer enables rolling context between batches.
func WithSummarizer(s summary.Summarizer) Option {
	return func(o *options) {
		if s == nil {
			s = summary.NoOp{}
		}
		o.summarizer = s
	}
}

// WithLore adds global background text to every system instruction.
func WithLore(c lore.Context) Option {
	return func(o *options) { o.lore = c }
}

// WithCallTimeout bounds every single gateway call.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) { o.callTimeout = d }
}

// WithLogger sets the logger; runs add a run_id attribute.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCache makes the translator skip units whose original is cached and
// record every new translation.
func WithCache(c *cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithParagraphSeparator overrides the paragraph boundary used when splitting.
func WithParagraphSeparator(sep string) Option {
	return func(o *options) { o.paragraphSep = sep }
}

// WithSentenceBoundary overrides the sentence boundary pattern used when splitting.
func WithSentenceBoundary(pattern string) Option {
	return func(o *options) { o.sentenceBoundary = pattern }
}
