// Package engine translates lists of units through a completion gateway in
// token-budget-sized batches.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ownlingo/gamelingo/translator"
	"github.com/ownlingo/gamelingo/translator/batch"
	"github.com/ownlingo/gamelingo/translator/retry"
)

// Failure is a unit that could not be translated.
type Failure struct {
	Index int // position in the input list
	Err   error
}

// Report is the outcome of one run. Units has the input's length and order;
// a failed unit is returned without a translation.
type Report struct {
	RunID  string
	Units  []translator.Unit
	Failed []Failure
}

// OK reports whether every unit was translated.
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// Translator is the batch translation entry point. Batches of one run are
// sent strictly one after another; separate runs may execute concurrently.
type Translator struct {
	gateway translator.Gateway
	planner *batch.Planner
	opts    options
}

// New creates a translator sending requests through gateway and sizing them with oracle.
func New(gateway translator.Gateway, oracle batch.Oracle, opts ...Option) (*Translator, error) {
	if gateway == nil {
		return nil, errors.New("engine: gateway cannot be nil")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.attempts < 1 {
		return nil, fmt.Errorf("engine: attempts must be >= 1, got %d", o.attempts)
	}

	t := &Translator{gateway: gateway, opts: o}
	planner, err := batch.NewPlanner(oracle,
		batch.WithLimit(o.limit),
		batch.WithPrompt(func(f batch.Format) string { return t.instruction(f, true) }),
		batch.WithParagraphSeparator(o.paragraphSep),
		batch.WithSentenceBoundary(o.sentenceBoundary),
	)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	t.planner = planner
	return t, nil
}

// Translate returns every unit translated, except already translated units
// (returned unchanged), blank units (returned with their own text) and units
// whose batch failed after all attempts (listed in Report.Failed). Identical
// units are sent once. A unit too large to split is fatal and returns an
// error. Cancellation is checked between batches; the report then holds what
// was finished and the context error is returned with it.
func (t *Translator) Translate(ctx context.Context, units []translator.Unit) (*Report, error) {
	report := &Report{
		RunID: uuid.NewString(),
		Units: append([]translator.Unit(nil), units...),
	}
	log := t.opts.logger.With("run_id", report.RunID)

	// pending holds each distinct unit once; copies lists the input
	// positions sharing it.
	var (
		pending []translator.Unit
		copies  [][]int
		seen    = make(map[unitKey]int)
	)
	for i, u := range units {
		if u.IsTranslated() {
			continue
		}
		if strings.TrimSpace(u.Original()) == "" {
			report.Units[i] = u.WithTranslation(u.Original())
			continue
		}
		if t.opts.cache != nil {
			if cached, ok := t.opts.cache.Get(u.Original()); ok {
				report.Units[i] = u.WithTranslation(cached)
				continue
			}
		}
		key := unitKey{kind: u.Kind(), name: u.Name(), original: u.Original()}
		if p, ok := seen[key]; ok {
			copies[p] = append(copies[p], i)
			continue
		}
		seen[key] = len(pending)
		pending = append(pending, u)
		copies = append(copies, []int{i})
	}
	if len(pending) == 0 {
		return report, nil
	}

	plan, err := t.planner.Plan(ctx, pending)
	if err != nil {
		return nil, err
	}
	log.Info("translation planned",
		"units", len(units), "pending", len(pending),
		"fragments", len(plan.Fragments), "batches", len(plan.Batches))

	var (
		results = make([]string, len(plan.Fragments))
		done    = make([]bool, len(plan.Fragments))
		failed  = make(map[int]error)
		runErr  error
	)
	// Batches are packed one at a time: the rolling summary in the system
	// instruction grows as the run goes on.
	for b, from := 0, 0; from < len(plan.Fragments); b++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		span := batch.Span{From: from, To: t.planner.Next(plan.Fragments, from)}
		from = span.To
		frags := plan.Fragments[span.From:span.To]
		blog := log.With("batch", b, "units", len(frags))
		texts, err := t.translateBatch(ctx, blog, frags)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				runErr = ctxErr
				break
			}
			blog.Warn("batch failed", "err", err)
			for f := span.From; f < span.To; f++ {
				failed[plan.Owners[f]] = err
			}
			continue
		}

		for j, text := range texts {
			results[span.From+j] = text
			done[span.From+j] = true
		}
		for f := span.From; f < span.To; f++ {
			p := plan.Owners[f]
			if f > span.From && plan.Owners[f-1] == p {
				continue
			}
			if _, bad := failed[p]; bad {
				continue
			}
			us := plan.Units[p]
			if !allDone(done[us.From:us.To]) {
				continue
			}
			text := plan.Merge(p, results[us.From:us.To])
			for _, i := range copies[p] {
				report.Units[i] = units[i].WithTranslation(text)
			}
			if t.opts.cache != nil {
				t.opts.cache.Put(pending[p].Original(), text)
			}
		}
		blog.Debug("batch translated")

		if _, err := t.opts.summarizer.Update(ctx, strings.Join(texts, "\n")); err != nil {
			blog.Warn("summary update failed", "err", err)
		}
	}

	for p := range plan.Units {
		if err, ok := failed[p]; ok {
			for _, i := range copies[p] {
				report.Failed = append(report.Failed, Failure{Index: i, Err: err})
			}
		}
	}
	slices.SortFunc(report.Failed, func(a, b Failure) int { return a.Index - b.Index })

	log.Info("translation finished", "failed", len(report.Failed), "cancelled", runErr != nil)
	return report, runErr
}

// unitKey identifies units that would get the same translation.
type unitKey struct {
	kind     translator.Kind
	name     string
	original string
}

func (t *Translator) translateBatch(ctx context.Context, log *slog.Logger, frags []translator.Unit) ([]string, error) {
	text, format := batch.Render(frags)
	// A fragment that fit before the summary grew goes without the summary
	// rather than over the limit.
	withSummary := t.planner.Fits(frags...)
	system := t.instruction(format, withSummary)
	if !withSummary {
		log.Debug("summary left out of the request to stay within the limit")
	}

	cfg := t.opts.backoff.Attempts(t.opts.attempts)
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("retrying batch", "attempt", attempt, "backoff", backoff, "err", err)
	}

	var records []batch.Record
	err := retry.Do(ctx, cfg, func(attempt int) error {
		callCtx := ctx
		if t.opts.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, t.opts.callTimeout)
			defer cancel()
		}

		start := time.Now()
		resp, err := t.gateway.Complete(callCtx, &translator.CompletionRequest{
			Text:              text,
			SystemInstruction: system,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var te *translator.TransportError
			if !errors.As(err, &te) {
				err = &translator.TransportError{Provider: t.gateway.Name(), Err: err}
			}
			return retry.Retryable(err)
		}
		log.Debug("gateway answered", "attempt", attempt, "format", format,
			"duration", time.Since(start), "tokens", resp.TokensUsed.TotalTokens)

		records, err = batch.Parse(resp.Text, format, len(frags))
		if err != nil {
			return retry.Retryable(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	return texts, nil
}

// instruction is the base prompt for format followed by the global context
// and, when withSummary is set, the current rolling summary.
func (t *Translator) instruction(format batch.Format, withSummary bool) string {
	prompt, ok := t.opts.prompts[format]
	if !ok {
		if format == batch.FormatRecords {
			prompt = translator.DialogPrompt(t.opts.language)
		} else {
			prompt = translator.TextPrompt(t.opts.language)
		}
	}

	var sb strings.Builder
	sb.WriteString(prompt)
	if t.opts.lore != nil {
		if l := strings.TrimSpace(t.opts.lore.Text()); l != "" {
			sb.WriteString("\n\n")
			sb.WriteString(l)
		}
	}
	if s := t.opts.summarizer.Current(); withSummary && strings.TrimSpace(s) != "" {
		sb.WriteString("\n\n")
		sb.WriteString(SummaryHeader)
		sb.WriteString("\n\n")
		sb.WriteString(s)
	}
	return sb.String()
}

func allDone(done []bool) bool {
	for _, d := range done {
		if !d {
			return false
		}
	}
	return true
}
