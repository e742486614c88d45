// Package batch plans token-budget-respecting request batches, renders them,
// parses responses and merges split units back together.
package batch

import (
	"context"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/ownlingo/gamelingo/translator"
)

const (
	// DefaultLimit is the fraction of the budget a single request may use.
	DefaultLimit = 0.8
	// DefaultParagraphSeparator separates paragraphs inside a unit.
	DefaultParagraphSeparator = "\n\n"
	// DefaultSentenceBoundary splits after Latin sentence punctuation followed by whitespace.
	DefaultSentenceBoundary = `(?<=[.!?;])\s+`
	// CJKSentenceBoundary also splits right after full-width sentence punctuation.
	CJKSentenceBoundary = `(?<=[.!?;])\s+|(?<=[。！？])\s*`
)

// Oracle estimates what fraction of the model budget a request would consume.
// Values above 1 mean the request does not fit at all.
type Oracle interface {
	Fraction(text, systemInstruction string) float64
}

// OracleFunc adapts a plain function to Oracle.
type OracleFunc func(text, systemInstruction string) float64

func (f OracleFunc) Fraction(text, systemInstruction string) float64 {
	return f(text, systemInstruction)
}

// Planner splits oversized units and packs fragments into batches.
// It is stateless after construction and safe for concurrent use.
type Planner struct {
	oracle       Oracle
	limit        float64
	prompt       func(Format) string
	paragraphSep string
	boundary     string
	sentence     *regexp2.Regexp
}

// Option configures a Planner.
type Option func(*Planner)

// WithLimit sets the budget fraction a request may use.
func WithLimit(limit float64) Option {
	return func(p *Planner) { p.limit = limit }
}

// WithPrompt sets the system instruction counted against the budget for each format.
func WithPrompt(prompt func(Format) string) Option {
	return func(p *Planner) { p.prompt = prompt }
}

// WithParagraphSeparator overrides the paragraph boundary.
func WithParagraphSeparator(sep string) Option {
	return func(p *Planner) { p.paragraphSep = sep }
}

// WithSentenceBoundary overrides the sentence boundary pattern (regexp2 syntax,
// look-behind allowed).
func WithSentenceBoundary(pattern string) Option {
	return func(p *Planner) { p.boundary = pattern }
}

// NewPlanner creates a planner using oracle for every size decision.
func NewPlanner(oracle Oracle, opts ...Option) (*Planner, error) {
	if oracle == nil {
		return nil, fmt.Errorf("batch: oracle cannot be nil")
	}
	p := &Planner{
		oracle:       oracle,
		limit:        DefaultLimit,
		prompt:       func(Format) string { return "" },
		paragraphSep: DefaultParagraphSeparator,
		boundary:     DefaultSentenceBoundary,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.limit <= 0 {
		return nil, fmt.Errorf("batch: limit must be > 0, got %v", p.limit)
	}
	if p.paragraphSep == "" {
		return nil, fmt.Errorf("batch: paragraph separator cannot be empty")
	}
	re, err := regexp2.Compile(p.boundary, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("batch: sentence boundary %q: %w", p.boundary, err)
	}
	p.sentence = re
	return p, nil
}

// ParagraphSeparator returns the separator used to split and merge paragraphs.
func (p *Planner) ParagraphSeparator() string {
	return p.paragraphSep
}

// SplitRecord describes how one unit was decomposed: one entry per paragraph
// holding the number of fragments that paragraph became.
type SplitRecord struct {
	Paragraphs []int
}

// Fragments returns the total fragment count; an empty record means the unit was not split.
func (r SplitRecord) Fragments() int {
	if len(r.Paragraphs) == 0 {
		return 1
	}
	n := 0
	for _, c := range r.Paragraphs {
		n += c
	}
	return n
}

// Span is a half-open range over Plan.Fragments.
type Span struct {
	From, To int
}

func (s Span) Len() int { return s.To - s.From }

// Plan is the ordered fragment sequence for a unit list plus the batches
// covering it. Fragment order follows unit order exactly.
type Plan struct {
	Fragments []translator.Unit
	// Owners maps each fragment to the index of the unit it came from.
	Owners []int
	// Units holds the fragment span of every planned unit.
	Units []Span
	// Records holds a split record for every decomposed unit.
	Records map[int]SplitRecord
	Batches []Span

	paragraphSep string
}

// Batch returns the fragments of batch i.
func (p *Plan) Batch(i int) []translator.Unit {
	s := p.Batches[i]
	return p.Fragments[s.From:s.To]
}

// Merge reassembles the translated fragments of unit into one text: sentence
// fragments of a paragraph are joined by a space and paragraphs by the
// paragraph separator.
func (p *Plan) Merge(unit int, fragments []string) string {
	return Merge(fragments, p.Records[unit], p.paragraphSep)
}

// Merge reassembles translated fragments according to record.
func Merge(fragments []string, record SplitRecord, paragraphSep string) string {
	if len(record.Paragraphs) <= 1 {
		return strings.Join(fragments, " ")
	}
	paragraphs := make([]string, 0, len(record.Paragraphs))
	i := 0
	for _, n := range record.Paragraphs {
		end := min(i+n, len(fragments))
		paragraphs = append(paragraphs, strings.Join(fragments[i:end], " "))
		i = end
	}
	return strings.Join(paragraphs, paragraphSep)
}

// Plan decomposes oversized units (by paragraph, then by sentence) and greedily
// packs the resulting fragments into batches that stay within the limit.
func (p *Planner) Plan(ctx context.Context, units []translator.Unit) (*Plan, error) {
	plan := &Plan{
		Units:        make([]Span, len(units)),
		Records:      make(map[int]SplitRecord),
		paragraphSep: p.paragraphSep,
	}

	for i, u := range units {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		from := len(plan.Fragments)
		if p.fits(u) {
			plan.Fragments = append(plan.Fragments, u)
		} else {
			frags, record, err := p.split(i, u)
			if err != nil {
				return nil, err
			}
			plan.Fragments = append(plan.Fragments, frags...)
			plan.Records[i] = record
		}
		for range len(plan.Fragments) - from {
			plan.Owners = append(plan.Owners, i)
		}
		plan.Units[i] = Span{From: from, To: len(plan.Fragments)}
	}

	start := 0
	for i := range plan.Fragments {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		if i > start && p.fits(plan.Fragments[start:i+1]...) {
			continue
		}
		if i > start {
			plan.Batches = append(plan.Batches, Span{From: start, To: i})
			start = i
		}
		if !p.fits(plan.Fragments[i]) {
			return nil, p.tooLarge(plan.Owners[i], plan.Fragments[i])
		}
	}
	if start < len(plan.Fragments) {
		plan.Batches = append(plan.Batches, Span{From: start, To: len(plan.Fragments)})
	}
	return plan, nil
}

// Next returns the end of the batch starting at fragment from: the longest run
// of fragments that fits with the prompt as it is now, and at least one
// fragment. Callers whose prompt grows between batches pack with Next instead
// of Plan.Batches.
func (p *Planner) Next(fragments []translator.Unit, from int) int {
	to := from + 1
	for to < len(fragments) && p.fits(fragments[from:to+1]...) {
		to++
	}
	return min(to, len(fragments))
}

// Fits reports whether units rendered as one request stay within the limit.
func (p *Planner) Fits(units ...translator.Unit) bool {
	return p.fits(units...)
}

func (p *Planner) split(index int, u translator.Unit) ([]translator.Unit, SplitRecord, error) {
	paragraphs := strings.Split(u.Original(), p.paragraphSep)
	if len(paragraphs) <= 1 {
		frags, err := p.splitSentences(index, u)
		if err != nil {
			return nil, SplitRecord{}, err
		}
		return frags, SplitRecord{Paragraphs: []int{len(frags)}}, nil
	}

	var (
		out    []translator.Unit
		counts = make([]int, 0, len(paragraphs))
	)
	for _, para := range paragraphs {
		pu := u.Fragment(para)
		if p.fits(pu) {
			out = append(out, pu)
			counts = append(counts, 1)
			continue
		}
		frags, err := p.splitSentences(index, pu)
		if err != nil {
			return nil, SplitRecord{}, err
		}
		out = append(out, frags...)
		counts = append(counts, len(frags))
	}
	return out, SplitRecord{Paragraphs: counts}, nil
}

// splitSentences packs consecutive sentences of u into the largest fragments
// that fit. u is known not to fit as a whole.
func (p *Planner) splitSentences(index int, u translator.Unit) ([]translator.Unit, error) {
	sentences, err := p.sentences(u.Original())
	if err != nil {
		return nil, err
	}
	if len(sentences) <= 1 {
		return nil, p.tooLarge(index, u)
	}

	var (
		out     []translator.Unit
		current string
	)
	for _, s := range sentences {
		candidate := s
		if current != "" {
			candidate = current + " " + s
		}
		if p.fits(u.Fragment(candidate)) {
			current = candidate
			continue
		}
		if current != "" {
			out = append(out, u.Fragment(current))
		}
		current = s
		if !p.fits(u.Fragment(current)) {
			return nil, p.tooLarge(index, u.Fragment(current))
		}
	}
	if current != "" {
		out = append(out, u.Fragment(current))
	}
	return out, nil
}

func (p *Planner) sentences(text string) ([]string, error) {
	runes := []rune(text)
	var parts []string
	last := 0
	m, err := p.sentence.FindStringMatch(text)
	for m != nil && err == nil {
		if m.Index > last || m.Length > 0 {
			parts = append(parts, string(runes[last:m.Index]))
			last = m.Index + m.Length
		}
		m, err = p.sentence.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("batch: sentence split: %w", err)
	}
	parts = append(parts, string(runes[last:]))

	out := parts[:0]
	for _, s := range parts {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (p *Planner) fraction(units ...translator.Unit) float64 {
	text, format := Render(units)
	return p.oracle.Fraction(text, p.prompt(format))
}

func (p *Planner) fits(units ...translator.Unit) bool {
	return p.fraction(units...) <= p.limit
}

func (p *Planner) tooLarge(index int, u translator.Unit) error {
	return &FragmentTooLargeError{Unit: index, Fraction: p.fraction(u), Text: u.Original()}
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
