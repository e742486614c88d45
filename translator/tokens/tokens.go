// Package tokens estimates how much of a model's context budget a request uses.
package tokens

import (
	"fmt"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	tiktoken "github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultEncoding is used by GPT-4 class models and approximates Anthropic and Google models.
	DefaultEncoding = "cl100k_base"
	// DefaultBudget is a conservative context window shared by the supported providers.
	DefaultBudget = 8192

	defaultCacheSize = 4096
)

// Chars estimates usage as runes over a rune budget. It needs no encoding
// data and is used when a tokenizer cannot be loaded.
type Chars struct {
	Budget int
}

func (c Chars) Fraction(text, systemInstruction string) float64 {
	if c.Budget <= 0 {
		return 0
	}
	n := utf8.RuneCountInString(text) + utf8.RuneCountInString(systemInstruction)
	return float64(n) / float64(c.Budget)
}

// Tiktoken counts BPE tokens. Counts are memoized since the planner asks about
// the same prompt and fragments many times while packing.
type Tiktoken struct {
	enc    *tiktoken.Tiktoken
	budget int
	counts *lru.Cache[string, int]
}

// NewTiktoken loads encoding and returns an oracle for a budget of tokens.
func NewTiktoken(encoding string, budget int) (*Tiktoken, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("tokens: budget must be > 0, got %d", budget)
	}
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokens: get encoding %s: %w", encoding, err)
	}
	counts, err := lru.New[string, int](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("tokens: cache: %w", err)
	}
	return &Tiktoken{enc: enc, budget: budget, counts: counts}, nil
}

// Count returns the number of tokens in s.
func (t *Tiktoken) Count(s string) int {
	if s == "" {
		return 0
	}
	if n, ok := t.counts.Get(s); ok {
		return n
	}
	n := len(t.enc.Encode(s, nil, nil))
	t.counts.Add(s, n)
	return n
}

func (t *Tiktoken) Fraction(text, systemInstruction string) float64 {
	return float64(t.Count(systemInstruction)+t.Count(text)) / float64(t.budget)
}

// Budget returns the token budget this oracle divides by.
func (t *Tiktoken) Budget() int {
	return t.budget
}
