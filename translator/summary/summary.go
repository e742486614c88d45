// Package summary keeps a rolling summary of what has been translated so far
// so that later batches keep names, tone and plot consistent.
package summary

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ownlingo/gamelingo/translator"
)

// DefaultMaxLength caps a stored summary, in runes.
const DefaultMaxLength = 2000

// DefaultPrompt is the system instruction sent with every summary update.
const DefaultPrompt = "You maintain a running summary of a game script that is being translated. " +
	"Keep the characters, their relationships, places, items and the current situation. " +
	"Answer with the updated summary only, in plain prose, in the language of the text."

// Summarizer is a rolling summary of previously translated text.
type Summarizer interface {
	// Current returns the summary so far; empty means nothing to add.
	Current() string
	// Update folds text into the summary and returns the new summary.
	Update(ctx context.Context, text string) (string, error)
	// Reset forgets everything.
	Reset()
}

// NoOp never summarizes.
type NoOp struct{}

func (NoOp) Current() string                                { return "" }
func (NoOp) Update(context.Context, string) (string, error) { return "", nil }
func (NoOp) Reset()                                         {}

// Model asks a completion gateway to merge new text into the current summary.
type Model struct {
	gateway   translator.Gateway
	prompt    string
	maxLength int

	mu      sync.Mutex
	current string
}

// Option configures a Model.
type Option func(*Model)

// WithPrompt overrides the system instruction.
func WithPrompt(prompt string) Option {
	return func(m *Model) { m.prompt = prompt }
}

// WithMaxLength overrides the rune cap applied to every stored summary.
func WithMaxLength(n int) Option {
	return func(m *Model) { m.maxLength = n }
}

// NewModel creates a model-backed summarizer.
func NewModel(gateway translator.Gateway, opts ...Option) *Model {
	m := &Model{
		gateway:   gateway,
		prompt:    DefaultPrompt,
		maxLength: DefaultMaxLength,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Model) Update(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.TrimSpace(m.current) == "" && strings.TrimSpace(text) == "" {
		return "", nil
	}

	resp, err := m.gateway.Complete(ctx, &translator.CompletionRequest{
		Text:              request(m.current, text),
		SystemInstruction: m.prompt,
	})
	if err != nil {
		return m.current, fmt.Errorf("summary: update: %w", err)
	}

	updated := strings.TrimSpace(resp.Text)
	if r := []rune(updated); m.maxLength > 0 && len(r) > m.maxLength {
		updated = string(r[:m.maxLength]) + "..."
	}
	m.current = updated
	return m.current, nil
}

func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = ""
}

func request(current, text string) string {
	if strings.TrimSpace(current) == "" {
		return "Text to summarize:\n" + text
	}
	return "Current summary:\n" + current + "\n\nNew text to incorporate into the summary:\n" + text
}
