package translator

import (
	"context"
	"fmt"
	"time"
)

// Gateway is the narrow contract the translation core needs from a completion service.
type Gateway interface {
	// Complete sends one batch-formatted request and returns the raw model output
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name
	Name() string
}

// CompletionRequest represents a single completion call
type CompletionRequest struct {
	Text              string
	SystemInstruction string // empty means no system message
}

// CompletionResponse represents a completion response
type CompletionResponse struct {
	Text       string
	TokensUsed TokenUsage
	Cost       Cost
	Provider   string
	Duration   time.Duration
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Cost tracks the cost of the completion
type Cost struct {
	Amount   float64
	Currency string
}

// TransportError wraps any failure raised by a Gateway (network, auth, timeout).
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TextPrompt returns the system prompt used for line-joined plain text batches.
func TextPrompt(targetLanguage string) string {
	prompt := "You are a professional game translator. Translate every line of the user message into " +
		languageOrDefault(targetLanguage) + "."
	prompt += "\n\nIMPORTANT:"
	prompt += "\n- Answer with exactly one translated line per input line, in the same order"
	prompt += "\n- Do not merge, split, number or comment lines"
	prompt += "\n- Keep escape codes such as \\I[12] or \\n<...> exactly as they appear"
	return prompt
}

// DialogPrompt returns the system prompt used for structured {name?, text} batches.
func DialogPrompt(targetLanguage string) string {
	prompt := "You are a professional game translator. The user message is a JSON array of records " +
		"with a \"text\" field and an optional \"name\" field naming the speaker."
	prompt += "\nTranslate the \"text\" of every record into " + languageOrDefault(targetLanguage) +
		", using the speaker name to choose tone and grammatical gender."
	prompt += "\n\nIMPORTANT:"
	prompt += "\n- Answer with a JSON array only, with exactly as many records as the input, in the same order"
	prompt += "\n- Keep the \"name\" field unchanged"
	prompt += "\n- Keep quotes and escape codes inside \"text\" exactly as they appear"
	return prompt
}

func languageOrDefault(lang string) string {
	if lang == "" {
		return "English"
	}
	return lang
}
