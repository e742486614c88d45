// Package providers holds what the completion gateways share: token estimates
// for rate limiting and classification of transient failures.
package providers

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/ownlingo/gamelingo/translator"
	"github.com/ownlingo/gamelingo/translator/retry"
)

// MinTokenEstimate is the smallest reservation made against a TPM limit.
const MinTokenEstimate = 100

// TokenCounter counts prompt tokens. tokens.Tiktoken satisfies it.
type TokenCounter interface {
	Count(s string) int
}

// EstimateTokens estimates the prompt tokens of req: counter when given,
// otherwise one token per four runes.
func EstimateTokens(counter TokenCounter, req *translator.CompletionRequest) int {
	var n int
	if counter != nil {
		n = counter.Count(req.SystemInstruction) + counter.Count(req.Text)
	} else {
		n = (utf8.RuneCountInString(req.SystemInstruction) + utf8.RuneCountInString(req.Text)) / 4
	}
	return max(n, MinTokenEstimate)
}

// RetryableStatus reports whether an HTTP status marks a transient failure.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

var transientMarkers = []string{"429", "500", "502", "503", "504", "RESOURCE_EXHAUSTED", "UNAVAILABLE", "overloaded"}

// Classify marks err retryable when status (0 if unknown) or, lacking a
// status, the error text shows a transient failure.
func Classify(err error, status int) error {
	if err == nil || retry.IsRetryable(err) {
		return err
	}
	if status != 0 {
		if RetryableStatus(status) {
			return &retry.RetryableError{Err: err, StatusCode: status}
		}
		return err
	}
	msg := err.Error()
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return &retry.RetryableError{Err: err}
		}
	}
	return err
}

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty response")
