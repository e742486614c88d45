package batch

import (
	"errors"
	"fmt"
)

var (
	// ErrResponseSizeMismatch means the response has a different record count than the batch.
	ErrResponseSizeMismatch = errors.New("response size mismatch")
	// ErrUnparsableResponse means the response could not be decoded at all.
	ErrUnparsableResponse = errors.New("unparsable response")
	// ErrFragmentTooLarge means a single sentence exceeds the budget on its own.
	ErrFragmentTooLarge = errors.New("fragment too large")
)

// SizeMismatchError reports how many records were expected and received.
type SizeMismatchError struct {
	Expected int
	Got      int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("response size mismatch: expected %d, got %d", e.Expected, e.Got)
}

func (e *SizeMismatchError) Is(target error) bool {
	return target == ErrResponseSizeMismatch
}

// FragmentTooLargeError identifies the unit that cannot be decomposed further.
type FragmentTooLargeError struct {
	Unit     int // index in the planned unit list
	Fraction float64
	Text     string
}

func (e *FragmentTooLargeError) Error() string {
	return fmt.Sprintf("fragment too large: unit %d uses %.2f of the budget even alone: %q",
		e.Unit, e.Fraction, truncate(e.Text, 80))
}

func (e *FragmentTooLargeError) Is(target error) bool {
	return target == ErrFragmentTooLarge
}

func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}
