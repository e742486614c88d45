package dialog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ownlingo/gamelingo/translator/names"
)

// Chain applies recognizers until none matches and restores their
// decorations in reverse order. It holds no mutable state.
type Chain struct {
	recognizers []Recognizer
}

// NewChain returns a chain trying recognizers in the given order.
func NewChain(recognizers ...Recognizer) *Chain {
	return &Chain{recognizers: recognizers}
}

// DefaultChain returns the standard recognizer order.
func DefaultChain(dict *names.Dictionary) *Chain {
	return NewChain(
		SpeakerQuote(dict),
		EscapedName(dict),
		CapsName(),
		Icon(),
	)
}

// Extraction is a cleaned line plus the decorations stripped from it,
// in detection order.
type Extraction struct {
	Text        string
	Decorations []Decoration
}

// Speaker returns the speaker of the first decoration, if it carries one.
func (e Extraction) Speaker() (string, bool) {
	if len(e.Decorations) == 0 {
		return "", false
	}
	return e.Decorations[0].Speaker()
}

// Extract strips every recognizable decoration from line. After each match the
// scan restarts from the first recognizer against the updated line. Remaining
// line breaks are collapsed into spaces.
func (c *Chain) Extract(line string) (Extraction, error) {
	current := line
	var decorations []Decoration
	for {
		matched := false
		for _, r := range c.recognizers {
			dec, cleaned, ok, err := r.TryExtract(current)
			if err != nil {
				return Extraction{}, err
			}
			if ok {
				current = cleaned
				decorations = append(decorations, dec)
				matched = true
				break
			}
		}
		if !matched {
			break
		}
	}
	if strings.ContainsAny(current, "\r\n") {
		current = strings.ReplaceAll(current, "\r", "")
		current = strings.ReplaceAll(current, "\n", " ")
	}
	return Extraction{Text: current, Decorations: decorations}, nil
}

// Restore re-applies decorations onto translated, last detected first.
func (c *Chain) Restore(translated string, decorations []Decoration) string {
	current := translated
	for i := len(decorations) - 1; i >= 0; i-- {
		current = decorations[i].Reapply(current)
	}
	return current
}

// Missing is one unresolvable name reference.
type Missing struct {
	Source string
	Line   int // 1-based
	Key    string
}

func (m Missing) Location() string {
	return fmt.Sprintf("%s|%d", m.Source, m.Line)
}

// Check extracts every line and collects all missing name keys instead of
// stopping at the first one. Errors other than a missing key are returned.
func (c *Chain) Check(source string, lines []string) ([]Missing, error) {
	var missing []Missing
	for i, line := range lines {
		m, err := c.CheckLine(source, i+1, line)
		if err != nil {
			return nil, err
		}
		if m != nil {
			missing = append(missing, *m)
		}
	}
	return missing, nil
}

// CheckLine extracts a single line numbered lineNo and returns the missing
// name, if any.
func (c *Chain) CheckLine(source string, lineNo int, line string) (*Missing, error) {
	_, err := c.Extract(line)
	if err == nil {
		return nil, nil
	}
	var knf *names.KeyNotFoundError
	if !errors.As(err, &knf) {
		return nil, fmt.Errorf("%s line %d: %w", source, lineNo, err)
	}
	return &Missing{Source: source, Line: lineNo, Key: knf.Key}, nil
}

// MissingNamesError reports every name that failed to resolve during a pre-flight pass.
type MissingNamesError struct {
	Missing []Missing
}

func (e *MissingNamesError) Error() string {
	keys := e.Keys()
	return fmt.Sprintf("%d unresolved name references (%d distinct keys): %s",
		len(e.Missing), len(keys), strings.Join(keys, ", "))
}

func (e *MissingNamesError) Is(target error) bool {
	return target == names.ErrKeyNotFound
}

// Keys returns the distinct missing keys, sorted.
func (e *MissingNamesError) Keys() []string {
	seen := make(map[string]struct{}, len(e.Missing))
	keys := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		if _, ok := seen[m.Key]; ok {
			continue
		}
		seen[m.Key] = struct{}{}
		keys = append(keys, m.Key)
	}
	sort.Strings(keys)
	return keys
}

// Report lists every location followed by its key, de-duplicated, in the
// `source|line` then `key` layout expected by translators fixing the dictionary.
func (e *MissingNamesError) Report() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range e.Missing {
		for _, s := range []string{m.Location(), m.Key} {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
