// Package dialog strips reversible game-text decorations (speaker prefixes,
// escape-coded names, icon codes) from a line before translation and puts
// them back onto the translated line afterwards.
package dialog

import "strings"

// Kind enumerates the closed set of decoration formats.
type Kind int

const (
	// KindSpeakerQuote is a `NAME\n「...」` block.
	KindSpeakerQuote Kind = iota
	// KindEscapedName is an inline `\n<NAME>` escape code.
	KindEscapedName
	// KindCapsName is a leading all-caps speaker token such as `ROSE`.
	KindCapsName
	// KindIcon is a leading `\I[123]` icon escape code.
	KindIcon
)

func (k Kind) String() string {
	switch k {
	case KindSpeakerQuote:
		return "speaker-quote"
	case KindEscapedName:
		return "escaped-name"
	case KindCapsName:
		return "caps-name"
	case KindIcon:
		return "icon"
	default:
		return "unknown"
	}
}

// Decoration is a stripped wrapper able to re-apply itself to a translated line.
// Value is the translated speaker name for name kinds and the exact escape code
// for KindIcon.
type Decoration struct {
	Kind  Kind
	Value string
}

// Reapply wraps s the way the original line was wrapped.
func (d Decoration) Reapply(s string) string {
	switch d.Kind {
	case KindSpeakerQuote:
		return d.Value + "\n" + s
	case KindEscapedName:
		return `\n<` + d.Value + ">" + unquote(s)
	case KindCapsName:
		return d.Value + "\n" + unquote(s)
	case KindIcon:
		return d.Value + s
	default:
		panic("dialog: unknown decoration kind")
	}
}

// Speaker returns the speaker name carried by name decorations.
func (d Decoration) Speaker() (string, bool) {
	switch d.Kind {
	case KindSpeakerQuote, KindEscapedName, KindCapsName:
		return d.Value, true
	default:
		return "", false
	}
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "「") && strings.HasSuffix(s, "」") && len(s) >= len("「」") {
		return strings.TrimSuffix(strings.TrimPrefix(s, "「"), "」")
	}
	return s
}
