package dialog

import (
	"regexp"
	"strings"

	"github.com/ownlingo/gamelingo/translator/names"
)

var (
	escapedNamePattern = regexp.MustCompile(`\\n<([^>]+)>`)
	capsNamePattern    = regexp.MustCompile(`^[A-Z]{3,}\s*`)
	iconPattern        = regexp.MustCompile(`^\\{2,4}[Ii]\[\d+\]\s*`)
)

// Recognizer detects one decoration format. The set of formats is closed;
// construct recognizers with SpeakerQuote, EscapedName, CapsName or Icon.
type Recognizer struct {
	kind  Kind
	names *names.Dictionary
}

// SpeakerQuote recognizes `NAME\n「...」` and translates NAME through dict.
func SpeakerQuote(dict *names.Dictionary) Recognizer {
	return Recognizer{kind: KindSpeakerQuote, names: dict}
}

// EscapedName recognizes an inline `\n<NAME>` code and translates NAME through dict.
func EscapedName(dict *names.Dictionary) Recognizer {
	return Recognizer{kind: KindEscapedName, names: dict}
}

// CapsName recognizes a leading all-caps speaker token, kept verbatim.
func CapsName() Recognizer {
	return Recognizer{kind: KindCapsName}
}

// Icon recognizes a leading `\I[n]` icon code, kept verbatim.
func Icon() Recognizer {
	return Recognizer{kind: KindIcon}
}

// Kind returns the decoration kind this recognizer produces.
func (r Recognizer) Kind() Kind {
	return r.kind
}

// TryExtract attempts to strip the decoration from line. It reports ok=false
// when the pattern is absent and returns a *names.KeyNotFoundError when a
// speaker name has no translation.
func (r Recognizer) TryExtract(line string) (dec Decoration, cleaned string, ok bool, err error) {
	switch r.kind {
	case KindSpeakerQuote:
		return r.speakerQuote(line)
	case KindEscapedName:
		return r.escapedName(line)
	case KindCapsName:
		return capsName(line)
	case KindIcon:
		return icon(line)
	default:
		panic("dialog: unknown recognizer kind")
	}
}

func (r Recognizer) speakerQuote(line string) (Decoration, string, bool, error) {
	split := strings.IndexByte(line, '\n')
	open := strings.Index(line, "「")
	if split == -1 || split+1 != open {
		return Decoration{}, "", false, nil
	}
	name, err := r.lookup(line[:split])
	if err != nil {
		return Decoration{}, "", false, err
	}
	body := line[open+len("「"):]
	body = strings.TrimSuffix(body, "」")
	return Decoration{Kind: KindSpeakerQuote, Value: name}, "「" + strings.TrimSpace(body) + "」", true, nil
}

func (r Recognizer) escapedName(line string) (Decoration, string, bool, error) {
	loc := escapedNamePattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return Decoration{}, "", false, nil
	}
	name, err := r.lookup(line[loc[2]:loc[3]])
	if err != nil {
		return Decoration{}, "", false, err
	}
	return Decoration{Kind: KindEscapedName, Value: name}, `"` + line[:loc[0]] + line[loc[1]:] + `"`, true, nil
}

func capsName(line string) (Decoration, string, bool, error) {
	loc := capsNamePattern.FindStringIndex(line)
	if loc == nil {
		return Decoration{}, "", false, nil
	}
	name := strings.TrimSpace(line[loc[0]:loc[1]])
	return Decoration{Kind: KindCapsName, Value: name}, `"` + line[loc[1]:] + `"`, true, nil
}

func icon(line string) (Decoration, string, bool, error) {
	loc := iconPattern.FindStringIndex(line)
	if loc == nil {
		return Decoration{}, "", false, nil
	}
	return Decoration{Kind: KindIcon, Value: line[:loc[1]]}, line[loc[1]:], true, nil
}

func (r Recognizer) lookup(key string) (string, error) {
	if r.names == nil {
		return "", &names.KeyNotFoundError{Key: key}
	}
	return r.names.Lookup(key)
}
