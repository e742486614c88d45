package batch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ownlingo/gamelingo/translator"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Format selects how a batch is rendered into a request and how the response is read back.
type Format int

const (
	// FormatText joins originals with line breaks; one response line per unit.
	FormatText Format = iota
	// FormatRecords renders a JSON array of {"name"?, "text"} records.
	FormatRecords
)

func (f Format) String() string {
	if f == FormatRecords {
		return "records"
	}
	return "text"
}

// FormatOf returns FormatText only when every unit is plain and single-line,
// since line-joined requests cannot carry speakers or embedded line breaks.
func FormatOf(units []translator.Unit) Format {
	for _, u := range units {
		if u.Kind() != translator.KindPlain || strings.ContainsAny(u.Original(), "\r\n") {
			return FormatRecords
		}
	}
	return FormatText
}

// Render formats units into a request string.
func Render(units []translator.Unit) (string, Format) {
	format := FormatOf(units)
	if format == FormatText {
		parts := make([]string, len(units))
		for i, u := range units {
			parts[i] = u.Original()
		}
		return strings.Join(parts, "\n"), format
	}

	records := make([]string, len(units))
	for i, u := range units {
		rec := "{}"
		if u.Kind() == translator.KindNamed {
			rec, _ = sjson.Set(rec, "name", u.Name())
		}
		rec, _ = sjson.Set(rec, "text", u.Original())
		records[i] = rec
	}
	return "[\n" + strings.Join(records, ",\n") + "\n]", format
}

// Record is one parsed response entry.
type Record struct {
	Name string
	Text string
}

var fencedBlock = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// Parse decodes a response for a batch of expected units. A count mismatch is
// always an error; responses are never truncated or padded.
func Parse(response string, format Format, expected int) ([]Record, error) {
	switch format {
	case FormatText:
		return parseText(response, expected)
	case FormatRecords:
		return parseRecords(response, expected)
	default:
		return nil, fmt.Errorf("%w: unknown format %d", ErrUnparsableResponse, format)
	}
}

func parseText(response string, expected int) ([]Record, error) {
	// One line per unit: only the final line break is dropped, blank lines
	// elsewhere are answers.
	content := strings.TrimSuffix(strings.TrimSuffix(response, "\n"), "\r")
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrUnparsableResponse)
	}
	lines := strings.Split(content, "\n")
	if len(lines) != expected {
		return nil, &SizeMismatchError{Expected: expected, Got: len(lines)}
	}
	records := make([]Record, len(lines))
	for i, line := range lines {
		records[i] = Record{Text: strings.TrimSpace(line)}
	}
	return records, nil
}

func parseRecords(response string, expected int) ([]Record, error) {
	content := strings.TrimSpace(response)
	if m := fencedBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	if !gjson.Valid(content) {
		return nil, fmt.Errorf("%w: invalid JSON: %s", ErrUnparsableResponse, truncate(content, 120))
	}
	root := gjson.Parse(content)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrUnparsableResponse)
	}
	items := root.Array()
	if len(items) != expected {
		return nil, &SizeMismatchError{Expected: expected, Got: len(items)}
	}
	records := make([]Record, len(items))
	for i, item := range items {
		text := item.Get("text")
		if !text.Exists() || text.Type != gjson.String {
			return nil, fmt.Errorf("%w: record %d has no text field", ErrUnparsableResponse, i)
		}
		records[i] = Record{Name: item.Get("name").String(), Text: text.String()}
	}
	return records, nil
}
