// Package names holds the closed source-to-target name dictionary used by
// name-bearing dialog recognizers.
package names

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ErrKeyNotFound is matched by every KeyNotFoundError.
var ErrKeyNotFound = errors.New("name key not found")

// KeyNotFoundError carries the name that has no translation.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("can't find key for %q", e.Key)
}

func (e *KeyNotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}

// Dictionary maps source-language names to target-language names.
// It is read-only after construction and safe for concurrent use.
type Dictionary struct {
	entries map[string]string
	keys    []string // longest first, for ContainsAny
}

// New builds a dictionary. Keys are NFC-normalized.
func New(entries map[string]string) *Dictionary {
	d := &Dictionary{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		d.entries[norm.NFC.String(k)] = v
	}
	d.keys = make([]string, 0, len(d.entries))
	for k := range d.entries {
		d.keys = append(d.keys, k)
	}
	sort.Slice(d.keys, func(i, j int) bool {
		if len(d.keys[i]) != len(d.keys[j]) {
			return len(d.keys[i]) > len(d.keys[j])
		}
		return d.keys[i] < d.keys[j]
	})
	return d
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Lookup returns the translated name or a *KeyNotFoundError.
func (d *Dictionary) Lookup(key string) (string, error) {
	if v, ok := d.entries[norm.NFC.String(key)]; ok {
		return v, nil
	}
	return "", &KeyNotFoundError{Key: key}
}

// ContainsAny returns every dictionary entry whose key occurs in text.
func (d *Dictionary) ContainsAny(text string) map[string]string {
	text = norm.NFC.String(text)
	found := make(map[string]string)
	for _, k := range d.keys {
		if k != "" && strings.Contains(text, k) {
			found[k] = d.entries[k]
		}
	}
	return found
}

// ParseProperties reads `key=value` lines. The value is everything after the
// first '='. Blank lines and lines starting with '#' or '!' are skipped.
func ParseProperties(r io.Reader) (*Dictionary, error) {
	entries := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("names: line %d: missing '='", lineNo)
		}
		entries[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("names: read properties: %w", err)
	}
	return New(entries), nil
}

// ParseYAML reads a flat YAML mapping of name to translated name.
func ParseYAML(r io.Reader) (*Dictionary, error) {
	entries := make(map[string]string)
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("names: decode yaml: %w", err)
	}
	return New(entries), nil
}

// Load reads a dictionary file, choosing the format by extension
// (.yaml/.yml, anything else is treated as properties).
func Load(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("names: open %s: %w", path, err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return ParseYAML(f)
	}
	return ParseProperties(f)
}
