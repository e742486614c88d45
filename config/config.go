// Package config loads the gamelingo YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "gamelingo.yaml"

// Provider names understood by the CLI.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// File is the top-level gamelingo.yaml structure.
type File struct {
	// Provider is the primary completion gateway.
	Provider Provider `yaml:"provider"`
	// Fallback gateways are tried in order when the primary fails.
	Fallback []Provider `yaml:"fallback,omitempty"`

	Translation Translation `yaml:"translation"`
	Summary     Summary     `yaml:"summary"`

	// Names is a .properties or .yaml name dictionary.
	Names string `yaml:"names,omitempty"`
	// Lore lists plain text files added to every system instruction.
	Lore []string `yaml:"lore,omitempty"`
	// Cache is the sqlite database holding line translations across runs.
	Cache string `yaml:"cache,omitempty"`
}

// Provider configures one completion gateway.
type Provider struct {
	Name    string `yaml:"name"`
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	TPM       int    `yaml:"tpm,omitempty"`
	RPM       int    `yaml:"rpm,omitempty"`
}

// APIKey reads the provider key from the environment.
func (p Provider) APIKey() (string, error) {
	key := os.Getenv(p.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("provider %s: %s is not set", p.Name, p.APIKeyEnv)
	}
	return key, nil
}

// Translation holds the batching and book options.
type Translation struct {
	Language string  `yaml:"language"`
	Limit    float64 `yaml:"limit,omitempty"`
	Attempts int     `yaml:"attempts,omitempty"`
	// Encoding is the tiktoken encoding sizing requests; empty counts runes.
	Encoding    string        `yaml:"encoding,omitempty"`
	Budget      int           `yaml:"budget,omitempty"`
	ChunkLines  int           `yaml:"chunk_lines,omitempty"`
	Concurrency int           `yaml:"concurrency,omitempty"`
	CallTimeout time.Duration `yaml:"call_timeout,omitempty"`

	ParagraphSeparator string `yaml:"paragraph_separator,omitempty"`
	SentenceBoundary   string `yaml:"sentence_boundary,omitempty"`
}

// Summary controls the rolling summary kept per book.
type Summary struct {
	Enabled   bool `yaml:"enabled"`
	MaxLength int  `yaml:"max_length,omitempty"`
}

var defaultKeyEnv = map[string]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderGemini:    "GEMINI_API_KEY",
}

// Default returns the built-in defaults before validation; API key
// variables are filled in by Parse.
func Default() *File {
	return &File{
		Provider: Provider{Name: ProviderOpenAI},
		Translation: Translation{
			Language:    "Russian",
			Limit:       0.8,
			Attempts:    3,
			Encoding:    "cl100k_base",
			Budget:      8192,
			ChunkLines:  50,
			Concurrency: 1,
		},
	}
}

// Load reads and validates the config at path. Relative file paths inside
// the config are resolved against its directory. A missing file yields
// the defaults.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Parse(nil)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.resolve(filepath.Dir(path))
	return f, nil
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (*File, error) {
	f := Default()
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, err
	}
	if err := f.normalize(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) normalize() error {
	providers := []*Provider{&f.Provider}
	for i := range f.Fallback {
		providers = append(providers, &f.Fallback[i])
	}
	for _, p := range providers {
		p.Name = strings.ToLower(strings.TrimSpace(p.Name))
		env, ok := defaultKeyEnv[p.Name]
		if !ok {
			return fmt.Errorf("unknown provider %q", p.Name)
		}
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = env
		}
	}

	t := &f.Translation
	if t.Limit <= 0 || t.Limit > 1 {
		return fmt.Errorf("translation.limit must be in (0, 1], got %v", t.Limit)
	}
	if t.Attempts < 1 {
		return fmt.Errorf("translation.attempts must be >= 1, got %d", t.Attempts)
	}
	if t.Budget < 1 {
		return fmt.Errorf("translation.budget must be >= 1, got %d", t.Budget)
	}
	if t.ChunkLines < 1 || t.Concurrency < 1 {
		return errors.New("translation.chunk_lines and translation.concurrency must be >= 1")
	}
	return nil
}

func (f *File) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	f.Names = abs(f.Names)
	f.Cache = abs(f.Cache)
	for i := range f.Lore {
		f.Lore[i] = abs(f.Lore[i])
	}
}
