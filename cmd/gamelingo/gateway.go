package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ownlingo/gamelingo/config"
	"github.com/ownlingo/gamelingo/translator"
	"github.com/ownlingo/gamelingo/translator/batch"
	"github.com/ownlingo/gamelingo/translator/fallback"
	"github.com/ownlingo/gamelingo/translator/providers"
	"github.com/ownlingo/gamelingo/translator/providers/anthropic"
	"github.com/ownlingo/gamelingo/translator/providers/gemini"
	"github.com/ownlingo/gamelingo/translator/providers/openai"
	"github.com/ownlingo/gamelingo/translator/tokens"
)

// newOracle sizes requests with tiktoken, or by runes when the encoding is
// unset or cannot be loaded.
func newOracle(t config.Translation) (batch.Oracle, providers.TokenCounter) {
	if t.Encoding == "" {
		return tokens.Chars{Budget: t.Budget}, nil
	}
	tk, err := tokens.NewTiktoken(t.Encoding, t.Budget)
	if err != nil {
		slog.Warn("tiktoken unavailable, counting runes", "encoding", t.Encoding, "err", err)
		return tokens.Chars{Budget: t.Budget}, nil
	}
	return tk, tk
}

// newGateway builds the primary provider wrapped in a fallback chain when
// fallbacks are configured. The returned func releases provider clients.
func newGateway(ctx context.Context, cfg *config.File, counter providers.TokenCounter) (translator.Gateway, func() error, error) {
	var (
		gateways []translator.Gateway
		closers  []func() error
	)
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	for _, p := range append([]config.Provider{cfg.Provider}, cfg.Fallback...) {
		gw, closer, err := newProvider(ctx, p, counter)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		gateways = append(gateways, gw)
		if closer != nil {
			closers = append(closers, closer)
		}
	}

	if len(gateways) == 1 {
		return gateways[0], closeAll, nil
	}
	return fallback.NewChain(gateways...), closeAll, nil
}

func newProvider(ctx context.Context, p config.Provider, counter providers.TokenCounter) (translator.Gateway, func() error, error) {
	key, err := p.APIKey()
	if err != nil {
		return nil, nil, err
	}

	switch p.Name {
	case config.ProviderOpenAI:
		c := openai.DefaultConfig(key)
		c.BaseURL = p.BaseURL
		c.Counter = counter
		overrideModel(&c.Model, &c.TPM, &c.RPM, p)
		return openai.NewProvider(c), nil, nil

	case config.ProviderAnthropic:
		c := anthropic.DefaultConfig(key)
		c.BaseURL = p.BaseURL
		c.Counter = counter
		overrideModel(&c.Model, &c.TPM, &c.RPM, p)
		return anthropic.NewProvider(c), nil, nil

	case config.ProviderGemini:
		c := gemini.DefaultConfig(key)
		c.Counter = counter
		overrideModel(&c.Model, &c.TPM, &c.RPM, p)
		gw, err := gemini.NewProvider(ctx, c)
		if err != nil {
			return nil, nil, err
		}
		return gw, gw.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown provider %q", p.Name)
}

func overrideModel(model *string, tpm, rpm *int, p config.Provider) {
	if p.Model != "" {
		*model = p.Model
	}
	if p.TPM > 0 {
		*tpm = p.TPM
	}
	if p.RPM > 0 {
		*rpm = p.RPM
	}
}
