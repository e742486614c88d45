// Package anthropic is the completion gateway for the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ownlingo/gamelingo/translator"
	"github.com/ownlingo/gamelingo/translator/providers"
	"github.com/ownlingo/gamelingo/translator/ratelimit"
	"github.com/ownlingo/gamelingo/translator/retry"
)

// DefaultMaxTokens caps the length of one answer.
const DefaultMaxTokens = 4096

// Provider implements translator.Gateway for Anthropic
type Provider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	counter     providers.TokenCounter
	rateLimiter *ratelimit.Limiter
	retryConfig *retry.Config
}

// Config holds Anthropic provider configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	TPM         int // Tokens per minute
	RPM         int // Requests per minute
	RetryConfig *retry.Config
	Counter     providers.TokenCounter
}

// DefaultConfig returns default Anthropic configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "claude-sonnet-4-20250514",
		MaxTokens:   DefaultMaxTokens,
		TPM:         80000,
		RPM:         50,
		RetryConfig: retry.DefaultConfig(),
	}
}

// NewProvider creates a new Anthropic provider
func NewProvider(config *Config) *Provider {
	if config == nil {
		panic("config cannot be nil")
	}

	// Retries are ours; the SDK would otherwise retry underneath the limiter.
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &Provider{
		client:      anthropic.NewClient(opts...),
		model:       config.Model,
		maxTokens:   int64(maxTokens),
		counter:     config.Counter,
		rateLimiter: ratelimit.NewLimiter(config.TPM, config.RPM),
		retryConfig: config.RetryConfig,
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "anthropic"
}

// Complete sends one request, waiting for the rate limiter and retrying
// rate-limit, overload and server errors.
func (p *Provider) Complete(ctx context.Context, req *translator.CompletionRequest) (*translator.CompletionResponse, error) {
	start := time.Now()

	var response *translator.CompletionResponse
	err := retry.Do(ctx, p.retryConfig, func(int) error {
		if err := p.rateLimiter.Wait(ctx, providers.EstimateTokens(p.counter, req)); err != nil {
			return err
		}

		resp, err := p.complete(ctx, req)
		if err != nil {
			return err
		}
		response = resp
		return nil
	})
	if err != nil {
		return nil, &translator.TransportError{Provider: p.Name(), Err: err}
	}

	response.Duration = time.Since(start)
	response.Provider = p.Name()
	return response, nil
}

func (p *Provider) complete(ctx context.Context, req *translator.CompletionRequest) (*translator.CompletionResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Text)),
		},
	}
	if req.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemInstruction}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, providers.Classify(err, statusCode(err))
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("anthropic: %w", providers.ErrEmptyResponse)
	}

	in, out := int(message.Usage.InputTokens), int(message.Usage.OutputTokens)
	return &translator.CompletionResponse{
		Text: sb.String(),
		TokensUsed: translator.TokenUsage{
			InputTokens:  in,
			OutputTokens: out,
			TotalTokens:  in + out,
		},
		Cost: translator.Cost{
			Amount:   calculateCost(p.model, in, out),
			Currency: "USD",
		},
	}, nil
}

func statusCode(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// calculateCost calculates the cost based on token usage
// Prices are approximate and should be updated based on current Anthropic pricing
func calculateCost(model string, inputTokens, outputTokens int) float64 {
	var inputPrice, outputPrice float64

	switch {
	case strings.Contains(model, "opus"):
		inputPrice = 0.015 / 1000
		outputPrice = 0.075 / 1000
	case strings.Contains(model, "haiku"):
		inputPrice = 0.0008 / 1000
		outputPrice = 0.004 / 1000
	default:
		inputPrice = 0.003 / 1000
		outputPrice = 0.015 / 1000
	}

	return float64(inputTokens)*inputPrice + float64(outputTokens)*outputPrice
}
