// Package openai is the completion gateway for OpenAI and OpenAI-compatible
// chat completion endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ownlingo/gamelingo/translator"
	"github.com/ownlingo/gamelingo/translator/providers"
	"github.com/ownlingo/gamelingo/translator/ratelimit"
	"github.com/ownlingo/gamelingo/translator/retry"
	"github.com/sashabaranov/go-openai"
)

// Provider implements translator.Gateway for OpenAI
type Provider struct {
	client      *openai.Client
	model       string
	temperature float32
	counter     providers.TokenCounter
	rateLimiter *ratelimit.Limiter
	retryConfig *retry.Config
}

// Config holds OpenAI provider configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string // empty means the public API
	Temperature float32
	TPM         int // Tokens per minute
	RPM         int // Requests per minute
	RetryConfig *retry.Config
	// Counter sizes rate limit reservations; nil estimates from rune counts.
	Counter providers.TokenCounter
}

// DefaultConfig returns default OpenAI configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       openai.GPT4o,
		Temperature: 0.3,
		TPM:         90000,
		RPM:         500,
		RetryConfig: retry.DefaultConfig(),
	}
}

// NewProvider creates a new OpenAI provider
func NewProvider(config *Config) *Provider {
	if config == nil {
		panic("config cannot be nil")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Provider{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       config.Model,
		temperature: config.Temperature,
		counter:     config.Counter,
		rateLimiter: ratelimit.NewLimiter(config.TPM, config.RPM),
		retryConfig: config.RetryConfig,
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "openai"
}

// Complete sends one request, waiting for the rate limiter and retrying
// rate-limit and server errors.
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
	var messages []openai.ChatCompletionMessage
	if req.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Text,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: p.temperature,
	})
	if err != nil {
		return nil, providers.Classify(err, statusCode(err))
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai: %w", providers.ErrEmptyResponse)
	}

	return &translator.CompletionResponse{
		Text: resp.Choices[0].Message.Content,
		TokensUsed: translator.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		Cost: translator.Cost{
			Amount:   calculateCost(p.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
			Currency: "USD",
		},
	}, nil
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// calculateCost calculates the cost based on token usage
// Prices are approximate and should be updated based on current OpenAI pricing
func calculateCost(model string, inputTokens, outputTokens int) float64 {
	var inputPrice, outputPrice float64

	switch model {
	case openai.GPT4oMini:
		inputPrice = 0.00015 / 1000
		outputPrice = 0.0006 / 1000
	case openai.GPT4:
		inputPrice = 0.03 / 1000
		outputPrice = 0.06 / 1000
	default:
		inputPrice = 0.005 / 1000
		outputPrice = 0.015 / 1000
	}

	return float64(inputTokens)*inputPrice + float64(outputTokens)*outputPrice
}
