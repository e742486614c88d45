// Package gemini is the completion gateway for Google Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/ownlingo/gamelingo/translator"
	"github.com/ownlingo/gamelingo/translator/providers"
	"github.com/ownlingo/gamelingo/translator/ratelimit"
	"github.com/ownlingo/gamelingo/translator/retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Provider implements translator.Gateway for Google Gemini
type Provider struct {
	client      *genai.Client
	modelName   string
	temperature float32
	counter     providers.TokenCounter
	rateLimiter *ratelimit.Limiter
	retryConfig *retry.Config
}

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	TPM         int // Tokens per minute
	RPM         int // Requests per minute
	RetryConfig *retry.Config
	Counter     providers.TokenCounter
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "gemini-1.5-pro",
		Temperature: 0.3,
		TPM:         32000,
		RPM:         60,
		RetryConfig: retry.DefaultConfig(),
	}
}

// NewProvider creates a new Gemini provider
func NewProvider(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Provider{
		client:      client,
		modelName:   config.Model,
		temperature: config.Temperature,
		counter:     config.Counter,
		rateLimiter: ratelimit.NewLimiter(config.TPM, config.RPM),
		retryConfig: config.RetryConfig,
	}, nil
}

// Close closes the Gemini client
func (p *Provider) Close() error {
	return p.client.Close()
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "gemini"
}

// Complete sends one request, waiting for the rate limiter and retrying
// quota and server errors.
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
	// A model per call: runs for different books send different system
	// instructions concurrently.
	model := p.client.GenerativeModel(p.modelName)
	model.SetTemperature(p.temperature)
	if req.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemInstruction))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Text))
	if err != nil {
		return nil, providers.Classify(err, statusCode(err))
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("gemini: %w", providers.ErrEmptyResponse)
	}

	var inputTokens, outputTokens int
	if resp.UsageMetadata != nil {
		inputTokens = int(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &translator.CompletionResponse{
		Text: text,
		TokensUsed: translator.TokenUsage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			TotalTokens:  inputTokens + outputTokens,
		},
		Cost: translator.Cost{
			Amount:   calculateCost(p.modelName, inputTokens, outputTokens),
			Currency: "USD",
		},
	}, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// calculateCost calculates the cost based on token usage
// Prices are approximate and should be updated based on current Google pricing
func calculateCost(model string, inputTokens, outputTokens int) float64 {
	var inputPrice, outputPrice float64

	switch {
	case strings.Contains(model, "flash"):
		inputPrice = 0.000075 / 1000
		outputPrice = 0.0003 / 1000
	default:
		inputPrice = 0.00125 / 1000
		outputPrice = 0.005 / 1000
	}

	return float64(inputTokens)*inputPrice + float64(outputTokens)*outputPrice
}
