// Package agent holds the LLM-backed specialist agents: security scanner,
// code quality checker, unit test generator, and the debugging fix generator
// used by the repair loop. The rest of the system treats these as opaque
// collaborators behind small interfaces; everything Anthropic-specific lives
// here.
package agent

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Model selection is tiered by task complexity: the default model handles
// analysis and fix generation, the simple model handles cheap formatting
// tasks. Both can be overridden by environment variable.
const (
	// ModelDefault is the model for analysis and fix generation.
	ModelDefault = "claude-sonnet-4-5-20250929"

	// ModelSimple is the cost-efficient model for simple tasks.
	ModelSimple = "claude-3-5-haiku-20241022"
)

// GetDefaultModel returns the default model, honoring FIXPOINT_MODEL.
func GetDefaultModel() string {
	if model := os.Getenv("FIXPOINT_MODEL"); model != "" {
		return model
	}
	return ModelDefault
}

// modelPricing maps models to USD cost per million tokens (input, output).
// Used only for the estimates recorded in the usage log.
var modelPricing = map[string]struct{ In, Out float64 }{
	ModelDefault: {In: 3.00, Out: 15.00},
	ModelSimple:  {In: 0.80, Out: 4.00},
}

// UsageRecorder receives per-call token usage for cost tracking. Optional;
// recording failures are logged to stderr, never propagated.
type UsageRecorder interface {
	RecordAgentUsage(ctx context.Context, agent, action string, inputTokens, outputTokens int64, costUSD float64, duration time.Duration, status string) error
}

// Client is the shared LLM client behind every specialist agent. A single
// client is constructed at process start and injected wherever needed; there
// is no package-level instance.
type Client struct {
	client  *anthropic.Client
	model   string
	retry   RetryConfig
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	usage   UsageRecorder
}

// Config holds agent client configuration.
type Config struct {
	// APIKey for the Anthropic API. Empty reads ANTHROPIC_API_KEY.
	APIKey string
	// Model override; empty uses GetDefaultModel().
	Model string
	// Retry configuration; zero value uses DefaultRetryConfig().
	Retry RetryConfig
	// RequestsPerMinute caps the API call rate. Zero means 30.
	RequestsPerMinute int
	// MaxConcurrent caps in-flight API calls. Zero means 3.
	MaxConcurrent int
	// Usage optionally records per-call token usage.
	Usage UsageRecorder
}

// NewClient creates the shared agent client.
func NewClient(cfg *Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = GetDefaultModel()
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxRetries == 0 {
		retryCfg = DefaultRetryConfig()
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		client:  &client,
		model:   model,
		retry:   retryCfg,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), maxConcurrent),
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		usage:   cfg.Usage,
	}, nil
}

// complete sends one prompt and returns the response text. All specialist
// methods funnel through here so rate limiting, concurrency capping, retry,
// and usage recording apply uniformly.
func (c *Client) complete(ctx context.Context, agentName, action, prompt string, maxTokens int64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait canceled: %w", err)
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("failed to acquire API slot: %w", err)
	}
	defer c.sem.Release(1)

	start := time.Now()
	var response *anthropic.Message
	err := retryWithBackoff(ctx, c.retry, action, func(attemptCtx context.Context) error {
		resp, apiErr := c.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		c.recordUsage(ctx, agentName, action, 0, 0, duration, "error")
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	c.recordUsage(ctx, agentName, action,
		response.Usage.InputTokens, response.Usage.OutputTokens, duration, "success")
	return text, nil
}

func (c *Client) recordUsage(ctx context.Context, agentName, action string, inputTokens, outputTokens int64, duration time.Duration, status string) {
	if c.usage == nil {
		return
	}
	cost := 0.0
	if pricing, ok := modelPricing[c.model]; ok {
		cost = float64(inputTokens)/1e6*pricing.In + float64(outputTokens)/1e6*pricing.Out
	}
	if err := c.usage.RecordAgentUsage(ctx, agentName, action, inputTokens, outputTokens, cost, duration, status); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record agent usage: %v\n", err)
	}
}
