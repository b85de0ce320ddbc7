package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ExternalServiceError wraps any failure of the completion call: network,
// auth, rate-limit, timeout, malformed response. It is surfaced to the user
// inline; there is no retry and no fallback text.
type ExternalServiceError struct {
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service error: %v", e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Generator calls the external LLM completion endpoint with a fixed model
// and temperature. A missing API key does not prevent construction; it
// degrades every call into an ExternalServiceError.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// Options configure the generator; zero values fall back to the fixed
// defaults used by the dashboard.
type Options struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
	BaseURL     string // overridable for tests
}

const (
	defaultModel       = "gpt-4o-mini"
	defaultTemperature = 0.6
	defaultTimeout     = 30 * time.Second
)

func NewGenerator(opts Options) *Generator {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}

	var client *openai.Client
	if opts.APIKey != "" {
		cfg := openai.DefaultConfig(opts.APIKey)
		if opts.BaseURL != "" {
			cfg.BaseURL = opts.BaseURL
		}
		client = openai.NewClientWithConfig(cfg)
	} else {
		slog.Warn("LLM API key not configured, insight generation will fail")
	}

	return &Generator{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
	}
}

// Complete sends the prompt as a single user-role message and returns the
// completion text verbatim. The call blocks the interaction; a timeout is
// treated like any other ExternalServiceError.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", &ExternalServiceError{Err: errors.New("LLM API key not configured")}
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(cctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "Completion request failed", "model", g.model, "error", err)
		return "", &ExternalServiceError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ExternalServiceError{Err: errors.New("completion response contained no choices")}
	}

	slog.InfoContext(ctx, "Completion received",
		"model", g.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}
