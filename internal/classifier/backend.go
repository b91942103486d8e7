package classifier

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/qaforge/backend/internal/metrics"
	"github.com/qaforge/backend/pkg/circuitbreaker"
	"github.com/qaforge/backend/pkg/logger"
)

// Backend is one independently-addressable classifier. A failing backend
// degrades to a rejected vote; it never takes the ensemble down with it.
type Backend interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// BackendOptions configures one chat-completion backend on an
// OpenAI-compatible endpoint.
type BackendOptions struct {
	Name        string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	// JSONMode requests a json_object response; off for models that reject
	// the parameter.
	JSONMode bool
}

type chatBackend struct {
	name        string
	model       string
	client      *openai.Client
	temperature float32
	topP        float32
	maxTokens   int
	timeout     time.Duration
	jsonMode    bool
	cb          *circuitbreaker.CircuitBreaker
}

func NewChatBackend(opts BackendOptions) Backend {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	if opts.Temperature == 0 {
		opts.Temperature = 0.2
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 200
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	cb := circuitbreaker.NewCircuitBreaker(opts.Name, circuitbreaker.Config{
		Timeout:          time.Minute,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	logger.Info("Classifier backend initialized",
		zap.String("backend", opts.Name),
		zap.String("model", opts.Model),
		zap.Bool("json_mode", opts.JSONMode),
	)

	return &chatBackend{
		name:        opts.Name,
		model:       opts.Model,
		client:      openai.NewClientWithConfig(cfg),
		temperature: opts.Temperature,
		topP:        0.95,
		maxTokens:   opts.MaxTokens,
		timeout:     opts.Timeout,
		jsonMode:    opts.JSONMode,
		cb:          cb,
	}
}

func (b *chatBackend) Name() string {
	return b.name
}

func (b *chatBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: b.temperature,
		TopP:        b.topP,
		MaxTokens:   b.maxTokens,
	}
	if b.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	started := time.Now()

	var content string
	err := b.cb.Execute(ctx, func() error {
		resp, err := b.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return fmt.Errorf("completion request failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("completion returned no choices")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})

	metrics.BackendCallDuration.WithLabelValues(b.name).Observe(time.Since(started).Seconds())

	if err != nil {
		return "", err
	}

	logger.Debug("Backend responded",
		zap.String("backend", b.name),
		zap.Int("response_length", len(content)),
	)

	return content, nil
}
