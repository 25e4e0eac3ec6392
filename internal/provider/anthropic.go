package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicConfig holds configuration for the Anthropic service.
type AnthropicConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// AnthropicProvider implements Provider over the Anthropic messages API.
type AnthropicProvider struct {
	name   string
	client anthropic.Client
	config AnthropicConfig
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(name string, config AnthropicConfig) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic: api_key is required")
	}
	if config.Model == "" {
		return nil, errors.New("anthropic: model is required")
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if strings.TrimSpace(config.BaseURL) != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicProvider{
		name:   name,
		client: anthropic.NewClient(options...),
		config: config,
	}, nil
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string { return p.name }

// Models returns the configured model.
func (p *AnthropicProvider) Models() []string { return []string{p.config.Model} }

func (p *AnthropicProvider) buildParams(req Request) anthropic.MessageNewParams {
	maxTokens := p.config.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}

	temperature := p.config.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(temperature)
	}

	return params
}

// Generate sends a blocking completion request.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	message, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic: completion failed: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Response{
		Content: text.String(),
		Usage: &Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}, nil
}

// GenerateStream sends a streaming completion request.
func (p *AnthropicProvider) GenerateStream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	streamCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)

	stream := p.client.Messages.NewStreaming(streamCtx, p.buildParams(req))

	events := make(chan StreamEvent, 16)
	go func() {
		defer close(events)
		defer cancel()
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			if event.Type != "content_block_delta" {
				continue
			}
			delta := event.AsContentBlockDelta().Delta
			if delta.Type == "text_delta" && delta.Text != "" {
				select {
				case events <- StreamEvent{Delta: delta.Text}:
				case <-streamCtx.Done():
					events <- StreamEvent{Done: true, Err: streamCtx.Err()}
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			events <- StreamEvent{Done: true, Err: fmt.Errorf("anthropic: stream: %w", err)}
			return
		}
		events <- StreamEvent{Done: true}
	}()

	return events, nil
}
