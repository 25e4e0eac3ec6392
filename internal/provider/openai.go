package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for an OpenAI-compatible service.
// A custom BaseURL serves local OpenAI-compatible endpoints (vLLM,
// Ollama's compatibility API) as well.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// OpenAIProvider implements Provider over the OpenAI chat completion API.
type OpenAIProvider struct {
	name   string
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAIProvider creates an OpenAI-compatible provider.
func NewOpenAIProvider(name string, config OpenAIConfig) (*OpenAIProvider, error) {
	if config.APIKey == "" && config.BaseURL == "" {
		return nil, errors.New("openai: api_key is required")
	}
	if config.Model == "" {
		return nil, errors.New("openai: model is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	clientCfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientCfg.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		name:   name,
		client: openai.NewClientWithConfig(clientCfg),
		config: config,
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return p.name }

// Models returns the configured model.
func (p *OpenAIProvider) Models() []string { return []string{p.config.Model} }

func (p *OpenAIProvider) buildRequest(req Request, stream bool) openai.ChatCompletionRequest {
	temperature := p.config.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	maxTokens := p.config.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	return openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
		Stream:      stream,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
}

// Generate sends a blocking completion request.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("openai: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty response")
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// GenerateStream sends a streaming completion request.
func (p *OpenAIProvider) GenerateStream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	streamCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)

	stream, err := p.client.CreateChatCompletionStream(streamCtx, p.buildRequest(req, true))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("openai: stream failed: %w", err)
	}

	events := make(chan StreamEvent, 16)
	go func() {
		defer close(events)
		defer cancel()
		defer stream.Close()

		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				events <- StreamEvent{Done: true}
				return
			}
			if err != nil {
				events <- StreamEvent{Done: true, Err: fmt.Errorf("openai: stream recv: %w", err)}
				return
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				select {
				case events <- StreamEvent{Delta: chunk.Choices[0].Delta.Content}:
				case <-streamCtx.Done():
					events <- StreamEvent{Done: true, Err: streamCtx.Err()}
					return
				}
			}
		}
	}()

	return events, nil
}
