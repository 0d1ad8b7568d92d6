// Package ai calls OpenRouter's OpenAI-compatible chat-completions endpoint
// to obtain structured board mutations for the assistant feature.
package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"kanban-api/domain"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultModel      = "openai/gpt-oss-120b"
	requestTimeout    = 20 * time.Second
)

// ErrMissingAPIKey means the provider was started without an API key; the
// request fails with a misconfiguration error before any network call.
var ErrMissingAPIKey = errors.New("missing openrouter api key")

// UpstreamError wraps transport and protocol failures from OpenRouter.
// Detail is the stable string surfaced in the 502 response body.
type UpstreamError struct {
	Detail string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Config holds provider settings. Zero values fall back to the OpenRouter
// endpoint and the default model.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client is the completion provider for the AI board route.
type Client struct {
	api   *openai.Client
	model string
	key   string
}

// New creates a client. A missing API key is not an error here; Complete
// reports it per request so the rest of the service can run without one.
func New(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = openRouterBaseURL
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	return &Client{api: openai.NewClientWithConfig(apiCfg), model: model, key: cfg.APIKey}
}

// Complete sends the system prompt and conversation history and returns the
// raw completion text. The caller validates it; nothing here inspects the
// payload beyond checking it is non-empty.
func (c *Client) Complete(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (string, error) {
	if c.key == "" {
		return "", ErrMissingAPIKey
	}

	chat := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chat = append(chat, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	for _, m := range messages {
		chat = append(chat, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: chat,
		// The client omits a zero temperature from the request body; the
		// smallest representable value keeps decoding deterministic.
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{Detail: fmt.Sprintf("openrouter_error:%d", apiErr.HTTPStatusCode), Err: err}
		}
		return "", &UpstreamError{Detail: "upstream_error", Err: err}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &UpstreamError{Detail: "openrouter_empty_response"}
	}
	return resp.Choices[0].Message.Content, nil
}
