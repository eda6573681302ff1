// Package llm is the language-model call boundary: a minimal chat contract,
// an OpenAI-compatible client, and strict-JSON helpers with bounded repair
// retries. The rest of the system never sees provider details.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrParse signals that a collaborator's output could not be repaired
	// into the expected schema within the attempt budget.
	ErrParse = errors.New("llm output parse failed")
	// ErrRequest signals a transport/provider failure.
	ErrRequest = errors.New("llm request failed")
)

// Client is the chat contract consumed by agents and debate critics.
type Client interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Options configure a chat client.
type Options struct {
	Model       string
	BaseURL     string // empty for api.openai.com; set for compatible providers
	Temperature float32
	MaxTokens   int
}

// ChatClient calls an OpenAI-compatible chat completion endpoint.
type ChatClient struct {
	client *openai.Client
	opts   Options
}

// NewChatClient builds a client for any OpenAI-compatible provider.
func NewChatClient(apiKey string, opts Options) *ChatClient {
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	return &ChatClient{client: openai.NewClientWithConfig(cfg), opts: opts}
}

func (c *ChatClient) Chat(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.opts.Model,
		Temperature: c.opts.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if c.opts.MaxTokens > 0 {
		req.MaxTokens = c.opts.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if len(resp.Choices) == 0 {
		log.Warn().Str("model", c.opts.Model).Msg("chat completion returned no choices")
		return "", fmt.Errorf("%w: no choices", ErrRequest)
	}
	return resp.Choices[0].Message.Content, nil
}
