// Package completion adapts an OpenAI-compatible chat completion API to the chat flow.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/localnerve/botdesk/internal/config"
	"github.com/localnerve/botdesk/internal/models"
	"github.com/localnerve/botdesk/internal/services"
	"github.com/sashabaranov/go-openai"
)

// DefaultModel is used when COMPLETION_MODEL is unset
const DefaultModel = "gpt-4o-mini"

// providerLimitText is what the provider reports when the account's message allowance
// is spent
const providerLimitText = "Message limit reached"

// Client calls the chat completion endpoint
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewClient creates a Client from the completion settings in cfg
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.CompletionAPIKey == "" {
		return nil, errors.New("completion API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.CompletionAPIKey)
	if cfg.CompletionBaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.CompletionBaseURL, "/")
	}

	model := cfg.CompletionModel
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.CompletionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}, nil
}

// Complete sends the system prompt, the prior turns and message, and returns the first
// choice's content
func (c *Client) Complete(ctx context.Context, systemPrompt string, history []models.Turn, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: BuildMessages(systemPrompt, history, message),
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", services.ErrUpstream)
	}

	return resp.Choices[0].Message.Content, nil
}

// BuildMessages lays out the prompt: system prompt first when set, then the history in
// order, then the new user message
func BuildMessages(systemPrompt string, history []models.Turn, message string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, turn := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role(turn.Sender),
			Content: turn.Text,
		})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})
}

func role(sender string) string {
	if sender == models.SenderBot {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}

// classify maps a transport or API error onto the upstream sentinels
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Message, providerLimitText) {
		return fmt.Errorf("%w: %s", services.ErrUpstreamLimit, apiErr.Message)
	}
	if strings.Contains(err.Error(), providerLimitText) {
		return fmt.Errorf("%w: %v", services.ErrUpstreamLimit, err)
	}
	return fmt.Errorf("%w: %v", services.ErrUpstream, err)
}
