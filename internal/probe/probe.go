// Package probe sends one completion request with the extension's prompt to
// check that a credential works before the browser is involved.
package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/neboloop/extharness/internal/logging"
)

// DefaultPrompt is the extension's built-in prompt. {names} is replaced by
// the newline-joined names.
const DefaultPrompt = `For each of the following healthcare professionals, 
provide their educational background (undergraduate and medical school), 
residency information, and board certifications if available. 
Format the response clearly for each person.

{names}`

// DefaultNames are sent when none are configured.
var DefaultNames = []string{
	"Dr. Sarah Johnson",
	"Dr. Michael Chen",
	"Jane Doe, NP",
}

// Config configures a Client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Prompt  string
}

// Client sends probe requests. Requests are never retried.
type Client struct {
	client openai.Client
	model  string
	prompt string
}

// New creates a Client. The API key is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("probe: API key is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
		prompt: prompt,
	}, nil
}

// BuildPrompt substitutes names into template.
func BuildPrompt(template string, names []string) string {
	return strings.ReplaceAll(template, "{names}", strings.Join(names, "\n"))
}

// Send asks the model about names and returns the reply text.
func (c *Client) Send(ctx context.Context, names []string) (string, error) {
	if len(names) == 0 {
		names = DefaultNames
	}
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(c.prompt, names)),
		},
		Temperature: openai.Float(0.7),
	}

	log := logging.Component("probe")
	log.Info("sending probe request", "model", c.model, "names", len(names))

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("probe request rejected (status %d): %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("probe request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("probe response has no choices")
	}

	log.Info("probe succeeded", "tokens", resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}
