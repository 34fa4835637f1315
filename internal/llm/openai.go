package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var _ Completer = (*OpenAIClient)(nil)

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint (DeepSeek by default)
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, baseURL, model string, httpClient *http.Client) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = resolveBaseURL(baseURL)
	}
	if httpClient != nil {
		config.HTTPClient = httpClient
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// resolveBaseURL accepts a host, a /v1 root, or a full chat/completions endpoint
// and returns the /v1 root the client appends its paths to.
func resolveBaseURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")

	if i := strings.Index(u, "/chat/completions"); i >= 0 {
		return u[:i]
	}
	if strings.HasSuffix(u, "/v1") {
		return u
	}
	return u + "/v1"
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
