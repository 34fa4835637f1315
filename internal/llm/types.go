package llm

import (
	"context"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Message is one role-tagged chat turn
type Message struct {
	Role    string
	Content string
}

type CompletionOptions struct {
	Temperature float32
	MaxTokens   int
}

// Completer sends a chat conversation to a model and returns the reply text
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)
}

// Classification is the LLM's view of an entry's finance relevance
type Classification struct {
	Score float64
	Label string
}
