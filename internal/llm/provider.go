// Package llm is the boundary to the external language model. Callers send a
// system prompt and an ordered, role-tagged message list and get text back.
package llm

import (
	"context"

	"github.com/pavelanni/tutor/internal/model"
)

// Provider generates a text completion for a conversation.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes one model call.
type Request struct {
	// System is the system prompt. Empty means none.
	System string

	// Messages is the conversation, oldest first. Roles alternate between
	// student (user) and tutor (assistant).
	Messages []model.Message

	MaxTokens   int
	Temperature float64
}

// Response holds the model's output.
type Response struct {
	// Text is the concatenation of all text blocks in the reply.
	Text string

	Usage Usage

	// Model is the model that served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// resolveModel maps a friendly model name to a provider model ID.
// Unknown names are passed through as-is.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
