package schema

import "context"

// ChatOptions configures a single completion request.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// JSONMode asks the provider for its structured-output mode
	// (response_format json_object) when it has one.
	JSONMode bool
}

func NewChatOptions(model string, maxTokens int, temperature float64) ChatOptions {
	return ChatOptions{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		JSONMode:    true,
	}
}

// CompletionProvider turns a conversation into raw model text.
// Transport concerns (timeouts, retries, backoff) belong to the implementation.
type CompletionProvider interface {
	Complete(ctx context.Context, messages Messages, opts ChatOptions) (string, error)
	DefaultModel() string
}
