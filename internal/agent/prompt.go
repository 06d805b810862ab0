package agent

import "fmt"

// ConfusedReply is said when the model's output carries no reply.
const ConfusedReply = "Sorry, I'm a bit confused right now. Could you say that again?"

// PromptSource supplies the system prompt for each request.
type PromptSource interface {
	SystemPrompt() string
}

// StaticPrompt is a fixed system prompt.
type StaticPrompt string

func (p StaticPrompt) SystemPrompt() string { return string(p) }

// UserPrompt wraps a chat line in the instruction that closes every request.
func UserPrompt(text string) string {
	return fmt.Sprintf(`Reply in JSON (must contain "reply" and "action" fields): %s`, text)
}
