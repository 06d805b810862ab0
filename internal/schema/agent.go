package schema

// AgentSettings are the per-request knobs the chat loop passes to the provider.
type AgentSettings struct {
	Name          string
	Model         string
	Temperature   float64
	MaxTokens     int
	ContextWindow int
}

func NewAgentSettings(name, model string, temperature float64, maxTokens, contextWindow int) AgentSettings {
	return AgentSettings{
		Name:          name,
		Model:         model,
		Temperature:   temperature,
		MaxTokens:     maxTokens,
		ContextWindow: contextWindow,
	}
}
