package providers

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/schema"
)

// Params are the raw values needed to construct a completion provider.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	APIKey       string
	APIBase      string
	ExtraHeaders map[string]string
	DefaultModel string
	ProviderName string // registry name, e.g. "deepseek", "openrouter"
	Timeout      time.Duration
	MaxRetries   int
	Backoff      time.Duration
	Logger       *zap.Logger
}

// New creates the completion provider for p. A missing API key is read
// from the provider's environment variable.
func New(p Params) schema.CompletionProvider {
	p.APIKey = ResolveAPIKey(p.ProviderName, p.APIKey)
	return NewOpenAIProvider(p)
}

// ResolveAPIKey returns configured, or the value of the named provider's
// EnvKey when configured is empty.
func ResolveAPIKey(providerName, configured string) string {
	if configured != "" {
		return configured
	}
	if spec := FindByName(providerName); spec != nil && spec.EnvKey != "" {
		return os.Getenv(spec.EnvKey)
	}
	return ""
}
