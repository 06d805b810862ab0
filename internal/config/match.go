package config

import (
	"strings"

	"github.com/crystaldolphin/blockhand/internal/providers"
)

// MatchResult is the resolved provider config and registry name for a model.
type MatchResult struct {
	Provider *ProviderConfig
	Name     string // e.g. "deepseek", "openrouter"
	APIKey   string // configured key, or the provider's environment variable
}

// MatchProvider resolves which provider config and registry entry to use.
// If model is empty, agent.model is used.
//
// Priority order:
//  1. agent.provider when set
//  2. Explicit provider prefix in model string (e.g. "deepseek/deepseek-chat" → deepseek)
//  3. Keyword match in model name (registry order)
//  4. Fallback: first provider with a key
//
// Steps 2 to 4 only consider providers that have a key, either in the file
// or in the environment.
func (c *Config) MatchProvider(model string) MatchResult {
	if model == "" {
		model = c.Agent.Model
	}
	if name := c.Agent.Provider; name != "" {
		if p := c.ProviderByName(name); p != nil {
			return MatchResult{Provider: p, Name: name, APIKey: providers.ResolveAPIKey(name, p.APIKey)}
		}
	}

	modelLower := strings.ToLower(model)
	modelNorm := strings.ReplaceAll(modelLower, "-", "_")
	modelPrefix, _, _ := strings.Cut(modelLower, "/")
	normalizedPrefix := strings.ReplaceAll(modelPrefix, "-", "_")

	kwMatches := func(kw string) bool {
		kw = strings.ToLower(kw)
		kwNorm := strings.ReplaceAll(kw, "-", "_")
		return strings.Contains(modelLower, kw) || strings.Contains(modelNorm, kwNorm)
	}

	type candidate struct {
		spec providers.ProviderSpec
		cfg  *ProviderConfig
		key  string
	}
	var keyed []candidate
	for _, spec := range providers.PROVIDERS {
		p := c.ProviderByName(spec.Name)
		if p == nil {
			continue
		}
		if key := providers.ResolveAPIKey(spec.Name, p.APIKey); key != "" {
			keyed = append(keyed, candidate{spec: spec, cfg: p, key: key})
		}
	}
	result := func(cd candidate) MatchResult {
		return MatchResult{Provider: cd.cfg, Name: cd.spec.Name, APIKey: cd.key}
	}

	// 2. Explicit provider prefix wins.
	for _, cd := range keyed {
		if modelPrefix != "" && normalizedPrefix == cd.spec.Name {
			return result(cd)
		}
	}

	// 3. Keyword match.
	for _, cd := range keyed {
		for _, kw := range cd.spec.Keywords {
			if kwMatches(kw) {
				return result(cd)
			}
		}
	}

	// 4. Fallback: first configured provider.
	if len(keyed) > 0 {
		return result(keyed[0])
	}
	return MatchResult{}
}

// ProviderParams builds the constructor input for providers.New.
func (c *Config) ProviderParams() providers.Params {
	m := c.MatchProvider("")
	p := providers.Params{
		APIKey:       m.APIKey,
		DefaultModel: c.Agent.Model,
		ProviderName: m.Name,
		Timeout:      c.Request.Timeout(),
		MaxRetries:   c.Request.MaxRetries,
	}
	if m.Provider != nil {
		p.APIBase = m.Provider.APIBase
		p.ExtraHeaders = m.Provider.ExtraHeaders
	}
	return p
}
