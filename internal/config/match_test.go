package config

import "testing"

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENROUTER_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "DEEPSEEK_API_KEY", "GROQ_API_KEY", "HOSTED_VLLM_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestMatchProvider_ExplicitProvider(t *testing.T) {
	clearProviderEnv(t)
	cfg := DefaultConfig()
	cfg.Agent.Provider = "groq"
	cfg.Providers.Groq.APIKey = "gk"

	m := cfg.MatchProvider("")
	if m.Name != "groq" || m.APIKey != "gk" {
		t.Errorf("expected groq/gk, got %s/%s", m.Name, m.APIKey)
	}
}

func TestMatchProvider_KeywordNeedsKey(t *testing.T) {
	clearProviderEnv(t)
	cfg := DefaultConfig()
	cfg.Providers.OpenAI.APIKey = "sk-openai"

	// deepseek matches by keyword but has no key, so the fallback wins.
	m := cfg.MatchProvider("deepseek-chat")
	if m.Name != "openai" {
		t.Errorf("expected fallback to openai, got %q", m.Name)
	}

	cfg.Providers.DeepSeek.APIKey = "sk-ds"
	if m := cfg.MatchProvider("deepseek-chat"); m.Name != "deepseek" {
		t.Errorf("expected deepseek, got %q", m.Name)
	}
}

func TestMatchProvider_EnvKey(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "from-env")
	cfg := DefaultConfig()

	m := cfg.MatchProvider("")
	if m.Name != "deepseek" || m.APIKey != "from-env" {
		t.Errorf("expected deepseek/from-env, got %s/%s", m.Name, m.APIKey)
	}
}

func TestMatchProvider_PrefixWins(t *testing.T) {
	clearProviderEnv(t)
	cfg := DefaultConfig()
	cfg.Providers.OpenRouter.APIKey = "sk-or-1"
	cfg.Providers.DeepSeek.APIKey = "sk-ds"

	if m := cfg.MatchProvider("openrouter/deepseek-chat"); m.Name != "openrouter" {
		t.Errorf("expected openrouter, got %q", m.Name)
	}
}

func TestMatchProvider_NoKeys(t *testing.T) {
	clearProviderEnv(t)
	cfg := DefaultConfig()
	if m := cfg.MatchProvider(""); m.Provider != nil || m.Name != "" {
		t.Errorf("expected empty match, got %+v", m)
	}
}

func TestProviderParams(t *testing.T) {
	clearProviderEnv(t)
	cfg := DefaultConfig()
	cfg.Providers.DeepSeek = ProviderConfig{APIKey: "sk-ds", APIBase: "http://proxy/v1"}

	p := cfg.ProviderParams()
	if p.ProviderName != "deepseek" || p.APIBase != "http://proxy/v1" || p.APIKey != "sk-ds" {
		t.Errorf("unexpected params: %+v", p)
	}
	if p.DefaultModel != "deepseek-chat" || p.MaxRetries != 3 || p.Timeout.Seconds() != 30 {
		t.Errorf("unexpected request settings: %+v", p)
	}
}
