// Package config defines the configuration schema for blockhand.
//
// JSON keys use camelCase. Unset keys keep the values from DefaultConfig.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// ProviderConfig holds credentials for one completion provider.
type ProviderConfig struct {
	APIKey       string            `json:"apiKey"`
	APIBase      string            `json:"apiBase,omitempty"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty"`
}

// ProvidersConfig holds credentials for all supported providers. Each field
// name matches a providers.PROVIDERS entry.
type ProvidersConfig struct {
	Custom     ProviderConfig `json:"custom"`
	Anthropic  ProviderConfig `json:"anthropic"`
	OpenAI     ProviderConfig `json:"openai"`
	OpenRouter ProviderConfig `json:"openrouter"`
	DeepSeek   ProviderConfig `json:"deepseek"`
	Groq       ProviderConfig `json:"groq"`
	Ollama     ProviderConfig `json:"ollama"`
	VLLM       ProviderConfig `json:"vllm"`
}

// AgentConfig holds the agent's identity and model settings.
type AgentConfig struct {
	Name          string  `json:"name"`
	Model         string  `json:"model"`
	Provider      string  `json:"provider"`
	MaxTokens     int     `json:"maxTokens"`
	Temperature   float64 `json:"temperature"`
	ContextWindow int     `json:"contextWindow"`
	Workspace     string  `json:"workspace"`
}

func defaultAgentConfig() AgentConfig {
	return AgentConfig{
		Name:          "blockhand",
		Model:         "deepseek-chat",
		MaxTokens:     2000,
		Temperature:   0.3,
		ContextWindow: 6,
		Workspace:     "~/.blockhand/workspace",
	}
}

// RequestConfig bounds each completion request.
type RequestConfig struct {
	TimeoutSeconds int `json:"timeoutSeconds"`
	MaxRetries     int `json:"maxRetries"`
}

func (r RequestConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// WorldConfig locates the world gateway.
type WorldConfig struct {
	URL              string `json:"url"`
	Token            string `json:"token"`
	ReconnectSeconds int    `json:"reconnectSeconds"`
	ChatChannel      string `json:"chatChannel"`
}

func (w WorldConfig) ReconnectDelay() time.Duration {
	return time.Duration(w.ReconnectSeconds) * time.Second
}

// TasksConfig tunes the follow and mine loops.
type TasksConfig struct {
	FollowDistance   float64 `json:"followDistance"`
	FollowIntervalMs int     `json:"followIntervalMs"`
	MineRadius       int     `json:"mineRadius"`
}

func (t TasksConfig) FollowInterval() time.Duration {
	return time.Duration(t.FollowIntervalMs) * time.Millisecond
}

// TranscriptConfig controls the compressed turn log.
type TranscriptConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir,omitempty"`
}

// AuditConfig controls the SQLite action index.
type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type HeartbeatConfig struct {
	IntervalSeconds int `json:"intervalSeconds"`
}

func (h HeartbeatConfig) Interval() time.Duration {
	return time.Duration(h.IntervalSeconds) * time.Second
}

// AnnouncementConfig is one scheduled chat line.
type AnnouncementConfig struct {
	Schedule string `json:"schedule"`
	Text     string `json:"text"`
}

// Config is the root configuration object.
type Config struct {
	Agent         AgentConfig          `json:"agent"`
	Providers     ProvidersConfig      `json:"providers"`
	Request       RequestConfig        `json:"request"`
	World         WorldConfig          `json:"world"`
	Tasks         TasksConfig          `json:"tasks"`
	Transcript    TranscriptConfig     `json:"transcript"`
	Audit         AuditConfig          `json:"audit"`
	Heartbeat     HeartbeatConfig      `json:"heartbeat"`
	Announcements []AnnouncementConfig `json:"announcements"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Agent:         defaultAgentConfig(),
		Providers:     ProvidersConfig{},
		Request:       RequestConfig{TimeoutSeconds: 30, MaxRetries: 3},
		World:         WorldConfig{URL: "ws://localhost:8080/v1/ws", ReconnectSeconds: 5, ChatChannel: "LOCAL"},
		Tasks:         TasksConfig{FollowDistance: 2, FollowIntervalMs: 1000, MineRadius: 32},
		Transcript:    TranscriptConfig{Enabled: true},
		Audit:         AuditConfig{Enabled: true},
		Heartbeat:     HeartbeatConfig{IntervalSeconds: 300},
		Announcements: []AnnouncementConfig{},
	}
}

// WorkspacePath returns the expanded absolute path to the agent workspace.
func (c *Config) WorkspacePath() string {
	ws := c.Agent.Workspace
	if ws == "" {
		ws = "~/.blockhand/workspace"
	}
	return expandHome(ws)
}

// TranscriptDir defaults to <data dir>/transcripts.
func (c *Config) TranscriptDir() string {
	if c.Transcript.Dir != "" {
		return expandHome(c.Transcript.Dir)
	}
	return filepath.Join(DataDir(), "transcripts")
}

// AuditPath defaults to <data dir>/audit.db.
func (c *Config) AuditPath() string {
	if c.Audit.Path != "" {
		return expandHome(c.Audit.Path)
	}
	return filepath.Join(DataDir(), "audit.db")
}

func expandHome(p string) string {
	if len(p) >= 2 && p[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

// ProviderByName returns a pointer to the ProviderConfig field matching the
// given registry name (e.g. "openrouter", "deepseek"). Returns nil if unknown.
func (c *Config) ProviderByName(name string) *ProviderConfig {
	switch name {
	case "custom":
		return &c.Providers.Custom
	case "anthropic":
		return &c.Providers.Anthropic
	case "openai":
		return &c.Providers.OpenAI
	case "openrouter":
		return &c.Providers.OpenRouter
	case "deepseek":
		return &c.Providers.DeepSeek
	case "groq":
		return &c.Providers.Groq
	case "ollama":
		return &c.Providers.Ollama
	case "vllm":
		return &c.Providers.VLLM
	}
	return nil
}
