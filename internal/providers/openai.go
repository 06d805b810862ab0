package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/schema"
	"github.com/crystaldolphin/blockhand/internal/shared/llmutils"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	defaultMaxTokens  = 2000
	defaultBackoff    = 500 * time.Millisecond
)

// OpenAIProvider makes direct HTTP calls to any OpenAI-compatible endpoint,
// and also handles the Anthropic Messages API as a special case.
type OpenAIProvider struct {
	apiKey       string
	apiBase      string
	defaultModel string
	extraHeaders map[string]string
	gateway      *ProviderSpec // non-nil for gateway/local providers
	spec         *ProviderSpec // non-nil for standard providers
	isAnthropic  bool
	maxRetries   int
	backoff      time.Duration
	httpClient   *http.Client
	log          *zap.Logger
}

// NewOpenAIProvider constructs a provider from raw config values.
func NewOpenAIProvider(p Params) *OpenAIProvider {
	gateway := FindGateway(p.ProviderName, p.APIKey, p.APIBase)

	var spec *ProviderSpec
	if gateway == nil {
		spec = FindByName(p.ProviderName)
		if spec == nil {
			spec = FindByModel(p.DefaultModel)
		}
	}

	effectiveBase := p.APIBase
	if effectiveBase == "" {
		if gateway != nil && gateway.DefaultAPIBase != "" {
			effectiveBase = gateway.DefaultAPIBase
		} else if spec != nil && spec.DefaultAPIBase != "" {
			effectiveBase = spec.DefaultAPIBase
		} else {
			effectiveBase = "https://api.openai.com/v1"
		}
	}
	effectiveBase = strings.TrimRight(effectiveBase, "/")

	isAnthropic := p.ProviderName == "anthropic" ||
		strings.Contains(strings.ToLower(effectiveBase), "anthropic.com")

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := p.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &OpenAIProvider{
		apiKey:       p.APIKey,
		apiBase:      effectiveBase,
		defaultModel: p.DefaultModel,
		extraHeaders: p.ExtraHeaders,
		gateway:      gateway,
		spec:         spec,
		isAnthropic:  isAnthropic,
		maxRetries:   retries,
		backoff:      backoff,
		httpClient:   &http.Client{Timeout: timeout},
		log:          log.With(zap.String("provider", p.ProviderName)),
	}
}

func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

// Complete implements schema.CompletionProvider. Retryable failures are
// retried with exponential backoff; the last failure is returned as a
// *TransportError.
func (p *OpenAIProvider) Complete(ctx context.Context, messages schema.Messages, opts schema.ChatOptions) (string, error) {
	model := llmutils.StringOrDefault(opts.Model, p.defaultModel)
	model = p.resolveModel(model)

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			wait := p.backoff << (attempt - 1)
			p.log.Warn("completion failed, retrying",
				zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(lastErr))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		var text string
		var err error
		if p.isAnthropic {
			text, err = p.completeAnthropic(ctx, messages, model, maxTokens, opts.Temperature)
		} else {
			text, err = p.completeOpenAI(ctx, messages, model, maxTokens, opts)
		}
		if err == nil {
			return llmutils.StripThink(text), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		var te *TransportError
		if !errors.As(err, &te) || !te.retryable() {
			break
		}
	}
	return "", lastErr
}

func (p *OpenAIProvider) jsonMode(opts schema.ChatOptions) bool {
	if !opts.JSONMode {
		return false
	}
	for _, s := range []*ProviderSpec{p.gateway, p.spec} {
		if s != nil && s.NoJSONMode {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// OpenAI-compatible path
// ---------------------------------------------------------------------------

func (p *OpenAIProvider) completeOpenAI(
	ctx context.Context,
	messages schema.Messages,
	model string,
	maxTokens int,
	opts schema.ChatOptions,
) (string, error) {
	body := map[string]any{
		"model":       model,
		"messages":    messages.Messages,
		"max_tokens":  maxTokens,
		"temperature": opts.Temperature,
	}
	if p.jsonMode(opts) {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	raw, err := p.post(ctx, "/chat/completions", body, headers)
	if err != nil {
		return "", err
	}
	return parseOpenAIResponse(raw)
}

// ---------------------------------------------------------------------------
// Anthropic Messages API path
// ---------------------------------------------------------------------------

func (p *OpenAIProvider) completeAnthropic(
	ctx context.Context,
	messages schema.Messages,
	model string,
	maxTokens int,
	temperature float64,
) (string, error) {
	system, converted := convertMessagesToAnthropic(messages)

	body := map[string]any{
		"model":       model,
		"messages":    converted,
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
	if system != "" {
		body["system"] = system
	}

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}
	raw, err := p.post(ctx, "/messages", body, headers)
	if err != nil {
		return "", err
	}
	return parseAnthropicResponse(raw)
}

func (p *OpenAIProvider) post(ctx context.Context, path string, body any, headers map[string]string) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for k, v := range p.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Message: "read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Message:    friendlyHTTPError(resp.StatusCode, raw),
		}
	}
	return raw, nil
}

// ---------------------------------------------------------------------------
// Model resolution
// ---------------------------------------------------------------------------

// resolveModel strips routing prefixes from the model string so the
// backend receives the bare model name it expects. Gateways keep the
// "provider/model" sub-prefix they route on.
func (p *OpenAIProvider) resolveModel(model string) string {
	if p.gateway != nil {
		if pfx := p.gateway.RoutePrefix; pfx != "" {
			full := pfx + "/"
			if strings.HasPrefix(strings.ToLower(model), full) {
				model = model[len(full):]
			}
		}
		return model
	}

	var prefixes []string
	if p.spec != nil {
		prefixes = append(prefixes, p.spec.RoutePrefix, p.spec.Name)
	}
	for _, pfx := range prefixes {
		if pfx == "" {
			continue
		}
		full := pfx + "/"
		if strings.HasPrefix(strings.ToLower(model), full) {
			return model[len(full):]
		}
	}
	if before, after, ok := strings.Cut(model, "/"); ok {
		norm := strings.ReplaceAll(strings.ToLower(before), "-", "_")
		if FindByName(norm) != nil {
			return after
		}
	}
	return model
}

// ---------------------------------------------------------------------------
// Wire formats
// ---------------------------------------------------------------------------

// convertMessagesToAnthropic lifts system messages into the system prompt
// and merges consecutive same-role turns, which the Messages API rejects.
func convertMessagesToAnthropic(messages schema.Messages) (string, []map[string]any) {
	var system []string
	var out []map[string]any
	for _, m := range messages.Messages {
		if m.Role == schema.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		if n := len(out); n > 0 && out[n-1]["role"] == m.Role {
			out[n-1]["content"] = out[n-1]["content"].(string) + "\n\n" + m.Content
			continue
		}
		out = append(out, map[string]any{"role": m.Role, "content": m.Content})
	}
	return strings.Join(system, "\n\n"), out
}

type openAIRespBody struct {
	Choices []struct {
		Message struct {
			Content          any `json:"content"`
			ReasoningContent any `json:"reasoning_content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// parseOpenAIResponse returns the first choice's text. A null content is
// returned as "" and left to the interpreter.
func parseOpenAIResponse(raw []byte) (string, error) {
	var body openAIRespBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", &TransportError{StatusCode: http.StatusOK, Message: "parse response", Err: err}
	}
	if len(body.Choices) == 0 {
		return "", &TransportError{StatusCode: http.StatusOK, Message: "empty choices in response"}
	}
	if c, ok := body.Choices[0].Message.Content.(string); ok {
		return c, nil
	}
	return "", nil
}

type anthropicRespBody struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseAnthropicResponse(raw []byte) (string, error) {
	var body anthropicRespBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", &TransportError{StatusCode: http.StatusOK, Message: "parse anthropic response", Err: err}
	}
	var sb strings.Builder
	for _, block := range body.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
