package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/moltcourt/moltcourt/internal/config"
)

// Default API bases for OpenAI-compatible vendors.
var compatibleBases = map[string]string{
	"openai":     "https://api.openai.com/v1",
	"xai":        "https://api.x.ai/v1",
	"openrouter": "https://openrouter.ai/api/v1",
	"deepseek":   "https://api.deepseek.com/v1",
	"groq":       "https://api.groq.com/openai/v1",
}

// Supported lists the canonical provider IDs Resolve understands.
var Supported = []string{"anthropic", "openai", "gemini", "xai", "openrouter", "deepseek", "groq", "vllm"}

// ParseModelString splits a "provider/model" string into provider ID and model name.
// For OpenRouter, the format is "openrouter/vendor/model" (three segments).
func ParseModelString(s string) (providerID, modelName string) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, "/", 2)
	if len(parts) < 2 {
		return "", s
	}
	providerID = strings.ToLower(parts[0])
	modelName = parts[1]
	return
}

// Resolve creates the LLMProvider for the jury.
// A "provider/model" value in oracle.model overrides oracle.provider.
func Resolve(ctx context.Context, cfg config.OracleConfig) (LLMProvider, error) {
	providerID := config.NormalizeProvider(cfg.Provider)
	model := strings.TrimSpace(cfg.Model)
	if id, m := ParseModelString(model); id != "" && isSupported(config.NormalizeProvider(id)) {
		providerID, model = config.NormalizeProvider(id), m
	}
	if providerID == "" {
		providerID = "anthropic"
	}
	return buildProvider(ctx, cfg, providerID, model)
}

func isSupported(id string) bool {
	for _, s := range Supported {
		if s == id {
			return true
		}
	}
	return false
}

// buildProvider constructs a provider from its canonical ID and model name.
func buildProvider(ctx context.Context, cfg config.OracleConfig, providerID, model string) (LLMProvider, error) {
	key := strings.TrimSpace(cfg.APIKey)
	base := strings.TrimSpace(cfg.APIBase)

	switch providerID {
	case "anthropic":
		if key == "" {
			return nil, &ProviderError{Provider: "anthropic", Hint: "set oracle.apiKey in config or ANTHROPIC_API_KEY"}
		}
		return NewAnthropicProvider(key, base, model).WithTimeout(cfg.Timeout), nil

	case "gemini":
		if key == "" {
			return nil, &ProviderError{Provider: "gemini", Hint: "set oracle.apiKey in config or GEMINI_API_KEY"}
		}
		p, err := NewGeminiProvider(ctx, key, base, model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return p, nil

	case "openai", "xai", "openrouter", "deepseek", "groq":
		if key == "" {
			return nil, &ProviderError{Provider: providerID, Hint: fmt.Sprintf("set oracle.apiKey in config or %s_API_KEY", strings.ToUpper(providerID))}
		}
		if base == "" {
			base = compatibleBases[providerID]
		}
		p := NewOpenAIProvider(key, base, model).WithTimeout(cfg.Timeout)
		p.name = providerID
		return p, nil

	case "vllm":
		if base == "" {
			return nil, &ProviderError{Provider: "vllm", Hint: "set oracle.apiBase in config (e.g. http://localhost:8000/v1)"}
		}
		p := NewOpenAIProvider(key, base, model).WithTimeout(cfg.Timeout)
		p.name = "vllm"
		return p, nil

	default:
		return nil, &ProviderError{Provider: providerID, Hint: fmt.Sprintf("unknown provider ID %q, supported: %s", providerID, strings.Join(Supported, ", "))}
	}
}

// ProviderError is returned when a provider cannot be constructed.
type ProviderError struct {
	Provider string
	Hint     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %q: %s", e.Provider, e.Hint)
}

// ---------------------------------------------------------------------------
// In-memory usage counters
// ---------------------------------------------------------------------------

// UsageSnapshot accumulates token usage for one provider since process start.
type UsageSnapshot struct {
	Calls            int       `json:"calls"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	UpdatedAt        time.Time `json:"updated_at"`
}

var (
	usageMu    sync.RWMutex
	usageCache = map[string]*UsageSnapshot{}
)

// RecordUsage adds one call's usage to the provider's counters.
func RecordUsage(providerID string, u Usage) {
	usageMu.Lock()
	defer usageMu.Unlock()
	snap, ok := usageCache[providerID]
	if !ok {
		snap = &UsageSnapshot{}
		usageCache[providerID] = snap
	}
	snap.Calls++
	snap.PromptTokens += u.PromptTokens
	snap.CompletionTokens += u.CompletionTokens
	snap.TotalTokens += u.TotalTokens
	snap.UpdatedAt = time.Now()
}

// AllUsageSnapshots returns a copy of all usage counters.
func AllUsageSnapshots() map[string]UsageSnapshot {
	usageMu.RLock()
	defer usageMu.RUnlock()
	out := make(map[string]UsageSnapshot, len(usageCache))
	for k, v := range usageCache {
		out[k] = *v
	}
	return out
}

// Name reports the canonical provider ID of p when known.
func Name(p LLMProvider) string {
	switch v := p.(type) {
	case *OpenAIProvider:
		return v.name
	case *AnthropicProvider:
		return "anthropic"
	case *GeminiProvider:
		return "gemini"
	}
	return "custom"
}
