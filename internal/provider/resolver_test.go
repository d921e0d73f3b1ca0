package provider

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/moltcourt/moltcourt/internal/config"
)

func TestParseModelString(t *testing.T) {
	tests := []struct {
		input    string
		wantProv string
		wantMod  string
	}{
		{"anthropic/claude-sonnet-4-20250514", "anthropic", "claude-sonnet-4-20250514"},
		{"openai/gpt-4.1", "openai", "gpt-4.1"},
		{"openrouter/anthropic/claude-3", "openrouter", "anthropic/claude-3"},
		{"gpt-4.1", "", "gpt-4.1"},
		{"  Groq/llama-3  ", "groq", "llama-3"},
		{"", "", ""},
	}
	for _, tt := range tests {
		prov, mod := ParseModelString(tt.input)
		if prov != tt.wantProv || mod != tt.wantMod {
			t.Errorf("ParseModelString(%q) = (%q, %q), want (%q, %q)", tt.input, prov, mod, tt.wantProv, tt.wantMod)
		}
	}
}

func TestResolve_DefaultsToAnthropic(t *testing.T) {
	p, err := Resolve(context.Background(), config.OracleConfig{APIKey: "k"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if Name(p) != "anthropic" {
		t.Errorf("expected anthropic, got %s", Name(p))
	}
}

func TestResolve_ProviderAlias(t *testing.T) {
	p, err := Resolve(context.Background(), config.OracleConfig{Provider: "claude", APIKey: "k", Model: "claude-opus-4"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if Name(p) != "anthropic" || p.DefaultModel() != "claude-opus-4" {
		t.Errorf("unexpected provider %s/%s", Name(p), p.DefaultModel())
	}
}

func TestResolve_ModelPrefixOverridesProvider(t *testing.T) {
	p, err := Resolve(context.Background(), config.OracleConfig{Provider: "anthropic", Model: "groq/llama-3.3-70b", APIKey: "k"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	op, ok := p.(*OpenAIProvider)
	if !ok {
		t.Fatalf("expected *OpenAIProvider, got %T", p)
	}
	if op.name != "groq" || op.apiBase != "https://api.groq.com/openai/v1" || op.DefaultModel() != "llama-3.3-70b" {
		t.Errorf("unexpected groq provider %+v", op)
	}
}

func TestResolve_UnknownPrefixIsPartOfModel(t *testing.T) {
	p, err := Resolve(context.Background(), config.OracleConfig{Provider: "openrouter", Model: "meta/llama-3", APIKey: "k"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if Name(p) != "openrouter" || p.DefaultModel() != "meta/llama-3" {
		t.Errorf("unexpected provider %s/%s", Name(p), p.DefaultModel())
	}
}

func TestResolve_AppliesTimeout(t *testing.T) {
	p, err := Resolve(context.Background(), config.OracleConfig{Provider: "openai", APIKey: "k", Timeout: 7 * time.Second})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := p.(*OpenAIProvider).httpClient.Timeout; got != 7*time.Second {
		t.Errorf("expected 7s timeout, got %v", got)
	}
}

func TestBuildProvider_RequiresKey(t *testing.T) {
	for _, id := range []string{"anthropic", "openai", "gemini", "xai", "openrouter", "deepseek", "groq"} {
		_, err := Resolve(context.Background(), config.OracleConfig{Provider: id})
		pe, ok := err.(*ProviderError)
		if !ok {
			t.Errorf("%s: expected *ProviderError, got %T", id, err)
			continue
		}
		if pe.Provider != id {
			t.Errorf("%s: wrong provider in error %q", id, pe.Provider)
		}
	}
}

func TestBuildProvider_CompatibleDefaults(t *testing.T) {
	for id, base := range compatibleBases {
		p, err := Resolve(context.Background(), config.OracleConfig{Provider: id, APIKey: "k"})
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		op := p.(*OpenAIProvider)
		if op.apiBase != base {
			t.Errorf("%s: expected base %s, got %s", id, base, op.apiBase)
		}
		if Name(p) != id {
			t.Errorf("%s: Name() = %s", id, Name(p))
		}
	}
}

func TestBuildProvider_VLLMRequiresBase(t *testing.T) {
	_, err := Resolve(context.Background(), config.OracleConfig{Provider: "vllm"})
	if err == nil {
		t.Fatal("expected error for vllm without base")
	}
	p, err := Resolve(context.Background(), config.OracleConfig{Provider: "vllm", APIBase: "http://localhost:8000/v1/"})
	if err != nil {
		t.Fatalf("Resolve vllm: %v", err)
	}
	if op := p.(*OpenAIProvider); op.apiBase != "http://localhost:8000/v1" {
		t.Errorf("base not trimmed: %s", op.apiBase)
	}
}

func TestBuildProvider_UnknownProvider(t *testing.T) {
	_, err := Resolve(context.Background(), config.OracleConfig{Provider: "copilot", APIKey: "k"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "supported: anthropic") {
		t.Errorf("expected supported list in error, got %v", err)
	}
}

func TestUsageCounters(t *testing.T) {
	RecordUsage("test-usage", Usage{PromptTokens: 10, CompletionTokens: 4, TotalTokens: 14})
	RecordUsage("test-usage", Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2})

	snap, ok := AllUsageSnapshots()["test-usage"]
	if !ok {
		t.Fatal("expected usage snapshot")
	}
	if snap.Calls != 2 || snap.TotalTokens != 16 || snap.PromptTokens != 11 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestProviderError(t *testing.T) {
	err := &ProviderError{Provider: "gemini", Hint: "set oracle.apiKey"}
	if got := err.Error(); got != `provider "gemini": set oracle.apiKey` {
		t.Errorf("unexpected error string %q", got)
	}
}
