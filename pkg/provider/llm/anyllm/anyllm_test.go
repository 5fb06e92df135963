package anyllm

import (
	"strings"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/xpandai03/inbot-ai-sub000/pkg/provider/llm"
)

// ── New ───────────────────────────────────────────────────────────────────────

// TestNew_EmptyProviderName checks that an empty provider name is rejected.
func TestNew_EmptyProviderName(t *testing.T) {
	_, err := New("", "gpt-4o-mini")
	if err == nil {
		t.Fatal("expected error for empty provider name")
	}
}

// TestNew_EmptyModel checks that an empty model is rejected.
func TestNew_EmptyModel(t *testing.T) {
	_, err := New("openai", "")
	if err == nil {
		t.Fatal("expected error for empty model")
	}
}

// TestNew_UnsupportedProvider checks the error message names the bad provider.
func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New("carrier-pigeon", "rfc1149")
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
	if !strings.Contains(err.Error(), "carrier-pigeon") {
		t.Errorf("error should name the provider, got %q", err.Error())
	}
}

// TestNew_CaseInsensitiveProviderName checks that provider names are matched
// regardless of case.
func TestNew_CaseInsensitiveProviderName(t *testing.T) {
	p, err := New("OpenAI", "gpt-4o-mini", anyllmlib.WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil provider")
	}
}

// ── buildParams ───────────────────────────────────────────────────────────────

func testProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New("openai", "gpt-4o-mini", anyllmlib.WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// TestBuildParams_SystemPromptPrepended checks that a system prompt becomes the
// first message.
func TestBuildParams_SystemPromptPrepended(t *testing.T) {
	p := testProvider(t)
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "Classify the report.",
		Messages:     []llm.Message{{Role: "user", Content: "pothole on Main"}},
	})

	if len(params.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Errorf("expected first message role system, got %q", params.Messages[0].Role)
	}
	if params.Messages[0].Content != "Classify the report." {
		t.Errorf("unexpected system content: %q", params.Messages[0].Content)
	}
	if params.Messages[1].Content != "pothole on Main" {
		t.Errorf("unexpected user content: %q", params.Messages[1].Content)
	}
}

// TestBuildParams_Model checks that the configured model is carried through.
func TestBuildParams_Model(t *testing.T) {
	p := testProvider(t)
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	if params.Model != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %q", params.Model)
	}
}

// TestBuildParams_ZeroTemperatureOmitted checks that a zero temperature is not
// sent, leaving the provider default in effect.
func TestBuildParams_ZeroTemperatureOmitted(t *testing.T) {
	p := testProvider(t)
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	if params.Temperature != nil {
		t.Errorf("expected nil temperature, got %v", *params.Temperature)
	}
}

// TestBuildParams_TemperatureAndMaxTokens checks non-zero values are passed.
func TestBuildParams_TemperatureAndMaxTokens(t *testing.T) {
	p := testProvider(t)
	params := p.buildParams(llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: "hi"}},
		Temperature: 0.7,
		MaxTokens:   256,
	})
	if params.Temperature == nil || *params.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 256 {
		t.Errorf("expected max tokens 256, got %v", params.MaxTokens)
	}
}
