package config_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/xpandai03/inbot-ai-sub000/internal/config"
)

func TestValidate_NegativeTimeouts(t *testing.T) {
	t.Parallel()
	yaml := `
classifier:
  timeout: -5s
  reset_timeout: -1m
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative durations, got nil")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("error should mention timeout, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: chatty
session:
  max_entries: -3
notify:
  targets:
    ministry_of_silly_walks: walks@city.example.com
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	// All three failures should be reported together.
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
	if !strings.Contains(errStr, "max_entries") {
		t.Errorf("error should mention max_entries, got: %v", err)
	}
	if !strings.Contains(errStr, "ministry_of_silly_walks") {
		t.Errorf("error should mention the bad department, got: %v", err)
	}
}

func TestValidate_RuleOnlyClassifierIsValid(t *testing.T) {
	t.Parallel()
	// No provider at all: the classifier runs on the rule tier alone.
	yaml := `
server:
  listen_addr: ":8080"
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Classifier.Provider.Name != "" {
		t.Errorf("provider name = %q, want empty", cfg.Classifier.Provider.Name)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	// Sanity-check that the list is populated.
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	if !slices.Contains(config.ValidProviderNames, "openai") {
		t.Error("ValidProviderNames should contain \"openai\"")
	}
}
