package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/xpandai03/inbot-ai-sub000/internal/classify"
)

// ValidProviderNames lists known LLM provider names.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{
	"openai", "openai-direct", "anthropic", "ollama", "gemini",
	"deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Classifier
	validateProviderName(cfg.Classifier.Provider.Name)
	if cfg.Classifier.Provider.Name == "" {
		slog.Warn("no classifier provider configured; classification will use the rule tier only")
	}
	if cfg.Classifier.Timeout < 0 {
		errs = append(errs, fmt.Errorf("classifier.timeout must not be negative, got %s", cfg.Classifier.Timeout.Std()))
	}
	if cfg.Classifier.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("classifier.max_failures must not be negative, got %d", cfg.Classifier.MaxFailures))
	}
	if cfg.Classifier.ResetTimeout < 0 {
		errs = append(errs, fmt.Errorf("classifier.reset_timeout must not be negative, got %s", cfg.Classifier.ResetTimeout.Std()))
	}
	if cfg.Classifier.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("classifier.max_concurrent must not be negative, got %d", cfg.Classifier.MaxConcurrent))
	}

	// Session
	if cfg.Session.TTL < 0 {
		errs = append(errs, fmt.Errorf("session.ttl must not be negative, got %s", cfg.Session.TTL.Std()))
	}
	if cfg.Session.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("session.sweep_interval must not be negative, got %s", cfg.Session.SweepInterval.Std()))
	}
	if cfg.Session.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("session.max_entries must not be negative, got %d", cfg.Session.MaxEntries))
	}

	// Database
	if cfg.Database.PostgresDSN == "" {
		slog.Warn("database.postgres_dsn is empty; records will be kept in memory only")
	}

	// Notify — target keys must be real departments.
	for dept := range cfg.Notify.Targets {
		if !classify.Department(dept).IsValid() {
			errs = append(errs, fmt.Errorf("notify.targets key %q is not a known department", dept))
		}
	}
	if len(cfg.Notify.Targets) > 0 && cfg.Notify.DefaultTarget == "" {
		slog.Warn("notify.targets is set but notify.default_target is empty; unmatched departments will not be notified")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// [ValidProviderNames].
func validateProviderName(name string) {
	if name == "" {
		return
	}
	if slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"name", name,
		"known", ValidProviderNames,
	)
}
