package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xpandai03/inbot-ai-sub000/internal/resilience"
	"github.com/xpandai03/inbot-ai-sub000/pkg/provider/llm"
)

// DefaultTimeout bounds the primary classification call when no timeout is
// configured.
const DefaultTimeout = 6 * time.Second

// systemPrompt instructs the model to answer with a strict JSON object over
// the closed vocabularies. Any deviation is handled by coercion or fallback.
const systemPrompt = `You classify municipal service requests. Respond with ONLY a JSON object:
{"intent": "<intent>", "department": "<department>", "summary": "<one sentence>"}

intent must be one of: pothole, streetlight, trash_collection, water_leak, noise_complaint, graffiti, parking_violation, animal_control, tree_hazard, sidewalk_damage, other, unclassified.
department must be one of: public_works, sanitation, water_utilities, transportation, parks_recreation, animal_services, code_enforcement, general_services, unclassified.

Use "unclassified" only when the text describes no service request at all.`

// backend is one classification tier. Implementations must honour ctx
// cancellation; a returned error moves the group to the next tier.
type backend interface {
	name() string
	classify(ctx context.Context, text string, channel Channel) (Result, error)
}

// Config tunes the classifier.
type Config struct {
	// Timeout bounds each primary-path call. Zero means [DefaultTimeout].
	Timeout time.Duration

	// Breaker configures the circuit breaker wrapped around each tier.
	Breaker resilience.CircuitBreakerConfig
}

// Classifier assigns intent and department to report text. The primary tier
// calls an LLM provider behind a circuit breaker; the terminal tier is the
// deterministic rule backend, which never fails. Classify therefore always
// produces a valid Result and never returns an error.
//
// Classifier is safe for concurrent use.
type Classifier struct {
	group *resilience.FallbackGroup[backend]
	rules ruleBackend
}

// New creates a Classifier. provider may be nil, in which case only the rule
// tables run and every result carries [MethodFallback].
func New(provider llm.Provider, cfg Config) *Classifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	fbCfg := resilience.FallbackConfig{CircuitBreaker: cfg.Breaker}

	rules := ruleBackend{}
	var group *resilience.FallbackGroup[backend]
	if provider != nil {
		group = resilience.NewFallbackGroup[backend](
			&llmBackend{provider: provider, timeout: cfg.Timeout}, "llm", fbCfg)
		group.AddFallback("rules", rules)
	} else {
		group = resilience.NewFallbackGroup[backend](rules, "rules", fbCfg)
	}

	return &Classifier{group: group, rules: rules}
}

// Classify categorises text from the given channel. The primary tier is
// bounded by the configured timeout; on timeout, transport failure, or a
// malformed response the rule tables run synchronously in the same call.
// The strong-keyword override runs last regardless of which tier produced
// the result.
func (c *Classifier) Classify(ctx context.Context, text string, channel Channel) Result {
	res, err := resilience.ExecuteWithResult(c.group, func(b backend) (Result, error) {
		return b.classify(ctx, text, channel)
	})
	if err != nil {
		// Unreachable in practice: the rule tier never fails and its breaker
		// never opens. Guard anyway so Classify keeps its no-error contract.
		slog.Error("classification group exhausted, using rules directly", "error", err)
		res, _ = c.rules.classify(ctx, text, channel)
	}
	return applyOverride(text, res)
}

// llmBackend is the primary tier: a single deadline-bounded completion call
// against an LLM provider, parsed strictly.
type llmBackend struct {
	provider llm.Provider
	timeout  time.Duration
}

var _ backend = (*llmBackend)(nil)

func (b *llmBackend) name() string { return "llm" }

func (b *llmBackend) classify(ctx context.Context, text string, channel Channel) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	resp, err := b.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf("Channel: %s\n\n%s", channel, text)},
		},
		MaxTokens: 256,
	})
	if err != nil {
		return Result{}, fmt.Errorf("classify: llm completion: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return Result{}, fmt.Errorf("classify: empty llm response")
	}
	return parseResponse(resp.Content)
}

// rawResult is the wire shape expected from the primary backend.
type rawResult struct {
	Intent     string `json:"intent"`
	Department string `json:"department"`
	Summary    string `json:"summary"`
}

// parseResponse decodes the model's JSON reply. A response that is not a JSON
// object is an error (the caller falls back); enum values outside the closed
// vocabularies are coerced to unclassified rather than rejected.
func parseResponse(content string) (Result, error) {
	var raw rawResult
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		return Result{}, fmt.Errorf("classify: parse llm response: %w", err)
	}

	res := Result{
		Intent:     Intent(strings.ToLower(strings.TrimSpace(raw.Intent))),
		Department: Department(strings.ToLower(strings.TrimSpace(raw.Department))),
		Summary:    strings.TrimSpace(raw.Summary),
		Method:     MethodPrimary,
	}
	if !res.Intent.IsValid() {
		res.Intent = IntentUnclassified
	}
	if !res.Department.IsValid() {
		res.Department = DepartmentUnclassified
	}
	return res, nil
}

// stripFences removes a surrounding markdown code fence, which some models
// add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
