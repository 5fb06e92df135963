package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every tier in a [FallbackGroup] fails or has an
// open circuit breaker.
var ErrAllFailed = errors.New("all tiers failed")

// FallbackConfig configures the per-tier circuit breaker created for each
// backend in a [FallbackGroup].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// tier pairs a backend value with its dedicated circuit breaker.
type tier[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// report logs why this tier did not produce a result.
func (t *tier[T]) report(err error) {
	if errors.Is(err, ErrCircuitOpen) {
		slog.Debug("skipping tier (circuit open)", "tier", t.name)
		return
	}
	slog.Warn("tier failed, trying next", "tier", t.name, "error", err)
}

// FallbackGroup wraps a primary and zero or more fallback instances of the same
// backend type. When the primary fails (or its circuit breaker is open), the
// next healthy fallback is tried in registration order.
//
// FallbackGroup is safe for concurrent use.
type FallbackGroup[T any] struct {
	tiers []tier[T]
	cfg   FallbackConfig
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the first tier.
// Additional fallbacks are registered via [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.add(primaryName, primary)
	return fg
}

// AddFallback appends a fallback backend. Fallbacks are tried in the order they
// are added, after the primary.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	fg.add(name, fallback)
}

func (fg *FallbackGroup[T]) add(name string, value T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.tiers = append(fg.tiers, tier[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute tries fn against each tier in order until one succeeds.
// Circuit-breaker-open tiers are skipped. Returns [ErrAllFailed] wrapped with
// the last error if every tier fails.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult tries fn against each tier in the group until one succeeds,
// returning both the result value and error. This is a package-level function
// because Go does not support method-level type parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.tiers {
		t := &fg.tiers[i]
		var result R
		err := t.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(t.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		t.report(err)
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
