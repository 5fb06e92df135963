// Package notify routes completed reports to the responsible department.
// Delivery failures are logged and never surfaced to the intake flow.
package notify

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/xpandai03/inbot-ai-sub000/internal/classify"
	"github.com/xpandai03/inbot-ai-sub000/internal/record"
)

// Dispatcher delivers a report notification to its department's target.
// Implementations must be safe for concurrent use.
type Dispatcher interface {
	// Dispatch notifies the department responsible for r. The intake flow
	// logs any error and continues; delivery is best-effort.
	Dispatch(ctx context.Context, r *record.Record) error
}

// Compile-time interface check.
var _ Dispatcher = (*LogDispatcher)(nil)

// LogDispatcher is the default [Dispatcher]: it writes a structured log line
// per notification. Production deployments swap in a real transport (email,
// ticketing webhook) keyed by the same target map.
type LogDispatcher struct {
	mu sync.RWMutex

	// targets maps a department to its delivery target (address, queue,
	// webhook). Departments without a target fall back to defaultTarget.
	targets map[classify.Department]string

	// defaultTarget receives notifications for unmapped departments.
	defaultTarget string
}

// NewLogDispatcher creates a dispatcher routing departments per targets, with
// defaultTarget as the fallback. Both may be empty.
func NewLogDispatcher(targets map[classify.Department]string, defaultTarget string) *LogDispatcher {
	return &LogDispatcher{
		targets:       maps.Clone(targets),
		defaultTarget: defaultTarget,
	}
}

// UpdateTargets replaces the routing table. Safe to call while dispatches are
// in flight; each dispatch sees either the old table or the new one.
func (d *LogDispatcher) UpdateTargets(targets map[classify.Department]string, defaultTarget string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets = maps.Clone(targets)
	d.defaultTarget = defaultTarget
}

// Dispatch implements [Dispatcher].
func (d *LogDispatcher) Dispatch(_ context.Context, r *record.Record) error {
	d.mu.RLock()
	target, ok := d.targets[r.Department]
	if !ok {
		target = d.defaultTarget
	}
	d.mu.RUnlock()

	slog.Info("report notification",
		"record_id", r.ID,
		"department", r.Department,
		"intent", r.Intent,
		"target", target,
		"address", r.Address,
	)
	return nil
}
