package guided

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/xpandai03/inbot-ai-sub000/internal/extract"
)

// Defaults applied by [NewEngine] when the corresponding Config field is zero.
const (
	DefaultTTL           = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// cancelRE matches an explicit stop message. Anchored to the whole message so
// that "please don't stop by" is not a cancellation.
var cancelRE = regexp.MustCompile(`(?i)^\s*(?:stop|cancel|quit|end|exit|nevermind|never mind|unsubscribe)\s*[.!]*\s*$`)

// issueRE is the issue-detection heuristic: domain keywords that mark a
// message as describing a problem. It is deliberately keyword-based so a bare
// name or address reply never reads as an issue description.
var issueRE = regexp.MustCompile(`(?i)\b(?:` +
	`pot\s?holes?|street\s?lights?|trash|garbage|recycling|dumpster|` +
	`water main|leak(?:ing|s)?|flood(?:ing|ed)?|sewer|storm drain|` +
	`graffiti|vandal\w*|noise|noisy|loud|` +
	`broken|damaged?|cracked|fallen|downed|blocked|blocking|dumped|` +
	`overflow(?:ing)?|abandoned|stray|dead animal|hazard(?:ous)?|pest` +
	`)\b`)

// strongNamePatterns are provenance pattern ids trusted enough to overwrite
// the session name without the name having been asked for. Weaker matches
// (bare capitalized tokens, incidental proper pairs inside an issue
// description) only count when they answer a direct name question.
var strongNamePatterns = map[string]bool{
	"name_self_ident":   true,
	"name_this_is":      true,
	"name_i_am":         true,
	"name_casual_intro": true,
	"name_caller_tag":   true,
}

// prompts are the outbound questions, one per field.
var prompts = map[Field]string{
	FieldIssue:   "What issue would you like to report?",
	FieldAddress: "What is the street address of the issue (or the nearest cross streets)?",
	FieldName:    "Thanks. May I have your name for the report?",
}

const (
	replyComplete  = "Thank you, your report has been filed. We'll follow up if we need anything else."
	replyCancelled = "Okay, your report has been cancelled. Text us again any time to start over."
	replyExpired   = "This conversation has expired. Text us again to start a new report."
)

// Limits for the lenient follow-up shape checks.
const (
	lenientMinLen      = 2
	lenientNameMaxLen  = 50
	lenientNameMaxToks = 4
	lenientAnswerMin   = 5
)

// Config tunes the engine.
type Config struct {
	// TTL is the maximum session age, measured from creation. Zero means
	// [DefaultTTL].
	TTL time.Duration

	// SweepInterval is how often [Engine.SweepLoop] removes expired sessions.
	// Zero means [DefaultSweepInterval].
	SweepInterval time.Duration
}

// TransitionResult is the outcome of processing one inbound message.
type TransitionResult struct {
	// State is the session state after the transition.
	State State

	// Reply is the outbound message to send back to the caller.
	Reply string

	// AskedField is the field the reply asks for, or "" when the reply is
	// not a question.
	AskedField Field

	// ReAsk reports whether AskedField had already been asked before.
	ReAsk bool

	// Session is a snapshot after the transition. For terminal states it
	// carries the partial fields so the caller can salvage or persist them.
	Session Session
}

// Engine drives guided sessions. Two messages from the same identity are
// serialized by a per-identity lock held across the whole transition;
// messages from different identities proceed independently.
type Engine struct {
	store     Store
	extractor *extract.Extractor

	ttl           time.Duration
	sweepInterval time.Duration

	// now is injectable for tests.
	now func() time.Time

	locks keyedMutex
}

// Option configures an [Engine].
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine backed by store.
func NewEngine(store Store, extractor *extract.Extractor, cfg Config, opts ...Option) *Engine {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	e := &Engine{
		store:         store,
		extractor:     extractor,
		ttl:           cfg.TTL,
		sweepInterval: cfg.SweepInterval,
		now:           time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ProcessMessage runs one inbound message through the state machine and
// returns the resulting transition. The only returned errors are store
// failures; everything else resolves to a state and a reply.
func (e *Engine) ProcessMessage(ctx context.Context, identity, text string) (TransitionResult, error) {
	unlock := e.locks.lock(identity)
	defer unlock()

	now := e.now()

	sess, err := e.store.Get(ctx, identity)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		sess = newSession(identity, now)
	case err != nil:
		return TransitionResult{}, fmt.Errorf("guided: load session: %w", err)
	}

	if cancelRE.MatchString(text) {
		if err := e.store.Delete(ctx, identity); err != nil {
			return TransitionResult{}, fmt.Errorf("guided: delete session: %w", err)
		}
		slog.Info("guided session cancelled", "identity", identity, "messages", sess.MessageCount)
		return TransitionResult{State: StateCancelled, Reply: replyCancelled, Session: *sess.Clone()}, nil
	}

	if now.Sub(sess.CreatedAt) > e.ttl {
		if err := e.store.Delete(ctx, identity); err != nil {
			return TransitionResult{}, fmt.Errorf("guided: delete session: %w", err)
		}
		slog.Info("guided session expired", "identity", identity, "age", now.Sub(sess.CreatedAt))
		return TransitionResult{State: StateExpired, Reply: replyExpired, Session: *sess.Clone()}, nil
	}

	trimmed := strings.TrimSpace(text)
	sess.History = append(sess.History, trimmed)
	sess.MessageCount++
	sess.LastActivityAt = now

	e.merge(sess, trimmed)
	e.acceptLenient(sess, trimmed)

	if sess.complete() {
		if err := e.store.Delete(ctx, identity); err != nil {
			return TransitionResult{}, fmt.Errorf("guided: delete session: %w", err)
		}
		slog.Info("guided session complete",
			"identity", identity, "messages", sess.MessageCount)
		return TransitionResult{State: StateComplete, Reply: replyComplete, Session: *sess.Clone()}, nil
	}

	ask := sess.nextAsk()
	reAsk := sess.Asked[ask]
	sess.Asked[ask] = true
	sess.LastAsked = ask

	if err := e.store.Put(ctx, sess); err != nil {
		return TransitionResult{}, fmt.Errorf("guided: save session: %w", err)
	}

	return TransitionResult{
		State:      StateCollecting,
		Reply:      prompts[ask],
		AskedField: ask,
		ReAsk:      reAsk,
		Session:    *sess.Clone(),
	}, nil
}

// SweepLoop removes expired sessions on the configured interval until ctx is
// done. Run it in its own goroutine.
func (e *Engine) SweepLoop(ctx context.Context) {
	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := e.store.Sweep(ctx, e.now().Add(-e.ttl))
			if err != nil {
				slog.Warn("guided session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("guided sessions swept", "removed", n)
			}
		}
	}
}

// merge runs the extraction pipeline and the issue heuristic over one message
// and applies last-message-wins: every new valid extraction overwrites the
// stored value for its field.
func (e *Engine) merge(sess *Session, msg string) {
	utt := []extract.Utterance{{Role: extract.RoleCaller, Text: msg, Position: 0}}

	if addr := e.extractor.ExtractAddress(utt, msg); !addr.IsDefault() {
		sess.Address = addr.Value
	}

	if name := e.extractor.ExtractName(utt, msg, sess.Address); !name.IsDefault() {
		if strongProvenance(name.Provenance) || sess.LastAsked == FieldName {
			sess.Name = name.Value
		}
	}

	if issueRE.MatchString(msg) {
		sess.Issue = msg
	}
}

// acceptLenient handles answers that the extraction pipeline missed: when the
// previous question asked for a field and that field is still empty, the raw
// trimmed message becomes the value if it passes a light shape check.
func (e *Engine) acceptLenient(sess *Session, msg string) {
	f := sess.LastAsked
	if f == "" || sess.field(f) != "" {
		return
	}
	// A message that is nothing but filler ("uh", "hmm...") answers nothing.
	if strings.TrimSpace(extract.Normalize(msg)) == "" {
		return
	}

	switch f {
	case FieldName:
		if !looksLikeNameAnswer(msg) {
			return
		}
	default:
		if len(msg) < lenientAnswerMin {
			return
		}
	}
	sess.setField(f, msg)
}

// lenientRefusals are one-word replies that answer a question without
// providing a value.
var lenientRefusals = map[string]bool{
	"no": true, "yes": true, "ok": true, "okay": true, "nope": true,
	"yeah": true, "none": true, "idk": true, "sure": true,
}

// looksLikeNameAnswer is the light shape check for a lenient name answer:
// short, few tokens, not a refusal, and not address-shaped.
func looksLikeNameAnswer(msg string) bool {
	if len(msg) < lenientMinLen || len(msg) > lenientNameMaxLen {
		return false
	}
	if strings.ContainsAny(msg, "0123456789") {
		return false
	}
	if lenientRefusals[strings.ToLower(strings.Trim(msg, ".,!?"))] {
		return false
	}
	return len(strings.Fields(msg)) <= lenientNameMaxToks
}

// strongProvenance reports whether an extraction result came from a pattern
// trusted to set the name unprompted. Provenance is "source:pattern_id".
func strongProvenance(provenance string) bool {
	_, id, ok := strings.Cut(provenance, ":")
	return ok && strongNamePatterns[id]
}

// keyedMutex serializes work per key. Entries are reference-counted and
// removed when the last holder releases, so idle identities cost nothing.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedMutexEntry
}

type keyedMutexEntry struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until the key's lock is held and returns the release func.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[string]*keyedMutexEntry)
	}
	e := k.entries[key]
	if e == nil {
		e = &keyedMutexEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
