// Package intake wires the extraction, classification, guided-session, and
// re-evaluation subsystems into the request-level operations the transports
// call: a finished voice call report, an inbound SMS message, and an
// on-demand re-evaluation of a stored record.
//
// Extraction is synchronous so the caller identity and address are persisted
// before the call handler returns. Classification runs detached, bounded by a
// semaphore, and writes its result back to the record store when it finishes.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/xpandai03/inbot-ai-sub000/internal/classify"
	"github.com/xpandai03/inbot-ai-sub000/internal/extract"
	"github.com/xpandai03/inbot-ai-sub000/internal/guided"
	"github.com/xpandai03/inbot-ai-sub000/internal/notify"
	"github.com/xpandai03/inbot-ai-sub000/internal/observe"
	"github.com/xpandai03/inbot-ai-sub000/internal/record"
	"github.com/xpandai03/inbot-ai-sub000/internal/reeval"
)

// DefaultMaxConcurrentClassifications bounds the detached classification
// goroutines when the config leaves the limit unset.
const DefaultMaxConcurrentClassifications = 4

// provenanceSession marks fields collected turn by turn in a guided session
// rather than extracted from a transcript in one pass.
const provenanceSession = "session"

// CallReport is the input from a finished voice call: the ordered structured
// utterances when the transport preserved them, and the raw transcript.
type CallReport struct {
	// Identity is the normalized caller identity (phone number).
	Identity string

	// Utterances is the ordered conversation, or nil when the transport only
	// delivers a flat transcript.
	Utterances []extract.Utterance

	// Transcript is the raw call text. When empty it is synthesized from the
	// caller utterances.
	Transcript string
}

// Service is the application layer over the intake pipeline.
type Service struct {
	store       record.Store
	extractor   *extract.Extractor
	classifier  *classify.Classifier
	engine      *guided.Engine
	reevaluator *reeval.Orchestrator
	dispatcher  notify.Dispatcher
	metrics     *observe.Metrics

	// sem bounds the detached classification goroutines; wg tracks them so
	// Wait can drain in-flight work during shutdown.
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// Config tunes the service.
type Config struct {
	// MaxConcurrentClassifications bounds detached classification work. Zero
	// means [DefaultMaxConcurrentClassifications].
	MaxConcurrentClassifications int
}

// Option configures a [Service]. Use these to inject test doubles.
type Option func(*Service)

// WithDispatcher injects a notification dispatcher instead of the default
// log-only one.
func WithDispatcher(d notify.Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

// WithMetrics injects a metrics instance instead of the package default.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires the pipeline components into a Service.
func NewService(store record.Store, extractor *extract.Extractor, classifier *classify.Classifier, engine *guided.Engine, cfg Config, opts ...Option) *Service {
	limit := cfg.MaxConcurrentClassifications
	if limit <= 0 {
		limit = DefaultMaxConcurrentClassifications
	}
	s := &Service{
		store:       store,
		extractor:   extractor,
		classifier:  classifier,
		engine:      engine,
		reevaluator: reeval.New(extractor, classifier),
		dispatcher:  notify.NewLogDispatcher(nil, ""),
		sem:         semaphore.NewWeighted(int64(limit)),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// ProcessCallReport extracts entities from a finished voice call, persists the
// record, and schedules classification in the background. The returned record
// carries the extraction outcome; classification writes back asynchronously.
func (s *Service) ProcessCallReport(ctx context.Context, rep CallReport) (*record.Record, error) {
	transcript := rep.Transcript
	if transcript == "" {
		transcript = joinCallerText(rep.Utterances)
	}

	addr := s.extractor.ExtractAddress(rep.Utterances, transcript)
	knownAddress := addr.Value
	if addr.IsDefault() {
		knownAddress = ""
	}
	name := s.extractor.ExtractName(rep.Utterances, transcript, knownAddress)

	s.metrics.RecordExtraction(ctx, "address", extractionOutcome(addr))
	s.metrics.RecordExtraction(ctx, "name", extractionOutcome(name))

	rec := &record.Record{
		Identity:          rep.Identity,
		Channel:           classify.ChannelVoice,
		Name:              name.Value,
		Address:           addr.Value,
		NameProvenance:    name.Provenance,
		AddressProvenance: addr.Provenance,
		Transcript:        transcript,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("intake: create record: %w", err)
	}

	s.scheduleClassification(ctx, rec.ID, transcript, classify.ChannelVoice)
	return rec, nil
}

// ProcessInboundSMS runs one SMS message through the guided session engine and
// returns the reply to send back. When the message completes a session, the
// collected fields are persisted as a record and classification is scheduled.
func (s *Service) ProcessInboundSMS(ctx context.Context, identity, body string) (string, error) {
	res, err := s.engine.ProcessMessage(ctx, identity, body)
	if err != nil {
		return "", fmt.Errorf("intake: process message: %w", err)
	}

	s.metrics.RecordSessionTransition(ctx, string(res.State))
	s.trackActiveSessions(ctx, res)

	if res.State == guided.StateComplete {
		if err := s.persistSession(ctx, res.Session); err != nil {
			return "", err
		}
	}
	return res.Reply, nil
}

// persistSession turns a completed guided session into a record and schedules
// its classification over the full message history.
func (s *Service) persistSession(ctx context.Context, sess guided.Session) error {
	transcript := strings.Join(sess.History, "\n")

	rec := &record.Record{
		Identity:          sess.Identity,
		Channel:           classify.ChannelSMS,
		Name:              sess.Name,
		Address:           sess.Address,
		NameProvenance:    provenanceSession,
		AddressProvenance: provenanceSession,
		Transcript:        transcript,
	}
	if rec.Name == "" {
		rec.Name = extract.DefaultName
		rec.NameProvenance = extract.ProvenanceDefault
	}
	if rec.Address == "" {
		rec.Address = extract.DefaultAddress
		rec.AddressProvenance = extract.ProvenanceDefault
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return fmt.Errorf("intake: create record: %w", err)
	}

	s.scheduleClassification(ctx, rec.ID, transcript, classify.ChannelSMS)
	return nil
}

// ReEvaluate reruns the pipeline over a stored record's transcript, appends
// the outcome to the record's evaluation history, and returns the proposal
// with its diff. The record itself is not modified; call [Service.ApplyEvaluation]
// to adopt the proposal.
func (s *Service) ReEvaluate(ctx context.Context, recordID string) (*record.Evaluation, reeval.DiffResult, error) {
	rec, err := s.store.Get(ctx, recordID)
	if err != nil {
		return nil, reeval.DiffResult{}, fmt.Errorf("intake: load record: %w", err)
	}

	current := reeval.Snapshot{
		Name:       rec.Name,
		Address:    rec.Address,
		Intent:     rec.Intent,
		Department: rec.Department,
		Summary:    rec.Summary,
	}

	// Structured utterances are not persisted; the stored transcript is the
	// only view the second pass gets.
	cand, diff := s.reevaluator.ReEvaluate(ctx, nil, rec.Transcript, rec.Channel, current)
	s.metrics.RecordReEvaluation(ctx, diff.Any())

	ev := &record.Evaluation{
		RecordID:   rec.ID,
		Name:       cand.Name,
		Address:    cand.Address,
		Intent:     cand.Intent,
		Department: cand.Department,
		Summary:    cand.Summary,
		Method:     cand.Method,
		Changed:    diff.Any(),
	}
	if err := s.store.AppendEvaluation(ctx, ev); err != nil {
		return nil, reeval.DiffResult{}, fmt.Errorf("intake: append evaluation: %w", err)
	}
	return ev, diff, nil
}

// ApplyEvaluation applies a previously appended proposal to its record.
func (s *Service) ApplyEvaluation(ctx context.Context, recordID string, evaluationID int64) error {
	return s.store.ApplyEvaluation(ctx, recordID, evaluationID)
}

// Wait blocks until all detached classification work has finished. Call it
// during shutdown after the transports stop accepting requests.
func (s *Service) Wait() {
	s.wg.Wait()
}

// scheduleClassification runs classification in a bounded background
// goroutine and writes the result back to the store. It returns immediately:
// the semaphore is acquired inside the detached goroutine, so a saturated
// classification pool queues work instead of stalling the response path. The
// work survives cancellation of the request context; failures are logged,
// never surfaced to the caller.
func (s *Service) scheduleClassification(ctx context.Context, recordID, text string, channel classify.Channel) {
	bctx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.sem.Acquire(bctx, 1); err != nil {
			slog.Warn("classification not scheduled", "record_id", recordID, "err", err)
			return
		}
		defer s.sem.Release(1)
		s.classifyAndDispatch(bctx, recordID, text, channel)
	}()
}

// classifyAndDispatch is the detached tail of intake: classify, write back,
// notify the responsible department.
func (s *Service) classifyAndDispatch(ctx context.Context, recordID, text string, channel classify.Channel) {
	start := time.Now()
	res := s.classifier.Classify(ctx, text, channel)
	s.metrics.RecordClassification(ctx, string(res.Method), string(res.Intent), time.Since(start).Seconds())

	if err := s.store.SetClassification(ctx, recordID, res); err != nil {
		slog.Error("classification write-back failed", "record_id", recordID, "err", err)
		return
	}

	rec, err := s.store.Get(ctx, recordID)
	if err != nil {
		slog.Error("record reload after classification failed", "record_id", recordID, "err", err)
		return
	}
	if err := s.dispatcher.Dispatch(ctx, rec); err != nil {
		s.metrics.RecordDispatchError(ctx, string(rec.Department))
		slog.Error("notification dispatch failed", "record_id", recordID, "department", rec.Department, "err", err)
	}
}

// trackActiveSessions keeps the live-session gauge in step with the store:
// up when a first message opens a session, down when a terminal transition
// removes one that had been persisted.
func (s *Service) trackActiveSessions(ctx context.Context, res guided.TransitionResult) {
	switch res.State {
	case guided.StateCollecting:
		if res.Session.MessageCount == 1 {
			s.metrics.ActiveSessions.Add(ctx, 1)
		}
	case guided.StateComplete:
		if res.Session.MessageCount > 1 {
			s.metrics.ActiveSessions.Add(ctx, -1)
		}
	case guided.StateCancelled, guided.StateExpired:
		// Cancel and expiry are checked before the message is appended, so a
		// nonzero count means the session predates this message.
		if res.Session.MessageCount > 0 {
			s.metrics.ActiveSessions.Add(ctx, -1)
		}
	}
}

// extractionOutcome maps a result to the metric attribute value.
func extractionOutcome(r extract.Result) string {
	if r.IsDefault() {
		return "default"
	}
	return "extracted"
}

// joinCallerText flattens caller utterances into a transcript substitute.
func joinCallerText(utterances []extract.Utterance) string {
	var parts []string
	for _, u := range utterances {
		if u.Role == extract.RoleCaller && strings.TrimSpace(u.Text) != "" {
			parts = append(parts, u.Text)
		}
	}
	return strings.Join(parts, " ")
}
