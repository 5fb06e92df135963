package intake_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xpandai03/inbot-ai-sub000/internal/classify"
	"github.com/xpandai03/inbot-ai-sub000/internal/extract"
	"github.com/xpandai03/inbot-ai-sub000/internal/guided"
	"github.com/xpandai03/inbot-ai-sub000/internal/intake"
	"github.com/xpandai03/inbot-ai-sub000/internal/record"
	"github.com/xpandai03/inbot-ai-sub000/pkg/provider/llm"
	"github.com/xpandai03/inbot-ai-sub000/pkg/provider/llm/mock"
)

// recordingDispatcher captures dispatched records for inspection.
type recordingDispatcher struct {
	mu    sync.Mutex
	calls []*record.Record
}

func (d *recordingDispatcher) Dispatch(_ context.Context, r *record.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, r)
	return nil
}

func (d *recordingDispatcher) records() []*record.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*record.Record(nil), d.calls...)
}

// newTestService wires a Service over in-memory stores with the rule-only
// classifier tier, so every outcome is deterministic.
func newTestService(t *testing.T) (*intake.Service, *record.MemStore, *recordingDispatcher) {
	t.Helper()

	store := record.NewMemStore()
	extractor := extract.NewExtractor()
	classifier := classify.New(nil, classify.Config{})
	engine := guided.NewEngine(guided.NewMemStore(0), extractor, guided.Config{})
	dispatcher := &recordingDispatcher{}

	svc := intake.NewService(store, extractor, classifier, engine, intake.Config{},
		intake.WithDispatcher(dispatcher),
	)
	return svc, store, dispatcher
}

func TestProcessCallReport(t *testing.T) {
	t.Parallel()
	svc, store, dispatcher := newTestService(t)
	ctx := context.Background()

	rec, err := svc.ProcessCallReport(ctx, intake.CallReport{
		Identity:   "+15550001111",
		Transcript: "Yeah hi, there's a big pothole. It's at eleven twenty two Main Street. My name is Derek Jones.",
	})
	if err != nil {
		t.Fatalf("ProcessCallReport: %v", err)
	}

	if rec.ID == "" {
		t.Error("record ID not assigned")
	}
	if rec.Channel != classify.ChannelVoice {
		t.Errorf("Channel = %q, want %q", rec.Channel, classify.ChannelVoice)
	}
	if rec.Name != "Derek Jones" {
		t.Errorf("Name = %q, want %q", rec.Name, "Derek Jones")
	}
	if rec.Address != "1122 Main Street" {
		t.Errorf("Address = %q, want %q", rec.Address, "1122 Main Street")
	}

	// Classification runs detached; drain it before asserting write-back.
	svc.Wait()

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Intent != classify.IntentPothole {
		t.Errorf("Intent = %q, want %q", got.Intent, classify.IntentPothole)
	}
	if got.Department != classify.DepartmentPublicWorks {
		t.Errorf("Department = %q, want %q", got.Department, classify.DepartmentPublicWorks)
	}
	if got.Method != classify.MethodFallback {
		t.Errorf("Method = %q, want %q", got.Method, classify.MethodFallback)
	}

	dispatched := dispatcher.records()
	if len(dispatched) != 1 {
		t.Fatalf("dispatched %d records, want 1", len(dispatched))
	}
	if dispatched[0].ID != rec.ID {
		t.Errorf("dispatched record %q, want %q", dispatched[0].ID, rec.ID)
	}
}

func TestProcessCallReportDefaults(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.ProcessCallReport(ctx, intake.CallReport{
		Identity:   "+15550002222",
		Transcript: "Um, something is broken I think.",
	})
	if err != nil {
		t.Fatalf("ProcessCallReport: %v", err)
	}

	if rec.Name != extract.DefaultName {
		t.Errorf("Name = %q, want default %q", rec.Name, extract.DefaultName)
	}
	if rec.NameProvenance != extract.ProvenanceDefault {
		t.Errorf("NameProvenance = %q, want %q", rec.NameProvenance, extract.ProvenanceDefault)
	}
	if rec.Address != extract.DefaultAddress {
		t.Errorf("Address = %q, want default %q", rec.Address, extract.DefaultAddress)
	}

	svc.Wait()
	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Intent != classify.IntentUnclassified {
		t.Errorf("Intent = %q, want %q", got.Intent, classify.IntentUnclassified)
	}
}

func TestProcessCallReportFromUtterances(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.ProcessCallReport(ctx, intake.CallReport{
		Identity: "+15550003333",
		Utterances: []extract.Utterance{
			{Role: extract.RoleSystem, Text: "How can I help you today?", Position: 0},
			{Role: extract.RoleCaller, Text: "There's graffiti on the wall at 42 Elm Street.", Position: 1},
			{Role: extract.RoleCaller, Text: "My name is Maria Lopez.", Position: 2},
		},
	})
	if err != nil {
		t.Fatalf("ProcessCallReport: %v", err)
	}

	if rec.Name != "Maria Lopez" {
		t.Errorf("Name = %q, want %q", rec.Name, "Maria Lopez")
	}
	if rec.Address != "42 Elm Street" {
		t.Errorf("Address = %q, want %q", rec.Address, "42 Elm Street")
	}
	// The synthesized transcript keeps only caller turns.
	if strings.Contains(rec.Transcript, "How can I help") {
		t.Errorf("Transcript contains system text: %q", rec.Transcript)
	}
	svc.Wait()
}

func TestProcessInboundSMSFlow(t *testing.T) {
	t.Parallel()
	svc, _, dispatcher := newTestService(t)
	ctx := context.Background()
	identity := "+15550004444"

	send := func(body string) string {
		t.Helper()
		reply, err := svc.ProcessInboundSMS(ctx, identity, body)
		if err != nil {
			t.Fatalf("ProcessInboundSMS(%q): %v", body, err)
		}
		return reply
	}

	r1 := send("hello")
	if r1 == "" {
		t.Fatal("first reply empty")
	}
	r2 := send("There's a big pothole on my street")
	if r2 == "" || r2 == r1 {
		t.Fatalf("second reply = %q, want a different question than %q", r2, r1)
	}
	r3 := send("It's at 5484 Oak Drive and my name is Maria Lopez")
	if !strings.Contains(strings.ToLower(r3), "thank") {
		t.Errorf("completion reply = %q, want an acknowledgement", r3)
	}

	svc.Wait()

	dispatched := dispatcher.records()
	if len(dispatched) != 1 {
		t.Fatalf("dispatched %d records, want 1", len(dispatched))
	}
	rec := dispatched[0]
	if rec.Channel != classify.ChannelSMS {
		t.Errorf("Channel = %q, want %q", rec.Channel, classify.ChannelSMS)
	}
	if rec.Identity != identity {
		t.Errorf("Identity = %q, want %q", rec.Identity, identity)
	}
	if rec.Name != "Maria Lopez" {
		t.Errorf("Name = %q, want %q", rec.Name, "Maria Lopez")
	}
	if rec.Address != "5484 Oak Drive" {
		t.Errorf("Address = %q, want %q", rec.Address, "5484 Oak Drive")
	}
	if rec.Intent != classify.IntentPothole {
		t.Errorf("Intent = %q, want %q", rec.Intent, classify.IntentPothole)
	}
	if !strings.Contains(rec.Transcript, "pothole") {
		t.Errorf("Transcript = %q, want the message history", rec.Transcript)
	}
}

func TestProcessInboundSMSCancelCreatesNoRecord(t *testing.T) {
	t.Parallel()
	svc, _, dispatcher := newTestService(t)
	ctx := context.Background()
	identity := "+15550005555"

	if _, err := svc.ProcessInboundSMS(ctx, identity, "There's a water main break"); err != nil {
		t.Fatalf("ProcessInboundSMS: %v", err)
	}
	if _, err := svc.ProcessInboundSMS(ctx, identity, "STOP"); err != nil {
		t.Fatalf("ProcessInboundSMS: %v", err)
	}

	svc.Wait()
	if got := dispatcher.records(); len(got) != 0 {
		t.Errorf("dispatched %d records after cancel, want 0", len(got))
	}
}

func TestReEvaluateAndApply(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	rec := &record.Record{
		Identity:          "+15550006666",
		Channel:           classify.ChannelVoice,
		Name:              extract.DefaultName,
		Address:           extract.DefaultAddress,
		NameProvenance:    extract.ProvenanceDefault,
		AddressProvenance: extract.ProvenanceDefault,
		Intent:            classify.IntentUnclassified,
		Department:        classify.DepartmentUnclassified,
		Transcript:        "Yeah hi, there's a big pothole. It's at eleven twenty two Main Street. My name is Derek Jones.",
	}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ev, diff, err := svc.ReEvaluate(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ReEvaluate: %v", err)
	}
	if !diff.Any() {
		t.Fatal("diff.Any() = false, want a changed proposal")
	}
	if !ev.Changed {
		t.Error("evaluation not marked changed")
	}
	if ev.Name != "Derek Jones" {
		t.Errorf("proposal Name = %q, want %q", ev.Name, "Derek Jones")
	}
	if ev.Address != "1122 Main Street" {
		t.Errorf("proposal Address = %q, want %q", ev.Address, "1122 Main Street")
	}

	// The record is untouched until the proposal is applied.
	before, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if before.Name != extract.DefaultName {
		t.Errorf("record mutated before apply: Name = %q", before.Name)
	}

	if err := svc.ApplyEvaluation(ctx, rec.ID, ev.ID); err != nil {
		t.Fatalf("ApplyEvaluation: %v", err)
	}
	after, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.Name != "Derek Jones" {
		t.Errorf("applied Name = %q, want %q", after.Name, "Derek Jones")
	}
	if after.Address != "1122 Main Street" {
		t.Errorf("applied Address = %q, want %q", after.Address, "1122 Main Street")
	}
	if after.Intent != classify.IntentPothole {
		t.Errorf("applied Intent = %q, want %q", after.Intent, classify.IntentPothole)
	}

	evs, err := store.Evaluations(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Evaluations: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("history length = %d, want 1", len(evs))
	}
	if evs[0].Status != record.EvaluationApplied {
		t.Errorf("status = %q, want %q", evs[0].Status, record.EvaluationApplied)
	}
}

func TestReEvaluateNoChange(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	rec := &record.Record{
		Identity:   "+15550007777",
		Channel:    classify.ChannelVoice,
		Name:       "Derek Jones",
		Address:    "1122 Main Street",
		Intent:     classify.IntentPothole,
		Department: classify.DepartmentPublicWorks,
		Transcript: "Yeah hi, there's a big pothole. It's at eleven twenty two Main Street. My name is Derek Jones.",
	}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Summary differs because the first pass above never set one, so compare
	// only the entity and category fields.
	_, diff, err := svc.ReEvaluate(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ReEvaluate: %v", err)
	}
	if diff.Name.Changed || diff.Address.Changed || diff.Intent.Changed || diff.Department.Changed {
		t.Errorf("unexpected change: %+v", diff)
	}
}

func TestProcessCallReportNotBlockedByClassificationBacklog(t *testing.T) {
	t.Parallel()

	// A provider that holds its single call open until released simulates a
	// slow LLM keeping the whole classification pool busy.
	release := make(chan struct{})
	provider := &mock.Provider{
		CompleteFunc: func(ctx context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil, errors.New("backend gone")
		},
	}

	store := record.NewMemStore()
	extractor := extract.NewExtractor()
	classifier := classify.New(provider, classify.Config{})
	engine := guided.NewEngine(guided.NewMemStore(0), extractor, guided.Config{})
	svc := intake.NewService(store, extractor, classifier, engine,
		intake.Config{MaxConcurrentClassifications: 1},
		intake.WithDispatcher(&recordingDispatcher{}),
	)
	ctx := context.Background()

	if _, err := svc.ProcessCallReport(ctx, intake.CallReport{
		Identity:   "+15550008888",
		Transcript: "There's a pothole at eleven twenty two Main Street.",
	}); err != nil {
		t.Fatalf("ProcessCallReport #1: %v", err)
	}

	// Wait until the first report's classification actually occupies the
	// pool's only slot.
	deadline := time.Now().Add(2 * time.Second)
	for len(provider.Calls()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("classifier never invoked for the first report")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// With the pool saturated, a second report must still get its response
	// right away; only its classification waits.
	done := make(chan error, 1)
	go func() {
		_, err := svc.ProcessCallReport(ctx, intake.CallReport{
			Identity:   "+15550009999",
			Transcript: "A streetlight is out at five four eight four Oak Drive.",
		})
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ProcessCallReport #2: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ProcessCallReport blocked behind classification backlog")
	}

	close(release)
	svc.Wait()
}
