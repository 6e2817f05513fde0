package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"propertyops_backend/internal/escalation/repository"
	"propertyops_backend/internal/events"
	maintdomain "propertyops_backend/internal/maintenance/domain"
	"propertyops_backend/platform/apperr"
	"propertyops_backend/platform/logger"
)

type recordBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordBus) Subscribe(string, events.Handler) {}

func (b *recordBus) byName(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

// ruleKey identifies a rule the same way the unique index does.
type ruleKey struct {
	trigger string
	level   int
}

type fakeRules struct {
	rules map[ruleKey]repository.Rule
}

func newFakeRules() *fakeRules {
	return &fakeRules{rules: make(map[ruleKey]repository.Rule)}
}

func (f *fakeRules) add(trigger string, level int, rule repository.Rule) {
	rule.ID = uuid.New()
	rule.TriggerCondition = trigger
	rule.Level = level
	f.rules[ruleKey{trigger, level}] = rule
}

func (f *fakeRules) Upsert(_ context.Context, p repository.RuleUpsertParams) (repository.Rule, error) {
	rule := repository.Rule{
		ID:                        uuid.New(),
		PropertyID:                p.PropertyID,
		TriggerCondition:          p.TriggerCondition,
		Level:                     p.Level,
		Contacts:                  p.Contacts,
		ProviderID:                p.ProviderID,
		MaxCostAuthorizationCents: p.MaxCostAuthorizationCents,
	}
	f.rules[ruleKey{p.TriggerCondition, p.Level}] = rule
	return rule, nil
}

func (f *fakeRules) Delete(context.Context, uuid.UUID) error { return nil }

func (f *fakeRules) ListByProperty(context.Context, uuid.UUID) ([]repository.Rule, error) {
	var out []repository.Rule
	for _, r := range f.rules {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRules) FindForLevel(_ context.Context, _ uuid.UUID, trigger string, level int) (repository.Rule, error) {
	if r, ok := f.rules[ruleKey{trigger, level}]; ok {
		return r, nil
	}
	if r, ok := f.rules[ruleKey{repository.TriggerAny, level}]; ok {
		return r, nil
	}
	return repository.Rule{}, apperr.Configuration("no escalation rule configured for this level")
}

type fakeTracking struct {
	mu      sync.Mutex
	records map[uuid.UUID]repository.Tracking // keyed by request ID
}

func newFakeTracking() *fakeTracking {
	return &fakeTracking{records: make(map[uuid.UUID]repository.Tracking)}
}

func (f *fakeTracking) Create(_ context.Context, p repository.CreateTrackingParams) (repository.Tracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	t := repository.Tracking{
		ID:               uuid.New(),
		RequestID:        p.RequestID,
		PropertyID:       p.PropertyID,
		EmergencyType:    p.EmergencyType,
		Level:            1,
		ResponseDeadline: p.ResponseDeadline,
		NotifiedParties:  p.NotifiedParties,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.records[p.RequestID] = t
	return t, nil
}

func (f *fakeTracking) GetByRequest(_ context.Context, requestID uuid.UUID) (repository.Tracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.records[requestID]
	if !ok {
		return repository.Tracking{}, apperr.NotFound("escalation tracking not found")
	}
	return t, nil
}

func (f *fakeTracking) ListDue(_ context.Context, now time.Time, limit int) ([]repository.Tracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Tracking
	for _, t := range f.records {
		if t.Resolved || t.FirstResponseAt != nil || t.ConfigError != nil {
			continue
		}
		if t.ResponseDeadline.After(now) {
			continue
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeTracking) Raise(_ context.Context, p repository.RaiseParams) (repository.Tracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for reqID, t := range f.records {
		if t.ID != p.ID {
			continue
		}
		if t.Level != p.FromLevel || t.Resolved || t.FirstResponseAt != nil {
			return repository.Tracking{}, apperr.ConcurrencyConflict("tracking record changed")
		}
		t.Level++
		t.ResponseDeadline = p.NewDeadline
		t.NotifiedParties = p.NotifiedParties
		f.records[reqID] = t
		return t, nil
	}
	return repository.Tracking{}, apperr.NotFound("escalation tracking not found")
}

func (f *fakeTracking) RecordFirstResponse(_ context.Context, requestID uuid.UUID, at time.Time) (repository.Tracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.records[requestID]
	if !ok {
		return repository.Tracking{}, apperr.NotFound("escalation tracking not found")
	}
	if t.FirstResponseAt == nil {
		t.FirstResponseAt = &at
		f.records[requestID] = t
	}
	return t, nil
}

func (f *fakeTracking) SetDeadline(_ context.Context, requestID uuid.UUID, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.records[requestID]
	if !ok {
		return apperr.NotFound("escalation tracking not found")
	}
	t.ResponseDeadline = deadline
	f.records[requestID] = t
	return nil
}

func (f *fakeTracking) SetConfigError(_ context.Context, id uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for reqID, t := range f.records {
		if t.ID == id {
			t.ConfigError = &message
			f.records[reqID] = t
			return nil
		}
	}
	return apperr.NotFound("escalation tracking not found")
}

func (f *fakeTracking) Resolve(_ context.Context, requestID uuid.UUID, at time.Time) (repository.Tracking, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.records[requestID]
	if !ok || t.Resolved {
		return t, false, nil
	}
	t.Resolved = true
	t.ResolvedAt = &at
	minutes := int(at.Sub(t.CreatedAt).Minutes())
	t.ResolutionMinutes = &minutes
	f.records[requestID] = t
	return t, true, nil
}

type requestActionCall struct {
	kind       string
	requestID  uuid.UUID
	ceiling    int64
	providerID uuid.UUID
}

type stubRequestActions struct {
	calls     []requestActionCall
	assignErr error
}

func (s *stubRequestActions) ApproveUpToCeiling(_ context.Context, requestID uuid.UUID, ceilingCents int64) error {
	s.calls = append(s.calls, requestActionCall{kind: "approve", requestID: requestID, ceiling: ceilingCents})
	return nil
}

func (s *stubRequestActions) AssignDirect(_ context.Context, requestID, providerID uuid.UUID) error {
	s.calls = append(s.calls, requestActionCall{kind: "assign", requestID: requestID, providerID: providerID})
	return s.assignErr
}

func newTestService() (*Service, *fakeTracking, *fakeRules, *recordBus) {
	tracking := newFakeTracking()
	rules := newFakeRules()
	bus := &recordBus{}
	svc := New(tracking, rules, bus, logger.New("development"))
	return svc, tracking, rules, bus
}

func TestOpenTracking_StartsAtLevelOneWithRuleContacts(t *testing.T) {
	svc, tracking, rules, bus := newTestService()
	providerID := uuid.New()
	rules.add("water", 1, repository.Rule{
		Contacts:   []string{"plumber@example.com"},
		ProviderID: &providerID,
	})

	requestID := uuid.New()
	result, err := svc.OpenTracking(context.Background(), requestID, uuid.New(), maintdomain.EmergencyWater)
	if err != nil {
		t.Fatalf("OpenTracking returned error: %v", err)
	}
	if result.DirectProviderID == nil || *result.DirectProviderID != providerID {
		t.Fatal("expected the level-1 provider to be returned for direct dispatch")
	}

	rec, err := tracking.GetByRequest(context.Background(), requestID)
	if err != nil {
		t.Fatalf("GetByRequest returned error: %v", err)
	}
	if rec.Level != 1 {
		t.Fatalf("Level = %d, want 1", rec.Level)
	}
	if len(rec.NotifiedParties) != 1 || rec.NotifiedParties[0] != "plumber@example.com" {
		t.Fatalf("NotifiedParties = %v, want the rule contacts", rec.NotifiedParties)
	}
	if got := len(bus.byName("escalation.emergency.opened")); got != 1 {
		t.Fatalf("expected 1 opened event, got %d", got)
	}
}

func TestOpenTracking_MissingRuleRecordsConfigErrorWithoutFailing(t *testing.T) {
	svc, tracking, _, bus := newTestService()

	requestID := uuid.New()
	result, err := svc.OpenTracking(context.Background(), requestID, uuid.New(), maintdomain.EmergencySafety)
	if err != nil {
		t.Fatalf("operator misconfiguration must not reject the emergency, got %v", err)
	}
	if result.TrackingID == uuid.Nil {
		t.Fatal("expected a tracking record even without a rule")
	}

	rec, _ := tracking.GetByRequest(context.Background(), requestID)
	if rec.ConfigError == nil {
		t.Fatal("expected the configuration error to be recorded on the tracking record")
	}
	if got := len(bus.byName("escalation.emergency.opened")); got != 0 {
		t.Fatalf("expected no opened event on a halted record, got %d", got)
	}
}

func TestEscalateDue_RaisesLevelAndMergesContacts(t *testing.T) {
	svc, tracking, rules, bus := newTestService()
	rules.add("water", 1, repository.Rule{Contacts: []string{"plumber@example.com"}})
	rules.add("water", 2, repository.Rule{Contacts: []string{"manager@example.com", "plumber@example.com"}})

	requestID := uuid.New()
	if _, err := svc.OpenTracking(context.Background(), requestID, uuid.New(), maintdomain.EmergencyWater); err != nil {
		t.Fatalf("OpenTracking returned error: %v", err)
	}
	// Push the deadline into the past so the sweep picks the record up.
	if err := tracking.SetDeadline(context.Background(), requestID, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SetDeadline returned error: %v", err)
	}

	raised, err := svc.EscalateDue(context.Background())
	if err != nil {
		t.Fatalf("EscalateDue returned error: %v", err)
	}
	if raised != 1 {
		t.Fatalf("raised = %d, want 1", raised)
	}

	rec, _ := tracking.GetByRequest(context.Background(), requestID)
	if rec.Level != 2 {
		t.Fatalf("Level = %d, want 2", rec.Level)
	}
	if !rec.ResponseDeadline.After(time.Now()) {
		t.Fatal("expected a fresh deadline after the raise")
	}
	want := []string{"plumber@example.com", "manager@example.com"}
	if len(rec.NotifiedParties) != len(want) {
		t.Fatalf("NotifiedParties = %v, want %v", rec.NotifiedParties, want)
	}
	for i, p := range want {
		if rec.NotifiedParties[i] != p {
			t.Fatalf("NotifiedParties = %v, want %v", rec.NotifiedParties, want)
		}
	}

	events := bus.byName("escalation.level.raised")
	if len(events) != 1 {
		t.Fatalf("expected 1 level raised event, got %d", len(events))
	}
}

func TestEscalateDue_AppliesCostAuthorizationAndDirectDispatch(t *testing.T) {
	svc, tracking, rules, _ := newTestService()
	providerID := uuid.New()
	rules.add("electrical", 1, repository.Rule{Contacts: []string{"oncall@example.com"}})
	rules.add("electrical", 2, repository.Rule{
		Contacts:                  []string{"backup@example.com"},
		ProviderID:                &providerID,
		MaxCostAuthorizationCents: 50000,
	})
	actions := &stubRequestActions{}
	svc.SetRequestActions(actions)

	requestID := uuid.New()
	if _, err := svc.OpenTracking(context.Background(), requestID, uuid.New(), maintdomain.EmergencyElectrical); err != nil {
		t.Fatalf("OpenTracking returned error: %v", err)
	}
	if err := tracking.SetDeadline(context.Background(), requestID, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SetDeadline returned error: %v", err)
	}

	if _, err := svc.EscalateDue(context.Background()); err != nil {
		t.Fatalf("EscalateDue returned error: %v", err)
	}

	if len(actions.calls) != 2 {
		t.Fatalf("request action calls = %d, want 2", len(actions.calls))
	}
	if actions.calls[0].kind != "approve" || actions.calls[0].ceiling != 50000 {
		t.Fatalf("first call = %+v, want cost authorization of 50000", actions.calls[0])
	}
	if actions.calls[1].kind != "assign" || actions.calls[1].providerID != providerID {
		t.Fatalf("second call = %+v, want direct dispatch", actions.calls[1])
	}

	// A successful dispatch counts as the first response.
	rec, _ := tracking.GetByRequest(context.Background(), requestID)
	if rec.FirstResponseAt == nil {
		t.Fatal("expected the dispatch to stamp the first response")
	}
}

func TestEscalateDue_MissingNextRuleHaltsRecord(t *testing.T) {
	svc, tracking, rules, _ := newTestService()
	rules.add("water", 1, repository.Rule{Contacts: []string{"plumber@example.com"}})

	requestID := uuid.New()
	if _, err := svc.OpenTracking(context.Background(), requestID, uuid.New(), maintdomain.EmergencyWater); err != nil {
		t.Fatalf("OpenTracking returned error: %v", err)
	}
	if err := tracking.SetDeadline(context.Background(), requestID, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SetDeadline returned error: %v", err)
	}

	raised, err := svc.EscalateDue(context.Background())
	if err != nil {
		t.Fatalf("EscalateDue returned error: %v", err)
	}
	if raised != 0 {
		t.Fatalf("raised = %d, want 0", raised)
	}

	rec, _ := tracking.GetByRequest(context.Background(), requestID)
	if rec.ConfigError == nil {
		t.Fatal("expected the missing rule to halt the record with a config error")
	}
	if rec.Level != 1 {
		t.Fatalf("Level = %d, want the level untouched", rec.Level)
	}

	// Halted records must not reappear on the next sweep.
	raised, err = svc.EscalateDue(context.Background())
	if err != nil {
		t.Fatalf("EscalateDue returned error: %v", err)
	}
	if raised != 0 {
		t.Fatalf("raised = %d on the second sweep, want 0", raised)
	}
}

func TestEscalateDue_MaxLevelReArmsDeadlineInsteadOfRaising(t *testing.T) {
	svc, tracking, rules, _ := newTestService()
	rules.add("water", 1, repository.Rule{Contacts: []string{"plumber@example.com"}})

	requestID := uuid.New()
	if _, err := svc.OpenTracking(context.Background(), requestID, uuid.New(), maintdomain.EmergencyWater); err != nil {
		t.Fatalf("OpenTracking returned error: %v", err)
	}
	tracking.mu.Lock()
	rec := tracking.records[requestID]
	rec.Level = 5
	rec.ResponseDeadline = time.Now().Add(-time.Minute)
	tracking.records[requestID] = rec
	tracking.mu.Unlock()

	raised, err := svc.EscalateDue(context.Background())
	if err != nil {
		t.Fatalf("EscalateDue returned error: %v", err)
	}
	if raised != 0 {
		t.Fatalf("raised = %d, want 0 at the top tier", raised)
	}

	after, _ := tracking.GetByRequest(context.Background(), requestID)
	if after.Level != 5 {
		t.Fatalf("Level = %d, want 5", after.Level)
	}
	if !after.ResponseDeadline.After(time.Now()) {
		t.Fatal("expected the deadline to be re-armed")
	}
}

func TestRecordResponse_FreezesAdvancement(t *testing.T) {
	svc, tracking, rules, _ := newTestService()
	rules.add("water", 1, repository.Rule{Contacts: []string{"plumber@example.com"}})
	rules.add("water", 2, repository.Rule{Contacts: []string{"manager@example.com"}})

	requestID := uuid.New()
	if _, err := svc.OpenTracking(context.Background(), requestID, uuid.New(), maintdomain.EmergencyWater); err != nil {
		t.Fatalf("OpenTracking returned error: %v", err)
	}
	if _, err := svc.RecordResponse(context.Background(), requestID); err != nil {
		t.Fatalf("RecordResponse returned error: %v", err)
	}
	if err := tracking.SetDeadline(context.Background(), requestID, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SetDeadline returned error: %v", err)
	}

	raised, err := svc.EscalateDue(context.Background())
	if err != nil {
		t.Fatalf("EscalateDue returned error: %v", err)
	}
	if raised != 0 {
		t.Fatalf("raised = %d, answered records must not advance", raised)
	}
}

func TestResolveForRequest_IsIdempotent(t *testing.T) {
	svc, _, rules, bus := newTestService()
	rules.add("water", 1, repository.Rule{Contacts: []string{"plumber@example.com"}})

	requestID := uuid.New()
	if _, err := svc.OpenTracking(context.Background(), requestID, uuid.New(), maintdomain.EmergencyWater); err != nil {
		t.Fatalf("OpenTracking returned error: %v", err)
	}

	if err := svc.ResolveForRequest(context.Background(), requestID); err != nil {
		t.Fatalf("ResolveForRequest returned error: %v", err)
	}
	if err := svc.ResolveForRequest(context.Background(), requestID); err != nil {
		t.Fatalf("second resolve returned error: %v", err)
	}
	if err := svc.ResolveForRequest(context.Background(), uuid.New()); err != nil {
		t.Fatalf("resolving an untracked request returned error: %v", err)
	}

	if got := len(bus.byName("escalation.emergency.resolved")); got != 1 {
		t.Fatalf("expected exactly 1 resolved event, got %d", got)
	}
}
