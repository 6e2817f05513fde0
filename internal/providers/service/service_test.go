package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"propertyops_backend/internal/events"
	"propertyops_backend/internal/providers/domain"
	"propertyops_backend/internal/providers/repository"
	"propertyops_backend/internal/providers/transport"
	"propertyops_backend/platform/apperr"
	"propertyops_backend/platform/httpkit"
	"propertyops_backend/platform/logger"
)

type testActor struct {
	id   uuid.UUID
	role string
}

func (a testActor) UserID() uuid.UUID { return a.id }
func (a testActor) Role() string      { return a.role }
func (a testActor) HasRole(roles ...string) bool {
	for _, r := range roles {
		if r == a.role {
			return true
		}
	}
	return false
}
func (a testActor) IsAuthenticated() bool { return true }

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

type fakeReliability struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.Counters
}

func newFakeReliability() *fakeReliability {
	return &fakeReliability{rows: make(map[uuid.UUID]domain.Counters)}
}

func (f *fakeReliability) Get(_ context.Context, providerID uuid.UUID) (repository.ReliabilityRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return repository.ReliabilityRow{ProviderID: providerID, Counters: f.rows[providerID]}, nil
}

func (f *fakeReliability) IncrementAssigned(_ context.Context, providerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.rows[providerID]
	c.TotalJobs++
	f.rows[providerID] = c
	return nil
}

func (f *fakeReliability) IncrementCompleted(_ context.Context, providerID uuid.UUID, rating *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.rows[providerID]
	c.CompletedJobs++
	if rating != nil {
		c.RatingSum += *rating
		c.RatingCount++
	}
	f.rows[providerID] = c
	return nil
}

func (f *fakeReliability) IncrementCancelled(_ context.Context, providerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.rows[providerID]
	c.CancelledJobs++
	f.rows[providerID] = c
	return nil
}

func (f *fakeReliability) IncrementNoShow(_ context.Context, providerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.rows[providerID]
	c.NoShowJobs++
	f.rows[providerID] = c
	return nil
}

type fakePenalties struct {
	mu        sync.Mutex
	penalties map[uuid.UUID]repository.Penalty
}

func newFakePenalties() *fakePenalties {
	return &fakePenalties{penalties: make(map[uuid.UUID]repository.Penalty)}
}

func (f *fakePenalties) Create(_ context.Context, p repository.CreatePenaltyParams) (repository.Penalty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	penalty := repository.Penalty{
		ID:         uuid.New(),
		ProviderID: p.ProviderID,
		RequestID:  p.RequestID,
		Type:       p.Type,
		Severity:   p.Severity,
		Points:     p.Points,
		Status:     repository.PenaltyActive,
		Reason:     p.Reason,
		IssuedBy:   p.IssuedBy,
		ExpiresAt:  p.ExpiresAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.penalties[penalty.ID] = penalty
	return penalty, nil
}

func (f *fakePenalties) GetByID(_ context.Context, id uuid.UUID) (repository.Penalty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.penalties[id]
	if !ok {
		return repository.Penalty{}, apperr.NotFound("penalty not found")
	}
	return p, nil
}

func (f *fakePenalties) ListByProvider(_ context.Context, providerID uuid.UUID) ([]repository.Penalty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Penalty
	for _, p := range f.penalties {
		if p.ProviderID == providerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePenalties) ActivePoints(_ context.Context, providerID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	total := 0
	for _, p := range f.penalties {
		if p.ProviderID != providerID {
			continue
		}
		if p.Status != repository.PenaltyActive {
			continue
		}
		if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
			continue
		}
		total += p.Points
	}
	return total, nil
}

func (f *fakePenalties) SetStatus(_ context.Context, id uuid.UUID, from, to repository.PenaltyStatus) (repository.Penalty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.penalties[id]
	if !ok {
		return repository.Penalty{}, apperr.NotFound("penalty not found")
	}
	if p.Status != from {
		return repository.Penalty{}, apperr.IllegalTransition(string(p.Status), string(to))
	}
	p.Status = to
	f.penalties[id] = p
	return p, nil
}

func (f *fakePenalties) ExpireDue(_ context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for id, p := range f.penalties {
		if p.Status != repository.PenaltyActive {
			continue
		}
		if p.ExpiresAt == nil || p.ExpiresAt.After(now) {
			continue
		}
		p.Status = repository.PenaltyExpired
		f.penalties[id] = p
		count++
	}
	return count, nil
}

func newTestService() (*Service, *fakeReliability, *fakePenalties, *recordBus) {
	reliability := newFakeReliability()
	penalties := newFakePenalties()
	bus := &recordBus{}
	svc := New(reliability, penalties, bus, logger.New("development"))
	return svc, reliability, penalties, bus
}

func TestGetReliability_NewProviderIsActiveAtFullScore(t *testing.T) {
	svc, _, _, _ := newTestService()

	resp, err := svc.GetReliability(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetReliability returned error: %v", err)
	}
	if resp.Score != 100 {
		t.Fatalf("Score = %v, want 100", resp.Score)
	}
	if resp.Status != string(domain.StatusActive) {
		t.Fatalf("Status = %q, want active", resp.Status)
	}
}

func TestIssuePenalty_RequiresLandlordOrAgency(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.IssuePenalty(context.Background(), testActor{id: uuid.New(), role: httpkit.RoleProvider}, uuid.New(), transport.IssuePenaltyRequest{Type: "late", Reason: "arrived two hours late"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestIssuePenalty_DefaultsPointsPerType(t *testing.T) {
	cases := []struct {
		penaltyType string
		wantPoints  int
	}{
		{"no_show", 20},
		{"late", 10},
		{"quality", 15},
		{"conduct", 25},
	}

	for _, tc := range cases {
		t.Run(tc.penaltyType, func(t *testing.T) {
			svc, _, _, _ := newTestService()
			landlord := testActor{id: uuid.New(), role: httpkit.RoleLandlord}

			resp, err := svc.IssuePenalty(context.Background(), landlord, uuid.New(), transport.IssuePenaltyRequest{
				Type:   tc.penaltyType,
				Reason: "documented infraction",
			})
			if err != nil {
				t.Fatalf("IssuePenalty returned error: %v", err)
			}
			if resp.Points != tc.wantPoints {
				t.Fatalf("Points = %d, want %d", resp.Points, tc.wantPoints)
			}
		})
	}
}

func TestIssuePenalty_UnknownTypeWithoutPointsIsRejected(t *testing.T) {
	svc, _, _, _ := newTestService()
	landlord := testActor{id: uuid.New(), role: httpkit.RoleLandlord}

	_, err := svc.IssuePenalty(context.Background(), landlord, uuid.New(), transport.IssuePenaltyRequest{Type: "vibes", Reason: "unclear"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIssuePenalty_NoShowAlsoCountsTowardNoShowRate(t *testing.T) {
	svc, reliability, _, bus := newTestService()
	landlord := testActor{id: uuid.New(), role: httpkit.RoleLandlord}
	providerID := uuid.New()

	if _, err := svc.IssuePenalty(context.Background(), landlord, providerID, transport.IssuePenaltyRequest{Type: "no_show", Reason: "never arrived"}); err != nil {
		t.Fatalf("IssuePenalty returned error: %v", err)
	}

	row, _ := reliability.Get(context.Background(), providerID)
	if row.Counters.NoShowJobs != 1 {
		t.Fatalf("NoShowJobs = %d, want 1", row.Counters.NoShowJobs)
	}
	if got := len(bus.byName("providers.penalty.issued")); got != 1 {
		t.Fatalf("expected 1 penalty issued event, got %d", got)
	}
}

func TestIssuePenalty_ThresholdCrossingPublishesStatusChange(t *testing.T) {
	svc, _, _, bus := newTestService()
	landlord := testActor{id: uuid.New(), role: httpkit.RoleLandlord}
	providerID := uuid.New()

	// 100 - 35 = 65, crossing active → warning.
	_, err := svc.IssuePenalty(context.Background(), landlord, providerID, transport.IssuePenaltyRequest{
		Type:   "conduct",
		Points: 35,
		Reason: "verbal abuse reported by tenant",
	})
	if err != nil {
		t.Fatalf("IssuePenalty returned error: %v", err)
	}

	changed := bus.byName("providers.status.changed")
	if len(changed) != 1 {
		t.Fatalf("expected 1 status changed event, got %d", len(changed))
	}
	ev := changed[0].(events.ProviderStatusChanged)
	if ev.OldStatus != string(domain.StatusActive) || ev.NewStatus != string(domain.StatusWarning) {
		t.Fatalf("status change %q → %q, want active → warning", ev.OldStatus, ev.NewStatus)
	}
}

func TestIssuePenalty_NoEventWithoutThresholdCrossing(t *testing.T) {
	svc, _, _, bus := newTestService()
	landlord := testActor{id: uuid.New(), role: httpkit.RoleLandlord}

	// 100 - 10 = 90, still active.
	if _, err := svc.IssuePenalty(context.Background(), landlord, uuid.New(), transport.IssuePenaltyRequest{Type: "late", Reason: "one hour late"}); err != nil {
		t.Fatalf("IssuePenalty returned error: %v", err)
	}
	if got := len(bus.byName("providers.status.changed")); got != 0 {
		t.Fatalf("expected no status changed event inside the active band, got %d", got)
	}
}

func TestCheckEligible_BlocksSuspendedProviders(t *testing.T) {
	svc, _, penalties, _ := newTestService()
	providerID := uuid.New()

	if err := svc.CheckEligible(context.Background(), providerID); err != nil {
		t.Fatalf("a clean provider must be eligible, got %v", err)
	}

	// 70 points → score 30 → suspended.
	if _, err := penalties.Create(context.Background(), repository.CreatePenaltyParams{
		ProviderID: providerID,
		Type:       "conduct",
		Points:     70,
		Reason:     "severe misconduct",
	}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	err := svc.CheckEligible(context.Background(), providerID)
	if !apperr.Is(err, apperr.KindPolicyViolation) {
		t.Fatalf("expected policy violation for a suspended provider, got %v", err)
	}
}

func TestAppealPenalty_PointsStopCountingWhileAppealed(t *testing.T) {
	svc, _, penalties, _ := newTestService()
	providerID := uuid.New()
	landlord := testActor{id: uuid.New(), role: httpkit.RoleLandlord}

	penalty, err := svc.IssuePenalty(context.Background(), landlord, providerID, transport.IssuePenaltyRequest{Type: "quality", Reason: "work failed inspection"})
	if err != nil {
		t.Fatalf("IssuePenalty returned error: %v", err)
	}

	if _, err := svc.AppealPenalty(context.Background(), testActor{id: uuid.New(), role: httpkit.RoleProvider}, penalty.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for a different provider, got %v", err)
	}

	appealed, err := svc.AppealPenalty(context.Background(), testActor{id: providerID, role: httpkit.RoleProvider}, penalty.ID)
	if err != nil {
		t.Fatalf("AppealPenalty returned error: %v", err)
	}
	if appealed.Status != string(repository.PenaltyAppealed) {
		t.Fatalf("Status = %q, want appealed", appealed.Status)
	}

	points, _ := penalties.ActivePoints(context.Background(), providerID)
	if points != 0 {
		t.Fatalf("ActivePoints = %d, only active penalties count", points)
	}

	resp, err := svc.GetReliability(context.Background(), providerID)
	if err != nil {
		t.Fatalf("GetReliability returned error: %v", err)
	}
	if resp.ActivePenaltyPoints != 0 || resp.Score != 100 {
		t.Fatalf("points = %d, score = %v; an appealed penalty must not deduct", resp.ActivePenaltyPoints, resp.Score)
	}
}

func TestDecideAppeal_OverturnRemovesPoints(t *testing.T) {
	svc, _, penalties, _ := newTestService()
	providerID := uuid.New()
	landlord := testActor{id: uuid.New(), role: httpkit.RoleLandlord}

	penalty, err := svc.IssuePenalty(context.Background(), landlord, providerID, transport.IssuePenaltyRequest{Type: "quality", Reason: "work failed inspection"})
	if err != nil {
		t.Fatalf("IssuePenalty returned error: %v", err)
	}
	if _, err := svc.AppealPenalty(context.Background(), testActor{id: providerID, role: httpkit.RoleProvider}, penalty.ID); err != nil {
		t.Fatalf("AppealPenalty returned error: %v", err)
	}

	decided, err := svc.DecideAppeal(context.Background(), landlord, penalty.ID, true)
	if err != nil {
		t.Fatalf("DecideAppeal returned error: %v", err)
	}
	if decided.Status != string(repository.PenaltyOverturned) {
		t.Fatalf("Status = %q, want overturned", decided.Status)
	}

	points, _ := penalties.ActivePoints(context.Background(), providerID)
	if points != 0 {
		t.Fatalf("ActivePoints = %d, want 0 after overturn", points)
	}
}

func TestDecideAppeal_UpholdReturnsPenaltyToActive(t *testing.T) {
	svc, _, penalties, _ := newTestService()
	providerID := uuid.New()
	landlord := testActor{id: uuid.New(), role: httpkit.RoleLandlord}

	penalty, err := svc.IssuePenalty(context.Background(), landlord, providerID, transport.IssuePenaltyRequest{Type: "late", Reason: "repeatedly late"})
	if err != nil {
		t.Fatalf("IssuePenalty returned error: %v", err)
	}
	if _, err := svc.AppealPenalty(context.Background(), testActor{id: providerID, role: httpkit.RoleProvider}, penalty.ID); err != nil {
		t.Fatalf("AppealPenalty returned error: %v", err)
	}

	decided, err := svc.DecideAppeal(context.Background(), landlord, penalty.ID, false)
	if err != nil {
		t.Fatalf("DecideAppeal returned error: %v", err)
	}
	if decided.Status != string(repository.PenaltyActive) {
		t.Fatalf("Status = %q, want active", decided.Status)
	}

	points, _ := penalties.ActivePoints(context.Background(), providerID)
	if points != 10 {
		t.Fatalf("ActivePoints = %d, an upheld penalty must count again", points)
	}
}

func TestExpireDuePenalties_LetsScoresRecover(t *testing.T) {
	svc, _, penalties, _ := newTestService()
	providerID := uuid.New()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)

	if _, err := penalties.Create(context.Background(), repository.CreatePenaltyParams{ProviderID: providerID, Type: "late", Points: 10, Reason: "late", ExpiresAt: &past}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := penalties.Create(context.Background(), repository.CreatePenaltyParams{ProviderID: providerID, Type: "quality", Points: 15, Reason: "poor work", ExpiresAt: &future}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	expired, err := svc.ExpireDuePenalties(context.Background())
	if err != nil {
		t.Fatalf("ExpireDuePenalties returned error: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	points, _ := penalties.ActivePoints(context.Background(), providerID)
	if points != 15 {
		t.Fatalf("ActivePoints = %d, want only the unexpired penalty", points)
	}
}

func TestRecordCompletion_FoldsInRating(t *testing.T) {
	svc, reliability, _, _ := newTestService()
	providerID := uuid.New()

	if err := svc.RecordAssignment(context.Background(), providerID); err != nil {
		t.Fatalf("RecordAssignment returned error: %v", err)
	}
	rating := 4
	if err := svc.RecordCompletion(context.Background(), providerID, &rating); err != nil {
		t.Fatalf("RecordCompletion returned error: %v", err)
	}

	row, _ := reliability.Get(context.Background(), providerID)
	if row.Counters.TotalJobs != 1 || row.Counters.CompletedJobs != 1 {
		t.Fatalf("counters = %+v, want one assigned and one completed job", row.Counters)
	}
	if row.Counters.RatingSum != 4 || row.Counters.RatingCount != 1 {
		t.Fatalf("rating counters = %+v, want the rating folded in", row.Counters)
	}
}
