// Package notification subscribes to domain events and turns them into
// outbox messages for delivery. Domain modules never talk to SMTP directly;
// they publish events and this module inverts the dependency.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"propertyops_backend/internal/email"
	"propertyops_backend/internal/events"
	notificationoutbox "propertyops_backend/internal/notification/outbox"
	"propertyops_backend/platform/config"
	"propertyops_backend/platform/logger"
)

const (
	kindEmail = "email"

	maxOutboxRetryAttempts = 5
	outboxRetryBaseDelay   = time.Minute
	outboxRetryMaxDelay    = 60 * time.Minute
)

// emailSendOutboxPayload is the stored payload for kind "email" messages.
// Subject and body are rendered at enqueue time so delivery needs no domain
// lookups.
type emailSendOutboxPayload struct {
	ToEmail   string  `json:"toEmail"`
	Subject   string  `json:"subject"`
	Heading   string  `json:"heading"`
	BodyHTML  string  `json:"bodyHtml"`
	RequestID *string `json:"requestId,omitempty"`
}

// Module handles all notification-related event subscriptions.
type Module struct {
	pool   *pgxpool.Pool
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
	outbox *notificationoutbox.Repository
}

// New creates a new notification module.
func New(pool *pgxpool.Pool, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		pool:   pool,
		sender: sender,
		cfg:    cfg,
		log:    log,
		outbox: notificationoutbox.New(pool),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// Outbox exposes the outbox repository for the scheduler dispatcher.
func (m *Module) Outbox() *notificationoutbox.Repository { return m.outbox }

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.RequestSubmitted{}.EventName(), m)
	bus.Subscribe(events.RequestApproved{}.EventName(), m)
	bus.Subscribe(events.RequestDenied{}.EventName(), m)
	bus.Subscribe(events.RequestAssigned{}.EventName(), m)
	bus.Subscribe(events.RequestCompleted{}.EventName(), m)
	bus.Subscribe(events.RequestCancelled{}.EventName(), m)

	bus.Subscribe(events.EmergencyOpened{}.EventName(), m)
	bus.Subscribe(events.EscalationLevelRaised{}.EventName(), m)
	bus.Subscribe(events.EmergencyResolved{}.EventName(), m)

	bus.Subscribe(events.PenaltyIssued{}.EventName(), m)
	bus.Subscribe(events.ProviderStatusChanged{}.EventName(), m)

	bus.Subscribe(events.DisputeOpened{}.EventName(), m)
	bus.Subscribe(events.DisputeResolved{}.EventName(), m)

	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.RequestSubmitted:
		return m.handleRequestSubmitted(ctx, e)
	case events.RequestApproved:
		return m.handleRequestApproved(ctx, e)
	case events.RequestDenied:
		return m.handleRequestDenied(ctx, e)
	case events.RequestAssigned:
		return m.handleRequestAssigned(ctx, e)
	case events.RequestCompleted:
		return m.handleRequestCompleted(ctx, e)
	case events.RequestCancelled:
		return m.handleRequestCancelled(ctx, e)
	case events.EmergencyOpened:
		return m.handleEmergencyOpened(ctx, e)
	case events.EscalationLevelRaised:
		return m.handleEscalationLevelRaised(ctx, e)
	case events.EmergencyResolved:
		return m.handleEmergencyResolved(ctx, e)
	case events.PenaltyIssued:
		return m.handlePenaltyIssued(ctx, e)
	case events.ProviderStatusChanged:
		return m.handleProviderStatusChanged(ctx, e)
	case events.DisputeOpened:
		return m.handleDisputeOpened(ctx, e)
	case events.DisputeResolved:
		return m.handleDisputeResolved(ctx, e)
	case events.NotificationOutboxDue:
		return m.handleOutboxDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// requestParties holds the resolved parties of a maintenance request.
type requestParties struct {
	TenantID           uuid.UUID
	PropertyID         uuid.UUID
	AssignedProviderID *uuid.UUID
	Category           string
	Status             string
}

// resolveRequestParties fetches the parties of a request. Returns nil when
// the request cannot be resolved; the notification is then skipped.
func (m *Module) resolveRequestParties(ctx context.Context, requestID uuid.UUID) *requestParties {
	if m.pool == nil || requestID == uuid.Nil {
		return nil
	}
	var p requestParties
	err := m.pool.QueryRow(ctx,
		`SELECT tenant_id, property_id, assigned_provider_id, category, status
		   FROM maintenance_requests WHERE id = $1`,
		requestID,
	).Scan(&p.TenantID, &p.PropertyID, &p.AssignedProviderID, &p.Category, &p.Status)
	if err != nil {
		m.log.Debug("failed to resolve request parties", "requestId", requestID, "error", err)
		return nil
	}
	return &p
}

// resolveEmail looks up an account's email address.
func (m *Module) resolveEmail(ctx context.Context, userID uuid.UUID) (string, bool) {
	if m.pool == nil || userID == uuid.Nil {
		return "", false
	}
	var addr string
	err := m.pool.QueryRow(ctx,
		`SELECT email FROM accounts WHERE id = $1`, userID,
	).Scan(&addr)
	if err != nil || strings.TrimSpace(addr) == "" {
		m.log.Debug("failed to resolve account email", "userId", userID, "error", err)
		return "", false
	}
	return addr, true
}

// enqueueEmail inserts an email message into the outbox for delivery.
func (m *Module) enqueueEmail(ctx context.Context, requestID *uuid.UUID, template string, msg message, toEmail string) {
	if m.outbox == nil {
		m.log.Debug("notification outbox not configured; enqueue skipped", "template", template)
		return
	}
	if strings.TrimSpace(toEmail) == "" {
		return
	}

	payload := emailSendOutboxPayload{
		ToEmail:   toEmail,
		Subject:   msg.Subject,
		Heading:   msg.Heading,
		BodyHTML:  msg.BodyHTML,
		RequestID: ptrUUIDString(requestID),
	}
	id, err := m.outbox.Insert(ctx, notificationoutbox.InsertParams{
		RequestID: requestID,
		Kind:      kindEmail,
		Template:  template,
		Payload:   payload,
	})
	if err != nil {
		m.log.Error("failed to enqueue outbox message", "template", template, "error", err)
		return
	}
	m.log.Info("outbox message enqueued", "outboxId", id.String(), "kind", kindEmail, "template", template)
}

// notifyAccount resolves the account's email and enqueues the message.
func (m *Module) notifyAccount(ctx context.Context, requestID *uuid.UUID, userID uuid.UUID, template string, msg message) {
	addr, ok := m.resolveEmail(ctx, userID)
	if !ok {
		return
	}
	m.enqueueEmail(ctx, requestID, template, msg, addr)
}

// =============================================================================
// Domain event handlers
// =============================================================================

func (m *Module) handleRequestSubmitted(ctx context.Context, e events.RequestSubmitted) error {
	m.notifyAccount(ctx, &e.RequestID, e.TenantID, "request_submitted",
		composeRequestSubmitted(m.requestURL(e.RequestID), e.Category, e.IsEmergency))
	return nil
}

func (m *Module) handleRequestApproved(ctx context.Context, e events.RequestApproved) error {
	parties := m.resolveRequestParties(ctx, e.RequestID)
	if parties == nil {
		return nil
	}
	m.notifyAccount(ctx, &e.RequestID, parties.TenantID, "request_approved",
		composeRequestApproved(m.requestURL(e.RequestID), parties.Category, e.Auto))
	return nil
}

func (m *Module) handleRequestDenied(ctx context.Context, e events.RequestDenied) error {
	parties := m.resolveRequestParties(ctx, e.RequestID)
	if parties == nil {
		return nil
	}
	m.notifyAccount(ctx, &e.RequestID, parties.TenantID, "request_denied",
		composeRequestDenied(m.requestURL(e.RequestID), parties.Category, e.Reason))
	return nil
}

func (m *Module) handleRequestAssigned(ctx context.Context, e events.RequestAssigned) error {
	parties := m.resolveRequestParties(ctx, e.RequestID)

	m.notifyAccount(ctx, &e.RequestID, e.ProviderID, "provider_assigned",
		composeProviderAssigned(m.requestURL(e.RequestID), e.Source))

	if parties != nil {
		m.notifyAccount(ctx, &e.RequestID, parties.TenantID, "request_assigned",
			composeRequestAssignedTenant(m.requestURL(e.RequestID), parties.Category))
	}
	return nil
}

func (m *Module) handleRequestCompleted(ctx context.Context, e events.RequestCompleted) error {
	parties := m.resolveRequestParties(ctx, e.RequestID)
	if parties == nil {
		return nil
	}
	m.notifyAccount(ctx, &e.RequestID, parties.TenantID, "request_completed",
		composeRequestCompleted(m.requestURL(e.RequestID), parties.Category))
	return nil
}

func (m *Module) handleRequestCancelled(ctx context.Context, e events.RequestCancelled) error {
	parties := m.resolveRequestParties(ctx, e.RequestID)
	if parties == nil {
		return nil
	}

	msg := composeRequestCancelled(m.requestURL(e.RequestID), parties.Category, e.Reason)
	if parties.TenantID != e.CancelledBy {
		m.notifyAccount(ctx, &e.RequestID, parties.TenantID, "request_cancelled", msg)
	}
	if e.ProviderID != nil && *e.ProviderID != e.CancelledBy {
		m.notifyAccount(ctx, &e.RequestID, *e.ProviderID, "request_cancelled", msg)
	}
	return nil
}

func (m *Module) handleEmergencyOpened(ctx context.Context, e events.EmergencyOpened) error {
	parties := m.resolveRequestParties(ctx, e.RequestID)
	if parties == nil {
		return nil
	}
	m.notifyAccount(ctx, &e.RequestID, parties.TenantID, "emergency_opened",
		composeEmergencyOpened(m.requestURL(e.RequestID), e.EmergencyType, e.Deadline))
	return nil
}

func (m *Module) handleEscalationLevelRaised(ctx context.Context, e events.EscalationLevelRaised) error {
	msg := composeEscalationRaised(m.requestURL(e.RequestID), e.Level, e.NewDeadline)
	for _, party := range e.NotifiedParties {
		contact := strings.TrimSpace(party)
		if !strings.Contains(contact, "@") {
			m.log.Debug("escalation contact is not an email; skipping", "contact", contact)
			continue
		}
		m.enqueueEmail(ctx, &e.RequestID, "escalation_raised", msg, contact)
	}
	return nil
}

func (m *Module) handleEmergencyResolved(ctx context.Context, e events.EmergencyResolved) error {
	parties := m.resolveRequestParties(ctx, e.RequestID)
	if parties == nil {
		return nil
	}
	m.notifyAccount(ctx, &e.RequestID, parties.TenantID, "emergency_resolved",
		composeEmergencyResolved(m.requestURL(e.RequestID), e.ResolutionMinutes))
	return nil
}

func (m *Module) handlePenaltyIssued(ctx context.Context, e events.PenaltyIssued) error {
	m.notifyAccount(ctx, e.RequestID, e.ProviderID, "penalty_issued",
		composePenaltyIssued(e.Type, e.Points))
	return nil
}

func (m *Module) handleProviderStatusChanged(ctx context.Context, e events.ProviderStatusChanged) error {
	m.notifyAccount(ctx, nil, e.ProviderID, "provider_status_changed",
		composeProviderStatusChanged(e.OldStatus, e.NewStatus, e.Score))
	return nil
}

func (m *Module) handleDisputeOpened(ctx context.Context, e events.DisputeOpened) error {
	respondentID := m.resolveDisputeRespondent(ctx, e.DisputeID)
	if respondentID == nil {
		return nil
	}
	m.notifyAccount(ctx, &e.RequestID, *respondentID, "dispute_opened",
		composeDisputeOpened(m.requestURL(e.RequestID), e.Type))
	return nil
}

func (m *Module) handleDisputeResolved(ctx context.Context, e events.DisputeResolved) error {
	msg := composeDisputeResolved(m.requestURL(e.RequestID), e.CompensationCents)

	initiatorID, respondentID := m.resolveDisputeParties(ctx, e.DisputeID)
	if initiatorID != nil {
		m.notifyAccount(ctx, &e.RequestID, *initiatorID, "dispute_resolved", msg)
	}
	if respondentID != nil {
		m.notifyAccount(ctx, &e.RequestID, *respondentID, "dispute_resolved", msg)
	}
	return nil
}

func (m *Module) resolveDisputeRespondent(ctx context.Context, disputeID uuid.UUID) *uuid.UUID {
	_, respondent := m.resolveDisputeParties(ctx, disputeID)
	return respondent
}

func (m *Module) resolveDisputeParties(ctx context.Context, disputeID uuid.UUID) (*uuid.UUID, *uuid.UUID) {
	if m.pool == nil || disputeID == uuid.Nil {
		return nil, nil
	}
	var initiator uuid.UUID
	var respondent *uuid.UUID
	err := m.pool.QueryRow(ctx,
		`SELECT initiator_id, respondent_id FROM disputes WHERE id = $1`,
		disputeID,
	).Scan(&initiator, &respondent)
	if err != nil {
		m.log.Debug("failed to resolve dispute parties", "disputeId", disputeID, "error", err)
		return nil, nil
	}
	return &initiator, respondent
}

// =============================================================================
// Outbox delivery
// =============================================================================

// handleOutboxDue delivers a due outbox message. Transient send failures are
// rescheduled with backoff until the attempt budget runs out.
func (m *Module) handleOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	rec, err := m.outbox.GetByID(ctx, e.OutboxID)
	if err != nil {
		return fmt.Errorf("load outbox message %s: %w", e.OutboxID, err)
	}
	if rec.Status == notificationoutbox.StatusSucceeded {
		return nil
	}

	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return fmt.Errorf("mark outbox processing: %w", err)
	}
	attempt := rec.Attempts + 1

	if err := m.deliver(ctx, rec); err != nil {
		if attempt >= maxOutboxRetryAttempts {
			m.log.Error("outbox message failed permanently",
				"outboxId", rec.ID, "template", rec.Template, "attempts", attempt, "error", err)
			return m.outbox.MarkFailed(ctx, rec.ID, err.Error())
		}
		delay := retryDelay(attempt)
		msg := err.Error()
		m.log.Warn("outbox delivery failed; rescheduling",
			"outboxId", rec.ID, "template", rec.Template, "attempt", attempt, "retryIn", delay)
		return m.outbox.MarkPending(ctx, rec.ID, time.Now().UTC().Add(delay), &msg)
	}

	m.log.Info("outbox message delivered", "outboxId", rec.ID, "template", rec.Template)
	return m.outbox.MarkSucceeded(ctx, rec.ID)
}

func (m *Module) deliver(ctx context.Context, rec notificationoutbox.Record) error {
	switch rec.Kind {
	case kindEmail:
		var payload emailSendOutboxPayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
		return m.sender.SendNotificationEmail(ctx, payload.ToEmail, payload.Subject, payload.Heading, payload.BodyHTML)
	default:
		return fmt.Errorf("unsupported outbox kind %q", rec.Kind)
	}
}

func retryDelay(attempt int) time.Duration {
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}

func (m *Module) requestURL(requestID uuid.UUID) string {
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	return base + "/requests/" + requestID.String()
}

func ptrUUIDString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

var _ events.Handler = (*Module)(nil)
