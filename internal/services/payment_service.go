package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"kingsbalfx_app/internal/models"
)

// EventKind is the internal classification of a gateway notification
type EventKind string

const (
	EventKindChargeSuccess      EventKind = "charge_success"
	EventKindTransactionSuccess EventKind = "transaction_success"
	EventKindOther              EventKind = "other"
)

var (
	// ErrMalformedPayload means the webhook body was not valid JSON
	ErrMalformedPayload = errors.New("malformed gateway payload")
	// ErrMissingReference means the payload carried no transaction
	// reference, without which the event cannot be recorded idempotently
	ErrMissingReference = errors.New("gateway payload missing reference")
)

// GatewayEvent is the normalized form of a gateway notification. It is
// immutable after creation; Raw preserves the delivered bytes for audit.
type GatewayEvent struct {
	Kind          EventKind
	EventName     string // gateway's own event string, e.g. "charge.success"
	Reference     string
	AmountMinor   int64
	CustomerEmail string
	PlanHint      string
	UserID        string
	ReceivedAt    time.Time
	Raw           json.RawMessage
}

// gatewayPayload mirrors the webhook body shape:
// { event, data: { reference, amount, customer: { email }, metadata: { plan, userId } } }
type gatewayPayload struct {
	Event string      `json:"event"`
	Data  gatewayData `json:"data"`
}

type gatewayData struct {
	Reference     string `json:"reference"`
	Amount        int64  `json:"amount"`
	Email         string `json:"email"`
	CustomerEmail string `json:"customer_email"`
	Customer      struct {
		Email string `json:"email"`
	} `json:"customer"`
	Metadata map[string]interface{} `json:"metadata"`
}

// metaString returns the first non-empty string value among the given
// metadata keys.
func metaString(meta map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if raw, ok := meta[key]; ok {
			if str, ok := raw.(string); ok && strings.TrimSpace(str) != "" {
				return strings.TrimSpace(str)
			}
		}
	}
	return ""
}

// NormalizeEvent parses a raw webhook body into a GatewayEvent. Unknown
// event kinds normalize to EventKindOther so new gateway event types are
// recorded rather than rejected. The only hard requirements are valid JSON
// and a reference.
//
// The customer email can appear in several places; precedence is
// metadata email > nested customer email > top-level email fields.
func NormalizeEvent(raw []byte) (*GatewayEvent, error) {
	var payload gatewayPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	reference := strings.TrimSpace(payload.Data.Reference)
	if reference == "" {
		return nil, ErrMissingReference
	}

	kind := EventKindOther
	switch payload.Event {
	case "charge.success":
		kind = EventKindChargeSuccess
	case "transaction.success":
		kind = EventKindTransactionSuccess
	}

	email := metaString(payload.Data.Metadata, "email")
	if email == "" {
		email = strings.TrimSpace(payload.Data.Customer.Email)
	}
	if email == "" {
		email = strings.TrimSpace(payload.Data.CustomerEmail)
	}
	if email == "" {
		email = strings.TrimSpace(payload.Data.Email)
	}

	return &GatewayEvent{
		Kind:          kind,
		EventName:     payload.Event,
		Reference:     reference,
		AmountMinor:   payload.Data.Amount,
		CustomerEmail: strings.ToLower(email),
		PlanHint:      strings.ToLower(metaString(payload.Data.Metadata, "plan", "product")),
		UserID:        metaString(payload.Data.Metadata, "userId", "user_id"),
		ReceivedAt:    time.Now(),
		Raw:           json.RawMessage(raw),
	}, nil
}

// EntitlementResult is the outcome of one entitlement application attempt
type EntitlementResult string

const (
	// EntitlementApplied means the profile was brought up to date
	EntitlementApplied EntitlementResult = "applied"
	// EntitlementSkipped means the record required no profile change
	// (unsuccessful charge, missing or unrecognized plan)
	EntitlementSkipped EntitlementResult = "skipped"
	// EntitlementDeferred means the payment is recorded but no profile
	// matched; requires operator follow-up, never retried automatically
	EntitlementDeferred EntitlementResult = "deferred_no_profile"
)

// ProcessOutcome describes what one delivery did to the ledger and profile
type ProcessOutcome struct {
	Record      *models.PaymentRecord
	Duplicate   bool
	Entitlement EntitlementResult
}

// PaymentService runs the reconciliation pipeline: persist the raw event,
// write the idempotent ledger entry, then apply the entitlement change.
type PaymentService struct {
	store    Store
	email    *EmailService
	opsEmail string
}

func NewPaymentService(store Store, email *EmailService, opsEmail string) *PaymentService {
	return &PaymentService{store: store, email: email, opsEmail: opsEmail}
}

// ProcessEvent handles one normalized gateway event. Storage errors bubble
// up so the HTTP layer answers 5xx and the gateway redelivers; redelivery is
// absorbed by the unique-reference insert.
func (s *PaymentService) ProcessEvent(ctx context.Context, ev *GatewayEvent) (*ProcessOutcome, error) {
	// Raw event first: the ledger must show the delivery even when
	// everything after this point fails.
	rawEvent := &models.PaymentEvent{
		Event:      ev.EventName,
		Reference:  ev.Reference,
		Payload:    ev.Raw,
		ReceivedAt: ev.ReceivedAt,
	}
	if err := s.store.InsertPaymentEvent(ctx, rawEvent); err != nil {
		return nil, fmt.Errorf("failed to persist raw event: %w", err)
	}

	status := models.PaymentStatusPending
	if ev.Kind == EventKindChargeSuccess || ev.Kind == EventKindTransactionSuccess {
		status = models.PaymentStatusSuccess
	}

	record := &models.PaymentRecord{
		Reference:     ev.Reference,
		AmountMinor:   ev.AmountMinor,
		Plan:          ev.PlanHint,
		Status:        status,
		CustomerEmail: ev.CustomerEmail,
		UserID:        ev.UserID,
		ReceivedAt:    ev.ReceivedAt,
	}

	inserted, err := s.store.InsertPaymentRecord(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment record: %w", err)
	}
	if !inserted {
		log.Debug().Str("reference", ev.Reference).Msg("duplicate gateway event skipped")
		s.audit(ctx, models.AuditEventDuplicateEvent, map[string]interface{}{
			"reference": ev.Reference,
			"event":     ev.EventName,
		})
		return &ProcessOutcome{Duplicate: true, Entitlement: EntitlementSkipped}, nil
	}

	result, err := s.ApplyEntitlement(ctx, record)
	if err != nil {
		return nil, err
	}

	return &ProcessOutcome{Record: record, Entitlement: result}, nil
}

// ProcessVerifiedTransaction feeds a pull-verified gateway transaction into
// the same idempotent pipeline as the webhook path.
func (s *PaymentService) ProcessVerifiedTransaction(ctx context.Context, trx *Transaction) (*ProcessOutcome, error) {
	kind := EventKindOther
	if trx.Status == "success" {
		kind = EventKindTransactionSuccess
	}

	email := metaString(trx.Metadata, "email")
	if email == "" {
		email = strings.TrimSpace(trx.Customer.Email)
	}

	raw, err := json.Marshal(trx)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction: %w", err)
	}

	return s.ProcessEvent(ctx, &GatewayEvent{
		Kind:          kind,
		EventName:     "transaction.verify",
		Reference:     trx.Reference,
		AmountMinor:   trx.Amount,
		CustomerEmail: strings.ToLower(email),
		PlanHint:      strings.ToLower(metaString(trx.Metadata, "plan", "product")),
		UserID:        metaString(trx.Metadata, "userId", "user_id"),
		ReceivedAt:    time.Now(),
		Raw:           raw,
	})
}

// entitlementForPlan maps a recognized plan to the profile change it grants.
func entitlementForPlan(plan string) (role models.Role, lifetime bool, recognized bool) {
	switch plan {
	case "lifetime":
		return "", true, true
	case "vip":
		return models.RoleVIP, false, true
	case "premium":
		return models.RolePremium, false, true
	default:
		return "", false, false
	}
}

// ApplyEntitlement computes and applies the profile change for a ledger
// record. Re-applying the same record is a no-op: only fields whose value
// actually differs are written.
func (s *PaymentService) ApplyEntitlement(ctx context.Context, record *models.PaymentRecord) (EntitlementResult, error) {
	if record.Status != models.PaymentStatusSuccess {
		s.auditEntitlement(ctx, models.AuditEventEntitlementSkipped, record, "payment not successful")
		return EntitlementSkipped, nil
	}

	role, lifetime, recognized := entitlementForPlan(record.Plan)
	if !recognized {
		reason := "no plan in event metadata"
		if record.Plan != "" {
			reason = "unrecognized plan: " + record.Plan
		}
		log.Info().Str("reference", record.Reference).Str("plan", record.Plan).Msg("payment recorded without entitlement change")
		s.auditEntitlement(ctx, models.AuditEventEntitlementSkipped, record, reason)
		return EntitlementSkipped, nil
	}

	profile, err := s.resolveProfile(ctx, record)
	if err != nil {
		return "", err
	}
	if profile == nil {
		log.Warn().
			Str("reference", record.Reference).
			Str("customer_email", record.CustomerEmail).
			Str("user_id", record.UserID).
			Msg("payment recorded but no matching profile; entitlement deferred")
		s.auditEntitlement(ctx, models.AuditEventEntitlementDeferred, record, "no matching profile")
		s.notifyDeferred(record)
		return EntitlementDeferred, nil
	}

	fields := map[string]interface{}{}
	if lifetime && !profile.Lifetime {
		fields["lifetime"] = true
	}
	if role != "" && profile.Role != role {
		fields["role"] = role
	}
	if len(fields) > 0 {
		if err := s.store.UpdateProfile(ctx, profile.ID, fields); err != nil {
			return "", fmt.Errorf("failed to update profile %s: %w", profile.ID, err)
		}
	}

	email := profile.Email
	if email == "" {
		email = record.CustomerEmail
	}
	if email != "" {
		sub := &models.Subscription{
			Email:     strings.ToLower(email),
			Plan:      record.Plan,
			Status:    models.SubscriptionStatusActive,
			StartedAt: record.ReceivedAt,
		}
		if err := s.store.UpsertSubscription(ctx, sub); err != nil {
			return "", fmt.Errorf("failed to upsert subscription: %w", err)
		}
	}

	log.Info().
		Str("reference", record.Reference).
		Str("plan", record.Plan).
		Str("profile_id", profile.ID).
		Msg("entitlement applied")
	s.auditEntitlement(ctx, models.AuditEventEntitlementApplied, record, "")
	return EntitlementApplied, nil
}

// resolveProfile finds the entitlement subject: explicit userId from the
// event metadata wins, customer email is the fallback.
func (s *PaymentService) resolveProfile(ctx context.Context, record *models.PaymentRecord) (*models.Profile, error) {
	if record.UserID != "" {
		profile, err := s.store.GetProfileByID(ctx, record.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up profile by id: %w", err)
		}
		if profile != nil {
			return profile, nil
		}
	}
	if record.CustomerEmail != "" {
		profile, err := s.store.GetProfileByEmail(ctx, record.CustomerEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to look up profile by email: %w", err)
		}
		return profile, nil
	}
	return nil, nil
}

func (s *PaymentService) auditEntitlement(ctx context.Context, event string, record *models.PaymentRecord, reason string) {
	payload := map[string]interface{}{
		"reference":    record.Reference,
		"plan":         record.Plan,
		"amount_minor": record.AmountMinor,
	}
	if record.CustomerEmail != "" {
		payload["customer_email"] = record.CustomerEmail
	}
	if record.UserID != "" {
		payload["user_id"] = record.UserID
	}
	if reason != "" {
		payload["reason"] = reason
	}
	s.audit(ctx, event, payload)
}

// audit writes an operator-visible log entry. Best-effort: an audit write
// failure must not fail the payment itself.
func (s *PaymentService) audit(ctx context.Context, event string, payload map[string]interface{}) {
	entry := &models.AuditLog{Event: event, Payload: payload}
	if err := s.store.InsertAuditLog(ctx, entry); err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to write audit log")
	}
}

// notifyDeferred emails operators about a paid-but-unmatched record.
// Best-effort; the audit log is the durable trail.
func (s *PaymentService) notifyDeferred(record *models.PaymentRecord) {
	if s.email == nil || s.opsEmail == "" {
		return
	}
	subject := "Deferred entitlement: " + record.Reference
	body := fmt.Sprintf(
		"Payment %s (plan %q, amount %d, email %q, userId %q) was recorded but matched no profile. Manual follow-up required.",
		record.Reference, record.Plan, record.AmountMinor, record.CustomerEmail, record.UserID,
	)
	if err := s.email.SendEmail([]string{s.opsEmail}, subject, body); err != nil {
		log.Error().Err(err).Str("reference", record.Reference).Msg("failed to send deferred-entitlement notification")
	}
}
