package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kingsbalfx_app/internal/models"
)

func chargeBody(reference, plan, email, userID string) []byte {
	meta := ""
	if plan != "" || userID != "" {
		meta = fmt.Sprintf(`,"metadata":{"plan":%q,"userId":%q}`, plan, userID)
	}
	return []byte(fmt.Sprintf(
		`{"event":"charge.success","data":{"reference":%q,"amount":9000000,"customer":{"email":%q}%s}}`,
		reference, email, meta))
}

func TestNormalizeEvent(t *testing.T) {
	t.Run("charge success", func(t *testing.T) {
		ev, err := NormalizeEvent(chargeBody("ref_1", "premium", "Trader@Example.com", "uid_1"))
		require.NoError(t, err)
		assert.Equal(t, EventKindChargeSuccess, ev.Kind)
		assert.Equal(t, "charge.success", ev.EventName)
		assert.Equal(t, "ref_1", ev.Reference)
		assert.EqualValues(t, 9000000, ev.AmountMinor)
		assert.Equal(t, "trader@example.com", ev.CustomerEmail)
		assert.Equal(t, "premium", ev.PlanHint)
		assert.Equal(t, "uid_1", ev.UserID)
	})

	t.Run("transaction success", func(t *testing.T) {
		ev, err := NormalizeEvent([]byte(`{"event":"transaction.success","data":{"reference":"ref_2"}}`))
		require.NoError(t, err)
		assert.Equal(t, EventKindTransactionSuccess, ev.Kind)
	})

	t.Run("unknown event normalizes to other", func(t *testing.T) {
		ev, err := NormalizeEvent([]byte(`{"event":"subscription.create","data":{"reference":"ref_3"}}`))
		require.NoError(t, err)
		assert.Equal(t, EventKindOther, ev.Kind)
		assert.Equal(t, "subscription.create", ev.EventName)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := NormalizeEvent([]byte(`{"event":`))
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("missing reference", func(t *testing.T) {
		_, err := NormalizeEvent([]byte(`{"event":"charge.success","data":{"amount":100}}`))
		assert.ErrorIs(t, err, ErrMissingReference)
	})

	t.Run("whitespace reference", func(t *testing.T) {
		_, err := NormalizeEvent([]byte(`{"event":"charge.success","data":{"reference":"   "}}`))
		assert.ErrorIs(t, err, ErrMissingReference)
	})

	t.Run("metadata email wins over customer email", func(t *testing.T) {
		ev, err := NormalizeEvent([]byte(`{"event":"charge.success","data":{
			"reference":"ref_4",
			"email":"top@example.com",
			"customer":{"email":"nested@example.com"},
			"metadata":{"email":"Meta@Example.com"}}}`))
		require.NoError(t, err)
		assert.Equal(t, "meta@example.com", ev.CustomerEmail)
	})

	t.Run("customer email wins over top-level", func(t *testing.T) {
		ev, err := NormalizeEvent([]byte(`{"event":"charge.success","data":{
			"reference":"ref_5",
			"email":"top@example.com",
			"customer_email":"flat@example.com",
			"customer":{"email":"nested@example.com"}}}`))
		require.NoError(t, err)
		assert.Equal(t, "nested@example.com", ev.CustomerEmail)
	})

	t.Run("plan falls back to product key", func(t *testing.T) {
		ev, err := NormalizeEvent([]byte(`{"event":"charge.success","data":{
			"reference":"ref_6",
			"metadata":{"product":"VIP"}}}`))
		require.NoError(t, err)
		assert.Equal(t, "vip", ev.PlanHint)
	})

	t.Run("userId falls back to snake case key", func(t *testing.T) {
		ev, err := NormalizeEvent([]byte(`{"event":"charge.success","data":{
			"reference":"ref_7",
			"metadata":{"user_id":"uid_7"}}}`))
		require.NoError(t, err)
		assert.Equal(t, "uid_7", ev.UserID)
	})

	t.Run("non-string metadata values ignored", func(t *testing.T) {
		ev, err := NormalizeEvent([]byte(`{"event":"charge.success","data":{
			"reference":"ref_8",
			"metadata":{"plan":42,"userId":true}}}`))
		require.NoError(t, err)
		assert.Empty(t, ev.PlanHint)
		assert.Empty(t, ev.UserID)
	})
}

func newTestPaymentService() (*PaymentService, *MemoryStore) {
	store := NewMemoryStore()
	return NewPaymentService(store, nil, ""), store
}

func TestProcessEventDuplicateSkipped(t *testing.T) {
	svc, store := newTestPaymentService()
	ctx := context.Background()
	store.AddProfile(&models.Profile{ID: "uid_1", Email: "trader@example.com", Role: models.RoleUser})

	body := chargeBody("ref_dup", "premium", "trader@example.com", "uid_1")

	ev, err := NormalizeEvent(body)
	require.NoError(t, err)
	first, err := svc.ProcessEvent(ctx, ev)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, EntitlementApplied, first.Entitlement)

	// Gateway redelivery: same reference, fresh normalization
	ev2, err := NormalizeEvent(body)
	require.NoError(t, err)
	second, err := svc.ProcessEvent(ctx, ev2)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, EntitlementSkipped, second.Entitlement)

	// One ledger row, two raw events
	assert.Equal(t, 1, store.PaymentRecordCount())
	assert.Equal(t, 2, store.PaymentEventCount())

	// Redelivery did not change the profile again
	profile, err := store.GetProfileByID(ctx, "uid_1")
	require.NoError(t, err)
	assert.Equal(t, models.RolePremium, profile.Role)
}

func TestProcessEventEntitlements(t *testing.T) {
	tests := []struct {
		name         string
		plan         string
		wantRole     models.Role
		wantLifetime bool
	}{
		{"premium grants premium role", "premium", models.RolePremium, false},
		{"vip grants vip role", "vip", models.RoleVIP, false},
		{"lifetime sets lifetime flag", "lifetime", models.RoleUser, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestPaymentService()
			ctx := context.Background()
			store.AddProfile(&models.Profile{ID: "uid_1", Email: "trader@example.com", Role: models.RoleUser})

			ev, err := NormalizeEvent(chargeBody("ref_1", tt.plan, "trader@example.com", "uid_1"))
			require.NoError(t, err)

			outcome, err := svc.ProcessEvent(ctx, ev)
			require.NoError(t, err)
			assert.Equal(t, EntitlementApplied, outcome.Entitlement)

			profile, err := store.GetProfileByID(ctx, "uid_1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, profile.Role)
			assert.Equal(t, tt.wantLifetime, profile.Lifetime)

			subs, err := store.ActiveSubscriptions(ctx)
			require.NoError(t, err)
			require.Len(t, subs, 1)
			assert.Equal(t, "trader@example.com", subs[0].Email)
			assert.Equal(t, tt.plan, subs[0].Plan)
		})
	}
}

func TestProcessEventLifetimeNeverRevoked(t *testing.T) {
	svc, store := newTestPaymentService()
	ctx := context.Background()
	store.AddProfile(&models.Profile{ID: "uid_1", Email: "trader@example.com", Role: models.RoleVIP, Lifetime: true})

	// A later premium purchase must not clear lifetime
	ev, err := NormalizeEvent(chargeBody("ref_later", "premium", "trader@example.com", "uid_1"))
	require.NoError(t, err)
	_, err = svc.ProcessEvent(ctx, ev)
	require.NoError(t, err)

	profile, err := store.GetProfileByID(ctx, "uid_1")
	require.NoError(t, err)
	assert.True(t, profile.Lifetime)
	assert.Equal(t, models.RolePremium, profile.Role)
}

func TestProcessEventUnrecognizedPlanSkipped(t *testing.T) {
	svc, store := newTestPaymentService()
	ctx := context.Background()
	store.AddProfile(&models.Profile{ID: "uid_1", Email: "trader@example.com", Role: models.RoleUser})

	ev, err := NormalizeEvent(chargeBody("ref_1", "platinum", "trader@example.com", "uid_1"))
	require.NoError(t, err)

	outcome, err := svc.ProcessEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, EntitlementSkipped, outcome.Entitlement)

	// Payment is still in the ledger
	assert.Equal(t, 1, store.PaymentRecordCount())

	profile, err := store.GetProfileByID(ctx, "uid_1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, profile.Role)
	assert.False(t, profile.Lifetime)
}

func TestProcessEventUnsuccessfulChargeSkipped(t *testing.T) {
	svc, store := newTestPaymentService()
	ctx := context.Background()
	store.AddProfile(&models.Profile{ID: "uid_1", Email: "trader@example.com", Role: models.RoleUser})

	ev, err := NormalizeEvent([]byte(`{"event":"charge.failed","data":{
		"reference":"ref_fail",
		"customer":{"email":"trader@example.com"},
		"metadata":{"plan":"premium","userId":"uid_1"}}}`))
	require.NoError(t, err)

	outcome, err := svc.ProcessEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, EntitlementSkipped, outcome.Entitlement)
	assert.Equal(t, models.PaymentStatusPending, outcome.Record.Status)

	profile, err := store.GetProfileByID(ctx, "uid_1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, profile.Role)
}

func TestProcessEventDeferredWhenNoProfile(t *testing.T) {
	svc, store := newTestPaymentService()
	ctx := context.Background()

	ev, err := NormalizeEvent(chargeBody("ref_orphan", "vip", "stranger@example.com", ""))
	require.NoError(t, err)

	outcome, err := svc.ProcessEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, EntitlementDeferred, outcome.Entitlement)

	// Ledger row exists and shows up as unmatched for the ops report
	unmatched, err := store.ListUnmatchedPayments(ctx)
	require.NoError(t, err)
	require.Len(t, unmatched, 1)
	assert.Equal(t, "ref_orphan", unmatched[0].Reference)
}

func TestResolveProfileUserIDWinsOverEmail(t *testing.T) {
	svc, store := newTestPaymentService()
	ctx := context.Background()
	store.AddProfile(&models.Profile{ID: "uid_a", Email: "a@example.com", Role: models.RoleUser})
	store.AddProfile(&models.Profile{ID: "uid_b", Email: "b@example.com", Role: models.RoleUser})

	// userId points at A, email points at B
	ev, err := NormalizeEvent(chargeBody("ref_1", "vip", "b@example.com", "uid_a"))
	require.NoError(t, err)
	_, err = svc.ProcessEvent(ctx, ev)
	require.NoError(t, err)

	a, err := store.GetProfileByID(ctx, "uid_a")
	require.NoError(t, err)
	assert.Equal(t, models.RoleVIP, a.Role)

	b, err := store.GetProfileByID(ctx, "uid_b")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, b.Role)
}

func TestProcessVerifiedTransaction(t *testing.T) {
	svc, store := newTestPaymentService()
	ctx := context.Background()
	store.AddProfile(&models.Profile{ID: "uid_1", Email: "trader@example.com", Role: models.RoleUser})

	trx := &Transaction{
		Status:    "success",
		Reference: "ref_pull",
		Amount:    15000000,
		Currency:  "NGN",
		Customer:  TransactionCustomer{Email: "trader@example.com"},
		Metadata:  map[string]interface{}{"plan": "vip", "userId": "uid_1"},
	}

	outcome, err := svc.ProcessVerifiedTransaction(ctx, trx)
	require.NoError(t, err)
	assert.Equal(t, EntitlementApplied, outcome.Entitlement)

	// Webhook delivery for the same reference is absorbed
	ev, err := NormalizeEvent(chargeBody("ref_pull", "vip", "trader@example.com", "uid_1"))
	require.NoError(t, err)
	second, err := svc.ProcessEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
}

func TestProcessVerifiedTransactionFailedStatus(t *testing.T) {
	svc, store := newTestPaymentService()
	ctx := context.Background()
	store.AddProfile(&models.Profile{ID: "uid_1", Email: "trader@example.com", Role: models.RoleUser})

	trx := &Transaction{
		Status:    "failed",
		Reference: "ref_pull_fail",
		Amount:    15000000,
		Customer:  TransactionCustomer{Email: "trader@example.com"},
		Metadata:  map[string]interface{}{"plan": "vip", "userId": "uid_1"},
	}

	outcome, err := svc.ProcessVerifiedTransaction(ctx, trx)
	require.NoError(t, err)
	assert.Equal(t, EntitlementSkipped, outcome.Entitlement)
	assert.Equal(t, models.PaymentStatusPending, outcome.Record.Status)
}
