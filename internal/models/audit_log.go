package models

import (
	"time"
)

// Audit event names written by the reconciliation pipeline and the admin
// endpoints.
const (
	AuditEventEntitlementApplied  = "entitlement_applied"
	AuditEventEntitlementSkipped  = "entitlement_skipped"
	AuditEventEntitlementDeferred = "entitlement_deferred"
	AuditEventDuplicateEvent      = "duplicate_event"
	AuditEventPricingSync         = "pricing_sync"
	AuditEventBulkPricingSync     = "bulk_pricing_sync"
	AuditEventLifetimeToggled     = "lifetime_toggled"
)

// AuditLog records one operator-visible entry per notable pipeline or admin
// action, always including the payment reference where one exists.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Event   string                 `gorm:"type:varchar(100);index" json:"event"`
	Payload map[string]interface{} `gorm:"serializer:json" json:"payload"`
}
