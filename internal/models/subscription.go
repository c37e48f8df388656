package models

import (
	"time"
)

// SubscriptionStatus represents whether a subscription still grants access
type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusRevoked SubscriptionStatus = "revoked"
)

// Subscription tracks plan state independently of one-off payments. It is a
// derived, eventually-consistent view: the sync dispatcher reconciles
// profiles against it in bulk.
type Subscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email     string             `gorm:"type:varchar(255);uniqueIndex:idx_subscriptions_email_plan" json:"email"`
	Plan      string             `gorm:"type:varchar(50);uniqueIndex:idx_subscriptions_email_plan" json:"plan"`
	Status    SubscriptionStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	StartedAt time.Time          `json:"started_at"`
}
