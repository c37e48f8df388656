package models

import (
	"time"
)

// PaymentStatus represents the outcome of a gateway transaction
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusPending PaymentStatus = "pending"
)

// PaymentRecord is the ledger entry derived from a PaymentEvent. The unique
// index on Reference enforces at-most-once recording under concurrent
// redeliveries of the same gateway notification.
type PaymentRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Reference     string        `gorm:"type:varchar(191);uniqueIndex" json:"reference"`
	AmountMinor   int64         `json:"amount_minor"` // currency's smallest unit (kobo for NGN)
	Plan          string        `gorm:"type:varchar(50)" json:"plan"`
	Status        PaymentStatus `gorm:"type:varchar(20)" json:"status"`
	CustomerEmail string        `gorm:"type:varchar(255);index" json:"customer_email"`
	UserID        string        `gorm:"type:varchar(128)" json:"user_id"`
	ReceivedAt    time.Time     `json:"received_at"`
}
