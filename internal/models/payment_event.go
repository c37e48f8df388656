package models

import (
	"encoding/json"
	"time"
)

// PaymentEvent stores a raw gateway notification verbatim. The table is
// append-only and is written before any further processing, so every
// delivery is auditable even when entitlement handling fails later.
type PaymentEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Event      string          `gorm:"type:varchar(100)" json:"event"`
	Reference  string          `gorm:"type:varchar(191);index" json:"reference"`
	Payload    json.RawMessage `gorm:"type:jsonb" json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}
