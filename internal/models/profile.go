package models

import (
	"time"
)

// Role represents the access tier granted to a profile
type Role string

const (
	RoleUser    Role = "user"
	RolePremium Role = "premium"
	RoleVIP     Role = "vip"
	RoleAdmin   Role = "admin"
)

// Profile is the subject of entitlement. The row itself is owned by the
// identity provider: profiles are created and deleted elsewhere, this
// application only mutates the entitlement and bot fields.
type Profile struct {
	ID        string    `gorm:"primaryKey;type:varchar(128)" json:"id"` // identity provider UID
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email    string `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Role     Role   `gorm:"type:varchar(20);default:'user'" json:"role"`
	Lifetime bool   `gorm:"default:false" json:"lifetime"`

	// Bot configuration, kept in sync with the subscription table by the
	// sync dispatcher
	BotTier                string     `gorm:"type:varchar(50)" json:"bot_tier"`
	BotMaxSignalsPerDay    int        `json:"bot_max_signals_per_day"`
	BotMaxConcurrentTrades int        `json:"bot_max_concurrent_trades"`
	BotSignalQuality       string     `gorm:"type:varchar(50)" json:"bot_signal_quality"`
	BotTierUpdatedAt       *time.Time `json:"bot_tier_updated_at"`
}
