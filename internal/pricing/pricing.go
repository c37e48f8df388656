package pricing

import (
	"fmt"
	"strings"
)

// Unlimited marks a feature with no numeric cap.
const Unlimited = -1

// Features describes what a tier unlocks for the bot and the community.
type Features struct {
	Signals              bool
	SignalQuality        string
	MaxSignalsPerDay     int
	Mentorship           bool
	MentorshipType       string
	CommunityAccess      string
	BotAccess            bool
	MaxConcurrentTrades  int
	TradingHistory       bool
	PerformanceAnalytics bool
	PrioritySupport      bool
}

// Tier is one pricing tier. All prices are NGN in major units.
type Tier struct {
	ID           string
	Name         string
	DisplayName  string
	Price        int64
	Currency     string
	BillingCycle string
	Description  string
	Features     Features
}

// Purchasable reports whether the tier can be bought through the gateway.
func (t Tier) Purchasable() bool {
	return t.Price > 0
}

// PriceMinor returns the tier price in the currency's smallest unit
// (kobo for NGN), which is what the gateway expects.
func (t Tier) PriceMinor() int64 {
	return t.Price * 100
}

// HasFeature reports whether the tier unlocks the named feature. Unknown
// feature names report false.
func (t Tier) HasFeature(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "signals":
		return t.Features.Signals
	case "mentorship":
		return t.Features.Mentorship
	case "bot_access":
		return t.Features.BotAccess
	case "trading_history":
		return t.Features.TradingHistory
	case "performance_analytics":
		return t.Features.PerformanceAnalytics
	case "priority_support":
		return t.Features.PrioritySupport
	default:
		return false
	}
}

// DashboardPath returns the post-checkout redirect destination for the tier.
func (t Tier) DashboardPath() string {
	switch t.ID {
	case "vip":
		return "/dashboard/vip"
	case "premium":
		return "/dashboard/premium"
	default:
		return "/dashboard"
	}
}

var tiers = map[string]Tier{
	"free": {
		ID:          "free",
		Name:        "Free Trial",
		DisplayName: "Trial",
		Price:       0,
		Currency:    "NGN",
		Description: "Get started with trading signals",
		Features: Features{
			Signals:          true,
			SignalQuality:    "standard",
			MaxSignalsPerDay: 3,
			CommunityAccess:  "limited",
		},
	},
	"premium": {
		ID:           "premium",
		Name:         "Premium",
		DisplayName:  "Premium",
		Price:        90000,
		Currency:     "NGN",
		BillingCycle: "monthly",
		Description:  "Professional trader toolkit",
		Features: Features{
			Signals:              true,
			SignalQuality:        "premium",
			MaxSignalsPerDay:     15,
			CommunityAccess:      "full",
			BotAccess:            true,
			MaxConcurrentTrades:  5,
			TradingHistory:       true,
			PerformanceAnalytics: true,
			PrioritySupport:      true,
		},
	},
	"vip": {
		ID:           "vip",
		Name:         "VIP",
		DisplayName:  "VIP",
		Price:        150000,
		Currency:     "NGN",
		BillingCycle: "monthly",
		Description:  "Elite mentorship & trading",
		Features: Features{
			Signals:              true,
			SignalQuality:        "vip",
			MaxSignalsPerDay:     30,
			Mentorship:           true,
			MentorshipType:       "group",
			CommunityAccess:      "vip",
			BotAccess:            true,
			MaxConcurrentTrades:  10,
			TradingHistory:       true,
			PerformanceAnalytics: true,
			PrioritySupport:      true,
		},
	},
	"pro": {
		ID:           "pro",
		Name:         "Pro Trader",
		DisplayName:  "Pro",
		Price:        250000,
		Currency:     "NGN",
		BillingCycle: "monthly",
		Description:  "Complete professional setup",
		Features: Features{
			Signals:              true,
			SignalQuality:        "pro",
			MaxSignalsPerDay:     Unlimited,
			Mentorship:           true,
			MentorshipType:       "one-on-one",
			CommunityAccess:      "pro",
			BotAccess:            true,
			MaxConcurrentTrades:  20,
			TradingHistory:       true,
			PerformanceAnalytics: true,
			PrioritySupport:      true,
		},
	},
	"lifetime": {
		ID:           "lifetime",
		Name:         "Lifetime",
		DisplayName:  "Lifetime",
		Price:        500000,
		Currency:     "NGN",
		BillingCycle: "one-time",
		Description:  "Lifetime access to everything",
		Features: Features{
			Signals:              true,
			SignalQuality:        "pro",
			MaxSignalsPerDay:     Unlimited,
			Mentorship:           true,
			MentorshipType:       "one-on-one",
			CommunityAccess:      "lifetime",
			BotAccess:            true,
			MaxConcurrentTrades:  Unlimited,
			TradingHistory:       true,
			PerformanceAnalytics: true,
			PrioritySupport:      true,
		},
	},
}

// order for display listings
var tierOrder = []string{"free", "premium", "vip", "pro", "lifetime"}

// TierByID looks up a tier by its identifier, case-insensitively.
func TierByID(id string) (Tier, bool) {
	t, ok := tiers[strings.ToLower(strings.TrimSpace(id))]
	return t, ok
}

// All returns every tier in display order.
func All() []Tier {
	out := make([]Tier, 0, len(tierOrder))
	for _, id := range tierOrder {
		out = append(out, tiers[id])
	}
	return out
}

// FormatPrice renders a price for display.
func FormatPrice(price int64) string {
	if price == 0 {
		return "Free"
	}
	return fmt.Sprintf("₦%d", price)
}
