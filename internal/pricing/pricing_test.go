package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierByID(t *testing.T) {
	tier, ok := TierByID("premium")
	require.True(t, ok)
	assert.Equal(t, "premium", tier.ID)
	assert.EqualValues(t, 90000, tier.Price)

	// case and whitespace insensitive
	tier, ok = TierByID("  VIP ")
	require.True(t, ok)
	assert.Equal(t, "vip", tier.ID)

	_, ok = TierByID("platinum")
	assert.False(t, ok)
}

func TestPurchasable(t *testing.T) {
	free, _ := TierByID("free")
	assert.False(t, free.Purchasable())

	for _, id := range []string{"premium", "vip", "pro", "lifetime"} {
		tier, ok := TierByID(id)
		require.True(t, ok)
		assert.True(t, tier.Purchasable(), id)
	}
}

func TestPriceMinor(t *testing.T) {
	vip, _ := TierByID("vip")
	assert.EqualValues(t, 15000000, vip.PriceMinor())
}

func TestDashboardPath(t *testing.T) {
	vip, _ := TierByID("vip")
	assert.Equal(t, "/dashboard/vip", vip.DashboardPath())

	premium, _ := TierByID("premium")
	assert.Equal(t, "/dashboard/premium", premium.DashboardPath())

	lifetime, _ := TierByID("lifetime")
	assert.Equal(t, "/dashboard", lifetime.DashboardPath())
}

func TestHasFeature(t *testing.T) {
	free, _ := TierByID("free")
	assert.True(t, free.HasFeature("signals"))
	assert.False(t, free.HasFeature("mentorship"))
	assert.False(t, free.HasFeature("bot_access"))

	vip, _ := TierByID("vip")
	assert.True(t, vip.HasFeature("Mentorship"))
	assert.True(t, vip.HasFeature(" bot_access "))
	assert.True(t, vip.HasFeature("priority_support"))
	assert.False(t, vip.HasFeature("teleportation"))
}

func TestAllOrder(t *testing.T) {
	all := All()
	require.Len(t, all, 5)
	assert.Equal(t, "free", all[0].ID)
	assert.Equal(t, "lifetime", all[4].ID)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "Free", FormatPrice(0))
	assert.Equal(t, "₦90000", FormatPrice(90000))
}
