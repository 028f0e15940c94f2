// internal/pricing/pricing_test.go
package pricing

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wad returns n whole units in WAD scale.
func wad(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), WAD)
}

// testParams is the worked example from the reference docs:
// basePrice = 1000 WAD, slope = 100 WAD.
func testParams(t *testing.T) Params {
	t.Helper()
	p, err := NewParams(wad(1000), wad(100))
	require.NoError(t, err)
	return p
}

func TestNewParams_Validation(t *testing.T) {
	_, err := NewParams(uint256.NewInt(0), wad(1))
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewParams(wad(1), uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewParams(nil, wad(1))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestPriceAt_WorkedExamples(t *testing.T) {
	p := testParams(t)

	price, err := p.PriceAt(uint256.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, wad(1000), price, "price at zero supply is the base price")

	price, err = p.PriceAt(wad(100))
	require.NoError(t, err)
	assert.Equal(t, wad(11000), price, "price at supply 100 = 1000 + 100*100")
}

func TestPriceAt_Monotonic(t *testing.T) {
	p := testParams(t)

	prev := uint256.NewInt(0)
	supplies := []*uint256.Int{
		uint256.NewInt(0),
		uint256.NewInt(1),
		uint256.NewInt(999_999_999),
		wad(1),
		wad(7),
		new(uint256.Int).Add(wad(7), uint256.NewInt(3)),
		wad(100),
		wad(1_000_000),
	}
	for _, s := range supplies {
		price, err := p.PriceAt(s)
		require.NoError(t, err)
		assert.True(t, price.Cmp(prev) >= 0, "price must not decrease: supply=%s", s.Dec())
		prev = price
	}
}

func TestBuyCost_WorkedExample(t *testing.T) {
	p := testParams(t)

	// buyCost(100, 1) = 1000 + ceil(100*(200+1)/2) = 1000 + 10050 = 11050
	cost, err := p.BuyCost(wad(100), wad(1))
	require.NoError(t, err)
	assert.Equal(t, wad(11050), cost)
}

func TestBuyCost_ZeroAmount(t *testing.T) {
	p := testParams(t)
	_, err := p.BuyCost(wad(10), uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrZeroAmount)
}

func TestSellProceeds_Preconditions(t *testing.T) {
	p := testParams(t)

	_, err := p.SellProceeds(wad(10), uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = p.SellProceeds(wad(10), wad(11))
	assert.ErrorIs(t, err, ErrAmountExceedsSupply, "selling more than the supply is an error, not a clamp")
}

func TestNoRoundingArbitrage(t *testing.T) {
	p := testParams(t)

	// Deliberately ragged, non-WAD-aligned values: this is where the
	// rounding directions have to carry the property on their own.
	cases := []struct {
		supply *uint256.Int
		amount *uint256.Int
	}{
		{wad(100), wad(1)},
		{wad(100), uint256.NewInt(1)},
		{new(uint256.Int).Add(wad(33), uint256.NewInt(777)), uint256.NewInt(12345)},
		{new(uint256.Int).Add(wad(999), uint256.NewInt(1)), new(uint256.Int).Add(wad(3), uint256.NewInt(7))},
		{wad(1), uint256.NewInt(999_999_999_999)},
	}

	for _, tc := range cases {
		lower := new(uint256.Int).Sub(tc.supply, tc.amount)

		cost, err := p.BuyCost(lower, tc.amount)
		require.NoError(t, err)
		proceeds, err := p.SellProceeds(tc.supply, tc.amount)
		require.NoError(t, err)

		assert.True(t, cost.Cmp(proceeds) >= 0,
			"buy must never be cheaper than the matching sell: s=%s d=%s buy=%s sell=%s",
			tc.supply.Dec(), tc.amount.Dec(), cost.Dec(), proceeds.Dec())
	}
}

func TestBuyCost_SplitPurchaseConsistency(t *testing.T) {
	p := testParams(t)

	supply := wad(50)
	d1 := wad(3)
	d2 := wad(7)

	combined, err := p.BuyCost(supply, new(uint256.Int).Add(d1, d2))
	require.NoError(t, err)

	first, err := p.BuyCost(supply, d1)
	require.NoError(t, err)
	second, err := p.BuyCost(new(uint256.Int).Add(supply, d1), d2)
	require.NoError(t, err)

	split := new(uint256.Int).Add(first, second)

	// Combined purchase may be at most one rounding unit cheaper than
	// the split purchase, never unboundedly cheaper.
	withSlack := new(uint256.Int).Add(combined, uint256.NewInt(1))
	assert.True(t, withSlack.Cmp(split) >= 0,
		"combined=%s split=%s", combined.Dec(), split.Dec())
	// And splitting can never beat buying in one go.
	assert.True(t, split.Cmp(combined) >= 0,
		"split purchase must not be cheaper: combined=%s split=%s", combined.Dec(), split.Dec())
}

func TestRoundTrip_NeverProfitable(t *testing.T) {
	p := testParams(t)

	supplies := []*uint256.Int{
		uint256.NewInt(0),
		uint256.NewInt(5),
		wad(10),
		new(uint256.Int).Add(wad(42), uint256.NewInt(999)),
	}
	amounts := []*uint256.Int{
		uint256.NewInt(1),
		uint256.NewInt(31337),
		wad(1),
		new(uint256.Int).Add(wad(2), uint256.NewInt(1)),
	}

	for _, s := range supplies {
		for _, d := range amounts {
			cost, err := p.BuyCost(s, d)
			require.NoError(t, err)

			after := new(uint256.Int).Add(s, d)
			proceeds, err := p.SellProceeds(after, d)
			require.NoError(t, err)

			assert.True(t, proceeds.Cmp(cost) <= 0,
				"buy-then-sell must not profit: s=%s d=%s cost=%s proceeds=%s",
				s.Dec(), d.Dec(), cost.Dec(), proceeds.Dec())

			// The rounding gap stays within the handful of rounding
			// steps involved, it does not drift.
			gap := new(uint256.Int).Sub(cost, proceeds)
			assert.True(t, gap.Cmp(uint256.NewInt(4)) <= 0,
				"rounding gap too large: s=%s d=%s gap=%s", s.Dec(), d.Dec(), gap.Dec())
		}
	}
}

func TestMarketCap(t *testing.T) {
	p := testParams(t)

	cap, err := p.MarketCap(uint256.NewInt(0))
	require.NoError(t, err)
	assert.True(t, cap.IsZero())

	// cap(100) = 11000 * 100 = 1_100_000 whole units
	cap, err = p.MarketCap(wad(100))
	require.NoError(t, err)
	assert.Equal(t, wad(1_100_000), cap)
}

func TestOverflow_IsHardError(t *testing.T) {
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	p, err := NewParams(huge, huge)
	require.NoError(t, err)

	_, err = p.PriceAt(huge)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = p.BuyCost(huge, huge)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = p.MarketCap(huge)
	assert.ErrorIs(t, err, ErrOverflow)
}
