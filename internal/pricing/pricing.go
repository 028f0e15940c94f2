// internal/pricing/pricing.go
package pricing

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// WAD is the fixed-point scale for prices, supplies and curve
// parameters: one whole unit is 10^18 raw units.
var WAD = uint256.NewInt(1_000_000_000_000_000_000)

var (
	twoWAD = new(uint256.Int).Add(WAD, WAD)
	one    = uint256.NewInt(1)
)

var (
	// ErrOverflow means an intermediate product left the supported
	// numeric range. Treated as a configuration defect, not retried.
	ErrOverflow = errors.New("pricing: arithmetic overflow")

	// ErrZeroAmount rejects trades of zero units.
	ErrZeroAmount = errors.New("pricing: amount must be positive")

	// ErrAmountExceedsSupply rejects a sell of more units than exist.
	ErrAmountExceedsSupply = errors.New("pricing: amount exceeds current supply")

	// ErrInvalidParams rejects non-positive curve parameters.
	ErrInvalidParams = errors.New("pricing: base price and slope must be positive")
)

// Params are the immutable parameters of a linear bonding curve:
//
//	price(s) = basePrice + slope*s/WAD
//
// Both values are WAD-scaled and must be positive.
type Params struct {
	BasePrice *uint256.Int
	Slope     *uint256.Int
}

// NewParams validates and copies the curve parameters.
func NewParams(basePrice, slope *uint256.Int) (Params, error) {
	p := Params{BasePrice: basePrice, Slope: slope}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return Params{BasePrice: basePrice.Clone(), Slope: slope.Clone()}, nil
}

// Validate checks that both parameters are set and positive.
func (p Params) Validate() error {
	if p.BasePrice == nil || p.Slope == nil || p.BasePrice.IsZero() || p.Slope.IsZero() {
		return ErrInvalidParams
	}
	return nil
}

// PriceAt returns the instantaneous unit price at the given supply:
// basePrice + floor(slope*s/WAD). Monotonically non-decreasing in s.
func (p Params) PriceAt(supply *uint256.Int) (*uint256.Int, error) {
	slopeTerm, err := mulDivFloor(p.Slope, supply, WAD)
	if err != nil {
		return nil, err
	}
	price, overflow := new(uint256.Int).AddOverflow(p.BasePrice, slopeTerm)
	if overflow {
		return nil, fmt.Errorf("price at supply %s: %w", supply.Dec(), ErrOverflow)
	}
	return price, nil
}

// BuyCost returns the exact cost of buying amount units starting from
// the given supply: the definite integral of the price function over
// [supply, supply+amount]. Every rounding step rounds up, so the buyer
// always pays at least the continuous-curve cost; rounding can never
// fund an arbitrage loop.
func (p Params) BuyCost(supply, amount *uint256.Int) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrZeroAmount
	}

	term1, err := mulDivCeil(p.BasePrice, amount, WAD)
	if err != nil {
		return nil, err
	}
	slopeTerm, err := mulDivCeil(p.Slope, amount, WAD)
	if err != nil {
		return nil, err
	}

	// span = 2*supply + amount
	span, overflow := new(uint256.Int).AddOverflow(supply, supply)
	if overflow {
		return nil, ErrOverflow
	}
	span, overflow = span.AddOverflow(span, amount)
	if overflow {
		return nil, ErrOverflow
	}

	term2, err := mulDivCeil(slopeTerm, span, twoWAD)
	if err != nil {
		return nil, err
	}

	cost, overflow := new(uint256.Int).AddOverflow(term1, term2)
	if overflow {
		return nil, ErrOverflow
	}
	return cost, nil
}

// SellProceeds returns the exact proceeds of selling amount units from
// the given supply: the integral of the price function over
// [supply-amount, supply]. Every rounding step rounds down, so the
// seller receives at most the continuous-curve value. Selling more
// than the current supply is a precondition error, never a clamp.
func (p Params) SellProceeds(supply, amount *uint256.Int) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrZeroAmount
	}
	if amount.Gt(supply) {
		return nil, ErrAmountExceedsSupply
	}

	term1, err := mulDivFloor(p.BasePrice, amount, WAD)
	if err != nil {
		return nil, err
	}
	slopeTerm, err := mulDivFloor(p.Slope, amount, WAD)
	if err != nil {
		return nil, err
	}

	// span = 2*(supply-amount) + amount = 2*supply - amount
	span, overflow := new(uint256.Int).AddOverflow(supply, supply)
	if overflow {
		return nil, ErrOverflow
	}
	span.Sub(span, amount)

	term2, err := mulDivFloor(slopeTerm, span, twoWAD)
	if err != nil {
		return nil, err
	}

	proceeds, overflow := new(uint256.Int).AddOverflow(term1, term2)
	if overflow {
		return nil, ErrOverflow
	}
	return proceeds, nil
}

// MarketCap returns floor(priceAt(supply)*supply/WAD): the notional
// value of all circulating units at the current price.
func (p Params) MarketCap(supply *uint256.Int) (*uint256.Int, error) {
	price, err := p.PriceAt(supply)
	if err != nil {
		return nil, err
	}
	return mulDivFloor(price, supply, WAD)
}

// mulDivFloor computes floor(a*b/den) with overflow checking on the
// intermediate product. Multiply first, divide last: dividing first
// would discard precision the curve math depends on.
func mulDivFloor(a, b, den *uint256.Int) (*uint256.Int, error) {
	prod, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return prod.Div(prod, den), nil
}

// mulDivCeil computes ceil(a*b/den) with overflow checking.
func mulDivCeil(a, b, den *uint256.Int) (*uint256.Int, error) {
	prod, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	quo, rem := new(uint256.Int).DivMod(prod, den, new(uint256.Int))
	if !rem.IsZero() {
		var of bool
		quo, of = quo.AddOverflow(quo, one)
		if of {
			return nil, ErrOverflow
		}
	}
	return quo, nil
}
