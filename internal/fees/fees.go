// internal/fees/fees.go
package fees

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/launchforge/launchpad-engine/internal/types"
)

// BpsDenominator is the basis-point scale: 10000 bps = 100%.
const BpsDenominator = 10000

var (
	// ErrInvalidTradingFee rejects buy/sell fees above 100%.
	ErrInvalidTradingFee = errors.New("fees: trading fee exceeds 10000 bps")

	// ErrInvalidSplit rejects graduation splits that do not sum to 10000 bps.
	ErrInvalidSplit = errors.New("fees: graduation split must sum to 10000 bps")

	// ErrUnauthorized rejects fee administration by anyone but the platform owner.
	ErrUnauthorized = errors.New("fees: caller is not the platform owner")

	// ErrNothingToWithdraw is returned when no platform fees have accrued.
	ErrNothingToWithdraw = errors.New("fees: no accrued platform fees")
)

// Config holds the fee percentages for a curve instance. Trading fees
// apply per buy/sell; the split applies once, at graduation, to the
// total raised amount.
type Config struct {
	BuyFeeBps  uint64 `mapstructure:"buy_fee_bps"`
	SellFeeBps uint64 `mapstructure:"sell_fee_bps"`

	LiquidityBps uint64 `mapstructure:"liquidity_bps"`
	CreatorBps   uint64 `mapstructure:"creator_bps"`
	PlatformBps  uint64 `mapstructure:"platform_bps"`
}

// Validate checks the configured percentages. The graduation split has
// to account for every raised unit, so it must sum to exactly 10000.
func (c Config) Validate() error {
	if c.BuyFeeBps > BpsDenominator || c.SellFeeBps > BpsDenominator {
		return ErrInvalidTradingFee
	}
	if c.LiquidityBps+c.CreatorBps+c.PlatformBps != BpsDenominator {
		return fmt.Errorf("%w: %d+%d+%d", ErrInvalidSplit, c.LiquidityBps, c.CreatorBps, c.PlatformBps)
	}
	return nil
}

// TradeFee returns floor(amount*bps/10000). Computed as
// bps*(amount/10000) + (amount%10000)*bps/10000 so the intermediate
// product cannot overflow for any amount.
func TradeFee(amount *uint256.Int, bps uint64) *uint256.Int {
	den := uint256.NewInt(BpsDenominator)
	rate := uint256.NewInt(bps)

	quo, rem := new(uint256.Int).DivMod(amount, den, new(uint256.Int))
	fee := quo.Mul(quo, rate)
	rem.Mul(rem, rate)
	rem.Div(rem, den)
	return fee.Add(fee, rem)
}

// SplitRaised divides the total raised amount into liquidity, creator
// and platform portions. Liquidity and creator round down; the
// platform takes the remainder, so the three always sum to the input
// exactly and no unit is lost to rounding.
func (c Config) SplitRaised(total *uint256.Int) (liquidity, creator, platform *uint256.Int) {
	liquidity = TradeFee(total, c.LiquidityBps)
	creator = TradeFee(total, c.CreatorBps)

	platform = new(uint256.Int).Sub(total, liquidity)
	platform.Sub(platform, creator)
	return liquidity, creator, platform
}

// Ledger holds the fee configuration for a curve and the accumulated,
// not-yet-withdrawn platform fee balance. A trade takes Snapshot() at
// its start and uses that config for its whole lifetime, so
// administrative updates never apply retroactively.
type Ledger struct {
	mu      sync.Mutex
	cfg     Config
	owner   types.Account
	accrued *uint256.Int
	logger  *zap.Logger
}

// NewLedger validates the config and creates a fee ledger owned by the
// platform account.
func NewLedger(cfg Config, owner types.Account, logger *zap.Logger) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if owner.IsZero() {
		return nil, errors.New("fees: platform owner is required")
	}
	return &Ledger{
		cfg:     cfg,
		owner:   owner,
		accrued: new(uint256.Int),
		logger:  logger.Named("fee-ledger"),
	}, nil
}

// Owner returns the platform owner account.
func (l *Ledger) Owner() types.Account {
	return l.owner
}

// Snapshot returns the fee configuration in effect right now.
func (l *Ledger) Snapshot() Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

// Update replaces the fee configuration. Restricted to the platform
// owner; in-flight trades keep the snapshot they started with.
func (l *Ledger) Update(caller types.Account, cfg Config) error {
	if caller != l.owner {
		return ErrUnauthorized
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	old := l.cfg
	l.cfg = cfg

	l.logger.Info("Fee configuration updated",
		zap.Uint64("old_buy_fee_bps", old.BuyFeeBps),
		zap.Uint64("new_buy_fee_bps", cfg.BuyFeeBps),
		zap.Uint64("old_sell_fee_bps", old.SellFeeBps),
		zap.Uint64("new_sell_fee_bps", cfg.SellFeeBps))
	return nil
}

// Accrue adds amount to the un-withdrawn platform fee balance.
func (l *Ledger) Accrue(amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accrued.Add(l.accrued, amount)
}

// Accrued returns a copy of the current un-withdrawn balance.
func (l *Ledger) Accrued() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accrued.Clone()
}

// Withdraw zeroes the accrued balance and returns it. Restricted to
// the platform owner; the caller is responsible for the actual payout.
func (l *Ledger) Withdraw(caller types.Account) (*uint256.Int, error) {
	if caller != l.owner {
		return nil, ErrUnauthorized
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.accrued.IsZero() {
		return nil, ErrNothingToWithdraw
	}

	out := l.accrued.Clone()
	l.accrued.Clear()

	l.logger.Info("Platform fees withdrawn", zap.String("amount", out.Dec()))
	return out, nil
}
