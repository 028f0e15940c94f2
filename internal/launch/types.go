// internal/launch/types.go
package launch

import (
	"context"
	"time"

	"github.com/holiman/uint256"

	"github.com/launchforge/launchpad-engine/internal/types"
)

// Phase is the graduation state of a curve instance. Transitions are
// one-directional except Failed, which may re-enter Graduating on a
// retry.
type Phase uint8

const (
	PhaseActive Phase = iota
	PhaseGraduating
	PhaseGraduated
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseGraduating:
		return "graduating"
	case PhaseGraduated:
		return "graduated"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// GraduationRecord tracks the graduation lifecycle of one curve.
type GraduationRecord struct {
	Phase                Phase
	PairHandle           types.PairHandle
	LiquidityMinted      *uint256.Int
	LiquidityContributed *uint256.Int
	ValueContributed     *uint256.Int
	Attempts             int
	LastFailure          string
	CompletedAt          time.Time
}

// AccessGate is the externally-owned pause/block state the engine
// consults before every trade.
type AccessGate interface {
	IsPaused(ctx context.Context) (bool, error)
	IsBlocked(ctx context.Context, account types.Account) (bool, error)
}

// TokenLedger is the externally-owned ownership ledger for the curve's
// units. The engine delegates all mint/burn/balance bookkeeping to it.
type TokenLedger interface {
	Mint(ctx context.Context, account types.Account, amount *uint256.Int) error
	Burn(ctx context.Context, account types.Account, amount *uint256.Int) error
	BalanceOf(ctx context.Context, account types.Account) (*uint256.Int, error)
	TotalSupply(ctx context.Context) (*uint256.Int, error)
}

// Bank pays out native-currency value held by the engine.
type Bank interface {
	Pay(ctx context.Context, to types.Account, amount *uint256.Int) error
}

// PairFactory resolves or creates the external trading pair for an
// instrument. CreatePair must be idempotent on the venue side; the
// engine always consults GetPair first.
type PairFactory interface {
	GetPair(ctx context.Context, instrument string) (types.PairHandle, bool, error)
	CreatePair(ctx context.Context, instrument string) (types.PairHandle, error)
}

// LiquidityRequest carries one liquidity contribution, with the
// minimum-accepted amounts guard and a hard deadline.
type LiquidityRequest struct {
	Instrument     string
	PairHandle     types.PairHandle
	TokenAmount    *uint256.Int
	ValueAmount    *uint256.Int
	MinTokenAmount *uint256.Int
	MinValueAmount *uint256.Int
	Deadline       time.Time
}

// LiquidityResult reports how much the venue actually used and the
// position receipt it issued.
type LiquidityResult struct {
	TokenUsed *uint256.Int
	ValueUsed *uint256.Int
	Receipt   string
}

// LiquidityVenue is the external, fallible AMM boundary. AddLiquidity
// is the single non-deterministic call in the whole engine; everything
// else is local computation.
type LiquidityVenue interface {
	AddLiquidity(ctx context.Context, req LiquidityRequest) (*LiquidityResult, error)
	// LockReceipt permanently locks a liquidity position so it can
	// never be withdrawn by a privileged party.
	LockReceipt(ctx context.Context, receipt string) error
}

// BuyResult reports a completed buy.
type BuyResult struct {
	Amount    *uint256.Int
	Cost      *uint256.Int
	Fee       *uint256.Int
	TotalCost *uint256.Int
	Refund    *uint256.Int
	NewSupply *uint256.Int
}

// SellResult reports a completed sell.
type SellResult struct {
	Amount    *uint256.Int
	Proceeds  *uint256.Int
	Fee       *uint256.Int
	NetRefund *uint256.Int
	NewSupply *uint256.Int
}

// Snapshot is a consistent read of one curve instance.
type Snapshot struct {
	ID         string
	Instrument string
	Phase      Phase
	Supply     *uint256.Int
	Raised     *uint256.Int
	Reserve    *uint256.Int
	MarketCap  *uint256.Int
	Threshold  *uint256.Int
	PairHandle types.PairHandle
	Attempts   int
}
