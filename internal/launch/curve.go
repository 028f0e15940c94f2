// internal/launch/curve.go
package launch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/launchforge/launchpad-engine/internal/events"
	"github.com/launchforge/launchpad-engine/internal/fees"
	"github.com/launchforge/launchpad-engine/internal/pricing"
	"github.com/launchforge/launchpad-engine/internal/types"
)

// DefaultVenueDeadline bounds the external liquidity call when the
// configuration does not say otherwise.
const DefaultVenueDeadline = 30 * time.Second

// CurveConfig is the immutable per-instance configuration.
type CurveConfig struct {
	// Instrument identifies the issued unit towards the external venue.
	Instrument string
	// Creator receives the creator share of raised funds at graduation.
	Creator types.Account
	// Params define the linear price function.
	Params pricing.Params
	// GraduationThreshold is the WAD-scaled market cap that triggers
	// migration to the external venue. Must be positive.
	GraduationThreshold *uint256.Int
	// VenueSlippageBps bounds how much less than the submitted amounts
	// the venue may accept during graduation.
	VenueSlippageBps uint64
	// VenueDeadline bounds the external liquidity call. Expiry is
	// treated exactly like an explicit failure.
	VenueDeadline time.Duration
}

// Validate checks the instance configuration.
func (c CurveConfig) Validate() error {
	if c.Instrument == "" {
		return errors.New("launch: instrument identifier is required")
	}
	if c.Creator.IsZero() {
		return errors.New("launch: creator account is required")
	}
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if c.GraduationThreshold == nil || c.GraduationThreshold.IsZero() {
		return errors.New("launch: graduation threshold must be positive")
	}
	if c.VenueSlippageBps > fees.BpsDenominator {
		return errors.New("launch: venue slippage exceeds 10000 bps")
	}
	return nil
}

// Deps are the collaborators a curve instance is wired to.
type Deps struct {
	Fees   *fees.Ledger
	Gate   AccessGate
	Tokens TokenLedger
	Bank   Bank
	Pairs  PairFactory
	Venue  LiquidityVenue
	Bus    *events.Bus
	Logger *zap.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Fees == nil:
		return errors.New("launch: fee ledger is required")
	case d.Gate == nil:
		return errors.New("launch: access gate is required")
	case d.Tokens == nil:
		return errors.New("launch: token ledger is required")
	case d.Bank == nil:
		return errors.New("launch: bank is required")
	case d.Pairs == nil:
		return errors.New("launch: pair factory is required")
	case d.Venue == nil:
		return errors.New("launch: liquidity venue is required")
	case d.Bus == nil:
		return errors.New("launch: event bus is required")
	case d.Logger == nil:
		return errors.New("launch: logger is required")
	}
	return nil
}

// Curve is one bonding-curve instance. It exclusively owns its supply,
// raised and phase state; every operation is serialized by the
// instance mutex, so all reads a decision depends on are taken inside
// the same atomic operation that acts on them.
type Curve struct {
	mu  sync.Mutex
	id  string
	cfg CurveConfig

	// vault holds the liquidity allotment between mint and
	// contribution during graduation.
	vault types.Account

	supply  *uint256.Int
	raised  *uint256.Int
	reserve *uint256.Int
	record  GraduationRecord

	fees   *fees.Ledger
	gate   AccessGate
	tokens TokenLedger
	bank   Bank
	pairs  PairFactory
	venue  LiquidityVenue
	bus    *events.Bus
	logger *zap.Logger
}

// NewCurve validates the configuration and creates a curve instance in
// phase Active with zero supply.
func NewCurve(cfg CurveConfig, deps Deps) (*Curve, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if cfg.VenueDeadline <= 0 {
		cfg.VenueDeadline = DefaultVenueDeadline
	}
	cfg.GraduationThreshold = cfg.GraduationThreshold.Clone()

	id := uuid.New().String()
	c := &Curve{
		id:      id,
		cfg:     cfg,
		vault:   types.Account("curve-vault:" + id),
		supply:  new(uint256.Int),
		raised:  new(uint256.Int),
		reserve: new(uint256.Int),
		record: GraduationRecord{
			Phase:                PhaseActive,
			LiquidityMinted:      new(uint256.Int),
			LiquidityContributed: new(uint256.Int),
			ValueContributed:     new(uint256.Int),
		},
		fees:   deps.Fees,
		gate:   deps.Gate,
		tokens: deps.Tokens,
		bank:   deps.Bank,
		pairs:  deps.Pairs,
		venue:  deps.Venue,
		bus:    deps.Bus,
		logger: deps.Logger.Named("curve").With(
			zap.String("curve_id", id),
			zap.String("instrument", cfg.Instrument)),
	}

	c.logger.Info("Curve instance created",
		zap.String("base_price", cfg.Params.BasePrice.Dec()),
		zap.String("slope", cfg.Params.Slope.Dec()),
		zap.String("graduation_threshold", cfg.GraduationThreshold.Dec()))
	return c, nil
}

// ID returns the instance identifier.
func (c *Curve) ID() string { return c.id }

// Instrument returns the external instrument identifier.
func (c *Curve) Instrument() string { return c.cfg.Instrument }

// Creator returns the curve creator account.
func (c *Curve) Creator() types.Account { return c.cfg.Creator }

// Phase returns the current graduation phase.
func (c *Curve) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.Phase
}

// Record returns a copy of the graduation record.
func (c *Curve) Record() GraduationRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := c.record
	rec.LiquidityMinted = c.record.LiquidityMinted.Clone()
	rec.LiquidityContributed = c.record.LiquidityContributed.Clone()
	rec.ValueContributed = c.record.ValueContributed.Clone()
	return rec
}

// Snapshot returns a consistent view of the instance state.
func (c *Curve) Snapshot() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	marketCap, err := c.cfg.Params.MarketCap(c.supply)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		ID:         c.id,
		Instrument: c.cfg.Instrument,
		Phase:      c.record.Phase,
		Supply:     c.supply.Clone(),
		Raised:     c.raised.Clone(),
		Reserve:    c.reserve.Clone(),
		MarketCap:  marketCap,
		Threshold:  c.cfg.GraduationThreshold.Clone(),
		PairHandle: c.record.PairHandle,
		Attempts:   c.record.Attempts,
	}, nil
}

// UpdateFees replaces the fee configuration going forward. Restricted
// to the platform owner; trades already in flight keep the snapshot
// they started with.
func (c *Curve) UpdateFees(caller types.Account, cfg fees.Config) error {
	if err := c.fees.Update(caller, cfg); err != nil {
		if errors.Is(err, fees.ErrUnauthorized) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}

// WithdrawPlatformFees pays the accrued platform fee balance to the
// platform owner. The balance is restored if the payout fails.
func (c *Curve) WithdrawPlatformFees(ctx context.Context, caller types.Account) (*uint256.Int, error) {
	amount, err := c.fees.Withdraw(caller)
	if err != nil {
		if errors.Is(err, fees.ErrUnauthorized) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if err := c.bank.Pay(ctx, caller, amount); err != nil {
		c.fees.Accrue(amount)
		return nil, fmt.Errorf("platform fee payout: %w", err)
	}
	c.logger.Info("Platform fees paid out",
		zap.String("amount", amount.Dec()),
		zap.String("owner", caller.String()))
	return amount, nil
}

// checkAccess consults the collaborator pause/block flags. Called with
// the instance lock held, before any state is touched.
func (c *Curve) checkAccess(ctx context.Context, caller types.Account) error {
	paused, err := c.gate.IsPaused(ctx)
	if err != nil {
		return fmt.Errorf("access gate: %w", err)
	}
	if paused {
		return &AccessDeniedError{Account: caller, Reason: "trading is paused"}
	}

	blocked, err := c.gate.IsBlocked(ctx, caller)
	if err != nil {
		return fmt.Errorf("access gate: %w", err)
	}
	if blocked {
		return &AccessDeniedError{Account: caller, Reason: "account is blocked"}
	}
	return nil
}

// publish sends an event without ever failing the operation that
// produced it.
func (c *Curve) publish(event events.Event) {
	if err := c.bus.Publish(event); err != nil {
		c.logger.Warn("Event dropped",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}
