// internal/launch/graduate.go
package launch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/launchforge/launchpad-engine/internal/events"
	"github.com/launchforge/launchpad-engine/internal/fees"
	"github.com/launchforge/launchpad-engine/internal/pricing"
	"github.com/launchforge/launchpad-engine/internal/types"
)

// CheckAndMaybeGraduate runs the graduation sequence if the market cap
// has reached the threshold. Callable by anyone; the threshold is the
// authorization. Returns ErrNotYetEligible below the threshold and
// ErrAlreadyGraduated afterwards.
func (c *Curve) CheckAndMaybeGraduate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.record.Phase == PhaseGraduated {
		return ErrAlreadyGraduated
	}

	marketCap, err := c.cfg.Params.MarketCap(c.supply)
	if err != nil {
		return err
	}
	if marketCap.Lt(c.cfg.GraduationThreshold) {
		return ErrNotYetEligible
	}
	return c.graduateLocked(ctx, marketCap)
}

// TriggerGraduation starts the graduation sequence regardless of the
// threshold. Restricted to the platform owner; this is the manual
// override and the retry entry point for a Failed curve.
func (c *Curve) TriggerGraduation(ctx context.Context, caller types.Account) error {
	if caller != c.fees.Owner() {
		return ErrUnauthorized
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.record.Phase == PhaseGraduated {
		return ErrAlreadyGraduated
	}

	marketCap, err := c.cfg.Params.MarketCap(c.supply)
	if err != nil {
		return err
	}
	c.logger.Info("Manual graduation trigger",
		zap.String("caller", caller.String()),
		zap.String("market_cap", marketCap.Dec()))
	return c.graduateLocked(ctx, marketCap)
}

// maybeGraduateLocked is the automatic post-buy check. A failed
// attempt is logged and reflected in the phase; it never propagates
// into the trade that triggered it.
func (c *Curve) maybeGraduateLocked(ctx context.Context) {
	if c.record.Phase != PhaseActive && c.record.Phase != PhaseFailed {
		return
	}

	marketCap, err := c.cfg.Params.MarketCap(c.supply)
	if err != nil {
		c.logger.Error("Market cap computation failed", zap.Error(err))
		return
	}
	if marketCap.Lt(c.cfg.GraduationThreshold) {
		return
	}

	if err := c.graduateLocked(ctx, marketCap); err != nil {
		c.logger.Warn("Graduation attempt failed, curve remains tradable",
			zap.Error(err))
	}
}

// graduateLocked executes the graduation sequence as one unit of work.
// The external liquidity call is the commit point: nothing irreversible
// (a net mint, transferred funds, phase Graduated) may be observable
// unless that call succeeded. On any failure every staged effect is
// undone, the phase is left at Failed and the sequence may be retried.
//
// Called with the instance lock held.
func (c *Curve) graduateLocked(ctx context.Context, marketCap *uint256.Int) error {
	c.record.Phase = PhaseGraduating
	c.record.Attempts++

	feeCfg := c.fees.Snapshot()

	// The liquidity allotment doubles total issuance: the circulating
	// half keeps trading on the venue, the new half backs the pool.
	liquiditySupply := c.supply.Clone()
	liquidityFunds, creatorFunds, platformFunds := feeCfg.SplitRaised(c.raised)

	pair, err := c.resolvePair(ctx)
	if err != nil {
		return c.failGraduation("resolve pair", err)
	}

	newSupply, overflow := new(uint256.Int).AddOverflow(c.supply, liquiditySupply)
	if overflow {
		return c.failGraduation("mint liquidity supply", pricing.ErrOverflow)
	}

	// Stage: mint the allotment to the engine's own vault. Reversible
	// until the venue call succeeds.
	if err := c.tokens.Mint(ctx, c.vault, liquiditySupply); err != nil {
		return c.failGraduation("mint liquidity supply", err)
	}
	c.supply.Set(newSupply)

	c.publish(events.GraduationTriggered{
		BaseEvent:       events.NewBase(events.TypeGraduationTriggered, c.id),
		Supply:          liquiditySupply.Clone(),
		MarketCap:       marketCap.Clone(),
		PairHandle:      pair,
		LiquidityAmount: liquiditySupply.Clone(),
	})

	keepBps := fees.BpsDenominator - c.cfg.VenueSlippageBps
	deadline := time.Now().Add(c.cfg.VenueDeadline)
	venueCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	result, err := c.venue.AddLiquidity(venueCtx, LiquidityRequest{
		Instrument:     c.cfg.Instrument,
		PairHandle:     pair,
		TokenAmount:    liquiditySupply.Clone(),
		ValueAmount:    liquidityFunds.Clone(),
		MinTokenAmount: fees.TradeFee(liquiditySupply, keepBps),
		MinValueAmount: fees.TradeFee(liquidityFunds, keepBps),
		Deadline:       deadline,
	})
	if err != nil {
		// The commit point failed: undo the mint in full. Deadline
		// expiry lands here too, identical to an explicit error.
		if burnErr := c.tokens.Burn(ctx, c.vault, liquiditySupply); burnErr != nil {
			c.logger.Error("Compensating burn failed, vault holds orphaned units",
				zap.String("amount", liquiditySupply.Dec()),
				zap.Error(burnErr))
		}
		c.supply.Sub(c.supply, liquiditySupply)
		return c.failGraduation("add liquidity", err)
	}

	// Commit. Everything past this point is finalization of a
	// succeeded graduation; failures are logged, never rolled back.
	unusedTokens := new(uint256.Int).Sub(liquiditySupply, result.TokenUsed)
	if !unusedTokens.IsZero() {
		if err := c.tokens.Burn(ctx, c.vault, unusedTokens); err != nil {
			c.logger.Error("Failed to burn unused liquidity remainder",
				zap.String("amount", unusedTokens.Dec()),
				zap.Error(err))
		} else {
			c.supply.Sub(c.supply, unusedTokens)
		}
	}

	// Value the venue did not take joins the platform remainder.
	unusedValue := new(uint256.Int).Sub(liquidityFunds, result.ValueUsed)
	platformTotal := new(uint256.Int).Add(platformFunds, unusedValue)

	creatorOwed := new(uint256.Int)
	if !creatorFunds.IsZero() {
		if err := c.bank.Pay(ctx, c.cfg.Creator, creatorFunds); err != nil {
			// Past the commit point the funds stay in the reserve for an
			// out-of-band payout rather than unwinding the graduation.
			c.logger.Error("Creator payout failed after liquidity commit",
				zap.String("amount", creatorFunds.Dec()),
				zap.Error(err))
			creatorOwed.Set(creatorFunds)
		}
	}
	c.fees.Accrue(platformTotal)
	c.raised.Clear()
	c.reserve.Set(creatorOwed)

	if err := c.venue.LockReceipt(ctx, result.Receipt); err != nil {
		c.logger.Error("Failed to lock liquidity receipt",
			zap.String("receipt", result.Receipt),
			zap.Error(err))
	}

	c.record.Phase = PhaseGraduated
	c.record.PairHandle = pair
	c.record.LiquidityMinted = liquiditySupply
	c.record.LiquidityContributed = result.TokenUsed.Clone()
	c.record.ValueContributed = result.ValueUsed.Clone()
	c.record.CompletedAt = time.Now().UTC()
	c.record.LastFailure = ""

	c.publish(events.TokenGraduated{
		BaseEvent:   events.NewBase(events.TypeTokenGraduated, c.id),
		FinalSupply: c.supply.Clone(),
		MarketCap:   marketCap.Clone(),
		PairHandle:  pair,
		PlatformFee: platformTotal.Clone(),
	})

	c.logger.Info("Curve graduated",
		zap.String("pair", pair.String()),
		zap.String("final_supply", c.supply.Dec()),
		zap.String("liquidity_tokens", result.TokenUsed.Dec()),
		zap.String("liquidity_value", result.ValueUsed.Dec()),
		zap.String("platform_fee", platformTotal.Dec()),
		zap.Int("attempts", c.record.Attempts))
	return nil
}

// resolvePair returns the external pair for the instrument, creating
// it if needed. Creation is idempotent on the venue, so the whole
// resolution can be retried on transient errors.
func (c *Curve) resolvePair(ctx context.Context) (types.PairHandle, error) {
	op := func() (types.PairHandle, error) {
		handle, ok, err := c.pairs.GetPair(ctx, c.cfg.Instrument)
		if err != nil {
			return "", err
		}
		if ok {
			return handle, nil
		}
		return c.pairs.CreatePair(ctx, c.cfg.Instrument)
	}

	return backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(c.cfg.VenueDeadline),
	)
}

// failGraduation records a rolled-back attempt and leaves the curve in
// phase Failed, from which a retry may re-enter Graduating.
func (c *Curve) failGraduation(stage string, err error) error {
	gerr := &GraduationError{Stage: stage, Err: err}
	c.record.Phase = PhaseFailed
	c.record.LastFailure = gerr.Error()

	c.publish(events.GraduationFailed{
		BaseEvent: events.NewBase(events.TypeGraduationFailed, c.id),
		Reason:    gerr.Error(),
	})
	c.logger.Warn("Graduation rolled back",
		zap.String("stage", stage),
		zap.Error(err))
	return gerr
}
