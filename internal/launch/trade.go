// internal/launch/trade.go
package launch

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/launchforge/launchpad-engine/internal/events"
	"github.com/launchforge/launchpad-engine/internal/fees"
	"github.com/launchforge/launchpad-engine/internal/pricing"
	"github.com/launchforge/launchpad-engine/internal/types"
)

// Buy purchases amount units for the caller. maxCost bounds the total
// cost including the buy fee; payment is the tendered value, any
// excess over the total cost is refunded. On success the supply and
// raised totals are updated, the units are minted to the caller and a
// graduation check runs.
func (c *Curve) Buy(ctx context.Context, caller types.Account, amount, maxCost, payment *uint256.Int) (*BuyResult, error) {
	if caller.IsZero() {
		return nil, ErrInvalidCaller
	}
	if amount == nil || amount.IsZero() || maxCost == nil || payment == nil {
		return nil, ErrInvalidAmount
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.record.Phase == PhaseGraduated {
		return nil, ErrAlreadyGraduated
	}
	if err := c.checkAccess(ctx, caller); err != nil {
		return nil, err
	}

	feeCfg := c.fees.Snapshot()

	cost, err := c.cfg.Params.BuyCost(c.supply, amount)
	if err != nil {
		return nil, err
	}
	fee := fees.TradeFee(cost, feeCfg.BuyFeeBps)
	totalCost, overflow := new(uint256.Int).AddOverflow(cost, fee)
	if overflow {
		return nil, pricing.ErrOverflow
	}

	if totalCost.Gt(maxCost) {
		return nil, &SlippageExceededError{MaxCost: maxCost.Clone(), TotalCost: totalCost}
	}
	if payment.Lt(totalCost) {
		return nil, &InsufficientPaymentError{Required: totalCost, Tendered: payment.Clone()}
	}
	refund := new(uint256.Int).Sub(payment, totalCost)

	newSupply, overflow := new(uint256.Int).AddOverflow(c.supply, amount)
	if overflow {
		return nil, pricing.ErrOverflow
	}

	// Effects. Supply, raised and the caller's minted units commit
	// together, before any value leaves the engine.
	if err := c.tokens.Mint(ctx, caller, amount); err != nil {
		return nil, fmt.Errorf("mint to buyer: %w", err)
	}
	c.supply.Set(newSupply)
	c.raised.Add(c.raised, cost)
	c.reserve.Add(c.reserve, cost)

	if !refund.IsZero() {
		if err := c.bank.Pay(ctx, caller, refund); err != nil {
			// Compensate in full: a rejected buy leaves no trace.
			if burnErr := c.tokens.Burn(ctx, caller, amount); burnErr != nil {
				c.logger.Error("Compensating burn failed after refund failure",
					zap.Error(burnErr))
			}
			c.supply.Sub(c.supply, amount)
			c.raised.Sub(c.raised, cost)
			c.reserve.Sub(c.reserve, cost)
			return nil, fmt.Errorf("refund payout: %w", err)
		}
	}

	c.fees.Accrue(fee)

	result := &BuyResult{
		Amount:    amount.Clone(),
		Cost:      cost,
		Fee:       fee,
		TotalCost: totalCost,
		Refund:    refund,
		NewSupply: c.supply.Clone(),
	}

	c.publish(events.TokensPurchased{
		BaseEvent: events.NewBase(events.TypeTokensPurchased, c.id),
		Buyer:     caller,
		Amount:    amount.Clone(),
		Cost:      cost.Clone(),
		Fee:       fee.Clone(),
		NewSupply: result.NewSupply.Clone(),
	})

	c.logger.Info("Buy executed",
		zap.String("buyer", caller.String()),
		zap.String("amount", amount.Dec()),
		zap.String("cost", cost.Dec()),
		zap.String("fee", fee.Dec()),
		zap.String("new_supply", result.NewSupply.Dec()))

	// The threshold check runs only after the trade has fully
	// committed. A failed graduation leaves the curve tradable and
	// never fails the buy that triggered it.
	c.maybeGraduateLocked(ctx)

	return result, nil
}

// Sell disposes amount units for the caller. minProceeds bounds the
// net refund after the sell fee. The units are burned, supply and
// raised decrease, and the net refund is paid out last.
func (c *Curve) Sell(ctx context.Context, caller types.Account, amount, minProceeds *uint256.Int) (*SellResult, error) {
	if caller.IsZero() {
		return nil, ErrInvalidCaller
	}
	if amount == nil || amount.IsZero() || minProceeds == nil {
		return nil, ErrInvalidAmount
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.record.Phase == PhaseGraduated {
		return nil, ErrAlreadyGraduated
	}
	if err := c.checkAccess(ctx, caller); err != nil {
		return nil, err
	}

	balance, err := c.tokens.BalanceOf(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("seller balance: %w", err)
	}
	if balance.Lt(amount) {
		return nil, ErrInsufficientBalance
	}

	feeCfg := c.fees.Snapshot()

	proceeds, err := c.cfg.Params.SellProceeds(c.supply, amount)
	if err != nil {
		return nil, err
	}
	fee := fees.TradeFee(proceeds, feeCfg.SellFeeBps)
	netRefund := new(uint256.Int).Sub(proceeds, fee)

	if netRefund.Lt(minProceeds) {
		return nil, &ProceedsBelowMinimumError{MinProceeds: minProceeds.Clone(), NetRefund: netRefund}
	}
	// The reserve must cover the gross proceeds; the fee portion is
	// retained for the platform. Ceiling-on-buy/floor-on-sell keeps
	// this from ever tripping, but it is checked, not assumed.
	if c.reserve.Lt(proceeds) {
		return nil, ErrInsufficientReserve
	}

	if err := c.tokens.Burn(ctx, caller, amount); err != nil {
		return nil, fmt.Errorf("burn from seller: %w", err)
	}
	c.supply.Sub(c.supply, amount)
	c.raised.Sub(c.raised, proceeds)
	c.reserve.Sub(c.reserve, proceeds)

	if err := c.bank.Pay(ctx, caller, netRefund); err != nil {
		if mintErr := c.tokens.Mint(ctx, caller, amount); mintErr != nil {
			c.logger.Error("Compensating mint failed after payout failure",
				zap.Error(mintErr))
		}
		c.supply.Add(c.supply, amount)
		c.raised.Add(c.raised, proceeds)
		c.reserve.Add(c.reserve, proceeds)
		return nil, fmt.Errorf("sell payout: %w", err)
	}

	c.fees.Accrue(fee)

	result := &SellResult{
		Amount:    amount.Clone(),
		Proceeds:  proceeds,
		Fee:       fee,
		NetRefund: netRefund,
		NewSupply: c.supply.Clone(),
	}

	c.publish(events.TokensSold{
		BaseEvent: events.NewBase(events.TypeTokensSold, c.id),
		Seller:    caller,
		Amount:    amount.Clone(),
		Refund:    netRefund.Clone(),
		Fee:       fee.Clone(),
		NewSupply: result.NewSupply.Clone(),
	})

	c.logger.Info("Sell executed",
		zap.String("seller", caller.String()),
		zap.String("amount", amount.Dec()),
		zap.String("net_refund", netRefund.Dec()),
		zap.String("fee", fee.Dec()),
		zap.String("new_supply", result.NewSupply.Dec()))

	return result, nil
}
