// internal/venue/venue.go

// Package venue implements a reference constant-product liquidity
// venue behind the engine's PairFactory and LiquidityVenue interfaces.
// Graduated curves provide their liquidity here; post-graduation
// trading happens against the pool reserves.
package venue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/launchforge/launchpad-engine/internal/launch"
	"github.com/launchforge/launchpad-engine/internal/types"
)

var (
	// ErrPairNotFound rejects operations on instruments without a pool.
	ErrPairNotFound = errors.New("venue: pair not found")

	// ErrBelowMinimum means the venue could not honor the caller's
	// minimum-accepted amounts.
	ErrBelowMinimum = errors.New("venue: accepted amounts below caller minimum")

	// ErrDeadlineExpired rejects liquidity submissions past their deadline.
	ErrDeadlineExpired = errors.New("venue: deadline expired")

	// ErrReceiptLocked rejects withdrawal of a permanently locked position.
	ErrReceiptLocked = errors.New("venue: liquidity position is locked")

	// ErrReceiptNotFound rejects operations on unknown receipts.
	ErrReceiptNotFound = errors.New("venue: receipt not found")

	// ErrZeroLiquidity rejects empty liquidity submissions.
	ErrZeroLiquidity = errors.New("venue: token and value amounts must be positive")
)

// position is one liquidity contribution to a pool.
type position struct {
	tokenAmount *uint256.Int
	valueAmount *uint256.Int
	locked      bool
}

// pool holds the reserves for one instrument.
type pool struct {
	handle        types.PairHandle
	tokenReserves *uint256.Int
	valueReserves *uint256.Int
	positions     map[string]*position
}

// AMM is an in-memory constant-product venue.
type AMM struct {
	mu     sync.Mutex
	pools  map[string]*pool
	logger *zap.Logger
}

// NewAMM creates an empty venue.
func NewAMM(logger *zap.Logger) *AMM {
	return &AMM{
		pools:  make(map[string]*pool),
		logger: logger.Named("venue"),
	}
}

// GetPair returns the existing pair handle for an instrument, if any.
func (a *AMM) GetPair(_ context.Context, instrument string) (types.PairHandle, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.pools[instrument]; ok {
		return p.handle, true, nil
	}
	return "", false, nil
}

// CreatePair creates the pool for an instrument. Idempotent: an
// existing pool is returned as is.
func (a *AMM) CreatePair(_ context.Context, instrument string) (types.PairHandle, error) {
	if instrument == "" {
		return "", errors.New("venue: instrument is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.pools[instrument]; ok {
		return p.handle, nil
	}

	handle := types.PairHandle("pair:" + uuid.New().String())
	a.pools[instrument] = &pool{
		handle:        handle,
		tokenReserves: new(uint256.Int),
		valueReserves: new(uint256.Int),
		positions:     make(map[string]*position),
	}

	a.logger.Info("Pair created",
		zap.String("instrument", instrument),
		zap.String("pair", handle.String()))
	return handle, nil
}

// AddLiquidity deposits tokens and value into the instrument's pool
// and issues a position receipt. An empty pool takes the submitted
// amounts in full; a funded pool takes amounts matched to the current
// reserve ratio. Amounts below the caller's minimums or a missed
// deadline fail the submission.
func (a *AMM) AddLiquidity(ctx context.Context, req launch.LiquidityRequest) (*launch.LiquidityResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !req.Deadline.IsZero() && time.Now().After(req.Deadline) {
		return nil, ErrDeadlineExpired
	}
	if req.TokenAmount == nil || req.TokenAmount.IsZero() ||
		req.ValueAmount == nil || req.ValueAmount.IsZero() {
		return nil, ErrZeroLiquidity
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.pools[req.Instrument]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPairNotFound, req.Instrument)
	}

	tokenUsed := req.TokenAmount.Clone()
	valueUsed := req.ValueAmount.Clone()

	if !p.tokenReserves.IsZero() && !p.valueReserves.IsZero() {
		// Ratio-match against current reserves, keeping the token side
		// fixed: value = tokens * valueReserves / tokenReserves.
		matched, overflow := new(uint256.Int).MulOverflow(tokenUsed, p.valueReserves)
		if overflow {
			return nil, errors.New("venue: reserve arithmetic overflow")
		}
		matched.Div(matched, p.tokenReserves)
		if matched.Gt(valueUsed) {
			// The submitted value cannot cover the ratio; scale the
			// token side down instead.
			scaled, overflow := new(uint256.Int).MulOverflow(valueUsed, p.tokenReserves)
			if overflow {
				return nil, errors.New("venue: reserve arithmetic overflow")
			}
			tokenUsed = scaled.Div(scaled, p.valueReserves)
		} else {
			valueUsed = matched
		}
	}

	if req.MinTokenAmount != nil && tokenUsed.Lt(req.MinTokenAmount) {
		return nil, ErrBelowMinimum
	}
	if req.MinValueAmount != nil && valueUsed.Lt(req.MinValueAmount) {
		return nil, ErrBelowMinimum
	}

	p.tokenReserves.Add(p.tokenReserves, tokenUsed)
	p.valueReserves.Add(p.valueReserves, valueUsed)

	receipt := "lp:" + uuid.New().String()
	p.positions[receipt] = &position{
		tokenAmount: tokenUsed.Clone(),
		valueAmount: valueUsed.Clone(),
	}

	a.logger.Info("Liquidity added",
		zap.String("instrument", req.Instrument),
		zap.String("tokens", tokenUsed.Dec()),
		zap.String("value", valueUsed.Dec()),
		zap.String("receipt", receipt))

	return &launch.LiquidityResult{
		TokenUsed: tokenUsed,
		ValueUsed: valueUsed,
		Receipt:   receipt,
	}, nil
}

// LockReceipt permanently locks a position. Locked positions can never
// be withdrawn, by anyone.
func (a *AMM) LockReceipt(_ context.Context, receipt string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, p := range a.pools {
		if pos, ok := p.positions[receipt]; ok {
			pos.locked = true
			a.logger.Info("Liquidity position locked", zap.String("receipt", receipt))
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrReceiptNotFound, receipt)
}

// RemoveLiquidity withdraws an unlocked position and returns its
// amounts. Exists so the lock semantics are enforced, not assumed.
func (a *AMM) RemoveLiquidity(_ context.Context, receipt string) (tokenOut, valueOut *uint256.Int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, p := range a.pools {
		pos, ok := p.positions[receipt]
		if !ok {
			continue
		}
		if pos.locked {
			return nil, nil, ErrReceiptLocked
		}

		p.tokenReserves.Sub(p.tokenReserves, pos.tokenAmount)
		p.valueReserves.Sub(p.valueReserves, pos.valueAmount)
		delete(p.positions, receipt)
		return pos.tokenAmount, pos.valueAmount, nil
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrReceiptNotFound, receipt)
}

// Reserves returns copies of the pool reserves for an instrument.
func (a *AMM) Reserves(instrument string) (tokens, value *uint256.Int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.pools[instrument]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrPairNotFound, instrument)
	}
	return p.tokenReserves.Clone(), p.valueReserves.Clone(), nil
}

// SwapQuote returns the constant-product output for swapping amountIn
// of value into tokens (or the reverse):
//
//	out = outReserves * in / (inReserves + in)
func (a *AMM) SwapQuote(instrument string, amountIn *uint256.Int, valueIn bool) (*uint256.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.pools[instrument]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPairNotFound, instrument)
	}
	if amountIn == nil || amountIn.IsZero() {
		return new(uint256.Int), nil
	}

	inReserves, outReserves := p.valueReserves, p.tokenReserves
	if !valueIn {
		inReserves, outReserves = p.tokenReserves, p.valueReserves
	}
	if inReserves.IsZero() || outReserves.IsZero() {
		return new(uint256.Int), nil
	}

	num, overflow := new(uint256.Int).MulOverflow(outReserves, amountIn)
	if overflow {
		return nil, errors.New("venue: quote arithmetic overflow")
	}
	den := new(uint256.Int).Add(inReserves, amountIn)
	return num.Div(num, den), nil
}
