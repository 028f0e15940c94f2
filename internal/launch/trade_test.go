// internal/launch/trade_test.go
package launch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/launchforge/launchpad-engine/internal/events"
	"github.com/launchforge/launchpad-engine/internal/fees"
	"github.com/launchforge/launchpad-engine/internal/ledger"
	"github.com/launchforge/launchpad-engine/internal/pricing"
	"github.com/launchforge/launchpad-engine/internal/types"
)

const (
	platformOwner = types.Account("platform-owner")
	creator       = types.Account("creator")
	alice         = types.Account("alice")
	bob           = types.Account("bob")
)

func wad(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), pricing.WAD)
}

// stubPairs is a controllable pair factory.
type stubPairs struct {
	handle      types.PairHandle
	existing    bool
	getErr      error
	createErr   error
	createCalls int
}

func (s *stubPairs) GetPair(context.Context, string) (types.PairHandle, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	return s.handle, s.existing, nil
}

func (s *stubPairs) CreatePair(context.Context, string) (types.PairHandle, error) {
	s.createCalls++
	if s.createErr != nil {
		return "", s.createErr
	}
	if s.handle.IsZero() {
		s.handle = "pair:test"
	}
	s.existing = true
	return s.handle, nil
}

// stubVenue is a controllable liquidity venue. By default it accepts
// the submitted amounts in full.
type stubVenue struct {
	addErr   error
	failures int // fail this many calls before succeeding
	calls    int
	lastReq  LiquidityRequest
	result   *LiquidityResult
	locked   []string
	lockErr  error
}

func (s *stubVenue) AddLiquidity(_ context.Context, req LiquidityRequest) (*LiquidityResult, error) {
	s.calls++
	s.lastReq = req
	if s.addErr != nil {
		return nil, s.addErr
	}
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("venue unavailable")
	}
	if s.result != nil {
		return s.result, nil
	}
	return &LiquidityResult{
		TokenUsed: req.TokenAmount.Clone(),
		ValueUsed: req.ValueAmount.Clone(),
		Receipt:   "lp:test",
	}, nil
}

func (s *stubVenue) LockReceipt(_ context.Context, receipt string) error {
	if s.lockErr != nil {
		return s.lockErr
	}
	s.locked = append(s.locked, receipt)
	return nil
}

type testEnv struct {
	curve  *Curve
	tokens *ledger.TokenBook
	gate   *ledger.Gate
	bank   *ledger.Bank
	fees   *fees.Ledger
	pairs  *stubPairs
	venue  *stubVenue
	bus    *events.Bus
}

func defaultFeeConfig() fees.Config {
	return fees.Config{
		BuyFeeBps:    100,
		SellFeeBps:   100,
		LiquidityBps: 8000,
		CreatorBps:   1000,
		PlatformBps:  1000,
	}
}

// newTestEnv builds a curve with basePrice=1000 WAD, slope=100 WAD and
// the given graduation threshold.
func newTestEnv(t *testing.T, feeCfg fees.Config, threshold *uint256.Int) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	params, err := pricing.NewParams(wad(1000), wad(100))
	require.NoError(t, err)

	feeLedger, err := fees.NewLedger(feeCfg, platformOwner, logger)
	require.NoError(t, err)

	env := &testEnv{
		tokens: ledger.NewTokenBook(logger),
		gate:   ledger.NewGate(),
		bank:   ledger.NewBank(),
		fees:   feeLedger,
		pairs:  &stubPairs{},
		venue:  &stubVenue{},
		bus:    events.NewBus(logger, 64),
	}
	t.Cleanup(func() { _ = env.bus.Shutdown(context.Background()) })

	env.curve, err = NewCurve(CurveConfig{
		Instrument:          "TOKEN-T",
		Creator:             creator,
		Params:              params,
		GraduationThreshold: threshold,
		VenueSlippageBps:    100,
		VenueDeadline:       50 * time.Millisecond,
	}, Deps{
		Fees:   feeLedger,
		Gate:   env.gate,
		Tokens: env.tokens,
		Bank:   env.bank,
		Pairs:  env.pairs,
		Venue:  env.venue,
		Bus:    env.bus,
		Logger: logger,
	})
	require.NoError(t, err)
	return env
}

// farThreshold is high enough that no test trade triggers graduation.
func farThreshold() *uint256.Int {
	return wad(1_000_000_000)
}

func TestBuy_HappyPath(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultFeeConfig(), farThreshold())

	// buyCost(0, 1) = 1000 + 50 = 1050 whole units; 1% fee = 10.5.
	cost := wad(1050)
	fee := new(uint256.Int).Div(cost, uint256.NewInt(100))
	totalCost := new(uint256.Int).Add(cost, fee)
	payment := new(uint256.Int).Add(totalCost, uint256.NewInt(7))

	res, err := env.curve.Buy(ctx, alice, wad(1), totalCost, payment)
	require.NoError(t, err)

	assert.Equal(t, cost, res.Cost)
	assert.Equal(t, fee, res.Fee)
	assert.Equal(t, totalCost, res.TotalCost)
	assert.Equal(t, uint256.NewInt(7), res.Refund)
	assert.Equal(t, wad(1), res.NewSupply)

	balance, err := env.tokens.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, wad(1), balance)

	// Excess payment came back, fee landed in the ledger.
	assert.Equal(t, uint256.NewInt(7), env.bank.BalanceOf(alice))
	assert.Equal(t, fee, env.fees.Accrued())

	snap, err := env.curve.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, cost, snap.Raised)
	assert.Equal(t, PhaseActive, snap.Phase)
}

func TestBuy_SlippageExceeded(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultFeeConfig(), farThreshold())

	_, err := env.curve.Buy(ctx, alice, wad(1), wad(1050), wad(2000))

	var slippage *SlippageExceededError
	require.ErrorAs(t, err, &slippage)
	assert.Equal(t, wad(1050), slippage.MaxCost)

	// Rejected operations leave no partial effects.
	snap, snapErr := env.curve.Snapshot()
	require.NoError(t, snapErr)
	assert.True(t, snap.Supply.IsZero())
	assert.True(t, snap.Raised.IsZero())

	balance, balErr := env.tokens.BalanceOf(ctx, alice)
	require.NoError(t, balErr)
	assert.True(t, balance.IsZero())
}

func TestBuy_InsufficientPayment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultFeeConfig(), farThreshold())

	_, err := env.curve.Buy(ctx, alice, wad(1), wad(2000), wad(1))

	var payment *InsufficientPaymentError
	require.ErrorAs(t, err, &payment)
	assert.Equal(t, wad(1), payment.Tendered)

	snap, snapErr := env.curve.Snapshot()
	require.NoError(t, snapErr)
	assert.True(t, snap.Supply.IsZero())
}

func TestBuy_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultFeeConfig(), farThreshold())

	_, err := env.curve.Buy(ctx, alice, uint256.NewInt(0), wad(1), wad(1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = env.curve.Buy(ctx, alice, nil, wad(1), wad(1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = env.curve.Buy(ctx, types.Account(""), wad(1), wad(1), wad(1))
	assert.ErrorIs(t, err, ErrInvalidCaller)
}

func TestBuy_AccessGate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultFeeConfig(), farThreshold())

	env.gate.SetPaused(true)
	_, err := env.curve.Buy(ctx, alice, wad(1), wad(5000), wad(5000))
	var denied *AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, alice, denied.Account)
	env.gate.SetPaused(false)

	env.gate.Block(bob)
	_, err = env.curve.Buy(ctx, bob, wad(1), wad(5000), wad(5000))
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, bob, denied.Account)

	_, err = env.curve.Sell(ctx, bob, wad(1), uint256.NewInt(0))
	require.ErrorAs(t, err, &denied)
}

func TestSell_HappyPath(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultFeeConfig(), farThreshold())

	buyRes, err := env.curve.Buy(ctx, alice, wad(1), wad(5000), wad(5000))
	require.NoError(t, err)

	sellRes, err := env.curve.Sell(ctx, alice, wad(1), uint256.NewInt(0))
	require.NoError(t, err)

	// sellProceeds(1, 1) == buyCost(0, 1) here (all terms exact), so
	// the only round-trip loss is the two trading fees.
	assert.Equal(t, buyRes.Cost, sellRes.Proceeds)
	assert.True(t, sellRes.NetRefund.Lt(sellRes.Proceeds))
	assert.True(t, sellRes.NewSupply.IsZero())

	balance, err := env.tokens.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	snap, err := env.curve.Snapshot()
	require.NoError(t, err)
	assert.True(t, snap.Supply.IsZero())
	assert.True(t, snap.Raised.IsZero())

	// Both fees accrued to the platform.
	expectedFees := new(uint256.Int).Add(buyRes.Fee, sellRes.Fee)
	assert.Equal(t, expectedFees, env.fees.Accrued())
}

func TestSell_RoundTripNeverProfits(t *testing.T) {
	ctx := context.Background()

	// Zero trading fees isolate the rounding policy.
	cfg := defaultFeeConfig()
	cfg.BuyFeeBps = 0
	cfg.SellFeeBps = 0
	env := newTestEnv(t, cfg, farThreshold())

	// Ragged amount so the roundings actually engage.
	amount := new(uint256.Int).Add(wad(3), uint256.NewInt(41))

	buyRes, err := env.curve.Buy(ctx, alice, amount, wad(100_000), wad(100_000))
	require.NoError(t, err)

	sellRes, err := env.curve.Sell(ctx, alice, amount, uint256.NewInt(0))
	require.NoError(t, err)

	assert.True(t, sellRes.NetRefund.Cmp(buyRes.TotalCost) <= 0,
		"round trip must not profit: paid %s, got back %s",
		buyRes.TotalCost.Dec(), sellRes.NetRefund.Dec())

	gap := new(uint256.Int).Sub(buyRes.TotalCost, sellRes.NetRefund)
	assert.True(t, gap.Cmp(uint256.NewInt(4)) <= 0,
		"rounding gap must stay within a few units, got %s", gap.Dec())
}

func TestSell_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultFeeConfig(), farThreshold())

	_, err := env.curve.Sell(ctx, alice, wad(1), uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestSell_ProceedsBelowMinimum(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultFeeConfig(), farThreshold())

	_, err := env.curve.Buy(ctx, alice, wad(1), wad(5000), wad(5000))
	require.NoError(t, err)

	_, err = env.curve.Sell(ctx, alice, wad(1), wad(100_000))

	var below *ProceedsBelowMinimumError
	require.ErrorAs(t, err, &below)

	// No state change: the position is intact.
	balance, balErr := env.tokens.BalanceOf(ctx, alice)
	require.NoError(t, balErr)
	assert.Equal(t, wad(1), balance)
}

func TestSell_InsufficientReserve(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultFeeConfig(), farThreshold())

	_, err := env.curve.Buy(ctx, alice, wad(1), wad(5000), wad(5000))
	require.NoError(t, err)

	// Force the drift the check defends against.
	env.curve.mu.Lock()
	env.curve.reserve.Clear()
	env.curve.mu.Unlock()

	_, err = env.curve.Sell(ctx, alice, wad(1), uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrInsufficientReserve)
}

func TestTrade_FeeSnapshotNotRetroactive(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultFeeConfig(), farThreshold())

	res1, err := env.curve.Buy(ctx, alice, wad(1), wad(5000), wad(5000))
	require.NoError(t, err)

	updated := defaultFeeConfig()
	updated.BuyFeeBps = 1000
	require.NoError(t, env.curve.UpdateFees(platformOwner, updated))

	res2, err := env.curve.Buy(ctx, bob, wad(1), wad(50_000), wad(50_000))
	require.NoError(t, err)

	// Same fee base would give fee2 = 10x fee1 only with the new rate;
	// the earlier trade kept its 1% snapshot.
	assert.Equal(t, fees.TradeFee(res1.Cost, 100), res1.Fee)
	assert.Equal(t, fees.TradeFee(res2.Cost, 1000), res2.Fee)
}

func TestUpdateFees_Authorization(t *testing.T) {
	env := newTestEnv(t, defaultFeeConfig(), farThreshold())

	err := env.curve.UpdateFees(alice, defaultFeeConfig())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestWithdrawPlatformFees(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultFeeConfig(), farThreshold())

	res, err := env.curve.Buy(ctx, alice, wad(1), wad(5000), wad(5000))
	require.NoError(t, err)

	_, err = env.curve.WithdrawPlatformFees(ctx, alice)
	assert.ErrorIs(t, err, ErrUnauthorized)

	out, err := env.curve.WithdrawPlatformFees(ctx, platformOwner)
	require.NoError(t, err)
	assert.Equal(t, res.Fee, out)
	assert.Equal(t, res.Fee, env.bank.BalanceOf(platformOwner))
	assert.True(t, env.fees.Accrued().IsZero())
}
