// internal/ledger/ledger.go

// Package ledger provides in-memory implementations of the external
// collaborators the engine consults: the token ownership ledger, the
// pause/block access gate and the native-currency bank. The engine
// itself only ever sees their interfaces.
package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/launchforge/launchpad-engine/internal/types"
)

var (
	// ErrInvalidAccount rejects operations without an account.
	ErrInvalidAccount = errors.New("ledger: account is required")

	// ErrInsufficientFunds rejects burns or payments exceeding a balance.
	ErrInsufficientFunds = errors.New("ledger: insufficient balance")
)

// TokenBook is the ownership ledger for one instrument's units.
type TokenBook struct {
	mu       sync.RWMutex
	balances map[types.Account]*uint256.Int
	total    *uint256.Int
	logger   *zap.Logger
}

// NewTokenBook creates an empty ownership ledger.
func NewTokenBook(logger *zap.Logger) *TokenBook {
	return &TokenBook{
		balances: make(map[types.Account]*uint256.Int),
		total:    new(uint256.Int),
		logger:   logger.Named("token-book"),
	}
}

// Mint credits newly issued units to an account.
func (b *TokenBook) Mint(_ context.Context, account types.Account, amount *uint256.Int) error {
	if account.IsZero() {
		return ErrInvalidAccount
	}
	if amount == nil || amount.IsZero() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[account]
	if !ok {
		bal = new(uint256.Int)
		b.balances[account] = bal
	}
	bal.Add(bal, amount)
	b.total.Add(b.total, amount)
	return nil
}

// Burn removes units from an account. Burning more than the balance is
// an error, never a clamp.
func (b *TokenBook) Burn(_ context.Context, account types.Account, amount *uint256.Int) error {
	if account.IsZero() {
		return ErrInvalidAccount
	}
	if amount == nil || amount.IsZero() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[account]
	if !ok || bal.Lt(amount) {
		return ErrInsufficientFunds
	}
	bal.Sub(bal, amount)
	b.total.Sub(b.total, amount)
	return nil
}

// BalanceOf returns a copy of the account balance.
func (b *TokenBook) BalanceOf(_ context.Context, account types.Account) (*uint256.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if bal, ok := b.balances[account]; ok {
		return bal.Clone(), nil
	}
	return new(uint256.Int), nil
}

// TotalSupply returns a copy of the total issued amount.
func (b *TokenBook) TotalSupply(context.Context) (*uint256.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.total.Clone(), nil
}

// Gate holds the pause flag and the block list.
type Gate struct {
	mu      sync.RWMutex
	paused  bool
	blocked map[types.Account]struct{}
}

// NewGate creates an unpaused gate with an empty block list.
func NewGate() *Gate {
	return &Gate{blocked: make(map[types.Account]struct{})}
}

// IsPaused reports the pause flag.
func (g *Gate) IsPaused(context.Context) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused, nil
}

// IsBlocked reports whether the account is on the block list.
func (g *Gate) IsBlocked(_ context.Context, account types.Account) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, blocked := g.blocked[account]
	return blocked, nil
}

// SetPaused flips the pause flag.
func (g *Gate) SetPaused(paused bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = paused
}

// Block adds an account to the block list.
func (g *Gate) Block(account types.Account) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blocked[account] = struct{}{}
}

// Unblock removes an account from the block list.
func (g *Gate) Unblock(account types.Account) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.blocked, account)
}

// Bank tracks native-currency balances credited by engine payouts.
type Bank struct {
	mu       sync.RWMutex
	balances map[types.Account]*uint256.Int
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{balances: make(map[types.Account]*uint256.Int)}
}

// Pay credits value to the recipient.
func (b *Bank) Pay(_ context.Context, to types.Account, amount *uint256.Int) error {
	if to.IsZero() {
		return ErrInvalidAccount
	}
	if amount == nil || amount.IsZero() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[to]
	if !ok {
		bal = new(uint256.Int)
		b.balances[to] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// BalanceOf returns a copy of the recipient's credited balance.
func (b *Bank) BalanceOf(account types.Account) *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if bal, ok := b.balances[account]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}
