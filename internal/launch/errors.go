// internal/launch/errors.go
package launch

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/launchforge/launchpad-engine/internal/types"
)

var (
	// ErrInvalidAmount rejects zero or missing trade amounts before any
	// state is read.
	ErrInvalidAmount = errors.New("launch: amount must be positive")

	// ErrInvalidCaller rejects operations without a caller account.
	ErrInvalidCaller = errors.New("launch: caller account is required")

	// ErrAlreadyGraduated rejects engine trades on a graduated curve;
	// trading has moved to the external venue.
	ErrAlreadyGraduated = errors.New("launch: curve already graduated")

	// ErrNotYetEligible rejects a graduation request while the market
	// cap is still below the threshold.
	ErrNotYetEligible = errors.New("launch: market cap below graduation threshold")

	// ErrUnauthorized rejects privileged operations from ordinary callers.
	ErrUnauthorized = errors.New("launch: caller lacks the required privilege")

	// ErrInsufficientBalance rejects a sell exceeding the caller's balance.
	ErrInsufficientBalance = errors.New("launch: seller balance below requested amount")

	// ErrInsufficientReserve means the engine's payout balance cannot
	// cover the gross proceeds. Not expected in normal operation; the
	// check guards against rounding drift.
	ErrInsufficientReserve = errors.New("launch: payout reserve below gross proceeds")
)

// AccessDeniedError is returned when the access gate reports the
// instance paused or the caller blocked. No state has been changed.
type AccessDeniedError struct {
	Account types.Account
	Reason  string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("launch: access denied for %s: %s", e.Account, e.Reason)
}

// SlippageExceededError is returned when the total buy cost moved
// above the caller's bound between quoting and execution.
type SlippageExceededError struct {
	MaxCost   *uint256.Int
	TotalCost *uint256.Int
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("launch: slippage exceeded: total cost %s above caller maximum %s",
		e.TotalCost.Dec(), e.MaxCost.Dec())
}

// ProceedsBelowMinimumError is returned when the net sell refund fell
// below the caller's bound.
type ProceedsBelowMinimumError struct {
	MinProceeds *uint256.Int
	NetRefund   *uint256.Int
}

func (e *ProceedsBelowMinimumError) Error() string {
	return fmt.Sprintf("launch: proceeds below minimum: net refund %s under caller minimum %s",
		e.NetRefund.Dec(), e.MinProceeds.Dec())
}

// InsufficientPaymentError is returned when the tendered payment does
// not cover cost plus fee.
type InsufficientPaymentError struct {
	Required *uint256.Int
	Tendered *uint256.Int
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("launch: insufficient payment: tendered %s, required %s",
		e.Tendered.Dec(), e.Required.Dec())
}

// GraduationError reports a rolled-back graduation attempt. The phase
// is Failed and the sequence may be retried.
type GraduationError struct {
	Stage string
	Err   error
}

func (e *GraduationError) Error() string {
	return fmt.Sprintf("launch: graduation failed at %s: %v", e.Stage, e.Err)
}

func (e *GraduationError) Unwrap() error {
	return e.Err
}
