// internal/events/types.go
package events

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/launchforge/launchpad-engine/internal/types"
)

// EventType represents the type of engine event.
type EventType string

const (
	// Trade events
	TypeTokensPurchased EventType = "trade.tokens_purchased"
	TypeTokensSold      EventType = "trade.tokens_sold"

	// Graduation events
	TypeGraduationTriggered EventType = "graduation.triggered"
	TypeTokenGraduated      EventType = "graduation.completed"
	TypeGraduationFailed    EventType = "graduation.failed"

	// Monitoring events
	TypeCurveProgress EventType = "curve.progress"
)

// Event is the base interface for all engine events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
	CurveID   string
}

// Type returns the event type.
func (e BaseEvent) Type() EventType { return e.EventType }

// Timestamp returns when the event was produced.
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }

// NewBase stamps a base event for the given curve instance.
func NewBase(t EventType, curveID string) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now().UTC(), CurveID: curveID}
}

// TokensPurchased is emitted after a completed buy.
type TokensPurchased struct {
	BaseEvent
	Buyer     types.Account
	Amount    *uint256.Int
	Cost      *uint256.Int
	Fee       *uint256.Int
	NewSupply *uint256.Int
}

// TokensSold is emitted after a completed sell.
type TokensSold struct {
	BaseEvent
	Seller    types.Account
	Amount    *uint256.Int
	Refund    *uint256.Int
	Fee       *uint256.Int
	NewSupply *uint256.Int
}

// GraduationTriggered is emitted when a curve enters the graduation
// sequence, after the external pair has been resolved.
type GraduationTriggered struct {
	BaseEvent
	Supply          *uint256.Int
	MarketCap       *uint256.Int
	PairHandle      types.PairHandle
	LiquidityAmount *uint256.Int
}

// TokenGraduated is emitted once, when graduation has fully committed.
type TokenGraduated struct {
	BaseEvent
	FinalSupply *uint256.Int
	MarketCap   *uint256.Int
	PairHandle  types.PairHandle
	PlatformFee *uint256.Int
}

// GraduationFailed is emitted when the graduation sequence was rolled
// back. The curve stays tradable and the sequence may be retried.
type GraduationFailed struct {
	BaseEvent
	Reason string
}

// CurveProgress is a periodic monitoring snapshot.
type CurveProgress struct {
	BaseEvent
	Supply    *uint256.Int
	Raised    *uint256.Int
	MarketCap *uint256.Int
	Threshold *uint256.Int
	Phase     string
}
