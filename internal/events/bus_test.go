// internal/events/bus_test.go
package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/launchforge/launchpad-engine/internal/types"
)

func TestBus_PublishDelivers(t *testing.T) {
	bus := NewBus(zap.NewNop(), 16)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	var got atomic.Int64
	bus.SubscribeFunc(TypeTokensPurchased, func(_ context.Context, e Event) error {
		purchase, ok := e.(TokensPurchased)
		require.True(t, ok)
		assert.Equal(t, types.Account("alice"), purchase.Buyer)
		got.Add(1)
		return nil
	})

	err := bus.Publish(TokensPurchased{
		BaseEvent: NewBase(TypeTokensPurchased, "curve-1"),
		Buyer:     "alice",
		Amount:    uint256.NewInt(10),
		Cost:      uint256.NewInt(100),
		Fee:       uint256.NewInt(1),
		NewSupply: uint256.NewInt(10),
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return got.Load() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(zap.NewNop(), 16)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	var got atomic.Int64
	sub := bus.SubscribeFunc(TypeGraduationFailed, func(context.Context, Event) error {
		got.Add(1)
		return nil
	})
	sub.Unsubscribe()

	require.NoError(t, bus.PublishSync(context.Background(), GraduationFailed{
		BaseEvent: NewBase(TypeGraduationFailed, "curve-1"),
		Reason:    "venue unavailable",
	}))
	assert.Equal(t, int64(0), got.Load())
}

func TestBus_PublishAfterShutdown(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	require.NoError(t, bus.Shutdown(context.Background()))

	// Queue capacity is 1 and nothing drains it, so a racy publish
	// would sometimes slip into the dead queue and report success.
	// Every attempt must fail, not just the first.
	for i := 0; i < 100; i++ {
		err := bus.Publish(GraduationFailed{BaseEvent: NewBase(TypeGraduationFailed, "curve-1")})
		assert.Error(t, err)
	}
}
