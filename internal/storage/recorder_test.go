// internal/storage/recorder_test.go
package storage

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/launchforge/launchpad-engine/internal/events"
	"github.com/launchforge/launchpad-engine/internal/storage/models"
	"github.com/launchforge/launchpad-engine/internal/types"
)

type memStorage struct {
	trades      []*models.Trade
	graduations map[string]*models.Graduation
}

func newMemStorage() *memStorage {
	return &memStorage{graduations: make(map[string]*models.Graduation)}
}

func (m *memStorage) SaveTrade(_ context.Context, trade *models.Trade) error {
	m.trades = append(m.trades, trade)
	return nil
}

func (m *memStorage) ListTrades(_ context.Context, curveID string, _, _ int) ([]*models.Trade, error) {
	var out []*models.Trade
	for _, tr := range m.trades {
		if tr.CurveID == curveID {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (m *memStorage) UpsertGraduation(_ context.Context, g *models.Graduation) error {
	m.graduations[g.CurveID] = g
	return nil
}

func (m *memStorage) GetGraduation(_ context.Context, curveID string) (*models.Graduation, error) {
	return m.graduations[curveID], nil
}

func (m *memStorage) RunMigrations() error { return nil }

func TestRecorder_PersistsTrades(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus(zap.NewNop(), 16)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	store := newMemStorage()
	rec := NewRecorder(bus, store, zap.NewNop())
	defer rec.Close()

	err := bus.PublishSync(ctx, events.TokensPurchased{
		BaseEvent: events.NewBase(events.TypeTokensPurchased, "curve-1"),
		Buyer:     types.Account("alice"),
		Amount:    uint256.NewInt(100),
		Cost:      uint256.NewInt(1050),
		Fee:       uint256.NewInt(10),
		NewSupply: uint256.NewInt(100),
	})
	require.NoError(t, err)

	err = bus.PublishSync(ctx, events.TokensSold{
		BaseEvent: events.NewBase(events.TypeTokensSold, "curve-1"),
		Seller:    types.Account("alice"),
		Amount:    uint256.NewInt(40),
		Refund:    uint256.NewInt(400),
		Fee:       uint256.NewInt(4),
		NewSupply: uint256.NewInt(60),
	})
	require.NoError(t, err)

	trades, err := store.ListTrades(ctx, "curve-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, models.TradeSideBuy, trades[0].Side)
	assert.Equal(t, "1050", trades[0].Value)
	assert.Equal(t, models.TradeSideSell, trades[1].Side)
	assert.Equal(t, "40", trades[1].Amount)
}

func TestRecorder_TracksGraduationLifecycle(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus(zap.NewNop(), 16)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	store := newMemStorage()
	rec := NewRecorder(bus, store, zap.NewNop())
	defer rec.Close()

	err := bus.PublishSync(ctx, events.GraduationFailed{
		BaseEvent: events.NewBase(events.TypeGraduationFailed, "curve-2"),
		Reason:    "venue unavailable",
	})
	require.NoError(t, err)

	g, err := store.GetGraduation(ctx, "curve-2")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, models.GraduationStatusFailed, g.Status)
	assert.Equal(t, "venue unavailable", g.ErrorMessage)

	// The retry outcome replaces the failure row.
	err = bus.PublishSync(ctx, events.TokenGraduated{
		BaseEvent:   events.NewBase(events.TypeTokenGraduated, "curve-2"),
		FinalSupply: uint256.NewInt(200),
		MarketCap:   uint256.NewInt(7500),
		PairHandle:  types.PairHandle("pair:abc"),
		PlatformFee: uint256.NewInt(625),
	})
	require.NoError(t, err)

	g, err = store.GetGraduation(ctx, "curve-2")
	require.NoError(t, err)
	assert.Equal(t, models.GraduationStatusCompleted, g.Status)
	assert.Equal(t, "pair:abc", g.PairHandle)
	assert.Equal(t, "200", g.FinalSupply)
}
