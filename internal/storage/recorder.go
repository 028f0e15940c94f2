// internal/storage/recorder.go
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/launchforge/launchpad-engine/internal/events"
	"github.com/launchforge/launchpad-engine/internal/storage/models"
)

// Recorder subscribes to the event bus and persists trade and
// graduation history. Persistence is observational: a failed write is
// logged and never affects engine state.
type Recorder struct {
	store  Storage
	logger *zap.Logger
	subs   []events.Subscription
}

// NewRecorder attaches a recorder to the bus.
func NewRecorder(bus *events.Bus, store Storage, logger *zap.Logger) *Recorder {
	r := &Recorder{
		store:  store,
		logger: logger.Named("recorder"),
	}

	r.subs = append(r.subs,
		bus.SubscribeFunc(events.TypeTokensPurchased, r.onEvent),
		bus.SubscribeFunc(events.TypeTokensSold, r.onEvent),
		bus.SubscribeFunc(events.TypeGraduationTriggered, r.onEvent),
		bus.SubscribeFunc(events.TypeTokenGraduated, r.onEvent),
		bus.SubscribeFunc(events.TypeGraduationFailed, r.onEvent),
	)
	return r
}

// Close detaches the recorder from the bus.
func (r *Recorder) Close() {
	for _, sub := range r.subs {
		sub.Unsubscribe()
	}
}

func (r *Recorder) onEvent(ctx context.Context, event events.Event) error {
	var err error
	switch e := event.(type) {
	case events.TokensPurchased:
		err = r.store.SaveTrade(ctx, &models.Trade{
			CurveID:   e.CurveID,
			Account:   e.Buyer.String(),
			Side:      models.TradeSideBuy,
			Amount:    e.Amount.Dec(),
			Value:     e.Cost.Dec(),
			Fee:       e.Fee.Dec(),
			NewSupply: e.NewSupply.Dec(),
		})
	case events.TokensSold:
		err = r.store.SaveTrade(ctx, &models.Trade{
			CurveID:   e.CurveID,
			Account:   e.Seller.String(),
			Side:      models.TradeSideSell,
			Amount:    e.Amount.Dec(),
			Value:     e.Refund.Dec(),
			Fee:       e.Fee.Dec(),
			NewSupply: e.NewSupply.Dec(),
		})
	case events.GraduationTriggered:
		err = r.store.UpsertGraduation(ctx, &models.Graduation{
			CurveID:    e.CurveID,
			Status:     models.GraduationStatusTriggered,
			PairHandle: e.PairHandle.String(),
			MarketCap:  e.MarketCap.Dec(),
		})
	case events.TokenGraduated:
		err = r.store.UpsertGraduation(ctx, &models.Graduation{
			CurveID:     e.CurveID,
			Status:      models.GraduationStatusCompleted,
			PairHandle:  e.PairHandle.String(),
			FinalSupply: e.FinalSupply.Dec(),
			MarketCap:   e.MarketCap.Dec(),
			PlatformFee: e.PlatformFee.Dec(),
		})
	case events.GraduationFailed:
		err = r.store.UpsertGraduation(ctx, &models.Graduation{
			CurveID:      e.CurveID,
			Status:       models.GraduationStatusFailed,
			ErrorMessage: e.Reason,
		})
	default:
		return fmt.Errorf("storage: unexpected event type %q", event.Type())
	}

	if err != nil {
		r.logger.Error("Failed to persist event",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
		return err
	}
	return nil
}
