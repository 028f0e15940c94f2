// internal/launch/monitor.go
package launch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/launchforge/launchpad-engine/internal/events"
)

// Monitor periodically publishes progress snapshots for one curve. It
// only observes; all state changes go through the trading and
// graduation operations.
type Monitor struct {
	curve    *Curve
	bus      *events.Bus
	logger   *zap.Logger
	interval time.Duration
}

// NewMonitor creates a monitor for the given curve.
func NewMonitor(curve *Curve, bus *events.Bus, logger *zap.Logger, interval time.Duration) *Monitor {
	return &Monitor{
		curve:    curve,
		bus:      bus,
		logger:   logger.Named("curve-monitor").With(zap.String("curve_id", curve.ID())),
		interval: interval,
	}
}

// Run publishes a CurveProgress event every interval until the context
// is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Curve monitor started", zap.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Curve monitor stopped")
			return nil
		case <-ticker.C:
			snap, err := m.curve.Snapshot()
			if err != nil {
				m.logger.Error("Snapshot failed", zap.Error(err))
				continue
			}

			if err := m.bus.Publish(events.CurveProgress{
				BaseEvent: events.NewBase(events.TypeCurveProgress, snap.ID),
				Supply:    snap.Supply,
				Raised:    snap.Raised,
				MarketCap: snap.MarketCap,
				Threshold: snap.Threshold,
				Phase:     snap.Phase.String(),
			}); err != nil {
				m.logger.Debug("Progress event dropped", zap.Error(err))
			}
		}
	}
}
