// internal/service/runner.go
package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/launchforge/launchpad-engine/internal/config"
	"github.com/launchforge/launchpad-engine/internal/events"
	"github.com/launchforge/launchpad-engine/internal/fees"
	"github.com/launchforge/launchpad-engine/internal/launch"
	"github.com/launchforge/launchpad-engine/internal/ledger"
	"github.com/launchforge/launchpad-engine/internal/logger"
	"github.com/launchforge/launchpad-engine/internal/pricing"
	"github.com/launchforge/launchpad-engine/internal/storage"
	"github.com/launchforge/launchpad-engine/internal/storage/postgres"
	"github.com/launchforge/launchpad-engine/internal/types"
	"github.com/launchforge/launchpad-engine/internal/venue"
)

// Runner wires configuration into running curve instances with their
// shared collaborators and keeps them alive until shutdown.
type Runner struct {
	logger *logger.Logger
	cfg    *config.Config

	bus      *events.Bus
	gate     *ledger.Gate
	bank     *ledger.Bank
	amm      *venue.AMM
	curves   map[string]*launch.Curve
	monitors []*launch.Monitor
	recorder *storage.Recorder

	shutdownCh chan os.Signal
}

// NewRunner builds every curve declared in the configuration.
func NewRunner(cfg *config.Config, log *logger.Logger) (*Runner, error) {
	defer log.TrackPerformance("runner-init")()

	r := &Runner{
		logger:     log,
		cfg:        cfg,
		bus:        events.NewBus(log.Logger, cfg.EventBufferSize),
		gate:       ledger.NewGate(),
		bank:       ledger.NewBank(),
		amm:        venue.NewAMM(log.Logger),
		curves:     make(map[string]*launch.Curve),
		shutdownCh: make(chan os.Signal, 1),
	}

	if cfg.PostgresURL != "" {
		store, err := postgres.NewStorage(cfg.PostgresURL, log.Logger)
		if err != nil {
			return nil, fmt.Errorf("storage init: %w", err)
		}
		if err := store.RunMigrations(); err != nil {
			return nil, fmt.Errorf("storage migrations: %w", err)
		}
		r.recorder = storage.NewRecorder(r.bus, store, log.Logger)
	}

	owner := types.Account(cfg.PlatformOwner)
	for _, spec := range cfg.Curves {
		curve, err := r.buildCurve(spec, owner)
		if err != nil {
			return nil, fmt.Errorf("curve %s: %w", spec.Instrument, err)
		}
		r.curves[spec.Instrument] = curve
		r.monitors = append(r.monitors,
			launch.NewMonitor(curve, r.bus, log.Logger, cfg.MonitorInterval()))

		log.WithCurve(curve.ID(), spec.Instrument).Info("Curve configured",
			zap.String("creator", spec.Creator))
	}

	log.Info("Runner initialized",
		zap.Int("curves", len(r.curves)),
		zap.Bool("persistence", r.recorder != nil))
	return r, nil
}

func (r *Runner) buildCurve(spec config.CurveSpec, owner types.Account) (*launch.Curve, error) {
	basePrice, err := config.ParseAmount(spec.BasePrice)
	if err != nil {
		return nil, err
	}
	slope, err := config.ParseAmount(spec.Slope)
	if err != nil {
		return nil, err
	}
	threshold, err := config.ParseAmount(spec.GraduationThreshold)
	if err != nil {
		return nil, err
	}

	params, err := pricing.NewParams(basePrice, slope)
	if err != nil {
		return nil, err
	}

	// Each instrument gets its own unit ledger and fee books; the gate,
	// bank, venue and bus are shared platform facilities.
	feeLedger, err := fees.NewLedger(r.cfg.Fees, owner, r.logger.Logger)
	if err != nil {
		return nil, err
	}

	return launch.NewCurve(launch.CurveConfig{
		Instrument:          spec.Instrument,
		Creator:             types.Account(spec.Creator),
		Params:              params,
		GraduationThreshold: threshold,
		VenueSlippageBps:    r.cfg.VenueSlippageBps,
		VenueDeadline:       r.cfg.VenueDeadline(),
	}, launch.Deps{
		Fees:   feeLedger,
		Gate:   r.gate,
		Tokens: ledger.NewTokenBook(r.logger.Logger),
		Bank:   r.bank,
		Pairs:  r.amm,
		Venue:  r.amm,
		Bus:    r.bus,
		Logger: r.logger.Logger,
	})
}

// Curve returns the curve for an instrument, if declared.
func (r *Runner) Curve(instrument string) (*launch.Curve, bool) {
	curve, ok := r.curves[instrument]
	return curve, ok
}

// Gate returns the shared access gate for administrative control.
func (r *Runner) Gate() *ledger.Gate { return r.gate }

// Bus returns the shared event bus.
func (r *Runner) Bus() *events.Bus { return r.bus }

// Run starts the curve monitors and blocks until a shutdown signal or
// a monitor failure.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("Signal received", zap.String("signal", sig.String()))
			cancel()
		case <-runCtx.Done():
		}
	}()

	g, gCtx := errgroup.WithContext(runCtx)
	for _, monitor := range r.monitors {
		g.Go(func() error {
			return monitor.Run(gCtx)
		})
	}

	r.logger.Info("Engine running", zap.Int("monitors", len(r.monitors)))
	if err := g.Wait(); err != nil {
		return fmt.Errorf("monitor group: %w", err)
	}
	return nil
}

// Shutdown releases the runner's resources.
func (r *Runner) Shutdown(ctx context.Context) {
	handler := NewShutdownHandler(r.logger.Logger, 0)

	if r.recorder != nil {
		handler.AddFunc("storage-recorder", func() error {
			r.recorder.Close()
			return nil
		})
	}
	handler.AddFunc("event-bus", func() error {
		return r.bus.Shutdown(ctx)
	})
	handler.AddFunc("logger", r.logger.Sync)

	handler.Shutdown(ctx)
}
