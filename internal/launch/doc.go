// Package launch implements the bonding-curve trading engine and the
// graduation state machine for a single issued instrument.
//
// Unit price rises linearly with circulating supply; buys and sells
// settle against the exact fixed-point integral of that price function
// (see internal/pricing). Once the market cap crosses the configured
// threshold, trading migrates to an external liquidity venue through a
// multi-step, compensating graduation sequence.
//
// Key types and functions:
//
// - Curve: one curve instance owning its supply, raised and phase
//   state. All operations on an instance are serialized by a single
//   mutex; the external liquidity call is the only point where control
//   leaves the engine.
// - NewCurve(): validates configuration and wires the collaborators
//   (access gate, token ledger, bank, pair factory, liquidity venue).
// - Buy(), Sell(): the trading operations with fee application and
//   slippage enforcement.
// - CheckAndMaybeGraduate(), TriggerGraduation(): automatic and
//   privileged manual entry into the graduation sequence.
// - Monitor: periodic progress reporting over the event bus.
//
// Per source file:
//   - curve.go: instance state, construction, snapshots, admin ops.
//   - trade.go: buy/sell orchestration.
//   - graduate.go: the graduation saga and its compensation path.
//   - monitor.go: progress reporting.
//   - errors.go: the error taxonomy trading callers branch on.
//   - types.go: phases, records, collaborator interfaces, results.
package launch
