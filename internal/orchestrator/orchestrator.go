// Package orchestrator drives the fixed 1-second cadence that threads a
// book snapshot and trade batch through the full pipeline: features → OAD
// → VAD → stress → regime → signal → risk → plan → executor → ledger.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/kledx/toxictide/internal/detectors"
	"github.com/kledx/toxictide/internal/eventbus"
	"github.com/kledx/toxictide/internal/execution"
	"github.com/kledx/toxictide/internal/features"
	"github.com/kledx/toxictide/internal/ledger"
	"github.com/kledx/toxictide/internal/orderbook"
	"github.com/kledx/toxictide/internal/regime"
	"github.com/kledx/toxictide/internal/risk"
	"github.com/kledx/toxictide/internal/signals"
	"github.com/kledx/toxictide/internal/stress"
	"github.com/kledx/toxictide/internal/tape"
	"github.com/kledx/toxictide/internal/telemetry"
	"github.com/kledx/toxictide/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Cadence is the fixed per-tick period.
const Cadence = time.Second

// tapeSpanSec is the sliding trade-tape window the Orchestrator maintains.
const tapeSpanSec = 300

// Orchestrator owns every pipeline component and drives them at Cadence.
type Orchestrator struct {
	logger *zap.Logger

	book     *orderbook.OrderBook
	tape     *tape.TradeTape
	features *features.Engine
	oad      *detectors.OAD
	vad      *detectors.VAD
	regime   *regime.Classifier
	signals  *signals.Engine
	risk     *risk.Guardian
	planner  *execution.Planner
	ledger   *ledger.Ledger
	bus      *eventbus.Bus
	metrics  *telemetry.Metrics

	collector execution.Collector
	adapter   execution.Adapter

	mu      sync.Mutex
	policy  types.Policy
	running bool
	paused  bool
}

// New wires every component together. policy is the initial Policy; it
// may be swapped out between ticks via SetPolicy.
func New(
	logger *zap.Logger,
	collector execution.Collector,
	adapter execution.Adapter,
	ledg *ledger.Ledger,
	bus *eventbus.Bus,
	metrics *telemetry.Metrics,
	policy types.Policy,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		logger:    logger,
		book:      orderbook.New(),
		tape:      tape.New(tapeSpanSec),
		features:  features.NewEngine(logger, features.Config{ImpactSizeQuoteUSD: policy.ImpactSizeQuoteUSD}),
		oad:       detectors.NewOAD(logger, detectors.OADConfig{ZWarn: policy.OADZWarn, ZDanger: policy.OADZDanger}),
		vad:       detectors.NewVAD(logger, detectors.VADConfig{ZWarn: policy.VADZWarn, ZDanger: policy.VADZDanger, ToxicWarn: policy.VADToxicWarn, ToxicDanger: policy.VADToxicDanger}),
		regime:    regime.New(logger),
		signals:   signals.New(logger),
		risk:      risk.New(logger),
		planner:   execution.New(logger, policy.SlicingThresholdBps),
		ledger:    ledg,
		bus:       bus,
		metrics:   metrics,
		collector: collector,
		adapter:   adapter,
		policy:    policy,
	}
}

// SetPolicy swaps the active Policy, taking effect on the next tick.
func (o *Orchestrator) SetPolicy(p types.Policy) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.policy = p
}

// Pause skips decision work on subsequent ticks while keeping the cadence
// alive (book/tape ingestion continues).
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = true
	o.logger.Info("orchestrator_paused")
}

// Resume reverses Pause.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = false
	o.logger.Info("orchestrator_resumed")
}

// Stop requests the loop to exit after the current tick finishes.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
}

// Guardian exposes the risk cascade so a supervising process can trigger a
// cooldown in reaction to something outside the tick loop (e.g. a manual
// circuit breaker).
func (o *Orchestrator) Guardian() *risk.Guardian {
	return o.risk
}

// Run drives the cadence loop until ctx is cancelled or Stop is called.
// Each tick is recovered and logged independently so a single panicking
// tick never ends the loop.
func (o *Orchestrator) Run(ctx context.Context) {
	o.mu.Lock()
	o.running = true
	o.mu.Unlock()

	ticker := time.NewTicker(Cadence)
	defer ticker.Stop()

	o.logger.Info("orchestrator_started", zap.Duration("cadence", Cadence))

	for {
		o.mu.Lock()
		running := o.running
		o.mu.Unlock()
		if !running {
			o.logger.Info("orchestrator_stopped")
			return
		}

		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator_context_cancelled")
			return
		case now := <-ticker.C:
			o.runTickSafely(ctx, now)
		}
	}
}

func (o *Orchestrator) runTickSafely(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("tick_panic_recovered", zap.Any("recover", r), zap.Time("ts", now))
		}
	}()

	if err := o.tick(ctx, now); err != nil {
		o.logger.Warn("tick_completed_with_errors", zap.Error(err), zap.Time("ts", now))
	}
}

func (o *Orchestrator) tick(ctx context.Context, now time.Time) error {
	start := time.Now()
	defer func() {
		if o.metrics != nil {
			o.metrics.TickDuration.Observe(time.Since(start).Seconds())
			o.metrics.TicksProcessed.Inc()
		}
	}()

	o.mu.Lock()
	paused := o.paused
	policy := o.policy
	o.mu.Unlock()

	var errs error

	snapshot, err := o.collector.GetOrderbookSnapshot(ctx)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if err := o.book.ApplySnapshot(snapshot.Bids, snapshot.Asks, snapshot.Sequence, now); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		o.risk.UpdateBookTimestamp(now)
	}
	o.bus.Publish(eventbus.TopicMarketBook, o.book.State())

	trades, err := o.collector.GetRecentTrades(ctx, 500)
	if err != nil {
		errs = multierr.Append(errs, err)
		trades = nil
	} else {
		o.tape.AddBatch(trades, now)
	}
	o.bus.Publish(eventbus.TopicMarketTrades, trades)

	if paused {
		return errs
	}

	fv := o.features.Compute(o.book, o.tape, now)
	o.bus.Publish(eventbus.TopicFeatures, fv)

	oadReport := o.oad.Update(fv)
	o.bus.Publish(eventbus.TopicOAD, oadReport)

	vadReport := o.vad.Update(fv)
	o.bus.Publish(eventbus.TopicVAD, vadReport)

	stressIdx := stress.Aggregate(oadReport, vadReport)
	o.bus.Publish(eventbus.TopicStress, stressIdx)
	if o.metrics != nil {
		o.metrics.ObserveStress(stressIdx.Level)
	}

	regimeState := o.regime.Classify(fv, oadReport, vadReport)
	o.bus.Publish(eventbus.TopicRegime, regimeState)

	candidate := o.signals.Generate(fv, regimeState, policy)
	o.bus.Publish(eventbus.TopicSignal, candidate)

	account, err := o.adapter.GetAccountState(ctx, decimal.NewFromFloat(fv.Mid))
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	o.bus.Publish(eventbus.TopicAccount, account)

	decision := o.risk.Assess(candidate, fv, oadReport, vadReport, stressIdx, account, policy)
	o.bus.Publish(eventbus.TopicRisk, decision)
	if o.metrics != nil {
		o.metrics.ObserveDecision(decision)
	}

	plan := o.planner.Plan(decision, candidate, fv, vadReport)
	o.bus.Publish(eventbus.TopicPlan, plan)

	var fills []types.Fill
	if len(plan.Orders) > 0 {
		fills, err = o.adapter.Execute(ctx, plan)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		// Realized PnL is not known at fill time — only the external
		// executor's account snapshot settles it — so each fill is recorded
		// against the tilt tracker at pnl=0. This engine has no
		// position-close accounting, so no realized PnL is ever recorded
		// here and the daily-loss rule sees 0 from these fills.
		for i := range fills {
			f := &fills[i]
			fillPrice, _ := f.Price.Float64()
			side := features.SideBuy
			if f.Side == types.CandidateShort {
				side = features.SideSell
			}
			f.SlippageBps = features.EstimateSlippageBps(fillPrice, fv.Mid, side)
			o.risk.RecordTrade(f.Ts, 0)
		}
	}
	o.bus.Publish(eventbus.TopicFill, fills)

	if postTrade, postErr := o.adapter.GetAccountState(ctx, decimal.NewFromFloat(fv.Mid)); postErr == nil {
		o.bus.Publish(eventbus.TopicPositions, postTrade)
	}

	record := types.LedgerRecord{
		Ts:        now,
		Policy:    policy,
		Features:  fv,
		OAD:       oadReport,
		VAD:       vadReport,
		Stress:    stressIdx,
		Regime:    regimeState,
		Candidate: candidate,
		Risk:      decision,
		Plan:      plan,
		Fills:     fills,
		Explain:   explain(decision, plan),
	}
	if o.ledger != nil {
		o.ledger.Append(record)
	}
	o.bus.Publish(eventbus.TopicLedger, record)

	return errs
}

func explain(risk types.RiskDecision, plan types.ExecutionPlan) string {
	if risk.Action == types.ActionDeny {
		return "denied: " + reasonsToString(risk.Reasons)
	}
	return string(plan.Mode) + ": " + reasonsToString(risk.Reasons)
}

func reasonsToString(reasons []types.ReasonCode) string {
	if len(reasons) == 0 {
		return "none"
	}
	s := string(reasons[0])
	for _, r := range reasons[1:] {
		s += "," + string(r)
	}
	return s
}
