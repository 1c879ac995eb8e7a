// Package risk implements the prioritized risk-check cascade that gates
// every trade candidate before it can reach the execution planner.
package risk

import (
	"sync"
	"time"

	"github.com/kledx/toxictide/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const dataStaleThresholdSec = 10.0

// Guardian runs a prioritized risk-check cascade: each rule either aborts
// with a DENY or falls through to the next. Every violation is not
// accumulated — the cascade stops at the first DENY.
type Guardian struct {
	mu               sync.Mutex
	logger           *zap.Logger
	tilt             *TiltTracker
	cooldownUntil    time.Time
	lastBookUpdateTs time.Time
}

// New constructs a Guardian.
func New(logger *zap.Logger) *Guardian {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("risk_guardian_initialized")
	return &Guardian{
		logger: logger,
		tilt:   NewTiltTracker(logger),
	}
}

// Assess runs the full cascade and returns a RiskDecision.
func (g *Guardian) Assess(
	candidate *types.TradeCandidate,
	fv types.FeatureVector,
	oad types.OADReport,
	vad types.VADReport,
	stress types.StressIndex,
	account types.AccountState,
	policy types.Policy,
) types.RiskDecision {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := fv.Ts
	facts := map[string]any{}

	deny := func(reason types.ReasonCode) types.RiskDecision {
		g.logger.Warn("risk_denied", zap.String("reason", string(reason)), zap.Time("ts", ts))
		return types.RiskDecision{
			Ts:             ts,
			Action:         types.ActionDeny,
			SizeUSD:        decimal.Zero,
			MaxSlippageBps: 0,
			Reasons:        []types.ReasonCode{reason},
			Facts:          facts,
		}
	}

	if candidate == nil {
		return deny(types.ReasonNoSignal)
	}

	if g.lastBookUpdateTs.IsZero() {
		g.lastBookUpdateTs = ts
	}

	staleSec := ts.Sub(g.lastBookUpdateTs).Seconds()
	if staleSec > dataStaleThresholdSec {
		facts["stale_sec"] = staleSec
		return deny(types.ReasonDataStale)
	}

	if fv.Spread <= 0 {
		facts["spread"] = fv.Spread
		return deny(types.ReasonDataInconsistent)
	}

	dailyPnLPct := g.tilt.DailyPnLPct(mustFloat(account.Balance))
	facts["daily_pnl_pct"] = dailyPnLPct
	facts["max_daily_loss_pct"] = policy.MaxDailyLossPct
	if dailyPnLPct < -policy.MaxDailyLossPct {
		return deny(types.ReasonDailyLossExceeded)
	}

	if !g.cooldownUntil.IsZero() && ts.Before(g.cooldownUntil) {
		facts["cooldown_remaining_sec"] = g.cooldownUntil.Sub(ts).Seconds()
		return deny(types.ReasonCooldownActive)
	}

	positionNotional := mustFloat(account.PositionNotional)
	facts["position_notional"] = positionNotional
	facts["max_position_notional"] = policy.MaxPositionNotional
	if positionNotional >= policy.MaxPositionNotional {
		return deny(types.ReasonPositionLimit)
	}

	impactSide := fv.ImpactBuyBps
	if candidate.Side == types.CandidateShort {
		impactSide = fv.ImpactSellBps
	}
	toxic := vad.Triggers["toxic"]

	facts["impact_bps"] = impactSide
	facts["toxic"] = toxic
	facts["hard_cap_bps"] = policy.ImpactHardCapBps
	facts["entry_cap_bps"] = policy.ImpactEntryCapBps
	facts["toxic_danger"] = policy.VADToxicDanger

	if impactSide > policy.ImpactHardCapBps {
		return deny(types.ReasonImpactHardCap)
	}
	if toxic >= policy.VADToxicDanger {
		return deny(types.ReasonToxicDanger)
	}

	if stress.Level == types.LevelDanger {
		return deny(types.ReasonMarketStressDanger)
	}

	tradesLastHour := g.tilt.TradesLastHour(ts)
	facts["trades_last_hour"] = tradesLastHour
	facts["max_trades_per_hour"] = policy.MaxTradesPerHour
	if tradesLastHour >= policy.MaxTradesPerHour {
		return deny(types.ReasonTradeFrequency)
	}

	baseSize := 1000.0
	if remaining := policy.MaxPositionNotional - positionNotional; remaining < baseSize {
		baseSize = remaining
	}

	reasons := []types.ReasonCode{}
	multiplier := 1.0

	if impactSide > policy.ImpactEntryCapBps {
		multiplier *= 0.5
		reasons = append(reasons, types.ReasonImpactEntryCap)
	}
	if toxic >= policy.VADToxicWarn {
		multiplier *= 0.7
		reasons = append(reasons, types.ReasonToxicWarn)
		facts["toxic_warn"] = policy.VADToxicWarn
	}
	if stress.Level == types.LevelWarn {
		multiplier *= 0.5
	}

	finalSize := baseSize * multiplier

	action := types.ActionAllow
	if multiplier < 1.0 {
		action = types.ActionAllowWithReductions
		facts["original_size"] = baseSize
		facts["reduced_size"] = finalSize
		reasons = append(reasons, types.ReasonPositionSizeReduced)
	}

	maxSlippageBps := impactSide * 1.5
	if maxSlippageBps > 15 {
		maxSlippageBps = 15
	}

	return types.RiskDecision{
		Ts:             ts,
		Action:         action,
		SizeUSD:        decimal.NewFromFloat(finalSize),
		MaxSlippageBps: maxSlippageBps,
		Reasons:        reasons,
		Facts:          facts,
	}
}

// TriggerCooldown suspends new entries for duration from now.
func (g *Guardian) TriggerCooldown(now time.Time, duration time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cooldownUntil = now.Add(duration)
	g.logger.Warn("cooldown_triggered", zap.Duration("duration", duration))
}

// UpdateBookTimestamp records the most recent orderbook update time, used
// by the data-staleness rule.
func (g *Guardian) UpdateBookTimestamp(ts time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastBookUpdateTs = ts
}

// RecordTrade forwards a trade's timestamp and PnL to the TiltTracker.
func (g *Guardian) RecordTrade(ts time.Time, pnl float64) {
	g.tilt.RecordTrade(ts, pnl)
}

// Tilt exposes the underlying TiltTracker for inspection (ledger, metrics).
func (g *Guardian) Tilt() *TiltTracker {
	return g.tilt
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
