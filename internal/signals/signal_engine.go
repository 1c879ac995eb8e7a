// Package signals implements the rule-based strategies that emit trade
// candidates from market features and the current regime.
package signals

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kledx/toxictide/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxHistory = 100

type point struct {
	ts  time.Time
	mid float64
}

// Engine holds its own bounded price history and emits at most one
// TradeCandidate per tick, first-match-wins across the two strategies.
type Engine struct {
	mu      sync.Mutex
	logger  *zap.Logger
	history []point
}

// New constructs a SignalEngine.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("signal_engine_initialized")
	return &Engine{logger: logger}
}

// Generate returns a TradeCandidate for this tick, or nil if no strategy
// fires or a gating condition blocks signal generation.
func (e *Engine) Generate(fv types.FeatureVector, regime types.RegimeState, policy types.Policy) *types.TradeCandidate {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, point{ts: fv.Ts, mid: fv.Mid})
	if len(e.history) > maxHistory {
		e.history = e.history[len(e.history)-maxHistory:]
	}

	if regime.FlowRegime == types.FlowRegimeToxic {
		e.logger.Debug("no_signal_toxic_regime", zap.Time("ts", fv.Ts))
		return nil
	}

	if len(policy.AllowedStrategies) == 0 {
		e.logger.Debug("no_allowed_strategies", zap.Time("ts", fv.Ts))
		return nil
	}

	if len(e.history) < 5 {
		e.logger.Debug("insufficient_price_history", zap.Int("count", len(e.history)))
		return nil
	}

	if policy.AllowsStrategy(types.StrategyTrendBreakout) {
		if c := e.trendBreakout(fv, regime); c != nil {
			return c
		}
	}
	if policy.AllowsStrategy(types.StrategyRangeMeanRevert) {
		if c := e.rangeMeanRevert(fv, regime); c != nil {
			return c
		}
	}
	return nil
}

func (e *Engine) trendBreakout(fv types.FeatureVector, regime types.RegimeState) *types.TradeCandidate {
	if regime.PriceRegime != types.PriceRegimeTrendUp && regime.PriceRegime != types.PriceRegimeTrendDown {
		return nil
	}
	if regime.FlowRegime != types.FlowRegimeActive {
		return nil
	}

	// The range excludes the current mid, which was already appended above.
	window := lastN(e.history[:len(e.history)-1], 20)
	recentHigh, recentLow := maxMid(window), minMid(window)
	mid := fv.Mid

	if mid > recentHigh*1.001 {
		e.logger.Info("signal_trend_breakout_long", zap.Float64("entry", mid), zap.Float64("recent_high", recentHigh))
		return &types.TradeCandidate{
			ID:         uuid.NewString(),
			Ts:         fv.Ts,
			Side:       types.CandidateLong,
			EntryPrice: decimal.NewFromFloat(mid),
			StopPrice:  decimal.NewFromFloat(mid * 0.995),
			TPPrice:    decimal.NewFromFloat(mid * 1.01),
			Confidence: 0.7,
			TTLSec:     300,
			Strategy:   types.StrategyTrendBreakout,
		}
	}

	if mid < recentLow*0.999 {
		e.logger.Info("signal_trend_breakout_short", zap.Float64("entry", mid), zap.Float64("recent_low", recentLow))
		return &types.TradeCandidate{
			ID:         uuid.NewString(),
			Ts:         fv.Ts,
			Side:       types.CandidateShort,
			EntryPrice: decimal.NewFromFloat(mid),
			StopPrice:  decimal.NewFromFloat(mid * 1.005),
			TPPrice:    decimal.NewFromFloat(mid * 0.99),
			Confidence: 0.7,
			TTLSec:     300,
			Strategy:   types.StrategyTrendBreakout,
		}
	}
	return nil
}

func (e *Engine) rangeMeanRevert(fv types.FeatureVector, regime types.RegimeState) *types.TradeCandidate {
	if regime.PriceRegime != types.PriceRegimeRange {
		return nil
	}
	if regime.FlowRegime != types.FlowRegimeCalm {
		return nil
	}

	window := lastN(e.history, 30)
	mean, std := meanStd(window)
	mid := fv.Mid

	if mid < mean-1.5*std {
		e.logger.Info("signal_range_mean_revert_long", zap.Float64("entry", mid), zap.Float64("mean", mean), zap.Float64("std", std))
		return &types.TradeCandidate{
			ID:         uuid.NewString(),
			Ts:         fv.Ts,
			Side:       types.CandidateLong,
			EntryPrice: decimal.NewFromFloat(mid),
			StopPrice:  decimal.NewFromFloat(mid * 0.998),
			TPPrice:    decimal.NewFromFloat(mean),
			Confidence: 0.6,
			TTLSec:     600,
			Strategy:   types.StrategyRangeMeanRevert,
		}
	}

	if mid > mean+1.5*std {
		e.logger.Info("signal_range_mean_revert_short", zap.Float64("entry", mid), zap.Float64("mean", mean), zap.Float64("std", std))
		return &types.TradeCandidate{
			ID:         uuid.NewString(),
			Ts:         fv.Ts,
			Side:       types.CandidateShort,
			EntryPrice: decimal.NewFromFloat(mid),
			StopPrice:  decimal.NewFromFloat(mid * 1.002),
			TPPrice:    decimal.NewFromFloat(mean),
			Confidence: 0.6,
			TTLSec:     600,
			Strategy:   types.StrategyRangeMeanRevert,
		}
	}
	return nil
}

func lastN(pts []point, n int) []point {
	if n > len(pts) {
		n = len(pts)
	}
	return pts[len(pts)-n:]
}

func maxMid(pts []point) float64 {
	m := math.Inf(-1)
	for _, p := range pts {
		if p.mid > m {
			m = p.mid
		}
	}
	return m
}

func minMid(pts []point) float64 {
	m := math.Inf(1)
	for _, p := range pts {
		if p.mid < m {
			m = p.mid
		}
	}
	return m
}

func meanStd(pts []point) (mean, std float64) {
	if len(pts) == 0 {
		return 0, 0
	}
	var sum float64
	for _, p := range pts {
		sum += p.mid
	}
	mean = sum / float64(len(pts))

	var sqSum float64
	for _, p := range pts {
		sqSum += (p.mid - mean) * (p.mid - mean)
	}
	std = math.Sqrt(sqSum / float64(len(pts)))
	return mean, std
}

// Reset clears the price history.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
	e.logger.Info("signal_engine_reset")
}
