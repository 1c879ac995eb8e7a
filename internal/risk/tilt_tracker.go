package risk

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type tradeRecord struct {
	ts  time.Time
	pnl float64
}

// TiltTracker accumulates per-day PnL and a rolling count of trades in the
// last hour, feeding the daily-loss and trade-frequency rules of the
// cascade.
type TiltTracker struct {
	mu            sync.Mutex
	logger        *zap.Logger
	trades        []tradeRecord
	dailyPnL      float64
	lastResetDate string
}

// NewTiltTracker constructs a TiltTracker.
func NewTiltTracker(logger *zap.Logger) *TiltTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("tilt_tracker_initialized")
	return &TiltTracker{logger: logger}
}

// RecordTrade appends a (ts, pnl) pair, resetting the daily accumulator if
// the calendar day (UTC) has changed since the last recorded trade.
func (t *TiltTracker) RecordTrade(ts time.Time, pnl float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	day := ts.UTC().Format("2006-01-02")
	if t.lastResetDate != day {
		t.dailyPnL = 0
		t.lastResetDate = day
		t.logger.Info("daily_pnl_reset", zap.String("date", day))
	}

	t.trades = append(t.trades, tradeRecord{ts: ts, pnl: pnl})
	t.dailyPnL += pnl

	t.logger.Debug("trade_recorded", zap.Time("ts", ts), zap.Float64("pnl", pnl), zap.Float64("daily_pnl", t.dailyPnL))
}

// TradesLastHour counts trades with ts at or after now-3600s (trades
// stamped after now are counted too).
func (t *TiltTracker) TradesLastHour(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-time.Hour)
	count := 0
	for _, tr := range t.trades {
		if !tr.ts.Before(cutoff) {
			count++
		}
	}
	return count
}

// DailyPnLPct returns 100*daily_pnl/balance, or 0 if balance<=0.
func (t *TiltTracker) DailyPnLPct(balance float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if balance <= 0 {
		return 0
	}
	return (t.dailyPnL / balance) * 100
}

// DailyPnL returns the raw accumulated PnL for the current calendar day.
func (t *TiltTracker) DailyPnL() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dailyPnL
}

// TotalTrades returns the lifetime count of recorded trades.
func (t *TiltTracker) TotalTrades() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.trades)
}

// Reset clears all tracked state.
func (t *TiltTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trades = nil
	t.dailyPnL = 0
	t.lastResetDate = ""
	t.logger.Info("tilt_tracker_reset")
}
