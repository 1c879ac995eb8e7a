// Package tape maintains a sliding time window of executed trades and their
// aggregate statistics.
package tape

import (
	"sync"
	"time"

	"github.com/kledx/toxictide/pkg/types"
)

const epsilon = 1e-9

// Aggregation is the zero-valued-by-default summary returned by Aggregate
// over an empty or all-evicted window.
type Aggregation struct {
	Vol             float64
	Trades          int
	BuyVol          float64
	SellVol         float64
	AvgTrade        float64
	MinTrade        float64
	MaxTrade        float64
	VWAP            float64
	SignedImbalance float64
}

// TradeTape is a sliding window of trades of configured span (default 300s),
// guarded by a single coarse mutex so an external ingestion goroutine can
// push trades concurrently with pipeline reads. All eviction is driven by
// an explicit `now` passed by the caller — never a wall-clock read — so a
// tick's pipeline stays deterministic and replayable.
type TradeTape struct {
	mu         sync.Mutex
	spanSec    float64
	trades     []types.Trade
	totalCount int64 // never reset by Clear
}

// New returns an empty tape with the given span in seconds.
func New(spanSec float64) *TradeTape {
	if spanSec <= 0 {
		spanSec = 300
	}
	return &TradeTape{spanSec: spanSec}
}

// Add appends one trade and evicts anything now older than the span.
func (t *TradeTape) Add(trade types.Trade, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trades = append(t.trades, trade)
	t.totalCount++
	t.cleanup(now)
}

// AddBatch appends several trades (which may be slightly out of order) and
// evicts anything now older than the span.
func (t *TradeTape) AddBatch(trades []types.Trade, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trades = append(t.trades, trades...)
	t.totalCount += int64(len(trades))
	t.cleanup(now)
}

// cleanup evicts trades older than spanSec relative to now. Caller must hold
// the lock.
func (t *TradeTape) cleanup(now time.Time) {
	cutoff := now.Add(time.Duration(-t.spanSec * float64(time.Second)))
	i := 0
	for i < len(t.trades) && t.trades[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.trades = t.trades[i:]
	}
}

// Recent returns the trades within the last sec seconds of now.
func (t *TradeTape) Recent(sec float64, now time.Time) []types.Trade {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanup(now)
	cutoff := now.Add(time.Duration(-sec * float64(time.Second)))
	out := make([]types.Trade, 0, len(t.trades))
	for _, tr := range t.trades {
		if !tr.Timestamp.Before(cutoff) {
			out = append(out, tr)
		}
	}
	return out
}

// Aggregate computes the summary statistics over the last sec seconds.
func (t *TradeTape) Aggregate(sec float64, now time.Time) Aggregation {
	recent := t.Recent(sec, now)
	if len(recent) == 0 {
		return Aggregation{}
	}

	var vol, buyVol, sellVol, notional, maxTrade float64
	minTrade := -1.0

	for _, tr := range recent {
		size, _ := tr.Size.Float64()
		price, _ := tr.Price.Float64()
		vol += size
		notional += size * price

		switch tr.Side {
		case types.SideBuy:
			buyVol += size
		case types.SideSell:
			sellVol += size
		default:
			buyVol += size / 2
			sellVol += size / 2
		}

		if size > maxTrade {
			maxTrade = size
		}
		if minTrade < 0 || size < minTrade {
			minTrade = size
		}
	}

	n := float64(len(recent))
	avgTrade := vol / n
	vwap := 0.0
	if vol > 0 {
		vwap = notional / vol
	}
	signedImb := (buyVol - sellVol) / (buyVol + sellVol + epsilon)

	return Aggregation{
		Vol:             vol,
		Trades:          len(recent),
		BuyVol:          buyVol,
		SellVol:         sellVol,
		AvgTrade:        avgTrade,
		MinTrade:        minTrade,
		MaxTrade:        maxTrade,
		VWAP:            vwap,
		SignedImbalance: signedImb,
	}
}

// Len returns the number of trades currently retained (after evicting
// relative to now).
func (t *TradeTape) Len(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanup(now)
	return len(t.trades)
}

// IsEmpty reports whether the tape holds no trades within its span as of
// now.
func (t *TradeTape) IsEmpty(now time.Time) bool {
	return t.Len(now) == 0
}

// TotalCount returns the all-time count of trades ever added, unaffected by
// eviction or Clear.
func (t *TradeTape) TotalCount() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalCount
}

// Clear empties the sliding window. TotalCount is not reset.
func (t *TradeTape) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trades = nil
}
