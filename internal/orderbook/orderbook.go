// Package orderbook maintains the level-2 order book for one venue/symbol:
// best bid/ask, deep levels, sequence continuity, and impact walking.
package orderbook

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/kledx/toxictide/pkg/types"
	"github.com/shopspring/decimal"
)

// ErrSequenceGap is returned by ApplyDelta when seq != stored_seq+1.
var ErrSequenceGap = errors.New("orderbook: sequence gap")

// ErrOrderbookInconsistent is returned when a snapshot or delta would leave
// best_ask <= best_bid with both sides non-empty.
var ErrOrderbookInconsistent = errors.New("orderbook: best ask <= best bid")

// OrderBook maintains two price-keyed maps (bid side, ask side) guarded by a
// single coarse mutex so an external ingestion goroutine can push snapshots
// and deltas while the pipeline reads a consistent view at tick start.
type OrderBook struct {
	mu sync.RWMutex

	bids map[string]decimal.Decimal // price.String() -> size
	asks map[string]decimal.Decimal

	seq        int64
	lastUpdate time.Time
}

// New returns an empty, consistent OrderBook.
func New() *OrderBook {
	return &OrderBook{
		bids: make(map[string]decimal.Decimal),
		asks: make(map[string]decimal.Decimal),
	}
}

// ApplySnapshot replaces both sides atomically. On failure the book is left
// unchanged.
func (b *OrderBook) ApplySnapshot(bids, asks []types.OrderBookLevel, seq int64, ts time.Time) error {
	newBids := make(map[string]decimal.Decimal, len(bids))
	for _, l := range bids {
		newBids[l.Price.String()] = l.Size
	}
	newAsks := make(map[string]decimal.Decimal, len(asks))
	for _, l := range asks {
		newAsks[l.Price.String()] = l.Size
	}

	if err := checkConsistent(newBids, newAsks); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = newBids
	b.asks = newAsks
	b.seq = seq
	b.lastUpdate = ts
	return nil
}

// ApplyDelta applies a batch of changes all-or-nothing: the sequence check
// and the post-application consistency check both run against a staged copy
// of the book; the live book is only swapped in when both pass, so a failed
// application leaves the stored state byte-for-byte unchanged.
func (b *OrderBook) ApplyDelta(changes []types.BookChange, seq int64, ts time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.seq+1 {
		return ErrSequenceGap
	}

	stagedBids := cloneLevels(b.bids)
	stagedAsks := cloneLevels(b.asks)

	for _, c := range changes {
		side := stagedBids
		if c.Side == types.BookSideAsk {
			side = stagedAsks
		}
		key := c.Price.String()
		if c.Size.IsZero() {
			delete(side, key)
		} else {
			side[key] = c.Size
		}
	}

	if err := checkConsistent(stagedBids, stagedAsks); err != nil {
		return err
	}

	b.bids = stagedBids
	b.asks = stagedAsks
	b.seq = seq
	b.lastUpdate = ts
	return nil
}

func cloneLevels(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// checkConsistent verifies best_ask > best_bid whenever both sides are
// non-empty; an empty book (either side) is always consistent.
func checkConsistent(bids, asks map[string]decimal.Decimal) error {
	if len(bids) == 0 || len(asks) == 0 {
		return nil
	}
	bb := bestOf(bids, true)
	ba := bestOf(asks, false)
	if !ba.GreaterThan(bb) {
		return ErrOrderbookInconsistent
	}
	return nil
}

func bestOf(levels map[string]decimal.Decimal, highest bool) decimal.Decimal {
	var best decimal.Decimal
	first := true
	for k := range levels {
		p, err := decimal.NewFromString(k)
		if err != nil {
			continue
		}
		if first {
			best = p
			first = false
			continue
		}
		if highest && p.GreaterThan(best) {
			best = p
		}
		if !highest && p.LessThan(best) {
			best = p
		}
	}
	return best
}

func sortedLevels(levels map[string]decimal.Decimal, descending bool) []types.OrderBookLevel {
	out := make([]types.OrderBookLevel, 0, len(levels))
	for k, sz := range levels {
		p, err := decimal.NewFromString(k)
		if err != nil {
			continue
		}
		out = append(out, types.OrderBookLevel{Price: p, Size: sz})
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}

// State returns a read-only snapshot: bids price-descending, asks
// price-ascending.
func (b *OrderBook) State() types.OrderBookState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return types.OrderBookState{
		Timestamp: b.lastUpdate,
		Bids:      sortedLevels(b.bids, true),
		Asks:      sortedLevels(b.asks, false),
		Sequence:  b.seq,
	}
}

// BestBid returns the highest bid price, or zero if the bid side is empty.
func (b *OrderBook) BestBid() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 {
		return decimal.Zero
	}
	return bestOf(b.bids, true)
}

// BestAsk returns the lowest ask price, or zero if the ask side is empty.
func (b *OrderBook) BestAsk() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.asks) == 0 {
		return decimal.Zero
	}
	return bestOf(b.asks, false)
}

// Mid returns (best_bid+best_ask)/2, or zero when either side is empty.
func (b *OrderBook) Mid() decimal.Decimal {
	bb, ba := b.BestBid(), b.BestAsk()
	if bb.IsZero() || ba.IsZero() {
		return decimal.Zero
	}
	return bb.Add(ba).Div(decimal.NewFromInt(2))
}

// Spread returns best_ask-best_bid, or zero when either side is empty.
func (b *OrderBook) Spread() decimal.Decimal {
	bb, ba := b.BestBid(), b.BestAsk()
	if bb.IsZero() || ba.IsZero() {
		return decimal.Zero
	}
	return ba.Sub(bb)
}

// SpreadBps returns the spread in basis points relative to mid.
func (b *OrderBook) SpreadBps() float64 {
	mid := b.Mid()
	if mid.IsZero() {
		return 0
	}
	spread := b.Spread()
	bps, _ := spread.Div(mid).Mul(decimal.NewFromInt(10000)).Float64()
	return bps
}

// TopN returns the first n levels on the requested side.
func (b *OrderBook) TopN(side types.BookSide, n int) []types.OrderBookLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var levels []types.OrderBookLevel
	if side == types.BookSideBid {
		levels = sortedLevels(b.bids, true)
	} else {
		levels = sortedLevels(b.asks, false)
	}
	if n < len(levels) {
		levels = levels[:n]
	}
	return levels
}

// DepthUSD sums price*size across the top n levels of the requested side.
func (b *OrderBook) DepthUSD(side types.BookSide, n int) decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.TopN(side, n) {
		total = total.Add(l.Price.Mul(l.Size))
	}
	return total
}

// DepthToPrice walks levels on the requested side until targetUSD of
// notional is consumed, returning the quantity-weighted average fill price
// and any unfilled USD remainder. On an empty side it returns (0, targetUSD).
func DepthToPrice(levels []types.OrderBookLevel, targetUSD decimal.Decimal) (avgPrice, remainingUSD decimal.Decimal) {
	if len(levels) == 0 {
		return decimal.Zero, targetUSD
	}
	remaining := targetUSD
	totalCost := decimal.Zero
	totalQty := decimal.Zero
	for _, l := range levels {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		if l.Price.LessThanOrEqual(decimal.Zero) {
			continue
		}
		levelUSD := l.Price.Mul(l.Size)
		consumed := decimal.Min(remaining, levelUSD)
		totalCost = totalCost.Add(consumed)
		totalQty = totalQty.Add(consumed.Div(l.Price))
		remaining = remaining.Sub(consumed)
	}
	if totalQty.IsZero() {
		return decimal.Zero, remaining
	}
	return totalCost.Div(totalQty), remaining
}

// DepthToPrice walks this book's side directly.
func (b *OrderBook) DepthToPrice(side types.BookSide, targetUSD decimal.Decimal) (avgPrice, remainingUSD decimal.Decimal) {
	levels := b.TopN(side, 1<<30)
	return DepthToPrice(levels, targetUSD)
}

// LastUpdate returns the timestamp of the most recent successful snapshot or
// delta application.
func (b *OrderBook) LastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdate
}

// Sequence returns the currently stored sequence number.
func (b *OrderBook) Sequence() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}
