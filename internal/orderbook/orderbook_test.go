package orderbook

import (
	"testing"
	"time"

	"github.com/kledx/toxictide/pkg/types"
	"github.com/shopspring/decimal"
)

func lvl(price, size float64) types.OrderBookLevel {
	return types.OrderBookLevel{Price: decimal.NewFromFloat(price), Size: decimal.NewFromFloat(size)}
}

func TestApplySnapshotConsistent(t *testing.T) {
	b := New()
	err := b.ApplySnapshot(
		[]types.OrderBookLevel{lvl(99, 1), lvl(98, 2)},
		[]types.OrderBookLevel{lvl(100, 1), lvl(101, 2)},
		1, time.Now(),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.BestAsk().GreaterThan(b.BestBid()) {
		t.Fatalf("best ask %s should exceed best bid %s", b.BestAsk(), b.BestBid())
	}
}

func TestApplySnapshotRejectsEqualPrices(t *testing.T) {
	b := New()
	err := b.ApplySnapshot(
		[]types.OrderBookLevel{lvl(100, 1)},
		[]types.OrderBookLevel{lvl(100, 1)},
		1, time.Now(),
	)
	if err != ErrOrderbookInconsistent {
		t.Fatalf("expected ErrOrderbookInconsistent, got %v", err)
	}
}

func TestEmptyBookIsConsistent(t *testing.T) {
	b := New()
	if b.Mid().Sign() != 0 {
		t.Fatalf("expected zero mid on empty book")
	}
	if b.Spread().Sign() != 0 {
		t.Fatalf("expected zero spread on empty book")
	}
}

func TestApplyDeltaSequenceGapLeavesStateUnchanged(t *testing.T) {
	b := New()
	if err := b.ApplySnapshot([]types.OrderBookLevel{lvl(99, 1)}, []types.OrderBookLevel{lvl(100, 1)}, 5, time.Now()); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	before := b.State()

	// seq == current (5) should reject.
	err := b.ApplyDelta([]types.BookChange{{Side: types.BookSideBid, Price: decimal.NewFromInt(99), Size: decimal.NewFromInt(5)}}, 5, time.Now())
	if err != ErrSequenceGap {
		t.Fatalf("expected ErrSequenceGap for seq=current, got %v", err)
	}

	// seq == current+2 should also reject.
	err = b.ApplyDelta([]types.BookChange{{Side: types.BookSideBid, Price: decimal.NewFromInt(99), Size: decimal.NewFromInt(5)}}, 7, time.Now())
	if err != ErrSequenceGap {
		t.Fatalf("expected ErrSequenceGap for seq=current+2, got %v", err)
	}

	after := b.State()
	if after.Sequence != before.Sequence {
		t.Fatalf("sequence changed after rejected delta: %d -> %d", before.Sequence, after.Sequence)
	}
	if len(after.Bids) != len(before.Bids) || len(after.Asks) != len(before.Asks) {
		t.Fatalf("book contents changed after rejected delta")
	}
}

func TestApplyDeltaInconsistentLeavesStateUnchanged(t *testing.T) {
	b := New()
	if err := b.ApplySnapshot([]types.OrderBookLevel{lvl(99, 1)}, []types.OrderBookLevel{lvl(100, 1)}, 1, time.Now()); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	// A delta that pushes the bid above the ask must be rejected and leave
	// the book untouched, even though the sequence number is valid.
	err := b.ApplyDelta([]types.BookChange{{Side: types.BookSideBid, Price: decimal.NewFromInt(200), Size: decimal.NewFromInt(1)}}, 2, time.Now())
	if err != ErrOrderbookInconsistent {
		t.Fatalf("expected ErrOrderbookInconsistent, got %v", err)
	}
	if b.Sequence() != 1 {
		t.Fatalf("sequence should remain 1 after rejected delta, got %d", b.Sequence())
	}
	if b.BestBid().String() != "99" {
		t.Fatalf("bid side mutated despite rejected delta: %s", b.BestBid())
	}
}

func TestApplyDeltaAppliesAndRemovesLevels(t *testing.T) {
	b := New()
	if err := b.ApplySnapshot([]types.OrderBookLevel{lvl(99, 1)}, []types.OrderBookLevel{lvl(100, 1)}, 1, time.Now()); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	err := b.ApplyDelta([]types.BookChange{
		{Side: types.BookSideBid, Price: decimal.NewFromInt(99), Size: decimal.Zero},
		{Side: types.BookSideBid, Price: decimal.NewFromInt(98), Size: decimal.NewFromInt(3)},
	}, 2, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Sequence() != 2 {
		t.Fatalf("expected sequence 2, got %d", b.Sequence())
	}
	if b.BestBid().String() != "98" {
		t.Fatalf("expected best bid 98 after removal+add, got %s", b.BestBid())
	}
}

func TestDepthToPriceEmptySide(t *testing.T) {
	avg, remaining := DepthToPrice(nil, decimal.NewFromInt(1000))
	if !avg.IsZero() {
		t.Fatalf("expected zero avg price on empty side, got %s", avg)
	}
	if !remaining.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected remaining == target on empty side, got %s", remaining)
	}
}

func TestDepthToPriceFullFill(t *testing.T) {
	levels := []types.OrderBookLevel{lvl(100, 5), lvl(101, 10)}
	avg, remaining := DepthToPrice(levels, decimal.NewFromInt(700))
	if !remaining.IsZero() {
		t.Fatalf("expected fully filled, remaining=%s", remaining)
	}
	if avg.LessThan(decimal.NewFromInt(100)) || avg.GreaterThan(decimal.NewFromInt(101)) {
		t.Fatalf("avg price %s out of traversed range", avg)
	}
}

func TestDepthToPriceInsufficientLiquidity(t *testing.T) {
	levels := []types.OrderBookLevel{lvl(100, 1)}
	avg, remaining := DepthToPrice(levels, decimal.NewFromInt(1000))
	if !avg.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected avg price 100 over the traversed level on insufficient liquidity, got %s", avg)
	}
	if remaining.LessThanOrEqual(decimal.Zero) {
		t.Fatalf("expected positive remaining on insufficient liquidity")
	}
}
