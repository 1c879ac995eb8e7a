package features

import (
	"github.com/kledx/toxictide/internal/orderbook"
	"github.com/kledx/toxictide/pkg/types"
	"github.com/shopspring/decimal"
)

// Side distinguishes a buy walk (consuming asks) from a sell walk
// (consuming bids).
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// EstimateImpactBps walks levels (asks for a buy, bids for a sell)
// consuming qtyUSD of notional and returns the price displacement in bps
// relative to mid. Returns types.UnfillableImpactBps when levels cannot
// fully absorb qtyUSD. Always non-negative.
func EstimateImpactBps(levels []types.OrderBookLevel, side Side, qtyUSD, mid float64) float64 {
	if qtyUSD <= 0 {
		return 0
	}
	if len(levels) == 0 {
		return types.UnfillableImpactBps
	}

	avg, remaining := orderbook.DepthToPrice(levels, decimal.NewFromFloat(qtyUSD))
	if remaining.GreaterThan(decimal.Zero) {
		return types.UnfillableImpactBps
	}
	if mid <= 0 {
		return 0
	}

	avgPrice, _ := avg.Float64()
	var impactBps float64
	if side == SideBuy {
		impactBps = ((avgPrice - mid) / mid) * 10000
	} else {
		impactBps = ((mid - avgPrice) / mid) * 10000
	}
	if impactBps < 0 {
		return 0
	}
	return impactBps
}

// EstimateMarketDepthUSD binary-searches the maximum USD order size fillable
// within maxImpactBps. Not part of the FeatureVector; exposed as a pure
// helper for callers that need the inverse query.
func EstimateMarketDepthUSD(levels []types.OrderBookLevel, maxImpactBps, mid float64, side Side) float64 {
	if maxImpactBps <= 0 || len(levels) == 0 {
		return 0
	}

	var total float64
	for _, l := range levels {
		p, _ := l.Price.Float64()
		s, _ := l.Size.Float64()
		total += p * s
	}

	low, high := 0.0, total
	const tolerance = 1.0
	for high-low > tolerance {
		qty := (low + high) / 2
		impact := EstimateImpactBps(levels, side, qty, mid)
		if impact <= maxImpactBps {
			low = qty
		} else {
			high = qty
		}
	}
	return low
}

// EstimateSlippageBps computes realized slippage of a fill versus a
// reference price (typically the decision-time mid). Positive values are
// unfavorable.
func EstimateSlippageBps(fillPrice, referencePrice float64, side Side) float64 {
	if referencePrice == 0 {
		return 0
	}
	if side == SideBuy {
		return ((fillPrice - referencePrice) / referencePrice) * 10000
	}
	return ((referencePrice - fillPrice) / referencePrice) * 10000
}
