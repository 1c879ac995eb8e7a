package features

import (
	"time"

	"github.com/kledx/toxictide/internal/orderbook"
	"github.com/kledx/toxictide/internal/tape"
	"github.com/kledx/toxictide/pkg/types"
	"go.uber.org/zap"
)

const epsilon = 1e-9
const topK = 20

// Config configures the FeatureEngine.
type Config struct {
	ImpactSizeQuoteUSD float64
}

// DefaultConfig returns the documented default (impact_size_quote_usd=1000).
func DefaultConfig() Config {
	return Config{ImpactSizeQuoteUSD: 1000}
}

// Engine produces a FeatureVector from a book and tape snapshot at a given
// timestamp. It tracks invocation-rate and depth-churn state across calls.
type Engine struct {
	logger *zap.Logger
	config Config

	lastDepthBid float64
	lastDepthAsk float64
	msgCount     int
	lastMsgTs    time.Time
	constructed  bool
}

// NewEngine constructs a FeatureEngine.
func NewEngine(logger *zap.Logger, config Config) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("feature_engine_initialized", zap.Float64("impact_size_usd", config.ImpactSizeQuoteUSD))
	return &Engine{logger: logger, config: config}
}

// Compute produces the FeatureVector for the given book and tape as of ts.
func (e *Engine) Compute(book *orderbook.OrderBook, tp *tape.TradeTape, ts time.Time) types.FeatureVector {
	state := book.State()
	if len(state.Bids) == 0 || len(state.Asks) == 0 {
		e.logger.Warn("empty_orderbook", zap.Time("ts", ts))
		return e.emptyFeatures(ts)
	}

	midD := book.Mid()
	mid, _ := midD.Float64()
	spreadD := book.Spread()
	spread, _ := spreadD.Float64()
	spreadBps := book.SpreadBps()

	topBid := state.Bids[0]
	topAsk := state.Asks[0]
	topBidSz, _ := topBid.Size.Float64()
	topAskSz, _ := topAsk.Size.Float64()

	k := topK
	if len(state.Bids) < k {
		k = len(state.Bids)
	}
	if len(state.Asks) < k {
		k = len(state.Asks)
	}
	bidsK := state.Bids[:k]
	asksK := state.Asks[:k]

	depthBidK := sumUSD(bidsK)
	depthAskK := sumUSD(asksK)

	imbK := (depthBidK - depthAskK) / (depthBidK + depthAskK + epsilon)

	topBidPrice, _ := topBid.Price.Float64()
	topAskPrice, _ := topAsk.Price.Float64()
	micro := (topAskPrice*topBidSz + topBidPrice*topAskSz) / (topBidSz + topAskSz + epsilon)
	microMinusMid := micro - mid

	impactBuyBps := EstimateImpactBps(asksK, SideBuy, e.config.ImpactSizeQuoteUSD, mid)
	impactSellBps := EstimateImpactBps(bidsK, SideSell, e.config.ImpactSizeQuoteUSD, mid)

	if !e.constructed {
		e.lastMsgTs = ts
		e.constructed = true
	}
	e.msgCount++
	elapsed := ts.Sub(e.lastMsgTs).Seconds()
	msgRate := 0.0
	if elapsed > 0 {
		msgRate = float64(e.msgCount) / elapsed
	}

	churn := absF(depthBidK-e.lastDepthBid) + absF(depthAskK-e.lastDepthAsk)
	e.lastDepthBid = depthBidK
	e.lastDepthAsk = depthAskK

	agg := tp.Aggregate(60, ts)
	toxic := absF(agg.SignedImbalance)
	if toxic > 1 {
		toxic = 1
	}

	return types.FeatureVector{
		Ts:            ts,
		Mid:           mid,
		Spread:        spread,
		SpreadBps:     spreadBps,
		TopBidSz:      topBidSz,
		TopAskSz:      topAskSz,
		DepthBidK:     depthBidK,
		DepthAskK:     depthAskK,
		ImbK:          imbK,
		MicroMinusMid: microMinusMid,
		ImpactBuyBps:  impactBuyBps,
		ImpactSellBps: impactSellBps,
		MsgRate:       msgRate,
		Churn:         churn,
		Vol:           agg.Vol,
		Trades:        agg.Trades,
		AvgTrade:      agg.AvgTrade,
		MaxTrade:      agg.MaxTrade,
		SignedImb:     agg.SignedImbalance,
		Toxic:         toxic,
	}
}

func (e *Engine) emptyFeatures(ts time.Time) types.FeatureVector {
	return types.FeatureVector{
		Ts:            ts,
		ImpactBuyBps:  types.UnfillableImpactBps,
		ImpactSellBps: types.UnfillableImpactBps,
	}
}

// Reset clears invocation-rate and churn tracking state.
func (e *Engine) Reset(now time.Time) {
	e.lastDepthBid = 0
	e.lastDepthAsk = 0
	e.msgCount = 0
	e.lastMsgTs = now
	e.logger.Info("feature_engine_reset")
}

func sumUSD(levels []types.OrderBookLevel) float64 {
	var total float64
	for _, l := range levels {
		p, _ := l.Price.Float64()
		s, _ := l.Size.Float64()
		total += p * s
	}
	return total
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
