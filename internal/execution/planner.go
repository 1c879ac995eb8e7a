// Package execution turns a RiskDecision and TradeCandidate into a concrete
// ExecutionPlan, and defines the contracts the core expects from external
// market-data and order-placement collaborators.
package execution

import (
	"context"

	"github.com/kledx/toxictide/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const numSlices = 5
const sliceDelaySec = 10

// Planner selects an execution mode (maker/taker/slicing/reduce_only) from
// the side-matched impact and the VAD toxicity trigger.
type Planner struct {
	logger             *zap.Logger
	slicingThresholdBps float64
}

// New constructs a Planner.
func New(logger *zap.Logger, slicingThresholdBps float64) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("execution_planner_initialized", zap.Float64("slicing_threshold_bps", slicingThresholdBps))
	return &Planner{logger: logger, slicingThresholdBps: slicingThresholdBps}
}

// Plan produces the ExecutionPlan for this tick.
func (p *Planner) Plan(risk types.RiskDecision, candidate *types.TradeCandidate, fv types.FeatureVector, vad types.VADReport) types.ExecutionPlan {
	ts := fv.Ts

	if risk.Action == types.ActionDeny {
		return types.ExecutionPlan{Ts: ts, Orders: nil, Mode: types.ModeReduceOnly, Reasons: risk.Reasons}
	}

	if candidate == nil {
		return types.ExecutionPlan{Ts: ts, Orders: nil, Mode: types.ModeReduceOnly, Reasons: []types.ReasonCode{types.ReasonNoSignal}}
	}

	impactBps := fv.ImpactBuyBps
	if candidate.Side == types.CandidateShort {
		impactBps = fv.ImpactSellBps
	}
	toxic := vad.Triggers["toxic"]

	if impactBps >= p.slicingThresholdBps {
		sliceSize := risk.SizeUSD.Div(decimal.NewFromInt(numSlices))
		orders := make([]types.PlannedOrder, 0, numSlices)
		for i := 0; i < numSlices; i++ {
			orders = append(orders, types.PlannedOrder{
				Type:         types.OrderTypeLimit,
				Side:         candidate.Side,
				Price:        candidate.EntryPrice,
				SizeUSD:      sliceSize,
				TimeDelaySec: i * sliceDelaySec,
			})
		}
		p.logger.Info("execution_plan_slicing", zap.Int("num_slices", numSlices), zap.Float64("impact_bps", impactBps))
		return types.ExecutionPlan{Ts: ts, Orders: orders, Mode: types.ModeSlicing, Reasons: risk.Reasons}
	}

	if toxic >= 0.6 {
		orders := []types.PlannedOrder{{Type: types.OrderTypeMarket, Side: candidate.Side, SizeUSD: risk.SizeUSD}}
		p.logger.Info("execution_plan_taker", zap.Float64("toxic", toxic))
		return types.ExecutionPlan{Ts: ts, Orders: orders, Mode: types.ModeTaker, Reasons: risk.Reasons}
	}

	orders := []types.PlannedOrder{{Type: types.OrderTypeLimit, Side: candidate.Side, Price: candidate.EntryPrice, SizeUSD: risk.SizeUSD}}
	p.logger.Info("execution_plan_maker", zap.String("size_usd", risk.SizeUSD.String()))
	return types.ExecutionPlan{Ts: ts, Orders: orders, Mode: types.ModeMaker, Reasons: risk.Reasons}
}

// Collector is the market-ingress contract consumed once per tick.
type Collector interface {
	GetOrderbookSnapshot(ctx context.Context) (types.OrderBookState, error)
	GetRecentTrades(ctx context.Context, maxCount int) ([]types.Trade, error)
}

// Adapter is the execution-egress contract consumed once per tick. Errors
// surface to the Orchestrator as logged warnings and never break cadence.
type Adapter interface {
	Execute(ctx context.Context, plan types.ExecutionPlan) ([]types.Fill, error)
	GetAccountState(ctx context.Context, currentPrice decimal.Decimal) (types.AccountState, error)
	CloseAllPositions(ctx context.Context) ([]types.Fill, error)
}
