package execution

import (
	"testing"
	"time"

	"github.com/kledx/toxictide/pkg/types"
	"github.com/shopspring/decimal"
)

func TestPlanDenyProducesReduceOnly(t *testing.T) {
	p := New(nil, 10)
	risk := types.RiskDecision{Action: types.ActionDeny, Reasons: []types.ReasonCode{types.ReasonDailyLossExceeded}}
	plan := p.Plan(risk, nil, types.FeatureVector{Ts: time.Now()}, types.VADReport{})
	if plan.Mode != types.ModeReduceOnly || len(plan.Orders) != 0 {
		t.Fatalf("expected empty reduce_only plan, got %+v", plan)
	}
	if plan.Reasons[0] != types.ReasonDailyLossExceeded {
		t.Fatalf("expected DENY reasons propagated, got %+v", plan.Reasons)
	}
}

func TestPlanNoCandidateProducesNoSignal(t *testing.T) {
	p := New(nil, 10)
	risk := types.RiskDecision{Action: types.ActionAllow}
	plan := p.Plan(risk, nil, types.FeatureVector{Ts: time.Now()}, types.VADReport{})
	if plan.Mode != types.ModeReduceOnly || plan.Reasons[0] != types.ReasonNoSignal {
		t.Fatalf("expected reduce_only/NO_SIGNAL, got %+v", plan)
	}
}

func TestPlanSlicingOnHighImpact(t *testing.T) {
	p := New(nil, 10)
	risk := types.RiskDecision{Action: types.ActionAllow, SizeUSD: decimal.NewFromInt(1000)}
	candidate := &types.TradeCandidate{Side: types.CandidateLong, EntryPrice: decimal.NewFromInt(2021)}
	fv := types.FeatureVector{Ts: time.Now(), ImpactBuyBps: 12}
	plan := p.Plan(risk, candidate, fv, types.VADReport{})
	if plan.Mode != types.ModeSlicing || len(plan.Orders) != 5 {
		t.Fatalf("expected 5-order slicing plan, got %+v", plan)
	}
	for i, o := range plan.Orders {
		if o.TimeDelaySec != i*10 {
			t.Fatalf("expected order %d delay %d, got %d", i, i*10, o.TimeDelaySec)
		}
		if !o.SizeUSD.Equal(decimal.NewFromInt(200)) {
			t.Fatalf("expected slice size 200, got %s", o.SizeUSD)
		}
	}
}

func TestPlanTakerOnToxic(t *testing.T) {
	p := New(nil, 10)
	risk := types.RiskDecision{Action: types.ActionAllowWithReductions, SizeUSD: decimal.NewFromInt(700)}
	candidate := &types.TradeCandidate{Side: types.CandidateLong, EntryPrice: decimal.NewFromInt(2021)}
	fv := types.FeatureVector{Ts: time.Now(), ImpactBuyBps: 6}
	vad := types.VADReport{Triggers: map[string]float64{"toxic": 0.65}}
	plan := p.Plan(risk, candidate, fv, vad)
	if plan.Mode != types.ModeTaker || len(plan.Orders) != 1 {
		t.Fatalf("expected single taker order, got %+v", plan)
	}
	if plan.Orders[0].Type != types.OrderTypeMarket {
		t.Fatalf("expected market order, got %s", plan.Orders[0].Type)
	}
}

func TestPlanMakerOnNormal(t *testing.T) {
	p := New(nil, 10)
	risk := types.RiskDecision{Action: types.ActionAllow, SizeUSD: decimal.NewFromInt(1000)}
	candidate := &types.TradeCandidate{Side: types.CandidateLong, EntryPrice: decimal.NewFromInt(2021)}
	fv := types.FeatureVector{Ts: time.Now(), ImpactBuyBps: 5}
	plan := p.Plan(risk, candidate, fv, types.VADReport{})
	if plan.Mode != types.ModeMaker || len(plan.Orders) != 1 {
		t.Fatalf("expected single maker order, got %+v", plan)
	}
	if plan.Orders[0].Type != types.OrderTypeLimit {
		t.Fatalf("expected limit order, got %s", plan.Orders[0].Type)
	}
}
