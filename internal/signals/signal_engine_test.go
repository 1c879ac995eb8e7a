package signals

import (
	"testing"
	"time"

	"github.com/kledx/toxictide/pkg/types"
)

func defaultPolicy() types.Policy {
	return types.DefaultPolicy()
}

func calmRangeRegime() types.RegimeState {
	return types.RegimeState{PriceRegime: types.PriceRegimeRange, FlowRegime: types.FlowRegimeCalm}
}

func activeTrendUpRegime() types.RegimeState {
	return types.RegimeState{PriceRegime: types.PriceRegimeTrendUp, FlowRegime: types.FlowRegimeActive}
}

func TestNoSignalOnToxicFlowRegime(t *testing.T) {
	e := New(nil)
	now := time.Now()
	for i := 0; i < 10; i++ {
		e.Generate(types.FeatureVector{Ts: now.Add(time.Duration(i) * time.Second), Mid: 2000}, types.RegimeState{FlowRegime: types.FlowRegimeToxic}, defaultPolicy())
	}
	c := e.Generate(types.FeatureVector{Ts: now, Mid: 2000}, types.RegimeState{FlowRegime: types.FlowRegimeToxic}, defaultPolicy())
	if c != nil {
		t.Fatalf("expected nil candidate on TOXIC flow regime, got %+v", c)
	}
}

func TestNoSignalWhenNoAllowedStrategies(t *testing.T) {
	e := New(nil)
	now := time.Now()
	policy := defaultPolicy()
	policy.AllowedStrategies = nil
	for i := 0; i < 10; i++ {
		e.Generate(types.FeatureVector{Ts: now.Add(time.Duration(i) * time.Second), Mid: 2000}, calmRangeRegime(), policy)
	}
	c := e.Generate(types.FeatureVector{Ts: now, Mid: 2000}, calmRangeRegime(), policy)
	if c != nil {
		t.Fatalf("expected nil candidate with no allowed strategies, got %+v", c)
	}
}

func TestNoSignalWithInsufficientHistory(t *testing.T) {
	e := New(nil)
	now := time.Now()
	c := e.Generate(types.FeatureVector{Ts: now, Mid: 2000}, calmRangeRegime(), defaultPolicy())
	if c != nil {
		t.Fatalf("expected nil candidate with <5 history points, got %+v", c)
	}
}

func TestTrendBreakoutLongFires(t *testing.T) {
	e := New(nil)
	now := time.Now()
	mid := 2000.0
	var c *types.TradeCandidate
	for i := 0; i < 25; i++ {
		c = e.Generate(types.FeatureVector{Ts: now.Add(time.Duration(i) * time.Second), Mid: mid}, activeTrendUpRegime(), defaultPolicy())
		// Each step must clear 1.001x the prior high (~2.1 near 2100).
		mid += 5.0
	}
	if c == nil {
		t.Fatalf("expected trend_breakout long candidate, got nil")
	}
	if c.Side != types.CandidateLong {
		t.Fatalf("expected long side, got %s", c.Side)
	}
	if c.Strategy != types.StrategyTrendBreakout {
		t.Fatalf("expected trend_breakout strategy, got %s", c.Strategy)
	}
}

func TestRangeMeanRevertLongFiresOnDip(t *testing.T) {
	e := New(nil)
	now := time.Now()
	for i := 0; i < 30; i++ {
		e.Generate(types.FeatureVector{Ts: now.Add(time.Duration(i) * time.Second), Mid: 2000}, calmRangeRegime(), defaultPolicy())
	}
	c := e.Generate(types.FeatureVector{Ts: now.Add(31 * time.Second), Mid: 1900}, calmRangeRegime(), defaultPolicy())
	if c == nil {
		t.Fatalf("expected range_mean_revert long candidate on dip, got nil")
	}
	if c.Side != types.CandidateLong {
		t.Fatalf("expected long side, got %s", c.Side)
	}
	if c.Strategy != types.StrategyRangeMeanRevert {
		t.Fatalf("expected range_mean_revert strategy, got %s", c.Strategy)
	}
}

func TestDisallowedStrategyNeverFires(t *testing.T) {
	e := New(nil)
	now := time.Now()
	policy := defaultPolicy()
	policy.AllowedStrategies = []types.Strategy{types.StrategyRangeMeanRevert}
	mid := 2000.0
	var c *types.TradeCandidate
	for i := 0; i < 25; i++ {
		c = e.Generate(types.FeatureVector{Ts: now.Add(time.Duration(i) * time.Second), Mid: mid}, activeTrendUpRegime(), policy)
		mid += 1.0
	}
	if c != nil {
		t.Fatalf("expected nil candidate when trend_breakout is disallowed, got %+v", c)
	}
}
