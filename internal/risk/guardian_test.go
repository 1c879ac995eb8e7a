package risk

import (
	"testing"
	"time"

	"github.com/kledx/toxictide/pkg/types"
	"github.com/shopspring/decimal"
)

func baseFV(ts time.Time) types.FeatureVector {
	return types.FeatureVector{Ts: ts, Spread: 1.0, ImpactBuyBps: 5, ImpactSellBps: 5}
}

func baseCandidate(ts time.Time) *types.TradeCandidate {
	return &types.TradeCandidate{Ts: ts, Side: types.CandidateLong, Strategy: types.StrategyTrendBreakout}
}

func okStress() types.StressIndex { return types.StressIndex{Level: types.LevelOK} }
func okVADReport() types.VADReport {
	return types.VADReport{Triggers: map[string]float64{"toxic": 0}}
}

func TestNoCandidateDeniesWithNoSignal(t *testing.T) {
	g := New(nil)
	now := time.Now()
	d := g.Assess(nil, baseFV(now), types.OADReport{}, okVADReport(), okStress(), types.AccountState{}, types.DefaultPolicy())
	if d.Action != types.ActionDeny || d.Reasons[0] != types.ReasonNoSignal {
		t.Fatalf("expected DENY/NO_SIGNAL, got %+v", d)
	}
}

func TestDataStaleDenies(t *testing.T) {
	g := New(nil)
	now := time.Now()
	g.UpdateBookTimestamp(now)
	later := now.Add(15 * time.Second)
	d := g.Assess(baseCandidate(later), baseFV(later), types.OADReport{}, okVADReport(), okStress(), types.AccountState{}, types.DefaultPolicy())
	if d.Action != types.ActionDeny || d.Reasons[0] != types.ReasonDataStale {
		t.Fatalf("expected DENY/DATA_STALE, got %+v", d)
	}
}

func TestDataInconsistentDenies(t *testing.T) {
	g := New(nil)
	now := time.Now()
	g.UpdateBookTimestamp(now)
	fv := baseFV(now)
	fv.Spread = 0
	d := g.Assess(baseCandidate(now), fv, types.OADReport{}, okVADReport(), okStress(), types.AccountState{}, types.DefaultPolicy())
	if d.Action != types.ActionDeny || d.Reasons[0] != types.ReasonDataInconsistent {
		t.Fatalf("expected DENY/DATA_INCONSISTENT, got %+v", d)
	}
}

func TestDailyLossExceededDenies(t *testing.T) {
	g := New(nil)
	now := time.Now()
	g.UpdateBookTimestamp(now)
	g.tilt.RecordTrade(now, -120)
	account := types.AccountState{Balance: decimal.NewFromInt(10000)}
	d := g.Assess(baseCandidate(now), baseFV(now), types.OADReport{}, okVADReport(), okStress(), account, types.DefaultPolicy())
	if d.Action != types.ActionDeny || d.Reasons[0] != types.ReasonDailyLossExceeded {
		t.Fatalf("expected DENY/DAILY_LOSS_EXCEEDED, got %+v", d)
	}
	if d.Facts["daily_pnl_pct"].(float64) != -1.2 {
		t.Fatalf("expected daily_pnl_pct=-1.2, got %v", d.Facts["daily_pnl_pct"])
	}
}

func TestCooldownActiveDenies(t *testing.T) {
	g := New(nil)
	now := time.Now()
	g.UpdateBookTimestamp(now)
	g.TriggerCooldown(now, 30*time.Second)
	d := g.Assess(baseCandidate(now.Add(5*time.Second)), baseFV(now.Add(5*time.Second)), types.OADReport{}, okVADReport(), okStress(), types.AccountState{}, types.DefaultPolicy())
	if d.Action != types.ActionDeny || d.Reasons[0] != types.ReasonCooldownActive {
		t.Fatalf("expected DENY/COOLDOWN_ACTIVE, got %+v", d)
	}
}

func TestPositionLimitExceededDenies(t *testing.T) {
	g := New(nil)
	now := time.Now()
	g.UpdateBookTimestamp(now)
	account := types.AccountState{PositionNotional: decimal.NewFromInt(3000)}
	d := g.Assess(baseCandidate(now), baseFV(now), types.OADReport{}, okVADReport(), okStress(), account, types.DefaultPolicy())
	if d.Action != types.ActionDeny || d.Reasons[0] != types.ReasonPositionLimit {
		t.Fatalf("expected DENY/POSITION_LIMIT_EXCEEDED, got %+v", d)
	}
}

func TestImpactHardCapDenies(t *testing.T) {
	g := New(nil)
	now := time.Now()
	g.UpdateBookTimestamp(now)
	fv := baseFV(now)
	fv.ImpactBuyBps = 25
	d := g.Assess(baseCandidate(now), fv, types.OADReport{}, okVADReport(), okStress(), types.AccountState{}, types.DefaultPolicy())
	if d.Action != types.ActionDeny || d.Reasons[0] != types.ReasonImpactHardCap {
		t.Fatalf("expected DENY/IMPACT_HARD_CAP_EXCEEDED, got %+v", d)
	}
}

func TestAllowWithNoReductions(t *testing.T) {
	g := New(nil)
	now := time.Now()
	g.UpdateBookTimestamp(now)
	d := g.Assess(baseCandidate(now), baseFV(now), types.OADReport{}, okVADReport(), okStress(), types.AccountState{}, types.DefaultPolicy())
	if d.Action != types.ActionAllow {
		t.Fatalf("expected ALLOW, got %+v", d)
	}
	if !d.SizeUSD.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected size_usd=1000, got %s", d.SizeUSD)
	}
}

func TestToxicWarnReducesSize(t *testing.T) {
	g := New(nil)
	now := time.Now()
	g.UpdateBookTimestamp(now)
	fv := baseFV(now)
	fv.ImpactBuyBps = 6
	vad := types.VADReport{Triggers: map[string]float64{"toxic": 0.65}}
	d := g.Assess(baseCandidate(now), fv, types.OADReport{}, vad, okStress(), types.AccountState{}, types.DefaultPolicy())
	if d.Action != types.ActionAllowWithReductions {
		t.Fatalf("expected ALLOW_WITH_REDUCTIONS, got %+v", d)
	}
	if !d.SizeUSD.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("expected size_usd=700, got %s", d.SizeUSD)
	}
}

func TestTradeFrequencyExceededDenies(t *testing.T) {
	g := New(nil)
	now := time.Now()
	g.UpdateBookTimestamp(now)
	for i := 0; i < 6; i++ {
		g.tilt.RecordTrade(now.Add(time.Duration(i)*time.Second), 1)
	}
	d := g.Assess(baseCandidate(now), baseFV(now), types.OADReport{}, okVADReport(), okStress(), types.AccountState{}, types.DefaultPolicy())
	if d.Action != types.ActionDeny || d.Reasons[0] != types.ReasonTradeFrequency {
		t.Fatalf("expected DENY/TRADE_FREQUENCY_EXCEEDED, got %+v", d)
	}
}
