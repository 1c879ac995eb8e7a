// Package detectors implements the OrderbookAnomalyDetector (OAD) and
// VolumeAnomalyDetector (VAD), closed-form statistical anomaly detectors
// over FeatureVector series.
package detectors

import (
	"github.com/kledx/toxictide/internal/stats"
	"github.com/kledx/toxictide/pkg/types"
	"go.uber.org/zap"
)

// OADConfig configures the OrderbookAnomalyDetector's thresholds.
type OADConfig struct {
	ZWarn   float64
	ZDanger float64
}

// DefaultOADConfig returns the documented defaults (z_warn=4, z_danger=6).
func DefaultOADConfig() OADConfig {
	return OADConfig{ZWarn: 4, ZDanger: 6}
}

// OAD z-scores spread/impact/message-rate over a short window and detects
// liquidity gaps against a long-window depth median.
type OAD struct {
	logger *zap.Logger
	config OADConfig
	short  *stats.RollingMAD
	long   *stats.RollingMAD
}

// NewOAD constructs an OAD with a 300s short window and a 3600s long window.
func NewOAD(logger *zap.Logger, config OADConfig) *OAD {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAD{
		logger: logger,
		config: config,
		short:  stats.New(300),
		long:   stats.New(3600),
	}
}

// Update ingests one FeatureVector and returns the OADReport for this tick.
func (o *OAD) Update(fv types.FeatureVector) types.OADReport {
	zSpread := o.short.Update("spread_bps", fv.SpreadBps, fv.Ts)
	zImpactBuy := o.short.Update("impact_buy", fv.ImpactBuyBps, fv.Ts)
	zImpactSell := o.short.Update("impact_sell", fv.ImpactSellBps, fv.Ts)
	zMsgRate := o.short.Update("msg_rate", fv.MsgRate, fv.Ts)

	longBid := o.long.Update("depth_bid", fv.DepthBidK, fv.Ts)
	longAsk := o.long.Update("depth_ask", fv.DepthAskK, fv.Ts)

	gapFlag := false
	if longBid.Count >= 2 && fv.DepthBidK < 0.5*longBid.Median {
		gapFlag = true
	}
	if longAsk.Count >= 2 && fv.DepthAskK < 0.5*longAsk.Median {
		gapFlag = true
	}

	maxImpactZ := zImpactBuy.Z
	if zImpactSell.Z > maxImpactZ {
		maxImpactZ = zImpactSell.Z
	}

	score := 0.3*zSpread.Z + 0.4*maxImpactZ + 0.2*zMsgRate.Z
	if gapFlag {
		score += 10
	}

	var level types.Level
	switch {
	case score >= o.config.ZDanger || gapFlag:
		level = types.LevelDanger
	case score >= o.config.ZWarn:
		level = types.LevelWarn
	default:
		level = types.LevelOK
	}

	maxImpact := fv.ImpactBuyBps
	if fv.ImpactSellBps > maxImpact {
		maxImpact = fv.ImpactSellBps
	}

	var liquidity types.LiquidityState
	switch {
	case maxImpact > 20 || fv.Toxic > 0.75:
		liquidity = types.LiquidityToxic
	case maxImpact > 10:
		liquidity = types.LiquidityThin
	default:
		liquidity = types.LiquidityThick
	}

	if level == types.LevelDanger {
		o.logger.Warn("oad_danger", zap.Float64("score", score), zap.Time("ts", fv.Ts))
	}

	return types.OADReport{
		Ts:    fv.Ts,
		Level: level,
		Score: score,
		Triggers: map[string]float64{
			"spread_z":     zSpread.Z,
			"impact_buy_z": zImpactBuy.Z,
			"impact_sell_z": zImpactSell.Z,
			"msg_rate_z":   zMsgRate.Z,
			"gap_flag":     boolToFloat(gapFlag),
		},
		LiquidityState: liquidity,
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
