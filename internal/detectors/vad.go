package detectors

import (
	"math"

	"github.com/kledx/toxictide/internal/stats"
	"github.com/kledx/toxictide/pkg/types"
	"go.uber.org/zap"
)

// VADConfig configures the VolumeAnomalyDetector's thresholds.
type VADConfig struct {
	ZWarn       float64
	ZDanger     float64
	ToxicWarn   float64
	ToxicDanger float64
}

// DefaultVADConfig returns the documented defaults.
func DefaultVADConfig() VADConfig {
	return VADConfig{ZWarn: 4, ZDanger: 6, ToxicWarn: 0.6, ToxicDanger: 0.75}
}

// VAD z-scores log-volume, trade count and largest trade over a single
// 300s window and classifies burst/drought/whale events and toxic flow.
type VAD struct {
	logger *zap.Logger
	config VADConfig
	window *stats.RollingMAD
}

// NewVAD constructs a VAD with a 300s window.
func NewVAD(logger *zap.Logger, config VADConfig) *VAD {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VAD{logger: logger, config: config, window: stats.New(300)}
}

// Update ingests one FeatureVector and returns the VADReport for this tick.
func (v *VAD) Update(fv types.FeatureVector) types.VADReport {
	volZ := v.window.Update("log1p_vol", math.Log1p(fv.Vol), fv.Ts)
	tradesZ := v.window.Update("trades", float64(fv.Trades), fv.Ts)
	maxTradeZ := v.window.Update("max_trade", fv.MaxTrade, fv.Ts)
	v.window.Update("toxic", fv.Toxic, fv.Ts)

	burst := volZ.Z >= v.config.ZWarn
	drought := fv.Vol < 0.01 || volZ.Z < -2
	whale := maxTradeZ.Z >= v.config.ZWarn

	score := 0.5*volZ.Z + 0.3*maxTradeZ.Z + 10*fv.Toxic

	var level types.Level
	switch {
	case score >= v.config.ZDanger || fv.Toxic >= v.config.ToxicDanger:
		level = types.LevelDanger
	case score >= v.config.ZWarn || fv.Toxic >= v.config.ToxicWarn:
		level = types.LevelWarn
	default:
		level = types.LevelOK
	}

	if level == types.LevelDanger {
		v.logger.Warn("vad_danger", zap.Float64("score", score), zap.Time("ts", fv.Ts))
	}

	return types.VADReport{
		Ts:    fv.Ts,
		Level: level,
		Score: score,
		Triggers: map[string]float64{
			"vol_z":       volZ.Z,
			"trades_z":    tradesZ.Z,
			"max_trade_z": maxTradeZ.Z,
			"toxic":       fv.Toxic,
		},
		Events: types.VADEvents{
			Burst:   burst,
			Drought: drought,
			Whale:   whale,
		},
	}
}
