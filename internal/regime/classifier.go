// Package regime classifies market conditions into three independent
// dimensions: price trend, realized volatility, and liquidity/toxicity
// ("flow"). Closed-form and rule-based throughout — no learned model.
package regime

import (
	"math"
	"sync"
	"time"

	"github.com/kledx/toxictide/pkg/types"
	"go.uber.org/zap"
)

const maxHistory = 100

const secondsPerYear = 252 * 86400

type point struct {
	ts  time.Time
	mid float64
}

// Classifier maintains a bounded FIFO of (timestamp, mid) and classifies
// market regime on each tick.
type Classifier struct {
	mu      sync.Mutex
	logger  *zap.Logger
	history []point
}

// New constructs a Classifier.
func New(logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("regime_classifier_initialized")
	return &Classifier{logger: logger}
}

// Classify records fv.Mid into the price history and returns the joint
// RegimeState, consulting the OAD and VAD reports for the flow dimension.
func (c *Classifier) Classify(fv types.FeatureVector, oad types.OADReport, vad types.VADReport) types.RegimeState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, point{ts: fv.Ts, mid: fv.Mid})
	if len(c.history) > maxHistory {
		c.history = c.history[len(c.history)-maxHistory:]
	}

	priceRegime := c.classifyPriceRegime()
	volRegime := c.classifyVolRegime()
	flowRegime := classifyFlowRegime(fv, oad, vad)

	var confidence float64
	switch {
	case len(c.history) >= 50:
		confidence = 0.8
	case len(c.history) >= 20:
		confidence = 0.6
	default:
		confidence = 0.4
	}

	return types.RegimeState{
		Ts:          fv.Ts,
		PriceRegime: priceRegime,
		VolRegime:   volRegime,
		FlowRegime:  flowRegime,
		Confidence:  confidence,
	}
}

func (c *Classifier) classifyPriceRegime() types.PriceRegime {
	if len(c.history) < 20 {
		return types.PriceRegimeRange
	}

	shortN := 10
	longN := 30
	if longN > len(c.history) {
		longN = len(c.history)
	}

	maShort := meanMid(c.history[len(c.history)-shortN:])
	maLong := meanMid(c.history[len(c.history)-longN:])

	switch {
	case maShort > maLong*1.002:
		return types.PriceRegimeTrendUp
	case maShort < maLong*0.998:
		return types.PriceRegimeTrendDown
	default:
		return types.PriceRegimeRange
	}
}

func (c *Classifier) classifyVolRegime() types.VolRegime {
	if len(c.history) < 20 {
		return types.VolRegimeNormal
	}

	returns := make([]float64, 0, len(c.history)-1)
	for i := 1; i < len(c.history); i++ {
		prev := c.history[i-1].mid
		if prev == 0 {
			continue
		}
		returns = append(returns, (c.history[i].mid-prev)/prev)
	}
	if len(returns) == 0 {
		return types.VolRegimeNormal
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var sqSum float64
	for _, r := range returns {
		sqSum += (r - mean) * (r - mean)
	}
	std := math.Sqrt(sqSum / float64(len(returns)))
	realizedVol := std * math.Sqrt(float64(secondsPerYear))

	switch {
	case realizedVol > 0.5:
		return types.VolRegimeHigh
	case realizedVol < 0.2:
		return types.VolRegimeLow
	default:
		return types.VolRegimeNormal
	}
}

// classifyFlowRegime reuses VAD's own vol_z trigger for the ACTIVE rule
// ("vol_z>=4") rather than recomputing volatility independently.
func classifyFlowRegime(fv types.FeatureVector, oad types.OADReport, vad types.VADReport) types.FlowRegime {
	maxImpact := fv.ImpactBuyBps
	if fv.ImpactSellBps > maxImpact {
		maxImpact = fv.ImpactSellBps
	}
	toxic := vad.Triggers["toxic"]
	volZ := vad.Triggers["vol_z"]

	switch {
	case toxic >= 0.6 || oad.Level == types.LevelDanger || maxImpact > 20:
		return types.FlowRegimeToxic
	case volZ >= 4 || oad.Level == types.LevelWarn:
		return types.FlowRegimeActive
	default:
		return types.FlowRegimeCalm
	}
}

func meanMid(pts []point) float64 {
	if len(pts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pts {
		sum += p.mid
	}
	return sum / float64(len(pts))
}

// Reset clears the price history.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	c.logger.Info("regime_classifier_reset")
}
