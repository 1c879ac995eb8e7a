package types

// Policy is the flat record of risk thresholds and engine tunables
// recognized by the core. Loaded and validated by internal/config; the core
// itself only ever reads a populated, already-validated Policy.
type Policy struct {
	MaxDailyLossPct     float64  `json:"max_daily_loss_pct" mapstructure:"max_daily_loss_pct"`
	MaxPositionNotional float64  `json:"max_position_notional" mapstructure:"max_position_notional"`
	MaxTradesPerHour    int      `json:"max_trades_per_hour" mapstructure:"max_trades_per_hour"`
	ImpactHardCapBps    float64  `json:"impact_hard_cap_bps" mapstructure:"impact_hard_cap_bps"`
	ImpactEntryCapBps   float64  `json:"impact_entry_cap_bps" mapstructure:"impact_entry_cap_bps"`
	AllowedStrategies   []Strategy `json:"allowed_strategies" mapstructure:"allowed_strategies"`

	VADToxicWarn   float64 `json:"vad_toxic_warn" mapstructure:"vad_toxic_warn"`
	VADToxicDanger float64 `json:"vad_toxic_danger" mapstructure:"vad_toxic_danger"`

	OADZWarn   float64 `json:"oad_z_warn" mapstructure:"oad_z_warn"`
	OADZDanger float64 `json:"oad_z_danger" mapstructure:"oad_z_danger"`
	VADZWarn   float64 `json:"vad_z_warn" mapstructure:"vad_z_warn"`
	VADZDanger float64 `json:"vad_z_danger" mapstructure:"vad_z_danger"`

	ImpactSizeQuoteUSD float64 `json:"features_impact_size_quote_usd" mapstructure:"features_impact_size_quote_usd"`

	SlicingThresholdBps float64 `json:"execution_slicing_threshold_bps" mapstructure:"execution_slicing_threshold_bps"`
}

// DefaultPolicy returns the policy populated with every documented default.
func DefaultPolicy() Policy {
	return Policy{
		MaxDailyLossPct:     1.0,
		MaxPositionNotional: 3000,
		MaxTradesPerHour:    6,
		ImpactHardCapBps:    20,
		ImpactEntryCapBps:   10,
		AllowedStrategies:   []Strategy{StrategyTrendBreakout, StrategyRangeMeanRevert},
		VADToxicWarn:        0.6,
		VADToxicDanger:      0.75,
		OADZWarn:            4,
		OADZDanger:          6,
		VADZWarn:            4,
		VADZDanger:          6,
		ImpactSizeQuoteUSD:  1000,
		SlicingThresholdBps: 10,
	}
}

// AllowsStrategy reports whether tag is in the policy's allowed-strategies
// set.
func (p Policy) AllowsStrategy(tag Strategy) bool {
	for _, s := range p.AllowedStrategies {
		if s == tag {
			return true
		}
	}
	return false
}
