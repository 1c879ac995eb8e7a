// Package config loads and validates the engine's runtime Policy and
// process-level settings via viper, confined to this package and
// cmd/engine — the core pipeline packages never import viper directly.
package config

import (
	"fmt"
	"strings"

	"github.com/kledx/toxictide/pkg/types"
	"github.com/spf13/viper"
)

// EngineConfig bundles the Policy with process-level settings not part of
// the domain Policy itself (log directory, ledger location, log level).
type EngineConfig struct {
	Policy     types.Policy `mapstructure:",squash"`
	LogDir     string       `mapstructure:"log_dir"`
	LogLevel   string       `mapstructure:"log_level"`
	MetricsAddr string      `mapstructure:"metrics_addr"`
}

// DefaultEngineConfig returns an EngineConfig with every policy threshold
// defaulted, plus sensible process-level defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Policy:      types.DefaultPolicy(),
		LogDir:      "logs",
		LogLevel:    "info",
		MetricsAddr: ":9090",
	}
}

// Load reads path (if non-empty) via viper, falling back to defaults for
// any key the file or environment does not set, then validates the
// result. Environment variables are read with a TOXICTIDE_ prefix.
func Load(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	v := viper.New()
	v.SetEnvPrefix("toxictide")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return EngineConfig{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return EngineConfig{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg EngineConfig) {
	v.SetDefault("log_dir", cfg.LogDir)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)
	v.SetDefault("max_daily_loss_pct", cfg.Policy.MaxDailyLossPct)
	v.SetDefault("max_position_notional", cfg.Policy.MaxPositionNotional)
	v.SetDefault("max_trades_per_hour", cfg.Policy.MaxTradesPerHour)
	v.SetDefault("impact_hard_cap_bps", cfg.Policy.ImpactHardCapBps)
	v.SetDefault("impact_entry_cap_bps", cfg.Policy.ImpactEntryCapBps)
	v.SetDefault("allowed_strategies", cfg.Policy.AllowedStrategies)
	v.SetDefault("vad_toxic_warn", cfg.Policy.VADToxicWarn)
	v.SetDefault("vad_toxic_danger", cfg.Policy.VADToxicDanger)
	v.SetDefault("oad_z_warn", cfg.Policy.OADZWarn)
	v.SetDefault("oad_z_danger", cfg.Policy.OADZDanger)
	v.SetDefault("vad_z_warn", cfg.Policy.VADZWarn)
	v.SetDefault("vad_z_danger", cfg.Policy.VADZDanger)
	v.SetDefault("features_impact_size_quote_usd", cfg.Policy.ImpactSizeQuoteUSD)
	v.SetDefault("execution_slicing_threshold_bps", cfg.Policy.SlicingThresholdBps)
}

// Validate rejects out-of-range thresholds and unknown strategy tags at
// construction time, the only class of error that halts the process.
func Validate(cfg EngineConfig) error {
	p := cfg.Policy

	if p.MaxDailyLossPct <= 0 {
		return fmt.Errorf("config: max_daily_loss_pct must be positive, got %f", p.MaxDailyLossPct)
	}
	if p.MaxPositionNotional <= 0 {
		return fmt.Errorf("config: max_position_notional must be positive, got %f", p.MaxPositionNotional)
	}
	if p.MaxTradesPerHour <= 0 {
		return fmt.Errorf("config: max_trades_per_hour must be positive, got %d", p.MaxTradesPerHour)
	}
	if p.ImpactEntryCapBps <= 0 || p.ImpactHardCapBps <= 0 {
		return fmt.Errorf("config: impact caps must be positive")
	}
	if p.ImpactEntryCapBps >= p.ImpactHardCapBps {
		return fmt.Errorf("config: impact_entry_cap_bps (%f) must be less than impact_hard_cap_bps (%f)", p.ImpactEntryCapBps, p.ImpactHardCapBps)
	}
	if p.VADToxicWarn <= 0 || p.VADToxicWarn >= p.VADToxicDanger {
		return fmt.Errorf("config: vad_toxic_warn (%f) must be positive and less than vad_toxic_danger (%f)", p.VADToxicWarn, p.VADToxicDanger)
	}

	for _, s := range p.AllowedStrategies {
		if s != types.StrategyTrendBreakout && s != types.StrategyRangeMeanRevert {
			return fmt.Errorf("config: unknown strategy tag %q", s)
		}
	}

	return nil
}
