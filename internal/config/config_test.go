package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kledx/toxictide/pkg/types"
)

func TestLoadWithNoPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Policy.MaxPositionNotional != 3000 {
		t.Fatalf("expected default max_position_notional=3000, got %f", cfg.Policy.MaxPositionNotional)
	}
	if cfg.LogDir != "logs" {
		t.Fatalf("expected default log_dir=logs, got %s", cfg.LogDir)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := "max_position_notional: 5000\nmax_trades_per_hour: 10\nallowed_strategies:\n  - trend_breakout\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Policy.MaxPositionNotional != 5000 {
		t.Fatalf("expected max_position_notional=5000, got %f", cfg.Policy.MaxPositionNotional)
	}
	if cfg.Policy.MaxTradesPerHour != 10 {
		t.Fatalf("expected max_trades_per_hour=10, got %d", cfg.Policy.MaxTradesPerHour)
	}
	if len(cfg.Policy.AllowedStrategies) != 1 || cfg.Policy.AllowedStrategies[0] != types.StrategyTrendBreakout {
		t.Fatalf("expected allowed_strategies=[trend_breakout], got %+v", cfg.Policy.AllowedStrategies)
	}
}

func TestValidateRejectsInvertedImpactCaps(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Policy.ImpactEntryCapBps = 25
	cfg.Policy.ImpactHardCapBps = 20
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error when entry cap exceeds hard cap")
	}
}

func TestValidateRejectsUnknownStrategy(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Policy.AllowedStrategies = []types.Strategy{"made_up_strategy"}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for unknown strategy tag")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := DefaultEngineConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected default policy to validate, got %v", err)
	}
}
