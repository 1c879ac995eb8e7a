// Command engine runs the toxictide risk pipeline at a fixed 1Hz cadence
// for one venue/symbol. The concrete market-data collector and order
// execution adapter are external collaborators (see internal/execution's
// Collector/Adapter contracts) — this binary wires a synthetic stand-in
// so the pipeline is runnable end to end without a live venue connection.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kledx/toxictide/internal/config"
	"github.com/kledx/toxictide/internal/eventbus"
	"github.com/kledx/toxictide/internal/ledger"
	"github.com/kledx/toxictide/internal/orchestrator"
	"github.com/kledx/toxictide/internal/telemetry"
	"github.com/kledx/toxictide/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML/JSON policy override file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error); overrides config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Construction-time misconfiguration is the only class of fatal
		// error: fail loudly before anything starts ticking.
		zap.NewExample().Fatal("config_load_failed", zap.Error(err))
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := setupLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("toxictide_starting",
		zap.String("log_dir", cfg.LogDir),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.Float64("max_daily_loss_pct", cfg.Policy.MaxDailyLossPct),
		zap.Float64("max_position_notional", cfg.Policy.MaxPositionNotional),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledg, err := ledger.New(logger, cfg.LogDir, time.Now())
	if err != nil {
		logger.Fatal("ledger_init_failed", zap.Error(err))
	}
	defer ledg.Close()

	bus := eventbus.New(logger)
	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)

	collector := newSimulatedCollector(cfg.Policy)
	adapter := newSimulatedAdapter()

	engine := orchestrator.New(logger, collector, adapter, ledg, bus, metrics, cfg.Policy)

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promMux(metrics),
	}
	go func() {
		logger.Info("metrics_server_listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics_server_error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go engine.Run(ctx)

	<-sigChan
	logger.Info("shutdown_signal_received")

	engine.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics_server_shutdown_failed", zap.Error(err))
	}

	logger.Info("toxictide_stopped")
}

func promMux(metrics *telemetry.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

// simulatedCollector is a placeholder Collector: a static two-level book
// around a fixed mid and one buy trade per call, standing in for a venue
// websocket feed, which is explicitly out of scope for this engine.
type simulatedCollector struct {
	mu  sync.Mutex
	mid float64
	seq int64
}

func newSimulatedCollector(policy types.Policy) *simulatedCollector {
	return &simulatedCollector{mid: 100}
}

func (s *simulatedCollector) GetOrderbookSnapshot(ctx context.Context) (types.OrderBookState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	half := decimal.NewFromFloat(0.25)
	mid := decimal.NewFromFloat(s.mid)

	return types.OrderBookState{
		Timestamp: time.Now(),
		Sequence:  s.seq,
		Bids: []types.OrderBookLevel{
			{Price: mid.Sub(half), Size: decimal.NewFromInt(5)},
			{Price: mid.Sub(half.Mul(decimal.NewFromInt(2))), Size: decimal.NewFromInt(8)},
		},
		Asks: []types.OrderBookLevel{
			{Price: mid.Add(half), Size: decimal.NewFromInt(5)},
			{Price: mid.Add(half.Mul(decimal.NewFromInt(2))), Size: decimal.NewFromInt(8)},
		},
	}, nil
}

func (s *simulatedCollector) GetRecentTrades(ctx context.Context, maxCount int) ([]types.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return []types.Trade{
		{Timestamp: time.Now(), Price: decimal.NewFromFloat(s.mid), Size: decimal.NewFromFloat(0.1), Side: types.SideBuy},
	}, nil
}

// simulatedAdapter is a placeholder Adapter: it reports a flat account
// with no open position and accepts every planned order as filled at its
// planned price, standing in for a real or paper order-sending adapter.
type simulatedAdapter struct{}

func newSimulatedAdapter() *simulatedAdapter {
	return &simulatedAdapter{}
}

func (a *simulatedAdapter) Execute(ctx context.Context, plan types.ExecutionPlan) ([]types.Fill, error) {
	fills := make([]types.Fill, 0, len(plan.Orders))
	for _, o := range plan.Orders {
		fills = append(fills, types.Fill{
			Ts:      plan.Ts,
			Side:    o.Side,
			Price:   o.Price,
			Size:    decimal.NewFromInt(1),
			SizeUSD: o.SizeUSD,
			Maker:   o.Type == types.OrderTypeLimit,
		})
	}
	return fills, nil
}

func (a *simulatedAdapter) GetAccountState(ctx context.Context, currentPrice decimal.Decimal) (types.AccountState, error) {
	return types.AccountState{
		Balance:          decimal.NewFromInt(10000),
		PositionSize:     decimal.Zero,
		PositionNotional: decimal.Zero,
		UnrealizedPnL:    decimal.Zero,
	}, nil
}

func (a *simulatedAdapter) CloseAllPositions(ctx context.Context) ([]types.Fill, error) {
	return nil, nil
}
