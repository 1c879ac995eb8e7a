package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// CandidateSide is the direction of a TradeCandidate.
type CandidateSide string

const (
	CandidateLong  CandidateSide = "long"
	CandidateShort CandidateSide = "short"
)

// Strategy is a closed enumeration of strategy tags. Unknown tags are
// rejected at policy-validation time (see internal/config).
type Strategy string

const (
	StrategyTrendBreakout   Strategy = "trend_breakout"
	StrategyRangeMeanRevert Strategy = "range_mean_revert"
)

// TradeCandidate is an optional per-tick strategy output: a proposed entry
// with stop-loss and take-profit, not yet subjected to the risk gate.
type TradeCandidate struct {
	ID         string          `json:"id"`
	Ts         time.Time       `json:"ts"`
	Side       CandidateSide   `json:"side"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	StopPrice  decimal.Decimal `json:"stop_price"`
	TPPrice    decimal.Decimal `json:"tp_price"`
	Confidence float64         `json:"confidence"`
	TTLSec     int             `json:"ttl_sec"`
	Strategy   Strategy        `json:"strategy"`
}

// ReasonCode is the closed, authoritative set of codes a RiskDecision or
// ExecutionPlan may carry.
type ReasonCode string

const (
	ReasonDataInconsistent     ReasonCode = "DATA_INCONSISTENT"
	ReasonDataStale            ReasonCode = "DATA_STALE"
	ReasonConnectionLost       ReasonCode = "CONNECTION_LOST"
	ReasonDailyLossExceeded    ReasonCode = "DAILY_LOSS_EXCEEDED"
	ReasonCooldownActive       ReasonCode = "COOLDOWN_ACTIVE"
	ReasonPositionLimit        ReasonCode = "POSITION_LIMIT_EXCEEDED"
	ReasonLeverageLimit        ReasonCode = "LEVERAGE_LIMIT_EXCEEDED"
	ReasonImpactHardCap        ReasonCode = "IMPACT_HARD_CAP_EXCEEDED"
	ReasonImpactEntryCap       ReasonCode = "IMPACT_ENTRY_CAP_EXCEEDED"
	ReasonToxicDanger          ReasonCode = "TOXIC_DANGER_LEVEL"
	ReasonToxicWarn            ReasonCode = "TOXIC_WARN_LEVEL"
	ReasonMarketStressDanger   ReasonCode = "MARKET_STRESS_DANGER"
	ReasonTradeFrequency       ReasonCode = "TRADE_FREQUENCY_EXCEEDED"
	ReasonPositionSizeReduced  ReasonCode = "RISK_POSITION_SIZE_REDUCED"
	ReasonLeverageReduced      ReasonCode = "RISK_LEVERAGE_REDUCED"
	ReasonNoSignal             ReasonCode = "NO_SIGNAL"
)

// RiskAction is the exhaustive outcome of the RiskGuardian cascade.
type RiskAction string

const (
	ActionAllow               RiskAction = "ALLOW"
	ActionAllowWithReductions RiskAction = "ALLOW_WITH_REDUCTIONS"
	ActionDeny                RiskAction = "DENY"
)

// RiskDecision is the RiskGuardian's per-tick output. Facts is populated
// incrementally as the cascade runs, even on an early DENY.
type RiskDecision struct {
	Ts             time.Time       `json:"ts"`
	Action         RiskAction      `json:"action"`
	SizeUSD        decimal.Decimal `json:"size_usd"`
	MaxSlippageBps float64         `json:"max_slippage_bps"`
	Reasons        []ReasonCode    `json:"reasons"`
	Facts          map[string]any  `json:"facts"`
}

// ExecutionMode is the order-placement style chosen by the ExecutionPlanner.
type ExecutionMode string

const (
	ModeMaker      ExecutionMode = "maker"
	ModeTaker      ExecutionMode = "taker"
	ModeSlicing    ExecutionMode = "slicing"
	ModeReduceOnly ExecutionMode = "reduce_only"
)

// OrderType distinguishes a limit child order from a market one within an
// ExecutionPlan.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// PlannedOrder is one child order within an ExecutionPlan.
type PlannedOrder struct {
	Type          OrderType       `json:"type"`
	Side          CandidateSide   `json:"side"`
	Price         decimal.Decimal `json:"price,omitempty"`
	SizeUSD       decimal.Decimal `json:"size_usd"`
	TimeDelaySec  int             `json:"time_delay_sec,omitempty"`
	ReduceOnly    bool            `json:"reduce_only,omitempty"`
}

// ExecutionPlan is the ExecutionPlanner's per-tick output: orders empty iff
// Mode is ModeReduceOnly.
type ExecutionPlan struct {
	Ts      time.Time      `json:"ts"`
	Orders  []PlannedOrder `json:"orders"`
	Mode    ExecutionMode  `json:"mode"`
	Reasons []ReasonCode   `json:"reasons"`
}

// AccountState is the external executor's snapshot of account exposure at
// the current price, consumed by the RiskGuardian.
type AccountState struct {
	Balance          decimal.Decimal `json:"balance"`
	PositionSize     decimal.Decimal `json:"position_size"`
	PositionNotional decimal.Decimal `json:"position_notional"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
}

// Fill is one realized execution reported back by the executor. SlippageBps
// is populated by the Orchestrator after execution, comparing against the
// tick's decision-time mid.
type Fill struct {
	Ts          time.Time       `json:"ts"`
	Side        CandidateSide   `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Size        decimal.Decimal `json:"size"`
	SizeUSD     decimal.Decimal `json:"size_usd"`
	Maker       bool            `json:"maker"`
	SlippageBps float64         `json:"slippage_bps"`
}
