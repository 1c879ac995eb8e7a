package types

import "time"

// LedgerRecord assembles every artifact produced by one tick of the
// pipeline, plus a human-readable explain string, for append-only audit.
type LedgerRecord struct {
	Ts        time.Time        `json:"ts"`
	Policy    Policy           `json:"policy"`
	Features  FeatureVector    `json:"features"`
	OAD       OADReport        `json:"oad"`
	VAD       VADReport        `json:"vad"`
	Stress    StressIndex      `json:"stress"`
	Regime    RegimeState      `json:"regime"`
	Candidate *TradeCandidate  `json:"candidate,omitempty"`
	Risk      RiskDecision     `json:"risk"`
	Plan      ExecutionPlan    `json:"plan"`
	Fills     []Fill           `json:"fills"`
	Explain   string           `json:"explain"`
}
