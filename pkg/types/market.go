// Package types holds the data model shared across the risk engine's
// pipeline stages: order book and trade primitives, feature vectors,
// anomaly reports, risk decisions, and the ledger record that ties a tick
// together.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the aggressor side of an executed trade.
type TradeSide string

const (
	SideBuy     TradeSide = "buy"
	SideSell    TradeSide = "sell"
	SideUnknown TradeSide = "unknown"
)

// OrderBookLevel is a single price/size pair on one side of the book.
// Immutable once constructed.
type OrderBookLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBookState is a read-only snapshot of the book derived on demand from
// an OrderBook. Bids are price-descending, asks price-ascending.
type OrderBookState struct {
	Timestamp time.Time        `json:"timestamp"`
	Bids      []OrderBookLevel `json:"bids"`
	Asks      []OrderBookLevel `json:"asks"`
	Sequence  int64            `json:"sequence"`
}

// Trade is a single executed trade observed on the tape.
type Trade struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Side      TradeSide       `json:"side"`
}

// BookChange is one mutation applied by OrderBook.ApplyDelta: size=0 removes
// the price level entirely.
type BookChange struct {
	Side  BookSide        `json:"side"`
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// BookSide identifies bid or ask for a BookChange.
type BookSide string

const (
	BookSideBid BookSide = "bid"
	BookSideAsk BookSide = "ask"
)
