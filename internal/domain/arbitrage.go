package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Opportunity is the immutable audit record of one detection cycle for one
// pair. It is created whether or not the spread clears the threshold, so the
// persisted log shows every comparison, not only the viable ones.
//
// Invariants: BuyPrice <= SellPrice, BuyExchange != SellExchange.
// PercentDiff is computed against the midpoint of the two prices.
type Opportunity struct {
	Pair         string          `json:"pair"`
	BuyExchange  string          `json:"buy_exchange"`
	SellExchange string          `json:"sell_exchange"`
	BuyPrice     decimal.Decimal `json:"buy_price"`
	SellPrice    decimal.Decimal `json:"sell_price"`
	PercentDiff  decimal.Decimal `json:"percentage_difference"`
	Threshold    decimal.Decimal `json:"threshold"`
	Viable       bool            `json:"is_viable"`
	Timestamp    time.Time       `json:"timestamp"`
}
