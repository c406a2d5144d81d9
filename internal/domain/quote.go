package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one exchange's spot price for a pair at a point in time. A quote
// that could not be fetched is represented by absence, never by a zero price.
type Quote struct {
	Exchange  string          `json:"exchange"`
	Symbol    string          `json:"symbol"`
	Currency  string          `json:"currency"`
	Price     decimal.Decimal `json:"price"`
	FetchedAt time.Time       `json:"fetched_at"`
}

func (q Quote) Pair() string {
	return q.Symbol + "/" + q.Currency
}
