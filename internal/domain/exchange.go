package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Exchanger is the capability interface implemented by every exchange adapter.
// Adapters own their pair naming, authentication scheme and minimum order
// constraints; callers never see exchange-specific wire formats.
//
// Lookup operations report absence with a false second return instead of an
// error: a missing quote or a rejected order is an expected market condition
// the polling loop has to keep running through, and the adapter has already
// logged the cause.
type Exchanger interface {
	Name() string
	GetPrice(ctx context.Context, symbol string, currency string) (decimal.Decimal, bool)
	GetTradingPairs(ctx context.Context) []string
	PlaceOrder(ctx context.Context, side Side, price decimal.Decimal, quantity decimal.Decimal, symbol string, currency string) (*OrderConfirmation, bool)
	GetBalance(ctx context.Context) (map[string]decimal.Decimal, bool)
}

// OrderConfirmation is the adapter-neutral result of a placed order.
type OrderConfirmation struct {
	Exchange string          `json:"exchange"`
	OrderID  string          `json:"order_id"`
	Side     Side            `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}
