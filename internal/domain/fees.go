package domain

import "github.com/shopspring/decimal"

// FeeSchedule is one exchange's maker/taker fee pair, in percent. Loaded once
// at startup and never mutated afterwards.
type FeeSchedule struct {
	Name     string
	MakerFee decimal.Decimal
	TakerFee decimal.Decimal
}

// FeeTable maps exchange name to its fee schedule. A missing entry makes
// threshold computation fail closed for that exchange.
type FeeTable map[string]FeeSchedule
