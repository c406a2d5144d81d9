package arbitrage

import (
	"github.com/shopspring/decimal"

	"crypto-spot-arbitrage/internal/domain"
)

// ThresholdUnattainable is returned when fee data is missing for either leg.
// At a billion percent no spread can ever be judged viable, so missing
// configuration fails closed while the polling loop keeps running for the
// pairs that are configured correctly.
var ThresholdUnattainable = decimal.New(1, 9)

var oneHundred = decimal.NewFromInt(100)

// Threshold computes the minimum profitable spread in percent:
// buy-leg fee + sell-leg fee + desired profit margin. The buy leg pays the
// maker fee for limit orders and the taker fee otherwise; the sell leg always
// pays the taker fee because closing trades are modeled as immediate fills.
func Threshold(fees domain.FeeTable, buyExchange string, sellExchange string, margin decimal.Decimal, orderType domain.OrderType) decimal.Decimal {
	buySchedule, ok := fees[buyExchange]
	if !ok {
		return ThresholdUnattainable
	}
	sellSchedule, ok := fees[sellExchange]
	if !ok {
		return ThresholdUnattainable
	}

	buyFee := buySchedule.TakerFee
	if orderType == domain.Limit {
		buyFee = buySchedule.MakerFee
	}

	return buyFee.Add(sellSchedule.TakerFee).Add(margin)
}
