package arbitrage

import (
	"time"

	"github.com/shopspring/decimal"

	"crypto-spot-arbitrage/internal/domain"
)

var two = decimal.NewFromInt(2)

// Detect compares the present quotes for one pair and builds the cycle's
// opportunity record. It returns nil when fewer than two quotes are present.
//
// The buy side is the exchange with the lowest price, the sell side the one
// with the highest; quotes must arrive in configured priority order, since
// ties go to the first-listed exchange. The percentage difference uses the
// midpoint of the two prices as reference, fixed project-wide. A record is
// emitted even when the spread does not clear the threshold, so the audit
// log shows every comparison.
func Detect(pair string, quotes []domain.Quote, thresholdFor func(buyExchange, sellExchange string) decimal.Decimal) *domain.Opportunity {
	if len(quotes) < 2 {
		return nil
	}

	buy := quotes[0]
	for _, q := range quotes[1:] {
		if q.Price.LessThan(buy.Price) {
			buy = q
		}
	}

	// The sell side is picked among the other exchanges so that equal prices
	// everywhere still yield two distinct venues (and a zero spread).
	var sell domain.Quote
	found := false
	for _, q := range quotes {
		if q.Exchange == buy.Exchange {
			continue
		}
		if !found || q.Price.GreaterThan(sell.Price) {
			sell = q
			found = true
		}
	}
	if !found {
		return nil
	}

	midpoint := buy.Price.Add(sell.Price).Div(two)
	diff := sell.Price.Sub(buy.Price).Abs().Div(midpoint).Mul(oneHundred)
	threshold := thresholdFor(buy.Exchange, sell.Exchange)

	return &domain.Opportunity{
		Pair:         pair,
		BuyExchange:  buy.Exchange,
		SellExchange: sell.Exchange,
		BuyPrice:     buy.Price,
		SellPrice:    sell.Price,
		PercentDiff:  diff,
		Threshold:    threshold,
		Viable:       diff.GreaterThanOrEqual(threshold),
		Timestamp:    time.Now().UTC(),
	}
}
