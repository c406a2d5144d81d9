package arbitrage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"crypto-spot-arbitrage/internal/domain"
)

func quote(exchange string, price string) domain.Quote {
	return domain.Quote{
		Exchange:  exchange,
		Symbol:    "BTC",
		Currency:  "USD",
		Price:     decimal.RequireFromString(price),
		FetchedAt: time.Now().UTC(),
	}
}

func fixedThreshold(value string) func(string, string) decimal.Decimal {
	return func(string, string) decimal.Decimal {
		return decimal.RequireFromString(value)
	}
}

func TestDetectViableOpportunity(t *testing.T) {
	quotes := []domain.Quote{quote("Kraken", "100.00"), quote("Coinbase", "100.60")}

	opp := Detect("BTC/USD", quotes, fixedThreshold("0.5"))
	require.NotNil(t, opp)
	require.Equal(t, "Kraken", opp.BuyExchange)
	require.Equal(t, "Coinbase", opp.SellExchange)
	require.True(t, opp.BuyPrice.Equal(decimal.RequireFromString("100.00")))
	require.True(t, opp.SellPrice.Equal(decimal.RequireFromString("100.60")))

	// 0.60 against the 100.30 midpoint
	expected := decimal.RequireFromString("0.60").
		Div(decimal.RequireFromString("100.30")).
		Mul(decimal.NewFromInt(100))
	require.True(t, opp.PercentDiff.Equal(expected), "got %s", opp.PercentDiff)
	require.True(t, opp.Viable)
}

func TestDetectBelowThresholdStillEmitsRecord(t *testing.T) {
	quotes := []domain.Quote{quote("Kraken", "100.00"), quote("Coinbase", "100.60")}

	opp := Detect("BTC/USD", quotes, fixedThreshold("0.8"))
	require.NotNil(t, opp)
	require.False(t, opp.Viable)
	require.Equal(t, "Kraken", opp.BuyExchange)
	require.Equal(t, "Coinbase", opp.SellExchange)
}

func TestDetectBoundaryIsViable(t *testing.T) {
	quotes := []domain.Quote{quote("A", "100"), quote("B", "101")}

	// threshold exactly equal to the midpoint percentage difference
	exact := decimal.NewFromInt(1).
		Div(decimal.RequireFromString("100.5")).
		Mul(decimal.NewFromInt(100))

	opp := Detect("BTC/USD", quotes, func(string, string) decimal.Decimal { return exact })
	require.NotNil(t, opp)
	require.True(t, opp.Viable)
}

func TestDetectRequiresTwoQuotes(t *testing.T) {
	require.Nil(t, Detect("BTC/USD", nil, fixedThreshold("0.5")))
	require.Nil(t, Detect("BTC/USD", []domain.Quote{quote("Kraken", "100")}, fixedThreshold("0.5")))
}

func TestDetectTiesGoToFirstListed(t *testing.T) {
	quotes := []domain.Quote{quote("A", "100"), quote("B", "100"), quote("C", "101")}
	opp := Detect("BTC/USD", quotes, fixedThreshold("0.1"))
	require.NotNil(t, opp)
	require.Equal(t, "A", opp.BuyExchange)
	require.Equal(t, "C", opp.SellExchange)

	quotes = []domain.Quote{quote("A", "100"), quote("B", "101"), quote("C", "101")}
	opp = Detect("BTC/USD", quotes, fixedThreshold("0.1"))
	require.NotNil(t, opp)
	require.Equal(t, "A", opp.BuyExchange)
	require.Equal(t, "B", opp.SellExchange)
}

func TestDetectEqualPricesKeepExchangesDistinct(t *testing.T) {
	quotes := []domain.Quote{quote("A", "100"), quote("B", "100")}

	opp := Detect("BTC/USD", quotes, fixedThreshold("0.1"))
	require.NotNil(t, opp)
	require.NotEqual(t, opp.BuyExchange, opp.SellExchange)
	require.True(t, opp.PercentDiff.IsZero())
	require.False(t, opp.Viable)
}

func TestDetectInvariants(t *testing.T) {
	quotes := []domain.Quote{quote("X", "250.10"), quote("Y", "249.80"), quote("Z", "251.00")}

	opp := Detect("ETH/USD", quotes, fixedThreshold("0.2"))
	require.NotNil(t, opp)
	require.True(t, opp.BuyPrice.LessThanOrEqual(opp.SellPrice))
	require.NotEqual(t, opp.BuyExchange, opp.SellExchange)
	require.Equal(t, "Y", opp.BuyExchange)
	require.Equal(t, "Z", opp.SellExchange)
}
