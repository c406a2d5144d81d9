package arbitrage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crypto-spot-arbitrage/internal/domain"
	"crypto-spot-arbitrage/internal/platform/config"
	"crypto-spot-arbitrage/internal/storage/jsonlog"
)

func testWatcher(t *testing.T, exchanges []domain.Exchanger, margin string) (*Watcher, *jsonlog.Set) {
	t.Helper()

	fees := domain.FeeTable{
		"Kraken":   {Name: "Kraken", MakerFee: decimal.RequireFromString("0.1"), TakerFee: decimal.RequireFromString("0.2")},
		"Coinbase": {Name: "Coinbase", MakerFee: decimal.RequireFromString("0.1"), TakerFee: decimal.RequireFromString("0.2")},
		"Binance":  {Name: "Binance", MakerFee: decimal.RequireFromString("0.1"), TakerFee: decimal.RequireFromString("0.2")},
	}

	pairs := []config.PairConfig{{
		Symbol:       "BTC",
		Currency:     "USD",
		Enabled:      true,
		ProfitMargin: decimal.RequireFromString(margin),
		TradeAmount:  decimal.RequireFromString("0.1"),
	}}

	byName := make(map[string]domain.Exchanger)
	for _, ex := range exchanges {
		byName[ex.Name()] = ex
	}

	logs := jsonlog.NewSet(filepath.Join(t.TempDir(), "logs"))
	executor := NewExecutor(domain.Simulation, byName, zap.NewNop())

	watcher := NewWatcher(exchanges, pairs, fees, domain.Limit, time.Second,
		executor, logs, nil, zap.NewNop(), zap.NewNop())
	return watcher, logs
}

func TestRunCyclePersistsQuotesOpportunityAndTrade(t *testing.T) {
	exchanges := []domain.Exchanger{
		&stubExchange{name: "Kraken", price: decimal.RequireFromString("100.00"), present: true},
		&stubExchange{name: "Coinbase", price: decimal.RequireFromString("102.00"), present: true},
	}

	// fee threshold 0.1 + 0.2 + 0.1 = 0.4%; 2.00 spread on ~101 midpoint clears it
	watcher, logs := testWatcher(t, exchanges, "0.1")
	watcher.RunCycle(context.Background())

	require.Len(t, logs.Prices.Entries(), 2)

	opportunities := logs.Opportunities.Entries()
	require.Len(t, opportunities, 1)
	var opp domain.Opportunity
	require.NoError(t, json.Unmarshal(opportunities[0], &opp))
	require.True(t, opp.Viable)
	require.Equal(t, "Kraken", opp.BuyExchange)
	require.Equal(t, "Coinbase", opp.SellExchange)

	trades := logs.Trades.Entries()
	require.Len(t, trades, 1)
	var trade domain.TradeRecord
	require.NoError(t, json.Unmarshal(trades[0], &trade))
	require.Equal(t, "SIMULATION", trade.Mode)
	require.NotNil(t, trade.Profit)
}

func TestRunCycleRecordsNonViableOpportunityWithoutTrade(t *testing.T) {
	exchanges := []domain.Exchanger{
		&stubExchange{name: "Kraken", price: decimal.RequireFromString("100.00"), present: true},
		&stubExchange{name: "Coinbase", price: decimal.RequireFromString("100.10"), present: true},
	}

	watcher, logs := testWatcher(t, exchanges, "5")
	watcher.RunCycle(context.Background())

	opportunities := logs.Opportunities.Entries()
	require.Len(t, opportunities, 1)
	var opp domain.Opportunity
	require.NoError(t, json.Unmarshal(opportunities[0], &opp))
	require.False(t, opp.Viable)

	require.Empty(t, logs.Trades.Entries())
}

func TestRunCycleToleratesAbsentQuotes(t *testing.T) {
	exchanges := []domain.Exchanger{
		&stubExchange{name: "Kraken", present: false},
		&stubExchange{name: "Coinbase", price: decimal.RequireFromString("100.00"), present: true},
		&stubExchange{name: "Binance", price: decimal.RequireFromString("103.00"), present: true},
	}

	watcher, logs := testWatcher(t, exchanges, "0.1")
	watcher.RunCycle(context.Background())

	// the absent Kraken quote is dropped, detection runs on the other two
	require.Len(t, logs.Prices.Entries(), 2)

	opportunities := logs.Opportunities.Entries()
	require.Len(t, opportunities, 1)
	var opp domain.Opportunity
	require.NoError(t, json.Unmarshal(opportunities[0], &opp))
	require.Equal(t, "Coinbase", opp.BuyExchange)
	require.Equal(t, "Binance", opp.SellExchange)
}

func TestRunCycleSkipsPairWithSingleQuote(t *testing.T) {
	exchanges := []domain.Exchanger{
		&stubExchange{name: "Kraken", present: false},
		&stubExchange{name: "Coinbase", price: decimal.RequireFromString("100.00"), present: true},
	}

	watcher, logs := testWatcher(t, exchanges, "0.1")
	watcher.RunCycle(context.Background())

	require.Len(t, logs.Prices.Entries(), 1)
	require.Empty(t, logs.Opportunities.Entries())
	require.Empty(t, logs.Trades.Entries())
}
