package arbitrage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crypto-spot-arbitrage/internal/domain"
	"crypto-spot-arbitrage/internal/platform/config"
	"crypto-spot-arbitrage/internal/storage/jsonlog"
)

// Watcher drives the fetch -> detect -> execute -> log cycle for every
// configured pair on a fixed interval. One pair's failure never aborts the
// cycle for the others, and nothing is held across the sleep boundary.
type Watcher struct {
	exchanges []domain.Exchanger // configured priority order, first wins ties
	pairs     []config.PairConfig
	fees      domain.FeeTable
	orderType domain.OrderType
	interval  time.Duration
	executor  *Executor
	logs      *jsonlog.Set
	alerter   *Alerter // nil disables alerting
	logger    *zap.Logger
	audit     *zap.Logger
	ticker    *time.Ticker
}

func NewWatcher(
	exchanges []domain.Exchanger,
	pairs []config.PairConfig,
	fees domain.FeeTable,
	orderType domain.OrderType,
	interval time.Duration,
	executor *Executor,
	logs *jsonlog.Set,
	alerter *Alerter,
	logger *zap.Logger,
	audit *zap.Logger,
) *Watcher {
	return &Watcher{
		exchanges: exchanges,
		pairs:     pairs,
		fees:      fees,
		orderType: orderType,
		interval:  interval,
		executor:  executor,
		logs:      logs,
		alerter:   alerter,
		logger:    logger,
		audit:     audit,
	}
}

// Start blocks until ctx is done. The first cycle runs immediately, then one
// cycle per interval.
func (w *Watcher) Start(ctx context.Context) {
	w.ValidatePairs(ctx)

	w.ticker = time.NewTicker(w.interval)
	defer w.ticker.Stop()

	w.logger.Info("start watching",
		zap.Int("pairs", len(w.pairs)),
		zap.Int("exchanges", len(w.exchanges)),
		zap.String("interval", w.interval.String()))

	w.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stop watching")
			return
		case <-w.ticker.C:
			w.RunCycle(ctx)
		}
	}
}

// RunCycle processes every enabled pair once.
func (w *Watcher) RunCycle(ctx context.Context) {
	for _, pair := range w.pairs {
		if !pair.Enabled {
			continue
		}
		w.watchPair(ctx, pair)
	}
}

func (w *Watcher) watchPair(ctx context.Context, pair config.PairConfig) {
	ctx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	quotes := w.fetchQuotes(ctx, pair)

	for _, quote := range quotes {
		if err := w.logs.Prices.Append(quote); err != nil {
			w.logger.Error("failed to persist quote", zap.String("pair", pair.Name()), zap.Error(err))
		}
	}

	opportunity := Detect(pair.Name(), quotes, func(buyExchange, sellExchange string) decimal.Decimal {
		return Threshold(w.fees, buyExchange, sellExchange, pair.ProfitMargin, w.orderType)
	})
	if opportunity == nil {
		w.logger.Warn("not enough quotes to compare", zap.String("pair", pair.Name()), zap.Int("quotes", len(quotes)))
		return
	}

	if jsonBytes, err := json.Marshal(opportunity); err == nil {
		w.audit.Info(string(jsonBytes))
	}
	if err := w.logs.Opportunities.Append(opportunity); err != nil {
		w.logger.Error("failed to persist opportunity", zap.String("pair", pair.Name()), zap.Error(err))
	}

	w.logger.Info("comparison",
		zap.String("pair", pair.Name()),
		zap.String("buy", opportunity.BuyExchange),
		zap.String("sell", opportunity.SellExchange),
		zap.String("difference", opportunity.PercentDiff.StringFixed(4)),
		zap.String("threshold", opportunity.Threshold.StringFixed(4)),
		zap.Bool("viable", opportunity.Viable))

	if !opportunity.Viable {
		return
	}

	if w.alerter != nil {
		w.alerter.Alert(*opportunity)
	}

	record := w.executor.Execute(ctx, *opportunity, pair.TradeAmount, pair.Symbol, pair.Currency)
	if err := w.logs.Trades.Append(record); err != nil {
		w.logger.Error("failed to persist trade record", zap.String("pair", pair.Name()), zap.Error(err))
	}
}

// fetchQuotes pulls the pair's spot price from every exchange in parallel,
// bounded by the exchange count, and joins before returning: detection needs
// the complete quote set. Absent quotes are dropped, and the result keeps the
// configured priority order for tie-breaking.
func (w *Watcher) fetchQuotes(ctx context.Context, pair config.PairConfig) []domain.Quote {
	results := make([]*domain.Quote, len(w.exchanges))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(len(w.exchanges))
	for i, ex := range w.exchanges {
		i, ex := i, ex
		g.Go(func() error {
			price, ok := ex.GetPrice(ctx, pair.Symbol, pair.Currency)
			if !ok {
				return nil // absence was already logged by the adapter
			}
			results[i] = &domain.Quote{
				Exchange:  ex.Name(),
				Symbol:    pair.Symbol,
				Currency:  pair.Currency,
				Price:     price,
				FetchedAt: time.Now().UTC(),
			}
			return nil
		})
	}
	_ = g.Wait()

	quotes := make([]domain.Quote, 0, len(results))
	for _, q := range results {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	return quotes
}

// symbolAliases covers exchange-native renamings of base assets so that
// startup validation does not flag pairs the adapters remap themselves.
var symbolAliases = map[string][]string{
	"BTC": {"XBT"},
}

// ValidatePairs warns about configured pairs that no exchange appears to
// list. Listings use exchange-native identifiers, so the check is a substring
// match on the base symbol, good enough to catch typos at startup.
func (w *Watcher) ValidatePairs(ctx context.Context) {
	for _, ex := range w.exchanges {
		listed := ex.GetTradingPairs(ctx)
		if len(listed) == 0 {
			w.logger.Warn("could not list trading pairs", zap.String("exchange", ex.Name()))
			continue
		}
		for _, pair := range w.pairs {
			if !pair.Enabled {
				continue
			}
			symbol := strings.ToUpper(pair.Symbol)
			candidates := append([]string{symbol}, symbolAliases[symbol]...)
			found := false
			for _, id := range listed {
				for _, candidate := range candidates {
					if strings.Contains(strings.ToUpper(id), candidate) {
						found = true
						break
					}
				}
				if found {
					break
				}
			}
			if !found {
				w.logger.Warn("configured pair not listed on exchange",
					zap.String("exchange", ex.Name()),
					zap.String("pair", pair.Name()))
			}
		}
	}
}
