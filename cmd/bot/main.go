package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"crypto-spot-arbitrage/internal/arbitrage"
	"crypto-spot-arbitrage/internal/domain"
	"crypto-spot-arbitrage/internal/exchange"
	"crypto-spot-arbitrage/internal/exchange/binance"
	"crypto-spot-arbitrage/internal/exchange/coinbase"
	"crypto-spot-arbitrage/internal/exchange/kraken"
	"crypto-spot-arbitrage/internal/exchange/luno"
	"crypto-spot-arbitrage/internal/platform/config"
	"crypto-spot-arbitrage/internal/platform/logger"
	"crypto-spot-arbitrage/internal/server"
	"crypto-spot-arbitrage/internal/storage/jsonlog"
)

func main() {
	log := logger.Get()
	defer log.Sync()

	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatal("failed to load config.json", zap.Error(err))
	}

	exchanges, byName := buildExchanges(cfg, log)
	if len(exchanges) < 2 {
		log.Fatal("need at least two enabled exchanges to compare", zap.Int("enabled", len(exchanges)))
	}

	if cfg.TradeMode() == domain.Live {
		logBalances(exchanges, log)
	}

	logDir := cfg.LogDir
	if logDir == "" {
		logDir = "logs"
	}
	logs := jsonlog.NewSet(logDir)

	var alerter *arbitrage.Alerter
	if cfg.Discord.WebhookUrl != "" {
		alerter = arbitrage.NewAlerter(cfg.Discord.WebhookUrl, log)
	}

	executor := arbitrage.NewExecutor(cfg.TradeMode(), byName, log)
	watcher := arbitrage.NewWatcher(
		exchanges,
		cfg.Pairs,
		cfg.FeeTable(),
		cfg.BuyOrderType(),
		cfg.PollInterval(),
		executor,
		logs,
		alerter,
		log,
		logger.GetAuditLogger(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Dashboard.Enabled {
		dashboard := server.New(logs, log)
		dashboard.RegisterFiberRoutes()

		go func() {
			addr := fmt.Sprintf(":%d", cfg.Dashboard.Port)
			if err := dashboard.Listen(addr); err != nil {
				log.Error("dashboard server stopped", zap.Error(err))
			}
		}()
		go gracefulShutdown(ctx, dashboard, log)
	}

	log.Info("starting arbitrage bot",
		zap.String("mode", cfg.TradeMode().String()),
		zap.Int("exchanges", len(exchanges)),
		zap.Int("pairs", len(cfg.Pairs)))

	watcher.Start(ctx)
}

// buildExchanges creates an adapter per enabled exchange, in configured
// priority order. Credentials come from the environment, loaded from .env by
// godotenv. Unknown names are skipped with a warning so a config typo cannot
// take the process down.
func buildExchanges(cfg *config.Config, log *zap.Logger) ([]domain.Exchanger, map[string]domain.Exchanger) {
	var exchanges []domain.Exchanger
	byName := make(map[string]domain.Exchanger)

	for _, name := range cfg.ExchangePriority {
		if !cfg.Exchange[name].Enabled {
			continue
		}

		var ex domain.Exchanger
		switch name {
		case "Kraken":
			ex = kraken.New(
				os.Getenv("KRAKEN_API_KEY"),
				os.Getenv("KRAKEN_API_SECRET"),
				exchange.NewTransport(log),
				log)
		case "Coinbase":
			ex = coinbase.New(
				os.Getenv("COINBASE_API_KEY"),
				os.Getenv("COINBASE_API_SECRET"),
				os.Getenv("COINBASE_API_PASSPHRASE"),
				exchange.NewTransport(log),
				log)
		case "Binance":
			ex = binance.New(
				os.Getenv("BINANCE_API_KEY"),
				os.Getenv("BINANCE_API_SECRET"),
				exchange.NewTransport(log),
				log)
		case "Luno":
			ex = luno.New(
				os.Getenv("LUNO_API_KEY_ID"),
				os.Getenv("LUNO_API_KEY_SECRET"),
				log)
		default:
			log.Warn("no adapter for configured exchange", zap.String("exchange", name))
			continue
		}

		exchanges = append(exchanges, ex)
		byName[name] = ex
	}

	return exchanges, byName
}

// logBalances snapshots the funded assets on every venue before live trading
// starts, so the operator sees what capital each leg can draw on.
func logBalances(exchanges []domain.Exchanger, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, ex := range exchanges {
		balances, ok := ex.GetBalance(ctx)
		if !ok {
			log.Warn("could not fetch starting balance", zap.String("exchange", ex.Name()))
			continue
		}
		for asset, amount := range balances {
			if amount.IsPositive() {
				log.Info("starting balance",
					zap.String("exchange", ex.Name()),
					zap.String("asset", asset),
					zap.String("amount", amount.String()))
			}
		}
	}
}

func gracefulShutdown(ctx context.Context, dashboard *server.FiberServer, log *zap.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dashboard.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("dashboard forced to shutdown", zap.Error(err))
	}
}
