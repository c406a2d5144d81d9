package luno

import (
	"context"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/luno/luno-go"
	lunodecimal "github.com/luno/luno-go/decimal"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crypto-spot-arbitrage/internal/domain"
)

const (
	retryAttempts = 3
	retryMin      = 500 * time.Millisecond
	retryMax      = 8 * time.Second
)

// Client adapts the official Luno SDK to the Exchanger capability interface.
// The SDK owns signing and transport; this adapter only adds pair naming,
// the retry budget and absence semantics.
type Client struct {
	lunoClient *luno.Client
	logger     *zap.Logger
}

func New(apiKeyID string, apiKeySecret string, logger *zap.Logger) *Client {
	lunoClient := luno.NewClient()
	lunoClient.SetAuth(apiKeyID, apiKeySecret)

	return &Client{
		lunoClient: lunoClient,
		logger:     logger,
	}
}

func (c *Client) Name() string {
	return "Luno"
}

// Luno lists Bitcoin as XBT.
func (c *Client) pairName(symbol string, currency string) string {
	symbol = strings.ToUpper(symbol)
	if symbol == "BTC" {
		symbol = "XBT"
	}
	return symbol + strings.ToUpper(currency)
}

// retry runs fn up to the attempt budget with exponential backoff, mirroring
// the discipline of the REST transport for SDK-issued calls.
func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	b := &backoff.Backoff{Min: retryMin, Max: retryMax, Factor: 2}

	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		c.logger.Warn("luno call failed", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		if attempt == retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
	return err
}

func (c *Client) GetPrice(ctx context.Context, symbol string, currency string) (decimal.Decimal, bool) {
	pair := c.pairName(symbol, currency)

	var res *luno.GetTickerResponse
	err := c.retry(ctx, "get_ticker", func() error {
		var callErr error
		res, callErr = c.lunoClient.GetTicker(ctx, &luno.GetTickerRequest{Pair: pair})
		return callErr
	})
	if err != nil {
		c.logger.Error("luno price request failed", zap.String("pair", pair), zap.Error(err))
		return decimal.Decimal{}, false
	}

	price, convErr := decimal.NewFromString(res.LastTrade.String())
	if convErr != nil || !price.IsPositive() {
		c.logger.Warn("luno returned no trade price", zap.String("pair", pair))
		return decimal.Decimal{}, false
	}

	c.logger.Info("fetched luno price", zap.String("pair", pair), zap.String("price", price.String()))
	return price, true
}

func (c *Client) GetTradingPairs(ctx context.Context) []string {
	var res *luno.GetTickersResponse
	err := c.retry(ctx, "get_tickers", func() error {
		var callErr error
		res, callErr = c.lunoClient.GetTickers(ctx, &luno.GetTickersRequest{})
		return callErr
	})
	if err != nil {
		c.logger.Error("luno tickers request failed", zap.Error(err))
		return nil
	}

	pairs := make([]string, 0, len(res.Tickers))
	for _, t := range res.Tickers {
		pairs = append(pairs, t.Pair)
	}
	return pairs
}

func (c *Client) PlaceOrder(ctx context.Context, side domain.Side, price decimal.Decimal, quantity decimal.Decimal, symbol string, currency string) (*domain.OrderConfirmation, bool) {
	pair := c.pairName(symbol, currency)

	orderType := luno.OrderTypeBid
	if side == domain.Sell {
		orderType = luno.OrderTypeAsk
	}

	req := &luno.PostLimitOrderRequest{
		Pair:   pair,
		Type:   orderType,
		Price:  lunodecimal.NewFromFloat64(price.InexactFloat64(), -4),
		Volume: lunodecimal.NewFromFloat64(quantity.InexactFloat64(), -8),
	}

	var res *luno.PostLimitOrderResponse
	err := c.retry(ctx, "post_limit_order", func() error {
		var callErr error
		res, callErr = c.lunoClient.PostLimitOrder(ctx, req)
		return callErr
	})
	if err != nil {
		c.logger.Error("luno rejected order", zap.String("pair", pair), zap.String("side", side.String()), zap.Error(err))
		return nil, false
	}

	c.logger.Info("order placed on luno",
		zap.String("pair", pair),
		zap.String("side", side.String()),
		zap.String("order_id", res.OrderId))

	return &domain.OrderConfirmation{
		Exchange: c.Name(),
		OrderID:  res.OrderId,
		Side:     side,
		Price:    price,
		Quantity: quantity,
	}, true
}

func (c *Client) GetBalance(ctx context.Context) (map[string]decimal.Decimal, bool) {
	var res *luno.GetBalancesResponse
	err := c.retry(ctx, "get_balances", func() error {
		var callErr error
		res, callErr = c.lunoClient.GetBalances(ctx, &luno.GetBalancesRequest{})
		return callErr
	})
	if err != nil {
		c.logger.Error("luno balance request failed", zap.Error(err))
		return nil, false
	}

	balances := make(map[string]decimal.Decimal, len(res.Balance))
	for _, b := range res.Balance {
		value, convErr := decimal.NewFromString(b.Balance.String())
		if convErr != nil {
			continue
		}
		balances[b.Asset] = value
	}
	return balances, true
}
