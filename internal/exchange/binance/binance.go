package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crypto-spot-arbitrage/internal/domain"
	"crypto-spot-arbitrage/internal/exchange"
)

const binanceApiBaseUrl = "https://api.binance.us/api/v3"

type Client struct {
	baseUrl   string
	apiKey    string
	apiSecret string
	transport *exchange.Transport
	logger    *zap.Logger
}

func New(apiKey string, apiSecret string, transport *exchange.Transport, logger *zap.Logger) *Client {
	return &Client{
		baseUrl:   binanceApiBaseUrl,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		transport: transport,
		logger:    logger,
	}
}

func (c *Client) Name() string {
	return "Binance"
}

// Binance has no direct USD markets; USD pairs trade against USDT.
func (c *Client) symbolName(symbol string, currency string) string {
	currency = strings.ToUpper(currency)
	if currency == "USD" {
		currency = "USDT"
	}
	return strings.ToUpper(symbol) + currency
}

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func (c *Client) GetPrice(ctx context.Context, symbol string, currency string) (decimal.Decimal, bool) {
	pair := c.symbolName(symbol, currency)

	body, status, err := c.transport.Do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.baseUrl+"/ticker/price?symbol="+url.QueryEscape(pair), nil)
	})
	if err != nil {
		c.logger.Error("binance price request failed", zap.String("symbol", pair), zap.Error(err))
		return decimal.Decimal{}, false
	}
	if status >= 400 {
		c.logger.Warn("binance symbol not found", zap.String("symbol", pair), zap.Int("status", status))
		return decimal.Decimal{}, false
	}

	var resp tickerPriceResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Price == "" {
		c.logger.Error("unexpected binance ticker shape", zap.String("symbol", pair))
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(resp.Price)
	if err != nil || !price.IsPositive() {
		c.logger.Error("unparseable binance price", zap.String("symbol", pair), zap.String("price", resp.Price))
		return decimal.Decimal{}, false
	}

	c.logger.Info("fetched binance price", zap.String("symbol", pair), zap.String("price", price.String()))
	return price, true
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol string `json:"symbol"`
		Status string `json:"status"`
	} `json:"symbols"`
}

func (c *Client) GetTradingPairs(ctx context.Context) []string {
	body, _, err := c.transport.Do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.baseUrl+"/exchangeInfo", nil)
	})
	if err != nil {
		c.logger.Error("binance exchange info request failed", zap.Error(err))
		return nil
	}

	var resp exchangeInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("binance exchange info response unreadable", zap.Error(err))
		return nil
	}

	pairs := make([]string, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		if s.Status == "TRADING" {
			pairs = append(pairs, s.Symbol)
		}
	}
	return pairs
}

type newOrderResponse struct {
	OrderID int64  `json:"orderId"`
	Msg     string `json:"msg"`
}

func (c *Client) PlaceOrder(ctx context.Context, side domain.Side, price decimal.Decimal, quantity decimal.Decimal, symbol string, currency string) (*domain.OrderConfirmation, bool) {
	pair := c.symbolName(symbol, currency)

	body, status, err := c.transport.Do(ctx, func() (*http.Request, error) {
		params := url.Values{}
		params.Set("symbol", pair)
		params.Set("side", strings.ToUpper(side.String()))
		params.Set("type", "LIMIT")
		params.Set("timeInForce", "GTC")
		params.Set("quantity", quantity.StringFixed(6))
		params.Set("price", price.StringFixed(2))
		return c.signedRequest(http.MethodPost, "/order", params)
	})
	if err != nil {
		c.logger.Error("binance order request failed", zap.String("symbol", pair), zap.Error(err))
		return nil, false
	}

	var resp newOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil || status >= 400 || resp.OrderID == 0 {
		c.logger.Error("binance rejected order",
			zap.String("symbol", pair),
			zap.Int("status", status),
			zap.String("message", resp.Msg))
		return nil, false
	}

	c.logger.Info("order placed on binance",
		zap.String("symbol", pair),
		zap.String("side", side.String()),
		zap.Int64("order_id", resp.OrderID))

	return &domain.OrderConfirmation{
		Exchange: c.Name(),
		OrderID:  strconv.FormatInt(resp.OrderID, 10),
		Side:     side,
		Price:    price,
		Quantity: quantity,
	}, true
}

type accountResponse struct {
	Balances []struct {
		Asset string `json:"asset"`
		Free  string `json:"free"`
	} `json:"balances"`
}

func (c *Client) GetBalance(ctx context.Context) (map[string]decimal.Decimal, bool) {
	body, status, err := c.transport.Do(ctx, func() (*http.Request, error) {
		return c.signedRequest(http.MethodGet, "/account", url.Values{})
	})
	if err != nil || status >= 400 {
		c.logger.Error("binance balance request failed", zap.Int("status", status), zap.Error(err))
		return nil, false
	}

	var resp accountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("binance account response unreadable", zap.Error(err))
		return nil, false
	}

	balances := make(map[string]decimal.Decimal, len(resp.Balances))
	for _, b := range resp.Balances {
		value, err := decimal.NewFromString(b.Free)
		if err != nil {
			continue
		}
		balances[b.Asset] = value
	}
	return balances, true
}

// signedRequest builds an authenticated request. Binance's canonical string
// is the urlencoded query (including a fresh millisecond timestamp); the
// signature is hex(HMAC-SHA256) appended as the signature parameter, with the
// key in the X-MBX-APIKEY header.
func (c *Client) signedRequest(method string, path string, params url.Values) (*http.Request, error) {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(params.Encode()))
	params.Set("signature", hex.EncodeToString(mac.Sum(nil)))

	req, err := http.NewRequest(method, c.baseUrl+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	return req, nil
}
