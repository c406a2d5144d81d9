package coinbase

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crypto-spot-arbitrage/internal/domain"
	"crypto-spot-arbitrage/internal/exchange"
)

// Coinbase splits its surface across two hosts: the general API serves spot
// prices, the exchange API serves products, orders and accounts.
const (
	coinbasePriceBaseUrl    = "https://api.coinbase.com/v2"
	coinbaseExchangeBaseUrl = "https://api.exchange.coinbase.com"
)

type Client struct {
	priceBaseUrl    string
	exchangeBaseUrl string
	apiKey          string
	apiSecret       string
	apiPassphrase   string
	transport       *exchange.Transport
	logger          *zap.Logger
}

func New(apiKey string, apiSecret string, apiPassphrase string, transport *exchange.Transport, logger *zap.Logger) *Client {
	return &Client{
		priceBaseUrl:    coinbasePriceBaseUrl,
		exchangeBaseUrl: coinbaseExchangeBaseUrl,
		apiKey:          apiKey,
		apiSecret:       apiSecret,
		apiPassphrase:   apiPassphrase,
		transport:       transport,
		logger:          logger,
	}
}

func (c *Client) Name() string {
	return "Coinbase"
}

func (c *Client) productID(symbol string, currency string) string {
	return strings.ToUpper(symbol) + "-" + strings.ToUpper(currency)
}

type spotPriceResponse struct {
	Data struct {
		Amount string `json:"amount"`
	} `json:"data"`
}

func (c *Client) GetPrice(ctx context.Context, symbol string, currency string) (decimal.Decimal, bool) {
	pair := c.productID(symbol, currency)

	body, status, err := c.transport.Do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.priceBaseUrl+"/prices/"+pair+"/spot", nil)
	})
	if err != nil {
		c.logger.Error("coinbase price request failed", zap.String("pair", pair), zap.Error(err))
		return decimal.Decimal{}, false
	}
	if status == http.StatusNotFound {
		c.logger.Warn("coinbase pair not found", zap.String("pair", pair))
		return decimal.Decimal{}, false
	}

	var resp spotPriceResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Data.Amount == "" {
		c.logger.Error("unexpected coinbase spot price shape", zap.String("pair", pair))
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(resp.Data.Amount)
	if err != nil || !price.IsPositive() {
		c.logger.Error("unparseable coinbase price", zap.String("pair", pair), zap.String("amount", resp.Data.Amount))
		return decimal.Decimal{}, false
	}

	c.logger.Info("fetched coinbase price", zap.String("pair", pair), zap.String("price", price.String()))
	return price, true
}

type product struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *Client) GetTradingPairs(ctx context.Context) []string {
	body, _, err := c.transport.Do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.exchangeBaseUrl+"/products", nil)
	})
	if err != nil {
		c.logger.Error("coinbase products request failed", zap.Error(err))
		return nil
	}

	var products []product
	if err := json.Unmarshal(body, &products); err != nil {
		c.logger.Error("coinbase products response unreadable", zap.Error(err))
		return nil
	}

	pairs := make([]string, 0, len(products))
	for _, p := range products {
		if p.Status == "online" {
			pairs = append(pairs, p.ID)
		}
	}
	return pairs
}

type orderResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (c *Client) PlaceOrder(ctx context.Context, side domain.Side, price decimal.Decimal, quantity decimal.Decimal, symbol string, currency string) (*domain.OrderConfirmation, bool) {
	pair := c.productID(symbol, currency)

	payload, err := json.Marshal(map[string]string{
		"product_id": pair,
		"side":       side.String(),
		"price":      price.StringFixed(4),
		"size":       quantity.StringFixed(6),
		"type":       "limit",
	})
	if err != nil {
		return nil, false
	}

	body, status, err := c.transport.Do(ctx, func() (*http.Request, error) {
		return c.signedRequest(http.MethodPost, "/orders", payload)
	})
	if err != nil {
		c.logger.Error("coinbase order request failed", zap.String("pair", pair), zap.Error(err))
		return nil, false
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil || status >= 400 || resp.ID == "" {
		c.logger.Error("coinbase rejected order",
			zap.String("pair", pair),
			zap.Int("status", status),
			zap.String("message", resp.Message))
		return nil, false
	}

	c.logger.Info("order placed on coinbase",
		zap.String("pair", pair),
		zap.String("side", side.String()),
		zap.String("order_id", resp.ID))

	return &domain.OrderConfirmation{
		Exchange: c.Name(),
		OrderID:  resp.ID,
		Side:     side,
		Price:    price,
		Quantity: quantity,
	}, true
}

type account struct {
	Currency  string `json:"currency"`
	Available string `json:"available"`
}

func (c *Client) GetBalance(ctx context.Context) (map[string]decimal.Decimal, bool) {
	body, status, err := c.transport.Do(ctx, func() (*http.Request, error) {
		return c.signedRequest(http.MethodGet, "/accounts", nil)
	})
	if err != nil || status >= 400 {
		c.logger.Error("coinbase balance request failed", zap.Int("status", status), zap.Error(err))
		return nil, false
	}

	var accounts []account
	if err := json.Unmarshal(body, &accounts); err != nil {
		c.logger.Error("coinbase accounts response unreadable", zap.Error(err))
		return nil, false
	}

	balances := make(map[string]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		value, err := decimal.NewFromString(a.Available)
		if err != nil {
			continue
		}
		balances[a.Currency] = value
	}
	return balances, true
}

// signedRequest builds an authenticated exchange-API request. Coinbase's
// canonical string is timestamp + method + path + body; the signature is
// base64(HMAC-SHA256) keyed with the base64-decoded secret and sent alongside
// the key and passphrase headers.
func (c *Client) signedRequest(method string, path string, payload []byte) (*http.Request, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	secret, err := base64.StdEncoding.DecodeString(c.apiSecret)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp + method + path))
	mac.Write(payload)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequest(method, c.exchangeBaseUrl+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("CB-ACCESS-KEY", c.apiKey)
	req.Header.Set("CB-ACCESS-SIGN", signature)
	req.Header.Set("CB-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("CB-ACCESS-PASSPHRASE", c.apiPassphrase)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
