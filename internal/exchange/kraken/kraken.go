package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crypto-spot-arbitrage/internal/domain"
	"crypto-spot-arbitrage/internal/exchange"
)

const krakenApiBaseUrl = "https://api.kraken.com"

// Kraken renames major assets under its own ticker convention, so USD pairs
// need a remapping table before hitting the API.
var pairNames = map[string]string{
	"BTC/USD":  "XXBTZUSD",
	"ETH/USD":  "XETHZUSD",
	"DOGE/USD": "XDGUSD",
}

type Client struct {
	baseUrl      string
	apiKey       string
	apiSecret    string
	transport    *exchange.Transport
	logger       *zap.Logger
	minVolumes   map[string]decimal.Decimal
	minVolumesMu sync.Mutex
}

func New(apiKey string, apiSecret string, transport *exchange.Transport, logger *zap.Logger) *Client {
	return &Client{
		baseUrl:    krakenApiBaseUrl,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		transport:  transport,
		logger:     logger,
		minVolumes: make(map[string]decimal.Decimal),
	}
}

func (c *Client) Name() string {
	return "Kraken"
}

func (c *Client) pairName(symbol string, currency string) string {
	key := strings.ToUpper(symbol) + "/" + strings.ToUpper(currency)
	if mapped, ok := pairNames[key]; ok {
		return mapped
	}
	return strings.ToUpper(symbol) + strings.ToUpper(currency)
}

type tickerResponse struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		Close []string `json:"c"`
	} `json:"result"`
}

func (c *Client) GetPrice(ctx context.Context, symbol string, currency string) (decimal.Decimal, bool) {
	pair := c.pairName(symbol, currency)

	body, _, err := c.transport.Do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.baseUrl+"/0/public/Ticker?pair="+url.QueryEscape(pair), nil)
	})
	if err != nil {
		c.logger.Error("kraken price request failed", zap.String("pair", pair), zap.Error(err))
		return decimal.Decimal{}, false
	}

	var resp tickerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("kraken ticker response unreadable", zap.String("pair", pair), zap.Error(err))
		return decimal.Decimal{}, false
	}
	if len(resp.Error) > 0 || len(resp.Result) == 0 {
		c.logger.Warn("kraken pair not found", zap.String("pair", pair), zap.Strings("api_error", resp.Error))
		return decimal.Decimal{}, false
	}

	for _, ticker := range resp.Result {
		if len(ticker.Close) == 0 {
			break
		}
		price, err := decimal.NewFromString(ticker.Close[0])
		if err != nil || !price.IsPositive() {
			break
		}
		c.logger.Info("fetched kraken price", zap.String("pair", pair), zap.String("price", price.String()))
		return price, true
	}

	c.logger.Warn("unexpected kraken ticker shape", zap.String("pair", pair))
	return decimal.Decimal{}, false
}

type assetPairsResponse struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		OrderMin string `json:"ordermin"`
	} `json:"result"`
}

func (c *Client) GetTradingPairs(ctx context.Context) []string {
	resp, ok := c.assetPairs(ctx)
	if !ok {
		return nil
	}

	pairs := make([]string, 0, len(resp.Result))
	for name := range resp.Result {
		pairs = append(pairs, name)
	}
	return pairs
}

func (c *Client) assetPairs(ctx context.Context) (*assetPairsResponse, bool) {
	body, _, err := c.transport.Do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.baseUrl+"/0/public/AssetPairs", nil)
	})
	if err != nil {
		c.logger.Error("kraken asset pairs request failed", zap.Error(err))
		return nil, false
	}

	var resp assetPairsResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Error) > 0 {
		c.logger.Error("kraken asset pairs response unreadable", zap.Error(err))
		return nil, false
	}
	return &resp, true
}

// minVolume returns Kraken's minimum order volume for the pair, cached after
// the first lookup. Zero when the minimum could not be determined.
func (c *Client) minVolume(ctx context.Context, pair string) decimal.Decimal {
	c.minVolumesMu.Lock()
	if min, ok := c.minVolumes[pair]; ok {
		c.minVolumesMu.Unlock()
		return min
	}
	c.minVolumesMu.Unlock()

	resp, ok := c.assetPairs(ctx)
	if !ok {
		return decimal.Zero
	}
	info, ok := resp.Result[pair]
	if !ok {
		c.logger.Warn("pair not listed in kraken asset pairs", zap.String("pair", pair))
		return decimal.Zero
	}
	min, err := decimal.NewFromString(info.OrderMin)
	if err != nil {
		return decimal.Zero
	}

	c.minVolumesMu.Lock()
	c.minVolumes[pair] = min
	c.minVolumesMu.Unlock()
	return min
}

type addOrderResponse struct {
	Error  []string `json:"error"`
	Result struct {
		TxID []string `json:"txid"`
	} `json:"result"`
}

func (c *Client) PlaceOrder(ctx context.Context, side domain.Side, price decimal.Decimal, quantity decimal.Decimal, symbol string, currency string) (*domain.OrderConfirmation, bool) {
	pair := c.pairName(symbol, currency)

	// Volumes below the exchange minimum are clamped up, never down.
	if min := c.minVolume(ctx, pair); min.IsPositive() && quantity.LessThan(min) {
		c.logger.Warn("order volume below kraken minimum, clamping up",
			zap.String("pair", pair),
			zap.String("requested", quantity.String()),
			zap.String("minimum", min.String()))
		quantity = min
	}

	data := url.Values{}
	data.Set("pair", pair)
	data.Set("type", side.String())
	data.Set("ordertype", "limit")
	data.Set("price", price.StringFixed(4))
	data.Set("volume", quantity.StringFixed(6))

	body, _, err := c.transport.Do(ctx, func() (*http.Request, error) {
		return c.signedRequest("/0/private/AddOrder", data)
	})
	if err != nil {
		c.logger.Error("kraken order request failed", zap.String("pair", pair), zap.Error(err))
		return nil, false
	}

	var resp addOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("kraken order response unreadable", zap.String("pair", pair), zap.Error(err))
		return nil, false
	}
	if len(resp.Error) > 0 || len(resp.Result.TxID) == 0 {
		c.logger.Error("kraken rejected order", zap.String("pair", pair), zap.Strings("api_error", resp.Error))
		return nil, false
	}

	c.logger.Info("order placed on kraken",
		zap.String("pair", pair),
		zap.String("side", side.String()),
		zap.String("txid", resp.Result.TxID[0]))

	return &domain.OrderConfirmation{
		Exchange: c.Name(),
		OrderID:  resp.Result.TxID[0],
		Side:     side,
		Price:    price,
		Quantity: quantity,
	}, true
}

type balanceResponse struct {
	Error  []string          `json:"error"`
	Result map[string]string `json:"result"`
}

func (c *Client) GetBalance(ctx context.Context) (map[string]decimal.Decimal, bool) {
	body, _, err := c.transport.Do(ctx, func() (*http.Request, error) {
		return c.signedRequest("/0/private/Balance", url.Values{})
	})
	if err != nil {
		c.logger.Error("kraken balance request failed", zap.Error(err))
		return nil, false
	}

	var resp balanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("kraken balance response unreadable", zap.Error(err))
		return nil, false
	}
	if len(resp.Error) > 0 {
		c.logger.Error("kraken balance request rejected", zap.Strings("api_error", resp.Error))
		return nil, false
	}

	balances := make(map[string]decimal.Decimal, len(resp.Result))
	for asset, amount := range resp.Result {
		value, err := decimal.NewFromString(amount)
		if err != nil {
			continue
		}
		balances[asset] = value
	}
	return balances, true
}

// signedRequest builds an authenticated POST. Kraken's canonical string is
// the request path concatenated with SHA256(nonce + urlencoded form body);
// the signature is base64(HMAC-SHA512) keyed with the base64-decoded secret.
// A fresh nonce is generated per call, so retried requests re-sign.
func (c *Client) signedRequest(path string, data url.Values) (*http.Request, error) {
	nonce := strconv.FormatInt(time.Now().UnixMilli(), 10)
	data.Set("nonce", nonce)
	encoded := data.Encode()

	secret, err := base64.StdEncoding.DecodeString(c.apiSecret)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256([]byte(nonce + encoded))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequest(http.MethodPost, c.baseUrl+path, strings.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("API-Sign", signature)
	return req, nil
}
