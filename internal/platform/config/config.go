package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crypto-spot-arbitrage/internal/domain"
)

// ExchangeConfig holds the static per-exchange settings. Fees are percent
// values from the exchange's published schedule.
type ExchangeConfig struct {
	Enabled  bool
	MakerFee decimal.Decimal
	TakerFee decimal.Decimal
}

// PairConfig holds the per-pair settings. ProfitMargin is the desired profit
// in percent on top of the fee-derived threshold; TradeAmount is the fixed
// notional (in base units) used for every trade on this pair.
type PairConfig struct {
	Symbol       string
	Currency     string
	Enabled      bool
	ProfitMargin decimal.Decimal
	TradeAmount  decimal.Decimal
}

func (p PairConfig) Name() string {
	return p.Symbol + "/" + p.Currency
}

type Config struct {
	Mode                string // SIMULATION or LIVE
	OrderType           string // limit or market, applied to the buy leg
	PollIntervalSeconds int
	LogDir              string

	// ExchangePriority is the declaration order of the venues. It doubles as
	// the tie-break order during detection: first listed wins.
	ExchangePriority []string
	Exchange         map[string]ExchangeConfig

	Pairs []PairConfig

	Discord struct {
		WebhookUrl string
	}

	Dashboard struct {
		Enabled bool
		Port    int
	}
}

// Load reads and validates config.json. The result is immutable for the
// process lifetime and passed explicitly to every consumer. A load failure
// here is the only fatal error in the system.
func Load(path string) (*Config, error) {
	configBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(configBytes, &config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch strings.ToUpper(c.Mode) {
	case "", domain.Simulation.String(), domain.Live.String():
	default:
		return fmt.Errorf("invalid mode %q, expected SIMULATION or LIVE", c.Mode)
	}
	switch strings.ToLower(c.OrderType) {
	case "", domain.Limit.String(), domain.Market.String():
	default:
		return fmt.Errorf("invalid order type %q, expected limit or market", c.OrderType)
	}
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll interval must be positive, got %d", c.PollIntervalSeconds)
	}
	for _, name := range c.ExchangePriority {
		if _, ok := c.Exchange[name]; !ok {
			return fmt.Errorf("exchange %q listed in priority but has no configuration", name)
		}
	}
	for _, pair := range c.Pairs {
		if pair.Symbol == "" || pair.Currency == "" {
			return fmt.Errorf("pair with empty symbol or currency")
		}
	}
	return nil
}

func (c *Config) TradeMode() domain.TradeMode {
	if strings.ToUpper(c.Mode) == domain.Live.String() {
		return domain.Live
	}
	return domain.Simulation
}

func (c *Config) BuyOrderType() domain.OrderType {
	if strings.ToLower(c.OrderType) == domain.Market.String() {
		return domain.Market
	}
	return domain.Limit
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// FeeTable builds the immutable fee schedule passed to threshold computation.
// Only enabled exchanges get an entry, so a disabled venue fails closed.
func (c *Config) FeeTable() domain.FeeTable {
	fees := make(domain.FeeTable, len(c.Exchange))
	for name, ex := range c.Exchange {
		if !ex.Enabled {
			continue
		}
		fees[name] = domain.FeeSchedule{
			Name:     name,
			MakerFee: ex.MakerFee,
			TakerFee: ex.TakerFee,
		}
	}
	return fees
}
