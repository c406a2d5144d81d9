package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LegResult reports the outcome of one side of a two-exchange trade. Legs
// fail independently; a failed leg never rolls back the other one.
type LegResult struct {
	Exchange string `json:"exchange"`
	Side     string `json:"side"`
	OK       bool   `json:"ok"`
	OrderID  string `json:"order_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// TradeRecord is the append-only outcome of executing a viable opportunity.
// Profit is hypothetical in SIMULATION mode and nil for LIVE trades, whose
// fills settle outside this process.
type TradeRecord struct {
	Opportunity Opportunity      `json:"opportunity"`
	Mode        string           `json:"mode"`
	Amount      decimal.Decimal  `json:"amount"`
	Profit      *decimal.Decimal `json:"profit"`
	BuyLeg      *LegResult       `json:"buy_leg,omitempty"`
	SellLeg     *LegResult       `json:"sell_leg,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}
