package arbitrage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crypto-spot-arbitrage/internal/domain"
)

// ExecutorState tracks the cycle-scoped trade state machine:
// IDLE -> EVALUATING -> {SIMULATING | EXECUTING} -> LOGGED -> IDLE.
type ExecutorState int

const (
	StateIdle ExecutorState = iota
	StateEvaluating
	StateSimulating
	StateExecuting
	StateLogged
)

func (s ExecutorState) String() string {
	return []string{"IDLE", "EVALUATING", "SIMULATING", "EXECUTING", "LOGGED"}[s]
}

// Executor turns a viable opportunity into a trade record, either simulated
// or live. No state survives across cycles; the machine always returns to
// IDLE after the record is built.
type Executor struct {
	mode      domain.TradeMode
	exchanges map[string]domain.Exchanger
	logger    *zap.Logger
	state     ExecutorState
}

func NewExecutor(mode domain.TradeMode, exchanges map[string]domain.Exchanger, logger *zap.Logger) *Executor {
	return &Executor{
		mode:      mode,
		exchanges: exchanges,
		logger:    logger,
		state:     StateIdle,
	}
}

func (e *Executor) State() ExecutorState {
	return e.state
}

// Execute runs one trade for the opportunity with the pair's fixed notional.
// Simulation never fails. Live mode places the buy leg and then the sell leg
// sequentially; each leg fails independently and a failed sell after a
// successful buy leaves an open position that is reported, not unwound.
func (e *Executor) Execute(ctx context.Context, opp domain.Opportunity, amount decimal.Decimal, symbol string, currency string) domain.TradeRecord {
	e.state = StateEvaluating
	defer func() { e.state = StateIdle }()

	e.logger.Info("executing trade",
		zap.String("pair", opp.Pair),
		zap.String("mode", e.mode.String()),
		zap.String("buy_exchange", opp.BuyExchange),
		zap.String("sell_exchange", opp.SellExchange),
		zap.String("buy_price", opp.BuyPrice.String()),
		zap.String("sell_price", opp.SellPrice.String()))

	var record domain.TradeRecord
	if e.mode == domain.Simulation {
		e.state = StateSimulating
		record = e.simulate(opp, amount)
	} else {
		e.state = StateExecuting
		record = e.executeLive(ctx, opp, amount, symbol, currency)
	}
	e.state = StateLogged

	return record
}

// simulate computes the hypothetical profit for the fixed notional:
// amount * spread minus the fee-threshold cost on the buy notional.
func (e *Executor) simulate(opp domain.Opportunity, amount decimal.Decimal) domain.TradeRecord {
	spread := opp.SellPrice.Sub(opp.BuyPrice)
	cost := amount.Mul(opp.BuyPrice).Mul(opp.Threshold).Div(oneHundred)
	profit := amount.Mul(spread).Sub(cost)

	e.logger.Info("simulated trade",
		zap.String("pair", opp.Pair),
		zap.String("amount", amount.String()),
		zap.String("profit", profit.String()))

	return domain.TradeRecord{
		Opportunity: opp,
		Mode:        domain.Simulation.String(),
		Amount:      amount,
		Profit:      &profit,
		Timestamp:   time.Now().UTC(),
	}
}

func (e *Executor) executeLive(ctx context.Context, opp domain.Opportunity, amount decimal.Decimal, symbol string, currency string) domain.TradeRecord {
	buyLeg := e.placeLeg(ctx, opp.BuyExchange, domain.Buy, opp.BuyPrice, amount, symbol, currency)
	sellLeg := e.placeLeg(ctx, opp.SellExchange, domain.Sell, opp.SellPrice, amount, symbol, currency)

	if buyLeg.OK != sellLeg.OK {
		e.logger.Error("partial trade execution, open position left in place",
			zap.String("pair", opp.Pair),
			zap.Bool("buy_ok", buyLeg.OK),
			zap.Bool("sell_ok", sellLeg.OK))
	}

	// Live profit settles outside this process, so the record carries none.
	return domain.TradeRecord{
		Opportunity: opp,
		Mode:        domain.Live.String(),
		Amount:      amount,
		BuyLeg:      buyLeg,
		SellLeg:     sellLeg,
		Timestamp:   time.Now().UTC(),
	}
}

func (e *Executor) placeLeg(ctx context.Context, exchangeName string, side domain.Side, price decimal.Decimal, amount decimal.Decimal, symbol string, currency string) *domain.LegResult {
	leg := &domain.LegResult{
		Exchange: exchangeName,
		Side:     side.String(),
	}

	ex, ok := e.exchanges[exchangeName]
	if !ok {
		leg.Error = "exchange not configured"
		e.logger.Error("trade leg references unknown exchange", zap.String("exchange", exchangeName))
		return leg
	}

	confirmation, ok := ex.PlaceOrder(ctx, side, price, amount, symbol, currency)
	if !ok {
		leg.Error = "order rejected or request failed"
		e.logger.Error("trade leg failed",
			zap.String("exchange", exchangeName),
			zap.String("side", side.String()))
		return leg
	}

	leg.OK = true
	leg.OrderID = confirmation.OrderID
	return leg
}
