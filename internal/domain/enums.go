package domain

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	return []string{"buy", "sell"}[s]
}

type TradeMode int

const (
	Simulation TradeMode = iota
	Live
)

func (m TradeMode) String() string {
	return []string{"SIMULATION", "LIVE"}[m]
}

type OrderType int

const (
	Limit OrderType = iota
	Market
)

func (o OrderType) String() string {
	return []string{"limit", "market"}[o]
}
