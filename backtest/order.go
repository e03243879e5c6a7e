package backtest

import "time"

// OrderKind enumerates the closed order-kind vocabulary
type OrderKind int

// Order kinds. OneCancelsOther is declared for wire compatibility
// but has no evaluation rule.
const (
	MarketBuy OrderKind = iota
	MarketSell
	StopLoss
	TakeProfit
	TrailingStop
	OneCancelsOther
)

// String returns the kind name used to tag triggered trades
func (k OrderKind) String() string {
	switch k {
	case MarketBuy:
		return "buy_market"
	case MarketSell:
		return "sell_market"
	case StopLoss:
		return "stop_loss"
	case TakeProfit:
		return "take_profit"
	case TrailingStop:
		return "trailing_stop"
	case OneCancelsOther:
		return "oco"
	}
	return "unknown"
}

// Condition is the kind-specific payload of a conditional order.
// Update is called once per evaluation with the current price and
// reports whether the order triggers.
type Condition interface {
	Kind() OrderKind
	Update(price float64) (triggered bool)
}

// StopLossCondition triggers when price falls to the trigger or below
type StopLossCondition struct {
	Trigger float64
}

// Kind implements Condition
func (c *StopLossCondition) Kind() OrderKind { return StopLoss }

// Update implements Condition
func (c *StopLossCondition) Update(price float64) bool {
	return price <= c.Trigger
}

// TakeProfitCondition triggers when price rises to the trigger or above
type TakeProfitCondition struct {
	Trigger float64
}

// Kind implements Condition
func (c *TakeProfitCondition) Kind() OrderKind { return TakeProfit }

// Update implements Condition
func (c *TakeProfitCondition) Update(price float64) bool {
	return price >= c.Trigger
}

// TrailingStopCondition follows the high-water price upwards.
// The trigger only tightens, never loosens.
type TrailingStopCondition struct {
	TrailPercent float64
	HighWater    float64
	Trigger      float64
}

// Kind implements Condition
func (c *TrailingStopCondition) Kind() OrderKind { return TrailingStop }

// Update raises the high-water mark before checking the trigger
func (c *TrailingStopCondition) Update(price float64) bool {
	if price > c.HighWater {
		c.HighWater = price
		c.Trigger = c.HighWater * (1 - c.TrailPercent)
	}
	return price <= c.Trigger
}

// Order is a standing conditional instruction derived from a filled buy.
// It is owned exclusively by the portfolio's open-order set and removed
// there once it triggers or expires.
type Order struct {
	ID          int64
	Symbol      string
	Quantity    float64
	SellPortion float64
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	Cond        Condition
}

// Expired reports whether the order has reached its expiry time
func (o *Order) Expired(ts time.Time) bool {
	return o.ExpiresAt != nil && !ts.Before(*o.ExpiresAt)
}
