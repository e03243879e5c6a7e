package backtest

import "time"

// Action is the direction of a trading signal
type Action string

// Buy and Sell actions
const (
	Buy  Action = "buy"
	Sell Action = "sell"
)

// Params carries sizing and risk parameters of a signal.
// The engine reads only what execution requires, the rest is passed through.
type Params struct {
	Portion      float64 `json:"portion,omitempty"`
	QuoteValue   float64 `json:"usdc_value,omitempty"`
	SellPortion  float64 `json:"portion_sell,omitempty"`
	StopLoss     float64 `json:"stop_loss,omitempty"`
	TakeProfit   float64 `json:"take_profit,omitempty"`
	TrailingStop float64 `json:"trailing_stop,omitempty"`
	Duration     int     `json:"duration,omitempty"`
	CloseAnyway  bool    `json:"close_anyway,omitempty"`
}

// sellPortion is the portion of holdings a sell covers, 1.0 when unset
func (p Params) sellPortion() float64 {
	if p.Portion == 0 {
		return 1.0
	}
	return p.Portion
}

// conditionalPortion is the portion a derived conditional order sells, 1.0 when unset
func (p Params) conditionalPortion() float64 {
	if p.SellPortion == 0 {
		return 1.0
	}
	return p.SellPortion
}

// Signal is one trading instruction produced by a strategy
type Signal struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Action    Action    `json:"type"`
	Params    Params    `json:"params"`
}

// Trade is an immutable record of an executed fill.
// Rejected attempts are never appended to the ledger.
type Trade struct {
	Timestamp   time.Time `json:"timestamp"`
	Symbol      string    `json:"symbol"`
	Action      Action    `json:"type"`
	Price       float64   `json:"price"`
	Quantity    float64   `json:"quantity"`
	UsdValue    float64   `json:"usd_value"`
	Commission  float64   `json:"commission"`
	Executed    bool      `json:"executed"`
	Params      Params    `json:"params"`
	OrderKind   string    `json:"order_type,omitempty"`
	TriggeredBy int64     `json:"triggered_by,omitempty"`
}

// GraphData is the equity and benchmark series, one point per grid step
type GraphData struct {
	Timestamp  []time.Time `json:"timestamp"`
	TotalValue []float64   `json:"total_value"`
	Benchmark  []float64   `json:"benchmark"`
}

// Summary is a snapshot of the portfolio state
type Summary struct {
	InitialCapital     float64            `json:"initial_capital"`
	FinalValue         float64            `json:"final_value"`
	TotalReturn        float64            `json:"total_return"`
	BenchmarkReturn    float64            `json:"benchmark_return"`
	Cash               float64            `json:"cash"`
	TotalPositionValue float64            `json:"total_position_value"`
	Positions          map[string]float64 `json:"positions"`
	PositionValues     map[string]float64 `json:"position_values"`
	TotalTrades        int                `json:"total_trades"`
	TotalCommission    float64            `json:"total_commission"`
	OpenOrders         int                `json:"open_orders"`
}

// Result bundles a finished run for the metrics and API layers
type Result struct {
	PortfolioSummary Summary   `json:"portfolio_summary"`
	TradesHistory    []Trade   `json:"trades_history"`
	GraphData        GraphData `json:"graph_data"`
}
