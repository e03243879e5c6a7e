package backtest

import (
	"sort"
	"time"

	"github.com/google/btree"
	"github.com/sirupsen/logrus"

	"github.com/jumpei00/gocryptobacktest/app/models"
)

// minNotional is the smallest trade value accepted, in quote currency
const minNotional = 5.0

// priceSeries is an in-memory close-price series for one symbol
type priceSeries struct {
	times  []time.Time
	closes []float64
}

// at returns the close price at ts, else the close at the latest time
// before ts, else the earliest close
func (s *priceSeries) at(ts time.Time) float64 {
	if len(s.times) == 0 {
		return 0
	}

	// first index with times[i] > ts
	i := sort.Search(len(s.times), func(i int) bool { return s.times[i].After(ts) })
	if i == 0 {
		return s.closes[0]
	}
	return s.closes[i-1]
}

// Portfolio simulates a multi-pair trading portfolio with conditional orders.
// It is the only owner of cash, positions, the open-order set and the ledger,
// and is driven by a single goroutine.
type Portfolio struct {
	InitialCapital  float64
	CommissionRate  float64
	Symbols         []string
	Cash            float64
	Positions       map[string]float64
	Trades          []Trade
	GraphData       GraphData
	TotalCommission float64

	openOrders *btree.BTreeG[*Order]
	orderSeq   int64
	period     time.Duration

	benchmarkPositions map[string]float64
	marketData         map[string]*priceSeries
	currentPrices      map[string]float64

	log logrus.FieldLogger
}

// NewPortfolio returns a Portfolio logging to logger,
// or to the standard logger when logger is nil
func NewPortfolio(logger logrus.FieldLogger) *Portfolio {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	p := &Portfolio{log: logger}
	p.Reset(10000, 0.001, nil)
	return p
}

// Reset clears all state and sets new run parameters, always succeeds
func (p *Portfolio) Reset(initialCapital, commissionRate float64, symbols []string) {
	p.InitialCapital = initialCapital
	p.CommissionRate = commissionRate
	p.Symbols = symbols
	p.Cash = initialCapital
	p.Positions = map[string]float64{}
	p.Trades = nil
	p.GraphData = GraphData{}
	p.TotalCommission = 0
	p.openOrders = btree.NewG[*Order](2, func(a, b *Order) bool { return a.ID < b.ID })
	p.orderSeq = 0
	p.benchmarkPositions = map[string]float64{}
	p.marketData = nil
	p.currentPrices = map[string]float64{}

	p.log.Infof("portfolio reset: %v", initialCapital)
}

// SetPeriod sets the grid step used to convert order durations into expiry times
func (p *Portfolio) SetPeriod(period time.Duration) {
	p.period = period
}

// SetMarketData records the price series used for mark-to-market lookups and
// computes the fixed equal-weight buy-and-hold benchmark holdings.
// Calling it again fully replaces prior benchmark allocations.
func (p *Portfolio) SetMarketData(marketData map[string]*models.CandleFrame) {
	p.marketData = map[string]*priceSeries{}
	p.currentPrices = map[string]float64{}
	p.benchmarkPositions = map[string]float64{}

	capitalPerSymbol := 0.0
	if len(p.Symbols) > 0 {
		capitalPerSymbol = p.InitialCapital / float64(len(p.Symbols))
	}

	for symbol, cframe := range marketData {
		series := &priceSeries{times: cframe.Times(), closes: cframe.Closes()}
		p.marketData[symbol] = series

		if len(series.closes) == 0 {
			continue
		}
		p.currentPrices[symbol] = series.closes[len(series.closes)-1]
		if capitalPerSymbol > 0 && series.closes[0] > 0 {
			p.benchmarkPositions[symbol] = capitalPerSymbol / series.closes[0]
		}
	}

	p.log.Infof("market data set for %v symbols", len(marketData))
}

// PriceAt returns the close price for symbol at timestamp, falling back to the
// latest earlier bar, then the earliest bar. Zero means unpriceable and must
// never be treated as a real price.
func (p *Portfolio) PriceAt(symbol string, ts time.Time) float64 {
	series, ok := p.marketData[symbol]
	if !ok {
		return 0
	}
	return series.at(ts)
}

// TotalValue returns cash plus the mark-to-market value of all positions
func (p *Portfolio) TotalValue(ts time.Time) float64 {
	total := p.Cash
	for symbol, quantity := range p.Positions {
		if quantity > 0 {
			total += quantity * p.PriceAt(symbol, ts)
		}
	}
	return total
}

// BenchmarkValue returns the value of the static buy-and-hold allocation
func (p *Portfolio) BenchmarkValue(ts time.Time) float64 {
	total := 0.0
	for symbol, quantity := range p.benchmarkPositions {
		total += quantity * p.PriceAt(symbol, ts)
	}
	return total
}

// ExecuteTrade executes a signal against the portfolio. The returned trade
// carries Executed=false when the attempt was rejected, rejected attempts
// are not appended to the ledger.
func (p *Portfolio) ExecuteTrade(sig Signal) Trade {
	var trade Trade

	switch sig.Action {
	case Buy:
		trade = p.executeBuy(sig)
	case Sell:
		trade = p.executeSell(sig)
	default:
		return Trade{Timestamp: sig.Timestamp, Symbol: sig.Symbol, Action: sig.Action, Params: sig.Params}
	}

	if trade.Executed {
		p.Trades = append(p.Trades, trade)
		if trade.Action == Buy {
			p.createConditionalOrders(trade)
		}
	}

	return trade
}

func (p *Portfolio) executeBuy(sig Signal) Trade {
	rejected := Trade{Timestamp: sig.Timestamp, Symbol: sig.Symbol, Action: Buy, Params: sig.Params}

	var usdValue float64
	switch {
	case sig.Params.Portion > 0:
		usdValue = sig.Params.Portion * p.Cash
	case sig.Params.QuoteValue > 0:
		usdValue = sig.Params.QuoteValue
	default:
		return rejected
	}

	totalCost := usdValue * (1 + p.CommissionRate)
	if p.Cash < totalCost || usdValue <= minNotional {
		return rejected
	}

	price := p.PriceAt(sig.Symbol, sig.Timestamp)
	if price <= 0 {
		return rejected
	}

	// the commission share of the notional is not converted into quantity
	quantity := usdValue * (1 - p.CommissionRate) / price
	commission := usdValue * p.CommissionRate

	p.Cash -= totalCost
	p.Positions[sig.Symbol] += quantity
	p.TotalCommission += commission

	return Trade{
		Timestamp:  sig.Timestamp,
		Symbol:     sig.Symbol,
		Action:     Buy,
		Price:      price,
		Quantity:   quantity,
		UsdValue:   usdValue,
		Commission: commission,
		Executed:   true,
		Params:     sig.Params,
	}
}

func (p *Portfolio) executeSell(sig Signal) Trade {
	rejected := Trade{Timestamp: sig.Timestamp, Symbol: sig.Symbol, Action: Sell, Params: sig.Params}

	held := p.Positions[sig.Symbol]
	quantity := held * sig.Params.sellPortion()
	if quantity > held {
		return rejected
	}

	price := p.PriceAt(sig.Symbol, sig.Timestamp)
	if price <= 0 {
		return rejected
	}

	usdValue := quantity * price
	if usdValue <= minNotional {
		return rejected
	}

	commission := usdValue * p.CommissionRate

	p.Cash += usdValue - commission
	p.Positions[sig.Symbol] -= quantity
	p.TotalCommission += commission

	return Trade{
		Timestamp:  sig.Timestamp,
		Symbol:     sig.Symbol,
		Action:     Sell,
		Price:      price,
		Quantity:   quantity,
		UsdValue:   usdValue,
		Commission: commission,
		Executed:   true,
		Params:     sig.Params,
	}
}

// createConditionalOrders derives stop-loss, take-profit and trailing-stop
// orders from a filled buy. Multiple conditions on the same fill are not
// mutually exclusive, the standing position check at execution time is the
// only oversell guard.
func (p *Portfolio) createConditionalOrders(trade Trade) {
	params := trade.Params
	portion := params.conditionalPortion()
	quantity := trade.Quantity * portion
	expiry := p.expiryTime(trade.Timestamp, params)

	if params.StopLoss > 0 {
		p.addOrder(&Order{
			Symbol:      trade.Symbol,
			Quantity:    quantity,
			SellPortion: portion,
			CreatedAt:   trade.Timestamp,
			ExpiresAt:   expiry,
			Cond:        &StopLossCondition{Trigger: trade.Price * (1 - params.StopLoss)},
		})
	}

	if params.TakeProfit > 0 {
		p.addOrder(&Order{
			Symbol:      trade.Symbol,
			Quantity:    quantity,
			SellPortion: portion,
			CreatedAt:   trade.Timestamp,
			ExpiresAt:   expiry,
			Cond:        &TakeProfitCondition{Trigger: trade.Price * (1 + params.TakeProfit)},
		})
	}

	if params.TrailingStop > 0 {
		p.addOrder(&Order{
			Symbol:      trade.Symbol,
			Quantity:    quantity,
			SellPortion: portion,
			CreatedAt:   trade.Timestamp,
			ExpiresAt:   expiry,
			Cond: &TrailingStopCondition{
				TrailPercent: params.TrailingStop,
				HighWater:    trade.Price,
				Trigger:      trade.Price * (1 - params.TrailingStop),
			},
		})
	}
}

func (p *Portfolio) expiryTime(ts time.Time, params Params) *time.Time {
	if params.Duration <= 0 || p.period <= 0 {
		return nil
	}
	expiry := ts.Add(time.Duration(params.Duration) * p.period)
	return &expiry
}

func (p *Portfolio) addOrder(order *Order) {
	p.orderSeq++
	order.ID = p.orderSeq
	p.openOrders.ReplaceOrInsert(order)
}

// OpenOrders returns a snapshot of the open-order set in ID order
func (p *Portfolio) OpenOrders() []*Order {
	orders := make([]*Order, 0, p.openOrders.Len())
	p.openOrders.Ascend(func(o *Order) bool {
		orders = append(orders, o)
		return true
	})
	return orders
}

// processPendingOrders evaluates every open order at ts. Orders that expire
// are removed without a fill, orders that trigger become market sells tagged
// with the order kind and ID. Removal happens after the scan so the arena is
// never mutated while iterating.
func (p *Portfolio) processPendingOrders(ts time.Time) {
	var remove []*Order

	p.openOrders.Ascend(func(order *Order) bool {
		if order.Expired(ts) {
			remove = append(remove, order)
			return true
		}

		price := p.PriceAt(order.Symbol, ts)
		if price <= 0 {
			return true
		}

		if !order.Cond.Update(price) {
			return true
		}

		trade := p.executeSell(Signal{
			Timestamp: ts,
			Symbol:    order.Symbol,
			Action:    Sell,
			Params:    Params{Portion: order.SellPortion},
		})
		if trade.Executed {
			trade.OrderKind = order.Cond.Kind().String()
			trade.TriggeredBy = order.ID
			p.Trades = append(p.Trades, trade)
		}

		remove = append(remove, order)
		return true
	})

	for _, order := range remove {
		p.openOrders.Delete(order)
	}
}

// Advance moves the simulation to ts: pending orders are evaluated first so
// the recorded equity reflects any fills at this exact timestamp, then one
// point is appended to the equity and benchmark series.
func (p *Portfolio) Advance(ts time.Time) {
	p.processPendingOrders(ts)

	p.GraphData.Timestamp = append(p.GraphData.Timestamp, ts)
	p.GraphData.TotalValue = append(p.GraphData.TotalValue, p.TotalValue(ts))
	p.GraphData.Benchmark = append(p.GraphData.Benchmark, p.BenchmarkValue(ts))
}

// Summary returns a snapshot of the portfolio,
// zeroed when no market data has been set
func (p *Portfolio) Summary() Summary {
	if len(p.marketData) == 0 {
		return Summary{Positions: map[string]float64{}, PositionValues: map[string]float64{}}
	}

	positions := map[string]float64{}
	positionValues := map[string]float64{}
	totalPositionValue := 0.0
	for symbol, quantity := range p.Positions {
		if quantity <= 0 {
			continue
		}
		positions[symbol] = quantity
		if price, ok := p.currentPrices[symbol]; ok {
			value := quantity * price
			positionValues[symbol] = value
			totalPositionValue += value
		}
	}

	var finalTimestamp time.Time
	for _, series := range p.marketData {
		if len(series.times) == 0 {
			continue
		}
		if last := series.times[len(series.times)-1]; last.After(finalTimestamp) {
			finalTimestamp = last
		}
	}

	finalValue := p.TotalValue(finalTimestamp)
	benchmarkFinal := p.BenchmarkValue(finalTimestamp)

	return Summary{
		InitialCapital:     p.InitialCapital,
		FinalValue:         finalValue,
		TotalReturn:        (finalValue - p.InitialCapital) / p.InitialCapital,
		BenchmarkReturn:    (benchmarkFinal - p.InitialCapital) / p.InitialCapital,
		Cash:               p.Cash,
		TotalPositionValue: totalPositionValue,
		Positions:          positions,
		PositionValues:     positionValues,
		TotalTrades:        len(p.Trades),
		TotalCommission:    p.TotalCommission,
		OpenOrders:         p.openOrders.Len(),
	}
}
