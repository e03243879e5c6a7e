package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jumpei00/gocryptobacktest/app/models"
)

// timeframes maps the supported timeframe names to their grid step
var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// ParseTimeframe converts a timeframe name such as "1h" into a duration
func ParseTimeframe(timeframe string) (time.Duration, error) {
	step, ok := timeframes[timeframe]
	if !ok {
		return 0, fmt.Errorf("unknown timeframe: %s", timeframe)
	}
	return step, nil
}

// SignalGenerator produces the signal sequence for one symbol's bars
type SignalGenerator interface {
	GenerateSignals(cframe *models.CandleFrame) ([]Signal, error)
}

// Engine owns one Portfolio per run and drives it over the time grid
type Engine struct {
	Portfolio *Portfolio

	step     time.Duration
	strategy SignalGenerator
	log      logrus.FieldLogger
}

// NewEngine returns an Engine logging to logger,
// or to the standard logger when logger is nil
func NewEngine(logger logrus.FieldLogger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		Portfolio: NewPortfolio(logger),
		log:       logger,
	}
}

// SetParameters resets the owned portfolio for a new run.
// An unknown timeframe is a configuration error.
func (e *Engine) SetParameters(initialCapital, commissionRate float64, timeframe string, pairs []string) error {
	step, err := ParseTimeframe(timeframe)
	if err != nil {
		return err
	}

	e.Portfolio.Reset(initialCapital, commissionRate, pairs)
	e.Portfolio.SetPeriod(step)
	e.step = step
	e.log.Info("backtest parameters updated")
	return nil
}

// SetStrategy sets the signal producer used by the next run
func (e *Engine) SetStrategy(strategy SignalGenerator) {
	e.strategy = strategy
}

// Run executes a complete backtest over the given market data and returns
// the result bundle. Missing market data for a configured symbol is fatal,
// a symbol whose signal generation fails is skipped.
func (e *Engine) Run(marketData map[string]*models.CandleFrame) (*Result, error) {
	if e.strategy == nil {
		return nil, fmt.Errorf("no strategy configured")
	}
	if e.step <= 0 {
		return nil, fmt.Errorf("no parameters configured")
	}

	for _, symbol := range e.Portfolio.Symbols {
		cframe, ok := marketData[symbol]
		if !ok || len(cframe.Candles) == 0 {
			return nil, fmt.Errorf("no market data for symbol %s", symbol)
		}
	}

	e.log.Info("backtest started")
	e.Portfolio.SetMarketData(marketData)

	signals := []Signal{}
	for _, symbol := range e.Portfolio.Symbols {
		symbolSignals, err := e.strategy.GenerateSignals(marketData[symbol])
		if err != nil {
			e.log.Warnf("failed to generate signals for %v: %v", symbol, err)
			continue
		}
		for i := range symbolSignals {
			symbolSignals[i].Symbol = symbol
		}
		signals = append(signals, symbolSignals...)
	}

	if len(signals) == 0 {
		e.log.Warn("no signals generated for any symbol")
		return e.emptyResult(), nil
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Timestamp.Before(signals[j].Timestamp)
	})
	e.log.Infof("%v signals generated", len(signals))

	e.execute(signals, marketData)
	e.log.Infof("%v trades executed", len(e.Portfolio.Trades))

	result := &Result{
		PortfolioSummary: e.Portfolio.Summary(),
		TradesHistory:    append([]Trade{}, e.Portfolio.Trades...),
		GraphData:        e.Portfolio.GraphData,
	}
	e.log.Info("backtest finished")
	return result, nil
}

// execute walks the time grid, the portfolio evaluates pending orders and
// records equity at each step before the step's new signals are dispatched
func (e *Engine) execute(signals []Signal, marketData map[string]*models.CandleFrame) {
	var start, end time.Time
	for _, cframe := range marketData {
		times := cframe.Times()
		if len(times) == 0 {
			continue
		}
		if start.IsZero() || times[0].Before(start) {
			start = times[0]
		}
		if times[len(times)-1].After(end) {
			end = times[len(times)-1]
		}
	}

	next := 0
	for ts := start; !ts.After(end); ts = ts.Add(e.step) {
		e.Portfolio.Advance(ts)

		for next < len(signals) && !signals[next].Timestamp.After(ts) {
			sig := signals[next]
			next++
			if !sig.Timestamp.Equal(ts) {
				continue
			}
			if trade := e.Portfolio.ExecuteTrade(sig); !trade.Executed {
				e.log.Warnf("trade not executed at %v: %v %v", ts, sig.Symbol, sig.Action)
			}
		}
	}
}

// emptyResult is the well-defined shape returned when no symbol produced signals
func (e *Engine) emptyResult() *Result {
	return &Result{
		PortfolioSummary: Summary{
			InitialCapital: e.Portfolio.InitialCapital,
			FinalValue:     e.Portfolio.InitialCapital,
			Cash:           e.Portfolio.Cash,
			Positions:      map[string]float64{},
			PositionValues: map[string]float64{},
		},
		TradesHistory: []Trade{},
		GraphData: GraphData{
			Timestamp:  []time.Time{},
			TotalValue: []float64{},
			Benchmark:  []float64{},
		},
	}
}
