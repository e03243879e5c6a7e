package backtest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jumpei00/gocryptobacktest/backtest"
)

func dailyResult(totalValues, benchmark []float64, trades []backtest.Trade) *backtest.Result {
	timestamps := make([]time.Time, len(totalValues))
	for i := range totalValues {
		timestamps[i] = testStart.AddDate(0, 0, i)
	}

	initial := 0.0
	final := 0.0
	if len(totalValues) > 0 {
		initial = totalValues[0]
		final = totalValues[len(totalValues)-1]
	}

	return &backtest.Result{
		PortfolioSummary: backtest.Summary{
			InitialCapital: initial,
			FinalValue:     final,
		},
		TradesHistory: trades,
		GraphData: backtest.GraphData{
			Timestamp:  timestamps,
			TotalValue: totalValues,
			Benchmark:  benchmark,
		},
	}
}

func TestMetricsReturns(t *testing.T) {
	result := dailyResult(
		[]float64{10000, 10100, 10200, 10300, 11000},
		[]float64{10000, 10050, 10100, 10150, 10500},
		nil,
	)

	metrics := backtest.NewPerformanceMetrics(result).All()

	assert.InDelta(t, 10.0, metrics.ReturnMetrics.TotalReturnPct, 1e-9)
	assert.Greater(t, metrics.ReturnMetrics.CagrPct, 0.0)
	assert.InDelta(t, 5.0, metrics.BenchmarkMetrics.BenchmarkReturnPct, 1e-9)
	assert.InDelta(t, 5.0, metrics.BenchmarkMetrics.ExcessReturnPct, 1e-9)
}

func TestMetricsMaxDrawdown(t *testing.T) {
	result := dailyResult(
		[]float64{10000, 11000, 9900, 10500, 11000},
		[]float64{10000, 10000, 10000, 10000, 10000},
		nil,
	)

	metrics := backtest.NewPerformanceMetrics(result).All()

	// peak 11000 to trough 9900
	assert.InDelta(t, -10.0, metrics.DrawdownMetrics.MaxDrawdownPct, 1e-9)
	assert.Less(t, metrics.DrawdownMetrics.AvgDrawdownPct, 0.0)
	assert.Greater(t, metrics.DrawdownMetrics.RecoveryFactor, 0.0)
	assert.Greater(t, metrics.RiskMetrics.VolatilityPct, 0.0)
}

func TestMetricsMonotoneCurveHasNoDrawdown(t *testing.T) {
	result := dailyResult(
		[]float64{10000, 10100, 10200, 10300},
		[]float64{10000, 10100, 10200, 10300},
		nil,
	)

	metrics := backtest.NewPerformanceMetrics(result).All()

	assert.Zero(t, metrics.DrawdownMetrics.MaxDrawdownPct)
	assert.Zero(t, metrics.DrawdownMetrics.AvgDrawdownPct)
	assert.Zero(t, metrics.DrawdownMetrics.MaxDrawdownDurationDays)
	assert.Greater(t, metrics.RiskMetrics.SharpeRatio, 0.0)
}

func TestMetricsTrades(t *testing.T) {
	trades := []backtest.Trade{
		{Action: backtest.Buy, Executed: true, Commission: 5},
		{Action: backtest.Sell, Executed: true, Commission: 6},
		{Action: backtest.Buy, Executed: false, Commission: 0},
	}
	result := dailyResult(
		[]float64{10000, 10100, 10200},
		[]float64{10000, 10100, 10200},
		trades,
	)

	metrics := backtest.NewPerformanceMetrics(result).All()

	assert.Equal(t, 2, metrics.TradeMetrics.TotalTrades)
	assert.Equal(t, 1, metrics.TradeMetrics.BuyTrades)
	assert.Equal(t, 1, metrics.TradeMetrics.SellTrades)
	assert.InDelta(t, 11.0, metrics.TradeMetrics.TotalCommission, 1e-9)
}

func TestMetricsEmptyRun(t *testing.T) {
	result := dailyResult(nil, nil, nil)

	metrics := backtest.NewPerformanceMetrics(result).All()

	assert.Zero(t, metrics.ReturnMetrics.TotalReturnPct)
	assert.Zero(t, metrics.RiskMetrics.SharpeRatio)
	assert.Zero(t, metrics.DrawdownMetrics.MaxDrawdownPct)
	assert.Zero(t, metrics.TradeMetrics.TotalTrades)
	assert.Zero(t, metrics.BenchmarkMetrics.BenchmarkReturnPct)
}
