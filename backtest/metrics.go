package backtest

import (
	"math"

	"github.com/montanaflynn/stats"
)

// ReturnMetrics are overall return figures in percent
type ReturnMetrics struct {
	TotalReturnPct      float64 `json:"total_return_pct"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
	CagrPct             float64 `json:"cagr_pct"`
}

// RiskMetrics are annualized risk figures over the equity curve
type RiskMetrics struct {
	VolatilityPct float64 `json:"volatility_pct"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
	SortinoRatio  float64 `json:"sortino_ratio"`
	CalmarRatio   float64 `json:"calmar_ratio"`
}

// DrawdownMetrics describe peak-to-trough behaviour of the equity curve
type DrawdownMetrics struct {
	MaxDrawdownPct          float64 `json:"max_drawdown_pct"`
	AvgDrawdownPct          float64 `json:"avg_drawdown_pct"`
	MaxDrawdownDurationDays int     `json:"max_drawdown_duration_days"`
	RecoveryFactor          float64 `json:"recovery_factor"`
}

// TradeMetrics count trading activity over the ledger
type TradeMetrics struct {
	TotalTrades     int     `json:"total_trades"`
	BuyTrades       int     `json:"buy_trades"`
	SellTrades      int     `json:"sell_trades"`
	TotalCommission float64 `json:"total_commission"`
}

// BenchmarkMetrics compare the strategy to the buy-and-hold benchmark
type BenchmarkMetrics struct {
	BenchmarkReturnPct float64 `json:"benchmark_return_pct"`
	ExcessReturnPct    float64 `json:"excess_return_pct"`
	TrackingErrorPct   float64 `json:"tracking_error_pct"`
	InformationRatio   float64 `json:"information_ratio"`
}

// Metrics bundles all metric groups for the API response
type Metrics struct {
	ReturnMetrics    ReturnMetrics    `json:"return_metrics"`
	RiskMetrics      RiskMetrics      `json:"risk_metrics"`
	TradeMetrics     TradeMetrics     `json:"trade_metrics"`
	BenchmarkMetrics BenchmarkMetrics `json:"benchmark_metrics"`
	DrawdownMetrics  DrawdownMetrics  `json:"drawdown_metrics"`
}

// PerformanceMetrics calculates metrics over a finished run
type PerformanceMetrics struct {
	result *Result
}

// NewPerformanceMetrics is constructor of PerformanceMetrics
func NewPerformanceMetrics(result *Result) *PerformanceMetrics {
	return &PerformanceMetrics{result: result}
}

// All calculates every metric group
func (pm *PerformanceMetrics) All() Metrics {
	return Metrics{
		ReturnMetrics:    pm.returnMetrics(),
		RiskMetrics:      pm.riskMetrics(),
		TradeMetrics:     pm.tradeMetrics(),
		BenchmarkMetrics: pm.benchmarkMetrics(),
		DrawdownMetrics:  pm.drawdownMetrics(),
	}
}

// years is the covered timespan of the equity curve in years
func (pm *PerformanceMetrics) years() float64 {
	ts := pm.result.GraphData.Timestamp
	if len(ts) < 2 {
		return 0
	}
	days := ts[len(ts)-1].Sub(ts[0]).Hours() / 24
	return days / 365.25
}

// periodsPerYear derives the annualization factor from the grid step
func (pm *PerformanceMetrics) periodsPerYear() float64 {
	ts := pm.result.GraphData.Timestamp
	if len(ts) < 2 {
		return 252
	}

	step := ts[1].Sub(ts[0]).Seconds()
	switch {
	case step <= 3600:
		return 24 * 365
	case step <= 86400:
		return 365
	default:
		return 52
	}
}

func pctChanges(values []float64) []float64 {
	var returns []float64
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			returns = append(returns, (values[i]-values[i-1])/values[i-1])
		}
	}
	return returns
}

func (pm *PerformanceMetrics) returnMetrics() ReturnMetrics {
	initial := pm.result.PortfolioSummary.InitialCapital
	final := pm.result.PortfolioSummary.FinalValue
	if initial == 0 {
		return ReturnMetrics{}
	}

	totalReturn := (final - initial) / initial

	var annualized, cagr float64
	if years := pm.years(); years > 0 {
		annualized = totalReturn / years
		if final > 0 {
			cagr = math.Pow(final/initial, 1/years) - 1
		}
	}

	return ReturnMetrics{
		TotalReturnPct:      totalReturn * 100,
		AnnualizedReturnPct: annualized * 100,
		CagrPct:             cagr * 100,
	}
}

func (pm *PerformanceMetrics) riskMetrics() RiskMetrics {
	returns := pctChanges(pm.result.GraphData.TotalValue)
	if len(returns) < 2 {
		return RiskMetrics{}
	}

	ppy := pm.periodsPerYear()
	std, _ := stats.StandardDeviationSample(returns)
	mean, _ := stats.Mean(returns)

	volatility := std * math.Sqrt(ppy)
	meanReturn := mean * ppy

	var sharpe float64
	if volatility > 0 {
		sharpe = meanReturn / volatility
	}

	sortino := sharpe
	var negative []float64
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	if len(negative) > 0 {
		downsideStd, _ := stats.StandardDeviationSample(negative)
		downside := downsideStd * math.Sqrt(ppy)
		if downside > 0 {
			sortino = meanReturn / downside
		} else {
			sortino = 0
		}
	}

	var calmar float64
	if maxDD := pm.maxDrawdown(); maxDD != 0 {
		cagr := pm.returnMetrics().CagrPct / 100
		calmar = math.Abs(cagr / (maxDD / 100))
	}

	return RiskMetrics{
		VolatilityPct: volatility * 100,
		SharpeRatio:   sharpe,
		SortinoRatio:  sortino,
		CalmarRatio:   calmar,
	}
}

// maxDrawdown is the most negative peak-to-trough move in percent
func (pm *PerformanceMetrics) maxDrawdown() float64 {
	values := pm.result.GraphData.TotalValue
	maxDD := 0.0
	peak := math.Inf(-1)
	for _, value := range values {
		if value > peak {
			peak = value
		}
		if peak > 0 {
			if dd := (value - peak) / peak * 100; dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func (pm *PerformanceMetrics) drawdownMetrics() DrawdownMetrics {
	values := pm.result.GraphData.TotalValue
	timestamps := pm.result.GraphData.Timestamp
	if len(values) == 0 {
		return DrawdownMetrics{}
	}

	drawdowns := make([]float64, len(values))
	peak := math.Inf(-1)
	for i, value := range values {
		if value > peak {
			peak = value
		}
		if peak > 0 {
			drawdowns[i] = (value - peak) / peak * 100
		}
	}

	maxDD := pm.maxDrawdown()

	var negSum float64
	var negCount int
	for _, dd := range drawdowns {
		if dd < 0 {
			negSum += dd
			negCount++
		}
	}
	avgDD := 0.0
	if negCount > 0 {
		avgDD = negSum / float64(negCount)
	}

	// duration of drawdowns deeper than 1 basis point
	maxDuration := 0
	var ddStart int = -1
	for i, dd := range drawdowns {
		if dd < -0.01 && ddStart < 0 {
			ddStart = i
		} else if dd >= -0.01 && ddStart >= 0 {
			days := int(timestamps[i].Sub(timestamps[ddStart]).Hours() / 24)
			if days > maxDuration {
				maxDuration = days
			}
			ddStart = -1
		}
	}

	var recovery float64
	if maxDD != 0 {
		recovery = math.Abs(pm.returnMetrics().TotalReturnPct / maxDD)
	}

	return DrawdownMetrics{
		MaxDrawdownPct:          maxDD,
		AvgDrawdownPct:          avgDD,
		MaxDrawdownDurationDays: maxDuration,
		RecoveryFactor:          recovery,
	}
}

func (pm *PerformanceMetrics) tradeMetrics() TradeMetrics {
	metrics := TradeMetrics{}
	for _, trade := range pm.result.TradesHistory {
		if !trade.Executed {
			continue
		}
		metrics.TotalTrades++
		switch trade.Action {
		case Buy:
			metrics.BuyTrades++
		case Sell:
			metrics.SellTrades++
		}
		metrics.TotalCommission += trade.Commission
	}
	return metrics
}

func (pm *PerformanceMetrics) benchmarkMetrics() BenchmarkMetrics {
	benchmark := pm.result.GraphData.Benchmark
	if len(benchmark) == 0 || benchmark[0] == 0 {
		return BenchmarkMetrics{}
	}

	benchmarkReturn := (benchmark[len(benchmark)-1] - benchmark[0]) / benchmark[0] * 100
	strategyReturn := pm.returnMetrics().TotalReturnPct

	strategyReturns := pctChanges(pm.result.GraphData.TotalValue)
	benchmarkReturns := pctChanges(benchmark)

	var trackingError, informationRatio float64
	if len(strategyReturns) == len(benchmarkReturns) && len(strategyReturns) > 1 {
		excess := make([]float64, len(strategyReturns))
		for i := range strategyReturns {
			excess[i] = strategyReturns[i] - benchmarkReturns[i]
		}
		std, _ := stats.StandardDeviationSample(excess)
		mean, _ := stats.Mean(excess)
		trackingError = std * math.Sqrt(252) * 100
		if std > 0 {
			informationRatio = mean * 252 / std
		}
	}

	return BenchmarkMetrics{
		BenchmarkReturnPct: benchmarkReturn,
		ExcessReturnPct:    strategyReturn - benchmarkReturn,
		TrackingErrorPct:   trackingError,
		InformationRatio:   informationRatio,
	}
}
