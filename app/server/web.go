package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jumpei00/gocryptobacktest/app/models"
	"github.com/jumpei00/gocryptobacktest/backtest"
	"github.com/jumpei00/gocryptobacktest/config"
	"github.com/jumpei00/gocryptobacktest/marketdata"
	"github.com/jumpei00/gocryptobacktest/strategy"
)

const timestampFormat = "2006-01-02 15:04:05"

var dataManager = marketdata.NewManager(nil)

// JSONError is json error massage
type JSONError struct {
	Error string `json:"error"`
}

func errorAPI(w http.ResponseWriter, message string, code int) {
	jsonMessage, err := json.Marshal(JSONError{Error: message})
	if err != nil {
		logrus.Warnf("error message create error: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonMessage)
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	js, err := json.Marshal(body)
	if err != nil {
		logrus.Warnf("response json error: %v", err)
		errorAPI(w, "response json error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}

// HealthAPIHandler reports service status,
// when path is "/health"
func HealthAPIHandler(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services": map[string]string{
			"binance_api":     "connected",
			"backtest_engine": "ready",
		},
	})
}

// MarketDataAPIHandler gets candle data for one symbol,
// when path is "/api/market-data"
func MarketDataAPIHandler(w http.ResponseWriter, req *http.Request) {
	logrus.Infof("market data request: url -> %s", req.URL)

	symbol := req.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = "BTCUSDC"
	}
	timeframe := req.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = config.Config.Timeframe
	}

	start, end, err := parseDateRange(req.URL.Query().Get("start_date"), req.URL.Query().Get("end_date"))
	if err != nil {
		errorAPI(w, "bad parameter(start_date, end_date)", http.StatusBadRequest)
		return
	}

	cframe, err := dataManager.GetHistoricalData(symbol, timeframe, start, end)
	if err != nil {
		logrus.Warnf("market data get error, symbol: %v: %v", symbol, err)
		errorAPI(w, "no data available", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]interface{}{
		"symbol":      symbol,
		"timeframe":   timeframe,
		"start_date":  start.Format(timestampFormat),
		"end_date":    end.Format(timestampFormat),
		"data_points": len(cframe.Candles),
		"data":        cframe.Candles,
	})
}

// BacktestParam is the request body of a backtest run
type BacktestParam struct {
	Symbols        []string           `json:"symbols"`
	Timeframe      string             `json:"timeframe"`
	StartDate      string             `json:"start_date"`
	EndDate        string             `json:"end_date"`
	InitialCapital float64            `json:"initial_capital"`
	CommissionRate float64            `json:"commission_rate"`
	StrategyClass  string             `json:"strategy_class"`
	StrategyParams map[string]float64 `json:"strategy_params"`
}

// symbolSeries is the per-symbol market data block of a backtest response
type symbolSeries struct {
	Timestamps []string  `json:"timestamps"`
	Open       []float64 `json:"open"`
	High       []float64 `json:"high"`
	Low        []float64 `json:"low"`
	Close      []float64 `json:"close"`
	Volume     []float64 `json:"volume"`
}

// BacktestAPIHandler executes a backtest and returns results with metrics,
// when path is "/api/backtest"
func BacktestAPIHandler(w http.ResponseWriter, req *http.Request) {
	logrus.Info("backtest request")
	dec := json.NewDecoder(req.Body)

	var bt BacktestParam
	if err := dec.Decode(&bt); err != nil {
		logrus.Warnf("backtest params error: %v", err)
		errorAPI(w, fmt.Sprintf("backtest params error: %v", err), http.StatusBadRequest)
		return
	}

	if len(bt.Symbols) == 0 {
		bt.Symbols = []string{"BTCUSDT"}
	}
	if bt.Timeframe == "" {
		bt.Timeframe = config.Config.Timeframe
	}
	if bt.InitialCapital == 0 {
		bt.InitialCapital = config.Config.InitialCapital
	}
	if bt.CommissionRate == 0 {
		bt.CommissionRate = config.Config.CommissionRate
	}
	if bt.StrategyClass == "" {
		bt.StrategyClass = "BuyAndHoldStrategy"
	}

	start, end, err := parseDateRange(bt.StartDate, bt.EndDate)
	if err != nil {
		logrus.Warnf("backtest date error: %v", err)
		errorAPI(w, "invalid date format", http.StatusBadRequest)
		return
	}

	marketData := map[string]*models.CandleFrame{}
	for _, symbol := range bt.Symbols {
		cframe, err := dataManager.GetHistoricalData(symbol, bt.Timeframe, start, end)
		if err != nil {
			logrus.Warnf("market data get error, symbol: %v: %v", symbol, err)
			errorAPI(w, fmt.Sprintf("unable to fetch market data for %s", symbol), http.StatusInternalServerError)
			return
		}
		marketData[symbol] = cframe
	}

	engine := backtest.NewEngine(nil)
	if err := engine.SetParameters(bt.InitialCapital, bt.CommissionRate, bt.Timeframe, bt.Symbols); err != nil {
		logrus.Warnf("backtest parameters error: %v", err)
		errorAPI(w, fmt.Sprintf("invalid backtest configuration: %v", err), http.StatusBadRequest)
		return
	}

	strat, err := strategy.New(bt.StrategyClass)
	if err != nil {
		logrus.Warnf("strategy error: %v", err)
		errorAPI(w, fmt.Sprintf("invalid strategy configuration: %v", err), http.StatusBadRequest)
		return
	}
	strat.SetParams(bt.StrategyParams)
	engine.SetStrategy(strat)

	result, err := engine.Run(marketData)
	if err != nil {
		logrus.Warnf("backtest error: %v", err)
		errorAPI(w, fmt.Sprintf("backtest error: %v", err), http.StatusInternalServerError)
		return
	}

	metrics := backtest.NewPerformanceMetrics(result).All()

	marketDataResponse := map[string]symbolSeries{}
	for symbol, cframe := range marketData {
		timestamps := make([]string, len(cframe.Candles))
		for i, ts := range cframe.Times() {
			timestamps[i] = ts.Format(timestampFormat)
		}
		marketDataResponse[symbol] = symbolSeries{
			Timestamps: timestamps,
			Open:       cframe.Opens(),
			High:       cframe.Highs(),
			Low:        cframe.Lows(),
			Close:      cframe.Closes(),
			Volume:     cframe.Volumes(),
		}
	}

	writeJSON(w, map[string]interface{}{
		"success":     true,
		"backtest_id": uuid.NewString(),
		"parameters":  bt,
		"results":     result,
		"metrics":     metrics,
		"market_data": marketDataResponse,
	})
}

// DefaultConfigAPIHandler returns backtest defaults,
// when path is "/api/config/defaults"
func DefaultConfigAPIHandler(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, map[string]interface{}{
		"initial_capital": config.Config.InitialCapital,
		"commission_rate": config.Config.CommissionRate,
		"timeframe":       config.Config.Timeframe,
		"period_days":     config.Config.PeriodDays,
	})
}

// SupportedConfigAPIHandler returns the supported trading universe,
// when path is "/api/config/supported"
func SupportedConfigAPIHandler(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, map[string]interface{}{
		"symbols":    config.Config.Pairs,
		"timeframes": config.Config.Timeframes,
		"strategies": strategy.Supported(),
	})
}

// parseDateRange parses the optional request dates,
// defaulting to the configured period ending now
func parseDateRange(startDate, endDate string) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -config.Config.PeriodDays)

	if startDate != "" {
		parsed, err := dateparse.ParseAny(startDate)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed.UTC()
	}
	if endDate != "" {
		parsed, err := dateparse.ParseAny(endDate)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed.UTC()
	}
	return start, end, nil
}

// Run starts webserver
func Run() {
	logrus.Info("server start")
	http.HandleFunc("/health", HealthAPIHandler)
	http.HandleFunc("/api/market-data", MarketDataAPIHandler)
	http.HandleFunc("/api/backtest", BacktestAPIHandler)
	http.HandleFunc("/api/config/defaults", DefaultConfigAPIHandler)
	http.HandleFunc("/api/config/supported", SupportedConfigAPIHandler)
	logrus.Fatalln(http.ListenAndServe(fmt.Sprintf(":%d", config.Config.Port), nil))
}
