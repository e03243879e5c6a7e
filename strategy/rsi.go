package strategy

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"github.com/jumpei00/gocryptobacktest/app/models"
	"github.com/jumpei00/gocryptobacktest/backtest"
)

// RSI buys on oversold and sells on overbought readings
type RSI struct {
	params map[string]float64
}

// NewRSI is constructor of RSI
func NewRSI() *RSI {
	s := &RSI{}
	s.SetParams(nil)
	return s
}

// Name implements Strategy
func (s *RSI) Name() string { return "rsi_strategy" }

// Parameters implements Strategy
func (s *RSI) Parameters() []ParamSpec {
	return []ParamSpec{
		{Name: "rsi_period", DisplayName: "RSI Period", Default: 14},
		{Name: "rsi_oversold", DisplayName: "Oversold Threshold", Default: 30},
		{Name: "rsi_overbought", DisplayName: "Overbought Threshold", Default: 70},
	}
}

// RiskParameters implements Strategy
func (s *RSI) RiskParameters() []ParamSpec {
	return []ParamSpec{
		{Name: "portion_buy", DisplayName: "Buy Portion", Default: 0.5},
		{Name: "portion_sell", DisplayName: "Sell Portion", Default: 0.5},
		{Name: "stop_loss", DisplayName: "Stop Loss (fraction)", Default: 0.05},
		{Name: "duration", DisplayName: "Trade Duration (periods)", Default: 4},
	}
}

// SetParams implements Strategy
func (s *RSI) SetParams(params map[string]float64) {
	s.params = resolveParams(s.Name(), params, s.Parameters(), s.RiskParameters())
}

// GenerateSignals emits a buy whenever RSI is at or below the oversold
// threshold and a sell whenever it is at or above the overbought threshold
func (s *RSI) GenerateSignals(cframe *models.CandleFrame) ([]backtest.Signal, error) {
	period := int(s.params["rsi_period"])
	if len(cframe.Candles) <= period {
		return nil, fmt.Errorf("not enough candles for %s: have %d, need %d",
			cframe.Symbol, len(cframe.Candles), period+1)
	}

	rsi := talib.Rsi(cframe.Closes(), period)

	var signals []backtest.Signal
	for i := 1; i < len(cframe.Candles); i++ {
		if rsi[i] == 0 {
			continue
		}

		if rsi[i] <= s.params["rsi_oversold"] {
			signals = append(signals, backtest.Signal{
				Timestamp: cframe.Candles[i].Timestamp(),
				Action:    backtest.Buy,
				Params: backtest.Params{
					Portion:  s.params["portion_buy"],
					StopLoss: s.params["stop_loss"],
					Duration: int(s.params["duration"]),
				},
			})
		} else if rsi[i] >= s.params["rsi_overbought"] {
			signals = append(signals, backtest.Signal{
				Timestamp: cframe.Candles[i].Timestamp(),
				Action:    backtest.Sell,
				Params: backtest.Params{
					Portion:  s.params["portion_sell"],
					StopLoss: s.params["stop_loss"],
					Duration: int(s.params["duration"]),
				},
			})
		}
	}

	return signals, nil
}
