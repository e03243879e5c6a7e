package strategy

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/jumpei00/gocryptobacktest/app/models"
	"github.com/jumpei00/gocryptobacktest/backtest"
)

// EMACrossoverRSIVolume combines an EMA crossover with RSI and volume
// confirmation, widening targets and durations in bull-market conditions
type EMACrossoverRSIVolume struct {
	params map[string]float64
}

// NewEMACrossoverRSIVolume is constructor of EMACrossoverRSIVolume
func NewEMACrossoverRSIVolume() *EMACrossoverRSIVolume {
	s := &EMACrossoverRSIVolume{}
	s.SetParams(nil)
	return s
}

// Name implements Strategy
func (s *EMACrossoverRSIVolume) Name() string { return "ema_crossover_rsi_volume_strategy" }

// Parameters implements Strategy
func (s *EMACrossoverRSIVolume) Parameters() []ParamSpec {
	return []ParamSpec{
		{Name: "ema_fast", DisplayName: "Fast EMA", Default: 12},
		{Name: "ema_slow", DisplayName: "Slow EMA", Default: 26},
		{Name: "rsi_period", DisplayName: "RSI Period", Default: 14},
		{Name: "rsi_buy_max", DisplayName: "RSI Max for Buy", Default: 68},
		{Name: "rsi_sell_min", DisplayName: "RSI Min for Sell", Default: 32},
		{Name: "volume_multiplier", DisplayName: "Volume Multiplier", Default: 1.3},
		{Name: "volume_spike", DisplayName: "Volume Spike Bull Market", Default: 1.8},
		{Name: "volume_period", DisplayName: "Volume SMA Period", Default: 20},
	}
}

// RiskParameters implements Strategy
func (s *EMACrossoverRSIVolume) RiskParameters() []ParamSpec {
	return []ParamSpec{
		{Name: "portion_buy", DisplayName: "Buy Portion", Default: 0.2},
		{Name: "portion_sell", DisplayName: "Sell Portion", Default: 0.2},
		{Name: "atr_period", DisplayName: "ATR Period", Default: 14},
		{Name: "atr_sl_multiplier", DisplayName: "ATR Stop Loss Multiplier", Default: 2.5},
		{Name: "atr_tp_multiplier", DisplayName: "ATR Take Profit Multiplier", Default: 4.0},
		{Name: "atr_tp_bull_multiplier", DisplayName: "ATR TP Bull Market Multiplier", Default: 6.5},
		{Name: "duration", DisplayName: "Trade Duration (periods)", Default: 12},
		{Name: "duration_bull", DisplayName: "Trade Duration Bull Market", Default: 20},
	}
}

// SetParams implements Strategy
func (s *EMACrossoverRSIVolume) SetParams(params map[string]float64) {
	s.params = resolveParams(s.Name(), params, s.Parameters(), s.RiskParameters())
}

// GenerateSignals implements Strategy
func (s *EMACrossoverRSIVolume) GenerateSignals(cframe *models.CandleFrame) ([]backtest.Signal, error) {
	emaFastPeriod := int(s.params["ema_fast"])
	emaSlowPeriod := int(s.params["ema_slow"])
	rsiPeriod := int(s.params["rsi_period"])
	atrPeriod := int(s.params["atr_period"])
	volumePeriod := int(s.params["volume_period"])

	warmup := emaSlowPeriod
	if volumePeriod > warmup {
		warmup = volumePeriod
	}
	if atrPeriod > warmup {
		warmup = atrPeriod
	}

	candles := cframe.Candles
	if len(candles) <= warmup+1 {
		return nil, fmt.Errorf("not enough candles for %s: have %d, need %d",
			cframe.Symbol, len(candles), warmup+2)
	}

	closes := cframe.Closes()
	emaFast := talib.Ema(closes, emaFastPeriod)
	emaSlow := talib.Ema(closes, emaSlowPeriod)
	rsi := talib.Rsi(closes, rsiPeriod)
	atr := talib.Atr(cframe.Highs(), cframe.Lows(), closes, atrPeriod)
	volumeSma := talib.Sma(cframe.Volumes(), volumePeriod)
	_, _, macdHist := talib.Macd(closes, 12, 26, 9)

	var signals []backtest.Signal
	lastAction := backtest.Action("")
	lastIndex := -10

	for i := warmup + 1; i < len(candles); i++ {
		price := closes[i]
		prevPrice := closes[i-1]

		volumeRatio := 0.0
		if volumeSma[i] > 0 {
			volumeRatio = cframe.Candles[i].Volume / volumeSma[i]
		}

		emaSpread := (emaFast[i] - emaSlow[i]) / emaSlow[i]
		bullMarket := emaSpread > 0.008 && rsi[i] < 90
		strongMomentum := (price-emaSlow[i])/emaSlow[i] > 0.005

		requiredVolume := s.params["volume_multiplier"]
		rsiBuyThreshold := s.params["rsi_buy_max"]
		rsiSellThreshold := s.params["rsi_sell_min"]
		if bullMarket && strongMomentum {
			requiredVolume = s.params["volume_spike"]
			rsiBuyThreshold = math.Min(75, rsiBuyThreshold+15)
			rsiSellThreshold = math.Max(25, rsiSellThreshold-15)
		}

		// throttle signals that are too close together
		if i-lastIndex < 3 {
			continue
		}

		bullishCross := emaFast[i-1] <= emaSlow[i-1] && emaFast[i] > emaSlow[i]
		bullishTrend := emaFast[i] > emaSlow[i]
		bearishCross := emaFast[i-1] >= emaSlow[i-1] && emaFast[i] < emaSlow[i]
		bearishTrend := emaFast[i] < emaSlow[i]

		volumeOK := volumeRatio > requiredVolume
		stopLoss := atr[i] * s.params["atr_sl_multiplier"] / price

		if (bullishCross || (bullishTrend && price > prevPrice)) &&
			rsi[i] < rsiBuyThreshold && rsi[i] > 25 &&
			volumeOK && macdHist[i] != 0 && lastAction != backtest.Buy {

			takeProfit := atr[i] * s.params["atr_tp_multiplier"] / price
			duration := int(s.params["duration"])
			if bullMarket && strongMomentum {
				takeProfit = atr[i] * s.params["atr_tp_bull_multiplier"] / price
				duration = int(s.params["duration_bull"])
			}

			signals = append(signals, backtest.Signal{
				Timestamp: candles[i].Timestamp(),
				Action:    backtest.Buy,
				Params: backtest.Params{
					Portion:    s.params["portion_buy"],
					StopLoss:   stopLoss,
					TakeProfit: takeProfit,
					Duration:   duration,
				},
			})
			lastAction = backtest.Buy
			lastIndex = i

		} else if (bearishCross || (bearishTrend && price < prevPrice)) &&
			rsi[i] > rsiSellThreshold && rsi[i] < 75 &&
			volumeOK && lastAction != backtest.Sell {

			signals = append(signals, backtest.Signal{
				Timestamp: candles[i].Timestamp(),
				Action:    backtest.Sell,
				Params: backtest.Params{
					Portion:    s.params["portion_sell"],
					StopLoss:   stopLoss,
					TakeProfit: atr[i] * s.params["atr_tp_multiplier"] / price,
					Duration:   int(s.params["duration"]),
				},
			})
			lastAction = backtest.Sell
			lastIndex = i
		}
	}

	return signals, nil
}
