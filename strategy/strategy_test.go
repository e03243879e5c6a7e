package strategy_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jumpei00/gocryptobacktest/app/models"
	"github.com/jumpei00/gocryptobacktest/backtest"
	"github.com/jumpei00/gocryptobacktest/strategy"
)

var testStart = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

// hourlyFrame builds a candle frame with one bar per hour from testStart
func hourlyFrame(symbol string, closes []float64, volumes []float64) *models.CandleFrame {
	candles := make([]models.Candle, len(closes))
	for i, close := range closes {
		volume := 1000.0
		if volumes != nil {
			volume = volumes[i]
		}
		candles[i] = models.Candle{
			Symbol:    symbol,
			Timeframe: "1h",
			Time:      testStart.Add(time.Duration(i) * time.Hour).UnixMilli(),
			Open:      close,
			High:      close * 1.01,
			Low:       close * 0.99,
			Close:     close,
			Volume:    volume,
		}
	}
	return &models.CandleFrame{Symbol: symbol, Timeframe: "1h", Candles: candles}
}

func TestRegistry(t *testing.T) {
	for _, class := range []string{
		"BuyAndHoldStrategy",
		"DCAStrategy",
		"RSIStrategy",
		"EMACrossoverRSIVolumeStrategy",
	} {
		s, err := strategy.New(class)
		require.NoError(t, err)
		assert.NotEmpty(t, s.Name())
	}

	_, err := strategy.New("NopeStrategy")
	assert.Error(t, err)

	infos := strategy.Supported()
	require.Len(t, infos, 4)
	assert.Equal(t, "BuyAndHoldStrategy", infos[0].Class)
	assert.Equal(t, "buy_and_hold", infos[0].Name)
	assert.NotEmpty(t, infos[0].Parameters)
}

func TestBuyAndHoldSignals(t *testing.T) {
	s := strategy.NewBuyAndHold()
	cframe := hourlyFrame("BTCUSDC", []float64{100, 110, 120}, nil)

	signals, err := s.GenerateSignals(cframe)
	require.NoError(t, err)
	require.Len(t, signals, 2)

	assert.Equal(t, backtest.Buy, signals[0].Action)
	assert.Equal(t, cframe.Candles[0].Timestamp(), signals[0].Timestamp)
	assert.Equal(t, 0.5, signals[0].Params.Portion)

	assert.Equal(t, backtest.Sell, signals[1].Action)
	assert.Equal(t, cframe.Candles[2].Timestamp(), signals[1].Timestamp)
	assert.Equal(t, 1.0, signals[1].Params.Portion)
}

func TestBuyAndHoldEmptyFrame(t *testing.T) {
	s := strategy.NewBuyAndHold()
	_, err := s.GenerateSignals(&models.CandleFrame{Symbol: "BTCUSDC"})
	assert.Error(t, err)
}

func TestBuyAndHoldParamFallback(t *testing.T) {
	cframe := hourlyFrame("BTCUSDC", []float64{100, 110, 120}, nil)

	// incomplete params fall back to the defaults
	s := strategy.NewBuyAndHold()
	s.SetParams(map[string]float64{"portion_buy": 0.8})
	signals, err := s.GenerateSignals(cframe)
	require.NoError(t, err)
	assert.Equal(t, 0.5, signals[0].Params.Portion)

	s.SetParams(map[string]float64{"portion_buy": 0.8, "portion_sell": 1.0})
	signals, err = s.GenerateSignals(cframe)
	require.NoError(t, err)
	assert.Equal(t, 0.8, signals[0].Params.Portion)
}

func TestDCASignals(t *testing.T) {
	s := strategy.NewDCA()

	// 48 hourly bars from June 30 12:00 cover two midnights,
	// July 1st gets the monthly amount
	closes := make([]float64, 48)
	for i := range closes {
		closes[i] = 100
	}
	cframe := hourlyFrame("BTCUSDC", closes, nil)

	signals, err := s.GenerateSignals(cframe)
	require.NoError(t, err)
	require.Len(t, signals, 2)

	assert.Equal(t, backtest.Buy, signals[0].Action)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), signals[0].Timestamp)
	assert.Equal(t, 100.0, signals[0].Params.QuoteValue)

	assert.Equal(t, time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC), signals[1].Timestamp)
	assert.Equal(t, 0.0, signals[1].Params.QuoteValue)
}

func TestRSISignals(t *testing.T) {
	s := strategy.NewRSI()

	// a sawtooth decline keeps RSI low but nonzero, then a sawtooth climb
	// pushes it into overbought territory
	closes := []float64{300}
	price := 300.0
	for i := 0; i < 10; i++ {
		price -= 6
		closes = append(closes, price)
		price += 1
		closes = append(closes, price)
	}
	for i := 0; i < 10; i++ {
		price += 6
		closes = append(closes, price)
		price -= 1
		closes = append(closes, price)
	}
	cframe := hourlyFrame("BTCUSDC", closes, nil)

	signals, err := s.GenerateSignals(cframe)
	require.NoError(t, err)
	require.NotEmpty(t, signals)

	var buys, sells int
	for _, sig := range signals {
		switch sig.Action {
		case backtest.Buy:
			buys++
			assert.Equal(t, 0.5, sig.Params.Portion)
			assert.Equal(t, 0.05, sig.Params.StopLoss)
			assert.Equal(t, 4, sig.Params.Duration)
		case backtest.Sell:
			sells++
		}
	}
	assert.Greater(t, buys, 0)
	assert.Greater(t, sells, 0)
	assert.Equal(t, backtest.Buy, signals[0].Action)
}

func TestRSINotEnoughCandles(t *testing.T) {
	s := strategy.NewRSI()
	_, err := s.GenerateSignals(hourlyFrame("BTCUSDC", []float64{100, 110}, nil))
	assert.Error(t, err)
}

func TestEMACrossoverRSIVolumeSignals(t *testing.T) {
	s := strategy.NewEMACrossoverRSIVolume()

	// oscillating trend with recurring volume spikes
	var closes, volumes []float64
	for i := 0; i < 120; i++ {
		trend := 100 + float64(i)*0.5
		wave := 8 * math.Sin(float64(i)/6)
		closes = append(closes, trend+wave)

		volume := 1000.0
		if i%7 == 0 {
			volume = 3000
		}
		volumes = append(volumes, volume)
	}
	cframe := hourlyFrame("BTCUSDC", closes, volumes)

	signals, err := s.GenerateSignals(cframe)
	require.NoError(t, err)

	first := cframe.Candles[0].Timestamp()
	last := cframe.Candles[len(cframe.Candles)-1].Timestamp()
	for _, sig := range signals {
		assert.Contains(t, []backtest.Action{backtest.Buy, backtest.Sell}, sig.Action)
		assert.False(t, sig.Timestamp.Before(first))
		assert.False(t, sig.Timestamp.After(last))
		if sig.Action == backtest.Buy {
			assert.Greater(t, sig.Params.StopLoss, 0.0)
			assert.Greater(t, sig.Params.TakeProfit, 0.0)
			assert.Greater(t, sig.Params.Duration, 0)
		}
	}
}

func TestEMACrossoverRSIVolumeNotEnoughCandles(t *testing.T) {
	s := strategy.NewEMACrossoverRSIVolume()
	_, err := s.GenerateSignals(hourlyFrame("BTCUSDC", []float64{100, 110, 120}, nil))
	assert.Error(t, err)
}
