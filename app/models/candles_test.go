package models_test

import (
	"time"

	"github.com/jumpei00/gocryptobacktest/app/models"
)

func (suite *ModelsTestSuite) TestNewCandlesFromQuote() {
	candles := *suite.Candles

	suite.Len(candles, 24)
	suite.Equal("BTCUSDC", candles[0].Symbol)
	suite.Equal("1h", candles[0].Timeframe)
	suite.Equal(testStart.UnixMilli(), candles[0].Time)
	suite.Equal(testStart, candles[0].Timestamp())
	suite.Equal(100.0, candles[0].Close)
	suite.Equal(123.0, candles[23].Close)
}

func (suite *ModelsTestSuite) TestCreateCandlesIsIdempotent() {
	// SetupTest already stored them once
	suite.Candles.CreateCandles()

	cframe := models.GetCandleFrame("BTCUSDC", "1h", testStart, testStart.Add(24*time.Hour))
	suite.Len(cframe.Candles, 24)
}

func (suite *ModelsTestSuite) TestGetCandleFrame() {
	cframe := models.GetCandleFrame("BTCUSDC", "1h", testStart, testStart.Add(24*time.Hour))

	suite.Equal("BTCUSDC", cframe.Symbol)
	suite.Equal("1h", cframe.Timeframe)
	suite.Len(cframe.Candles, 24)

	times := []int64{}
	for _, candle := range cframe.Candles {
		times = append(times, candle.Time)
	}
	suite.IsIncreasing(times)
}

func (suite *ModelsTestSuite) TestGetCandleFrameWindow() {
	start := testStart.Add(5 * time.Hour)
	end := testStart.Add(10 * time.Hour)
	cframe := models.GetCandleFrame("BTCUSDC", "1h", start, end)

	suite.Len(cframe.Candles, 6)
	suite.Equal(start.UnixMilli(), cframe.Candles[0].Time)
	suite.Equal(end.UnixMilli(), cframe.Candles[5].Time)
}

func (suite *ModelsTestSuite) TestGetCandleFrameOtherTimeframe() {
	cframe := models.GetCandleFrame("BTCUSDC", "4h", testStart, testStart.Add(24*time.Hour))
	suite.Empty(cframe.Candles)
}

func (suite *ModelsTestSuite) TestCandleFrameAccessors() {
	cframe := models.GetCandleFrame("BTCUSDC", "1h", testStart, testStart.Add(24*time.Hour))

	suite.Len(cframe.Times(), 24)
	suite.Len(cframe.Opens(), 24)
	suite.Len(cframe.Highs(), 24)
	suite.Len(cframe.Lows(), 24)
	suite.Len(cframe.Closes(), 24)
	suite.Len(cframe.Volumes(), 24)

	suite.Equal(testStart, cframe.Times()[0])
	suite.Equal(101.0, cframe.Highs()[0])
	suite.Equal(99.0, cframe.Lows()[0])
	suite.Equal(123.0, cframe.Closes()[23])
}

func (suite *ModelsTestSuite) TestLastCandleTime() {
	lastTime, err := models.LastCandleTime("BTCUSDC", "1h")

	suite.Nil(err)
	suite.Equal(testStart.Add(23*time.Hour).UnixMilli(), lastTime)

	_, err = models.LastCandleTime("ETHUSDC", "1h")
	suite.NotNil(err)
}

func (suite *ModelsTestSuite) TestDeleteCandles() {
	models.DeleteCandles("BTCUSDC", "1h")
	cframe := models.GetCandleFrame("BTCUSDC", "1h", testStart, testStart.Add(24*time.Hour))

	suite.Empty(cframe.Candles)
}
