package models

import (
	"math"
	"time"

	"github.com/markcheno/go-quote"
	"gorm.io/gorm"
)

// Candle is one OHLCV bar of downloaded market data, also used as json.
// Time is unixtime at milliseconds because of using for frontend.
type Candle struct {
	ID        int     `json:"-" gorm:"primary_key"`
	Symbol    string  `json:"-" gorm:"index:idx_candle,unique"`
	Timeframe string  `json:"-" gorm:"index:idx_candle,unique"`
	Time      int64   `json:"time" gorm:"index:idx_candle,unique"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Timestamp returns the candle time as time.Time
func (c *Candle) Timestamp() time.Time {
	return time.UnixMilli(c.Time).UTC()
}

// Candles is slice of Candle
// Using this, create candle data in database
type Candles []Candle

// NewCandlesFromQuote converts Quote to slice of Candle due to creating in database,
// ex) [Date[1, 2, 3...], Open[1, 2, 3...]...] → [[Date[1], Open[1]...], [Date[2], Open[2]...]...]
// and return pointer of Candles(used as constructor)
func NewCandlesFromQuote(symbol, timeframe string, q *quote.Quote) *Candles {
	candles := Candles{}
	for i := 0; i < len(q.Date); i++ {
		candles = append(candles, Candle{
			Symbol:    symbol,
			Timeframe: timeframe,
			Time:      q.Date[i].Unix() * 1000,
			Open:      (math.Round(q.Open[i]*10000) / 10000),
			High:      (math.Round(q.High[i]*10000) / 10000),
			Low:       (math.Round(q.Low[i]*10000) / 10000),
			Close:     (math.Round(q.Close[i]*10000) / 10000),
			Volume:    (math.Round(q.Volume[i]*10000) / 10000),
		})
	}

	return &candles
}

// CreateCandles creates candle data, ignoring bars already stored
func (cs *Candles) CreateCandles() {
	for _, candle := range *cs {
		DB.Where(Candle{Symbol: candle.Symbol, Timeframe: candle.Timeframe, Time: candle.Time}).
			FirstOrCreate(&candle)
	}
}

// GetCandleFrame gets candle data for symbol and timeframe inside [start, end] by ascending.
// After get data, return CandleFrame stored in data
func GetCandleFrame(symbol, timeframe string, start, end time.Time) *CandleFrame {
	var candles Candles
	DB.Where("symbol = ? AND timeframe = ? AND time >= ? AND time <= ?",
		symbol, timeframe, start.UnixMilli(), end.UnixMilli()).
		Order("time asc").Find(&candles)

	cframe := CandleFrame{}
	cframe.Symbol = symbol
	cframe.Timeframe = timeframe
	cframe.Candles = candles

	return &cframe
}

// DeleteCandles deletes all stored data for symbol and timeframe
func DeleteCandles(symbol, timeframe string) {
	DB.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Where("symbol = ? AND timeframe = ?", symbol, timeframe).Delete(&Candle{})
}

// LastCandleTime returns a time of last candle for symbol and timeframe
func LastCandleTime(symbol, timeframe string) (int64, error) {
	var candle Candle
	if err := DB.Where("symbol = ? AND timeframe = ?", symbol, timeframe).
		Order("time desc").First(&candle).Error; err != nil {
		return 0, err
	}
	return candle.Time, nil
}

// CandleFrame is candle data frame
type CandleFrame struct {
	Symbol    string   `json:"symbol,omitempty"`
	Timeframe string   `json:"timeframe,omitempty"`
	Candles   []Candle `json:"candles,omitempty"`
}

// Times is timestamps of candles
func (cframe *CandleFrame) Times() []time.Time {
	times := make([]time.Time, len(cframe.Candles))
	for i, candle := range cframe.Candles {
		times[i] = candle.Timestamp()
	}
	return times
}

// Opens is open prices of candles
func (cframe *CandleFrame) Opens() []float64 {
	open := make([]float64, len(cframe.Candles))
	for i, candle := range cframe.Candles {
		open[i] = candle.Open
	}
	return open
}

// Highs is high prices of candles
func (cframe *CandleFrame) Highs() []float64 {
	high := make([]float64, len(cframe.Candles))
	for i, candle := range cframe.Candles {
		high[i] = candle.High
	}
	return high
}

// Lows is low prices of candles
func (cframe *CandleFrame) Lows() []float64 {
	low := make([]float64, len(cframe.Candles))
	for i, candle := range cframe.Candles {
		low[i] = candle.Low
	}
	return low
}

// Closes is close prices of candles
func (cframe *CandleFrame) Closes() []float64 {
	close := make([]float64, len(cframe.Candles))
	for i, candle := range cframe.Candles {
		close[i] = candle.Close
	}
	return close
}

// Volumes is volume prices of candles
func (cframe *CandleFrame) Volumes() []float64 {
	volume := make([]float64, len(cframe.Candles))
	for i, candle := range cframe.Candles {
		volume[i] = candle.Volume
	}
	return volume
}
