package marketdata

import (
	"fmt"
	"time"

	"github.com/markcheno/go-quote"
	"github.com/sirupsen/logrus"

	"github.com/jumpei00/gocryptobacktest/app/models"
	"github.com/jumpei00/gocryptobacktest/backtest"
)

const dateFormat = "2006-01-02 15:04"

// quotePeriods maps the timeframe names to the Binance period codes
var quotePeriods = map[string]quote.Period{
	"1m":  quote.Min1,
	"5m":  quote.Min5,
	"15m": quote.Min15,
	"30m": quote.Min30,
	"1h":  quote.Min60,
	"4h":  quote.Hour4,
	"1d":  quote.Daily,
	"1w":  quote.Weekly,
}

// Manager serves historical candles out of the database,
// downloading from Binance whatever the cache does not cover
type Manager struct {
	log logrus.FieldLogger
}

// NewManager is constructor of Manager.
// A nil logger falls back to the standard logger.
func NewManager(logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{log: logger}
}

// GetHistoricalData returns the candles for symbol and timeframe inside
// [start, end]. Spans missing from the cache are downloaded and stored
// first. When nothing is available at all, it is an error.
func (m *Manager) GetHistoricalData(symbol, timeframe string, start, end time.Time) (*models.CandleFrame, error) {
	period, ok := quotePeriods[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe: %s", timeframe)
	}
	step, err := backtest.ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	cframe := models.GetCandleFrame(symbol, timeframe, start, end)
	missing := missingRanges(cframe, start, end, step)
	for _, r := range missing {
		m.log.Infof("downloading %v %v candles, %v - %v", symbol, timeframe, r.start, r.end)
		if err := m.download(symbol, timeframe, period, r); err != nil {
			m.log.Warnf("download failed for %v: %v", symbol, err)
		}
	}

	if len(missing) > 0 {
		cframe = models.GetCandleFrame(symbol, timeframe, start, end)
	}
	if len(cframe.Candles) == 0 {
		return nil, fmt.Errorf("no market data available for %s %s", symbol, timeframe)
	}
	return cframe, nil
}

// download fetches one contiguous span from Binance and stores it
func (m *Manager) download(symbol, timeframe string, period quote.Period, r timeRange) error {
	q, err := quote.NewQuoteFromBinance(symbol, r.start.Format(dateFormat), r.end.Format(dateFormat), period)
	if err != nil {
		return err
	}
	if len(q.Date) == 0 {
		return fmt.Errorf("binance returned no bars for %s", symbol)
	}
	models.NewCandlesFromQuote(symbol, timeframe, &q).CreateCandles()
	return nil
}

// timeRange is one contiguous span of bars to download
type timeRange struct {
	start time.Time
	end   time.Time
}

// missingRanges finds the spans inside [start, end] the cached candles
// do not cover, assuming bars sit on a grid stepped by step
func missingRanges(cframe *models.CandleFrame, start, end time.Time, step time.Duration) []timeRange {
	if len(cframe.Candles) == 0 {
		return []timeRange{{start: start, end: end}}
	}

	var ranges []timeRange
	times := cframe.Times()

	if times[0].Sub(start) >= step {
		ranges = append(ranges, timeRange{start: start, end: times[0].Add(-step)})
	}
	for i := 1; i < len(times); i++ {
		if times[i].Sub(times[i-1]) > step {
			ranges = append(ranges, timeRange{start: times[i-1].Add(step), end: times[i].Add(-step)})
		}
	}
	if end.Sub(times[len(times)-1]) >= step {
		ranges = append(ranges, timeRange{start: times[len(times)-1].Add(step), end: end})
	}
	return ranges
}
