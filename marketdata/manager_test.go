package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jumpei00/gocryptobacktest/app/models"
)

var testStart = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func frameAt(offsets ...int) *models.CandleFrame {
	candles := make([]models.Candle, len(offsets))
	for i, offset := range offsets {
		candles[i] = models.Candle{
			Symbol:    "BTCUSDC",
			Timeframe: "1h",
			Time:      testStart.Add(time.Duration(offset) * time.Hour).UnixMilli(),
			Close:     100,
		}
	}
	return &models.CandleFrame{Symbol: "BTCUSDC", Timeframe: "1h", Candles: candles}
}

func TestMissingRangesEmptyCache(t *testing.T) {
	ranges := missingRanges(frameAt(), testStart, testStart.Add(10*time.Hour), time.Hour)

	require.Len(t, ranges, 1)
	assert.Equal(t, testStart, ranges[0].start)
	assert.Equal(t, testStart.Add(10*time.Hour), ranges[0].end)
}

func TestMissingRangesFullCover(t *testing.T) {
	ranges := missingRanges(frameAt(0, 1, 2, 3), testStart, testStart.Add(3*time.Hour), time.Hour)
	assert.Empty(t, ranges)
}

func TestMissingRangesBeforeFirst(t *testing.T) {
	ranges := missingRanges(frameAt(3, 4, 5), testStart, testStart.Add(5*time.Hour), time.Hour)

	require.Len(t, ranges, 1)
	assert.Equal(t, testStart, ranges[0].start)
	assert.Equal(t, testStart.Add(2*time.Hour), ranges[0].end)
}

func TestMissingRangesAfterLast(t *testing.T) {
	ranges := missingRanges(frameAt(0, 1, 2), testStart, testStart.Add(5*time.Hour), time.Hour)

	require.Len(t, ranges, 1)
	assert.Equal(t, testStart.Add(3*time.Hour), ranges[0].start)
	assert.Equal(t, testStart.Add(5*time.Hour), ranges[0].end)
}

func TestMissingRangesInteriorGap(t *testing.T) {
	ranges := missingRanges(frameAt(0, 1, 5, 6), testStart, testStart.Add(6*time.Hour), time.Hour)

	require.Len(t, ranges, 1)
	assert.Equal(t, testStart.Add(2*time.Hour), ranges[0].start)
	assert.Equal(t, testStart.Add(4*time.Hour), ranges[0].end)
}

func TestMissingRangesCombined(t *testing.T) {
	ranges := missingRanges(frameAt(2, 3, 7), testStart, testStart.Add(9*time.Hour), time.Hour)

	require.Len(t, ranges, 3)
	assert.Equal(t, testStart, ranges[0].start)
	assert.Equal(t, testStart.Add(time.Hour), ranges[0].end)
	assert.Equal(t, testStart.Add(4*time.Hour), ranges[1].start)
	assert.Equal(t, testStart.Add(6*time.Hour), ranges[1].end)
	assert.Equal(t, testStart.Add(8*time.Hour), ranges[2].start)
	assert.Equal(t, testStart.Add(9*time.Hour), ranges[2].end)
}

func TestGetHistoricalDataUnsupportedTimeframe(t *testing.T) {
	m := NewManager(nil)
	_, err := m.GetHistoricalData("BTCUSDC", "2h", testStart, testStart.Add(time.Hour))
	assert.Error(t, err)
}
