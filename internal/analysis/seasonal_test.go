package analysis

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divtrack/internal/marketdata"
)

// marchRallyCandles builds two years of daily bars where the close gains 1%
// on every March day and stays flat the rest of the year.
func marchRallyCandles() []marketdata.Candle {
	var candles []marketdata.Candle
	price := 100.0
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	for !day.After(end) {
		if day.Weekday() != time.Saturday && day.Weekday() != time.Sunday {
			if day.Month() == time.March {
				price *= 1.01
			}
			candles = append(candles, marketdata.Candle{
				Date: day, Open: price, High: price, Low: price, Close: price, Volume: 500,
			})
		}
		day = day.AddDate(0, 0, 1)
	}
	return candles
}

func TestSeasonalAnalyzer_FindsBestMonth(t *testing.T) {
	source := &fakeHistory{candles: map[string][]marketdata.Candle{
		"XEG.TO": marchRallyCandles(),
	}}
	analyzer := NewSeasonalAnalyzer(source, zerolog.Nop())

	report, err := analyzer.Analyze("XEG.TO", 2)
	require.NoError(t, err)

	assert.True(t, report.Success)
	require.Len(t, report.MonthlyStats, 12)
	assert.Equal(t, "March", report.MonthlyStats[0].Month)
	assert.InDelta(t, 1.0, report.MonthlyStats[0].AvgReturn, 0.02)
	assert.InDelta(t, 100.0, report.MonthlyStats[0].WinRate, 0.01)

	require.Len(t, report.BestMonths, 4)
	assert.Equal(t, "March", report.BestMonths[0])
	assert.Len(t, report.WorstMonths, 3)

	// the fake has no hourly data, intraday stays empty
	assert.Empty(t, report.Intraday.BestBuyHours)
}

func TestSeasonalAnalyzer_NotEnoughHistory(t *testing.T) {
	source := &fakeHistory{candles: map[string][]marketdata.Candle{
		"NEW": dailyCandles(linearCloses(10, 11, 10)),
	}}
	analyzer := NewSeasonalAnalyzer(source, zerolog.Nop())

	_, err := analyzer.Analyze("NEW", 1)
	assert.ErrorContains(t, err, "not enough history")
}

func TestIntradayTiming_RanksHours(t *testing.T) {
	var candles []marketdata.Candle
	price := 100.0
	day := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	for d := 0; d < 30; d++ {
		for h := 0; h < 7; h++ {
			ts := day.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour)
			switch ts.Hour() {
			case 10:
				price *= 1.01
			case 14:
				price *= 0.99
			}
			candles = append(candles, marketdata.Candle{
				Date: ts, Close: price, Volume: 2000,
			})
		}
	}

	timing := intradayTiming(candles)
	require.NotEmpty(t, timing.BestBuyHours)
	assert.Equal(t, 10, timing.BestBuyHours[0])
	assert.LessOrEqual(t, len(timing.HourlyStats), 5)
	assert.Equal(t, 10, timing.HourlyStats[0].Hour)
	assert.InDelta(t, 1.0, timing.HourlyStats[0].AvgChange, 0.01)
	assert.InDelta(t, 2000, timing.HourlyStats[0].AvgVolume, 0.1)
}
