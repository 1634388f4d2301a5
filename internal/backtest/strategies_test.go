package backtest

import (
	"testing"
	"time"

	"divtrack/internal/marketdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candlesFromCloses(closes []float64) []marketdata.Candle {
	candles := make([]marketdata.Candle, len(closes))
	date := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = marketdata.Candle{
			Date:  date.AddDate(0, 0, i),
			Open:  c,
			High:  c + 0.5,
			Low:   c - 0.5,
			Close: c,
		}
	}
	return candles
}

func TestNewStrategy_AllNames(t *testing.T) {
	for _, name := range StrategyNames() {
		strategy, err := NewStrategy(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, strategy.Name())
	}

	_, err := NewStrategy("nope")
	require.Error(t, err)
}

func TestSMACross_DetectsGoldenCross(t *testing.T) {
	// Falling then sharply rising so the fast average crosses the slow one
	closes := []float64{20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 14, 18, 22, 26, 30}
	strategy := &SMACrossStrategy{Fast: 2, Slow: 4}
	strategy.Prepare(candlesFromCloses(closes))

	var bought bool
	for i := strategy.Warmup(); i < len(closes); i++ {
		action, reason := strategy.Signal(i, -1)
		if action == Buy {
			bought = true
			assert.Contains(t, reason, "crossed above")
			break
		}
	}
	assert.True(t, bought, "expected a golden cross buy signal")
}

func TestSMACross_DetectsDeathCross(t *testing.T) {
	closes := []float64{10, 14, 18, 22, 26, 30, 26, 22, 18, 14, 10, 8, 6, 4}
	strategy := &SMACrossStrategy{Fast: 2, Slow: 4}
	strategy.Prepare(candlesFromCloses(closes))

	var sold bool
	for i := strategy.Warmup(); i < len(closes); i++ {
		action, _ := strategy.Signal(i, 0)
		if action == Sell {
			sold = true
			break
		}
	}
	assert.True(t, sold, "expected a death cross sell signal")
}

func TestRSIStrategy_NoSignalOnFlatSeries(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	strategy := &RSIStrategy{Period: 14, Oversold: 30, Overbought: 70}
	strategy.Prepare(candlesFromCloses(closes))

	for i := strategy.Warmup(); i < len(closes); i++ {
		action, _ := strategy.Signal(i, -1)
		assert.Equal(t, Hold, action)
	}
}

func TestBollingerStrategy_BuysLowerBandExitMiddle(t *testing.T) {
	// Stable range then a sharp drop pierces the lower band
	closes := make([]float64, 0, 40)
	for i := 0; i < 25; i++ {
		if i%2 == 0 {
			closes = append(closes, 100)
		} else {
			closes = append(closes, 101)
		}
	}
	closes = append(closes, 90) // pierce lower band
	closes = append(closes, 105)

	strategy := &BollingerStrategy{Period: 20, Mult: 2.0}
	strategy.Prepare(candlesFromCloses(closes))

	action, reason := strategy.Signal(25, -1)
	assert.Equal(t, Buy, action)
	assert.Contains(t, reason, "lower Bollinger Band")

	action, _ = strategy.Signal(26, 25)
	assert.Equal(t, Sell, action)
}

func TestMomentumStrategy_BreakoutAndBreakdown(t *testing.T) {
	closes := make([]float64, 0, 30)
	for i := 0; i < 21; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 102) // breakout above the 20-day high
	closes = append(closes, 93)  // below 8% stop from 102

	strategy := &MomentumStrategy{Lookback: 20, StopPct: 0.08}
	strategy.Prepare(candlesFromCloses(closes))

	action, reason := strategy.Signal(21, -1)
	assert.Equal(t, Buy, action)
	assert.Contains(t, reason, "Breakout")

	action, reason = strategy.Signal(22, 21)
	assert.Equal(t, Sell, action)
	assert.Contains(t, reason, "Stop Loss")
}

func TestSeasonalStrategy_EntersBestMonthAndExitsNext(t *testing.T) {
	// Two years of daily data where March always rallies
	var candles []marketdata.Candle
	price := 100.0
	date := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := 0; d < 730; d++ {
		current := date.AddDate(0, 0, d)
		if current.Month() == time.March {
			price += 1.0
		} else {
			price -= 0.05
		}
		candles = append(candles, marketdata.Candle{
			Date: current, Open: price, High: price + 1, Low: price - 1, Close: price,
		})
	}

	strategy := &SeasonalStrategy{TopMonths: 4}
	strategy.Prepare(candles)

	// Find the first bar in early March and expect a buy
	var entryIdx = -1
	for i, c := range candles {
		if c.Date.Month() == time.March && c.Date.Day() <= 5 {
			action, reason := strategy.Signal(i, -1)
			if action == Buy {
				entryIdx = i
				assert.Contains(t, reason, "March")
			}
			break
		}
	}
	require.GreaterOrEqual(t, entryIdx, 0, "expected March entry")

	// First April bar closes the position
	for i := entryIdx; i < len(candles); i++ {
		if candles[i].Date.Month() == time.April {
			action, _ := strategy.Signal(i, entryIdx)
			assert.Equal(t, Sell, action)
			break
		}
	}
}
