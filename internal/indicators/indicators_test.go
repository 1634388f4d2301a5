package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantSeries(value float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = value
	}
	return s
}

func TestSMA_ConstantSeries(t *testing.T) {
	closes := constantSeries(42.0, 60)

	sma := SMA(closes, 20)
	require.NotNil(t, sma)
	assert.InDelta(t, 42.0, *sma, 1e-9)
}

func TestEMA_ConstantSeries(t *testing.T) {
	closes := constantSeries(42.0, 60)

	ema := EMA(closes, 20)
	require.NotNil(t, ema)
	assert.InDelta(t, 42.0, *ema, 1e-9)

	// SMA and EMA agree on a flat series
	sma := SMA(closes, 20)
	require.NotNil(t, sma)
	assert.InDelta(t, *sma, *ema, 1e-9)
}

func TestEMA_ShortSeriesFallsBackToMean(t *testing.T) {
	closes := []float64{10, 12, 14}

	ema := EMA(closes, 20)
	require.NotNil(t, ema)
	assert.InDelta(t, 12.0, *ema, 1e-9)
}

func TestRSI_ConstantSeriesIsNeutral(t *testing.T) {
	closes := constantSeries(100.0, 50)

	rsi := RSI(closes, 14)
	require.NotNil(t, rsi)
	assert.InDelta(t, 50.0, *rsi, 1e-9)
}

func TestRSI_InsufficientData(t *testing.T) {
	assert.Nil(t, RSI([]float64{1, 2, 3}, 14))
}

func TestRSI_AllGainsApproaches100(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	rsi := RSI(closes, 14)
	require.NotNil(t, rsi)
	assert.Greater(t, *rsi, 90.0)
}

func TestMACD_RequiresWarmup(t *testing.T) {
	assert.Nil(t, MACD(constantSeries(50, 10), 12, 26, 9))

	value := MACD(constantSeries(50, 120), 12, 26, 9)
	require.NotNil(t, value)
	assert.InDelta(t, 0.0, value.MACD, 1e-9)
	assert.InDelta(t, 0.0, value.Signal, 1e-9)
}

func TestBollinger_ConstantSeriesCollapses(t *testing.T) {
	closes := constantSeries(75.0, 40)

	bands := Bollinger(closes, 20, 2.0)
	require.NotNil(t, bands)
	assert.InDelta(t, 75.0, bands.Upper, 1e-9)
	assert.InDelta(t, 75.0, bands.Middle, 1e-9)
	assert.InDelta(t, 75.0, bands.Lower, 1e-9)

	position := BollingerPosition(closes, 20, 2.0)
	require.NotNil(t, position)
	assert.InDelta(t, 0.5, *position, 1e-9)
}

func TestATR_InsufficientData(t *testing.T) {
	highs := constantSeries(11, 5)
	lows := constantSeries(9, 5)
	closes := constantSeries(10, 5)

	assert.Nil(t, ATR(highs, lows, closes, 14))
}

func TestATR_ConstantRange(t *testing.T) {
	n := 40
	highs := constantSeries(11, n)
	lows := constantSeries(9, n)
	closes := constantSeries(10, n)

	atr := ATR(highs, lows, closes, 14)
	require.NotNil(t, atr)
	assert.InDelta(t, 2.0, *atr, 1e-9)
}

func TestVolatility_ConstantSeriesIsZero(t *testing.T) {
	closes := constantSeries(50.0, 40)

	vol := Volatility(closes, 20)
	require.NotNil(t, vol)
	assert.InDelta(t, 0.0, *vol, 1e-9)
}

func TestHighest(t *testing.T) {
	values := []float64{1, 5, 3, 8, 2, 7}

	h := Highest(values, 5, 4)
	require.NotNil(t, h)
	assert.InDelta(t, 8.0, *h, 1e-9)

	assert.Nil(t, Highest(values, 2, 4))
}

func TestReturns(t *testing.T) {
	returns := Returns([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)
}
