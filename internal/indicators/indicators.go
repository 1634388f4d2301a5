// Package indicators provides technical indicator calculations used by the
// backtest engine and the analysis commands.
package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

func isNaN(f float64) bool {
	return math.IsNaN(f)
}

// SMA calculates the Simple Moving Average.
//
// Returns the current value or nil if insufficient data.
func SMA(closes []float64, length int) *float64 {
	if length <= 0 || len(closes) < length {
		return nil
	}

	sma := talib.Sma(closes, length)
	if len(sma) > 0 && !isNaN(sma[len(sma)-1]) {
		result := sma[len(sma)-1]
		return &result
	}

	return nil
}

// EMA calculates the Exponential Moving Average.
//
//	EMA_today = (Price_today × multiplier) + (EMA_yesterday × (1 - multiplier))
//	where multiplier = 2 / (period + 1)
//
// Returns the current value or nil on empty input. With fewer prices than
// the period the mean of the available prices is returned, which makes a
// constant series yield the constant itself.
func EMA(closes []float64, length int) *float64 {
	if len(closes) == 0 || length <= 0 {
		return nil
	}

	// Not enough data for a proper EMA, fall back to SMA
	if len(closes) < length {
		sma := Mean(closes)
		return &sma
	}

	ema := talib.Ema(closes, length)
	if len(ema) > 0 && !isNaN(ema[len(ema)-1]) {
		result := ema[len(ema)-1]
		return &result
	}

	sma := Mean(closes[len(closes)-length:])
	return &sma
}

// RSI calculates the Relative Strength Index over the given period.
//
// A flat series has no gains and no losses; the index is defined as the
// neutral 50 in that case. Returns nil if insufficient data.
func RSI(closes []float64, length int) *float64 {
	if length <= 0 || len(closes) < length+1 {
		return nil
	}

	if isFlat(closes[len(closes)-length-1:]) {
		neutral := 50.0
		return &neutral
	}

	rsi := talib.Rsi(closes, length)
	if len(rsi) > 0 && !isNaN(rsi[len(rsi)-1]) {
		result := rsi[len(rsi)-1]
		return &result
	}

	return nil
}

// MACDValue holds the three components of the MACD indicator.
type MACDValue struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD calculates Moving Average Convergence Divergence with the given
// fast, slow and signal periods (typically 12, 26, 9).
func MACD(closes []float64, fast, slow, signal int) *MACDValue {
	if len(closes) < slow+signal {
		return nil
	}

	macd, sig, hist := talib.Macd(closes, fast, slow, signal)
	last := len(macd) - 1
	if last < 0 || isNaN(macd[last]) || isNaN(sig[last]) {
		return nil
	}

	return &MACDValue{
		MACD:      macd[last],
		Signal:    sig[last],
		Histogram: hist[last],
	}
}

// BollingerBands represents Bollinger Bands values
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Bollinger calculates Bollinger Bands.
//
//	Middle Band = SMA(length)
//	Upper Band = Middle + (mult × std deviation)
//	Lower Band = Middle - (mult × std deviation)
func Bollinger(closes []float64, length int, mult float64) *BollingerBands {
	if len(closes) < length {
		return nil
	}

	// MAType 0 = SMA
	upper, middle, lower := talib.BBands(closes, length, mult, mult, 0)

	last := len(upper) - 1
	if last >= 0 && !isNaN(upper[last]) {
		return &BollingerBands{
			Upper:  upper[last],
			Middle: middle[last],
			Lower:  lower[last],
		}
	}

	return nil
}

// BollingerPosition reports where the current price sits within the bands,
// clamped to the 0.0 (lower band) to 1.0 (upper band) range.
func BollingerPosition(closes []float64, length int, mult float64) *float64 {
	bands := Bollinger(closes, length, mult)
	if bands == nil || len(closes) == 0 {
		return nil
	}

	width := bands.Upper - bands.Lower
	position := 0.5
	if width != 0 {
		position = (closes[len(closes)-1] - bands.Lower) / width
		if position < 0.0 {
			position = 0.0
		}
		if position > 1.0 {
			position = 1.0
		}
	}
	return &position
}

// ATR calculates the Average True Range over the given period
// (typically 14). All three slices must have equal length.
func ATR(highs, lows, closes []float64, length int) *float64 {
	if length <= 0 || len(closes) < length+1 ||
		len(highs) != len(closes) || len(lows) != len(closes) {
		return nil
	}

	atr := talib.Atr(highs, lows, closes, length)
	if len(atr) > 0 && !isNaN(atr[len(atr)-1]) {
		result := atr[len(atr)-1]
		return &result
	}

	return nil
}

// Volatility calculates annualized volatility in percent from the rolling
// standard deviation of log returns over the given window.
//
//	Volatility = StdDev(log returns) × sqrt(252) × 100
func Volatility(closes []float64, window int) *float64 {
	if window <= 1 || len(closes) < window+1 {
		return nil
	}

	logReturns := LogReturns(closes[len(closes)-window-1:])
	if len(logReturns) == 0 {
		return nil
	}

	vol := StdDev(logReturns) * math.Sqrt(252) * 100
	return &vol
}

func isFlat(values []float64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] != values[0] {
			return false
		}
	}
	return true
}
