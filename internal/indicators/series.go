package indicators

import "github.com/markcheno/go-talib"

// Series variants return one value per input bar so strategies can detect
// crossovers bar by bar. Warmup positions carry zero, matching talib.

// SMASeries returns the full simple moving average series.
func SMASeries(closes []float64, length int) []float64 {
	if length <= 0 || len(closes) < length {
		return nil
	}
	return talib.Sma(closes, length)
}

// RSISeries returns the full relative strength index series.
func RSISeries(closes []float64, length int) []float64 {
	if length <= 0 || len(closes) < length+1 {
		return nil
	}
	return talib.Rsi(closes, length)
}

// MACDSeries returns the macd, signal and histogram series.
func MACDSeries(closes []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	if len(closes) < slow+signal {
		return nil, nil, nil
	}
	return talib.Macd(closes, fast, slow, signal)
}

// BollingerSeries returns the upper, middle and lower band series.
func BollingerSeries(closes []float64, length int, mult float64) (upper, middle, lower []float64) {
	if len(closes) < length {
		return nil, nil, nil
	}
	return talib.BBands(closes, length, mult, mult, 0)
}

// ATRSeries returns the full average true range series.
func ATRSeries(highs, lows, closes []float64, length int) []float64 {
	if length <= 0 || len(closes) < length+1 ||
		len(highs) != len(closes) || len(lows) != len(closes) {
		return nil
	}
	return talib.Atr(highs, lows, closes, length)
}

// Highest returns the maximum of the last n values ending at index i
// (exclusive of i itself). Used for breakout detection.
func Highest(values []float64, i, n int) *float64 {
	if i-n < 0 || n <= 0 {
		return nil
	}
	max := values[i-n]
	for _, v := range values[i-n : i] {
		if v > max {
			max = v
		}
	}
	return &max
}
