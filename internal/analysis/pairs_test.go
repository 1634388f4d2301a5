package analysis

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divtrack/internal/marketdata"
)

// fakeHistory serves canned candles keyed by symbol, or errors for symbols
// it does not know.
type fakeHistory struct {
	candles  map[string][]marketdata.Candle
	hourly   map[string][]marketdata.Candle
	requests []string
}

func (f *fakeHistory) GetHistory(symbol, rng, interval string) ([]marketdata.Candle, error) {
	f.requests = append(f.requests, symbol+":"+interval)
	if interval == "1h" {
		candles, ok := f.hourly[symbol]
		if !ok {
			return nil, fmt.Errorf("no hourly data for %s", symbol)
		}
		return candles, nil
	}
	candles, ok := f.candles[symbol]
	if !ok {
		return nil, fmt.Errorf("no data for %s", symbol)
	}
	return candles, nil
}

type fakeQuotes struct {
	quotes map[string]*marketdata.Quote
}

func (f *fakeQuotes) GetQuote(symbol string) (*marketdata.Quote, error) {
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("no quote for %s", symbol)
	}
	return q, nil
}

// dailyCandles turns closes into consecutive daily candles starting at a
// fixed date so series for different symbols share dates.
func dailyCandles(closes []float64) []marketdata.Candle {
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]marketdata.Candle, len(closes))
	for i, c := range closes {
		candles[i] = marketdata.Candle{
			Date:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000,
		}
	}
	return candles
}

func TestPairsAnalyzer_FindsCointegratedPair(t *testing.T) {
	n := 150
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = 100 + 0.1*float64(i) + 5*math.Sin(float64(i)/7)
		y[i] = 2*x[i] + 1.5*math.Sin(1.3*float64(i))
	}

	source := &fakeHistory{candles: map[string][]marketdata.Candle{
		"XOM": dailyCandles(x),
		"CVX": dailyCandles(y),
	}}
	analyzer := NewPairsAnalyzer(source, zerolog.Nop())

	report, err := analyzer.Analyze([]string{"XOM", "CVX"}, 1)
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, n, report.DataPoints)
	require.Len(t, report.CorrelationMatrix, 1)
	assert.Greater(t, report.CorrelationMatrix[0].Correlation, 0.95)

	require.NotEmpty(t, report.PairSuggestions)
	pair := report.PairSuggestions[0]
	assert.True(t, pair.IsStationaryPair)
	assert.Equal(t, "MeanReversion", pair.RecommendationType)
	assert.Greater(t, pair.Score, 70.0)
	assert.InDelta(t, 0.5, pair.OptimalRatio, 0.05)
	assert.Contains(t, pair.Reasoning, "Stationary spread")
	assert.Equal(t, report.PairSuggestions[:1], report.TopPairs)
}

func TestPairsAnalyzer_SkipsSymbolWithoutData(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	source := &fakeHistory{candles: map[string][]marketdata.Candle{
		"KO":  dailyCandles(closes),
		"PEP": dailyCandles(closes),
	}}
	analyzer := NewPairsAnalyzer(source, zerolog.Nop())

	report, err := analyzer.Analyze([]string{"KO", "PEP", "BADSYM"}, 1)
	require.NoError(t, err)
	assert.Len(t, report.CorrelationMatrix, 1)
}

func TestPairsAnalyzer_NeedsTwoSymbols(t *testing.T) {
	analyzer := NewPairsAnalyzer(&fakeHistory{}, zerolog.Nop())

	_, err := analyzer.Analyze([]string{"KO"}, 1)
	assert.ErrorContains(t, err, "at least 2 symbols")
}

func TestEngleGrangerPValue(t *testing.T) {
	assert.InDelta(t, 0.05, engleGrangerPValue(-3.34), 1e-9)
	assert.InDelta(t, 0.001, engleGrangerPValue(-5.0), 1e-9)
	assert.InDelta(t, 0.99, engleGrangerPValue(1.0), 1e-9)

	// midway between the -2.57 and -2.00 anchors
	mid := engleGrangerPValue(-2.285)
	assert.Greater(t, mid, 0.25)
	assert.Less(t, mid, 0.50)
}

func TestMeanReversionHalfLife(t *testing.T) {
	// geometric decay with factor 0.9 has lambda -0.1
	spread := make([]float64, 50)
	spread[0] = 100
	for i := 1; i < len(spread); i++ {
		spread[i] = spread[i-1] * 0.9
	}
	hl := meanReversionHalfLife(spread)
	require.NotNil(t, hl)
	assert.Equal(t, 6, *hl)

	// a trending spread never reverts
	trend := make([]float64, 50)
	for i := range trend {
		trend[i] = float64(i)
	}
	assert.Nil(t, meanReversionHalfLife(trend))
}

func TestScorePair(t *testing.T) {
	hl := 20
	assert.Equal(t, 100.0, scorePair(0.9, 1.0, true, &hl))

	slow := 80
	assert.Equal(t, 90.0, scorePair(0.9, 1.0, true, &slow))

	assert.Equal(t, 10.0, scorePair(0.5, 0, false, nil))
}

func TestRiskLevelBuckets(t *testing.T) {
	assert.Equal(t, "Low", riskLevel(75))
	assert.Equal(t, "Medium", riskLevel(55))
	assert.Equal(t, "High", riskLevel(40))
}
