package analysis

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divtrack/internal/marketdata"
)

func TestMultiStrategyAnalyzer_RanksByTotalReturn(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100 + 0.1*float64(i) + 4*math.Sin(float64(i)/9)
	}
	history := &fakeHistory{candles: map[string][]marketdata.Candle{
		"CL=F": dailyCandles(closes),
	}}
	quotes := &fakeQuotes{quotes: map[string]*marketdata.Quote{
		"CL=F": {
			Symbol:       "CL=F",
			LongName:     strPtr("Crude Oil Futures"),
			CurrentPrice: fPtr(closes[len(closes)-1]),
			TrailingPE:   fPtr(12),
		},
	}}
	analyzer := NewMultiStrategyAnalyzer(history, quotes, zerolog.Nop())

	comparison, err := analyzer.Analyze("CL=F", 10000, 1)
	require.NoError(t, err)

	assert.True(t, comparison.Success)
	assert.Equal(t, "Crude Oil Futures", comparison.CompanyName)
	require.NotEmpty(t, comparison.Strategies)
	assert.Contains(t, comparison.Strategies, "buyhold")

	require.NotEmpty(t, comparison.Ranking)
	assert.Equal(t, comparison.Ranking[0], comparison.BestStrategy)
	for i := 1; i < len(comparison.Ranking); i++ {
		prev := comparison.Strategies[comparison.Ranking[i-1]].TotalReturn
		curr := comparison.Strategies[comparison.Ranking[i]].TotalReturn
		assert.GreaterOrEqual(t, prev, curr)
	}

	require.NotNil(t, comparison.Valuation)
	assert.Contains(t, comparison.Valuation.Signals, "Low P/E (Undervalued)")
}

func TestMultiStrategyAnalyzer_HistoryFetchFails(t *testing.T) {
	analyzer := NewMultiStrategyAnalyzer(&fakeHistory{}, &fakeQuotes{}, zerolog.Nop())

	_, err := analyzer.Analyze("MISSING", 10000, 1)
	assert.ErrorContains(t, err, "failed to fetch history")
}

func TestMultiStrategyAnalyzer_QuoteFailureSkipsValuation(t *testing.T) {
	history := &fakeHistory{candles: map[string][]marketdata.Candle{
		"GC=F": dailyCandles(linearCloses(1800, 2000, 120)),
	}}
	analyzer := NewMultiStrategyAnalyzer(history, &fakeQuotes{}, zerolog.Nop())

	comparison, err := analyzer.Analyze("GC=F", 5000, 1)
	require.NoError(t, err)

	assert.Nil(t, comparison.Valuation)
	assert.Equal(t, "GC=F", comparison.CompanyName)
}
