package analysis

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divtrack/internal/marketdata"
)

func linearCloses(start, end float64, n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + (end-start)*float64(i)/float64(n-1)
	}
	return closes
}

func TestBenchmarkComparator_OutperformingStock(t *testing.T) {
	n := 120
	source := &fakeHistory{candles: map[string][]marketdata.Candle{
		"^GSPC": dailyCandles(linearCloses(100, 110, n)),
		"AAPL":  dailyCandles(linearCloses(100, 130, n)),
		"T":     dailyCandles(linearCloses(100, 95, n)),
	}}
	comparator := NewBenchmarkComparator(source, zerolog.Nop())

	report, err := comparator.Compare([]string{"AAPL", "T"}, "", 1)
	require.NoError(t, err)

	assert.Equal(t, "^GSPC", report.Benchmark.Symbol)
	assert.InDelta(t, 10.0, report.Benchmark.TotalReturn, 0.01)
	assert.Equal(t, 1, report.Outperforms)

	require.Len(t, report.Stocks, 2)
	// sorted by total return, best first
	assert.Equal(t, "AAPL", report.Stocks[0].Symbol)
	assert.InDelta(t, 30.0, report.Stocks[0].TotalReturn, 0.01)
	assert.InDelta(t, 20.0, report.Stocks[0].VsBenchmark, 0.02)
	assert.Equal(t, n-1, report.Stocks[0].DaysAnalyzed)

	require.NotNil(t, report.Stocks[0].Beta)
	assert.Greater(t, *report.Stocks[0].Beta, 0.0)
	require.NotNil(t, report.Stocks[0].Correlation)
	assert.Greater(t, *report.Stocks[0].Correlation, 0.99)

	assert.Equal(t, "T", report.Stocks[1].Symbol)
	assert.Less(t, report.Stocks[1].VsBenchmark, 0.0)
}

func TestBenchmarkComparator_SkipsFailingSymbol(t *testing.T) {
	source := &fakeHistory{candles: map[string][]marketdata.Candle{
		"^GSPC": dailyCandles(linearCloses(100, 105, 60)),
		"KO":    dailyCandles(linearCloses(50, 55, 60)),
	}}
	comparator := NewBenchmarkComparator(source, zerolog.Nop())

	report, err := comparator.Compare([]string{"KO", "MISSING"}, "^GSPC", 1)
	require.NoError(t, err)
	assert.Len(t, report.Stocks, 1)
}

func TestBenchmarkComparator_BenchmarkFetchFails(t *testing.T) {
	comparator := NewBenchmarkComparator(&fakeHistory{}, zerolog.Nop())

	_, err := comparator.Compare([]string{"KO"}, "^GSPC", 1)
	assert.ErrorContains(t, err, "benchmark")
}

func TestTotalReturnCompounds(t *testing.T) {
	assert.InDelta(t, 0.21, totalReturn([]float64{0.1, 0.1}), 1e-9)
	assert.InDelta(t, 0.0, totalReturn(nil), 1e-9)
}

func TestMaxDrawdownPct(t *testing.T) {
	// peak 1.1, trough 0.55, a 50% fall
	dd := maxDrawdownPct([]float64{0.1, -0.5, 0.2})
	assert.InDelta(t, -50.0, dd, 1e-9)

	assert.InDelta(t, 0.0, maxDrawdownPct([]float64{0.1, 0.1}), 1e-9)
}

func TestAnnualizedVolatilityOfFlatSeries(t *testing.T) {
	assert.InDelta(t, 0.0, annualizedVolatility([]float64{0, 0, 0, 0}), 1e-9)
}
