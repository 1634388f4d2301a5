package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"divtrack/internal/indicators"
	"divtrack/internal/marketdata"
)

// DefaultBenchmark is the index used when none is given.
const DefaultBenchmark = "^GSPC"

// riskFreeRate is the annual rate used for Sharpe and alpha.
const riskFreeRate = 0.04

// tradingDaysPerYear annualizes daily return statistics.
const tradingDaysPerYear = 252

// StockPerformance is one stock measured against the benchmark.
type StockPerformance struct {
	Symbol           string   `json:"symbol"`
	TotalReturn      float64  `json:"totalReturn"`
	AnnualizedReturn float64  `json:"annualizedReturn"`
	Volatility       float64  `json:"volatility"`
	SharpeRatio      float64  `json:"sharpeRatio"`
	Beta             *float64 `json:"beta"`
	Alpha            *float64 `json:"alpha"`
	Correlation      *float64 `json:"correlation"`
	MaxDrawdownPct   float64  `json:"maxDrawdownPct"`
	VsBenchmark      float64  `json:"vsBenchmark"`
	DaysAnalyzed     int      `json:"daysAnalyzed"`
}

// BenchmarkMetrics summarizes the benchmark itself.
type BenchmarkMetrics struct {
	Symbol           string  `json:"symbol"`
	TotalReturn      float64 `json:"totalReturn"`
	AnnualizedReturn float64 `json:"annualizedReturn"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	MaxDrawdownPct   float64 `json:"maxDrawdownPct"`
}

// BenchmarkReport compares a set of stocks against a benchmark index.
type BenchmarkReport struct {
	Success     bool               `json:"success"`
	Benchmark   BenchmarkMetrics   `json:"benchmark"`
	Stocks      []StockPerformance `json:"stocks"`
	Outperforms int                `json:"outperforms"`
	PeriodYears int                `json:"periodYears"`
	FetchedAt   time.Time          `json:"fetchedAt"`
}

// BenchmarkComparator measures portfolio stocks against an index.
type BenchmarkComparator struct {
	source HistorySource
	log    zerolog.Logger
}

// NewBenchmarkComparator creates a benchmark comparator.
func NewBenchmarkComparator(source HistorySource, log zerolog.Logger) *BenchmarkComparator {
	return &BenchmarkComparator{
		source: source,
		log:    log.With().Str("component", "benchmark").Logger(),
	}
}

// Compare fetches the benchmark and every symbol over the period and
// computes relative performance. Symbols with too little overlapping data
// are skipped.
func (c *BenchmarkComparator) Compare(symbols []string, benchmark string, years int) (*BenchmarkReport, error) {
	if benchmark == "" {
		benchmark = DefaultBenchmark
	}
	if years <= 0 {
		years = 1
	}
	rng := fmt.Sprintf("%dy", years)

	benchCandles, err := c.source.GetHistory(benchmark, rng, "1d")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch benchmark %s: %w", benchmark, err)
	}
	benchByDate := closesByDate(benchCandles)
	if len(benchByDate) < 21 {
		return nil, fmt.Errorf("not enough benchmark history for %s", benchmark)
	}

	benchReturns := returnsFromMap(benchByDate, sortedDates(benchByDate))
	report := &BenchmarkReport{
		Success:     true,
		PeriodYears: years,
		FetchedAt:   time.Now().UTC(),
		Benchmark: BenchmarkMetrics{
			Symbol:           benchmark,
			TotalReturn:      totalReturn(benchReturns) * 100,
			AnnualizedReturn: annualizedReturn(benchReturns) * 100,
			Volatility:       annualizedVolatility(benchReturns) * 100,
			SharpeRatio:      sharpeRatio(benchReturns),
			MaxDrawdownPct:   maxDrawdownPct(benchReturns),
		},
	}

	for _, symbol := range symbols {
		candles, err := c.source.GetHistory(symbol, rng, "1d")
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol")
			continue
		}
		perf := comparePerformance(symbol, closesByDate(candles), benchByDate)
		if perf == nil {
			c.log.Warn().Str("symbol", symbol).Msg("Too little overlapping data")
			continue
		}
		report.Stocks = append(report.Stocks, *perf)
		if perf.VsBenchmark > 0 {
			report.Outperforms++
		}
	}

	sort.Slice(report.Stocks, func(i, j int) bool {
		return report.Stocks[i].TotalReturn > report.Stocks[j].TotalReturn
	})

	c.log.Info().
		Int("stocks", len(report.Stocks)).
		Int("outperforming", report.Outperforms).
		Msg("Benchmark comparison complete")
	return report, nil
}

// comparePerformance aligns the two series to shared dates before any math.
func comparePerformance(symbol string, stock, bench map[string]float64) *StockPerformance {
	var shared []string
	for date := range stock {
		if _, ok := bench[date]; ok {
			shared = append(shared, date)
		}
	}
	sort.Strings(shared)
	if len(shared) < 21 {
		return nil
	}

	stockReturns := returnsFromMap(stock, shared)
	benchReturns := returnsFromMap(bench, shared)

	perf := &StockPerformance{
		Symbol:           symbol,
		TotalReturn:      totalReturn(stockReturns) * 100,
		AnnualizedReturn: annualizedReturn(stockReturns) * 100,
		Volatility:       annualizedVolatility(stockReturns) * 100,
		SharpeRatio:      sharpeRatio(stockReturns),
		MaxDrawdownPct:   maxDrawdownPct(stockReturns),
		VsBenchmark:      (totalReturn(stockReturns) - totalReturn(benchReturns)) * 100,
		DaysAnalyzed:     len(stockReturns),
	}

	if len(stockReturns) >= 20 {
		marketVar := stat.Variance(benchReturns, nil)
		if marketVar > 0 {
			beta := stat.Covariance(stockReturns, benchReturns, nil) / marketVar
			perf.Beta = &beta

			expected := riskFreeRate + beta*(annualizedReturn(benchReturns)-riskFreeRate)
			alpha := (annualizedReturn(stockReturns) - expected) * 100
			perf.Alpha = &alpha
		}
		corr := stat.Correlation(stockReturns, benchReturns, nil)
		if !math.IsNaN(corr) {
			perf.Correlation = &corr
		}
	}

	return perf
}

func closesByDate(candles []marketdata.Candle) map[string]float64 {
	byDate := make(map[string]float64, len(candles))
	for _, c := range candles {
		byDate[c.Date.UTC().Format("2006-01-02")] = c.Close
	}
	return byDate
}

func sortedDates(byDate map[string]float64) []string {
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

func returnsFromMap(byDate map[string]float64, dates []string) []float64 {
	returns := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		prev := byDate[dates[i-1]]
		if prev == 0 {
			continue
		}
		returns = append(returns, (byDate[dates[i]]-prev)/prev)
	}
	return returns
}

// totalReturn compounds daily returns into a cumulative return.
func totalReturn(returns []float64) float64 {
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return growth - 1
}

func annualizedReturn(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	years := float64(len(returns)) / tradingDaysPerYear
	if years <= 0 {
		return 0
	}
	return math.Pow(1+totalReturn(returns), 1/years) - 1
}

func annualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return indicators.StdDev(returns) * math.Sqrt(tradingDaysPerYear)
}

func sharpeRatio(returns []float64) float64 {
	vol := annualizedVolatility(returns)
	if vol == 0 {
		return 0
	}
	return (annualizedReturn(returns) - riskFreeRate) / vol
}

// maxDrawdownPct tracks the worst peak-to-trough fall of the growth curve.
func maxDrawdownPct(returns []float64) float64 {
	growth := 1.0
	peak := 1.0
	maxDD := 0.0
	for _, r := range returns {
		growth *= 1 + r
		if growth > peak {
			peak = growth
		}
		dd := (growth - peak) / peak
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD * 100
}
