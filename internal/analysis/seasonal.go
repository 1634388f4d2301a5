package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"divtrack/internal/indicators"
	"divtrack/internal/marketdata"
)

// MonthlyStat aggregates daily returns for one calendar month.
type MonthlyStat struct {
	Month       string  `json:"month"`
	AvgReturn   float64 `json:"avgReturn"`
	WinRate     float64 `json:"winRate"`
	StdDev      float64 `json:"stdDev"`
	Occurrences int     `json:"occurrences"`
}

// HourlyStat aggregates hour-over-hour changes for one hour of the day.
type HourlyStat struct {
	Hour        int     `json:"hour"`
	AvgChange   float64 `json:"avgChange"`
	WinRate     float64 `json:"winRate"`
	AvgVolume   float64 `json:"avgVolume"`
	Occurrences int     `json:"occurrences"`
}

// IntradayTiming lists the most favorable hours to enter.
type IntradayTiming struct {
	BestBuyHours []int        `json:"bestBuyHours"`
	HourlyStats  []HourlyStat `json:"hourlyStats"`
}

// SeasonalReport describes calendar patterns for one symbol.
type SeasonalReport struct {
	Success      bool           `json:"success"`
	Symbol       string         `json:"symbol"`
	PeriodYears  int            `json:"periodYears"`
	MonthlyStats []MonthlyStat  `json:"monthlyStats"`
	BestMonths   []string       `json:"bestMonths"`
	WorstMonths  []string       `json:"worstMonths"`
	Intraday     IntradayTiming `json:"intradayTiming"`
	FetchedAt    time.Time      `json:"fetchedAt"`
}

// SeasonalAnalyzer finds monthly and intraday patterns in price history.
type SeasonalAnalyzer struct {
	source HistorySource
	log    zerolog.Logger
}

// NewSeasonalAnalyzer creates a seasonal analyzer.
func NewSeasonalAnalyzer(source HistorySource, log zerolog.Logger) *SeasonalAnalyzer {
	return &SeasonalAnalyzer{
		source: source,
		log:    log.With().Str("component", "seasonal").Logger(),
	}
}

// Analyze groups daily returns by calendar month over the period and
// hour-over-hour changes over the last two years of hourly bars. The top four
// months are reported as best, the bottom three as worst. Hourly data is
// optional, some symbols simply have none.
func (a *SeasonalAnalyzer) Analyze(symbol string, years int) (*SeasonalReport, error) {
	if years <= 0 {
		years = 5
	}

	daily, err := a.source.GetHistory(symbol, fmt.Sprintf("%dy", years), "1d")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}
	if len(daily) < 60 {
		return nil, fmt.Errorf("not enough history for %s", symbol)
	}

	report := &SeasonalReport{
		Success:     true,
		Symbol:      symbol,
		PeriodYears: years,
		FetchedAt:   time.Now().UTC(),
	}
	report.MonthlyStats = monthlyStats(daily)
	report.BestMonths, report.WorstMonths = rankMonths(report.MonthlyStats)

	hourly, err := a.source.GetHistory(symbol, "730d", "1h")
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("No hourly data")
	} else {
		report.Intraday = intradayTiming(hourly)
	}

	a.log.Info().
		Str("symbol", symbol).
		Strs("best_months", report.BestMonths).
		Msg("Seasonal analysis complete")
	return report, nil
}

// monthlyStats buckets day-over-day close changes by the month they fell in
// and returns the buckets sorted by average return, best first.
func monthlyStats(candles []marketdata.Candle) []MonthlyStat {
	byMonth := make(map[time.Month][]float64)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			continue
		}
		change := (candles[i].Close - prev) / prev * 100
		byMonth[candles[i].Date.Month()] = append(byMonth[candles[i].Date.Month()], change)
	}

	stats := make([]MonthlyStat, 0, len(byMonth))
	for month := time.January; month <= time.December; month++ {
		returns := byMonth[month]
		if len(returns) == 0 {
			continue
		}
		wins := 0
		for _, r := range returns {
			if r > 0 {
				wins++
			}
		}
		stats = append(stats, MonthlyStat{
			Month:       month.String(),
			AvgReturn:   round2(indicators.Mean(returns)),
			WinRate:     round1(float64(wins) / float64(len(returns)) * 100),
			StdDev:      round2(indicators.StdDev(returns)),
			Occurrences: len(returns),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].AvgReturn > stats[j].AvgReturn
	})
	return stats
}

// rankMonths takes the top four as buy months and the bottom three as months
// to stay in cash.
func rankMonths(sorted []MonthlyStat) (best, worst []string) {
	for i, s := range sorted {
		if i < 4 {
			best = append(best, s.Month)
		}
		if i >= len(sorted)-3 && len(sorted) > 4 {
			worst = append(worst, s.Month)
		}
	}
	return best, worst
}

func intradayTiming(candles []marketdata.Candle) IntradayTiming {
	type bucket struct {
		changes []float64
		volumes []float64
	}
	byHour := make(map[int]*bucket)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			continue
		}
		hour := candles[i].Date.Hour()
		b := byHour[hour]
		if b == nil {
			b = &bucket{}
			byHour[hour] = b
		}
		b.changes = append(b.changes, (candles[i].Close-prev)/prev*100)
		b.volumes = append(b.volumes, float64(candles[i].Volume))
	}

	stats := make([]HourlyStat, 0, len(byHour))
	for hour := 0; hour < 24; hour++ {
		b := byHour[hour]
		if b == nil {
			continue
		}
		wins := 0
		for _, c := range b.changes {
			if c > 0 {
				wins++
			}
		}
		stats = append(stats, HourlyStat{
			Hour:        hour,
			AvgChange:   round3(indicators.Mean(b.changes)),
			WinRate:     round1(float64(wins) / float64(len(b.changes)) * 100),
			AvgVolume:   math.Round(indicators.Mean(b.volumes)),
			Occurrences: len(b.changes),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].AvgChange > stats[j].AvgChange
	})

	timing := IntradayTiming{}
	for i, s := range stats {
		if i >= 3 {
			break
		}
		timing.BestBuyHours = append(timing.BestBuyHours, s.Hour)
	}
	if len(stats) > 5 {
		stats = stats[:5]
	}
	timing.HourlyStats = stats
	return timing
}
