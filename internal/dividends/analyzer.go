package dividends

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"divtrack/internal/stocks"
)

// Analysis is the dividend history summary for one stock.
type Analysis struct {
	Symbol           string       `json:"symbol"`
	CompanyName      string       `json:"companyName"`
	CurrentYield     *float64     `json:"currentYield"`
	AnnualDividend   *float64     `json:"annualDividend"`
	GrowthRate       *float64     `json:"growthRate"`
	ConsecutiveYears int          `json:"consecutiveYears"`
	SafetyScore      *float64     `json:"safetyScore"`
	SafetyRating     string       `json:"safetyRating"`
	Recommendation   string       `json:"recommendation"`
	Years            []YearRecord `json:"years"`
}

// Analyzer combines the stored fundamentals with the yearly history.
type Analyzer struct {
	stockRepo *stocks.Repository
	yearly    *Repository
	log       zerolog.Logger
	now       func() time.Time
}

// NewAnalyzer creates a dividend analyzer.
func NewAnalyzer(stockRepo *stocks.Repository, yearly *Repository, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		stockRepo: stockRepo,
		yearly:    yearly,
		log:       log.With().Str("component", "dividend_analyzer").Logger(),
		now:       time.Now,
	}
}

// Analyze summarizes one symbol from the stored data. The yearly history is
// re-derived so the summary stays consistent with the table even when the
// fundamentals row is stale.
func (a *Analyzer) Analyze(symbol string) (*Analysis, error) {
	stock, err := a.stockRepo.GetBySymbol(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock %s: %w", symbol, err)
	}

	years, err := a.yearly.History(symbol)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		Symbol:           stock.Symbol,
		CompanyName:      stock.CompanyName,
		CurrentYield:     stock.DividendYield,
		AnnualDividend:   stock.AnnualDividend,
		GrowthRate:       stock.DividendGrowthRate,
		ConsecutiveYears: stock.ConsecutiveYears,
		SafetyScore:      stock.SafetyScore,
		SafetyRating:     stock.SafetyRating,
		Recommendation:   stock.Recommendation,
		Years:            years,
	}

	if len(years) > 0 {
		totals := make(map[int]float64, len(years))
		for _, rec := range years {
			totals[rec.Year] = rec.TotalDividend
		}
		analysis.GrowthRate = stocks.GrowthRate(totals)
		analysis.ConsecutiveYears = stocks.ConsecutiveYears(totals, a.now().Year())
	}

	return analysis, nil
}
