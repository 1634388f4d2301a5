package analysis

import (
	"math"
	"time"

	"divtrack/internal/marketdata"
)

// GrowthFilters records which of the five growth screens passed.
type GrowthFilters struct {
	RevenueGrowth bool `json:"revenueGrowth"`
	EPSGrowth     bool `json:"epsGrowth"`
	PEGRatio      bool `json:"pegRatio"`
	RuleOf40      bool `json:"ruleOf40"`
	FreeCashFlow  bool `json:"freeCashFlow"`
}

// GrowthReport is the growth stock screen result for one symbol.
type GrowthReport struct {
	Success       bool          `json:"success"`
	Symbol        string        `json:"symbol"`
	CompanyName   string        `json:"companyName"`
	Sector        string        `json:"sector"`
	Industry      string        `json:"industry"`
	CurrentPrice  float64       `json:"currentPrice"`
	ProfitMargin  float64       `json:"profitMargin"`
	RevenueGrowth *float64      `json:"revenueGrowth"`
	EPSGrowth     *float64      `json:"epsGrowth"`
	PEGRatio      *float64      `json:"pegRatio"`
	RuleOf40      *float64      `json:"ruleOf40"`
	FreeCashFlow  *float64      `json:"freeCashFlow"`
	GrowthScore   int           `json:"growthScore"`
	GrowthRating  string        `json:"growthRating"`
	Filters       GrowthFilters `json:"filtersPassed"`
	FiltersCount  int           `json:"filtersCount"`
	FetchedAt     time.Time     `json:"fetchedAt"`
}

// AnalyzeGrowth screens one stock through five growth filters, 20 points
// each: revenue growth above 15%, positive EPS growth, PEG under 1.5, Rule
// of 40 above 40 and positive free cash flow.
func AnalyzeGrowth(q *marketdata.Quote) *GrowthReport {
	report := &GrowthReport{
		Success:     true,
		Symbol:      q.Symbol,
		CompanyName: q.Symbol,
		Sector:      "N/A",
		Industry:    "N/A",
		FetchedAt:   time.Now().UTC(),
	}
	if q.LongName != nil {
		report.CompanyName = *q.LongName
	}
	if q.Sector != nil {
		report.Sector = *q.Sector
	}
	if q.Industry != nil {
		report.Industry = *q.Industry
	}
	if q.CurrentPrice != nil {
		report.CurrentPrice = *q.CurrentPrice
	}
	if q.ProfitMargin != nil {
		report.ProfitMargin = *q.ProfitMargin * 100
	}

	// Filter 1: revenue growth over 15% year over year
	if q.RevenueGrowth != nil {
		growth := *q.RevenueGrowth * 100
		report.RevenueGrowth = &growth
		report.Filters.RevenueGrowth = growth > 15
	}

	// Filter 2: positive earnings growth
	if q.EarningsGrowth != nil {
		growth := *q.EarningsGrowth * 100
		report.EPSGrowth = &growth
		report.Filters.EPSGrowth = growth > 0
	}

	// Filter 3: PEG under 1.5, derived from P/E when Yahoo has no ratio
	peg := q.PEGRatio
	if peg == nil && q.TrailingPE != nil && report.EPSGrowth != nil && *report.EPSGrowth > 0 {
		derived := *q.TrailingPE / *report.EPSGrowth
		peg = &derived
	}
	if peg != nil {
		rounded := math.Round(*peg*100) / 100
		report.PEGRatio = &rounded
		report.Filters.PEGRatio = *peg < 1.5
	}

	// Filter 4: Rule of 40, revenue growth plus profit margin
	if report.RevenueGrowth != nil && q.ProfitMargin != nil {
		rule40 := *report.RevenueGrowth + report.ProfitMargin
		report.RuleOf40 = &rule40
		report.Filters.RuleOf40 = rule40 > 40
	}

	// Filter 5: positive free cash flow
	if q.FreeCashflow != nil {
		report.FreeCashFlow = q.FreeCashflow
		report.Filters.FreeCashFlow = *q.FreeCashflow > 0
	}

	count := 0
	for _, passed := range []bool{
		report.Filters.RevenueGrowth,
		report.Filters.EPSGrowth,
		report.Filters.PEGRatio,
		report.Filters.RuleOf40,
		report.Filters.FreeCashFlow,
	} {
		if passed {
			count++
		}
	}
	report.FiltersCount = count
	report.GrowthScore = count * 20
	report.GrowthRating = growthRating(report.GrowthScore)

	return report
}

func growthRating(score int) string {
	switch {
	case score >= 80:
		return "Strong Growth"
	case score >= 60:
		return "Moderate Growth"
	case score >= 40:
		return "Weak Growth"
	default:
		return "Not Growth Stock"
	}
}
