package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divtrack/internal/marketdata"
)

func TestAnalyzeGrowth_AllFiltersPass(t *testing.T) {
	q := &marketdata.Quote{
		Symbol:         "NVDA",
		LongName:       strPtr("NVIDIA Corporation"),
		CurrentPrice:   fPtr(120),
		RevenueGrowth:  fPtr(0.35),
		EarningsGrowth: fPtr(0.50),
		PEGRatio:       fPtr(1.1),
		ProfitMargin:   fPtr(0.30),
		FreeCashflow:   fPtr(25e9),
	}

	report := AnalyzeGrowth(q)

	assert.Equal(t, 5, report.FiltersCount)
	assert.Equal(t, 100, report.GrowthScore)
	assert.Equal(t, "Strong Growth", report.GrowthRating)
	require.NotNil(t, report.RuleOf40)
	assert.InDelta(t, 65.0, *report.RuleOf40, 1e-9)
}

func TestAnalyzeGrowth_DerivesPEGFromPE(t *testing.T) {
	q := &marketdata.Quote{
		Symbol:         "CRM",
		TrailingPE:     fPtr(30),
		EarningsGrowth: fPtr(0.25),
	}

	report := AnalyzeGrowth(q)

	require.NotNil(t, report.PEGRatio)
	assert.InDelta(t, 1.2, *report.PEGRatio, 1e-9)
	assert.True(t, report.Filters.PEGRatio)
}

func TestAnalyzeGrowth_ValueStockScoresLow(t *testing.T) {
	q := &marketdata.Quote{
		Symbol:         "T",
		RevenueGrowth:  fPtr(0.01),
		EarningsGrowth: fPtr(-0.05),
		ProfitMargin:   fPtr(0.10),
		FreeCashflow:   fPtr(15e9),
	}

	report := AnalyzeGrowth(q)

	assert.Equal(t, 1, report.FiltersCount)
	assert.Equal(t, 20, report.GrowthScore)
	assert.Equal(t, "Not Growth Stock", report.GrowthRating)
}

func TestGrowthRatingBuckets(t *testing.T) {
	assert.Equal(t, "Strong Growth", growthRating(80))
	assert.Equal(t, "Moderate Growth", growthRating(60))
	assert.Equal(t, "Weak Growth", growthRating(40))
	assert.Equal(t, "Not Growth Stock", growthRating(20))
}
