package dividends

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divtrack/internal/stocks"
	"divtrack/internal/testutil"
)

func TestAnalyze_RederivesFromYearlyHistory(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()

	stockRepo := stocks.NewRepository(db.Conn(), zerolog.Nop())
	yearly := NewRepository(db.Conn(), zerolog.Nop())

	yield := 3.05
	staleGrowth := 99.0
	require.NoError(t, stockRepo.Upsert(&stocks.Stock{
		Symbol:             "KO",
		CompanyName:        "The Coca-Cola Company",
		DividendYield:      &yield,
		DividendGrowthRate: &staleGrowth,
		ConsecutiveYears:   1,
	}))
	require.NoError(t, yearly.Replace("KO", map[int]float64{
		2023: 1.84,
		2024: 1.94,
		2025: 2.04,
		2026: 2.10,
	}))

	analyzer := NewAnalyzer(stockRepo, yearly, zerolog.Nop())
	analyzer.now = func() time.Time { return time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC) }

	analysis, err := analyzer.Analyze("KO")
	require.NoError(t, err)

	assert.Equal(t, "The Coca-Cola Company", analysis.CompanyName)
	assert.Equal(t, 3.05, *analysis.CurrentYield)
	assert.Len(t, analysis.Years, 4)

	// The summary reflects the stored yearly rows, not the stale columns
	assert.Equal(t, 4, analysis.ConsecutiveYears)
	require.NotNil(t, analysis.GrowthRate)
	assert.InDelta(t, 4.51, *analysis.GrowthRate, 0.05)
}

func TestAnalyze_UnknownSymbol(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()

	analyzer := NewAnalyzer(
		stocks.NewRepository(db.Conn(), zerolog.Nop()),
		NewRepository(db.Conn(), zerolog.Nop()),
		zerolog.Nop(),
	)

	_, err := analyzer.Analyze("NOPE")
	require.Error(t, err)
	assert.ErrorIs(t, err, stocks.ErrNotFound)
}
