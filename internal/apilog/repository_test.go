package apilog_test

import (
	"testing"
	"time"

	"divtrack/internal/apilog"
	"divtrack/internal/testutil"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_RoutesIndexSymbolsToIndexTable(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()

	repo := apilog.NewRepository(db.Conn(), zerolog.Nop())

	repo.Record("quote", "KO", true, "", 120*time.Millisecond)
	repo.Record("index_quote", "^GSPC", false, "status 429", 300*time.Millisecond)

	stocks, err := repo.Recent("ApiUsageLogs", 10)
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, "KO", stocks[0].Symbol)
	assert.True(t, stocks[0].Success)
	assert.Equal(t, int64(120), stocks[0].DurationMs)

	indexes, err := repo.Recent("IndexApiUsageLogs", 10)
	require.NoError(t, err)
	require.Len(t, indexes, 1)
	assert.Equal(t, "^GSPC", indexes[0].Symbol)
	assert.False(t, indexes[0].Success)
	assert.Equal(t, "status 429", indexes[0].ErrorMessage)
}

func TestFailureCountSince(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()

	repo := apilog.NewRepository(db.Conn(), zerolog.Nop())

	repo.Record("quote", "AAPL", false, "timeout", time.Second)
	repo.Record("quote", "MSFT", true, "", time.Second)
	repo.Record("quote", "GOOG", false, "timeout", time.Second)

	count, err := repo.FailureCountSince("ApiUsageLogs", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.FailureCountSince("ApiUsageLogs", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRecent_RejectsUnknownTable(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()

	repo := apilog.NewRepository(db.Conn(), zerolog.Nop())
	_, err := repo.Recent("DividendModels", 5)
	require.Error(t, err)
}
