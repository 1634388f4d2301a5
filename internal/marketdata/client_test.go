package marketdata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahooSymbol(t *testing.T) {
	testCases := []struct {
		name     string
		symbol   string
		exchange string
		expected string
	}{
		{"us symbol unchanged", "AAPL", "NASDAQ", "AAPL"},
		{"tsx suffix", "RY", "TSX", "RY.TO"},
		{"tsx venture suffix", "AFN", "TSXV", "AFN.V"},
		{"oslo suffix", "EQNR", "OSLO", "EQNR.OL"},
		{"already qualified", "BASF.DE", "TSX", "BASF.DE"},
		{"index untouched", "^GSPC", "TSX", "^GSPC"},
		{"futures untouched", "GC=F", "TSX", "GC=F"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, YahooSymbol(tc.symbol, tc.exchange))
		})
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(zerolog.Nop())
	client.SetBaseURL(server.URL)
	return client, server
}

func TestGetQuote_ParsesFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v7/finance/quote")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"quoteResponse": {
				"result": [{
					"symbol": "KO",
					"longName": "The Coca-Cola Company",
					"regularMarketPrice": 62.5,
					"dividendYield": 3.1,
					"dividendRate": 1.94,
					"payoutRatio": 0.72,
					"trailingPE": 24.3,
					"beta": 0.58,
					"fiftyTwoWeekHigh": 65.0,
					"fiftyTwoWeekLow": 51.0,
					"netIncomeToCommon": 10700000000,
					"sharesOutstanding": 4310000000
				}],
				"error": null
			}
		}`))
	})

	quote, err := client.GetQuote("KO")
	require.NoError(t, err)
	require.NotNil(t, quote.CurrentPrice)
	assert.InDelta(t, 62.5, *quote.CurrentPrice, 1e-9)
	require.NotNil(t, quote.LongName)
	assert.Equal(t, "The Coca-Cola Company", *quote.LongName)
	require.NotNil(t, quote.Beta)
	assert.InDelta(t, 0.58, *quote.Beta, 1e-9)
	require.NotNil(t, quote.NetIncome)
	require.NotNil(t, quote.SharesOutstanding)
}

func TestGetQuote_NoData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteResponse": {"result": [], "error": null}}`))
	})

	_, err := client.GetQuote("NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no quote data")
}

func TestGetHistory_SkipsNullRows(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/GC=F")
		_, _ = w.Write([]byte(`{
			"chart": {
				"result": [{
					"timestamp": [1700000000, 1700086400, 1700172800],
					"indicators": {
						"quote": [{
							"open":   [1980.0, 0, 1992.0],
							"high":   [1995.0, 0, 2001.0],
							"low":    [1975.0, 0, 1988.0],
							"close":  [1990.0, 0, 1998.5],
							"volume": [120000, 0, 98000]
						}],
						"adjclose": [{"adjclose": [1990.0, 0, 1998.5]}]
					}
				}],
				"error": null
			}
		}`))
	})

	candles, err := client.GetHistory("GC=F", "1mo", "1d")
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.InDelta(t, 1990.0, candles[0].Close, 1e-9)
	assert.InDelta(t, 1998.5, candles[1].Close, 1e-9)
	assert.Equal(t, int64(98000), candles[1].Volume)
}

func TestGetDividendEvents_SortedByDate(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "div", r.URL.Query().Get("events"))
		_, _ = w.Write([]byte(`{
			"chart": {
				"result": [{
					"timestamp": [],
					"events": {
						"dividends": {
							"1717000000": {"amount": 0.51, "date": 1717000000},
							"1680000000": {"amount": 0.48, "date": 1680000000}
						}
					},
					"indicators": {"quote": [{}]}
				}],
				"error": null
			}
		}`))
	})

	events, err := client.GetDividendEvents("KO", "2y")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.InDelta(t, 0.48, events[0].Amount, 1e-9)
	assert.True(t, events[0].Date.Before(events[1].Date))
}

func TestGetHistory_UsesCache(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(`{
			"chart": {
				"result": [{
					"timestamp": [1700000000],
					"indicators": {"quote": [{"open": [10], "high": [11], "low": [9], "close": [10.5], "volume": [100]}]}
				}],
				"error": null
			}
		}`))
	})

	cache, err := NewCache(t.TempDir(), 0, zerolog.Nop())
	require.NoError(t, err)
	client.WithCache(cache)

	first, err := client.GetHistory("AAPL", "1mo", "1d")
	require.NoError(t, err)
	second, err := client.GetHistory("AAPL", "1mo", "1d")
	require.NoError(t, err)

	assert.Equal(t, 1, requests)
	assert.Equal(t, first, second)
}

func TestGetHistory_CacheDisabledSkipsWarmEntry(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(`{
			"chart": {
				"result": [{
					"timestamp": [1700000000],
					"indicators": {"quote": [{"open": [10], "high": [11], "low": [9], "close": [10.5], "volume": [100]}]}
				}],
				"error": null
			}
		}`))
	})

	cache, err := NewCache(t.TempDir(), 0, zerolog.Nop())
	require.NoError(t, err)
	client.WithCache(cache)

	// Warm the cache with a first fetch
	_, err = client.GetHistory("AAPL", "1mo", "1d")
	require.NoError(t, err)
	require.Equal(t, 1, requests)

	client.WithCacheDisabled(true)
	_, err = client.GetHistory("AAPL", "1mo", "1d")
	require.NoError(t, err)
	assert.Equal(t, 2, requests, "bypass should go to the API despite a warm entry")

	// Re-enabled reads serve the refreshed entry again
	client.WithCacheDisabled(false)
	_, err = client.GetHistory("AAPL", "1mo", "1d")
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}
