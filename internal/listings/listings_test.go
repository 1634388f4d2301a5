package listings

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sp500Page = `<html><body>
<table class="wikitable" id="constituents"><tbody>
<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th><th>GICS Sub-Industry</th></tr>
<tr><td><a href="/MMM">MMM</a></td><td>3M</td><td>Industrials</td><td>Industrial Conglomerates</td></tr>
<tr><td>KO</td><td>Coca-Cola Company</td><td>Consumer Staples</td><td>Soft Drinks</td></tr>
</tbody></table>
</body></html>`

const nasdaq100Page = `<html><body>
<table class="wikitable"><tbody><tr><td>unrelated</td></tr></tbody></table>
<table class="wikitable" id="constituents"><tbody>
<tr><th>Ticker</th><th>Company</th><th>GICS Sector</th><th>GICS Sub-Industry</th></tr>
<tr><td>AAPL</td><td>Apple Inc.</td><td>Information Technology</td><td>Technology Hardware</td></tr>
</tbody></table>
</body></html>`

const etfPage = `<html><body>
<table><tbody>
<tr><th>Symbol</th><th>Holding</th><th>% Assets</th></tr>
<tr><td><a href="/stock/SU">SU</a></td><td>Suncor Energy</td><td>24.51%</td></tr>
<tr><td>CNQ</td><td>Canadian Natural Resources</td><td>22.30%</td></tr>
<tr><td>totals</td><td>everything else</td><td>n/a</td></tr>
</tbody></table>
</body></html>`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(zerolog.Nop())
	client.SP500URL = server.URL + "/sp500"
	client.Nasdaq100URL = server.URL + "/nasdaq100"
	client.TSXURL = server.URL + "/tsx"
	client.ETFDBURL = server.URL + "/etf"
	return client
}

func fixtureHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sp500", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sp500Page))
	})
	mux.HandleFunc("/nasdaq100", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(nasdaq100Page))
	})
	mux.HandleFunc("/tsx", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"symbol":"RY","name":"Royal Bank of Canada","sector":"Financials"},
			{"symbol":"ENB","name":"Enbridge Inc.","sector":"Energy"},
			{"symbol":"","name":"ignored","sector":""}
		]}`))
	})
	mux.HandleFunc("/etf/XEG/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(etfPage))
	})
	return mux
}

func TestSP500(t *testing.T) {
	client := newTestClient(t, fixtureHandler())

	listings, err := client.SP500()
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, "MMM", listings[0].Symbol)
	assert.Equal(t, "3M", listings[0].Name)
	assert.Equal(t, "Industrials", listings[0].Sector)
	assert.Equal(t, "Industrial Conglomerates", listings[0].Industry)
	assert.Equal(t, "NASDAQ/NYSE", listings[0].Exchange)
	assert.Equal(t, "KO", listings[1].Symbol)
}

func TestNasdaq100(t *testing.T) {
	client := newTestClient(t, fixtureHandler())

	listings, err := client.Nasdaq100()
	require.NoError(t, err)
	require.Len(t, listings, 1)

	assert.Equal(t, "AAPL", listings[0].Symbol)
	assert.Equal(t, "Apple Inc.", listings[0].Name)
	assert.Equal(t, "NASDAQ", listings[0].Exchange)
}

func TestTSX_AddsYahooSuffix(t *testing.T) {
	client := newTestClient(t, fixtureHandler())

	listings, err := client.TSX()
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, "RY.TO", listings[0].Symbol)
	assert.Equal(t, "RY", listings[0].OriginalSymbol)
	assert.Equal(t, "TSX", listings[0].Exchange)
	assert.Equal(t, "ENB.TO", listings[1].Symbol)
}

func TestETFHoldings(t *testing.T) {
	client := newTestClient(t, fixtureHandler())

	holdings, err := client.ETFHoldings("XEG.TO")
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	assert.Equal(t, "SU", holdings[0].Symbol)
	assert.Equal(t, "Suncor Energy", holdings[0].Name)
	assert.InDelta(t, 24.51, holdings[0].Weight, 1e-9)
	assert.Equal(t, "CNQ", holdings[1].Symbol)
}

func TestSP500_ServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))

	_, err := client.SP500()
	assert.ErrorContains(t, err, "unexpected status 500")
}

func TestETFHoldings_NoTable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>nothing here</p></body></html>"))
	}))

	_, err := client.ETFHoldings("VYM")
	assert.ErrorContains(t, err, "no holdings table")
}
