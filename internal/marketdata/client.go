package marketdata

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com"
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// UsageRecorder receives one entry per remote API call.
type UsageRecorder interface {
	Record(endpoint, symbol string, success bool, errMsg string, duration time.Duration)
}

// Client is a Yahoo Finance API client
type Client struct {
	client   *http.Client
	log      zerolog.Logger
	baseURL  string
	cache    *Cache
	noCache  bool
	recorder UsageRecorder
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:     log.With().Str("client", "yahoo").Logger(),
		baseURL: defaultBaseURL,
	}
}

// WithCache attaches an on-disk history cache to the client.
func (c *Client) WithCache(cache *Cache) *Client {
	c.cache = cache
	return c
}

// WithCacheDisabled controls whether cache reads are skipped. Fresh
// responses still refresh the cache so later cached runs benefit.
func (c *Client) WithCacheDisabled(disabled bool) *Client {
	c.noCache = disabled
	return c
}

// WithRecorder attaches an API usage recorder to the client.
func (c *Client) WithRecorder(r UsageRecorder) *Client {
	c.recorder = r
	return c
}

// SetBaseURL overrides the API host, used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimSuffix(base, "/")
}

// YahooSymbol converts an exchange-qualified symbol to Yahoo Finance form.
//
// Examples:
//
//	AAPL (NYSE/NASDAQ)  -> AAPL
//	RY on TSX           -> RY.TO
//	AFN on TSXV         -> AFN.V
//	EQNR on Oslo Bors   -> EQNR.OL
func YahooSymbol(symbol, exchange string) string {
	if strings.Contains(symbol, ".") || strings.HasPrefix(symbol, "^") || strings.HasSuffix(symbol, "=F") {
		return symbol
	}

	switch strings.ToUpper(exchange) {
	case "TSX", "TORONTO":
		return symbol + ".TO"
	case "TSXV", "TSX VENTURE":
		return symbol + ".V"
	case "OSLO", "OSE":
		return symbol + ".OL"
	case "LSE", "LONDON":
		return symbol + ".L"
	default:
		return symbol
	}
}

func (c *Client) record(endpoint, symbol string, start time.Time, err error) {
	if c.recorder == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	c.recorder.Record(endpoint, symbol, err == nil, msg, time.Since(start))
}

// yahooQuoteResponse represents the response from Yahoo Finance quote API
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []map[string]interface{} `json:"result"`
		Error  interface{}              `json:"error"`
	} `json:"quoteResponse"`
}

// GetQuote fetches quote and fundamental fields for one symbol.
func (c *Client) GetQuote(symbol string) (*Quote, error) {
	start := time.Now()
	info, err := c.getQuoteInfo(symbol)
	c.record("quote", symbol, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote info: %w", err)
	}

	price := getFloat64(info, "currentPrice")
	if price == nil {
		price = getFloat64(info, "regularMarketPrice")
	}

	return &Quote{
		Symbol:            symbol,
		LongName:          getStringPtr(info, "longName"),
		ShortName:         getStringPtr(info, "shortName"),
		Sector:            getStringPtr(info, "sector"),
		Industry:          getStringPtr(info, "industry"),
		Country:           getStringPtr(info, "country"),
		Exchange:          getStringPtr(info, "fullExchangeName"),
		Currency:          getStringPtr(info, "currency"),
		CurrentPrice:      price,
		DividendYield:     getFloat64(info, "dividendYield"),
		DividendRate:      getFloat64(info, "dividendRate"),
		PayoutRatio:       getFloat64(info, "payoutRatio"),
		TrailingPE:        getFloat64(info, "trailingPE"),
		PriceToBook:       getFloat64(info, "priceToBook"),
		EPS:               getFloat64(info, "epsTrailingTwelveMonths"),
		BookValue:         getFloat64(info, "bookValue"),
		MarketCap:         getFloat64(info, "marketCap"),
		Beta:              getFloat64(info, "beta"),
		High52Week:        getFloat64(info, "fiftyTwoWeekHigh"),
		Low52Week:         getFloat64(info, "fiftyTwoWeekLow"),
		NetIncome:         getFloat64(info, "netIncomeToCommon"),
		SharesOutstanding: getFloat64(info, "sharesOutstanding"),
		RevenueGrowth:     getFloat64(info, "revenueGrowth"),
		EarningsGrowth:    getFloat64(info, "earningsGrowth"),
		ProfitMargin:      getFloat64(info, "profitMargins"),
		PEGRatio:          getFloat64(info, "pegRatio"),
		FreeCashflow:      getFloat64(info, "freeCashflow"),
		TargetMeanPrice:   getFloat64(info, "targetMeanPrice"),
		ExDividendDate:    getUnixTime(info, "exDividendDate"),
		DividendDate:      getUnixTime(info, "dividendDate"),
	}, nil
}

// GetIndexQuote fetches the market fields of an index symbol (^GSPC etc).
func (c *Client) GetIndexQuote(symbol string) (*IndexQuote, error) {
	start := time.Now()
	info, err := c.getQuoteInfo(symbol)
	c.record("index_quote", symbol, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get index quote: %w", err)
	}

	name := getStringPtr(info, "longName")
	if name == nil {
		name = getStringPtr(info, "shortName")
	}

	return &IndexQuote{
		Symbol:        symbol,
		Name:          name,
		Exchange:      getStringPtr(info, "fullExchangeName"),
		Currency:      getStringPtr(info, "currency"),
		CurrentPrice:  getFloat64(info, "regularMarketPrice"),
		Change:        getFloat64(info, "regularMarketChange"),
		ChangePercent: getFloat64(info, "regularMarketChangePercent"),
		High52Week:    getFloat64(info, "fiftyTwoWeekHigh"),
		Low52Week:     getFloat64(info, "fiftyTwoWeekLow"),
	}, nil
}

// GetCurrentPrice gets the current price with retry logic.
func (c *Client) GetCurrentPrice(symbol string, maxRetries int) (*float64, error) {
	if maxRetries == 0 {
		maxRetries = 3 // default
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		start := time.Now()
		info, err := c.getQuoteInfo(symbol)
		c.record("quote", symbol, start, err)
		if err != nil {
			lastErr = err
			if attempt < maxRetries-1 {
				waitTime := time.Duration(1<<uint(attempt)) * time.Second // exponential backoff
				c.log.Warn().Err(err).
					Str("symbol", symbol).
					Int("attempt", attempt+1).
					Dur("wait", waitTime).
					Msg("Failed to get price, retrying")
				time.Sleep(waitTime)
				continue
			}
			break
		}

		if price := getFloat64(info, "currentPrice"); price != nil && *price > 0 {
			return price, nil
		}
		if price := getFloat64(info, "regularMarketPrice"); price != nil && *price > 0 {
			return price, nil
		}

		// Price was 0 or nil, retry
		if attempt < maxRetries-1 {
			waitTime := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn().
				Str("symbol", symbol).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Price was invalid, retrying")
			time.Sleep(waitTime)
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
	}
	return nil, fmt.Errorf("failed to get valid price after %d attempts", maxRetries)
}

// GetBatchQuotes fetches current prices for multiple symbols efficiently.
// Failures of individual batches produce partial results, not an error.
func (c *Client) GetBatchQuotes(symbols []string) (map[string]*float64, error) {
	if len(symbols) == 0 {
		return map[string]*float64{}, nil
	}

	// Yahoo API limit: ~100 symbols per request
	const batchSize = 100
	result := make(map[string]*float64)

	for i := 0; i < len(symbols); i += batchSize {
		end := i + batchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		batch := symbols[i:end]
		start := time.Now()
		batchQuotes, err := c.getBatchQuoteInfo(batch)
		c.record("batch_quote", strings.Join(batch, ","), start, err)
		if err != nil {
			c.log.Warn().Err(err).Int("batch_size", len(batch)).Msg("Failed to fetch batch quotes")
			continue
		}

		for symbol, info := range batchQuotes {
			var price *float64
			if p := getFloat64(info, "currentPrice"); p != nil && *p > 0 {
				price = p
			} else if p := getFloat64(info, "regularMarketPrice"); p != nil && *p > 0 {
				price = p
			}

			if price != nil {
				result[symbol] = price
			} else {
				c.log.Debug().Str("symbol", symbol).Msg("No valid price data in batch response")
			}
		}
	}

	c.log.Info().
		Int("requested", len(symbols)).
		Int("fetched", len(result)).
		Msg("Batch quote fetch complete")

	return result, nil
}

// getBatchQuoteInfo fetches quote information for multiple symbols
func (c *Client) getBatchQuoteInfo(symbols []string) (map[string]map[string]interface{}, error) {
	if len(symbols) == 0 {
		return map[string]map[string]interface{}{}, nil
	}

	params := url.Values{}
	params.Add("symbols", strings.Join(symbols, ","))
	params.Add("fields", "symbol,regularMarketPrice,currentPrice")

	reqURL := c.baseURL + "/v7/finance/quote?" + params.Encode()

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	// Retry logic with exponential backoff
	var resp *http.Response
	var lastErr error
	maxRetries := 3

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err = c.client.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			break
		}

		// Close failed response bodies to prevent resource leaks
		if resp != nil {
			resp.Body.Close()
		}

		lastErr = err
		if resp != nil && resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		}

		if attempt < maxRetries-1 {
			waitTime := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn().
				Err(lastErr).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Batch quote request failed, retrying")
			time.Sleep(waitTime)
		}
	}

	if resp == nil || resp.StatusCode != http.StatusOK {
		if lastErr != nil {
			return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
		}
		return nil, fmt.Errorf("failed after %d attempts with no error details", maxRetries)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result yahooQuoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.QuoteResponse.Error)
	}

	quotes := make(map[string]map[string]interface{})
	for _, quote := range result.QuoteResponse.Result {
		if symbol, ok := quote["symbol"].(string); ok {
			quotes[symbol] = quote
		}
	}

	return quotes, nil
}

// getQuoteInfo fetches quote information from Yahoo Finance API
func (c *Client) getQuoteInfo(symbol string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Add("symbols", symbol)
	params.Add("fields", "symbol,regularMarketPrice,currentPrice,regularMarketChange,regularMarketChangePercent,"+
		"country,fullExchangeName,currency,industry,sector,trailingPE,pegRatio,priceToBook,revenueGrowth,"+
		"earningsGrowth,marketCap,dividendYield,dividendRate,payoutRatio,epsTrailingTwelveMonths,bookValue,"+
		"beta,fiftyTwoWeekHigh,fiftyTwoWeekLow,netIncomeToCommon,sharesOutstanding,freeCashflow,"+
		"targetMeanPrice,exDividendDate,dividendDate,longName,shortName")

	reqURL := c.baseURL + "/v7/finance/quote?" + params.Encode()

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic browser
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result yahooQuoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.QuoteResponse.Error)
	}

	if len(result.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("no quote data returned for symbol %s", symbol)
	}

	return result.QuoteResponse.Result[0], nil
}

// GetHistory fetches historical OHLCV bars from the chart API.
//
// Supported ranges: 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max.
// Supported intervals: 1m, 5m, 15m, 1h, 1d, 1wk, 1mo.
func (c *Client) GetHistory(symbol, rng, interval string) ([]Candle, error) {
	if interval == "" {
		interval = "1d"
	}
	if rng == "" {
		rng = "1y"
	}

	if c.cache != nil && !c.noCache {
		var cached []Candle
		if c.cache.Get(historyCacheKey(symbol, rng, interval), &cached) {
			c.log.Debug().Str("symbol", symbol).Str("range", rng).Msg("History served from cache")
			return cached, nil
		}
	}

	start := time.Now()
	candles, err := c.fetchChart(symbol, rng, interval, false)
	c.record("chart", symbol, start, err)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && len(candles) > 0 {
		c.cache.Put(historyCacheKey(symbol, rng, interval), candles)
	}

	c.log.Info().
		Str("symbol", symbol).
		Str("range", rng).
		Str("interval", interval).
		Int("count", len(candles)).
		Msg("Fetched historical prices")

	return candles, nil
}

// GetDividendEvents fetches the dividend payment history over the range.
func (c *Client) GetDividendEvents(symbol, rng string) ([]DividendEvent, error) {
	start := time.Now()
	events, err := c.fetchDividends(symbol, rng)
	c.record("chart_dividends", symbol, start, err)
	if err != nil {
		return nil, err
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp []int64 `json:"timestamp"`
			Events    struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
			} `json:"events"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

func (c *Client) chartRequest(symbol, rng, interval string, withDividends bool) (*chartResponse, error) {
	params := url.Values{}
	params.Add("interval", interval)
	params.Add("range", rng)
	if withDividends {
		params.Add("events", "div")
	}

	reqURL := c.baseURL + "/v8/finance/chart/" + url.QueryEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result chartResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.Chart.Error)
	}

	return &result, nil
}

func (c *Client) fetchChart(symbol, rng, interval string, withDividends bool) ([]Candle, error) {
	result, err := c.chartRequest(symbol, rng, interval, withDividends)
	if err != nil {
		return nil, err
	}

	if len(result.Chart.Result) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No historical data returned")
		return []Candle{}, nil
	}

	chartData := result.Chart.Result[0]
	timestamps := chartData.Timestamp
	if len(chartData.Indicators.Quote) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No quote data in response")
		return []Candle{}, nil
	}

	quote := chartData.Indicators.Quote[0]

	var adjCloseData []float64
	if len(chartData.Indicators.AdjClose) > 0 {
		adjCloseData = chartData.Indicators.AdjClose[0].AdjClose
	}

	var candles []Candle
	for i := range timestamps {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			continue
		}

		// Yahoo sometimes returns null rows
		if quote.Open[i] == 0 && quote.High[i] == 0 && quote.Low[i] == 0 && quote.Close[i] == 0 {
			continue
		}

		adjClose := quote.Close[i]
		if i < len(adjCloseData) && adjCloseData[i] != 0 {
			adjClose = adjCloseData[i]
		}

		volume := int64(0)
		if i < len(quote.Volume) {
			volume = quote.Volume[i]
		}

		candles = append(candles, Candle{
			Date:     time.Unix(timestamps[i], 0).UTC(),
			Open:     quote.Open[i],
			High:     quote.High[i],
			Low:      quote.Low[i],
			Close:    quote.Close[i],
			Volume:   volume,
			AdjClose: adjClose,
		})
	}

	return candles, nil
}

func (c *Client) fetchDividends(symbol, rng string) ([]DividendEvent, error) {
	result, err := c.chartRequest(symbol, rng, "1d", true)
	if err != nil {
		return nil, err
	}

	if len(result.Chart.Result) == 0 {
		return []DividendEvent{}, nil
	}

	dividends := result.Chart.Result[0].Events.Dividends
	events := make([]DividendEvent, 0, len(dividends))
	for _, d := range dividends {
		if d.Amount <= 0 || d.Date <= 0 {
			continue
		}
		events = append(events, DividendEvent{
			Date:   time.Unix(d.Date, 0).UTC(),
			Amount: d.Amount,
		})
	}

	return events, nil
}
