// Package listings discovers importable symbols: index membership scraped
// from Wikipedia, the TSX company directory and ETF holdings tables.
package listings

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Listing is one tradeable instrument discovered from an external source.
type Listing struct {
	Symbol         string `json:"symbol"`
	Name           string `json:"name"`
	Sector         string `json:"sector"`
	Industry       string `json:"industry,omitempty"`
	Exchange       string `json:"exchange"`
	OriginalSymbol string `json:"originalSymbol,omitempty"`
}

// Holding is one position inside an ETF with its portfolio weight.
type Holding struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Sector string  `json:"sector"`
}

// Client scrapes listing sources. The URLs are fields so tests can point
// them at a local server.
type Client struct {
	SP500URL     string
	Nasdaq100URL string
	TSXURL       string
	ETFDBURL     string

	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a listings client with the production source URLs.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		SP500URL:     "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies",
		Nasdaq100URL: "https://en.wikipedia.org/wiki/Nasdaq-100",
		TSXURL:       "https://www.tsx.com/json/company-directory/search/tsx/%5E*",
		ETFDBURL:     "https://etfdb.com/etf",
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          log.With().Str("client", "listings").Logger(),
	}
}

func (c *Client) get(url, accept string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return resp, nil
}

// SP500 scrapes the current S&P 500 membership table from Wikipedia.
func (c *Client) SP500() ([]Listing, error) {
	resp, err := c.get(c.SP500URL, "text/html")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch S&P 500 list: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse S&P 500 page: %w", err)
	}

	var listings []Listing
	doc.Find("table.wikitable").First().Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		symbol := cleanCell(cells.Eq(0))
		if symbol == "" {
			return
		}
		listings = append(listings, Listing{
			Symbol:   symbol,
			Name:     cleanCell(cells.Eq(1)),
			Sector:   cleanCell(cells.Eq(2)),
			Industry: cleanCell(cells.Eq(3)),
			Exchange: "NASDAQ/NYSE",
		})
	})
	if len(listings) == 0 {
		return nil, fmt.Errorf("no constituents found on S&P 500 page")
	}

	c.log.Info().Int("count", len(listings)).Msg("Fetched S&P 500 membership")
	return listings, nil
}

// Nasdaq100 scrapes the NASDAQ-100 constituents table from Wikipedia.
func (c *Client) Nasdaq100() ([]Listing, error) {
	resp, err := c.get(c.Nasdaq100URL, "text/html")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch NASDAQ-100 list: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse NASDAQ-100 page: %w", err)
	}

	table := doc.Find("table#constituents")
	if table.Length() == 0 {
		// layout changed at some point, the constituent table used to be
		// the fifth wikitable
		table = doc.Find("table.wikitable").Eq(4)
	}

	var listings []Listing
	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		symbol := cleanCell(cells.Eq(0))
		if symbol == "" {
			return
		}
		listing := Listing{
			Symbol:   symbol,
			Name:     cleanCell(cells.Eq(1)),
			Sector:   "Technology",
			Industry: "Technology",
			Exchange: "NASDAQ",
		}
		if cells.Length() >= 4 {
			listing.Sector = cleanCell(cells.Eq(2))
			listing.Industry = cleanCell(cells.Eq(3))
		}
		listings = append(listings, listing)
	})
	if len(listings) == 0 {
		return nil, fmt.Errorf("no constituents found on NASDAQ-100 page")
	}

	c.log.Info().Int("count", len(listings)).Msg("Fetched NASDAQ-100 membership")
	return listings, nil
}

type tsxDirectory struct {
	Results []struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
		Sector string `json:"sector"`
	} `json:"results"`
}

// TSX fetches the full TSX company directory and maps symbols to the Yahoo
// .TO convention.
func (c *Client) TSX() ([]Listing, error) {
	resp, err := c.get(c.TSXURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch TSX directory: %w", err)
	}
	defer resp.Body.Close()

	var directory tsxDirectory
	if err := json.NewDecoder(resp.Body).Decode(&directory); err != nil {
		return nil, fmt.Errorf("failed to decode TSX directory: %w", err)
	}

	var listings []Listing
	for _, company := range directory.Results {
		if company.Symbol == "" {
			continue
		}
		listings = append(listings, Listing{
			Symbol:         company.Symbol + ".TO",
			Name:           company.Name,
			Sector:         company.Sector,
			Exchange:       "TSX",
			OriginalSymbol: company.Symbol,
		})
	}

	c.log.Info().Int("count", len(listings)).Msg("Fetched TSX directory")
	return listings, nil
}

// ETFHoldings scrapes the top holdings table for an ETF. The .TO suffix is
// stripped before building the page URL.
func (c *Client) ETFHoldings(symbol string) ([]Holding, error) {
	scrapeSymbol := strings.TrimSuffix(strings.ToUpper(symbol), ".TO")
	url := fmt.Sprintf("%s/%s/", c.ETFDBURL, scrapeSymbol)

	resp, err := c.get(url, "text/html")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holdings for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse holdings page for %s: %w", symbol, err)
	}

	var holdings []Holding
	doc.Find("table").EachWithBreak(func(i int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		rows.Each(func(j int, row *goquery.Selection) {
			if j == 0 || j > 20 || len(holdings) >= 20 {
				return
			}
			holding, ok := parseHoldingRow(row)
			if ok {
				holdings = append(holdings, holding)
			}
		})
		// first table with holdings wins
		return len(holdings) == 0
	})
	if len(holdings) == 0 {
		return nil, fmt.Errorf("no holdings table found for %s", symbol)
	}

	c.log.Info().Str("symbol", symbol).Int("count", len(holdings)).Msg("Fetched ETF holdings")
	return holdings, nil
}

func parseHoldingRow(row *goquery.Selection) (Holding, bool) {
	cells := row.Find("td")
	if cells.Length() < 2 {
		return Holding{}, false
	}

	ticker := cleanCell(cells.Eq(0).Find("a").First())
	if ticker == "" {
		ticker = cleanCell(cells.Eq(0))
	}
	name := cleanCell(cells.Eq(1))

	var weight float64
	cells.Each(func(i int, cell *goquery.Selection) {
		text := cleanCell(cell)
		if weight != 0 || !strings.Contains(text, "%") {
			return
		}
		text = strings.NewReplacer("%", "", ",", "").Replace(text)
		if v, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			weight = v
		}
	})

	if ticker == "" || weight <= 0 || len(ticker) > 10 {
		return Holding{}, false
	}
	if name == "" {
		name = ticker
	}
	return Holding{
		Symbol: strings.ToUpper(ticker),
		Name:   name,
		Weight: weight,
		Sector: "Unknown",
	}, true
}

func cleanCell(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}
