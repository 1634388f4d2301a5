package indexes

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"divtrack/internal/marketdata"
)

// DefaultSymbols are the benchmark indices tracked out of the box.
var DefaultSymbols = []string{"^GSPC", "^DJI", "^IXIC", "^GSPTSE"}

// IndexSource is the slice of the market data client the fetcher needs.
type IndexSource interface {
	GetIndexQuote(symbol string) (*marketdata.IndexQuote, error)
	GetHistory(symbol, rng, interval string) ([]marketdata.Candle, error)
}

// Fetcher downloads index quotes and history and persists them.
type Fetcher struct {
	source IndexSource
	repo   *Repository
	log    zerolog.Logger
	now    func() time.Time
}

// NewFetcher creates an index fetcher.
func NewFetcher(source IndexSource, repo *Repository, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		source: source,
		repo:   repo,
		log:    log.With().Str("component", "index_fetcher").Logger(),
		now:    time.Now,
	}
}

// Fetch refreshes one index: the current quote and its history over the
// given range.
func (f *Fetcher) Fetch(symbol, rng, interval string) (*Index, int, error) {
	quote, err := f.source.GetIndexQuote(symbol)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch index quote for %s: %w", symbol, err)
	}

	now := f.now().UTC()
	idx := &Index{
		Symbol:        quote.Symbol,
		Name:          stringOr(quote.Name, symbol),
		Exchange:      stringOr(quote.Exchange, ""),
		Currency:      stringOr(quote.Currency, ""),
		CurrentPrice:  quote.CurrentPrice,
		Change:        quote.Change,
		ChangePercent: quote.ChangePercent,
		High52Week:    quote.High52Week,
		Low52Week:     quote.Low52Week,
		LastUpdated:   &now,
	}
	if err := f.repo.Upsert(idx); err != nil {
		return nil, 0, err
	}

	candles, err := f.source.GetHistory(symbol, rng, interval)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}
	if err := f.repo.SaveHistory(symbol, candles); err != nil {
		return nil, 0, err
	}

	f.log.Info().
		Str("symbol", symbol).
		Str("range", rng).
		Int("candles", len(candles)).
		Msg("Index refreshed")
	return idx, len(candles), nil
}

// FetchResult summarizes a multi-index refresh.
type FetchResult struct {
	Updated       int
	Failed        int
	FailedSymbols []string
}

// FetchAll refreshes every given symbol, pausing between fetches.
func (f *Fetcher) FetchAll(symbols []string, rng, interval string, pause time.Duration) FetchResult {
	var result FetchResult
	for i, symbol := range symbols {
		if _, _, err := f.Fetch(symbol, rng, interval); err != nil {
			f.log.Error().Err(err).Str("symbol", symbol).Msg("Index fetch failed")
			result.Failed++
			result.FailedSymbols = append(result.FailedSymbols, symbol)
		} else {
			result.Updated++
		}
		if pause > 0 && i < len(symbols)-1 {
			time.Sleep(pause)
		}
	}
	return result
}

func stringOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
