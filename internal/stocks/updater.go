package stocks

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"divtrack/internal/marketdata"
)

// minAnnualEPS filters out near-zero derived EPS values that would turn the
// payout ratio into garbage.
const minAnnualEPS = 0.10

// growthWindowYears bounds the dividend growth average to recent history.
const growthWindowYears = 10

// QuoteSource is the slice of the market data client the updater needs.
type QuoteSource interface {
	GetQuote(symbol string) (*marketdata.Quote, error)
	GetDividendEvents(symbol, rng string) ([]marketdata.DividendEvent, error)
}

// YearlyStore persists per-year dividend totals for a symbol.
type YearlyStore interface {
	Replace(symbol string, totals map[int]float64) error
}

// Updater refreshes stock fundamentals and dividend history from the market
// data source and writes the scored result back to the repository.
type Updater struct {
	quotes QuoteSource
	repo   *Repository
	yearly YearlyStore
	log    zerolog.Logger
	now    func() time.Time
}

// NewUpdater creates a stock updater.
func NewUpdater(quotes QuoteSource, repo *Repository, yearly YearlyStore, log zerolog.Logger) *Updater {
	return &Updater{
		quotes: quotes,
		repo:   repo,
		yearly: yearly,
		log:    log.With().Str("component", "stock_updater").Logger(),
		now:    time.Now,
	}
}

// Update fetches, scores and stores one symbol. The returned stock is the
// row as written.
func (u *Updater) Update(symbol string) (*Stock, error) {
	quote, err := u.quotes.GetQuote(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}
	if quote.CurrentPrice == nil {
		return nil, fmt.Errorf("no price data for %s", symbol)
	}

	totals := map[int]float64{}
	events, err := u.quotes.GetDividendEvents(symbol, "max")
	if err != nil {
		u.log.Warn().Err(err).Str("symbol", symbol).Msg("Could not fetch dividend history")
	} else {
		totals = yearlyTotals(events)
	}

	stock := u.buildStock(quote, totals)
	if err := u.repo.Upsert(stock); err != nil {
		return nil, err
	}

	if u.yearly != nil && len(totals) > 0 {
		if err := u.yearly.Replace(symbol, totals); err != nil {
			u.log.Warn().Err(err).Str("symbol", symbol).Msg("Could not save yearly dividends")
		}
	}

	u.log.Info().
		Str("symbol", symbol).
		Float64("price", *quote.CurrentPrice).
		Int("dividend_years", len(totals)).
		Msg("Stock updated")
	return stock, nil
}

// UpdateResult summarizes a bulk refresh.
type UpdateResult struct {
	Updated       int
	Failed        int
	FailedSymbols []string
}

// UpdateAll refreshes every given symbol, pausing between fetches. Failures
// are collected rather than aborting the run.
func (u *Updater) UpdateAll(symbols []string, pause time.Duration) UpdateResult {
	var result UpdateResult
	for i, symbol := range symbols {
		if _, err := u.Update(symbol); err != nil {
			u.log.Error().Err(err).Str("symbol", symbol).Msg("Update failed")
			result.Failed++
			result.FailedSymbols = append(result.FailedSymbols, symbol)
		} else {
			result.Updated++
		}
		if pause > 0 && i < len(symbols)-1 {
			time.Sleep(pause)
		}
	}

	u.log.Info().
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Msg("Bulk update complete")
	return result
}

func (u *Updater) buildStock(q *marketdata.Quote, totals map[int]float64) *Stock {
	now := u.now().UTC()
	s := &Stock{
		Symbol:         q.Symbol,
		CompanyName:    firstString(q.LongName, q.ShortName, &q.Symbol),
		Sector:         stringOr(q.Sector, "Unknown"),
		Industry:       stringOr(q.Industry, "Unknown"),
		Country:        stringOr(q.Country, ""),
		Exchange:       stringOr(q.Exchange, ""),
		Currency:       stringOr(q.Currency, ""),
		CurrentPrice:   q.CurrentPrice,
		DividendYield:  q.DividendYield,
		PERatio:        q.TrailingPE,
		PBRatio:        q.PriceToBook,
		EPS:            q.EPS,
		BookValue:      q.BookValue,
		MarketCap:      q.MarketCap,
		Beta:           q.Beta,
		High52Week:     q.High52Week,
		Low52Week:      q.Low52Week,
		ExDividendDate: q.ExDividendDate,
		PaymentDate:    q.DividendDate,
		LastUpdated:    &now,
	}

	s.AnnualDividend = annualDividend(q)
	s.AnnualEPS = annualEPS(q)
	s.PayoutRatio = payoutRatio(s.AnnualDividend, q.EPS)
	s.DividendGrowthRate = GrowthRate(totals)
	s.ConsecutiveYears = ConsecutiveYears(totals, now.Year())

	if len(totals) > 0 {
		var total float64
		for _, v := range totals {
			total += v
		}
		s.TotalDividend = &total
	}

	in := SafetyInput{
		DividendYield:    s.DividendYield,
		PayoutRatio:      s.PayoutRatio,
		GrowthRate:       s.DividendGrowthRate,
		ConsecutiveYears: s.ConsecutiveYears,
		Beta:             s.Beta,
	}
	score := SafetyScore(in)
	s.SafetyScore = &score
	s.SafetyRating = SafetyRating(score)
	s.Recommendation = Recommendation(in, score)

	return s
}

// annualDividend prefers the forward rate, then derives from yield and price.
func annualDividend(q *marketdata.Quote) *float64 {
	if q.DividendRate != nil {
		return q.DividendRate
	}
	if q.DividendYield != nil && q.CurrentPrice != nil {
		v := *q.DividendYield / 100 * *q.CurrentPrice
		return &v
	}
	return nil
}

// annualEPS derives earnings per share from net income and share count.
// Values under the threshold are discarded.
func annualEPS(q *marketdata.Quote) *float64 {
	if q.NetIncome == nil || q.SharesOutstanding == nil || *q.SharesOutstanding <= 0 {
		return nil
	}
	eps := math.Round(*q.NetIncome / *q.SharesOutstanding * 100) / 100
	if eps < minAnnualEPS {
		return nil
	}
	return &eps
}

func payoutRatio(annualDiv, eps *float64) *float64 {
	if annualDiv == nil || eps == nil || *eps <= 0 || *annualDiv <= 0 {
		return nil
	}
	v := *annualDiv / *eps * 100
	return &v
}

// GrowthRate averages year-over-year dividend growth across the recent
// window. Needs at least two annual totals.
func GrowthRate(totals map[int]float64) *float64 {
	if len(totals) < 2 {
		return nil
	}

	years := make([]int, 0, len(totals))
	for year := range totals {
		years = append(years, year)
	}
	sort.Ints(years)

	if len(years) > growthWindowYears+1 {
		years = years[len(years)-(growthWindowYears+1):]
	}

	var rates []float64
	for i := 1; i < len(years); i++ {
		prev, curr := totals[years[i-1]], totals[years[i]]
		if prev > 0 {
			rates = append(rates, (curr-prev)/prev*100)
		}
	}
	if len(rates) == 0 {
		return nil
	}

	var sum float64
	for _, r := range rates {
		sum += r
	}
	avg := sum / float64(len(rates))
	return &avg
}

// ConsecutiveYears counts back from the current year to the first gap in
// payments. The current year counts even while still in progress.
func ConsecutiveYears(totals map[int]float64, currentYear int) int {
	count := 0
	for year := currentYear; ; year-- {
		if totals[year] > 0 {
			count++
			continue
		}
		// The current year may simply have no payments yet
		if year == currentYear {
			continue
		}
		break
	}
	return count
}

// yearlyTotals sums dividend payments per calendar year.
func yearlyTotals(events []marketdata.DividendEvent) map[int]float64 {
	totals := make(map[int]float64)
	for _, ev := range events {
		totals[ev.Date.Year()] += ev.Amount
	}
	return totals
}

func firstString(candidates ...*string) string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return *c
		}
	}
	return ""
}

func stringOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
