package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"divtrack/internal/backtest"
	"divtrack/internal/marketdata"
)

// StrategyComparison is the result of running every strategy over one
// symbol with the same capital and period.
type StrategyComparison struct {
	Success      bool                        `json:"success"`
	Symbol       string                      `json:"symbol"`
	CompanyName  string                      `json:"companyName"`
	CurrentPrice float64                     `json:"currentPrice"`
	Capital      float64                     `json:"capital"`
	Period       string                      `json:"period"`
	Strategies   map[string]*backtest.Result `json:"strategies"`
	Ranking      []string                    `json:"ranking"`
	BestStrategy string                      `json:"bestStrategy"`
	Valuation    *Valuation                  `json:"valuation"`
	FetchedAt    time.Time                   `json:"fetchedAt"`
}

// QuoteSource fetches a quote for the valuation section.
type QuoteSource interface {
	GetQuote(symbol string) (*marketdata.Quote, error)
}

// MultiStrategyAnalyzer backtests every strategy against the same data and
// ranks them by total return.
type MultiStrategyAnalyzer struct {
	history HistorySource
	quotes  QuoteSource
	engine  *backtest.Engine
	log     zerolog.Logger
}

// NewMultiStrategyAnalyzer creates a multi strategy analyzer.
func NewMultiStrategyAnalyzer(history HistorySource, quotes QuoteSource, log zerolog.Logger) *MultiStrategyAnalyzer {
	return &MultiStrategyAnalyzer{
		history: history,
		quotes:  quotes,
		engine:  backtest.NewEngine(log),
		log:     log.With().Str("component", "multi_strategy").Logger(),
	}
}

// Analyze runs every strategy over the symbol's history. Strategies that
// fail (too little data for their warmup, for example) are skipped rather
// than failing the whole comparison.
func (a *MultiStrategyAnalyzer) Analyze(symbol string, capital float64, years int) (*StrategyComparison, error) {
	if years <= 0 {
		years = 5
	}
	if capital <= 0 {
		capital = 100
	}

	candles, err := a.history.GetHistory(symbol, fmt.Sprintf("%dy", years), "1d")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}
	if len(candles) < 2 {
		return nil, fmt.Errorf("not enough history for %s", symbol)
	}

	comparison := &StrategyComparison{
		Success:      true,
		Symbol:       symbol,
		CompanyName:  symbol,
		CurrentPrice: candles[len(candles)-1].Close,
		Capital:      capital,
		Period:       fmt.Sprintf("%d years", years),
		Strategies:   make(map[string]*backtest.Result),
		FetchedAt:    time.Now().UTC(),
	}

	for _, name := range backtest.StrategyNames() {
		result, err := a.engine.Run(candles, backtest.RunConfig{
			Symbol:   symbol,
			Strategy: name,
			Capital:  capital,
			Years:    years,
		})
		if err != nil {
			a.log.Warn().Err(err).Str("strategy", name).Msg("Strategy skipped")
			continue
		}
		comparison.Strategies[name] = result
		comparison.Ranking = append(comparison.Ranking, name)
	}
	if len(comparison.Strategies) == 0 {
		return nil, fmt.Errorf("no strategy could be evaluated for %s", symbol)
	}

	sort.Slice(comparison.Ranking, func(i, j int) bool {
		return comparison.Strategies[comparison.Ranking[i]].TotalReturn >
			comparison.Strategies[comparison.Ranking[j]].TotalReturn
	})
	comparison.BestStrategy = comparison.Ranking[0]

	if a.quotes != nil {
		if quote, err := a.quotes.GetQuote(symbol); err == nil {
			comparison.Valuation = Valuate(quote)
			if quote.LongName != nil {
				comparison.CompanyName = *quote.LongName
			}
			if quote.CurrentPrice != nil {
				comparison.CurrentPrice = *quote.CurrentPrice
			}
		} else {
			a.log.Warn().Err(err).Msg("Valuation skipped")
		}
	}

	a.log.Info().
		Str("symbol", symbol).
		Str("best", comparison.BestStrategy).
		Int("strategies", len(comparison.Strategies)).
		Msg("Strategy comparison complete")
	return comparison, nil
}
