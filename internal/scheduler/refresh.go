package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"divtrack/internal/events"
	"divtrack/internal/indexes"
	"divtrack/internal/stocks"
)

// StockUpdater refreshes one stored symbol from the market data source.
type StockUpdater interface {
	Update(symbol string) (*stocks.Stock, error)
}

// SymbolLister returns the symbols currently tracked.
type SymbolLister interface {
	Symbols() ([]string, error)
}

// IndexFetcher refreshes benchmark indices and their history.
type IndexFetcher interface {
	FetchAll(symbols []string, rng, interval string, pause time.Duration) indexes.FetchResult
}

// RefreshJob re-fetches fundamentals for every tracked stock and the
// benchmark index histories. Meant to run nightly, after market close.
type RefreshJob struct {
	updater StockUpdater
	symbols SymbolLister
	fetcher IndexFetcher
	bus     *events.Bus
	log     zerolog.Logger
	pause   time.Duration
}

// NewRefreshJob creates the nightly refresh job.
func NewRefreshJob(updater StockUpdater, symbols SymbolLister, fetcher IndexFetcher, bus *events.Bus, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		updater: updater,
		symbols: symbols,
		fetcher: fetcher,
		bus:     bus,
		log:     log.With().Str("component", "refresh_job").Logger(),
		pause:   500 * time.Millisecond,
	}
}

// Name implements Job.
func (j *RefreshJob) Name() string { return "nightly_refresh" }

// Run implements Job. Per-symbol failures are logged and counted, never
// fatal; the index fetch still runs even when every stock update failed.
func (j *RefreshJob) Run() error {
	symbols, err := j.symbols.Symbols()
	if err != nil {
		return fmt.Errorf("failed to list symbols: %w", err)
	}

	j.bus.Publish(events.RefreshStarted, "scheduler", map[string]interface{}{
		"symbols": len(symbols),
	})
	progress := events.NewProgressReporter(j.bus, events.RefreshProgress, "scheduler", "refresh")

	updated, failed := 0, 0
	for i, symbol := range symbols {
		if _, err := j.updater.Update(symbol); err != nil {
			j.log.Warn().Err(err).Str("symbol", symbol).Msg("Refresh failed for symbol")
			failed++
		} else {
			updated++
		}
		progress.Report(i+1, len(symbols), symbol)

		if i < len(symbols)-1 {
			time.Sleep(j.pause)
		}
	}

	indexResult := j.fetcher.FetchAll(indexes.DefaultSymbols, "1y", "1d", j.pause)

	j.log.Info().
		Int("updated", updated).
		Int("failed", failed).
		Int("indexes_updated", indexResult.Updated).
		Int("indexes_failed", indexResult.Failed).
		Msg("Nightly refresh finished")

	j.bus.Publish(events.RefreshComplete, "scheduler", map[string]interface{}{
		"updated":        updated,
		"failed":         failed,
		"indexesUpdated": indexResult.Updated,
		"indexesFailed":  indexResult.Failed,
	})

	return nil
}
