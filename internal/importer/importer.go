// Package importer runs rate-limited bulk imports of symbol lists into the
// dividend database.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"divtrack/internal/stocks"
)

// requestInterval paces Yahoo requests to stay under its rate limits.
const requestInterval = 500 * time.Millisecond

// Updater imports a single symbol into the database.
type Updater interface {
	Update(symbol string) (*stocks.Stock, error)
}

// ExistsChecker reports whether a symbol is already stored.
type ExistsChecker interface {
	Exists(symbol string) (bool, error)
}

// Options control a bulk import run.
type Options struct {
	// Limit caps how many symbols are processed, 0 means all.
	Limit int
	// SkipExisting avoids any fetch for symbols already in the database.
	SkipExisting bool
	// ShowProgress renders a terminal progress bar.
	ShowProgress bool
}

// Report summarizes a finished bulk import.
type Report struct {
	Total         int           `json:"total"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	Skipped       int           `json:"skippedExisting"`
	FailedSymbols []string      `json:"failedSymbols,omitempty"`
	FailedFile    string        `json:"failedFile,omitempty"`
	Elapsed       time.Duration `json:"elapsed"`
}

// SuccessRate is the share of attempted symbols that imported, in percent.
func (r *Report) SuccessRate() float64 {
	attempted := r.Succeeded + r.Failed
	if attempted == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(attempted) * 100
}

// Importer walks a symbol list through the stock updater.
type Importer struct {
	updater Updater
	checker ExistsChecker
	limiter *rate.Limiter
	dataDir string
	log     zerolog.Logger
	now     func() time.Time
}

// New creates an importer that writes failure lists under dataDir.
func New(updater Updater, checker ExistsChecker, dataDir string, log zerolog.Logger) *Importer {
	return &Importer{
		updater: updater,
		checker: checker,
		limiter: rate.NewLimiter(rate.Every(requestInterval), 1),
		dataDir: dataDir,
		log:     log.With().Str("component", "importer").Logger(),
	}
}

// Run imports the symbols one by one. Failures never abort the run; the
// failed symbols are collected and written to failed_imports_<timestamp>.txt
// for a retry. Cancelling the context stops between symbols.
func (im *Importer) Run(ctx context.Context, symbols []string, opts Options) (*Report, error) {
	if opts.Limit > 0 && opts.Limit < len(symbols) {
		symbols = symbols[:opts.Limit]
	}

	report := &Report{Total: len(symbols)}
	start := time.Now()

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.NewOptions(len(symbols),
			progressbar.OptionSetDescription("importing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if bar != nil {
			bar.Add(1)
		}

		if opts.SkipExisting {
			exists, err := im.checker.Exists(symbol)
			if err != nil {
				im.log.Warn().Err(err).Str("symbol", symbol).Msg("Existence check failed")
			} else if exists {
				report.Skipped++
				continue
			}
		}

		if err := im.limiter.Wait(ctx); err != nil {
			return report, err
		}

		if _, err := im.updater.Update(symbol); err != nil {
			im.log.Warn().Err(err).Str("symbol", symbol).Msg("Import failed")
			report.Failed++
			report.FailedSymbols = append(report.FailedSymbols, symbol)
			continue
		}
		report.Succeeded++
	}

	report.Elapsed = time.Since(start)

	if len(report.FailedSymbols) > 0 {
		path, err := im.writeFailedList(report.FailedSymbols)
		if err != nil {
			im.log.Warn().Err(err).Msg("Could not write failed symbol list")
		} else {
			report.FailedFile = path
		}
	}

	im.log.Info().
		Int("total", report.Total).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Dur("elapsed", report.Elapsed).
		Msg("Bulk import complete")
	return report, nil
}

func (im *Importer) writeFailedList(symbols []string) (string, error) {
	ts := im.timestamp().Format("20060102_150405")
	path := filepath.Join(im.dataDir, fmt.Sprintf("failed_imports_%s.txt", ts))
	content := strings.Join(symbols, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func (im *Importer) timestamp() time.Time {
	if im.now != nil {
		return im.now()
	}
	return time.Now()
}

// ReadSymbolFile loads one symbol per line, ignoring blanks and # comments.
func ReadSymbolFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read symbol file: %w", err)
	}
	var symbols []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		symbols = append(symbols, strings.ToUpper(line))
	}
	return symbols, nil
}
