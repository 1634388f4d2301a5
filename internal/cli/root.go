// Package cli wires the divtrack command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"divtrack/internal/apilog"
	"divtrack/internal/config"
	"divtrack/internal/database"
	"divtrack/internal/dividends"
	"divtrack/internal/events"
	"divtrack/internal/indexes"
	"divtrack/internal/marketdata"
	"divtrack/internal/stocks"
	"divtrack/pkg/logger"
)

var (
	jsonOutput bool
	noCache    bool
)

// Execute runs the root command. On failure it emits the standard error
// payload and exits non-zero.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if jsonOutput {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "divtrack",
		Short: "Dividend stock tracker, screener and strategy backtester",
		Long: `Divtrack tracks dividend stocks in a local SQLite database, scores their
dividend safety, and runs strategy backtests and screeners over Yahoo
Finance market data.

Examples:
  divtrack update KO PEP JNJ
  divtrack dividends analyze KO
  divtrack backtest GC=F --strategy sma --capital 10000
  divtrack serve`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit JSON instead of tables")
	root.PersistentFlags().BoolVar(&noCache, "no-cache", false, "fetch fresh market data, skipping cached entries")

	root.AddCommand(
		newMigrateCmd(),
		newClearDataCmd(),
		newUpdateCmd(),
		newImportCmd(),
		newDividendsCmd(),
		newSafetyCmd(),
		newBacktestCmd(),
		newMultiStrategyCmd(),
		newPlanCmd(),
		newCorrelateCmd(),
		newPairsCmd(),
		newValuationCmd(),
		newGrowthCmd(),
		newSeasonalCmd(),
		newSP500CompareCmd(),
		newFetchCmd(),
		newServeCmd(),
		newScheduleCmd(),
		newBackupCmd(),
	)
	return root
}

// app bundles the shared dependencies a command needs. Close it when done.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	db      *database.DB
	client  *marketdata.Client
	stocks  *stocks.Repository
	yearly  *dividends.Repository
	indexes *indexes.Repository
	bus     *events.Bus
}

// newApp loads config, opens the database and builds the shared clients.
// Migrations run on every start so the schema is always current.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "stocks",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	cache, err := marketdata.NewCache(cfg.CacheDir(), cfg.CacheTTL, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	client := marketdata.NewClient(log).
		WithCache(cache).
		WithCacheDisabled(noCache).
		WithRecorder(apilog.NewRepository(db.Conn(), log))

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		client:  client,
		stocks:  stocks.NewRepository(db.Conn(), log),
		yearly:  dividends.NewRepository(db.Conn(), log),
		indexes: indexes.NewRepository(db.Conn(), log),
		bus:     events.NewBus(log),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close database")
	}
}

// printJSON writes an indented payload to stdout.
func printJSON(payload interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

// renderTable prints rows under a header.
func renderTable(header []string, rows [][]string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()
}

// symbolArgs uppercases and de-duplicates positional symbol arguments.
func symbolArgs(args []string) []string {
	seen := make(map[string]bool, len(args))
	var symbols []string
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			symbol := strings.ToUpper(strings.TrimSpace(part))
			if symbol == "" || seen[symbol] {
				continue
			}
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

func fmtFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func fmtFloatPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
