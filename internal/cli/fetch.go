package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"divtrack/internal/contracts"
	"divtrack/internal/indexes"
	"divtrack/internal/listings"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch reference data: indices, commodities, listings, ETF holdings",
	}
	cmd.AddCommand(
		newFetchIndexCmd(),
		newFetchCommodityCmd(),
		newFetchListingsCmd(),
		newFetchETFHoldingsCmd(),
	)
	return cmd
}

func newFetchIndexCmd() *cobra.Command {
	var (
		rng      string
		interval string
	)
	cmd := &cobra.Command{
		Use:   "index [symbols...]",
		Short: "Fetch benchmark index quotes and history",
		Long: `Fetch the given indices, or the default set (S&P 500, Dow Jones, NASDAQ,
TSX Composite) when none are given, and store quotes plus history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			symbols := symbolArgs(args)
			if len(symbols) == 0 {
				symbols = indexes.DefaultSymbols
			}

			fetcher := indexes.NewFetcher(app.client, app.indexes, app.log)
			result := fetcher.FetchAll(symbols, rng, interval, app.cfg.RequestDelay)

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"success":       true,
					"updated":       result.Updated,
					"failed":        result.Failed,
					"failedSymbols": result.FailedSymbols,
				})
			}
			fmt.Printf("Fetched %d of %d indices.\n", result.Updated, len(symbols))
			return nil
		},
	}
	cmd.Flags().StringVar(&rng, "range", "1y", "history range (e.g. 6mo, 1y, 5y)")
	cmd.Flags().StringVar(&interval, "interval", "1d", "candle interval")
	return cmd
}

func newFetchCommodityCmd() *cobra.Command {
	var (
		rng      string
		interval string
	)
	cmd := &cobra.Command{
		Use:   "commodity [symbols...]",
		Short: "Fetch commodity futures quotes and history",
		Long: `Fetch futures contracts (GC=F, CL=F, ...). Without arguments every known
contract is fetched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			symbols := symbolArgs(args)
			if len(symbols) == 0 {
				symbols = contracts.Symbols()
			}
			for _, symbol := range symbols {
				if !contracts.Known(symbol) {
					app.log.Warn().Str("symbol", symbol).Msg("Unknown contract, using default spec")
				}
			}

			fetcher := indexes.NewFetcher(app.client, app.indexes, app.log)
			result := fetcher.FetchAll(symbols, rng, interval, app.cfg.RequestDelay)

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"success":       true,
					"updated":       result.Updated,
					"failed":        result.Failed,
					"failedSymbols": result.FailedSymbols,
				})
			}
			fmt.Printf("Fetched %d of %d contracts.\n", result.Updated, len(symbols))
			return nil
		},
	}
	cmd.Flags().StringVar(&rng, "range", "2y", "history range")
	cmd.Flags().StringVar(&interval, "interval", "1d", "candle interval")
	return cmd
}

func newFetchListingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listings <sp500|nasdaq100|tsx>",
		Short: "Fetch index constituent listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			client := listings.NewClient(app.log)

			var list []listings.Listing
			switch strings.ToLower(args[0]) {
			case "sp500":
				list, err = client.SP500()
			case "nasdaq100":
				list, err = client.Nasdaq100()
			case "tsx":
				list, err = client.TSX()
			default:
				return fmt.Errorf("unknown listing source %q (want sp500, nasdaq100 or tsx)", args[0])
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"success":  true,
					"count":    len(list),
					"listings": list,
				})
			}

			rows := make([][]string, 0, len(list))
			for _, l := range list {
				rows = append(rows, []string{l.Symbol, l.Name, l.Sector, l.Exchange})
			}
			renderTable([]string{"Symbol", "Name", "Sector", "Exchange"}, rows)
			fmt.Printf("%d listings. Import them with: divtrack import --skip-existing ...\n", len(list))
			return nil
		},
	}
}

func newFetchETFHoldingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "etf-holdings <symbol>",
		Short: "Fetch the top holdings of an ETF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			client := listings.NewClient(app.log)
			holdings, err := client.ETFHoldings(strings.ToUpper(args[0]))
			if err != nil {
				return err
			}
			if len(holdings) == 0 {
				return fmt.Errorf("no holdings found for %s", strings.ToUpper(args[0]))
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"success":  true,
					"count":    len(holdings),
					"holdings": holdings,
				})
			}

			rows := make([][]string, 0, len(holdings))
			for _, h := range holdings {
				rows = append(rows, []string{h.Symbol, h.Name, fmt.Sprintf("%.2f%%", h.Weight)})
			}
			renderTable([]string{"Symbol", "Name", "Weight"}, rows)
			return nil
		},
	}
}
