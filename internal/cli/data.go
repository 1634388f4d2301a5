package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"divtrack/internal/importer"
	"divtrack/internal/stocks"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// newApp migrates on open, so reaching this point means the
			// schema is current.
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"success":  true,
					"database": app.cfg.DatabasePath(),
				})
			}
			fmt.Printf("Database %s is up to date.\n", app.cfg.DatabasePath())
			return nil
		},
	}
}

func newClearDataCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "clear-data",
		Short: "Delete all stored stocks, dividends and index history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to clear data without --force")
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.db.ClearAllData(); err != nil {
				return fmt.Errorf("failed to clear data: %w", err)
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{"success": true})
			}
			fmt.Println("All data cleared.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm deletion")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update [symbols...]",
		Short: "Refresh fundamentals and dividend history from Yahoo Finance",
		Long: `Refresh the given symbols. With no arguments every stock already in the
database is refreshed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			symbols := symbolArgs(args)
			if len(symbols) == 0 {
				symbols, err = app.stocks.Symbols()
				if err != nil {
					return fmt.Errorf("failed to list stored symbols: %w", err)
				}
			}
			if len(symbols) == 0 {
				return fmt.Errorf("no symbols to update")
			}

			updater := stocks.NewUpdater(app.client, app.stocks, app.yearly, app.log)
			result := updater.UpdateAll(symbols, app.cfg.RequestDelay)

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"success":       true,
					"updated":       result.Updated,
					"failed":        result.Failed,
					"failedSymbols": result.FailedSymbols,
				})
			}

			fmt.Printf("Updated %d of %d symbols.\n", result.Updated, len(symbols))
			for _, symbol := range result.FailedSymbols {
				fmt.Printf("  failed: %s\n", symbol)
			}
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var (
		fromFile     string
		limit        int
		skipExisting bool
		noProgress   bool
	)
	cmd := &cobra.Command{
		Use:   "import [symbols...]",
		Short: "Bulk import a list of symbols",
		Long: `Import many symbols at once, paced to stay under the data source's rate
limits. Symbols that fail are written to failed_imports_<timestamp>.txt in
the data directory so the run can be retried.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			symbols := symbolArgs(args)
			if fromFile != "" {
				fileSymbols, err := importer.ReadSymbolFile(fromFile)
				if err != nil {
					return err
				}
				symbols = append(symbols, fileSymbols...)
			}
			if len(symbols) == 0 {
				return fmt.Errorf("no symbols given; pass them as arguments or via --file")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			updater := stocks.NewUpdater(app.client, app.stocks, app.yearly, app.log)
			imp := importer.New(updater, app.stocks, app.cfg.DataDir, app.log)

			report, err := imp.Run(ctx, symbols, importer.Options{
				Limit:        limit,
				SkipExisting: skipExisting,
				ShowProgress: !noProgress && !jsonOutput,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"success": true,
					"report":  report,
				})
			}

			renderTable(
				[]string{"Total", "Imported", "Skipped", "Failed", "Success Rate"},
				[][]string{{
					strconv.Itoa(report.Total),
					strconv.Itoa(report.Succeeded),
					strconv.Itoa(report.Skipped),
					strconv.Itoa(report.Failed),
					fmt.Sprintf("%.1f%%", report.SuccessRate()),
				}},
			)
			if report.FailedFile != "" {
				fmt.Printf("Failed symbols written to %s\n", report.FailedFile)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fromFile, "file", "", "file with one symbol per line (# comments allowed)")
	cmd.Flags().IntVar(&limit, "limit", 0, "import at most N symbols (0 = all)")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip symbols already in the database")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}
