package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"divtrack/internal/dividends"
	"divtrack/internal/indexes"
	"divtrack/internal/scheduler"
	"divtrack/internal/server"
	"divtrack/internal/stocks"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if addr == "" {
				addr = fmt.Sprintf(":%d", app.cfg.Port)
			}

			srv := server.New(server.Config{
				Log:      app.log,
				Addr:     addr,
				DataDir:  app.cfg.DataDir,
				DB:       app.db,
				Stocks:   app.stocks,
				Analyzer: dividends.NewAnalyzer(app.stocks, app.yearly, app.log),
				Indexes:  app.indexes,
				Bus:      app.bus,
				DevMode:  app.cfg.DevMode,
			})

			errChan := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					errChan <- err
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errChan:
				return err
			case sig := <-sigChan:
				app.log.Info().Str("signal", sig.String()).Msg("Shutting down")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to :$DIVTRACK_PORT)")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	var (
		schedule    string
		maintenance string
		runNow      bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the nightly refresh on a cron schedule",
		Long: `Keep the database fresh: on every tick all stored stocks are re-fetched
and the benchmark index histories are updated. Database maintenance
(integrity check, WAL checkpoint, vacuum) runs on its own schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			updater := stocks.NewUpdater(app.client, app.stocks, app.yearly, app.log)
			fetcher := indexes.NewFetcher(app.client, app.indexes, app.log)
			job := scheduler.NewRefreshJob(updater, app.stocks, fetcher, app.bus, app.log)

			sched := scheduler.New(app.log)
			if err := sched.AddJob(schedule, job); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}
			if err := sched.AddJob(maintenance, scheduler.NewMaintenanceJob(app.db, app.log)); err != nil {
				return fmt.Errorf("invalid maintenance schedule %q: %w", maintenance, err)
			}

			if runNow {
				if err := sched.RunNow(job); err != nil {
					return err
				}
			}

			sched.Start()
			defer sched.Stop()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			<-sigChan
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "cron", "30 2 * * *", "cron schedule for the refresh")
	cmd.Flags().StringVar(&maintenance, "maintenance-cron", "0 */6 * * *", "cron schedule for database maintenance")
	cmd.Flags().BoolVar(&runNow, "now", false, "run one refresh immediately on start")
	return cmd
}
