package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"divtrack/internal/analysis"
	"divtrack/internal/backtest"
	"divtrack/internal/contracts"
)

func newBacktestCmd() *cobra.Command {
	var (
		strategy   string
		capital    float64
		years      int
		stopMethod string
		stopValue  float64
	)
	cmd := &cobra.Command{
		Use:   "backtest <symbol>",
		Short: "Backtest one strategy on a symbol",
		Long: `Run a single strategy backtest with margin sizing, per-side costs,
overnight financing and a configurable stop-loss.

Strategies: buyhold, sma, rsi, macd, bollinger, seasonal, momentum
Stop methods: atr, percentage, volatility, fixed, none`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			symbol := strings.ToUpper(args[0])
			candles, err := app.client.GetHistory(symbol, fmt.Sprintf("%dy", years), "1d")
			if err != nil {
				return err
			}

			engine := backtest.NewEngine(app.log)
			result, err := engine.Run(candles, backtest.RunConfig{
				Symbol:         symbol,
				Strategy:       strategy,
				Capital:        capital,
				Years:          years,
				StopLossMethod: backtest.StopLossMethod(stopMethod),
				StopLossValue:  stopValue,
				Costs: contracts.CostProfile{
					Commission:    app.cfg.Costs.Commission,
					ExchangeFee:   app.cfg.Costs.ExchangeFee,
					ClearingFee:   app.cfg.Costs.ClearingFee,
					OvernightRate: app.cfg.Costs.OvernightRate,
					MarginRate:    app.cfg.Costs.MarginRate,
				},
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(result)
			}

			fmt.Printf("%s %s over %s\n", result.Symbol, result.StrategyType, result.Period)
			renderTable(
				[]string{"Final Value", "Return %", "Annual %", "Max DD %", "Win Rate", "Trades", "Sharpe", "Costs"},
				[][]string{{
					fmtFloat(result.FinalValue),
					fmtFloat(result.TotalReturn),
					fmtFloat(result.AnnualReturn),
					fmtFloat(result.MaxDrawdown),
					fmtFloat(result.WinRate),
					fmt.Sprintf("%d", result.TotalTrades),
					fmtFloat(result.SharpeRatio),
					fmtFloat(result.TotalCosts),
				}},
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "buyhold", "strategy to run")
	cmd.Flags().Float64Var(&capital, "capital", 10000, "starting capital")
	cmd.Flags().IntVar(&years, "years", 3, "years of history")
	cmd.Flags().StringVar(&stopMethod, "stop-method", "none", "stop-loss method")
	cmd.Flags().Float64Var(&stopValue, "stop-value", 0, "stop-loss parameter (percent, ATR multiple or price distance)")
	return cmd
}

func newMultiStrategyCmd() *cobra.Command {
	var (
		capital float64
		years   int
	)
	cmd := &cobra.Command{
		Use:   "multistrategy <symbol>",
		Short: "Backtest every strategy on a symbol and rank the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			symbol := strings.ToUpper(args[0])
			analyzer := analysis.NewMultiStrategyAnalyzer(app.client, app.client, app.log)
			comparison, err := analyzer.Analyze(symbol, capital, years)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(comparison)
			}

			fmt.Printf("%s (%s), %s, best: %s\n",
				comparison.CompanyName, comparison.Symbol, comparison.Period, comparison.BestStrategy)

			rows := make([][]string, 0, len(comparison.Ranking))
			for _, name := range comparison.Ranking {
				r := comparison.Strategies[name]
				rows = append(rows, []string{
					name,
					fmtFloat(r.TotalReturn),
					fmtFloat(r.AnnualReturn),
					fmtFloat(r.MaxDrawdown),
					fmtFloat(r.WinRate),
					fmt.Sprintf("%d", r.TotalTrades),
				})
			}
			renderTable([]string{"Strategy", "Return %", "Annual %", "Max DD %", "Win Rate", "Trades"}, rows)
			return nil
		},
	}
	cmd.Flags().Float64Var(&capital, "capital", 10000, "starting capital")
	cmd.Flags().IntVar(&years, "years", 3, "years of history")
	return cmd
}

func newPlanCmd() *cobra.Command {
	var (
		capital float64
		years   int
	)
	cmd := &cobra.Command{
		Use:   "plan <symbol>",
		Short: "Build a trade plan with position size, stop and profit targets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			symbol := strings.ToUpper(args[0])
			planner := analysis.NewStrategyPlanner(app.client, app.client, app.log)
			plan, err := planner.Plan(symbol, capital, years)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(plan)
			}

			fmt.Printf("%s (%s) at %s, trend: %s, risk: %s\n",
				plan.CompanyName, plan.Symbol, fmtFloat(plan.CurrentPrice),
				plan.Trend, plan.Recommendations.RiskLevel)
			renderTable(
				[]string{"Shares", "Position", "Stop", "Target Low", "Target Mid", "Target High", "Max Loss"},
				[][]string{{
					fmt.Sprintf("%d", plan.SharesToBuy),
					fmtFloat(plan.PositionValue),
					fmtFloat(plan.StopLossPrice),
					fmtFloat(plan.ProfitTargetLow),
					fmtFloat(plan.ProfitTargetMid),
					fmtFloat(plan.ProfitTargetHigh),
					fmtFloat(plan.MaxLossDollars),
				}},
			)
			if len(plan.Recommendations.FavorableMonths) > 0 {
				fmt.Printf("Favorable months: %s\n", strings.Join(plan.Recommendations.FavorableMonths, ", "))
			}
			if len(plan.Recommendations.AvoidMonths) > 0 {
				fmt.Printf("Avoid months: %s\n", strings.Join(plan.Recommendations.AvoidMonths, ", "))
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&capital, "capital", 1000, "capital to allocate")
	cmd.Flags().IntVar(&years, "years", 3, "years of history for the statistics")
	return cmd
}
