package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"divtrack/internal/analysis"
)

func newCorrelateCmd() *cobra.Command {
	var years int
	cmd := &cobra.Command{
		Use:   "correlate <symbols...>",
		Short: "Print the pairwise correlation matrix for a set of symbols",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			analyzer := analysis.NewPairsAnalyzer(app.client, app.log)
			report, err := analyzer.Analyze(symbolArgs(args), years)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"success":           true,
					"period":            report.Period,
					"dataPoints":        report.DataPoints,
					"correlationMatrix": report.CorrelationMatrix,
				})
			}

			fmt.Printf("Correlations over %s (%d shared trading days)\n",
				report.Period, report.DataPoints)
			rows := make([][]string, 0, len(report.CorrelationMatrix))
			for _, cell := range report.CorrelationMatrix {
				rows = append(rows, []string{
					cell.Symbol1,
					cell.Symbol2,
					fmt.Sprintf("%.4f", cell.Correlation),
					fmt.Sprintf("%.4f", cell.Cointegration),
				})
			}
			renderTable([]string{"Symbol 1", "Symbol 2", "Correlation", "Coint Score"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&years, "years", 2, "years of history")
	return cmd
}

func newPairsCmd() *cobra.Command {
	var years int
	cmd := &cobra.Command{
		Use:   "pairs <symbols...>",
		Short: "Score symbol pairs for pair trading strategies",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			analyzer := analysis.NewPairsAnalyzer(app.client, app.log)
			report, err := analyzer.Analyze(symbolArgs(args), years)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(report)
			}

			if len(report.PairSuggestions) == 0 {
				fmt.Println("No tradeable pairs found.")
				return nil
			}

			rows := make([][]string, 0, len(report.PairSuggestions))
			for _, p := range report.PairSuggestions {
				halfLife := "-"
				if p.HalfLife != nil {
					halfLife = strconv.Itoa(*p.HalfLife)
				}
				rows = append(rows, []string{
					p.Symbol1 + "/" + p.Symbol2,
					fmtFloat(p.Score),
					p.RecommendationType,
					fmt.Sprintf("%.3f", p.Correlation),
					halfLife,
					p.RiskLevel,
				})
			}
			renderTable([]string{"Pair", "Score", "Strategy", "Correlation", "Half-Life", "Risk"}, rows)

			for _, p := range report.TopPairs {
				fmt.Printf("  %s/%s: %s\n", p.Symbol1, p.Symbol2, p.Reasoning)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&years, "years", 2, "years of history")
	return cmd
}

func newSeasonalCmd() *cobra.Command {
	var years int
	cmd := &cobra.Command{
		Use:   "seasonal <symbol>",
		Short: "Monthly seasonality and intraday timing for one symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			analyzer := analysis.NewSeasonalAnalyzer(app.client, app.log)
			report, err := analyzer.Analyze(strings.ToUpper(args[0]), years)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(report)
			}

			fmt.Printf("%s over %d years\n", report.Symbol, report.PeriodYears)
			rows := make([][]string, 0, len(report.MonthlyStats))
			for _, m := range report.MonthlyStats {
				rows = append(rows, []string{
					m.Month,
					fmtFloat(m.AvgReturn),
					fmt.Sprintf("%.1f%%", m.WinRate),
					fmtFloat(m.StdDev),
					strconv.Itoa(m.Occurrences),
				})
			}
			renderTable([]string{"Month", "Avg Return %", "Win Rate", "Std Dev", "Days"}, rows)

			fmt.Printf("Best months: %s\n", strings.Join(report.BestMonths, ", "))
			fmt.Printf("Worst months: %s\n", strings.Join(report.WorstMonths, ", "))
			if len(report.Intraday.BestBuyHours) > 0 {
				hours := make([]string, len(report.Intraday.BestBuyHours))
				for i, h := range report.Intraday.BestBuyHours {
					hours[i] = fmt.Sprintf("%02d:00", h)
				}
				fmt.Printf("Best buy hours: %s\n", strings.Join(hours, ", "))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&years, "years", 5, "years of history")
	return cmd
}

func newSP500CompareCmd() *cobra.Command {
	var (
		years     int
		benchmark string
	)
	cmd := &cobra.Command{
		Use:   "sp500-compare <symbols...>",
		Short: "Compare stocks against the S&P 500 on return, risk and alpha",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			comparator := analysis.NewBenchmarkComparator(app.client, app.log)
			report, err := comparator.Compare(symbolArgs(args), benchmark, years)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(report)
			}

			fmt.Printf("Benchmark %s: %.2f%% total, %.2f%% annualized, Sharpe %.2f\n",
				report.Benchmark.Symbol, report.Benchmark.TotalReturn,
				report.Benchmark.AnnualizedReturn, report.Benchmark.SharpeRatio)
			fmt.Printf("%d of %d stocks outperformed.\n\n", report.Outperforms, len(report.Stocks))

			rows := make([][]string, 0, len(report.Stocks))
			for _, s := range report.Stocks {
				rows = append(rows, []string{
					s.Symbol,
					fmtFloat(s.TotalReturn),
					fmtFloat(s.AnnualizedReturn),
					fmtFloat(s.Volatility),
					fmtFloat(s.SharpeRatio),
					fmtFloatPtr(s.Beta),
					fmtFloatPtr(s.Alpha),
					fmtFloat(s.VsBenchmark),
				})
			}
			renderTable(
				[]string{"Symbol", "Return %", "Annual %", "Vol %", "Sharpe", "Beta", "Alpha", "Vs Bench"},
				rows,
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&years, "years", 5, "years of history")
	cmd.Flags().StringVar(&benchmark, "benchmark", analysis.DefaultBenchmark, "benchmark index symbol")
	return cmd
}
