package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"divtrack/internal/analysis"
	"divtrack/internal/dividends"
	"divtrack/internal/stocks"
)

func newDividendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dividends",
		Short: "Dividend history commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Summarize stored dividend history and safety for one stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			symbol := strings.ToUpper(args[0])
			analyzer := dividends.NewAnalyzer(app.stocks, app.yearly, app.log)
			result, err := analyzer.Analyze(symbol)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(result)
			}

			fmt.Printf("%s (%s)\n", result.CompanyName, result.Symbol)
			fmt.Printf("  Yield: %s%%  Annual: $%s  Growth: %s%%\n",
				fmtFloatPtr(result.CurrentYield), fmtFloatPtr(result.AnnualDividend),
				fmtFloatPtr(result.GrowthRate))
			fmt.Printf("  Consecutive years: %d  Safety: %s (%s)  %s\n\n",
				result.ConsecutiveYears, fmtFloatPtr(result.SafetyScore),
				result.SafetyRating, result.Recommendation)

			rows := make([][]string, 0, len(result.Years))
			for _, year := range result.Years {
				rows = append(rows, []string{
					strconv.Itoa(year.Year),
					fmtFloat(year.TotalDividend),
					strconv.Itoa(year.PaymentCount),
					fmtFloatPtr(year.AnnualEPS),
				})
			}
			renderTable([]string{"Year", "Total", "Payments", "EPS"}, rows)
			return nil
		},
	})
	return cmd
}

func newSafetyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "safety [symbols...]",
		Short: "Recompute dividend safety scores from stored fundamentals",
		Long: `Recompute the 0 to 5 safety score for the given symbols, or for every
stored stock when none are given, and persist the new scores.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			var list []*stocks.Stock
			if symbols := symbolArgs(args); len(symbols) > 0 {
				for _, symbol := range symbols {
					stock, err := app.stocks.GetBySymbol(symbol)
					if err != nil {
						return err
					}
					list = append(list, stock)
				}
			} else {
				list, err = app.stocks.GetAll()
				if err != nil {
					return err
				}
			}
			if len(list) == 0 {
				return fmt.Errorf("no stocks in the database")
			}

			type scored struct {
				Symbol         string  `json:"symbol"`
				Score          float64 `json:"safetyScore"`
				Rating         string  `json:"safetyRating"`
				Recommendation string  `json:"recommendation"`
			}
			results := make([]scored, 0, len(list))

			for _, stock := range list {
				in := stocks.SafetyInput{
					DividendYield:    stock.DividendYield,
					PayoutRatio:      stock.PayoutRatio,
					GrowthRate:       stock.DividendGrowthRate,
					ConsecutiveYears: stock.ConsecutiveYears,
					Beta:             stock.Beta,
				}
				score := stocks.SafetyScore(in)
				rating := stocks.SafetyRating(score)
				rec := stocks.Recommendation(in, score)

				if err := app.stocks.UpdateSafety(stock.Symbol, score, rating, rec); err != nil {
					return err
				}
				results = append(results, scored{stock.Symbol, score, rating, rec})
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"success": true,
					"stocks":  results,
				})
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Symbol, fmtFloat(r.Score), r.Rating, r.Recommendation})
			}
			renderTable([]string{"Symbol", "Score", "Rating", "Recommendation"}, rows)
			return nil
		},
	}
}

func newValuationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "valuation <symbol>",
		Short: "Value one stock on P/E, P/B, range position and analyst target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			symbol := strings.ToUpper(args[0])
			quote, err := app.client.GetQuote(symbol)
			if err != nil {
				return err
			}
			v := analysis.Valuate(quote)

			if jsonOutput {
				return printJSON(v)
			}

			fmt.Printf("%s: %s (%s)\n", symbol, v.Status, v.OverallAssessment)
			renderTable(
				[]string{"P/E", "P/B", "52w Pos", "Target", "Upside"},
				[][]string{{
					fmtFloatPtr(v.PERatio),
					fmtFloatPtr(v.PBRatio),
					fmtFloatPtr(v.RangePosition),
					fmtFloatPtr(v.TargetPrice),
					fmtFloatPtr(v.UpsidePotential),
				}},
			)
			for _, signal := range v.Signals {
				fmt.Printf("  - %s\n", signal)
			}
			return nil
		},
	}
}

func newGrowthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "growth <symbol>",
		Short: "Screen one stock through the five growth filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			symbol := strings.ToUpper(args[0])
			quote, err := app.client.GetQuote(symbol)
			if err != nil {
				return err
			}
			report := analysis.AnalyzeGrowth(quote)

			if jsonOutput {
				return printJSON(report)
			}

			fmt.Printf("%s (%s): %s, score %d/100, %d of 5 filters\n",
				report.CompanyName, report.Symbol, report.GrowthRating,
				report.GrowthScore, report.FiltersCount)
			renderTable(
				[]string{"Revenue Growth", "EPS Growth", "PEG", "Rule of 40", "FCF"},
				[][]string{{
					fmtFloatPtr(report.RevenueGrowth),
					fmtFloatPtr(report.EPSGrowth),
					fmtFloatPtr(report.PEGRatio),
					fmtFloatPtr(report.RuleOf40),
					fmtFloatPtr(report.FreeCashFlow),
				}},
			)
			return nil
		},
	}
}
