package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// computeMetrics derives performance metrics from the executed trades.
func computeMetrics(trades []Trade, capital, finalValue float64, years int) *Result {
	result := &Result{
		Capital:    capital,
		FinalValue: round2(finalValue),
		Trades:     trades,
	}
	if trades == nil {
		result.Trades = []Trade{}
	}

	totalReturn := (finalValue - capital) / capital * 100
	result.TotalReturn = round2(totalReturn)
	result.AnnualReturn = round2(totalReturn / float64(years))

	var (
		pnls        []float64
		grossProfit float64
		grossLoss   float64
		wins        int
	)
	for _, t := range trades {
		if t.PnL == nil {
			continue
		}
		pnls = append(pnls, *t.PnL)
		if *t.PnL > 0 {
			wins++
			grossProfit += *t.PnL
		} else if *t.PnL < 0 {
			grossLoss += math.Abs(*t.PnL)
		}
	}

	result.TotalTrades = len(pnls)
	if len(pnls) > 0 {
		result.WinRate = round2(float64(wins) / float64(len(pnls)) * 100)
	}
	if grossLoss > 0 {
		result.ProfitFactor = round2(grossProfit / grossLoss)
	}

	if len(pnls) > 1 {
		mean := stat.Mean(pnls, nil)
		// Population standard deviation over realized trade results
		variance := 0.0
		for _, p := range pnls {
			variance += (p - mean) * (p - mean)
		}
		std := math.Sqrt(variance / float64(len(pnls)))
		if std > 0 {
			result.SharpeRatio = round2(mean / std)
		}
	}

	result.MaxDrawdown = round2(maxDrawdown(pnls, capital))

	return result
}

// maxDrawdown tracks the realized equity curve peak to trough in percent.
func maxDrawdown(pnls []float64, capital float64) float64 {
	equity := capital
	peak := capital
	maxDD := 0.0

	for _, pnl := range pnls {
		equity += pnl
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
