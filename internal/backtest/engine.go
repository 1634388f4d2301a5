package backtest

import (
	"fmt"
	"time"

	"divtrack/internal/contracts"
	"divtrack/internal/indicators"
	"divtrack/internal/marketdata"

	"github.com/rs/zerolog"
)

// RunConfig parameterizes one backtest run.
type RunConfig struct {
	Symbol         string
	Strategy       string
	Capital        float64
	Years          int
	StopLossMethod StopLossMethod
	StopLossValue  float64
	Costs          contracts.CostProfile
}

// Engine walks a candle series with a strategy, applying margin sizing,
// per-side costs, overnight financing and stop-losses.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a backtest engine
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "backtest").Logger()}
}

type position struct {
	entryIndex int
	entryPrice float64
	entryDate  time.Time
	contracts  int
	stopPrice  *float64
}

// Run executes the strategy over the candles and returns the result with
// metrics attached.
func (e *Engine) Run(candles []marketdata.Candle, cfg RunConfig) (*Result, error) {
	if len(candles) < 2 {
		return nil, fmt.Errorf("not enough data for %s: %d candles", cfg.Symbol, len(candles))
	}
	if cfg.Capital <= 0 {
		return nil, fmt.Errorf("capital must be positive")
	}
	if cfg.Years <= 0 {
		cfg.Years = 1
	}

	strategy, err := NewStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	strategy.Prepare(candles)

	spec := contracts.SpecFor(cfg.Symbol)
	costs := cfg.Costs
	if costs == (contracts.CostProfile{}) {
		costs = contracts.DefaultCostProfile()
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i], lows[i], closes[i] = c.High, c.Low, c.Close
	}
	atrSeries := indicators.ATRSeries(highs, lows, closes, 14)
	volSeries := rollingVolatility(closes, 20)

	var (
		trades      []Trade
		pos         *position
		remaining   = cfg.Capital
		totalCosts  float64
		contractsTr int
	)

	entryIndexOf := func() int {
		if pos == nil {
			return -1
		}
		return pos.entryIndex
	}

	closePosition := func(i int, exitPrice float64, reason string) {
		daysHeld := int(candles[i].Date.Sub(pos.entryDate).Hours() / 24)
		exitCosts := costs.PerSideCost(pos.contracts)
		overnight := costs.OvernightCost(spec.Margin, pos.contracts, daysHeld)
		pnl := (exitPrice - pos.entryPrice) * spec.ContractSize * float64(pos.contracts)

		trades = append(trades, Trade{
			Date:               candles[i].Date,
			Type:               TradeSell,
			Price:              exitPrice,
			Contracts:          pos.contracts,
			Reason:             reason,
			PnL:                &pnl,
			Commission:         exitCosts,
			OvernightFinancing: overnight,
		})

		remaining += spec.Margin*float64(pos.contracts) + pnl - exitCosts - overnight
		totalCosts += exitCosts + overnight
		pos = nil
	}

	start := strategy.Warmup()
	if start >= len(candles) {
		return nil, fmt.Errorf("not enough data for %s warmup: need %d candles, have %d",
			strategy.Name(), start+1, len(candles))
	}

	for i := start; i < len(candles); i++ {
		price := candles[i].Close

		// Stop-loss has priority over strategy exits
		if pos != nil && pos.stopPrice != nil && price <= *pos.stopPrice {
			closePosition(i, *pos.stopPrice, "Stop-loss triggered")
			continue
		}

		action, reason := strategy.Signal(i, entryIndexOf())

		switch {
		case pos == nil && action == Buy:
			numContracts := int(remaining / spec.Margin)
			if numContracts < 1 {
				continue
			}

			atr := seriesValue(atrSeries, i)
			vol := seriesValue(volSeries, i)
			stopPrice := StopLossPrice(price, cfg.StopLossMethod, cfg.StopLossValue, atr, vol, Long)
			entryCosts := costs.PerSideCost(numContracts)

			pos = &position{
				entryIndex: i,
				entryPrice: price,
				entryDate:  candles[i].Date,
				contracts:  numContracts,
				stopPrice:  stopPrice,
			}

			trades = append(trades, Trade{
				Date:          candles[i].Date,
				Type:          TradeBuy,
				Price:         price,
				Contracts:     numContracts,
				Reason:        reason,
				StopLossPrice: stopPrice,
				Commission:    entryCosts,
			})

			remaining -= spec.Margin*float64(numContracts) + entryCosts
			totalCosts += entryCosts
			contractsTr += numContracts

		case pos != nil && action == Sell:
			closePosition(i, price, reason)
		}
	}

	// Close any open position at the end of the period
	if pos != nil {
		closePosition(len(candles)-1, candles[len(candles)-1].Close, "End of period")
	}

	result := computeMetrics(trades, cfg.Capital, remaining, cfg.Years)
	result.Success = true
	result.Symbol = cfg.Symbol
	result.Name = spec.Name
	result.StrategyType = strategy.Name()
	result.StopLossMethod = string(cfg.StopLossMethod)
	result.StopLossValue = cfg.StopLossValue
	result.Period = fmt.Sprintf("%dY", cfg.Years)
	result.ContractsTraded = contractsTr
	result.TotalCosts = totalCosts
	result.CalculatedAt = time.Now().UTC()

	e.log.Info().
		Str("symbol", cfg.Symbol).
		Str("strategy", strategy.Name()).
		Float64("total_return", result.TotalReturn).
		Int("trades", result.TotalTrades).
		Msg("Backtest complete")

	return result, nil
}

// rollingVolatility computes annualized volatility (percent) of log returns
// over a rolling window, aligned with the input index.
func rollingVolatility(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	for i := window; i < len(closes); i++ {
		if vol := indicators.Volatility(closes[:i+1], window); vol != nil {
			out[i] = *vol
		}
	}
	return out
}

// seriesValue returns a pointer to a positive series value at i, nil for
// warmup zeros or out-of-range indexes.
func seriesValue(series []float64, i int) *float64 {
	if series == nil || i >= len(series) || series[i] <= 0 {
		return nil
	}
	v := series[i]
	return &v
}
