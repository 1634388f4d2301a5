package backtest

import (
	"testing"
	"time"

	"divtrack/internal/contracts"
	"divtrack/internal/marketdata"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// risingCandles builds a strictly increasing daily series.
func risingCandles(start float64, step float64, n int) []marketdata.Candle {
	candles := make([]marketdata.Candle, n)
	date := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price := start + step*float64(i)
		candles[i] = marketdata.Candle{
			Date:   date.AddDate(0, 0, i),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		}
	}
	return candles
}

func TestRun_BuyHoldMonotonicSeries(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	candles := risingCandles(1000, 2, 60)

	result, err := engine.Run(candles, RunConfig{
		Symbol:         "GC=F",
		Strategy:       "buyhold",
		Capital:        10000,
		Years:          1,
		StopLossMethod: StopPercentage,
		StopLossValue:  10,
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	// Exactly one entry and one closing exit
	var buys, sells int
	for _, trade := range result.Trades {
		switch trade.Type {
		case TradeBuy:
			buys++
		case TradeSell:
			sells++
		}
	}
	assert.Equal(t, 1, buys)
	assert.Equal(t, 1, sells)

	// A rising market must end above the starting capital
	assert.Greater(t, result.FinalValue, result.Capital)
	assert.Greater(t, result.TotalReturn, 0.0)
	assert.Equal(t, "End of period", result.Trades[len(result.Trades)-1].Reason)
}

func TestRun_BuyHoldStopLossTriggered(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	// Rises then collapses through the 10% stop
	candles := risingCandles(1000, 1, 10)
	date := candles[len(candles)-1].Date
	for i := 1; i <= 10; i++ {
		price := 1009.0 - 20*float64(i)
		candles = append(candles, marketdata.Candle{
			Date:  date.AddDate(0, 0, i),
			Open:  price,
			High:  price + 1,
			Low:   price - 1,
			Close: price,
		})
	}

	result, err := engine.Run(candles, RunConfig{
		Symbol:         "GC=F",
		Strategy:       "buyhold",
		Capital:        10000,
		Years:          1,
		StopLossMethod: StopPercentage,
		StopLossValue:  10,
	})
	require.NoError(t, err)

	last := result.Trades[len(result.Trades)-1]
	assert.Equal(t, TradeSell, last.Type)
	assert.Equal(t, "Stop-loss triggered", last.Reason)
	// Exit executed at the stop price, 10% below the 1000 entry
	assert.InDelta(t, 900.0, last.Price, 1e-9)
}

func TestRun_EntryAccountsForMarginAndCosts(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	candles := risingCandles(1000, 0.5, 30)

	result, err := engine.Run(candles, RunConfig{
		Symbol:         "GC=F", // margin 8000
		Strategy:       "buyhold",
		Capital:        20000, // room for 2 contracts
		Years:          1,
		StopLossMethod: StopNone,
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.Trades)
	entry := result.Trades[0]
	assert.Equal(t, TradeBuy, entry.Type)
	assert.Equal(t, 2, entry.Contracts)
	// 4.50 per contract per side
	assert.InDelta(t, 9.0, entry.Commission, 1e-9)
	assert.Equal(t, 2, result.ContractsTraded)
}

func TestRun_InsufficientCapitalProducesNoTrades(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	candles := risingCandles(1000, 1, 30)

	result, err := engine.Run(candles, RunConfig{
		Symbol:   "GC=F",
		Strategy: "buyhold",
		Capital:  5000, // below the 8000 margin
		Years:    1,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Trades)
	assert.InDelta(t, 5000, result.FinalValue, 1e-9)
}

func TestRun_OvernightFinancingCharged(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	candles := risingCandles(1000, 1, 31)

	result, err := engine.Run(candles, RunConfig{
		Symbol:         "GC=F",
		Strategy:       "buyhold",
		Capital:        10000,
		Years:          1,
		StopLossMethod: StopNone,
	})
	require.NoError(t, err)

	exit := result.Trades[len(result.Trades)-1]
	costs := contracts.DefaultCostProfile()
	// Held for 30 calendar days with 1 contract
	expected := costs.OvernightCost(8000, 1, 30)
	assert.InDelta(t, expected, exit.OvernightFinancing, 1e-9)
}

func TestRun_UnknownStrategy(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	_, err := engine.Run(risingCandles(100, 1, 10), RunConfig{
		Symbol:   "GC=F",
		Strategy: "martingale",
		Capital:  10000,
		Years:    1,
	})
	require.Error(t, err)
}

func TestRun_TooFewCandlesForWarmup(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	_, err := engine.Run(risingCandles(100, 1, 50), RunConfig{
		Symbol:   "GC=F",
		Strategy: "sma", // needs 200 bars
		Capital:  10000,
		Years:    1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warmup")
}
