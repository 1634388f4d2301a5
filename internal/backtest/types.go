// Package backtest runs trading strategies over historical candles with a
// futures cost model and produces performance metrics.
package backtest

import (
	"time"

	"divtrack/internal/marketdata"
)

// TradeType marks a trade row as an entry or an exit.
type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

// Trade is one executed entry or exit.
type Trade struct {
	Date               time.Time `json:"date"`
	Type               TradeType `json:"type"`
	Price              float64   `json:"price"`
	Contracts          int       `json:"contracts"`
	Reason             string    `json:"reason"`
	StopLossPrice      *float64  `json:"stopLossPrice"`
	PnL                *float64  `json:"pnl"`
	Commission         float64   `json:"commission"`
	OvernightFinancing float64   `json:"overnightFinancing"`
}

// Result is the full outcome of one backtest run.
type Result struct {
	Success         bool      `json:"success"`
	Symbol          string    `json:"symbol"`
	Name            string    `json:"name"`
	StrategyType    string    `json:"strategyType"`
	StopLossMethod  string    `json:"stopLossMethod"`
	StopLossValue   float64   `json:"stopLossValue"`
	Period          string    `json:"period"`
	Capital         float64   `json:"capital"`
	ContractsTraded int       `json:"contractsTraded"`
	FinalValue      float64   `json:"finalValue"`
	TotalReturn     float64   `json:"totalReturn"`
	AnnualReturn    float64   `json:"annualReturn"`
	MaxDrawdown     float64   `json:"maxDrawdown"`
	WinRate         float64   `json:"winRate"`
	TotalTrades     int       `json:"totalTrades"`
	ProfitFactor    float64   `json:"profitFactor"`
	SharpeRatio     float64   `json:"sharpeRatio"`
	TotalCosts      float64   `json:"totalCosts"`
	Trades          []Trade   `json:"trades"`
	CalculatedAt    time.Time `json:"calculatedAt"`
}

// Action is a strategy decision for one bar.
type Action int

const (
	Hold Action = iota
	Buy
	Sell
)

// Strategy produces entry and exit signals over a prepared candle series.
// Signal receives the index of the bar the current position was opened at,
// or -1 when flat.
type Strategy interface {
	Name() string
	Prepare(candles []marketdata.Candle)
	Warmup() int
	Signal(i, entryIndex int) (Action, string)
}
