// Package marketdata provides the Yahoo Finance client, symbol mapping and
// the on-disk history cache shared by every fetch command.
package marketdata

import "time"

// Candle is one OHLCV bar from the chart API.
type Candle struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume"`
	AdjClose float64   `json:"adjClose"`
}

// Quote holds the fundamental and market fields used to build a stock row.
type Quote struct {
	Symbol            string
	LongName          *string
	ShortName         *string
	Sector            *string
	Industry          *string
	Country           *string
	Exchange          *string
	Currency          *string
	CurrentPrice      *float64
	DividendYield     *float64
	DividendRate      *float64
	PayoutRatio       *float64
	TrailingPE        *float64
	PriceToBook       *float64
	EPS               *float64
	BookValue         *float64
	MarketCap         *float64
	Beta              *float64
	High52Week        *float64
	Low52Week         *float64
	NetIncome         *float64
	SharesOutstanding *float64
	RevenueGrowth     *float64
	EarningsGrowth    *float64
	ProfitMargin      *float64
	PEGRatio          *float64
	FreeCashflow      *float64
	TargetMeanPrice   *float64
	ExDividendDate    *time.Time
	DividendDate      *time.Time
}

// DividendEvent is one historical dividend payment.
type DividendEvent struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// IndexQuote holds the market fields used to build an index row.
type IndexQuote struct {
	Symbol        string
	Name          *string
	Exchange      *string
	Currency      *string
	CurrentPrice  *float64
	Change        *float64
	ChangePercent *float64
	High52Week    *float64
	Low52Week     *float64
}
