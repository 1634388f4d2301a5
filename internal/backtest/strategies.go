package backtest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"divtrack/internal/indicators"
	"divtrack/internal/marketdata"
)

// StrategyNames lists every supported strategy key.
func StrategyNames() []string {
	return []string{"buyhold", "sma", "rsi", "macd", "bollinger", "seasonal", "momentum"}
}

// NewStrategy builds a strategy from its key.
func NewStrategy(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "buyhold":
		return &BuyHoldStrategy{}, nil
	case "sma":
		return &SMACrossStrategy{Fast: 50, Slow: 200}, nil
	case "rsi":
		return &RSIStrategy{Period: 14, Oversold: 30, Overbought: 70}, nil
	case "macd":
		return &MACDStrategy{Fast: 12, Slow: 26, SignalPeriod: 9}, nil
	case "bollinger":
		return &BollingerStrategy{Period: 20, Mult: 2.0}, nil
	case "seasonal":
		return &SeasonalStrategy{TopMonths: 4}, nil
	case "momentum":
		return &MomentumStrategy{Lookback: 20, StopPct: 0.08}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (must be one of: %s)", name, strings.Join(StrategyNames(), ", "))
	}
}

// BuyHoldStrategy enters on the first bar and holds until the end of the
// period or a stop-loss.
type BuyHoldStrategy struct{}

func (s *BuyHoldStrategy) Name() string                        { return "buyhold" }
func (s *BuyHoldStrategy) Prepare(candles []marketdata.Candle) {}
func (s *BuyHoldStrategy) Warmup() int                         { return 0 }
func (s *BuyHoldStrategy) Signal(i, entryIndex int) (Action, string) {
	if entryIndex < 0 && i == 0 {
		return Buy, "Initial entry"
	}
	return Hold, ""
}

// SMACrossStrategy trades the fast/slow moving average crossover.
type SMACrossStrategy struct {
	Fast int
	Slow int

	fast []float64
	slow []float64
}

func (s *SMACrossStrategy) Name() string { return "sma" }

func (s *SMACrossStrategy) Prepare(candles []marketdata.Candle) {
	closes := closePrices(candles)
	s.fast = indicators.SMASeries(closes, s.Fast)
	s.slow = indicators.SMASeries(closes, s.Slow)
}

func (s *SMACrossStrategy) Warmup() int { return s.Slow }

func (s *SMACrossStrategy) Signal(i, entryIndex int) (Action, string) {
	if s.fast == nil || s.slow == nil || i >= len(s.fast) || i < 1 {
		return Hold, ""
	}

	fast, slow := s.fast[i], s.slow[i]
	fastPrev, slowPrev := s.fast[i-1], s.slow[i-1]

	if entryIndex < 0 && fast > slow && fastPrev <= slowPrev {
		return Buy, fmt.Sprintf("SMA%d crossed above SMA%d", s.Fast, s.Slow)
	}
	if entryIndex >= 0 && fast < slow && fastPrev >= slowPrev {
		return Sell, fmt.Sprintf("SMA%d crossed below SMA%d", s.Fast, s.Slow)
	}
	return Hold, ""
}

// RSIStrategy buys the recovery from oversold and sells the fall from
// overbought.
type RSIStrategy struct {
	Period     int
	Oversold   float64
	Overbought float64

	rsi []float64
}

func (s *RSIStrategy) Name() string { return "rsi" }

func (s *RSIStrategy) Prepare(candles []marketdata.Candle) {
	s.rsi = indicators.RSISeries(closePrices(candles), s.Period)
}

// Warmup skips one extra bar so the previous value is already valid.
func (s *RSIStrategy) Warmup() int { return s.Period + 1 }

func (s *RSIStrategy) Signal(i, entryIndex int) (Action, string) {
	if s.rsi == nil || i >= len(s.rsi) || i < 1 {
		return Hold, ""
	}

	rsi, rsiPrev := s.rsi[i], s.rsi[i-1]
	if rsi <= 0 || rsiPrev <= 0 {
		return Hold, ""
	}

	if entryIndex < 0 && rsi > s.Oversold && rsiPrev <= s.Oversold {
		return Buy, fmt.Sprintf("RSI crossed above %.0f (oversold)", s.Oversold)
	}
	if entryIndex >= 0 && rsi < s.Overbought && rsiPrev >= s.Overbought {
		return Sell, fmt.Sprintf("RSI crossed below %.0f (overbought)", s.Overbought)
	}
	return Hold, ""
}

// MACDStrategy trades the MACD/signal line crossover.
type MACDStrategy struct {
	Fast         int
	Slow         int
	SignalPeriod int

	macd   []float64
	signal []float64
}

func (s *MACDStrategy) Name() string { return "macd" }

func (s *MACDStrategy) Prepare(candles []marketdata.Candle) {
	s.macd, s.signal, _ = indicators.MACDSeries(closePrices(candles), s.Fast, s.Slow, s.SignalPeriod)
}

func (s *MACDStrategy) Warmup() int { return s.Slow + s.SignalPeriod }

func (s *MACDStrategy) Signal(i, entryIndex int) (Action, string) {
	if s.macd == nil || s.signal == nil || i >= len(s.macd) || i < 1 {
		return Hold, ""
	}

	macd, sig := s.macd[i], s.signal[i]
	macdPrev, sigPrev := s.macd[i-1], s.signal[i-1]

	if entryIndex < 0 && macd > sig && macdPrev <= sigPrev {
		return Buy, "MACD crossed above Signal"
	}
	if entryIndex >= 0 && macd < sig && macdPrev >= sigPrev {
		return Sell, "MACD crossed below Signal"
	}
	return Hold, ""
}

// BollingerStrategy buys the touch of the lower band and exits at the
// middle band.
type BollingerStrategy struct {
	Period int
	Mult   float64

	upper  []float64
	middle []float64
	lower  []float64
	closes []float64
}

func (s *BollingerStrategy) Name() string { return "bollinger" }

func (s *BollingerStrategy) Prepare(candles []marketdata.Candle) {
	s.closes = closePrices(candles)
	s.upper, s.middle, s.lower = indicators.BollingerSeries(s.closes, s.Period, s.Mult)
}

func (s *BollingerStrategy) Warmup() int { return s.Period }

func (s *BollingerStrategy) Signal(i, entryIndex int) (Action, string) {
	if s.lower == nil || i >= len(s.lower) {
		return Hold, ""
	}

	price := s.closes[i]
	if entryIndex < 0 && s.lower[i] > 0 && price <= s.lower[i] {
		return Buy, "Price touched lower Bollinger Band"
	}
	if entryIndex >= 0 && price >= s.middle[i] {
		return Sell, "Price returned to middle band"
	}
	return Hold, ""
}

// SeasonalStrategy holds the historically strongest months. The best months
// are derived from the same series before the walk-through.
type SeasonalStrategy struct {
	TopMonths int

	candles    []marketdata.Candle
	bestMonths map[time.Month]bool
}

func (s *SeasonalStrategy) Name() string { return "seasonal" }

func (s *SeasonalStrategy) Prepare(candles []marketdata.Candle) {
	s.candles = candles
	s.bestMonths = bestMonths(candles, s.TopMonths)
}

func (s *SeasonalStrategy) Warmup() int { return 0 }

func (s *SeasonalStrategy) Signal(i, entryIndex int) (Action, string) {
	if i >= len(s.candles) {
		return Hold, ""
	}

	date := s.candles[i].Date
	month := date.Month()

	if entryIndex < 0 {
		// Enter within the first trading days of a strong month
		if s.bestMonths[month] && date.Day() <= 5 {
			return Buy, fmt.Sprintf("Start of %s (best month)", month)
		}
		return Hold, ""
	}

	entryMonth := s.candles[entryIndex].Date.Month()
	if month != entryMonth {
		return Sell, fmt.Sprintf("End of %s", entryMonth)
	}
	return Hold, ""
}

// bestMonths ranks calendar months by average month-over-month close return
// and keeps the top n.
func bestMonths(candles []marketdata.Candle, n int) map[time.Month]bool {
	type monthStat struct {
		month time.Month
		avg   float64
	}

	returnsByMonth := make(map[time.Month][]float64)
	var monthOpen float64
	var prevMonth time.Month

	for i, c := range candles {
		if i == 0 {
			monthOpen = c.Close
			prevMonth = c.Date.Month()
			continue
		}
		if c.Date.Month() != prevMonth {
			if monthOpen != 0 {
				ret := (candles[i-1].Close - monthOpen) / monthOpen * 100
				returnsByMonth[prevMonth] = append(returnsByMonth[prevMonth], ret)
			}
			monthOpen = c.Close
			prevMonth = c.Date.Month()
		}
	}

	stats := make([]monthStat, 0, len(returnsByMonth))
	for month, rets := range returnsByMonth {
		stats = append(stats, monthStat{month: month, avg: indicators.Mean(rets)})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].avg > stats[j].avg })

	best := make(map[time.Month]bool, n)
	for i := 0; i < len(stats) && i < n; i++ {
		best[stats[i].month] = true
	}
	return best
}

// MomentumStrategy buys a breakout above the lookback high and exits on a
// fixed percentage loss or a breakdown below the lookback low.
type MomentumStrategy struct {
	Lookback int
	StopPct  float64

	candles []marketdata.Candle
}

func (s *MomentumStrategy) Name() string { return "momentum" }

func (s *MomentumStrategy) Prepare(candles []marketdata.Candle) {
	s.candles = candles
}

func (s *MomentumStrategy) Warmup() int { return s.Lookback }

func (s *MomentumStrategy) Signal(i, entryIndex int) (Action, string) {
	if i >= len(s.candles) || i < s.Lookback {
		return Hold, ""
	}

	price := s.candles[i].Close
	prevHigh := highestHigh(s.candles, i, s.Lookback)
	prevLow := lowestLow(s.candles, i, s.Lookback)

	if entryIndex < 0 {
		if price > prevHigh {
			return Buy, fmt.Sprintf("%d-Day High Breakout", s.Lookback)
		}
		return Hold, ""
	}

	entryPrice := s.candles[entryIndex].Close
	if price < entryPrice*(1-s.StopPct) {
		return Sell, fmt.Sprintf("%.0f%% Stop Loss", s.StopPct*100)
	}
	if price < prevLow {
		return Sell, fmt.Sprintf("%d-Day Low Breakdown", s.Lookback)
	}
	return Hold, ""
}

func highestHigh(candles []marketdata.Candle, i, n int) float64 {
	max := candles[i-n].High
	for _, c := range candles[i-n : i] {
		if c.High > max {
			max = c.High
		}
	}
	return max
}

func lowestLow(candles []marketdata.Candle, i, n int) float64 {
	min := candles[i-n].Low
	for _, c := range candles[i-n : i] {
		if c.Low < min {
			min = c.Low
		}
	}
	return min
}

func closePrices(candles []marketdata.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
