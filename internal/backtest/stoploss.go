package backtest

import "fmt"

// StopLossMethod selects how the stop distance is derived.
type StopLossMethod string

const (
	StopATR        StopLossMethod = "atr"
	StopPercentage StopLossMethod = "percentage"
	StopVolatility StopLossMethod = "volatility"
	StopFixed      StopLossMethod = "fixed"
	StopNone       StopLossMethod = "none"
)

// Direction is the side of an open position.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// ParseStopLossMethod validates a user-supplied method name.
func ParseStopLossMethod(s string) (StopLossMethod, error) {
	switch StopLossMethod(s) {
	case StopATR, StopPercentage, StopVolatility, StopFixed, StopNone:
		return StopLossMethod(s), nil
	default:
		return "", fmt.Errorf("invalid stop-loss method %q (must be atr, percentage, volatility, fixed or none)", s)
	}
}

// StopLossPrice derives the stop price for an entry.
//
//	atr:        entry -/+ value × ATR
//	percentage: entry × (1 -/+ value/100)
//	volatility: entry -/+ entry × (value × volatility / 100 / 100)
//	fixed:      entry -/+ value
//
// Long positions stop below the entry, short positions above. Returns nil
// when the method needs an indicator that is unavailable.
func StopLossPrice(entry float64, method StopLossMethod, value float64, atr, volatility *float64, direction Direction) *float64 {
	var distance float64

	switch method {
	case StopATR:
		if atr == nil {
			return nil
		}
		distance = value * *atr

	case StopPercentage:
		distance = entry * (value / 100)

	case StopVolatility:
		if volatility == nil {
			return nil
		}
		distance = entry * (value * *volatility / 100 / 100)

	case StopFixed:
		distance = value

	default:
		return nil
	}

	var stop float64
	if direction == Short {
		stop = entry + distance
	} else {
		stop = entry - distance
	}
	return &stop
}
