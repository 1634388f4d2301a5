package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopLossPrice_Percentage(t *testing.T) {
	// 10% below a 100 entry for a long position
	stop := StopLossPrice(100, StopPercentage, 10, nil, nil, Long)
	require.NotNil(t, stop)
	assert.InDelta(t, 90.0, *stop, 1e-9)

	stop = StopLossPrice(100, StopPercentage, 10, nil, nil, Short)
	require.NotNil(t, stop)
	assert.InDelta(t, 110.0, *stop, 1e-9)
}

func TestStopLossPrice_ATR(t *testing.T) {
	atr := 5.0

	stop := StopLossPrice(100, StopATR, 2.0, &atr, nil, Long)
	require.NotNil(t, stop)
	assert.InDelta(t, 90.0, *stop, 1e-9)

	stop = StopLossPrice(100, StopATR, 2.0, &atr, nil, Short)
	require.NotNil(t, stop)
	assert.InDelta(t, 110.0, *stop, 1e-9)

	// No ATR available
	assert.Nil(t, StopLossPrice(100, StopATR, 2.0, nil, nil, Long))
}

func TestStopLossPrice_Volatility(t *testing.T) {
	vol := 25.0 // percent, annualized

	stop := StopLossPrice(100, StopVolatility, 2.0, nil, &vol, Long)
	require.NotNil(t, stop)
	// entry - entry x (value x vol / 100 / 100)
	assert.InDelta(t, 100-100*(2.0*25.0/100/100), *stop, 1e-9)

	assert.Nil(t, StopLossPrice(100, StopVolatility, 2.0, nil, nil, Long))
}

func TestStopLossPrice_Fixed(t *testing.T) {
	stop := StopLossPrice(100, StopFixed, 7.5, nil, nil, Long)
	require.NotNil(t, stop)
	assert.InDelta(t, 92.5, *stop, 1e-9)

	stop = StopLossPrice(100, StopFixed, 7.5, nil, nil, Short)
	require.NotNil(t, stop)
	assert.InDelta(t, 107.5, *stop, 1e-9)
}

func TestStopLossPrice_None(t *testing.T) {
	assert.Nil(t, StopLossPrice(100, StopNone, 10, nil, nil, Long))
}

func TestParseStopLossMethod(t *testing.T) {
	for _, valid := range []string{"atr", "percentage", "volatility", "fixed", "none"} {
		method, err := ParseStopLossMethod(valid)
		require.NoError(t, err)
		assert.Equal(t, StopLossMethod(valid), method)
	}

	_, err := ParseStopLossMethod("trailing")
	require.Error(t, err)
}
