package marketdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_RoundTrip(t *testing.T) {
	cache, err := NewCache(t.TempDir(), time.Hour, zerolog.Nop())
	require.NoError(t, err)

	in := []Candle{
		{Date: time.Unix(1700000000, 0).UTC(), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100, AdjClose: 10.5},
	}
	cache.Put("test-key", in)

	var out []Candle
	require.True(t, cache.Get("test-key", &out))
	require.Len(t, out, 1)
	assert.Equal(t, in[0].Close, out[0].Close)
	assert.True(t, in[0].Date.Equal(out[0].Date))
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	cache, err := NewCache(t.TempDir(), time.Hour, zerolog.Nop())
	require.NoError(t, err)

	var out []Candle
	assert.False(t, cache.Get("never-stored", &out))
}

func TestCache_ExpiredEntryIsDiscarded(t *testing.T) {
	cache, err := NewCache(t.TempDir(), time.Nanosecond, zerolog.Nop())
	require.NoError(t, err)

	cache.Put("short-lived", []Candle{{Close: 1}})
	time.Sleep(10 * time.Millisecond)

	var out []Candle
	assert.False(t, cache.Get("short-lived", &out))
}

func TestCache_Clear(t *testing.T) {
	cache, err := NewCache(t.TempDir(), time.Hour, zerolog.Nop())
	require.NoError(t, err)

	cache.Put("a", []Candle{{Close: 1}})
	cache.Put("b", []Candle{{Close: 2}})

	require.NoError(t, cache.Clear())

	var out []Candle
	assert.False(t, cache.Get("a", &out))
	assert.False(t, cache.Get("b", &out))
}
