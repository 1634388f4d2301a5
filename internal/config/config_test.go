package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DIVTRACK_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8010, cfg.Port)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, 500*time.Millisecond, cfg.RequestDelay)
	assert.Equal(t, DefaultCosts(), cfg.Costs)
	assert.True(t, filepath.IsAbs(cfg.DataDir))

	// The data directory is created on load.
	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DIVTRACK_DATA_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DIVTRACK_PORT", "9001")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("REQUEST_DELAY_MS", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9001, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 50*time.Millisecond, cfg.RequestDelay)
}

func TestLoad_InvalidPortFails(t *testing.T) {
	t.Setenv("DIVTRACK_DATA_DIR", t.TempDir())
	t.Setenv("DIVTRACK_PORT", "99999")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestLoad_CostsFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	costsPath := filepath.Join(dir, "costs.yaml")
	require.NoError(t, os.WriteFile(costsPath, []byte(
		"costs:\n  commission: 1.25\n  margin_rate: 0.10\n"), 0o644))

	t.Setenv("DIVTRACK_DATA_DIR", dir)
	t.Setenv("DIVTRACK_COSTS_FILE", costsPath)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1.25, cfg.Costs.Commission)
	assert.Equal(t, 0.10, cfg.Costs.MarginRate)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, DefaultCosts().ExchangeFee, cfg.Costs.ExchangeFee)
}

func TestLoad_MissingCostsFileFails(t *testing.T) {
	t.Setenv("DIVTRACK_DATA_DIR", t.TempDir())
	t.Setenv("DIVTRACK_COSTS_FILE", "/nonexistent/costs.yaml")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "costs file")
}

func TestDatabaseAndCachePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DIVTRACK_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.DataDir, "stocks.db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join(cfg.DataDir, "cache"), cfg.CacheDir())
}
