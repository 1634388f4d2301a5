package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divtrack/internal/backtest"
)

func TestSymbolArgs_UppercasesAndDeduplicates(t *testing.T) {
	got := symbolArgs([]string{"ko", "KO,pep", " jnj ", ""})
	assert.Equal(t, []string{"KO", "PEP", "JNJ"}, got)
}

func TestSymbolArgs_Empty(t *testing.T) {
	assert.Empty(t, symbolArgs(nil))
	assert.Empty(t, symbolArgs([]string{"", " , "}))
}

func TestRootCmd_RegistersAllSubcommands(t *testing.T) {
	root := newRootCmd()

	want := []string{
		"migrate", "clear-data", "update", "import", "dividends", "safety",
		"backtest", "multistrategy", "plan", "correlate", "pairs",
		"valuation", "growth", "seasonal", "sp500-compare", "fetch",
		"serve", "schedule", "backup",
	}
	have := make(map[string]bool)
	for _, cmd := range root.Commands() {
		have[cmd.Name()] = true
	}
	for _, name := range want {
		assert.True(t, have[name], "missing subcommand %s", name)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	root := newRootCmd()

	require.NotNil(t, root.PersistentFlags().Lookup("json"))
	require.NotNil(t, root.PersistentFlags().Lookup("no-cache"))
}

func TestRootCmd_UsageExampleNamesRegisteredStrategy(t *testing.T) {
	root := newRootCmd()

	// The backtest example in the long help must use a real strategy key.
	assert.Contains(t, root.Long, "--strategy sma")
	_, err := backtest.NewStrategy("sma")
	require.NoError(t, err)
}

func TestFmtFloatPtr(t *testing.T) {
	v := 3.14159
	assert.Equal(t, "3.14", fmtFloatPtr(&v))
	assert.Equal(t, "-", fmtFloatPtr(nil))
}

func TestClearData_RequiresForce(t *testing.T) {
	cmd := newClearDataCmd()
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
}
