package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"StatArb", "DualMomentum"}, cfg.EnabledStrategies())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10_000_000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, "data", cfg.Data.DataDir)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"backtest": {
			"initial_capital": 50000000,
			"commission_rate": 0.0002,
			"slippage_rate": 0.0005
		},
		"risk": {
			"max_position_pct": 20,
			"stop_loss_pct": 7,
			"daily_loss_limit_pct": 3,
			"max_drawdown_pct": 15,
			"max_positions": 8,
			"min_cash_pct": 5,
			"nominal_capital": 50000000,
			"strategy_allocation": {"StatArb": 0.6, "DualMomentum": 0.4}
		},
		"data": {"data_dir": "/var/data/kr", "min_lookback_bars": 40}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50_000_000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 20.0, cfg.Risk.MaxPositionPct)
	assert.Equal(t, 0.6, cfg.Risk.StrategyAllocation["StatArb"])
	assert.Equal(t, "/var/data/kr", cfg.Data.DataDir)
	assert.Equal(t, 40, cfg.Data.MinLookbackBars)

	// untouched sections keep their defaults
	assert.NotNil(t, cfg.Strategies.StatArb)
	assert.Equal(t, 2.0, cfg.Strategies.StatArb.EntryZ)
}

func TestLoadStrategySection(t *testing.T) {
	path := writeConfig(t, `{
		"strategies": {
			"stat_arb": {
				"lookback": 45,
				"entry_z": 2.5,
				"exit_z": 0.75,
				"stop_z": 4.0,
				"recalc_days": 10,
				"coint_pvalue": 0.1,
				"pairs": [
					{"name": "semis", "market": "KR", "stock_a": "000660", "stock_b": "005930", "hedge_etf": "114800"}
				]
			}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Strategies.StatArb)
	assert.Equal(t, 45, cfg.Strategies.StatArb.Lookback)
	assert.Equal(t, 2.5, cfg.Strategies.StatArb.EntryZ)
	require.Len(t, cfg.Strategies.StatArb.Pairs, 1)
	assert.Equal(t, "semis", cfg.Strategies.StatArb.Pairs[0].Name)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, `{
		"strategies": {
			"stat_arb": {
				"lookback": 30,
				"entry_z": 1.0,
				"exit_z": 2.0,
				"stop_z": 3.0,
				"recalc_days": 20,
				"coint_pvalue": 0.05,
				"pairs": [{"name": "p", "market": "KR", "stock_a": "a", "stock_b": "b", "hedge_etf": "h"}]
			}
		}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry_z must exceed exit_z")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"backtest": [}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ALGOTRADER_DATA_DIR", "/mnt/prices")
	t.Setenv("ALGOTRADER_INITIAL_CAPITAL", "25000000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/mnt/prices", cfg.Data.DataDir)
	assert.Equal(t, 25_000_000.0, cfg.Backtest.InitialCapital)
}
