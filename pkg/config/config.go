// Package config loads and validates the trading system configuration from
// nested JSON files, with environment variable overrides for deploy-time
// settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/quantlab/algotrader-kr/internal/backtest"
	traderrors "github.com/quantlab/algotrader-kr/internal/errors"
	"github.com/quantlab/algotrader-kr/internal/risk"
	"github.com/quantlab/algotrader-kr/internal/strategy"
)

// DataConfig locates and filters the historical price data.
type DataConfig struct {
	DataDir         string `json:"data_dir"`
	MinLookbackBars int    `json:"min_lookback_bars"`
}

// StrategiesConfig enables and tunes the strategies. A nil section leaves
// that strategy disabled.
type StrategiesConfig struct {
	StatArb      *strategy.StatArbConfig      `json:"stat_arb,omitempty"`
	DualMomentum *strategy.DualMomentumConfig `json:"dual_momentum,omitempty"`
}

// Config is the full nested configuration.
type Config struct {
	Backtest   backtest.EngineConfig `json:"backtest"`
	Risk       risk.Config           `json:"risk"`
	Strategies StrategiesConfig      `json:"strategies"`
	Data       DataConfig            `json:"data"`
	StatePath  string                `json:"state_path"`
}

const defaultMinLookbackBars = 30

// DefaultConfig returns a runnable configuration with both strategies
// enabled at their defaults.
func DefaultConfig() *Config {
	statArb := strategy.DefaultStatArbConfig()
	dualMomentum := strategy.DefaultDualMomentumConfig()
	return &Config{
		Backtest: backtest.DefaultEngineConfig(),
		Risk:     risk.DefaultConfig(),
		Strategies: StrategiesConfig{
			StatArb:      &statArb,
			DualMomentum: &dualMomentum,
		},
		Data: DataConfig{
			DataDir:         "data",
			MinLookbackBars: defaultMinLookbackBars,
		},
		StatePath: "state/killswitch.json",
	}
}

// Load reads a nested JSON config file on top of the defaults, applies
// environment overrides, and validates the result. An empty path returns
// the validated defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, traderrors.Wrap(err, traderrors.ErrorCategoryConfiguration,
				"config", "load").WithContext("path", path)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, traderrors.Wrap(err, traderrors.ErrorCategoryConfiguration,
				"config", "load").WithContext("path", path)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides maps deploy-time environment variables onto the config.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ALGOTRADER_DATA_DIR"); v != "" {
		c.Data.DataDir = v
	}
	if v := os.Getenv("ALGOTRADER_STATE_PATH"); v != "" {
		c.StatePath = v
	}
	if v := os.Getenv("ALGOTRADER_INITIAL_CAPITAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Backtest.InitialCapital = f
		}
	}
}

// Validate checks every section; the first failure wins.
func (c *Config) Validate() error {
	if err := c.Backtest.Validate(); err != nil {
		return err
	}
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	if c.Strategies.StatArb == nil && c.Strategies.DualMomentum == nil {
		return traderrors.NewConfigurationError("config", "validate",
			"no strategies enabled")
	}
	if c.Strategies.StatArb != nil {
		if err := c.Strategies.StatArb.Validate(); err != nil {
			return err
		}
	}
	if c.Strategies.DualMomentum != nil {
		if err := c.Strategies.DualMomentum.Validate(); err != nil {
			return err
		}
	}
	if c.Data.DataDir == "" {
		return traderrors.NewConfigurationError("config", "validate",
			"data_dir must not be empty")
	}
	if c.Data.MinLookbackBars < 0 {
		return traderrors.NewConfigurationError("config", "validate",
			fmt.Sprintf("min_lookback_bars must not be negative, got %d", c.Data.MinLookbackBars))
	}
	if c.StatePath == "" {
		return traderrors.NewConfigurationError("config", "validate",
			"state_path must not be empty")
	}
	return nil
}

// EnabledStrategies lists the names of the configured strategies.
func (c *Config) EnabledStrategies() []string {
	var names []string
	if c.Strategies.StatArb != nil {
		names = append(names, strategy.StatArbName)
	}
	if c.Strategies.DualMomentum != nil {
		names = append(names, strategy.DualMomentumName)
	}
	return names
}
