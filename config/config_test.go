package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/marginsim/market"
	"github.com/rustyeddy/marginsim/sim"
	"github.com/rustyeddy/marginsim/strategies"
)

func fptr(v float64) *float64 { return &v }

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "reg_t", cfg.Account.Type)
	assert.Equal(t, 10_000.0, cfg.Account.Capital)
	assert.Equal(t, 2, cfg.Simulation.WaitDays)
	assert.Equal(t, "none", cfg.Journal.Type)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"missing account type", func(c *Config) { c.Account.Type = "" }, "account.type is required"},
		{"unknown account type", func(c *Config) { c.Account.Type = "cash" }, "account.type"},
		{"leverage above account", func(c *Config) { c.Account.Leverage = 3 }, "invalid parameter leverage"},
		{"portfolio margin allows 5x", func(c *Config) {
			c.Account.Type, c.Account.Leverage = "portfolio", 5
		}, ""},
		{"negative capital", func(c *Config) { c.Account.Capital = -1 }, "invalid parameter capital"},
		{"bad maintenance override", func(c *Config) { c.Account.Maintenance = fptr(0) }, "maintenance_margin"},
		{"bad spread override", func(c *Config) { c.Account.Spread = fptr(-0.5) }, "borrow_spread"},
		{"bad date", func(c *Config) { c.Simulation.Start = "01/02/2020" }, "simulation.start"},
		{"start after end", func(c *Config) {
			c.Simulation.Start, c.Simulation.End = "2021-01-01", "2020-01-01"
		}, "start_date"},
		{"unknown mode", func(c *Config) { c.Simulation.Mode = "yolo" }, "simulation.mode"},
		{"unknown basis", func(c *Config) { c.Simulation.FreshBasis = "loan" }, "simulation.fresh_basis"},
		{"negative wait", func(c *Config) { c.Simulation.WaitDays = -1 }, "wait_days"},
		{"csv without dir", func(c *Config) { c.Journal.Type = "csv" }, "journal.dir required"},
		{"sqlite without path", func(c *Config) { c.Journal.Type = "sqlite" }, "journal.db_path required"},
		{"unknown journal", func(c *Config) { c.Journal.Type = "excel" }, "journal.type must be"},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"unknown sweep parameter", func(c *Config) { c.Sweep.Parameter = "spread" }, "sweep.parameter"},
		{"negative workers", func(c *Config) { c.Sweep.Workers = -2 }, "sweep.workers"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRequest(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Account.Type = "pm"
	cfg.Account.Leverage = 4
	cfg.Account.Maintenance = fptr(0.2)
	cfg.Simulation.Start = "2020-01-02"
	cfg.Simulation.End = "2020-12-31"
	cfg.Simulation.Mode = "fresh-capital"
	cfg.Simulation.FreshBasis = "cash_per_round"
	cfg.Simulation.WaitDays = 0

	req, err := cfg.Request()
	require.NoError(t, err)
	assert.Equal(t, market.PortfolioMargin, req.Account)
	assert.Equal(t, 4.0, req.Leverage)
	assert.Equal(t, 0.2, *req.Maintenance)
	assert.Nil(t, req.Spread)
	assert.Equal(t, "2020-01-02", req.Start.Format(market.DateLayout))
	assert.Equal(t, "2020-12-31", req.End.Format(market.DateLayout))
	assert.Equal(t, strategies.ModeFreshCapital, req.Mode)
	assert.Equal(t, sim.BasisCashPerRound, req.FreshBasis)
	assert.Zero(t, req.WaitDays)
	assert.NoError(t, req.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
		{"yml format", ".yml"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			cfg.Account.Spread = fptr(0.75)
			cfg.Journal = JournalConfig{Type: "sqlite", DBPath: "./runs.db", OrgPath: "./run.org"}
			path := filepath.Join(t.TempDir(), "marginsim"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "partial.yaml")
	body := `
account:
  type: portfolio
  leverage: 3
simulation:
  mode: profit_threshold
  profit_threshold_pct: 50
  wait_days: 0
sweep:
  values: [25, 50, 75]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "portfolio", cfg.Account.Type)
	assert.Equal(t, 3.0, cfg.Account.Leverage)
	assert.Equal(t, 10_000.0, cfg.Account.Capital)
	assert.Equal(t, 0, cfg.Simulation.WaitDays)
	assert.Equal(t, sim.DefaultMinReentryEquity, cfg.Simulation.MinReentryEquity)
	assert.Equal(t, []float64{25, 50, 75}, cfg.Sweep.Values)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("account:\n  leverage: 9\n"), 0o644))
	_, err := LoadFromFile(bad)
	require.Error(t, err)
	var ipe *market.InvalidParameterError
	assert.True(t, errors.As(err, &ipe))

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not: [valid"), 0o644))
	_, err = LoadFromFile(garbage)
	assert.Error(t, err)

	_, err = LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)
}
