package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/marginsim/backtest"
	"github.com/rustyeddy/marginsim/logging"
	"github.com/rustyeddy/marginsim/market"
	"github.com/rustyeddy/marginsim/sim"
	"github.com/rustyeddy/marginsim/strategies"
	"github.com/rustyeddy/marginsim/sweep"
)

// Config represents the complete simulator configuration
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Log        LogConfig        `json:"log" yaml:"log"`
	Sweep      SweepConfig      `json:"sweep" yaml:"sweep"`
}

// AccountConfig describes the margin account. Maintenance and Spread
// override the account type's defaults when set.
type AccountConfig struct {
	Type        string   `json:"type" yaml:"type"` // "reg_t" or "portfolio"
	Capital     float64  `json:"capital" yaml:"capital"`
	Leverage    float64  `json:"leverage" yaml:"leverage"`
	Maintenance *float64 `json:"maintenance,omitempty" yaml:"maintenance,omitempty"` // fraction, e.g. 0.30
	Spread      *float64 `json:"spread,omitempty" yaml:"spread,omitempty"`           // annual %, e.g. 1.5
}

// SimulationConfig contains simulation parameters
type SimulationConfig struct {
	Data               string  `json:"data" yaml:"data"`                       // daily CSV
	Start              string  `json:"start,omitempty" yaml:"start,omitempty"` // YYYY-MM-DD
	End                string  `json:"end,omitempty" yaml:"end,omitempty"`
	Mode               string  `json:"mode" yaml:"mode"`
	WaitDays           int     `json:"wait_days" yaml:"wait_days"`
	MinReentryEquity   float64 `json:"min_reentry_equity" yaml:"min_reentry_equity"`
	FreshBasis         string  `json:"fresh_basis" yaml:"fresh_basis"`
	ProfitThresholdPct float64 `json:"profit_threshold_pct" yaml:"profit_threshold_pct"`
	TransactionCostBps float64 `json:"transaction_cost_bps" yaml:"transaction_cost_bps"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type    string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	Dir     string `json:"dir,omitempty" yaml:"dir,omitempty"`
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrgPath string `json:"org_path,omitempty" yaml:"org_path,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// SweepConfig drives `marginsim sweep`.
type SweepConfig struct {
	Parameter   string    `json:"parameter" yaml:"parameter"`
	Values      []float64 `json:"values" yaml:"values"`
	Workers     int       `json:"workers" yaml:"workers"`
	CacheSize   int       `json:"cache_size" yaml:"cache_size"`
	MetricsFile string    `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"`
}

// LoadFromFile loads configuration from a YAML or JSON file. Keys the
// file leaves out keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration as YAML for .yaml/.yml paths, JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the file-level settings, then resolves the simulation
// request so that bad leverage, dates or modes fail here.
func (c *Config) Validate() error {
	if c.Account.Type == "" {
		return fmt.Errorf("account.type is required")
	}
	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal.dir required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Sweep.Parameter != "" {
		if _, err := sweep.ParseParameter(c.Sweep.Parameter); err != nil {
			return fmt.Errorf("sweep.parameter: %w", err)
		}
	}
	if c.Sweep.Workers < 0 {
		return fmt.Errorf("sweep.workers must not be negative")
	}
	if c.Sweep.CacheSize < 0 {
		return fmt.Errorf("sweep.cache_size must not be negative")
	}

	req, err := c.Request()
	if err != nil {
		return err
	}
	return req.Validate()
}

// Request converts the account and simulation sections into a request.
func (c *Config) Request() (backtest.Request, error) {
	acct, err := market.ParseAccountType(c.Account.Type)
	if err != nil {
		return backtest.Request{}, fmt.Errorf("account.type: %w", err)
	}
	start, err := parseDate("simulation.start", c.Simulation.Start)
	if err != nil {
		return backtest.Request{}, err
	}
	end, err := parseDate("simulation.end", c.Simulation.End)
	if err != nil {
		return backtest.Request{}, err
	}
	mode, err := strategies.ParseMode(c.Simulation.Mode)
	if err != nil {
		return backtest.Request{}, fmt.Errorf("simulation.mode: %w", err)
	}
	basis, err := sim.ParseFreshBasis(c.Simulation.FreshBasis)
	if err != nil {
		return backtest.Request{}, fmt.Errorf("simulation.fresh_basis: %w", err)
	}

	return backtest.Request{
		Account:            acct,
		Capital:            c.Account.Capital,
		Leverage:           c.Account.Leverage,
		Maintenance:        c.Account.Maintenance,
		Spread:             c.Account.Spread,
		Start:              start,
		End:                end,
		Mode:               mode,
		WaitDays:           c.Simulation.WaitDays,
		MinReentryEquity:   c.Simulation.MinReentryEquity,
		FreshBasis:         basis,
		ProfitThresholdPct: c.Simulation.ProfitThresholdPct,
		TransactionCostBps: c.Simulation.TransactionCostBps,
	}, nil
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(market.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: want YYYY-MM-DD, got %q", field, s)
	}
	return t, nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Type:     string(market.RegT),
			Capital:  10_000,
			Leverage: 2.0,
		},
		Simulation: SimulationConfig{
			Data:               "./data/daily.csv",
			Mode:               string(strategies.ModeReentry),
			WaitDays:           sim.DefaultWaitDays,
			MinReentryEquity:   sim.DefaultMinReentryEquity,
			FreshBasis:         string(sim.BasisRequested),
			ProfitThresholdPct: 100,
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Log: LogConfig{
			Level: "info",
		},
		Sweep: SweepConfig{
			Parameter: string(sweep.Leverage),
			Values:    []float64{1.0, 1.25, 1.5, 1.75, 2.0},
			CacheSize: 256,
		},
	}
}
