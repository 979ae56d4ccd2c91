// Package config loads and validates the trader configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"cetrader/indicators"
	"cetrader/session"
	"cetrader/signal"
)

// Config is the complete trader configuration.
type Config struct {
	Scanner    ScannerConfig     `json:"scanner" yaml:"scanner"`
	Risk       RiskConfig        `json:"risk" yaml:"risk"`
	Session    SessionConfig     `json:"session" yaml:"session"`
	Polling    PollingConfig     `json:"polling" yaml:"polling"`
	Indicators indicators.Params `json:"indicators" yaml:"indicators"`
	Thresholds signal.Thresholds `json:"thresholds" yaml:"thresholds"`
	Journal    JournalConfig     `json:"journal" yaml:"journal"`
	Logging    LoggingConfig     `json:"logging" yaml:"logging"`
}

// ScannerConfig controls contract selection for the day.
type ScannerConfig struct {
	Underlying string  `json:"underlying" yaml:"underlying"`
	Exchange   string  `json:"exchange" yaml:"exchange"`
	OptionType string  `json:"option_type" yaml:"option_type"` // "CE" or "PE"
	StrikeStep float64 `json:"strike_step" yaml:"strike_step"`
	PremiumMin float64 `json:"premium_min" yaml:"premium_min"`
	PremiumMax float64 `json:"premium_max" yaml:"premium_max"`
}

// RiskConfig controls position sizing.
type RiskConfig struct {
	// Fraction of the available balance committed per trade.
	Fraction float64 `json:"fraction" yaml:"fraction"`
}

// SessionConfig maps market-hours boundaries from the config file.
type SessionConfig struct {
	MarketOpen        session.TimeOfDay `json:"market_open" yaml:"market_open"`
	WatchOnlyStart    session.TimeOfDay `json:"watch_only_start" yaml:"watch_only_start"`
	TradingStart      session.TimeOfDay `json:"trading_start" yaml:"trading_start"`
	MarketClose       session.TimeOfDay `json:"market_close" yaml:"market_close"`
	NoNewTradesBefore string            `json:"no_new_trades_before" yaml:"no_new_trades_before"`
}

// Hours converts the section into a session.Hours policy.
func (s SessionConfig) Hours() (session.Hours, error) {
	h := session.Hours{
		Location:       session.IST,
		MarketOpen:     s.MarketOpen,
		WatchOnlyStart: s.WatchOnlyStart,
		TradingStart:   s.TradingStart,
		MarketClose:    s.MarketClose,
	}
	if s.NoNewTradesBefore != "" {
		d, err := time.ParseDuration(s.NoNewTradesBefore)
		if err != nil {
			return session.Hours{}, fmt.Errorf("session.no_new_trades_before: %w", err)
		}
		h.NoNewTradesBefore = d
	}
	return h, h.Validate()
}

// PollingConfig controls the cadence of the trading loop.
type PollingConfig struct {
	ConfirmEvery string `json:"confirm_every" yaml:"confirm_every"`
	PrimaryEvery string `json:"primary_every" yaml:"primary_every"`
	Cooldown     string `json:"cooldown" yaml:"cooldown"`
	Lookback     int    `json:"lookback" yaml:"lookback"`
}

func parseCadence(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("polling.%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("polling.%s must be positive", name)
	}
	return d, nil
}

// ConfirmInterval returns the confirmation-series polling cadence.
func (p PollingConfig) ConfirmInterval() (time.Duration, error) {
	return parseCadence("confirm_every", p.ConfirmEvery, 5*time.Second)
}

// PrimaryInterval returns the primary-series polling cadence.
func (p PollingConfig) PrimaryInterval() (time.Duration, error) {
	return parseCadence("primary_every", p.PrimaryEvery, 10*time.Second)
}

// CooldownInterval returns the fixed pause after a zero-quantity sizing.
func (p PollingConfig) CooldownInterval() (time.Duration, error) {
	return parseCadence("cooldown", p.Cooldown, time.Minute)
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	CyclesFile string `json:"cycles_file,omitempty" yaml:"cycles_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file" yaml:"file"`
}

// LoadFromFile loads configuration from a file, YAML first with a JSON
// fallback, and validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	if err = yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if (len(path) > 5 && path[len(path)-5:] == ".yaml") || (len(path) > 4 && path[len(path)-4:] == ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Scanner.Underlying == "" {
		return fmt.Errorf("scanner.underlying is required")
	}
	if c.Scanner.OptionType != "CE" && c.Scanner.OptionType != "PE" {
		return fmt.Errorf("scanner.option_type must be 'CE' or 'PE'")
	}
	if c.Scanner.StrikeStep <= 0 {
		return fmt.Errorf("scanner.strike_step must be positive")
	}
	if c.Scanner.PremiumMin < 0 || c.Scanner.PremiumMax <= c.Scanner.PremiumMin {
		return fmt.Errorf("scanner premium band must satisfy 0 <= premium_min < premium_max")
	}
	if c.Risk.Fraction <= 0 || c.Risk.Fraction > 1 {
		return fmt.Errorf("risk.fraction must be between 0 and 1")
	}
	if _, err := c.Session.Hours(); err != nil {
		return err
	}
	if _, err := c.Polling.ConfirmInterval(); err != nil {
		return err
	}
	if _, err := c.Polling.PrimaryInterval(); err != nil {
		return err
	}
	if _, err := c.Polling.CooldownInterval(); err != nil {
		return err
	}
	if c.Polling.Lookback < 0 {
		return fmt.Errorf("polling.lookback must be non-negative")
	}
	if err := c.Indicators.Validate(); err != nil {
		return err
	}
	if c.Thresholds.StochMax <= 0 || c.Thresholds.StochMax > 100 {
		return fmt.Errorf("thresholds.stoch_max must be in (0, 100]")
	}
	if c.Thresholds.RSIMax <= 0 || c.Thresholds.RSIMax > 100 {
		return fmt.Errorf("thresholds.rsi_max must be in (0, 100]")
	}
	if c.Journal.Type != "csv" && c.Journal.Type != "sqlite" {
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "csv" && (c.Journal.TradesFile == "" || c.Journal.CyclesFile == "") {
		return fmt.Errorf("journal trades_file and cycles_file required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	hours := session.DefaultHours()
	return &Config{
		Scanner: ScannerConfig{
			Underlying: "NIFTY",
			Exchange:   "NFO",
			OptionType: "CE",
			StrikeStep: 50,
			PremiumMin: 50,
			PremiumMax: 150,
		},
		Risk: RiskConfig{
			Fraction: 0.90,
		},
		Session: SessionConfig{
			MarketOpen:        hours.MarketOpen,
			WatchOnlyStart:    hours.WatchOnlyStart,
			TradingStart:      hours.TradingStart,
			MarketClose:       hours.MarketClose,
			NoNewTradesBefore: "15m",
		},
		Polling: PollingConfig{
			ConfirmEvery: "5s",
			PrimaryEvery: "10s",
			Cooldown:     "1m",
			Lookback:     500,
		},
		Indicators: indicators.DefaultParams(),
		Thresholds: signal.DefaultThresholds(),
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			CyclesFile: "./cycles.csv",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "logs/cetrader.log",
		},
	}
}
