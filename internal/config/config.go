package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/imacat/mia-accounting-django-sub000/internal/model"
)

// Config represents the top-level mia.yaml configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Accounting AccountingConfig `yaml:"accounting"`
	Reports    ReportsConfig    `yaml:"reports"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

// AccountingConfig names the designated accounts by code.
type AccountingConfig struct {
	CashAccount               string   `yaml:"cash_account"`
	AccumulatedBalanceAccount string   `yaml:"accumulated_balance_account"`
	NetChangeAccount          string   `yaml:"net_change_account"`
	PayableAccounts           []string `yaml:"payable_accounts,omitempty"`
	EquipmentAccounts         []string `yaml:"equipment_accounts,omitempty"`
}

// ReportsConfig controls report pagination.
type ReportsConfig struct {
	PageSize int `yaml:"page_size"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads a mia.yaml file from disk and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "mia.db",
		},
		Accounting: AccountingConfig{
			CashAccount:               "1111",
			AccumulatedBalanceAccount: "3351",
			NetChangeAccount:          "3353",
			PayableAccounts:           []string{"2141", "2142", "2143", "2144", "2145", "2146", "2147", "2148", "2149"},
			EquipmentAccounts:         []string{"1411", "1421", "1431", "1441", "1511", "1521", "1531", "1541"},
		},
		Reports: ReportsConfig{
			PageSize: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyEnv loads a .env file when present and overrides settings from
// MIA_* environment variables.
func ApplyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	if v := os.Getenv("MIA_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("MIA_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("MIA_CASH_ACCOUNT"); v != "" {
		cfg.Accounting.CashAccount = v
	}
	if v := os.Getenv("MIA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MIA_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing MIA_PAGE_SIZE %q: %w", v, err)
		}
		cfg.Reports.PageSize = n
	}
	return nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("invalid database driver %q: must be sqlite or postgres", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		problems = append(problems, "database dsn cannot be empty")
	}

	designated := map[string]string{
		"cash_account":                c.Accounting.CashAccount,
		"accumulated_balance_account": c.Accounting.AccumulatedBalanceAccount,
		"net_change_account":          c.Accounting.NetChangeAccount,
	}
	for _, key := range []string{"cash_account", "accumulated_balance_account", "net_change_account"} {
		if !model.ValidCode(designated[key]) {
			problems = append(problems, fmt.Sprintf("invalid %s %q", key, designated[key]))
		}
	}
	for _, code := range append(append([]string{}, c.Accounting.PayableAccounts...), c.Accounting.EquipmentAccounts...) {
		if !model.ValidCode(code) {
			problems = append(problems, fmt.Sprintf("invalid account code %q", code))
		}
	}

	if c.Reports.PageSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid page size %d: must be positive", c.Reports.PageSize))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
