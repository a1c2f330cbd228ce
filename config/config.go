// Package config loads CLI configuration from, in increasing priority,
// built-in defaults, a YAML file, BKCL_* environment variables and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"community-library/library"
	"community-library/storage"
)

// DefaultFile is read when no config file is named explicitly. It is
// optional.
const DefaultFile = "bkcl.yaml"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BKCL_"

// SQLiteFile is the database file name inside the data path.
const SQLiteFile = "library.db"

// Config holds the application configuration.
type Config struct {
	App     AppConfig     `yaml:"app"`
	Logger  LoggerConfig  `yaml:"logger"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Policy  PolicyConfig  `yaml:"policy"`
}

type AppConfig struct {
	Environment string `yaml:"environment"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "", pretty or json
}

// StorageConfig selects the backend. Path is a directory for every kind;
// the SQLite database lives in Path/library.db.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// AuthConfig selects how new passwords are stored. Plain keeps the users
// file readable by older installs.
type AuthConfig struct {
	PasswordScheme string `yaml:"password_scheme"`
	BcryptCost     int    `yaml:"bcrypt_cost"`
}

type PolicyConfig struct {
	MaxActiveLoans int `yaml:"max_active_loans"`
	LoanPeriodDays int `yaml:"loan_period_days"`
}

// Overrides carries command-line flag values; empty fields are unset.
type Overrides struct {
	File           string
	Environment    string
	LogLevel       string
	LogFormat      string
	Backend        string
	DataPath       string
	PasswordScheme string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{Backend: storage.KindFile, Path: "./data"},
		Auth:    AuthConfig{PasswordScheme: library.SchemePlain},
		Policy: PolicyConfig{
			MaxActiveLoans: library.MaxActiveLoans,
			LoanPeriodDays: library.LoanPeriodDays,
		},
	}
}

// Load builds the configuration with precedence flags > env > file >
// defaults, then validates it. A missing default file is ignored; a missing
// file named in o.File or BKCL_CONFIG is an error.
func Load(o Overrides) (*Config, error) {
	cfg := Default()

	path, explicit := DefaultFile, false
	if v := firstNonEmpty(o.File, os.Getenv(EnvPrefix+"CONFIG")); v != "" {
		path, explicit = v, true
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyOverrides(o)

	if err := cfg.expandPath(); err != nil {
		return nil, fmt.Errorf("invalid storage path: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.App.Environment, "ENV")
	setString(&c.Logger.Level, "LOG_LEVEL")
	setString(&c.Logger.Format, "LOG_FORMAT")
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.Path, "DATA_PATH")
	setString(&c.Auth.PasswordScheme, "PASSWORD_SCHEME")

	for key, dst := range map[string]*int{
		"BCRYPT_COST":      &c.Auth.BcryptCost,
		"MAX_ACTIVE_LOANS": &c.Policy.MaxActiveLoans,
		"LOAN_PERIOD_DAYS": &c.Policy.LoanPeriodDays,
	} {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, key, v, err)
		}
		*dst = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func (c *Config) applyOverrides(o Overrides) {
	c.App.Environment = firstNonEmpty(o.Environment, c.App.Environment)
	c.Logger.Level = firstNonEmpty(o.LogLevel, c.Logger.Level)
	c.Logger.Format = firstNonEmpty(o.LogFormat, c.Logger.Format)
	c.Storage.Backend = firstNonEmpty(o.Backend, c.Storage.Backend)
	c.Storage.Path = firstNonEmpty(o.DataPath, c.Storage.Path)
	c.Auth.PasswordScheme = firstNonEmpty(o.PasswordScheme, c.Auth.PasswordScheme)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// expandPath expands ~ and makes the storage path absolute.
func (c *Config) expandPath() error {
	p := c.Storage.Path
	if p == "" {
		return nil
	}
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		p = filepath.Join(home, p[2:])
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	c.Storage.Path = abs
	return nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	if !slices.Contains(validEnvs, c.App.Environment) {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}
	if !slices.Contains([]string{"", "pretty", "json"}, c.Logger.Format) {
		return fmt.Errorf("invalid log format: %q (must be pretty or json)", c.Logger.Format)
	}
	if !slices.Contains(storage.Kinds, c.Storage.Backend) {
		return fmt.Errorf("invalid storage backend: %q (must be one of %v)", c.Storage.Backend, storage.Kinds)
	}
	if c.Storage.Path == "" {
		return errors.New("storage path cannot be empty")
	}
	if _, err := library.CredentialsFor(c.Auth.PasswordScheme, c.Auth.BcryptCost); err != nil {
		return err
	}
	if c.Policy.MaxActiveLoans <= 0 {
		return fmt.Errorf("max active loans must be positive, got %d", c.Policy.MaxActiveLoans)
	}
	if c.Policy.LoanPeriodDays <= 0 {
		return fmt.Errorf("loan period must be positive, got %d days", c.Policy.LoanPeriodDays)
	}
	return nil
}

// Location is the path handed to storage.Open.
func (s StorageConfig) Location() string {
	if s.Backend == storage.KindSQLite {
		return filepath.Join(s.Path, SQLiteFile)
	}
	return s.Path
}

// LibraryPolicy converts the policy settings.
func (p PolicyConfig) LibraryPolicy() library.Policy {
	return library.Policy{
		MaxActiveLoans: p.MaxActiveLoans,
		LoanPeriod:     time.Duration(p.LoanPeriodDays) * 24 * time.Hour,
	}
}
