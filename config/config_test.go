package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into a fresh directory so the default config file is absent.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func validConfig() *Config {
	cfg := Default()
	cfg.Storage.Path = "/var/lib/bkcl"
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	dir := chdir(t)

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "plain", cfg.Auth.PasswordScheme)
	assert.Equal(t, 5, cfg.Policy.MaxActiveLoans)
	assert.Equal(t, 14, cfg.Policy.LoanPeriodDays)

	want, err := filepath.Abs(filepath.Join(dir, "data"))
	require.NoError(t, err)
	assert.Equal(t, want, cfg.Storage.Path)
}

func TestLoad_Precedence(t *testing.T) {
	dir := chdir(t)
	yamlBody := `
app:
  environment: staging
logger:
  level: debug
storage:
  backend: sqlite
  path: /srv/library
policy:
  max_active_loans: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(yamlBody), 0o644))
	t.Setenv("BKCL_LOG_LEVEL", "warn")
	t.Setenv("BKCL_STORAGE_BACKEND", "badger")
	t.Setenv("BKCL_LOAN_PERIOD_DAYS", "21")

	cfg, err := Load(Overrides{Backend: "file"})
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "/srv/library", cfg.Storage.Path)
	assert.Equal(t, 3, cfg.Policy.MaxActiveLoans)
	assert.Equal(t, 21, cfg.Policy.LoanPeriodDays)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	chdir(t)
	_, err := Load(Overrides{File: "missing.yaml"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_BadYAML(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("app: [unclosed"), 0o644))
	_, err := Load(Overrides{})
	assert.ErrorContains(t, err, "parse config")
}

func TestLoad_BadEnvInt(t *testing.T) {
	chdir(t)
	t.Setenv("BKCL_MAX_ACTIVE_LOANS", "five")
	_, err := Load(Overrides{})
	assert.ErrorContains(t, err, "BKCL_MAX_ACTIVE_LOANS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"production", func(c *Config) { c.App.Environment = "production" }, true},
		{"environment is case sensitive", func(c *Config) { c.App.Environment = "DEVELOPMENT" }, false},
		{"unknown level", func(c *Config) { c.Logger.Level = "verbose" }, false},
		{"level any case", func(c *Config) { c.Logger.Level = "DEBUG" }, true},
		{"json format", func(c *Config) { c.Logger.Format = "json" }, true},
		{"unknown format", func(c *Config) { c.Logger.Format = "xml" }, false},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "postgres" }, false},
		{"empty path", func(c *Config) { c.Storage.Path = "" }, false},
		{"bcrypt", func(c *Config) { c.Auth.PasswordScheme = "bcrypt" }, true},
		{"bcrypt cost out of range", func(c *Config) { c.Auth.PasswordScheme = "bcrypt"; c.Auth.BcryptCost = 64 }, false},
		{"unknown scheme", func(c *Config) { c.Auth.PasswordScheme = "sha1" }, false},
		{"zero loans", func(c *Config) { c.Policy.MaxActiveLoans = 0 }, false},
		{"negative period", func(c *Config) { c.Policy.LoanPeriodDays = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestStorageLocation(t *testing.T) {
	assert.Equal(t, "/d", StorageConfig{Backend: "file", Path: "/d"}.Location())
	assert.Equal(t, "/d", StorageConfig{Backend: "badger", Path: "/d"}.Location())
	assert.Equal(t, filepath.Join("/d", "library.db"), StorageConfig{Backend: "sqlite", Path: "/d"}.Location())
}

func TestLibraryPolicy(t *testing.T) {
	p := PolicyConfig{MaxActiveLoans: 2, LoanPeriodDays: 7}.LibraryPolicy()
	assert.Equal(t, 2, p.MaxActiveLoans)
	assert.Equal(t, 7*24*time.Hour, p.LoanPeriod)
}
