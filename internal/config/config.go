package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FeedConfig describes one iCalendar subscription.
type FeedConfig struct {
	// URL is the ICS endpoint.
	URL string `yaml:"url"`
}

// OracleConfig configures the classification oracle.
type OracleConfig struct {
	// Model is the Anthropic model identifier.
	Model string `yaml:"model"`
	// APIKey may be left empty in the file and supplied via the
	// ANTHROPIC_API_KEY environment variable instead.
	APIKey string `yaml:"api_key"`
	// TimeoutSeconds bounds a single oracle call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA timezone used to anchor "today" when deriving
	// the report range (e.g. "America/New_York").
	Timezone string `yaml:"timezone"`

	// DefaultMonths is the report span used when no months argument is
	// given on the command line.
	DefaultMonths int `yaml:"default_months"`

	// EmployeesPath points at the hierarchical employee JSON file.
	EmployeesPath string `yaml:"employees_path"`

	// HolidayRulesPath points at the YAML holiday rule table.
	HolidayRulesPath string `yaml:"holiday_rules_path"`

	// OutputDir is where generated spreadsheets are written.
	OutputDir string `yaml:"output_dir"`

	// RefreshCron is the cron schedule used in watch mode
	// (e.g. "0 7 * * 1-5").
	RefreshCron string `yaml:"refresh"`

	// PTOFeed and TravelFeed are the two calendar subscriptions.
	PTOFeed    FeedConfig `yaml:"pto_feed"`
	TravelFeed FeedConfig `yaml:"travel_feed"`

	// TrustAnchorCert is an optional PEM file appended to the TLS root
	// pool, for environments that re-sign outbound TLS.
	TrustAnchorCert string `yaml:"trust_anchor_cert"`

	// FetchAttempts and FetchTimeoutSeconds bound a single feed fetch.
	FetchAttempts       int `yaml:"fetch_attempts"`
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`

	Oracle OracleConfig `yaml:"oracle"`

	// HolidayScopeKeywords narrows oracle-tagged holidays to one location
	// when the event title contains the keyword (lower-cased substring
	// match). A holiday title matching no keyword applies to everyone.
	HolidayScopeKeywords map[string]string `yaml:"holiday_scope_keywords"`

	// CellColors overrides the fill colors used by the renderer, keyed by
	// assignment type name (PTO, TRAVEL, HOLIDAY), values as RRGGBB hex.
	CellColors map[string]string `yaml:"cell_colors"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:            "UTC",
		DefaultMonths:       6,
		EmployeesPath:       "employees.json",
		HolidayRulesPath:    "holidays.yaml",
		OutputDir:           ".",
		RefreshCron:         "0 7 * * 1",
		FetchAttempts:       3,
		FetchTimeoutSeconds: 30,
		Oracle: OracleConfig{
			Model:          "claude-sonnet-4-5-20250929",
			TimeoutSeconds: 120,
		},
		HolidayScopeKeywords: map[string]string{
			"us":     "US",
			"france": "France",
		},
	}
}

// Normalize fills missing or zero values with defaults so partially-filled
// configs still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.DefaultMonths <= 0 {
		c.DefaultMonths = def.DefaultMonths
	}
	if c.EmployeesPath == "" {
		c.EmployeesPath = def.EmployeesPath
	}
	if c.HolidayRulesPath == "" {
		c.HolidayRulesPath = def.HolidayRulesPath
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.FetchAttempts <= 0 {
		c.FetchAttempts = def.FetchAttempts
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = def.FetchTimeoutSeconds
	}
	if c.Oracle.Model == "" {
		c.Oracle.Model = def.Oracle.Model
	}
	if c.Oracle.TimeoutSeconds <= 0 {
		c.Oracle.TimeoutSeconds = def.Oracle.TimeoutSeconds
	}
	if c.Oracle.APIKey == "" {
		c.Oracle.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.HolidayScopeKeywords == nil {
		c.HolidayScopeKeywords = def.HolidayScopeKeywords
	}
}

// Load reads configuration from the given YAML path. If the file does not
// exist, a default config is written there (0600) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".teamcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
