// Package config loads brokerdesk configuration from a YAML file, the process
// environment and command-line flags, and resolves provider credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the Alpaca paper-trading endpoint used when no base URL
// is configured.
const DefaultBaseURL = "https://paper-api.alpaca.markets"

// Environment variable names. The APCA_* names are the canonical ones used by
// the Alpaca SDK and take priority over the short names.
const (
	EnvKeyID          = "API_KEY_ID"
	EnvSecretKey      = "API_SECRET_KEY"
	EnvBaseURL        = "API_BASE_URL"
	EnvAlpacaKeyID    = "APCA_API_KEY_ID"
	EnvAlpacaSecret   = "APCA_API_SECRET_KEY"
	EnvAlpacaBaseURL  = "APCA_API_BASE_URL"
	EnvLogLevel       = "LOG_LEVEL"
	EnvConfigPath     = "BROKERDESK_CONFIG"
	EnvProviderName   = "BROKERDESK_PROVIDER"
	ProviderAlpaca    = "alpaca"
	ProviderSimulator = "simulator"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration shared by brokerdesk-cli and
// brokerdesk-server.
type Config struct {
	Alpaca   Alpaca   `yaml:"alpaca"`
	Provider Provider `yaml:"provider"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

// Alpaca holds credentials and the trading endpoint for the Alpaca broker API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// Provider selects the backend that serves account data.
type Provider struct {
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
}

// Server holds network listener configuration.
type Server struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	GRPCPort  int    `yaml:"grpc_port"`
	StaticDir string `yaml:"static_dir"`
}

// Logging configures the application logger. When File is set, output is
// written there with size-based rotation. An empty Format leaves the choice to
// the binary: JSON for the server, text for the CLI.
type Logging struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		Alpaca:   Alpaca{BaseURL: DefaultBaseURL},
		Provider: Provider{Name: ProviderAlpaca},
		Server:   Server{Host: "127.0.0.1", Port: 5000, GRPCPort: 5001},
		Logging:  Logging{Level: "info", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 14},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path on top of the
// defaults and then applies overrides from the process environment. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with the environment read through lookup.
func LoadWithEnv(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	ApplyEnv(cfg, lookup)

	return cfg, nil
}

// LookupFunc reports the value of a named variable. os.LookupEnv satisfies
// it; tests pass a map-backed function instead.
type LookupFunc func(key string) (string, bool)

// MapLookup adapts a map to a LookupFunc.
func MapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// ApplyEnv overrides configuration fields from the variables visible through
// lookup. Empty values are ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
			}
		}
	}

	// Later keys win, so the canonical Alpaca names come last.
	set(&cfg.Alpaca.APIKey, EnvKeyID, EnvAlpacaKeyID)
	set(&cfg.Alpaca.APISecret, EnvSecretKey, EnvAlpacaSecret)
	set(&cfg.Alpaca.BaseURL, EnvBaseURL, EnvAlpacaBaseURL)

	set(&cfg.Logging.Level, EnvLogLevel)
	set(&cfg.Provider.Name, EnvProviderName)
}
