// Package config provides configuration file support for nettool.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. NETTOOL_DEFAULTS_MAX_HOPS.
const EnvPrefix = "nettool"

// Config represents the nettool configuration file structure.
type Config struct {
	// Defaults are applied when flags are not specified
	Defaults Defaults `yaml:"defaults" mapstructure:"defaults"`

	// Aliases for common targets
	Aliases map[string]string `yaml:"aliases,omitempty" mapstructure:"aliases"`
}

// Defaults holds default values for trace parameters.
type Defaults struct {
	// Output mode
	TUI     bool   `yaml:"tui" mapstructure:"tui"`
	Theme   string `yaml:"theme" mapstructure:"theme"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	JSON    bool   `yaml:"json" mapstructure:"json"`
	CSV     bool   `yaml:"csv" mapstructure:"csv"`
	NoColor bool   `yaml:"no_color" mapstructure:"no_color"`

	// Probe method: icmp, tcp
	ProbeMethod string `yaml:"probe_method" mapstructure:"probe_method"`

	// Trace parameters
	MaxHops      int           `yaml:"max_hops" mapstructure:"max_hops"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ListenWindow time.Duration `yaml:"listen_window" mapstructure:"listen_window"`
	PayloadSize  int           `yaml:"payload_size" mapstructure:"payload_size"`

	// Enrichment
	RDNS      bool   `yaml:"rdns" mapstructure:"rdns"`
	DNSServer string `yaml:"dns_server" mapstructure:"dns_server"`

	// Logging
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Defaults: Defaults{
			Theme:        "dark",
			ProbeMethod:  "icmp",
			MaxHops:      30,
			Timeout:      2 * time.Second,
			Port:         80,
			ListenWindow: 100 * time.Millisecond,
			PayloadSize:  32,
			RDNS:         true,
			LogLevel:     "warn",
		},
		Aliases: make(map[string]string),
	}
}

// Load reads configuration with viper. An explicit path must exist;
// otherwise the default locations are searched in order:
//  1. ./nettool.yaml (current directory)
//  2. ~/.config/nettool/config.yaml (Linux/macOS)
//  3. %APPDATA%\nettool\config.yaml (Windows)
//
// Environment variables prefixed with NETTOOL_ override file values.
// It returns the config and the file used, empty if none was found.
func Load(path string) (*Config, string, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, "", fmt.Errorf("failed to decode config: %w", err)
	}
	if config.Aliases == nil {
		config.Aliases = make(map[string]string)
	}

	return config, path, nil
}

// LoadFrom reads configuration from a specific YAML file without
// environment overrides.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process
// environment. Variables already set are left untouched and a missing
// file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, c *Config) {
	d := c.Defaults
	v.SetDefault("defaults.tui", d.TUI)
	v.SetDefault("defaults.theme", d.Theme)
	v.SetDefault("defaults.verbose", d.Verbose)
	v.SetDefault("defaults.json", d.JSON)
	v.SetDefault("defaults.csv", d.CSV)
	v.SetDefault("defaults.no_color", d.NoColor)
	v.SetDefault("defaults.probe_method", d.ProbeMethod)
	v.SetDefault("defaults.max_hops", d.MaxHops)
	v.SetDefault("defaults.timeout", d.Timeout)
	v.SetDefault("defaults.port", d.Port)
	v.SetDefault("defaults.listen_window", d.ListenWindow)
	v.SetDefault("defaults.payload_size", d.PayloadSize)
	v.SetDefault("defaults.rdns", d.RDNS)
	v.SetDefault("defaults.dns_server", d.DNSServer)
	v.SetDefault("defaults.log_level", d.LogLevel)
}

// ResolveAlias returns the target an alias points to, or target itself.
func (c *Config) ResolveAlias(target string) string {
	if c == nil {
		return target
	}
	if resolved, ok := c.Aliases[strings.ToLower(target)]; ok && resolved != "" {
		return resolved
	}
	return target
}

// Save writes the configuration to the default user config path.
func (c *Config) Save() error {
	return c.SaveTo(getUserConfigPath())
}

// SaveTo writes the configuration to a specific file path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func getConfigPaths() []string {
	paths := []string{
		"nettool.yaml",
		"nettool.yml",
		".nettool.yaml",
		".nettool.yml",
	}

	if userPath := getUserConfigPath(); userPath != "" {
		paths = append(paths, userPath)
	}

	return paths
}

func getUserConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "nettool", "config.yaml")
		}
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, "nettool", "config.yaml")
		}
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, ".config", "nettool", "config.yaml")
		}
	}
	return ""
}

// GetConfigPath returns the path where user config would be saved.
func GetConfigPath() string {
	return getUserConfigPath()
}

// GenerateExample generates an example configuration file content.
func GenerateExample() string {
	return `# nettool configuration file
# Location: ~/.config/nettool/config.yaml (Linux/macOS)
#           %APPDATA%\nettool\config.yaml (Windows)
#           ./nettool.yaml (current directory)
# Every key can be overridden from the environment,
# e.g. NETTOOL_DEFAULTS_MAX_HOPS=20

defaults:
  # Output mode (only one should be true)
  tui: false              # Interactive TUI mode
  theme: dark             # TUI theme: dark, light, minimal
  verbose: false          # Detailed table output
  json: false             # JSON output
  csv: false              # CSV output
  no_color: false         # Disable colors

  # Probe method: icmp (echo) or tcp (connection)
  probe_method: icmp

  # Trace parameters
  max_hops: 30            # Maximum number of hops
  timeout: 2s             # Per-hop timeout
  port: 80                # Destination port for tcp probes
  listen_window: 100ms    # ICMP listen window per tcp probe
  payload_size: 32        # Echo payload size in bytes

  # Enrichment
  rdns: true              # Reverse DNS lookups for hop addresses
  dns_server: ""          # PTR queries go here instead of the system resolver

  log_level: warn         # debug, info, warn, error

# Target aliases (optional)
aliases:
  dns: 8.8.8.8
  cf: 1.1.1.1
  google: google.com
`
}
