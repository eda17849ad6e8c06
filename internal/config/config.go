// Package config loads the satellited daemon configuration from a YAML
// file. Zero values mean "unspecified"; ApplyDefaults fills them in so
// an empty file yields a runnable simulated setup.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Modem backend selectors for Config.Modem.Backend.
const (
	BackendSimulated = "simulated"
	BackendRemote    = "remote"
)

// Config holds the daemon runtime parameters.
type Config struct {
	// HTTPAddr is the listen address of the HTTP control surface.
	HTTPAddr string `yaml:"http_addr"`

	// SettingsPath is the JSON settings file the controller persists
	// satellite mode and attach flags to.
	SettingsPath string `yaml:"settings_path"`

	// LogLevel is a zerolog level name (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	Modem  ModemConfig  `yaml:"modem"`
	Radios RadiosConfig `yaml:"radios"`
	Serve  ServeConfig  `yaml:"serve"`
}

// ModemConfig selects and parameterizes the modem endpoint.
type ModemConfig struct {
	// Backend is "simulated" or "remote".
	Backend string `yaml:"backend"`

	// Address is the remote endpoint address ("host:port"). Empty means
	// discover via mDNS.
	Address string `yaml:"address"`

	// Simulated modem knobs, used when Backend is "simulated".
	Provisioned      bool `yaml:"provisioned"`
	PointingRequired bool `yaml:"pointing_required"`
}

// RadiosConfig controls the dependent-radio tracking.
type RadiosConfig struct {
	// WatchBluetooth enables the BlueZ adapter watcher.
	WatchBluetooth bool `yaml:"watch_bluetooth"`
}

// ServeConfig exposes the local modem endpoint on the network, mainly
// for development against a simulated modem.
type ServeConfig struct {
	// Enabled turns the endpoint server on.
	Enabled bool `yaml:"enabled"`

	// Port is the listen port. Zero means the default service port.
	Port int `yaml:"port"`

	// Announce registers the endpoint over mDNS.
	Announce bool `yaml:"announce"`
}

// Load reads and parses the YAML file at path. A missing file is an
// error; use Default for a fileless setup.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unspecified fields.
func (c *Config) ApplyDefaults() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = "127.0.0.1:8475"
	}
	if c.SettingsPath == "" {
		c.SettingsPath = "satellited-settings.json"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Modem.Backend == "" {
		c.Modem.Backend = BackendSimulated
	}
}

// Validate rejects configurations the daemon cannot act on.
func (c *Config) Validate() error {
	switch c.Modem.Backend {
	case BackendSimulated, BackendRemote:
	default:
		return fmt.Errorf("unknown modem backend %q", c.Modem.Backend)
	}
	return nil
}
