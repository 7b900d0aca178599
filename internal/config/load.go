package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are treated as fatal errors with "did you
// mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, error) {
	// 1. Resolve config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (returns defaults if no file exists)
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Apply env overrides
	if env.DataDir != "" {
		cfg.DataDir = env.DataDir
	}

	if env.NativeHost != nil {
		cfg.NativeHost = *env.NativeHost
	}

	// 4. Apply CLI overrides (pointer fields: nil = not specified)
	if cli.DataDir != nil {
		cfg.DataDir = *cli.DataDir
	}

	if cli.NativeHost != nil {
		cfg.NativeHost = *cli.NativeHost
	}

	if cli.Locale != nil {
		cfg.Locale = *cli.Locale
	}

	// 5. Fill the data dir last so an explicit empty override still falls back.
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// HandoffTTLDuration returns the parsed handoff TTL. Validate guarantees the
// string parses; the default is returned if it somehow does not.
func (t *TeamsConfig) HandoffTTLDuration() time.Duration {
	d, err := time.ParseDuration(t.HandoffTTL)
	if err != nil {
		d, _ = time.ParseDuration(defaultHandoffTTL)
	}

	return d
}

// ConnectTimeoutDuration returns the parsed connect timeout.
func (n *NetworkConfig) ConnectTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(n.ConnectTimeout)
	if err != nil {
		d, _ = time.ParseDuration(defaultConnectTimeout)
	}

	return d
}

// DataTimeoutDuration returns the parsed data timeout.
func (n *NetworkConfig) DataTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(n.DataTimeout)
	if err != nil {
		d, _ = time.ParseDuration(defaultDataTimeout)
	}

	return d
}
