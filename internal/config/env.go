package config

import (
	"os"
	"strconv"
)

// Environment variable names for overrides.
const (
	EnvConfig     = "TEAMS_KDBX_CONFIG"
	EnvDataDir    = "TEAMS_KDBX_DATA_DIR"
	EnvNativeHost = "TEAMS_KDBX_NATIVE_HOST"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // TEAMS_KDBX_CONFIG: override config file path
	DataDir    string // TEAMS_KDBX_DATA_DIR: data directory override
	NativeHost *bool  // TEAMS_KDBX_NATIVE_HOST: nil when unset or unparseable
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	env := EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		DataDir:    os.Getenv(EnvDataDir),
	}

	if raw := os.Getenv(EnvNativeHost); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			env.NativeHost = &v
		}
	}

	return env
}
