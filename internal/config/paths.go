package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "teams-kdbx"

// Config file name.
const configFileName = "config.toml"

// Store file name inside the data directory.
const storeFileName = "origin-store.db"

// Cache subdirectory of the data directory for opened databases.
const cacheDirName = "cache"

// DefaultConfigDir returns the platform-specific directory for config files:
// $XDG_CONFIG_HOME/teams-kdbx or ~/.config/teams-kdbx on Linux,
// ~/Library/Application Support/teams-kdbx on macOS.
func DefaultConfigDir() string {
	return platformDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific directory for the per-origin
// store and the opened-database cache. macOS collapses config and data into
// one directory.
func DefaultDataDir() string {
	return platformDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// platformDir resolves an application directory. On Linux the XDG variable
// wins when set; otherwise linuxRel is joined under the home directory.
// Returns "" when the home directory cannot be determined.
func platformDir(xdgVar, linuxRel string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	case platformLinux:
		if xdg := os.Getenv(xdgVar); xdg != "" {
			return filepath.Join(xdg, appName)
		}
	}

	return filepath.Join(home, linuxRel, appName)
}

// DefaultConfigPath returns the full path to the default config file.
// This is used as the fallback when neither TEAMS_KDBX_CONFIG nor
// --config is specified.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// StorePath returns the location of the per-origin store database.
func (a *AppConfig) StorePath() string {
	return filepath.Join(a.DataDir, storeFileName)
}

// CacheDir returns the directory where opened databases are cached.
func (a *AppConfig) CacheDir() string {
	return filepath.Join(a.DataDir, cacheDirName)
}
