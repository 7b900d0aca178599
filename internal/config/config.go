// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for teams-kdbx. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
// General, logging, and network settings are flat top-level keys; provider
// settings live in the [teams] table.
package config

// Config is the top-level configuration structure parsed from a TOML file.
// Embedded structs are flattened by the TOML decoder, so their keys appear at
// the top level of the file.
type Config struct {
	AppConfig
	LoggingConfig
	NetworkConfig
	Teams TeamsConfig `toml:"teams"`
}

// AppConfig holds application-wide settings.
type AppConfig struct {
	Locale string `toml:"locale"`
	// NativeHost marks a desktop launcher environment. Auto-open via launch
	// parameters is disabled there.
	NativeHost bool   `toml:"native_host"`
	DataDir    string `toml:"data_dir"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// TeamsConfig configures the SharePoint/Teams storage provider: the OAuth
// application, Graph addressing, and the pages that complete a host handoff.
type TeamsConfig struct {
	// ClientID overrides the built-in application ID when non-empty.
	ClientID string `toml:"client_id"`
	// Environment is "auto", "production", or "local". A local environment
	// signs in with a development app registration, so it requires ClientID.
	Environment  string `toml:"environment"`
	Authority    string `toml:"authority"`
	Scope        string `toml:"scope"`
	GraphBaseURL string `toml:"graph_base_url"`
	ResourceRoot string `toml:"resource_root"`
	// Origin is the base URL serving the start-auth and auth-end pages.
	Origin      string `toml:"origin"`
	PopupWidth  int    `toml:"popup_width"`
	PopupHeight int    `toml:"popup_height"`
	HandoffTTL  string `toml:"handoff_ttl"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	DataDir    *string // --data-dir flag
	NativeHost *bool   // --native-host flag
	Locale     *string // --locale flag
}
