package config

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain.
const (
	defaultLocale         = "en"
	defaultLogLevel       = "info"
	defaultLogFormat      = "auto"
	defaultConnectTimeout = "10s"
	defaultDataTimeout    = "60s"

	defaultEnvironment  = EnvironmentAuto
	defaultAuthority    = "https://login.microsoftonline.com/common"
	defaultScope        = "files.readwrite sites.readwrite.all offline_access"
	defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"
	defaultResourceRoot = "drives"
	defaultOrigin       = "http://localhost:8088"
	defaultPopupWidth   = 600
	defaultPopupHeight  = 500
	defaultHandoffTTL   = "10m"
)

// Environment names accepted by teams.environment.
const (
	EnvironmentAuto       = "auto"
	EnvironmentLocal      = "local"
	EnvironmentProduction = "production"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		AppConfig:     defaultAppConfig(),
		LoggingConfig: defaultLoggingConfig(),
		NetworkConfig: defaultNetworkConfig(),
		Teams:         defaultTeamsConfig(),
	}
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Locale: defaultLocale,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}

func defaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		ConnectTimeout: defaultConnectTimeout,
		DataTimeout:    defaultDataTimeout,
	}
}

func defaultTeamsConfig() TeamsConfig {
	return TeamsConfig{
		Environment:  defaultEnvironment,
		Authority:    defaultAuthority,
		Scope:        defaultScope,
		GraphBaseURL: defaultGraphBaseURL,
		ResourceRoot: defaultResourceRoot,
		Origin:       defaultOrigin,
		PopupWidth:   defaultPopupWidth,
		PopupHeight:  defaultPopupHeight,
		HandoffTTL:   defaultHandoffTTL,
	}
}
