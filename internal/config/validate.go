package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Validation range constants.
const (
	minConnectTimeout = 1 * time.Second
	minDataTimeout    = 5 * time.Second
	minHandoffTTL     = 1 * time.Minute
	maxHandoffTTL     = 24 * time.Hour
	minPopupDimension = 200
	maxPopupDimension = 4096
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateApp(&cfg.AppConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateNetwork(&cfg.NetworkConfig)...)
	errs = append(errs, validateTeams(&cfg.Teams)...)

	return errors.Join(errs...)
}

func validateApp(a *AppConfig) []error {
	if _, err := language.Parse(a.Locale); err != nil {
		return []error{fmt.Errorf("locale: must be a BCP 47 language tag, got %q", a.Locale)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, validateDurationRange("connect_timeout", n.ConnectTimeout, minConnectTimeout, 0)...)
	errs = append(errs, validateDurationRange("data_timeout", n.DataTimeout, minDataTimeout, 0)...)

	return errs
}

var validEnvironments = map[string]bool{
	EnvironmentAuto:       true,
	EnvironmentLocal:      true,
	EnvironmentProduction: true,
}

func validateTeams(t *TeamsConfig) []error {
	var errs []error

	if !validEnvironments[t.Environment] {
		errs = append(errs, fmt.Errorf("teams.environment: must be one of auto, local, production; got %q",
			t.Environment))
	}

	if t.Environment == EnvironmentLocal && strings.TrimSpace(t.ClientID) == "" {
		errs = append(errs, errors.New("teams.client_id: required when teams.environment is local"))
	}

	if strings.TrimSpace(t.Scope) == "" {
		errs = append(errs, errors.New("teams.scope: must not be empty"))
	}

	if t.ResourceRoot == "" || strings.Contains(t.ResourceRoot, "/") {
		errs = append(errs, fmt.Errorf("teams.resource_root: must be a single path segment, got %q", t.ResourceRoot))
	}

	errs = append(errs, validateBaseURL("teams.authority", t.Authority)...)
	errs = append(errs, validateBaseURL("teams.graph_base_url", t.GraphBaseURL)...)
	errs = append(errs, validateBaseURL("teams.origin", t.Origin)...)
	errs = append(errs, validateDimension("teams.popup_width", t.PopupWidth)...)
	errs = append(errs, validateDimension("teams.popup_height", t.PopupHeight)...)
	errs = append(errs, validateDurationRange("teams.handoff_ttl", t.HandoffTTL, minHandoffTTL, maxHandoffTTL)...)

	return errs
}

// validateBaseURL requires an absolute http(s) URL without a trailing slash,
// since paths are appended to it verbatim.
func validateBaseURL(field, raw string) []error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return []error{fmt.Errorf("%s: must be an absolute http(s) URL, got %q", field, raw)}
	}

	if strings.HasSuffix(raw, "/") {
		return []error{fmt.Errorf("%s: must not end with '/', got %q", field, raw)}
	}

	return nil
}

func validateDimension(field string, v int) []error {
	if v < minPopupDimension || v > maxPopupDimension {
		return []error{fmt.Errorf("%s: must be between %d and %d, got %d",
			field, minPopupDimension, maxPopupDimension, v)}
	}

	return nil
}

// validateDurationRange parses a duration and checks its bounds. A zero max
// means unbounded.
func validateDurationRange(field, value string, minVal, maxVal time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d < minVal {
		return []error{fmt.Errorf("%s: must be >= %s, got %s", field, minVal, d)}
	}

	if maxVal > 0 && d > maxVal {
		return []error{fmt.Errorf("%s: must be <= %s, got %s", field, maxVal, d)}
	}

	return nil
}
