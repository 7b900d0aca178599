// Package launch parses the launch parameters a page is opened with.
package launch

import (
	"fmt"
	"net/url"
	"strings"
)

// Parameter names.
const (
	KeyStorage   = "storage"
	KeyPath      = "path"
	KeyPassword  = "password"
	KeyTeamsAuth = "teamsAuth"
)

// Params is a read-only view over launch parameters. The zero value has no
// parameters.
type Params struct {
	values url.Values
}

// Parse accepts a full page URL (https://app.example/?storage=teams&path=...),
// a bare query string, or an empty string.
func Parse(raw string) (Params, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Params{}, nil
	}

	query := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return Params{}, fmt.Errorf("launch: parsing page URL: %w", err)
		}

		query = u.RawQuery
	}

	values, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return Params{}, fmt.Errorf("launch: parsing query: %w", err)
	}

	return Params{values: values}, nil
}

// FromValues wraps already-parsed values. The map is copied.
func FromValues(v url.Values) Params {
	c := make(url.Values, len(v))
	for k, vs := range v {
		c[k] = append([]string(nil), vs...)
	}

	return Params{values: c}
}

// Has reports whether key was supplied, even with an empty value.
func (p Params) Has(key string) bool {
	return p.values.Has(key)
}

// Get returns the first value for key, or "".
func (p Params) Get(key string) string {
	return p.values.Get(key)
}

// HostHandoff reports whether the host-handoff authentication mode was
// requested. Only the literal value "true" enables it.
func (p Params) HostHandoff() bool {
	return p.Get(KeyTeamsAuth) == "true"
}

// Encode renders the parameters as a query string.
func (p Params) Encode() string {
	return p.values.Encode()
}
