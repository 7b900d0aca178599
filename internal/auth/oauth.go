// Package auth authorizes access to SharePoint document libraries. A
// Coordinator owns one authorization Strategy, chosen once at construction:
// DirectPopup runs the authorization-code flow through a localhost callback,
// HostHandoff delegates the popup to a host SDK and learns the outcome from a
// secondary context that finishes the redirect. Both report through an Inbox
// keyed by the attempt's correlation id.
package auth

import (
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// ProductionClientID is the registered public client application. It accepts
// loopback redirect URIs, so it also serves local origins. A development
// registration must be supplied through Settings.ClientID.
const ProductionClientID = "8efac532-bbe7-4bc5-919c-1443ccab860a"

// DefaultScope is requested when Settings.Scope is empty.
const DefaultScope = "files.readwrite sites.readwrite.all offline_access"

// Popup dimensions used when Settings leaves them zero.
const (
	defaultPopupWidth  = 600
	defaultPopupHeight = 500
)

// Settings is the provider configuration the coordinator needs. The CLI
// maps config.TeamsConfig onto it so this package does not import config.
type Settings struct {
	ClientID    string
	// Authority is the tenant base URL, e.g.
	// https://login.microsoftonline.com/common. Empty uses the common tenant.
	Authority   string
	Scope       string
	Origin      string
	PopupWidth  int
	PopupHeight int
}

// OAuthConfig describes one authorization attempt. It is built fresh per
// attempt and never modified afterwards.
type OAuthConfig struct {
	AuthorizeURL string
	TokenURL     string
	Scope        string
	ClientID     string
	ClientSecret string
	PKCE         bool
	Width        int
	Height       int
}

// BuildOAuthConfig resolves Settings into an OAuthConfig. The client ID is
// the configured override, else ProductionClientID.
func BuildOAuthConfig(s Settings) OAuthConfig {
	endpoint := microsoft.AzureADEndpoint("common")
	if s.Authority != "" {
		base := strings.TrimSuffix(s.Authority, "/")
		endpoint = oauth2.Endpoint{
			AuthURL:  base + "/oauth2/v2.0/authorize",
			TokenURL: base + "/oauth2/v2.0/token",
		}
	}

	scope := s.Scope
	if scope == "" {
		scope = DefaultScope
	}

	clientID := s.ClientID
	if clientID == "" {
		clientID = ProductionClientID
	}

	width, height := s.PopupWidth, s.PopupHeight
	if width <= 0 {
		width = defaultPopupWidth
	}

	if height <= 0 {
		height = defaultPopupHeight
	}

	return OAuthConfig{
		AuthorizeURL: endpoint.AuthURL,
		TokenURL:     endpoint.TokenURL,
		Scope:        scope,
		ClientID:     clientID,
		ClientSecret: "",
		PKCE:         true,
		Width:        width,
		Height:       height,
	}
}

// oauth2Config converts c for the x/oauth2 library. onChange is called after
// every silent refresh.
func (c OAuthConfig) oauth2Config(redirectURL string, onChange func(*oauth2.Token)) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthorizeURL,
			TokenURL:  c.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL:   redirectURL,
		Scopes:        strings.Fields(c.Scope),
		OnTokenChange: onChange,
	}
}

// authCodeURL renders the authorize URL for one attempt.
func (c OAuthConfig) authCodeURL(redirectURL, state, verifier string) string {
	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if c.PKCE {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}

	return c.oauth2Config(redirectURL, nil).AuthCodeURL(state, opts...)
}
