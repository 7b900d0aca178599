package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/tonimelisma/teams-kdbx/internal/app"
	"github.com/tonimelisma/teams-kdbx/internal/auth"
	"github.com/tonimelisma/teams-kdbx/internal/config"
	"github.com/tonimelisma/teams-kdbx/internal/launch"
	"github.com/tonimelisma/teams-kdbx/internal/storage"
	"github.com/tonimelisma/teams-kdbx/internal/store"
)

const dataDirPerms = 0o700

// Session wires the store, the auth coordinator, and the storage providers
// for one command invocation.
type Session struct {
	Store    *store.Store
	Host     *auth.BrowserHost
	Auth     *auth.Coordinator
	Teams    *storage.Teams
	OneDrive *storage.OneDrive
	Model    *app.Model

	logger *slog.Logger
}

// launchParams returns the launch parameters for commands that take no page
// URL: --host-handoff stands in for teamsAuth=true.
func launchParams(cc *CLIContext) launch.Params {
	if cc.Flags.HostHandoff {
		return launch.FromValues(url.Values{launch.KeyTeamsAuth: {"true"}})
	}

	return launch.Params{}
}

// NewSession opens the per-origin store and builds the coordinator. The auth
// strategy is fixed here from params.
func NewSession(ctx context.Context, cc *CLIContext, params launch.Params) (*Session, error) {
	logger := cc.Logger
	cfg := cc.Cfg

	if err := os.MkdirAll(cfg.DataDir, dataDirPerms); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	st, err := store.Open(ctx, cfg.StorePath(), logger)
	if err != nil {
		return nil, err
	}

	if _, err := st.PurgeExpired(ctx); err != nil {
		logger.Warn("purging expired handoffs", slog.String("error", err.Error()))
	}

	tc := cfg.Teams
	inbox := auth.NewInbox(logger)

	host := auth.NewBrowserHost(tc.Origin, openBrowser, logger)
	host.Handle(auth.NewPages(st, host, tc.Origin, cc.Printer, logger))

	strategy := auth.SelectStrategy(params, auth.StrategyDeps{
		Inbox:      inbox,
		Store:      st,
		Host:       host,
		OpenURL:    openBrowser,
		Origin:     tc.Origin,
		HandoffTTL: tc.HandoffTTLDuration(),
		Logger:     logger,
	})

	httpClient := newHTTPClient(cfg.NetworkConfig)
	coord := auth.NewCoordinator(authSettings(tc), strategy, inbox, st, httpClient, logger)

	logger.Debug("session ready",
		slog.String("auth_mode", string(coord.Mode())),
		slog.String("origin", tc.Origin),
	)

	newClient := storage.NewClientFactory(tc.GraphBaseURL, httpClient, cfg.UserAgent, logger)
	teams := storage.NewTeams(coord, newClient, tc.ResourceRoot, logger)
	onedrive := storage.NewOneDrive(coord, newClient, logger)

	return &Session{
		Store:    st,
		Host:     host,
		Auth:     coord,
		Teams:    teams,
		OneDrive: onedrive,
		Model:    app.NewModel(app.NewRegistry(teams, onedrive), cfg.CacheDir(), logger),
		logger:   logger,
	}, nil
}

// Provider picks the provider for a path: SharePoint URLs go to Teams, plain
// paths to the user's OneDrive.
func (s *Session) Provider(path string) storage.Provider {
	if strings.HasPrefix(path, "https://") {
		return s.Teams
	}

	return s.OneDrive
}

// Close stops the pages server and closes the store.
func (s *Session) Close() {
	s.Host.Close()

	if err := s.Store.Close(); err != nil {
		s.logger.Warn("closing store", slog.String("error", err.Error()))
	}
}

func authSettings(tc config.TeamsConfig) auth.Settings {
	return auth.Settings{
		ClientID:    tc.ClientID,
		Authority:   tc.Authority,
		Scope:       tc.Scope,
		Origin:      tc.Origin,
		PopupWidth:  tc.PopupWidth,
		PopupHeight: tc.PopupHeight,
	}
}

// newHTTPClient bounds connection setup and the wait for response headers.
// Bodies are not time-limited so large downloads are not cut off.
func newHTTPClient(nc config.NetworkConfig) *http.Client {
	dialer := &net.Dialer{Timeout: nc.ConnectTimeoutDuration()}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = nc.ConnectTimeoutDuration()
	transport.ResponseHeaderTimeout = nc.DataTimeoutDuration()

	return &http.Client{Transport: transport}
}

// openBrowser launches the platform URL handler.
func openBrowser(target string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	go func() { _ = cmd.Wait() }()

	return nil
}
