package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/teams-kdbx/internal/graph"
)

// Sentinel errors.
var (
	// ErrAuthFailed covers every interactive failure: the host reported a
	// failure, the provider returned an error, or the redirect was invalid.
	ErrAuthFailed  = errors.New("auth: authorization failed")
	ErrNotLoggedIn = errors.New("auth: not logged in")
)

// Coordinator produces authorized sessions for one origin. Its Strategy is
// fixed at construction.
type Coordinator struct {
	settings   Settings
	strategy   Strategy
	inbox      *Inbox
	store      Store
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCoordinator creates a Coordinator. httpClient is used for the token
// endpoint; nil uses http.DefaultClient.
func NewCoordinator(
	settings Settings, strategy Strategy, inbox *Inbox, st Store, httpClient *http.Client, logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Coordinator{
		settings:   settings,
		strategy:   strategy,
		inbox:      inbox,
		store:      st,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Mode reports the strategy chosen at construction.
func (c *Coordinator) Mode() Mode {
	return c.strategy.Mode()
}

// Authorize returns a session for the Graph client. A stored token is used
// (and silently refreshed) when it still works; otherwise an interactive
// attempt runs through the strategy.
func (c *Coordinator) Authorize(ctx context.Context) (graph.TokenSource, error) {
	ts, err := c.Session(ctx)
	if err == nil {
		if _, tokErr := ts.Token(); tokErr == nil {
			return ts, nil
		}

		c.logger.Info("stored token unusable, starting interactive authorization")
	} else if !errors.Is(err, ErrNotLoggedIn) {
		return nil, err
	}

	return c.Login(ctx)
}

// Session returns the stored session without any interaction. Returns
// ErrNotLoggedIn if no token is stored.
func (c *Coordinator) Session(ctx context.Context) (graph.TokenSource, error) {
	rec, err := loadToken(ctx, c.store, c.settings.Origin)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("loaded stored token", slog.Time("expiry", rec.Token.Expiry))

	cfg := BuildOAuthConfig(c.settings).oauth2Config("", c.persistRefreshed(rec.Meta))

	return c.session(cfg, rec.Token), nil
}

// Login runs one interactive attempt:
//  1. builds a fresh OAuthConfig, PKCE verifier, and correlation id
//  2. registers on the Inbox under the correlation id
//  3. hands the attempt to the strategy
//  4. waits for the result message
//  5. exchanges the code and stores the token
func (c *Coordinator) Login(ctx context.Context) (graph.TokenSource, error) {
	oc := BuildOAuthConfig(c.settings)
	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()

	waiter := c.inbox.Expect(state)
	defer waiter.Close()

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	att := Attempt{
		State:  state,
		Config: oc,
		AuthURL: func(redirectURL string) string {
			return oc.authCodeURL(redirectURL, state, verifier)
		},
	}

	c.logger.Info("starting interactive authorization",
		slog.String("mode", string(c.strategy.Mode())),
		slog.String("client_id", oc.ClientID),
	)

	redirectURL, err := c.strategy.Begin(attemptCtx, att)
	if err != nil {
		return nil, fmt.Errorf("auth: starting %s authorization: %w", c.strategy.Mode(), err)
	}

	msg, err := waiter.Await(attemptCtx)
	if err != nil {
		return nil, err
	}

	code, err := resultCode(msg, state)
	if err != nil {
		c.logger.Warn("authorization failed", slog.String("error", err.Error()))
		return nil, err
	}

	meta := map[string]string{
		"client_id": oc.ClientID,
		"mode":      string(c.strategy.Mode()),
	}

	cfg := oc.oauth2Config(redirectURL, c.persistRefreshed(meta))

	var opts []oauth2.AuthCodeOption
	if oc.PKCE {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	tok, err := cfg.Exchange(c.oauthContext(ctx), code, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: token exchange failed: %w", err)
	}

	if err := saveToken(ctx, c.store, c.settings.Origin, tok, meta); err != nil {
		return nil, err
	}

	c.logger.Info("authorization successful", slog.Time("expiry", tok.Expiry))

	return c.session(cfg, tok), nil
}

// Logout forgets the stored token and the sticky handoff mode.
func (c *Coordinator) Logout(ctx context.Context) error {
	if err := c.store.Delete(ctx, c.settings.Origin, tokenKey); err != nil {
		return fmt.Errorf("auth: removing token: %w", err)
	}

	if err := c.store.Delete(ctx, c.settings.Origin, StickyModeKey); err != nil {
		return fmt.Errorf("auth: clearing handoff mode: %w", err)
	}

	c.logger.Info("logged out", slog.String("origin", c.settings.Origin))

	return nil
}

// resultCode validates a result message for the attempt identified by state
// and extracts the authorization code.
func resultCode(msg Message, state string) (string, error) {
	if msg.Failed() {
		return "", fmt.Errorf("%w: %s sign-in did not complete", ErrAuthFailed, msg.Storage)
	}

	if msg.Fields["state"] != state {
		return "", fmt.Errorf("%w: state mismatch (possible CSRF)", ErrAuthFailed)
	}

	if e := msg.Fields["error"]; e != "" {
		return "", fmt.Errorf("%w: %s: %s", ErrAuthFailed, e, msg.Fields["error_description"])
	}

	code := msg.Fields["code"]
	if code == "" {
		return "", fmt.Errorf("%w: missing authorization code", ErrAuthFailed)
	}

	return code, nil
}

// session wraps tok in a refreshing token source. The source outlives any
// single request, so it is bound to a background context.
func (c *Coordinator) session(cfg *oauth2.Config, tok *oauth2.Token) graph.TokenSource {
	src := cfg.TokenSource(c.oauthContext(context.Background()), tok)

	return &tokenBridge{src: src, logger: c.logger}
}

// oauthContext carries the HTTP client to the oauth2 library.
func (c *Coordinator) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// persistRefreshed returns the OnTokenChange hook. It runs after each silent
// refresh, outside the token source's mutex.
func (c *Coordinator) persistRefreshed(meta map[string]string) func(*oauth2.Token) {
	return func(tok *oauth2.Token) {
		c.logger.Info("token refreshed", slog.Time("new_expiry", tok.Expiry))

		if err := saveToken(context.Background(), c.store, c.settings.Origin, tok, meta); err != nil {
			c.logger.Warn("failed to persist refreshed token", slog.String("error", err.Error()))
		}
	}
}
