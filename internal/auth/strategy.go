package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/tonimelisma/teams-kdbx/internal/launch"
	"github.com/tonimelisma/teams-kdbx/internal/store"
)

// Mode names a Strategy.
type Mode string

// Strategy modes.
const (
	ModeDirectPopup Mode = "popup"
	ModeHostHandoff Mode = "host"
)

// ProviderKey is the storage key of this provider. It is the whole payload
// of a host failure message.
const ProviderKey = "teams"

// StickyModeKey is the per-origin store entry recording that the host
// handoff branch was taken. The secondary context reads it to tell a stale
// result from a request that never belonged to a handoff.
const StickyModeKey = "teamsAuth"

// Attempt is one interactive authorization attempt.
type Attempt struct {
	// State is the random correlation id. It is the OAuth state parameter
	// and the Inbox key.
	State  string
	Config OAuthConfig
	// AuthURL renders the authorize URL for a redirect URI chosen by the
	// strategy. It carries the PKCE challenge.
	AuthURL func(redirectURL string) string
}

// Strategy runs the interactive half of an attempt. Begin returns once the
// popup (or handoff) is under way, reporting the redirect URI the code will
// be bound to; the outcome is delivered later on the Inbox under
// Attempt.State. ctx is canceled when the coordinator stops waiting.
type Strategy interface {
	Mode() Mode
	Begin(ctx context.Context, att Attempt) (redirectURL string, err error)
}

// Store is the part of the per-origin store the auth package uses.
type Store interface {
	Get(ctx context.Context, origin, key string) (string, error)
	Set(ctx context.Context, origin, key, value string) error
	Delete(ctx context.Context, origin, key string) error
	SaveHandoff(ctx context.Context, h *store.Handoff) error
	LoadHandoff(ctx context.Context, id string) (*store.Handoff, error)
	TakeHandoff(ctx context.Context, id string) (*store.Handoff, error)
}

// StrategyDeps are the collaborators either strategy may need.
type StrategyDeps struct {
	Inbox   *Inbox
	Store   Store
	Host    HostSDK
	OpenURL func(string) error
	Origin  string
	// HandoffTTL bounds how long a handoff record stays usable.
	HandoffTTL time.Duration
	Logger     *slog.Logger
}

// SelectStrategy picks the strategy for this process from the launch
// parameters: HostHandoff if and only if teamsAuth is exactly "true".
func SelectStrategy(p launch.Params, deps StrategyDeps) Strategy {
	if p.HostHandoff() {
		return NewHostHandoff(deps)
	}

	return NewDirectPopup(deps.Inbox, deps.OpenURL, deps.Logger)
}
