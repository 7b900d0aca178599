package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/tonimelisma/teams-kdbx/internal/store"
)

// Page paths served for the secondary context.
const (
	StartAuthPath = "/teams/start-auth"
	AuthEndPath   = "/teams/auth-end"
)

// defaultHandoffTTL applies when StrategyDeps.HandoffTTL is zero.
const defaultHandoffTTL = 10 * time.Minute

// AuthenticateRequest asks the host to open a popup at URL. HandoffID lets
// the host match the later Notify call to this request.
type AuthenticateRequest struct {
	URL       string
	Width     int
	Height    int
	HandoffID string
}

// HostSDK is the host platform's integration surface. Authenticate blocks
// until the popup reports success (returning the result fields) or failure.
type HostSDK interface {
	Initialize(ctx context.Context) error
	Authenticate(ctx context.Context, req AuthenticateRequest) (map[string]string, error)
}

// HostNotifier is what the secondary context calls to finish a host
// authentication.
type HostNotifier interface {
	NotifySuccess(handoffID string, result map[string]string)
	NotifyFailure(handoffID string, reason string)
}

// HostHandoff delegates the popup to the host SDK. The authorize URL is
// parked in a handoff record so the start-auth page, running in another
// context, can redirect to it.
type HostHandoff struct {
	inbox   *Inbox
	store   Store
	host    HostSDK
	origin  string
	ttl     time.Duration
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewHostHandoff creates the host strategy.
func NewHostHandoff(deps StrategyDeps) *HostHandoff {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ttl := deps.HandoffTTL
	if ttl <= 0 {
		ttl = defaultHandoffTTL
	}

	return &HostHandoff{
		inbox:   deps.Inbox,
		store:   deps.Store,
		host:    deps.Host,
		origin:  deps.Origin,
		ttl:     ttl,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Mode implements Strategy.
func (h *HostHandoff) Mode() Mode { return ModeHostHandoff }

// Begin implements Strategy. It persists the sticky mode flag and the
// handoff record, then runs the host flow in the background and returns
// immediately: a nil error means "handoff initiated", not "authorized".
func (h *HostHandoff) Begin(ctx context.Context, att Attempt) (string, error) {
	redirectURL := h.origin + AuthEndPath
	authURL := att.AuthURL(redirectURL)

	if err := h.store.Set(ctx, h.origin, StickyModeKey, "true"); err != nil {
		return "", fmt.Errorf("auth: recording handoff mode: %w", err)
	}

	now := h.nowFunc()
	rec := &store.Handoff{
		ID:        att.State,
		Origin:    h.origin,
		Provider:  ProviderKey,
		Mode:      string(ModeHostHandoff),
		AuthURL:   authURL,
		CreatedAt: now,
		ExpiresAt: now.Add(h.ttl),
	}

	if err := h.store.SaveHandoff(ctx, rec); err != nil {
		return "", fmt.Errorf("auth: recording handoff: %w", err)
	}

	h.logger.Debug("waiting for host initialization", slog.String("handoff_id", att.State))

	req := AuthenticateRequest{
		URL:       h.origin + StartAuthPath + "?handoff=" + url.QueryEscape(att.State),
		Width:     att.Config.Width,
		Height:    att.Config.Height,
		HandoffID: att.State,
	}

	go h.run(ctx, att.State, req)

	return redirectURL, nil
}

func (h *HostHandoff) run(ctx context.Context, state string, req AuthenticateRequest) {
	if err := h.host.Initialize(ctx); err != nil {
		h.logger.Error("host initialization failed, posting failure",
			slog.String("handoff_id", state),
			slog.String("error", err.Error()),
		)
		h.inbox.Post(state, Message{Storage: ProviderKey})

		return
	}

	h.logger.Debug("host initialized, starting authentication", slog.String("handoff_id", state))

	result, err := h.host.Authenticate(ctx, req)
	if err != nil {
		h.logger.Error("host authentication failed, posting failure",
			slog.String("handoff_id", state),
			slog.String("error", err.Error()),
		)
		h.inbox.Post(state, Message{Storage: ProviderKey})

		return
	}

	h.logger.Debug("host authentication succeeded, posting result", slog.String("handoff_id", state))
	h.inbox.Post(state, Message{Fields: result})
}
