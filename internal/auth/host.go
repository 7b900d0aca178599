package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
)

// BrowserHost is a HostSDK for running outside a host platform. Initialize
// serves the secondary-context pages on the origin; Authenticate opens the
// start-auth page in the system browser and waits for the auth-end page to
// report back through NotifySuccess or NotifyFailure.
type BrowserHost struct {
	origin  string
	openURL func(string) error
	logger  *slog.Logger

	mu      sync.Mutex
	handler http.Handler
	srv     *http.Server
	addr    string
	pending map[string]chan hostOutcome
}

type hostOutcome struct {
	result map[string]string
	reason string
}

// NewBrowserHost creates a host adapter for origin. Call Handle before
// Initialize to mount the pages.
func NewBrowserHost(origin string, openURL func(string) error, logger *slog.Logger) *BrowserHost {
	if logger == nil {
		logger = slog.Default()
	}

	return &BrowserHost{
		origin:  origin,
		openURL: openURL,
		logger:  logger,
		pending: make(map[string]chan hostOutcome),
	}
}

// Handle sets the handler served by Initialize.
func (b *BrowserHost) Handle(h http.Handler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// Initialize starts serving the pages on the origin's host and port. It is
// idempotent.
func (b *BrowserHost) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.srv != nil {
		return nil
	}

	if b.handler == nil {
		return errors.New("auth: browser host has no pages handler")
	}

	u, err := url.Parse(b.origin)
	if err != nil || u.Host == "" {
		return fmt.Errorf("auth: invalid origin %q", b.origin)
	}

	hostport := u.Host
	if u.Port() == "" {
		hostport = net.JoinHostPort(u.Hostname(), defaultPort(u.Scheme))
	}

	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", hostport)
	if err != nil {
		return fmt.Errorf("auth: listening on %s: %w", hostport, err)
	}

	b.addr = listener.Addr().String()
	b.srv = &http.Server{
		Handler:           b.handler,
		ReadHeaderTimeout: shutdownTimeout,
	}

	srv := b.srv
	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			b.logger.Error("pages server error", slog.String("error", serveErr.Error()))
		}
	}()

	b.logger.Info("serving auth pages", slog.String("addr", b.addr))

	return nil
}

func defaultPort(scheme string) string {
	if scheme == "https" {
		return "443"
	}

	return "80"
}

// Addr is the address the pages are served on, empty before Initialize.
func (b *BrowserHost) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.addr
}

// Authenticate implements HostSDK.
func (b *BrowserHost) Authenticate(ctx context.Context, req AuthenticateRequest) (map[string]string, error) {
	ch := make(chan hostOutcome, 1)

	b.mu.Lock()
	b.pending[req.HandoffID] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, req.HandoffID)
		b.mu.Unlock()
	}()

	launchBrowser(req.URL, b.openURL, b.logger)

	select {
	case out := <-ch:
		if out.result == nil {
			return nil, fmt.Errorf("auth: host authentication failed: %s", out.reason)
		}

		return out.result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("auth: host authentication canceled: %w", ctx.Err())
	}
}

// NotifySuccess implements HostNotifier.
func (b *BrowserHost) NotifySuccess(handoffID string, result map[string]string) {
	if result == nil {
		result = map[string]string{}
	}

	b.notify(handoffID, hostOutcome{result: result})
}

// NotifyFailure implements HostNotifier.
func (b *BrowserHost) NotifyFailure(handoffID, reason string) {
	b.notify(handoffID, hostOutcome{reason: reason})
}

func (b *BrowserHost) notify(handoffID string, out hostOutcome) {
	b.mu.Lock()
	ch, ok := b.pending[handoffID]
	b.mu.Unlock()

	if !ok {
		b.logger.Warn("no pending host authentication", slog.String("handoff_id", handoffID))
		return
	}

	select {
	case ch <- out:
	default:
	}
}

// Close stops the pages server.
func (b *BrowserHost) Close() {
	b.mu.Lock()
	srv := b.srv
	b.srv = nil
	b.mu.Unlock()

	if srv != nil {
		shutdownServer(srv, b.logger)
	}
}
