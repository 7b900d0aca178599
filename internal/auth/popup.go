package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"
)

// callbackPath is the path the redirect hits on the local server. The root
// path matches the registered "http://localhost" redirect URI; Microsoft's
// v2.0 endpoint ignores the port for loopback redirects.
const callbackPath = "/"

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// DirectPopup opens the authorize URL in the user's browser and receives the
// redirect on a localhost listener bound to a random port.
type DirectPopup struct {
	inbox   *Inbox
	openURL func(string) error
	logger  *slog.Logger
}

// NewDirectPopup creates the direct strategy. openURL launches the browser;
// when it fails the URL is printed to stderr instead.
func NewDirectPopup(inbox *Inbox, openURL func(string) error, logger *slog.Logger) *DirectPopup {
	if logger == nil {
		logger = slog.Default()
	}

	return &DirectPopup{inbox: inbox, openURL: openURL, logger: logger}
}

// Mode implements Strategy.
func (d *DirectPopup) Mode() Mode { return ModeDirectPopup }

// Begin implements Strategy. The callback server lives until ctx is done.
func (d *DirectPopup) Begin(ctx context.Context, att Attempt) (string, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("auth: binding localhost listener: %w", err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return "", errors.New("auth: listener address is not TCP")
	}

	redirectURL := fmt.Sprintf("http://localhost:%d", tcpAddr.Port)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+callbackPath, func(w http.ResponseWriter, r *http.Request) {
		d.handleCallback(w, r, att.State)
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			d.logger.Warn("callback server error", slog.String("error", serveErr.Error()))
			d.inbox.Post(att.State, Message{Storage: ProviderKey})
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownServer(srv, d.logger)
	}()

	d.logger.Info("callback server listening", slog.Int("port", tcpAddr.Port))

	launchBrowser(att.AuthURL(redirectURL), d.openURL, d.logger)

	return redirectURL, nil
}

// handleCallback forwards the redirect parameters to the waiting attempt.
// Validation of state, error, and code happens in the coordinator so both
// strategies share it.
func (d *DirectPopup) handleCallback(w http.ResponseWriter, r *http.Request, state string) {
	fields := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}

	if len(fields) == 0 {
		http.Error(w, "Missing authorization response", http.StatusBadRequest)
		return
	}

	d.inbox.Post(state, Message{Fields: fields})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Authorization received</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
}

// shutdownServer gracefully shuts down an HTTP server, logging failures.
func shutdownServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", slog.String("error", err.Error()))
	}
}

// launchBrowser attempts to open the URL. If it fails, prints the URL to
// stderr so the user can copy-paste it.
func launchBrowser(target string, openURL func(string) error, logger *slog.Logger) {
	logger.Info("opening browser for authorization")

	if openURL == nil {
		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", target)
		return
	}

	if openErr := openURL(target); openErr != nil {
		logger.Warn("failed to open browser, printing URL",
			slog.String("error", openErr.Error()),
		)

		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", target)
	}
}
