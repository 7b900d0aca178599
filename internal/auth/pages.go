package auth

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/teams-kdbx/internal/locale"
	"github.com/tonimelisma/teams-kdbx/internal/store"
)

var resultPage = template.Must(template.New("result").Parse(
	`<!DOCTYPE html><html><head><meta charset="utf-8"><title>{{.Title}}</title></head>` +
		`<body><h1>{{.Title}}</h1>{{if .Detail}}<pre>{{.Detail}}</pre>{{end}}</body></html>`))

// Pages serves the secondary context of a host handoff:
//
//	GET /teams/start-auth?handoff=<id>  redirects to the parked authorize URL
//	GET /teams/auth-end?state=<id>&...  hands the redirect result to the host
type Pages struct {
	store    Store
	notifier HostNotifier
	origin   string
	printer  *locale.Printer
	logger   *slog.Logger
	handler  http.Handler
}

// NewPages builds the handler. origin scopes the sticky mode lookup.
func NewPages(st Store, notifier HostNotifier, origin string, printer *locale.Printer, logger *slog.Logger) *Pages {
	if logger == nil {
		logger = slog.Default()
	}

	if printer == nil {
		printer = locale.New("en")
	}

	p := &Pages{
		store:    st,
		notifier: notifier,
		origin:   origin,
		printer:  printer,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+StartAuthPath, p.startAuth)
	mux.HandleFunc("GET "+AuthEndPath, p.authEnd)
	p.handler = newRateLimiter(pageRate, pageBurst).limit(mux)

	return p
}

// ServeHTTP implements http.Handler.
func (p *Pages) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	p.handler.ServeHTTP(w, r)
}

func (p *Pages) startAuth(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("handoff")
	if id == "" {
		http.Error(w, "missing handoff parameter", http.StatusBadRequest)
		return
	}

	rec, err := p.store.LoadHandoff(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired) {
		p.logger.Warn("start-auth for unknown handoff", slog.String("handoff_id", id))
		http.Error(w, "unknown or expired sign-in request", http.StatusNotFound)

		return
	}

	if err != nil {
		p.logger.Error("loading handoff", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	if !p.owns(rec) {
		p.foreignHandoff(w, rec)
		return
	}

	p.logger.Debug("redirecting to authorize URL", slog.String("handoff_id", id))
	http.Redirect(w, r, rec.AuthURL, http.StatusFound)
}

func (p *Pages) authEnd(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	state := q.Get("state")
	if state == "" {
		http.Error(w, "missing state parameter", http.StatusBadRequest)
		return
	}

	// Records belonging to another origin or provider are left in place for
	// their owner.
	peek, err := p.store.LoadHandoff(r.Context(), state)
	if err == nil && !p.owns(peek) {
		p.foreignHandoff(w, peek)
		return
	}

	if err != nil && !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrExpired) {
		p.logger.Error("loading handoff", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	rec, err := p.store.TakeHandoff(r.Context(), state)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired) {
		p.staleResult(w, r, state)
		return
	}

	if err != nil {
		p.logger.Error("taking handoff", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	if e := q.Get("error"); e != "" {
		p.logger.Warn("provider returned an error",
			slog.String("handoff_id", rec.ID),
			slog.String("error", e),
		)
		p.notifier.NotifyFailure(rec.ID, e)
		p.render(w, http.StatusOK, p.printer.T(locale.AuthFailed), e)

		return
	}

	fields := make(map[string]string, len(q))
	for k := range q {
		fields[k] = q.Get(k)
	}

	p.notifier.NotifySuccess(rec.ID, fields)
	p.render(w, http.StatusOK, p.printer.T(locale.AuthComplete), "")
}

// owns reports whether rec was started by this origin for this provider.
func (p *Pages) owns(rec *store.Handoff) bool {
	return rec.Origin == p.origin && rec.Provider == ProviderKey
}

func (p *Pages) foreignHandoff(w http.ResponseWriter, rec *store.Handoff) {
	p.logger.Warn("handoff belongs to another origin",
		slog.String("handoff_id", rec.ID),
		slog.String("origin", rec.Origin),
		slog.String("provider", rec.Provider),
	)
	http.Error(w, "unknown or expired sign-in request", http.StatusNotFound)
}

// staleResult answers an auth-end request with no live record. With the
// sticky mode flag set the request belonged to an old handoff; otherwise
// this page was never part of one.
func (p *Pages) staleResult(w http.ResponseWriter, r *http.Request, state string) {
	mode, err := p.store.Get(r.Context(), p.origin, StickyModeKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		p.logger.Error("reading handoff mode", slog.String("error", err.Error()))
	}

	if mode != "true" {
		http.Error(w, "no sign-in in progress", http.StatusBadRequest)
		return
	}

	p.logger.Warn("auth-end for stale handoff", slog.String("handoff_id", state))
	p.notifier.NotifyFailure(state, "stale handoff")
	p.render(w, http.StatusGone, p.printer.T(locale.AuthFailed), "")
}

func (p *Pages) render(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := resultPage.Execute(w, struct{ Title, Detail string }{title, detail}); err != nil {
		p.logger.Warn("rendering page", slog.String("error", err.Error()))
	}
}
