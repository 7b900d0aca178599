// Package autoopen opens a database named by launch parameters once at
// startup.
package autoopen

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tonimelisma/teams-kdbx/internal/app"
	"github.com/tonimelisma/teams-kdbx/internal/launch"
	"github.com/tonimelisma/teams-kdbx/internal/locale"
	"github.com/tonimelisma/teams-kdbx/internal/protected"
)

// RequestName is the display name given to auto-opened files.
const RequestName = "Auto-opened"

// Opener opens a database. app.Model implements it.
type Opener interface {
	OpenFile(ctx context.Context, req *app.FileOpenRequest) (*app.OpenedFile, error)
}

// Alert is a plain error notice: a header, a body, and preformatted detail.
type Alert struct {
	Header string
	Body   string
	Pre    string
}

// Notifier shows the outcome of an auto-open to the user.
type Notifier interface {
	Error(a Alert)
	Opened(f *app.OpenedFile)
}

// Trigger runs the auto-open at most once.
type Trigger struct {
	opener     Opener
	notifier   Notifier
	printer    *locale.Printer
	nativeHost bool
	logger     *slog.Logger

	once sync.Once
}

// New creates a Trigger. nativeHost disables it entirely.
func New(opener Opener, notifier Notifier, printer *locale.Printer, nativeHost bool, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}

	if printer == nil {
		printer = locale.New("en")
	}

	return &Trigger{
		opener:     opener,
		notifier:   notifier,
		printer:    printer,
		nativeHost: nativeHost,
		logger:     logger,
	}
}

// Run opens the file named by the storage and path parameters. It reports
// whether an open was attempted: false under a native host, when either
// parameter is absent, or on any call after the first. Open failures go to
// the Notifier and are not retried.
func (t *Trigger) Run(ctx context.Context, p launch.Params) bool {
	attempted := false

	t.once.Do(func() {
		attempted = t.run(ctx, p)
	})

	return attempted
}

func (t *Trigger) run(ctx context.Context, p launch.Params) bool {
	if t.nativeHost {
		t.logger.Debug("auto-open skipped under native host")
		return false
	}

	if !p.Has(launch.KeyStorage) || !p.Has(launch.KeyPath) {
		return false
	}

	req := &app.FileOpenRequest{
		Name:     RequestName,
		Storage:  p.Get(launch.KeyStorage),
		Path:     p.Get(launch.KeyPath),
		Password: protected.FromString(p.Get(launch.KeyPassword)),
	}

	t.logger.Info("auto-opening file", slog.String("storage", req.Storage))

	opened, err := t.opener.OpenFile(ctx, req)
	if err != nil {
		t.logger.Warn("auto-open failed", slog.String("error", err.Error()))
		t.notifier.Error(Alert{
			Header: t.printer.T(locale.OpenError),
			Body:   t.printer.T(locale.OpenErrorDescription),
			Pre:    err.Error(),
		})

		return true
	}

	t.notifier.Opened(opened)

	return true
}
