package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/teams-kdbx/internal/graph"
)

// Teams reaches files by their SharePoint document-library URL, e.g.
// https://contoso.sharepoint.com/sites/IT/Accounts/IT.kdbx.
type Teams struct {
	auth         Authorizer
	newClient    ClientFactory
	resourceRoot string
	logger       *slog.Logger
}

// NewTeams creates the Teams provider. An empty resourceRoot uses
// graph.DefaultResourceRoot.
func NewTeams(auth Authorizer, newClient ClientFactory, resourceRoot string, logger *slog.Logger) *Teams {
	if logger == nil {
		logger = slog.Default()
	}

	if resourceRoot == "" {
		resourceRoot = graph.DefaultResourceRoot
	}

	return &Teams{auth: auth, newClient: newClient, resourceRoot: resourceRoot, logger: logger}
}

// Name implements Provider.
func (t *Teams) Name() string { return "teams" }

// Load implements Provider.
func (t *Teams) Load(ctx context.Context, webURL string) ([]byte, Stat, error) {
	res, err := withGraphPath(ctx, t, webURL, loadAt)
	if err != nil {
		return nil, Stat{}, err
	}

	return res.data, res.stat, nil
}

// Stat implements Provider.
func (t *Teams) Stat(ctx context.Context, webURL string) (Stat, error) {
	return withGraphPath(ctx, t, webURL, statAt)
}

// Save implements Provider. A non-empty rev must match the remote revision.
func (t *Teams) Save(ctx context.Context, webURL string, data []byte, rev string) (Stat, error) {
	return withGraphPath(ctx, t, webURL, saveAt(data, rev))
}

// Resolve authorizes and returns the Graph item path for webURL without
// touching the file.
func (t *Teams) Resolve(ctx context.Context, webURL string) (graph.ItemPath, error) {
	return withGraphPath(ctx, t, webURL,
		func(_ context.Context, _ *graph.Client, p graph.ItemPath) (graph.ItemPath, error) {
			return p, nil
		})
}

// withGraphPath authorizes, resolves webURL, and runs op exactly once with
// the resolved path. A failed step ends the call with its error; op is
// unreachable without both a client from an authorized session and an
// ItemPath. Nothing is retried or shared between concurrent calls.
func withGraphPath[T any](
	ctx context.Context, t *Teams, webURL string,
	op func(context.Context, *graph.Client, graph.ItemPath) (T, error),
) (T, error) {
	var zero T

	ts, err := t.auth.Authorize(ctx)
	if err != nil {
		return zero, fmt.Errorf("storage: authorizing teams: %w", err)
	}

	client := t.newClient(ts)

	p, err := client.ResolveWebURL(ctx, webURL, t.resourceRoot)
	if err != nil {
		t.logger.Debug("resolving web URL failed", slog.String("error", err.Error()))
		return zero, err
	}

	return op(ctx, client, p)
}
