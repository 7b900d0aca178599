// Package storage exposes database files held in OneDrive and SharePoint as
// load, stat, and save operations. The Teams provider accepts SharePoint
// document-library URLs and runs every operation as authorize, then resolve,
// then operate.
package storage

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tonimelisma/teams-kdbx/internal/graph"
)

// Stat describes a remote file revision.
type Stat struct {
	Rev        string
	Size       int64
	ModifiedAt time.Time
}

// Provider is the load/stat/save contract the application model uses.
type Provider interface {
	Name() string
	Load(ctx context.Context, path string) ([]byte, Stat, error)
	Stat(ctx context.Context, path string) (Stat, error)
	Save(ctx context.Context, path string, data []byte, rev string) (Stat, error)
}

// Authorizer produces an authorized session. auth.Coordinator implements it.
type Authorizer interface {
	Authorize(ctx context.Context) (graph.TokenSource, error)
}

// ClientFactory builds a Graph client around an authorized session.
type ClientFactory func(ts graph.TokenSource) *graph.Client

// NewClientFactory returns a ClientFactory using the given transport
// settings. Its clients never retry: a failed provider call is reported to
// the caller after one attempt.
func NewClientFactory(baseURL string, httpClient *http.Client, userAgent string, logger *slog.Logger) ClientFactory {
	return func(ts graph.TokenSource) *graph.Client {
		c := graph.NewClient(baseURL, httpClient, ts, logger, userAgent)
		c.DisableRetries()

		return c
	}
}

func statFromItem(item *graph.Item) Stat {
	return Stat{Rev: item.ETag, Size: item.Size, ModifiedAt: item.ModifiedAt}
}
