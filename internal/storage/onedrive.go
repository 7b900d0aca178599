package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/teams-kdbx/internal/graph"
)

// The low-level operations take a resolved item path and a client built
// from an authorized session. Their results are passed through unchanged by
// every provider.

func loadAt(ctx context.Context, client *graph.Client, p graph.ItemPath) (loaded, error) {
	var buf bytes.Buffer

	item, err := client.DownloadAt(ctx, p, &buf)
	if err != nil {
		return loaded{}, err
	}

	return loaded{data: buf.Bytes(), stat: statFromItem(item)}, nil
}

func statAt(ctx context.Context, client *graph.Client, p graph.ItemPath) (Stat, error) {
	item, err := client.GetItemAt(ctx, p)
	if err != nil {
		return Stat{}, err
	}

	if item.IsFolder {
		return Stat{}, fmt.Errorf("storage: %s is a folder", p)
	}

	return statFromItem(item), nil
}

func saveAt(data []byte, rev string) func(context.Context, *graph.Client, graph.ItemPath) (Stat, error) {
	return func(ctx context.Context, client *graph.Client, p graph.ItemPath) (Stat, error) {
		item, err := client.UploadAt(ctx, p, data, rev)
		if err != nil {
			return Stat{}, err
		}

		return statFromItem(item), nil
	}
}

type loaded struct {
	data []byte
	stat Stat
}

// OneDrive reaches files by path under the signed-in user's own drive,
// e.g. "Vault/Personal.kdbx".
type OneDrive struct {
	auth      Authorizer
	newClient ClientFactory
	logger    *slog.Logger
}

// NewOneDrive creates the OneDrive provider.
func NewOneDrive(auth Authorizer, newClient ClientFactory, logger *slog.Logger) *OneDrive {
	if logger == nil {
		logger = slog.Default()
	}

	return &OneDrive{auth: auth, newClient: newClient, logger: logger}
}

// Name implements Provider.
func (o *OneDrive) Name() string { return "onedrive" }

func (o *OneDrive) client(ctx context.Context) (*graph.Client, error) {
	ts, err := o.auth.Authorize(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: authorizing onedrive: %w", err)
	}

	return o.newClient(ts), nil
}

// Load implements Provider.
func (o *OneDrive) Load(ctx context.Context, path string) ([]byte, Stat, error) {
	client, err := o.client(ctx)
	if err != nil {
		return nil, Stat{}, err
	}

	res, err := loadAt(ctx, client, graph.RootItemPath(path))
	if err != nil {
		return nil, Stat{}, err
	}

	o.logger.Debug("loaded file", slog.String("path", path), slog.Int("bytes", len(res.data)))

	return res.data, res.stat, nil
}

// Stat implements Provider.
func (o *OneDrive) Stat(ctx context.Context, path string) (Stat, error) {
	client, err := o.client(ctx)
	if err != nil {
		return Stat{}, err
	}

	return statAt(ctx, client, graph.RootItemPath(path))
}

// Save implements Provider.
func (o *OneDrive) Save(ctx context.Context, path string, data []byte, rev string) (Stat, error) {
	client, err := o.client(ctx)
	if err != nil {
		return Stat{}, err
	}

	return saveAt(data, rev)(ctx, client, graph.RootItemPath(path))
}
