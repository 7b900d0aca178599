package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/teams-kdbx/internal/store"
)

// tokenKey is the per-origin store entry holding the OAuth token.
const tokenKey = "oauth.teams.token" //nolint:gosec // G101: key name, not a credential

// tokenRecord is the stored form of a token: the OAuth token plus metadata
// about how it was obtained.
type tokenRecord struct {
	Token *oauth2.Token     `json:"token"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// loadToken reads the stored token for origin. Returns ErrNotLoggedIn when
// none is stored.
func loadToken(ctx context.Context, st Store, origin string) (*tokenRecord, error) {
	raw, err := st.Get(ctx, origin, tokenKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotLoggedIn
	}

	if err != nil {
		return nil, fmt.Errorf("auth: reading token: %w", err)
	}

	var rec tokenRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("auth: decoding token: %w", err)
	}

	if rec.Token == nil {
		return nil, errors.New("auth: stored token missing token field (re-login required)")
	}

	return &rec, nil
}

// saveToken writes tok for origin, replacing any previous token.
func saveToken(ctx context.Context, st Store, origin string, tok *oauth2.Token, meta map[string]string) error {
	data, err := json.Marshal(tokenRecord{Token: tok, Meta: meta})
	if err != nil {
		return fmt.Errorf("auth: encoding token: %w", err)
	}

	if err := st.Set(ctx, origin, tokenKey, string(data)); err != nil {
		return fmt.Errorf("auth: saving token: %w", err)
	}

	return nil
}

// tokenBridge adapts oauth2.TokenSource to graph.TokenSource and logs every
// token acquisition so refresh activity is visible.
type tokenBridge struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

func (b *tokenBridge) Token() (string, error) {
	t, err := b.src.Token()
	if err != nil {
		b.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("auth: obtaining token: %w", err)
	}

	b.logger.Debug("token acquired",
		slog.Time("expiry", t.Expiry),
		slog.Bool("valid", t.Valid()),
	)

	return t.AccessToken, nil
}
