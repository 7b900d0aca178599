package auth

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/teams-kdbx/internal/store"
)

const testOrigin = "http://127.0.0.1:8088"

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "store.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return st
}

// tokenServer is a fake authority. It records the last exchange form.
type tokenServer struct {
	*httptest.Server
	exchanges atomic.Int32
	mu        sync.Mutex
	lastForm  map[string]string
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()

	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/v2.0/token" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		assert.NoError(t, r.ParseForm())

		form := make(map[string]string)
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}

		ts.mu.Lock()
		ts.lastForm = form
		ts.mu.Unlock()
		ts.exchanges.Add(1)

		if form["grant_type"] == "refresh_token" && form["refresh_token"] == "revoked" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-" + form["code"],
			"token_type":    "Bearer",
			"refresh_token": "refresh-token",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(ts.Close)

	return ts
}

func (ts *tokenServer) form() map[string]string {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	return ts.lastForm
}

func testSettings(authority, origin string) Settings {
	return Settings{
		Authority: authority,
		Origin:    origin,
	}
}

// freeOrigin returns an http origin on a loopback port that was free a
// moment ago.
func freeOrigin(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return "http://" + addr
}

// noRedirectClient returns redirects instead of following them.
var noRedirectClient = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}
