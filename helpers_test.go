package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/teams-kdbx/internal/config"
	"github.com/tonimelisma/teams-kdbx/internal/store"
)

const (
	testOrigin   = "http://localhost:8088"
	testWebURL   = "https://contoso.sharepoint.com/sites/IT/Accounts/IT.kdbx"
	testItemPath = "/drives/ABC123/root:/IT.kdbx"
)

// kdbxBytes starts with the KDBX signature.
var kdbxBytes = []byte{0x03, 0xD9, 0xA2, 0x9A, 0x67, 0xFB, 0x4B, 0xB5, 0x01, 0x00, 0x04, 0x00}

// fakeGraph serves one SharePoint library holding IT.kdbx.
type fakeGraph struct {
	*httptest.Server
	requests atomic.Int32
}

func newFakeGraph(t *testing.T) *fakeGraph {
	t.Helper()

	fg := &fakeGraph{}
	fg.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fg.requests.Add(1)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		switch {
		case r.URL.Path == "/sites/contoso.sharepoint.com:/sites/IT:/drives":
			_, _ = fmt.Fprint(w, `{"value":[{"id":"ABC123","webUrl":"https://contoso.sharepoint.com/sites/IT/Accounts"}]}`)
		case r.URL.Path == testItemPath:
			_, _ = fmt.Fprintf(w, `{"id":"1","name":"IT.kdbx","size":%d,"eTag":"rev-1",`+
				`"lastModifiedDateTime":"2026-03-01T10:00:00Z","file":{}}`, len(kdbxBytes))
		case r.URL.Path == testItemPath+":/content" && r.Method == http.MethodGet:
			_, _ = w.Write(kdbxBytes)
		case r.URL.Path == testItemPath+":/content" && r.Method == http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			_, _ = fmt.Fprintf(w, `{"id":"1","name":"IT.kdbx","size":%d,"eTag":"rev-2",`+
				`"lastModifiedDateTime":"2026-03-02T10:00:00Z","file":{}}`, len(body))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(fg.Close)

	return fg
}

// setupCLI writes a config pointing at graphURL, stores a valid token for
// the default origin, and returns the config path and data directory.
func setupCLI(t *testing.T, graphURL string) (string, string) {
	t.Helper()

	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvDataDir, "")
	t.Setenv(config.EnvNativeHost, "")

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o700))

	cfgPath := filepath.Join(dir, "config.toml")
	cfg := fmt.Sprintf("data_dir = %q\nlog_level = \"error\"\nlog_format = \"text\"\n\n[teams]\ngraph_base_url = %q\norigin = %q\n",
		dataDir, graphURL, testOrigin)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	st, err := store.Open(context.Background(), filepath.Join(dataDir, "origin-store.db"), nil)
	require.NoError(t, err)

	tok := `{"token":{"access_token":"test-token","token_type":"Bearer","expiry":"2099-01-01T00:00:00Z"}}`
	require.NoError(t, st.Set(context.Background(), testOrigin, "oauth.teams.token", tok))
	require.NoError(t, st.Close())

	return cfgPath, dataDir
}

// runCLI executes the root command and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}
