package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalName(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{testWebURL, "IT.kdbx"},
		{"Vault/Personal.kdbx", "Personal.kdbx"},
		{"https://contoso.sharepoint.com/sites/IT/Accounts/IT.kdbx?web=1", "IT.kdbx"},
		{"a.kdbx/", "a.kdbx"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, localName(tt.remote), tt.remote)
	}
}

func TestStatCommand_JSON(t *testing.T) {
	fg := newFakeGraph(t)
	cfgPath, _ := setupCLI(t, fg.URL)

	stdout, _, err := runCLI(t, "--config", cfgPath, "--json", "stat", testWebURL, testWebURL)
	require.NoError(t, err)

	var out []statOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out, 2)

	for _, o := range out {
		assert.Equal(t, testWebURL, o.Path)
		assert.Equal(t, "rev-1", o.Rev)
		assert.Equal(t, int64(len(kdbxBytes)), o.Size)
		assert.Equal(t, "2026-03-01T10:00:00Z", o.ModifiedAt)
	}

	// Each stat resolves and fetches on its own.
	assert.Equal(t, int32(4), fg.requests.Load())
}

func TestStatCommand_UnknownCollection(t *testing.T) {
	fg := newFakeGraph(t)
	cfgPath, _ := setupCLI(t, fg.URL)

	_, _, err := runCLI(t, "--config", cfgPath, "stat", "https://contoso.sharepoint.com/sites/IT/Other/IT.kdbx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `collection not found: "Other"`)
}

func TestResolveCommand(t *testing.T) {
	fg := newFakeGraph(t)
	cfgPath, _ := setupCLI(t, fg.URL)

	stdout, _, err := runCLI(t, "--config", cfgPath, "resolve", testWebURL)
	require.NoError(t, err)
	assert.Equal(t, testItemPath+"\n", stdout)
}

func TestGetAndPutCommands(t *testing.T) {
	fg := newFakeGraph(t)
	cfgPath, _ := setupCLI(t, fg.URL)

	local := filepath.Join(t.TempDir(), "copy.kdbx")

	_, _, err := runCLI(t, "--config", cfgPath, "--quiet", "get", testWebURL, local)
	require.NoError(t, err)

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, kdbxBytes, data)

	stdout, _, err := runCLI(t, "--config", cfgPath, "--json", "put", "--rev", "rev-1", local, testWebURL)
	require.NoError(t, err)

	var out []statOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "rev-2", out[0].Rev)
}

func TestPutCommand_RejectsNonKDBX(t *testing.T) {
	fg := newFakeGraph(t)
	cfgPath, _ := setupCLI(t, fg.URL)

	local := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(local, []byte("plain text notes"), 0o600))

	_, _, err := runCLI(t, "--config", cfgPath, "put", local, testWebURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a KDBX database")
	assert.Zero(t, fg.requests.Load())
}
