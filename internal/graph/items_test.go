package graph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testItemPath = "/drives/ABC123/root:/IT.kdbx"

func testPath() ItemPath {
	return ItemPath{p: testItemPath}
}

func TestGetItemAt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, testItemPath, r.URL.Path)
		_, _ = fmt.Fprint(w, `{
			"id": "01ITEM",
			"name": "IT.kdbx",
			"size": 2048,
			"eTag": "\"{ETAG},3\"",
			"cTag": "\"c:{ETAG},3\"",
			"lastModifiedDateTime": "2026-03-01T10:00:00Z",
			"file": {"mimeType": "application/octet-stream"}
		}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	item, err := client.GetItemAt(context.Background(), testPath())
	require.NoError(t, err)

	assert.Equal(t, "01ITEM", item.ID)
	assert.Equal(t, "IT.kdbx", item.Name)
	assert.Equal(t, int64(2048), item.Size)
	assert.Equal(t, `"{ETAG},3"`, item.ETag)
	assert.False(t, item.IsFolder)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), item.ModifiedAt)
}

func TestGetItemAt_ZeroPath(t *testing.T) {
	client := newTestClient(t, "http://unused")

	_, err := client.GetItemAt(context.Background(), ItemPath{})
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestGetItemAt_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.GetItemAt(context.Background(), testPath())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetItemAt_BadTimestampFallsBackToNow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"id":"1","name":"a.kdbx","lastModifiedDateTime":"yesterday"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	before := time.Now().UTC().Add(-time.Second)

	item, err := client.GetItemAt(context.Background(), testPath())
	require.NoError(t, err)
	assert.True(t, item.ModifiedAt.After(before))
}

func TestDownloadAt_UsesPreauthenticatedURL(t *testing.T) {
	content := []byte("database-bytes")

	dl := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "download URL must not receive the bearer token")
		_, _ = w.Write(content)
	}))
	defer dl.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testItemPath, r.URL.Path)
		_, _ = fmt.Fprintf(w, `{"id":"1","name":"IT.kdbx","size":%d,"eTag":"rev-1",`+
			`"lastModifiedDateTime":"2026-03-01T10:00:00Z","@microsoft.graph.downloadUrl":%q}`,
			len(content), dl.URL+"/blob")
	}))
	defer api.Close()

	client := newTestClient(t, api.URL)

	var buf bytes.Buffer
	item, err := client.DownloadAt(context.Background(), testPath(), &buf)
	require.NoError(t, err)

	assert.Equal(t, content, buf.Bytes())
	assert.Equal(t, "rev-1", item.ETag)
}

func TestDownloadAt_FallsBackToContentEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case testItemPath:
			_, _ = fmt.Fprint(w, `{"id":"1","name":"IT.kdbx","eTag":"rev-2","lastModifiedDateTime":"2026-03-01T10:00:00Z"}`)
		case testItemPath + ":/content":
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte("via-content"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	var buf bytes.Buffer
	item, err := client.DownloadAt(context.Background(), testPath(), &buf)
	require.NoError(t, err)

	assert.Equal(t, "via-content", buf.String())
	assert.Equal(t, "rev-2", item.ETag)
}

func TestDownloadAt_Folder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"id":"1","name":"dir","folder":{"childCount":2},"lastModifiedDateTime":"2026-03-01T10:00:00Z"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.DownloadAt(context.Background(), testPath(), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item is a folder")
}

func TestDownloadAt_DownloadURLFailure(t *testing.T) {
	dl := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer dl.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, `{"id":"1","name":"IT.kdbx","lastModifiedDateTime":"2026-03-01T10:00:00Z",`+
			`"@microsoft.graph.downloadUrl":%q}`, dl.URL)
	}))
	defer api.Close()

	client := newTestClient(t, api.URL)
	_, err := client.DownloadAt(context.Background(), testPath(), io.Discard)
	assert.ErrorIs(t, err, ErrGone)
}

func TestUploadAt_SendsIfMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, testItemPath+":/content", r.URL.Path)
		assert.Equal(t, "rev-1", r.Header.Get("If-Match"))
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, "new-bytes", string(body))

		_, _ = fmt.Fprint(w, `{"id":"1","name":"IT.kdbx","size":9,"eTag":"rev-2","lastModifiedDateTime":"2026-03-02T10:00:00Z"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	item, err := client.UploadAt(context.Background(), testPath(), []byte("new-bytes"), "rev-1")
	require.NoError(t, err)
	assert.Equal(t, "rev-2", item.ETag)
	assert.Equal(t, int64(9), item.Size)
}

func TestUploadAt_NoIfMatchWhenRevEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["If-Match"]
		assert.False(t, present)
		_, _ = fmt.Fprint(w, `{"id":"1","eTag":"rev-1","lastModifiedDateTime":"2026-03-02T10:00:00Z"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.UploadAt(context.Background(), testPath(), []byte("x"), "")
	require.NoError(t, err)
}

func TestUploadAt_StaleRevision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPreconditionFailed)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.UploadAt(context.Background(), testPath(), []byte("x"), "old")
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestRootItemPath(t *testing.T) {
	assert.Equal(t, "/drive/root:/Vault/My%20DB.kdbx", RootItemPath("Vault/My DB.kdbx").String())
	assert.Equal(t, "/drive/root:/a.kdbx", RootItemPath("/a.kdbx").String())
}

func TestUploadAt_ServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.UploadAt(context.Background(), testPath(), []byte("x"), "rev-1")
	assert.ErrorIs(t, err, ErrServerError)
	assert.Equal(t, int32(1), calls.Load())
}
