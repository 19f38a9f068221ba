package release

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexJSON = `[
 {"version": "go1.26.0", "stable": true, "files": [
  {"filename": "go1.26.0.linux-amd64.tar.gz", "os": "linux", "arch": "amd64", "version": "go1.26.0", "sha256": "aaa", "size": 10, "kind": "archive"}
 ]},
 {"version": "go1.27rc1", "stable": false, "files": []},
 {"version": "go1.25.6", "stable": true, "files": [
  {"filename": "go1.25.6.src.tar.gz", "os": "", "arch": "", "version": "go1.25.6", "sha256": "src", "size": 5, "kind": "source"},
  {"filename": "go1.25.6.linux-arm64.tar.gz", "os": "linux", "arch": "arm64", "version": "go1.25.6", "sha256": "bbb", "size": 9, "kind": "archive"},
  {"filename": "go1.25.6.linux-amd64.tar.gz", "os": "linux", "arch": "amd64", "version": "go1.25.6", "sha256": "ccc", "size": 9, "kind": "archive"}
 ]}
]`

func serveIndex(t *testing.T, handler http.HandlerFunc) *http.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	origURL, origDelay := IndexURL, retryDelay
	IndexURL = srv.URL + "/dl/?mode=json&include=all"
	retryDelay = time.Millisecond
	t.Cleanup(func() { IndexURL, retryDelay = origURL, origDelay })
	return srv.Client()
}

func TestChecksum(t *testing.T) {
	client := serveIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("mode"))
		_, _ = w.Write([]byte(indexJSON))
	})

	sum, err := Checksum("1.25.6", "linux", "amd64")(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, "ccc", sum)

	sum, err = Checksum("go1.25.6", "linux", "arm64")(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, "bbb", sum)
}

func TestFind_Missing(t *testing.T) {
	var releases []Release
	require.NoError(t, decode(indexJSON, &releases))

	_, err := Find(releases, "1.24.0", "linux", "amd64")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Find(releases, "1.26.0", "linux", "riscv64")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "linux/riscv64")
}

func TestLatest_SkipsUnstable(t *testing.T) {
	var releases []Release
	require.NoError(t, decode(indexJSON, &releases))
	latest, err := Latest(releases)
	require.NoError(t, err)
	assert.Equal(t, "1.26.0", latest)

	_, err = Latest(nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIndex_RetriesServerError(t *testing.T) {
	calls := 0
	client := serveIndex(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(indexJSON))
	})
	releases, err := Index(context.Background(), client)
	require.NoError(t, err)
	assert.Len(t, releases, 3)
	assert.Equal(t, 2, calls)
}

func TestIndex_Errors(t *testing.T) {
	client := serveIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := Index(context.Background(), client)
	assert.ErrorContains(t, err, "unexpected status 404")

	client = serveIndex(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	_, err = Index(context.Background(), client)
	assert.ErrorContains(t, err, "decode go release index")
}

func decode(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}

func TestIndexBackoffHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := serveIndex(t, func(w http.ResponseWriter, r *http.Request) {
		cancel()
		w.WriteHeader(http.StatusBadGateway)
	})
	retryDelay = time.Hour

	start := time.Now()
	_, err := Index(ctx, client)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 10*time.Second)
}
