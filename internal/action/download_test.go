package action

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/devsetup/internal/config"
)

func noSleep(t *testing.T) {
	t.Helper()
	prev := downloadWait
	downloadWait = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { downloadWait = prev })
}

func TestDownloadVerifiesAndWrites(t *testing.T) {
	noSleep(t)
	payload := []byte("tarball bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	env, fake, _ := newEnv(t, config.ModeApply)
	env.HTTPClient = srv.Client()
	a := Download{URL: srv.URL + "/go.tgz", Dest: "/var/cache/devsetup/go.tgz", SHA256: fmt.Sprintf("%x", sha256.Sum256(payload))}

	require.NoError(t, Execute(context.Background(), a, env))
	assert.Equal(t, string(payload), fake.FileContent("/var/cache/devsetup/go.tgz"))

	before := len(fake.Mutations)
	require.NoError(t, Execute(context.Background(), a, env))
	assert.Len(t, fake.Mutations, before, "verified file is reused")
}

func TestDownloadChecksumMismatch(t *testing.T) {
	noSleep(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tampered"))
	}))
	defer srv.Close()

	env, fake, _ := newEnv(t, config.ModeApply)
	env.HTTPClient = srv.Client()
	err := Execute(context.Background(), Download{URL: srv.URL, Dest: "/tmp/x", SHA256: "00"}, env)
	assert.ErrorContains(t, err, "checksum mismatch")
	assert.False(t, fake.HasFile("/tmp/x"))
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	noSleep(t)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	env, fake, buf := newEnv(t, config.ModeApply)
	env.HTTPClient = srv.Client()
	require.NoError(t, Execute(context.Background(), Download{URL: srv.URL, Dest: "/tmp/x"}, env))
	assert.Equal(t, 3, calls)
	assert.Equal(t, "ok", fake.FileContent("/tmp/x"))
	assert.Contains(t, buf.String(), "[WARN] Retrying download")
}

func TestDownloadDoesNotRetryClientErrors(t *testing.T) {
	noSleep(t)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	env, _, _ := newEnv(t, config.ModeApply)
	env.HTTPClient = srv.Client()
	err := Execute(context.Background(), Download{URL: srv.URL, Dest: "/tmp/x"}, env)
	assert.ErrorContains(t, err, "404")
	assert.Equal(t, 1, calls)
}

func TestDownloadTooLarge(t *testing.T) {
	noSleep(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	env, _, _ := newEnv(t, config.ModeApply)
	env.HTTPClient = srv.Client()
	err := Execute(context.Background(), Download{URL: srv.URL, Dest: "/tmp/x", MaxBytes: 16}, env)
	assert.ErrorContains(t, err, "exceeds 16 bytes")
}

func TestDownloadSkips(t *testing.T) {
	env, fake, buf := newEnv(t, config.ModeApply)
	fake.AddExecutable("/usr/local/go/bin/go")
	a := Download{URL: "http://127.0.0.1:1/go.tgz", Dest: "/tmp/go.tgz", Creates: "/usr/local/go/bin/go"}
	require.NoError(t, Execute(context.Background(), a, env))
	assert.Contains(t, buf.String(), "Already satisfied")

	dry, fake, buf := newEnv(t, config.ModeDryRun)
	a.Creates = ""
	require.NoError(t, Execute(context.Background(), a, dry))
	assert.Empty(t, fake.Mutations)
	assert.Contains(t, buf.String(), "[dry-run] would download http://127.0.0.1:1/go.tgz to /tmp/go.tgz")
}

func TestDownloadResolvesChecksum(t *testing.T) {
	noSleep(t)
	payload := []byte("release archive")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	env, fake, _ := newEnv(t, config.ModeApply)
	env.HTTPClient = srv.Client()
	var gotClient *http.Client
	a := Download{URL: srv.URL, Dest: "/var/cache/devsetup/a.tgz", Checksum: func(_ context.Context, c *http.Client) (string, error) {
		gotClient = c
		return fmt.Sprintf("%x", sha256.Sum256(payload)), nil
	}}
	require.NoError(t, Execute(context.Background(), a, env))
	assert.Same(t, env.HTTPClient, gotClient)
	assert.True(t, fake.HasFile("/var/cache/devsetup/a.tgz"))

	a.Dest = "/var/cache/devsetup/b.tgz"
	a.Checksum = func(context.Context, *http.Client) (string, error) { return "ff", nil }
	assert.ErrorContains(t, Execute(context.Background(), a, env), "checksum mismatch")

	a.Checksum = func(context.Context, *http.Client) (string, error) { return "", errors.New("index unavailable") }
	err := Execute(context.Background(), a, env)
	assert.ErrorContains(t, err, "resolve checksum for")
	assert.ErrorContains(t, err, "index unavailable")
	assert.False(t, fake.HasFile("/var/cache/devsetup/b.tgz"))
}

func TestWaitContextStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, waitContext(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.NoError(t, waitContext(context.Background(), time.Millisecond))
}
