package action

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/conn-castle/devsetup/internal/messages"
)

const (
	defaultMaxDownloadBytes = int64(512 << 20)
	downloadRetryCount      = 2
	downloadRetryBackoff    = 500 * time.Millisecond
)

var (
	defaultHTTPClient = &http.Client{Timeout: 10 * time.Minute}
	downloadWait      = waitContext
)

// Download fetches a URL to a file, verifying its SHA-256 when one is pinned.
// Transient network failures and 5xx responses are retried a bounded number of times.
type Download struct {
	URL  string
	Dest string
	// SHA256 is the expected hex digest; empty skips verification.
	SHA256 string
	// Checksum resolves the expected digest when SHA256 is empty.
	Checksum func(ctx context.Context, client *http.Client) (string, error)
	// Creates skips the download when this path already exists.
	Creates  string
	MaxBytes int64
}

func (a Download) Kind() Kind { return KindDownload }

func (a Download) Describe() string { return "download " + a.URL }

func (a Download) Run(ctx context.Context, env Env) error {
	if a.Creates != "" {
		found, err := exists(env, a.Creates)
		if err != nil {
			return err
		}
		if found {
			satisfied(env, a.Describe())
			return nil
		}
	}
	if current, err := env.System.ReadFile(a.Dest); err == nil {
		if a.SHA256 == "" || verifySHA256(current, a.SHA256) == nil {
			satisfied(env, a.Describe())
			return nil
		}
	}
	if env.Config.DryRun() {
		wouldDo(env, "download %s to %s", a.URL, a.Dest)
		return nil
	}

	sum := a.SHA256
	if sum == "" && a.Checksum != nil {
		resolved, err := a.Checksum(ctx, httpClient(env))
		if err != nil {
			return fmt.Errorf(messages.ActionChecksumLookupFmt, a.URL, err)
		}
		sum = resolved
		env.Log.Debugf(messages.ActionChecksumResolvedFmt, a.URL, sum)
	}
	data, err := a.fetch(ctx, env)
	if err != nil {
		return err
	}
	if sum != "" {
		if err := verifySHA256(data, sum); err != nil {
			return fmt.Errorf("%s: %w", a.URL, err)
		}
	}
	if err := ensureDir(env, filepath.Dir(a.Dest), 0o755, nil); err != nil {
		return err
	}
	if err := env.System.WriteFileAtomic(a.Dest, data, 0o644); err != nil {
		return fmt.Errorf(messages.ActionWriteFmt, a.Dest, err)
	}
	env.Log.Infof(messages.ActionDownloadedFmt, a.URL, len(data))
	return nil
}

func (a Download) fetch(ctx context.Context, env Env) ([]byte, error) {
	client := httpClient(env)
	maxBytes := a.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxDownloadBytes
	}
	for attempt := 0; attempt <= downloadRetryCount; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
		if err != nil {
			return nil, fmt.Errorf(messages.ActionDownloadFailedFmt, a.URL, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			if shouldRetryDownload(ctx, attempt, err, 0) {
				env.Log.Warnf(messages.ActionDownloadRetryFmt, a.URL, err)
				if err := downloadWait(ctx, downloadRetryBackoff); err != nil {
					return nil, fmt.Errorf(messages.ActionDownloadFailedFmt, a.URL, err)
				}
				continue
			}
			return nil, fmt.Errorf(messages.ActionDownloadFailedFmt, a.URL, err)
		}
		if resp.StatusCode != http.StatusOK {
			status := resp.Status
			_ = resp.Body.Close()
			if shouldRetryDownload(ctx, attempt, nil, resp.StatusCode) {
				env.Log.Warnf(messages.ActionDownloadRetryFmt, a.URL, status)
				if err := downloadWait(ctx, downloadRetryBackoff); err != nil {
					return nil, fmt.Errorf(messages.ActionDownloadFailedFmt, a.URL, err)
				}
				continue
			}
			return nil, fmt.Errorf(messages.ActionDownloadStatusFmt, a.URL, status)
		}
		var buf bytes.Buffer
		n, copyErr := io.Copy(&buf, io.LimitReader(resp.Body, maxBytes+1))
		_ = resp.Body.Close()
		if copyErr != nil {
			if shouldRetryDownload(ctx, attempt, copyErr, 0) {
				env.Log.Warnf(messages.ActionDownloadRetryFmt, a.URL, copyErr)
				if err := downloadWait(ctx, downloadRetryBackoff); err != nil {
					return nil, fmt.Errorf(messages.ActionDownloadFailedFmt, a.URL, err)
				}
				continue
			}
			return nil, fmt.Errorf(messages.ActionDownloadFailedFmt, a.URL, copyErr)
		}
		if n > maxBytes {
			return nil, fmt.Errorf(messages.ActionDownloadTooLargeFmt, a.URL, maxBytes)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf(messages.ActionDownloadFailedFmt, a.URL, errors.New("retry budget exhausted"))
}

func httpClient(env Env) *http.Client {
	if env.HTTPClient != nil {
		return env.HTTPClient
	}
	return defaultHTTPClient
}

// waitContext pauses for d or until ctx is done.
func waitContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func shouldRetryDownload(ctx context.Context, attempt int, err error, statusCode int) bool {
	if attempt >= downloadRetryCount || ctx.Err() != nil {
		return false
	}
	if err != nil {
		var netErr net.Error
		return errors.As(err, &netErr)
	}
	return statusCode >= 500 && statusCode <= 599
}

func verifySHA256(data []byte, expected string) error {
	actual := fmt.Sprintf("%x", sha256.Sum256(data))
	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		return fmt.Errorf(messages.ActionChecksumMismatchFmt, expected, actual)
	}
	return nil
}
