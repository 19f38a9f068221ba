// Package release reads the Go release index published at go.dev.
package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/conn-castle/devsetup/internal/messages"
)

// IndexURL lists every Go release with per-file checksums.
var IndexURL = "https://go.dev/dl/?mode=json&include=all"

var retryDelay = 250 * time.Millisecond

const fetchRetryCount = 1

// ErrNotFound means the index has no matching release or archive.
var ErrNotFound = errors.New("go release not found")

// File is one downloadable artifact of a release.
type File struct {
	Filename string `json:"filename"`
	OS       string `json:"os"`
	Arch     string `json:"arch"`
	Version  string `json:"version"`
	SHA256   string `json:"sha256"`
	Size     int64  `json:"size"`
	Kind     string `json:"kind"`
}

// Release is one Go version in the index.
type Release struct {
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
	Files   []File `json:"files"`
}

// Index fetches the release index. Network errors and 5xx responses are retried once.
func Index(ctx context.Context, client *http.Client) ([]Release, error) {
	if client == nil {
		client = http.DefaultClient
	}
	for attempt := 0; attempt <= fetchRetryCount; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, IndexURL, nil)
		if err != nil {
			return nil, fmt.Errorf(messages.ReleaseRequestFmt, err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "devsetup")

		resp, err := client.Do(req)
		if err != nil {
			if shouldRetry(err, 0, attempt) {
				if err := wait(ctx, retryDelay); err != nil {
					return nil, fmt.Errorf(messages.ReleaseFetchFmt, err)
				}
				continue
			}
			return nil, fmt.Errorf(messages.ReleaseFetchFmt, err)
		}
		if resp.StatusCode != http.StatusOK {
			status := resp.StatusCode
			statusText := resp.Status
			_ = resp.Body.Close()
			if shouldRetry(nil, status, attempt) {
				if err := wait(ctx, retryDelay); err != nil {
					return nil, fmt.Errorf(messages.ReleaseFetchFmt, err)
				}
				continue
			}
			return nil, fmt.Errorf(messages.ReleaseStatusFmt, statusText)
		}

		var releases []Release
		err = json.NewDecoder(resp.Body).Decode(&releases)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf(messages.ReleaseDecodeFmt, err)
		}
		return releases, nil
	}
	return nil, fmt.Errorf(messages.ReleaseFetchFmt, errors.New("retry budget exhausted"))
}

// Find returns the linux-style archive of version for goos/arch.
// version may be given with or without the "go" prefix.
func Find(releases []Release, version string, goos string, arch string) (File, error) {
	want := "go" + strings.TrimPrefix(strings.TrimSpace(version), "go")
	for _, r := range releases {
		if r.Version != want {
			continue
		}
		for _, f := range r.Files {
			if f.Kind == "archive" && f.OS == goos && f.Arch == arch {
				return f, nil
			}
		}
		return File{}, fmt.Errorf("%w: no %s/%s archive for %s", ErrNotFound, goos, arch, want)
	}
	return File{}, fmt.Errorf("%w: %s", ErrNotFound, want)
}

// Latest returns the newest stable version in releases, without the "go" prefix.
func Latest(releases []Release) (string, error) {
	var best *semver.Version
	for _, r := range releases {
		if !r.Stable {
			continue
		}
		v, err := semver.NewVersion(strings.TrimPrefix(r.Version, "go"))
		if err != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	if best == nil {
		return "", fmt.Errorf("%w: no stable release", ErrNotFound)
	}
	return best.Original(), nil
}

// Checksum returns a resolver for the sha256 of a Go archive, suitable for
// a download action.
func Checksum(version string, goos string, arch string) func(context.Context, *http.Client) (string, error) {
	return func(ctx context.Context, client *http.Client) (string, error) {
		releases, err := Index(ctx, client)
		if err != nil {
			return "", err
		}
		file, err := Find(releases, version, goos, arch)
		if err != nil {
			return "", err
		}
		return file.SHA256, nil
	}
}

// wait pauses for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func shouldRetry(err error, statusCode int, attempt int) bool {
	if attempt >= fetchRetryCount {
		return false
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		var netErr net.Error
		return errors.As(err, &netErr)
	}
	return statusCode >= 500 && statusCode <= 599
}
