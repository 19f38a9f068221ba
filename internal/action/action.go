// Package action defines the units of work a phase executes.
//
// Every action probes current machine state with read-only queries first and
// returns without changes when the state is already satisfied. Under dry-run
// an action logs what it would do and never mutates the machine.
package action

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/conn-castle/devsetup/internal/config"
	"github.com/conn-castle/devsetup/internal/logging"
	"github.com/conn-castle/devsetup/internal/messages"
	"github.com/conn-castle/devsetup/internal/system"
)

// Kind tags an action variant.
type Kind string

const (
	KindInspect         Kind = "inspect"
	KindPackageInstall  Kind = "package_install"
	KindFileWrite       Kind = "file_write"
	KindIdentityCreate  Kind = "identity_create"
	KindGroupMembership Kind = "group_membership"
	KindKeyGeneration   Kind = "key_generation"
	KindDownload        Kind = "download"
	KindCommand         Kind = "command"
	KindGitConfig       Kind = "git_config"
	KindProfileBlock    Kind = "profile_block"
	KindOwnership       Kind = "ownership"
)

// Env is what an action may touch while running.
type Env struct {
	Config config.RunConfig
	System system.System
	Log    *logging.Logger
	// HTTPClient is used by downloads; nil selects a default client.
	HTTPClient *http.Client
}

// Action is one idempotent unit of work owned by a phase.
type Action interface {
	Kind() Kind
	Describe() string
	Run(ctx context.Context, env Env) error
}

// Error reports a failed action.
type Error struct {
	Kind        Kind
	Description string
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Description, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Execute runs a and wraps any failure in *Error.
func Execute(ctx context.Context, a Action, env Env) error {
	if env.Log == nil {
		env.Log = logging.Discard()
	}
	env.Log.Debugf(messages.ActionStartFmt, a.Kind(), a.Describe())
	if err := a.Run(ctx, env); err != nil {
		var actionErr *Error
		if errors.As(err, &actionErr) {
			return err
		}
		return &Error{Kind: a.Kind(), Description: a.Describe(), Err: err}
	}
	return nil
}

func wouldDo(env Env, format string, args ...any) {
	env.Log.Infof(messages.ActionDryRunPrefix+format, args...)
}

func satisfied(env Env, description string) {
	env.Log.Infof(messages.ActionSatisfiedFmt, description)
}

// account resolves username. In dry-run an unknown account yields a nil user
// and a predicted home directory, since an earlier action would have created it.
func account(env Env, username string) (*user.User, string, error) {
	u, err := env.System.LookupUser(username)
	if err == nil {
		return u, u.HomeDir, nil
	}
	if system.IsUnknownUser(err) && env.Config.DryRun() {
		return nil, filepath.Join("/home", username), nil
	}
	return nil, "", fmt.Errorf(messages.ActionLookupUserFmt, username, err)
}

// expandHome resolves a "~/" path against home.
func expandHome(p string, home string) string {
	if p == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		return filepath.Join(home, rest)
	}
	return p
}

// resolvePath expands a "~/" path for owner. Absolute paths pass through.
func resolvePath(env Env, p string, owner string) (string, *user.User, error) {
	if owner == "" {
		if strings.HasPrefix(p, "~") {
			return "", nil, fmt.Errorf(messages.ActionHomePathNeedsOwnerFmt, p)
		}
		return p, nil, nil
	}
	u, home, err := account(env, owner)
	if err != nil {
		return "", nil, err
	}
	return expandHome(p, home), u, nil
}

// chown hands path to u. A nil user is a no-op.
func chown(env Env, path string, u *user.User) error {
	if u == nil {
		return nil
	}
	uid, gid, err := system.UserIDs(u)
	if err != nil {
		return err
	}
	if err := env.System.Chown(path, uid, gid); err != nil {
		return fmt.Errorf(messages.ActionChownFmt, path, err)
	}
	return nil
}

// exists reports whether path exists; lookup errors other than not-exist are returned.
func exists(env Env, path string) (bool, error) {
	_, err := env.System.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// commandFailure folds trimmed command output into err.
func commandFailure(err error, out []byte) error {
	tail := strings.TrimSpace(string(out))
	if tail == "" {
		return err
	}
	lines := strings.Split(tail, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return fmt.Errorf("%w\n%s", err, strings.Join(lines, "\n"))
}
