package action

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/conn-castle/devsetup/internal/messages"
)

// FileWrite places exact content at a path. "~/" paths resolve against Owner's home.
type FileWrite struct {
	Path    string
	Content string
	Mode    os.FileMode
	// Owner receives ownership of the file and any directory created for it.
	Owner string
}

func (a FileWrite) Kind() Kind { return KindFileWrite }

func (a FileWrite) Describe() string { return "write " + a.Path }

func (a FileWrite) Run(_ context.Context, env Env) error {
	path, owner, err := resolvePath(env, a.Path, a.Owner)
	if err != nil {
		return err
	}
	current, err := readOptional(env, path)
	if err != nil {
		return err
	}
	if current == a.Content {
		satisfied(env, a.Describe())
		return nil
	}
	if env.Config.DryRun() {
		previewWrite(env, path, current, a.Content)
		return nil
	}
	mode := a.Mode
	if mode == 0 {
		mode = 0o644
	}
	if err := ensureDir(env, filepath.Dir(path), 0o755, owner); err != nil {
		return err
	}
	return writeOwned(env, path, []byte(a.Content), mode, owner)
}

// readOptional returns the file content or "" when it does not exist.
func readOptional(env Env, path string) (string, error) {
	data, err := env.System.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf(messages.ActionReadFmt, path, err)
	}
	return string(data), nil
}

// ensureDir creates dir when missing and hands the new directory to owner.
func ensureDir(env Env, dir string, perm os.FileMode, owner *user.User) error {
	found, err := exists(env, dir)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	if err := env.System.MkdirAll(dir, perm); err != nil {
		return fmt.Errorf(messages.ActionMkdirFmt, dir, err)
	}
	return chown(env, dir, owner)
}

func writeOwned(env Env, path string, data []byte, perm os.FileMode, owner *user.User) error {
	if err := env.System.WriteFileAtomic(path, data, perm); err != nil {
		return fmt.Errorf(messages.ActionWriteFmt, path, err)
	}
	return chown(env, path, owner)
}
