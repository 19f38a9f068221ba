package system

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/conn-castle/devsetup/internal/fsutil"
)

// Real implements System against the running host.
type Real struct{}

// Stat returns a FileInfo describing the named file.
func (Real) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// ReadFile reads the named file and returns the contents.
func (Real) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// ReadDir reads the named directory.
func (Real) ReadDir(name string) ([]os.DirEntry, error) {
	return os.ReadDir(name)
}

// MkdirAll creates a directory named path, along with any necessary parents.
func (Real) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// WriteFileAtomic writes data to a file atomically by writing to a temp file and renaming.
func (Real) WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return fsutil.WriteFileAtomic(filename, data, perm)
}

// Chown changes the numeric uid and gid of the named file.
func (Real) Chown(name string, uid int, gid int) error {
	return os.Chown(name, uid, gid)
}

// Rename moves oldpath to newpath.
func (Real) Rename(oldpath string, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// RemoveAll removes path and any children it contains.
func (Real) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// LookPath searches PATH for an executable named file.
func (Real) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Query runs a read-only command.
func (r Real) Query(ctx context.Context, cmd Command) ([]byte, error) {
	return r.run(ctx, cmd)
}

// Exec runs a mutating command.
func (r Real) Exec(ctx context.Context, cmd Command) ([]byte, error) {
	return r.run(ctx, cmd)
}

func (r Real) run(ctx context.Context, cmd Command) ([]byte, error) {
	name, args, err := r.argv(cmd)
	if err != nil {
		return nil, err
	}
	c := exec.CommandContext(ctx, name, args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	out, err := c.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %w", cmd.String(), err)
	}
	return out, nil
}

// argv resolves the final program and arguments, wrapping user-scoped commands in runuser.
func (r Real) argv(cmd Command) (string, []string, error) {
	if cmd.User == "" {
		return cmd.Name, cmd.Args, nil
	}
	u, err := r.LookupUser(cmd.User)
	if err != nil {
		return "", nil, fmt.Errorf("resolve user %s: %w", cmd.User, err)
	}
	name, args := wrapRunUser(cmd, u.HomeDir)
	return name, args, nil
}

func wrapRunUser(cmd Command, home string) (string, []string) {
	args := []string{"-u", cmd.User, "--", "env", "HOME=" + home}
	args = append(args, cmd.Env...)
	args = append(args, cmd.Name)
	args = append(args, cmd.Args...)
	return "runuser", args
}

// LookupUser looks up an account by name.
func (Real) LookupUser(name string) (*user.User, error) {
	return user.Lookup(name)
}

// Geteuid returns the effective user id of the process.
func (Real) Geteuid() int {
	return os.Geteuid()
}

// Dial opens and immediately closes a TCP connection to address.
func (Real) Dial(ctx context.Context, address string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}

// Hostname returns the kernel host name.
func (Real) Hostname() (string, error) {
	return os.Hostname()
}

// UserIDs parses the numeric ids of u.
func UserIDs(u *user.User) (int, int, error) {
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, fmt.Errorf("parse uid %q: %w", u.Uid, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return 0, 0, fmt.Errorf("parse gid %q: %w", u.Gid, err)
	}
	return uid, gid, nil
}

// HomePath joins elem onto the home directory of u.
func HomePath(u *user.User, elem ...string) string {
	return filepath.Join(append([]string{u.HomeDir}, elem...)...)
}
