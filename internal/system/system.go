// Package system abstracts the host operations the provisioner performs.
//
// Core packages never touch the OS directly; they receive a System so tests can
// substitute a fake and so dry-run behavior can be verified by observing calls.
// Read-only process invocations go through Query, mutating ones through Exec.
package system

import (
	"context"
	"errors"
	"os"
	"os/user"
	"strings"
)

// Command describes a process invocation.
type Command struct {
	Name string
	Args []string
	// User runs the command as this account (via runuser) with HOME set to its home directory.
	User string
	Env  []string
	Dir  string
}

// String renders the command the way an operator would type it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t'\"$") {
			parts = append(parts, "'"+strings.ReplaceAll(arg, "'", `'\''`)+"'")
			continue
		}
		parts = append(parts, arg)
	}
	out := strings.Join(parts, " ")
	if c.User != "" {
		out += " (as " + c.User + ")"
	}
	return out
}

// DiskUsage reports filesystem capacity in bytes.
type DiskUsage struct {
	Total uint64
	Free  uint64
}

// System abstracts filesystem, process, identity, and host queries.
type System interface {
	Stat(name string) (os.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	ReadDir(name string) ([]os.DirEntry, error)
	MkdirAll(path string, perm os.FileMode) error
	WriteFileAtomic(filename string, data []byte, perm os.FileMode) error
	Chown(name string, uid int, gid int) error
	Rename(oldpath string, newpath string) error
	RemoveAll(path string) error
	LookPath(file string) (string, error)
	// Query runs a command that must not change machine state and returns its combined output.
	Query(ctx context.Context, cmd Command) ([]byte, error)
	// Exec runs a command that may change machine state and returns its combined output.
	Exec(ctx context.Context, cmd Command) ([]byte, error)
	LookupUser(name string) (*user.User, error)
	Geteuid() int
	DiskUsage(path string) (DiskUsage, error)
	MemoryTotal() (uint64, error)
	Dial(ctx context.Context, address string) error
	Hostname() (string, error)
}

// IsUnknownUser reports whether err means the account does not exist.
func IsUnknownUser(err error) bool {
	var unknown user.UnknownUserError
	return errors.As(err, &unknown)
}
