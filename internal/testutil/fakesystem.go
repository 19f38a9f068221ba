package testutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"os/user"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"
	"testing/fstest"

	"github.com/conn-castle/devsetup/internal/system"
)

// Handler answers a command sent to FakeSystem.
type Handler func(f *FakeSystem, cmd system.Command) ([]byte, error)

// FakeSystem is an in-memory system.System for tests.
//
// Files live in a MapFS keyed by absolute path. Queries and execs are
// recorded; a small set of package and identity commands is simulated so that
// checkpoint capture and idempotent actions behave like a Debian host. Extra
// behavior is registered per command name with OnQuery and OnExec.
type FakeSystem struct {
	Files    fstest.MapFS
	Users    map[string]*user.User
	Groups   map[string][]string
	Packages map[string]bool
	// PackageBinaries maps a package name to the files its install creates.
	PackageBinaries map[string][]string
	// Versions maps a binary base name to its version output.
	Versions  map[string]string
	GitConfig map[string]string
	PathDirs  []string

	EUID     int
	Disk     system.DiskUsage
	DiskErr  error
	Memory   uint64
	DialErr  error
	Host     string
	WriteErr map[string]error

	Queries   []system.Command
	Execs     []system.Command
	Mutations []string
	Dials     []string

	queryHandlers map[string]Handler
	execHandlers  map[string]Handler
	nextUID       int
}

// NewFakeSystem returns a root-privileged host with ample resources and no users.
func NewFakeSystem() *FakeSystem {
	return &FakeSystem{
		Files:           fstest.MapFS{},
		Users:           map[string]*user.User{},
		Groups:          map[string][]string{},
		Packages:        map[string]bool{},
		PackageBinaries: map[string][]string{},
		Versions:        map[string]string{},
		GitConfig:       map[string]string{},
		PathDirs:        []string{"/usr/local/sbin", "/usr/local/bin", "/usr/sbin", "/usr/bin", "/sbin", "/bin"},
		EUID:            0,
		Disk:            system.DiskUsage{Total: 100 << 30, Free: 50 << 30},
		Memory:          8 << 30,
		Host:            "devbox",
		WriteErr:        map[string]error{},
		queryHandlers:   map[string]Handler{},
		execHandlers:    map[string]Handler{},
		nextUID:         1000,
	}
}

// OnQuery registers a handler for read-only commands named name.
func (f *FakeSystem) OnQuery(name string, h Handler) {
	f.queryHandlers[name] = h
}

// OnExec registers a handler for mutating commands named name.
func (f *FakeSystem) OnExec(name string, h Handler) {
	f.execHandlers[name] = h
}

// AddFile places content at the absolute path p.
func (f *FakeSystem) AddFile(p string, content string, perm fs.FileMode) {
	f.Files[key(p)] = &fstest.MapFile{Data: []byte(content), Mode: perm}
}

// AddExecutable places an executable at the absolute path p.
func (f *FakeSystem) AddExecutable(p string) {
	f.AddFile(p, "#!/bin/sh\n", 0o755)
}

// AddUser creates an account with a home directory and a primary group.
func (f *FakeSystem) AddUser(name string, groups ...string) *user.User {
	uid := strconv.Itoa(f.nextUID)
	f.nextUID++
	u := &user.User{Uid: uid, Gid: uid, Username: name, Name: name, HomeDir: "/home/" + name}
	f.Users[name] = u
	f.Files[key(u.HomeDir)] = &fstest.MapFile{Mode: fs.ModeDir | 0o750}
	f.Groups[name] = append([]string{name}, groups...)
	return u
}

// HasFile reports whether p exists.
func (f *FakeSystem) HasFile(p string) bool {
	_, err := f.Stat(p)
	return err == nil
}

// FileContent returns the content at p or "" when missing.
func (f *FakeSystem) FileContent(p string) string {
	data, err := f.ReadFile(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// ExecCount returns how many mutating commands named name ran.
func (f *FakeSystem) ExecCount(name string) int {
	count := 0
	for _, cmd := range f.Execs {
		if cmd.Name == name {
			count++
		}
	}
	return count
}

func key(p string) string {
	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	if cleaned == "" {
		return "."
	}
	return cleaned
}

// Stat returns file info from the in-memory tree.
func (f *FakeSystem) Stat(name string) (os.FileInfo, error) {
	return fs.Stat(f.Files, key(name))
}

// ReadFile returns file content from the in-memory tree.
func (f *FakeSystem) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(f.Files, key(name))
}

// ReadDir lists a directory from the in-memory tree.
func (f *FakeSystem) ReadDir(name string) ([]os.DirEntry, error) {
	return fs.ReadDir(f.Files, key(name))
}

// MkdirAll records the mutation and creates the directory.
func (f *FakeSystem) MkdirAll(p string, perm os.FileMode) error {
	f.Mutations = append(f.Mutations, "mkdir "+p)
	if existing, ok := f.Files[key(p)]; ok && !existing.Mode.IsDir() {
		return fmt.Errorf("mkdir %s: not a directory", p)
	}
	f.Files[key(p)] = &fstest.MapFile{Mode: fs.ModeDir | perm}
	return nil
}

// WriteFileAtomic records the mutation and stores data.
func (f *FakeSystem) WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	f.Mutations = append(f.Mutations, "write "+filename)
	if err := f.WriteErr[filename]; err != nil {
		return err
	}
	f.Files[key(filename)] = &fstest.MapFile{Data: append([]byte(nil), data...), Mode: perm}
	return nil
}

// Chown records the mutation.
func (f *FakeSystem) Chown(name string, uid int, gid int) error {
	f.Mutations = append(f.Mutations, fmt.Sprintf("chown %s %d:%d", name, uid, gid))
	if !f.HasFile(name) {
		return &fs.PathError{Op: "chown", Path: name, Err: fs.ErrNotExist}
	}
	return nil
}

// Rename records the mutation and moves oldpath, with everything under it, to
// newpath. Like rename(2) on directories, an existing newpath is an error.
func (f *FakeSystem) Rename(oldpath string, newpath string) error {
	f.Mutations = append(f.Mutations, "rename "+oldpath+" "+newpath)
	from, to := key(oldpath), key(newpath)
	if _, ok := f.Files[from]; !ok {
		return &fs.PathError{Op: "rename", Path: oldpath, Err: fs.ErrNotExist}
	}
	if _, ok := f.Files[to]; ok {
		return &fs.PathError{Op: "rename", Path: newpath, Err: fs.ErrExist}
	}
	moved := map[string]*fstest.MapFile{}
	for k, v := range f.Files {
		if k == from {
			moved[to] = v
		} else if rest, ok := strings.CutPrefix(k, from+"/"); ok {
			moved[to+"/"+rest] = v
		} else {
			continue
		}
		delete(f.Files, k)
	}
	maps.Copy(f.Files, moved)
	return nil
}

// RemoveAll records the mutation and deletes path and everything under it.
func (f *FakeSystem) RemoveAll(p string) error {
	f.Mutations = append(f.Mutations, "remove "+p)
	target := key(p)
	for k := range f.Files {
		if k == target || strings.HasPrefix(k, target+"/") {
			delete(f.Files, k)
		}
	}
	return nil
}

// LookPath resolves file against PathDirs.
func (f *FakeSystem) LookPath(file string) (string, error) {
	if strings.Contains(file, "/") {
		if f.isExecutable(file) {
			return file, nil
		}
		return "", fmt.Errorf("exec: %q: %w", file, fs.ErrNotExist)
	}
	for _, dir := range f.PathDirs {
		candidate := path.Join(dir, file)
		if f.isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", file)
}

func (f *FakeSystem) isExecutable(p string) bool {
	info, err := f.Stat(p)
	return err == nil && !info.IsDir()
}

// Query records and answers a read-only command.
func (f *FakeSystem) Query(_ context.Context, cmd system.Command) ([]byte, error) {
	f.Queries = append(f.Queries, cmd)
	if h, ok := f.queryHandlers[cmd.Name]; ok {
		return h(f, cmd)
	}
	switch cmd.Name {
	case "dpkg-query":
		return f.dpkgQuery(cmd)
	case "id":
		return f.idGroups(cmd)
	case "git":
		return f.gitGet(cmd)
	}
	if out, ok := f.Versions[path.Base(cmd.Name)]; ok {
		if !f.isExecutable(cmd.Name) {
			if _, err := f.LookPath(cmd.Name); err != nil {
				return nil, fmt.Errorf("%s: %w", cmd.String(), fs.ErrNotExist)
			}
		}
		return []byte(out + "\n"), nil
	}
	return nil, nil
}

// Exec records and simulates a mutating command.
func (f *FakeSystem) Exec(_ context.Context, cmd system.Command) ([]byte, error) {
	f.Execs = append(f.Execs, cmd)
	f.Mutations = append(f.Mutations, "exec "+cmd.String())
	if h, ok := f.execHandlers[cmd.Name]; ok {
		return h(f, cmd)
	}
	switch cmd.Name {
	case "apt-get":
		return f.aptGet(cmd)
	case "useradd":
		name := cmd.Args[len(cmd.Args)-1]
		if _, ok := f.Users[name]; ok {
			return nil, fmt.Errorf("useradd: user '%s' already exists", name)
		}
		f.AddUser(name)
		return nil, nil
	case "usermod":
		return f.usermod(cmd)
	case "git":
		return f.gitSet(cmd)
	}
	return nil, nil
}

// LookupUser resolves an account from Users.
func (f *FakeSystem) LookupUser(name string) (*user.User, error) {
	u, ok := f.Users[name]
	if !ok {
		return nil, user.UnknownUserError(name)
	}
	return u, nil
}

// Geteuid returns EUID.
func (f *FakeSystem) Geteuid() int {
	return f.EUID
}

// DiskUsage returns Disk or DiskErr.
func (f *FakeSystem) DiskUsage(string) (system.DiskUsage, error) {
	return f.Disk, f.DiskErr
}

// MemoryTotal returns Memory.
func (f *FakeSystem) MemoryTotal() (uint64, error) {
	return f.Memory, nil
}

// Dial records the address and returns DialErr.
func (f *FakeSystem) Dial(_ context.Context, address string) error {
	f.Dials = append(f.Dials, address)
	return f.DialErr
}

// Hostname returns Host.
func (f *FakeSystem) Hostname() (string, error) {
	return f.Host, nil
}

func (f *FakeSystem) dpkgQuery(cmd system.Command) ([]byte, error) {
	var names []string
	for _, arg := range cmd.Args {
		if !strings.HasPrefix(arg, "-") {
			names = append(names, arg)
		}
	}
	if len(names) == 0 {
		installed := make([]string, 0, len(f.Packages))
		for name, ok := range f.Packages {
			if ok {
				installed = append(installed, name)
			}
		}
		sort.Strings(installed)
		if len(installed) == 0 {
			return nil, nil
		}
		return []byte(strings.Join(installed, "\n") + "\n"), nil
	}
	var b strings.Builder
	for _, name := range names {
		if !f.Packages[name] {
			return []byte(b.String()), fmt.Errorf("dpkg-query: no packages found matching %s", name)
		}
		b.WriteString("installed")
	}
	return []byte(b.String()), nil
}

func (f *FakeSystem) idGroups(cmd system.Command) ([]byte, error) {
	name := cmd.Args[len(cmd.Args)-1]
	if _, ok := f.Users[name]; !ok {
		return nil, fmt.Errorf("id: '%s': no such user", name)
	}
	return []byte(strings.Join(f.Groups[name], " ") + "\n"), nil
}

func (f *FakeSystem) aptGet(cmd system.Command) ([]byte, error) {
	if len(cmd.Args) == 0 {
		return nil, errors.New("apt-get: missing command")
	}
	install := false
	for _, arg := range cmd.Args {
		if arg == "install" {
			install = true
			continue
		}
		if !install || strings.HasPrefix(arg, "-") {
			continue
		}
		f.Packages[arg] = true
		for _, bin := range f.PackageBinaries[arg] {
			f.AddExecutable(bin)
		}
	}
	return nil, nil
}

func (f *FakeSystem) usermod(cmd system.Command) ([]byte, error) {
	name := cmd.Args[len(cmd.Args)-1]
	if _, ok := f.Users[name]; !ok {
		return nil, fmt.Errorf("usermod: user '%s' does not exist", name)
	}
	for i, arg := range cmd.Args {
		if arg == "-aG" && i+1 < len(cmd.Args) {
			for _, group := range strings.Split(cmd.Args[i+1], ",") {
				if !slices.Contains(f.Groups[name], group) {
					f.Groups[name] = append(f.Groups[name], group)
				}
			}
		}
	}
	return nil, nil
}

// gitGet answers "git config --global --get KEY" for cmd.User.
func (f *FakeSystem) gitGet(cmd system.Command) ([]byte, error) {
	if len(cmd.Args) == 0 {
		return nil, nil
	}
	k := cmd.Args[len(cmd.Args)-1]
	value, ok := f.GitConfig[cmd.User+":"+k]
	if !ok {
		return nil, fmt.Errorf("%s: exit status 1", cmd.String())
	}
	return []byte(value + "\n"), nil
}

// gitSet applies "git config --global KEY VALUE" for cmd.User.
func (f *FakeSystem) gitSet(cmd system.Command) ([]byte, error) {
	if len(cmd.Args) < 2 {
		return nil, nil
	}
	k := cmd.Args[len(cmd.Args)-2]
	f.GitConfig[cmd.User+":"+k] = cmd.Args[len(cmd.Args)-1]
	return nil, nil
}

var _ system.System = (*FakeSystem)(nil)
