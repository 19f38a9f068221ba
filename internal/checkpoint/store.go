// Package checkpoint persists named snapshots of machine state at phase boundaries.
//
// Each checkpoint lives in its own directory under the configured checkpoint
// root and holds metadata.json, packages.txt (installed package manifest) and
// groups.txt (target user's group memberships). A checkpoint is assembled in
// a hidden staging directory with metadata.json written last, then renamed
// into place, so a name always pairs its metadata with its own manifests.
// Directories without valid metadata are skipped by List, as are hidden ones.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/conn-castle/devsetup/internal/config"
	"github.com/conn-castle/devsetup/internal/logging"
	"github.com/conn-castle/devsetup/internal/messages"
	"github.com/conn-castle/devsetup/internal/system"
)

var (
	// ErrNotFound is returned when no checkpoint has the requested name.
	ErrNotFound = errors.New("checkpoint not found")
	// ErrRestoreNotSupported is returned by every Restore call until a reconciliation policy exists.
	ErrRestoreNotSupported = errors.New("checkpoint restore is not supported")
)

// Error reports a checkpoint I/O or capture failure. It is always fatal to the run.
type Error struct {
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("checkpoint %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Context carries the orchestration state recorded in a checkpoint.
type Context struct {
	Phase string
}

// Handle identifies a checkpoint written (or skipped) by Create.
type Handle struct {
	Name      string
	Path      string
	CreatedAt time.Time
	// Skipped is true when Create was a dry-run no-op.
	Skipped bool
}

// Summary is the listing view of a checkpoint.
type Summary struct {
	Name       string
	Phase      string
	TargetUser string
	CreatedAt  time.Time
}

// Store reads and writes checkpoints for one run configuration.
type Store struct {
	dir string
	cfg config.RunConfig
	sys system.System
	log *logging.Logger
	now func() time.Time
}

// NewStore returns a store rooted at cfg.Settings.CheckpointDir.
func NewStore(cfg config.RunConfig, sys system.System, log *logging.Logger) *Store {
	if log == nil {
		log = logging.Discard()
	}
	return &Store{
		dir: cfg.Settings.CheckpointDir,
		cfg: cfg,
		sys: sys,
		log: log,
		now: time.Now,
	}
}

// Dir returns the checkpoint root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Create snapshots machine state under name. In dry-run mode it performs no I/O.
func (s *Store) Create(ctx context.Context, name string, cctx Context) (Handle, error) {
	if err := ValidateName(name); err != nil {
		return Handle{}, &Error{Op: "create", Name: name, Err: err}
	}
	createdAt := s.now().UTC()
	if s.cfg.DryRun() {
		s.log.Infof(messages.CheckpointDryRunFmt, name)
		return Handle{Name: name, CreatedAt: createdAt, Skipped: true}, nil
	}

	packages, err := s.capturePackages(ctx)
	if err != nil {
		return Handle{}, &Error{Op: "create", Name: name, Err: err}
	}
	groups, userExists, err := s.captureGroups(ctx)
	if err != nil {
		return Handle{}, &Error{Op: "create", Name: name, Err: err}
	}
	host, err := s.sys.Hostname()
	if err != nil {
		host = ""
	}
	meta := Metadata{
		SchemaVersion: SchemaVersion,
		Name:          name,
		CreatedAtUTC:  createdAt.Format(time.RFC3339Nano),
		Phase:         cctx.Phase,
		TargetUser:    s.cfg.TargetUser,
		RunID:         s.cfg.RunID,
		Host:          host,
		PackageCount:  len(normalizeList(packages)),
		UserExists:    userExists,
	}
	data, err := Encode(meta)
	if err != nil {
		return Handle{}, &Error{Op: "create", Name: name, Err: err}
	}

	staging := filepath.Join(s.dir, "."+name+".staging")
	if err := s.stage(staging, packages, groups, data); err != nil {
		s.discard(staging)
		return Handle{}, &Error{Op: "create", Name: name, Err: err}
	}
	dir := filepath.Join(s.dir, name)
	if err := s.publish(staging, dir, filepath.Join(s.dir, "."+name+".replaced")); err != nil {
		s.discard(staging)
		return Handle{}, &Error{Op: "create", Name: name, Err: err}
	}
	s.log.Infof(messages.CheckpointCreatedFmt, name, meta.PackageCount)
	return Handle{Name: name, Path: dir, CreatedAt: createdAt}, nil
}

// stage writes a complete checkpoint into dir, metadata last.
func (s *Store) stage(dir string, packages []string, groups []string, metadata []byte) error {
	if found, _ := s.exists(dir); found {
		if err := s.sys.RemoveAll(dir); err != nil {
			return fmt.Errorf(messages.CheckpointCreateDirFmt, dir, err)
		}
	}
	if err := s.sys.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf(messages.CheckpointCreateDirFmt, dir, err)
	}
	files := []struct {
		name string
		data []byte
	}{
		{packagesFile, encodeList(packages)},
		{groupsFile, encodeList(groups)},
		{metadataFile, metadata},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := s.sys.WriteFileAtomic(path, f.data, 0o640); err != nil {
			return fmt.Errorf(messages.CheckpointWriteFmt, path, err)
		}
	}
	return nil
}

// publish renames staging to dir. An existing dir is moved aside first and
// put back if the swap fails.
func (s *Store) publish(staging string, dir string, aside string) error {
	replaced, err := s.exists(dir)
	if err != nil {
		return fmt.Errorf(messages.CheckpointCreateDirFmt, dir, err)
	}
	if replaced {
		s.discard(aside)
		if err := s.sys.Rename(dir, aside); err != nil {
			return fmt.Errorf(messages.CheckpointRenameFmt, dir, aside, err)
		}
	}
	if err := s.sys.Rename(staging, dir); err != nil {
		if replaced {
			_ = s.sys.Rename(aside, dir)
		}
		return fmt.Errorf(messages.CheckpointRenameFmt, staging, dir, err)
	}
	if replaced {
		s.discard(aside)
	}
	return nil
}

// discard removes a scratch directory if present; failures only warn.
func (s *Store) discard(dir string) {
	if found, _ := s.exists(dir); !found {
		return
	}
	if err := s.sys.RemoveAll(dir); err != nil {
		s.log.Warnf(messages.CheckpointCleanupFmt, dir, err)
	}
}

func (s *Store) exists(path string) (bool, error) {
	_, err := s.sys.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// List yields checkpoints ordered by creation time, oldest first.
// Each range over the sequence re-reads the checkpoint directory. Entries with
// missing or invalid metadata are skipped with a warning.
func (s *Store) List() iter.Seq[Summary] {
	return func(yield func(Summary) bool) {
		for _, summary := range s.scan() {
			if !yield(summary) {
				return
			}
		}
	}
}

func (s *Store) scan() []Summary {
	entries, err := s.sys.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warnf(messages.CheckpointListReadFailedFmt, s.dir, err)
		}
		return nil
	}
	out := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		meta, err := s.readMetadata(entry.Name())
		if err != nil {
			s.log.Warnf(messages.CheckpointSkipInvalidFmt, entry.Name(), err)
			continue
		}
		createdAt, _ := meta.CreatedAt()
		out = append(out, Summary{
			Name:       meta.Name,
			Phase:      meta.Phase,
			TargetUser: meta.TargetUser,
			CreatedAt:  createdAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Load reads the metadata and manifests of name.
func (s *Store) Load(name string) (Checkpoint, error) {
	if err := ValidateName(name); err != nil {
		return Checkpoint{}, err
	}
	meta, err := s.readMetadata(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Checkpoint{}, fmt.Errorf("%w: %s (in %s)", ErrNotFound, name, s.dir)
		}
		return Checkpoint{}, &Error{Op: "load", Name: name, Err: err}
	}
	cp := Checkpoint{Metadata: meta}
	for _, f := range []struct {
		name string
		dst  *[]string
	}{
		{packagesFile, &cp.Packages},
		{groupsFile, &cp.Groups},
	} {
		data, err := s.sys.ReadFile(filepath.Join(s.dir, name, f.name))
		if err != nil {
			return Checkpoint{}, &Error{Op: "load", Name: name, Err: err}
		}
		*f.dst = decodeList(data)
	}
	return cp, nil
}

func (s *Store) readMetadata(name string) (Metadata, error) {
	path := filepath.Join(s.dir, name, metadataFile)
	data, err := s.sys.ReadFile(path)
	if err != nil {
		return Metadata{}, err
	}
	meta, err := Decode(data)
	if err != nil {
		return Metadata{}, err
	}
	if meta.Name != name {
		return Metadata{}, fmt.Errorf("metadata name %q does not match directory %q", meta.Name, name)
	}
	return meta, nil
}

func (s *Store) capturePackages(ctx context.Context) ([]string, error) {
	out, err := s.sys.Query(ctx, system.Command{Name: "dpkg-query", Args: []string{"-W", "-f=${Package}\n"}})
	if err != nil {
		return nil, fmt.Errorf(messages.CheckpointCapturePackagesFmt, err)
	}
	return strings.Split(string(out), "\n"), nil
}

func (s *Store) captureGroups(ctx context.Context) ([]string, bool, error) {
	if s.cfg.TargetUser == "" {
		return nil, false, nil
	}
	if _, err := s.sys.LookupUser(s.cfg.TargetUser); err != nil {
		if system.IsUnknownUser(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf(messages.CheckpointCaptureGroupsFmt, s.cfg.TargetUser, err)
	}
	out, err := s.sys.Query(ctx, system.Command{Name: "id", Args: []string{"-Gn", s.cfg.TargetUser}})
	if err != nil {
		return nil, true, fmt.Errorf(messages.CheckpointCaptureGroupsFmt, s.cfg.TargetUser, err)
	}
	return strings.Fields(string(out)), true, nil
}
