package checkpoint

import (
	"context"
	"fmt"

	"github.com/conn-castle/devsetup/internal/messages"
)

// Plan is the reconciliation a restore to a checkpoint would have to perform.
// It is computed read-only and never applied.
type Plan struct {
	Checkpoint          Summary
	PackagesToRemove    []string
	PackagesToReinstall []string
	GroupsToLeave       []string
}

// Empty reports whether the machine already matches the checkpoint.
func (p Plan) Empty() bool {
	return len(p.PackagesToRemove) == 0 && len(p.PackagesToReinstall) == 0 && len(p.GroupsToLeave) == 0
}

// Restore describes what rolling back to name would involve and always fails.
//
// Restoration semantics (removing packages, deleting identities) are not
// defined, so Restore returns ErrNotFound for unknown checkpoints and
// ErrRestoreNotSupported otherwise. The returned plan lets an operator
// reconcile manually. Restore never mutates the machine.
func (s *Store) Restore(ctx context.Context, name string) (Plan, error) {
	cp, err := s.Load(name)
	if err != nil {
		return Plan{}, err
	}
	createdAt, _ := cp.CreatedAt()
	plan := Plan{Checkpoint: Summary{Name: cp.Name, Phase: cp.Phase, TargetUser: cp.TargetUser, CreatedAt: createdAt}}

	current, err := s.capturePackages(ctx)
	if err != nil {
		return plan, &Error{Op: "restore", Name: name, Err: err}
	}
	current = normalizeList(current)
	plan.PackagesToRemove = difference(current, cp.Packages)
	plan.PackagesToReinstall = difference(cp.Packages, current)

	if cp.TargetUser != "" {
		restoreCfg := s.cfg
		restoreCfg.TargetUser = cp.TargetUser
		groups, _, err := (&Store{dir: s.dir, cfg: restoreCfg, sys: s.sys, log: s.log, now: s.now}).captureGroups(ctx)
		if err != nil {
			return plan, &Error{Op: "restore", Name: name, Err: err}
		}
		plan.GroupsToLeave = difference(normalizeList(groups), cp.Groups)
	}
	return plan, fmt.Errorf(messages.CheckpointRestoreUnsupportedFmt, ErrRestoreNotSupported, name)
}

// difference returns the sorted items of a that are not in b.
func difference(a []string, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, item := range b {
		in[item] = struct{}{}
	}
	var out []string
	for _, item := range a {
		if _, ok := in[item]; !ok {
			out = append(out, item)
		}
	}
	return out
}
