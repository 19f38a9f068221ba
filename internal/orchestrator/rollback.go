package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/conn-castle/devsetup/internal/checkpoint"
	"github.com/conn-castle/devsetup/internal/messages"
	"github.com/conn-castle/devsetup/internal/picker"
)

func (o *Orchestrator) rollback(ctx context.Context) Result {
	res := Result{}
	var summaries []checkpoint.Summary
	for s := range o.store.List() {
		summaries = append(summaries, s)
	}
	PrintCheckpoints(o.deps.Out, o.store.Dir(), summaries)

	name := o.cfg.Checkpoint
	if name == "" && o.deps.Picker != nil && len(summaries) > 0 {
		picked, err := o.deps.Picker.PickCheckpoint(summaries)
		if errors.Is(err, picker.ErrCancelled) {
			res.Final = StateDone
			return res
		}
		if err != nil {
			o.deps.Log.Errorf("%v", err)
			res.Final = StateAborted
			res.Err = err
			return res
		}
		name = picked
	}
	if name == "" {
		res.Final = StateDone
		return res
	}

	plan, err := o.store.Restore(ctx, name)
	if errors.Is(err, checkpoint.ErrNotFound) {
		o.deps.Log.Errorf("%v", err)
		res.Final = StateAborted
		res.Err = err
		return res
	}
	res.Plan = &plan
	PrintPlan(o.deps.Out, plan)
	if err != nil {
		o.deps.Log.Errorf("%v", err)
		res.Final = StateAborted
		res.Err = err
		return res
	}
	res.Final = StateDone
	return res
}

// PrintCheckpoints writes the checkpoint listing.
func PrintCheckpoints(w io.Writer, dir string, summaries []checkpoint.Summary) {
	if len(summaries) == 0 {
		_, _ = fmt.Fprintf(w, messages.RollbackNoCheckpointsFmt, dir)
		return
	}
	_, _ = fmt.Fprintf(w, messages.RollbackHeaderFmt, dir)
	width := len("NAME")
	for _, s := range summaries {
		width = max(width, len(s.Name))
	}
	_, _ = fmt.Fprintf(w, "  %-*s  %-20s  %s\n", width, "NAME", "CREATED (UTC)", "PHASE")
	for _, s := range summaries {
		_, _ = fmt.Fprintf(w, "  %-*s  %-20s  %s\n", width, s.Name, s.CreatedAt.UTC().Format(time.DateTime), s.Phase)
	}
}

// PrintPlan writes the reconciliation a restore would need.
func PrintPlan(w io.Writer, plan checkpoint.Plan) {
	_, _ = fmt.Fprintf(w, messages.RollbackPlanHeaderFmt, plan.Checkpoint.Name, plan.Checkpoint.Phase, plan.Checkpoint.CreatedAt.UTC().Format(time.DateTime))
	if plan.Empty() {
		_, _ = fmt.Fprintln(w, messages.RollbackPlanEmpty)
		return
	}
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		_, _ = fmt.Fprintf(w, "  %s (%d):\n", title, len(items))
		_, _ = fmt.Fprintf(w, "    %s\n", strings.Join(items, " "))
	}
	section(messages.RollbackPlanRemove, plan.PackagesToRemove)
	section(messages.RollbackPlanReinstall, plan.PackagesToReinstall)
	section(messages.RollbackPlanLeaveGroups, plan.GroupsToLeave)
}
