// Package phase runs one installation phase: checkpoint, actions, validation, checkpoint.
package phase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/conn-castle/devsetup/internal/action"
	"github.com/conn-castle/devsetup/internal/checkpoint"
	"github.com/conn-castle/devsetup/internal/logging"
	"github.com/conn-castle/devsetup/internal/messages"
	"github.com/conn-castle/devsetup/internal/validate"
)

// Phase is an ordered unit of installation work. It is immutable during a run.
type Phase struct {
	Ordinal int
	Name    string
	// State is the orchestrator state label entered for this phase.
	State      string
	Actions    []action.Action
	Validators []validate.Validator
	// Fatal stops the phase at the first failing action. A non-fatal phase
	// logs action failures as warnings and continues.
	Fatal bool
	// CompleteCheckpoint overrides the default "phase<N>_complete" name.
	CompleteCheckpoint string
}

// StartCheckpoint is the checkpoint written before the phase runs.
func (p Phase) StartCheckpoint() string {
	return fmt.Sprintf("phase%d_start", p.Ordinal)
}

// CompleteCheckpointName is the checkpoint written after the phase passes.
func (p Phase) CompleteCheckpointName() string {
	if p.CompleteCheckpoint != "" {
		return p.CompleteCheckpoint
	}
	return fmt.Sprintf("phase%d_complete", p.Ordinal)
}

// Status is the result of running a phase.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Outcome describes how a phase ended.
type Outcome struct {
	Phase  string
	Status Status
	// FailedAction describes the failing step when Status is failed.
	FailedAction string
	Err          error
	Validation   []validate.Result
	// Warnings lists action failures tolerated by a non-fatal phase.
	Warnings []error
}

// Error is the failure of one phase.
type Error struct {
	Ordinal int
	Phase   string
	Step    string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("phase %d (%s) failed at %s: %v", e.Ordinal, e.Phase, e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Checkpointer writes checkpoints.
type Checkpointer interface {
	Create(ctx context.Context, name string, cctx checkpoint.Context) (checkpoint.Handle, error)
}

// Runner executes phases against one environment and tracks the checkpoints it writes.
type Runner struct {
	env     action.Env
	store   Checkpointer
	total   int
	written []string
}

// NewRunner returns a runner for a run of total phases.
func NewRunner(env action.Env, store Checkpointer, total int) *Runner {
	if env.Log == nil {
		env.Log = logging.Discard()
	}
	return &Runner{env: env, store: store, total: total}
}

// Written returns the names of checkpoints written so far, in order.
func (r *Runner) Written() []string {
	return append([]string(nil), r.written...)
}

// Run executes p. The complete checkpoint is written only when every action
// succeeded and the validation gate passed.
func (r *Runner) Run(ctx context.Context, p Phase) Outcome {
	log := r.env.Log
	out := Outcome{Phase: p.Name, Status: StatusCompleted}
	log.ReportPhase(logging.PhaseEvent{Ordinal: p.Ordinal, Total: r.total, Name: p.Name, Status: logging.PhaseStarted, At: time.Now()})

	if err := r.checkpoint(ctx, p, p.StartCheckpoint()); err != nil {
		return r.fail(p, out, "checkpoint "+p.StartCheckpoint(), err)
	}

	for _, a := range p.Actions {
		if err := ctx.Err(); err != nil {
			return r.fail(p, out, a.Describe(), err)
		}
		if err := action.Execute(ctx, a, r.env); err != nil {
			if !p.Fatal {
				log.Warnf(messages.PhaseActionToleratedFmt, p.Name, err)
				out.Warnings = append(out.Warnings, err)
				continue
			}
			return r.fail(p, out, a.Describe(), err)
		}
	}

	if len(p.Validators) > 0 {
		out.Validation = validate.Run(ctx, validate.Env{Config: r.env.Config, System: r.env.System}, p.Validators)
		dryRun := r.env.Config.DryRun()
		validate.Report(log, out.Validation, dryRun)
		if err := validate.Check(out.Validation); err != nil {
			if !dryRun {
				return r.fail(p, out, messages.PhaseStepValidation, err)
			}
			log.Infof(messages.PhaseDryRunValidationFmt, len(validate.Failures(out.Validation)))
		}
	}

	if err := r.checkpoint(ctx, p, p.CompleteCheckpointName()); err != nil {
		return r.fail(p, out, "checkpoint "+p.CompleteCheckpointName(), err)
	}
	log.ReportPhase(logging.PhaseEvent{Ordinal: p.Ordinal, Total: r.total, Name: p.Name, Status: logging.PhaseCompleted, At: time.Now()})
	return out
}

func (r *Runner) checkpoint(ctx context.Context, p Phase, name string) error {
	handle, err := r.store.Create(ctx, name, checkpoint.Context{Phase: p.Name})
	if err != nil {
		return err
	}
	if !handle.Skipped {
		r.written = append(r.written, name)
	}
	return nil
}

func (r *Runner) fail(p Phase, out Outcome, step string, err error) Outcome {
	out.Status = StatusFailed
	out.FailedAction = step
	out.Err = &Error{Ordinal: p.Ordinal, Phase: p.Name, Step: step, Err: err}
	line, rest, _ := strings.Cut(err.Error(), "\n")
	detail := line
	if !strings.HasPrefix(line, step) {
		detail = step + ": " + line
	}
	r.env.Log.ReportPhase(logging.PhaseEvent{Ordinal: p.Ordinal, Total: r.total, Name: p.Name, Status: logging.PhaseFailed, Detail: detail, At: time.Now()})
	if strings.TrimSpace(rest) != "" {
		r.env.Log.Errorf("%s", rest)
	}
	return out
}
