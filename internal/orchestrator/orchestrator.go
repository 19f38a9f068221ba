// Package orchestrator sequences the installation phases and selects the run mode.
//
// Install mode walks the state machine Detecting through Finalizing, one phase
// per state, and stops in Aborted on the first failed phase. Validate-only
// mode visits only Validating. Rollback mode bypasses the state machine and
// inspects checkpoints.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/conn-castle/devsetup/internal/action"
	"github.com/conn-castle/devsetup/internal/checkpoint"
	"github.com/conn-castle/devsetup/internal/config"
	"github.com/conn-castle/devsetup/internal/logging"
	"github.com/conn-castle/devsetup/internal/messages"
	"github.com/conn-castle/devsetup/internal/phase"
	"github.com/conn-castle/devsetup/internal/preflight"
	"github.com/conn-castle/devsetup/internal/system"
	"github.com/conn-castle/devsetup/internal/validate"
)

// Mode selects what a run does.
type Mode string

const (
	ModeInstall      Mode = "install"
	ModeValidateOnly Mode = "validate-only"
	ModeRollback     Mode = "rollback"
)

// ModeOf derives the run mode from cfg.
func ModeOf(cfg config.RunConfig) Mode {
	switch {
	case cfg.Rollback:
		return ModeRollback
	case cfg.ValidateOnly:
		return ModeValidateOnly
	default:
		return ModeInstall
	}
}

// UsageError is invalid command-line input.
type UsageError struct {
	Err error
}

func (e UsageError) Error() string {
	return e.Err.Error()
}

func (e UsageError) Unwrap() error {
	return e.Err
}

// ExitCode maps a run error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// BaselineCheckpoint is written once preflight passes, before phase 1 starts.
const BaselineCheckpoint = "pre_install"

// Picker lets an operator choose a checkpoint interactively. Returning
// picker.ErrCancelled ends the rollback after the listing.
type Picker interface {
	PickCheckpoint(summaries []checkpoint.Summary) (string, error)
}

// Deps are the collaborators of a run.
type Deps struct {
	System     system.System
	Log        *logging.Logger
	Out        io.Writer
	HTTPClient *http.Client
	Phases     func(cfg config.RunConfig) []phase.Phase
	Validators func(cfg config.RunConfig) []validate.Validator
	Locker     Locker
	// Picker is consulted in rollback mode when no checkpoint was named. Nil disables it.
	Picker Picker
}

// Result summarizes a run.
type Result struct {
	Mode        Mode
	Final       State
	Visited     []State
	Checkpoints []string
	Validation  []validate.Result
	Plan        *checkpoint.Plan
	Err         error
}

// Orchestrator runs one configured mode.
type Orchestrator struct {
	cfg   config.RunConfig
	deps  Deps
	store *checkpoint.Store
}

// New returns an orchestrator for cfg.
func New(cfg config.RunConfig, deps Deps) *Orchestrator {
	if deps.Log == nil {
		deps.Log = logging.Discard()
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	if deps.Locker == nil {
		deps.Locker = FileLocker{}
	}
	return &Orchestrator{
		cfg:   cfg,
		deps:  deps,
		store: checkpoint.NewStore(cfg, deps.System, deps.Log),
	}
}

// Run executes the mode selected by the configuration.
func (o *Orchestrator) Run(ctx context.Context) Result {
	mode := ModeOf(o.cfg)
	var res Result
	switch mode {
	case ModeRollback, ModeValidateOnly:
		// Install runs the full preflight list itself.
		if err := preflight.Run(ctx, o.env(), []preflight.Check{preflight.Privilege()}); err != nil {
			return Result{Mode: mode, Final: StateAborted, Err: err}
		}
	}
	switch mode {
	case ModeRollback:
		res = o.rollback(ctx)
	case ModeValidateOnly:
		res = o.validateOnly(ctx)
	default:
		res = o.install(ctx)
	}
	res.Mode = mode
	return res
}

func (o *Orchestrator) env() action.Env {
	return action.Env{Config: o.cfg, System: o.deps.System, Log: o.deps.Log, HTTPClient: o.deps.HTTPClient}
}

func (o *Orchestrator) install(ctx context.Context) (res Result) {
	log := o.deps.Log
	log.Infof(messages.OrchestratorStartFmt, o.cfg.TargetUser, o.cfg.Mode, o.cfg.RunID)

	phases := o.deps.Phases(o.cfg)
	if err := checkDefinition(phases); err != nil {
		log.Errorf("%v", err)
		return aborted(res, err)
	}
	if err := preflight.Run(ctx, o.env(), preflight.Checks(o.cfg.DryRun())); err != nil {
		return aborted(res, err)
	}
	if o.cfg.Mutates() {
		release, err := o.deps.Locker.Acquire(o.cfg.Settings.LockFile)
		if err != nil {
			log.Errorf("%v", err)
			return aborted(res, err)
		}
		defer func() {
			if err := release(); err != nil {
				log.Warnf(messages.LockReleaseFmt, err)
			}
		}()
	}

	baseline, err := o.store.Create(ctx, BaselineCheckpoint, checkpoint.Context{Phase: "preflight"})
	if err != nil {
		log.Errorf("%v", err)
		return aborted(res, err)
	}
	var written []string
	if !baseline.Skipped {
		written = append(written, baseline.Name)
	}
	res.Checkpoints = written

	runner := phase.NewRunner(o.env(), o.store, len(phases))
	state := StateDetecting
	for _, p := range phases {
		res.Visited = append(res.Visited, state)
		outcome := runner.Run(ctx, p)
		res.Checkpoints = append(slices.Clip(written), runner.Written()...)
		if outcome.Status != phase.StatusCompleted {
			o.reportAbort(res.Checkpoints)
			return aborted(res, outcome.Err)
		}
		next, err := Next(state)
		if err != nil {
			log.Errorf("%v", err)
			return aborted(res, err)
		}
		state = next
	}
	res.Final = state
	res.Visited = append(res.Visited, state)
	if o.cfg.DryRun() {
		log.Successf(messages.OrchestratorDryRunDoneFmt, len(phases))
	} else {
		log.Successf(messages.OrchestratorDoneFmt, o.cfg.TargetUser, len(res.Checkpoints))
	}
	return res
}

func (o *Orchestrator) reportAbort(written []string) {
	if len(written) == 0 {
		o.deps.Log.Warnf(messages.OrchestratorAbortNoCheckpoints)
		return
	}
	o.deps.Log.Warnf(messages.OrchestratorAbortCheckpointsFmt, strings.Join(written, ", "))
}

func (o *Orchestrator) validateOnly(ctx context.Context) Result {
	res := Result{Visited: []State{StateValidating}}
	results := validate.Run(ctx, validate.Env{Config: o.cfg, System: o.deps.System}, o.deps.Validators(o.cfg))
	res.Validation = results
	validate.Report(o.deps.Log, results, false)
	failures := len(validate.Failures(results))
	warnings := len(validate.Warnings(results))
	o.deps.Log.Infof(messages.OrchestratorValidationSummaryFmt, len(results)-failures-warnings, warnings, failures)
	if err := validate.Check(results); err != nil {
		res.Final = StateAborted
		res.Err = err
		return res
	}
	res.Final = StateDone
	return res
}

// checkDefinition verifies that phases follow the state machine order.
func checkDefinition(phases []phase.Phase) error {
	states := PhaseStates()
	if len(phases) != len(states) {
		return fmt.Errorf(messages.OrchestratorPhaseCountFmt, len(states), len(phases))
	}
	for i, p := range phases {
		if State(p.State) != states[i] || p.Ordinal != i+1 {
			return fmt.Errorf(messages.OrchestratorPhaseOrderFmt, i+1, p.Name, p.State, states[i])
		}
	}
	return nil
}

func aborted(res Result, err error) Result {
	res.Final = StateAborted
	res.Visited = append(res.Visited, StateAborted)
	res.Err = err
	return res
}
