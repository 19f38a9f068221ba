package phase

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/devsetup/internal/action"
	"github.com/conn-castle/devsetup/internal/checkpoint"
	"github.com/conn-castle/devsetup/internal/config"
	"github.com/conn-castle/devsetup/internal/logging"
	"github.com/conn-castle/devsetup/internal/testutil"
	"github.com/conn-castle/devsetup/internal/validate"
)

type stubAction struct {
	name string
	err  error
	ran  *[]string
}

func (s stubAction) Kind() action.Kind { return action.KindCommand }
func (s stubAction) Describe() string  { return s.name }
func (s stubAction) Run(context.Context, action.Env) error {
	*s.ran = append(*s.ran, s.name)
	return s.err
}

type stubValidator struct {
	status validate.Status
}

func (s stubValidator) Name() string { return "tool" }
func (s stubValidator) Check(context.Context, validate.Env) validate.Result {
	return validate.Result{Status: s.status, Detail: "checked"}
}

type harness struct {
	runner *Runner
	store  *checkpoint.Store
	fake   *testutil.FakeSystem
	log    *bytes.Buffer
}

func newHarness(t *testing.T, mode config.Mode) harness {
	t.Helper()
	fake := testutil.NewFakeSystem()
	var buf bytes.Buffer
	cfg := config.RunConfig{TargetUser: "alice", Mode: mode, RunID: "run-1", Settings: config.DefaultSettings()}
	log := logging.New(logging.Options{Console: &buf})
	store := checkpoint.NewStore(cfg, fake, log)
	env := action.Env{Config: cfg, System: fake, Log: log}
	return harness{runner: NewRunner(env, store, 7), store: store, fake: fake, log: &buf}
}

func checkpointNames(s *checkpoint.Store) []string {
	var names []string
	for summary := range s.List() {
		names = append(names, summary.Name)
	}
	return names
}

func TestRunCompletesAndWritesBothCheckpoints(t *testing.T) {
	h := newHarness(t, config.ModeApply)
	var ran []string
	p := Phase{
		Ordinal:    2,
		Name:       "base_setup",
		Fatal:      true,
		Actions:    []action.Action{stubAction{name: "a", ran: &ran}, stubAction{name: "b", ran: &ran}},
		Validators: []validate.Validator{stubValidator{status: validate.StatusWarn}},
	}

	out := h.runner.Run(context.Background(), p)
	require.NoError(t, out.Err)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, []string{"phase2_start", "phase2_complete"}, h.runner.Written())
	assert.Equal(t, []string{"phase2_start", "phase2_complete"}, checkpointNames(h.store))
	require.Len(t, out.Validation, 1)
	assert.Equal(t, "tool", out.Validation[0].Name)
	assert.Contains(t, h.log.String(), "[INFO] Phase 2/7: base_setup")
	assert.Contains(t, h.log.String(), "[SUCCESS] Phase 2/7 base_setup completed")
}

func TestRunFailingActionNeverWritesComplete(t *testing.T) {
	h := newHarness(t, config.ModeApply)
	var ran []string
	boom := errors.New("apt-get exploded")
	p := Phase{
		Ordinal: 3,
		Name:    "languages",
		Fatal:   true,
		Actions: []action.Action{
			stubAction{name: "install go", ran: &ran},
			stubAction{name: "install python", err: boom, ran: &ran},
			stubAction{name: "install node", ran: &ran},
		},
	}

	out := h.runner.Run(context.Background(), p)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, "install python", out.FailedAction)
	assert.Equal(t, []string{"install go", "install python"}, ran)
	assert.ErrorIs(t, out.Err, boom)

	var phaseErr *Error
	require.ErrorAs(t, out.Err, &phaseErr)
	assert.Equal(t, 3, phaseErr.Ordinal)
	var actionErr *action.Error
	require.ErrorAs(t, out.Err, &actionErr)

	assert.Equal(t, []string{"phase3_start"}, h.runner.Written())
	assert.NotContains(t, checkpointNames(h.store), "phase3_complete")
	assert.Contains(t, h.log.String(), "[ERROR] Phase 3/7 languages failed: install python: apt-get exploded")
}

func TestRunHardValidationFailureFailsPhase(t *testing.T) {
	h := newHarness(t, config.ModeApply)
	p := Phase{Ordinal: 6, Name: "validate", Fatal: true, Validators: []validate.Validator{stubValidator{status: validate.StatusFail}}}

	out := h.runner.Run(context.Background(), p)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, "validation", out.FailedAction)
	var gateErr *validate.GateError
	assert.ErrorAs(t, out.Err, &gateErr)
	assert.Equal(t, []string{"phase6_start"}, checkpointNames(h.store))
}

func TestRunDryRunDowngradesValidationAndWritesNothing(t *testing.T) {
	h := newHarness(t, config.ModeDryRun)
	var ran []string
	p := Phase{
		Ordinal:            7,
		Name:               "finalize",
		Fatal:              true,
		CompleteCheckpoint: "installation_complete",
		Actions:            []action.Action{stubAction{name: "chown", ran: &ran}},
		Validators:         []validate.Validator{stubValidator{status: validate.StatusFail}},
	}

	out := h.runner.Run(context.Background(), p)
	require.NoError(t, out.Err)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Empty(t, h.runner.Written())
	assert.Empty(t, h.fake.Mutations)
	assert.NotContains(t, h.log.String(), "[ERROR]")
	assert.Contains(t, h.log.String(), "[dry-run] would write checkpoint installation_complete")
}

func TestRunCheckpointFailureIsFatal(t *testing.T) {
	h := newHarness(t, config.ModeApply)
	h.fake.WriteErr["/var/lib/devsetup/checkpoints/.phase1_start.staging/metadata.json"] = errors.New("no space left on device")
	var ran []string
	p := Phase{Ordinal: 1, Name: "detect", Fatal: true, Actions: []action.Action{stubAction{name: "inspect", ran: &ran}}}

	out := h.runner.Run(context.Background(), p)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Empty(t, ran)
	var cpErr *checkpoint.Error
	assert.ErrorAs(t, out.Err, &cpErr)
	assert.Empty(t, h.runner.Written())
}

func TestRunNonFatalPhaseContinues(t *testing.T) {
	h := newHarness(t, config.ModeApply)
	var ran []string
	p := Phase{
		Ordinal: 4,
		Name:    "dev_tools",
		Actions: []action.Action{
			stubAction{name: "optional", err: errors.New("mirror down"), ran: &ran},
			stubAction{name: "next", ran: &ran},
		},
	}

	out := h.runner.Run(context.Background(), p)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Len(t, out.Warnings, 1)
	assert.Equal(t, []string{"optional", "next"}, ran)
	assert.Equal(t, []string{"phase4_start", "phase4_complete"}, h.runner.Written())
	assert.Contains(t, h.log.String(), "[WARN] Phase dev_tools continues after non-fatal failure")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	h := newHarness(t, config.ModeApply)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran []string
	p := Phase{Ordinal: 2, Name: "base_setup", Fatal: true, Actions: []action.Action{stubAction{name: "a", ran: &ran}}}

	out := h.runner.Run(ctx, p)
	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Empty(t, ran)
}

func TestCheckpointNames(t *testing.T) {
	p := Phase{Ordinal: 5}
	assert.Equal(t, "phase5_start", p.StartCheckpoint())
	assert.Equal(t, "phase5_complete", p.CompleteCheckpointName())
	p.CompleteCheckpoint = "installation_complete"
	assert.Equal(t, "installation_complete", p.CompleteCheckpointName())
}
