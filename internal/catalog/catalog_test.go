package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/devsetup/internal/action"
	"github.com/conn-castle/devsetup/internal/config"
	"github.com/conn-castle/devsetup/internal/orchestrator"
)

func testConfig(t *testing.T) config.RunConfig {
	t.Helper()
	cfg, err := config.New(config.Input{TargetUser: "dev", RunID: "run-1"})
	require.NoError(t, err)
	return cfg
}

func TestPhases_MatchStateMachine(t *testing.T) {
	phases := Phases(testConfig(t))
	states := orchestrator.PhaseStates()
	require.Len(t, phases, len(states))
	for i, p := range phases {
		assert.Equal(t, i+1, p.Ordinal)
		assert.Equal(t, string(states[i]), p.State, p.Name)
		assert.True(t, p.Fatal, p.Name)
	}
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"detect", "base_setup", "languages", "dev_tools", "configure", "validate", "finalize"}, names)
}

func TestPhases_CheckpointNames(t *testing.T) {
	phases := Phases(testConfig(t))
	assert.Equal(t, "phase1_complete", phases[0].CompleteCheckpointName())
	assert.Equal(t, "phase7_start", phases[6].StartCheckpoint())
	assert.Equal(t, CompleteCheckpoint, phases[6].CompleteCheckpointName())
}

func TestPhases_ValidatePhaseUsesValidatorSet(t *testing.T) {
	cfg := testConfig(t)
	p := Phases(cfg)[5]
	assert.Empty(t, p.Actions)
	assert.Len(t, p.Validators, len(Validators(cfg)))
}

func TestPhases_ExtraPackagesJoinBaseSetup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Settings.ExtraPackages = []string{"htop"}
	install, ok := Phases(cfg)[1].Actions[0].(action.PackageInstall)
	require.True(t, ok)
	assert.True(t, install.Update)
	assert.Contains(t, install.Packages, "curl")
	assert.Contains(t, install.Packages, "htop")
	assert.NotContains(t, BasePackages, "htop")
}

func TestPhases_GoDownloadPinsVersion(t *testing.T) {
	cfg := testConfig(t)
	cfg.Settings.GoSHA256 = "abc"
	dl, ok := Phases(cfg)[2].Actions[0].(action.Download)
	require.True(t, ok)
	assert.Equal(t, "https://go.dev/dl/"+GoArchive(cfg.Settings.GoVersion, goArch), dl.URL)
	assert.Equal(t, "abc", dl.SHA256)
	assert.Equal(t, "/usr/local/go/bin/go", dl.Creates)
	assert.NotNil(t, dl.Checksum)
}

func TestGoArchive(t *testing.T) {
	assert.Equal(t, "go1.25.6.linux-arm64.tar.gz", GoArchive("1.25.6", "arm64"))
}

func TestValidators_Names(t *testing.T) {
	var names []string
	for _, v := range Validators(testConfig(t)) {
		names = append(names, v.Name())
	}
	assert.Contains(t, names, "go")
	assert.Contains(t, names, "python")
	assert.Contains(t, names, "rust")
	assert.Contains(t, names, "user account")
	assert.Contains(t, names, "shell profile")
}

func TestFinalize_OwnershipResolvesHome(t *testing.T) {
	finalize := Phases(testConfig(t))[6]
	require.NotEmpty(t, finalize.Actions)
	assert.Equal(t, action.Ownership{User: "dev", Path: "~"}, finalize.Actions[0])
}
