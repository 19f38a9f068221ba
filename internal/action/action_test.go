package action

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/devsetup/internal/config"
	"github.com/conn-castle/devsetup/internal/logging"
	"github.com/conn-castle/devsetup/internal/system"
	"github.com/conn-castle/devsetup/internal/testutil"
)

func newEnv(t *testing.T, mode config.Mode) (Env, *testutil.FakeSystem, *bytes.Buffer) {
	t.Helper()
	fake := testutil.NewFakeSystem()
	var buf bytes.Buffer
	env := Env{
		Config: config.RunConfig{TargetUser: "alice", Mode: mode, RunID: "run-1", Settings: config.DefaultSettings()},
		System: fake,
		Log:    logging.New(logging.Options{Console: &buf}),
	}
	return env, fake, &buf
}

func TestExecuteWrapsFailures(t *testing.T) {
	env, fake, _ := newEnv(t, config.ModeApply)
	boom := errors.New("exit status 100")
	fake.OnExec("apt-get", func(*testutil.FakeSystem, system.Command) ([]byte, error) {
		return []byte("E: Unable to locate package nope"), boom
	})

	a := PackageInstall{Packages: []string{"nope"}}
	err := Execute(context.Background(), a, env)

	var actionErr *Error
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, KindPackageInstall, actionErr.Kind)
	assert.Equal(t, "install packages nope", actionErr.Description)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Unable to locate package nope")
}

func TestExecuteKeepsExistingActionError(t *testing.T) {
	env, _, _ := newEnv(t, config.ModeApply)
	inner := &Error{Kind: KindCommand, Description: "inner", Err: errors.New("x")}
	a := Inspect{Name: "thing", Probe: func(context.Context, Env) (string, error) { return "", inner }}

	err := Execute(context.Background(), a, env)
	assert.Same(t, inner, err)
}

func TestInspect(t *testing.T) {
	env, fake, buf := newEnv(t, config.ModeDryRun)
	fake.AddFile(OSReleasePath, "ID=ubuntu\nVERSION_ID=\"24.04\"\nPRETTY_NAME=\"Ubuntu 24.04 LTS\"\n", 0o644)
	fake.OnQuery("uname", func(*testutil.FakeSystem, system.Command) ([]byte, error) {
		return []byte("x86_64\n"), nil
	})
	ctx := context.Background()

	require.NoError(t, Execute(ctx, InspectOS(), env))
	require.NoError(t, Execute(ctx, InspectCommand("architecture", system.Command{Name: "uname", Args: []string{"-m"}}), env))
	require.NoError(t, Execute(ctx, InspectMemory(), env))

	out := buf.String()
	assert.Contains(t, out, "Detected operating system: Ubuntu 24.04 LTS")
	assert.Contains(t, out, "Detected architecture: x86_64")
	assert.Contains(t, out, "Detected memory: 8192 MiB")
	assert.Empty(t, fake.Mutations)
}

func TestInspectOSMissing(t *testing.T) {
	env, _, _ := newEnv(t, config.ModeApply)
	err := Execute(context.Background(), InspectOS(), env)
	assert.ErrorContains(t, err, OSReleasePath)
}

func TestPackageInstall(t *testing.T) {
	env, fake, _ := newEnv(t, config.ModeApply)
	fake.Packages["curl"] = true
	ctx := context.Background()
	a := PackageInstall{Packages: []string{"curl", "git"}, Update: true}

	require.NoError(t, Execute(ctx, a, env))
	require.Len(t, fake.Execs, 2)
	assert.Equal(t, []string{"update"}, fake.Execs[0].Args)
	assert.Equal(t, []string{"install", "-y", "--no-install-recommends", "git"}, fake.Execs[1].Args)
	assert.Equal(t, []string{"DEBIAN_FRONTEND=noninteractive"}, fake.Execs[1].Env)

	require.NoError(t, Execute(ctx, a, env))
	assert.Len(t, fake.Execs, 2, "second run must not reinstall")
}

func TestPackageInstallDryRun(t *testing.T) {
	env, fake, buf := newEnv(t, config.ModeDryRun)
	require.NoError(t, Execute(context.Background(), PackageInstall{Packages: []string{"git"}, Update: true}, env))
	assert.Empty(t, fake.Mutations)
	assert.Contains(t, buf.String(), "[dry-run] would run apt-get update")
	assert.Contains(t, buf.String(), "[dry-run] would run apt-get install -y --no-install-recommends git")
}

func TestIdentityCreate(t *testing.T) {
	env, fake, buf := newEnv(t, config.ModeApply)
	ctx := context.Background()
	a := IdentityCreate{User: "alice"}

	require.NoError(t, Execute(ctx, a, env))
	require.NoError(t, Execute(ctx, a, env))
	assert.Equal(t, 1, fake.ExecCount("useradd"))
	assert.Equal(t, []string{"-m", "-s", "/bin/bash", "alice"}, fake.Execs[0].Args)
	assert.Contains(t, buf.String(), "Already satisfied: create user alice")
}

func TestIdentityCreateDryRun(t *testing.T) {
	env, fake, buf := newEnv(t, config.ModeDryRun)
	require.NoError(t, Execute(context.Background(), IdentityCreate{User: "alice"}, env))
	assert.Empty(t, fake.Mutations)
	assert.Contains(t, buf.String(), "[dry-run] would run useradd -m -s /bin/bash alice")
}

func TestGroupMembership(t *testing.T) {
	env, fake, _ := newEnv(t, config.ModeApply)
	fake.AddUser("alice")
	ctx := context.Background()
	a := GroupMembership{User: "alice", Group: "sudo"}

	require.NoError(t, Execute(ctx, a, env))
	require.NoError(t, Execute(ctx, a, env))
	assert.Equal(t, 1, fake.ExecCount("usermod"))
	assert.Equal(t, []string{"alice", "sudo"}, fake.Groups["alice"])
}

func TestGroupMembershipMissingUser(t *testing.T) {
	env, fake, _ := newEnv(t, config.ModeApply)
	err := Execute(context.Background(), GroupMembership{User: "alice", Group: "sudo"}, env)
	assert.ErrorContains(t, err, "look up user alice")
	assert.Empty(t, fake.Mutations)

	dry, fake, buf := newEnv(t, config.ModeDryRun)
	require.NoError(t, Execute(context.Background(), GroupMembership{User: "alice", Group: "sudo"}, dry))
	assert.Empty(t, fake.Mutations)
	assert.Contains(t, buf.String(), "[dry-run] would run usermod -aG sudo alice")
}

func TestCommandCreatesGuard(t *testing.T) {
	env, fake, _ := newEnv(t, config.ModeApply)
	fake.AddUser("alice")
	fake.OnExec("sh", func(f *testutil.FakeSystem, cmd system.Command) ([]byte, error) {
		f.AddExecutable("/home/alice/.cargo/bin/rustup")
		return nil, nil
	})
	ctx := context.Background()
	a := Command{
		Description: "install rustup",
		Cmd:         system.Command{Name: "sh", User: "alice", Args: []string{"-c", "curl https://sh.rustup.rs | sh -s -- -y"}},
		Creates:     "~/.cargo/bin/rustup",
	}

	require.NoError(t, Execute(ctx, a, env))
	require.NoError(t, Execute(ctx, a, env))
	assert.Equal(t, 1, fake.ExecCount("sh"))
	assert.Equal(t, "install rustup", a.Describe())
}

func TestCommandDryRunAndFailure(t *testing.T) {
	env, fake, buf := newEnv(t, config.ModeDryRun)
	a := Command{Cmd: system.Command{Name: "tar", Args: []string{"-C", "/usr/local", "-xzf", "/tmp/go.tgz"}}}
	require.NoError(t, Execute(context.Background(), a, env))
	assert.Empty(t, fake.Mutations)
	assert.Contains(t, buf.String(), "[dry-run] would run tar -C /usr/local -xzf /tmp/go.tgz")

	apply, fake, _ := newEnv(t, config.ModeApply)
	fake.OnExec("tar", func(*testutil.FakeSystem, system.Command) ([]byte, error) {
		return []byte("tar: go.tgz: Cannot open"), errors.New("exit status 2")
	})
	err := Execute(context.Background(), a, apply)
	assert.ErrorContains(t, err, "Cannot open")
}

func TestGitConfig(t *testing.T) {
	env, fake, _ := newEnv(t, config.ModeApply)
	fake.AddUser("alice")
	ctx := context.Background()
	a := GitConfig{User: "alice", Key: "init.defaultBranch", Value: "main"}

	require.NoError(t, Execute(ctx, a, env))
	require.NoError(t, Execute(ctx, a, env))
	assert.Equal(t, 1, fake.ExecCount("git"))
	assert.Equal(t, "main", fake.GitConfig["alice:init.defaultBranch"])
	assert.Equal(t, "alice", fake.Execs[0].User)
}

func TestGitConfigDryRunUnknownUser(t *testing.T) {
	env, fake, buf := newEnv(t, config.ModeDryRun)
	require.NoError(t, Execute(context.Background(), GitConfig{User: "alice", Key: "pull.rebase", Value: "false"}, env))
	assert.Empty(t, fake.Mutations)
	assert.Contains(t, buf.String(), "[dry-run] would run git config --global pull.rebase false (as alice)")
}
