package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/devsetup/internal/config"
)

func TestApplyBlock(t *testing.T) {
	lines := []string{"export PATH=/usr/local/go/bin:$PATH"}
	block := "# >>> devsetup >>>\nexport PATH=/usr/local/go/bin:$PATH\n# <<< devsetup <<<\n"

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty", content: "", want: block},
		{name: "append", content: "alias ll='ls -l'\n", want: "alias ll='ls -l'\n\n" + block},
		{name: "append no newline", content: "alias ll='ls -l'", want: "alias ll='ls -l'\n\n" + block},
		{
			name:    "replace in place",
			content: "a\n# >>> devsetup >>>\nold\n# <<< devsetup <<<\nb\n",
			want:    "a\n" + block + "b\n",
		},
		{name: "already current", content: "a\n\n" + block, want: "a\n\n" + block},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyBlock(tt.content, "devsetup", lines)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyBlockUnbalanced(t *testing.T) {
	_, err := ApplyBlock("# >>> devsetup >>>\nx\n", "devsetup", nil)
	assert.Error(t, err)
	_, err = ApplyBlock("x\n# <<< devsetup <<<\n", "devsetup", nil)
	assert.Error(t, err)
}

func TestApplyBlockIgnoresPartialLineMatches(t *testing.T) {
	content := "echo '# >>> devsetup >>>'\n"
	got, err := ApplyBlock(content, "devsetup", []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, content+"\n# >>> devsetup >>>\nx\n# <<< devsetup <<<\n", got)
}

func TestProfileBlock(t *testing.T) {
	env, fake, _ := newEnv(t, config.ModeApply)
	fake.AddUser("alice")
	fake.AddFile("/home/alice/.bashrc", "# user stuff\n", 0o600)
	ctx := context.Background()
	a := ProfileBlock{User: "alice", Path: "~/.bashrc", Marker: "devsetup", Lines: []string{"export A=1"}}

	require.NoError(t, Execute(ctx, a, env))
	assert.Equal(t, "# user stuff\n\n# >>> devsetup >>>\nexport A=1\n# <<< devsetup <<<\n", fake.FileContent("/home/alice/.bashrc"))
	info, err := fake.Stat("/home/alice/.bashrc")
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())

	writes := len(fake.Mutations)
	require.NoError(t, Execute(ctx, a, env))
	assert.Len(t, fake.Mutations, writes)
}

func TestProfileBlockDryRun(t *testing.T) {
	env, fake, buf := newEnv(t, config.ModeDryRun)
	a := ProfileBlock{User: "alice", Path: "~/.bashrc", Marker: "devsetup", Lines: []string{"export A=1"}}

	require.NoError(t, Execute(context.Background(), a, env))
	assert.Empty(t, fake.Mutations)
	assert.Contains(t, buf.String(), "[dry-run] would write /home/alice/.bashrc")
	assert.Contains(t, buf.String(), "+export A=1")
}
