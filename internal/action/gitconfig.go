package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/conn-castle/devsetup/internal/system"
)

// GitConfig sets one global git option for a user.
type GitConfig struct {
	User  string
	Key   string
	Value string
}

func (a GitConfig) Kind() Kind { return KindGitConfig }

func (a GitConfig) Describe() string {
	return fmt.Sprintf("set git %s=%s for %s", a.Key, a.Value, a.User)
}

func (a GitConfig) Run(ctx context.Context, env Env) error {
	u, _, err := account(env, a.User)
	if err != nil {
		return err
	}
	if u != nil {
		// git exits 1 when the key is unset.
		out, err := env.System.Query(ctx, system.Command{Name: "git", User: a.User, Args: []string{"config", "--global", "--get", a.Key}})
		if err == nil && strings.TrimSpace(string(out)) == a.Value {
			satisfied(env, a.Describe())
			return nil
		}
	}
	cmd := system.Command{Name: "git", User: a.User, Args: []string{"config", "--global", a.Key, a.Value}}
	if env.Config.DryRun() {
		wouldDo(env, "run %s", cmd)
		return nil
	}
	if out, err := env.System.Exec(ctx, cmd); err != nil {
		return commandFailure(err, out)
	}
	return nil
}
