package action

import (
	"context"

	"github.com/conn-castle/devsetup/internal/system"
)

// Command runs an external program. When Creates is set, the command is
// skipped once that path exists; "~/" resolves against Cmd.User's home.
// Commands without Creates must be safe to repeat.
type Command struct {
	Description string
	Cmd         system.Command
	Creates     string
}

func (a Command) Kind() Kind { return KindCommand }

func (a Command) Describe() string {
	if a.Description != "" {
		return a.Description
	}
	return a.Cmd.String()
}

func (a Command) Run(ctx context.Context, env Env) error {
	if a.Creates != "" {
		path, _, err := resolvePath(env, a.Creates, a.Cmd.User)
		if err != nil {
			return err
		}
		found, err := exists(env, path)
		if err != nil {
			return err
		}
		if found {
			satisfied(env, a.Describe())
			return nil
		}
	}
	if env.Config.DryRun() {
		wouldDo(env, "run %s", a.Cmd)
		return nil
	}
	if out, err := env.System.Exec(ctx, a.Cmd); err != nil {
		return commandFailure(err, out)
	}
	return nil
}
