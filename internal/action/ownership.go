package action

import (
	"context"
	"fmt"

	"github.com/conn-castle/devsetup/internal/system"
)

// Ownership recursively hands a tree to a user and the user's primary group.
// Path may start with "~", which resolves against the account's real home.
type Ownership struct {
	User string
	Path string
}

func (a Ownership) Kind() Kind { return KindOwnership }

func (a Ownership) Describe() string {
	return fmt.Sprintf("fix ownership of %s for %s", a.target(), a.User)
}

func (a Ownership) target() string {
	if a.Path == "" {
		return "~"
	}
	return a.Path
}

func (a Ownership) Run(ctx context.Context, env Env) error {
	u, home, err := account(env, a.User)
	if err != nil {
		return err
	}
	owner := a.User + ":" + a.User
	if u != nil {
		uid, gid, err := system.UserIDs(u)
		if err != nil {
			return err
		}
		owner = fmt.Sprintf("%d:%d", uid, gid)
	}
	cmd := system.Command{Name: "chown", Args: []string{"-R", owner, expandHome(a.target(), home)}}
	if env.Config.DryRun() {
		wouldDo(env, "run %s", cmd)
		return nil
	}
	if out, err := env.System.Exec(ctx, cmd); err != nil {
		return commandFailure(err, out)
	}
	return nil
}
