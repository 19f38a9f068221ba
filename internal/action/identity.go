package action

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/conn-castle/devsetup/internal/messages"
	"github.com/conn-castle/devsetup/internal/system"
)

// IdentityCreate creates a login account with a home directory.
type IdentityCreate struct {
	User  string
	Shell string
}

func (a IdentityCreate) Kind() Kind { return KindIdentityCreate }

func (a IdentityCreate) Describe() string { return "create user " + a.User }

func (a IdentityCreate) Run(ctx context.Context, env Env) error {
	_, err := env.System.LookupUser(a.User)
	if err == nil {
		satisfied(env, a.Describe())
		return nil
	}
	if !system.IsUnknownUser(err) {
		return fmt.Errorf(messages.ActionLookupUserFmt, a.User, err)
	}
	shell := a.Shell
	if shell == "" {
		shell = "/bin/bash"
	}
	cmd := system.Command{Name: "useradd", Args: []string{"-m", "-s", shell, a.User}}
	if env.Config.DryRun() {
		wouldDo(env, "run %s", cmd)
		return nil
	}
	if out, err := env.System.Exec(ctx, cmd); err != nil {
		return commandFailure(err, out)
	}
	return nil
}

// GroupMembership adds a user to a supplementary group.
type GroupMembership struct {
	User  string
	Group string
}

func (a GroupMembership) Kind() Kind { return KindGroupMembership }

func (a GroupMembership) Describe() string {
	return fmt.Sprintf("add %s to group %s", a.User, a.Group)
}

func (a GroupMembership) Run(ctx context.Context, env Env) error {
	u, _, err := account(env, a.User)
	if err != nil {
		return err
	}
	if u != nil {
		groups, err := UserGroups(ctx, env.System, a.User)
		if err != nil {
			return err
		}
		if slices.Contains(groups, a.Group) {
			satisfied(env, a.Describe())
			return nil
		}
	}
	cmd := system.Command{Name: "usermod", Args: []string{"-aG", a.Group, a.User}}
	if env.Config.DryRun() {
		wouldDo(env, "run %s", cmd)
		return nil
	}
	if out, err := env.System.Exec(ctx, cmd); err != nil {
		return commandFailure(err, out)
	}
	return nil
}

// UserGroups lists the group names of an existing user.
func UserGroups(ctx context.Context, sys system.System, username string) ([]string, error) {
	out, err := sys.Query(ctx, system.Command{Name: "id", Args: []string{"-Gn", username}})
	if err != nil {
		return nil, commandFailure(err, out)
	}
	return strings.Fields(string(out)), nil
}
