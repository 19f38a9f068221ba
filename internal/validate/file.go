package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/conn-castle/devsetup/internal/messages"
	"github.com/conn-castle/devsetup/internal/system"
)

// File checks that an artifact exists. "~/" resolves against the target user's home.
type File struct {
	Label string
	Path  string
	// Contains, when set, must appear in the file.
	Contains string
}

func (f File) Name() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Path
}

func (f File) Check(_ context.Context, env Env) Result {
	path := f.Path
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		u, err := env.System.LookupUser(env.Config.TargetUser)
		if err != nil {
			return Result{Name: f.Name(), Status: StatusFail, Detail: fmt.Sprintf(messages.ValidateUserMissingFmt, env.Config.TargetUser)}
		}
		path = system.HomePath(u, rest)
	}
	data, err := env.System.ReadFile(path)
	if err != nil {
		return Result{Name: f.Name(), Status: StatusFail, Detail: fmt.Sprintf(messages.ValidateMissingFileFmt, path)}
	}
	if f.Contains != "" && !strings.Contains(string(data), f.Contains) {
		return Result{Name: f.Name(), Status: StatusFail, Detail: fmt.Sprintf(messages.ValidateFileLacksFmt, path, f.Contains)}
	}
	return Result{Name: f.Name(), Status: StatusOK, Detail: fmt.Sprintf(messages.ValidateFoundFmt, path)}
}

// Identity checks that the target user exists and belongs to Groups.
type Identity struct {
	Groups []string
}

func (i Identity) Name() string { return "user account" }

func (i Identity) Check(ctx context.Context, env Env) Result {
	username := env.Config.TargetUser
	if _, err := env.System.LookupUser(username); err != nil {
		return Result{Name: i.Name(), Status: StatusFail, Detail: fmt.Sprintf(messages.ValidateUserMissingFmt, username)}
	}
	if len(i.Groups) == 0 {
		return Result{Name: i.Name(), Status: StatusOK, Detail: fmt.Sprintf(messages.ValidateUserExistsFmt, username)}
	}
	out, err := env.System.Query(ctx, system.Command{Name: "id", Args: []string{"-Gn", username}})
	if err != nil {
		return Result{Name: i.Name(), Status: StatusFail, Detail: fmt.Sprintf(messages.ValidateGroupsUnknownFmt, username, err)}
	}
	have := make(map[string]bool)
	for _, g := range strings.Fields(string(out)) {
		have[g] = true
	}
	var missing []string
	for _, g := range i.Groups {
		if !have[g] {
			missing = append(missing, g)
		}
	}
	if len(missing) > 0 {
		return Result{Name: i.Name(), Status: StatusFail, Detail: fmt.Sprintf(messages.ValidateGroupsMissingFmt, username, strings.Join(missing, ", "))}
	}
	return Result{Name: i.Name(), Status: StatusOK, Detail: fmt.Sprintf(messages.ValidateUserInGroupsFmt, username, strings.Join(i.Groups, ", "))}
}
