package action

import (
	"context"
	"strings"

	"github.com/conn-castle/devsetup/internal/system"
)

var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// PackageInstall installs distribution packages with apt-get.
type PackageInstall struct {
	Packages []string
	// Update refreshes package indexes before installing.
	Update bool
}

func (a PackageInstall) Kind() Kind { return KindPackageInstall }

func (a PackageInstall) Describe() string {
	return "install packages " + strings.Join(a.Packages, " ")
}

func (a PackageInstall) Run(ctx context.Context, env Env) error {
	missing := make([]string, 0, len(a.Packages))
	for _, pkg := range a.Packages {
		if !packageInstalled(ctx, env, pkg) {
			missing = append(missing, pkg)
		}
	}
	if len(missing) == 0 {
		satisfied(env, a.Describe())
		return nil
	}

	update := system.Command{Name: "apt-get", Args: []string{"update"}, Env: aptEnv}
	install := system.Command{
		Name: "apt-get",
		Args: append([]string{"install", "-y", "--no-install-recommends"}, missing...),
		Env:  aptEnv,
	}
	if env.Config.DryRun() {
		if a.Update {
			wouldDo(env, "run %s", update)
		}
		wouldDo(env, "run %s", install)
		return nil
	}
	if a.Update {
		if out, err := env.System.Exec(ctx, update); err != nil {
			return commandFailure(err, out)
		}
	}
	if out, err := env.System.Exec(ctx, install); err != nil {
		return commandFailure(err, out)
	}
	return nil
}

// packageInstalled asks dpkg for the package's status. Unknown packages and
// removed packages with leftover config both count as not installed.
func packageInstalled(ctx context.Context, env Env, pkg string) bool {
	out, err := env.System.Query(ctx, system.Command{Name: "dpkg-query", Args: []string{"-W", "-f=${db:Status-Status}", pkg}})
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) == "installed"
}
