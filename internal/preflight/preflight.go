// Package preflight verifies host preconditions before any phase runs.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/conn-castle/devsetup/internal/action"
	"github.com/conn-castle/devsetup/internal/envfile"
	"github.com/conn-castle/devsetup/internal/logging"
	"github.com/conn-castle/devsetup/internal/messages"
)

// Check names.
const (
	CheckPrivilege    = "privilege"
	CheckOS           = "os"
	CheckTools        = "tools"
	CheckDisk         = "disk"
	CheckMemory       = "memory"
	CheckConnectivity = "connectivity"
)

// RequiredTools must be on PATH before provisioning starts.
var RequiredTools = []string{"apt-get", "dpkg-query", "useradd", "usermod", "id", "tar", "chown"}

// Error is a failed precondition.
type Error struct {
	Check  string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf(messages.PreflightFailedFmt, e.Check, e.Detail)
}

// Check is one precondition.
type Check struct {
	Name string
	Run  func(ctx context.Context, env action.Env) (string, error)
}

// Privilege is the precondition shared by every run mode.
func Privilege() Check {
	return Check{Name: CheckPrivilege, Run: checkPrivilege}
}

// Checks returns the ordered preconditions for a run. Connectivity is
// skipped in dry-run because nothing is downloaded.
func Checks(dryRun bool) []Check {
	checks := []Check{
		Privilege(),
		{Name: CheckOS, Run: checkOS},
		{Name: CheckTools, Run: checkTools},
		{Name: CheckDisk, Run: checkDisk},
		{Name: CheckMemory, Run: checkMemory},
	}
	if !dryRun {
		checks = append(checks, Check{Name: CheckConnectivity, Run: checkConnectivity})
	}
	return checks
}

// Run executes checks in order and returns a *Error for the first failure.
func Run(ctx context.Context, env action.Env, checks []Check) error {
	log := env.Log
	if log == nil {
		log = logging.Discard()
	}
	for _, c := range checks {
		detail, err := c.Run(ctx, env)
		if err != nil {
			perr := &Error{Check: c.Name, Detail: err.Error()}
			log.Errorf("%s", perr.Error())
			return perr
		}
		log.Successf(messages.PreflightPassedFmt, c.Name, detail)
	}
	return nil
}

func checkPrivilege(_ context.Context, env action.Env) (string, error) {
	if euid := env.System.Geteuid(); euid != 0 {
		return "", fmt.Errorf(messages.PreflightNotRootFmt, euid)
	}
	return "running as root", nil
}

func checkOS(_ context.Context, env action.Env) (string, error) {
	data, err := env.System.ReadFile(action.OSReleasePath)
	if err != nil {
		return "", fmt.Errorf(messages.PreflightReadOSReleaseFmt, action.OSReleasePath, err)
	}
	rel, err := envfile.ParseOSRelease(string(data))
	if err != nil {
		return "", err
	}
	if !rel.Matches(env.Config.Settings.SupportedOS) {
		return "", fmt.Errorf(messages.PreflightUnsupportedOSFmt, rel.ID, strings.Join(env.Config.Settings.SupportedOS, ", "))
	}
	return rel.ID + " " + rel.VersionID, nil
}

func checkTools(_ context.Context, env action.Env) (string, error) {
	var missing []string
	for _, tool := range RequiredTools {
		if _, err := env.System.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf(messages.PreflightMissingToolsFmt, strings.Join(missing, ", "))
	}
	return strings.Join(RequiredTools, ", "), nil
}

func checkDisk(_ context.Context, env action.Env) (string, error) {
	usage, err := env.System.DiskUsage("/")
	if err != nil {
		return "", fmt.Errorf(messages.PreflightDiskUsageFmt, err)
	}
	need := env.Config.Settings.MinDiskBytes()
	if usage.Free < need {
		return "", fmt.Errorf(messages.PreflightLowDiskFmt, gib(usage.Free), env.Config.Settings.MinDiskGB)
	}
	return fmt.Sprintf(messages.PreflightDiskFreeFmt, gib(usage.Free)), nil
}

func checkMemory(_ context.Context, env action.Env) (string, error) {
	total, err := env.System.MemoryTotal()
	if err != nil {
		return "", fmt.Errorf(messages.PreflightMemoryFmt, err)
	}
	need := env.Config.Settings.MinMemoryBytes()
	if total < need {
		return "", fmt.Errorf(messages.PreflightLowMemoryFmt, total>>20, env.Config.Settings.MinMemoryMB)
	}
	return fmt.Sprintf(messages.PreflightMemoryTotalFmt, total>>20), nil
}

func checkConnectivity(ctx context.Context, env action.Env) (string, error) {
	host := env.Config.Settings.ConnectivityHost
	dialCtx, cancel := context.WithTimeout(ctx, env.Config.Settings.ConnectivityTimeout.Duration)
	defer cancel()
	if err := env.System.Dial(dialCtx, host); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf(messages.PreflightDialTimeoutFmt, host, env.Config.Settings.ConnectivityTimeout.Duration)
		}
		return "", fmt.Errorf(messages.PreflightDialFmt, host, err)
	}
	return "reached " + host, nil
}

func gib(b uint64) string {
	return fmt.Sprintf("%.1f GiB", float64(b)/float64(1<<30))
}
