package validate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/conn-castle/devsetup/internal/messages"
	"github.com/conn-castle/devsetup/internal/system"
)

var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

// Command checks that a binary is installed and optionally recent enough.
type Command struct {
	// Label names the capability in results; defaults to Binary.
	Label  string
	Binary string
	// Locations are installer-managed paths checked before PATH, so a distro
	// copy earlier on PATH cannot shadow the managed install.
	Locations []string
	// UserLocations are "~/" paths in the target user's home. A binary found
	// only there is installed but not visible to this shell, which is a soft failure.
	UserLocations []string
	VersionArgs   []string
	// MinVersion is the lowest acceptable version; empty skips the version check.
	MinVersion string
	// Optional downgrades a missing binary to a soft failure.
	Optional bool
}

func (c Command) Name() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Binary
}

func (c Command) Check(ctx context.Context, env Env) Result {
	if path, ok := c.systemPath(env); ok {
		return c.checkVersion(ctx, env, system.Command{Name: path, Args: c.VersionArgs}, fmt.Sprintf(messages.ValidateFoundFmt, path))
	}
	if path, ok := c.userPath(env); ok {
		r := c.checkVersion(ctx, env, system.Command{Name: path, Args: c.VersionArgs, User: env.Config.TargetUser}, "")
		if r.Status == StatusFail {
			return r
		}
		return Result{
			Name:           c.Name(),
			Status:         StatusWarn,
			Detail:         fmt.Sprintf(messages.ValidateNotOnPathFmt, path),
			Recommendation: messages.ValidateNotOnPathRecommend,
		}
	}
	status := StatusFail
	if c.Optional {
		status = StatusWarn
	}
	return Result{
		Name:           c.Name(),
		Status:         status,
		Detail:         fmt.Sprintf(messages.ValidateMissingBinaryFmt, c.Binary),
		Recommendation: messages.ValidateMissingRecommend,
	}
}

func (c Command) systemPath(env Env) (string, bool) {
	for _, loc := range c.Locations {
		if isFile(env, loc) {
			return loc, true
		}
	}
	if path, err := env.System.LookPath(c.Binary); err == nil {
		return path, true
	}
	return "", false
}

func (c Command) userPath(env Env) (string, bool) {
	if len(c.UserLocations) == 0 || env.Config.TargetUser == "" {
		return "", false
	}
	u, err := env.System.LookupUser(env.Config.TargetUser)
	if err != nil {
		return "", false
	}
	for _, loc := range c.UserLocations {
		path := system.HomePath(u, strings.TrimPrefix(loc, "~/"))
		if isFile(env, path) {
			return path, true
		}
	}
	return "", false
}

func (c Command) checkVersion(ctx context.Context, env Env, cmd system.Command, okDetail string) Result {
	result := Result{Name: c.Name(), Status: StatusOK, Detail: okDetail}
	if c.MinVersion == "" {
		return result
	}
	constraint, err := semver.NewConstraint(">= " + c.MinVersion)
	if err != nil {
		return Result{Name: c.Name(), Status: StatusFail, Detail: fmt.Sprintf(messages.ValidateBadConstraintFmt, c.MinVersion, err)}
	}
	out, err := env.System.Query(ctx, cmd)
	if err != nil {
		return Result{Name: c.Name(), Status: StatusWarn, Detail: fmt.Sprintf(messages.ValidateVersionUnknownFmt, cmd.Name, err)}
	}
	version, err := ParseVersion(string(out))
	if err != nil {
		return Result{Name: c.Name(), Status: StatusWarn, Detail: fmt.Sprintf(messages.ValidateVersionUnknownFmt, cmd.Name, err)}
	}
	if !constraint.Check(version) {
		return Result{
			Name:           c.Name(),
			Status:         StatusFail,
			Detail:         fmt.Sprintf(messages.ValidateVersionTooOldFmt, version, c.MinVersion),
			Recommendation: messages.ValidateMissingRecommend,
		}
	}
	if result.Detail != "" {
		result.Detail = fmt.Sprintf("%s (%s)", result.Detail, version)
	}
	return result
}

// ParseVersion extracts the first dotted version number from tool output,
// such as "go version go1.25.6 linux/amd64" or "v20.11.1".
func ParseVersion(output string) (*semver.Version, error) {
	match := versionPattern.FindString(output)
	if match == "" {
		return nil, fmt.Errorf(messages.ValidateNoVersionFmt, strings.TrimSpace(output))
	}
	return semver.NewVersion(match)
}

func isFile(env Env, path string) bool {
	info, err := env.System.Stat(path)
	return err == nil && !info.IsDir()
}
