package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/conn-castle/devsetup/internal/envfile"
	"github.com/conn-castle/devsetup/internal/messages"
	"github.com/conn-castle/devsetup/internal/system"
)

// OSReleasePath is the distribution identification file.
const OSReleasePath = "/etc/os-release"

// Probe reads one host fact.
type Probe func(ctx context.Context, env Env) (string, error)

// Inspect records a host fact in the log. It never mutates, so it behaves the same in every mode.
type Inspect struct {
	Name  string
	Probe Probe
}

func (a Inspect) Kind() Kind { return KindInspect }

func (a Inspect) Describe() string { return "inspect " + a.Name }

func (a Inspect) Run(ctx context.Context, env Env) error {
	value, err := a.Probe(ctx, env)
	if err != nil {
		return err
	}
	env.Log.Infof(messages.ActionDetectedFmt, a.Name, value)
	return nil
}

// InspectOS reports the distribution from /etc/os-release.
func InspectOS() Inspect {
	return Inspect{Name: "operating system", Probe: func(_ context.Context, env Env) (string, error) {
		data, err := env.System.ReadFile(OSReleasePath)
		if err != nil {
			return "", fmt.Errorf(messages.ActionReadFmt, OSReleasePath, err)
		}
		rel, err := envfile.ParseOSRelease(string(data))
		if err != nil {
			return "", err
		}
		if rel.PrettyName != "" {
			return rel.PrettyName, nil
		}
		return strings.TrimSpace(rel.ID + " " + rel.VersionID), nil
	}}
}

// InspectCommand reports the trimmed output of a read-only command.
func InspectCommand(name string, cmd system.Command) Inspect {
	return Inspect{Name: name, Probe: func(ctx context.Context, env Env) (string, error) {
		out, err := env.System.Query(ctx, cmd)
		if err != nil {
			return "", commandFailure(err, out)
		}
		return strings.TrimSpace(string(out)), nil
	}}
}

// InspectMemory reports total memory in MiB.
func InspectMemory() Inspect {
	return Inspect{Name: "memory", Probe: func(_ context.Context, env Env) (string, error) {
		total, err := env.System.MemoryTotal()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d MiB", total>>20), nil
	}}
}
