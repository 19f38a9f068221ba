// Package config builds the immutable run configuration.
//
// A RunConfig is constructed once from command-line input and an optional
// settings file, then passed by value to every component. Core packages never
// read flags, environment variables, or other ambient state themselves.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/conn-castle/devsetup/internal/messages"
)

// ErrInvalid wraps every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Mode selects whether actions mutate the machine.
type Mode string

const (
	ModeApply  Mode = "apply"
	ModeDryRun Mode = "dry-run"
)

var usernamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)

// Input is the raw command-line input used to build a RunConfig.
type Input struct {
	TargetUser   string
	DryRun       bool
	ValidateOnly bool
	Rollback     bool
	Checkpoint   string
	SettingsPath string
	LogFile      string
	// RunID overrides the generated run identifier.
	RunID string
}

// RunConfig is the read-only configuration shared by all components.
type RunConfig struct {
	TargetUser   string
	Mode         Mode
	ValidateOnly bool
	Rollback     bool
	// Checkpoint names the checkpoint to inspect in rollback mode.
	Checkpoint string
	RunID      string
	Settings   Settings
}

// DryRun reports whether the run must not mutate machine state.
func (c RunConfig) DryRun() bool {
	return c.Mode == ModeDryRun
}

// Mutates reports whether this run may change the machine: an apply-mode install.
func (c RunConfig) Mutates() bool {
	return c.Mode == ModeApply && !c.ValidateOnly && !c.Rollback
}

// New builds and validates a RunConfig from in.
func New(in Input) (RunConfig, error) {
	settings, err := LoadSettings(in.SettingsPath)
	if err != nil {
		return RunConfig{}, err
	}
	if strings.TrimSpace(in.LogFile) != "" {
		settings.LogFile = strings.TrimSpace(in.LogFile)
	}
	mode := ModeApply
	if in.DryRun {
		mode = ModeDryRun
	}
	runID := strings.TrimSpace(in.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	cfg := RunConfig{
		TargetUser:   strings.TrimSpace(in.TargetUser),
		Mode:         mode,
		ValidateOnly: in.ValidateOnly,
		Rollback:     in.Rollback,
		Checkpoint:   strings.TrimSpace(in.Checkpoint),
		RunID:        runID,
		Settings:     settings,
	}
	if err := cfg.Validate(); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

// Validate checks flag combinations and the target identity.
func (c RunConfig) Validate() error {
	if c.Mode != ModeApply && c.Mode != ModeDryRun {
		return fmt.Errorf("%w: "+messages.ConfigModeInvalidFmt, ErrInvalid, c.Mode)
	}
	if c.Rollback && c.ValidateOnly {
		return fmt.Errorf("%w: %s", ErrInvalid, messages.ConfigRollbackValidateExclusive)
	}
	if c.Checkpoint != "" && !c.Rollback {
		return fmt.Errorf("%w: %s", ErrInvalid, messages.ConfigCheckpointRequiresRollback)
	}
	if !c.Rollback {
		if err := ValidateUsername(c.TargetUser); err != nil {
			return err
		}
	}
	return c.Settings.Validate()
}

// ValidateUsername checks that name is a usable, non-root account name.
func ValidateUsername(name string) error {
	if name == "" {
		return fmt.Errorf("%w: %s", ErrInvalid, messages.ConfigUsernameRequired)
	}
	if name == "root" {
		return fmt.Errorf("%w: %s", ErrInvalid, messages.ConfigUsernameRoot)
	}
	if !usernamePattern.MatchString(name) {
		return fmt.Errorf("%w: "+messages.ConfigUsernameInvalidFmt, ErrInvalid, name)
	}
	return nil
}
