package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/conn-castle/devsetup/internal/catalog"
	"github.com/conn-castle/devsetup/internal/config"
	"github.com/conn-castle/devsetup/internal/logging"
	"github.com/conn-castle/devsetup/internal/messages"
	"github.com/conn-castle/devsetup/internal/orchestrator"
	"github.com/conn-castle/devsetup/internal/picker"
	"github.com/conn-castle/devsetup/internal/system"
	"github.com/conn-castle/devsetup/internal/terminal"
)

var (
	newSystem = func() system.System { return system.Real{} }
	newLocker = func() orchestrator.Locker { return orchestrator.FileLocker{} }
	newPicker = func() pickerUI { return picker.New() }
	getenv    = os.Getenv
)

type pickerUI interface {
	orchestrator.Picker
	Available() bool
}

type rootFlags struct {
	username     string
	dryRun       bool
	rollback     bool
	checkpoint   string
	validateOnly bool
	configPath   string
	logFile      string
	debug        bool
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	cmd := &cobra.Command{
		Use:           messages.RootUse,
		Short:         messages.RootShort,
		Long:          messages.RootLong,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			in, err := flags.input()
			if err != nil {
				_ = cmd.Usage()
				return orchestrator.UsageError{Err: err}
			}
			cfg, err := config.New(in)
			if err != nil {
				if errors.Is(err, config.ErrInvalid) {
					_ = cmd.Usage()
					return orchestrator.UsageError{Err: err}
				}
				return err
			}
			return run(cmd, cfg, flags.debug)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.username, "username", "", messages.FlagUsername)
	f.BoolVar(&flags.dryRun, "dry-run", false, messages.FlagDryRun)
	f.BoolVar(&flags.rollback, "rollback", false, messages.FlagRollback)
	f.StringVar(&flags.checkpoint, "checkpoint", "", messages.FlagCheckpoint)
	f.BoolVar(&flags.validateOnly, "validate-only", false, messages.FlagValidateOnly)
	f.StringVar(&flags.configPath, "config", "", messages.FlagConfig)
	f.StringVar(&flags.logFile, "log-file", "", messages.FlagLogFile)
	f.BoolVar(&flags.debug, "debug", false, messages.FlagDebug)
	cmd.MarkFlagsMutuallyExclusive("rollback", "validate-only")
	return cmd
}

// input resolves flag values into config input. The username falls back to
// SUDO_USER for modes that need a target account.
func (f rootFlags) input() (config.Input, error) {
	username := strings.TrimSpace(f.username)
	if username == "" && !f.rollback {
		username = strings.TrimSpace(getenv("SUDO_USER"))
	}
	configPath, err := expandPath(f.configPath)
	if err != nil {
		return config.Input{}, err
	}
	logFile, err := expandPath(f.logFile)
	if err != nil {
		return config.Input{}, err
	}
	return config.Input{
		TargetUser:   username,
		DryRun:       f.dryRun,
		ValidateOnly: f.validateOnly,
		Rollback:     f.rollback,
		Checkpoint:   f.checkpoint,
		SettingsPath: configPath,
		LogFile:      logFile,
	}, nil
}

func expandPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", nil
	}
	return homedir.Expand(strings.TrimSpace(p))
}

func run(cmd *cobra.Command, cfg config.RunConfig, debug bool) error {
	out := cmd.OutOrStdout()
	opts := logging.Options{Console: out, Color: terminal.IsTerminalWriter(out), MinLevel: logging.LevelInfo}
	if debug {
		opts.MinLevel = logging.LevelDebug
	}
	if cfg.Mutates() {
		file, err := logging.OpenFile(cfg.Settings.LogFile)
		if err != nil {
			return err
		}
		defer func() { _ = file.Close() }()
		opts.File = file
	}
	log := logging.New(opts)

	deps := orchestrator.Deps{
		System:     newSystem(),
		Log:        log,
		Out:        out,
		Phases:     catalog.Phases,
		Validators: catalog.Validators,
		Locker:     newLocker(),
	}
	if cfg.Rollback && cfg.Checkpoint == "" {
		if p := newPicker(); p.Available() {
			deps.Picker = p
		}
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res := orchestrator.New(cfg, deps).Run(ctx)
	if res.Err != nil {
		return &SilentExitError{Code: orchestrator.ExitCode(res.Err)}
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
