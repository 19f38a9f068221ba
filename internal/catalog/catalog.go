// Package catalog defines the concrete installation: seven phases and the
// validator set shared by the validate phase and validate-only runs.
package catalog

import (
	"fmt"
	"path"
	"runtime"

	"github.com/conn-castle/devsetup/internal/action"
	"github.com/conn-castle/devsetup/internal/config"
	"github.com/conn-castle/devsetup/internal/phase"
	"github.com/conn-castle/devsetup/internal/release"
	"github.com/conn-castle/devsetup/internal/system"
	"github.com/conn-castle/devsetup/internal/validate"
)

const (
	// ProfileMarker names the managed block in the target user's ~/.bashrc.
	ProfileMarker = "devsetup"
	// CompletionMarker is written to the target user's home by the last phase.
	CompletionMarker = "~/.devsetup-complete"
	// CompleteCheckpoint replaces the phase 7 complete checkpoint name.
	CompleteCheckpoint = "installation_complete"

	GoRoot     = "/usr/local/go"
	CacheDir   = "/var/cache/devsetup"
	goDownload = "https://go.dev/dl/"
	rustupURL  = "https://sh.rustup.rs"
)

var (
	BasePackages     = []string{"ca-certificates", "curl", "wget", "gnupg", "sudo", "unzip", "xz-utils"}
	PythonPackages   = []string{"python3", "python3-pip", "python3-venv"}
	NodePackages     = []string{"nodejs", "npm"}
	DevToolPackages  = []string{"git", "build-essential", "jq", "ripgrep", "shellcheck", "tmux"}
	AdminGroup       = "sudo"
	GitDefaults      = [][2]string{{"init.defaultBranch", "main"}, {"pull.rebase", "false"}, {"core.autocrlf", "input"}}
	MinPythonVersion = "3.10"
	MinNodeVersion   = "18"
)

var goArch = runtime.GOARCH

// GoArchive is the release tarball name for version on arch.
func GoArchive(version string, arch string) string {
	return fmt.Sprintf("go%s.linux-%s.tar.gz", version, arch)
}

// ProfileLines is the content of the managed ~/.bashrc block.
func ProfileLines() []string {
	return []string{
		`export PATH="` + GoRoot + `/bin:$HOME/go/bin:$HOME/.cargo/bin:$PATH"`,
		`export GOPATH="$HOME/go"`,
	}
}

// Phases returns the seven installation phases for cfg.
func Phases(cfg config.RunConfig) []phase.Phase {
	user := cfg.TargetUser
	s := cfg.Settings
	archive := path.Join(CacheDir, GoArchive(s.GoVersion, goArch))
	goBin := path.Join(GoRoot, "bin", "go")

	base := append(append([]string(nil), BasePackages...), s.ExtraPackages...)
	languagePackages := append(append([]string(nil), PythonPackages...), NodePackages...)

	gitActions := make([]action.Action, 0, len(GitDefaults))
	for _, kv := range GitDefaults {
		gitActions = append(gitActions, action.GitConfig{User: user, Key: kv[0], Value: kv[1]})
	}

	return []phase.Phase{
		{
			Ordinal: 1, Name: "detect", State: "Detecting", Fatal: true,
			Actions: []action.Action{
				action.InspectOS(),
				action.InspectCommand("kernel", system.Command{Name: "uname", Args: []string{"-r"}}),
				action.InspectCommand("architecture", system.Command{Name: "uname", Args: []string{"-m"}}),
				action.InspectMemory(),
			},
		},
		{
			Ordinal: 2, Name: "base_setup", State: "BaseSetup", Fatal: true,
			Actions: []action.Action{
				action.PackageInstall{Packages: base, Update: true},
				action.IdentityCreate{User: user, Shell: "/bin/bash"},
				action.GroupMembership{User: user, Group: AdminGroup},
			},
			Validators: []validate.Validator{validate.Identity{Groups: []string{AdminGroup}}},
		},
		{
			Ordinal: 3, Name: "languages", State: "Languages", Fatal: true,
			Actions: []action.Action{
				action.Download{
					URL:      goDownload + GoArchive(s.GoVersion, goArch),
					Dest:     archive,
					SHA256:   s.GoSHA256,
					Checksum: release.Checksum(s.GoVersion, "linux", goArch),
					Creates:  goBin,
				},
				action.Command{
					Description: "extract Go " + s.GoVersion,
					Cmd:         system.Command{Name: "tar", Args: []string{"-C", path.Dir(GoRoot), "-xzf", archive}},
					Creates:     goBin,
				},
				action.PackageInstall{Packages: languagePackages},
				action.Command{
					Description: "install rustup for " + user,
					Cmd: system.Command{
						Name: "sh",
						Args: []string{"-c", "curl --proto '=https' --tlsv1.2 -sSf " + rustupURL + " | sh -s -- -y --no-modify-path"},
						User: user,
					},
					Creates: "~/.cargo/bin/rustup",
				},
			},
			Validators: []validate.Validator{goValidator(s.GoVersion)},
		},
		{
			Ordinal: 4, Name: "dev_tools", State: "DevTools", Fatal: true,
			Actions: []action.Action{
				action.PackageInstall{Packages: DevToolPackages},
				action.Command{
					Description: "install gopls for " + user,
					Cmd: system.Command{
						Name: goBin,
						Args: []string{"install", "golang.org/x/tools/gopls@latest"},
						User: user,
					},
					Creates: "~/go/bin/gopls",
				},
				action.Command{
					Description: "install prettier",
					Cmd:         system.Command{Name: "npm", Args: []string{"install", "-g", "prettier"}},
					Creates:     "/usr/local/bin/prettier",
				},
			},
		},
		{
			Ordinal: 5, Name: "configure", State: "Configuring", Fatal: true,
			Actions: append([]action.Action{
				action.ProfileBlock{User: user, Path: "~/.bashrc", Marker: ProfileMarker, Lines: ProfileLines()},
				action.KeyGeneration{User: user, Path: "~/.ssh/id_ed25519"},
			}, gitActions...),
		},
		{
			Ordinal: 6, Name: "validate", State: "Validating", Fatal: true,
			Validators: Validators(cfg),
		},
		{
			Ordinal: 7, Name: "finalize", State: "Finalizing", Fatal: true,
			Actions: []action.Action{
				action.Ownership{User: user, Path: "~"},
				action.FileWrite{
					Path:    CompletionMarker,
					Content: fmt.Sprintf("run_id=%s\ngo=%s\n", cfg.RunID, s.GoVersion),
					Owner:   user,
				},
			},
			CompleteCheckpoint: CompleteCheckpoint,
		},
	}
}

func goValidator(minVersion string) validate.Command {
	return validate.Command{
		Label:       "go",
		Binary:      "go",
		Locations:   []string{path.Join(GoRoot, "bin", "go")},
		VersionArgs: []string{"version"},
		MinVersion:  minVersion,
	}
}

// Validators returns the capability checks for a finished installation.
func Validators(cfg config.RunConfig) []validate.Validator {
	begin, _ := action.BlockMarkers(ProfileMarker)
	return []validate.Validator{
		validate.Identity{Groups: []string{AdminGroup}},
		goValidator(cfg.Settings.GoVersion),
		validate.Command{Label: "python", Binary: "python3", VersionArgs: []string{"--version"}, MinVersion: MinPythonVersion},
		validate.Command{Label: "node", Binary: "node", VersionArgs: []string{"--version"}, MinVersion: MinNodeVersion},
		validate.Command{Binary: "npm"},
		validate.Command{Label: "rust", Binary: "rustc", UserLocations: []string{"~/.cargo/bin/rustc"}},
		validate.Command{Binary: "cargo", UserLocations: []string{"~/.cargo/bin/cargo"}},
		validate.Command{Binary: "git"},
		validate.Command{Binary: "gopls", UserLocations: []string{"~/go/bin/gopls"}},
		validate.Command{Binary: "prettier", Optional: true},
		validate.File{Label: "ssh key", Path: "~/.ssh/id_ed25519.pub"},
		validate.File{Label: "shell profile", Path: "~/.bashrc", Contains: begin},
	}
}
