package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/conn-castle/devsetup/internal/messages"
)

// Default settings values.
const (
	DefaultCheckpointDir       = "/var/lib/devsetup/checkpoints"
	DefaultLogFile             = "/var/log/devsetup.log"
	DefaultLockFile            = "/var/lib/devsetup/devsetup.lock"
	DefaultMinDiskGB           = 10
	DefaultMinMemoryMB         = 2048
	DefaultConnectivityHost    = "github.com:443"
	DefaultConnectivityTimeout = 5 * time.Second
	DefaultGoVersion           = "1.25.6"
)

// Duration decodes TOML strings such as "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Settings holds tunables read from the optional TOML settings file.
type Settings struct {
	CheckpointDir       string   `toml:"checkpoint_dir"`
	LogFile             string   `toml:"log_file"`
	LockFile            string   `toml:"lock_file"`
	MinDiskGB           int      `toml:"min_disk_gb"`
	MinMemoryMB         int      `toml:"min_memory_mb"`
	ConnectivityHost    string   `toml:"connectivity_host"`
	ConnectivityTimeout Duration `toml:"connectivity_timeout"`
	SupportedOS         []string `toml:"supported_os"`
	GoVersion           string   `toml:"go_version"`
	// GoSHA256 pins the Go tarball checksum; empty resolves it from the go.dev release index.
	GoSHA256      string   `toml:"go_sha256"`
	ExtraPackages []string `toml:"extra_packages"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		CheckpointDir:       DefaultCheckpointDir,
		LogFile:             DefaultLogFile,
		LockFile:            DefaultLockFile,
		MinDiskGB:           DefaultMinDiskGB,
		MinMemoryMB:         DefaultMinMemoryMB,
		ConnectivityHost:    DefaultConnectivityHost,
		ConnectivityTimeout: Duration{DefaultConnectivityTimeout},
		SupportedOS:         []string{"ubuntu", "debian"},
		GoVersion:           DefaultGoVersion,
	}
}

// LoadSettings reads path over the defaults. An empty path returns the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if strings.TrimSpace(path) == "" {
		return settings, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf(messages.ConfigReadSettingsFmt, path, err)
	}
	return ParseSettings(data, path)
}

// ParseSettings decodes TOML data over the defaults, rejecting unknown keys.
// source is used in error messages.
func ParseSettings(data []byte, source string) (Settings, error) {
	settings := DefaultSettings()
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&settings); err != nil {
		return Settings{}, fmt.Errorf("%w: "+messages.ConfigInvalidSettingsFmt, ErrInvalid, source, err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Validate checks that paths are absolute and thresholds are sane.
func (s Settings) Validate() error {
	paths := []struct {
		key   string
		value string
	}{
		{"checkpoint_dir", s.CheckpointDir},
		{"log_file", s.LogFile},
		{"lock_file", s.LockFile},
	}
	for _, p := range paths {
		if !filepath.IsAbs(p.value) {
			return fmt.Errorf("%w: "+messages.ConfigPathNotAbsoluteFmt, ErrInvalid, p.key, p.value)
		}
	}
	if s.MinDiskGB < 0 {
		return fmt.Errorf("%w: "+messages.ConfigNegativeFmt, ErrInvalid, "min_disk_gb", s.MinDiskGB)
	}
	if s.MinMemoryMB < 0 {
		return fmt.Errorf("%w: "+messages.ConfigNegativeFmt, ErrInvalid, "min_memory_mb", s.MinMemoryMB)
	}
	if s.ConnectivityTimeout.Duration <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, messages.ConfigTimeoutPositive)
	}
	if len(s.SupportedOS) == 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, messages.ConfigSupportedOSRequired)
	}
	if strings.TrimSpace(s.GoVersion) == "" {
		return fmt.Errorf("%w: %s", ErrInvalid, messages.ConfigGoVersionRequired)
	}
	return nil
}

// MinDiskBytes returns the disk threshold in bytes.
func (s Settings) MinDiskBytes() uint64 {
	return uint64(s.MinDiskGB) * 1024 * 1024 * 1024
}

// MinMemoryBytes returns the memory threshold in bytes.
func (s Settings) MinMemoryBytes() uint64 {
	return uint64(s.MinMemoryMB) * 1024 * 1024
}
