package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSettings_OverridesDefaults(t *testing.T) {
	data := []byte(`
checkpoint_dir = "/srv/devsetup/checkpoints"
min_disk_gb = 20
connectivity_timeout = "750ms"
supported_os = ["debian"]
extra_packages = ["htop", "tree"]
`)
	settings, err := ParseSettings(data, "test.toml")
	require.NoError(t, err)

	assert.Equal(t, "/srv/devsetup/checkpoints", settings.CheckpointDir)
	assert.Equal(t, 20, settings.MinDiskGB)
	assert.Equal(t, 750*time.Millisecond, settings.ConnectivityTimeout.Duration)
	assert.Equal(t, []string{"debian"}, settings.SupportedOS)
	assert.Equal(t, []string{"htop", "tree"}, settings.ExtraPackages)

	assert.Equal(t, DefaultLogFile, settings.LogFile, "unset keys keep defaults")
	assert.Equal(t, DefaultMinMemoryMB, settings.MinMemoryMB)
	assert.Equal(t, uint64(20)<<30, settings.MinDiskBytes())
	assert.Equal(t, uint64(DefaultMinMemoryMB)<<20, settings.MinMemoryBytes())
}

func TestParseSettings_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "unknown key", data: "colour = true\n", want: "test.toml"},
		{name: "syntax", data: "min_disk_gb = \n", want: "test.toml"},
		{name: "relative path", data: `checkpoint_dir = "state"` + "\n", want: "checkpoint_dir"},
		{name: "negative disk", data: "min_disk_gb = -1\n", want: "min_disk_gb"},
		{name: "bad duration", data: `connectivity_timeout = "soon"` + "\n", want: "test.toml"},
		{name: "zero timeout", data: `connectivity_timeout = "0s"` + "\n", want: "connectivity_timeout"},
		{name: "empty os list", data: "supported_os = []\n", want: "supported_os"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSettings([]byte(tt.data), "test.toml")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadSettings(t *testing.T) {
	settings, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)

	path := filepath.Join(t.TempDir(), "devsetup.toml")
	require.NoError(t, os.WriteFile(path, []byte("go_version = \"1.24.0\"\n"), 0o644))
	settings, err = LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "1.24.0", settings.GoVersion)

	_, err = LoadSettings(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte(" 2s ")))
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2s", string(text))
}
