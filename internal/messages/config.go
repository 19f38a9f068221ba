// Package messages holds user-facing strings and format constants.
package messages

// Configuration and settings messages.
const (
	ConfigReadSettingsFmt            = "read settings %s: %w"
	ConfigInvalidSettingsFmt         = "parse settings %s: %w"
	ConfigPathNotAbsoluteFmt         = "%s must be an absolute path, got %q"
	ConfigNegativeFmt                = "%s must be non-negative, got %d"
	ConfigTimeoutPositive            = "connectivity_timeout must be positive"
	ConfigSupportedOSRequired        = "supported_os must list at least one distribution"
	ConfigGoVersionRequired          = "go_version is required"
	ConfigModeInvalidFmt             = "unknown mode %q"
	ConfigRollbackValidateExclusive  = "--rollback and --validate-only cannot be combined"
	ConfigCheckpointRequiresRollback = "--checkpoint is only valid with --rollback"
	ConfigUsernameRequired           = "username is required (pass --username or run via sudo)"
	ConfigUsernameRoot               = "refusing to provision the root account; pass a regular username"
	ConfigUsernameInvalidFmt         = "invalid username %q: use lowercase letters, digits, '-' or '_' (max 32 characters)"
)

// Environment file messages.
const (
	EnvfileLineErrorFmt            = "line %d: %w"
	EnvfileReadFailedFmt           = "read env file: %w"
	EnvfileOSReleaseMissingID      = "os-release has no ID field"
	EnvfileExpectedKeyValue        = "expected KEY=VALUE"
	EnvfileUnterminatedQuotedValue = "unterminated quoted value"
)
