package messages

// CLI messages.
const (
	RootUse   = "devsetup"
	RootShort = "Provision a development machine"
	RootLong  = `devsetup provisions a Debian or Ubuntu host for a developer account in
seven checkpointed phases: detect, base_setup, languages, dev_tools,
configure, validate and finalize. It must run as root.`

	VersionCommitFmt = "commit %s"
	VersionBuildFmt  = "built %s"
	VersionFullFmt   = "%s (%s)"
	VersionTemplate  = "{{.Version}}\n"

	FlagUsername     = "Target account to provision (defaults to SUDO_USER)"
	FlagDryRun       = "Simulate every phase without changing the machine"
	FlagRollback     = "List checkpoints and show the restore plan for --checkpoint"
	FlagCheckpoint   = "Checkpoint to inspect in rollback mode"
	FlagValidateOnly = "Only run the validation checks"
	FlagConfig       = "Settings file (TOML)"
	FlagLogFile      = "Log file for apply runs"
	FlagDebug        = "Log debug messages"
)
