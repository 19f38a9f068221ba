package messages

// Phase and checkpoint log lines.
const (
	LogPhaseStartedFmt   = "Phase %d/%d: %s"
	LogPhaseCompletedFmt = "Phase %d/%d %s completed"
	LogPhaseFailedFmt    = "Phase %d/%d %s failed: %s"

	CheckpointDryRunFmt             = "[dry-run] would write checkpoint %s"
	CheckpointCreatedFmt            = "Checkpoint %s written (%d packages)"
	CheckpointCreateDirFmt          = "create checkpoint dir %s: %w"
	CheckpointWriteFmt              = "write %s: %w"
	CheckpointRenameFmt             = "move %s to %s: %w"
	CheckpointCleanupFmt            = "cannot remove %s: %v"
	CheckpointListReadFailedFmt     = "cannot read checkpoint dir %s: %v"
	CheckpointSkipInvalidFmt        = "skipping checkpoint %s: %v"
	CheckpointCapturePackagesFmt    = "capture package manifest: %w"
	CheckpointCaptureGroupsFmt      = "capture groups of %s: %w"
	CheckpointRestoreUnsupportedFmt = "%w: reconcile %s manually using the plan above"
)

// Phase runner messages.
const (
	PhaseActionToleratedFmt  = "Phase %s continues after non-fatal failure: %v"
	PhaseStepValidation      = "validation"
	PhaseDryRunValidationFmt = "[dry-run] %d validation failure(s) expected because nothing was installed"
)
