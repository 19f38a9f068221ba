package messages

// Orchestrator messages.
const (
	OrchestratorStartFmt             = "Provisioning %s (mode %s, run %s)"
	OrchestratorDoneFmt              = "Installation complete for %s (%d checkpoints written)"
	OrchestratorDryRunDoneFmt        = "[dry-run] all %d phases simulated; nothing was changed"
	OrchestratorAbortNoCheckpoints   = "Aborted before any checkpoint was written"
	OrchestratorAbortCheckpointsFmt  = "Aborted. Checkpoints written so far: %s"
	OrchestratorValidationSummaryFmt = "Validation summary: %d ok, %d warnings, %d failed"
	OrchestratorPhaseCountFmt        = "phase definition must have %d phases, got %d"
	OrchestratorPhaseOrderFmt        = "phase %d (%s) has state %q, expected %s"
	OrchestratorNoSuccessorFmt       = "state %s has no successor"

	LockOpenFmt    = "open lock file %s: %w"
	LockAcquireFmt = "lock %s: %w"
	LockReleaseFmt = "release run lock: %v"

	RollbackNoCheckpointsFmt = "No checkpoints found in %s\n"
	RollbackHeaderFmt        = "Checkpoints in %s:\n"
	RollbackPlanHeaderFmt    = "Restore plan for %s (phase %s, created %s UTC):\n"
	RollbackPlanEmpty        = "  machine state matches the checkpoint"
	RollbackPlanRemove       = "packages installed since the checkpoint"
	RollbackPlanReinstall    = "packages removed since the checkpoint"
	RollbackPlanLeaveGroups  = "groups joined since the checkpoint"
)
