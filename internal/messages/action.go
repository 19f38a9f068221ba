package messages

// Action messages.
const (
	ActionStartFmt              = "Running %s action: %s"
	ActionDryRunPrefix          = "[dry-run] would "
	ActionSatisfiedFmt          = "Already satisfied: %s"
	ActionDetectedFmt           = "Detected %s: %s"
	ActionLookupUserFmt         = "look up user %s: %w"
	ActionHomePathNeedsOwnerFmt = "path %s is relative to a home directory but no owner is set"
	ActionChownFmt              = "chown %s: %w"
	ActionReadFmt               = "read %s: %w"
	ActionWriteFmt              = "write %s: %w"
	ActionMkdirFmt              = "create directory %s: %w"
	ActionBlockUnbalancedFmt    = "managed block %q has unbalanced markers; fix the file by hand"
	ActionKeyGeneratedFmt       = "Generated SSH key %s"
	ActionPublicKeyRebuiltFmt   = "Rebuilt SSH public key %s from its private key"
	ActionParsePrivateKeyFmt    = "read ssh private key %s: %w"
	ActionDownloadedFmt         = "Downloaded %s (%d bytes)"
	ActionDownloadFailedFmt     = "download %s: %w"
	ActionDownloadStatusFmt     = "download %s: unexpected status %s"
	ActionDownloadTooLargeFmt   = "download %s: exceeds %d bytes"
	ActionDownloadRetryFmt      = "Retrying download %s after %v"
	ActionChecksumMismatchFmt   = "checksum mismatch: expected %s, got %s"
	ActionChecksumLookupFmt     = "resolve checksum for %s: %w"
	ActionChecksumResolvedFmt   = "Expecting sha256 %[2]s for %[1]s"
)
