package messages

// Validation messages.
const (
	ValidateGateFailedFmt      = "%d validation check(s) failed: %s"
	ValidateResultFmt          = "%s: %s"
	ValidateRecommendFmt       = "%s: %s"
	ValidateFoundFmt           = "found %s"
	ValidateNotOnPathFmt       = "installed at %s but not visible in this shell"
	ValidateNotOnPathRecommend = "open a new login shell so the updated PATH from ~/.bashrc takes effect"
	ValidateMissingBinaryFmt   = "%s not found"
	ValidateMissingRecommend   = "rerun devsetup to install it"
	ValidateBadConstraintFmt   = "invalid minimum version %q: %v"
	ValidateVersionUnknownFmt  = "cannot determine version of %s: %v"
	ValidateVersionTooOldFmt   = "version %s is older than required %s"
	ValidateNoVersionFmt       = "no version number in %q"
	ValidateUserMissingFmt     = "user %s does not exist"
	ValidateUserExistsFmt      = "user %s exists"
	ValidateGroupsUnknownFmt   = "cannot list groups of %s: %v"
	ValidateGroupsMissingFmt   = "user %s is not in group(s) %s"
	ValidateUserInGroupsFmt    = "user %s is in %s"
	ValidateMissingFileFmt     = "%s is missing"
	ValidateFileLacksFmt       = "%s does not contain %q"
)
