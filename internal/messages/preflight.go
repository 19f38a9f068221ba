package messages

// Preflight messages.
const (
	PreflightFailedFmt        = "Preflight check %s failed: %s"
	PreflightPassedFmt        = "Preflight %s: %s"
	PreflightNotRootFmt       = "must run as root (effective uid %d); re-run with sudo"
	PreflightReadOSReleaseFmt = "read %s: %w"
	PreflightUnsupportedOSFmt = "unsupported distribution %q (supported: %s)"
	PreflightMissingToolsFmt  = "required tools not found on PATH: %s"
	PreflightDiskUsageFmt     = "query disk usage: %w"
	PreflightLowDiskFmt       = "only %s free on /, need at least %d GiB"
	PreflightDiskFreeFmt      = "%s free on /"
	PreflightMemoryFmt        = "query memory: %w"
	PreflightLowMemoryFmt     = "only %d MiB of memory, need at least %d MiB"
	PreflightMemoryTotalFmt   = "%d MiB total"
	PreflightDialTimeoutFmt   = "cannot reach %s within %s"
	PreflightDialFmt          = "cannot reach %s: %w"
)
