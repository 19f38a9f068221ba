package messages

// Go release index messages.
const (
	ReleaseRequestFmt = "create release index request: %w"
	ReleaseFetchFmt   = "fetch go release index: %w"
	ReleaseStatusFmt  = "fetch go release index: unexpected status %s"
	ReleaseDecodeFmt  = "decode go release index: %w"
)
