package messages

// Picker messages.
const (
	PickerTitle            = "Select a checkpoint to inspect"
	PickerRequiresTerminal = "checkpoint picker requires an interactive terminal"
)
