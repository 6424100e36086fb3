package ui

// Config contains TUI-specific configuration.
type Config struct {
	EnableMouse bool `env:"SFX_ENABLE_MOUSE"`

	// How often a single effect may be retriggered per second. Held keys
	// repeat fast enough to exhaust the pool otherwise.
	RetriggerPerSec float64 `env:"SFX_RETRIGGER_PER_SEC" envDefault:"12"`

	// Volume step for + and -.
	VolumeStep float64 `env:"SFX_VOLUME_STEP" envDefault:"0.1"`

	// Suspend the audio device while the terminal is unfocused.
	SuspendOnBlur bool `env:"SFX_SUSPEND_ON_BLUR"`

	// Where the effects come from, shown in the header.
	Source string
}
