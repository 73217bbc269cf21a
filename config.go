package fsr

import "fmt"

// EnableMode is the overall enable setting of the stage.
type EnableMode int

const (
	// EnableOff disables the stage entirely.
	EnableOff EnableMode = iota

	// EnableWhenUpscaling runs the stage only while the render resolution
	// is below the display resolution.
	EnableWhenUpscaling

	// EnableAlways runs the stage regardless of resolution.
	EnableAlways
)

// EnableModeFromInt maps a raw integer setting to an EnableMode.
// 0 is off, 1 is when-upscaling and every other value is always-on.
func EnableModeFromInt(v int) EnableMode {
	switch v {
	case 0:
		return EnableOff
	case 1:
		return EnableWhenUpscaling
	default:
		return EnableAlways
	}
}

// String returns the string representation of EnableMode.
func (m EnableMode) String() string {
	switch m {
	case EnableOff:
		return "Off"
	case EnableWhenUpscaling:
		return "WhenUpscaling"
	case EnableAlways:
		return "Always"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// Sharpness bounds. Values are in stops: 0 is the strongest sharpening.
const (
	MinSharpness     float32 = 0
	MaxSharpness     float32 = 2
	DefaultSharpness float32 = 0.2
)

// Config holds the user-facing settings of the stage. It is read once per
// frame and passed by reference into every operation; the stage never
// mutates it.
type Config struct {
	// Enable is the overall enable mode.
	Enable EnableMode

	// Upscale enables the edge-adaptive upscaling kernel.
	Upscale bool

	// Sharpen enables the contrast-adaptive sharpening kernel.
	Sharpen bool

	// Sharpness is the sharpening attenuation in stops, expected in [0, 2].
	Sharpness float32
}

// DefaultConfig returns the default settings: stage off, both sub-stages
// enabled, sharpness 0.2.
func DefaultConfig() Config {
	return Config{
		Enable:    EnableOff,
		Upscale:   true,
		Sharpen:   true,
		Sharpness: DefaultSharpness,
	}
}

// ClampSharpness limits s to [MinSharpness, MaxSharpness].
func ClampSharpness(s float32) float32 {
	if s < MinSharpness {
		return MinSharpness
	}
	if s > MaxSharpness {
		return MaxSharpness
	}
	return s
}
