package fsr

// IsActive reports whether the stage should run this frame.
//
// The stage is inactive when cfg.Enable is EnableOff, or when it is
// EnableWhenUpscaling and the render resolution already reaches the display
// resolution in either dimension. Otherwise it is active iff at least one
// sub-stage is enabled.
func IsActive(cfg *Config, res Resolutions) bool {
	switch cfg.Enable {
	case EnableOff:
		return false
	case EnableWhenUpscaling:
		if !res.NeedsUpscaling() {
			return false
		}
	}
	return cfg.Upscale || cfg.Sharpen
}

// NeedsUpscaleFallback reports whether the stage will leave the image at
// render resolution. When true the caller must reconcile the render and
// display sizes through another resampling path before the stage runs.
func NeedsUpscaleFallback(cfg *Config) bool {
	return !cfg.Upscale
}

// SharpenVariant returns the sharpening kernel matching the source the
// sharpen pass reads: the upscale output when upscaling runs, the render
// image otherwise.
func SharpenVariant(cfg *Config) Variant {
	if cfg.Upscale {
		return VariantSharpenAfterUpscale
	}
	return VariantSharpenAfterPassthrough
}

// Passes returns the kernels a frame records, in execution order.
// Upscaling always precedes sharpening.
func Passes(cfg *Config) []Variant {
	passes := make([]Variant, 0, 2)
	if cfg.Upscale {
		passes = append(passes, VariantUpscale)
	}
	if cfg.Sharpen {
		passes = append(passes, SharpenVariant(cfg))
	}
	return passes
}

// Output identifies which intermediate image holds the stage result.
type Output int

const (
	// OutputUpscale is the upscale kernel's output image.
	OutputUpscale Output = iota

	// OutputSharpen is the sharpen kernel's output image.
	OutputSharpen
)

// String returns the string representation of Output.
func (o Output) String() string {
	if o == OutputSharpen {
		return "Sharpen"
	}
	return "Upscale"
}

// SelectOutput returns the image to present: the sharpen output when
// sharpening is enabled, the upscale output otherwise.
func SelectOutput(cfg *Config) Output {
	if cfg.Sharpen {
		return OutputSharpen
	}
	return OutputUpscale
}
