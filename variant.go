package fsr

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Variant identifies one compiled kernel of the stage.
type Variant int

const (
	// VariantUpscale is the edge-adaptive spatial upsampling kernel.
	VariantUpscale Variant = iota

	// VariantSharpenAfterUpscale sharpens the upscale output.
	VariantSharpenAfterUpscale

	// VariantSharpenAfterPassthrough sharpens the render image directly,
	// used when upscaling is skipped.
	VariantSharpenAfterPassthrough
)

// Variants lists every variant in creation order.
var Variants = [...]Variant{
	VariantUpscale,
	VariantSharpenAfterUpscale,
	VariantSharpenAfterPassthrough,
}

// String returns the string representation of Variant.
func (v Variant) String() string {
	switch v {
	case VariantUpscale:
		return "Upscale"
	case VariantSharpenAfterUpscale:
		return "SharpenAfterUpscale"
	case VariantSharpenAfterPassthrough:
		return "SharpenAfterPassthrough"
	default:
		return fmt.Sprintf("Unknown(%d)", int(v))
	}
}

// Label returns the debug label attached to the variant's GPU objects.
func (v Variant) Label() string {
	switch v {
	case VariantUpscale:
		return "fsr_easu"
	case VariantSharpenAfterUpscale:
		return "fsr_rcas_after_easu"
	case VariantSharpenAfterPassthrough:
		return "fsr_rcas_after_taau"
	default:
		return "fsr_unknown"
	}
}

// Kernel returns the program a variant is compiled from.
func (v Variant) Kernel() Kernel {
	if v == VariantUpscale {
		return KernelUpscale
	}
	return KernelSharpen
}

// Specialization returns the value of the sharpening input selector the
// variant is compiled with: 0 reads the upscale output, 1 reads the render
// image. The upscale variant has no specialization and reports false.
func (v Variant) Specialization() (uint32, bool) {
	switch v {
	case VariantSharpenAfterUpscale:
		return 0, true
	case VariantSharpenAfterPassthrough:
		return 1, true
	default:
		return 0, false
	}
}

// Precision selects between the reduced- and full-precision kernel sources.
type Precision int

const (
	// PrecisionFull uses 32-bit float arithmetic.
	PrecisionFull Precision = iota

	// PrecisionReduced uses 16-bit float arithmetic.
	PrecisionReduced
)

// String returns the string representation of Precision.
func (p Precision) String() string {
	switch p {
	case PrecisionFull:
		return "fp32"
	case PrecisionReduced:
		return "fp16"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// PrecisionFor picks the kernel precision for a device's feature set.
func PrecisionFor(features gputypes.Features) Precision {
	if features.Contains(gputypes.FeatureShaderF16) {
		return PrecisionReduced
	}
	return PrecisionFull
}
