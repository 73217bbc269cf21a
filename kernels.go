package fsr

import (
	_ "embed"
	"fmt"
	"strings"
)

// Kernel identifies one of the two compute programs of the stage.
type Kernel int

const (
	// KernelUpscale is the edge-adaptive upsampling program.
	KernelUpscale Kernel = iota

	// KernelSharpen is the contrast-adaptive sharpening program.
	KernelSharpen
)

// String returns the string representation of Kernel.
func (k Kernel) String() string {
	switch k {
	case KernelUpscale:
		return "EASU"
	case KernelSharpen:
		return "RCAS"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// KernelSource supplies WGSL for a kernel at a given precision.
//
// Returned sources must declare the bindings of the shared layout and a
// compute entry point named "main". Sharpen sources reference the u32
// constant sharpen_input without declaring it; the registry appends the
// declaration for each variant.
type KernelSource interface {
	Source(k Kernel, p Precision) (string, error)
}

// Embedded shader sources.
var (
	//go:embed shaders/prelude_f32.wgsl
	preludeF32 string

	//go:embed shaders/prelude_f16.wgsl
	preludeF16 string

	//go:embed shaders/bindings.wgsl
	bindingsWGSL string

	//go:embed shaders/easu.wgsl
	easuWGSL string

	//go:embed shaders/rcas.wgsl
	rcasWGSL string
)

// embeddedSource composes the shipped shaders: precision prelude, shared
// bindings, then the kernel body.
type embeddedSource struct{}

// DefaultKernelSource returns the kernel sources shipped with the package.
func DefaultKernelSource() KernelSource { return embeddedSource{} }

func (embeddedSource) Source(k Kernel, p Precision) (string, error) {
	var prelude string
	switch p {
	case PrecisionFull:
		prelude = preludeF32
	case PrecisionReduced:
		prelude = preludeF16
	default:
		return "", fmt.Errorf("no shader prelude for precision %s", p)
	}

	var body string
	switch k {
	case KernelUpscale:
		body = easuWGSL
	case KernelSharpen:
		body = rcasWGSL
	default:
		return "", fmt.Errorf("no shader for kernel %s", k)
	}

	var sb strings.Builder
	sb.Grow(len(prelude) + len(bindingsWGSL) + len(body) + 2)
	sb.WriteString(prelude)
	sb.WriteByte('\n')
	sb.WriteString(bindingsWGSL)
	sb.WriteByte('\n')
	sb.WriteString(body)
	return sb.String(), nil
}

// specialize appends the variant's sharpen_input declaration to src.
// WGSL module-scope declarations are order independent, so the constant
// may follow its uses.
func specialize(src string, v Variant) string {
	value, ok := v.Specialization()
	if !ok {
		return src
	}
	return src + fmt.Sprintf("\nconst sharpen_input: u32 = %du;\n", value)
}

// variantSource resolves the complete WGSL for one variant.
func variantSource(ks KernelSource, v Variant, p Precision) (string, error) {
	src, err := ks.Source(v.Kernel(), p)
	if err != nil {
		return "", err
	}
	return specialize(src, v), nil
}
