package fsr

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// Marker names a region of recorded GPU work.
type Marker int

const (
	// MarkerFSR spans the whole stage.
	MarkerFSR Marker = iota

	// MarkerEASU spans the upscale pass.
	MarkerEASU

	// MarkerRCAS spans the sharpen pass.
	MarkerRCAS
)

// String returns the string representation of Marker.
func (m Marker) String() string {
	switch m {
	case MarkerFSR:
		return "FSR"
	case MarkerEASU:
		return "EASU"
	case MarkerRCAS:
		return "RCAS"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

func markerFor(v Variant) Marker {
	if v == VariantUpscale {
		return MarkerEASU
	}
	return MarkerRCAS
}

// Profiler receives begin/end pairs around recorded work. Calls nest: the
// FSR marker encloses the per-pass markers.
type Profiler interface {
	BeginMarker(enc hal.CommandEncoder, m Marker)
	EndMarker(enc hal.CommandEncoder, m Marker)
}

// Recorder observes the stage's decisions, typically for metrics.
type Recorder interface {
	RecordDispatch(v Variant, groupsX, groupsY uint32)
	RecordOutput(o Output)
}

// Blitter copies or resolves the final image to the display target.
type Blitter interface {
	Blit(enc hal.CommandEncoder, src hal.Texture, extent Extent) error
}

type nopProfiler struct{}

func (nopProfiler) BeginMarker(hal.CommandEncoder, Marker) {}
func (nopProfiler) EndMarker(hal.CommandEncoder, Marker)   {}

type nopRecorder struct{}

func (nopRecorder) RecordDispatch(Variant, uint32, uint32) {}
func (nopRecorder) RecordOutput(Output)                    {}
