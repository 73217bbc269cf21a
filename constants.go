package fsr

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"
)

// ConstantsSize is the size in bytes of the uniform block consumed by the
// kernels: five vec4<u32>.
const ConstantsSize = 5 * 16

// Constants is the per-frame parameter block shared by both kernels.
// Floating-point parameters are stored as their IEEE-754 bit patterns so the
// block uploads as five vec4<u32> and the kernels bitcast on read.
type Constants struct {
	// Upscale holds the four geometry vectors of the upscale kernel:
	// output-to-input scale and offset, the reciprocal container size and
	// the relative positions of the filter's gather taps.
	Upscale [4][4]uint32

	// Sharpen holds the sharpening strength as float32 bits and as a
	// packed pair of halves, then the render width and height that bound
	// reads of the render image.
	Sharpen [4]uint32
}

// BuildConstants computes the parameter block for one frame. It is a pure
// function of its inputs and must be called every frame since resolutions
// change under dynamic resolution scaling.
func BuildConstants(res Resolutions, sharpness float32) Constants {
	var c Constants
	c.Upscale = upscaleConstants(res.Render, res.Container, res.Display)
	c.Sharpen = sharpenConstants(sharpness, res.Render)
	return c
}

// upscaleConstants maps display pixel positions into the render viewport
// inside a container texture. All arithmetic is float32.
func upscaleConstants(render, container, display Extent) [4][4]uint32 {
	rw, rh := float32(render.Width), float32(render.Height)
	cw, ch := float32(container.Width), float32(container.Height)
	dw, dh := float32(display.Width), float32(display.Height)

	rcpDW, rcpDH := rcp(dw), rcp(dh)
	rcpCW, rcpCH := rcp(cw), rcp(ch)

	var con [4][4]uint32

	// Output integer position to a pixel position in the viewport.
	con[0][0] = f32bits(rw * rcpDW)
	con[0][1] = f32bits(rh * rcpDH)
	con[0][2] = f32bits(float32(0.5*rw*rcpDW) - 0.5)
	con[0][3] = f32bits(float32(0.5*rh*rcpDH) - 0.5)

	// Viewport pixel position to normalized image space, and the first
	// gather center relative to the upper-left tap.
	con[1][0] = f32bits(rcpCW)
	con[1][1] = f32bits(rcpCH)
	con[1][2] = f32bits(1 * rcpCW)
	con[1][3] = f32bits(-1 * rcpCH)

	// Remaining gather centers, relative to the first.
	con[2][0] = f32bits(-1 * rcpCW)
	con[2][1] = f32bits(2 * rcpCH)
	con[2][2] = f32bits(1 * rcpCW)
	con[2][3] = f32bits(2 * rcpCH)
	con[3][0] = f32bits(0 * rcpCW)
	con[3][1] = f32bits(4 * rcpCH)

	return con
}

// sharpenConstants converts sharpness from stops to a linear attenuation.
func sharpenConstants(sharpness float32, render Extent) [4]uint32 {
	s := float32(math.Exp2(float64(-sharpness)))
	h := uint32(float16.Fromfloat32(s).Bits())
	return [4]uint32{f32bits(s), h | h<<16, render.Width, render.Height}
}

// Bytes serializes the block in upload order, little-endian.
func (c *Constants) Bytes() []byte {
	out := make([]byte, ConstantsSize)
	off := 0
	for _, v := range c.Upscale {
		for _, w := range v {
			binary.LittleEndian.PutUint32(out[off:], w)
			off += 4
		}
	}
	for _, w := range c.Sharpen {
		binary.LittleEndian.PutUint32(out[off:], w)
		off += 4
	}
	return out
}

// UpscaleScale returns the decoded output-to-input scale factors.
func (c *Constants) UpscaleScale() (x, y float32) {
	return math.Float32frombits(c.Upscale[0][0]), math.Float32frombits(c.Upscale[0][1])
}

// SharpenStrength returns the decoded linear sharpening attenuation.
func (c *Constants) SharpenStrength() float32 {
	return math.Float32frombits(c.Sharpen[0])
}

func rcp(v float32) float32 { return 1 / v }

func f32bits(v float32) uint32 { return math.Float32bits(v) }
