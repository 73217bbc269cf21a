package fsr

import "fmt"

// TileSize is the edge length of the square workgroup tile every kernel
// variant is compiled for.
const TileSize = 16

// Extent is a 2D size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero.
func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// Covers reports whether e is at least as large as o in both dimensions.
func (e Extent) Covers(o Extent) bool {
	return e.Width >= o.Width && e.Height >= o.Height
}

// String returns "WxH".
func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// Resolutions is the per-frame resolution triple supplied by the renderer.
// It is immutable for the duration of a frame.
type Resolutions struct {
	// Render is the resolution the scene was rendered at. It may be lower
	// than Display when dynamic resolution scaling is active.
	Render Extent

	// Container is the allocated size of the working texture that holds the
	// rendered image. It is never smaller than Render.
	Container Extent

	// Display is the final output resolution.
	Display Extent
}

// Validate checks that all three extents are non-zero and that the
// container can hold the render image.
func (r Resolutions) Validate() error {
	switch {
	case r.Render.IsZero():
		return fmt.Errorf("%w: render %s", ErrInvalidResolution, r.Render)
	case r.Container.IsZero():
		return fmt.Errorf("%w: container %s", ErrInvalidResolution, r.Container)
	case r.Display.IsZero():
		return fmt.Errorf("%w: display %s", ErrInvalidResolution, r.Display)
	case !r.Container.Covers(r.Render):
		return fmt.Errorf("%w: container %s smaller than render %s", ErrInvalidResolution, r.Container, r.Render)
	}
	return nil
}

// NeedsUpscaling reports whether the render resolution is below the display
// resolution in both dimensions.
func (r Resolutions) NeedsUpscaling() bool {
	return r.Render.Width < r.Display.Width && r.Render.Height < r.Display.Height
}

// DispatchSize returns the workgroup grid that covers e with TileSize×TileSize
// tiles: (ceil(w/16), ceil(h/16), 1).
func DispatchSize(e Extent) (x, y, z uint32) {
	return tiles(e.Width), tiles(e.Height), 1
}

// tiles is ceil(n/TileSize) without overflowing near the uint32 limit.
func tiles(n uint32) uint32 {
	t := n / TileSize
	if n%TileSize != 0 {
		t++
	}
	return t
}
