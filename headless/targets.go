// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package headless

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/gogpu/fsr"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/draw"
)

// ErrImageSize is returned when an uploaded image does not match the render
// resolution.
var ErrImageSize = errors.New("headless: image size mismatch")

// copyPitchAlignment is the row pitch alignment required for texture to
// buffer copies.
const copyPitchAlignment = 256

const bytesPerPixel = 4

// target is one texture with its view and last recorded usage.
type target struct {
	texture hal.Texture
	view    hal.TextureView
	usage   gputypes.TextureUsage
}

// Targets are the textures, sampler and bind group a session renders
// through: the source image at container size and the two intermediate
// outputs at display size. It implements fsr.Blitter by copying the final
// image into a host-readable buffer.
type Targets struct {
	device hal.Device
	res    fsr.Resolutions

	source  target
	upscale target
	sharpen target
	sampler hal.Sampler
	group   hal.BindGroup

	readback    hal.Buffer
	bytesPerRow uint32
}

// Allocate creates the textures for res and the texture bind group on the
// layout of reg. reg must be initialized.
func Allocate(reg *fsr.Registry, res fsr.Resolutions) (*Targets, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	layout := reg.TexturesLayout()
	if layout == nil {
		return nil, fsr.ErrNotInitialized
	}

	t := &Targets{
		device:      reg.Device(),
		res:         res,
		bytesPerRow: alignUp(res.Display.Width*bytesPerPixel, copyPitchAlignment),
	}
	if err := t.create(layout); err != nil {
		t.Destroy()
		return nil, err
	}
	fsr.Logger().Debug("headless: targets allocated",
		"render", res.Render, "container", res.Container, "display", res.Display)
	return t, nil
}

func (t *Targets) create(layout hal.BindGroupLayout) error {
	var err error
	outputUsage := gputypes.TextureUsageStorageBinding |
		gputypes.TextureUsageTextureBinding |
		gputypes.TextureUsageCopySrc

	if t.source, err = t.createTarget("fsr_source", t.res.Container,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopyDst); err != nil {
		return err
	}
	if t.upscale, err = t.createTarget("fsr_upscale_img", t.res.Display, outputUsage); err != nil {
		return err
	}
	if t.sharpen, err = t.createTarget("fsr_sharpen_img", t.res.Display, outputUsage); err != nil {
		return err
	}

	t.sampler, err = t.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "fsr_linear_clamp",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return fmt.Errorf("headless: create sampler: %w", err)
	}

	t.group, err = t.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "fsr_textures",
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: fsr.BindingSampler, Resource: gputypes.SamplerBinding{Sampler: t.sampler.NativeHandle()}},
			{Binding: fsr.BindingSourceColor, Resource: gputypes.TextureViewBinding{TextureView: t.source.view.NativeHandle()}},
			{Binding: fsr.BindingUpscaleColor, Resource: gputypes.TextureViewBinding{TextureView: t.upscale.view.NativeHandle()}},
			{Binding: fsr.BindingUpscaleOut, Resource: gputypes.TextureViewBinding{TextureView: t.upscale.view.NativeHandle()}},
			{Binding: fsr.BindingSharpenOut, Resource: gputypes.TextureViewBinding{TextureView: t.sharpen.view.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("headless: create texture bind group: %w", err)
	}

	t.readback, err = t.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "fsr_readback",
		Size:  uint64(t.bytesPerRow) * uint64(t.res.Display.Height),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("headless: create readback buffer: %w", err)
	}
	return nil
}

func (t *Targets) createTarget(label string, size fsr.Extent, usage gputypes.TextureUsage) (target, error) {
	tex, err := t.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: size.Width, Height: size.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        fsr.StorageFormat,
		Usage:         usage,
	})
	if err != nil {
		return target{}, fmt.Errorf("headless: create texture %s: %w", label, err)
	}
	view, err := t.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           label,
		Format:          fsr.StorageFormat,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		t.device.DestroyTexture(tex)
		return target{}, fmt.Errorf("headless: create view %s: %w", label, err)
	}
	return target{texture: tex, view: view}, nil
}

// Resolutions returns the resolutions the targets were allocated for.
func (t *Targets) Resolutions() fsr.Resolutions { return t.res }

// Images returns the intermediate outputs for an fsr.Frame.
func (t *Targets) Images() fsr.Images {
	return fsr.Images{Upscale: t.upscale.texture, Sharpen: t.sharpen.texture}
}

// BindGroup returns the texture bind group for an fsr.Frame.
func (t *Targets) BindGroup() hal.BindGroup { return t.group }

// Upload writes img into the top-left render region of the source texture.
// The image bounds must equal the render resolution.
func (t *Targets) Upload(queue hal.Queue, img image.Image) error {
	b := img.Bounds()
	render := t.res.Render
	if uint32(b.Dx()) != render.Width || uint32(b.Dy()) != render.Height {
		return fmt.Errorf("%w: got %dx%d, want %s", ErrImageSize, b.Dx(), b.Dy(), render)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*bytesPerPixel || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	return queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.source.texture, Aspect: gputypes.TextureAspectAll},
		rgba.Pix,
		&hal.ImageDataLayout{BytesPerRow: render.Width * bytesPerPixel, RowsPerImage: render.Height},
		&hal.Extent3D{Width: render.Width, Height: render.Height, DepthOrArrayLayers: 1},
	)
}

// prepare records the transitions that put the source in a sampled state
// and both outputs in a writable state before the stage runs.
func (t *Targets) prepare(enc hal.CommandEncoder) {
	barriers := []hal.TextureBarrier{
		t.source.transition(gputypes.TextureUsageTextureBinding),
		t.upscale.transition(gputypes.TextureUsageStorageBinding),
		t.sharpen.transition(gputypes.TextureUsageStorageBinding),
	}
	enc.TransitionTextures(barriers)

	// The stage publishes each output for shader reads after writing it.
	published := gputypes.TextureUsageStorageBinding | gputypes.TextureUsageTextureBinding
	t.upscale.usage = published
	t.sharpen.usage = published
}

func (tg *target) transition(to gputypes.TextureUsage) hal.TextureBarrier {
	b := hal.TextureBarrier{
		Texture: tg.texture,
		Range: hal.TextureRange{
			Aspect:          gputypes.TextureAspectAll,
			MipLevelCount:   1,
			ArrayLayerCount: 1,
		},
		Usage: hal.TextureUsageTransition{OldUsage: tg.usage, NewUsage: to},
	}
	tg.usage = to
	return b
}

// Blit copies src into the readback buffer. src must be one of the
// intermediate outputs.
func (t *Targets) Blit(enc hal.CommandEncoder, src hal.Texture, extent fsr.Extent) error {
	var tg *target
	switch src {
	case t.upscale.texture:
		tg = &t.upscale
	case t.sharpen.texture:
		tg = &t.sharpen
	default:
		return errors.New("headless: blit source is not an output target")
	}
	if !t.res.Display.Covers(extent) {
		return fmt.Errorf("headless: blit extent %s exceeds display %s", extent, t.res.Display)
	}

	enc.TransitionTextures([]hal.TextureBarrier{tg.transition(gputypes.TextureUsageCopySrc)})
	enc.CopyTextureToBuffer(tg.texture, t.readback, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			BytesPerRow:  t.bytesPerRow,
			RowsPerImage: extent.Height,
		},
		TextureBase: hal.ImageCopyTexture{
			Texture: tg.texture,
			Aspect:  gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{Width: extent.Width, Height: extent.Height, DepthOrArrayLayers: 1},
	}})
	return nil
}

// Readback maps the readback buffer and returns the display-sized image,
// stripping the copy row padding.
func (t *Targets) Readback() (*image.RGBA, error) {
	w, h := t.res.Display.Width, t.res.Display.Height
	size := uint64(t.bytesPerRow) * uint64(h)

	mapping, err := t.device.MapBuffer(t.readback, 0, size)
	if err != nil {
		return nil, fmt.Errorf("headless: map readback: %w", err)
	}
	defer func() {
		if err := t.device.UnmapBuffer(t.readback); err != nil {
			fsr.Logger().Warn("headless: unmap readback", "err", err)
		}
	}()

	data := unsafe.Slice((*byte)(mapping.Ptr), size)
	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	row := int(w) * bytesPerPixel
	for y := 0; y < int(h); y++ {
		off := y * int(t.bytesPerRow)
		copy(img.Pix[y*img.Stride:y*img.Stride+row], data[off:off+row])
	}
	return img, nil
}

// Destroy releases every object. Safe to call more than once and on
// partially created targets.
func (t *Targets) Destroy() {
	if t.readback != nil {
		t.device.DestroyBuffer(t.readback)
		t.readback = nil
	}
	if t.group != nil {
		t.device.DestroyBindGroup(t.group)
		t.group = nil
	}
	if t.sampler != nil {
		t.device.DestroySampler(t.sampler)
		t.sampler = nil
	}
	for _, tg := range []*target{&t.sharpen, &t.upscale, &t.source} {
		tg.destroy(t.device)
	}
}

func (tg *target) destroy(device hal.Device) {
	if tg.view != nil {
		device.DestroyTextureView(tg.view)
		tg.view = nil
	}
	if tg.texture != nil {
		device.DestroyTexture(tg.texture)
		tg.texture = nil
	}
	tg.usage = 0
}

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) / a * a
}

var _ fsr.Blitter = (*Targets)(nil)
