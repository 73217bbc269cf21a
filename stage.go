package fsr

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// Images are the two intermediate outputs of the stage. They are owned by
// the renderer; the stage only records writes to them and publishes those
// writes to later readers.
type Images struct {
	Upscale hal.Texture
	Sharpen hal.Texture
}

// Select returns the image holding output o.
func (i Images) Select(o Output) hal.Texture {
	if o == OutputSharpen {
		return i.Sharpen
	}
	return i.Upscale
}

func (i Images) forVariant(v Variant) hal.Texture {
	if v == VariantUpscale {
		return i.Upscale
	}
	return i.Sharpen
}

// Frame is everything the stage records against for one frame.
type Frame struct {
	// Encoder is the caller's open command encoder.
	Encoder hal.CommandEncoder

	// Resolutions of the current frame.
	Resolutions Resolutions

	// Constants is the bind group holding this frame's constants block.
	// It must not be shared with a frame still in flight.
	Constants hal.BindGroup

	// Textures is the active texture bind group for this frame.
	Textures hal.BindGroup

	// Images are the intermediate outputs.
	Images Images
}

// Stage records the upscale and sharpen passes of a frame.
type Stage struct {
	reg  *Registry
	opts stageOptions
}

// NewStage creates a stage that dispatches the pipelines of reg.
func NewStage(reg *Registry, opts ...StageOption) *Stage {
	o := defaultStageOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Stage{reg: reg, opts: o}
}

// Registry returns the registry the stage dispatches from.
func (s *Stage) Registry() *Registry { return s.reg }

// Dispatch records the passes enabled by cfg into f.Encoder: upscale, then
// sharpen, each followed by a barrier publishing its output image. The
// sharpen pass uses the variant matching whether upscaling ran.
//
// The frame is validated before anything is recorded, so an error leaves
// the encoder untouched. Whether the stage should run at all is the
// caller's decision; see IsActive.
func (s *Stage) Dispatch(cfg *Config, f *Frame) error {
	passes := Passes(cfg)
	if len(passes) == 0 {
		return nil
	}

	pipelines, err := s.validate(f, passes)
	if err != nil {
		return err
	}

	enc := f.Encoder
	x, y, z := DispatchSize(f.Resolutions.Display)
	Logger().Debug("fsr: dispatch",
		"passes", len(passes),
		"display", f.Resolutions.Display,
		"groups_x", x, "groups_y", y)

	s.opts.profiler.BeginMarker(enc, MarkerFSR)
	for i, v := range passes {
		m := markerFor(v)
		s.opts.profiler.BeginMarker(enc, m)

		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: v.Label()})
		pass.SetPipeline(pipelines[i])
		pass.SetBindGroup(GroupConstants, f.Constants, nil)
		pass.SetBindGroup(GroupTextures, f.Textures, nil)
		pass.Dispatch(x, y, z)
		pass.End()

		publishWrite(enc, f.Images.forVariant(v))

		s.opts.profiler.EndMarker(enc, m)
		s.opts.recorder.RecordDispatch(v, x, y)
	}
	s.opts.profiler.EndMarker(enc, MarkerFSR)
	return nil
}

// validate checks f against the passes about to be recorded and resolves
// their pipelines.
func (s *Stage) validate(f *Frame, passes []Variant) ([]hal.ComputePipeline, error) {
	switch {
	case f == nil || f.Encoder == nil:
		return nil, ErrNilEncoder
	case f.Resolutions.Display.IsZero():
		return nil, fmt.Errorf("%w: display %s", ErrInvalidResolution, f.Resolutions.Display)
	case f.Constants == nil:
		return nil, fmt.Errorf("%w: constants", ErrNilBindGroup)
	case f.Textures == nil:
		return nil, fmt.Errorf("%w: textures", ErrNilBindGroup)
	}

	pipelines := make([]hal.ComputePipeline, len(passes))
	for i, v := range passes {
		p, ok := s.reg.Pipeline(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPipelinesNotCreated, v)
		}
		if f.Images.forVariant(v) == nil {
			return nil, fmt.Errorf("%w: %s", ErrNilImage, v)
		}
		pipelines[i] = p
	}
	return pipelines, nil
}

// FinalImage returns the image to present for cfg.
func (s *Stage) FinalImage(cfg *Config, f *Frame) hal.Texture {
	return f.Images.Select(SelectOutput(cfg))
}

// FinalBlit hands the selected output image and the display extent to the
// configured Blitter.
func (s *Stage) FinalBlit(cfg *Config, f *Frame) error {
	if s.opts.blitter == nil {
		return ErrNoBlitter
	}
	if f == nil || f.Encoder == nil {
		return ErrNilEncoder
	}
	out := SelectOutput(cfg)
	img := f.Images.Select(out)
	if img == nil {
		return fmt.Errorf("%w: %s", ErrNilImage, out)
	}
	s.opts.recorder.RecordOutput(out)
	if err := s.opts.blitter.Blit(f.Encoder, img, f.Resolutions.Display); err != nil {
		return fmt.Errorf("fsr: final blit: %w", err)
	}
	return nil
}
