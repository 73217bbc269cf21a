// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package headless

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/fsr"
	"github.com/gogpu/wgpu/hal"
)

// ErrInactive is returned by Process when the configuration disables the
// stage for the session's resolutions. The caller is expected to resample
// on its own.
var ErrInactive = errors.New("headless: stage inactive")

// ErrNeedsResample is returned by Process when sharpening runs without
// upscaling and the render and display sizes differ.
var ErrNeedsResample = errors.New("headless: render and display sizes differ without upscaling")

// DefaultFramesInFlight is the constants ring depth used when none is given.
const DefaultFramesInFlight = 2

type sessionOptions struct {
	registry []fsr.RegistryOption
	stage    []fsr.StageOption
	frames   int
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

// WithRegistryOptions passes options through to the pipeline registry.
func WithRegistryOptions(opts ...fsr.RegistryOption) SessionOption {
	return func(o *sessionOptions) {
		o.registry = append(o.registry, opts...)
	}
}

// WithStageOptions passes options through to the stage. A blitter set here
// is overridden by the session's readback blitter.
func WithStageOptions(opts ...fsr.StageOption) SessionOption {
	return func(o *sessionOptions) {
		o.stage = append(o.stage, opts...)
	}
}

// WithFramesInFlight sets the number of constants slots. Values below one
// are ignored.
func WithFramesInFlight(n int) SessionOption {
	return func(o *sessionOptions) {
		if n >= 1 {
			o.frames = n
		}
	}
}

// Session runs the stage on still images: upload, dispatch, blit and read
// back, one submission per image. It is not safe for concurrent use.
type Session struct {
	host    *Host
	reg     *fsr.Registry
	ring    *fsr.ConstantsRing
	targets *Targets
	stage   *fsr.Stage
	frame   int
}

// NewSession builds the registry, pipelines, constants ring and targets for
// res on the host's device.
func NewSession(h *Host, res fsr.Resolutions, opts ...SessionOption) (*Session, error) {
	o := sessionOptions{frames: DefaultFramesInFlight}
	for _, opt := range opts {
		opt(&o)
	}

	reg, _, err := fsr.RegistryFromProvider(h, h.Features(), o.registry...)
	if err != nil {
		return nil, err
	}
	s := &Session{host: h, reg: reg}
	if err := s.build(res, o); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) build(res fsr.Resolutions, o sessionOptions) error {
	if err := s.reg.Initialize(); err != nil {
		return err
	}
	if err := s.reg.CreatePipelines(); err != nil {
		return err
	}
	ring, err := fsr.NewConstantsRing(s.reg, o.frames)
	if err != nil {
		return err
	}
	s.ring = ring
	targets, err := Allocate(s.reg, res)
	if err != nil {
		return err
	}
	s.targets = targets

	stageOpts := append(o.stage[:len(o.stage):len(o.stage)], fsr.WithBlitter(targets))
	s.stage = fsr.NewStage(s.reg, stageOpts...)
	return nil
}

// Registry returns the session's pipeline registry.
func (s *Session) Registry() *fsr.Registry { return s.reg }

// Resolutions returns the resolutions the session was built for.
func (s *Session) Resolutions() fsr.Resolutions { return s.targets.Resolutions() }

// Process runs the stage on img with cfg and returns the display-sized
// result. img must be render-sized.
func (s *Session) Process(cfg *fsr.Config, img image.Image) (*image.RGBA, error) {
	if s.targets == nil {
		return nil, ErrClosed
	}
	res := s.targets.Resolutions()
	if !fsr.IsActive(cfg, res) {
		return nil, ErrInactive
	}
	if fsr.NeedsUpscaleFallback(cfg) && res.Render != res.Display {
		return nil, fmt.Errorf("%w: render %s, display %s", ErrNeedsResample, res.Render, res.Display)
	}

	queue := s.host.queue
	if err := s.targets.Upload(queue, img); err != nil {
		return nil, err
	}

	slot := s.frame % s.ring.Len()
	s.frame++
	consts := fsr.BuildConstants(res, cfg.Sharpness)
	if err := s.ring.Update(queue, slot, &consts); err != nil {
		return nil, err
	}

	if err := s.submit(cfg, slot); err != nil {
		return nil, err
	}
	return s.targets.Readback()
}

func (s *Session) submit(cfg *fsr.Config, slot int) error {
	device := s.host.device
	enc, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "fsr_headless_encoder"})
	if err != nil {
		return fmt.Errorf("headless: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("fsr_headless"); err != nil {
		return fmt.Errorf("headless: begin encoding: %w", err)
	}

	frame := &fsr.Frame{
		Encoder:     enc,
		Resolutions: s.targets.Resolutions(),
		Constants:   s.ring.BindGroup(slot),
		Textures:    s.targets.BindGroup(),
		Images:      s.targets.Images(),
	}
	s.targets.prepare(enc)
	if err := s.stage.Dispatch(cfg, frame); err != nil {
		enc.DiscardEncoding()
		return err
	}
	if err := s.stage.FinalBlit(cfg, frame); err != nil {
		enc.DiscardEncoding()
		return err
	}

	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("headless: end encoding: %w", err)
	}
	defer device.FreeCommandBuffer(cmd)

	if _, err := s.host.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("headless: submit: %w", err)
	}
	if err := device.WaitIdle(); err != nil {
		return fmt.Errorf("headless: wait idle: %w", err)
	}
	return nil
}

// Close releases every object the session created. The host stays open.
// Safe to call more than once.
func (s *Session) Close() {
	if s.targets != nil {
		s.targets.Destroy()
		s.targets = nil
	}
	if s.ring != nil {
		s.ring.Destroy()
		s.ring = nil
	}
	if s.reg != nil {
		s.reg.Destroy()
		s.reg = nil
	}
}
