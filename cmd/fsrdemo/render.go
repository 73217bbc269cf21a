package main

import (
	"image"
	"log/slog"

	"github.com/gogpu/fsr"
	"github.com/gogpu/fsr/headless"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// renderer runs frames on the GPU when it can and resamples on the CPU
// otherwise. The GPU session is opened lazily and kept across frames.
type renderer struct {
	backend   gputypes.Backend
	res       fsr.Resolutions
	stageOpts []fsr.StageOption
	logger    *slog.Logger

	host    *headless.Host
	session *headless.Session
	gpuErr  error
}

func (r *renderer) render(cfg *fsr.Config, src image.Image) *image.RGBA {
	if s := r.open(); s != nil {
		out, err := s.Process(cfg, src)
		if err == nil {
			return out
		}
		r.logger.Warn("fsrdemo: stage did not run, resampling on the CPU", "err", err)
	}
	return cpuUpscale(src, r.res.Display)
}

func (r *renderer) open() *headless.Session {
	if r.session != nil || r.gpuErr != nil {
		return r.session
	}
	host, err := headless.Open(r.backend)
	if err != nil {
		r.fail(err)
		return nil
	}
	session, err := headless.NewSession(host, r.res, headless.WithStageOptions(r.stageOpts...))
	if err != nil {
		host.Close()
		r.fail(err)
		return nil
	}
	r.host, r.session = host, session
	return session
}

func (r *renderer) fail(err error) {
	r.gpuErr = err
	r.logger.Warn("fsrdemo: no usable GPU, falling back to CPU resampling", "backend", r.backend, "err", err)
}

func (r *renderer) close() {
	if r.session != nil {
		r.session.Close()
	}
	if r.host != nil {
		r.host.Close()
	}
}

// cpuUpscale resamples src to the display extent with a Catmull-Rom filter.
func cpuUpscale(src image.Image, display fsr.Extent) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, int(display.Width), int(display.Height)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
