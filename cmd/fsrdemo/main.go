// Command fsrdemo runs one frame of the upscale and sharpen stage on a still
// image.
//
//	fsrdemo -input shot.png -output shot_4k.png -display 3840x2160
//
// Settings come from a cvar archive (-archive) and an optional Lua script
// (-script) run through the settings console, for example:
//
//	cvar_set("flt_fsr_enable", 2)
//	cvar_set("flt_fsr_sharpness", 0.5)
//
// With -watch the process stays up and re-renders whenever the archive
// changes. With -metrics it serves Prometheus metrics on the given address.
// When no GPU backend can run the stage the image is resampled on the CPU.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/fsr"
	"github.com/gogpu/fsr/console"
	"github.com/gogpu/fsr/cvar"
	"github.com/gogpu/fsr/integration/fsrprom"
	"github.com/gogpu/gputypes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/gogpu/wgpu/hal/noop"
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

type flags struct {
	input   string
	output  string
	display string
	archive string
	script  string
	metrics string
	backend string
	save    bool
	watch   bool
	verbose bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.input, "input", "", "input image (png, jpeg, bmp, tiff, webp)")
	flag.StringVar(&f.output, "output", "fsr_out.png", "output PNG file")
	flag.StringVar(&f.display, "display", "", "display size WxH (default: twice the input)")
	flag.StringVar(&f.archive, "archive", "", "cvar archive to load settings from")
	flag.StringVar(&f.script, "script", "", "Lua script run through the settings console")
	flag.StringVar(&f.metrics, "metrics", "", "serve Prometheus metrics on this address")
	flag.StringVar(&f.backend, "backend", "vulkan", "HAL backend: vulkan or noop")
	flag.BoolVar(&f.save, "save", false, "write the final settings back to -archive")
	flag.BoolVar(&f.watch, "watch", false, "re-render whenever -archive changes")
	flag.BoolVar(&f.verbose, "v", false, "debug logging")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	fsr.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f, logger); err != nil {
		logger.Error("fsrdemo failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags, logger *slog.Logger) error {
	if f.input == "" {
		return errors.New("-input is required")
	}
	backend, err := parseBackend(f.backend)
	if err != nil {
		return err
	}

	settings := cvar.New()
	cvars, err := fsr.RegisterCvars(settings)
	if err != nil {
		return err
	}
	if f.archive != "" {
		if err := settings.LoadFile(f.archive); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if f.script != "" {
		con := console.New(settings, os.Stdout)
		err := con.ExecFile(f.script)
		con.Close()
		if err != nil {
			return err
		}
	}

	src, err := loadImage(f.input)
	if err != nil {
		return err
	}
	res, err := resolutionsFor(src.Bounds(), f.display)
	if err != nil {
		return err
	}

	var stageOpts []fsr.StageOption
	if f.metrics != "" {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec, err := fsrprom.New(promReg)
		if err != nil {
			return err
		}
		stageOpts = append(stageOpts, fsr.WithRecorder(rec))
		srv := serveMetrics(f.metrics, promReg, logger)
		defer shutdown(srv)
	}

	r := &renderer{backend: backend, res: res, stageOpts: stageOpts, logger: logger}
	defer r.close()

	render := func() error {
		cfg := cvars.Config()
		out := r.render(&cfg, src)
		if err := saveImage(f.output, out); err != nil {
			return err
		}
		logger.Info("fsrdemo: wrote output", "path", f.output, "size", out.Bounds().Size(), "config", fmt.Sprintf("%+v", cfg))
		return nil
	}
	if err := render(); err != nil {
		return err
	}

	if f.save && f.archive != "" {
		if err := settings.SaveFile(f.archive); err != nil {
			return err
		}
	}

	switch {
	case f.watch && f.archive != "":
		err := settings.Watch(ctx, f.archive, cvar.OnReload(func(err error) {
			if err != nil {
				logger.Warn("fsrdemo: archive reload failed", "err", err)
				return
			}
			if err := render(); err != nil {
				logger.Warn("fsrdemo: re-render failed", "err", err)
			}
		}))
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case f.metrics != "":
		<-ctx.Done()
	}
	return nil
}

func parseBackend(name string) (gputypes.Backend, error) {
	switch name {
	case "vulkan":
		return gputypes.BackendVulkan, nil
	case "noop":
		return gputypes.BackendEmpty, nil
	default:
		return 0, fmt.Errorf("unknown backend %q", name)
	}
}

// resolutionsFor builds the resolution triple for a source image. The
// container is exactly the render size.
func resolutionsFor(bounds image.Rectangle, display string) (fsr.Resolutions, error) {
	render := fsr.Extent{Width: uint32(bounds.Dx()), Height: uint32(bounds.Dy())}
	disp := fsr.Extent{Width: render.Width * 2, Height: render.Height * 2}
	if display != "" {
		var w, h uint32
		if _, err := fmt.Sscanf(display, "%dx%d", &w, &h); err != nil {
			return fsr.Resolutions{}, fmt.Errorf("invalid -display %q: want WxH", display)
		}
		disp = fsr.Extent{Width: w, Height: h}
	}
	res := fsr.Resolutions{Render: render, Container: render, Display: disp}
	return res, res.Validate()
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("fsrdemo: metrics server", "err", err)
		}
	}()
	logger.Info("fsrdemo: serving metrics", "addr", addr)
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
