package main

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/fsr"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/bmp"
)

func TestResolutionsFor(t *testing.T) {
	bounds := image.Rect(0, 0, 640, 360)

	tests := []struct {
		name    string
		display string
		want    fsr.Extent
		wantErr bool
	}{
		{"default doubles", "", fsr.Extent{Width: 1280, Height: 720}, false},
		{"explicit", "1920x1080", fsr.Extent{Width: 1920, Height: 1080}, false},
		{"garbage", "big", fsr.Extent{}, true},
		{"zero", "0x1080", fsr.Extent{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := resolutionsFor(bounds, tt.display)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolutionsFor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if res.Display != tt.want || res.Render != res.Container {
				t.Errorf("resolutionsFor() = %+v", res)
			}
		})
	}
}

func TestParseBackend(t *testing.T) {
	if b, err := parseBackend("noop"); err != nil || b != gputypes.BackendEmpty {
		t.Errorf("parseBackend(noop) = %v, %v", b, err)
	}
	if b, err := parseBackend("vulkan"); err != nil || b != gputypes.BackendVulkan {
		t.Errorf("parseBackend(vulkan) = %v, %v", b, err)
	}
	if _, err := parseBackend("dx9"); err == nil {
		t.Error("parseBackend(dx9) should fail")
	}
}

func TestCPUUpscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	out := cpuUpscale(src, fsr.Extent{Width: 10, Height: 6})
	if out.Bounds() != image.Rect(0, 0, 10, 6) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if got := out.RGBAAt(5, 3); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("center pixel = %v, want opaque white", got)
	}
}

func TestLoadSaveImage(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bmp")

	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.SetRGBA(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	f, err := os.Create(in)
	if err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := loadImage(in)
	if err != nil {
		t.Fatalf("loadImage() error = %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("bounds = %v", img.Bounds())
	}

	out := filepath.Join(dir, "out.png")
	if err := saveImage(out, img); err != nil {
		t.Fatalf("saveImage() error = %v", err)
	}
	if _, err := loadImage(out); err != nil {
		t.Errorf("reload png: %v", err)
	}

	if _, err := loadImage(filepath.Join(dir, "missing.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("loadImage(missing) error = %v", err)
	}
}

// The noop backend compiles the real kernels, so the stage must run without
// falling back to the CPU.
func TestRendererUsesGPU(t *testing.T) {
	res, err := resolutionsFor(image.Rect(0, 0, 16, 8), "32x16")
	if err != nil {
		t.Fatal(err)
	}
	r := &renderer{
		backend: gputypes.BackendEmpty,
		res:     res,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	defer r.close()

	cfg := fsr.DefaultConfig()
	cfg.Enable = fsr.EnableAlways
	out := r.render(&cfg, image.NewRGBA(image.Rect(0, 0, 16, 8)))
	if r.gpuErr != nil || r.session == nil {
		t.Fatalf("GPU session did not open: %v", r.gpuErr)
	}
	if out.Bounds() != image.Rect(0, 0, 32, 16) {
		t.Errorf("output bounds = %v, want 32x16", out.Bounds())
	}
}

func TestRunNoopBackend(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bmp")
	f, err := os.Create(in)
	if err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(f, image.NewRGBA(image.Rect(0, 0, 16, 8))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	script := filepath.Join(dir, "settings.lua")
	if err := os.WriteFile(script, []byte(`cvar_set("flt_fsr_enable", 2)`), 0o600); err != nil {
		t.Fatal(err)
	}
	archive := filepath.Join(dir, "fsr.cfg")

	out := filepath.Join(dir, "out.png")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err = run(context.Background(), flags{
		input:   in,
		output:  out,
		display: "32x16",
		archive: archive,
		script:  script,
		backend: "noop",
		save:    true,
	}, logger)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	img, err := loadImage(out)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 32, 16) {
		t.Errorf("output bounds = %v, want 32x16", img.Bounds())
	}
	data, err := os.ReadFile(archive)
	if err != nil {
		t.Fatalf("archive not saved: %v", err)
	}
	if !strings.Contains(string(data), `set flt_fsr_enable "2"`) {
		t.Errorf("archive missing enable setting:\n%s", data)
	}
}
