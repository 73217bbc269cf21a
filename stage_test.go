package fsr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

func newFrame(enc hal.CommandEncoder, r Resolutions) *Frame {
	return &Frame{
		Encoder:     enc,
		Resolutions: r,
		Constants:   newNamed("constants"),
		Textures:    newNamed("textures"),
		Images: Images{
			Upscale: newNamed("upscale_img"),
			Sharpen: newNamed("sharpen_img"),
		},
	}
}

func passLog(label, img string, x, y uint32) []string {
	return []string{
		"begin " + label,
		"pipeline pipeline:" + label,
		"group 0 constants",
		"group 1 textures",
		fmt.Sprintf("dispatch %d %d 1", x, y),
		"end",
		"barrier " + img,
	}
}

func TestDispatchBothStages(t *testing.T) {
	reg, _ := newTestRegistry(t)
	rec := &countingRecorder{}
	blit := &fakeBlitter{}
	stage := NewStage(reg, WithProfiler(markerLog{}), WithRecorder(rec), WithBlitter(blit))

	cfg := Config{Enable: EnableWhenUpscaling, Upscale: true, Sharpen: true, Sharpness: 0.2}
	r := res(1280, 720, 1920, 1080)
	if !IsActive(&cfg, r) {
		t.Fatal("IsActive() = false")
	}

	enc := &recordingEncoder{}
	f := newFrame(enc, r)
	if err := stage.Dispatch(&cfg, f); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	var want []string
	want = append(want, "marker+ FSR", "marker+ EASU")
	want = append(want, passLog("fsr_easu", "upscale_img", 120, 68)...)
	want = append(want, "marker- EASU", "marker+ RCAS")
	want = append(want, passLog("fsr_rcas_after_easu", "sharpen_img", 120, 68)...)
	want = append(want, "marker- RCAS", "marker- FSR")
	if !reflect.DeepEqual(enc.log, want) {
		t.Errorf("command log:\n%s\nwant:\n%s", strings.Join(enc.log, "\n"), strings.Join(want, "\n"))
	}

	if !reflect.DeepEqual(rec.dispatches, []Variant{VariantUpscale, VariantSharpenAfterUpscale}) {
		t.Errorf("recorded dispatches = %v", rec.dispatches)
	}

	if got := stage.FinalImage(&cfg, f); nameOf(got) != "sharpen_img" {
		t.Errorf("FinalImage() = %s, want sharpen_img", nameOf(got))
	}
	if err := stage.FinalBlit(&cfg, f); err != nil {
		t.Fatalf("FinalBlit() error = %v", err)
	}
	if nameOf(blit.src) != "sharpen_img" || blit.extent != r.Display {
		t.Errorf("blit src = %s extent = %s", nameOf(blit.src), blit.extent)
	}
	if !reflect.DeepEqual(rec.outputs, []Output{OutputSharpen}) {
		t.Errorf("recorded outputs = %v", rec.outputs)
	}
}

func TestDispatchVariantPairing(t *testing.T) {
	reg, _ := newTestRegistry(t)
	stage := NewStage(reg)
	r := res(1280, 720, 1920, 1080)

	tests := []struct {
		name    string
		cfg     Config
		labels  []string
		images  []string
		final   string
		nothing bool
	}{
		{
			name:   "both",
			cfg:    Config{Enable: EnableAlways, Upscale: true, Sharpen: true},
			labels: []string{"fsr_easu", "fsr_rcas_after_easu"},
			images: []string{"upscale_img", "sharpen_img"},
			final:  "sharpen_img",
		},
		{
			name:   "sharpen only",
			cfg:    Config{Enable: EnableAlways, Sharpen: true},
			labels: []string{"fsr_rcas_after_taau"},
			images: []string{"sharpen_img"},
			final:  "sharpen_img",
		},
		{
			name:   "upscale only",
			cfg:    Config{Enable: EnableAlways, Upscale: true},
			labels: []string{"fsr_easu"},
			images: []string{"upscale_img"},
			final:  "upscale_img",
		},
		{
			name:    "neither",
			cfg:     Config{Enable: EnableAlways},
			nothing: true,
			final:   "upscale_img",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := &recordingEncoder{}
			f := newFrame(enc, r)
			if err := stage.Dispatch(&tt.cfg, f); err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if tt.nothing {
				if len(enc.log) != 0 {
					t.Errorf("recorded %v, want nothing", enc.log)
				}
			}

			var labels, pipelines, images []string
			for _, line := range enc.log {
				switch {
				case strings.HasPrefix(line, "begin "):
					labels = append(labels, strings.TrimPrefix(line, "begin "))
				case strings.HasPrefix(line, "pipeline "):
					pipelines = append(pipelines, strings.TrimPrefix(line, "pipeline pipeline:"))
				case strings.HasPrefix(line, "barrier "):
					images = append(images, strings.TrimPrefix(line, "barrier "))
				}
			}
			if !reflect.DeepEqual(labels, tt.labels) {
				t.Errorf("passes = %v, want %v", labels, tt.labels)
			}
			if !reflect.DeepEqual(pipelines, tt.labels) {
				t.Errorf("pipelines = %v, want %v", pipelines, tt.labels)
			}
			if !reflect.DeepEqual(images, tt.images) {
				t.Errorf("barriers = %v, want %v", images, tt.images)
			}
			if got := nameOf(stage.FinalImage(&tt.cfg, f)); got != tt.final {
				t.Errorf("final image = %s, want %s", got, tt.final)
			}
		})
	}
}

// Every pass is followed by exactly one barrier on the image it wrote,
// before any later pass begins.
func TestDispatchBarrierPlacement(t *testing.T) {
	reg, _ := newTestRegistry(t)
	stage := NewStage(reg)
	enc := &recordingEncoder{}
	cfg := Config{Enable: EnableAlways, Upscale: true, Sharpen: true}
	if err := stage.Dispatch(&cfg, newFrame(enc, res(960, 540, 1920, 1080))); err != nil {
		t.Fatal(err)
	}

	lastEnd := -1
	barriers := 0
	for i, line := range enc.log {
		switch {
		case line == "end":
			lastEnd = i
		case strings.HasPrefix(line, "begin ") && lastEnd >= 0:
			if !strings.HasPrefix(enc.log[i-1], "barrier ") {
				t.Errorf("pass %q not preceded by a barrier", line)
			}
		case strings.HasPrefix(line, "barrier "):
			if lastEnd != i-1 {
				t.Errorf("barrier at %d not directly after a pass end", i)
			}
			barriers++
		}
	}
	if barriers != 2 {
		t.Errorf("barriers = %d, want 2", barriers)
	}

	for _, b := range enc.barriers {
		if b.Usage.OldUsage != gputypes.TextureUsageStorageBinding {
			t.Errorf("old usage = %v", b.Usage.OldUsage)
		}
		if b.Usage.NewUsage != gputypes.TextureUsageStorageBinding|gputypes.TextureUsageTextureBinding {
			t.Errorf("new usage = %v", b.Usage.NewUsage)
		}
		want := hal.TextureRange{Aspect: gputypes.TextureAspectAll, MipLevelCount: 1, ArrayLayerCount: 1}
		if b.Range != want {
			t.Errorf("range = %+v, want %+v", b.Range, want)
		}
	}
}

func TestDispatchNativeResolutionNotActive(t *testing.T) {
	cfg := Config{Enable: EnableWhenUpscaling, Upscale: true, Sharpen: true, Sharpness: 0.2}
	if IsActive(&cfg, res(1920, 1080, 1920, 1080)) {
		t.Error("IsActive() = true at native resolution")
	}
}

func TestDispatchErrors(t *testing.T) {
	reg, _ := newTestRegistry(t)
	stage := NewStage(reg)
	cfg := Config{Enable: EnableAlways, Upscale: true, Sharpen: true}
	r := res(1280, 720, 1920, 1080)

	tests := []struct {
		name   string
		mutate func(f *Frame)
		want   error
	}{
		{"nil encoder", func(f *Frame) { f.Encoder = nil }, ErrNilEncoder},
		{"zero display", func(f *Frame) { f.Resolutions.Display = Extent{} }, ErrInvalidResolution},
		{"nil constants", func(f *Frame) { f.Constants = nil }, ErrNilBindGroup},
		{"nil textures", func(f *Frame) { f.Textures = nil }, ErrNilBindGroup},
		{"nil upscale image", func(f *Frame) { f.Images.Upscale = nil }, ErrNilImage},
		{"nil sharpen image", func(f *Frame) { f.Images.Sharpen = nil }, ErrNilImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := &recordingEncoder{}
			f := newFrame(enc, r)
			tt.mutate(f)
			if err := stage.Dispatch(&cfg, f); !errors.Is(err, tt.want) {
				t.Errorf("Dispatch() error = %v, want %v", err, tt.want)
			}
			if len(enc.log) != 0 {
				t.Errorf("recorded %v on failure", enc.log)
			}
		})
	}

	if err := stage.Dispatch(&cfg, nil); !errors.Is(err, ErrNilEncoder) {
		t.Errorf("Dispatch(nil frame) error = %v", err)
	}

	reg.DestroyPipelines()
	enc := &recordingEncoder{}
	if err := stage.Dispatch(&cfg, newFrame(enc, r)); !errors.Is(err, ErrPipelinesNotCreated) {
		t.Errorf("Dispatch without pipelines error = %v", err)
	}
	if len(enc.log) != 0 {
		t.Errorf("recorded %v without pipelines", enc.log)
	}
}

func TestFinalBlitErrors(t *testing.T) {
	reg, _ := newTestRegistry(t)
	cfg := Config{Enable: EnableAlways, Upscale: true, Sharpen: true}
	r := res(1280, 720, 1920, 1080)

	if err := NewStage(reg).FinalBlit(&cfg, newFrame(&recordingEncoder{}, r)); !errors.Is(err, ErrNoBlitter) {
		t.Errorf("without blitter: %v", err)
	}

	blit := &fakeBlitter{}
	stage := NewStage(reg, WithBlitter(blit))
	f := newFrame(&recordingEncoder{}, r)
	f.Images.Sharpen = nil
	if err := stage.FinalBlit(&cfg, f); !errors.Is(err, ErrNilImage) {
		t.Errorf("nil selected image: %v", err)
	}
	if err := stage.FinalBlit(&cfg, &Frame{}); !errors.Is(err, ErrNilEncoder) {
		t.Errorf("nil encoder: %v", err)
	}

	blit.err = errInjected
	if err := stage.FinalBlit(&cfg, newFrame(&recordingEncoder{}, r)); !errors.Is(err, errInjected) {
		t.Errorf("blitter failure: %v", err)
	}

	upOnly := Config{Enable: EnableAlways, Upscale: true}
	blit.err = nil
	if err := stage.FinalBlit(&upOnly, newFrame(&recordingEncoder{}, r)); err != nil {
		t.Fatal(err)
	}
	if nameOf(blit.src) != "upscale_img" {
		t.Errorf("upscale-only blit src = %s", nameOf(blit.src))
	}
}

func TestImagesSelect(t *testing.T) {
	up, sh := newNamed("u"), newNamed("s")
	imgs := Images{Upscale: up, Sharpen: sh}
	if imgs.Select(OutputUpscale) != up || imgs.Select(OutputSharpen) != sh {
		t.Error("Select mismatch")
	}
}
