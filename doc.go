// Package fsr is a GPU post-processing stage that upscales a frame rendered
// below display resolution and sharpens the result.
//
// # Overview
//
// Each frame the stage decides whether it should run, builds the constants
// its two compute kernels consume, records the kernels with the barriers
// their consumers need, and picks the image to present. The kernels are an
// edge-adaptive upsampler (EASU) and a contrast-adaptive sharpener (RCAS).
// Either may be disabled; sharpening then reads the render image directly.
//
// The stage records into a command encoder owned by the renderer. It never
// submits, waits or allocates per frame.
//
// # Quick Start
//
//	reg, err := fsr.NewRegistry(device, features)
//	if err != nil { ... }
//	if err := reg.Initialize(); err != nil { ... }
//	if err := reg.CreatePipelines(); err != nil { ... }
//	defer reg.Destroy()
//
//	ring, _ := fsr.NewConstantsRing(reg, framesInFlight)
//	stage := fsr.NewStage(reg, fsr.WithBlitter(presenter))
//
//	// Per frame:
//	cfg := cvars.Config()
//	if fsr.IsActive(&cfg, res) {
//	    c := fsr.BuildConstants(res, cfg.Sharpness)
//	    _ = ring.Update(queue, slot, &c)
//	    frame := &fsr.Frame{
//	        Encoder:     enc,
//	        Resolutions: res,
//	        Constants:   ring.BindGroup(slot),
//	        Textures:    textures,
//	        Images:      images,
//	    }
//	    if err := stage.Dispatch(&cfg, frame); err != nil { ... }
//	    if err := stage.FinalBlit(&cfg, frame); err != nil { ... }
//	}
//
// # Settings
//
// RegisterCvars registers flt_fsr_enable (0 off, 1 only while upscaling,
// 2 always), flt_fsr_easu, flt_fsr_rcas and flt_fsr_sharpness (stops, 0 is
// sharpest) in a cvar.Registry. Config snapshots them once per frame.
//
// # Architecture
//
//   - Policy: IsActive, NeedsUpscaleFallback, Passes, SelectOutput
//   - Parameters: BuildConstants, ConstantsRing
//   - Kernels: Registry compiles three variants from WGSL with naga
//   - Recording: Stage, with Profiler, Recorder and Blitter hooks
//
// Sub-packages:
//   - cvar: named settings with archive persistence and hot reload
//   - console: Lua console over a cvar.Registry
//   - headless: a self-contained host that runs the stage on an image
//   - integration/fsrprom, integration/fsrotel: metrics and trace hooks
package fsr
