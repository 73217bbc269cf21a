package fsr

// StageOption configures a Stage during creation.
//
// Example:
//
//	stage := fsr.NewStage(reg,
//	    fsr.WithProfiler(markers),
//	    fsr.WithBlitter(presenter),
//	)
type StageOption func(*stageOptions)

// stageOptions holds optional collaborators of a Stage.
type stageOptions struct {
	profiler Profiler
	recorder Recorder
	blitter  Blitter
}

// defaultStageOptions returns options with no-op hooks and no blitter.
func defaultStageOptions() stageOptions {
	return stageOptions{
		profiler: nopProfiler{},
		recorder: nopRecorder{},
	}
}

// WithProfiler sets the performance marker hooks. A nil profiler keeps the
// no-op default.
func WithProfiler(p Profiler) StageOption {
	return func(o *stageOptions) {
		if p != nil {
			o.profiler = p
		}
	}
}

// WithRecorder sets the observer notified of every dispatch and output
// selection.
func WithRecorder(r Recorder) StageOption {
	return func(o *stageOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithBlitter sets the presentation primitive used by FinalBlit.
func WithBlitter(b Blitter) StageOption {
	return func(o *stageOptions) {
		o.blitter = b
	}
}
