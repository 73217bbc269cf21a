// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package fsrotel turns the stage's performance markers into OpenTelemetry
// spans. Spans measure command recording on the CPU, not GPU execution.
//
//	prof := fsrotel.New(otel.Tracer("fsr"))
//	stage := fsr.NewStage(reg, fsr.WithProfiler(prof))
//
//	prof.SetParent(frameCtx)
//	err := stage.Dispatch(&cfg, frame)
package fsrotel

import (
	"context"
	"sync"

	"github.com/gogpu/fsr"
	"github.com/gogpu/wgpu/hal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanPrefix is prepended to the marker name to form the span name.
const SpanPrefix = "fsr."

// MarkerKey is the span attribute holding the marker name.
const MarkerKey = attribute.Key("fsr.marker")

type openSpan struct {
	marker fsr.Marker
	ctx    context.Context
	span   trace.Span
}

// Profiler implements fsr.Profiler. Nested markers become child spans of
// the enclosing marker; the outermost marker is a child of the context set
// with SetParent.
type Profiler struct {
	tracer trace.Tracer

	mu     sync.Mutex
	parent context.Context
	stack  []openSpan
}

// New returns a Profiler that starts spans on tracer.
func New(tracer trace.Tracer) *Profiler {
	return &Profiler{tracer: tracer, parent: context.Background()}
}

// SetParent sets the context the next outermost marker is started under,
// typically the caller's per-frame span.
func (p *Profiler) SetParent(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	p.parent = ctx
	p.mu.Unlock()
}

// BeginMarker starts a span for m.
func (p *Profiler) BeginMarker(_ hal.CommandEncoder, m fsr.Marker) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx := p.parent
	if n := len(p.stack); n > 0 {
		ctx = p.stack[n-1].ctx
	}
	ctx, span := p.tracer.Start(ctx, SpanPrefix+m.String(),
		trace.WithAttributes(MarkerKey.String(m.String())))
	p.stack = append(p.stack, openSpan{marker: m, ctx: ctx, span: span})
}

// EndMarker ends the innermost open span. Markers must nest; an end that
// does not match the innermost begin closes the spans above the match and
// marks them as errors.
func (p *Profiler) EndMarker(_ hal.CommandEncoder, m fsr.Marker) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].marker != m {
			continue
		}
		for j := len(p.stack) - 1; j > i; j-- {
			s := p.stack[j].span
			s.SetStatus(codes.Error, "unbalanced marker")
			s.End()
			fsr.Logger().Warn("fsrotel: unbalanced marker",
				"open", p.stack[j].marker, "ended", m)
		}
		p.stack[i].span.End()
		p.stack = p.stack[:i]
		return
	}
	fsr.Logger().Warn("fsrotel: end without begin", "marker", m)
}

// Depth returns the number of open markers.
func (p *Profiler) Depth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stack)
}

var _ fsr.Profiler = (*Profiler)(nil)
