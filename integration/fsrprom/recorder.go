// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package fsrprom exports the stage's per-frame decisions as Prometheus
// metrics.
//
//	rec, err := fsrprom.New(prometheus.DefaultRegisterer)
//	if err != nil {
//		return err
//	}
//	stage := fsr.NewStage(reg, fsr.WithRecorder(rec))
//
// Exported series:
//
//	fsr_dispatches_total{variant}       passes recorded per kernel variant
//	fsr_dispatch_workgroups{variant}    workgroups of the latest pass
//	fsr_outputs_total{output}           final images handed to the blitter
package fsrprom

import (
	"fmt"

	"github.com/gogpu/fsr"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "fsr"

// Option configures a Recorder.
type Option func(*options)

type options struct {
	namespace   string
	constLabels prometheus.Labels
}

// WithNamespace replaces the metric name prefix.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithConstLabels attaches fixed labels, such as the window or view name,
// to every series.
func WithConstLabels(l prometheus.Labels) Option {
	return func(o *options) {
		o.constLabels = l
	}
}

// Recorder implements fsr.Recorder on top of Prometheus collectors.
type Recorder struct {
	dispatches *prometheus.CounterVec
	workgroups *prometheus.GaugeVec
	outputs    *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer, opts ...Option) (*Recorder, error) {
	o := options{namespace: DefaultNamespace}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Recorder{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "dispatches_total",
			Help:        "Compute passes recorded by kernel variant.",
			ConstLabels: o.constLabels,
		}, []string{"variant"}),
		workgroups: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   o.namespace,
			Name:        "dispatch_workgroups",
			Help:        "Workgroups dispatched by the latest pass of each kernel variant.",
			ConstLabels: o.constLabels,
		}, []string{"variant"}),
		outputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "outputs_total",
			Help:        "Final images selected for presentation by source.",
			ConstLabels: o.constLabels,
		}, []string{"output"}),
	}

	for _, c := range []prometheus.Collector{r.dispatches, r.workgroups, r.outputs} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("fsrprom: register: %w", err)
		}
	}
	return r, nil
}

// RecordDispatch counts one pass of v and its workgroup grid.
func (r *Recorder) RecordDispatch(v fsr.Variant, groupsX, groupsY uint32) {
	label := v.Label()
	r.dispatches.WithLabelValues(label).Inc()
	r.workgroups.WithLabelValues(label).Set(float64(groupsX) * float64(groupsY))
}

// RecordOutput counts one final image.
func (r *Recorder) RecordOutput(o fsr.Output) {
	r.outputs.WithLabelValues(o.String()).Inc()
}

var _ fsr.Recorder = (*Recorder)(nil)
