package fsr

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// named is a HAL object distinguishable by name. It satisfies every HAL
// resource interface the package touches.
type named struct {
	noop.Texture
	name string
}

func newNamed(name string) *named { return &named{name: name} }

func nameOf(r any) string {
	if n, ok := r.(*named); ok {
		return n.name
	}
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("<%T>", r)
}

var errInjected = errors.New("injected failure")

// fakeDevice tracks the lifetime of every object the registry creates and
// fails creation of any object whose label matches failLabel.
type fakeDevice struct {
	noop.Device

	failLabel string
	live      map[*named]bool
	created   []string
	destroyed []string
	badFrees  int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{live: make(map[*named]bool)}
}

func (d *fakeDevice) create(kind, label string) (*named, error) {
	if d.failLabel != "" && d.failLabel == kind+":"+label {
		return nil, errInjected
	}
	n := newNamed(kind + ":" + label)
	d.live[n] = true
	d.created = append(d.created, n.name)
	return n, nil
}

func (d *fakeDevice) destroy(r any) {
	n, ok := r.(*named)
	if !ok || !d.live[n] {
		d.badFrees++
		return
	}
	delete(d.live, n)
	d.destroyed = append(d.destroyed, n.name)
}

// result converts a fake object to the HAL interface the caller returns,
// keeping a failed creation a true nil interface.
func result[T any](n *named, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	return any(n).(T), nil
}

func (d *fakeDevice) liveCount() int { return len(d.live) }

func (d *fakeDevice) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	return result[hal.BindGroupLayout](d.create("bgl", desc.Label))
}

func (d *fakeDevice) DestroyBindGroupLayout(l hal.BindGroupLayout) { d.destroy(l) }

func (d *fakeDevice) CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	return result[hal.PipelineLayout](d.create("layout", desc.Label))
}

func (d *fakeDevice) DestroyPipelineLayout(l hal.PipelineLayout) { d.destroy(l) }

func (d *fakeDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	return result[hal.ShaderModule](d.create("module", desc.Label))
}

func (d *fakeDevice) DestroyShaderModule(m hal.ShaderModule) { d.destroy(m) }

func (d *fakeDevice) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	if desc.Layout == nil {
		return nil, errors.New("pipeline without layout")
	}
	return result[hal.ComputePipeline](d.create("pipeline", desc.Label))
}

func (d *fakeDevice) DestroyComputePipeline(p hal.ComputePipeline) { d.destroy(p) }

func (d *fakeDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if d.failLabel == "buffer:"+desc.Label {
		return nil, errInjected
	}
	return d.Device.CreateBuffer(desc)
}

func (d *fakeDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	return result[hal.BindGroup](d.create("bg", desc.Label))
}

func (d *fakeDevice) DestroyBindGroup(g hal.BindGroup) { d.destroy(g) }

// fakeCompiler records the sources it is asked to compile.
type fakeCompiler struct {
	sources []string
	failOn  string
}

func (c *fakeCompiler) compile(src string) ([]uint32, error) {
	c.sources = append(c.sources, src)
	if c.failOn != "" && strings.Contains(src, c.failOn) {
		return nil, errInjected
	}
	return []uint32{0x07230203}, nil
}

// recordingEncoder logs the commands recorded through it.
type recordingEncoder struct {
	noop.CommandEncoder
	log      []string
	barriers []hal.TextureBarrier
}

func (e *recordingEncoder) add(format string, args ...any) {
	e.log = append(e.log, fmt.Sprintf(format, args...))
}

func (e *recordingEncoder) BeginComputePass(desc *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	e.add("begin %s", desc.Label)
	return &recordingPass{enc: e}
}

func (e *recordingEncoder) TransitionTextures(barriers []hal.TextureBarrier) {
	for _, b := range barriers {
		e.add("barrier %s", nameOf(b.Texture))
	}
	e.barriers = append(e.barriers, barriers...)
}

type recordingPass struct {
	noop.ComputePassEncoder
	enc *recordingEncoder
}

func (p *recordingPass) SetPipeline(pipeline hal.ComputePipeline) {
	p.enc.add("pipeline %s", nameOf(pipeline))
}

func (p *recordingPass) SetBindGroup(index uint32, group hal.BindGroup, _ []uint32) {
	p.enc.add("group %d %s", index, nameOf(group))
}

func (p *recordingPass) Dispatch(x, y, z uint32) {
	p.enc.add("dispatch %d %d %d", x, y, z)
}

func (p *recordingPass) End() { p.enc.add("end") }

// markerLog writes markers into the encoder's command log.
type markerLog struct{}

func (markerLog) BeginMarker(enc hal.CommandEncoder, m Marker) {
	enc.(*recordingEncoder).add("marker+ %s", m)
}

func (markerLog) EndMarker(enc hal.CommandEncoder, m Marker) {
	enc.(*recordingEncoder).add("marker- %s", m)
}

type countingRecorder struct {
	dispatches []Variant
	outputs    []Output
}

func (r *countingRecorder) RecordDispatch(v Variant, _, _ uint32) {
	r.dispatches = append(r.dispatches, v)
}
func (r *countingRecorder) RecordOutput(o Output) { r.outputs = append(r.outputs, o) }

type fakeBlitter struct {
	src    hal.Texture
	extent Extent
	err    error
}

func (b *fakeBlitter) Blit(_ hal.CommandEncoder, src hal.Texture, extent Extent) error {
	b.src = src
	b.extent = extent
	return b.err
}

// newTestRegistry returns an initialized registry with pipelines on a fake
// device.
func newTestRegistry(t testing.TB) (*Registry, *fakeDevice) {
	t.Helper()
	dev := newFakeDevice()
	fc := &fakeCompiler{}
	reg, err := NewRegistry(dev, 0, WithCompiler(fc.compile))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if err := reg.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := reg.CreatePipelines(); err != nil {
		t.Fatalf("CreatePipelines() error = %v", err)
	}
	return reg, dev
}
