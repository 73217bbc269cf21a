package fsr

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fsr/internal/cache"
	"github.com/gogpu/fsr/internal/shader"
)

// Compiler turns WGSL source into SPIR-V words.
type Compiler func(source string) ([]uint32, error)

// Binding indices of the texture group.
const (
	BindingSampler      = 0
	BindingSourceColor  = 1
	BindingUpscaleColor = 2
	BindingUpscaleOut   = 3
	BindingSharpenOut   = 4
)

// Bind group indices of the shared pipeline layout.
const (
	GroupConstants = 0
	GroupTextures  = 1
)

// StorageFormat is the format of both intermediate output images.
const StorageFormat = gputypes.TextureFormatRGBA8Unorm

// kernel is one compiled variant.
type kernel struct {
	module   hal.ShaderModule
	pipeline hal.ComputePipeline
}

func (k *kernel) destroy(device hal.Device) {
	if k.pipeline != nil {
		device.DestroyComputePipeline(k.pipeline)
		k.pipeline = nil
	}
	if k.module != nil {
		device.DestroyShaderModule(k.module)
		k.module = nil
	}
}

// kernelSet holds the three variants by name.
type kernelSet struct {
	upscale                 kernel
	sharpenAfterUpscale     kernel
	sharpenAfterPassthrough kernel
}

func (s *kernelSet) get(v Variant) *kernel {
	switch v {
	case VariantUpscale:
		return &s.upscale
	case VariantSharpenAfterUpscale:
		return &s.sharpenAfterUpscale
	case VariantSharpenAfterPassthrough:
		return &s.sharpenAfterPassthrough
	default:
		return nil
	}
}

// Registry owns the shared binding layout and the compiled kernel variants.
//
// Lifecycle: Initialize once, CreatePipelines, DestroyPipelines before any
// further CreatePipelines, Destroy at shutdown. The registry is not safe for
// concurrent mutation; once pipelines exist its objects are read-only and may
// be used by any number of frames in flight.
type Registry struct {
	device    hal.Device
	precision Precision
	source    KernelSource
	compile   Compiler

	constantsLayout hal.BindGroupLayout
	texturesLayout  hal.BindGroupLayout
	pipelineLayout  hal.PipelineLayout

	kernels  kernelSet
	created  bool
	binaries *cache.Cache[uint64, []uint32]
}

// RegistryOption configures a Registry during creation.
type RegistryOption func(*Registry)

// WithCompiler replaces the WGSL compiler. The default compiles with naga.
func WithCompiler(c Compiler) RegistryOption {
	return func(r *Registry) {
		if c != nil {
			r.compile = c
		}
	}
}

// WithKernelSource replaces the shipped kernel sources.
func WithKernelSource(ks KernelSource) RegistryOption {
	return func(r *Registry) {
		if ks != nil {
			r.source = ks
		}
	}
}

// WithPrecision forces a kernel precision instead of deriving it from the
// device features.
func WithPrecision(p Precision) RegistryOption {
	return func(r *Registry) {
		r.precision = p
	}
}

// NewRegistry creates a registry for device. The kernel precision is chosen
// once from features and is fixed for the registry's lifetime.
func NewRegistry(device hal.Device, features gputypes.Features, opts ...RegistryOption) (*Registry, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	r := &Registry{
		device:    device,
		precision: PrecisionFor(features),
		source:    DefaultKernelSource(),
		compile:   shader.CompileWGSL,
		binaries:  cache.New[uint64, []uint32](2 * len(Variants)),
	}
	for _, opt := range opts {
		opt(r)
	}
	Logger().Info("fsr: registry created", "precision", r.precision)
	return r, nil
}

// Precision returns the kernel precision selected at creation.
func (r *Registry) Precision() Precision { return r.precision }

// Initialize builds the two bind group layouts and the pipeline layout
// shared by every variant.
func (r *Registry) Initialize() error {
	if r.pipelineLayout != nil {
		return ErrAlreadyInitialized
	}

	constants, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "fsr_constants_layout",
		Entries: constantsLayoutEntries(),
	})
	if err != nil {
		return fmt.Errorf("%w: constants group: %w", ErrLayoutCreation, err)
	}

	textures, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "fsr_textures_layout",
		Entries: texturesLayoutEntries(),
	})
	if err != nil {
		r.device.DestroyBindGroupLayout(constants)
		return fmt.Errorf("%w: textures group: %w", ErrLayoutCreation, err)
	}

	layout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "fsr_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{constants, textures},
	})
	if err != nil {
		r.device.DestroyBindGroupLayout(textures)
		r.device.DestroyBindGroupLayout(constants)
		return fmt.Errorf("%w: pipeline layout: %w", ErrLayoutCreation, err)
	}

	r.constantsLayout = constants
	r.texturesLayout = textures
	r.pipelineLayout = layout
	Logger().Debug("fsr: binding layout created")
	return nil
}

func constantsLayoutEntries() []gputypes.BindGroupLayoutEntry {
	return []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageCompute,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: ConstantsSize,
			},
		},
	}
}

func texturesLayoutEntries() []gputypes.BindGroupLayoutEntry {
	sampled := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		}
	}
	storage := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			StorageTexture: &gputypes.StorageTextureBindingLayout{
				Access:        gputypes.StorageTextureAccessWriteOnly,
				Format:        StorageFormat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		}
	}
	return []gputypes.BindGroupLayoutEntry{
		{
			Binding:    BindingSampler,
			Visibility: gputypes.ShaderStageCompute,
			Sampler: &gputypes.SamplerBindingLayout{
				Type: gputypes.SamplerBindingTypeFiltering,
			},
		},
		sampled(BindingSourceColor),
		sampled(BindingUpscaleColor),
		storage(BindingUpscaleOut),
		storage(BindingSharpenOut),
	}
}

// CreatePipelines compiles the three kernel variants against the shared
// layout. On any failure everything created by this call is released and
// the registry is left without pipelines.
func (r *Registry) CreatePipelines() error {
	if r.pipelineLayout == nil {
		return ErrNotInitialized
	}
	if r.created {
		return ErrPipelinesExist
	}

	for _, v := range Variants {
		if err := r.createVariant(v); err != nil {
			r.DestroyPipelines()
			return fmt.Errorf("%w: %s: %w", ErrKernelCreation, v.Label(), err)
		}
	}
	r.created = true
	stats := r.binaries.Stats()
	Logger().Info("fsr: pipelines created", "precision", r.precision, "variants", len(Variants),
		"binaries", stats.Len, "compiles", stats.Misses, "reused", stats.Hits)
	return nil
}

func (r *Registry) createVariant(v Variant) error {
	src, err := variantSource(r.source, v, r.precision)
	if err != nil {
		return err
	}
	// Binaries outlive DestroyPipelines, so a rebuild skips compilation.
	spirv, cached, err := r.binaries.GetOrCreate(cache.StringKey(src), func() ([]uint32, error) {
		return r.compile(src)
	})
	if err != nil {
		return err
	}

	k := r.kernels.get(v)
	module, err := shader.CreateModule(r.device, v.Label(), spirv)
	if err != nil {
		return fmt.Errorf("shader module: %w", err)
	}
	k.module = module

	pipeline, err := r.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  v.Label(),
		Layout: r.pipelineLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("compute pipeline: %w", err)
	}
	k.pipeline = pipeline
	Logger().Debug("fsr: kernel created", "variant", v, "label", v.Label(), "cached", cached)
	return nil
}

// DestroyPipelines releases every variant that exists. It is safe to call
// any number of times, including after a partially failed CreatePipelines.
func (r *Registry) DestroyPipelines() {
	for _, v := range Variants {
		r.kernels.get(v).destroy(r.device)
	}
	r.created = false
}

// Destroy releases the pipelines, the shared layout and the compiled
// binaries. It is idempotent.
func (r *Registry) Destroy() {
	r.DestroyPipelines()
	r.binaries.Clear()
	if r.pipelineLayout != nil {
		r.device.DestroyPipelineLayout(r.pipelineLayout)
		r.pipelineLayout = nil
	}
	if r.texturesLayout != nil {
		r.device.DestroyBindGroupLayout(r.texturesLayout)
		r.texturesLayout = nil
	}
	if r.constantsLayout != nil {
		r.device.DestroyBindGroupLayout(r.constantsLayout)
		r.constantsLayout = nil
	}
}

// HasPipelines reports whether CreatePipelines has succeeded since the last
// DestroyPipelines.
func (r *Registry) HasPipelines() bool { return r.created }

// Pipeline returns the compiled pipeline for v.
func (r *Registry) Pipeline(v Variant) (hal.ComputePipeline, bool) {
	if !r.created {
		return nil, false
	}
	k := r.kernels.get(v)
	if k == nil || k.pipeline == nil {
		return nil, false
	}
	return k.pipeline, true
}

// Layout returns the shared pipeline layout, or nil before Initialize.
func (r *Registry) Layout() hal.PipelineLayout { return r.pipelineLayout }

// ConstantsLayout returns the layout of bind group 0.
func (r *Registry) ConstantsLayout() hal.BindGroupLayout { return r.constantsLayout }

// TexturesLayout returns the layout of bind group 1.
func (r *Registry) TexturesLayout() hal.BindGroupLayout { return r.texturesLayout }

// Device returns the device the registry creates objects on.
func (r *Registry) Device() hal.Device { return r.device }
