// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package headless

import (
	"errors"
	"fmt"

	"github.com/gogpu/fsr"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

var (
	// ErrNoBackend is returned when the requested HAL backend is not
	// registered. Backends register themselves from an init function, so
	// the caller must import the backend package.
	ErrNoBackend = errors.New("headless: backend not registered")

	// ErrNoAdapter is returned when the backend exposes no adapter.
	ErrNoAdapter = errors.New("headless: no adapter")

	// ErrClosed is returned when using a closed host or session.
	ErrClosed = errors.New("headless: closed")
)

// Host owns an offscreen HAL device. It implements
// gpucontext.DeviceProvider so it can be handed to fsr.RegistryFromProvider
// like any windowed host.
type Host struct {
	instance hal.Instance
	adapter  hal.Adapter
	device   hal.Device
	queue    hal.Queue
	features gputypes.Features
	info     gputypes.AdapterInfo
}

// Open creates an instance on backend, picks the most capable adapter and
// opens a device on it. Half-precision shaders are requested when the
// adapter supports them.
func Open(backend gputypes.Backend) (*Host, error) {
	b, ok := hal.GetBackend(backend)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNoBackend, backend)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("headless: create instance: %w", err)
	}

	exposed, ok := pickAdapter(instance.EnumerateAdapters(nil))
	if !ok {
		instance.Destroy()
		return nil, ErrNoAdapter
	}

	var features gputypes.Features
	if exposed.Features.Contains(gputypes.FeatureShaderF16) {
		features.Insert(gputypes.FeatureShaderF16)
	}
	open, err := exposed.Adapter.Open(features, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("headless: open %q: %w", exposed.Info.Name, err)
	}

	fsr.Logger().Info("headless: device opened",
		"adapter", exposed.Info.Name,
		"type", exposed.Info.DeviceType,
		"f16", features.Contains(gputypes.FeatureShaderF16))

	return &Host{
		instance: instance,
		adapter:  exposed.Adapter,
		device:   open.Device,
		queue:    open.Queue,
		features: features,
		info:     exposed.Info,
	}, nil
}

// pickAdapter prefers discrete over integrated GPUs, then anything else.
func pickAdapter(adapters []hal.ExposedAdapter) (hal.ExposedAdapter, bool) {
	if len(adapters) == 0 {
		return hal.ExposedAdapter{}, false
	}
	best, bestRank := 0, -1
	for i := range adapters {
		if r := adapterRank(adapters[i].Info.DeviceType); r > bestRank {
			best, bestRank = i, r
		}
	}
	return adapters[best], true
}

func adapterRank(t gputypes.DeviceType) int {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return 3
	case gputypes.DeviceTypeIntegratedGPU:
		return 2
	case gputypes.DeviceTypeVirtualGPU:
		return 1
	default:
		return 0
	}
}

// HalDevice returns the underlying hal.Device.
func (h *Host) HalDevice() any { return h.device }

// HalQueue returns the underlying hal.Queue.
func (h *Host) HalQueue() any { return h.queue }

// Device returns the device as a gpucontext token.
func (h *Host) Device() gpucontext.Device { return h.device }

// Queue returns the queue as a gpucontext token.
func (h *Host) Queue() gpucontext.Queue { return h.queue }

// Adapter returns the adapter as a gpucontext token.
func (h *Host) Adapter() gpucontext.Adapter { return h.adapter }

// SurfaceFormat reports no surface.
func (h *Host) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo returns the adapter name and class.
func (h *Host) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: h.info.Name, Type: adapterType(h.info.DeviceType)}
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

// Features returns the features the device was opened with.
func (h *Host) Features() gputypes.Features { return h.features }

// Close waits for the device to go idle and releases it. Safe to call more
// than once.
func (h *Host) Close() {
	if h.device != nil {
		if err := h.device.WaitIdle(); err != nil {
			fsr.Logger().Warn("headless: wait idle on close", "err", err)
		}
		h.device.Destroy()
		h.device = nil
		h.queue = nil
	}
	if h.instance != nil {
		h.instance.Destroy()
		h.instance = nil
	}
}

var _ gpucontext.DeviceProvider = (*Host)(nil)
