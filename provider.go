package fsr

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// halProvider is implemented by hosts whose public device type wraps a HAL
// device, such as gogpu.App.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// DeviceFromProvider extracts the HAL device and queue shared by a host.
func DeviceFromProvider(p gpucontext.DeviceProvider) (hal.Device, hal.Queue, error) {
	if p == nil {
		return nil, nil, ErrNilDevice
	}
	if hp, ok := p.(halProvider); ok {
		device, dok := hp.HalDevice().(hal.Device)
		queue, qok := hp.HalQueue().(hal.Queue)
		if dok && qok && device != nil && queue != nil {
			return device, queue, nil
		}
	}
	device, ok := p.Device().(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("%w: provider device %T is not a HAL device", ErrNilDevice, p.Device())
	}
	queue, ok := p.Queue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("fsr: provider queue %T is not a HAL queue", p.Queue())
	}
	return device, queue, nil
}

// RegistryFromProvider creates a registry on the device shared by a host.
// features are the features the host's device was opened with.
func RegistryFromProvider(p gpucontext.DeviceProvider, features gputypes.Features, opts ...RegistryOption) (*Registry, hal.Queue, error) {
	device, queue, err := DeviceFromProvider(p)
	if err != nil {
		return nil, nil, err
	}
	info := p.AdapterInfo()
	Logger().Info("fsr: using host device", "adapter", info.Name, "type", info.Type)
	reg, err := NewRegistry(device, features, opts...)
	if err != nil {
		return nil, nil, err
	}
	return reg, queue, nil
}
