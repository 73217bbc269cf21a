package fsr

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrSlotRange is returned for a frame slot outside the ring.
var ErrSlotRange = errors.New("fsr: constants slot out of range")

// constantsSlot is the uniform buffer and bind group of one frame in flight.
type constantsSlot struct {
	buffer hal.Buffer
	group  hal.BindGroup
}

// ConstantsRing holds one constants block per frame in flight so that a
// frame never rewrites a block the GPU may still be reading for an earlier
// frame. The caller picks the slot, usually frameIndex % Len().
type ConstantsRing struct {
	device hal.Device
	slots  []constantsSlot
}

// NewConstantsRing allocates frames uniform blocks laid out for group 0 of
// reg's pipeline layout. reg must be initialized.
func NewConstantsRing(reg *Registry, frames int) (*ConstantsRing, error) {
	if reg.ConstantsLayout() == nil {
		return nil, ErrNotInitialized
	}
	if frames < 1 {
		return nil, fmt.Errorf("fsr: constants ring needs at least one frame, got %d", frames)
	}

	r := &ConstantsRing{device: reg.Device(), slots: make([]constantsSlot, frames)}
	for i := range r.slots {
		if err := r.createSlot(i, reg.ConstantsLayout()); err != nil {
			r.Destroy()
			return nil, err
		}
	}
	return r, nil
}

func (r *ConstantsRing) createSlot(i int, layout hal.BindGroupLayout) error {
	label := fmt.Sprintf("fsr_constants_%d", i)
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  ConstantsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("fsr: create constants buffer %d: %w", i, err)
	}
	r.slots[i].buffer = buf

	group, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Size:   ConstantsSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("fsr: create constants bind group %d: %w", i, err)
	}
	r.slots[i].group = group
	return nil
}

// Len returns the number of slots.
func (r *ConstantsRing) Len() int { return len(r.slots) }

// Update uploads c into slot through queue.
func (r *ConstantsRing) Update(queue hal.Queue, slot int, c *Constants) error {
	if slot < 0 || slot >= len(r.slots) {
		return fmt.Errorf("%w: %d of %d", ErrSlotRange, slot, len(r.slots))
	}
	if err := queue.WriteBuffer(r.slots[slot].buffer, 0, c.Bytes()); err != nil {
		return fmt.Errorf("fsr: upload constants: %w", err)
	}
	return nil
}

// BindGroup returns the group 0 bind group of slot, or nil if out of range.
func (r *ConstantsRing) BindGroup(slot int) hal.BindGroup {
	if slot < 0 || slot >= len(r.slots) {
		return nil
	}
	return r.slots[slot].group
}

// Destroy releases every slot. It is idempotent.
func (r *ConstantsRing) Destroy() {
	for i := range r.slots {
		s := &r.slots[i]
		if s.group != nil {
			r.device.DestroyBindGroup(s.group)
			s.group = nil
		}
		if s.buffer != nil {
			r.device.DestroyBuffer(s.buffer)
			s.buffer = nil
		}
	}
}
