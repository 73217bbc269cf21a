package fsr

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

func readBuffer(t *testing.T, dev hal.Device, buf hal.Buffer, size uint64) []byte {
	t.Helper()
	m, err := dev.MapBuffer(buf, 0, size)
	if err != nil {
		t.Fatalf("MapBuffer() error = %v", err)
	}
	defer func() { _ = dev.UnmapBuffer(buf) }()
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(m.Ptr), size))
	return out
}

func TestConstantsRing(t *testing.T) {
	reg, dev := newTestRegistry(t)
	ring, err := NewConstantsRing(reg, 3)
	if err != nil {
		t.Fatalf("NewConstantsRing() error = %v", err)
	}
	if ring.Len() != 3 {
		t.Errorf("Len() = %d", ring.Len())
	}

	queue := &noop.Queue{}
	a := BuildConstants(res(1280, 720, 1920, 1080), 0.2)
	b := BuildConstants(res(960, 540, 1920, 1080), 1)
	if err := ring.Update(queue, 0, &a); err != nil {
		t.Fatalf("Update(0) error = %v", err)
	}
	if err := ring.Update(queue, 1, &b); err != nil {
		t.Fatalf("Update(1) error = %v", err)
	}

	// Writing slot 1 leaves the block of slot 0 intact.
	if got := readBuffer(t, dev, ring.slots[0].buffer, ConstantsSize); string(got) != string(a.Bytes()) {
		t.Error("slot 0 contents changed")
	}
	if got := readBuffer(t, dev, ring.slots[1].buffer, ConstantsSize); string(got) != string(b.Bytes()) {
		t.Error("slot 1 contents wrong")
	}

	for i := 0; i < 3; i++ {
		if want := "bg:fsr_constants_" + string(rune('0'+i)); nameOf(ring.BindGroup(i)) != want {
			t.Errorf("BindGroup(%d) = %s, want %s", i, nameOf(ring.BindGroup(i)), want)
		}
	}
	if ring.BindGroup(3) != nil || ring.BindGroup(-1) != nil {
		t.Error("out of range BindGroup not nil")
	}
	if err := ring.Update(queue, 3, &a); !errors.Is(err, ErrSlotRange) {
		t.Errorf("Update(3) error = %v", err)
	}

	ring.Destroy()
	ring.Destroy()
	if dev.badFrees != 0 {
		t.Errorf("bad frees = %d", dev.badFrees)
	}
}

func TestConstantsRingErrors(t *testing.T) {
	reg, _ := NewRegistry(newFakeDevice(), 0)
	if _, err := NewConstantsRing(reg, 2); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("uninitialized: %v", err)
	}

	reg, dev := newTestRegistry(t)
	if _, err := NewConstantsRing(reg, 0); err == nil {
		t.Error("zero frames accepted")
	}

	before := dev.liveCount()
	dev.failLabel = "bg:fsr_constants_1"
	if _, err := NewConstantsRing(reg, 2); !errors.Is(err, errInjected) {
		t.Errorf("bind group failure: %v", err)
	}
	if dev.liveCount() != before {
		t.Errorf("leaked %d objects", dev.liveCount()-before)
	}
}
