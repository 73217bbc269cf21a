package fsr

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Usage states of an intermediate image around a barrier. Both map to the
// general layout on Vulkan, so the barrier orders memory without a layout
// change.
const (
	writeUsage = gputypes.TextureUsageStorageBinding
	readUsage  = gputypes.TextureUsageStorageBinding | gputypes.TextureUsageTextureBinding
)

// publishWrite makes a kernel's writes to img visible to every later reader
// on the same queue: shader write to shader read, first mip and layer.
func publishWrite(enc hal.CommandEncoder, img hal.Texture) {
	enc.TransitionTextures([]hal.TextureBarrier{publishBarrier(img)})
}

func publishBarrier(img hal.Texture) hal.TextureBarrier {
	return hal.TextureBarrier{
		Texture: img,
		Range: hal.TextureRange{
			Aspect:          gputypes.TextureAspectAll,
			BaseMipLevel:    0,
			MipLevelCount:   1,
			BaseArrayLayer:  0,
			ArrayLayerCount: 1,
		},
		Usage: hal.TextureUsageTransition{
			OldUsage: writeUsage,
			NewUsage: readUsage,
		},
	}
}
