// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package shader compiles WGSL kernels for the HAL.
package shader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// ErrMisaligned is returned when a SPIR-V blob is not a whole number of words.
var ErrMisaligned = errors.New("shader: SPIR-V length is not a multiple of 4")

// CompileWGSL compiles WGSL source to SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	return Words(spirv)
}

// Words converts a little-endian SPIR-V byte stream to 32-bit words.
func Words(spirv []byte) ([]uint32, error) {
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMisaligned, len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	return words, nil
}

// CreateModule creates a HAL shader module from SPIR-V words.
func CreateModule(device hal.Device, label string, spirv []uint32) (hal.ShaderModule, error) {
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: spirv,
		},
	})
}
