// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pso

import (
	"encoding/binary"
	"hash"
	"hash/fnv"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// State describes a render pipeline compiled for one shader variant.
//
// It captures the fields that affect rendering behavior so that two entries
// compiled to identical states can share one native pipeline.
type State struct {
	// Label is an optional debug name.
	Label string

	// SPIRV is the compiled shader module holding both entry points.
	SPIRV []uint32

	// VertexEntryPoint defaults to "vs_main" if empty.
	VertexEntryPoint string

	// FragmentEntryPoint defaults to "fs_main" if empty. Depth-only
	// caster variants may leave FragmentEntryPoint empty and set
	// DepthOnly.
	FragmentEntryPoint string

	// DepthOnly omits the fragment stage.
	DepthOnly bool

	VertexLayouts []gputypes.VertexBufferLayout

	Topology  gputypes.PrimitiveTopology
	FrontFace gputypes.FrontFace
	CullMode  gputypes.CullMode

	ColorFormat gputypes.TextureFormat
	DepthFormat gputypes.TextureFormat

	DepthWrite   bool
	DepthCompare gputypes.CompareFunction

	// Blend is nil for opaque output.
	Blend *gputypes.BlendState

	SampleCount uint32

	// Native is the backend pipeline, nil until a factory built it.
	Native hal.RenderPipeline

	hash uint64
}

// VertexEntry returns the vertex entry point name.
func (s *State) VertexEntry() string {
	if s.VertexEntryPoint == "" {
		return "vs_main"
	}
	return s.VertexEntryPoint
}

// FragmentEntry returns the fragment entry point name.
func (s *State) FragmentEntry() string {
	if s.FragmentEntryPoint == "" {
		return "fs_main"
	}
	return s.FragmentEntryPoint
}

// Hash returns the FNV-1a hash of every field that affects rendering.
// The result is memoized; do not mutate a State after hashing it.
func (s *State) Hash() uint64 {
	if s.hash == 0 {
		s.hash = HashState(s)
	}
	return s.hash
}

// HashState computes an FNV-1a hash for s.
func HashState(s *State) uint64 {
	h := fnv.New64a()

	hashWriteUint32(h, uint32(len(s.SPIRV)))
	var buf [4]byte
	for _, w := range s.SPIRV {
		binary.LittleEndian.PutUint32(buf[:], w)
		_, _ = h.Write(buf[:])
	}
	hashWriteString(h, s.VertexEntry())
	hashWriteString(h, s.FragmentEntry())
	hashWriteBool(h, s.DepthOnly)

	//nolint:gosec // G115: vertex buffer count is bounded by GPU limits (< 16)
	hashWriteUint32(h, uint32(len(s.VertexLayouts)))
	for i := range s.VertexLayouts {
		layout := &s.VertexLayouts[i]
		hashWriteUint64(h, layout.ArrayStride)
		hashWriteUint32(h, uint32(layout.StepMode))
		//nolint:gosec // G115: attribute count is bounded by GPU limits (< 32)
		hashWriteUint32(h, uint32(len(layout.Attributes)))
		for j := range layout.Attributes {
			attr := &layout.Attributes[j]
			hashWriteUint32(h, attr.ShaderLocation)
			hashWriteUint32(h, uint32(attr.Format))
			hashWriteUint64(h, attr.Offset)
		}
	}

	hashWriteUint32(h, uint32(s.Topology))
	hashWriteUint32(h, uint32(s.FrontFace))
	hashWriteUint32(h, uint32(s.CullMode))

	hashWriteUint32(h, uint32(s.ColorFormat))
	hashWriteUint32(h, uint32(s.DepthFormat))

	hashWriteBool(h, s.DepthWrite)
	hashWriteUint32(h, uint32(s.DepthCompare))

	if s.Blend != nil {
		hashWriteBool(h, true)
		hashWriteUint32(h, uint32(s.Blend.Color.SrcFactor))
		hashWriteUint32(h, uint32(s.Blend.Color.DstFactor))
		hashWriteUint32(h, uint32(s.Blend.Color.Operation))
		hashWriteUint32(h, uint32(s.Blend.Alpha.SrcFactor))
		hashWriteUint32(h, uint32(s.Blend.Alpha.DstFactor))
		hashWriteUint32(h, uint32(s.Blend.Alpha.Operation))
	} else {
		hashWriteBool(h, false)
	}

	hashWriteUint32(h, s.SampleCount)

	sum := h.Sum64()
	if sum == 0 {
		sum = 1
	}
	return sum
}

func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

func hashWriteUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

func hashWriteBool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}

//nolint:gosec // G115: entry point names are short
func hashWriteString(h hash.Hash64, s string) {
	hashWriteUint32(h, uint32(len(s)))
	_, _ = h.Write([]byte(s))
}
