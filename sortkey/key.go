// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package sortkey packs the render-queue ordering criteria into a single
// 64-bit integer.
//
// Sorting keys ascending is the whole sorting algorithm: the bit layout puts
// the most significant criterion in the highest bits.
//
// Opaque layout (front to back):
//
//	| subgroup:3 | transp:1 | macroblock:10 | shader:10 | mesh:14 | texture:11 | depth:15 |
//
// Transparent layout (back to front, texture not part of the key):
//
//	| subgroup:3 | transp:1 | ^depth:15 | macroblock:10 | shader:10 | mesh:14 | unused:11 |
//
// Values wider than their field are masked. Higher-order bits are dropped
// without error; callers must keep ids inside the field widths.
package sortkey

import "math"

// Field widths in bits.
const (
	SubGroupBits     = 3
	TransparencyBits = 1
	MacroblockBits   = 10
	ShaderBits       = 10
	MeshBits         = 14
	TextureBits      = 11
	DepthBits        = 15
)

// Opaque field shifts.
const (
	SubGroupShift     = 64 - SubGroupBits                   // 61
	TransparencyShift = SubGroupShift - TransparencyBits    // 60
	MacroblockShift   = TransparencyShift - MacroblockBits  // 50
	ShaderShift       = MacroblockShift - ShaderBits        // 40
	MeshShift         = ShaderShift - MeshBits              // 26
	TextureShift      = MeshShift - TextureBits             // 15
	DepthShift        = TextureShift - DepthBits            // 0
)

// Transparent field shifts.
const (
	DepthShiftTransp      = TransparencyShift - DepthBits     // 45
	MacroblockShiftTransp = DepthShiftTransp - MacroblockBits // 35
	ShaderShiftTransp     = MacroblockShiftTransp - ShaderBits // 25
	MeshShiftTransp       = ShaderShiftTransp - MeshBits       // 11
)

// MaxSubGroup is the largest sub-group id that fits the key.
const MaxSubGroup = 1<<SubGroupBits - 1

// Mask returns a mask covering the low bits bits.
func Mask(bits uint) uint64 {
	return 1<<bits - 1
}

// Key is a packed sort key. Compare keys as plain integers.
type Key uint64

// Fields are the inputs to Encode.
type Fields struct {
	SubGroup    uint8
	Transparent bool
	Macroblock  uint16
	Shader      uint32
	Mesh        uint32
	Texture     uint16
	// Depth is the camera distance. Any finite float is valid, negative
	// distances sort before positive ones.
	Depth float32
}

// QuantizeDepth maps a float to an unsigned value with the same ordering and
// keeps the top DepthBits bits of it.
//
// The sign bit decides the transform: negative floats have every bit flipped,
// positive floats only the sign bit. Integer order then matches float order.
func QuantizeDepth(depth float32) uint32 {
	bits := math.Float32bits(depth)
	mask := uint32(-int32(bits>>31)) | 0x80000000
	bits ^= mask
	return bits >> (32 - DepthBits)
}

func field(v uint64, bits, shift uint) uint64 {
	return (v & Mask(bits)) << shift
}

// Encode packs f into a Key.
func Encode(f Fields) Key {
	depth := QuantizeDepth(f.Depth)

	var h uint64
	if !f.Transparent {
		h = field(uint64(f.SubGroup), SubGroupBits, SubGroupShift) |
			field(0, TransparencyBits, TransparencyShift) |
			field(uint64(f.Macroblock), MacroblockBits, MacroblockShift) |
			field(uint64(f.Shader), ShaderBits, ShaderShift) |
			field(uint64(f.Mesh), MeshBits, MeshShift) |
			field(uint64(f.Texture), TextureBits, TextureShift) |
			field(uint64(depth), DepthBits, DepthShift)
		return Key(h)
	}

	// Farther objects have larger quantized depth; inverting makes them
	// sort first.
	depth ^= 0xffffffff
	h = field(uint64(f.SubGroup), SubGroupBits, SubGroupShift) |
		field(1, TransparencyBits, TransparencyShift) |
		field(uint64(depth), DepthBits, DepthShiftTransp) |
		field(uint64(f.Macroblock), MacroblockBits, MacroblockShiftTransp) |
		field(uint64(f.Shader), ShaderBits, ShaderShiftTransp) |
		field(uint64(f.Mesh), MeshBits, MeshShiftTransp)
	return Key(h)
}

func (k Key) get(bits, shift uint) uint64 {
	return uint64(k) >> shift & Mask(bits)
}

// SubGroup returns the sub-group field.
func (k Key) SubGroup() uint8 { return uint8(k.get(SubGroupBits, SubGroupShift)) }

// Transparent reports whether the key uses the transparent layout.
func (k Key) Transparent() bool { return k.get(TransparencyBits, TransparencyShift) != 0 }

// Macroblock returns the macroblock field.
func (k Key) Macroblock() uint16 {
	if k.Transparent() {
		return uint16(k.get(MacroblockBits, MacroblockShiftTransp))
	}
	return uint16(k.get(MacroblockBits, MacroblockShift))
}

// Shader returns the shader field.
func (k Key) Shader() uint32 {
	if k.Transparent() {
		return uint32(k.get(ShaderBits, ShaderShiftTransp))
	}
	return uint32(k.get(ShaderBits, ShaderShift))
}

// Mesh returns the mesh field.
func (k Key) Mesh() uint32 {
	if k.Transparent() {
		return uint32(k.get(MeshBits, MeshShiftTransp))
	}
	return uint32(k.get(MeshBits, MeshShift))
}

// Texture returns the texture field. Transparent keys have none and
// return 0.
func (k Key) Texture() uint16 {
	if k.Transparent() {
		return 0
	}
	return uint16(k.get(TextureBits, TextureShift))
}

// Depth returns the raw depth field. For transparent keys this is the
// inverted quantized depth.
func (k Key) Depth() uint32 {
	if k.Transparent() {
		return uint32(k.get(DepthBits, DepthShiftTransp))
	}
	return uint32(k.get(DepthBits, DepthShift))
}
