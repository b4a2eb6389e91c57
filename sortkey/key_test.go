package sortkey

import (
	"math/rand"
	"slices"
	"testing"
)

func TestQuantizeDepth(t *testing.T) {
	tests := []struct {
		depth float32
		want  uint32
	}{
		{0, 0x4000},
		{1, 0x5FC0},
		{3, 0x6020},
		{5, 0x6050},
		{-1, 0x203F},
	}
	for _, tt := range tests {
		if got := QuantizeDepth(tt.depth); got != tt.want {
			t.Errorf("QuantizeDepth(%v) = %#x, want %#x", tt.depth, got, tt.want)
		}
	}
}

func TestQuantizeDepthMonotonic(t *testing.T) {
	depths := []float32{-1e6, -100, -2.5, -1, -0.001, 0, 0.001, 1, 2.5, 100, 1e6}
	for i := 1; i < len(depths); i++ {
		a, b := QuantizeDepth(depths[i-1]), QuantizeDepth(depths[i])
		if a > b {
			t.Errorf("QuantizeDepth(%v) = %#x > QuantizeDepth(%v) = %#x", depths[i-1], a, depths[i], b)
		}
	}
}

func TestEncodeOpaqueFieldPriority(t *testing.T) {
	base := Fields{SubGroup: 1, Macroblock: 5, Shader: 5, Mesh: 5, Texture: 5, Depth: 5}

	// Each case bumps one field in "hi" and lowers every lower-priority
	// field, so hi must still sort after lo.
	tests := []struct {
		name string
		lo   Fields
		hi   Fields
	}{
		{
			name: "subgroup",
			lo:   base,
			hi:   Fields{SubGroup: 2, Depth: 1},
		},
		{
			name: "transparency",
			lo:   base,
			hi:   Fields{SubGroup: 1, Transparent: true},
		},
		{
			name: "macroblock",
			lo:   base,
			hi:   Fields{SubGroup: 1, Macroblock: 6, Depth: 1},
		},
		{
			name: "shader",
			lo:   base,
			hi:   Fields{SubGroup: 1, Macroblock: 5, Shader: 6, Depth: 1},
		},
		{
			name: "mesh",
			lo:   base,
			hi:   Fields{SubGroup: 1, Macroblock: 5, Shader: 5, Mesh: 6, Depth: 1},
		},
		{
			name: "texture",
			lo:   base,
			hi:   Fields{SubGroup: 1, Macroblock: 5, Shader: 5, Mesh: 5, Texture: 6, Depth: 1},
		},
		{
			name: "depth front to back",
			lo:   base,
			hi:   Fields{SubGroup: 1, Macroblock: 5, Shader: 5, Mesh: 5, Texture: 5, Depth: 50},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := Encode(tt.lo), Encode(tt.hi)
			if lo >= hi {
				t.Errorf("Encode(lo) = %#x, Encode(hi) = %#x, want lo < hi", lo, hi)
			}
		})
	}
}

func TestEncodeTransparentBackToFront(t *testing.T) {
	keys := make([]Key, 0, 3)
	for _, d := range []float32{1, 3, 5} {
		keys = append(keys, Encode(Fields{Transparent: true, Macroblock: 3, Shader: 3, Mesh: 3, Depth: d}))
	}
	slices.Sort(keys)

	// Farthest first: 5, 3, 1.
	want := []uint32{0x6050, 0x6020, 0x5FC0}
	for i, k := range keys {
		got := (k.Depth() ^ uint32(Mask(DepthBits))) & uint32(Mask(DepthBits))
		if got != want[i] {
			t.Errorf("keys[%d] depth = %#x, want %#x", i, got, want[i])
		}
	}
}

func TestEncodeTransparentDepthBeforeState(t *testing.T) {
	far := Encode(Fields{Transparent: true, Macroblock: 900, Shader: 900, Mesh: 900, Depth: 10})
	near := Encode(Fields{Transparent: true, Macroblock: 1, Shader: 1, Mesh: 1, Depth: 1})
	if far >= near {
		t.Errorf("far key %#x should sort before near key %#x", far, near)
	}
}

func TestEncodeTransparentIgnoresTexture(t *testing.T) {
	a := Encode(Fields{Transparent: true, Texture: 1, Depth: 2})
	b := Encode(Fields{Transparent: true, Texture: 700, Depth: 2})
	if a != b {
		t.Errorf("texture changed transparent key: %#x != %#x", a, b)
	}
}

func TestEncodeMasksWideValues(t *testing.T) {
	k := Encode(Fields{SubGroup: 0xff, Macroblock: 0xffff, Shader: 0xffffffff, Mesh: 0xffffffff, Texture: 0xffff})
	if got := k.SubGroup(); got != MaxSubGroup {
		t.Errorf("SubGroup() = %d, want %d", got, MaxSubGroup)
	}
	if got := k.Macroblock(); uint64(got) != Mask(MacroblockBits) {
		t.Errorf("Macroblock() = %#x, want %#x", got, Mask(MacroblockBits))
	}
	if got := k.Shader(); uint64(got) != Mask(ShaderBits) {
		t.Errorf("Shader() = %#x, want %#x", got, Mask(ShaderBits))
	}
	if got := k.Mesh(); uint64(got) != Mask(MeshBits) {
		t.Errorf("Mesh() = %#x, want %#x", got, Mask(MeshBits))
	}
	if got := k.Texture(); uint64(got) != Mask(TextureBits) {
		t.Errorf("Texture() = %#x, want %#x", got, Mask(TextureBits))
	}
	if k.Transparent() {
		t.Error("masked opaque key reports transparent")
	}
}

func TestEncodeQuantizationTies(t *testing.T) {
	// Two depths that differ below the quantization step produce the
	// same key. The tie is kept.
	a := Encode(Fields{Depth: 100.0})
	b := Encode(Fields{Depth: 100.001})
	if a != b {
		t.Errorf("expected quantization tie, got %#x and %#x", a, b)
	}
}

func TestKeyAccessorsRoundTrip(t *testing.T) {
	f := Fields{SubGroup: 3, Macroblock: 17, Shader: 99, Mesh: 1234, Texture: 321, Depth: 2}
	k := Encode(f)
	if k.SubGroup() != 3 || k.Macroblock() != 17 || k.Shader() != 99 || k.Mesh() != 1234 || k.Texture() != 321 {
		t.Errorf("accessors = (%d, %d, %d, %d, %d)", k.SubGroup(), k.Macroblock(), k.Shader(), k.Mesh(), k.Texture())
	}
	if k.Depth() != QuantizeDepth(2) {
		t.Errorf("Depth() = %#x, want %#x", k.Depth(), QuantizeDepth(2))
	}

	f.Transparent = true
	k = Encode(f)
	if !k.Transparent() || k.Macroblock() != 17 || k.Shader() != 99 || k.Mesh() != 1234 || k.Texture() != 0 {
		t.Errorf("transparent accessors = (%v, %d, %d, %d, %d)", k.Transparent(), k.Macroblock(), k.Shader(), k.Mesh(), k.Texture())
	}
}

func BenchmarkEncode(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	fields := make([]Fields, 1024)
	for i := range fields {
		fields[i] = Fields{
			SubGroup:    uint8(r.Intn(8)),
			Transparent: r.Intn(4) == 0,
			Macroblock:  uint16(r.Intn(1024)),
			Shader:      uint32(r.Intn(1024)),
			Mesh:        uint32(r.Intn(1 << 14)),
			Depth:       r.Float32() * 1000,
		}
	}
	b.ReportAllocs()
	i := 0
	for b.Loop() {
		_ = Encode(fields[i&1023])
		i++
	}
}
