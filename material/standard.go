// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package material

import (
	"context"
	_ "embed"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/rq/command"
	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/indirect"
	"github.com/gogpu/rq/pso"
	"github.com/gogpu/wgpu/hal"
	lru "github.com/hashicorp/golang-lru/v2"
)

//go:embed shaders/standard.wgsl
var standardTemplate string

// Bind group slots used by the standard shader.
const (
	SlotPass          = 0
	SlotTexture       = 1
	SlotParticleConst = 2
	SlotParticleData  = 3
)

// DefaultShaderCacheSize bounds the number of compiled shader variants.
const DefaultShaderCacheSize = 64

// variant selects the shader specialization.
type variant uint8

const (
	variantCaster variant = 1 << iota
	variantAlphaTest
	variantParticle
	variantTextured
)

func (v variant) has(f variant) bool { return v&f != 0 }

func (v variant) String() string {
	if v == 0 {
		return "base"
	}
	var parts []string
	for _, f := range []struct {
		bit  variant
		name string
	}{
		{variantCaster, "caster"},
		{variantAlphaTest, "alphatest"},
		{variantParticle, "particle"},
		{variantTextured, "textured"},
	} {
		if v.has(f.bit) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "+")
}

// shaderSource returns the WGSL source of a variant.
func shaderSource(v variant) string {
	r := []string{
		"//#TEXTURE_BINDINGS", "",
		"//#TEXTURE_FRAGMENT", "",
		"//#PARTICLE_BINDINGS", "",
		"//#PARTICLE_VERTEX", "",
		"//#ALPHA_TEST", "",
	}
	if v.has(variantTextured) {
		r[1] = "@group(1) @binding(0) var base_texture: texture_2d<f32>;\n" +
			"@group(1) @binding(1) var base_sampler: sampler;"
		r[3] = "c = c * textureSample(base_texture, base_sampler, in.uv);"
	}
	if v.has(variantParticle) {
		r[5] = "struct ParticleConst {\n    size: vec4<f32>,\n}\n" +
			"@group(2) @binding(0) var<uniform> particle_const: ParticleConst;\n" +
			"@group(3) @binding(0) var<storage, read> particle_data: array<vec4<f32>>;"
		r[7] = "pos = pos + vec4<f32>(particle_data[in.instance_id].xyz * particle_const.size.x, 0.0);"
	}
	if v.has(variantAlphaTest) {
		r[9] = "if c.a < 0.5 {\n        discard;\n    }"
	}
	return strings.NewReplacer(r...).Replace(standardTemplate)
}

// StandardOptions configures a Standard system.
type StandardOptions struct {
	// Pipelines builds native pipelines for compiled states. When nil the
	// system produces states only.
	Pipelines *pso.Cache

	// ShaderCacheSize bounds the SPIR-V cache. Zero uses
	// DefaultShaderCacheSize.
	ShaderCacheSize int

	// InstanceBuffer receives the per-instance world indices in PreExecute
	// through Uploader. Both may be nil.
	InstanceBuffer hal.Buffer
	Uploader       indirect.Uploader

	// Compiler turns WGSL into SPIR-V. Nil uses naga.
	Compiler func(wgsl string) ([]uint32, error)
}

// Standard is the reference material system.
//
// It specializes one WGSL template per drawable (caster, alpha test,
// particle, textured), compiles it with naga, and keeps the SPIR-V in an
// LRU cache. Entries live in a map guarded by mu; compile workers write
// entry State and Flags under the same lock.
//
// Standard is safe for Compile calls from multiple goroutines concurrent
// with Resolve.
type Standard struct {
	typ     Type
	opts    StandardOptions
	compile func(string) ([]uint32, error)
	shaders *lru.Cache[variant, []uint32]

	mu       sync.Mutex
	entries  map[uint32]*pso.Entry
	inflight map[uint32]struct{}

	textures  map[uint16]hal.BindGroup
	instances []uint32

	compiled atomic.Uint64
}

// NewStandard creates a standard system registered as typ.
func NewStandard(typ Type, opts StandardOptions) (*Standard, error) {
	if typ >= NumTypes {
		return nil, fmt.Errorf("new standard %d: %w", typ, ErrUnknownSystem)
	}
	size := opts.ShaderCacheSize
	if size <= 0 {
		size = DefaultShaderCacheSize
	}
	shaders, err := lru.New[variant, []uint32](size)
	if err != nil {
		return nil, err
	}
	s := &Standard{
		typ:      typ,
		opts:     opts,
		compile:  opts.Compiler,
		shaders:  shaders,
		entries:  make(map[uint32]*pso.Entry),
		inflight: make(map[uint32]struct{}),
		textures: make(map[uint16]hal.BindGroup),
	}
	if s.compile == nil {
		s.compile = compileWGSL
	}
	return s, nil
}

// compileWGSL compiles WGSL to little-endian SPIR-V words.
func compileWGSL(src string) ([]uint32, error) {
	b, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words, nil
}

// Type implements System.
func (s *Standard) Type() Type { return s.typ }

// SetTextureGroup registers the bind group drawn for a texture hash.
func (s *Standard) SetTextureGroup(hash uint16, g hal.BindGroup) {
	s.textures[hash] = g
}

// PreparePass implements System.
func (s *Standard) PreparePass(info PassInfo, caster, dualParaboloid bool) (*PassCache, error) {
	pc := &PassCache{
		System:         s.typ,
		Hash:           HashPass(s.typ, info, caster, dualParaboloid),
		Caster:         caster,
		DualParaboloid: dualParaboloid,
		Info:           info,
	}

	// No compile queue runs between passes; anything still marked in
	// flight was dropped and may be requested again.
	s.mu.Lock()
	clear(s.inflight)
	s.mu.Unlock()

	slogger().Debug("material: pass prepared",
		"system", s.typ, "pass", info.Name, "caster", caster, "hash", pc.Hash)
	return pc, nil
}

// reserve returns the entry for hash, creating a placeholder if needed.
// request reports whether the caller must schedule a compile.
func (s *Standard) reserve(hash uint32) (e *pso.Entry, request bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[hash]
	if !ok {
		e = pso.Placeholder(hash, uint8(s.typ))
		s.entries[hash] = e
	}
	if e.Flags == pso.None {
		return e, false
	}
	if _, busy := s.inflight[hash]; busy {
		return e, false
	}
	s.inflight[hash] = struct{}{}
	return e, true
}

// Resolve implements System.
func (s *Standard) Resolve(last *pso.Entry, pass *PassCache, d *drawable.Drawable, obj *drawable.Object,
	caster bool, sched Scheduler) (*pso.Entry, error) {
	dh := d.SortingHash(caster)
	final := FinalHash(pass.Hash, dh)
	if last != nil && last.Hash == final {
		return last, nil
	}

	e, request := s.reserve(final)
	if !request {
		return e, nil
	}
	req := Request{
		System:       s,
		Pass:         pass,
		Entry:        e,
		Drawable:     d,
		Object:       obj,
		DrawableHash: dh,
		FinalHash:    final,
		Caster:       caster,
	}
	if sched != nil {
		sched.Enqueue(req)
		return e, nil
	}
	if err := s.Compile(context.Background(), req); err != nil {
		return nil, err
	}
	return e, nil
}

// WarmUp implements System.
func (s *Standard) WarmUp(pass *PassCache, d *drawable.Drawable, obj *drawable.Object, caster bool) (Request, bool) {
	dh := d.SortingHash(caster)
	final := FinalHash(pass.Hash, dh)
	e, request := s.reserve(final)
	if !request {
		return Request{}, false
	}
	return Request{
		System:       s,
		Pass:         pass,
		Entry:        e,
		Drawable:     d,
		Object:       obj,
		DrawableHash: dh,
		FinalHash:    final,
		Caster:       caster,
	}, true
}

// Compile implements System.
func (s *Standard) Compile(ctx context.Context, req Request) error {
	e := req.Entry
	if ctx.Err() != nil {
		s.Postpone(e)
		return nil
	}

	s.mu.Lock()
	ready := e.Flags == pso.None
	s.mu.Unlock()
	if ready {
		return nil
	}

	v := variantOf(req.Drawable, req.Caster)
	spirv, err := s.shader(v)
	if err != nil {
		s.Postpone(e)
		return fmt.Errorf("material: %s variant %s: %w", s.typ, v, err)
	}
	if ctx.Err() != nil {
		s.Postpone(e)
		return nil
	}

	st := s.buildState(v, req, spirv)
	if s.opts.Pipelines != nil {
		if _, err := s.opts.Pipelines.GetOrCreate(st); err != nil {
			s.Postpone(e)
			return fmt.Errorf("material: %s pipeline %s: %w", s.typ, st.Label, err)
		}
	}

	s.mu.Lock()
	e.State = st
	e.Flags = pso.None
	delete(s.inflight, e.Hash)
	s.mu.Unlock()
	s.compiled.Add(1)
	return nil
}

// Postpone implements Postponer. It leaves e flagged for compilation and
// releases its in-flight mark.
func (s *Standard) Postpone(e *pso.Entry) {
	s.mu.Lock()
	e.Flags = pso.CompilationRequired
	delete(s.inflight, e.Hash)
	s.mu.Unlock()
}

// shader returns the SPIR-V of a variant, compiling it on a miss.
func (s *Standard) shader(v variant) ([]uint32, error) {
	if words, ok := s.shaders.Get(v); ok {
		return words, nil
	}
	words, err := s.compile(shaderSource(v))
	if err != nil {
		return nil, err
	}
	s.shaders.Add(v, words)
	slogger().Debug("material: shader compiled", "system", s.typ, "variant", v, "words", len(words))
	return words, nil
}

func variantOf(d *drawable.Drawable, caster bool) variant {
	var v variant
	if caster {
		v |= variantCaster
	}
	if d.Kind == drawable.Particle {
		v |= variantParticle
	}
	if m := d.Material; m != nil {
		if m.AlphaTest {
			v |= variantAlphaTest
		}
		if m.TextureHash != 0 && (!caster || m.AlphaTest) {
			v |= variantTextured
		}
	}
	return v
}

var standardLayout = []gputypes.VertexBufferLayout{{
	ArrayStride: 20,
	StepMode:    gputypes.VertexStepModeVertex,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
	},
}}

func (s *Standard) buildState(v variant, req Request, spirv []uint32) *pso.State {
	pass := drawable.Pass(req.Caster)
	transparent := false
	if m := req.Drawable.Material; m != nil {
		transparent = m.Transparent[pass]
	}

	st := &pso.State{
		Label:         fmt.Sprintf("%s/%s/%08x", s.typ, v, req.FinalHash),
		SPIRV:         spirv,
		VertexLayouts: standardLayout,
		Topology:      topologyOf(req.Drawable, req.Object, req.Caster),
		FrontFace:     gputypes.FrontFaceCCW,
		CullMode:      gputypes.CullModeBack,
		ColorFormat:   req.Pass.Info.ColorFormat,
		DepthFormat:   req.Pass.Info.DepthFormat,
		DepthWrite:    !transparent,
		DepthCompare:  gputypes.CompareFunctionLessEqual,
		SampleCount:   max(req.Pass.Info.SampleCount, 1),
	}
	if req.Caster {
		st.DepthOnly = !v.has(variantAlphaTest)
		st.CullMode = gputypes.CullModeNone
	}
	if transparent {
		b := gputypes.BlendStatePremultiplied()
		st.Blend = &b
	}
	return st
}

func topologyOf(d *drawable.Drawable, obj *drawable.Object, caster bool) gputypes.PrimitiveTopology {
	if d.Kind == drawable.Legacy {
		if op := d.RenderOp(caster); op != nil {
			return op.Topology
		}
		return gputypes.PrimitiveTopologyTriangleList
	}
	var lod uint8
	if obj != nil {
		lod = obj.MeshLod
	}
	return d.VertexArray(caster, lod).Topology
}

// FillBuffers implements System. Every draw gets the next instance slot,
// which records the drawable's world index.
func (s *Standard) FillBuffers(_ *pso.Entry, d *drawable.Drawable, _ *drawable.Object, caster bool,
	lastTextureHash uint32, sink command.Sink) (baseInstance, textureHash uint32) {
	baseInstance = uint32(len(s.instances)) //nolint:gosec // instance count fits in uint32
	s.instances = append(s.instances, d.WorldIndex)

	textureHash = lastTextureHash
	if caster || d.Material == nil || d.Material.TextureHash == 0 {
		return baseInstance, textureHash
	}
	th := uint32(d.Material.TextureHash)
	if th != lastTextureHash {
		if g, ok := s.textures[d.Material.TextureHash]; ok {
			sink.Add(&command.BindShaderBuffer{
				Stage: gputypes.ShaderStageFragment,
				Slot:  SlotTexture,
				Group: g,
			})
			textureHash = th
		}
	}
	return baseInstance, textureHash
}

// PreExecute implements System. It uploads the instance world indices.
func (s *Standard) PreExecute() error {
	if s.opts.InstanceBuffer == nil || s.opts.Uploader == nil || len(s.instances) == 0 {
		return nil
	}
	data := make([]byte, 4*len(s.instances))
	for i, w := range s.instances {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	if err := s.opts.Uploader.WriteBuffer(s.opts.InstanceBuffer, 0, data); err != nil {
		return fmt.Errorf("material: upload instances: %w", err)
	}
	return nil
}

// PostExecute implements System.
func (s *Standard) PostExecute() {
	s.instances = s.instances[:0]
}

// ParticleSlots implements System.
func (s *Standard) ParticleSlots() (constSlot, dataSlot uint32) {
	return SlotParticleConst, SlotParticleData
}

// Instances returns the world indices written since the last PostExecute.
func (s *Standard) Instances() []uint32 { return s.instances }

// Compiled returns the number of entries compiled so far.
func (s *Standard) Compiled() uint64 { return s.compiled.Load() }

// Entries returns the number of reserved entries.
func (s *Standard) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ShaderVariants returns the number of cached shader variants.
func (s *Standard) ShaderVariants() int { return s.shaders.Len() }

// Reset drops every entry and cached shader.
func (s *Standard) Reset() {
	s.mu.Lock()
	clear(s.entries)
	clear(s.inflight)
	s.mu.Unlock()
	s.shaders.Purge()
}
