// Package drawable defines the renderable items the queue sorts and draws.
//
// A Drawable is a tagged variant over three categories: legacy render
// operations, vertex-array (buffer-array, per-instance) drawables, and
// particle systems. The queue dispatches on Kind instead of an interface
// hierarchy; the shared capability methods (SortingHash, VertexArray,
// RenderOp, MeshID) answer for every kind.
package drawable

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Kind identifies the drawable category.
type Kind uint8

const (
	// Legacy drawables carry a RenderOp and are drawn one call at a time.
	Legacy Kind = iota
	// Array drawables carry vertex arrays and are batched into indirect draws.
	Array
	// Particle drawables are vertex-array drawables that also bind their
	// particle buffers on every draw.
	Particle
)

var kindNames = [...]string{
	Legacy:   "Legacy",
	Array:    "Array",
	Particle: "Particle",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Pass indexes per-pass data: 0 for the normal pass, 1 for the caster pass.
func Pass(caster bool) int {
	if caster {
		return 1
	}
	return 0
}

// Material is the part of a material datablock the queue reads.
// Arrays are indexed with Pass.
type Material struct {
	// System is the material system type index.
	System uint8

	// Macroblock is the rasterizer/depth state hash per pass.
	Macroblock [2]uint16

	// Transparent marks blended materials per pass.
	Transparent [2]bool

	// TextureHash identifies the bound texture set.
	TextureHash uint16

	// AlphaTest is true when the material discards fragments. Caster passes
	// of alpha-tested legacy geometry need the full vertex layout.
	AlphaTest bool

	// Name is a debug label.
	Name string
}

// VertexArray is a vertex source: vertex and index buffers plus the range to
// draw. Two entries sharing Name share the bound vertex source.
type VertexArray struct {
	// Name identifies the bound vertex source. Zero is reserved for "none".
	Name uint32

	// RenderQueueID is the mesh identity used in sort keys.
	RenderQueueID uint32

	VertexBuffer hal.Buffer
	IndexBuffer  hal.Buffer
	IndexFormat  gputypes.IndexFormat

	BaseVertex int32
	IndexStart uint32
	PrimStart  uint32
	PrimCount  uint32

	Topology gputypes.PrimitiveTopology
}

// Indexed reports whether the vertex array draws with an index buffer.
func (v *VertexArray) Indexed() bool {
	return v.IndexBuffer != nil
}

// RenderOp is a legacy draw operation.
type RenderOp struct {
	// VertexData and IndexData identify the bound legacy buffers. Ops with
	// equal identities share bindings.
	VertexData uint32
	IndexData  uint32

	VertexBuffer hal.Buffer
	IndexBuffer  hal.Buffer
	IndexFormat  gputypes.IndexFormat

	Topology    gputypes.PrimitiveTopology
	VertexStart uint32
	VertexCount uint32
	IndexStart  uint32
	IndexCount  uint32

	// GlobalInstancing draws NumberOfInstances instances of the op.
	GlobalInstancing  bool
	NumberOfInstances uint32

	// MeshIndex is the mesh identity used in sort keys.
	MeshIndex uint32
}

// Indexed reports whether the op draws with an index buffer.
func (op *RenderOp) Indexed() bool {
	return op.IndexBuffer != nil
}

// Equal reports whether two ops bind the same state.
func (op *RenderOp) Equal(o *RenderOp) bool {
	if op == nil || o == nil {
		return op == o
	}
	return op.VertexData == o.VertexData &&
		op.IndexData == o.IndexData &&
		op.Topology == o.Topology &&
		op.GlobalInstancing == o.GlobalInstancing
}

// Instances returns the instance count the op draws.
func (op *RenderOp) Instances() uint32 {
	if op.GlobalInstancing && op.NumberOfInstances > 0 {
		return op.NumberOfInstances
	}
	return 1
}

// ParticleData is the pair of shader buffers a particle system binds.
type ParticleData struct {
	Const hal.BindGroup
	Data  hal.BindGroup

	ConstSize uint32
	DataSize  uint32
}

// Drawable is one renderable item. Arrays indexed by pass use Pass.
type Drawable struct {
	Kind     Kind
	SubGroup uint8

	Material *Material

	// Hash is the material-system property hash per pass.
	Hash [2]uint32

	// VAOs holds one vertex array per mesh LOD per pass. Array and
	// Particle drawables only.
	VAOs [2][]*VertexArray

	// Op is the legacy render op per pass. Legacy drawables only.
	Op [2]*RenderOp

	// Particles holds the particle bindings. Particle drawables only.
	Particles *ParticleData

	// WorldIndex is this drawable's slot in per-instance shader data.
	WorldIndex uint32

	Name string
}

// SortingHash returns the material hash used for the pass.
func (d *Drawable) SortingHash(caster bool) uint32 {
	return d.Hash[Pass(caster)]
}

// VertexArray returns the vertex array drawn for the pass and LOD.
// It panics when the LOD is out of range, which means the drawable sits in a
// bucket of the wrong mode.
func (d *Drawable) VertexArray(caster bool, lod uint8) *VertexArray {
	vaos := d.VAOs[Pass(caster)]
	if int(lod) >= len(vaos) {
		panic("drawable: mesh LOD not set; legacy drawable in a vertex-array bucket?")
	}
	return vaos[lod]
}

// RenderOp returns the legacy op for the pass. Caster passes fall back to
// the normal op when no dedicated caster op exists, or when the material
// alpha-tests and needs the full vertex layout.
func (d *Drawable) RenderOp(caster bool) *RenderOp {
	if caster && d.Op[1] != nil && (d.Material == nil || !d.Material.AlphaTest) {
		return d.Op[1]
	}
	return d.Op[0]
}

// MeshID returns the mesh identity for sort keys.
func (d *Drawable) MeshID(caster bool, lod uint8) uint32 {
	if d.Kind == Legacy {
		if op := d.RenderOp(caster); op != nil {
			return op.MeshIndex
		}
		return 0
	}
	return d.VertexArray(caster, lod).RenderQueueID
}

// Object is the scene object owning a drawable.
type Object struct {
	// Bucket is the render queue the object belongs to.
	Bucket uint8

	// Depth is the cached distance to the camera.
	Depth float32

	// MeshLod selects the vertex array.
	MeshLod uint8

	Name string
}
