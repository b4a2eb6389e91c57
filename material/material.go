// Package material defines the contract between the render queue and the
// material systems that turn drawables into pipeline states.
//
// A System prepares a pass once, then resolves a pso.Entry per drawable.
// Resolution either returns a cached entry, compiles inline, or reserves a
// placeholder and hands a Request to a Scheduler (the parallel compile
// queue). The queue later calls System.Compile on a worker goroutine.
package material

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rq/command"
	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/pso"
)

// Type indexes a material system.
type Type uint8

const (
	LowLevel Type = iota
	PBS
	Unlit
	Particle

	// NumTypes is the number of system slots.
	NumTypes
)

var typeNames = [...]string{
	LowLevel: "LowLevel",
	PBS:      "PBS",
	Unlit:    "Unlit",
	Particle: "Particle",
}

// String returns the system type name.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Errors returned by the manager and systems.
var (
	// ErrUnknownSystem is returned when no system is registered for a type.
	ErrUnknownSystem = errors.New("material: unknown material system")

	// ErrNilSystem is returned when registering a nil system.
	ErrNilSystem = errors.New("material: system is nil")
)

// PassInfo describes the render pass being prepared.
type PassInfo struct {
	Name string

	// ShadowNodeHash changes whenever the shadow setup changes.
	ShadowNodeHash uint32

	ColorFormat gputypes.TextureFormat
	DepthFormat gputypes.TextureFormat
	SampleCount uint32
}

// PassCache is a prepared pass for one system.
type PassCache struct {
	System         Type
	Hash           uint32
	Caster         bool
	DualParaboloid bool
	Info           PassInfo
}

// HashPass computes the pass hash for a system. It never returns 0.
func HashPass(t Type, info PassInfo, caster, dualParaboloid bool) uint32 {
	h := fnv.New32a()
	var flags byte
	if caster {
		flags |= 1
	}
	if dualParaboloid {
		flags |= 2
	}
	_, _ = h.Write([]byte{byte(t), flags})
	_, _ = h.Write([]byte(info.Name))
	writeUint32(h, info.ShadowNodeHash)
	writeUint32(h, uint32(info.ColorFormat))
	writeUint32(h, uint32(info.DepthFormat))
	writeUint32(h, info.SampleCount)
	return nonZero(h.Sum32())
}

// FinalHash combines a pass hash and a drawable's property hash into the
// pipeline-state cache key.
func FinalHash(pass, drawableHash uint32) uint32 {
	h := fnv.New32a()
	writeUint32(h, pass)
	writeUint32(h, drawableHash)
	return nonZero(h.Sum32())
}

func writeUint32(h interface{ Write([]byte) (int, error) }, v uint32) {
	_, _ = h.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func nonZero(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}

// Request asks for one reserved entry to be compiled.
type Request struct {
	System   System
	Pass     *PassCache
	Entry    *pso.Entry
	Drawable *drawable.Drawable
	Object   *drawable.Object

	DrawableHash uint32
	FinalHash    uint32
	Caster       bool
}

// Scheduler accepts deferred compile requests.
type Scheduler interface {
	Enqueue(req Request)
}

// Postponer is implemented by systems that track compiles in flight.
// Requests the compile queue gives up on are handed to Postpone instead of
// Compile.
type Postponer interface {
	Postpone(e *pso.Entry)
}

// System turns drawables into pipeline states and fills their per-draw
// shader data.
//
// PreparePass, Resolve, WarmUp, FillBuffers, PreExecute and PostExecute are
// called from the goroutine driving the queue. Compile may run on any
// number of worker goroutines concurrently with Resolve.
type System interface {
	Type() Type

	PreparePass(info PassInfo, caster, dualParaboloid bool) (*PassCache, error)

	// Resolve returns the entry for d in pass. last is the entry bound by
	// the previous draw and is returned unchanged when it matches. With a
	// nil sched missing entries are compiled inline.
	Resolve(last *pso.Entry, pass *PassCache, d *drawable.Drawable, obj *drawable.Object,
		caster bool, sched Scheduler) (*pso.Entry, error)

	// WarmUp reserves an entry without compiling it. It reports false when
	// the entry already exists.
	WarmUp(pass *PassCache, d *drawable.Drawable, obj *drawable.Object, caster bool) (Request, bool)

	// Compile compiles a reserved entry. An expired ctx leaves the entry
	// flagged CompilationRequired and is not an error.
	Compile(ctx context.Context, req Request) error

	// FillBuffers writes the per-draw data for d and pushes any shader
	// buffer binds into sink. It returns the base instance of the draw and
	// the texture hash now bound.
	FillBuffers(entry *pso.Entry, d *drawable.Drawable, obj *drawable.Object, caster bool,
		lastTextureHash uint32, sink command.Sink) (baseInstance, textureHash uint32)

	// PreExecute flushes per-draw data before the command stream runs.
	PreExecute() error
	PostExecute()

	// ParticleSlots returns the bind slots of the particle const and data
	// buffers.
	ParticleSlots() (constSlot, dataSlot uint32)
}
