// Package command provides the backend-agnostic command stream emitted by
// the render queue.
//
// The stream is a list of typed command structs rather than a packed byte
// encoding, so tests and tools can inspect it directly. Commands are stored
// as pointers: the emitter keeps a pointer to the draw command it is
// extending and bumps its draw count while consecutive entries stay
// compatible.
//
// # Command kinds
//
//   - State: BindPipeline, BindVertexArray, BindIndirectBuffer,
//     BindShaderBuffer, StartLegacy, BindRenderOp
//   - Draw: DrawIndexedIndirect, DrawIndirect, DrawLegacy
//
// A Buffer is replayed into an Executor with Execute.
package command

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/indirect"
	"github.com/gogpu/rq/pso"
	"github.com/gogpu/wgpu/hal"
)

// Type identifies the type of a command.
type Type uint8

const (
	// State commands
	TypeBindPipeline       Type = iota // Bind a pipeline-state entry
	TypeBindVertexArray                // Bind vertex and index buffers
	TypeBindIndirectBuffer             // Bind the indirect descriptor buffer
	TypeBindShaderBuffer               // Bind a shader-visible buffer range
	TypeStartLegacy                    // Switch the backend to legacy draws
	TypeBindRenderOp                   // Bind a legacy render op's buffers

	// Draw commands
	TypeDrawIndexedIndirect // Indexed multi-draw from descriptors
	TypeDrawIndirect        // Non-indexed multi-draw from descriptors
	TypeDrawLegacy          // One legacy draw
)

var typeNames = [...]string{
	TypeBindPipeline:        "BindPipeline",
	TypeBindVertexArray:     "BindVertexArray",
	TypeBindIndirectBuffer:  "BindIndirectBuffer",
	TypeBindShaderBuffer:    "BindShaderBuffer",
	TypeStartLegacy:         "StartLegacy",
	TypeBindRenderOp:        "BindRenderOp",
	TypeDrawIndexedIndirect: "DrawIndexedIndirect",
	TypeDrawIndirect:        "DrawIndirect",
	TypeDrawLegacy:          "DrawLegacy",
}

// String returns the string representation of a Type.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Command is the interface implemented by all command types.
type Command interface {
	// Type returns the Type for this command.
	Type() Type
}

// Mode selects how a backend issues the draws described by descriptors.
type Mode uint8

const (
	// Direct: the backend decodes descriptors on the CPU and issues plain
	// draws without a base instance.
	Direct Mode = iota
	// BaseInstance: CPU-decoded draws that honor the base instance.
	BaseInstance
	// Indirect: the GPU reads the descriptors.
	Indirect
)

var modeNames = [...]string{Direct: "Direct", BaseInstance: "BaseInstance", Indirect: "Indirect"}

// String returns the mode name.
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "Unknown"
}

// --------------------------------------------------------------------------
// State Commands
// --------------------------------------------------------------------------

// BindPipeline binds the pipeline of a cache entry. Backends skip draws
// until the next bind when the entry is not Ready.
type BindPipeline struct {
	Entry *pso.Entry
}

// Type implements Command.
func (*BindPipeline) Type() Type { return TypeBindPipeline }

// BindVertexArray binds a vertex source.
type BindVertexArray struct {
	VAO *drawable.VertexArray
}

// Type implements Command.
func (*BindVertexArray) Type() Type { return TypeBindVertexArray }

// BindIndirectBuffer binds the buffer that following indirect draws read
// their descriptors from.
type BindIndirectBuffer struct {
	Buffer *indirect.Buffer
}

// Type implements Command.
func (*BindIndirectBuffer) Type() Type { return TypeBindIndirectBuffer }

// BindShaderBuffer binds a range of a shader-visible buffer.
type BindShaderBuffer struct {
	Stage  gputypes.ShaderStage
	Slot   uint32
	Group  hal.BindGroup
	Offset uint32
	Size   uint32
}

// Type implements Command.
func (*BindShaderBuffer) Type() Type { return TypeBindShaderBuffer }

// StartLegacy switches the backend out of vertex-array mode.
type StartLegacy struct{}

// Type implements Command.
func (*StartLegacy) Type() Type { return TypeStartLegacy }

// BindRenderOp binds the buffers of a legacy render op.
type BindRenderOp struct {
	Op *drawable.RenderOp
}

// Type implements Command.
func (*BindRenderOp) Type() Type { return TypeBindRenderOp }

// --------------------------------------------------------------------------
// Draw Commands
// --------------------------------------------------------------------------

// DrawIndexedIndirect issues NumDraws indexed draws whose descriptors start
// at Offset in the bound indirect buffer.
type DrawIndexedIndirect struct {
	Offset   uint32
	NumDraws uint32
	Mode     Mode
}

// Type implements Command.
func (*DrawIndexedIndirect) Type() Type { return TypeDrawIndexedIndirect }

// DrawIndirect issues NumDraws non-indexed draws whose descriptors start at
// Offset in the bound indirect buffer.
type DrawIndirect struct {
	Offset   uint32
	NumDraws uint32
	Mode     Mode
}

// Type implements Command.
func (*DrawIndirect) Type() Type { return TypeDrawIndirect }

// DrawLegacy draws a bound legacy op. Consecutive objects sharing an op
// are folded into one command by raising Instances.
type DrawLegacy struct {
	Op           *drawable.RenderOp
	BaseInstance uint32
	Instances    uint32
}

// Type implements Command.
func (*DrawLegacy) Type() Type { return TypeDrawLegacy }

// MultiDraw is implemented by the commands that carry a draw count.
type MultiDraw interface {
	Command
	AddDraw()
	Draws() uint32
}

// AddDraw extends the command by one descriptor.
func (c *DrawIndexedIndirect) AddDraw() { c.NumDraws++ }

// Draws returns the descriptor count.
func (c *DrawIndexedIndirect) Draws() uint32 { return c.NumDraws }

// AddDraw extends the command by one descriptor.
func (c *DrawIndirect) AddDraw() { c.NumDraws++ }

// Draws returns the descriptor count.
func (c *DrawIndirect) Draws() uint32 { return c.NumDraws }
