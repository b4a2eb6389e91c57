package command

import (
	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/indirect"
	"github.com/gogpu/rq/pso"
)

// Sink receives commands. Material systems bind their shader buffers
// through it while the queue emits draws.
type Sink interface {
	Add(cmd Command)
}

// Immediate is a Sink that executes commands as they arrive. Legacy
// immediate rendering binds material buffers through it.
type Immediate struct {
	Executor
}

// Add implements Sink.
func (s Immediate) Add(cmd Command) {
	Dispatch(s.Executor, cmd)
}

// Executor interprets commands against a device.
//
// Calls arrive in stream order. Legacy-immediate rendering calls the same
// methods directly, bypassing a Buffer.
type Executor interface {
	BindPipeline(e *pso.Entry)
	BindVertexArray(vao *drawable.VertexArray)
	BindIndirectBuffer(b *indirect.Buffer)
	BindShaderBuffer(cmd *BindShaderBuffer)
	StartLegacy()
	BindRenderOp(op *drawable.RenderOp)
	DrawIndexedIndirect(cmd *DrawIndexedIndirect)
	DrawIndirect(cmd *DrawIndirect)
	DrawLegacy(cmd *DrawLegacy)
}

// Buffer is an ordered command list.
//
// Buffer is not safe for concurrent use.
type Buffer struct {
	cmds []Command
}

// NewBuffer creates an empty buffer with room for capacity commands.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{cmds: make([]Command, 0, capacity)}
}

// Add appends cmd.
func (b *Buffer) Add(cmd Command) {
	b.cmds = append(b.cmds, cmd)
}

// Last returns the most recently added command, or nil.
func (b *Buffer) Last() Command {
	if len(b.cmds) == 0 {
		return nil
	}
	return b.cmds[len(b.cmds)-1]
}

// Len returns the number of commands.
func (b *Buffer) Len() int { return len(b.cmds) }

// Commands returns the commands. The slice must not be modified and is
// only valid until the next Add or Reset.
func (b *Buffer) Commands() []Command { return b.cmds }

// Count returns how many commands of type t the buffer holds.
func (b *Buffer) Count(t Type) int {
	n := 0
	for _, c := range b.cmds {
		if c.Type() == t {
			n++
		}
	}
	return n
}

// Reset drops all commands, keeping capacity.
func (b *Buffer) Reset() {
	clear(b.cmds)
	b.cmds = b.cmds[:0]
}

// Execute replays every command into ex in order, then resets the buffer.
func (b *Buffer) Execute(ex Executor) {
	for _, cmd := range b.cmds {
		Dispatch(ex, cmd)
	}
	b.Reset()
}

// Dispatch sends one command to ex.
func Dispatch(ex Executor, cmd Command) {
	switch c := cmd.(type) {
	case *BindPipeline:
		ex.BindPipeline(c.Entry)
	case *BindVertexArray:
		ex.BindVertexArray(c.VAO)
	case *BindIndirectBuffer:
		ex.BindIndirectBuffer(c.Buffer)
	case *BindShaderBuffer:
		ex.BindShaderBuffer(c)
	case *StartLegacy:
		ex.StartLegacy()
	case *BindRenderOp:
		ex.BindRenderOp(c.Op)
	case *DrawIndexedIndirect:
		ex.DrawIndexedIndirect(c)
	case *DrawIndirect:
		ex.DrawIndirect(c)
	case *DrawLegacy:
		ex.DrawLegacy(c)
	}
}
