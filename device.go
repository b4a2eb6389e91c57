package rq

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rq/command"
	"github.com/gogpu/rq/indirect"
)

// Capabilities describe what a device can do.
type Capabilities struct {
	// Indirect means the GPU reads draw descriptors.
	Indirect bool

	// BaseInstance means CPU-decoded draws honor the base instance.
	BaseInstance bool

	// MultithreadedCompile allows pipelines to be compiled off the
	// rendering goroutine.
	MultithreadedCompile bool

	// InstancedStereo means the device renders both eyes from one
	// instanced draw.
	InstancedStereo bool

	// Workers caps the compile workers. Zero means no cap.
	Workers int
}

// DrawMode returns how the device issues indirect draws.
func (c Capabilities) DrawMode() command.Mode {
	switch {
	case c.Indirect:
		return command.Indirect
	case c.BaseInstance:
		return command.BaseInstance
	default:
		return command.Direct
	}
}

// Metrics counts the work of a render call.
type Metrics struct {
	DrawCount     uint64
	InstanceCount uint64
	FaceCount     uint64
	VertexCount   uint64
}

// Add accumulates o into m.
func (m *Metrics) Add(o Metrics) {
	m.DrawCount += o.DrawCount
	m.InstanceCount += o.InstanceCount
	m.FaceCount += o.FaceCount
	m.VertexCount += o.VertexCount
}

// Device is the graphics backend the queue renders to.
//
// The queue executes its command stream through the embedded Executor and
// allocates pooled indirect buffers through the Allocator. A device that
// also implements indirect.Uploader receives the written descriptors when a
// buffer is unmapped.
type Device interface {
	command.Executor
	indirect.Allocator

	Capabilities() Capabilities

	// AddMetrics receives the counters of each rendered bucket.
	AddMetrics(m Metrics)

	// NotifyIncompletePipelines reports pipelines that missed the compile
	// deadline this frame.
	NotifyIncompletePipelines(n int)
}

// faces returns the primitives drawn from count vertices or indices.
func faces(t gputypes.PrimitiveTopology, count uint32) uint32 {
	switch t {
	case gputypes.PrimitiveTopologyTriangleList:
		return count / 3
	case gputypes.PrimitiveTopologyTriangleStrip:
		if count < 3 {
			return 0
		}
		return count - 2
	case gputypes.PrimitiveTopologyLineList:
		return count / 2
	case gputypes.PrimitiveTopologyLineStrip:
		if count < 2 {
			return 0
		}
		return count - 1
	default:
		return count
	}
}
