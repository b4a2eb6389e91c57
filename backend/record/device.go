package record

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rq"
	"github.com/gogpu/rq/command"
	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/indirect"
	"github.com/gogpu/rq/pso"
	"github.com/gogpu/wgpu/hal"
)

// Call is one traced executor call.
type Call struct {
	Type command.Type

	// Draw fields, set for draw calls. Indirect draws are recorded once
	// per decoded descriptor.
	Indexed       bool
	Count         uint32
	Instances     uint32
	First         uint32
	BaseVertex    int32
	BaseInstance  uint32
	PipelineHash  uint32
	SkippedNoPipe bool
}

// String formats the call for logs and golden traces.
func (c Call) String() string {
	switch c.Type {
	case command.TypeDrawIndexedIndirect, command.TypeDrawIndirect, command.TypeDrawLegacy:
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s count=%d instances=%d first=%d base_instance=%d",
			c.Type, c.Count, c.Instances, c.First, c.BaseInstance)
		if c.Indexed {
			fmt.Fprintf(&sb, " base_vertex=%d", c.BaseVertex)
		}
		if c.SkippedNoPipe {
			sb.WriteString(" skipped")
		}
		return sb.String()
	case command.TypeBindPipeline:
		return fmt.Sprintf("%s hash=%#x", c.Type, c.PipelineHash)
	default:
		return c.Type.String()
	}
}

// Buffer is a host-memory hal.Buffer.
type Buffer struct {
	hal.Buffer

	Label string
	Usage gputypes.BufferUsage
	Data  []byte
}

// Device records commands in memory. It implements rq.Device and
// indirect.Uploader.
//
// Executor methods are called from the goroutine driving the queue;
// Snapshot and Reset may be called from any goroutine.
type Device struct {
	mu sync.Mutex

	caps rq.Capabilities

	calls      []Call
	metrics    rq.Metrics
	incomplete int

	buffers   int
	destroyed int
	uploaded  uint64

	pipeline *pso.Entry
	indirect *indirect.Buffer
}

// New creates a device reporting caps.
func New(caps rq.Capabilities) *Device {
	return &Device{caps: caps}
}

var _ rq.Device = (*Device)(nil)

// Capabilities implements rq.Device.
func (d *Device) Capabilities() rq.Capabilities { return d.caps }

// AddMetrics implements rq.Device.
func (d *Device) AddMetrics(m rq.Metrics) {
	d.mu.Lock()
	d.metrics.Add(m)
	d.mu.Unlock()
}

// NotifyIncompletePipelines implements rq.Device.
func (d *Device) NotifyIncompletePipelines(n int) {
	d.mu.Lock()
	d.incomplete += n
	d.mu.Unlock()
}

// CreateBuffer implements indirect.Allocator.
func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	d.mu.Lock()
	d.buffers++
	d.mu.Unlock()
	return &Buffer{Label: desc.Label, Usage: desc.Usage, Data: make([]byte, desc.Size)}, nil
}

// DestroyBuffer implements indirect.Allocator.
func (d *Device) DestroyBuffer(hal.Buffer) {
	d.mu.Lock()
	d.destroyed++
	d.mu.Unlock()
}

// WriteBuffer implements indirect.Uploader.
func (d *Device) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	b, ok := buffer.(*Buffer)
	if !ok {
		return fmt.Errorf("record: write to foreign buffer %T", buffer)
	}
	if offset+uint64(len(data)) > uint64(len(b.Data)) {
		return fmt.Errorf("record: write of %d bytes at %d overflows %q (%d bytes)",
			len(data), offset, b.Label, len(b.Data))
	}
	copy(b.Data[offset:], data)
	d.mu.Lock()
	d.uploaded += uint64(len(data))
	d.mu.Unlock()
	return nil
}

func (d *Device) record(c Call) {
	d.mu.Lock()
	d.calls = append(d.calls, c)
	d.mu.Unlock()
}

// BindPipeline implements command.Executor.
func (d *Device) BindPipeline(e *pso.Entry) {
	d.pipeline = e
	var hash uint32
	if e != nil {
		hash = e.Hash
	}
	d.record(Call{Type: command.TypeBindPipeline, PipelineHash: hash})
}

// BindVertexArray implements command.Executor.
func (d *Device) BindVertexArray(*drawable.VertexArray) {
	d.record(Call{Type: command.TypeBindVertexArray})
}

// BindIndirectBuffer implements command.Executor.
func (d *Device) BindIndirectBuffer(b *indirect.Buffer) {
	d.indirect = b
	d.record(Call{Type: command.TypeBindIndirectBuffer})
}

// BindShaderBuffer implements command.Executor.
func (d *Device) BindShaderBuffer(*command.BindShaderBuffer) {
	d.record(Call{Type: command.TypeBindShaderBuffer})
}

// StartLegacy implements command.Executor.
func (d *Device) StartLegacy() {
	d.record(Call{Type: command.TypeStartLegacy})
}

// BindRenderOp implements command.Executor.
func (d *Device) BindRenderOp(*drawable.RenderOp) {
	d.record(Call{Type: command.TypeBindRenderOp})
}

// baseInstance drops the base instance in Direct mode.
func (d *Device) baseInstance(mode command.Mode, base uint32) uint32 {
	if mode == command.Direct {
		return 0
	}
	return base
}

// DrawIndexedIndirect implements command.Executor.
func (d *Device) DrawIndexedIndirect(c *command.DrawIndexedIndirect) {
	if d.indirect == nil {
		panic("record: indirect draw without a bound descriptor buffer")
	}
	skip := !d.pipeline.Ready()
	for i := range int(c.NumDraws) {
		desc := indirect.ReadIndexed(d.indirect.Bytes(), int(c.Offset)+i*indirect.DrawIndexedSize)
		d.record(Call{
			Type:          command.TypeDrawIndexedIndirect,
			Indexed:       true,
			Count:         desc.PrimCount,
			Instances:     desc.InstanceCount,
			First:         desc.FirstVertexIndex,
			BaseVertex:    desc.BaseVertex,
			BaseInstance:  d.baseInstance(c.Mode, desc.BaseInstance),
			SkippedNoPipe: skip,
		})
	}
}

// DrawIndirect implements command.Executor.
func (d *Device) DrawIndirect(c *command.DrawIndirect) {
	if d.indirect == nil {
		panic("record: indirect draw without a bound descriptor buffer")
	}
	skip := !d.pipeline.Ready()
	for i := range int(c.NumDraws) {
		desc := indirect.ReadStrip(d.indirect.Bytes(), int(c.Offset)+i*indirect.DrawStripSize)
		d.record(Call{
			Type:          command.TypeDrawIndirect,
			Count:         desc.PrimCount,
			Instances:     desc.InstanceCount,
			First:         desc.FirstVertexIndex,
			BaseInstance:  d.baseInstance(c.Mode, desc.BaseInstance),
			SkippedNoPipe: skip,
		})
	}
}

// DrawLegacy implements command.Executor.
func (d *Device) DrawLegacy(c *command.DrawLegacy) {
	call := Call{
		Type:          command.TypeDrawLegacy,
		Indexed:       c.Op.Indexed(),
		Count:         c.Op.VertexCount,
		First:         c.Op.VertexStart,
		Instances:     c.Instances,
		BaseInstance:  c.BaseInstance,
		SkippedNoPipe: !d.pipeline.Ready(),
	}
	if call.Indexed {
		call.Count = c.Op.IndexCount
		call.First = c.Op.IndexStart
	}
	d.record(call)
}

// Snapshot is a copy of what a device recorded.
type Snapshot struct {
	Calls      []Call
	Metrics    rq.Metrics
	Incomplete int

	Buffers   int
	Destroyed int
	Uploaded  uint64
}

// Draws returns the draw calls that were not skipped.
func (s Snapshot) Draws() []Call {
	var out []Call
	for _, c := range s.Calls {
		switch c.Type {
		case command.TypeDrawIndexedIndirect, command.TypeDrawIndirect, command.TypeDrawLegacy:
			if !c.SkippedNoPipe {
				out = append(out, c)
			}
		}
	}
	return out
}

// Snapshot returns a copy of the recorded state.
func (d *Device) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		Calls:      append([]Call(nil), d.calls...),
		Metrics:    d.metrics,
		Incomplete: d.incomplete,
		Buffers:    d.buffers,
		Destroyed:  d.destroyed,
		Uploaded:   d.uploaded,
	}
}

// Reset drops recorded calls and counters. Buffer counts are kept.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.calls)
	d.calls = d.calls[:0]
	d.metrics = rq.Metrics{}
	d.incomplete = 0
	d.uploaded = 0
	d.pipeline = nil
	d.indirect = nil
}
