// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"sync"

	"github.com/gogpu/rq"
	"github.com/gogpu/rq/command"
	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/indirect"
	"github.com/gogpu/rq/pso"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoPass is reported when commands arrive outside Begin/End.
var ErrNoPass = errors.New("wgpu: no render pass")

// DefaultCapabilities assumes GPU-side indirect draws honoring the base
// instance, and pipeline compilation off the rendering goroutine.
var DefaultCapabilities = rq.Capabilities{
	Indirect:             true,
	BaseInstance:         true,
	MultithreadedCompile: true,
}

// Device drives a hal.RenderPassEncoder.
//
// Executor methods must be called between Begin and End from the
// goroutine driving the queue. Metrics and Stats may be read from any
// goroutine.
type Device struct {
	device hal.Device
	queue  hal.Queue
	caps   rq.Capabilities

	pass     hal.RenderPassEncoder
	ready    bool
	indirect *indirect.Buffer

	mu         sync.Mutex
	metrics    rq.Metrics
	incomplete int
	dropped    int
	skipped    int
}

// NewDevice wraps a HAL device and queue.
func NewDevice(device hal.Device, queue hal.Queue, caps rq.Capabilities) *Device {
	return &Device{device: device, queue: queue, caps: caps}
}

var (
	_ rq.Device         = (*Device)(nil)
	_ indirect.Uploader = (*Device)(nil)
)

// HalDevice returns the wrapped device.
func (d *Device) HalDevice() hal.Device { return d.device }

// Begin directs following commands into pass.
func (d *Device) Begin(pass hal.RenderPassEncoder) {
	d.pass = pass
	d.ready = false
	d.indirect = nil
}

// End detaches the render pass. The caller ends the encoder itself.
func (d *Device) End() {
	d.pass = nil
	d.ready = false
	d.indirect = nil
}

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
	rq.Logger().Warn("wgpu: pipelines incomplete this frame", "count", n)
}

// Stats is a snapshot of device counters.
type Stats struct {
	Metrics rq.Metrics

	// Incomplete counts pipelines reported past the compile deadline.
	Incomplete int

	// Dropped counts commands that arrived outside Begin/End.
	Dropped int

	// Skipped counts draws issued while no ready pipeline was bound.
	Skipped int
}

// Stats returns the accumulated counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{Metrics: d.metrics, Incomplete: d.incomplete, Dropped: d.dropped, Skipped: d.skipped}
}

// ResetStats zeroes the counters, typically once per frame.
func (d *Device) ResetStats() {
	d.mu.Lock()
	d.metrics = rq.Metrics{}
	d.incomplete, d.dropped, d.skipped = 0, 0, 0
	d.mu.Unlock()
}

// CreateBuffer implements indirect.Allocator.
func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	return d.device.CreateBuffer(desc)
}

// DestroyBuffer implements indirect.Allocator.
func (d *Device) DestroyBuffer(buffer hal.Buffer) {
	d.device.DestroyBuffer(buffer)
}

// WriteBuffer implements indirect.Uploader through the HAL queue.
func (d *Device) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	return d.queue.WriteBuffer(buffer, offset, data)
}

// encoder returns the active pass, counting the command as dropped when
// there is none.
func (d *Device) encoder() hal.RenderPassEncoder {
	if d.pass == nil {
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		rq.Logger().Debug("wgpu: command dropped", "err", ErrNoPass)
	}
	return d.pass
}

// drawPass returns the pass when a draw can be issued, counting skipped draws.
func (d *Device) drawPass() hal.RenderPassEncoder {
	p := d.encoder()
	if p == nil {
		return nil
	}
	if !d.ready {
		d.mu.Lock()
		d.skipped++
		d.mu.Unlock()
		return nil
	}
	return p
}

// BindPipeline implements command.Executor. Entries without a native
// pipeline disable draws until the next bind.
func (d *Device) BindPipeline(e *pso.Entry) {
	p := d.encoder()
	if p == nil {
		return
	}
	d.ready = e.Ready() && e.State.Native != nil
	if d.ready {
		p.SetPipeline(e.State.Native)
	}
}

// BindVertexArray implements command.Executor.
func (d *Device) BindVertexArray(vao *drawable.VertexArray) {
	p := d.encoder()
	if p == nil {
		return
	}
	if vao.VertexBuffer != nil {
		p.SetVertexBuffer(0, vao.VertexBuffer, 0)
	}
	if vao.Indexed() {
		p.SetIndexBuffer(vao.IndexBuffer, vao.IndexFormat, 0)
	}
}

// BindIndirectBuffer implements command.Executor.
func (d *Device) BindIndirectBuffer(b *indirect.Buffer) {
	d.indirect = b
}

// BindShaderBuffer implements command.Executor. A non-zero Offset is
// passed as the group's dynamic offset.
func (d *Device) BindShaderBuffer(c *command.BindShaderBuffer) {
	p := d.encoder()
	if p == nil || c.Group == nil {
		return
	}
	var offsets []uint32
	if c.Offset != 0 {
		offsets = []uint32{c.Offset}
	}
	p.SetBindGroup(c.Slot, c.Group, offsets)
}

// StartLegacy implements command.Executor. WebGPU has no separate legacy
// state; the next BindRenderOp rebinds buffers.
func (d *Device) StartLegacy() {}

// BindRenderOp implements command.Executor.
func (d *Device) BindRenderOp(op *drawable.RenderOp) {
	p := d.encoder()
	if p == nil {
		return
	}
	if op.VertexBuffer != nil {
		p.SetVertexBuffer(0, op.VertexBuffer, 0)
	}
	if op.Indexed() {
		p.SetIndexBuffer(op.IndexBuffer, op.IndexFormat, 0)
	}
}

func (d *Device) baseInstance(mode command.Mode, base uint32) uint32 {
	if mode == command.Direct {
		return 0
	}
	return base
}

// DrawIndexedIndirect implements command.Executor.
func (d *Device) DrawIndexedIndirect(c *command.DrawIndexedIndirect) {
	p := d.drawPass()
	if p == nil || d.indirect == nil {
		return
	}
	for i := range c.NumDraws {
		off := uint64(c.Offset) + uint64(i)*indirect.DrawIndexedSize
		if c.Mode == command.Indirect {
			p.DrawIndexedIndirect(d.indirect.GPU(), off)
			continue
		}
		desc := indirect.ReadIndexed(d.indirect.Bytes(), int(off)) //nolint:gosec // offsets fit the shadow
		p.DrawIndexed(desc.PrimCount, desc.InstanceCount, desc.FirstVertexIndex,
			desc.BaseVertex, d.baseInstance(c.Mode, desc.BaseInstance))
	}
}

// DrawIndirect implements command.Executor.
func (d *Device) DrawIndirect(c *command.DrawIndirect) {
	p := d.drawPass()
	if p == nil || d.indirect == nil {
		return
	}
	for i := range c.NumDraws {
		off := uint64(c.Offset) + uint64(i)*indirect.DrawStripSize
		if c.Mode == command.Indirect {
			p.DrawIndirect(d.indirect.GPU(), off)
			continue
		}
		desc := indirect.ReadStrip(d.indirect.Bytes(), int(off)) //nolint:gosec // offsets fit the shadow
		p.Draw(desc.PrimCount, desc.InstanceCount, desc.FirstVertexIndex,
			d.baseInstance(c.Mode, desc.BaseInstance))
	}
}

// DrawLegacy implements command.Executor.
func (d *Device) DrawLegacy(c *command.DrawLegacy) {
	p := d.drawPass()
	if p == nil {
		return
	}
	op := c.Op
	if op.Indexed() {
		p.DrawIndexed(op.IndexCount, c.Instances, op.IndexStart,
			int32(op.VertexStart), c.BaseInstance) //nolint:gosec // vertex starts fit int32
		return
	}
	p.Draw(op.VertexCount, c.Instances, op.VertexStart, c.BaseInstance)
}
