package rq

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rq/command"
	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/indirect"
	"github.com/gogpu/rq/material"
)

// emitFast records a vertex-array bucket.
//
// Consecutive entries that keep the pipeline, the vertex source and the
// topology extend the current multi-draw with another descriptor.
// Consecutive entries with the very same vertex array add instances to the
// last descriptor instead.
func (q *RenderQueue) emitFast(b *bucket, caster bool, sched material.Scheduler) (Metrics, error) {
	var m Metrics
	perDraw := q.instancesPerDraw
	mode := q.caps.DrawMode()

	last := noEntry
	vaoName := q.lastVaoName
	var lastVAO *drawable.VertexArray
	var draw command.MultiDraw
	var drawTopo gputypes.PrimitiveTopology
	drawIndexed := false
	descriptor := 0

	for _, e := range b.merged {
		d := q.arena.Get(e.d)
		obj := q.arena.Object(e.obj)
		vao := d.VertexArray(caster, obj.MeshLod)

		sys, pass, err := q.system(d)
		if err != nil {
			return m, err
		}
		entry, err := sys.Resolve(last, pass, d, obj, caster, sched)
		if err != nil {
			return m, err
		}
		if entry.Hash != last.Hash {
			q.cmds.Add(&command.BindPipeline{Entry: entry})
			vaoName = 0
		}
		last = entry

		var base uint32
		base, q.lastTextureHash = sys.FillBuffers(entry, d, obj, caster, q.lastTextureHash, q.cmds)

		if draw == nil || q.cmds.Last() != draw || vaoName != vao.Name ||
			vao.Topology != drawTopo || vao.Indexed() != drawIndexed {
			if vaoName != vao.Name {
				q.cmds.Add(&command.BindVertexArray{VAO: vao})
				q.cmds.Add(&command.BindIndirectBuffer{Buffer: q.writer.Buffer()})
				vaoName = vao.Name
			}
			draw = q.newIndirectDraw(vao, mode)
			drawTopo, drawIndexed = vao.Topology, vao.Indexed()
			q.cmds.Add(draw)
			lastVAO = nil
			m.DrawCount++
		}

		if lastVAO != vao {
			draw.AddDraw()
			descriptor = q.writeDescriptor(vao, base, perDraw)
			lastVAO = vao
		} else {
			q.writer.AddInstances(descriptor, perDraw)
		}

		m.InstanceCount += uint64(perDraw)
		m.FaceCount += uint64(faces(vao.Topology, vao.PrimCount) * perDraw)
		m.VertexCount += uint64(vao.PrimCount * perDraw)
	}

	q.lastVaoName = vaoName
	q.lastVertexData = 0
	q.lastIndexData = 0
	q.lastTextureHash = 0
	q.dev.AddMetrics(m)
	return m, nil
}

// emitParticles records a particle bucket. Every entry binds its own
// particle buffers, so every entry starts a new draw.
func (q *RenderQueue) emitParticles(b *bucket, sched material.Scheduler) (Metrics, error) {
	var m Metrics
	perDraw := q.instancesPerDraw
	mode := q.caps.DrawMode()

	last := noEntry
	vaoName := q.lastVaoName

	for _, e := range b.merged {
		d := q.arena.Get(e.d)
		obj := q.arena.Object(e.obj)
		vao := d.VertexArray(false, 0)

		sys, pass, err := q.system(d)
		if err != nil {
			return m, err
		}
		entry, err := sys.Resolve(last, pass, d, obj, false, sched)
		if err != nil {
			return m, err
		}
		if entry.Hash != last.Hash {
			q.cmds.Add(&command.BindPipeline{Entry: entry})
			vaoName = 0
		}
		last = entry

		var base uint32
		base, q.lastTextureHash = sys.FillBuffers(entry, d, obj, false, q.lastTextureHash, q.cmds)

		if p := d.Particles; p != nil {
			constSlot, dataSlot := sys.ParticleSlots()
			q.cmds.Add(&command.BindShaderBuffer{
				Stage: gputypes.ShaderStageVertex,
				Slot:  constSlot,
				Group: p.Const,
				Size:  p.ConstSize,
			})
			q.cmds.Add(&command.BindShaderBuffer{
				Stage: gputypes.ShaderStageVertex,
				Slot:  dataSlot,
				Group: p.Data,
				Size:  p.DataSize,
			})
		}

		if vaoName != vao.Name {
			q.cmds.Add(&command.BindVertexArray{VAO: vao})
			q.cmds.Add(&command.BindIndirectBuffer{Buffer: q.writer.Buffer()})
			vaoName = vao.Name
		}
		draw := q.newIndirectDraw(vao, mode)
		q.cmds.Add(draw)
		draw.AddDraw()
		q.writeDescriptor(vao, base, perDraw)

		m.DrawCount++
		m.InstanceCount += uint64(perDraw)
		m.FaceCount += uint64(faces(vao.Topology, vao.PrimCount) * perDraw)
		m.VertexCount += uint64(vao.PrimCount * perDraw)
	}

	q.lastVaoName = vaoName
	q.lastVertexData = 0
	q.lastIndexData = 0
	q.lastTextureHash = 0
	q.dev.AddMetrics(m)
	return m, nil
}

// newIndirectDraw returns an empty multi-draw starting at the writer's
// offset.
func (q *RenderQueue) newIndirectDraw(vao *drawable.VertexArray, mode command.Mode) command.MultiDraw {
	off := uint32(q.writer.Offset()) //nolint:gosec // indirect buffers are far below 4 GiB
	if vao.Indexed() {
		return &command.DrawIndexedIndirect{Offset: off, Mode: mode}
	}
	return &command.DrawIndirect{Offset: off, Mode: mode}
}

// writeDescriptor writes one draw of vao and returns its offset.
func (q *RenderQueue) writeDescriptor(vao *drawable.VertexArray, base, instances uint32) int {
	base <<= q.baseInstanceShift
	if vao.Indexed() {
		return q.writer.WriteIndexed(indirect.DrawIndexed{
			PrimCount:        vao.PrimCount,
			InstanceCount:    instances,
			FirstVertexIndex: vao.IndexStart + vao.PrimStart,
			BaseVertex:       vao.BaseVertex,
			BaseInstance:     base,
		})
	}
	return q.writer.WriteStrip(indirect.DrawStrip{
		PrimCount:        vao.PrimCount,
		InstanceCount:    instances,
		FirstVertexIndex: uint32(vao.BaseVertex) + vao.PrimStart, //nolint:gosec // base vertex is non-negative for strips
		BaseInstance:     base,
	})
}
