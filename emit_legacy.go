package rq

import (
	"fmt"

	"github.com/gogpu/rq/command"
	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/material"
)

func renderOp(d *drawable.Drawable, caster bool) *drawable.RenderOp {
	op := d.RenderOp(caster)
	if op == nil {
		panic(fmt.Sprintf("rq: drawable %q has no render op; vertex-array drawable in a legacy bucket?", d.Name))
	}
	return op
}

// opMetrics counts one legacy draw of instances instances.
func opMetrics(m *Metrics, op *drawable.RenderOp, instances uint32) {
	prims := op.VertexCount
	if op.Indexed() {
		prims = op.IndexCount
	}
	m.InstanceCount += uint64(instances)
	m.FaceCount += uint64(faces(op.Topology, prims) * instances)
	m.VertexCount += uint64(op.VertexCount * instances)
}

// emitLegacy records a legacy bucket. Consecutive entries drawing the same
// op fold into one instanced DrawLegacy.
func (q *RenderQueue) emitLegacy(b *bucket, caster bool, sched material.Scheduler) (Metrics, error) {
	var m Metrics
	perDraw := q.instancesPerDraw

	last := noEntry
	var lastOp *drawable.RenderOp
	var draw *command.DrawLegacy

	for _, e := range b.merged {
		d := q.arena.Get(e.d)
		obj := q.arena.Object(e.obj)
		op := renderOp(d, caster)

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
			lastOp = nil
		}
		last = entry

		var base uint32
		base, q.lastTextureHash = sys.FillBuffers(entry, d, obj, caster, q.lastTextureHash, q.cmds)

		instances := op.Instances() * perDraw
		differentOp := !op.Equal(lastOp)
		if draw == nil || q.cmds.Last() != draw || differentOp || op.GlobalInstancing {
			if differentOp {
				q.cmds.Add(&command.BindRenderOp{Op: op})
				lastOp = op
			}
			draw = &command.DrawLegacy{
				Op:           op,
				BaseInstance: base << q.baseInstanceShift,
				Instances:    instances,
			}
			q.cmds.Add(draw)
			m.DrawCount++
		} else {
			draw.Instances += instances
		}
		opMetrics(&m, op, instances)
	}

	q.lastVaoName = 0
	q.lastTextureHash = 0
	q.dev.AddMetrics(m)
	return m, nil
}

// renderImmediate draws a legacy bucket directly on the device, one call
// per entry. Pipelines are compiled inline.
func (q *RenderQueue) renderImmediate(b *bucket, caster bool) (Metrics, error) {
	var m Metrics
	perDraw := q.instancesPerDraw
	sink := command.Immediate{Executor: q.dev}

	last := noEntry
	for _, e := range b.merged {
		d := q.arena.Get(e.d)
		obj := q.arena.Object(e.obj)
		op := renderOp(d, caster)

		sys, pass, err := q.system(d)
		if err != nil {
			return m, err
		}
		entry, err := sys.Resolve(last, pass, d, obj, caster, nil)
		if err != nil {
			return m, err
		}
		if entry.Hash != last.Hash {
			q.dev.BindPipeline(entry)
		}
		last = entry

		var base uint32
		base, q.lastTextureHash = sys.FillBuffers(entry, d, obj, caster, q.lastTextureHash, sink)
		q.drawImmediate(op, base, perDraw)
		m.DrawCount++
		opMetrics(&m, op, op.Instances()*perDraw)
	}

	q.lastTextureHash = 0
	q.dev.AddMetrics(m)
	return m, nil
}

// drawImmediate binds op when its buffers differ from the bound ones and
// draws it.
func (q *RenderQueue) drawImmediate(op *drawable.RenderOp, base, perDraw uint32) {
	if op.VertexData != q.lastVertexData || op.IndexData != q.lastIndexData {
		q.dev.BindRenderOp(op)
		q.lastVertexData = op.VertexData
		q.lastIndexData = op.IndexData
	}
	q.dev.DrawLegacy(&command.DrawLegacy{
		Op:           op,
		BaseInstance: base << q.baseInstanceShift,
		Instances:    op.Instances() * perDraw,
	})
}
