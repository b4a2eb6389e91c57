package rq

import (
	"fmt"

	"github.com/gogpu/rq/command"
	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/material"
)

// RenderSingle draws one legacy drawable immediately, outside any bucket.
// It prepares its own pass from the last prepared PassInfo and compiles the
// pipeline inline.
func (q *RenderQueue) RenderSingle(dh drawable.Handle, oh drawable.ObjectHandle, caster, dualParaboloid bool) error {
	if q.lastVaoName != 0 {
		q.dev.StartLegacy()
		q.lastVaoName = 0
	}
	if caster != q.lastCaster {
		q.clearState()
		q.lastCaster = caster
	}

	q.renderingStarted++
	defer func() { q.renderingStarted-- }()

	d := q.arena.Get(dh)
	obj := q.arena.Object(oh)
	op := renderOp(d, caster)

	if d.Material == nil {
		return fmt.Errorf("rq: drawable %q has no material", d.Name)
	}
	sys, err := q.materials.Get(material.Type(d.Material.System))
	if err != nil {
		return fmt.Errorf("rq: drawable %q: %w", d.Name, err)
	}
	pass, err := sys.PreparePass(q.passInfo, caster, dualParaboloid)
	if err != nil {
		return fmt.Errorf("rq: prepare %s pass: %w", sys.Type(), err)
	}
	entry, err := sys.Resolve(noEntry, pass, d, obj, caster, nil)
	if err != nil {
		return err
	}
	q.dev.BindPipeline(entry)

	base, _ := sys.FillBuffers(entry, d, obj, caster, 0, command.Immediate{Executor: q.dev})
	if err := sys.PreExecute(); err != nil {
		sys.PostExecute()
		return fmt.Errorf("rq: %s pre-execute: %w", sys.Type(), err)
	}
	q.lastVertexData, q.lastIndexData = 0, 0
	q.drawImmediate(op, base, q.instancesPerDraw)
	sys.PostExecute()

	var m Metrics
	m.DrawCount++
	opMetrics(&m, op, op.Instances()*q.instancesPerDraw)
	q.dev.AddMetrics(m)

	q.lastVaoName = 0
	return nil
}
