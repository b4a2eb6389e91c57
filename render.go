package rq

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/rq/command"
	"github.com/gogpu/rq/indirect"
	"github.com/gogpu/rq/material"
)

// Render emits buckets [first, last) to the device and executes them.
//
// Missing pipelines are compiled on the compile queue when the device
// supports multithreaded compilation, bounded by PipelineTimeout outside
// caster passes; otherwise inline. Pipelines that miss the deadline are
// reported to the device and their draws are skipped by the backend.
//
// Render closes the pass opened by Prepare, even on error.
func (q *RenderQueue) Render(ctx context.Context, first, last int, caster, dualParaboloid bool) error {
	if q.renderingStarted == 0 {
		return ErrNotPrepared
	}
	defer func() { q.renderingStarted-- }()

	first, last = max(first, 0), min(last, NumBuckets)
	if caster != q.lastCaster {
		q.clearState()
		q.lastCaster = caster
	}

	var sched material.Scheduler
	if q.parallelCompile() {
		cctx := ctx
		if !caster && q.cfg.PipelineTimeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, q.cfg.PipelineTimeout)
			defer cancel()
		}
		if err := q.compiler.Start(cctx); err != nil {
			return fmt.Errorf("rq: start compile queue: %w", err)
		}
		sched = q.compiler
	}

	total, err := q.emit(first, last, caster, sched)

	// Pipelines compiled by workers must be visible before the stream is
	// executed.
	if sched != nil {
		incomplete, cerr := q.compiler.StopAndWait()
		if incomplete > 0 {
			q.dev.NotifyIncompletePipelines(incomplete)
		}
		if cerr != nil {
			err = errors.Join(err, fmt.Errorf("rq: compile: %w", cerr))
		}
	}
	if err != nil {
		q.discard()
		return err
	}

	q.materials.Each(func(s material.System) {
		if perr := s.PreExecute(); perr != nil && err == nil {
			err = fmt.Errorf("rq: %s pre-execute: %w", s.Type(), perr)
		}
	})
	if err != nil {
		q.discard()
		return err
	}
	q.cmds.Execute(q.dev)
	q.materials.Each(func(s material.System) { s.PostExecute() })

	Logger().Debug("rq: rendered",
		"buckets", last-first,
		"caster", caster,
		"dualParaboloid", dualParaboloid,
		"draws", total.DrawCount,
		"instances", total.InstanceCount)
	return nil
}

// discard drops the recorded stream and the per-instance data the material
// systems gathered for it.
func (q *RenderQueue) discard() {
	q.cmds.Reset()
	q.materials.Each(func(s material.System) { s.PostExecute() })
}

// emit maps an indirect buffer sized for every fast and particle entry in
// range and records the buckets into it.
func (q *RenderQueue) emit(first, last int, caster bool, sched material.Scheduler) (Metrics, error) {
	var total Metrics

	numDraws := 0
	for id := first; id < last; id++ {
		if b := &q.buckets[id]; b.mode == ModeFast || b.mode == ModeParticle {
			numDraws += b.count()
		}
	}
	// Legacy-only ranges write no descriptors and need no buffer.
	var buf *indirect.Buffer
	var err error
	if numDraws > 0 {
		buf, err = q.pool.Get(numDraws)
		if err != nil {
			return total, fmt.Errorf("rq: indirect buffer for %d draws: %w", numDraws, err)
		}
		q.writer, err = buf.Map()
		if err != nil {
			return total, fmt.Errorf("rq: map indirect buffer: %w", err)
		}
	}

	for id := first; id < last; id++ {
		m, berr := q.renderBucket(&q.buckets[id], caster, sched)
		total.Add(m)
		if berr != nil {
			err = fmt.Errorf("rq: bucket %d: %w", id, berr)
			break
		}
	}

	if buf == nil {
		return total, err
	}
	q.writer = nil
	if uerr := buf.Unmap(q.up); uerr != nil && err == nil {
		err = fmt.Errorf("rq: upload indirect buffer: %w", uerr)
	}
	return total, err
}

// renderBucket sorts b and emits it by its mode. Legacy buckets reached
// after vertex-array draws switch the device out of vertex-array mode.
func (q *RenderQueue) renderBucket(b *bucket, caster bool, sched material.Scheduler) (Metrics, error) {
	b.mergeAndSort()
	switch b.mode {
	case ModeV1Legacy:
		if q.lastVaoName != 0 {
			q.dev.StartLegacy()
			q.lastVaoName = 0
		}
		return q.renderImmediate(b, caster)
	case ModeV1Fast:
		if q.lastVaoName != 0 {
			q.cmds.Add(&command.StartLegacy{})
			q.lastVaoName = 0
		}
		return q.emitLegacy(b, caster, sched)
	case ModeParticle:
		if len(b.merged) == 0 {
			return Metrics{}, nil
		}
		return q.emitParticles(b, sched)
	default:
		if len(b.merged) == 0 {
			return Metrics{}, nil
		}
		return q.emitFast(b, caster, sched)
	}
}
