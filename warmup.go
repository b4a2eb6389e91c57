package rq

import (
	"context"
	"fmt"
)

// WarmUpCollect reserves the pipelines of buckets [first, last) without
// drawing and queues them for WarmUpTrigger. It closes the pass opened by
// Prepare. The buckets are merged but not sorted, so nothing more can be
// added to them this frame.
func (q *RenderQueue) WarmUpCollect(first, last int, caster bool) error {
	if q.renderingStarted == 0 {
		return ErrNotPrepared
	}
	defer func() { q.renderingStarted-- }()

	first, last = max(first, 0), min(last, NumBuckets)
	queued := 0
	for id := first; id < last; id++ {
		b := &q.buckets[id]
		b.merge()
		for _, e := range b.merged {
			d := q.arena.Get(e.d)
			obj := q.arena.Object(e.obj)
			sys, pass, err := q.system(d)
			if err != nil {
				return fmt.Errorf("rq: warm up bucket %d: %w", id, err)
			}
			if req, ok := sys.WarmUp(pass, d, obj, caster); ok {
				q.compiler.Enqueue(req)
				queued++
			}
		}
	}
	Logger().Debug("rq: warm-up collected", "requests", queued, "caster", caster)
	return nil
}

// WarmUpTrigger compiles every collected pipeline without a deadline, on
// the compile workers when the device allows it.
func (q *RenderQueue) WarmUpTrigger(ctx context.Context) error {
	var err error
	if q.parallelCompile() {
		err = q.compiler.WarmUpParallel(ctx)
	} else {
		err = q.compiler.WarmUpSerial(ctx)
	}
	if err != nil {
		return fmt.Errorf("rq: warm up: %w", err)
	}
	return nil
}
