// Package rq provides a batching render queue for the GoGPU ecosystem.
//
// # Overview
//
// rq sits between scene traversal and a graphics backend. Scene code adds
// drawables to one of 256 buckets; each frame the queue sorts every bucket
// by a packed 64-bit key, resolves a pipeline state per drawable through a
// material system, and emits a backend-agnostic command stream in which
// consecutive compatible draws are folded into indirect multi-draws.
//
// # Quick Start
//
//	materials, _ := material.NewManager(standard)
//	q, _ := rq.New(dev, materials, rq.DefaultConfig())
//	defer q.Close()
//
//	// Collection: one arena slab and bucket list per thread.
//	q.Collect(len(items), func(thread, i int) {
//	    dh := q.Arena().Add(thread, items[i].Drawable)
//	    oh := q.Arena().AddObject(thread, items[i].Object)
//	    q.Add(thread, items[i].Object.Bucket, false, dh, oh)
//	})
//
//	// Rendering
//	_ = q.Prepare(passInfo, false, false)
//	_ = q.Render(ctx, 0, rq.NumBuckets, false, false)
//	q.Clear()
//	q.FrameEnded()
//
// # Bucket Modes
//
// Each bucket is emitted by its Mode:
//
//   - ModeFast: vertex-array drawables batched into indirect draws
//   - ModeParticle: as ModeFast, plus per-drawable particle buffer binds
//   - ModeV1Fast: legacy render ops recorded into the stream
//   - ModeV1Legacy: legacy render ops drawn immediately on the device
//
// # Pipeline Compilation
//
// When the device reports MultithreadedCompile, missing pipelines are
// compiled by the compile package's worker queue while the stream is being
// recorded. Outside caster passes the workers stop at Config.PipelineTimeout;
// pipelines left incomplete are reported through
// Device.NotifyIncompletePipelines and requested again next frame.
// WarmUpCollect and WarmUpTrigger compile a frame's pipelines ahead of time
// without a deadline.
//
// # Backends
//
// The backend package keeps a registry of devices: "record" traces commands
// in memory, "wgpu" drives a gogpu/wgpu HAL render pass.
//
// # Logging
//
// rq is silent by default. Call SetLogger to route its slog output.
package rq
