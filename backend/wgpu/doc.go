// Package wgpu provides an rq.Device backed by the gogpu/wgpu HAL.
//
// The device replays the render queue's command stream into a
// hal.RenderPassEncoder. Indirect draws read their descriptors straight
// from the pooled GPU buffer when the device reports Indirect; otherwise
// the CPU shadow of the buffer is decoded into plain draws.
//
// # Device Sharing
//
// The backend never creates a GPU device. It uses one owned by the host
// application, passed either as HAL objects:
//
//	dev := wgpu.NewDevice(halDevice, halQueue, wgpu.DefaultCapabilities)
//
// or through a gpucontext.DeviceProvider whose concrete type also
// exposes HalDevice() and HalQueue():
//
//	b := backend.Get(backend.BackendWGPU).(*wgpu.Backend)
//	if err := b.Attach(provider); err != nil {
//		return err
//	}
//
// # Per-Pass Use
//
//	dev.Begin(pass)
//	err := q.Render(ctx, 0, rq.NumBuckets, false, false)
//	dev.End()
//
// Pipelines are built by PipelineFactory, which plugs into pso.Cache.
package wgpu
