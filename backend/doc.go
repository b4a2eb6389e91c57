// Package backend provides a pluggable device abstraction for the render
// queue.
//
// A backend owns an rq.Device and its lifecycle. The queue itself never
// imports a backend; tools select one here and pass its Device to rq.New.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// Importing a backend package registers it:
//
//	import _ "github.com/gogpu/rq/backend/record"
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name:
//
//	// Get the default (best available) backend
//	b := backend.Default()
//
//	// Or request a specific backend
//	b := backend.Get(backend.BackendRecord)
//
// # Usage with the Queue
//
//	b, err := backend.InitDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	q, err := rq.New(b.Device(), materials, rq.DefaultConfig())
//
// # Available Backends
//
// - "record": in-memory command recorder (always available)
// - "wgpu": gogpu/wgpu HAL render pass; needs an attached device
package backend
