package backend

import (
	"errors"

	"github.com/gogpu/rq"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrNoDevice is returned by Init when a backend has no GPU device
	// attached.
	ErrNoDevice = errors.New("backend: no device attached")
)

// Backend names.
const (
	// BackendWGPU drives a gogpu/wgpu HAL render pass.
	BackendWGPU = "wgpu"

	// BackendRecord records commands in memory without a GPU.
	BackendRecord = "record"
)

// RenderBackend is the interface for rendering backends.
// It wraps an rq.Device together with its lifecycle, so tools can pick
// a device by name.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type RenderBackend interface {
	// Name returns the backend identifier (e.g., "record", "wgpu").
	Name() string

	// Init initializes the backend.
	// This should be called before Device.
	Init() error

	// Close releases all backend resources.
	// The backend should not be used after Close is called.
	Close()

	// Device returns the device the render queue drives. It returns nil
	// before a successful Init.
	Device() rq.Device
}
