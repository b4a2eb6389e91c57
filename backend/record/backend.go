package record

import (
	"sync"

	"github.com/gogpu/rq"
	"github.com/gogpu/rq/backend"
)

// DefaultCapabilities is what the registered backend reports: GPU-side
// indirect draws with multithreaded compilation.
var DefaultCapabilities = rq.Capabilities{
	Indirect:             true,
	BaseInstance:         true,
	MultithreadedCompile: true,
}

func init() {
	backend.Register(backend.BackendRecord, func() backend.RenderBackend {
		return NewBackend(DefaultCapabilities)
	})
}

// Backend wraps a recording Device.
type Backend struct {
	mu   sync.Mutex
	caps rq.Capabilities
	dev  *Device
}

// NewBackend creates a backend whose device reports caps.
func NewBackend(caps rq.Capabilities) *Backend {
	return &Backend{caps: caps}
}

// Name implements backend.RenderBackend.
func (b *Backend) Name() string { return backend.BackendRecord }

// Init implements backend.RenderBackend.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev == nil {
		b.dev = New(b.caps)
	}
	return nil
}

// Close implements backend.RenderBackend.
func (b *Backend) Close() {
	b.mu.Lock()
	b.dev = nil
	b.mu.Unlock()
}

// Device implements backend.RenderBackend.
func (b *Backend) Device() rq.Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev == nil {
		return nil
	}
	return b.dev
}

// Recorder returns the concrete device, or nil before Init.
func (b *Backend) Recorder() *Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dev
}
