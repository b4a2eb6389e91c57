// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/rq"
	"github.com/gogpu/rq/backend"
	"github.com/gogpu/wgpu/hal"
)

func init() {
	backend.Register(backend.BackendWGPU, func() backend.RenderBackend {
		return &Backend{caps: DefaultCapabilities}
	})
}

// halProvider is implemented by device providers that expose their HAL
// objects.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// Backend shares a GPU device owned by the host application. Init fails
// with backend.ErrNoDevice until a device is attached.
type Backend struct {
	mu       sync.Mutex
	caps     rq.Capabilities
	dev      *Device
	inited   bool
	adapter  gpucontext.AdapterInfo
	attached bool
}

// NewFromProvider creates a backend attached to provider's device.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Backend, error) {
	b := &Backend{caps: DefaultCapabilities}
	if err := b.Attach(provider); err != nil {
		return nil, err
	}
	return b, nil
}

// Attach switches the backend to provider's device. The provider's
// concrete type must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue. Software adapters draw without
// GPU-side indirect.
func (b *Backend) Attach(provider gpucontext.DeviceProvider) error {
	if provider == nil {
		return fmt.Errorf("wgpu: attach: %w", backend.ErrNoDevice)
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}

	info := provider.AdapterInfo()
	caps := b.caps
	if info.Type == gpucontext.AdapterTypeSoftware {
		caps.Indirect = false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.dev = NewDevice(device, queue, caps)
	b.adapter = info
	b.attached = true
	rq.Logger().Info("wgpu: device attached", "adapter", info.Name, "indirect", caps.Indirect)
	return nil
}

// AttachHAL attaches HAL objects directly.
func (b *Backend) AttachHAL(device hal.Device, queue hal.Queue) error {
	if device == nil || queue == nil {
		return fmt.Errorf("wgpu: attach: %w", backend.ErrNoDevice)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dev = NewDevice(device, queue, b.caps)
	b.attached = true
	return nil
}

// Name implements backend.RenderBackend.
func (b *Backend) Name() string { return backend.BackendWGPU }

// Init implements backend.RenderBackend.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return backend.ErrNoDevice
	}
	b.inited = true
	return nil
}

// Close implements backend.RenderBackend. The shared device is not
// destroyed; the host owns it.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev != nil {
		b.dev.End()
	}
	b.dev = nil
	b.inited = false
	b.attached = false
}

// Device implements backend.RenderBackend.
func (b *Backend) Device() rq.Device {
	if d := b.HAL(); d != nil {
		return d
	}
	return nil
}

// HAL returns the concrete device after Init, or nil.
func (b *Backend) HAL() *Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inited {
		return nil
	}
	return b.dev
}

// Adapter returns the adapter info reported by the provider.
func (b *Backend) Adapter() gpucontext.AdapterInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.adapter
}
