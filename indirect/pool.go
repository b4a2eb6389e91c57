// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package indirect pools the GPU buffers that hold indirect-draw descriptors.
//
// Buffers move between two sets: free, and in use this frame. Get picks the
// smallest free buffer large enough for the request (allocating a new one
// when none fits) and moves it to the in-use set. FrameEnded returns every
// in-use buffer to the free set; it is the only point where buffers are
// recycled, because the GPU may read them until the frame is retired.
//
// The pool is driven from a single orchestrating goroutine and performs no
// locking.
package indirect

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Errors returned by the pool.
var (
	// ErrNilAllocator is returned when a pool is created without an allocator.
	ErrNilAllocator = errors.New("indirect: allocator is nil")

	// ErrMapped is returned when mapping a buffer that is already mapped.
	ErrMapped = errors.New("indirect: buffer already mapped")
)

// Allocator creates and destroys GPU buffers. hal.Device satisfies it.
type Allocator interface {
	CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error)
	DestroyBuffer(buffer hal.Buffer)
}

// Uploader copies CPU data into a GPU buffer. hal.Queue satisfies it.
type Uploader interface {
	WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error
}

// Usage is the buffer usage of pooled buffers.
const Usage = gputypes.BufferUsageIndirect | gputypes.BufferUsageCopyDst

// Buffer is a pooled indirect buffer with a CPU shadow copy.
//
// Descriptors are written into the shadow while mapped; Unmap uploads the
// written prefix.
type Buffer struct {
	gpu    hal.Buffer
	shadow []byte
	id     int

	mapped  bool
	written int
}

// GPU returns the underlying GPU buffer.
func (b *Buffer) GPU() hal.Buffer { return b.gpu }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() int { return len(b.shadow) }

// ID returns the buffer's pool-assigned identifier.
func (b *Buffer) ID() int { return b.id }

// Bytes returns the CPU shadow. Backends without GPU-side indirect
// support decode descriptors from it.
func (b *Buffer) Bytes() []byte { return b.shadow }

// Mapped reports whether the buffer is mapped for writing.
func (b *Buffer) Mapped() bool { return b.mapped }

// Map returns a writer positioned at the start of the buffer.
func (b *Buffer) Map() (*Writer, error) {
	if b.mapped {
		return nil, ErrMapped
	}
	b.mapped = true
	b.written = 0
	return &Writer{buf: b}, nil
}

// Unmap ends writing and uploads the written bytes when up is not nil.
// Unmapping an unmapped buffer is a no-op.
func (b *Buffer) Unmap(up Uploader) error {
	if !b.mapped {
		return nil
	}
	b.mapped = false
	if up == nil || b.written == 0 || b.gpu == nil {
		return nil
	}
	if err := up.WriteBuffer(b.gpu, 0, b.shadow[:b.written]); err != nil {
		return fmt.Errorf("indirect: upload %d bytes: %w", b.written, err)
	}
	return nil
}

// Stats is a snapshot of pool usage.
type Stats struct {
	Free       int
	InUse      int
	Allocated  int
	FreeBytes  int
	InUseBytes int
}

// Pool owns every indirect buffer it hands out.
type Pool struct {
	alloc Allocator
	label string

	free []*Buffer
	used []*Buffer

	nextID    int
	allocated int
}

// NewPool creates an empty pool. Label is used for buffer debug names.
func NewPool(alloc Allocator, label string) (*Pool, error) {
	if alloc == nil {
		return nil, ErrNilAllocator
	}
	if label == "" {
		label = "rq-indirect"
	}
	return &Pool{alloc: alloc, label: label}, nil
}

// RequiredBytes returns the worst-case descriptor bytes for numDraws.
func RequiredBytes(numDraws int) int {
	return numDraws * DrawIndexedSize
}

// Get returns a buffer with room for numDraws descriptors and marks it in
// use until FrameEnded.
func (p *Pool) Get(numDraws int) (*Buffer, error) {
	required := RequiredBytes(numDraws)

	best := -1
	bestSize := math.MaxInt
	for i, b := range p.free {
		size := b.Size()
		if required <= size && size < bestSize {
			best = i
			bestSize = size
		}
	}

	if best < 0 {
		b, err := p.allocate(required)
		if err != nil {
			return nil, err
		}
		p.free = append(p.free, b)
		best = len(p.free) - 1
	}

	b := p.free[best]
	// Order of the free set does not matter.
	last := len(p.free) - 1
	p.free[best] = p.free[last]
	p.free[last] = nil
	p.free = p.free[:last]

	p.used = append(p.used, b)
	return b, nil
}

func (p *Pool) allocate(size int) (*Buffer, error) {
	if size == 0 {
		size = DrawIndexedSize
	}
	gpu, err := p.alloc.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("%s-%d", p.label, p.nextID),
		Size:  uint64(size),
		Usage: Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("indirect: create %d byte buffer: %w", size, err)
	}
	b := &Buffer{gpu: gpu, shadow: make([]byte, size), id: p.nextID}
	p.nextID++
	p.allocated++
	return b, nil
}

// FrameEnded returns every in-use buffer to the free set.
func (p *Pool) FrameEnded() {
	p.free = append(p.free, p.used...)
	clear(p.used)
	p.used = p.used[:0]
}

// Release unmaps and destroys every buffer, free and in use.
func (p *Pool) Release() {
	for _, set := range [][]*Buffer{p.used, p.free} {
		for _, b := range set {
			b.mapped = false
			if b.gpu != nil {
				p.alloc.DestroyBuffer(b.gpu)
			}
		}
	}
	p.used = nil
	p.free = nil
	p.allocated = 0
}

// Free returns the free buffers. The slice must not be modified.
func (p *Pool) Free() []*Buffer { return p.free }

// InUse returns the buffers in use this frame. The slice must not be modified.
func (p *Pool) InUse() []*Buffer { return p.used }

// Contains reports which set holds b.
func (p *Pool) Contains(b *Buffer) (free, inUse bool) {
	return slices.Contains(p.free, b), slices.Contains(p.used, b)
}

// Stats returns a snapshot of pool usage.
func (p *Pool) Stats() Stats {
	s := Stats{Free: len(p.free), InUse: len(p.used), Allocated: p.allocated}
	for _, b := range p.free {
		s.FreeBytes += b.Size()
	}
	for _, b := range p.used {
		s.InUseBytes += b.Size()
	}
	return s
}
