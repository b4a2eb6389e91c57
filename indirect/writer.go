// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package indirect

import "encoding/binary"

// Descriptor sizes in bytes. The layouts match the WebGPU indirect argument
// structs, so a backend can point the GPU straight at them.
const (
	DrawIndexedSize = 20
	DrawStripSize   = 16
)

// instanceCountOffset is the byte offset of InstanceCount in both layouts.
const instanceCountOffset = 4

// DrawIndexed is an indexed indirect draw descriptor.
type DrawIndexed struct {
	PrimCount        uint32
	InstanceCount    uint32
	FirstVertexIndex uint32
	BaseVertex       int32
	BaseInstance     uint32
}

// DrawStrip is a non-indexed indirect draw descriptor.
type DrawStrip struct {
	PrimCount        uint32
	InstanceCount    uint32
	FirstVertexIndex uint32
	BaseInstance     uint32
}

// Writer appends descriptors to a mapped Buffer.
type Writer struct {
	buf *Buffer
	off int
}

// Offset returns the byte offset the next descriptor will be written at.
func (w *Writer) Offset() int { return w.off }

// Buffer returns the buffer being written.
func (w *Writer) Buffer() *Buffer { return w.buf }

func (w *Writer) advance(n int) []byte {
	b := w.buf.shadow[w.off : w.off+n]
	w.off += n
	if w.off > w.buf.written {
		w.buf.written = w.off
	}
	return b
}

// WriteIndexed appends d and returns its offset.
func (w *Writer) WriteIndexed(d DrawIndexed) int {
	at := w.off
	b := w.advance(DrawIndexedSize)
	binary.LittleEndian.PutUint32(b[0:], d.PrimCount)
	binary.LittleEndian.PutUint32(b[4:], d.InstanceCount)
	binary.LittleEndian.PutUint32(b[8:], d.FirstVertexIndex)
	binary.LittleEndian.PutUint32(b[12:], uint32(d.BaseVertex))
	binary.LittleEndian.PutUint32(b[16:], d.BaseInstance)
	return at
}

// WriteStrip appends d and returns its offset.
func (w *Writer) WriteStrip(d DrawStrip) int {
	at := w.off
	b := w.advance(DrawStripSize)
	binary.LittleEndian.PutUint32(b[0:], d.PrimCount)
	binary.LittleEndian.PutUint32(b[4:], d.InstanceCount)
	binary.LittleEndian.PutUint32(b[8:], d.FirstVertexIndex)
	binary.LittleEndian.PutUint32(b[12:], d.BaseInstance)
	return at
}

// AddInstances adds n to the instance count of the descriptor at offset at.
func (w *Writer) AddInstances(at int, n uint32) {
	b := w.buf.shadow[at+instanceCountOffset:]
	binary.LittleEndian.PutUint32(b, binary.LittleEndian.Uint32(b)+n)
}

// ReadIndexed decodes the DrawIndexed descriptor at offset at.
func ReadIndexed(data []byte, at int) DrawIndexed {
	b := data[at : at+DrawIndexedSize]
	return DrawIndexed{
		PrimCount:        binary.LittleEndian.Uint32(b[0:]),
		InstanceCount:    binary.LittleEndian.Uint32(b[4:]),
		FirstVertexIndex: binary.LittleEndian.Uint32(b[8:]),
		BaseVertex:       int32(binary.LittleEndian.Uint32(b[12:])),
		BaseInstance:     binary.LittleEndian.Uint32(b[16:]),
	}
}

// ReadStrip decodes the DrawStrip descriptor at offset at.
func ReadStrip(data []byte, at int) DrawStrip {
	b := data[at : at+DrawStripSize]
	return DrawStrip{
		PrimCount:        binary.LittleEndian.Uint32(b[0:]),
		InstanceCount:    binary.LittleEndian.Uint32(b[4:]),
		FirstVertexIndex: binary.LittleEndian.Uint32(b[8:]),
		BaseInstance:     binary.LittleEndian.Uint32(b[12:]),
	}
}
