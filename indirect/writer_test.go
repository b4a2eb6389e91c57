package indirect

import (
	"encoding/binary"
	"testing"
)

func mappedBuffer(t *testing.T, draws int) (*Buffer, *Writer) {
	t.Helper()
	p, _ := newTestPool(t)
	b, err := p.Get(draws)
	if err != nil {
		t.Fatal(err)
	}
	w, err := b.Map()
	if err != nil {
		t.Fatal(err)
	}
	return b, w
}

func TestWriterIndexedLayout(t *testing.T) {
	b, w := mappedBuffer(t, 2)

	at := w.WriteIndexed(DrawIndexed{
		PrimCount:        36,
		InstanceCount:    2,
		FirstVertexIndex: 12,
		BaseVertex:       -4,
		BaseInstance:     7,
	})
	if at != 0 || w.Offset() != DrawIndexedSize {
		t.Fatalf("offsets = (%d, %d), want (0, %d)", at, w.Offset(), DrawIndexedSize)
	}

	raw := b.Bytes()
	want := []uint32{36, 2, 12, 0xfffffffc, 7}
	for i, v := range want {
		if got := binary.LittleEndian.Uint32(raw[i*4:]); got != v {
			t.Errorf("word %d = %#x, want %#x", i, got, v)
		}
	}

	got := ReadIndexed(raw, 0)
	if got.BaseVertex != -4 || got.PrimCount != 36 || got.BaseInstance != 7 {
		t.Errorf("ReadIndexed() = %+v", got)
	}
}

func TestWriterStripLayout(t *testing.T) {
	b, w := mappedBuffer(t, 2)
	w.WriteIndexed(DrawIndexed{PrimCount: 1})
	at := w.WriteStrip(DrawStrip{PrimCount: 6, InstanceCount: 1, FirstVertexIndex: 3, BaseInstance: 9})

	if at != DrawIndexedSize {
		t.Errorf("strip offset = %d, want %d", at, DrawIndexedSize)
	}
	got := ReadStrip(b.Bytes(), at)
	want := DrawStrip{PrimCount: 6, InstanceCount: 1, FirstVertexIndex: 3, BaseInstance: 9}
	if got != want {
		t.Errorf("ReadStrip() = %+v, want %+v", got, want)
	}
}

func TestWriterAddInstances(t *testing.T) {
	b, w := mappedBuffer(t, 2)
	idx := w.WriteIndexed(DrawIndexed{PrimCount: 3, InstanceCount: 1})
	strip := w.WriteStrip(DrawStrip{PrimCount: 4, InstanceCount: 2})

	w.AddInstances(idx, 1)
	w.AddInstances(idx, 1)
	w.AddInstances(strip, 2)

	if got := ReadIndexed(b.Bytes(), idx).InstanceCount; got != 3 {
		t.Errorf("indexed InstanceCount = %d, want 3", got)
	}
	if got := ReadStrip(b.Bytes(), strip).InstanceCount; got != 4 {
		t.Errorf("strip InstanceCount = %d, want 4", got)
	}
}
