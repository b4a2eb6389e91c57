package drawable

import (
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
)

func mustPanic(t *testing.T, substr string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", substr)
		}
		if s, ok := r.(string); ok && !strings.Contains(s, substr) {
			t.Fatalf("panic = %q, want it to contain %q", s, substr)
		}
	}()
	fn()
}

func TestArenaAddGet(t *testing.T) {
	a := NewArena(2)
	d := &Drawable{Name: "cube"}
	o := &Object{Name: "node", Bucket: 3}

	h := a.Add(1, d)
	oh := a.AddObject(1, o)

	if !h.IsValid() || !oh.IsValid() {
		t.Fatal("handles returned by Add should be valid")
	}
	if got := a.Get(h); got != d {
		t.Errorf("Get() = %p, want %p", got, d)
	}
	if got := a.Object(oh); got != o {
		t.Errorf("Object() = %p, want %p", got, o)
	}
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1", a.Len())
	}
}

func TestArenaStaleHandlePanics(t *testing.T) {
	a := NewArena(1)
	h := a.Add(0, &Drawable{})
	oh := a.AddObject(0, &Object{})
	a.Reset()

	mustPanic(t, "stale drawable handle", func() { a.Get(h) })
	mustPanic(t, "stale object handle", func() { a.Object(oh) })
}

func TestArenaZeroHandlePanics(t *testing.T) {
	a := NewArena(1)
	mustPanic(t, "stale drawable handle", func() { a.Get(Handle{}) })
	mustPanic(t, "invalid drawable handle", func() { a.Get(Handle{gen: a.Generation()}) })
}

func TestArenaPinnedSurvivesReset(t *testing.T) {
	a := NewArena(2)
	d := &Drawable{Name: "sky"}
	o := &Object{Name: "sky-node"}
	h := a.Pin(d)
	oh := a.PinObject(o)

	for range 3 {
		a.Reset()
	}
	if a.Get(h) != d || a.Object(oh) != o {
		t.Error("pinned handles should resolve after Reset")
	}
	if a.Len() != 0 {
		t.Errorf("Len() = %d, want 0 (pinned drawables are not per-frame)", a.Len())
	}
}

func TestArenaConcurrentThreads(t *testing.T) {
	const threads = 4
	const perThread = 500
	a := NewArena(threads)

	handles := make([][]Handle, threads)
	var wg sync.WaitGroup
	for th := range threads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perThread {
				handles[th] = append(handles[th], a.Add(th, &Drawable{WorldIndex: uint32(th*perThread + i)}))
			}
		}()
	}
	wg.Wait()

	for th := range threads {
		for i, h := range handles[th] {
			if got := a.Get(h).WorldIndex; got != uint32(th*perThread+i) {
				t.Fatalf("thread %d item %d: WorldIndex = %d", th, i, got)
			}
		}
	}
	if a.Len() != threads*perThread {
		t.Errorf("Len() = %d, want %d", a.Len(), threads*perThread)
	}
}

func TestDrawableCapabilities(t *testing.T) {
	mat := &Material{}
	vao := &VertexArray{Name: 7, RenderQueueID: 42, Topology: gputypes.PrimitiveTopologyTriangleList}
	shadowVao := &VertexArray{Name: 8, RenderQueueID: 43}
	arr := &Drawable{
		Kind:     Array,
		Material: mat,
		Hash:     [2]uint32{10, 20},
		VAOs:     [2][]*VertexArray{{vao}, {shadowVao}},
	}

	if arr.SortingHash(false) != 10 || arr.SortingHash(true) != 20 {
		t.Errorf("SortingHash = (%d, %d), want (10, 20)", arr.SortingHash(false), arr.SortingHash(true))
	}
	if arr.MeshID(false, 0) != 42 || arr.MeshID(true, 0) != 43 {
		t.Errorf("MeshID = (%d, %d), want (42, 43)", arr.MeshID(false, 0), arr.MeshID(true, 0))
	}
	mustPanic(t, "mesh LOD not set", func() { arr.VertexArray(false, 3) })

	normal := &RenderOp{MeshIndex: 5}
	caster := &RenderOp{MeshIndex: 6}
	legacy := &Drawable{Kind: Legacy, Material: mat, Op: [2]*RenderOp{normal, caster}}
	if legacy.RenderOp(true) != caster {
		t.Error("caster pass should use the caster op")
	}
	mat.AlphaTest = true
	if legacy.RenderOp(true) != normal {
		t.Error("alpha-tested caster pass should use the normal op")
	}
	if legacy.MeshID(false, 0) != 5 {
		t.Errorf("legacy MeshID = %d, want 5", legacy.MeshID(false, 0))
	}
}

func TestRenderOpEqual(t *testing.T) {
	a := &RenderOp{VertexData: 1, IndexData: 2, Topology: gputypes.PrimitiveTopologyTriangleList}
	b := *a
	b.VertexCount = 99
	if !a.Equal(&b) {
		t.Error("ops differing only in ranges should bind the same state")
	}
	b.IndexData = 3
	if a.Equal(&b) {
		t.Error("ops with different index data should not be equal")
	}
	var nilOp *RenderOp
	if !nilOp.Equal(nil) || nilOp.Equal(a) {
		t.Error("nil op comparison is wrong")
	}
}

func TestKindString(t *testing.T) {
	if Particle.String() != "Particle" || Kind(9).String() != "Unknown" {
		t.Errorf("Kind.String() = %q, %q", Particle.String(), Kind(9).String())
	}
}
