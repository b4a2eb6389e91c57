package drawable

import "fmt"

// Handle refers to a Drawable registered in an Arena.
// The zero Handle is invalid.
type Handle struct {
	slab  uint16
	index uint32
	gen   uint32
}

// ObjectHandle refers to an Object registered in an Arena.
type ObjectHandle struct {
	slab  uint16
	index uint32
	gen   uint32
}

// IsValid reports whether h was returned by an Arena.
func (h Handle) IsValid() bool { return h.index != 0 }

// IsValid reports whether h was returned by an Arena.
func (h ObjectHandle) IsValid() bool { return h.index != 0 }

// pinnedGen marks handles that survive Reset.
const pinnedGen = 0

// table is a set of per-thread slabs plus one pinned slab at the end.
// Index 0 of every slab is reserved so the zero handle is invalid.
type table[T any] struct {
	slabs [][]*T
}

func newTable[T any](threads int) table[T] {
	t := table[T]{slabs: make([][]*T, threads+1)}
	for i := range t.slabs {
		t.slabs[i] = []*T{nil}
	}
	return t
}

func (t *table[T]) pinned() int { return len(t.slabs) - 1 }

func (t *table[T]) add(slab int, v *T) uint32 {
	t.slabs[slab] = append(t.slabs[slab], v)
	return uint32(len(t.slabs[slab]) - 1)
}

func (t *table[T]) get(slab uint16, index uint32) (*T, bool) {
	if int(slab) >= len(t.slabs) {
		return nil, false
	}
	s := t.slabs[slab]
	if index == 0 || int(index) >= len(s) {
		return nil, false
	}
	return s[index], true
}

func (t *table[T]) reset() {
	for i := 0; i < t.pinned(); i++ {
		clear(t.slabs[i])
		t.slabs[i] = t.slabs[i][:1]
	}
}

// Arena holds the per-frame references between queue entries and the scene.
//
// Each collection thread registers into its own slab, so Add and AddObject
// need no locking as long as every thread passes a distinct index. Reset
// bumps the generation: any handle taken before it panics on use instead of
// reaching a drawable the scene may have released.
//
// Pinned drawables and objects live until Unpin or the arena is discarded.
type Arena struct {
	gen       uint32
	drawables table[Drawable]
	objects   table[Object]
}

// NewArena creates an arena with one slab per collection thread.
func NewArena(threads int) *Arena {
	if threads < 1 {
		threads = 1
	}
	return &Arena{
		gen:       1,
		drawables: newTable[Drawable](threads),
		objects:   newTable[Object](threads),
	}
}

// Threads returns the number of collection slabs.
func (a *Arena) Threads() int { return a.drawables.pinned() }

// Generation returns the current frame generation.
func (a *Arena) Generation() uint32 { return a.gen }

// Add registers d for the current frame from the given thread.
func (a *Arena) Add(thread int, d *Drawable) Handle {
	idx := a.drawables.add(thread, d)
	return Handle{slab: uint16(thread), index: idx, gen: a.gen}
}

// AddObject registers o for the current frame from the given thread.
func (a *Arena) AddObject(thread int, o *Object) ObjectHandle {
	idx := a.objects.add(thread, o)
	return ObjectHandle{slab: uint16(thread), index: idx, gen: a.gen}
}

// Pin registers d in the persistent slab. Pinned handles stay valid
// across Reset. Pinning is not safe concurrently with itself.
func (a *Arena) Pin(d *Drawable) Handle {
	slab := a.drawables.pinned()
	idx := a.drawables.add(slab, d)
	return Handle{slab: uint16(slab), index: idx, gen: pinnedGen}
}

// PinObject registers o in the persistent slab.
func (a *Arena) PinObject(o *Object) ObjectHandle {
	slab := a.objects.pinned()
	idx := a.objects.add(slab, o)
	return ObjectHandle{slab: uint16(slab), index: idx, gen: pinnedGen}
}

// Get resolves h. It panics on an invalid or stale handle.
func (a *Arena) Get(h Handle) *Drawable {
	a.check(h.slab, h.gen, int(a.drawables.pinned()), "drawable")
	d, ok := a.drawables.get(h.slab, h.index)
	if !ok {
		panic(fmt.Sprintf("drawable: invalid drawable handle %d/%d", h.slab, h.index))
	}
	return d
}

// Object resolves h. It panics on an invalid or stale handle.
func (a *Arena) Object(h ObjectHandle) *Object {
	a.check(h.slab, h.gen, int(a.objects.pinned()), "object")
	o, ok := a.objects.get(h.slab, h.index)
	if !ok {
		panic(fmt.Sprintf("drawable: invalid object handle %d/%d", h.slab, h.index))
	}
	return o
}

func (a *Arena) check(slab uint16, gen uint32, pinned int, what string) {
	if int(slab) == pinned {
		return
	}
	if gen != a.gen {
		panic(fmt.Sprintf("drawable: stale %s handle (generation %d, arena at %d)", what, gen, a.gen))
	}
}

// Len returns the number of per-frame drawables registered.
func (a *Arena) Len() int {
	n := 0
	for i := 0; i < a.drawables.pinned(); i++ {
		n += len(a.drawables.slabs[i]) - 1
	}
	return n
}

// Reset drops every per-frame registration and invalidates their handles.
func (a *Arena) Reset() {
	a.drawables.reset()
	a.objects.reset()
	a.gen++
	if a.gen == pinnedGen {
		a.gen++
	}
}
