package rq

import (
	"fmt"
	"runtime"

	"github.com/gogpu/rq/command"
	"github.com/gogpu/rq/compile"
	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/indirect"
	"github.com/gogpu/rq/internal/parallel"
	"github.com/gogpu/rq/material"
	"github.com/gogpu/rq/pso"
	"github.com/gogpu/rq/sortkey"
)

// noEntry stands for "no pipeline bound". Its zero hash never matches a
// resolved entry.
var noEntry = &pso.Entry{}

// RenderQueue sorts drawables into buckets and emits them to a Device.
//
// Add and Collect may run on several goroutines as long as each passes its
// own thread index. Every other method must be called from the goroutine
// that renders.
type RenderQueue struct {
	dev       Device
	caps      Capabilities
	up        indirect.Uploader
	materials *material.Manager
	cfg       Config

	buckets [NumBuckets]bucket

	arena    *drawable.Arena
	pool     *indirect.Pool
	cmds     *command.Buffer
	compiler *compile.Queue
	workers  *parallel.WorkerPool

	passInfo material.PassInfo
	passes   [material.NumTypes]*material.PassCache

	// writer is the mapped indirect buffer during Render.
	writer *indirect.Writer

	lastCaster      bool
	lastVaoName     uint32
	lastVertexData  uint32
	lastIndexData   uint32
	lastTextureHash uint32

	renderingStarted int

	instancesPerDraw  uint32
	baseInstanceShift uint32
}

// New creates a render queue drawing to dev with the material systems of
// materials.
func New(dev Device, materials *material.Manager, cfg Config) (*RenderQueue, error) {
	if dev == nil {
		return nil, ErrNoDevice
	}
	if materials == nil {
		return nil, ErrNoMaterials
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	caps := dev.Capabilities()
	if cfg.InstancedStereo && !caps.InstancedStereo {
		return nil, fmt.Errorf("%w: instanced stereo not supported by the device", ErrInvalidConfig)
	}

	threads := cfg.Workers
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	compileWorkers := threads
	if caps.Workers > 0 {
		compileWorkers = min(compileWorkers, caps.Workers)
	}

	pool, err := indirect.NewPool(dev, cfg.IndirectLabel)
	if err != nil {
		return nil, fmt.Errorf("rq: indirect pool: %w", err)
	}

	q := &RenderQueue{
		dev:              dev,
		caps:             caps,
		materials:        materials,
		cfg:              cfg,
		arena:            drawable.NewArena(threads),
		pool:             pool,
		cmds:             command.NewBuffer(256),
		compiler:         compile.New(compileWorkers),
		workers:          parallel.NewWorkerPool(threads),
		instancesPerDraw: 1,
	}
	if up, ok := dev.(indirect.Uploader); ok {
		q.up = up
	}
	if cfg.InstancedStereo {
		q.instancesPerDraw = 2
		q.baseInstanceShift = 1
	}

	modes := cfg.modes()
	for i := range q.buckets {
		q.buckets[i].mode = modes[i]
		q.buckets[i].perThread = make([][]entry, threads)
	}

	Logger().Debug("rq: queue created",
		"threads", threads,
		"compileWorkers", compileWorkers,
		"drawMode", caps.DrawMode().String())
	return q, nil
}

// SetMode sets the emission mode of a bucket.
func (q *RenderQueue) SetMode(id uint8, m Mode) { q.buckets[id].mode = m }

// Mode returns the emission mode of a bucket.
func (q *RenderQueue) Mode(id uint8) Mode { return q.buckets[id].mode }

// SetSortMode sets the sort mode of a bucket.
func (q *RenderQueue) SetSortMode(id uint8, s SortMode) { q.buckets[id].sort = s }

// SortMode returns the sort mode of a bucket.
func (q *RenderQueue) SortMode(id uint8) SortMode { return q.buckets[id].sort }

// Add queues a drawable into bucket from the given collection thread.
//
// It panics when the object belongs to another bucket or the bucket has
// already been sorted this frame.
func (q *RenderQueue) Add(thread int, id uint8, caster bool, dh drawable.Handle, oh drawable.ObjectHandle) {
	d := q.arena.Get(dh)
	obj := q.arena.Object(oh)
	if obj.Bucket != id {
		panic(fmt.Errorf("%w: %q is in bucket %d, added to %d", ErrBucketMismatch, obj.Name, obj.Bucket, id))
	}
	b := &q.buckets[id]
	if b.sorted {
		panic(fmt.Errorf("%w: bucket %d", ErrBucketSorted, id))
	}

	pass := drawable.Pass(caster)
	var f sortkey.Fields
	f.SubGroup = d.SubGroup
	f.Shader = d.Hash[pass]
	f.Mesh = d.MeshID(caster, obj.MeshLod)
	f.Depth = obj.Depth
	if m := d.Material; m != nil {
		f.Transparent = m.Transparent[pass]
		f.Macroblock = m.Macroblock[pass]
		f.Texture = m.TextureHash
	}
	b.perThread[thread] = append(b.perThread[thread], entry{key: sortkey.Encode(f), d: dh, obj: oh})
}

// AddLegacy queues a drawable from thread 0.
func (q *RenderQueue) AddLegacy(id uint8, caster bool, dh drawable.Handle, oh drawable.ObjectHandle) {
	q.Add(0, id, caster, dh, oh)
}

// Collect runs fn for items 0..n-1 on the collection workers. The thread
// argument is the index to pass to Arena().Add and Add.
func (q *RenderQueue) Collect(n int, fn func(thread, item int)) {
	q.workers.ForEach(n, fn)
}

// Clear empties every bucket.
func (q *RenderQueue) Clear() {
	for i := range q.buckets {
		q.buckets[i].clear()
	}
}

// ClearState forgets the bound state so the next render rebinds
// everything.
func (q *RenderQueue) ClearState() {
	q.lastCaster = false
	q.clearState()
}

func (q *RenderQueue) clearState() {
	q.lastVaoName = 0
	q.lastVertexData = 0
	q.lastIndexData = 0
	q.lastTextureHash = 0
}

// Prepare opens a pass: every material system prepares its pass cache.
// Each Prepare is closed by one Render or WarmUpCollect.
func (q *RenderQueue) Prepare(info material.PassInfo, caster, dualParaboloid bool) error {
	var err error
	q.materials.Each(func(s material.System) {
		if err != nil {
			return
		}
		pc, perr := s.PreparePass(info, caster, dualParaboloid)
		if perr != nil {
			err = fmt.Errorf("rq: prepare %s pass: %w", s.Type(), perr)
			return
		}
		q.passes[s.Type()] = pc
	})
	if err != nil {
		return err
	}
	q.passInfo = info
	q.renderingStarted++
	return nil
}

// system returns the material system and prepared pass of d.
func (q *RenderQueue) system(d *drawable.Drawable) (material.System, *material.PassCache, error) {
	if d.Material == nil {
		return nil, nil, fmt.Errorf("rq: drawable %q has no material", d.Name)
	}
	sys := q.materials.Lookup(d.Material.System)
	if sys == nil {
		return nil, nil, fmt.Errorf("rq: drawable %q system %d: %w", d.Name, d.Material.System, material.ErrUnknownSystem)
	}
	pass := q.passes[sys.Type()]
	if pass == nil {
		return nil, nil, fmt.Errorf("rq: %s: %w", sys.Type(), ErrNotPrepared)
	}
	return sys, pass, nil
}

// FrameEnded recycles this frame's indirect buffers and invalidates the
// arena's per-frame handles. It panics while a pass is open.
func (q *RenderQueue) FrameEnded() {
	if q.renderingStarted != 0 {
		panic(fmt.Errorf("%w: %d passes open", ErrMidRender, q.renderingStarted))
	}
	q.pool.FrameEnded()
	q.arena.Reset()
}

// Release destroys the pooled indirect buffers.
func (q *RenderQueue) Release() {
	q.pool.Release()
}

// Close releases the pooled buffers and stops the collection workers.
func (q *RenderQueue) Close() {
	q.Release()
	q.workers.Close()
}

// Arena returns the per-frame drawable arena.
func (q *RenderQueue) Arena() *drawable.Arena { return q.arena }

// Pool returns the indirect buffer pool.
func (q *RenderQueue) Pool() *indirect.Pool { return q.pool }

// RenderingStarted returns the number of open passes.
func (q *RenderQueue) RenderingStarted() int { return q.renderingStarted }

// Threads returns the number of collection threads.
func (q *RenderQueue) Threads() int { return q.arena.Threads() }

// Len returns the entries queued in bucket id.
func (q *RenderQueue) Len(id uint8) int { return q.buckets[id].count() }

// parallelCompile reports whether pipelines compile on the compile queue.
func (q *RenderQueue) parallelCompile() bool {
	return q.caps.MultithreadedCompile && q.compiler.Workers() > 1
}
