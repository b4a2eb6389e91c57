package main

import (
	"math/rand/v2"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rq"
	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/material"
	"github.com/gogpu/wgpu/hal"
)

// Buckets the synthetic scene fills. They match rq.DefaultConfig.
const (
	opaqueBucket   = 10
	particleBucket = 15
	legacyBucket   = 100
	overlayBucket  = 230
)

const (
	sceneMeshes    = 24
	sceneMaterials = 12
)

// item is one object of the scene.
type item struct {
	d   *drawable.Drawable
	obj drawable.Object
}

// scene is a fixed set of objects re-submitted every frame.
type scene struct {
	items []item

	arrays, legacy, particles int
}

// buildScene creates n objects: mostly vertex-array meshes with a share of
// legacy ops, particle systems and transparent overlays. Meshes and
// materials are shared so the queue has something to batch.
func buildScene(n int, seed uint64) *scene {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	mats := make([]*drawable.Material, sceneMaterials)
	for i := range mats {
		transparent := i%5 == 4
		mats[i] = &drawable.Material{
			System:      uint8(material.Unlit),
			Macroblock:  [2]uint16{uint16(i % 3), 0}, //nolint:gosec // small
			Transparent: [2]bool{transparent, false},
			AlphaTest:   i%4 == 1,
			Name:        "mat",
		}
	}

	vaos := make([]*drawable.VertexArray, sceneMeshes)
	ops := make([]*drawable.RenderOp, sceneMeshes)
	for i := range vaos {
		name := uint32(i/4 + 1) //nolint:gosec // four meshes share a vertex source
		vaos[i] = &drawable.VertexArray{
			Name:          name,
			RenderQueueID: uint32(i), //nolint:gosec // small
			VertexBuffer:  hostBuffer{},
			IndexBuffer:   hostBuffer{},
			IndexFormat:   gputypes.IndexFormatUint16,
			IndexStart:    uint32(i * 36), //nolint:gosec // small
			PrimCount:     36,
			Topology:      gputypes.PrimitiveTopologyTriangleList,
		}
		ops[i] = &drawable.RenderOp{
			VertexData:   name,
			VertexBuffer: hostBuffer{},
			Topology:     gputypes.PrimitiveTopologyTriangleStrip,
			VertexStart:  uint32(i * 4), //nolint:gosec // small
			VertexCount:  4,
			MeshIndex:    uint32(i), //nolint:gosec // small
		}
	}
	particles := &drawable.ParticleData{ConstSize: 16, DataSize: 4096}

	s := &scene{items: make([]item, 0, n)}
	for i := range n {
		mi := r.IntN(sceneMeshes)
		mat := mats[r.IntN(sceneMaterials)]
		hash := uint32(1 + r.IntN(sceneMaterials)) //nolint:gosec // small
		obj := drawable.Object{Depth: r.Float32() * 500, Bucket: opaqueBucket}
		d := &drawable.Drawable{
			Material:   mat,
			Hash:       [2]uint32{hash, hash | 0x100},
			WorldIndex: uint32(i), //nolint:gosec // bounded by objects flag
		}

		switch roll := r.IntN(20); {
		case roll < 2:
			d.Kind = drawable.Particle
			d.VAOs = [2][]*drawable.VertexArray{{vaos[mi]}, {vaos[mi]}}
			d.Particles = particles
			obj.Bucket = particleBucket
			s.particles++
		case roll < 5:
			d.Kind = drawable.Legacy
			d.Op = [2]*drawable.RenderOp{ops[mi], nil}
			obj.Bucket = legacyBucket
			if roll == 4 {
				obj.Bucket = overlayBucket
			}
			s.legacy++
		default:
			d.Kind = drawable.Array
			d.VAOs = [2][]*drawable.VertexArray{{vaos[mi]}, {vaos[mi]}}
			s.arrays++
		}
		s.items = append(s.items, item{d: d, obj: obj})
	}
	return s
}

// submit collects every item into q on the queue's workers.
func (s *scene) submit(q *rq.RenderQueue, caster bool) {
	arena := q.Arena()
	q.Collect(len(s.items), func(thread, i int) {
		it := &s.items[i]
		if caster && it.obj.Bucket == particleBucket {
			// particles cast no shadows
			return
		}
		obj := it.obj
		dh := arena.Add(thread, it.d)
		oh := arena.AddObject(thread, &obj)
		q.Add(thread, obj.Bucket, caster, dh, oh)
	})
}

// hostBuffer stands in for GPU buffers on backends that never read them.
type hostBuffer struct{ hal.Buffer }

func passInfo() material.PassInfo {
	return material.PassInfo{
		Name:        "rqbench",
		ColorFormat: gputypes.TextureFormatBGRA8Unorm,
		DepthFormat: gputypes.TextureFormatDepth32Float,
		SampleCount: 1,
	}
}
