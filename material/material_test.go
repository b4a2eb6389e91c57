package material

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rq/command"
	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/pso"
	"github.com/gogpu/wgpu/hal"
)

const spirvMagic = 0x07230203

type fakeCompiler struct {
	calls atomic.Int32
	err   error
}

func (c *fakeCompiler) compile(src string) ([]uint32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []uint32{spirvMagic, uint32(len(src))}, nil
}

type recordingScheduler struct {
	reqs []Request
}

func (s *recordingScheduler) Enqueue(req Request) { s.reqs = append(s.reqs, req) }

type fakeBindGroup struct{ hal.BindGroup }

type fakeBuffer struct{ hal.Buffer }

type fakeUploader struct {
	data []byte
}

func (u *fakeUploader) WriteBuffer(_ hal.Buffer, _ uint64, data []byte) error {
	u.data = append([]byte(nil), data...)
	return nil
}

func newTestStandard(t *testing.T, c *fakeCompiler) *Standard {
	t.Helper()
	s, err := NewStandard(PBS, StandardOptions{Compiler: c.compile})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func testDrawable(hash uint32) *drawable.Drawable {
	vao := &drawable.VertexArray{Name: 1, RenderQueueID: 1, PrimCount: 3,
		Topology: gputypes.PrimitiveTopologyTriangleList}
	return &drawable.Drawable{
		Kind:     drawable.Array,
		Material: &drawable.Material{System: uint8(PBS)},
		Hash:     [2]uint32{hash, hash + 1000},
		VAOs:     [2][]*drawable.VertexArray{{vao}, {vao}},
	}
}

func testPass() PassInfo {
	return PassInfo{
		Name:        "main",
		ColorFormat: gputypes.TextureFormatBGRA8Unorm,
		DepthFormat: gputypes.TextureFormatDepth32Float,
		SampleCount: 1,
	}
}

func TestTypeString(t *testing.T) {
	if PBS.String() != "PBS" || Particle.String() != "Particle" || NumTypes.String() != "Unknown" {
		t.Error("Type.String() mismatch")
	}
}

func TestManager(t *testing.T) {
	c := &fakeCompiler{}
	s := newTestStandard(t, c)

	m, err := NewManager(s)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := m.Get(PBS); err != nil || got != System(s) {
		t.Errorf("Get(PBS) = %v, %v", got, err)
	}
	if _, err := m.Get(Unlit); !errors.Is(err, ErrUnknownSystem) {
		t.Errorf("Get(Unlit) error = %v, want ErrUnknownSystem", err)
	}
	if m.Lookup(uint8(PBS)) != System(s) || m.Lookup(200) != nil {
		t.Error("Lookup mismatch")
	}
	if err := m.Register(nil); !errors.Is(err, ErrNilSystem) {
		t.Errorf("Register(nil) error = %v", err)
	}

	n := 0
	m.Each(func(System) { n++ })
	if n != 1 {
		t.Errorf("Each visited %d systems, want 1", n)
	}
}

func TestHashPass(t *testing.T) {
	base := HashPass(PBS, testPass(), false, false)
	if base == 0 {
		t.Fatal("HashPass returned 0")
	}
	other := testPass()
	other.ShadowNodeHash = 7
	tests := []struct {
		name string
		hash uint32
	}{
		{"caster", HashPass(PBS, testPass(), true, false)},
		{"dual paraboloid", HashPass(PBS, testPass(), false, true)},
		{"system", HashPass(Unlit, testPass(), false, false)},
		{"shadow node", HashPass(PBS, other, false, false)},
	}
	for _, tt := range tests {
		if tt.hash == base {
			t.Errorf("%s: hash unchanged", tt.name)
		}
	}
	if FinalHash(base, 1) == FinalHash(base, 2) {
		t.Error("FinalHash ignores the drawable hash")
	}
}

func TestResolveInlineCompiles(t *testing.T) {
	c := &fakeCompiler{}
	s := newTestStandard(t, c)
	pass, _ := s.PreparePass(testPass(), false, false)
	d := testDrawable(5)

	e, err := s.Resolve(nil, pass, d, &drawable.Object{}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !e.Ready() {
		t.Fatalf("entry flags = %v, want compiled", e.Flags)
	}
	if e.State.SampleCount != 1 || e.State.DepthOnly || !e.State.DepthWrite {
		t.Errorf("state = %+v", e.State)
	}

	again, _ := s.Resolve(nil, pass, d, &drawable.Object{}, false, nil)
	if again != e {
		t.Error("second Resolve should return the cached entry")
	}
	if same, _ := s.Resolve(e, pass, d, nil, false, nil); same != e {
		t.Error("Resolve should return last on a hash match")
	}
	if c.calls.Load() != 1 || s.Compiled() != 1 {
		t.Errorf("compiler calls = %d, compiled = %d, want 1, 1", c.calls.Load(), s.Compiled())
	}
}

func TestResolveDefersToScheduler(t *testing.T) {
	c := &fakeCompiler{}
	s := newTestStandard(t, c)
	pass, _ := s.PreparePass(testPass(), false, false)
	sched := &recordingScheduler{}

	d := testDrawable(9)
	e, err := s.Resolve(nil, pass, d, &drawable.Object{}, false, sched)
	if err != nil {
		t.Fatal(err)
	}
	if e.Flags != pso.CompilationRequired {
		t.Errorf("flags = %v, want CompilationRequired", e.Flags)
	}
	// In flight: a second resolve must not enqueue again.
	_, _ = s.Resolve(nil, pass, d, &drawable.Object{}, false, sched)
	if len(sched.reqs) != 1 {
		t.Fatalf("enqueued %d requests, want 1", len(sched.reqs))
	}

	req := sched.reqs[0]
	if req.Entry != e || req.System != System(s) || req.FinalHash != e.Hash {
		t.Errorf("request = %+v", req)
	}
	if err := s.Compile(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if !e.Ready() {
		t.Error("Compile should make the entry ready")
	}
}

func TestCompileExpiredContext(t *testing.T) {
	c := &fakeCompiler{}
	s := newTestStandard(t, c)
	pass, _ := s.PreparePass(testPass(), false, false)
	sched := &recordingScheduler{}
	d := testDrawable(3)
	e, _ := s.Resolve(nil, pass, d, &drawable.Object{}, false, sched)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Compile(ctx, sched.reqs[0]); err != nil {
		t.Fatalf("Compile with expired ctx error = %v, want nil", err)
	}
	if e.Flags != pso.CompilationRequired || c.calls.Load() != 0 {
		t.Errorf("flags = %v, compiler calls = %d", e.Flags, c.calls.Load())
	}

	// No longer in flight: the next resolve requests it again.
	_, _ = s.Resolve(nil, pass, d, &drawable.Object{}, false, sched)
	if len(sched.reqs) != 2 {
		t.Errorf("enqueued %d requests, want 2", len(sched.reqs))
	}
}

func TestCompileFault(t *testing.T) {
	c := &fakeCompiler{err: errors.New("bad wgsl")}
	s := newTestStandard(t, c)
	pass, _ := s.PreparePass(testPass(), false, false)

	_, err := s.Resolve(nil, pass, testDrawable(1), &drawable.Object{}, false, nil)
	if !errors.Is(err, c.err) {
		t.Errorf("Resolve error = %v, want compiler error", err)
	}
}

func TestWarmUp(t *testing.T) {
	c := &fakeCompiler{}
	s := newTestStandard(t, c)
	pass, _ := s.PreparePass(testPass(), true, false)
	d := testDrawable(4)

	req, ok := s.WarmUp(pass, d, &drawable.Object{}, true)
	if !ok || req.Entry == nil || !req.Caster {
		t.Fatalf("WarmUp = %+v, %v", req, ok)
	}
	if _, ok := s.WarmUp(pass, d, &drawable.Object{}, true); ok {
		t.Error("second WarmUp should report an existing entry")
	}
	if err := s.Compile(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if !req.Entry.State.DepthOnly || req.Entry.State.CullMode != gputypes.CullModeNone {
		t.Errorf("caster state = %+v", req.Entry.State)
	}
}

func TestStandardConcurrentCompile(t *testing.T) {
	c := &fakeCompiler{}
	s := newTestStandard(t, c)
	pass, _ := s.PreparePass(testPass(), false, false)
	sched := &recordingScheduler{}
	for i := range uint32(32) {
		_, _ = s.Resolve(nil, pass, testDrawable(i), &drawable.Object{}, false, sched)
	}

	var wg sync.WaitGroup
	for _, req := range sched.reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Compile(context.Background(), req); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if s.Compiled() != 32 || s.Entries() != 32 {
		t.Errorf("compiled = %d, entries = %d, want 32", s.Compiled(), s.Entries())
	}
	// All drawables share one shader variant.
	if s.ShaderVariants() != 1 {
		t.Errorf("ShaderVariants() = %d, want 1", s.ShaderVariants())
	}
}

func TestFillBuffers(t *testing.T) {
	s := newTestStandard(t, &fakeCompiler{})
	up := &fakeUploader{}
	s.opts.InstanceBuffer = &fakeBuffer{}
	s.opts.Uploader = up
	s.SetTextureGroup(3, &fakeBindGroup{})

	buf := command.NewBuffer(4)
	d := testDrawable(1)
	d.Material.TextureHash = 3
	d.WorldIndex = 42

	base, th := s.FillBuffers(nil, d, nil, false, 0, buf)
	if base != 0 || th != 3 {
		t.Errorf("FillBuffers = (%d, %d), want (0, 3)", base, th)
	}
	if buf.Count(command.TypeBindShaderBuffer) != 1 {
		t.Fatalf("texture bind commands = %d, want 1", buf.Count(command.TypeBindShaderBuffer))
	}
	base, _ = s.FillBuffers(nil, d, nil, false, th, buf)
	if base != 1 || buf.Len() != 1 {
		t.Errorf("second fill: base = %d, commands = %d, want 1, 1", base, buf.Len())
	}

	if err := s.PreExecute(); err != nil {
		t.Fatal(err)
	}
	if len(up.data) != 8 || up.data[0] != 42 {
		t.Errorf("uploaded = %v", up.data)
	}
	s.PostExecute()
	if len(s.Instances()) != 0 {
		t.Error("PostExecute should reset instances")
	}
	if cs, ds := s.ParticleSlots(); cs != SlotParticleConst || ds != SlotParticleData {
		t.Errorf("ParticleSlots() = %d, %d", cs, ds)
	}
}

func TestShaderSourceVariants(t *testing.T) {
	base := shaderSource(0)
	if strings.Contains(base, "//#") {
		t.Error("unreplaced marker in base variant")
	}
	if strings.Contains(base, "discard") || strings.Contains(base, "particle_data") {
		t.Error("base variant should not alpha test or read particles")
	}

	full := shaderSource(variantAlphaTest | variantParticle | variantTextured)
	for _, want := range []string{"discard", "particle_data", "textureSample"} {
		if !strings.Contains(full, want) {
			t.Errorf("full variant missing %q", want)
		}
	}
	if got := (variantCaster | variantTextured).String(); got != "caster+textured" {
		t.Errorf("variant String() = %q", got)
	}
}

func TestCompileWGSLNaga(t *testing.T) {
	for _, v := range []variant{0, variantAlphaTest | variantTextured, variantParticle} {
		t.Run(v.String(), func(t *testing.T) {
			words, err := compileWGSL(shaderSource(v))
			if err != nil {
				t.Fatalf("compileWGSL: %v", err)
			}
			if len(words) == 0 || words[0] != spirvMagic {
				t.Errorf("missing SPIR-V magic, got %d words", len(words))
			}
		})
	}
}
