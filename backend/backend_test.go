package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/rq"
)

type fakeBackend struct {
	name    string
	initErr error
	inited  bool
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Init() error {
	if b.initErr != nil {
		return b.initErr
	}
	b.inited = true
	return nil
}

func (b *fakeBackend) Close() { b.inited = false }

func (b *fakeBackend) Device() rq.Device { return nil }

// withRegistry runs fn against an empty registry and restores the old one.
func withRegistry(t *testing.T, fn func()) {
	t.Helper()
	registryMu.Lock()
	saved := backends
	backends = make(map[string]BackendFactory)
	registryMu.Unlock()

	defer func() {
		registryMu.Lock()
		backends = saved
		registryMu.Unlock()
	}()
	fn()
}

func register(name string, initErr error) {
	Register(name, func() RenderBackend {
		return &fakeBackend{name: name, initErr: initErr}
	})
}

func TestRegistryRegisterAndGet(t *testing.T) {
	withRegistry(t, func() {
		register("custom", nil)

		if !IsRegistered("custom") {
			t.Error("IsRegistered(custom) = false after Register")
		}
		b := Get("custom")
		if b == nil || b.Name() != "custom" {
			t.Fatalf("Get(custom) = %v", b)
		}
		if Get("missing") != nil {
			t.Error("Get(missing) should return nil")
		}

		Unregister("custom")
		if IsRegistered("custom") {
			t.Error("IsRegistered(custom) = true after Unregister")
		}
	})
}

func TestRegistryAvailableSorted(t *testing.T) {
	withRegistry(t, func() {
		register("zeta", nil)
		register(BackendWGPU, nil)
		register(BackendRecord, nil)

		got := Available()
		want := []string{BackendRecord, BackendWGPU, "zeta"}
		if !slices.Equal(got, want) {
			t.Errorf("Available() = %v, want %v", got, want)
		}
	})
}

func TestRegistryDefaultPriority(t *testing.T) {
	tests := []struct {
		name       string
		registered []string
		want       string
	}{
		{"wgpu wins", []string{BackendRecord, BackendWGPU}, BackendWGPU},
		{"record fallback", []string{BackendRecord}, BackendRecord},
		{"unknown fallback by name", []string{"b", "a"}, "a"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withRegistry(t, func() {
				for _, n := range tt.registered {
					register(n, nil)
				}
				b := Default()
				got := ""
				if b != nil {
					got = b.Name()
				}
				if got != tt.want {
					t.Errorf("Default() = %q, want %q", got, tt.want)
				}
			})
		})
	}
}

func TestMustDefaultPanics(t *testing.T) {
	withRegistry(t, func() {
		defer func() {
			if recover() == nil {
				t.Error("MustDefault() did not panic on empty registry")
			}
		}()
		MustDefault()
	})
}

func TestInitDefaultSkipsFailingBackend(t *testing.T) {
	withRegistry(t, func() {
		register(BackendWGPU, ErrNoDevice)
		register(BackendRecord, nil)

		b, err := InitDefault()
		if err != nil {
			t.Fatalf("InitDefault() error = %v", err)
		}
		if b.Name() != BackendRecord {
			t.Errorf("InitDefault() = %q, want %q", b.Name(), BackendRecord)
		}
	})
}

func TestInitDefaultErrors(t *testing.T) {
	withRegistry(t, func() {
		if _, err := InitDefault(); !errors.Is(err, ErrBackendNotAvailable) {
			t.Errorf("InitDefault() on empty registry error = %v, want ErrBackendNotAvailable", err)
		}

		register(BackendWGPU, ErrNoDevice)
		if _, err := InitDefault(); !errors.Is(err, ErrNoDevice) {
			t.Errorf("InitDefault() error = %v, want ErrNoDevice", err)
		}
	})
}
