package material

import "fmt"

// Manager holds one system per Type.
type Manager struct {
	systems [NumTypes]System
}

// NewManager creates a manager with the given systems registered.
func NewManager(systems ...System) (*Manager, error) {
	m := &Manager{}
	for _, s := range systems {
		if err := m.Register(s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register installs s in the slot for s.Type(), replacing any previous one.
func (m *Manager) Register(s System) error {
	if s == nil {
		return ErrNilSystem
	}
	t := s.Type()
	if t >= NumTypes {
		return fmt.Errorf("register type %d: %w", t, ErrUnknownSystem)
	}
	m.systems[t] = s
	return nil
}

// Get returns the system for t.
func (m *Manager) Get(t Type) (System, error) {
	if t >= NumTypes || m.systems[t] == nil {
		return nil, fmt.Errorf("%s: %w", t, ErrUnknownSystem)
	}
	return m.systems[t], nil
}

// Lookup returns the system for a drawable's system index, or nil.
func (m *Manager) Lookup(t uint8) System {
	if Type(t) >= NumTypes {
		return nil
	}
	return m.systems[t]
}

// Each calls fn for every registered system in type order.
func (m *Manager) Each(fn func(System)) {
	for _, s := range m.systems {
		if s != nil {
			fn(s)
		}
	}
}
