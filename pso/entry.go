// Package pso holds pipeline-state cache entries and the render pipelines
// built from them.
//
// An Entry is the handle a material system returns for a drawable in a pass.
// Its Hash is fixed at creation. State and Flags are written by whoever
// compiles the entry: the orchestrating goroutine when compiling inline, or a
// compile worker. Readers on the orchestrating goroutine may only look at
// State and Flags after the compile queue has been stopped and waited on,
// which provides the happens-before edge.
package pso

// Flags describe the compilation status of an Entry.
type Flags uint8

const (
	// None means the entry is compiled and State is usable.
	None Flags = iota

	// CompilationRequired means the entry is a placeholder: compilation was
	// deferred or ran out of time. Draws using it are skipped by backends
	// and the entry is requested again next frame.
	CompilationRequired
)

// String returns the flag name.
func (f Flags) String() string {
	switch f {
	case None:
		return "None"
	case CompilationRequired:
		return "CompilationRequired"
	default:
		return "Unknown"
	}
}

// Entry is a pipeline-state cache slot.
type Entry struct {
	// Hash identifies the entry. Two consecutive draws with the same Hash
	// share a bound pipeline.
	Hash uint32

	// System is the material system type that owns the entry.
	System uint8

	Flags Flags
	State *State
}

// Ready reports whether the entry has a usable pipeline state.
func (e *Entry) Ready() bool {
	return e != nil && e.Flags == None && e.State != nil
}

// Placeholder returns an entry reserved for later compilation.
func Placeholder(hash uint32, system uint8) *Entry {
	return &Entry{Hash: hash, System: system, Flags: CompilationRequired}
}
