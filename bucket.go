package rq

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/sortkey"
)

// Mode selects how a bucket is emitted.
type Mode uint8

const (
	// ModeV1Legacy draws legacy ops immediately on the device, one call per
	// object.
	ModeV1Legacy Mode = iota
	// ModeV1Fast records legacy ops into the command stream, folding
	// consecutive objects with the same op into instanced draws.
	ModeV1Fast
	// ModeFast batches vertex-array drawables into indirect multi-draws.
	ModeFast
	// ModeParticle is ModeFast plus the particle buffer binds of each
	// drawable.
	ModeParticle
)

var modeNames = [...]string{
	ModeV1Legacy: "v1-legacy",
	ModeV1Fast:   "v1-fast",
	ModeFast:     "fast",
	ModeParticle: "particle",
}

// String returns the mode name used in config files.
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode returns the mode named s.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("unknown bucket mode %q", s)
}

// SortMode selects how a bucket is ordered before emission.
type SortMode uint8

const (
	// SortUnstable sorts by key; equal keys end up in any order.
	SortUnstable SortMode = iota
	// SortStable sorts by key keeping submission order among equal keys.
	SortStable
	// SortNone keeps submission order.
	SortNone
)

var sortModeNames = [...]string{
	SortUnstable: "unstable",
	SortStable:   "stable",
	SortNone:     "none",
}

// String returns the sort mode name.
func (s SortMode) String() string {
	if int(s) < len(sortModeNames) {
		return sortModeNames[s]
	}
	return "unknown"
}

// entry is one queued drawable.
type entry struct {
	key sortkey.Key
	d   drawable.Handle
	obj drawable.ObjectHandle
}

func compareEntries(a, b entry) int {
	return cmp.Compare(a.key, b.key)
}

// bucket is one render queue group. Threads append to their own list in
// perThread; merge concatenates them into merged in thread order.
type bucket struct {
	mode   Mode
	sort   SortMode
	sorted bool

	perThread [][]entry
	merged    []entry
}

// count returns the entries queued by every thread.
func (b *bucket) count() int {
	n := 0
	for _, l := range b.perThread {
		n += len(l)
	}
	return n
}

// merge builds merged without sorting. It does nothing once the bucket is
// sorted, so entries are never duplicated.
func (b *bucket) merge() {
	if b.sorted {
		return
	}
	b.merged = slices.Grow(b.merged[:0], b.count())
	for _, l := range b.perThread {
		b.merged = append(b.merged, l...)
	}
	b.sorted = true
}

// mergeAndSort merges and orders the bucket by its sort mode.
func (b *bucket) mergeAndSort() {
	if b.sorted {
		return
	}
	b.merge()
	switch b.sort {
	case SortUnstable:
		slices.SortFunc(b.merged, compareEntries)
	case SortStable:
		slices.SortStableFunc(b.merged, compareEntries)
	}
}

func (b *bucket) clear() {
	for i := range b.perThread {
		b.perThread[i] = b.perThread[i][:0]
	}
	b.merged = b.merged[:0]
	b.sorted = false
}
