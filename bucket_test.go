package rq

import (
	"slices"
	"testing"

	"github.com/gogpu/rq/drawable"
	"github.com/gogpu/rq/sortkey"
)

// testBucket returns a two-thread bucket holding keys split across the
// threads, and the handles in submission order (thread 0 first).
func testBucket(mode SortMode, keys ...sortkey.Key) (*bucket, []drawable.Handle) {
	arena := drawable.NewArena(2)
	b := &bucket{sort: mode, perThread: make([][]entry, 2)}
	handles := make([]drawable.Handle, len(keys))
	half := len(keys) / 2
	for i, k := range keys {
		thread := 0
		if i >= half {
			thread = 1
		}
		handles[i] = arena.Add(thread, &drawable.Drawable{})
		b.perThread[thread] = append(b.perThread[thread], entry{key: k, d: handles[i]})
	}
	return b, handles
}

func mergedHandles(b *bucket) []drawable.Handle {
	hs := make([]drawable.Handle, len(b.merged))
	for i, e := range b.merged {
		hs[i] = e.d
	}
	return hs
}

func TestBucketSortUnstable(t *testing.T) {
	b, _ := testBucket(SortUnstable, 9, 3, 7, 3, 1, 8)
	b.mergeAndSort()
	if !slices.IsSortedFunc(b.merged, compareEntries) {
		t.Errorf("merged not sorted: %v", b.merged)
	}
	if len(b.merged) != 6 {
		t.Errorf("len(merged) = %d, want 6", len(b.merged))
	}
}

func TestBucketSortStable(t *testing.T) {
	b, h := testBucket(SortStable, 5, 2, 5, 2, 5, 2)
	b.mergeAndSort()
	want := []drawable.Handle{h[1], h[3], h[5], h[0], h[2], h[4]}
	if got := mergedHandles(b); !slices.Equal(got, want) {
		t.Errorf("stable order = %v, want %v", got, want)
	}
}

func TestBucketSortNoneKeepsSubmissionOrder(t *testing.T) {
	b, h := testBucket(SortNone, 4, 3, 2, 1)
	b.mergeAndSort()
	if got := mergedHandles(b); !slices.Equal(got, h) {
		t.Errorf("order = %v, want %v", got, h)
	}
}

func TestBucketMergeIdempotent(t *testing.T) {
	for _, mode := range []SortMode{SortUnstable, SortStable, SortNone} {
		b, _ := testBucket(mode, 3, 1, 2, 4)
		b.mergeAndSort()
		first := slices.Clone(b.merged)
		b.mergeAndSort()
		b.merge()
		if !slices.Equal(b.merged, first) {
			t.Errorf("%v: second merge changed the list: %v -> %v", mode, first, b.merged)
		}
	}
}

func TestBucketClear(t *testing.T) {
	b, _ := testBucket(SortUnstable, 1, 2, 3)
	b.mergeAndSort()
	b.clear()
	if b.sorted || b.count() != 0 || len(b.merged) != 0 {
		t.Errorf("after clear: sorted=%v count=%d merged=%d", b.sorted, b.count(), len(b.merged))
	}
}

func TestModeNames(t *testing.T) {
	for _, m := range []Mode{ModeV1Legacy, ModeV1Fast, ModeFast, ModeParticle} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("turbo"); err == nil {
		t.Error("ParseMode(turbo) should fail")
	}
	if Mode(9).String() != "unknown" || SortStable.String() != "stable" {
		t.Error("String() mismatch")
	}
}
