package cellset

import (
	"math/bits"

	"github.com/google/btree"
	"golang.org/x/exp/constraints"
)

const segmentBits = 64

type segment struct {
	key  int64
	bits uint64
}

func segmentLess(a, b segment) bool { return a.key < b.key }

// SparseSet is an ordered integer set stored as 64-bit words keyed by
// segment. Negative values map to negative segments so that segment order
// equals value order.
type SparseSet[T constraints.Integer] struct {
	tree *btree.BTreeG[segment]
	size int
}

func NewSparseSet[T constraints.Integer]() *SparseSet[T] {
	return &SparseSet[T]{tree: btree.NewG[segment](treeDegree, segmentLess)}
}

func split[T constraints.Integer](v T) (int64, uint) {
	if v < 0 {
		pos := uint64(^v)
		return -int64(pos/segmentBits) - 1, uint(segmentBits - 1 - pos%segmentBits)
	}
	u := uint64(v)
	return int64(u / segmentBits), uint(u % segmentBits)
}

func join[T constraints.Integer](key int64, bit uint) T {
	var zero T
	if ^zero < zero {
		return T(key*segmentBits + int64(bit))
	}
	return T(uint64(key)*segmentBits + uint64(bit))
}

func (s *SparseSet[T]) Size() int   { return s.size }
func (s *SparseSet[T]) Empty() bool { return s.size == 0 }

func (s *SparseSet[T]) Clear() {
	s.tree.Clear(false)
	s.size = 0
}

// Insert adds v and reports whether it was new.
func (s *SparseSet[T]) Insert(v T) bool {
	key, bit := split(v)
	seg, _ := s.tree.Get(segment{key: key})
	mask := uint64(1) << bit
	if seg.bits&mask != 0 {
		return false
	}
	s.tree.ReplaceOrInsert(segment{key: key, bits: seg.bits | mask})
	s.size++
	return true
}

// Erase removes v and reports whether it was present. Empty words are dropped.
func (s *SparseSet[T]) Erase(v T) bool {
	key, bit := split(v)
	seg, ok := s.tree.Get(segment{key: key})
	mask := uint64(1) << bit
	if !ok || seg.bits&mask == 0 {
		return false
	}
	seg.bits &^= mask
	if seg.bits == 0 {
		s.tree.Delete(seg)
	} else {
		s.tree.ReplaceOrInsert(seg)
	}
	s.size--
	return true
}

func (s *SparseSet[T]) Find(v T) bool {
	key, bit := split(v)
	seg, ok := s.tree.Get(segment{key: key})
	return ok && seg.bits&(uint64(1)<<bit) != 0
}

// ForEach calls fn with every value in ascending order. It returns false if
// fn stopped the walk.
func (s *SparseSet[T]) ForEach(fn func(T) bool) bool {
	stopped := false
	s.tree.Ascend(func(seg segment) bool {
		for w := seg.bits; w != 0; w &= w - 1 {
			if !fn(join[T](seg.key, uint(bits.TrailingZeros64(w)))) {
				stopped = true
				return false
			}
		}
		return true
	})
	return !stopped
}

func (s *SparseSet[T]) Values() []T {
	out := make([]T, 0, s.size)
	s.ForEach(func(v T) bool {
		out = append(out, v)
		return true
	})
	return out
}

func (s *SparseSet[T]) Front() (T, bool) {
	seg, ok := s.tree.Min()
	if !ok {
		var zero T
		return zero, false
	}
	return join[T](seg.key, uint(bits.TrailingZeros64(seg.bits))), true
}

func (s *SparseSet[T]) Back() (T, bool) {
	seg, ok := s.tree.Max()
	if !ok {
		var zero T
		return zero, false
	}
	return join[T](seg.key, uint(segmentBits-1-bits.LeadingZeros64(seg.bits))), true
}
