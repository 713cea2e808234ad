package cellset

import (
	"github.com/google/btree"
	"golang.org/x/exp/constraints"
)

const treeDegree = 32

// entry is one stored marker. A run of consecutive values is kept as a start
// entry (interval=true) followed by its end entry; a lone value is a single
// entry with interval=false.
type entry[T constraints.Integer] struct {
	v        T
	interval bool
}

func entryLess[T constraints.Integer](a, b entry[T]) bool { return a.v < b.v }

// IntervalSet is an ordered set of integers that stores runs of consecutive
// values as two markers.
type IntervalSet[T constraints.Integer] struct {
	tree *btree.BTreeG[entry[T]]
	size int
}

func NewIntervalSet[T constraints.Integer]() *IntervalSet[T] {
	return &IntervalSet[T]{tree: btree.NewG[entry[T]](treeDegree, entryLess[T])}
}

// Size is the number of values in the set.
func (s *IntervalSet[T]) Size() int { return s.size }

// Len is the number of stored markers.
func (s *IntervalSet[T]) Len() int { return s.tree.Len() }

func (s *IntervalSet[T]) Empty() bool { return s.size == 0 }

func (s *IntervalSet[T]) Clear() {
	s.tree.Clear(false)
	s.size = 0
}

func (s *IntervalSet[T]) get(v T) (entry[T], bool) {
	return s.tree.Get(entry[T]{v: v})
}

// prev returns the greatest marker below v.
func (s *IntervalSet[T]) prev(v T) (entry[T], bool) {
	var out entry[T]
	found := false
	s.tree.DescendLessOrEqual(entry[T]{v: v}, func(e entry[T]) bool {
		if e.v == v {
			return true
		}
		out, found = e, true
		return false
	})
	return out, found
}

// next returns the smallest marker above v.
func (s *IntervalSet[T]) next(v T) (entry[T], bool) {
	var out entry[T]
	found := false
	s.tree.AscendGreaterOrEqual(entry[T]{v: v}, func(e entry[T]) bool {
		if e.v == v {
			return true
		}
		out, found = e, true
		return false
	})
	return out, found
}

// isEnd reports whether e closes a run, that is its left neighbour is a
// start marker.
func (s *IntervalSet[T]) isEnd(e entry[T]) bool {
	if e.interval {
		return false
	}
	p, ok := s.prev(e.v)
	return ok && p.interval
}

func (s *IntervalSet[T]) put(v T, interval bool) {
	s.tree.ReplaceOrInsert(entry[T]{v: v, interval: interval})
}

func (s *IntervalSet[T]) del(v T) {
	s.tree.Delete(entry[T]{v: v})
}

// Insert adds v and reports whether the set changed.
func (s *IntervalSet[T]) Insert(v T) bool {
	if _, ok := s.get(v); ok {
		return false
	}
	left, hasLeft := s.prev(v)
	if hasLeft && left.interval {
		// v lies between a start marker and its end
		return false
	}
	right, hasRight := s.next(v)

	joinLeft := hasLeft && left.v+1 == v
	joinRight := hasRight && v+1 == right.v

	switch {
	case joinLeft && joinRight:
		if s.isEnd(left) {
			s.del(left.v)
		} else {
			s.put(left.v, true)
		}
		if right.interval {
			s.del(right.v)
		}
	case joinLeft:
		if s.isEnd(left) {
			s.del(left.v)
		} else {
			s.put(left.v, true)
		}
		s.put(v, false)
	case joinRight:
		if right.interval {
			s.del(right.v)
		}
		s.put(v, true)
	default:
		s.put(v, false)
	}
	s.size++
	return true
}

// InsertRange adds every value of [lo, hi] and returns how many were new.
func (s *IntervalSet[T]) InsertRange(lo, hi T) int {
	if hi < lo {
		return 0
	}
	if lo == hi {
		if s.Insert(lo) {
			return 1
		}
		return 0
	}

	newLo, newHi := lo, hi
	if p, ok := s.prev(lo); ok {
		if p.interval {
			end, _ := s.next(p.v)
			if end.v >= lo-1 {
				newLo = p.v
			}
		} else if p.v+1 == lo {
			newLo = p.v
			if s.isEnd(p) {
				start, _ := s.prev(p.v)
				newLo = start.v
			}
		}
	}
	if n, ok := s.next(hi); ok {
		if s.isEnd(n) {
			newHi = n.v
		} else if hi+1 == n.v {
			newHi = n.v
			if n.interval {
				end, _ := s.next(n.v)
				newHi = end.v
			}
		}
	}

	var drop []T
	covered := 0
	var runStart T
	inRun := false
	s.tree.AscendRange(entry[T]{v: newLo}, entry[T]{v: newHi}, func(e entry[T]) bool {
		drop = append(drop, e.v)
		switch {
		case e.interval:
			runStart, inRun = e.v, true
		case inRun:
			covered += int(e.v-runStart) + 1
			inRun = false
		default:
			covered++
		}
		return true
	})
	if last, ok := s.get(newHi); ok {
		drop = append(drop, last.v)
		if inRun {
			covered += int(last.v-runStart) + 1
		} else {
			covered++
		}
	}
	for _, v := range drop {
		s.del(v)
	}

	s.put(newLo, true)
	s.put(newHi, false)
	added := int(newHi-newLo) + 1 - covered
	s.size += added
	return added
}

// Find reports whether v is in the set.
func (s *IntervalSet[T]) Find(v T) bool {
	if _, ok := s.get(v); ok {
		return true
	}
	p, ok := s.prev(v)
	return ok && p.interval
}

// FindRun returns the run [lo, hi] holding v.
func (s *IntervalSet[T]) FindRun(v T) (lo, hi T, ok bool) {
	if e, found := s.get(v); found {
		switch {
		case e.interval:
			end, _ := s.next(e.v)
			return e.v, end.v, true
		case s.isEnd(e):
			start, _ := s.prev(e.v)
			return start.v, e.v, true
		default:
			return e.v, e.v, true
		}
	}
	p, found := s.prev(v)
	if !found || !p.interval {
		return lo, hi, false
	}
	end, _ := s.next(p.v)
	return p.v, end.v, true
}

// ForEachInterval calls fn with every maximal run in ascending order; a lone
// value is passed as lo == hi. Returning false stops the walk.
func (s *IntervalSet[T]) ForEachInterval(fn func(lo, hi T) bool) bool {
	var start T
	inRun := false
	stopped := false
	s.tree.Ascend(func(e entry[T]) bool {
		if e.interval {
			start, inRun = e.v, true
			return true
		}
		lo := e.v
		if inRun {
			lo, inRun = start, false
		}
		if !fn(lo, e.v) {
			stopped = true
			return false
		}
		return true
	})
	return !stopped
}

// ForEach calls fn with every value in ascending order. It returns false if
// fn stopped the walk.
func (s *IntervalSet[T]) ForEach(fn func(T) bool) bool {
	return s.ForEachInterval(func(lo, hi T) bool {
		for v := lo; ; v++ {
			if !fn(v) {
				return false
			}
			if v == hi {
				return true
			}
		}
	})
}

// Values collects the set into a slice.
func (s *IntervalSet[T]) Values() []T {
	out := make([]T, 0, s.size)
	s.ForEach(func(v T) bool {
		out = append(out, v)
		return true
	})
	return out
}

func (s *IntervalSet[T]) Front() (T, bool) {
	e, ok := s.tree.Min()
	return e.v, ok
}

func (s *IntervalSet[T]) Back() (T, bool) {
	e, ok := s.tree.Max()
	return e.v, ok
}
