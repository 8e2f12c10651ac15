package coltag

import "sort"

// Set is an immutable set of Tags. The zero value is the empty set.
type Set struct {
	m map[Tag]struct{}
}

// NewSet builds a Set from the given tags, deduplicating.
func NewSet(tags ...Tag) Set {
	if len(tags) == 0 {
		return Set{}
	}
	m := make(map[Tag]struct{}, len(tags))
	for _, t := range tags {
		m[t] = struct{}{}
	}
	return Set{m: m}
}

// Len returns the number of distinct tags in the set.
func (s Set) Len() int {
	return len(s.m)
}

// Contains reports whether t is a member of s.
func (s Set) Contains(t Tag) bool {
	if s.m == nil {
		return false
	}
	_, ok := s.m[t]
	return ok
}

// Subset reports whether every tag in s is also in other.
func (s Set) Subset(other Set) bool {
	for t := range s.m {
		if !other.Contains(t) {
			return false
		}
	}
	return true
}

// Equals reports whether s and other contain exactly the same tags.
func (s Set) Equals(other Set) bool {
	return s.Len() == other.Len() && s.Subset(other)
}

// Union returns the set union of all the given sets.
func Union(sets ...Set) Set {
	out := make(map[Tag]struct{})
	for _, s := range sets {
		for t := range s.m {
			out[t] = struct{}{}
		}
	}
	if len(out) == 0 {
		return Set{}
	}
	return Set{m: out}
}

// Intersect returns the set intersection of s and other.
func (s Set) Intersect(other Set) Set {
	out := make(map[Tag]struct{})
	for t := range s.m {
		if other.Contains(t) {
			out[t] = struct{}{}
		}
	}
	if len(out) == 0 {
		return Set{}
	}
	return Set{m: out}
}

// Sorted returns the set's members in the total order defined by Tag.Less,
// giving a deterministic iteration order for emission and hashing.
func (s Set) Sorted() []Tag {
	out := make([]Tag, 0, len(s.m))
	for t := range s.m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Hash folds the set's members into a single order-independent hash, so
// that two Sets with the same members hash equal regardless of insertion
// order.
func (s Set) Hash() uint64 {
	var h uint64
	for t := range s.m {
		// XOR is commutative, giving an order-independent fold.
		h ^= t.Hash()
	}
	return h
}
