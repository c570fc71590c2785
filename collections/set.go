// Package collections provides generic data structures.
package collections

import (
	"fmt"
	"maps"
	"slices"
)

// Set represents a mathematical set of comparable elements.
// It is implemented as a map with empty struct values for memory efficiency.
type Set[T comparable] map[T]struct{}

// NewSet creates a new set containing the given values.
func NewSet[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	s.Add(vals...)
	return s
}

// Add adds the given values to the set.
func (s Set[T]) Add(vals ...T) {
	for _, v := range vals {
		s[v] = struct{}{}
	}
}

// Insert adds v and reports whether it was not already present.
func (s Set[T]) Insert(v T) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Remove removes the given values from the set.
func (s Set[T]) Remove(vals ...T) {
	for _, v := range vals {
		delete(s, v)
	}
}

// Contains returns true if the set contains all of the given values.
func (s Set[T]) Contains(vals ...T) bool {
	for _, v := range vals {
		if _, ok := s[v]; !ok {
			return false
		}
	}
	return true
}

// Members returns all elements in the set as a slice, in no particular order.
func (s Set[T]) Members() []T {
	return slices.Collect(maps.Keys(s))
}

// Size returns the number of elements in the set.
func (s Set[T]) Size() int {
	return len(s)
}

// String returns a string representation of the set.
func (s Set[T]) String() string {
	return fmt.Sprintf("%v", s.Members())
}
