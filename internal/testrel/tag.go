// Package testrel provides the shared test fixtures used across this
// module's package tests: a concrete coltag.Tag and small fake engines.
package testrel

import "github.com/lsst/daf-relation/coltag"

// StringTag is a string-backed coltag.Tag used throughout this module's
// tests.
type StringTag string

// Tag is a convenience constructor returning a coltag.Tag.
func Tag(name string) coltag.Tag { return StringTag(name) }

func (s StringTag) Less(other coltag.Tag) bool { return s < other.(StringTag) }

func (s StringTag) Hash() uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func (s StringTag) QualifiedName() string { return string(s) }

// Tags builds a coltag.Set from plain strings.
func Tags(names ...string) coltag.Set {
	tags := make([]coltag.Tag, len(names))
	for i, n := range names {
		tags[i] = StringTag(n)
	}
	return coltag.NewSet(tags...)
}
