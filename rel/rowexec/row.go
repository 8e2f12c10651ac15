// Package rowexec implements the iteration engine (§4.4): a lazy,
// row-oriented, order-preserving backend. Mirrors the classic one-iterator-
// per-plan-node execution shape (composed lazily) over this module's own
// Relation tree.
package rowexec

import "github.com/lsst/daf-relation/coltag"

// Row is one row of the iteration engine: a mapping from tag to value.
type Row map[coltag.Tag]any

// Clone returns a shallow copy of r, used whenever an operation must not
// mutate the row it was handed (rows may be shared across a Chain's
// branches or re-iterated from a Sequence).
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// hashKey returns a value suitable as a Go map key that identifies r's
// full contents, used by the Mapping-backed Dedup payload (§4.4).
func hashKey(r Row, cols []coltag.Tag) string {
	// A string key built from each column's formatted value in a fixed
	// (sorted) column order. Values of different types that format
	// identically produce the same key, and mappingIterable.insert compares
	// only this key, so such rows count as duplicates.
	key := make([]byte, 0, 32*len(cols))
	for _, c := range cols {
		key = append(key, []byte(c.QualifiedName())...)
		key = append(key, 0)
		key = appendValue(key, r[c])
		key = append(key, 0)
	}
	return string(key)
}
