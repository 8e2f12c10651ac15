package plan

import "github.com/lsst/daf-relation/rel"

// addBounded adds a and b, saturating at rel.Unbounded if either operand is
// already unbounded or the sum would overflow.
func addBounded(a, b uint64) uint64 {
	if a == rel.Unbounded || b == rel.Unbounded {
		return rel.Unbounded
	}
	sum := a + b
	if sum < a { // overflow
		return rel.Unbounded
	}
	return sum
}

// mulBounded multiplies a and b with the same saturation rule as
// addBounded.
func mulBounded(a, b uint64) uint64 {
	if a == rel.Unbounded || b == rel.Unbounded {
		return rel.Unbounded
	}
	if a == 0 || b == 0 {
		return 0
	}
	product := a * b
	if product/a != b { // overflow
		return rel.Unbounded
	}
	return product
}

func minUint(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// calculationBounds, projectionBounds, sortBounds, selectionBounds are the
// per-operation RowBounds rules of §4.1's last paragraph.
func calculationBounds(target rel.RowBounds) rel.RowBounds { return target }
func projectionBounds(target rel.RowBounds) rel.RowBounds  { return target }
func sortBounds(target rel.RowBounds) rel.RowBounds        { return target }

func selectionBounds(target rel.RowBounds) rel.RowBounds {
	return rel.RowBounds{Min: 0, Max: target.Max}
}

// sliceBounds caps Max at stop-start (§4.1: "Slice caps max_rows at
// stop - start").
func sliceBounds(target rel.RowBounds, start, stop uint64) rel.RowBounds {
	span := rel.Unbounded
	if stop != rel.Unbounded {
		span = stop - start
	}
	max := minUint(target.Max, span)
	min := uint64(0)
	if target.Min > start {
		min = minUint(target.Min-start, max)
	}
	return rel.RowBounds{Min: min, Max: max}
}

// dedupBounds implements §4.1: "Dedup caps max_rows at
// min(max_rows_in, ∞) and can lower min_rows to min(1, min_rows_in)".
func dedupBounds(target rel.RowBounds) rel.RowBounds {
	return rel.RowBounds{Min: minUint(1, target.Min), Max: target.Max}
}

// joinBounds is conservative: a join can eliminate every row, and at most
// produces the cross product.
func joinBounds(lhs, rhs rel.RowBounds) rel.RowBounds {
	return rel.RowBounds{Min: 0, Max: mulBounded(lhs.Max, rhs.Max)}
}

// chainBounds is exact: a Chain's row count is the sum of its operands'.
func chainBounds(lhs, rhs rel.RowBounds) rel.RowBounds {
	return rel.RowBounds{Min: addBounded(lhs.Min, rhs.Min), Max: addBounded(lhs.Max, rhs.Max)}
}
