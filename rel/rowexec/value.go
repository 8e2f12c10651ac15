package rowexec

import (
	"github.com/spf13/cast"
)

// appendValue formats v with cast.ToString, the same conversion
// compareValues falls back to for non-numeric values. Values that compare
// equal only numerically (1 and "1.0") format differently here.
func appendValue(buf []byte, v any) []byte {
	return append(buf, []byte(cast.ToString(v))...)
}

// compareValues orders a and b using a best-effort numeric comparison,
// falling back to string comparison — the same loose-coercion strategy
// spf13/cast provides elsewhere (cast.ToFloat64, cast.ToString) rather
// than requiring every value to share a concrete Go type.
func compareValues(a, b any) int {
	af, aerr := cast.ToFloat64E(a)
	bf, berr := cast.ToFloat64E(b)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := cast.ToString(a), cast.ToString(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

// equalValues reports whether a and b compare equal (used by predicate
// evaluation and InContainer membership).
func equalValues(a, b any) bool {
	return compareValues(a, b) == 0
}

// toInt64 coerces v to an int64, used by RangeLiteral membership tests.
func toInt64(v any) (int64, error) {
	return cast.ToInt64E(v)
}

// toStr coerces v to a string, used by the concat built-in function.
func toStr(v any) string {
	return cast.ToString(v)
}
