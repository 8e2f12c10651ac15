package rowexec

import (
	"io"
	"sort"

	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/rel"
	"github.com/lsst/daf-relation/rel/plan"
)

// selectionIterable lazily filters rows by a predicate (§4.4: "Selection:
// filter rows by predicate, lazy").
type selectionIterable struct {
	src  RowIterable
	pred expr.Predicate
}

func (s selectionIterable) Iterate() RowIter {
	return &selectionIter{src: s.src.Iterate(), pred: s.pred}
}

type selectionIter struct {
	src  RowIter
	pred expr.Predicate
}

func (s *selectionIter) Next() (Row, error) {
	for {
		row, err := s.src.Next()
		if err != nil {
			return nil, err
		}
		if evalPredicate(s.pred, row) {
			return row, nil
		}
	}
}

// evalPredicate interprets the closed Predicate sum against a row.
func evalPredicate(p expr.Predicate, row Row) bool {
	switch v := p.(type) {
	case expr.PredicateLiteral:
		return bool(v)
	case expr.PredicateReference:
		b, _ := row[v.Tag].(bool)
		return b
	case *expr.PredicateFunction:
		return evalFunctionPredicate(v, row)
	case *expr.LogicalNot:
		return !evalPredicate(v.Operand, row)
	case expr.LogicalAnd:
		for _, operand := range v {
			if !evalPredicate(operand, row) {
				return false
			}
		}
		return true
	case expr.LogicalOr:
		for _, operand := range v {
			if evalPredicate(operand, row) {
				return true
			}
		}
		return false
	case *expr.InContainer:
		return evalInContainer(v, row)
	default:
		return false
	}
}

// evalFunctionPredicate evaluates a small set of built-in comparison
// functions by name; unrecognized names are treated as false, since the
// iteration engine's Capabilities advertises unrestricted function support
// but cannot itself interpret arbitrary host functions without a
// registration hook, which is out of scope for this core (§1: "the
// domain's concrete column-identifier type" and by extension its scalar
// function vocabulary belong to the host).
func evalFunctionPredicate(f *expr.PredicateFunction, row Row) bool {
	if len(f.Args) != 2 {
		return false
	}
	a, b := evalExpr(f.Args[0], row), evalExpr(f.Args[1], row)
	switch f.Name {
	case "eq":
		return equalValues(a, b)
	case "ne":
		return !equalValues(a, b)
	case "lt":
		return compareValues(a, b) < 0
	case "le":
		return compareValues(a, b) <= 0
	case "gt":
		return compareValues(a, b) > 0
	case "ge":
		return compareValues(a, b) >= 0
	default:
		return false
	}
}

func evalInContainer(i *expr.InContainer, row Row) bool {
	scalar := evalExpr(i.Scalar, row)
	switch c := i.Container.(type) {
	case expr.ExpressionSequence:
		for _, e := range c {
			if equalValues(scalar, evalExpr(e, row)) {
				return true
			}
		}
		return false
	case expr.RangeLiteral:
		v, err := toInt64(scalar)
		if err != nil {
			return false
		}
		if c.Step == 0 {
			return false
		}
		if v < c.Start || v >= c.Stop {
			return false
		}
		return (v-c.Start)%c.Step == 0
	default:
		return false
	}
}

func evalExpr(e expr.Expression, row Row) any {
	switch v := e.(type) {
	case *expr.Literal:
		return v.Value
	case *expr.Reference:
		return row[v.Tag]
	case *expr.Function:
		return evalNamedFunction(v, row)
	default:
		return nil
	}
}

func evalNamedFunction(f *expr.Function, row Row) any {
	args := make([]any, len(f.Args))
	for i, a := range f.Args {
		args[i] = evalExpr(a, row)
	}
	if f.Name == "concat" {
		out := ""
		for _, a := range args {
			out += toStr(a)
		}
		return out
	}
	if len(args) > 0 {
		return args[0]
	}
	return nil
}

// calculationIterable lazily extends each row with a computed column
// (§4.4: "Calculation: extend each row with computed column, lazy").
type calculationIterable struct {
	src  RowIterable
	tag  coltag.Tag
	expr expr.Expression
}

func (c calculationIterable) Iterate() RowIter {
	return calculationIter{src: c.src.Iterate(), tag: c.tag, expr: c.expr}
}

type calculationIter struct {
	src  RowIter
	tag  coltag.Tag
	expr expr.Expression
}

func (c calculationIter) Next() (Row, error) {
	row, err := c.src.Next()
	if err != nil {
		return nil, err
	}
	out := row.Clone()
	out[c.tag] = evalExpr(c.expr, row)
	return out, nil
}

// projectionIterable lazily restricts each row's keys (§4.4: "Projection:
// restrict row keys, lazy").
type projectionIterable struct {
	src  RowIterable
	keep []coltag.Tag
}

func (p projectionIterable) Iterate() RowIter {
	return projectionIter{src: p.src.Iterate(), keep: p.keep}
}

type projectionIter struct {
	src  RowIter
	keep []coltag.Tag
}

func (p projectionIter) Next() (Row, error) {
	row, err := p.src.Next()
	if err != nil {
		return nil, err
	}
	out := make(Row, len(p.keep))
	for _, t := range p.keep {
		out[t] = row[t]
	}
	return out, nil
}

// chainIterable lazily concatenates left then right (§4.4: "Chain:
// concatenate in order, lazy").
type chainIterable struct {
	left, right RowIterable
}

func (c chainIterable) Iterate() RowIter {
	return &chainIter{left: c.left.Iterate(), right: c.right.Iterate()}
}

type chainIter struct {
	left, right RowIter
	onRight     bool
}

func (c *chainIter) Next() (Row, error) {
	if !c.onRight {
		row, err := c.left.Next()
		if err == nil {
			return row, nil
		}
		if err != io.EOF {
			return nil, err
		}
		c.onRight = true
	}
	return c.right.Next()
}

// sortRows eagerly drains src and sorts it stably by keys (§4.4: "Sort:
// consume into sequence then sort stably, eager").
func sortRows(src RowIterable, keys []plan.SortKey) ([]Row, error) {
	rows, err := drain(src)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			a := evalExpr(k.Expression, rows[i])
			b := evalExpr(k.Expression, rows[j])
			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if k.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return rows, nil
}

// sliceIterable realizes Slice (§4.4: "on sequence, O(1); on generator,
// drop/take lazily, mixed").
func sliceIterable(src RowIterable, start, stop uint64) RowIterable {
	if seq, ok := src.(*sequenceIterable); ok {
		return seq.Slice(start, stop)
	}
	return &lazySlice{src: src, start: start, stop: stop}
}

type lazySlice struct {
	src         RowIterable
	start, stop uint64
}

func (l *lazySlice) Iterate() RowIter {
	return &lazySliceIter{src: l.src.Iterate(), remaining: l.start, stop: l.stop}
}

type lazySliceIter struct {
	src       RowIter
	pos       uint64
	remaining uint64
	stop      uint64
	dropped   bool
}

func (l *lazySliceIter) Next() (Row, error) {
	if !l.dropped {
		for i := uint64(0); i < l.remaining; i++ {
			if _, err := l.src.Next(); err != nil {
				return nil, err
			}
		}
		l.pos = l.remaining
		l.dropped = true
	}
	if l.stop != rel.Unbounded && l.pos >= l.stop {
		return nil, io.EOF
	}
	row, err := l.src.Next()
	if err != nil {
		return nil, err
	}
	l.pos++
	return row, nil
}
