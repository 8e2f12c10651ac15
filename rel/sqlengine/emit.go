package sqlengine

import (
	"sort"
	"strconv"

	"gopkg.in/src-d/go-vitess.v0/vt/sqlparser"

	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/rel"
	"github.com/lsst/daf-relation/rel/plan"
)

// comparisonOperators maps the named boolean functions this core's
// expression evaluator understands (see rel/rowexec's matching table) to
// the vitess comparison operator they lower to.
var comparisonOperators = map[string]string{
	"eq": sqlparser.EqualStr,
	"ne": sqlparser.NotEqualStr,
	"lt": sqlparser.LessThanStr,
	"le": sqlparser.LessEqualStr,
	"gt": sqlparser.GreaterThanStr,
	"ge": sqlparser.GreaterEqualStr,
}

// namedSelectExpr pairs an emitted select-list expression with the tag and
// originating table it came from, so a Projection layer can later filter
// the full column list down to the tags it keeps, and a Join can tell its
// left operand's copy of a common tag from its right operand's.
type namedSelectExpr struct {
	tag   coltag.Tag
	table string
	expr  sqlparser.SelectExpr
}

// Emit implements §4.3's to_executable: it walks a conformed relation (the
// output of Engine.Conform) and produces the host database client's own
// expression object — always a single top-level *sqlparser.Select or
// *sqlparser.Union, per §6. hooks controls how column tags lower to
// expressions; pass DefaultColumnHooks{} for the common one-tag-one-column
// case.
func Emit(r rel.Relation, hooks ColumnHooks) (sqlparser.SelectStatement, error) {
	switch n := r.(type) {
	case *plan.Leaf:
		return emitBody(n, hooks)
	case *plan.Select:
		return emitCanonical(n.Target(), hooks)
	default:
		return nil, rel.ErrInvariant.New("sqlengine: Emit requires a Select marker or a bare Leaf at the root")
	}
}

// emitCanonical peels the outermost Slice/Sort layers (which, after
// normalize, only ever appear at the very top of a Select's target) and
// attaches them to whatever statement the remaining body emits.
func emitCanonical(r rel.Relation, hooks ColumnHooks) (sqlparser.SelectStatement, error) {
	var limit *sqlparser.Limit
	var orderBy sqlparser.OrderBy

	if s, ok := r.(*plan.Slice); ok {
		limit = sliceLimit(s)
		r = s.Target()
	}
	if s, ok := r.(*plan.Sort); ok {
		ob, err := sortOrderBy(s, hooks)
		if err != nil {
			return nil, err
		}
		orderBy = ob
		r = s.Target()
	}

	stmt, err := emitBody(r, hooks)
	if err != nil {
		return nil, err
	}
	switch st := stmt.(type) {
	case *sqlparser.Select:
		st.OrderBy = orderBy
		st.Limit = limit
	case *sqlparser.Union:
		st.OrderBy = orderBy
		st.Limit = limit
	}
	return stmt, nil
}

// emitBody handles the Dedup?/Chain/Join-tree layer: a Dedup directly over
// a Chain becomes a UNION (§4.3's emission rule); a bare Chain becomes a
// UNION ALL of its branches' own emissions; anything else falls to
// emitSelectLayers for the Projection*/Selection*/Calculation*/join-tree
// portion.
func emitBody(r rel.Relation, hooks ColumnHooks) (sqlparser.SelectStatement, error) {
	if d, ok := r.(*plan.Deduplication); ok {
		if ch, ok := d.Target().(*plan.Chain); ok {
			return emitChainUnion(ch, sqlparser.UnionStr, hooks)
		}
		stmt, err := emitBody(d.Target(), hooks)
		if err != nil {
			return nil, err
		}
		sel, ok := stmt.(*sqlparser.Select)
		if !ok {
			return nil, rel.ErrInvariant.New("sqlengine: Deduplication over a non-Select body")
		}
		sel.GroupBy = groupByAll(sel.SelectExprs)
		return sel, nil
	}
	if ch, ok := r.(*plan.Chain); ok {
		return emitChainUnion(ch, sqlparser.UnionAllStr, hooks)
	}
	return emitSelectLayers(r, hooks)
}

func emitChainUnion(ch *plan.Chain, unionType string, hooks ColumnHooks) (sqlparser.SelectStatement, error) {
	left, err := emitBody(ch.Left(), hooks)
	if err != nil {
		return nil, err
	}
	right, err := emitBody(ch.Right(), hooks)
	if err != nil {
		return nil, err
	}
	return &sqlparser.Union{Type: unionType, Left: left, Right: right}, nil
}

// emitSelectLayers consumes an optional Projection, any number of
// Selections, any number of Calculations, and the join-tree/leaf beneath
// them, producing one *sqlparser.Select.
func emitSelectLayers(r rel.Relation, hooks ColumnHooks) (sqlparser.SelectStatement, error) {
	var keep coltag.Set
	hasProjection := false
	if p, ok := r.(*plan.Projection); ok {
		keep = p.Keep
		hasProjection = true
		r = p.Target()
	}

	var preds []expr.Predicate
	for {
		s, ok := r.(*plan.Selection)
		if !ok {
			break
		}
		preds = append(preds, s.Predicate)
		r = s.Target()
	}

	type calcCol struct {
		tag coltag.Tag
		e   expr.Expression
	}
	var calcs []calcCol
	for {
		c, ok := r.(*plan.Calculation)
		if !ok {
			break
		}
		calcs = append(calcs, calcCol{c.Tag, c.Expression})
		r = c.Target()
	}

	from, allColumns, err := emitFrom(r, hooks)
	if err != nil {
		return nil, err
	}

	sel := &sqlparser.Select{From: sqlparser.TableExprs{from}}

	if len(preds) > 0 {
		var combined expr.Predicate = preds[0]
		if len(preds) > 1 {
			combined = expr.LogicalAnd(preds)
		}
		whereExpr, err := lowerPredicate(combined, hooks)
		if err != nil {
			return nil, err
		}
		sel.Where = sqlparser.NewWhere(sqlparser.WhereStr, whereExpr)
	}

	// calcs was built leaf-ward (outermost Calculation first); append its
	// computed columns in the order the tree nests, innermost first, so
	// later columns may reference earlier ones exactly as Calculation's
	// own "tag not yet present" invariant requires.
	for i := len(calcs) - 1; i >= 0; i-- {
		c := calcs[i]
		e, err := lowerExpression(c.e, hooks)
		if err != nil {
			return nil, err
		}
		allColumns = append(allColumns, namedSelectExpr{
			tag:  c.tag,
			expr: &sqlparser.AliasedExpr{Expr: e, As: sqlparser.NewColIdent(c.tag.QualifiedName())},
		})
	}

	if hasProjection {
		sel.SelectExprs = selectExprsForKeep(keep, allColumns)
	} else {
		sel.SelectExprs = allSelectExprs(allColumns)
	}

	return sel, nil
}

// emitFrom recursively lowers a Leaf/Join-tree into a vitess FROM-clause
// table expression plus the full list of columns it makes available.
func emitFrom(r rel.Relation, hooks ColumnHooks) (sqlparser.TableExpr, []namedSelectExpr, error) {
	switch n := r.(type) {
	case *plan.Leaf:
		table := &sqlparser.AliasedTableExpr{Expr: sqlparser.TableName{Name: sqlparser.NewTableIdent(n.Name())}}
		cols := make([]namedSelectExpr, 0, n.Columns().Len())
		for _, tag := range n.Columns().Sorted() {
			cols = append(cols, namedSelectExpr{tag: tag, table: n.Name(), expr: columnSelectExpr(tag, n.Name(), hooks)})
		}
		return table, cols, nil

	case *plan.Join:
		leftExpr, leftCols, err := emitFrom(n.Left(), hooks)
		if err != nil {
			return nil, nil, err
		}
		rightExpr, rightCols, err := emitFrom(n.Right(), hooks)
		if err != nil {
			return nil, nil, err
		}

		var cond sqlparser.Expr
		for _, tag := range n.Left().Columns().Intersect(n.Right().Columns()).Sorted() {
			left := hooks.NewColumn(tag, tableForTag(leftCols, tag))
			right := hooks.NewColumn(tag, tableForTag(rightCols, tag))
			eq := hooks.Equal(left, right)
			cond = andExpr(cond, eq)
		}
		if n.Predicate != nil {
			pe, err := lowerPredicate(n.Predicate, hooks)
			if err != nil {
				return nil, nil, err
			}
			cond = andExpr(cond, pe)
		}

		joined := &sqlparser.JoinTableExpr{LeftExpr: leftExpr, Join: sqlparser.JoinStr, RightExpr: rightExpr}
		if cond != nil {
			joined.Condition = sqlparser.JoinCondition{On: cond}
		}
		return joined, dedupNamedExprs(append(append([]namedSelectExpr{}, leftCols...), rightCols...)), nil

	default:
		return nil, nil, rel.ErrInvariant.New("sqlengine: unsupported FROM-tree shape")
	}
}

func columnSelectExpr(tag coltag.Tag, table string, hooks ColumnHooks) sqlparser.SelectExpr {
	return &sqlparser.AliasedExpr{Expr: hooks.NewColumn(tag, table).Expr()}
}

// tableForTag looks up which table a tag was sourced from among cols,
// returning "" if tag isn't present (callers only look up tags already
// known to be common to both Join operands, so this always hits).
func tableForTag(cols []namedSelectExpr, tag coltag.Tag) string {
	for _, c := range cols {
		if c.tag == tag {
			return c.table
		}
	}
	return ""
}

func selectExprsForKeep(keep coltag.Set, all []namedSelectExpr) sqlparser.SelectExprs {
	out := make(sqlparser.SelectExprs, 0, keep.Len())
	for _, tag := range keep.Sorted() {
		for _, n := range all {
			if n.tag == tag {
				out = append(out, n.expr)
				break
			}
		}
	}
	return out
}

func allSelectExprs(all []namedSelectExpr) sqlparser.SelectExprs {
	sorted := make([]namedSelectExpr, len(all))
	copy(sorted, all)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].tag.Less(sorted[j].tag) })
	out := make(sqlparser.SelectExprs, len(sorted))
	for i, n := range sorted {
		out[i] = n.expr
	}
	return out
}

func dedupNamedExprs(all []namedSelectExpr) []namedSelectExpr {
	seen := make(map[coltag.Tag]bool, len(all))
	out := make([]namedSelectExpr, 0, len(all))
	for _, n := range all {
		if seen[n.tag] {
			continue
		}
		seen[n.tag] = true
		out = append(out, n)
	}
	return out
}

// groupByAll emits a GROUP BY over every select-list expression, the
// emission this engine uses for Deduplication (§4.3's "GROUP BY from
// deduplication").
func groupByAll(exprs sqlparser.SelectExprs) sqlparser.GroupBy {
	out := make(sqlparser.GroupBy, 0, len(exprs))
	for _, e := range exprs {
		if ae, ok := e.(*sqlparser.AliasedExpr); ok {
			out = append(out, ae.Expr)
		}
	}
	return out
}

func sliceLimit(s *plan.Slice) *sqlparser.Limit {
	limit := &sqlparser.Limit{Offset: sqlparser.NewIntVal([]byte(strconv.FormatUint(s.Start, 10)))}
	if s.Stop != rel.Unbounded {
		limit.Rowcount = sqlparser.NewIntVal([]byte(strconv.FormatUint(s.Stop-s.Start, 10)))
	}
	return limit
}

func sortOrderBy(s *plan.Sort, hooks ColumnHooks) (sqlparser.OrderBy, error) {
	out := make(sqlparser.OrderBy, 0, len(s.Keys))
	for _, k := range s.Keys {
		e, err := lowerExpression(k.Expression, hooks)
		if err != nil {
			return nil, err
		}
		direction := sqlparser.AscScr
		if !k.Ascending {
			direction = sqlparser.DescScr
		}
		out = append(out, &sqlparser.Order{Expr: e, Direction: direction})
	}
	return out, nil
}

func andExpr(existing, add sqlparser.Expr) sqlparser.Expr {
	if existing == nil {
		return add
	}
	return &sqlparser.AndExpr{Left: existing, Right: add}
}

func lowerPredicate(p expr.Predicate, hooks ColumnHooks) (sqlparser.Expr, error) {
	switch v := p.(type) {
	case expr.PredicateLiteral:
		return boolLiteral(bool(v)), nil

	case expr.PredicateReference:
		return hooks.NewColumn(v.Tag, "").Expr(), nil

	case *expr.PredicateFunction:
		return lowerPredicateFunction(v, hooks)

	case *expr.LogicalNot:
		inner, err := lowerPredicate(v.Operand, hooks)
		if err != nil {
			return nil, err
		}
		return &sqlparser.NotExpr{Expr: inner}, nil

	case expr.LogicalAnd:
		if len(v) == 0 {
			return boolLiteral(true), nil
		}
		var out sqlparser.Expr
		for _, operand := range v {
			e, err := lowerPredicate(operand, hooks)
			if err != nil {
				return nil, err
			}
			out = andExpr(out, e)
		}
		return out, nil

	case expr.LogicalOr:
		if len(v) == 0 {
			return boolLiteral(false), nil
		}
		var out sqlparser.Expr
		for _, operand := range v {
			e, err := lowerPredicate(operand, hooks)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = e
			} else {
				out = &sqlparser.OrExpr{Left: out, Right: e}
			}
		}
		return out, nil

	case *expr.InContainer:
		return lowerInContainer(v, hooks)

	default:
		return nil, rel.ErrInvariant.New("sqlengine: unsupported predicate shape in emission")
	}
}

func lowerPredicateFunction(f *expr.PredicateFunction, hooks ColumnHooks) (sqlparser.Expr, error) {
	if op, ok := comparisonOperators[f.Name]; ok && len(f.Args) == 2 {
		left, err := lowerExpression(f.Args[0], hooks)
		if err != nil {
			return nil, err
		}
		right, err := lowerExpression(f.Args[1], hooks)
		if err != nil {
			return nil, err
		}
		return &sqlparser.ComparisonExpr{Operator: op, Left: left, Right: right}, nil
	}
	args := make(sqlparser.SelectExprs, len(f.Args))
	for i, a := range f.Args {
		e, err := lowerExpression(a, hooks)
		if err != nil {
			return nil, err
		}
		args[i] = &sqlparser.AliasedExpr{Expr: e}
	}
	return &sqlparser.FuncExpr{Name: sqlparser.NewColIdent(f.Name), Exprs: args}, nil
}

func lowerInContainer(i *expr.InContainer, hooks ColumnHooks) (sqlparser.Expr, error) {
	scalar, err := lowerExpression(i.Scalar, hooks)
	if err != nil {
		return nil, err
	}
	switch c := i.Container.(type) {
	case expr.ExpressionSequence:
		vals := make(sqlparser.ValTuple, len(c))
		for idx, e := range c {
			ve, err := lowerExpression(e, hooks)
			if err != nil {
				return nil, err
			}
			vals[idx] = ve
		}
		return &sqlparser.ComparisonExpr{Operator: sqlparser.InStr, Left: scalar, Right: vals}, nil

	case expr.RangeLiteral:
		from, err := lowerLiteral(c.Start)
		if err != nil {
			return nil, err
		}
		to, err := lowerLiteral(c.Stop - 1)
		if err != nil {
			return nil, err
		}
		return &sqlparser.RangeCond{Operator: sqlparser.BetweenStr, Left: scalar, From: from, To: to}, nil

	default:
		return nil, rel.ErrInvariant.New("sqlengine: unsupported container shape in emission")
	}
}

func lowerExpression(e expr.Expression, hooks ColumnHooks) (sqlparser.Expr, error) {
	switch v := e.(type) {
	case *expr.Literal:
		return lowerLiteral(v.Value)

	case *expr.Reference:
		return hooks.NewColumn(v.Tag, "").Expr(), nil

	case *expr.Function:
		args := make(sqlparser.SelectExprs, len(v.Args))
		for i, a := range v.Args {
			ae, err := lowerExpression(a, hooks)
			if err != nil {
				return nil, err
			}
			args[i] = &sqlparser.AliasedExpr{Expr: ae}
		}
		return &sqlparser.FuncExpr{Name: sqlparser.NewColIdent(v.Name), Exprs: args}, nil

	default:
		return nil, rel.ErrInvariant.New("sqlengine: unsupported expression shape in emission")
	}
}

func lowerLiteral(v any) (sqlparser.Expr, error) {
	switch val := v.(type) {
	case nil:
		return &sqlparser.NullVal{}, nil
	case string:
		return sqlparser.NewStrVal([]byte(val)), nil
	case bool:
		return boolLiteral(val), nil
	case int:
		return sqlparser.NewIntVal([]byte(strconv.Itoa(val))), nil
	case int64:
		return sqlparser.NewIntVal([]byte(strconv.FormatInt(val, 10))), nil
	case float64:
		return sqlparser.NewFloatVal([]byte(strconv.FormatFloat(val, 'g', -1, 64))), nil
	default:
		return nil, rel.ErrInvariant.New("sqlengine: unsupported literal type in emission")
	}
}

func boolLiteral(b bool) sqlparser.Expr {
	if b {
		return sqlparser.NewIntVal([]byte("1"))
	}
	return sqlparser.NewIntVal([]byte("0"))
}
