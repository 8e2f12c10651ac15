// Package sqlengine implements the SQL engine of §4.3: commutation-driven
// normalization of adjacent Join/Selection/Calculation/Projection nodes
// into a canonical SELECT shape, Select-marker placement, and emission to
// a host database client's own expression objects.
package sqlengine

import (
	"gopkg.in/src-d/go-vitess.v0/vt/sqlparser"

	"github.com/lsst/daf-relation/coltag"
)

// Column is the SQL engine's "logical column" type parameter L (§4.3's
// last paragraph): the representation of a column tag's value inside an
// emitted expression. The default, DefaultColumn, is a single backend
// column element; a host may substitute a wrapper bearing several
// underlying columns (e.g. a compound region encoding) by supplying its
// own ColumnHooks.
type Column interface {
	// Expr renders this column as the vitess expression referencing it.
	Expr() sqlparser.Expr
}

// ColumnHooks builds and compares the logical columns a Tag lowers to, and
// is consulted by Emit wherever a column reference or an equi-join key
// comparison needs lowering. DefaultColumnHooks is the identity case: one
// tag maps to exactly one backend column.
type ColumnHooks interface {
	// NewColumn builds the logical column standing for tag as it reads from
	// table, the name of the Leaf it was sourced from. table is "" where no
	// particular origin needs naming (a WHERE/SELECT-list reference with no
	// risk of colliding with another table's copy of the same tag); a
	// Join's equi-join keys always pass the real table on each side, since
	// the left and right operand's copy of a common tag are different
	// columns and must not render identically.
	NewColumn(tag coltag.Tag, table string) Column

	// Equal builds the comparison expression asserting a and b (which must
	// be the same concrete Column shape) hold equal values, used to lower
	// Join's implicit equi-join keys. PredicateFunction "eq" and
	// InContainer are lowered without it.
	Equal(a, b Column) sqlparser.Expr
}

// DefaultColumn is a single backend column identified by its tag's
// qualified name, optionally qualified by its origin table.
type DefaultColumn struct {
	Tag   coltag.Tag
	Table string
}

func (c DefaultColumn) Expr() sqlparser.Expr {
	name := &sqlparser.ColName{Name: sqlparser.NewColIdent(c.Tag.QualifiedName())}
	if c.Table != "" {
		name.Qualifier = sqlparser.TableName{Name: sqlparser.NewTableIdent(c.Table)}
	}
	return name
}

// DefaultColumnHooks is the ColumnHooks used when a host has no compound
// column representation to substitute.
type DefaultColumnHooks struct{}

func (DefaultColumnHooks) NewColumn(tag coltag.Tag, table string) Column {
	return DefaultColumn{Tag: tag, Table: table}
}

func (DefaultColumnHooks) Equal(a, b Column) sqlparser.Expr {
	return &sqlparser.ComparisonExpr{
		Operator: sqlparser.EqualStr,
		Left:     a.Expr(),
		Right:    b.Expr(),
	}
}
