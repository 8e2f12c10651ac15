package plan

import (
	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/rel"
)

// checkEngine verifies target's engine matches eng and that eng supports
// op (Invariant 2, §4.2).
func checkEngine(eng rel.Engine, target rel.Relation, op rel.UnaryOpKind) error {
	if eng.Name() != target.Engine() {
		return rel.ErrEngineMismatch.New(eng.Name(), target.Engine())
	}
	if !eng.Capabilities().SupportsUnaryOp(op) {
		return rel.ErrEngineUnsupportedOperation.New(eng.Name(), op.String())
	}
	return nil
}

// NewCalculation builds a Calculation (§4.1): requires expr.Columns() to
// be a subset of target's columns and tag to be new.
func NewCalculation(eng rel.Engine, target rel.Relation, tag coltag.Tag, e expr.Expression) (rel.Relation, error) {
	if err := checkEngine(eng, target, rel.OpCalculation); err != nil {
		return nil, err
	}
	if !e.Columns().Subset(target.Columns()) {
		return nil, rel.ErrColumnNotInScope.New(describeMissing(e.Columns(), target.Columns()))
	}
	if target.Columns().Contains(tag) {
		return nil, rel.ErrColumnAlreadyPresent.New(tag.QualifiedName())
	}
	if !e.IsSupportedBy(eng.Capabilities()) {
		return nil, rel.ErrEngineUnsupportedOperation.New(eng.Name(), "expression")
	}
	c := &Calculation{
		unaryBase: unaryBase{
			op:      rel.OpCalculation,
			target:  target,
			columns: coltag.Union(target.Columns(), coltag.NewSet(tag)),
			unique:  target.Unique(),
			bounds:  calculationBounds(target.Bounds()),
		},
		Tag:        tag,
		Expression: e,
	}
	return c, nil
}

// NewProjection builds a Projection (§4.1): requires keep ⊆ target.columns.
// Uniqueness weakens to false unless the engine proves otherwise via
// Conform.
func NewProjection(eng rel.Engine, target rel.Relation, keep coltag.Set) (rel.Relation, error) {
	if err := checkEngine(eng, target, rel.OpProjection); err != nil {
		return nil, err
	}
	if !keep.Subset(target.Columns()) {
		return nil, rel.ErrColumnNotInScope.New(describeMissing(keep, target.Columns()))
	}
	return &Projection{
		unaryBase: unaryBase{
			op:      rel.OpProjection,
			target:  target,
			columns: keep,
			unique:  false,
			bounds:  projectionBounds(target.Bounds()),
		},
		Keep: keep,
	}, nil
}

// NewSelection builds a Selection (§4.1): requires pred.Columns() ⊆
// target.columns. Uniqueness and columns are unchanged.
func NewSelection(eng rel.Engine, target rel.Relation, pred expr.Predicate) (rel.Relation, error) {
	if err := checkEngine(eng, target, rel.OpSelection); err != nil {
		return nil, err
	}
	if !pred.Columns().Subset(target.Columns()) {
		return nil, rel.ErrColumnNotInScope.New(describeMissing(pred.Columns(), target.Columns()))
	}
	if !pred.IsSupportedBy(eng.Capabilities()) {
		return nil, rel.ErrEngineUnsupportedOperation.New(eng.Name(), "predicate")
	}
	return &Selection{
		unaryBase: unaryBase{
			op:      rel.OpSelection,
			target:  target,
			columns: target.Columns(),
			unique:  target.Unique(),
			bounds:  selectionBounds(target.Bounds()),
		},
		Predicate: pred,
	}, nil
}

// NewSlice builds a Slice (§4.1): requires 0 <= start <= stop (stop may be
// rel.Unbounded).
func NewSlice(eng rel.Engine, target rel.Relation, start, stop uint64) (rel.Relation, error) {
	if err := checkEngine(eng, target, rel.OpSlice); err != nil {
		return nil, err
	}
	if stop != rel.Unbounded && start > stop {
		return nil, rel.ErrInvalidSlice.New(start, stop)
	}
	return &Slice{
		unaryBase: unaryBase{
			op:      rel.OpSlice,
			target:  target,
			columns: target.Columns(),
			unique:  target.Unique(),
			bounds:  sliceBounds(target.Bounds(), start, stop),
		},
		Start: start,
		Stop:  stop,
	}, nil
}

// NewSort builds a Sort (§4.1): requires every key's columns ⊆
// target.columns.
func NewSort(eng rel.Engine, target rel.Relation, keys []SortKey) (rel.Relation, error) {
	if err := checkEngine(eng, target, rel.OpSort); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if !k.Expression.Columns().Subset(target.Columns()) {
			return nil, rel.ErrColumnNotInScope.New(describeMissing(k.Expression.Columns(), target.Columns()))
		}
	}
	return &Sort{
		unaryBase: unaryBase{
			op:      rel.OpSort,
			target:  target,
			columns: target.Columns(),
			unique:  target.Unique(),
			bounds:  sortBounds(target.Bounds()),
		},
		Keys: keys,
	}, nil
}

// NewDeduplication builds a Deduplication (§4.1). Policy: if target is
// already unique, or target.Bounds().AtMostOne() certifies at most one row,
// return target unchanged (identity) rather than wrapping it — Testable
// Scenario S3 verifies the bounds case returns the same node by identity.
func NewDeduplication(eng rel.Engine, target rel.Relation) (rel.Relation, error) {
	if err := checkEngine(eng, target, rel.OpDeduplication); err != nil {
		return nil, err
	}
	if target.Unique() || target.Bounds().AtMostOne() {
		return target, nil
	}
	return &Deduplication{
		unaryBase: unaryBase{
			op:      rel.OpDeduplication,
			target:  target,
			columns: target.Columns(),
			unique:  true,
			bounds:  dedupBounds(target.Bounds()),
		},
	}, nil
}

// NewJoin builds a Join (§4.1). Operands must share an engine; columns are
// the union of both sides; uniqueness is conservative (true only when both
// sides are unique, else false — §9's open-question resolution).
func NewJoin(eng rel.Engine, lhs, rhs rel.Relation, pred expr.Predicate) (rel.Relation, error) {
	if lhs.Engine() != rhs.Engine() {
		return nil, rel.ErrEngineMismatch.New(lhs.Engine(), rhs.Engine())
	}
	if eng.Name() != lhs.Engine() {
		return nil, rel.ErrEngineMismatch.New(eng.Name(), lhs.Engine())
	}
	if !eng.Capabilities().SupportsBinaryOp(rel.OpJoin) {
		return nil, rel.ErrEngineUnsupportedOperation.New(eng.Name(), rel.OpJoin.String())
	}
	if pred != nil {
		if !pred.Columns().Subset(coltag.Union(lhs.Columns(), rhs.Columns())) {
			return nil, rel.ErrColumnNotInScope.New(describeMissing(pred.Columns(), coltag.Union(lhs.Columns(), rhs.Columns())))
		}
	}
	unique := lhs.Unique() && rhs.Unique()
	return &Join{
		binaryBase: binaryBase{
			op:      rel.OpJoin,
			lhs:     lhs,
			rhs:     rhs,
			columns: coltag.Union(lhs.Columns(), rhs.Columns()),
			unique:  unique,
			bounds:  joinBounds(lhs.Bounds(), rhs.Bounds()),
		},
		Predicate: pred,
	}, nil
}

// NewChain builds a Chain (§4.1): requires lhs and rhs to have equal
// column sets; uniqueness is always false (multiset union).
func NewChain(eng rel.Engine, lhs, rhs rel.Relation) (rel.Relation, error) {
	if lhs.Engine() != rhs.Engine() {
		return nil, rel.ErrEngineMismatch.New(lhs.Engine(), rhs.Engine())
	}
	if eng.Name() != lhs.Engine() {
		return nil, rel.ErrEngineMismatch.New(eng.Name(), lhs.Engine())
	}
	if !eng.Capabilities().SupportsBinaryOp(rel.OpChain) {
		return nil, rel.ErrEngineUnsupportedOperation.New(eng.Name(), rel.OpChain.String())
	}
	if !lhs.Columns().Equals(rhs.Columns()) {
		return nil, rel.ErrChainColumnMismatch.New()
	}
	return &Chain{
		binaryBase: binaryBase{
			op:      rel.OpChain,
			lhs:     lhs,
			rhs:     rhs,
			columns: lhs.Columns(),
			unique:  false,
			bounds:  chainBounds(lhs.Bounds(), rhs.Bounds()),
		},
	}, nil
}

// NewCustomUnary builds a CustomUnary wrapping a host-defined op (§9).
// Columns and uniqueness follow the op's declared RowFilter/Reordering
// shape: both preserve columns; RowFilter may weaken uniqueness to false
// only if it cannot be established that it removes at most duplicates
// (conservatively, both preserve uniqueness here, matching Selection/Sort).
func NewCustomUnary(eng rel.Engine, target rel.Relation, op rel.CustomUnaryOp) (rel.Relation, error) {
	if eng.Name() != target.Engine() {
		return nil, rel.ErrEngineMismatch.New(eng.Name(), target.Engine())
	}
	if !eng.Capabilities().SupportsCustomUnaryOp(op.Name()) {
		return nil, rel.ErrEngineUnsupportedOperation.New(eng.Name(), op.Name())
	}
	if !op.RowFilter() && !op.Reordering() {
		return nil, rel.ErrEngineUnsupportedOperation.New(eng.Name(), op.Name())
	}
	return &CustomUnary{
		unaryBase: unaryBase{
			target:  target,
			columns: target.Columns(),
			unique:  target.Unique(),
			bounds:  target.Bounds(),
		},
		Custom: op,
	}, nil
}

// NewTransfer builds a Transfer marker bridging target's engine to
// destination (Invariant 2: source != destination).
func NewTransfer(target rel.Relation, destination rel.Engine) (rel.Relation, error) {
	if target.Engine() == destination.Name() {
		return nil, rel.ErrTransferSameEngine.New(destination.Name())
	}
	return newTransferUnchecked(target, destination.Name()), nil
}

// NewMaterializationMarker builds a Materialization marker over target.
func NewMaterializationMarker(target rel.Relation) rel.Relation {
	return NewMaterialization(target)
}

func describeMissing(want, have coltag.Set) string {
	for _, t := range want.Sorted() {
		if !have.Contains(t) {
			return t.QualifiedName()
		}
	}
	return ""
}
