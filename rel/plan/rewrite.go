package plan

import "github.com/lsst/daf-relation/rel"

// NewIdentity wraps target as an Identity (§4.1). Neither the SQL engine's
// normalizer nor NewDeduplication builds one (Deduplication of an
// already-unique target returns target directly); WithTarget and the
// relserialize decoder use it to rebuild an existing Identity.
func NewIdentity(target rel.Relation) *Identity {
	return &Identity{
		unaryBase: unaryBase{
			op:      rel.OpIdentity,
			target:  target,
			columns: target.Columns(),
			unique:  target.Unique(),
			bounds:  target.Bounds(),
		},
	}
}

// WithTarget rebuilds n with a new target, re-validating through eng the
// same way the original factory did. rel/transform's TransformUp uses this
// to reassemble a rewritten tree bottom-up without needing to know every
// concrete operand type itself.
func WithTarget(eng rel.Engine, n rel.Operand, target rel.Relation) (rel.Relation, error) {
	switch t := n.(type) {
	case *Calculation:
		return NewCalculation(eng, target, t.Tag, t.Expression)
	case *Deduplication:
		return NewDeduplication(eng, target)
	case *Identity:
		return NewIdentity(target), nil
	case *Projection:
		return NewProjection(eng, target, t.Keep)
	case *Selection:
		return NewSelection(eng, target, t.Predicate)
	case *Slice:
		return NewSlice(eng, target, t.Start, t.Stop)
	case *Sort:
		return NewSort(eng, target, t.Keys)
	case *CustomUnary:
		return NewCustomUnary(eng, target, t.Custom)
	case *Materialization:
		return NewMaterializationMarker(target), nil
	case *Transfer:
		return newTransferUnchecked(target, t.engine), nil
	case *Select:
		return NewSelect(target), nil
	default:
		return nil, rel.ErrInvariant.New("plan: WithTarget: unsupported operand type")
	}
}

// WithOperands rebuilds n with new operands, re-validating through eng.
func WithOperands(eng rel.Engine, n rel.BinaryOperand, left, right rel.Relation) (rel.Relation, error) {
	switch t := n.(type) {
	case *Join:
		return NewJoin(eng, left, right, t.Predicate)
	case *Chain:
		return NewChain(eng, left, right)
	default:
		return nil, rel.ErrInvariant.New("plan: WithOperands: unsupported binary operand type")
	}
}
