package relserialize

import (
	"gopkg.in/yaml.v2"

	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/rel"
	"github.com/lsst/daf-relation/rel/plan"
)

// sortKeyNode is the tagged-union YAML shape for plan.SortKey.
type sortKeyNode struct {
	Expression *exprNode `yaml:"expression"`
	Ascending  bool      `yaml:"ascending"`
}

// node is the tagged-tree YAML shape for a rel.Relation (§6): one mapping
// per node, "kind" naming the concrete variant, and only the fields that
// variant actually carries populated. Fields not relevant to a given kind
// are left at their zero value and omitted by "omitempty".
type node struct {
	Kind string `yaml:"kind"`

	// Leaf
	Name    string   `yaml:"name,omitempty"`
	Engine  string   `yaml:"engine,omitempty"`
	Columns []string `yaml:"columns,omitempty"`
	Unique  bool     `yaml:"unique,omitempty"`
	MinRows uint64   `yaml:"min_rows,omitempty"`
	MaxRows *uint64  `yaml:"max_rows,omitempty"`

	// Every unary op and Marker
	Target *node `yaml:"target,omitempty"`

	// Calculation
	Tag        string    `yaml:"tag,omitempty"`
	Expression *exprNode `yaml:"expression,omitempty"`

	// Projection
	Keep []string `yaml:"keep,omitempty"`

	// Selection, Join
	Predicate *predicateNode `yaml:"predicate,omitempty"`

	// Slice
	Start uint64 `yaml:"start,omitempty"`
	Stop  uint64 `yaml:"stop,omitempty"`

	// Sort
	Keys []sortKeyNode `yaml:"keys,omitempty"`

	// CustomUnary
	Custom string `yaml:"custom,omitempty"`

	// Join, Chain
	Left  *node `yaml:"left,omitempty"`
	Right *node `yaml:"right,omitempty"`

	// Transfer
	Destination string `yaml:"destination,omitempty"`
}

// Marshal serializes r as a tagged YAML document (§6). tags encodes every
// coltag.Tag the tree references.
func Marshal(r rel.Relation, tags TagCodec) ([]byte, error) {
	n, err := encodeRelation(r, tags)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(n)
}

// Unmarshal reconstructs a relation tree from data, rebuilding every node
// through its plan.NewXxx factory so construction-time invariants are
// re-checked exactly as they were when the tree was first built. engines
// resolves each node's declared engine by name; customOps is only consulted
// if the tree contains a CustomUnary node (nil is fine otherwise).
//
// Leaf payloads and cached Materialization payloads are not part of the
// serialized shape — they're engine-resident runtime state, not tree
// structure — so a round-tripped tree always comes back without payloads
// attached, same as a freshly built one.
func Unmarshal(data []byte, tags TagCodec, engines Engines, customOps CustomOpCodec) (rel.Relation, error) {
	var n node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return decodeRelation(&n, tags, engines, customOps)
}

func encodeRelation(r rel.Relation, tags TagCodec) (*node, error) {
	switch v := r.(type) {
	case *plan.Leaf:
		return encodeLeaf(v, tags)
	case *plan.Calculation:
		target, err := encodeRelation(v.Target(), tags)
		if err != nil {
			return nil, err
		}
		tag, err := tags.EncodeTag(v.Tag)
		if err != nil {
			return nil, err
		}
		e, err := encodeExpr(v.Expression, tags)
		if err != nil {
			return nil, err
		}
		return &node{Kind: "calculation", Target: target, Tag: tag, Expression: e}, nil
	case *plan.Deduplication:
		target, err := encodeRelation(v.Target(), tags)
		if err != nil {
			return nil, err
		}
		return &node{Kind: "deduplication", Target: target}, nil
	case *plan.Identity:
		target, err := encodeRelation(v.Target(), tags)
		if err != nil {
			return nil, err
		}
		return &node{Kind: "identity", Target: target}, nil
	case *plan.Projection:
		target, err := encodeRelation(v.Target(), tags)
		if err != nil {
			return nil, err
		}
		keep, err := encodeTagSet(v.Keep, tags)
		if err != nil {
			return nil, err
		}
		return &node{Kind: "projection", Target: target, Keep: keep}, nil
	case *plan.Selection:
		target, err := encodeRelation(v.Target(), tags)
		if err != nil {
			return nil, err
		}
		pred, err := encodePredicate(v.Predicate, tags)
		if err != nil {
			return nil, err
		}
		return &node{Kind: "selection", Target: target, Predicate: pred}, nil
	case *plan.Slice:
		target, err := encodeRelation(v.Target(), tags)
		if err != nil {
			return nil, err
		}
		return &node{Kind: "slice", Target: target, Start: v.Start, Stop: v.Stop}, nil
	case *plan.Sort:
		target, err := encodeRelation(v.Target(), tags)
		if err != nil {
			return nil, err
		}
		keys := make([]sortKeyNode, len(v.Keys))
		for i, k := range v.Keys {
			e, err := encodeExpr(k.Expression, tags)
			if err != nil {
				return nil, err
			}
			keys[i] = sortKeyNode{Expression: e, Ascending: k.Ascending}
		}
		return &node{Kind: "sort", Target: target, Keys: keys}, nil
	case *plan.CustomUnary:
		target, err := encodeRelation(v.Target(), tags)
		if err != nil {
			return nil, err
		}
		return &node{Kind: "customUnary", Target: target, Custom: v.Custom.Name()}, nil
	case *plan.Join:
		left, err := encodeRelation(v.Left(), tags)
		if err != nil {
			return nil, err
		}
		right, err := encodeRelation(v.Right(), tags)
		if err != nil {
			return nil, err
		}
		var pred *predicateNode
		if v.Predicate != nil {
			pred, err = encodePredicate(v.Predicate, tags)
			if err != nil {
				return nil, err
			}
		}
		return &node{Kind: "join", Left: left, Right: right, Predicate: pred}, nil
	case *plan.Chain:
		left, err := encodeRelation(v.Left(), tags)
		if err != nil {
			return nil, err
		}
		right, err := encodeRelation(v.Right(), tags)
		if err != nil {
			return nil, err
		}
		return &node{Kind: "chain", Left: left, Right: right}, nil
	case *plan.Materialization:
		target, err := encodeRelation(v.Target(), tags)
		if err != nil {
			return nil, err
		}
		return &node{Kind: "materialization", Target: target}, nil
	case *plan.Transfer:
		target, err := encodeRelation(v.Target(), tags)
		if err != nil {
			return nil, err
		}
		return &node{Kind: "transfer", Target: target, Destination: v.Engine()}, nil
	case *plan.Select:
		target, err := encodeRelation(v.Target(), tags)
		if err != nil {
			return nil, err
		}
		return &node{Kind: "select", Target: target}, nil
	default:
		return nil, ErrUnknownKind.New("(unrecognized relation type)")
	}
}

func encodeLeaf(l *plan.Leaf, tags TagCodec) (*node, error) {
	cols, err := encodeTagSet(l.Columns(), tags)
	if err != nil {
		return nil, err
	}
	n := &node{
		Kind:    "leaf",
		Name:    l.Name(),
		Engine:  l.Engine(),
		Columns: cols,
		Unique:  l.Unique(),
		MinRows: l.Bounds().Min,
	}
	if max := l.Bounds().Max; max != rel.Unbounded {
		n.MaxRows = &max
	}
	return n, nil
}

func decodeRelation(n *node, tags TagCodec, engines Engines, customOps CustomOpCodec) (rel.Relation, error) {
	switch n.Kind {
	case "leaf":
		if _, err := engines.lookup(n.Engine); err != nil {
			return nil, err
		}
		return decodeLeaf(n, tags)
	case "calculation":
		target, eng, err := decodeTargetAndEngine(n.Target, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		tag, err := tags.DecodeTag(n.Tag)
		if err != nil {
			return nil, err
		}
		e, err := decodeExpr(n.Expression, tags)
		if err != nil {
			return nil, err
		}
		return plan.NewCalculation(eng, target, tag, e)
	case "deduplication":
		target, eng, err := decodeTargetAndEngine(n.Target, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		return plan.NewDeduplication(eng, target)
	case "identity":
		target, err := decodeRelation(n.Target, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		return plan.NewIdentity(target), nil
	case "projection":
		target, eng, err := decodeTargetAndEngine(n.Target, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		keep, err := decodeTagSet(n.Keep, tags)
		if err != nil {
			return nil, err
		}
		return plan.NewProjection(eng, target, keep)
	case "selection":
		target, eng, err := decodeTargetAndEngine(n.Target, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		pred, err := decodePredicate(n.Predicate, tags)
		if err != nil {
			return nil, err
		}
		return plan.NewSelection(eng, target, pred)
	case "slice":
		target, eng, err := decodeTargetAndEngine(n.Target, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		return plan.NewSlice(eng, target, n.Start, n.Stop)
	case "sort":
		target, eng, err := decodeTargetAndEngine(n.Target, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		keys := make([]plan.SortKey, len(n.Keys))
		for i, k := range n.Keys {
			e, err := decodeExpr(k.Expression, tags)
			if err != nil {
				return nil, err
			}
			keys[i] = plan.SortKey{Expression: e, Ascending: k.Ascending}
		}
		return plan.NewSort(eng, target, keys)
	case "customUnary":
		if customOps == nil {
			return nil, ErrMissingCustomOpCodec.New(n.Custom)
		}
		target, eng, err := decodeTargetAndEngine(n.Target, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		op, err := customOps.DecodeCustomOp(n.Custom)
		if err != nil {
			return nil, err
		}
		return plan.NewCustomUnary(eng, target, op)
	case "join":
		left, eng, err := decodeTargetAndEngine(n.Left, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		right, err := decodeRelation(n.Right, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		var pred expr.Predicate
		if n.Predicate != nil {
			pred, err = decodePredicate(n.Predicate, tags)
			if err != nil {
				return nil, err
			}
		}
		return plan.NewJoin(eng, left, right, pred)
	case "chain":
		left, eng, err := decodeTargetAndEngine(n.Left, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		right, err := decodeRelation(n.Right, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		return plan.NewChain(eng, left, right)
	case "materialization":
		target, err := decodeRelation(n.Target, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		return plan.NewMaterializationMarker(target), nil
	case "transfer":
		target, err := decodeRelation(n.Target, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		destEngine, err := engines.lookup(n.Destination)
		if err != nil {
			return nil, err
		}
		return plan.NewTransfer(target, destEngine)
	case "select":
		target, err := decodeRelation(n.Target, tags, engines, customOps)
		if err != nil {
			return nil, err
		}
		return plan.NewSelect(target), nil
	default:
		return nil, ErrUnknownKind.New(n.Kind)
	}
}

func decodeLeaf(n *node, tags TagCodec) (rel.Relation, error) {
	cols, err := decodeTagSet(n.Columns, tags)
	if err != nil {
		return nil, err
	}
	max := rel.Unbounded
	if n.MaxRows != nil {
		max = *n.MaxRows
	}
	return plan.NewLeaf(n.Name, n.Engine, cols, n.Unique, rel.RowBounds{Min: n.MinRows, Max: max}), nil
}

// decodeTargetAndEngine decodes a child node and looks up the engine its
// parent operation should be built against — the child's own declared
// engine, since every unary/binary op (other than Transfer, handled
// separately) shares its operand's engine (Invariant 2).
func decodeTargetAndEngine(n *node, tags TagCodec, engines Engines, customOps CustomOpCodec) (rel.Relation, rel.Engine, error) {
	target, err := decodeRelation(n, tags, engines, customOps)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engines.lookup(target.Engine())
	if err != nil {
		return nil, nil, err
	}
	return target, eng, nil
}

func encodeTagSet(s coltag.Set, tags TagCodec) ([]string, error) {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, t := range sorted {
		enc, err := tags.EncodeTag(t)
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

func decodeTagSet(ss []string, tags TagCodec) (coltag.Set, error) {
	out := make([]coltag.Tag, len(ss))
	for i, s := range ss {
		t, err := tags.DecodeTag(s)
		if err != nil {
			return coltag.Set{}, err
		}
		out[i] = t
	}
	return coltag.NewSet(out...), nil
}
