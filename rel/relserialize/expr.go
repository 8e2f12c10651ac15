package relserialize

import "github.com/lsst/daf-relation/expr"

// exprNode is the tagged-union YAML shape for expr.Expression.
type exprNode struct {
	Kind  string      `yaml:"kind"`
	Value interface{} `yaml:"value,omitempty"`
	Tag   string      `yaml:"tag,omitempty"`
	Name  string      `yaml:"name,omitempty"`
	Args  []*exprNode `yaml:"args,omitempty"`
}

func encodeExpr(e expr.Expression, tags TagCodec) (*exprNode, error) {
	switch v := e.(type) {
	case *expr.Literal:
		return &exprNode{Kind: "literal", Value: v.Value}, nil
	case *expr.Reference:
		tag, err := tags.EncodeTag(v.Tag)
		if err != nil {
			return nil, err
		}
		return &exprNode{Kind: "reference", Tag: tag}, nil
	case *expr.Function:
		args, err := encodeExprs(v.Args, tags)
		if err != nil {
			return nil, err
		}
		return &exprNode{Kind: "function", Name: v.Name, Args: args}, nil
	default:
		return nil, ErrUnknownKind.New("(unserializable expression type)")
	}
}

func decodeExpr(n *exprNode, tags TagCodec) (expr.Expression, error) {
	switch n.Kind {
	case "literal":
		return &expr.Literal{Value: n.Value}, nil
	case "reference":
		tag, err := tags.DecodeTag(n.Tag)
		if err != nil {
			return nil, err
		}
		return &expr.Reference{Tag: tag}, nil
	case "function":
		args, err := decodeExprs(n.Args, tags)
		if err != nil {
			return nil, err
		}
		return &expr.Function{Name: n.Name, Args: args}, nil
	default:
		return nil, ErrUnknownKind.New(n.Kind)
	}
}

func encodeExprs(es []expr.Expression, tags TagCodec) ([]*exprNode, error) {
	if len(es) == 0 {
		return nil, nil
	}
	out := make([]*exprNode, len(es))
	for i, e := range es {
		n, err := encodeExpr(e, tags)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func decodeExprs(ns []*exprNode, tags TagCodec) ([]expr.Expression, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	out := make([]expr.Expression, len(ns))
	for i, n := range ns {
		e, err := decodeExpr(n, tags)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// predicateNode is the tagged-union YAML shape for expr.Predicate.
type predicateNode struct {
	Kind      string           `yaml:"kind"`
	Value     bool             `yaml:"value,omitempty"`
	Tag       string           `yaml:"tag,omitempty"`
	Name      string           `yaml:"name,omitempty"`
	Args      []*exprNode      `yaml:"args,omitempty"`
	Operand   *predicateNode   `yaml:"operand,omitempty"`
	Operands  []*predicateNode `yaml:"operands,omitempty"`
	Scalar    *exprNode        `yaml:"scalar,omitempty"`
	Container *containerNode   `yaml:"container,omitempty"`
}

func encodePredicate(p expr.Predicate, tags TagCodec) (*predicateNode, error) {
	switch v := p.(type) {
	case expr.PredicateLiteral:
		return &predicateNode{Kind: "literal", Value: bool(v)}, nil
	case expr.PredicateReference:
		tag, err := tags.EncodeTag(v.Tag)
		if err != nil {
			return nil, err
		}
		return &predicateNode{Kind: "reference", Tag: tag}, nil
	case *expr.PredicateFunction:
		args, err := encodeExprs(v.Args, tags)
		if err != nil {
			return nil, err
		}
		return &predicateNode{Kind: "function", Name: v.Name, Args: args}, nil
	case *expr.LogicalNot:
		operand, err := encodePredicate(v.Operand, tags)
		if err != nil {
			return nil, err
		}
		return &predicateNode{Kind: "not", Operand: operand}, nil
	case expr.LogicalAnd:
		operands, err := encodePredicates(v, tags)
		if err != nil {
			return nil, err
		}
		return &predicateNode{Kind: "and", Operands: operands}, nil
	case expr.LogicalOr:
		operands, err := encodePredicates(v, tags)
		if err != nil {
			return nil, err
		}
		return &predicateNode{Kind: "or", Operands: operands}, nil
	case *expr.InContainer:
		scalar, err := encodeExpr(v.Scalar, tags)
		if err != nil {
			return nil, err
		}
		container, err := encodeContainer(v.Container, tags)
		if err != nil {
			return nil, err
		}
		return &predicateNode{Kind: "inContainer", Scalar: scalar, Container: container}, nil
	default:
		return nil, ErrUnknownKind.New("(unserializable predicate type)")
	}
}

func decodePredicate(n *predicateNode, tags TagCodec) (expr.Predicate, error) {
	switch n.Kind {
	case "literal":
		return expr.PredicateLiteral(n.Value), nil
	case "reference":
		tag, err := tags.DecodeTag(n.Tag)
		if err != nil {
			return nil, err
		}
		return expr.PredicateReference{Tag: tag}, nil
	case "function":
		args, err := decodeExprs(n.Args, tags)
		if err != nil {
			return nil, err
		}
		return &expr.PredicateFunction{Name: n.Name, Args: args}, nil
	case "not":
		operand, err := decodePredicate(n.Operand, tags)
		if err != nil {
			return nil, err
		}
		return &expr.LogicalNot{Operand: operand}, nil
	case "and":
		operands, err := decodePredicates(n.Operands, tags)
		if err != nil {
			return nil, err
		}
		return expr.LogicalAnd(operands), nil
	case "or":
		operands, err := decodePredicates(n.Operands, tags)
		if err != nil {
			return nil, err
		}
		return expr.LogicalOr(operands), nil
	case "inContainer":
		scalar, err := decodeExpr(n.Scalar, tags)
		if err != nil {
			return nil, err
		}
		container, err := decodeContainer(n.Container, tags)
		if err != nil {
			return nil, err
		}
		return &expr.InContainer{Scalar: scalar, Container: container}, nil
	default:
		return nil, ErrUnknownKind.New(n.Kind)
	}
}

func encodePredicates(ps []expr.Predicate, tags TagCodec) ([]*predicateNode, error) {
	if len(ps) == 0 {
		return nil, nil
	}
	out := make([]*predicateNode, len(ps))
	for i, p := range ps {
		n, err := encodePredicate(p, tags)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func decodePredicates(ns []*predicateNode, tags TagCodec) ([]expr.Predicate, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	out := make([]expr.Predicate, len(ns))
	for i, n := range ns {
		p, err := decodePredicate(n, tags)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// containerNode is the tagged-union YAML shape for expr.Container.
type containerNode struct {
	Kind        string      `yaml:"kind"`
	Expressions []*exprNode `yaml:"expressions,omitempty"`
	Start       int64       `yaml:"start,omitempty"`
	Stop        int64       `yaml:"stop,omitempty"`
	Step        int64       `yaml:"step,omitempty"`
}

func encodeContainer(c expr.Container, tags TagCodec) (*containerNode, error) {
	switch v := c.(type) {
	case expr.ExpressionSequence:
		exprs, err := encodeExprs(v, tags)
		if err != nil {
			return nil, err
		}
		return &containerNode{Kind: "sequence", Expressions: exprs}, nil
	case expr.RangeLiteral:
		return &containerNode{Kind: "range", Start: v.Start, Stop: v.Stop, Step: v.Step}, nil
	default:
		return nil, ErrUnknownKind.New("(unserializable container type)")
	}
}

func decodeContainer(n *containerNode, tags TagCodec) (expr.Container, error) {
	switch n.Kind {
	case "sequence":
		exprs, err := decodeExprs(n.Expressions, tags)
		if err != nil {
			return nil, err
		}
		return expr.ExpressionSequence(exprs), nil
	case "range":
		return expr.RangeLiteral{Start: n.Start, Stop: n.Stop, Step: n.Step}, nil
	default:
		return nil, ErrUnknownKind.New(n.Kind)
	}
}
