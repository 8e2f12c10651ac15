// Package relserialize serializes a relation tree to and from a tagged YAML
// document (§6): one YAML mapping per node, a "kind" field naming the
// variant, stable field names matching the plan package's own Go field
// names. Column tags, being host-defined and opaque to the core, go through
// a host-supplied TagCodec rather than a built-in encoding.
package relserialize

import (
	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/rel"
)

// TagCodec lets a host's coltag.Tag round-trip through a YAML document. The
// core has no opinion on a tag's representation beyond what coltag.Tag
// itself requires, so serialization is impossible without one of these.
type TagCodec interface {
	EncodeTag(t coltag.Tag) (string, error)
	DecodeTag(s string) (coltag.Tag, error)
}

// CustomOpCodec resolves a rel.CustomUnaryOp by the name it was serialized
// under (its own Name()). Only required when a tree contains a CustomUnary
// node; a nil CustomOpCodec is fine for trees that don't.
type CustomOpCodec interface {
	DecodeCustomOp(name string) (rel.CustomUnaryOp, error)
}

// Engines resolves an engine by name for Unmarshal, the same registry shape
// rel/processor.Processor uses.
type Engines map[string]rel.Engine

func (e Engines) lookup(name string) (rel.Engine, error) {
	eng, ok := e[name]
	if !ok {
		return nil, ErrUnknownEngine.New(name)
	}
	return eng, nil
}
