// Package processor implements §4.5: walking a relation tree that may span
// several engines, bridging each Transfer boundary by executing the source
// side and importing its payload into the destination engine, caching each
// Materialization marker's result, and finally conforming and executing
// whatever single-engine subtree remains. Plays the same role an
// analyzer-plus-execution-engine pairing plays in driving a plan to rows,
// generalized here to more than one backend per tree.
package processor

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	uuid "github.com/satori/go.uuid"

	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/rel"
	"github.com/lsst/daf-relation/rel/plan"
)

// Processor drives a (possibly multi-engine) relation tree to a payload.
// It holds no per-call state; a single Processor is safe to share across
// concurrent Process calls, including concurrent calls over the same tree
// (§5, Testable Property 7).
type Processor struct {
	// Engines maps an engine name (as returned by Relation.Engine and
	// rel.Engine.Name) to the engine implementation that should drive it.
	// Process returns a NotImplementedByEngine-shaped error if a tree
	// references a name missing from this map.
	Engines map[string]rel.Engine

	// Log is the base logger every Process call derives a per-call entry
	// from via WithField("process_id", ...); nil means the standard
	// logrus logger.
	Log *logrus.Entry

	// Tracer roots the span each Process call starts, and the child span
	// around every engine.Execute call; nil means opentracing.GlobalTracer().
	Tracer opentracing.Tracer
}

// New builds a Processor over the given engine registry, keyed by each
// engine's Name().
func New(engines ...rel.Engine) *Processor {
	reg := make(map[string]rel.Engine, len(engines))
	for _, e := range engines {
		reg[e.Name()] = e
	}
	return &Processor{Engines: reg}
}

func (p *Processor) log() *logrus.Entry {
	if p.Log != nil {
		return p.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (p *Processor) tracer() opentracing.Tracer {
	if p.Tracer != nil {
		return p.Tracer
	}
	return opentracing.GlobalTracer()
}

func (p *Processor) engineFor(name string) (rel.Engine, error) {
	eng, ok := p.Engines[name]
	if !ok {
		return nil, rel.ErrNotImplementedByEngine.New("Process", name)
	}
	return eng, nil
}

// Process drives r to a payload, bridging every Transfer and resolving
// every Materialization it contains (§4.5).
func (p *Processor) Process(ctx context.Context, r rel.Relation) (rel.Payload, error) {
	id := uuid.NewV4()
	log := p.log().WithField("process_id", id.String())

	span := p.tracer().StartSpan("relation.process")
	ctx = opentracing.ContextWithSpan(ctx, span)
	defer span.Finish()

	log.WithField("engine", r.Engine()).Debug("processor: starting")
	payload, err := p.executeSubtree(ctx, log, r)
	if err != nil {
		log.WithError(err).Warn("processor: failed")
		return nil, err
	}
	log.Debug("processor: finished")
	return payload, nil
}

// executeSubtree resolves every Transfer/Materialization within r (leaving
// everything else alone), then conforms and executes the now-single-engine
// result (§4.5 item 3).
func (p *Processor) executeSubtree(ctx context.Context, log *logrus.Entry, r rel.Relation) (rel.Payload, error) {
	resolved, err := p.resolve(ctx, log, r)
	if err != nil {
		return nil, err
	}
	// resolve() substitutes every Transfer/Materialization it finds with a
	// Leaf already carrying the payload that substitution computed. If the
	// whole subtree collapsed to exactly one such Leaf, that payload is the
	// answer already — calling Conform/Execute again would, for the SQL
	// engine, re-query a table name that does not exist (Invariant 4: this
	// is the one case payload attachment means "nothing left to execute").
	if resolved.Kind() == rel.KindLeaf {
		if pl := resolved.Payload(); pl != nil {
			return pl, nil
		}
	}
	eng, err := p.engineFor(resolved.Engine())
	if err != nil {
		return nil, err
	}
	conformed, err := eng.Conform(resolved)
	if err != nil {
		return nil, rel.ErrExecution.Wrap(err)
	}
	return p.execute(ctx, log, eng, conformed)
}

func (p *Processor) execute(ctx context.Context, log *logrus.Entry, eng rel.Engine, r rel.Relation) (rel.Payload, error) {
	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, p.tracer(), "engine.execute")
	span.SetTag("engine", eng.Name())
	defer span.Finish()

	log.WithField("engine", eng.Name()).Debug("processor: executing single-engine subtree")
	payload, err := eng.Execute(ctx, r)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// resolve walks r bottom-up, substituting every Transfer and Materialization
// it finds with a Leaf standing in for its resolved payload, and rebuilding
// any ancestor whose child changed via plan.WithTarget/WithOperands — the
// same ancestor-rebuild idiom rel/transform.TransformUp uses, generalized
// here to look up each ancestor's own engine rather than assuming one engine
// for the whole tree, since a multi-engine tree's ancestors do not all share
// Transfer's engine.
func (p *Processor) resolve(ctx context.Context, log *logrus.Entry, r rel.Relation) (rel.Relation, error) {
	switch n := r.(type) {
	case *plan.Transfer:
		return p.resolveTransfer(ctx, log, n)
	case *plan.Materialization:
		return p.resolveMaterialization(ctx, log, n)
	}

	switch n := r.(type) {
	case rel.BinaryOperand:
		newLeft, err := p.resolve(ctx, log, n.Left())
		if err != nil {
			return nil, err
		}
		newRight, err := p.resolve(ctx, log, n.Right())
		if err != nil {
			return nil, err
		}
		if newLeft == n.Left() && newRight == n.Right() {
			return r, nil
		}
		eng, err := p.engineFor(r.Engine())
		if err != nil {
			return nil, err
		}
		return plan.WithOperands(eng, n, newLeft, newRight)

	case rel.Operand:
		newTarget, err := p.resolve(ctx, log, n.Target())
		if err != nil {
			return nil, err
		}
		if newTarget == n.Target() {
			return r, nil
		}
		eng, err := p.engineFor(r.Engine())
		if err != nil {
			return nil, err
		}
		return plan.WithTarget(eng, n, newTarget)

	default:
		return r, nil
	}
}

// resolveTransfer realizes §4.5 items 1-2: execute the source subtree on
// its own engine, import the resulting payload into the destination engine,
// and substitute a Leaf carrying that imported payload for the Transfer.
func (p *Processor) resolveTransfer(ctx context.Context, log *logrus.Entry, t *plan.Transfer) (rel.Relation, error) {
	source := t.Target()
	log.WithFields(logrus.Fields{
		"source_engine":      source.Engine(),
		"destination_engine": t.Engine(),
	}).Debug("processor: bridging transfer")

	sourcePayload, err := p.executeSubtree(ctx, log, source)
	if err != nil {
		return nil, fmt.Errorf("processor: evaluating transfer source: %w", err)
	}

	destEngine, err := p.engineFor(t.Engine())
	if err != nil {
		return nil, err
	}
	imported, err := destEngine.ImportPayload(ctx, sourcePayload, columnDescriptors(source.Columns()))
	if err != nil {
		return nil, fmt.Errorf("processor: importing transfer payload into %q: %w", t.Engine(), err)
	}

	return substituteLeaf(destEngine, source, imported)
}

// resolveMaterialization realizes §4.5 item 4: short-circuit to the cached
// payload if one is already attached, otherwise resolve and execute the
// target once and cache the winner (first writer wins across concurrent
// processors, §5).
func (p *Processor) resolveMaterialization(ctx context.Context, log *logrus.Entry, m *plan.Materialization) (rel.Relation, error) {
	eng, err := p.engineFor(m.Engine())
	if err != nil {
		return nil, err
	}

	if cached := m.Payload(); cached != nil {
		log.Debug("processor: materialization already cached")
		return substituteLeaf(eng, m.Target(), cached)
	}

	payload, err := p.executeSubtree(ctx, log, m.Target())
	if err != nil {
		return nil, fmt.Errorf("processor: evaluating materialization: %w", err)
	}
	winner := m.CacheOrGet(payload)
	if winner != payload {
		log.Debug("processor: lost materialization cache race, using winner's payload")
	}
	return substituteLeaf(eng, m.Target(), winner)
}

// substituteLeaf stands a relation in for a resolved Transfer or
// Materialization marker. If eng implements rel.LeafBuilder, its own
// specialized leaf shape is used; otherwise a generic Leaf carries the
// payload via AttachPayload.
func substituteLeaf(eng rel.Engine, target rel.Relation, payload rel.Payload) (rel.Relation, error) {
	if builder, ok := eng.(rel.LeafBuilder); ok {
		return builder.BuildLeaf(payload)
	}
	leaf := plan.NewLeaf(fmt.Sprintf("<processed:%s>", eng.Name()), eng.Name(), target.Columns(), target.Unique(), target.Bounds())
	if err := leaf.AttachPayload(payload); err != nil {
		return nil, err
	}
	return leaf, nil
}

func columnDescriptors(cols coltag.Set) []rel.ColumnDescriptor {
	tags := cols.Sorted()
	out := make([]rel.ColumnDescriptor, len(tags))
	for i, t := range tags {
		out[i] = rel.ColumnDescriptor{Tag: t}
	}
	return out
}
