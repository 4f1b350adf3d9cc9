// Package schedule: expansion of declarations into runtime streams.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/amalgamlab/amalgam/generator"
	"github.com/amalgamlab/amalgam/glue"
	"github.com/amalgamlab/amalgam/loss"
	"github.com/amalgamlab/amalgam/model"
	"github.com/amalgamlab/amalgam/product"
)

// genState is one expansion of a generator: its stream and its history.
type genState struct {
	stream generator.Stream
	hist   *loss.History
}

// expand returns the stream a consumer reads the named generator through.
// Shared generators are expanded once and replayed per consumer; all
// others are expanded independently per consumer path.
func (s *Scheduler) expand(name, consumer string) (generator.Stream, *loss.History, error) {
	d, ok := s.arena.Get(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, name)
	}

	if d.Sharing == generator.SharingShared {
		sb := s.shared[name]
		if sb == nil {
			raw, hist, err := s.instantiate(d, name)
			if err != nil {
				return nil, nil, err
			}
			sb = &sharedBuffer{src: raw, hist: hist}
			s.shared[name] = sb
			s.expansions[name]++
			s.o.logger.Debug("expanded shared generator", "generator", name)
		}

		return sb.view(), sb.hist, nil
	}

	st := s.states[consumer]
	if st == nil {
		raw, hist, err := s.instantiate(d, consumer)
		if err != nil {
			return nil, nil, err
		}
		st = &genState{stream: raw, hist: hist}
		s.states[consumer] = st
		s.expansions[name]++
		s.o.logger.Debug("expanded generator", "generator", name, "path", consumer)
	}

	return st.stream, st.hist, nil
}

// instantiate builds one fresh expansion of a declaration at the given
// path: the kind-specific raw stream, the output constraints, and the
// scoring layer when a loss is attached.
func (s *Scheduler) instantiate(d *generator.Decl, path string) (generator.Stream, *loss.History, error) {
	depHists := make(map[string]*loss.History)

	var raw generator.Stream
	switch d.Kind {
	case generator.KindExplicit:
		raw = generator.NewExplicit(d.Explicit)

	case generator.KindAdditive:
		sources := make(map[string]generator.Stream, len(d.Wiring.Boxes))
		glueOpts := append([]glue.Option{}, s.o.glueOpts...)
		for _, b := range d.Wiring.Boxes {
			dep, depHist, err := s.expand(b.Generator, path+"/"+b.ID)
			if err != nil {
				return nil, nil, err
			}
			sources[b.ID] = dep
			depHists[b.ID] = depHist
			// A nested composite's interface constraints travel outward:
			// embeddings into its draws must respect them too.
			if depDecl, ok := s.arena.Get(b.Generator); ok && depDecl.Wiring != nil {
				if exposed := depDecl.Wiring.ExposedConstraints(); len(exposed) > 0 {
					glueOpts = append(glueOpts, glue.WithBoxConstraints(b.ID, exposed...))
				}
			}
		}
		st, err := glue.NewStream(d.Wiring, sources, s.rngFor(path), glueOpts...)
		if err != nil {
			return nil, nil, err
		}
		raw = st

	case generator.KindMultiplicative:
		dims := make([]product.Dim, 0, len(d.Product.Dimensions))
		for i, dn := range d.Product.Dimensions {
			dep, depHist, err := s.expand(dn, fmt.Sprintf("%s/dim%d/%s", path, i, dn))
			if err != nil {
				return nil, nil, err
			}
			dims = append(dims, product.Dim{Name: dn, Source: dep})
			key := dn
			if _, dup := depHists[key]; dup {
				key = fmt.Sprintf("%s#%d", dn, i)
			}
			depHists[key] = depHist
		}
		ex, err := product.NewExplorer(dims, d.Product.Base, s.rngFor(path), s.o.productOpts...)
		if err != nil {
			return nil, nil, err
		}
		raw = ex

	default:
		return nil, nil, fmt.Errorf("%w: %q has kind %v", generator.ErrBadKind, d.Name, d.Kind)
	}

	stream := generator.Constrained(raw, d.Filters, d.Chase)
	hist := &loss.History{}
	if d.Loss != nil {
		if d.Loss.Evaluator == nil {
			return nil, nil, fmt.Errorf("generator %q: %w", d.Name, loss.ErrNilEvaluator)
		}
		stream = &scoredStream{inner: stream, spec: d.Loss, hist: hist, deps: depHists}
	}

	return stream, hist, nil
}

// rngFor derives a per-expansion rand source from the master seed and the
// expansion path, so one seed fixes every tie-break of the whole search.
func (s *Scheduler) rngFor(path string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))

	return rand.New(rand.NewSource(s.o.seed ^ int64(h.Sum64())))
}

// scoredStream evaluates every emission, appends it to the history, and
// permanently exhausts the sequence once the stop criterion fires. The
// instance that triggers the stop is still emitted.
type scoredStream struct {
	inner   generator.Stream
	spec    *generator.LossSpec
	hist    *loss.History
	deps    map[string]*loss.History
	stopped bool
}

// Next implements generator.Stream.
func (t *scoredStream) Next(ctx context.Context) (model.Instance, error) {
	if t.stopped {
		return nil, generator.ErrExhausted
	}
	inst, err := t.inner.Next(ctx)
	if err != nil {
		return nil, err
	}
	score, err := t.evaluate(ctx, inst)
	if err != nil {
		return nil, fmt.Errorf("schedule: evaluate: %w", err)
	}
	t.hist.Append(inst.Key(), score)
	if t.spec.Stop != nil && t.spec.Stop.ShouldStop(t.hist, t.spec.Direction) {
		t.stopped = true
	}

	return inst, nil
}

// evaluate applies the evaluator, exposing the latest dependency scores to
// shaped evaluators of composites.
func (t *scoredStream) evaluate(ctx context.Context, inst model.Instance) (float64, error) {
	if shaped, ok := t.spec.Evaluator.(loss.Shaped); ok {
		scores := make(loss.DepScores, len(t.deps))
		for name, h := range t.deps {
			if latest, found := h.Latest(); found {
				scores[name] = latest.Score
			}
		}

		return shaped.EvaluateShaped(ctx, inst, scores)
	}

	return t.spec.Evaluator.Evaluate(ctx, inst)
}

// sharedBuffer is the single expansion of a shared generator: drawn from
// src exactly once, with every consumer replaying the same buffered
// sequence through its own view cursor.
type sharedBuffer struct {
	src  generator.Stream
	hist *loss.History
	buf  []model.Instance
	done bool
}

func (b *sharedBuffer) view() generator.Stream { return &sharedView{b: b} }

type sharedView struct {
	b   *sharedBuffer
	pos int
}

// Next implements generator.Stream, replaying buffered draws before
// advancing the underlying stream.
func (v *sharedView) Next(ctx context.Context) (model.Instance, error) {
	if v.pos < len(v.b.buf) {
		inst := v.b.buf[v.pos]
		v.pos++

		return inst, nil
	}
	if v.b.done {
		return nil, generator.ErrExhausted
	}
	inst, err := v.b.src.Next(ctx)
	if errors.Is(err, generator.ErrExhausted) {
		v.b.done = true

		return nil, err
	}
	if err != nil {
		return nil, err
	}
	v.b.buf = append(v.b.buf, inst)
	v.pos++

	return inst, nil
}
