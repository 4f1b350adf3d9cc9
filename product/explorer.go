// Package product: the breadth-first explorer over the product DAG.
package product

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/amalgamlab/amalgam/generator"
	"github.com/amalgamlab/amalgam/hom"
	"github.com/amalgamlab/amalgam/model"
)

// Sentinel errors for product exploration.
var (
	// ErrNoDimensions is returned when no dimension streams are supplied.
	ErrNoDimensions = errors.New("product: no dimensions")

	// ErrNilRand is returned when no random source is supplied.
	ErrNilRand = errors.New("product: rand source is nil")

	// ErrNilSource indicates a dimension has no backing stream.
	ErrNilSource = errors.New("product: dimension has no source stream")

	// ErrOptionViolation is returned when an invalid Option is supplied.
	ErrOptionViolation = errors.New("product: invalid option supplied")

	// ErrBadCheckpoint indicates a checkpoint inconsistent with the
	// explorer's dimensions.
	ErrBadCheckpoint = errors.New("product: checkpoint mismatch")
)

// Dim names one dimension and its instance stream.
type Dim struct {
	Name   string
	Source generator.Stream
}

// Option configures an Explorer.
type Option func(*options)

type options struct {
	prune   bool
	homOpts []hom.Option
}

// WithPruneInadmissible stops discovering neighbors from inadmissible
// nodes. By default neighbors are still discovered; only the node itself
// is dropped.
func WithPruneInadmissible(prune bool) Option {
	return func(o *options) { o.prune = prune }
}

// WithSearchOptions forwards options (budget, cache, strategy) to every
// per-coordinate slice search.
func WithSearchOptions(opts ...hom.Option) Option {
	return func(o *options) { o.homOpts = append(o.homOpts, opts...) }
}

// Explorer walks the product space breadth-first, emitting the pullback
// instance of each admissible node in non-decreasing BFS radius.
type Explorer struct {
	dims []Dim
	base model.Instance
	rng  *rand.Rand
	o    options

	cache [][]model.Instance // per dimension, materialized prefix
	done  []bool

	frontier  [][]int
	visited   map[string]struct{} // keyed by instance identity tuple
	started   bool
	exhausted bool
}

// NewExplorer builds an explorer over the dimensions, sliced into base. A
// nil base defaults to the schema's canonical terminal instance once the
// first coordinate instance reveals the schema. The rng seeds every slice
// tie-break, so equal seeds reproduce the identical exploration.
func NewExplorer(dims []Dim, base model.Instance, rng *rand.Rand, opts ...Option) (*Explorer, error) {
	if len(dims) == 0 {
		return nil, ErrNoDimensions
	}
	if rng == nil {
		return nil, ErrNilRand
	}
	for _, d := range dims {
		if d.Source == nil {
			return nil, fmt.Errorf("%w: %q", ErrNilSource, d.Name)
		}
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &Explorer{
		dims:    dims,
		base:    base,
		rng:     rng,
		o:       o,
		cache:   make([][]model.Instance, len(dims)),
		done:    make([]bool, len(dims)),
		visited: make(map[string]struct{}),
	}, nil
}

// Next emits the pullback of the next admissible node in BFS order, or
// generator.ErrExhausted once the frontier drains.
func (e *Explorer) Next(ctx context.Context) (model.Instance, error) {
	if e.exhausted {
		return nil, generator.ErrExhausted
	}
	if !e.started {
		if err := e.seed(ctx); err != nil {
			return nil, err
		}
	}
	for len(e.frontier) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// FIFO pop keeps emission in non-decreasing BFS radius.
		node := e.frontier[0]
		e.frontier = e.frontier[1:]

		inst, admissible, err := e.materialize(ctx, node)
		if err != nil {
			return nil, err
		}
		if admissible || !e.o.prune {
			if err = e.discover(ctx, node); err != nil {
				return nil, err
			}
		}
		if admissible {
			return inst, nil
		}
	}
	e.exhausted = true

	return nil, generator.ErrExhausted
}

// seed enqueues the origin node (every dimension's initial instance) and
// resolves the default base.
func (e *Explorer) seed(ctx context.Context) error {
	origin := make([]int, len(e.dims))
	for i := range e.dims {
		ok, err := e.ensure(ctx, i, 0)
		if err != nil {
			return err
		}
		if !ok {
			// An empty dimension empties the whole product space.
			e.started = true
			e.exhausted = true

			return generator.ErrExhausted
		}
	}
	if e.base == nil {
		term, err := model.Terminal(e.cache[0][0].Schema())
		if err != nil {
			return err
		}
		e.base = term
	}
	e.visited[e.nodeKey(origin)] = struct{}{}
	e.frontier = append(e.frontier, origin)
	e.started = true

	return nil
}

// materialize slices every coordinate into the base and computes the
// pullback. A slice failure (no homomorphism, or search timeout) reports
// the node inadmissible without error.
func (e *Explorer) materialize(ctx context.Context, node []int) (model.Instance, bool, error) {
	coords := make([]model.Instance, len(node))
	slices := make([]hom.Hom, len(node))
	for i, idx := range node {
		coords[i] = e.cache[i][idx]
		searchOpts := append([]hom.Option{hom.WithContext(ctx)}, e.o.homOpts...)
		h, err := hom.FindOne(coords[i], e.base, e.rng, searchOpts...)
		if errors.Is(err, hom.ErrNoHomomorphism) || errors.Is(err, hom.ErrSearchTimeout) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		slices[i] = h
	}
	inst, err := pullback(coords, slices, e.base.Schema())
	if err != nil {
		return nil, false, err
	}

	return inst, true, nil
}

// discover enqueues every unvisited neighbor (one coordinate advanced).
func (e *Explorer) discover(ctx context.Context, node []int) error {
	for i := range e.dims {
		ok, err := e.ensure(ctx, i, node[i]+1)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		nbr := make([]int, len(node))
		copy(nbr, node)
		nbr[i]++
		key := e.nodeKey(nbr)
		if _, seen := e.visited[key]; seen {
			continue
		}
		e.visited[key] = struct{}{}
		e.frontier = append(e.frontier, nbr)
	}

	return nil
}

// ensure pulls from dimension i's source until its cache covers idx.
func (e *Explorer) ensure(ctx context.Context, i, idx int) (bool, error) {
	for len(e.cache[i]) <= idx && !e.done[i] {
		inst, err := e.dims[i].Source.Next(ctx)
		if errors.Is(err, generator.ErrExhausted) {
			e.done[i] = true

			break
		}
		if err != nil {
			return false, err
		}
		e.cache[i] = append(e.cache[i], inst)
	}

	return idx < len(e.cache[i]), nil
}

// nodeKey is the visited-set key: the tuple of coordinate instance
// identities, so re-emitted duplicate instances collapse to one node.
func (e *Explorer) nodeKey(node []int) string {
	keys := make([]string, len(node))
	for i, idx := range node {
		keys[i] = e.cache[i][idx].Key()
	}

	return strings.Join(keys, "\x1f")
}

// Checkpoint is the serializable exploration state. Dimension caches are
// rebuilt from the sources on resume, so sources must be restored to
// matching positions by the caller. The rand source's internal state is
// not captured: a restored explorer visits the same nodes in the same
// radius order, but slice tie-breaks after the restore point may differ
// from the uninterrupted run.
type Checkpoint struct {
	Frontier  [][]int  `json:"frontier"`
	Visited   []string `json:"visited"`
	Started   bool     `json:"started"`
	Exhausted bool     `json:"exhausted"`
}

// Checkpoint snapshots the frontier and visited-set.
func (e *Explorer) Checkpoint() Checkpoint {
	cp := Checkpoint{
		Frontier:  make([][]int, len(e.frontier)),
		Visited:   make([]string, 0, len(e.visited)),
		Started:   e.started,
		Exhausted: e.exhausted,
	}
	for i, node := range e.frontier {
		cp.Frontier[i] = make([]int, len(node))
		copy(cp.Frontier[i], node)
	}
	for k := range e.visited {
		cp.Visited = append(cp.Visited, k)
	}
	sort.Strings(cp.Visited)

	return cp
}

// Restore replaces the exploration state with a checkpointed one.
func (e *Explorer) Restore(ctx context.Context, cp Checkpoint) error {
	for _, node := range cp.Frontier {
		if len(node) != len(e.dims) {
			return fmt.Errorf("%w: node arity %d, dimensions %d", ErrBadCheckpoint, len(node), len(e.dims))
		}
		for i, idx := range node {
			ok, err := e.ensure(ctx, i, idx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: dimension %q has no instance %d", ErrBadCheckpoint, e.dims[i].Name, idx)
			}
		}
	}
	e.frontier = make([][]int, len(cp.Frontier))
	for i, node := range cp.Frontier {
		e.frontier[i] = make([]int, len(node))
		copy(e.frontier[i], node)
	}
	e.visited = make(map[string]struct{}, len(cp.Visited))
	for _, k := range cp.Visited {
		e.visited[k] = struct{}{}
	}
	e.started = cp.Started
	e.exhausted = cp.Exhausted
	if e.started && e.base == nil && len(e.cache[0]) > 0 {
		term, err := model.Terminal(e.cache[0][0].Schema())
		if err != nil {
			return err
		}
		e.base = term
	}

	return nil
}
