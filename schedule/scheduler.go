// Package schedule: DAG validation and scheduler construction.
package schedule

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/amalgamlab/amalgam/generator"
	"github.com/amalgamlab/amalgam/glue"
	"github.com/amalgamlab/amalgam/product"
)

// Sentinel errors for search-space validation.
var (
	// ErrNilArena is returned when Build receives a nil arena.
	ErrNilArena = errors.New("schedule: arena is nil")

	// ErrEmptyArena is returned for an arena with no declarations.
	ErrEmptyArena = errors.New("schedule: arena is empty")

	// ErrDanglingDep indicates a reference to a generator absent from the
	// arena.
	ErrDanglingDep = errors.New("schedule: dangling generator reference")

	// ErrCycle indicates the dependency edges are not acyclic.
	ErrCycle = errors.New("schedule: dependency cycle detected")

	// ErrMultipleRoots indicates several generators have no dependents
	// while multi-root mode is off.
	ErrMultipleRoots = errors.New("schedule: multiple root generators")

	// ErrSharingUndeclared indicates a generator with several dependents
	// whose sharing policy is unset.
	ErrSharingUndeclared = errors.New("schedule: sharing policy not declared")

	// ErrUnknownGenerator indicates a Pull or Run target absent from the
	// arena.
	ErrUnknownGenerator = errors.New("schedule: unknown generator")
)

// Vertex colors of the cycle-detecting depth-first walk.
const (
	white = iota // not visited
	gray         // on the recursion stack
	black        // fully explored
)

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	multiRoot   bool
	seed        int64
	glueOpts    []glue.Option
	productOpts []product.Option
	logger      *slog.Logger
}

func defaultOptions() options {
	return options{
		seed:   1,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithMultiRoot permits several independent root generators.
func WithMultiRoot(allow bool) Option {
	return func(o *options) { o.multiRoot = allow }
}

// WithSeed fixes the master seed every expansion's rand source derives
// from. Equal seeds reproduce the whole search.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithGlueOptions forwards options to every additive composition stream.
func WithGlueOptions(opts ...glue.Option) Option {
	return func(o *options) { o.glueOpts = append(o.glueOpts, opts...) }
}

// WithProductOptions forwards options to every product explorer.
func WithProductOptions(opts ...product.Option) Option {
	return func(o *options) { o.productOpts = append(o.productOpts, opts...) }
}

// WithLogger sets the structured logger; the default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Scheduler owns all runtime enumeration state of one search: per-expansion
// streams, histories, and shared replay buffers. Declarations stay
// immutable in the arena.
type Scheduler struct {
	arena *generator.Arena
	o     options

	order []string // topological, dependencies first
	roots []string

	states     map[string]*genState // keyed by expansion path
	shared     map[string]*sharedBuffer
	expansions map[string]int // per generator name
}

// Build validates the declaration graph and returns a ready scheduler.
func Build(arena *generator.Arena, opts ...Option) (*Scheduler, error) {
	if arena == nil {
		return nil, ErrNilArena
	}
	if arena.Len() == 0 {
		return nil, ErrEmptyArena
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Scheduler{
		arena:      arena,
		o:          o,
		states:     make(map[string]*genState),
		shared:     make(map[string]*sharedBuffer),
		expansions: make(map[string]int),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	o.logger.Info("search space validated",
		"generators", arena.Len(), "roots", len(s.roots), "seed", o.seed)

	return s, nil
}

// validate runs every build-time check and computes order and roots.
func (s *Scheduler) validate() error {
	names := s.arena.Names()

	// Dangling references and sharing policy.
	for _, n := range names {
		d, _ := s.arena.Get(n)
		for _, dep := range d.Deps() {
			if _, ok := s.arena.Get(dep); !ok {
				return fmt.Errorf("%w: generator %q references %q", ErrDanglingDep, n, dep)
			}
		}
	}
	for _, n := range names {
		if deps := s.arena.Dependents(n); len(deps) > 1 {
			d, _ := s.arena.Get(n)
			if d.Sharing == generator.SharingUnset {
				return fmt.Errorf("%w: %q is referenced by %d composites", ErrSharingUndeclared, n, len(deps))
			}
		}
	}

	// Acyclicity and topological order by tri-color depth-first search.
	state := make(map[string]int, len(names))
	var order []string
	var visit func(n string) error
	visit = func(n string) error {
		switch state[n] {
		case gray:
			return fmt.Errorf("%w: at %q", ErrCycle, n)
		case black:
			return nil
		}
		state[n] = gray
		d, _ := s.arena.Get(n)
		for _, dep := range d.Deps() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[n] = black
		order = append(order, n)

		return nil
	}
	for _, n := range names {
		if err := visit(n); err != nil {
			return err
		}
	}
	s.order = order

	// Root detection.
	for _, n := range names {
		if len(s.arena.Dependents(n)) == 0 {
			s.roots = append(s.roots, n)
		}
	}
	if len(s.roots) > 1 && !s.o.multiRoot {
		return fmt.Errorf("%w: %v", ErrMultipleRoots, s.roots)
	}

	return nil
}

// Order returns the topological pull order, dependencies first; a copy.
func (s *Scheduler) Order() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)

	return out
}

// Roots returns the root generator names; a copy.
func (s *Scheduler) Roots() []string {
	out := make([]string, len(s.roots))
	copy(out, s.roots)

	return out
}

// Expansions reports how many independent expansions of the named
// generator exist so far: one for a shared generator regardless of its
// dependents, one per consumer for a reentrant one.
func (s *Scheduler) Expansions(name string) int { return s.expansions[name] }
