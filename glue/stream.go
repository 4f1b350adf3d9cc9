// Package glue: lazy enumeration of composites over tuples of box draws.
package glue

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/amalgamlab/amalgam/generator"
	"github.com/amalgamlab/amalgam/hom"
	"github.com/amalgamlab/amalgam/model"
)

// Stream lazily emits the composite of each admissible tuple of box draws,
// in odometer order: the last box of the pattern advances fastest, the
// first slowest. Draws are pulled from the box sources on demand and
// memoized, so finite sources are re-read, never re-drawn.
type Stream struct {
	pat     *generator.Pattern
	sources map[string]generator.Stream
	rng     *rand.Rand
	opts    []Option
	o       options

	cache map[string][]model.Instance
	done  map[string]bool
	idx   []int

	started   bool
	exhausted bool
	skips     int
}

// NewStream validates the pattern and wires each box to its source stream.
// The rng seeds every per-wire tie-break, so a fixed seed reproduces the
// exact emission sequence.
func NewStream(pat *generator.Pattern, sources map[string]generator.Stream, rng *rand.Rand, opts ...Option) (*Stream, error) {
	if pat == nil {
		return nil, ErrNilPattern
	}
	if len(pat.Boxes) == 0 {
		return nil, ErrNoBoxes
	}
	if rng == nil {
		return nil, ErrNilRand
	}
	if err := pat.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}
	for _, b := range pat.Boxes {
		if sources[b.ID] == nil {
			return nil, fmt.Errorf("%w: %q", ErrNilSource, b.ID)
		}
	}

	return &Stream{
		pat:     pat,
		sources: sources,
		rng:     rng,
		opts:    opts,
		o:       o,
		cache:   make(map[string][]model.Instance, len(pat.Boxes)),
		done:    make(map[string]bool, len(pat.Boxes)),
		idx:     make([]int, len(pat.Boxes)),
	}, nil
}

// Exposed returns the union of all port constraints of the pattern, for
// enclosing layers embedding into this stream's composites.
func (s *Stream) Exposed() []hom.Constraint { return s.pat.ExposedConstraints() }

// Next implements generator.Stream. Inadmissible tuples are skipped; after
// the configured bound of consecutive skips it returns ErrLayerExhausted,
// and after genuine enumeration of every tuple, generator.ErrExhausted.
func (s *Stream) Next(ctx context.Context) (model.Instance, error) {
	if s.exhausted {
		return nil, generator.ErrExhausted
	}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ok, err := s.position(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.exhausted = true

			return nil, generator.ErrExhausted
		}

		inst, err := Compose(ctx, s.pat, s.draws(), s.rng, s.opts...)
		if err == nil {
			s.skips = 0
			s.started = true

			return inst, nil
		}
		if !errors.Is(err, ErrInadmissible) {
			return nil, err
		}
		s.started = true
		s.skips++
		if s.skips >= s.o.maxSkips {
			s.exhausted = true

			return nil, ErrLayerExhausted
		}
	}
}

// position establishes the cursor for the next tuple: the initial all-zero
// tuple on the first call, the odometer successor afterwards. Returns false
// when the tuple space is exhausted.
func (s *Stream) position(ctx context.Context) (bool, error) {
	if !s.started {
		for _, b := range s.pat.Boxes {
			ok, err := s.ensure(ctx, b.ID, 0)
			if err != nil {
				return false, err
			}
			if !ok {
				// An empty box sequence empties the whole product.
				return false, nil
			}
		}

		return true, nil
	}

	// Advance the fastest (last) coordinate, carrying left.
	for i := len(s.pat.Boxes) - 1; i >= 0; i-- {
		boxID := s.pat.Boxes[i].ID
		ok, err := s.ensure(ctx, boxID, s.idx[i]+1)
		if err != nil {
			return false, err
		}
		if ok {
			s.idx[i]++

			return true, nil
		}
		s.idx[i] = 0
	}

	return false, nil
}

// ensure pulls from the box's source until the cache covers index i.
func (s *Stream) ensure(ctx context.Context, boxID string, i int) (bool, error) {
	for len(s.cache[boxID]) <= i && !s.done[boxID] {
		inst, err := s.sources[boxID].Next(ctx)
		if errors.Is(err, generator.ErrExhausted) {
			s.done[boxID] = true

			break
		}
		if err != nil {
			return false, err
		}
		s.cache[boxID] = append(s.cache[boxID], inst)
	}

	return i < len(s.cache[boxID]), nil
}

// draws assembles the current tuple.
func (s *Stream) draws() map[string]model.Instance {
	out := make(map[string]model.Instance, len(s.pat.Boxes))
	for i, b := range s.pat.Boxes {
		out[b.ID] = s.cache[b.ID][s.idx[i]]
	}

	return out
}

// Checkpoint is the serializable cursor state of a Stream. Box draw caches
// are rebuilt from the sources on resume, so sources must be restored to
// matching positions by the caller. The rand source's internal state is
// not captured: a restored stream enumerates the same tuples in the same
// order, but per-wire tie-breaks after the restore point may differ from
// the uninterrupted run.
type Checkpoint struct {
	Indices   []int `json:"indices"`
	Started   bool  `json:"started"`
	Skips     int   `json:"skips"`
	Exhausted bool  `json:"exhausted"`
}

// Checkpoint snapshots the cursor.
func (s *Stream) Checkpoint() Checkpoint {
	cp := Checkpoint{
		Indices:   make([]int, len(s.idx)),
		Started:   s.started,
		Skips:     s.skips,
		Exhausted: s.exhausted,
	}
	copy(cp.Indices, s.idx)

	return cp
}

// Restore replaces the cursor with a checkpointed one.
func (s *Stream) Restore(cp Checkpoint) error {
	if len(cp.Indices) != len(s.idx) {
		return fmt.Errorf("%w: checkpoint has %d indices, pattern has %d boxes", ErrOptionViolation, len(cp.Indices), len(s.idx))
	}
	copy(s.idx, cp.Indices)
	s.started = cp.Started
	s.skips = cp.Skips
	s.exhausted = cp.Exhausted

	return nil
}
