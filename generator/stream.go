// Package generator: the Stream abstraction and built-in streams.
package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/amalgamlab/amalgam/model"
)

// ErrExhausted signals the ordinary end of a generator's sequence. It is
// not a failure: enclosing composites treat it as "no more instances" and
// keep any partial results.
var ErrExhausted = errors.New("generator: sequence exhausted")

// Stream is a lazy, possibly infinite sequence of model instances. Next
// returns the following instance, ErrExhausted at the end of the sequence,
// or another error on genuine failure. Position state is owned by the
// implementation and, for the built-in streams, externally checkpointable.
type Stream interface {
	Next(ctx context.Context) (model.Instance, error)
}

// ExplicitStream enumerates a fixed finite list of instances. It is the one
// built-in primitive generator; its cursor is exposed for checkpointing.
type ExplicitStream struct {
	instances []model.Instance
	pos       int
}

// NewExplicit returns a stream over the given instances, in order.
func NewExplicit(instances []model.Instance) *ExplicitStream {
	return &ExplicitStream{instances: instances}
}

// Next implements Stream.
func (s *ExplicitStream) Next(ctx context.Context) (model.Instance, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if s.pos >= len(s.instances) {
		return nil, ErrExhausted
	}
	inst := s.instances[s.pos]
	s.pos++

	return inst, nil
}

// Pos returns the cursor for checkpointing.
func (s *ExplicitStream) Pos() int { return s.pos }

// SetPos restores a checkpointed cursor. Out-of-range values are clamped.
func (s *ExplicitStream) SetPos(pos int) {
	switch {
	case pos < 0:
		s.pos = 0
	case pos > len(s.instances):
		s.pos = len(s.instances)
	default:
		s.pos = pos
	}
}

// maxConsecutiveFilterSkips bounds how many raw instances a constrained
// stream rejects in a row before reporting exhaustion, so a filter that
// matches nothing cannot spin forever on an infinite upstream.
const maxConsecutiveFilterSkips = 10000

// Constrained wraps a raw stream with a declaration's ordered output
// constraints: each raw instance passes every Filter (non-matching
// instances are skipped silently), then Chase, if set, repairs it; a Chase
// error also skips the instance.
func Constrained(s Stream, filters []Filter, chase Chase) Stream {
	if len(filters) == 0 && chase == nil {
		return s
	}

	return &constrainedStream{inner: s, filters: filters, chase: chase}
}

type constrainedStream struct {
	inner   Stream
	filters []Filter
	chase   Chase
}

// Next implements Stream, skipping filtered instances.
func (c *constrainedStream) Next(ctx context.Context) (model.Instance, error) {
	for skips := 0; skips <= maxConsecutiveFilterSkips; skips++ {
		inst, err := c.inner.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !c.pass(inst) {
			continue
		}
		if c.chase != nil {
			repaired, chaseErr := c.chase(inst)
			if chaseErr != nil {
				continue
			}
			inst = repaired
		}

		return inst, nil
	}

	return nil, fmt.Errorf("%w: %d consecutive filter rejections", ErrExhausted, maxConsecutiveFilterSkips)
}

func (c *constrainedStream) pass(inst model.Instance) bool {
	for _, f := range c.filters {
		if !f(inst) {
			return false
		}
	}

	return true
}
