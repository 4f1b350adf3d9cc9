// Package glue: options and error definitions for additive composition.
package glue

import (
	"errors"
	"fmt"

	"github.com/amalgamlab/amalgam/generator"
	"github.com/amalgamlab/amalgam/hom"
)

// Sentinel errors for additive composition.
var (
	// ErrNilPattern is returned when a nil wiring pattern is passed.
	ErrNilPattern = errors.New("glue: pattern is nil")

	// ErrNoBoxes is returned for a pattern without boxes; there is nothing
	// to glue.
	ErrNoBoxes = errors.New("glue: pattern has no boxes")

	// ErrMissingDraw indicates no candidate instance was supplied for a box.
	ErrMissingDraw = errors.New("glue: missing draw for box")

	// ErrSelfGlue indicates two ports of one box wired to one junction
	// while self-gluing is disabled (the default).
	ErrSelfGlue = errors.New("glue: self-gluing not permitted")

	// ErrInadmissible marks one candidate tuple as rejected: some wire
	// found no admissible embedding. Recovered by drawing another tuple.
	ErrInadmissible = errors.New("glue: candidate combination inadmissible")

	// ErrNilRand is returned when no random source is supplied.
	ErrNilRand = errors.New("glue: rand source is nil")

	// ErrNilSource indicates a box has no backing stream.
	ErrNilSource = errors.New("glue: box has no source stream")

	// ErrOptionViolation is returned when an invalid Option is supplied.
	ErrOptionViolation = errors.New("glue: invalid option supplied")
)

// ErrLayerExhausted signals that the consecutive-skip bound was hit while
// enumerating candidate tuples. It wraps generator.ErrExhausted, so to
// enclosing layers the sequence has simply ended.
var ErrLayerExhausted = fmt.Errorf("glue: layer exhausted after too many consecutive skips: %w", generator.ErrExhausted)

// DefaultMaxSkips bounds consecutive inadmissible tuples per Stream unless
// overridden.
const DefaultMaxSkips = 1000

// Option configures composition and enumeration.
type Option func(*options)

type options struct {
	selfGlue       bool
	maxSkips       int
	homOpts        []hom.Option
	boxConstraints map[string][]hom.Constraint
	err            error
}

func defaultOptions() options {
	return options{maxSkips: DefaultMaxSkips}
}

// WithSelfGlue permits two ports of the same box on one junction.
func WithSelfGlue(allow bool) Option {
	return func(o *options) { o.selfGlue = allow }
}

// WithMaxSkips bounds consecutive inadmissible tuples before the stream
// reports ErrLayerExhausted. Zero restores the default; negative is
// invalid.
func WithMaxSkips(n int) Option {
	return func(o *options) {
		switch {
		case n < 0:
			o.err = fmt.Errorf("%w: MaxSkips cannot be negative (%d)", ErrOptionViolation, n)
		case n == 0:
			o.maxSkips = DefaultMaxSkips
		default:
			o.maxSkips = n
		}
	}
}

// WithSearchOptions forwards options (budget, cache, strategy) to every
// per-wire homomorphism search.
func WithSearchOptions(opts ...hom.Option) Option {
	return func(o *options) { o.homOpts = append(o.homOpts, opts...) }
}

// WithBoxConstraints restricts every embedding into the named box's draws
// with extra interface constraints, on top of the pattern's own port
// constraints. Enclosing layers use this to push a nested composite's
// exposed constraints down into the embedding search.
func WithBoxConstraints(boxID string, cs ...hom.Constraint) Option {
	return func(o *options) {
		if boxID == "" {
			o.err = fmt.Errorf("%w: WithBoxConstraints needs a box id", ErrOptionViolation)

			return
		}
		if o.boxConstraints == nil {
			o.boxConstraints = make(map[string][]hom.Constraint)
		}
		o.boxConstraints[boxID] = append(o.boxConstraints[boxID], cs...)
	}
}
