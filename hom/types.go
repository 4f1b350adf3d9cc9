// Package hom: mapping type, constraints, options, and error definitions.
package hom

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/amalgamlab/amalgam/model"
)

// Sentinel errors for homomorphism search.
var (
	// ErrNilInstance is returned when source or target is nil.
	ErrNilInstance = errors.New("hom: instance is nil")

	// ErrSchemaMismatch is returned when source and target realize
	// different schemas.
	ErrSchemaMismatch = errors.New("hom: source and target schemas differ")

	// ErrNoHomomorphism is returned by FindOne when the admissible set is
	// empty. Callers recover by rejecting the current candidate.
	ErrNoHomomorphism = errors.New("hom: no admissible homomorphism")

	// ErrSearchTimeout is returned when the step budget or context expires
	// before enumeration completes. Treated by callers exactly like
	// ErrNoHomomorphism.
	ErrSearchTimeout = errors.New("hom: search budget exhausted")

	// ErrNilRand is returned by FindOne when no random source is supplied;
	// ambiguous selection must never fall back to process-global state.
	ErrNilRand = errors.New("hom: rand source is nil")

	// ErrOptionViolation is returned when an invalid Option is supplied.
	ErrOptionViolation = errors.New("hom: invalid option supplied")
)

// Hom is one structure-preserving map: sort → source element → target
// element. Values are immutable once returned by Find.
type Hom struct {
	maps map[string]map[string]string
}

// Image returns the target of the given source element, if assigned.
func (h Hom) Image(sort, elem string) (string, bool) {
	img, ok := h.maps[sort][elem]

	return img, ok
}

// Pairs returns the mapping of one sort as a deterministic (sorted by
// source element) list of [source, target] pairs.
func (h Hom) Pairs(srt string) [][2]string {
	m := h.maps[srt]
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, m[k]})
	}

	return out
}

// Fingerprint returns a canonical serialization of the mapping, usable as a
// deterministic identity in tests and logs.
func (h Hom) Fingerprint() string {
	sorts := make([]string, 0, len(h.maps))
	for s := range h.maps {
		sorts = append(sorts, s)
	}
	sort.Strings(sorts)
	var b strings.Builder
	for _, s := range sorts {
		b.WriteString(s + "{")
		for _, p := range h.Pairs(s) {
			b.WriteString(p[0] + ">" + p[1] + ",")
		}
		b.WriteString("}")
	}

	return b.String()
}

// Constraint restricts which target elements a source element may map onto.
// Name is the cache fingerprint: constraints with an empty Name disable
// result memoization for the call, since their semantics cannot be keyed.
type Constraint struct {
	Name  string
	Allow func(dst model.Instance, sort, srcElem, dstElem string) bool
}

// TagConstraint admits only target elements carrying the given tag.
func TagConstraint(tag string) Constraint {
	return Constraint{
		Name: "tag=" + tag,
		Allow: func(dst model.Instance, sort, _, dstElem string) bool {
			return dst.HasTag(sort, dstElem, tag)
		},
	}
}

// SortTagConstraint admits only target elements of the given sort carrying
// the tag; elements of other sorts are unrestricted.
func SortTagConstraint(srt, tag string) Constraint {
	return Constraint{
		Name: "sorttag=" + srt + ":" + tag,
		Allow: func(dst model.Instance, sort, _, dstElem string) bool {
			return sort != srt || dst.HasTag(sort, dstElem, tag)
		},
	}
}

// FixElem pins one source element to one target element.
func FixElem(srt, srcElem, dstElem string) Constraint {
	return Constraint{
		Name: fmt.Sprintf("fix=%s:%s>%s", srt, srcElem, dstElem),
		Allow: func(_ model.Instance, sort, se, de string) bool {
			if sort != srt || se != srcElem {
				return true
			}

			return de == dstElem
		},
	}
}

// Strategy selects the enumeration algorithm.
type Strategy int

const (
	// Auto picks Exhaustive for sources below a small size threshold and
	// Backtracking otherwise. Default.
	Auto Strategy = iota
	// Exhaustive tries every assignment and filters; only sensible for
	// very small sources.
	Exhaustive
	// Backtracking propagates function images eagerly and prunes early.
	Backtracking
)

// DefaultMaxSteps bounds candidate trials per Find call unless overridden.
const DefaultMaxSteps = 1 << 20

// autoExhaustiveLimit is the source size at or below which Auto uses the
// exhaustive strategy.
const autoExhaustiveLimit = 4

// Option configures a Find or FindOne call.
type Option func(*options)

type options struct {
	ctx         context.Context
	strategy    Strategy
	maxSteps    int
	constraints []Constraint
	cache       *Cache
	err         error
}

func defaultOptions() options {
	return options{
		ctx:      context.Background(),
		strategy: Auto,
		maxSteps: DefaultMaxSteps,
	}
}

// WithContext enables cancellation and deadlines for the search.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithStrategy forces a specific enumeration strategy.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		switch s {
		case Auto, Exhaustive, Backtracking:
			o.strategy = s
		default:
			o.err = fmt.Errorf("%w: unknown strategy %d", ErrOptionViolation, s)
		}
	}
}

// WithMaxSteps bounds the number of candidate trials before the call fails
// with ErrSearchTimeout. Zero restores the default; negative is invalid.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		switch {
		case n < 0:
			o.err = fmt.Errorf("%w: MaxSteps cannot be negative (%d)", ErrOptionViolation, n)
		case n == 0:
			o.maxSteps = DefaultMaxSteps
		default:
			o.maxSteps = n
		}
	}
}

// WithConstraint appends an interface constraint; may be given repeatedly.
func WithConstraint(c Constraint) Option {
	return func(o *options) {
		if c.Allow == nil {
			o.err = fmt.Errorf("%w: constraint with nil Allow", ErrOptionViolation)

			return
		}
		o.constraints = append(o.constraints, c)
	}
}

// WithConstraints appends several constraints at once.
func WithConstraints(cs ...Constraint) Option {
	return func(o *options) {
		for _, c := range cs {
			WithConstraint(c)(o)
		}
	}
}

// WithCache memoizes fully enumerated result sets in c. Calls carrying an
// unnamed constraint bypass the cache.
func WithCache(c *Cache) Option {
	return func(o *options) { o.cache = c }
}
