// Package generator: declaration variants and wiring/product payloads.
package generator

import (
	"errors"
	"fmt"

	"github.com/amalgamlab/amalgam/hom"
	"github.com/amalgamlab/amalgam/loss"
	"github.com/amalgamlab/amalgam/model"
)

// Sentinel errors for declaration and pattern validation.
var (
	// ErrEmptyName indicates a declaration without a name.
	ErrEmptyName = errors.New("generator: declaration name is empty")

	// ErrDuplicateName indicates two declarations sharing one name.
	ErrDuplicateName = errors.New("generator: duplicate declaration name")

	// ErrUnknownGenerator indicates a reference to a name absent from the
	// arena.
	ErrUnknownGenerator = errors.New("generator: unknown generator")

	// ErrBadKind indicates a Decl whose Kind and payload disagree.
	ErrBadKind = errors.New("generator: kind/payload mismatch")

	// ErrDanglingBox indicates a Port referencing a missing Box.
	ErrDanglingBox = errors.New("generator: port references unknown box")

	// ErrDanglingPort indicates a Wire referencing a missing Port.
	ErrDanglingPort = errors.New("generator: wire references unknown port")

	// ErrDanglingJunction indicates a Wire referencing a missing Junction.
	ErrDanglingJunction = errors.New("generator: wire references unknown junction")

	// ErrDuplicateID indicates two pattern entities sharing one id.
	ErrDuplicateID = errors.New("generator: duplicate pattern id")

	// ErrNoDimensions indicates a product spec without dimensions.
	ErrNoDimensions = errors.New("generator: product spec has no dimensions")
)

// Kind is the closed tagged-variant discriminator of a Decl.
type Kind int

const (
	// KindExplicit is a finite enumerated sequence of instances.
	KindExplicit Kind = iota
	// KindAdditive glues dependency draws along a wiring Pattern.
	KindAdditive
	// KindMultiplicative explores a product of dimension generators.
	KindMultiplicative
)

// String implements fmt.Stringer for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindExplicit:
		return "explicit"
	case KindAdditive:
		return "additive"
	case KindMultiplicative:
		return "multiplicative"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sharing declares how a generator referenced by several composites is
// consumed. It is configuration, never inferred: the two policies yield
// different composite spaces.
type Sharing int

const (
	// SharingUnset is the zero value; valid only for generators with at
	// most one dependent.
	SharingUnset Sharing = iota
	// SharingShared consumes the generator once per search; every
	// dependent observes the same drawn sequence.
	SharingShared
	// SharingReentrant re-expands the generator independently per
	// referencing composite.
	SharingReentrant
)

// Box references exactly one generator inside a wiring pattern.
type Box struct {
	ID        string
	Generator string
}

// Port is an attachment point on a Box, carrying zero or more interface
// constraints that filter admissible overlap embeddings.
type Port struct {
	ID          string
	Box         string
	Constraints []hom.Constraint
}

// Junction is a shared overlap between wired ports. A nil Overlap denotes
// the empty structure. A junction no wire touches contributes nothing and
// is dropped during composition.
type Junction struct {
	ID      string
	Overlap model.Instance
}

// Wire connects exactly one Port to exactly one Junction.
type Wire struct {
	ID       string
	Port     string
	Junction string
}

// Pattern is the wiring payload of an additive generator.
type Pattern struct {
	Boxes     []Box
	Ports     []Port
	Junctions []Junction
	Wires     []Wire
}

// Validate checks internal referential integrity: unique ids, every port on
// an existing box, every wire on an existing port and junction. Generator
// references of boxes are resolved against the arena separately.
func (p *Pattern) Validate() error {
	boxes := make(map[string]struct{}, len(p.Boxes))
	for _, b := range p.Boxes {
		if b.ID == "" {
			return fmt.Errorf("%w: box with empty id", ErrDuplicateID)
		}
		if _, dup := boxes[b.ID]; dup {
			return fmt.Errorf("%w: box %q", ErrDuplicateID, b.ID)
		}
		boxes[b.ID] = struct{}{}
	}
	ports := make(map[string]struct{}, len(p.Ports))
	for _, pt := range p.Ports {
		if _, dup := ports[pt.ID]; dup {
			return fmt.Errorf("%w: port %q", ErrDuplicateID, pt.ID)
		}
		ports[pt.ID] = struct{}{}
		if _, ok := boxes[pt.Box]; !ok {
			return fmt.Errorf("%w: port %q → box %q", ErrDanglingBox, pt.ID, pt.Box)
		}
	}
	junctions := make(map[string]struct{}, len(p.Junctions))
	for _, j := range p.Junctions {
		if _, dup := junctions[j.ID]; dup {
			return fmt.Errorf("%w: junction %q", ErrDuplicateID, j.ID)
		}
		junctions[j.ID] = struct{}{}
	}
	wires := make(map[string]struct{}, len(p.Wires))
	for _, w := range p.Wires {
		if _, dup := wires[w.ID]; dup {
			return fmt.Errorf("%w: wire %q", ErrDuplicateID, w.ID)
		}
		wires[w.ID] = struct{}{}
		if _, ok := ports[w.Port]; !ok {
			return fmt.Errorf("%w: wire %q → port %q", ErrDanglingPort, w.ID, w.Port)
		}
		if _, ok := junctions[w.Junction]; !ok {
			return fmt.Errorf("%w: wire %q → junction %q", ErrDanglingJunction, w.ID, w.Junction)
		}
	}

	return nil
}

// PortByID returns the named port.
func (p *Pattern) PortByID(id string) (Port, bool) {
	for _, pt := range p.Ports {
		if pt.ID == id {
			return pt, true
		}
	}

	return Port{}, false
}

// JunctionByID returns the named junction.
func (p *Pattern) JunctionByID(id string) (Junction, bool) {
	for _, j := range p.Junctions {
		if j.ID == id {
			return j, true
		}
	}

	return Junction{}, false
}

// BoxByID returns the named box.
func (p *Pattern) BoxByID(id string) (Box, bool) {
	for _, b := range p.Boxes {
		if b.ID == id {
			return b, true
		}
	}

	return Box{}, false
}

// ExposedConstraints returns the union of all port constraints, in pattern
// order. Enclosing layers apply them when embedding into the composite.
func (p *Pattern) ExposedConstraints() []hom.Constraint {
	var out []hom.Constraint
	for _, pt := range p.Ports {
		out = append(out, pt.Constraints...)
	}

	return out
}

// ProductSpec is the payload of a multiplicative generator: an ordered set
// of dimension generator names and an optional shared base instance. A nil
// Base denotes the schema's canonical terminal instance.
type ProductSpec struct {
	Dimensions []string
	Base       model.Instance
}

// Filter is an output constraint: instances failing the predicate are
// skipped, not surfaced.
type Filter func(model.Instance) bool

// Chase repairs or completes a raw instance before emission; semantics are
// supplied by the instance layer. Returning an error skips the instance.
type Chase func(model.Instance) (model.Instance, error)

// LossSpec attaches scoring and optional stopping to a generator.
type LossSpec struct {
	Evaluator loss.Evaluator
	Direction loss.Direction
	Stop      loss.StopCriterion // nil = never stops on its own
}

// Decl is one named generator declaration. Exactly one payload field,
// matching Kind, may be set.
type Decl struct {
	Name    string
	Kind    Kind
	Sharing Sharing

	Explicit []model.Instance // KindExplicit
	Wiring   *Pattern         // KindAdditive
	Product  *ProductSpec     // KindMultiplicative

	Filters []Filter
	Chase   Chase
	Loss    *LossSpec
}

// Deps returns the generator names this declaration references, in payload
// order. Explicit generators have none.
func (d *Decl) Deps() []string {
	switch d.Kind {
	case KindExplicit:
		return nil
	case KindAdditive:
		if d.Wiring == nil {
			return nil
		}
		out := make([]string, 0, len(d.Wiring.Boxes))
		for _, b := range d.Wiring.Boxes {
			out = append(out, b.Generator)
		}

		return out
	case KindMultiplicative:
		if d.Product == nil {
			return nil
		}
		out := make([]string, len(d.Product.Dimensions))
		copy(out, d.Product.Dimensions)

		return out
	default:
		return nil
	}
}

// validate checks the kind/payload agreement of a single declaration.
func (d *Decl) validate() error {
	if d.Name == "" {
		return ErrEmptyName
	}
	switch d.Kind {
	case KindExplicit:
		if d.Wiring != nil || d.Product != nil {
			return fmt.Errorf("%w: %q is explicit but carries a composite payload", ErrBadKind, d.Name)
		}
	case KindAdditive:
		if d.Wiring == nil {
			return fmt.Errorf("%w: %q is additive without a wiring pattern", ErrBadKind, d.Name)
		}
		if err := d.Wiring.Validate(); err != nil {
			return fmt.Errorf("generator %q: %w", d.Name, err)
		}
	case KindMultiplicative:
		if d.Product == nil {
			return fmt.Errorf("%w: %q is multiplicative without a product spec", ErrBadKind, d.Name)
		}
		if len(d.Product.Dimensions) == 0 {
			return fmt.Errorf("%w: %q", ErrNoDimensions, d.Name)
		}
	default:
		return fmt.Errorf("%w: %q has unknown kind %d", ErrBadKind, d.Name, int(d.Kind))
	}

	return nil
}
