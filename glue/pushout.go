// Package glue: constrained gluing of one candidate tuple (the pushout).
package glue

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/amalgamlab/amalgam/generator"
	"github.com/amalgamlab/amalgam/hom"
	"github.com/amalgamlab/amalgam/model"
)

// node identifies one element of one box's draw inside the disjoint union.
type node struct {
	box  string
	sort string
	elem string
}

// label is the element's name inside the disjoint union, and the tiebreak
// for canonical class naming.
func (n node) label() string { return n.box + "." + n.elem }

// Compose glues one candidate tuple of box draws along the wiring pattern.
// Every wire embeds its junction overlap into the attached box instance
// under the port's constraints, ties broken uniformly by rng; the pushout
// of the found embeddings is returned. A pattern of exactly one box and no
// wires returns that box's draw unchanged (identity gluing).
//
// A wire that finds no admissible embedding (including search timeout)
// rejects the whole tuple with ErrInadmissible; the caller draws another.
func Compose(ctx context.Context, pat *generator.Pattern, draws map[string]model.Instance, rng *rand.Rand, opts ...Option) (model.Instance, error) {
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
	for boxID := range o.boxConstraints {
		if _, ok := pat.BoxByID(boxID); !ok {
			return nil, fmt.Errorf("%w: box constraints on unknown box %q", ErrOptionViolation, boxID)
		}
	}

	schema, err := drawsSchema(pat, draws)
	if err != nil {
		return nil, err
	}

	// Identity gluing: a lone unwired box passes through untouched.
	if len(pat.Boxes) == 1 && len(pat.Wires) == 0 {
		return draws[pat.Boxes[0].ID], nil
	}

	if err = checkSelfGlue(pat, o.selfGlue); err != nil {
		return nil, err
	}

	u := newUnion(pat, draws, schema)
	if err = u.embedJunctions(ctx, rng, o); err != nil {
		return nil, err
	}

	return u.build()
}

// drawsSchema verifies one draw per box over one shared schema.
func drawsSchema(pat *generator.Pattern, draws map[string]model.Instance) (*model.Schema, error) {
	var schema *model.Schema
	for _, b := range pat.Boxes {
		d, ok := draws[b.ID]
		if !ok || d == nil {
			return nil, fmt.Errorf("%w: %q", ErrMissingDraw, b.ID)
		}
		if schema == nil {
			schema = d.Schema()

			continue
		}
		if !schema.Same(d.Schema()) {
			return nil, fmt.Errorf("glue: box %q: %w", b.ID, model.ErrSchemaMismatch)
		}
	}

	return schema, nil
}

// checkSelfGlue rejects two ports of one box wired to one junction unless
// configuration permits it.
func checkSelfGlue(pat *generator.Pattern, allow bool) error {
	if allow {
		return nil
	}
	seen := make(map[string]map[string]string) // junction → box → wire id
	for _, w := range pat.Wires {
		port, _ := pat.PortByID(w.Port)
		if seen[w.Junction] == nil {
			seen[w.Junction] = make(map[string]string)
		}
		if prev, dup := seen[w.Junction][port.Box]; dup {
			return fmt.Errorf("%w: junction %q, box %q (wires %q, %q)", ErrSelfGlue, w.Junction, port.Box, prev, w.ID)
		}
		seen[w.Junction][port.Box] = w.ID
	}

	return nil
}

// union holds the disjoint union of all box draws and the quotient relation
// accumulated from junction embeddings.
type union struct {
	pat    *generator.Pattern
	draws  map[string]model.Instance
	schema *model.Schema
	parent map[node]node
	// extraTags accumulates junction overlap tags onto unified elements,
	// keyed by any member node (resolved through find at build time).
	extraTags map[node][]string
}

func newUnion(pat *generator.Pattern, draws map[string]model.Instance, schema *model.Schema) *union {
	u := &union{
		pat:       pat,
		draws:     draws,
		schema:    schema,
		parent:    make(map[node]node),
		extraTags: make(map[node][]string),
	}
	for _, b := range pat.Boxes {
		d := draws[b.ID]
		for _, srt := range schema.Sorts() {
			for _, e := range d.Elems(srt) {
				n := node{box: b.ID, sort: srt, elem: e}
				u.parent[n] = n
			}
		}
	}

	return u
}

func (u *union) find(n node) node {
	for u.parent[n] != n {
		u.parent[n] = u.parent[u.parent[n]]
		n = u.parent[n]
	}

	return n
}

func (u *union) merge(a, b node) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// embedJunctions finds one constrained embedding per wire and records the
// induced identifications. Junctions without wires contribute nothing.
func (u *union) embedJunctions(ctx context.Context, rng *rand.Rand, o options) error {
	// Group wires per junction in pattern order.
	byJunction := make(map[string][]generator.Wire)
	for _, w := range u.pat.Wires {
		byJunction[w.Junction] = append(byJunction[w.Junction], w)
	}

	for _, j := range u.pat.Junctions {
		wires := byJunction[j.ID]
		if len(wires) == 0 {
			continue
		}
		overlap := j.Overlap
		if overlap == nil {
			empty, err := model.Empty(u.schema)
			if err != nil {
				return err
			}
			overlap = empty
		}

		// One embedding per wire; anchors are the first wire's images.
		var anchor hom.Hom
		for wi, w := range wires {
			port, _ := u.pat.PortByID(w.Port)
			searchOpts := append([]hom.Option{hom.WithContext(ctx)}, o.homOpts...)
			searchOpts = append(searchOpts, hom.WithConstraints(port.Constraints...))
			if extra := o.boxConstraints[port.Box]; len(extra) > 0 {
				searchOpts = append(searchOpts, hom.WithConstraints(extra...))
			}
			h, err := hom.FindOne(overlap, u.draws[port.Box], rng, searchOpts...)
			if err != nil {
				return fmt.Errorf("%w: junction %q wire %q: %v", ErrInadmissible, j.ID, w.ID, err)
			}
			for _, srt := range u.schema.Sorts() {
				for _, oe := range overlap.Elems(srt) {
					img, _ := h.Image(srt, oe)
					n := node{box: port.Box, sort: srt, elem: img}
					if ts := overlap.Tags(srt, oe); len(ts) > 0 {
						u.extraTags[n] = append(u.extraTags[n], ts...)
					}
					if wi == 0 {
						continue
					}
					aimg, _ := anchor.Image(srt, oe)
					aport, _ := u.pat.PortByID(wires[0].Port)
					u.merge(node{box: aport.Box, sort: srt, elem: aimg}, n)
				}
			}
			if wi == 0 {
				anchor = h
			}
		}
	}

	return nil
}

// build materializes the quotient as a fresh instance. Class names are the
// lexicographically smallest member label, so output is deterministic.
func (u *union) build() (model.Instance, error) {
	// Collect classes and canonical names.
	members := make(map[node][]node)
	for n := range u.parent {
		r := u.find(n)
		members[r] = append(members[r], n)
	}
	name := make(map[node]string, len(members))
	for r, ms := range members {
		best := ms[0].label()
		for _, m := range ms[1:] {
			if l := m.label(); l < best {
				best = l
			}
		}
		name[r] = best
	}

	b := model.NewBuilder(u.schema)

	// Elements per sort, sorted by canonical name.
	for _, srt := range u.schema.Sorts() {
		var classes []node
		for r := range members {
			if r.sort == srt {
				classes = append(classes, r)
			}
		}
		sort.Slice(classes, func(i, j int) bool { return name[classes[i]] < name[classes[j]] })
		for _, r := range classes {
			b.AddElem(srt, name[r])
			// Union of member tags plus junction overlay tags.
			for _, m := range members[r] {
				b.Tag(srt, name[r], u.draws[m.box].Tags(srt, m.elem)...)
				b.Tag(srt, name[r], u.extraTags[m]...)
			}
		}
	}

	// Functions descend to classes: evaluate on any member; the quotient is
	// a congruence because every embedding commutes with the functions.
	for _, fn := range u.schema.Fns() {
		for r, ms := range members {
			if r.sort != fn.Dom {
				continue
			}
			rep := ms[0]
			for _, m := range ms[1:] {
				if m.label() < rep.label() {
					rep = m
				}
			}
			img, ok := u.draws[rep.box].Apply(fn.Name, rep.elem)
			if !ok {
				return nil, fmt.Errorf("glue: %w: %q on %q", model.ErrIncompleteFn, fn.Name, rep.label())
			}
			imgClass := u.find(node{box: rep.box, sort: fn.Cod, elem: img})
			b.Set(fn.Name, name[r], name[imgClass])
		}
	}

	return b.Build()
}
