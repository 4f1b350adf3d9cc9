// Package model: the Instance interface and the in-memory MemInstance.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// Instance is one finite realization of a Schema. Implementations must be
// immutable once handed to the engine: the composition and exploration
// machinery caches Key() and shares instances freely across goroutines.
type Instance interface {
	// Schema returns the schema this instance realizes.
	Schema() *Schema

	// Elems returns the element IDs of the given sort in a stable order.
	Elems(sort string) []string

	// HasElem reports whether elem exists in the given sort.
	HasElem(sort, elem string) bool

	// Apply evaluates the named function on elem, returning the image and
	// true, or "" and false when fn or elem is unknown.
	Apply(fn, elem string) (string, bool)

	// HasTag reports whether elem of sort carries the given tag.
	// Tags are free-form labels consumed by interface constraints.
	HasTag(sort, elem, tag string) bool

	// Tags returns the tags of elem in a stable order.
	Tags(sort, elem string) []string

	// Size returns the total element count over all sorts.
	Size() int

	// Key returns a canonical serialization of the structure, equal for
	// structurally identical instances and stable across runs.
	Key() string
}

// MemInstance is the built-in in-memory Instance implementation.
// Construct via Builder; zero value is not usable.
type MemInstance struct {
	schema *Schema
	elems  map[string][]string            // sort → element IDs, insertion order
	elemAt map[string]map[string]struct{} // sort → element set
	fns    map[string]map[string]string   // fn → elem → image
	tags   map[string]map[string][]string // sort → elem → sorted tags
	key    string                         // canonical form, computed at Build
}

// Schema implements Instance.
func (m *MemInstance) Schema() *Schema { return m.schema }

// Elems implements Instance; the returned slice is a copy.
func (m *MemInstance) Elems(sort string) []string {
	src := m.elems[sort]
	out := make([]string, len(src))
	copy(out, src)

	return out
}

// HasElem implements Instance.
func (m *MemInstance) HasElem(sort, elem string) bool {
	_, ok := m.elemAt[sort][elem]

	return ok
}

// Apply implements Instance.
func (m *MemInstance) Apply(fn, elem string) (string, bool) {
	img, ok := m.fns[fn][elem]

	return img, ok
}

// HasTag implements Instance.
func (m *MemInstance) HasTag(sort, elem, tag string) bool {
	for _, t := range m.tags[sort][elem] {
		if t == tag {
			return true
		}
	}

	return false
}

// Tags implements Instance; the returned slice is a copy.
func (m *MemInstance) Tags(sort, elem string) []string {
	src := m.tags[sort][elem]
	out := make([]string, len(src))
	copy(out, src)

	return out
}

// Size implements Instance.
func (m *MemInstance) Size() int {
	n := 0
	for _, es := range m.elems {
		n += len(es)
	}

	return n
}

// Key implements Instance. The canonical form lists sorts, elements, tags
// and function graphs in sorted order, so two structurally equal instances
// produce byte-identical keys.
func (m *MemInstance) Key() string { return m.key }

// canonical builds the canonical serialization used by Key.
func (m *MemInstance) canonical() string {
	var b strings.Builder
	b.WriteString(m.schema.Name())
	sorts := m.schema.Sorts()
	sort.Strings(sorts)
	for _, srt := range sorts {
		es := m.Elems(srt)
		sort.Strings(es)
		b.WriteString("|" + srt + ":")
		for _, e := range es {
			b.WriteString(e)
			if ts := m.tags[srt][e]; len(ts) > 0 {
				b.WriteString("#" + strings.Join(ts, "#"))
			}
			b.WriteByte(',')
		}
	}
	fns := m.schema.Fns()
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
	for _, fn := range fns {
		b.WriteString("|" + fn.Name + ":")
		es := m.Elems(fn.Dom)
		sort.Strings(es)
		for _, e := range es {
			img := m.fns[fn.Name][e]
			b.WriteString(e + ">" + img + ",")
		}
	}

	return b.String()
}

// Empty returns the instance with no elements, the default junction overlap.
func Empty(s *Schema) (*MemInstance, error) {
	if s == nil {
		return nil, ErrNilSchema
	}

	return NewBuilder(s).Build()
}

// Terminal returns the canonical one-element-per-sort instance, the default
// base of a multiplicative product space. Every sort holds the single
// element "*" and every function maps "*" to "*".
func Terminal(s *Schema) (*MemInstance, error) {
	if s == nil {
		return nil, ErrNilSchema
	}
	b := NewBuilder(s)
	for _, srt := range s.Sorts() {
		b.AddElem(srt, "*")
	}
	for _, fn := range s.Fns() {
		b.Set(fn.Name, "*", "*")
	}

	return b.Build()
}

// Builder assembles a MemInstance incrementally. The first invalid call is
// recorded and surfaced by Build; later calls are no-ops after an error.
type Builder struct {
	inst *MemInstance
	err  error
}

// NewBuilder starts a builder over the given schema.
func NewBuilder(s *Schema) *Builder {
	if s == nil {
		return &Builder{err: ErrNilSchema}
	}

	return &Builder{inst: &MemInstance{
		schema: s,
		elems:  make(map[string][]string, len(s.sorts)),
		elemAt: make(map[string]map[string]struct{}, len(s.sorts)),
		fns:    make(map[string]map[string]string, len(s.fns)),
		tags:   make(map[string]map[string][]string),
	}}
}

// AddElem appends a fresh element to the given sort.
func (b *Builder) AddElem(sort, elem string) *Builder {
	if b.err != nil {
		return b
	}
	if !b.inst.schema.HasSort(sort) {
		b.err = fmt.Errorf("%w: %q", ErrUnknownSort, sort)

		return b
	}
	if b.inst.HasElem(sort, elem) {
		b.err = fmt.Errorf("%w: %q in sort %q", ErrDuplicateElem, elem, sort)

		return b
	}
	if b.inst.elemAt[sort] == nil {
		b.inst.elemAt[sort] = make(map[string]struct{})
	}
	b.inst.elemAt[sort][elem] = struct{}{}
	b.inst.elems[sort] = append(b.inst.elems[sort], elem)

	return b
}

// Tag attaches tags to an existing element. Duplicate tags are ignored.
func (b *Builder) Tag(srt, elem string, tags ...string) *Builder {
	if b.err != nil {
		return b
	}
	if !b.inst.HasElem(srt, elem) {
		b.err = fmt.Errorf("%w: %q in sort %q", ErrUnknownElem, elem, srt)

		return b
	}
	if b.inst.tags[srt] == nil {
		b.inst.tags[srt] = make(map[string][]string)
	}
	for _, t := range tags {
		if !b.inst.HasTag(srt, elem, t) {
			b.inst.tags[srt][elem] = append(b.inst.tags[srt][elem], t)
		}
	}
	sort.Strings(b.inst.tags[srt][elem])

	return b
}

// Set records fn(from) = to. Both elements must already exist in the
// function's domain and codomain sorts.
func (b *Builder) Set(fn, from, to string) *Builder {
	if b.err != nil {
		return b
	}
	decl, ok := b.inst.schema.Fn(fn)
	if !ok {
		b.err = fmt.Errorf("%w: %q", ErrUnknownFn, fn)

		return b
	}
	if !b.inst.HasElem(decl.Dom, from) {
		b.err = fmt.Errorf("%w: %q in sort %q (domain of %q)", ErrUnknownElem, from, decl.Dom, fn)

		return b
	}
	if !b.inst.HasElem(decl.Cod, to) {
		b.err = fmt.Errorf("%w: %q in sort %q (codomain of %q)", ErrUnknownElem, to, decl.Cod, fn)

		return b
	}
	if b.inst.fns[fn] == nil {
		b.inst.fns[fn] = make(map[string]string)
	}
	b.inst.fns[fn][from] = to

	return b
}

// Build finalizes the instance, verifying every declared function is total
// over its domain sort. Returns the first recorded construction error.
// A successful Build spends the builder: later calls see ErrBuilderSpent
// and can never mutate the finalized instance.
func (b *Builder) Build() (*MemInstance, error) {
	if b.err != nil {
		return nil, b.err
	}
	for _, fn := range b.inst.schema.Fns() {
		for _, e := range b.inst.elems[fn.Dom] {
			if _, ok := b.inst.fns[fn.Name][e]; !ok {
				return nil, fmt.Errorf("%w: %q has no image for %q", ErrIncompleteFn, fn.Name, e)
			}
		}
	}
	inst := b.inst
	inst.key = inst.canonical()
	b.inst = nil
	b.err = ErrBuilderSpent

	return inst, nil
}
