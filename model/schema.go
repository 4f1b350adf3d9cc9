// Package model: Schema declaration and validation.
package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for schema and instance construction.
var (
	// ErrNilSchema is returned when a nil *Schema is passed to a constructor.
	ErrNilSchema = errors.New("model: schema is nil")

	// ErrDuplicateSort indicates the same sort name was declared twice.
	ErrDuplicateSort = errors.New("model: duplicate sort")

	// ErrUnknownSort indicates an operation referenced an undeclared sort.
	ErrUnknownSort = errors.New("model: unknown sort")

	// ErrUnknownFn indicates an operation referenced an undeclared function.
	ErrUnknownFn = errors.New("model: unknown function")

	// ErrUnknownElem indicates an operation referenced a missing element.
	ErrUnknownElem = errors.New("model: unknown element")

	// ErrDuplicateElem indicates an element was added twice to one sort.
	ErrDuplicateElem = errors.New("model: duplicate element")

	// ErrIncompleteFn indicates a function lacks an image for some element
	// of its domain sort; instance functions must be total.
	ErrIncompleteFn = errors.New("model: function not total")

	// ErrSchemaMismatch indicates two instances over different schemas were
	// combined in one operation.
	ErrSchemaMismatch = errors.New("model: schema mismatch")

	// ErrBuilderSpent indicates a Builder was used again after a
	// successful Build; the finalized instance is frozen.
	ErrBuilderSpent = errors.New("model: builder already finalized")
)

// Fn declares one typed unary function of a Schema: a map from every
// element of sort Dom to some element of sort Cod.
type Fn struct {
	Name string
	Dom  string
	Cod  string
}

// Schema is an immutable set of sort names and function declarations.
// All instances of one search space share a single Schema value, so
// schema identity is pointer identity plus Name.
type Schema struct {
	name    string
	sorts   []string
	sortSet map[string]struct{}
	fns     []Fn
	fnByNm  map[string]Fn
}

// NewSchema validates and builds a Schema from sort names and function
// declarations. Function domains and codomains must be declared sorts.
func NewSchema(name string, sorts []string, fns []Fn) (*Schema, error) {
	s := &Schema{
		name:    name,
		sorts:   make([]string, 0, len(sorts)),
		sortSet: make(map[string]struct{}, len(sorts)),
		fns:     make([]Fn, 0, len(fns)),
		fnByNm:  make(map[string]Fn, len(fns)),
	}
	for _, srt := range sorts {
		if srt == "" {
			return nil, fmt.Errorf("%w: empty sort name", ErrUnknownSort)
		}
		if _, dup := s.sortSet[srt]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSort, srt)
		}
		s.sortSet[srt] = struct{}{}
		s.sorts = append(s.sorts, srt)
	}
	for _, fn := range fns {
		if fn.Name == "" {
			return nil, fmt.Errorf("%w: empty function name", ErrUnknownFn)
		}
		if _, dup := s.fnByNm[fn.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate function %q", ErrUnknownFn, fn.Name)
		}
		if !s.HasSort(fn.Dom) {
			return nil, fmt.Errorf("%w: function %q domain %q", ErrUnknownSort, fn.Name, fn.Dom)
		}
		if !s.HasSort(fn.Cod) {
			return nil, fmt.Errorf("%w: function %q codomain %q", ErrUnknownSort, fn.Name, fn.Cod)
		}
		s.fnByNm[fn.Name] = fn
		s.fns = append(s.fns, fn)
	}

	return s, nil
}

// Name returns the schema's declared name.
func (s *Schema) Name() string { return s.name }

// Sorts returns the declared sort names in declaration order.
// The returned slice is a copy.
func (s *Schema) Sorts() []string {
	out := make([]string, len(s.sorts))
	copy(out, s.sorts)

	return out
}

// Fns returns the declared functions in declaration order.
// The returned slice is a copy.
func (s *Schema) Fns() []Fn {
	out := make([]Fn, len(s.fns))
	copy(out, s.fns)

	return out
}

// HasSort reports whether sort is declared.
func (s *Schema) HasSort(sort string) bool {
	_, ok := s.sortSet[sort]

	return ok
}

// Fn returns the declaration of the named function.
func (s *Schema) Fn(name string) (Fn, bool) {
	fn, ok := s.fnByNm[name]

	return fn, ok
}

// FnsFrom returns all functions whose domain is the given sort,
// in declaration order.
func (s *Schema) FnsFrom(sort string) []Fn {
	var out []Fn
	for _, fn := range s.fns {
		if fn.Dom == sort {
			out = append(out, fn)
		}
	}

	return out
}

// Same reports whether two schema pointers denote the same schema.
// Pointer equality is sufficient inside one search space; name equality
// covers schemas rebuilt from the same configuration document.
func (s *Schema) Same(other *Schema) bool {
	if s == other {
		return true
	}

	return s != nil && other != nil && s.name == other.name
}
