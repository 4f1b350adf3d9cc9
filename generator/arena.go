// Package generator: the id-keyed arena of declarations.
package generator

import "fmt"

// Arena is the immutable, id-keyed store of all generator declarations of
// one search space. Edges between generators are stored as names; the DAG
// shape (acyclicity, rootedness, dangling references) is validated by
// package schedule at build time.
type Arena struct {
	decls map[string]*Decl
	order []string // declaration order, for deterministic iteration
}

// NewArena validates each declaration in isolation and indexes it by name.
func NewArena(decls ...*Decl) (*Arena, error) {
	a := &Arena{decls: make(map[string]*Decl, len(decls))}
	for _, d := range decls {
		if d == nil {
			return nil, fmt.Errorf("%w: nil declaration", ErrBadKind)
		}
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := a.decls[d.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, d.Name)
		}
		a.decls[d.Name] = d
		a.order = append(a.order, d.Name)
	}

	return a, nil
}

// Get returns the named declaration.
func (a *Arena) Get(name string) (*Decl, bool) {
	d, ok := a.decls[name]

	return d, ok
}

// Names returns all declaration names in declaration order; a copy.
func (a *Arena) Names() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)

	return out
}

// Len returns the number of declarations.
func (a *Arena) Len() int { return len(a.decls) }

// Dependents returns the names of declarations referencing name, in
// declaration order.
func (a *Arena) Dependents(name string) []string {
	var out []string
	for _, n := range a.order {
		for _, dep := range a.decls[n].Deps() {
			if dep == name {
				out = append(out, n)

				break
			}
		}
	}

	return out
}
