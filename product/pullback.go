// Package product: the limit of slice maps over the shared base.
package product

import (
	"fmt"
	"strings"

	"github.com/amalgamlab/amalgam/hom"
	"github.com/amalgamlab/amalgam/model"
)

// pullback materializes one product node: given one instance and one slice
// map per dimension, the result's elements of each sort are the coordinate
// tuples whose slice images in the base agree, functions act componentwise,
// and tags survive only when present on every coordinate.
func pullback(coords []model.Instance, slices []hom.Hom, schema *model.Schema) (model.Instance, error) {
	b := model.NewBuilder(schema)

	// elems[sort] lists the admissible tuples, in lexicographic coordinate
	// order, so output naming is deterministic.
	elems := make(map[string][][]string, len(schema.Sorts()))
	for _, srt := range schema.Sorts() {
		tuples := enumerate(coords, slices, srt)
		elems[srt] = tuples
		for _, tup := range tuples {
			name := tupleName(tup)
			b.AddElem(srt, name)
			for _, tag := range sharedTags(coords, srt, tup) {
				b.Tag(srt, name, tag)
			}
		}
	}

	for _, fn := range schema.Fns() {
		for _, tup := range elems[fn.Dom] {
			img := make([]string, len(tup))
			for i, e := range tup {
				x, ok := coords[i].Apply(fn.Name, e)
				if !ok {
					return nil, fmt.Errorf("product: %w: %q on %q", model.ErrIncompleteFn, fn.Name, e)
				}
				img[i] = x
			}
			// Componentwise images agree over the base because every slice
			// commutes with the functions, so the image tuple is a product
			// element too.
			b.Set(fn.Name, tupleName(tup), tupleName(img))
		}
	}

	return b.Build()
}

// enumerate lists all coordinate tuples of one sort whose base images
// coincide, in lexicographic order of the coordinates' element orders.
func enumerate(coords []model.Instance, slices []hom.Hom, srt string) [][]string {
	var out [][]string
	tup := make([]string, len(coords))

	var rec func(i int, baseImg string)
	rec = func(i int, baseImg string) {
		if i == len(coords) {
			cp := make([]string, len(tup))
			copy(cp, tup)
			out = append(out, cp)

			return
		}
		for _, e := range coords[i].Elems(srt) {
			img, ok := slices[i].Image(srt, e)
			if !ok {
				continue
			}
			if i > 0 && img != baseImg {
				continue
			}
			tup[i] = e
			rec(i+1, img)
		}
	}
	if len(coords) > 0 {
		rec(0, "")
	}

	return out
}

// tupleName joins coordinate element ids into the product element id.
func tupleName(tup []string) string { return strings.Join(tup, "|") }

// sharedTags returns the tags carried by every coordinate of the tuple.
func sharedTags(coords []model.Instance, srt string, tup []string) []string {
	if len(coords) == 0 {
		return nil
	}
	var out []string
	for _, tag := range coords[0].Tags(srt, tup[0]) {
		all := true
		for i := 1; i < len(coords); i++ {
			if !coords[i].HasTag(srt, tup[i], tag) {
				all = false

				break
			}
		}
		if all {
			out = append(out, tag)
		}
	}

	return out
}
