// Package hom: random selection among admissible homomorphisms.
package hom

import (
	"math/rand"

	"github.com/amalgamlab/amalgam/model"
)

// FindOne enumerates the admissible set and returns one homomorphism chosen
// uniformly at random from it using the caller-supplied seeded source.
// Because Find returns a deterministic order, equal seeds and inputs always
// yield the identical choice. Returns ErrNoHomomorphism when the set is
// empty and ErrSearchTimeout when the budget expires; callers treat both as
// "this candidate is inadmissible".
func FindOne(src, dst model.Instance, rng *rand.Rand, opts ...Option) (Hom, error) {
	if rng == nil {
		return Hom{}, ErrNilRand
	}
	homs, err := Find(src, dst, opts...)
	if err != nil {
		return Hom{}, err
	}
	if len(homs) == 0 {
		return Hom{}, ErrNoHomomorphism
	}

	return homs[rng.Intn(len(homs))], nil
}
