// Package hom finds structure-preserving maps between model instances.
//
// A homomorphism h maps every element of a source instance to an element of
// the same sort in a target instance so that every schema function commutes:
// h(f(x)) == f(h(x)). Interface constraints further restrict which target
// elements a source element may take — for example TagConstraint("input")
// admits only targets tagged "input".
//
// Find enumerates the full admissible set; FindOne picks one uniformly at
// random using a caller-supplied seeded *rand.Rand, so re-running with the
// same seed and inputs reproduces the identical choice. The engine serves
// both composition directions of the search core: embedding a junction
// overlap into a box instance (additive gluing) and slicing a dimension
// instance onto a shared base (multiplicative products).
//
// Enumeration is subgraph-isomorphism-like and worst-case exponential, so
// two strategies are provided: exhaustive assignment for very small sources
// and constraint-propagating backtracking with early pruning otherwise.
// Every call honors a step budget and context cancellation; exceeding either
// yields ErrSearchTimeout, which callers treat exactly like "no
// homomorphism found" — it rejects the current candidate and nothing else.
//
// Fully enumerated result sets may be memoized in an LRU Cache keyed by the
// canonical instance keys and constraint fingerprints.
package hom
