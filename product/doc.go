// Package product is the multiplicative composition engine: it explores
// the product space of a set of dimension generators, sliced over a shared
// base instance.
//
// Each node of the space is a tuple holding one instance per dimension;
// each edge advances exactly one coordinate to that dimension's next
// instance (the classic product-graph construction — a purely sequential
// generator is the degenerate path case). Exploration is breadth-first from
// the tuple of initial instances: the FIFO frontier guarantees nodes are
// emitted in non-decreasing total advancement distance from the origin.
// This BFS-radius ordering is a public contract consumers may rely on. The
// traversal skeleton follows the same enqueue/dequeue walker discipline as
// a plain graph BFS.
//
// Materializing a node slices every coordinate instance into the base via a
// constrained homomorphism search (uniform random pick on ambiguity, seeded
// by the caller) and computes the pullback of the slice maps: elements are
// coordinate tuples agreeing over the base, functions act componentwise,
// and an element carries a tag only when every coordinate does. A
// coordinate that fails to slice makes the node inadmissible: it is dropped
// silently, though its neighbors are still discovered unless
// WithPruneInadmissible(true).
//
// The frontier and the visited-set (keyed by instance identity) are
// externally checkpointable, so a long exploration can be paused and
// resumed without re-deriving prior work.
package product
