// Package loss scores model instances and decides when a generator's
// sequence halts.
//
// An Evaluator maps an instance to a real score; Direction declares whether
// lower or higher scores are better. Each generator owns a History, the
// append-only sequence of (instance key, score) samples it has emitted;
// enclosing composites may read histories of their dependencies — never
// write them — which enables hierarchical shaping via the Shaped interface.
//
// Stop criteria form a small closed set: threshold crossing, sample count,
// and plateau detection over a trailing window (standard deviation computed
// with gonum/stat). Once a criterion fires, the owning generator's sequence
// is permanently exhausted, even if its underlying production is infinite.
package loss
