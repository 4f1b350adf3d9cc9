// Package schedule validates and drives the rooted DAG of named
// generators.
//
// Build checks the dependency graph once, up front: every referenced
// generator must exist (ErrDanglingDep), the edges must be acyclic
// (ErrCycle, tri-color depth-first detection), exactly one generator may
// be root unless WithMultiRoot(true) (ErrMultipleRoots), and every
// generator with more than one dependent must explicitly declare its
// sharing policy (ErrSharingUndeclared) — shared versus reentrant changes
// the composite space, so it is never inferred. Configuration errors are
// fatal; a search space is never partially built.
//
// After Build the scheduler pulls lazily: composites demand draws from
// their dependencies only as needed, leaves upward. A shared generator is
// expanded once per search and replayed identically to every dependent; a
// reentrant generator is expanded independently per referencing consumer.
// Each expansion is wrapped with the declaration's output constraints and,
// when a loss is attached, a scoring layer that records the history and
// enforces the stop criterion: once a stop fires, that sequence is
// permanently exhausted and dependents observe an ordinary end of data.
//
// Randomness is derived deterministically: every expansion receives its
// own rand source seeded from the scheduler seed and the expansion path,
// so one seed reproduces the whole search.
package schedule
