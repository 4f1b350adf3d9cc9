// Package amalgam is a composition and exploration engine for relational
// model instances: small typed structures are drawn from generators,
// glued along shared overlaps, multiplied into product grids, and scored,
// all lazily and reproducibly under one seed.
//
// What lives where:
//
//	model/     — schemas (sorts + typed unary functions), instances, builders
//	hom/       — structure-preserving map search with constraints and caching
//	glue/      — additive composition: wiring patterns and pushout gluing
//	product/   — multiplicative composition: breadth-first product exploration
//	loss/      — evaluators, score histories, stop criteria
//	generator/ — declarations, the arena, and the stream contract
//	schedule/  — DAG validation, lazy expansion, shared replay, budgeted runs
//	config/    — YAML search-space documents
//	cmd/       — the amalgam command
//
// Guarantees across the board:
//
//   - Determinism: every ambiguous selection takes an explicit *rand.Rand;
//     equal seeds reproduce equal searches.
//   - Cancellation: every potentially long operation takes a
//     context.Context and stops cleanly when it fires.
//   - Failure discipline: configuration errors are fatal at build time;
//     per-candidate search failures are skipped; exhaustion is a sentinel,
//     never an error state.
//
// Start with config.Load or build an Arena by hand, then schedule.Build
// and Run. The examples/ directory walks through complete scenarios.
package amalgam
