// Package generator declares the static configuration of a search space:
// the closed set of generator kinds, the wiring pattern and product spec
// payloads of composite generators, and the id-keyed Arena holding them.
//
// A Generator declaration (Decl) is one of three kinds:
//
//	KindExplicit       - a finite enumerated sequence of instances, the one
//	                     built-in primitive; richer primitive generators
//	                     (rewrite systems, external enumeration services)
//	                     plug in as Stream implementations.
//	KindAdditive       - glues instances drawn from referenced generators
//	                     along a Box/Port/Junction/Wire wiring pattern.
//	KindMultiplicative - explores the product of dimension generators over
//	                     a shared base instance.
//
// Decls are built once from the search-space document and never mutated;
// edges between them are stored as generator names, and the dependency
// graph is validated (acyclic, rooted) by package schedule. Every site that
// consumes a Decl switches exhaustively over Kind.
//
// Enumeration state lives behind the Stream interface: Next returns the
// following instance or ErrExhausted when the sequence ends — exhaustion is
// an ordinary end of data, never a failure. Constrained wraps a stream with
// a generator's ordered output constraints (Filter, then Chase).
package generator
