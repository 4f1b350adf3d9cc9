// Package glue is the additive composition engine: it builds one composite
// model instance per wiring pattern by gluing sub-instances along shared
// junction overlaps.
//
// Composition of one candidate tuple proceeds in three steps. Every
// junction resolves its overlap instance (explicit, or the empty
// structure). Every wire then embeds its junction's overlap into the box
// instance behind its port, via a constrained homomorphism search with
// random tie-breaking; any wire failing to embed makes the whole tuple
// inadmissible. Finally the pushout of the resulting diagram is computed:
// the disjoint union of all box instances, quotiented so that elements
// identified through a common junction become one, with functions and tags
// induced on the classes.
//
// Stream enumerates composites lazily over admissible tuples of box draws
// in odometer order — the first box of the pattern advances slowest, the
// last fastest. Inadmissible tuples are skipped silently; a configured
// bound on consecutive skips yields ErrLayerExhausted, which wraps
// generator.ErrExhausted so enclosing layers observe an ordinary end of
// sequence rather than a failure.
//
// Self-gluing (two ports of one box wired to one junction) is rejected
// unless explicitly permitted with WithSelfGlue(true).
package glue
